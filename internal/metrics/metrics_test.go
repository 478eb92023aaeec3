package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCollector(t *testing.T) {
	c := New()

	c.RecordPage(200, 300*time.Millisecond, 1024, false)
	c.RecordPage(404, 100*time.Millisecond, 512, false)
	c.RecordPage(0, 15*time.Second, 0, true)
	c.RecordLinks(12)
	c.RecordLinkCheck(false)
	c.RecordLinkCheck(true)
	c.RecordBatch()
	c.SetQueueDepth(4)

	s := c.Snapshot()
	if s.PagesCrawled != 3 || s.PagesFailed != 1 {
		t.Errorf("pages = %d/%d failed, want 3/1", s.PagesCrawled, s.PagesFailed)
	}
	if s.LinksFound != 12 || s.LinksChecked != 2 || s.BrokenLinks != 1 {
		t.Errorf("links = %d found %d checked %d broken", s.LinksFound, s.LinksChecked, s.BrokenLinks)
	}
	if s.StatusCodes[200] != 1 || s.StatusCodes[404] != 1 || s.StatusCodes[0] != 1 {
		t.Errorf("StatusCodes = %v", s.StatusCodes)
	}
	if s.QueueDepth != 4 || s.BatchesRun != 1 {
		t.Errorf("queue depth %d, batches %d", s.QueueDepth, s.BatchesRun)
	}
	// 300ms and 100ms land in the two lowest buckets, 15s in the last.
	if s.LoadTimeBuckets[0] != 1 || s.LoadTimeBuckets[1] != 1 || s.LoadTimeBuckets[5] != 1 {
		t.Errorf("LoadTimeBuckets = %v", s.LoadTimeBuckets)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.PageStarted()
			c.RecordPage(200, 100*time.Millisecond, 100, false)
			c.PageFinished()
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.PagesCrawled != 50 {
		t.Errorf("PagesCrawled = %d, want 50", s.PagesCrawled)
	}
	if s.ActivePages != 0 {
		t.Errorf("ActivePages = %d, want 0", s.ActivePages)
	}
	if s.AverageLoadTimeMs != 100 {
		t.Errorf("AverageLoadTimeMs = %d, want 100", s.AverageLoadTimeMs)
	}
}
