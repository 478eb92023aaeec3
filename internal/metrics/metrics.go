// Package metrics provides in-process metrics for the site auditor.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector collects and aggregates crawl metrics. All methods are safe for
// concurrent use from the per-page goroutines.
type Collector struct {
	pagesCrawled  atomic.Int64
	pagesFailed   atomic.Int64
	linksFound    atomic.Int64
	linksChecked  atomic.Int64
	brokenLinks   atomic.Int64
	batchesRun    atomic.Int64
	bytesOfHTML   atomic.Int64
	loadTimeSumMs atomic.Int64
	loadTimeNum   atomic.Int64

	queueDepth  atomic.Int64
	activePages atomic.Int64

	// Load time histogram buckets in ms:
	// <250, <500, <1000, <2500, <5000, >=5000
	loadTimeBuckets [6]atomic.Int64

	statusMu    sync.RWMutex
	statusCodes map[int]*atomic.Int64

	startTime time.Time
}

// New creates a new metrics collector.
func New() *Collector {
	return &Collector{
		statusCodes: make(map[int]*atomic.Int64),
		startTime:   time.Now(),
	}
}

// RecordPage records one crawled page.
func (c *Collector) RecordPage(statusCode int, loadTime time.Duration, htmlBytes int, failed bool) {
	c.pagesCrawled.Add(1)
	if failed {
		c.pagesFailed.Add(1)
	}
	c.bytesOfHTML.Add(int64(htmlBytes))

	ms := loadTime.Milliseconds()
	c.loadTimeSumMs.Add(ms)
	c.loadTimeNum.Add(1)
	c.loadTimeBuckets[bucketFor(ms)].Add(1)

	c.statusMu.Lock()
	if c.statusCodes[statusCode] == nil {
		c.statusCodes[statusCode] = &atomic.Int64{}
	}
	c.statusCodes[statusCode].Add(1)
	c.statusMu.Unlock()
}

func bucketFor(ms int64) int {
	switch {
	case ms < 250:
		return 0
	case ms < 500:
		return 1
	case ms < 1000:
		return 2
	case ms < 2500:
		return 3
	case ms < 5000:
		return 4
	default:
		return 5
	}
}

// RecordLinks records links discovered on one page.
func (c *Collector) RecordLinks(n int) {
	c.linksFound.Add(int64(n))
}

// RecordLinkCheck records one verified link.
func (c *Collector) RecordLinkCheck(broken bool) {
	c.linksChecked.Add(1)
	if broken {
		c.brokenLinks.Add(1)
	}
}

// RecordBatch records the completion of one crawl batch.
func (c *Collector) RecordBatch() {
	c.batchesRun.Add(1)
}

// SetQueueDepth updates the queue depth gauge.
func (c *Collector) SetQueueDepth(n int) {
	c.queueDepth.Store(int64(n))
}

// PageStarted marks a page crawl as in flight.
func (c *Collector) PageStarted() {
	c.activePages.Add(1)
}

// PageFinished marks a page crawl as done.
func (c *Collector) PageFinished() {
	c.activePages.Add(-1)
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	PagesCrawled      int64         `json:"pages_crawled"`
	PagesFailed       int64         `json:"pages_failed"`
	LinksFound        int64         `json:"links_found"`
	LinksChecked      int64         `json:"links_checked"`
	BrokenLinks       int64         `json:"broken_links"`
	BatchesRun        int64         `json:"batches_run"`
	BytesOfHTML       int64         `json:"bytes_of_html"`
	AverageLoadTimeMs int64         `json:"average_load_time_ms"`
	LoadTimeBuckets   [6]int64      `json:"load_time_buckets"`
	StatusCodes       map[int]int64 `json:"status_codes"`
	QueueDepth        int64         `json:"queue_depth"`
	ActivePages       int64         `json:"active_pages"`
	Uptime            time.Duration `json:"uptime"`
}

// Snapshot returns a consistent copy of the current metrics.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		PagesCrawled: c.pagesCrawled.Load(),
		PagesFailed:  c.pagesFailed.Load(),
		LinksFound:   c.linksFound.Load(),
		LinksChecked: c.linksChecked.Load(),
		BrokenLinks:  c.brokenLinks.Load(),
		BatchesRun:   c.batchesRun.Load(),
		BytesOfHTML:  c.bytesOfHTML.Load(),
		QueueDepth:   c.queueDepth.Load(),
		ActivePages:  c.activePages.Load(),
		StatusCodes:  make(map[int]int64),
		Uptime:       time.Since(c.startTime),
	}

	if n := c.loadTimeNum.Load(); n > 0 {
		s.AverageLoadTimeMs = c.loadTimeSumMs.Load() / n
	}
	for i := range c.loadTimeBuckets {
		s.LoadTimeBuckets[i] = c.loadTimeBuckets[i].Load()
	}

	c.statusMu.RLock()
	for code, count := range c.statusCodes {
		s.StatusCodes[code] = count.Load()
	}
	c.statusMu.RUnlock()

	return s
}
