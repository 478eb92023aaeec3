package state

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Deduplicator tracks normalized URLs that have already been processed. A
// Bloom filter answers the common "never seen" case cheaply; an exact set
// backs it up against false positives, since a false "seen" would silently
// drop a page from the audit.
type Deduplicator struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	exact  map[string]struct{}
	count  int
}

// NewDeduplicator creates a deduplicator sized for the estimated URL count.
func NewDeduplicator(estimatedItems int) *Deduplicator {
	if estimatedItems < 1000 {
		estimatedItems = 1000
	}

	return &Deduplicator{
		filter: bloom.NewWithEstimates(uint(estimatedItems), 0.001),
		exact:  make(map[string]struct{}),
	}
}

// Add records a URL as seen.
func (d *Deduplicator) Add(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.exact[url]; !exists {
		d.filter.AddString(url)
		d.exact[url] = struct{}{}
		d.count++
	}
}

// HasSeen reports whether a URL has been seen before.
func (d *Deduplicator) HasSeen(url string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.filter.TestString(url) {
		return false
	}
	_, exists := d.exact[url]
	return exists
}

// AddBatch records multiple URLs at once.
func (d *Deduplicator) AddBatch(urls []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, url := range urls {
		if _, exists := d.exact[url]; !exists {
			d.filter.AddString(url)
			d.exact[url] = struct{}{}
			d.count++
		}
	}
}

// Count returns the number of unique URLs seen.
func (d *Deduplicator) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.count
}

// All returns every URL seen, for state snapshots.
func (d *Deduplicator) All() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	urls := make([]string, 0, len(d.exact))
	for url := range d.exact {
		urls = append(urls, url)
	}
	return urls
}
