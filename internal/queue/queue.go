// Package queue provides the FIFO frontier queue for the auditor.
package queue

import (
	"errors"
	"sync"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
)

// Item is one unit of crawl work.
type Item struct {
	URL       string // raw URL as discovered
	Site      string // owning site name
	ParentURL string // page the URL was discovered on, empty for seeds
}

// Memory is a thread-safe in-memory FIFO queue. Pages are crawled in strict
// discovery order, so no priority heap is involved.
type Memory struct {
	mu     sync.RWMutex
	items  []*Item
	urlSet map[string]struct{}
	closed bool
}

// NewMemory creates a new in-memory frontier queue.
func NewMemory() *Memory {
	return &Memory{
		urlSet: make(map[string]struct{}),
	}
}

// Push appends an item to the back of the queue. Duplicate URLs are silently
// ignored.
func (q *Memory) Push(item *Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if _, exists := q.urlSet[item.URL]; exists {
		return nil
	}

	q.urlSet[item.URL] = struct{}{}
	q.items = append(q.items, item)
	return nil
}

// PushBatch appends multiple items, skipping duplicates.
func (q *Memory) PushBatch(items []*Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	for _, item := range items {
		if _, exists := q.urlSet[item.URL]; exists {
			continue
		}
		q.urlSet[item.URL] = struct{}{}
		q.items = append(q.items, item)
	}
	return nil
}

// PopBatch removes and returns up to n items from the front of the queue.
func (q *Memory) PopBatch(n int) ([]*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	if len(q.items) == 0 {
		return nil, ErrQueueEmpty
	}

	if n > len(q.items) {
		n = len(q.items)
	}

	batch := q.items[:n]
	q.items = q.items[n:]
	for _, item := range batch {
		delete(q.urlSet, item.URL)
	}
	return batch, nil
}

// Contains reports whether a URL is currently queued.
func (q *Memory) Contains(url string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, exists := q.urlSet[url]
	return exists
}

// Len returns the number of queued items.
func (q *Memory) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// IsEmpty reports whether the queue is empty.
func (q *Memory) IsEmpty() bool {
	return q.Len() == 0
}

// URLs returns the queued URLs in order, for state snapshots.
func (q *Memory) URLs() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	urls := make([]string, 0, len(q.items))
	for _, item := range q.items {
		urls = append(urls, item.URL)
	}
	return urls
}

// Close closes the queue.
func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
