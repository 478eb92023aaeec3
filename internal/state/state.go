// Package state owns the auditor's crawl state: the visited set, run
// counters, and optional persistence for resumable runs.
package state

import (
	"encoding/json"
	"sync"
	"time"
)

// CrawlerState is a persistable snapshot of one run.
type CrawlerState struct {
	Sites         []string        `json:"sites"`
	StartedAt     time.Time       `json:"startedAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Authenticated bool            `json:"authenticated"`
	PagesCrawled  int             `json:"pagesCrawled"`
	QueueURLs     []string        `json:"queueUrls"`
	VisitedURLs   []string        `json:"visitedUrls"`
	Results       json.RawMessage `json:"results,omitempty"`
}

// Store persists crawler state between runs.
type Store interface {
	Save(state *CrawlerState) error
	Load() (*CrawlerState, error)
	Close() error
}

// Manager tracks the visited set and run-level flags. The scheduler is the
// single writer; reads may come from worker goroutines.
type Manager struct {
	mu            sync.RWMutex
	dedup         *Deduplicator
	store         Store
	authenticated bool
	pagesCrawled  int
	navFailures   int
}

// NewManager creates a state manager. store may be nil when persistence is
// disabled.
func NewManager(store Store, estimatedURLs int) *Manager {
	return &Manager{
		dedup: NewDeduplicator(estimatedURLs),
		store: store,
	}
}

// HasVisited reports whether a normalized URL has been processed.
func (m *Manager) HasVisited(normalizedURL string) bool {
	return m.dedup.HasSeen(normalizedURL)
}

// MarkVisited records a normalized URL as processed.
func (m *Manager) MarkVisited(normalizedURL string) {
	m.dedup.Add(normalizedURL)
}

// VisitedCount returns the number of distinct URLs processed.
func (m *Manager) VisitedCount() int {
	return m.dedup.Count()
}

// VisitedURLs returns all visited URLs, for state snapshots.
func (m *Manager) VisitedURLs() []string {
	return m.dedup.All()
}

// RestoreVisited loads a visited set from a snapshot.
func (m *Manager) RestoreVisited(urls []string) {
	m.dedup.AddBatch(urls)
}

// RestoreCounters reloads the crawled-page counter from a snapshot, so page
// budgets keep counting across resumed runs.
func (m *Manager) RestoreCounters(pagesCrawled int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pagesCrawled = pagesCrawled
}

// SetAuthenticated marks the run as authenticated. It is set at most once,
// before the first protected path is enqueued, and never reset.
func (m *Manager) SetAuthenticated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authenticated = true
}

// IsAuthenticated reports whether the authentication flow succeeded.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated
}

// RecordPage increments the crawled-page counter.
func (m *Manager) RecordPage(failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pagesCrawled++
	if failed {
		m.navFailures++
	}
}

// PagesCrawled returns the number of pages processed so far.
func (m *Manager) PagesCrawled() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pagesCrawled
}

// NavFailures returns the number of pages whose navigation failed.
func (m *Manager) NavFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.navFailures
}

// Load reads the persisted snapshot, or nil when there is none.
func (m *Manager) Load() (*CrawlerState, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.Load()
}

// Save persists a snapshot through the configured store.
func (m *Manager) Save(snapshot *CrawlerState) error {
	if m.store == nil {
		return nil
	}
	snapshot.UpdatedAt = time.Now()
	return m.store.Save(snapshot)
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}
