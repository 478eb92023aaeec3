package state

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator(100)

	if d.HasSeen("https://example.com/a") {
		t.Error("fresh deduplicator should not have seen anything")
	}

	d.Add("https://example.com/a")
	if !d.HasSeen("https://example.com/a") {
		t.Error("HasSeen should be true after Add")
	}
	if d.HasSeen("https://example.com/b") {
		t.Error("HasSeen should be false for unseen URL")
	}

	d.Add("https://example.com/a")
	if d.Count() != 1 {
		t.Errorf("Count() = %d after duplicate add, want 1", d.Count())
	}

	d.AddBatch([]string{"https://example.com/b", "https://example.com/c", "https://example.com/b"})
	if d.Count() != 3 {
		t.Errorf("Count() = %d, want 3", d.Count())
	}

	if len(d.All()) != 3 {
		t.Errorf("All() returned %d URLs, want 3", len(d.All()))
	}
}

func TestManager_VisitedAndCounters(t *testing.T) {
	m := NewManager(nil, 100)

	if m.HasVisited("https://example.com/a") {
		t.Error("fresh manager should have no visits")
	}

	m.MarkVisited("https://example.com/a")
	if !m.HasVisited("https://example.com/a") {
		t.Error("HasVisited should be true after MarkVisited")
	}

	m.RecordPage(false)
	m.RecordPage(true)
	if m.PagesCrawled() != 2 {
		t.Errorf("PagesCrawled() = %d, want 2", m.PagesCrawled())
	}

	if m.IsAuthenticated() {
		t.Error("manager should start unauthenticated")
	}
	m.SetAuthenticated()
	if !m.IsAuthenticated() {
		t.Error("IsAuthenticated should be true after SetAuthenticated")
	}
}

func TestManager_SaveWithoutStore(t *testing.T) {
	m := NewManager(nil, 100)
	if err := m.Save(&CrawlerState{}); err != nil {
		t.Errorf("Save without store should be a no-op, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close without store should be a no-op, got %v", err)
	}
}

func TestManager_RoundTripThroughStore(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, 100)

	m.MarkVisited("https://example.com")
	m.MarkVisited("https://example.com/about")
	m.SetAuthenticated()
	m.RecordPage(false)

	err := m.Save(&CrawlerState{
		Authenticated: m.IsAuthenticated(),
		PagesCrawled:  m.PagesCrawled(),
		VisitedURLs:   m.VisitedURLs(),
	})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	restored := NewManager(store, 100)
	saved, err := restored.Load()
	if err != nil || saved == nil {
		t.Fatalf("Load() = %v, %v", saved, err)
	}
	restored.RestoreVisited(saved.VisitedURLs)

	if !restored.HasVisited("https://example.com/about") {
		t.Error("restored manager lost the visited set")
	}
	if !saved.Authenticated || saved.PagesCrawled != 1 {
		t.Errorf("saved snapshot mismatch: %+v", saved)
	}
}

func TestBoltStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore() failed: %v", err)
	}
	defer store.Close()

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded != nil {
		t.Fatal("Load() on empty store should return nil")
	}

	saved := &CrawlerState{
		Sites:         []string{"production"},
		StartedAt:     time.Now().Truncate(time.Second),
		Authenticated: true,
		PagesCrawled:  7,
		QueueURLs:     []string{"https://example.com/next"},
		VisitedURLs:   []string{"https://example.com", "https://example.com/about"},
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err = store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load() returned nil after Save")
	}
	if loaded.PagesCrawled != 7 || !loaded.Authenticated {
		t.Errorf("loaded state mismatch: %+v", loaded)
	}
	if len(loaded.VisitedURLs) != 2 {
		t.Errorf("loaded %d visited URLs, want 2", len(loaded.VisitedURLs))
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit-state.json")

	store := NewFileStore(path)

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded != nil {
		t.Fatal("Load() with no file should return nil")
	}

	if err := store.Save(&CrawlerState{Sites: []string{"local"}, PagesCrawled: 3}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err = store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded == nil || loaded.PagesCrawled != 3 {
		t.Errorf("loaded state mismatch: %+v", loaded)
	}
}
