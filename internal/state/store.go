package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketState = []byte("state")
	keyState    = []byte("audit_state")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// NewBoltStore creates a BoltDB-backed state store.
func NewBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

// Save saves the crawler state.
func (s *BoltStore) Save(state *CrawlerState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put(keyState, data)
	})
}

// Load loads the crawler state. Returns (nil, nil) when no state was saved.
func (s *BoltStore) Load() (*CrawlerState, error) {
	var state CrawlerState
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		data := b.Get(keyState)
		if data == nil {
			return nil
		}

		found = true
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}
	return &state, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// FileStore implements Store using a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-based state store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the crawler state to the file.
func (s *FileStore) Save(state *CrawlerState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return os.WriteFile(s.path, data, 0644)
}

// Load reads the crawler state from the file. Returns (nil, nil) when the
// file does not exist.
func (s *FileStore) Load() (*CrawlerState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var state CrawlerState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Close is a no-op for FileStore.
func (s *FileStore) Close() error {
	return nil
}

// MemoryStore implements Store in memory, for tests.
type MemoryStore struct {
	state *CrawlerState
}

// NewMemoryStore creates an in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save keeps the state in memory.
func (s *MemoryStore) Save(state *CrawlerState) error {
	s.state = state
	return nil
}

// Load returns the stored state.
func (s *MemoryStore) Load() (*CrawlerState, error) {
	return s.state, nil
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}
