package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bastiangx/cardserve/internal/utils"
	"github.com/gofrs/flock"
)

// DefaultFileName is the cache file created in the config dir.
const DefaultFileName = "cache.json"

// Store reads and writes a whole Entry as a single unit.
type Store interface {
	Load() (Entry, error)
	Save(Entry) error
}

// FileStore keeps the entry in a JSON file. Writes go through a temp file
// and a rename; a sibling lock file serializes processes sharing the path.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore returns a store backed by path. Nothing touches the disk
// until Load or Save is called.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the entry. A missing or empty file yields a zero Entry; a file
// that does not parse is an error.
func (s *FileStore) Load() (Entry, error) {
	if !utils.FileExists(s.path) {
		return Entry{}, nil
	}
	if err := s.lock.RLock(); err != nil {
		return Entry{}, fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Entry{}, fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return Entry{}, nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("parse cache file: %w", err)
	}
	return entry, nil
}

// Save writes the entry atomically.
func (s *FileStore) Save(entry Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := utils.EnsureDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer s.lock.Unlock()

	if err := utils.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// MemoryStore keeps the entry in memory only.
type MemoryStore struct {
	mu    sync.Mutex
	entry Entry
	saves int
}

// NewMemoryStore returns a store seeded with entry.
func NewMemoryStore(entry Entry) *MemoryStore {
	return &MemoryStore{entry: entry}
}

func (s *MemoryStore) Load() (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry, nil
}

func (s *MemoryStore) Save(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = entry
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
