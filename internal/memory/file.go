package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// FileStore keeps records in memory and rewrites the whole JSON document on
// every change.
type FileStore struct {
	mu      sync.RWMutex
	records []string
	path    string
	logger  *slog.Logger
}

// NewFileStore loads path if it exists. A missing or unparsable file yields an
// empty store.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{
		path:    path,
		records: []string{},
		logger:  logger.With("component", "memory", "backend", BackendJSON),
	}
	if err := s.load(); err != nil {
		s.logger.Warn("discarding unreadable memory snapshot", "path", path, "err", err)
		s.records = []string{}
	}
	return s
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var records []string
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	if records != nil {
		s.records = records
	}
	return nil
}

// Add appends text and persists the full sequence.
func (s *FileStore) Add(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, text)
	if err := s.save(); err != nil {
		s.logger.Warn("saving memory failed", "path", s.path, "err", err)
	}
}

// Retrieve returns up to topK records containing query, case-insensitively.
func (s *FileStore) Retrieve(query string, topK int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return match(s.records, query, topK)
}

// Clear empties the store and persists the empty document.
func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = []string{}
	if err := s.save(); err != nil {
		s.logger.Warn("saving cleared memory failed", "path", s.path, "err", err)
	}
}

func (s *FileStore) Records() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.records))
	copy(out, s.records)
	return out
}

func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *FileStore) Close() error { return nil }

// save must be called with mu held. The document is written to a temp file
// in the same directory and renamed over the target.
func (s *FileStore) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
