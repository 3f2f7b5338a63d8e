package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/repositories"
)

// FileStore is a KeyValueStore backed by a single JSON file, the local
// analogue of the browser's localStorage. Writes go through a temp file
// and rename so a crash cannot leave a half-written store.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	logger *zap.Logger
}

// NewFileStore loads the store at path, starting empty when the file is
// absent or unreadable. A corrupt file is discarded silently; the cores
// handle per-key corruption themselves.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	s := &FileStore{
		path:   path,
		values: make(map[string]string),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read storage file, starting empty",
				zap.String("path", path),
				zap.Error(err))
		}
		return s
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		logger.Warn("Storage file is corrupt, starting empty",
			zap.String("path", path),
			zap.Error(err))
		s.values = make(map[string]string)
	}
	return s
}

var _ repositories.KeyValueStore = (*FileStore)(nil)

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.flushLocked()
}

func (s *FileStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.flushLocked()
}

// flushLocked writes the full map to disk. Failures are logged and
// swallowed: the in-memory state keeps reflecting the write.
func (s *FileStore) flushLocked() {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		s.logger.Error("Failed to encode storage file", zap.Error(err))
		return
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error("Failed to create storage directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error("Failed to write storage file", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("Failed to replace storage file", zap.Error(err))
	}
}
