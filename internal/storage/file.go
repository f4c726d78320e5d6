package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore persists the key-value map as a single JSON document, written
// atomically via a temp file and rename. It is the default store: one console
// process, one document, same lifetime as the browser's localStorage.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu   sync.Mutex
	data map[string]string
}

func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		logger: logger,
		data:   make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		// A corrupt document is treated as empty rather than fatal; the
		// session layer recovers by purging and re-authenticating.
		logger.Warn("storage file is corrupt, starting empty", zap.String("path", path), zap.Error(err))
		s.data = make(map[string]string)
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.persist()
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return s.persist()
}

func (s *FileStore) SetPair(_ context.Context, key1, value1, key2, value2 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	applyPair(s.data, key1, value1)
	applyPair(s.data, key2, value2)
	return s.persist()
}

func (s *FileStore) DeletePair(_ context.Context, key1, key2 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key1)
	delete(s.data, key2)
	return s.persist()
}

func applyPair(data map[string]string, key, value string) {
	if value == "" {
		delete(data, key)
		return
	}
	data[key] = value
}

// persist is called with the mutex held.
func (s *FileStore) persist() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".storage-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
