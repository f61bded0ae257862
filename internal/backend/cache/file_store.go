package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// fileSchemaVersion is bumped whenever filePayload changes shape.
const fileSchemaVersion uint16 = 1

type filePayload struct {
	Schema  uint16           `msgpack:"schema"`
	Entries map[string]Entry `msgpack:"entries"`
}

// FileStore keeps the whole cache in one msgpack file. It is loaded on open
// and replaced atomically on every write.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
}

// OpenFileStore loads path, starting empty when it does not exist. A file
// written with another schema version is ignored and overwritten on flush.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var payload filePayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode cache %s: %w", path, err)
	}
	if payload.Schema == fileSchemaVersion && payload.Entries != nil {
		s.entries = payload.Entries
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *FileStore) PutAll(_ context.Context, entries map[string]Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range entries {
		s.entries[k] = e
	}
	return s.write()
}

func (s *FileStore) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// write replaces the cache file through a temp file and rename.
func (s *FileStore) write() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := msgpack.NewEncoder(f).Encode(filePayload{Schema: fileSchemaVersion, Entries: s.entries}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
