package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// DefaultFileName is the file created under the user cache directory.
const DefaultFileName = "go-docquery/storage.json"

// FileStorage persists all values as one JSON object on an afero filesystem.
// Every write rewrites the file.
type FileStorage struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	values map[string]string
}

// NewFileStorage opens (or creates) the JSON file at path. It fails when the
// directory cannot be created, the file is unreadable, or it is not writable.
func NewFileStorage(fs afero.Fs, path string) (*FileStorage, error) {
	s := &FileStorage{fs: fs, path: path, values: map[string]string{}}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}

	data, err := afero.ReadFile(fs, path)
	switch {
	case err == nil && len(data) > 0:
		if err := json.Unmarshal(data, &s.values); err != nil {
			return nil, fmt.Errorf("storage: decode %s: %w", path, err)
		}
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}

	// probe writability before handing the adapter out
	if err := s.flush(); err != nil {
		return nil, err
	}
	return s, nil
}

// FileOpener returns an Opener for a FileStorage at path on fs.
func FileOpener(fs afero.Fs, path string) Opener {
	return func() (Storage, error) {
		return NewFileStorage(fs, path)
	}
}

// DefaultFileOpener opens DefaultFileName under the user cache directory.
func DefaultFileOpener() Opener {
	return func() (Storage, error) {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, err
		}
		return NewFileStorage(afero.NewOsFs(), filepath.Join(dir, DefaultFileName))
	}
}

func (s *FileStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FileStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

func (s *FileStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flush()
}

func (s *FileStorage) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values), nil
}

func (s *FileStorage) Key(_ context.Context, index int) (string, bool, error) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	k, ok := keyAt(keys, index)
	return k, ok, nil
}

// flush must be called with mu held.
func (s *FileStorage) flush() error {
	data, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", s.path, err)
	}
	return nil
}
