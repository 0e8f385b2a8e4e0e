package storage

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStorage keeps values in a concurrent map. Contents are lost on exit.
type MemoryStorage struct {
	values *xsync.MapOf[string, string]
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: xsync.NewMapOf[string, string]()}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values.Load(key)
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.values.Store(key, value)
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.values.Delete(key)
	return nil
}

func (m *MemoryStorage) Len(_ context.Context) (int, error) {
	return m.values.Size(), nil
}

func (m *MemoryStorage) Key(_ context.Context, index int) (string, bool, error) {
	keys := make([]string, 0, m.values.Size())
	m.values.Range(func(k, _ string) bool {
		keys = append(keys, k)
		return true
	})
	k, ok := keyAt(keys, index)
	return k, ok, nil
}
