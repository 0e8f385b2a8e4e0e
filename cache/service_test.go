package cache

import (
	"context"
	"errors"
	"testing"
)

// mockCacheService for testing GetOrFetch function
type mockCacheService struct {
	result   any
	err      error
	prefixes []string
}

func (m *mockCacheService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	return m.result, m.err
}

func (m *mockCacheService) Delete(ctx context.Context, key string) error {
	return nil
}

func (m *mockCacheService) DeleteByPrefix(ctx context.Context, prefix string) error {
	m.prefixes = append(m.prefixes, prefix)
	return nil
}

func TestGetOrFetch_NilInterface(t *testing.T) {
	mock := &mockCacheService{result: nil}

	type SomeInterface interface {
		DoSomething() string
	}

	result, err := GetOrFetch[SomeInterface](context.Background(), mock, "test-key", func(ctx context.Context) (SomeInterface, error) {
		return nil, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}

	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestGetOrFetch_NilPointerNoPanic(t *testing.T) {
	mock := &mockCacheService{result: (*string)(nil)}

	result, err := GetOrFetch[*string](context.Background(), mock, "test-key", func(ctx context.Context) (*string, error) {
		return nil, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}

	if result != nil {
		t.Errorf("expected nil result but got: %v", result)
	}
}

func TestGetOrFetch_TypeAssertionFailure(t *testing.T) {
	mock := &mockCacheService{result: "wrong-type"}

	result, err := GetOrFetch[int](context.Background(), mock, "test-key", func(ctx context.Context) (int, error) {
		return 42, nil
	})

	if !errors.Is(err, ErrInvalidResultType) {
		t.Errorf("expected ErrInvalidResultType but got: %v", err)
	}

	if result != 0 {
		t.Errorf("expected zero value (0) but got: %v", result)
	}
}

func TestGetOrFetch_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	mock := &mockCacheService{err: boom}

	_, err := GetOrFetch[string](context.Background(), mock, "test-key", func(ctx context.Context) (string, error) {
		return "", nil
	})

	if !errors.Is(err, boom) {
		t.Errorf("expected boom but got: %v", err)
	}
}

func TestGetOrFetch_ValidResult(t *testing.T) {
	expectedValue := "test-value"
	mock := &mockCacheService{result: expectedValue}

	result, err := GetOrFetch[string](context.Background(), mock, "test-key", func(ctx context.Context) (string, error) {
		return expectedValue, nil
	})

	if err != nil {
		t.Errorf("expected no error but got: %v", err)
	}

	if result != expectedValue {
		t.Errorf("expected '%s' but got: '%s'", expectedValue, result)
	}
}

func TestPrefixOf(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	prefix := PrefixOf(serializer, "dq", "collection", "users")
	if prefix != "dq::collection::users::" {
		t.Fatalf("unexpected prefix %q", prefix)
	}

	key := serializer.SerializeKey("dq", "collection", "users", map[string]int{"limit": 10})
	if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		t.Errorf("key %q should start with %q", key, prefix)
	}

	other := serializer.SerializeKey("dq", "collection", "users_log", map[string]int{"limit": 10})
	if len(other) >= len(prefix) && other[:len(prefix)] == prefix {
		t.Errorf("key %q must not match prefix %q", other, prefix)
	}
}
