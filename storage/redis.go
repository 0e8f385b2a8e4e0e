package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisNamespace prefixes every key RedisStorage writes.
const DefaultRedisNamespace = "docquery:"

// RedisStorage stores values as plain Redis strings under a namespace, so
// several processes share read statistics.
type RedisStorage struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisStorage wraps client. An empty namespace uses DefaultRedisNamespace.
func NewRedisStorage(client redis.UniversalClient, namespace string) *RedisStorage {
	if namespace == "" {
		namespace = DefaultRedisNamespace
	}
	return &RedisStorage{client: client, namespace: namespace}
}

// RedisOpener returns an Opener that pings the server before handing the
// adapter out.
func RedisOpener(client redis.UniversalClient, namespace string) Opener {
	return func() (Storage, error) {
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		return NewRedisStorage(client, namespace), nil
	}
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.namespace+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.namespace+key, value, 0).Err()
}

func (r *RedisStorage) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.namespace+key).Err()
}

func (r *RedisStorage) Len(ctx context.Context) (int, error) {
	keys, err := r.keys(ctx)
	return len(keys), err
}

func (r *RedisStorage) Key(ctx context.Context, index int) (string, bool, error) {
	keys, err := r.keys(ctx)
	if err != nil {
		return "", false, err
	}
	k, ok := keyAt(keys, index)
	return k, ok, nil
}

func (r *RedisStorage) keys(ctx context.Context) ([]string, error) {
	var keys []string
	seen := map[string]struct{}{}
	// SCAN may report a key more than once
	iter := r.client.Scan(ctx, 0, r.namespace+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := strings.TrimPrefix(iter.Val(), r.namespace)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
