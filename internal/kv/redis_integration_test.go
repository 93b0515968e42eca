//go:build integration

package kv

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client)
}

func TestRedisStore_PutIfAbsentAndGet(t *testing.T) {
	ctx := context.Background()
	store := setupRedisStore(t)

	ok, err := store.PutIfAbsent(ctx, "abcd1234", "https://example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.PutIfAbsent(ctx, "abcd1234", "https://other.example")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)

	_, err = store.Get(ctx, "missing0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	store := setupRedisStore(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.PutIfAbsent(ctx, "contend0", "https://example.com")
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestRedisStore_Scan(t *testing.T) {
	ctx := context.Background()
	store := setupRedisStore(t)

	want := map[string]string{
		"aaaaaaaa": "https://a.example",
		"bbbbbbbb": "https://b.example",
		"cccccccc": "https://c.example",
	}
	for k, v := range want {
		_, err := store.PutIfAbsent(ctx, k, v)
		require.NoError(t, err)
	}

	// Keys outside the url: namespace are ignored
	require.NoError(t, store.client.Set(ctx, "rate:1.2.3.4:2024-1-1-0", 1, 0).Err())

	got := make(map[string]string)
	require.NoError(t, store.Scan(ctx, func(key, longURL string) error {
		got[key] = longURL
		return nil
	}))
	assert.Equal(t, want, got)
}
