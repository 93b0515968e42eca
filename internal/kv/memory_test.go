package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.PutIfAbsent(ctx, "abc12345", "https://example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second write with the same key must not overwrite
	ok, err = s.PutIfAbsent(ctx, "abc12345", "https://other.com")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Get(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nope0000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Scan(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, k := range []string{"ccc", "aaa", "bbb"} {
		_, err := s.PutIfAbsent(ctx, k, "https://"+k+".example")
		require.NoError(t, err)
	}

	var seen []string
	err := s.Scan(ctx, func(key, longURL string) error {
		seen = append(seen, key)
		assert.Equal(t, "https://"+key+".example", longURL)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, seen)

	stop := errors.New("stop")
	calls := 0
	err = s.Scan(ctx, func(string, string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
