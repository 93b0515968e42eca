package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/url-diet/internal/logger"
	"github.com/darkodi/url-diet/internal/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestLimiter(t *testing.T, limit int64, start time.Time) (*Limiter, *MemoryCounter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: start}
	counter := NewMemoryCounter(0).WithClock(clock.Now)
	t.Cleanup(counter.Close)
	l := New(counter, Config{Limit: limit}, logger.Discard(), metrics.New()).WithClock(clock.Now)
	return l, counter, clock
}

func TestBucketKey(t *testing.T) {
	tests := []struct {
		name     string
		client   string
		at       time.Time
		expected string
	}{
		{"utc hour", "1.2.3.4", time.Date(2026, 3, 7, 9, 59, 59, 0, time.UTC), "rate:1.2.3.4:2026-3-7-9"},
		{"next hour", "1.2.3.4", time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC), "rate:1.2.3.4:2026-3-7-10"},
		{"converted to utc", "::1", time.Date(2026, 1, 1, 1, 30, 0, 0, time.FixedZone("UTC+2", 2*3600)), "rate:::1:2025-12-31-23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BucketKey(tt.client, tt.at))
		})
	}
}

func TestAllow_HourlyLimitAndBoundary(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC)
	l, counter, clock := newTestLimiter(t, 60, start)

	for i := 1; i <= 60; i++ {
		ok, err := l.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		require.True(t, ok, "request %d should be allowed", i)
		clock.Set(start.Add(time.Duration(i) * time.Minute / 2))
	}

	ok, err := l.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, ok, "61st request in the same bucket must be rejected")

	// A rejected request does not push the counter past the limit
	assert.Equal(t, int64(60), counter.Count(BucketKey("203.0.113.7", clock.Now())))

	// Other clients have their own bucket
	ok, err = l.Allow(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Next calendar hour starts a fresh bucket
	clock.Set(start.Add(time.Hour))
	ok, err = l.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, ok)

	decisions := l.metrics.RateLimitDecisions
	assert.Equal(t, 62.0, testutil.ToFloat64(decisions.WithLabelValues(metrics.DecisionAllowed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(decisions.WithLabelValues(metrics.DecisionDenied)))
}

func TestAllow_EmptyIdentitySharesUnknownBucket(t *testing.T) {
	ctx := context.Background()
	l, counter, clock := newTestLimiter(t, 2, time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC))

	ok, _ := l.Allow(ctx, "")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, UnknownClient)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "")
	assert.False(t, ok)

	assert.Equal(t, int64(2), counter.Count(BucketKey(UnknownClient, clock.Now())))
}

type brokenCounter struct{}

func (brokenCounter) Acquire(context.Context, string, int64, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestAllow_StoreFailure(t *testing.T) {
	ctx := context.Background()

	m := metrics.New()

	closed := New(brokenCounter{}, Config{Limit: 60}, logger.Discard(), m)
	ok, err := closed.Allow(ctx, "1.2.3.4")
	assert.Error(t, err)
	assert.False(t, ok, "default policy fails closed")

	open := New(brokenCounter{}, Config{Limit: 60, FailOpen: true}, logger.Discard(), m)
	ok, err = open.Allow(ctx, "1.2.3.4")
	assert.Error(t, err)
	assert.True(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitDecisions.WithLabelValues(metrics.DecisionErrorDenied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitDecisions.WithLabelValues(metrics.DecisionErrorAllowed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RateLimitDecisions.WithLabelValues(metrics.DecisionAllowed)))
}

func TestMemoryCounter_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC)}
	c := NewMemoryCounter(0).WithClock(clock.Now)
	defer c.Close()

	ok, err := c.Acquire(ctx, "k", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.Acquire(ctx, "k", 1, time.Hour)
	assert.False(t, ok)

	clock.Set(clock.Now().Add(time.Hour))
	assert.Equal(t, int64(0), c.Count("k"))
	ok, _ = c.Acquire(ctx, "k", 1, time.Hour)
	assert.True(t, ok)
}

func TestMemoryCounter_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCounter(time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := c.Acquire(ctx, "shared", 60, time.Hour); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 60, allowed)
}
