// Package ratelimit bounds shorten requests per client per calendar hour.
//
// Counters live in a shared store (Redis in production) keyed by client and
// UTC hour bucket, so every instance sees the same count. Buckets are
// wall-clock aligned: a client can burst up to twice the limit across an
// hour boundary.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/darkodi/url-diet/internal/logger"
	"github.com/darkodi/url-diet/internal/metrics"
)

// UnknownClient is the shared identity for requests without a client address
const UnknownClient = "unknown"

// Window is the bucket width and the counter lifetime
const Window = time.Hour

// Counter is an external atomic counter store
type Counter interface {
	// Acquire increments the counter at key if it is below limit and reports
	// whether it did. A new counter expires ttl after creation.
	Acquire(ctx context.Context, key string, limit int64, ttl time.Duration) (bool, error)
}

// Config holds limiter settings
type Config struct {
	Limit    int64 // requests per client per bucket
	FailOpen bool  // allow requests when the counter store errors
}

// Limiter decides whether a client may shorten another URL
type Limiter struct {
	counter  Counter
	limit    int64
	failOpen bool
	now      func() time.Time
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// New creates a Limiter over counter
func New(counter Counter, cfg Config, log *logger.Logger, m *metrics.Metrics) *Limiter {
	return &Limiter{
		counter:  counter,
		limit:    cfg.Limit,
		failOpen: cfg.FailOpen,
		now:      time.Now,
		log:      log,
		metrics:  m,
	}
}

// WithClock replaces the time source
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow consumes one request from the client's current bucket.
// A denied request does not increment the counter. When the store fails the
// error is returned alongside the fail-open/closed decision.
func (l *Limiter) Allow(ctx context.Context, clientID string) (bool, error) {
	if clientID == "" {
		clientID = UnknownClient
	}
	key := BucketKey(clientID, l.now())

	ok, err := l.counter.Acquire(ctx, key, l.limit, Window)
	if err != nil {
		l.log.WarnContext(ctx, "rate limiter store failed",
			"client", clientID,
			"fail_open", l.failOpen,
			"error", err.Error(),
		)
		if l.failOpen {
			l.record(metrics.DecisionErrorAllowed)
		} else {
			l.record(metrics.DecisionErrorDenied)
		}
		return l.failOpen, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		l.record(metrics.DecisionDenied)
		l.log.InfoContext(ctx, "rate limit exceeded", "client", clientID, "limit", l.limit)
		return false, nil
	}
	l.record(metrics.DecisionAllowed)
	return true, nil
}

func (l *Limiter) record(decision string) {
	l.metrics.RateLimitDecisions.WithLabelValues(decision).Inc()
}

// BucketKey names the counter for clientID in the UTC hour containing t
func BucketKey(clientID string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("rate:%s:%d-%d-%d-%d", clientID, t.Year(), int(t.Month()), t.Day(), t.Hour())
}
