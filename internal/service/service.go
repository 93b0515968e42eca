// Package service holds the shorten and redirect orchestration.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/darkodi/url-diet/internal/model"
)

// Errors returned by the services. Anything else is an internal error.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrNotFound     = errors.New("short URL not found")
	ErrKeyExhausted = errors.New("no free key after max attempts")
)

// LookupStore is the key → long URL mapping read on the redirect hot path
type LookupStore interface {
	PutIfAbsent(ctx context.Context, key, longURL string) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Scan(ctx context.Context, fn func(key, longURL string) error) error
}

// MetadataStore holds link rows
type MetadataStore interface {
	Create(ctx context.Context, link *model.Link) error
	EnsureLink(ctx context.Context, link *model.Link) (bool, error)
	GetByKey(ctx context.Context, key string) (*model.Link, error)
}

// RateLimiter bounds shorten requests per client
type RateLimiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}

// KeyGenerator produces candidate short keys
type KeyGenerator interface {
	Generate() (string, error)
}

// EventQueue accepts redirect events for detached processing
type EventQueue interface {
	Enqueue(ev model.RedirectEvent) error
}

// withTimeout bounds a single store call. Zero means no bound.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
