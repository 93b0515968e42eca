package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/darkodi/url-diet/internal/kv"
	"github.com/darkodi/url-diet/internal/logger"
	"github.com/darkodi/url-diet/internal/metrics"
	"github.com/darkodi/url-diet/internal/model"
	"github.com/darkodi/url-diet/internal/validator"
)

// RequestInfo is the client context carried into analytics
type RequestInfo struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// RedirectService resolves keys on the hot path. It reads only the lookup
// store; analytics are handed to the event queue and never awaited.
type RedirectService struct {
	lookup       LookupStore
	events       EventQueue
	validator    *validator.URLValidator
	storeTimeout time.Duration
	log          *logger.Logger
	metrics      *metrics.Metrics
}

func NewRedirectService(lookup LookupStore, events EventQueue, storeTimeout time.Duration, log *logger.Logger, m *metrics.Metrics) *RedirectService {
	return &RedirectService{
		lookup:       lookup,
		events:       events,
		validator:    validator.NewURLValidator(),
		storeTimeout: storeTimeout,
		log:          log,
		metrics:      m,
	}
}

// Resolve returns the long URL for key and schedules the analytics write
func (s *RedirectService) Resolve(ctx context.Context, key string, info RequestInfo) (string, error) {
	if err := s.validator.ValidateKey(key); err != nil {
		s.metrics.Redirects.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	getCtx, cancel := withTimeout(ctx, s.storeTimeout)
	longURL, err := s.lookup.Get(getCtx, key)
	cancel()
	if errors.Is(err, kv.ErrNotFound) {
		s.metrics.Redirects.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return "", ErrNotFound
	}
	if err != nil {
		s.metrics.Redirects.WithLabelValues(metrics.OutcomeError).Inc()
		return "", fmt.Errorf("lookup %s: %w", key, err)
	}

	// Enqueue never blocks; a drop is already logged and counted by the queue.
	if err := s.events.Enqueue(model.RedirectEvent{
		ShortKey:  key,
		ClientIP:  info.ClientIP,
		UserAgent: info.UserAgent,
		Referrer:  info.Referrer,
		RequestID: logger.RequestID(ctx),
	}); err != nil {
		s.log.DebugContext(ctx, "redirect event not queued", "key", key, "error", err.Error())
	}

	s.metrics.Redirects.WithLabelValues(metrics.OutcomeOK).Inc()
	return longURL, nil
}
