package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/darkodi/url-diet/internal/logger"
	"github.com/darkodi/url-diet/internal/metrics"
	"github.com/darkodi/url-diet/internal/model"
	"github.com/darkodi/url-diet/internal/repository"
	"github.com/darkodi/url-diet/internal/validator"
)

// ShortenConfig holds ShortenService settings
type ShortenConfig struct {
	BaseURL      string        // e.g. "https://url.diet"
	MaxAttempts  int           // key generation attempts before giving up
	StoreTimeout time.Duration // per store call
}

// ShortenService creates links: validate, throttle, pick a free key, then
// write the lookup entry followed by the metadata row.
type ShortenService struct {
	lookup    LookupStore
	meta      MetadataStore
	limiter   RateLimiter // nil disables throttling
	keys      KeyGenerator
	validator *validator.URLValidator
	cfg       ShortenConfig
	now       func() time.Time
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func NewShortenService(
	lookup LookupStore,
	meta MetadataStore,
	limiter RateLimiter,
	keys KeyGenerator,
	cfg ShortenConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *ShortenService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &ShortenService{
		lookup:    lookup,
		meta:      meta,
		limiter:   limiter,
		keys:      keys,
		validator: validator.NewURLValidator(),
		cfg:       cfg,
		now:       time.Now,
		log:       log,
		metrics:   m,
	}
}

// Shorten assigns a key to longURL on behalf of clientID.
//
// The two writes are not transactional. If the metadata insert fails the
// lookup entry stays behind and resolves without analytics until the
// reconciliation sweep backfills its row.
func (s *ShortenService) Shorten(ctx context.Context, longURL, clientID string) (*model.ShortenResponse, error) {
	// ============ STEP 1: Validation ============
	if err := s.validator.ValidateLongURL(longURL); err != nil {
		s.metrics.Shortens.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	// ============ STEP 2: Rate limit ============
	if s.limiter != nil {
		limitCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
		allowed, err := s.limiter.Allow(limitCtx, clientID)
		cancel()
		if !allowed {
			s.metrics.Shortens.WithLabelValues(metrics.OutcomeRateLimited).Inc()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
			}
			return nil, ErrRateLimited
		}
	}

	// ============ STEP 3-4: Key + lookup entry ============
	key, err := s.claimKey(ctx, longURL)
	if err != nil {
		s.metrics.Shortens.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	// ============ STEP 5: Metadata row ============
	link := &model.Link{
		ShortKey:    key,
		LongURL:     longURL,
		CreatedAt:   s.now().Unix(),
		TotalClicks: 0,
	}

	writeCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.createLink(writeCtx, link); err != nil {
		s.metrics.Shortens.WithLabelValues(metrics.OutcomeError).Inc()
		s.log.ErrorContext(ctx, "metadata write failed after lookup write, link is orphaned",
			"key", key,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("create link %s: %w", key, err)
	}

	// ============ STEP 6: Response ============
	s.metrics.Shortens.WithLabelValues(metrics.OutcomeOK).Inc()
	s.log.InfoContext(ctx, "link created", "key", key)

	return &model.ShortenResponse{
		ShortURL: s.cfg.BaseURL + "/" + key,
		LongURL:  longURL,
		Key:      key,
	}, nil
}

// claimKey generates keys until one is written to the lookup store
// without overwriting an existing mapping.
func (s *ShortenService) claimKey(ctx context.Context, longURL string) (string, error) {
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		key, err := s.keys.Generate()
		if err != nil {
			return "", fmt.Errorf("generate key: %w", err)
		}

		putCtx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
		written, err := s.lookup.PutIfAbsent(putCtx, key, longURL)
		cancel()
		if err != nil {
			return "", fmt.Errorf("write lookup %s: %w", key, err)
		}
		if written {
			return key, nil
		}

		s.metrics.KeyCollisions.Inc()
		s.log.WarnContext(ctx, "generated key already taken", "key", key, "attempt", attempt)
	}
	return "", ErrKeyExhausted
}

// createLink inserts the row. A row that already exists for the same URL
// was backfilled by the reconciler between our two writes and counts as
// success.
func (s *ShortenService) createLink(ctx context.Context, link *model.Link) error {
	err := s.meta.Create(ctx, link)
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return err
	}

	existing, getErr := s.meta.GetByKey(ctx, link.ShortKey)
	if getErr != nil {
		return fmt.Errorf("%w (reading existing row: %v)", err, getErr)
	}
	if existing.LongURL != link.LongURL {
		return err
	}
	return nil
}
