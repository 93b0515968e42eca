package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/darkodi/url-diet/internal/model"
	"github.com/darkodi/url-diet/internal/repository"
)

// StatsService reads link metadata
type StatsService struct {
	meta         MetadataStore
	storeTimeout time.Duration
}

func NewStatsService(meta MetadataStore, storeTimeout time.Duration) *StatsService {
	return &StatsService{meta: meta, storeTimeout: storeTimeout}
}

// Link returns the metadata row for key
func (s *StatsService) Link(ctx context.Context, key string) (*model.Link, error) {
	if key == "" {
		return nil, ErrInvalidInput
	}

	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	link, err := s.meta.GetByKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get link %s: %w", key, err)
	}
	return link, nil
}
