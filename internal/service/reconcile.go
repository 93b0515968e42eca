package service

import (
	"context"
	"fmt"
	"time"

	"github.com/darkodi/url-diet/internal/logger"
	"github.com/darkodi/url-diet/internal/metrics"
	"github.com/darkodi/url-diet/internal/model"
)

// Reconciler backfills link rows for lookup entries whose metadata write
// failed. Each pass is idempotent.
type Reconciler struct {
	lookup       LookupStore
	meta         MetadataStore
	storeTimeout time.Duration
	now          func() time.Time
	log          *logger.Logger
	metrics      *metrics.Metrics
}

func NewReconciler(lookup LookupStore, meta MetadataStore, storeTimeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		lookup:       lookup,
		meta:         meta,
		storeTimeout: storeTimeout,
		now:          time.Now,
		log:          log,
		metrics:      m,
	}
}

// RunOnce scans the lookup store and returns how many rows it inserted
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	backfilled := 0
	err := r.lookup.Scan(ctx, func(key, longURL string) error {
		insertCtx, cancel := withTimeout(ctx, r.storeTimeout)
		defer cancel()

		inserted, err := r.meta.EnsureLink(insertCtx, &model.Link{
			ShortKey:  key,
			LongURL:   longURL,
			CreatedAt: r.now().Unix(),
		})
		if err != nil {
			return fmt.Errorf("backfill %s: %w", key, err)
		}
		if inserted {
			backfilled++
			r.metrics.Reconciled.Inc()
			r.log.WarnContext(ctx, "backfilled orphaned link", "key", key)
		}
		return nil
	})
	return backfilled, err
}

// Run calls RunOnce every interval until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if err != nil {
				r.log.Error("reconciliation pass failed", "backfilled", n, "error", err.Error())
				continue
			}
			r.log.Debug("reconciliation pass finished", "backfilled", n)
		}
	}
}
