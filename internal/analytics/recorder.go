// Package analytics records redirect events off the response path.
//
// The redirect handler enqueues an event and returns immediately; a fixed
// pool of workers hashes the client address and writes the log entry and
// click counters to the metadata store. Failures are logged and counted,
// never reported to the client.
package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/darkodi/url-diet/internal/logger"
	"github.com/darkodi/url-diet/internal/metrics"
	"github.com/darkodi/url-diet/internal/model"
)

// ErrClosed is returned by Enqueue after Close
var ErrClosed = errors.New("analytics recorder closed")

// ErrQueueFull is returned by Enqueue when the event was dropped
var ErrQueueFull = errors.New("analytics queue full")

// Sink persists one redirect as a single batch
type Sink interface {
	RecordRedirect(ctx context.Context, entry *model.RedirectLogEntry) error
}

// Config holds recorder settings
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // per event store timeout
}

// Recorder is a bounded worker pool for redirect events
type Recorder struct {
	sink    Sink
	events  chan model.RedirectEvent
	timeout time.Duration
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder starts cfg.Workers goroutines reading from the queue
func NewRecorder(sink Sink, cfg Config, log *logger.Logger, m *metrics.Metrics) *Recorder {
	r := &Recorder{
		sink:    sink,
		events:  make(chan model.RedirectEvent, cfg.QueueSize),
		timeout: cfg.Timeout,
		now:     time.Now,
		log:     log,
		metrics: m,
	}

	log.Info("starting analytics workers", "workers", cfg.Workers, "queue_size", cfg.QueueSize)
	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return r
}

// Enqueue hands ev to the workers without blocking
func (r *Recorder) Enqueue(ev model.RedirectEvent) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrClosed
	}

	select {
	case r.events <- ev:
		return nil
	default:
		r.metrics.AnalyticsEvents.WithLabelValues(metrics.OutcomeDropped).Inc()
		r.log.Warn("analytics queue full, dropping redirect event",
			"key", ev.ShortKey,
			"request_id", ev.RequestID,
		)
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be written or
// for ctx to expire.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) worker(id int) {
	defer r.wg.Done()
	for ev := range r.events {
		r.record(id, ev)
	}
}

func (r *Recorder) record(workerID int, ev model.RedirectEvent) {
	// Detached from the request: the response has usually been sent already.
	ctx := logger.WithRequestID(context.Background(), ev.RequestID)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	entry := &model.RedirectLogEntry{
		ShortKey:  ev.ShortKey,
		Timestamp: r.now().Unix(),
		IPHash:    HashIP(ev.ClientIP),
		UserAgent: ev.UserAgent,
		Referrer:  ev.Referrer,
	}

	if err := r.sink.RecordRedirect(ctx, entry); err != nil {
		r.metrics.AnalyticsEvents.WithLabelValues(metrics.OutcomeError).Inc()
		r.log.ErrorContext(ctx, "failed to record redirect",
			"worker", workerID,
			"key", ev.ShortKey,
			"error", err.Error(),
		)
		return
	}

	r.metrics.AnalyticsEvents.WithLabelValues(metrics.OutcomeOK).Inc()
	r.log.DebugContext(ctx, "redirect recorded", "worker", workerID, "key", ev.ShortKey)
}
