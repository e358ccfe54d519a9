package notification

import (
	"context"
	"fmt"
	"time"

	"bookingdesk/internal/domain"
	"bookingdesk/internal/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const maxBackoff = time.Hour

var (
	outboxSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookingdesk_outbox_sent_total",
		Help: "Outbox notifications delivered to the mail transport",
	})
	outboxRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookingdesk_outbox_retry_total",
		Help: "Outbox notifications rescheduled after a failed attempt",
	})
	outboxDead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookingdesk_outbox_dead_total",
		Help: "Outbox notifications abandoned after the last attempt",
	})
)

// OutboxStore is the queue side of the persistence gateway.
type OutboxStore interface {
	FetchDue(ctx context.Context, limit int, now time.Time) ([]domain.OutboxEvent, error)
	MarkSent(ctx context.Context, ids []string) error
	MarkRetry(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastErr string) error
	MarkDead(ctx context.Context, id string, attempts int, lastErr string) error
	ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, ev domain.OutboxEvent) error
}

type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
	SendTimeout  time.Duration
	StaleAfter   time.Duration
}

// Worker polls the outbox and hands due events to the dispatcher.
type Worker struct {
	store     OutboxStore
	deliverer Deliverer
	cfg       WorkerConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewWorker(store OutboxStore, deliverer Deliverer, cfg WorkerConfig, log *zap.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 5 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Worker{
		store:     store,
		deliverer: deliverer,
		cfg:       cfg,
		log:       logger.OrNop(log),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.log.Info("outbox worker started",
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Int("batch_size", w.cfg.BatchSize),
	)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("outbox worker stopped")
			return nil
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.log.Error("outbox batch failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch releases stale claims, then claims and delivers one batch.
// It returns the number of events claimed.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	now := w.now()

	if w.cfg.StaleAfter > 0 {
		n, err := w.store.ReleaseStale(ctx, now.Add(-w.cfg.StaleAfter))
		if err != nil {
			return 0, err
		}
		if n > 0 {
			w.log.Warn("released stale outbox claims", zap.Int64("count", n))
		}
	}

	events, err := w.store.FetchDue(ctx, w.cfg.BatchSize, now)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	var sent []string
	for _, ev := range events {
		sendCtx, cancel := context.WithTimeout(ctx, w.cfg.SendTimeout)
		err := w.deliverer.Deliver(sendCtx, ev)
		cancel()

		if err == nil {
			sent = append(sent, ev.ID)
			continue
		}
		w.fail(ctx, ev, err)
	}

	if len(sent) > 0 {
		if err := w.store.MarkSent(ctx, sent); err != nil {
			return len(events), fmt.Errorf("mark %d events sent: %w", len(sent), err)
		}
		outboxSent.Add(float64(len(sent)))
	}
	return len(events), nil
}

func (w *Worker) fail(ctx context.Context, ev domain.OutboxEvent, cause error) {
	attempts := ev.Attempts + 1
	fields := []zap.Field{
		zap.String("event_id", ev.ID),
		zap.String("booking_id", ev.BookingID),
		zap.String("event_type", string(ev.Type)),
		zap.Int("attempt", attempts),
		zap.Error(cause),
	}

	if attempts >= w.cfg.MaxAttempts {
		if err := w.store.MarkDead(ctx, ev.ID, attempts, cause.Error()); err != nil {
			w.log.Error("mark outbox event dead", append(fields, zap.NamedError("store_error", err))...)
			return
		}
		outboxDead.Inc()
		w.log.Error("notification abandoned", fields...)
		return
	}

	next := w.now().Add(Backoff(w.cfg.BaseBackoff, attempts))
	if err := w.store.MarkRetry(ctx, ev.ID, attempts, next, cause.Error()); err != nil {
		w.log.Error("reschedule outbox event", append(fields, zap.NamedError("store_error", err))...)
		return
	}
	outboxRetried.Inc()
	w.log.Warn("notification failed, will retry", append(fields, zap.Time("next_attempt_at", next))...)
}

// Backoff returns base * 2^(attempts-1), capped at one hour.
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
