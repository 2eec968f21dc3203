// Package worker hosts the background jobs of the booking engine.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/unnisamohammad/cinehub-backend/internal/metrics"
	"github.com/unnisamohammad/cinehub-backend/internal/service"
	"github.com/unnisamohammad/cinehub-backend/pkg/logger"
	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

// ExpiryWorkerConfig contains configuration for the expiry worker
type ExpiryWorkerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultExpiryWorkerConfig returns the standard sweep cadence
func DefaultExpiryWorkerConfig() *ExpiryWorkerConfig {
	return &ExpiryWorkerConfig{
		Interval:  time.Minute,
		BatchSize: 100,
	}
}

// ExpiryWorker periodically sweeps PENDING bookings whose hold window has
// passed, transitioning them to EXPIRED and releasing their seats. The sweep
// is a safety net behind the lock TTL: the locks self-expire either way, but
// the booking rows need an explicit transition.
type ExpiryWorker struct {
	bookingService service.BookingService
	scheduler      gocron.Scheduler
	interval       time.Duration
	batchSize      int
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(bookingService service.BookingService, cfg *ExpiryWorkerConfig) (*ExpiryWorker, error) {
	if cfg == nil {
		cfg = DefaultExpiryWorkerConfig()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &ExpiryWorker{
		bookingService: bookingService,
		scheduler:      scheduler,
		interval:       interval,
		batchSize:      batchSize,
	}, nil
}

// Start schedules the periodic sweep and runs it until Stop is called
func (w *ExpiryWorker) Start() error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.sweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}

	w.scheduler.Start()
	logger.Get().Info("expiry worker started",
		zap.Duration("interval", w.interval),
		zap.Int("batch_size", w.batchSize))
	return nil
}

// Stop shuts down the scheduler, waiting for a running sweep to finish
func (w *ExpiryWorker) Stop() error {
	if err := w.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down expiry worker: %w", err)
	}
	logger.Get().Info("expiry worker stopped")
	return nil
}

// Sweep runs one expiry pass immediately. Exposed for operational tooling
// and tests; the scheduler calls it on every tick.
func (w *ExpiryWorker) Sweep(ctx context.Context) (int, error) {
	return w.bookingService.ExpireDueBookings(ctx, w.batchSize)
}

func (w *ExpiryWorker) sweep() {
	ctx, span := telemetry.StartSpan(context.Background(), "worker.expiry.sweep")
	defer span.End()

	start := time.Now()
	if _, err := w.Sweep(ctx); err != nil {
		telemetry.SetSpanError(ctx, err)
		logger.Get().Error("expiry sweep failed", zap.Error(err))
	}
	metrics.SweepDuration.Record(ctx, time.Since(start).Seconds())
}
