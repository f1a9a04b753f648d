package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
)

// defaultInterval is the default polling interval between worker passes.
const defaultInterval = 15 * time.Second

// Worker is a unit of background work executed as repeated single passes.
// A pass must return promptly when its work for the round is done; the
// scheduler owns the waiting.
type Worker interface {
	Name() string
	RunPass(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Scheduler runs a Worker on a fixed interval until shut down.
type Scheduler struct {
	worker   Worker
	interval time.Duration

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

func New(worker Worker, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		worker:   worker,
		interval: interval,

		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (s *Scheduler) Shutdown() error {
	return s.ShutdownWithContext(context.Background())
}

func (s *Scheduler) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.ShutdownWithContext(ctx)
}

func (s *Scheduler) ShutdownWithContext(ctx context.Context) (err error) {
	s.quitOnce.Do(func() {
		close(s.quit)
		select {
		case <-s.done:
		case <-time.After(180 * time.Second):
			err = errors.Wrap(errs.Timeout, "scheduler shutdown timeout")
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "scheduler shutdown context canceled")
		}
	})
	return
}

// Run blocks, executing worker passes until Shutdown is called or the
// context is canceled. A failed pass is logged and retried on the next tick,
// it never stops the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.done)

	ctx = logger.WithContext(ctx,
		slog.String("package", "scheduler"),
		slog.String("worker", s.worker.Name()),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			logger.InfoContext(ctx, "Got quit signal, stopping worker")
			if err := s.worker.Shutdown(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown worker", slogx.Error(err))
				return errors.Wrap(err, "worker shutdown failed")
			}
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			start := time.Now()
			if err := s.worker.RunPass(ctx); err != nil {
				logger.ErrorContext(ctx, "Worker pass failed", slogx.Error(err))
				continue
			}
			logger.DebugContext(ctx, "Worker pass completed", slogx.Duration("duration", time.Since(start)))
		}
	}
}
