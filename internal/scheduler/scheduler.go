package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"circular_fetcher/internal/domain"
)

// Runner executes one scrape run.
type Runner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

// Scheduler triggers pipeline runs on a cron schedule. The first run fires
// immediately on Start; overlapping runs are prevented by a guard so a slow
// run delays the next firing instead of stacking.
type Scheduler struct {
	runner  Runner
	spec    string
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

func NewScheduler(runner Runner, spec string, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		spec:    spec,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.spec, func() { s.runOnce(ctx) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	s.logger.Info("scheduler started", "schedule", s.spec)

	s.runOnce(ctx)
	c.Start()

	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")

	return ctx.Err()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous run still in progress, skipping trigger")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.runner.Run(runCtx); err != nil {
		s.logger.Error("scrape run failed", "error", err)
	}
}
