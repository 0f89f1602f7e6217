package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circular_fetcher/internal/domain"
)

type fakeRunner struct {
	mu    sync.Mutex
	runs  int
	delay time.Duration
}

func (r *fakeRunner) Run(ctx context.Context) (*domain.RunReport, error) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
		}
	}
	return &domain.RunReport{}, nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStart_RunsImmediately(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, "@every 1h", time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return runner.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestStart_FiresOnSchedule(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, "@every 100ms", time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return runner.count() >= 3 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestStart_InvalidScheduleRejected(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, "not a schedule", time.Minute, testLogger())

	err := s.Start(context.Background())
	assert.Error(t, err)
}
