package workers

import (
	"anon-chat/runtime"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(context.Context) runtime.SweepReport {
	s.calls.Add(1)
	return runtime.SweepReport{Evicted: 1}
}

func TestSweepWorker_TicksUntilCanceled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sweeper := &countingSweeper{}
	worker := NewSweepWorker(log, sweeper, 10*time.Millisecond)

	// Given a running worker
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// When a few ticks went by
	req.Eventually(func() bool { return sweeper.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	// Then the worker stops with the context error
	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(500 * time.Millisecond):
		req.Fail("sweep worker should have stopped")
	}
}
