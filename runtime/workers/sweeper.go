package workers

import (
	"anon-chat/runtime"
	"context"
	"log/slog"
	"time"
)

// Sweeper is the subset of the orchestrator driven on every tick.
type Sweeper interface {
	Sweep(ctx context.Context) runtime.SweepReport
}

// SweepWorker runs the timeout pass on a fixed period.
type SweepWorker struct {
	log      *slog.Logger
	sweeper  Sweeper
	interval time.Duration
}

func NewSweepWorker(log *slog.Logger, sweeper Sweeper, interval time.Duration) *SweepWorker {
	return &SweepWorker{log: log, sweeper: sweeper, interval: interval}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info("Starting sweep worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report := w.sweeper.Sweep(ctx)
			if report.Warned+report.Evicted+report.Expired > 0 {
				w.log.Debug("Sweep done",
					"warned", report.Warned,
					"evicted", report.Evicted,
					"expired_reveals", report.Expired,
					"delivery_failures", report.Failures)
			}
		}
	}
}
