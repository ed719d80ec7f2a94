package workers

import (
	"anon-chat/observability"
	"context"
	"log/slog"
	"time"
)

// HealthWorker logs a heartbeat with the session gauges and the process usage.
type HealthWorker struct {
	log      *slog.Logger
	source   observability.GaugeSource
	interval time.Duration
	read     func() (observability.ProcessStats, error)
}

func NewHealthWorker(log *slog.Logger, source observability.GaugeSource, interval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, source: source, interval: interval, read: observability.ReadProcess}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	w.log.Info("Starting health worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.beat()
		}
	}
}

func (w *HealthWorker) beat() {
	gauges := w.source.Gauges()
	attrs := []any{
		"waiting_global", gauges.WaitingGlobal,
		"waiting_topic", gauges.WaitingTopic,
		"pairs", gauges.Connections,
		"groups", gauges.Groups,
		"pending_reveals", gauges.PendingReveal,
		"maintenance", gauges.Maintenance,
	}
	p, err := w.read()
	if err != nil {
		w.log.Error("Failed to collect self stats", "err", err)
	} else {
		attrs = append(attrs, "rss_mb", p.RSSBytes>>20, "cpu", p.CPUPercent, "goroutines", p.Goroutines)
	}
	w.log.Info("Heartbeat", attrs...)
}
