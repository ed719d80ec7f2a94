package workers

import (
	"anon-chat/observability"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedGauges struct {
	reads atomic.Int32
}

func (g *fixedGauges) Gauges() observability.Gauges {
	g.reads.Add(1)
	return observability.Gauges{WaitingGlobal: 2, Connections: 1}
}

func TestHealthWorker_LogsHeartbeat(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	worker := NewHealthWorker(log, &fixedGauges{}, time.Minute)
	worker.read = func() (observability.ProcessStats, error) {
		return observability.ProcessStats{RSSBytes: 64 << 20, Goroutines: 12}, nil
	}

	// When one beat happens
	worker.beat()

	// Then gauges and process usage are in the same line
	line := buf.String()
	req.Contains(line, "msg=Heartbeat")
	req.Contains(line, "waiting_global=2")
	req.Contains(line, "pairs=1")
	req.Contains(line, "rss_mb=64")
	req.Contains(line, "goroutines=12")
}

func TestHealthWorker_KeepsBeatingWithoutProcessStats(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	source := &fixedGauges{}
	worker := NewHealthWorker(log, source, 5*time.Millisecond)
	worker.read = func() (observability.ProcessStats, error) {
		return observability.ProcessStats{}, fmt.Errorf("process not found")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool { return source.reads.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	req.ErrorIs(<-done, context.Canceled)
}
