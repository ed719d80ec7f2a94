package observability

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fixedGauges Gauges

func (f fixedGauges) Gauges() Gauges { return Gauges(f) }

func TestStats_Snapshot(t *testing.T) {
	req := require.New(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := NewStats(start)

	stats.IncrMessages()
	stats.IncrMessages()
	stats.IncrConnections()
	stats.IncrTimeouts(3)
	stats.AddBroadcast(5, 1)

	snapshot := stats.Snapshot()
	req.Equal(start, snapshot.StartedAt)
	req.Equal(uint64(2), snapshot.TotalMessages)
	req.Equal(uint64(1), snapshot.ConnectionsMade)
	req.Equal(uint64(3), snapshot.Timeouts)
	req.Equal(uint64(5), snapshot.BroadcastsSent)
	req.Equal(uint64(1), snapshot.BroadcastsFailed)
}

func TestStats_Register(t *testing.T) {
	req := require.New(t)
	registry := prometheus.NewRegistry()
	stats := NewStats(time.Now())
	stats.IncrGroupsCreated()

	req.NoError(stats.Register(registry, fixedGauges{WaitingGlobal: 2, Connections: 1, Maintenance: true}))

	expected := `
		# HELP anonchat_groups_created_total Groups created
		# TYPE anonchat_groups_created_total counter
		anonchat_groups_created_total 1
		# HELP anonchat_maintenance 1 while maintenance mode is enabled
		# TYPE anonchat_maintenance gauge
		anonchat_maintenance 1
		# HELP anonchat_waiting_global Users waiting in the global queue
		# TYPE anonchat_waiting_global gauge
		anonchat_waiting_global 2
	`
	req.NoError(testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"anonchat_groups_created_total", "anonchat_maintenance", "anonchat_waiting_global"))

	// Registering twice on the same registry fails
	req.Error(stats.Register(registry, fixedGauges{}))
}

func TestReadProcess(t *testing.T) {
	req := require.New(t)

	p, err := ReadProcess()

	req.NoError(err)
	req.Positive(p.PID)
	req.Positive(p.Goroutines)
}
