// Package observability keeps the bot statistics shown to admins and exported to Prometheus.
package observability

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "anonchat"

// Stats are cumulative counters since the process started.
type Stats struct {
	startedAt        time.Time
	totalMessages    atomic.Uint64
	connectionsMade  atomic.Uint64
	groupsCreated    atomic.Uint64
	timeouts         atomic.Uint64
	uniqueUsers      atomic.Uint64
	broadcastsSent   atomic.Uint64
	broadcastsFailed atomic.Uint64
	deliveryFailures atomic.Uint64
}

func NewStats(now time.Time) *Stats {
	return &Stats{startedAt: now}
}

func (s *Stats) IncrMessages()         { s.totalMessages.Add(1) }
func (s *Stats) IncrConnections()      { s.connectionsMade.Add(1) }
func (s *Stats) IncrGroupsCreated()    { s.groupsCreated.Add(1) }
func (s *Stats) IncrTimeouts(n int)    { s.timeouts.Add(uint64(n)) }
func (s *Stats) IncrUniqueUsers()      { s.uniqueUsers.Add(1) }
func (s *Stats) IncrDeliveryFailures() { s.deliveryFailures.Add(1) }

func (s *Stats) AddBroadcast(sent, failed int) {
	s.broadcastsSent.Add(uint64(sent))
	s.broadcastsFailed.Add(uint64(failed))
}

type Snapshot struct {
	StartedAt        time.Time
	TotalMessages    uint64
	ConnectionsMade  uint64
	GroupsCreated    uint64
	Timeouts         uint64
	UniqueUsers      uint64
	BroadcastsSent   uint64
	BroadcastsFailed uint64
	DeliveryFailures uint64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		StartedAt:        s.startedAt,
		TotalMessages:    s.totalMessages.Load(),
		ConnectionsMade:  s.connectionsMade.Load(),
		GroupsCreated:    s.groupsCreated.Load(),
		Timeouts:         s.timeouts.Load(),
		UniqueUsers:      s.uniqueUsers.Load(),
		BroadcastsSent:   s.broadcastsSent.Load(),
		BroadcastsFailed: s.broadcastsFailed.Load(),
		DeliveryFailures: s.deliveryFailures.Load(),
	}
}

// Gauges is the instantaneous size of the session state.
type Gauges struct {
	WaitingGlobal int
	WaitingTopic  int
	Connections   int
	Groups        int
	Banned        int
	PendingReveal int
	Maintenance   bool
}

// GaugeSource is read on every scrape, so it has to be safe for concurrent use.
type GaugeSource interface {
	Gauges() Gauges
}

// Register exposes the counters and the gauges of source on reg.
func (s *Stats) Register(reg prometheus.Registerer, source GaugeSource) error {
	counters := map[string]struct {
		help string
		v    *atomic.Uint64
	}{
		"messages_total":          {"Messages relayed to a partner or a group", &s.totalMessages},
		"connections_total":       {"One-on-one connections made", &s.connectionsMade},
		"groups_created_total":    {"Groups created", &s.groupsCreated},
		"timeouts_total":          {"Users evicted from a waiting queue", &s.timeouts},
		"unique_users_total":      {"Distinct users seen since start", &s.uniqueUsers},
		"broadcasts_sent_total":   {"Broadcast messages delivered", &s.broadcastsSent},
		"broadcasts_failed_total": {"Broadcast messages that could not be delivered", &s.broadcastsFailed},
		"delivery_failures_total": {"Notifications the transport could not deliver", &s.deliveryFailures},
	}
	var collectors []prometheus.Collector
	for name, c := range counters {
		v := c.v
		collectors = append(collectors, prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: namespace, Name: name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}

	gauges := map[string]struct {
		help string
		read func(Gauges) int
	}{
		"waiting_global": {"Users waiting in the global queue", func(g Gauges) int { return g.WaitingGlobal }},
		"waiting_topic":  {"Users waiting in a topic queue", func(g Gauges) int { return g.WaitingTopic }},
		"connections":    {"Active one-on-one connections", func(g Gauges) int { return g.Connections }},
		"groups":         {"Live groups", func(g Gauges) int { return g.Groups }},
		"banned_users":   {"Banned users", func(g Gauges) int { return g.Banned }},
		"pending_reveal": {"Pending identity reveal requests", func(g Gauges) int { return g.PendingReveal }},
		"maintenance": {"1 while maintenance mode is enabled", func(g Gauges) int {
			if g.Maintenance {
				return 1
			}
			return 0
		}},
	}
	for name, g := range gauges {
		read := g.read
		collectors = append(collectors, prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: g.help},
			func() float64 { return float64(read(source.Gauges())) },
		))
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
