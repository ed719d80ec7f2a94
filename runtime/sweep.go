package runtime

import (
	"anon-chat/domain"
	"anon-chat/domain/event"
	"anon-chat/matchmaking"
	"context"
)

const (
	SuggestDifferentTime = "Try again at a different time"
	SuggestSwitchMode    = "Switch to another chat mode"
	SuggestPopularTopic  = "Try a more popular topic"
)

type SweepReport struct {
	Warned   int
	Evicted  int
	Expired  int
	Failures int
}

// Sweep runs one timeout pass: it warns long waits once, evicts the waits past the connection
// timeout and expires unanswered reveal requests.
func (o *Orchestrator) Sweep(ctx context.Context) SweepReport {
	var report SweepReport

	o.mu.Lock()
	now := o.now()
	out := &outbox{at: now}
	res := o.state.Matches.Sweep(now, matchmaking.SweepPolicy{
		WarnAfter: o.cfg.WarnAfter,
		WarnUntil: o.cfg.WarnUntil,
		Timeout:   o.state.Settings.ConnectionTimeoutDuration(),
	})
	for _, entry := range res.Warned {
		out.add(entry.User, event.TimeoutWarningPayload{
			Elapsed: now.Sub(entry.Since),
			Mode:    entry.Mode,
			Topic:   entry.Topic,
		})
	}
	for _, entry := range res.Evicted {
		out.add(entry.User, event.TimeoutEvictedPayload{
			Waited:      now.Sub(entry.Since),
			Mode:        entry.Mode,
			Topic:       entry.Topic,
			Suggestions: suggestions(entry.Mode),
		})
	}
	expired := o.state.Reveals.Expire(now, o.state.Settings.RevealTimeoutDuration())
	for _, r := range expired {
		out.add(r.RequesterID, event.RevealResolvedPayload{Expired: true})
	}
	o.mu.Unlock()

	if len(res.Evicted) > 0 {
		o.stats.IncrTimeouts(len(res.Evicted))
		o.log.Info("Waiting users timed out", "count", len(res.Evicted))
	}
	d := o.deliver(ctx, out.notes)
	report.Warned, report.Evicted, report.Expired = len(res.Warned), len(res.Evicted), len(expired)
	report.Failures = d.failed
	return report
}

func suggestions(mode domain.ChatMode) []string {
	s := []string{SuggestDifferentTime, SuggestSwitchMode}
	if mode == domain.ModeTopic {
		s = append(s, SuggestPopularTopic)
	}
	return s
}
