package matchmaking

import "time"

// SweepPolicy configures one timeout pass. A wait in [WarnAfter, WarnUntil) gets one warning
// per episode, a wait longer than Timeout is evicted.
type SweepPolicy struct {
	WarnAfter time.Duration
	WarnUntil time.Duration
	Timeout   time.Duration
}

type SweepResult struct {
	Warned  []WaitingEntry
	Evicted []WaitingEntry
}

// Sweep scans every waiting entry once. The warning band is wider than the sweep period,
// so the Warned flag is what keeps the warning from firing on every pass.
func (r *Registry) Sweep(now time.Time, policy SweepPolicy) SweepResult {
	var res SweepResult
	for _, entry := range r.WaitingEntries() {
		elapsed := now.Sub(entry.Since)
		switch {
		case elapsed > policy.Timeout:
			r.removeFromQueues(entry.User)
			delete(r.waiting, entry.User)
			res.Evicted = append(res.Evicted, entry)
		case !entry.Warned && elapsed >= policy.WarnAfter && elapsed < policy.WarnUntil:
			r.waiting[entry.User].Warned = true
			entry.Warned = true
			res.Warned = append(res.Warned, entry)
		}
	}
	return res
}
