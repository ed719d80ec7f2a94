// Package runtime composes the registries into the session operations and serializes them.
// It owns no business rule of its own beyond the ordering of cascades.
package runtime

import (
	"anon-chat/contract"
	"anon-chat/domain"
	"anon-chat/domain/event"
	"anon-chat/errors"
	"anon-chat/observability"
	"anon-chat/repositories"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultSearchLimit = 10
	defaultGroupName   = "Anonymous group"
)

type Config struct {
	// WarnAfter and WarnUntil bound the one-time "still searching" notice.
	WarnAfter        time.Duration
	WarnUntil        time.Duration
	CharReplacement  rune
	SearchLimit      int
	DefaultGroupName string
}

type Option func(o *Orchestrator)

// WithClock replaces time.Now, tests drive the sweeper with it.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// Orchestrator is the single owner of State. Every operation takes the lock, authorizes,
// mutates, collects its notifications and only delivers them once the lock is released.
type Orchestrator struct {
	mu       sync.Mutex
	log      *slog.Logger
	state    *State
	notifier contract.Notifier
	audit    repositories.IAuditRepository
	stats    *observability.Stats
	cfg      Config
	now      func() time.Time
}

func NewOrchestrator(
	log *slog.Logger,
	state *State,
	notifier contract.Notifier,
	audit repositories.IAuditRepository,
	stats *observability.Stats,
	cfg Config,
	opts ...Option,
) *Orchestrator {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	if cfg.DefaultGroupName == "" {
		cfg.DefaultGroupName = defaultGroupName
	}
	o := &Orchestrator{
		log:      log,
		state:    state,
		notifier: notifier,
		audit:    audit,
		stats:    stats,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// outbox collects notifications while the lock is held.
type outbox struct {
	at    time.Time
	notes []event.Notification
}

func (b *outbox) add(to domain.UserID, payload event.Payload) {
	b.notes = append(b.notes, event.Notification{Recipient: to, Payload: payload, At: b.at})
}

type delivery struct {
	sent   int
	failed int
}

// run is the common frame of every operation.
func (o *Orchestrator) run(ctx context.Context, user domain.UserID, action Action,
	fn func(now time.Time, out *outbox) error) (delivery, error) {
	o.mu.Lock()
	now := o.now()
	out := &outbox{at: now}
	err := authorize(o.state.Access, user, action)
	if err == nil {
		err = fn(now, out)
	} else {
		o.denial(user, err, out)
	}
	o.mu.Unlock()

	if err != nil {
		o.log.Debug("Operation refused", "user", user, "action", action, "error", err)
	}
	return o.deliver(ctx, out.notes), err
}

// denial tells banned users and users blocked by maintenance why nothing happened.
func (o *Orchestrator) denial(user domain.UserID, err error, out *outbox) {
	switch {
	case errors.Is(err, errors.ErrBanned):
		out.add(user, event.AccessDeniedPayload{Reason: event.DeniedBanned})
	case errors.Is(err, errors.ErrMaintenance):
		out.add(user, event.AccessDeniedPayload{Reason: event.DeniedMaintenance})
	}
}

// deliver hands every notification to the transport. A failed recipient is logged and
// counted, it never stops the remaining deliveries.
func (o *Orchestrator) deliver(ctx context.Context, notes []event.Notification) delivery {
	var d delivery
	for _, n := range notes {
		if err := o.notifier.Notify(ctx, n); err != nil {
			d.failed++
			o.stats.IncrDeliveryFailures()
			o.log.Warn("Unable to deliver notification",
				"user", n.Recipient, "kind", n.Kind(), "error", err)
			continue
		}
		d.sent++
	}
	return d
}

// record appends to the audit log outside of the lock.
func (o *Orchestrator) record(admin domain.UserID, action, target, detail string) {
	entry := repositories.AuditEntry{
		ID:     uuid.New(),
		Admin:  admin,
		Action: action,
		Target: target,
		Detail: detail,
		At:     o.now(),
	}
	o.log.Info("Admin action", "admin", admin, "action", action, "target", target, "detail", detail)
	if err := o.audit.Store(entry); err != nil {
		o.log.Warn("Unable to store audit entry", "action", action, "error", err)
	}
}

// Seen caches the identity the platform sent along with an inbound event.
func (o *Orchestrator) Seen(identity domain.Identity) {
	o.mu.Lock()
	defer o.mu.Unlock()
	identity.LastSeen = o.now()
	if o.state.Directory.Seen(identity) {
		o.stats.IncrUniqueUsers()
	}
}

// IsAdmin is a pure lookup for the adapter, it does not authorize anything.
func (o *Orchestrator) IsAdmin(user domain.UserID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Access.IsAdmin(user)
}

// Gauges is safe for concurrent use and feeds the Prometheus collectors.
func (o *Orchestrator) Gauges() observability.Gauges {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gauges()
}

func (o *Orchestrator) gauges() observability.Gauges {
	counts := o.state.Matches.Counts()
	return observability.Gauges{
		WaitingGlobal: counts.WaitingGlobal,
		WaitingTopic:  counts.WaitingTopic,
		Connections:   counts.Connections,
		Groups:        o.state.Groups.Count(),
		Banned:        len(o.state.Access.Banned()),
		PendingReveal: o.state.Reveals.Len(),
		Maintenance:   o.state.Access.Maintenance(),
	}
}
