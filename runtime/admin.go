package runtime

import (
	"anon-chat/access"
	"anon-chat/domain"
	"anon-chat/domain/event"
	"anon-chat/errors"
	"anon-chat/moderation"
	"anon-chat/observability"
	"anon-chat/repositories"
	"anon-chat/settings"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Ban adds the target to the ban set and takes it out of its pair, its queue and its group
// in the same critical section.
func (o *Orchestrator) Ban(ctx context.Context, admin, target domain.UserID, reason string) error {
	_, err := o.run(ctx, admin, ActionBan, func(_ time.Time, out *outbox) error {
		if o.state.Access.IsAdmin(target) {
			return errors.ErrAdminTarget
		}
		if _, ok := o.state.Directory.Lookup(target); !ok {
			return errors.ErrUserNotFound
		}
		if err := o.state.Access.Ban(target); err != nil {
			return err
		}
		ev := o.state.evict(target)
		if ev.hadPartner {
			out.add(ev.partner, event.PartnerLeftPayload{Reason: event.ReasonPartnerBanned})
		}
		if ev.leftGroup != nil {
			o.announceRemaining(*ev.leftGroup, out)
		}
		out.add(target, event.AccessDeniedPayload{Reason: event.DeniedBanned})
		return nil
	})
	if err == nil {
		o.record(admin, "ban_user", formatUser(target), reason)
	}
	return err
}

func (o *Orchestrator) Unban(ctx context.Context, admin, target domain.UserID) error {
	_, err := o.run(ctx, admin, ActionUnban, func(time.Time, *outbox) error {
		return o.state.Access.Unban(target)
	})
	if err == nil {
		o.record(admin, "unban_user", formatUser(target), "")
	}
	return err
}

type BroadcastTarget string

const (
	TargetAll          BroadcastTarget = "all"
	TargetActive       BroadcastTarget = "active"
	TargetWaiting      BroadcastTarget = "waiting"
	TargetGroupMembers BroadcastTarget = "group_members"
)

func ParseBroadcastTarget(s string) (BroadcastTarget, error) {
	switch t := BroadcastTarget(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetAll, TargetActive, TargetWaiting, TargetGroupMembers:
		return t, nil
	case "", "everyone":
		return TargetAll, nil
	case "groups":
		return TargetGroupMembers, nil
	}
	return "", errors.ErrUnknownTarget
}

type BroadcastReport struct {
	Target BroadcastTarget
	Total  int
	Sent   int
	Failed int
}

// Broadcast relays text to every user of the target set, banned users excluded.
// A failed recipient is counted and skipped; the admin gets the final counts.
func (o *Orchestrator) Broadcast(ctx context.Context, admin domain.UserID, text string,
	target BroadcastTarget) (BroadcastReport, error) {
	report := BroadcastReport{Target: target}
	d, err := o.run(ctx, admin, ActionBroadcast, func(_ time.Time, out *outbox) error {
		if strings.TrimSpace(text) == "" {
			return errors.ErrEmptyMessage
		}
		recipients, err := o.resolveTarget(target)
		if err != nil {
			return err
		}
		for _, user := range recipients {
			out.add(user, event.BroadcastPayload{Text: text})
		}
		report.Total = len(recipients)
		return nil
	})
	if err != nil {
		return report, err
	}
	report.Sent, report.Failed = d.sent, d.failed
	o.stats.AddBroadcast(d.sent, d.failed)
	o.record(admin, "broadcast", string(target), fmt.Sprintf("sent=%d failed=%d", d.sent, d.failed))
	o.deliver(ctx, []event.Notification{{
		Recipient: admin,
		Payload: event.BroadcastReportPayload{
			Target: string(target), Total: report.Total, Sent: report.Sent, Failed: report.Failed,
		},
		At: o.now(),
	}})
	return report, nil
}

func (o *Orchestrator) resolveTarget(target BroadcastTarget) ([]domain.UserID, error) {
	var users []domain.UserID
	switch target {
	case TargetAll:
		users = o.state.Directory.Users()
	case TargetActive:
		users = o.state.Matches.ConnectedUsers()
	case TargetWaiting:
		users = o.state.Matches.WaitingUsers()
	case TargetGroupMembers:
		users = o.state.Groups.Members()
	default:
		return nil, errors.ErrUnknownTarget
	}
	users = lo.Uniq(lo.Reject(users, func(u domain.UserID, _ int) bool {
		return o.state.Access.IsBanned(u)
	}))
	slices.Sort(users)
	return users, nil
}

// SetMaintenance toggles the flag. Enabling it ends every pair without an admin in it,
// pairs involving an admin stay connected.
func (o *Orchestrator) SetMaintenance(ctx context.Context, admin domain.UserID, enabled bool) (int, error) {
	ended := 0
	_, err := o.run(ctx, admin, ActionMaintenance, func(_ time.Time, out *outbox) error {
		ended = o.setMaintenance(enabled, out)
		return nil
	})
	if err == nil {
		o.record(admin, maintenanceAction(enabled), "", fmt.Sprintf("pairs_ended=%d", ended))
	}
	return ended, err
}

func (o *Orchestrator) setMaintenance(enabled bool, out *outbox) int {
	o.state.Access.SetMaintenance(enabled)
	if !enabled {
		return 0
	}
	pairs := o.state.disconnectNonAdminPairs()
	for _, pair := range pairs {
		out.add(pair.A, event.PartnerLeftPayload{Reason: event.ReasonMaintenance})
		out.add(pair.B, event.PartnerLeftPayload{Reason: event.ReasonMaintenance})
	}
	return len(pairs)
}

func maintenanceAction(enabled bool) string {
	if enabled {
		return "enable_maintenance"
	}
	return "disable_maintenance"
}

// KeyMaintenance lets SetConfig toggle maintenance like any other setting.
const KeyMaintenance = "maintenance_mode"

// SetConfig applies one runtime setting. A banned word change rebuilds the moderator before
// the new settings are committed, so a failed build leaves everything as it was.
func (o *Orchestrator) SetConfig(ctx context.Context, admin domain.UserID, key, value string) (settings.Change, error) {
	var change settings.Change
	_, err := o.run(ctx, admin, ActionConfig, func(_ time.Time, out *outbox) error {
		if key == KeyMaintenance {
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%w: %s expects a boolean", errors.ErrInvalidSetting, key)
			}
			change = settings.Change{
				Key: key,
				Old: strconv.FormatBool(o.state.Access.Maintenance()),
				New: strconv.FormatBool(enabled),
			}
			o.setMaintenance(enabled, out)
			return nil
		}

		next := o.state.Settings
		var err error
		change, err = next.Apply(key, value)
		if err != nil {
			return err
		}
		if change.WordsChanged() {
			moderator, err := moderation.NewModerator(next.BannedWords, o.cfg.CharReplacement, o.log)
			if err != nil {
				return err
			}
			o.state.Moderator = moderator
		}
		o.state.Settings = next
		return nil
	})
	if err == nil {
		o.record(admin, "update_config", key, fmt.Sprintf("%s -> %s", change.Old, change.New))
	}
	return change, err
}

// Status is the admin dashboard.
type Status struct {
	Uptime   time.Duration
	Stats    observability.Snapshot
	Gauges   observability.Gauges
	Settings settings.Settings
	Process  *observability.ProcessStats
}

func (o *Orchestrator) Status(ctx context.Context, admin domain.UserID) (Status, error) {
	var status Status
	_, err := o.run(ctx, admin, ActionStatus, func(now time.Time, _ *outbox) error {
		status.Stats = o.stats.Snapshot()
		status.Uptime = now.Sub(status.Stats.StartedAt)
		status.Gauges = o.gauges()
		status.Settings = o.state.Settings
		status.Settings.BannedWords = slices.Clone(o.state.Settings.BannedWords)
		return nil
	})
	if err != nil {
		return Status{}, err
	}
	if p, err := observability.ReadProcess(); err == nil {
		status.Process = &p
	} else {
		o.log.Debug("Unable to read process stats", "error", err)
	}
	return status, nil
}

// UserInfo is what an admin sees about one user.
type UserInfo struct {
	Identity   domain.Identity
	Preference domain.Preference
	Connected  bool
	Waiting    bool
	Group      *domain.Group
	IsCreator  bool
	Banned     bool
	Admin      bool
	Privileges []access.Privilege
}

func (o *Orchestrator) UserInfo(ctx context.Context, admin, target domain.UserID) (UserInfo, error) {
	var info UserInfo
	_, err := o.run(ctx, admin, ActionUserInfo, func(time.Time, *outbox) error {
		if _, ok := o.state.Directory.Lookup(target); !ok {
			return errors.ErrUserNotFound
		}
		info = o.userInfo(target)
		return nil
	})
	return info, err
}

// FindUsers searches the directory by id, name or username.
func (o *Orchestrator) FindUsers(ctx context.Context, admin domain.UserID, query string) ([]UserInfo, error) {
	var infos []UserInfo
	_, err := o.run(ctx, admin, ActionUserInfo, func(time.Time, *outbox) error {
		found, err := o.state.Directory.Find(ctx, query, o.cfg.SearchLimit)
		if err != nil {
			return err
		}
		infos = lo.Map(found, func(identity domain.Identity, _ int) UserInfo {
			return o.userInfo(identity.ID)
		})
		return nil
	})
	return infos, err
}

func (o *Orchestrator) userInfo(user domain.UserID) UserInfo {
	s := o.state
	info := UserInfo{
		Identity:   s.Directory.Identity(user),
		Preference: s.Prefs.Get(user),
		Connected:  s.Matches.IsConnected(user),
		Waiting:    s.Matches.IsWaiting(user),
		Banned:     s.Access.IsBanned(user),
		Admin:      s.Access.IsAdmin(user),
		Privileges: s.Access.Privileges(user),
	}
	if g, ok := s.Groups.GroupOf(user); ok {
		info.Group = &g
		info.IsCreator = g.CreatorID == user
	}
	return info
}

// AuditLog returns the latest admin actions, newest first.
func (o *Orchestrator) AuditLog(ctx context.Context, admin domain.UserID, limit int) ([]repositories.AuditEntry, error) {
	if _, err := o.run(ctx, admin, ActionAuditLog, func(time.Time, *outbox) error { return nil }); err != nil {
		return nil, err
	}
	return o.audit.List(limit)
}

func formatUser(user domain.UserID) string {
	return strconv.FormatInt(int64(user), 10)
}
