package telegram

import (
	"anon-chat/domain"
	"anon-chat/errors"
	"anon-chat/runtime"
	"anon-chat/settings"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const helpText = `👋 Welcome to the anonymous chat.

/connect - meet a stranger, or join a group in group mode
/disconnect - leave the current chat or stop waiting
/mode one_on_one|topic|group - choose how you are matched
/topic <topic> - chat about a topic (%s)
/group - list groups, /group create <name>, /group join <id>
/leave - leave your group
/reveal - ask your partner to exchange identities
/mood <%s> - send a reaction`

const adminHelpText = `

Admin:
/admin - status dashboard
/ban <id> [reason], /unban <id>
/broadcast <text> (also _all, _active, _waiting, _groups)
/maintenance on|off
/config <key> <value>, /set_timeout, /set_group_size, /set_reveal_timeout
/add_banned_word <word>, /remove_banned_word <word>
/find_user <query>, /user_info <id>
/audit [limit]`

func (a *Adapter) help(_ context.Context, user domain.UserID, _ string) (message, error) {
	topics := lo.Map(domain.Topics, func(t domain.Topic, _ int) string { return string(t) })
	text := fmt.Sprintf(helpText, strings.Join(topics, ", "), moodList())
	if a.core.IsAdmin(user) {
		text += adminHelpText
	}
	return message{text: text}, nil
}

func moodList() string {
	return strings.Join(lo.Map(domain.Moods, func(m domain.Mood, _ int) string { return string(m) }), "|")
}

func (a *Adapter) connect(ctx context.Context, user domain.UserID, _ string) (message, error) {
	res, err := a.core.Connect(ctx, user)
	if err != nil {
		return message{}, err
	}
	if res.Outcome != runtime.Waiting {
		// match_found and group_joined notifications carry the news
		return message{}, nil
	}
	if res.Topic != nil {
		return message{text: fmt.Sprintf("🔎 Looking for someone to talk about %s... (%d waiting)", *res.Topic, res.QueueLen)}, nil
	}
	return message{text: fmt.Sprintf("🔎 Looking for a partner... (%d waiting)", res.QueueLen)}, nil
}

func (a *Adapter) disconnect(ctx context.Context, user domain.UserID, _ string) (message, error) {
	res, err := a.core.Disconnect(ctx, user)
	if err != nil {
		return message{}, err
	}
	switch res.Outcome {
	case runtime.DisconnectedPair:
		return message{text: "You left the chat. Use /connect to meet someone new."}, nil
	case runtime.CancelledWait:
		return message{text: "You stopped waiting for a partner."}, nil
	}
	return message{text: "You are not in a chat. In a group, use /leave."}, nil
}

func (a *Adapter) reveal(ctx context.Context, user domain.UserID, _ string) (message, error) {
	if _, err := a.core.RequestReveal(ctx, user); err != nil {
		return message{}, err
	}
	return message{text: "🎭 Reveal request sent, waiting for your partner."}, nil
}

func (a *Adapter) mode(ctx context.Context, user domain.UserID, args string) (message, error) {
	rawMode, rawTopic, _ := strings.Cut(args, " ")
	if rawMode == "" {
		pref := a.core.Preference(user)
		return message{text: fmt.Sprintf("Current mode: %s. Use /mode one_on_one|topic|group.", pref.Mode)}, nil
	}
	mode, err := domain.ParseMode(rawMode)
	if err != nil {
		return message{}, err
	}
	var topic *domain.Topic
	if strings.TrimSpace(rawTopic) != "" {
		t, err := domain.ParseTopic(rawTopic)
		if err != nil {
			return message{}, err
		}
		topic = &t
	}
	pref, err := a.core.SetMode(ctx, user, mode, topic)
	if err != nil {
		return message{}, err
	}
	return message{text: preferenceText(pref)}, nil
}

func (a *Adapter) topic(ctx context.Context, user domain.UserID, args string) (message, error) {
	if args == "" {
		return message{}, errors.ErrTopicRequired
	}
	t, err := domain.ParseTopic(args)
	if err != nil {
		return message{}, err
	}
	pref, err := a.core.SetMode(ctx, user, domain.ModeTopic, &t)
	if err != nil {
		return message{}, err
	}
	return message{text: preferenceText(pref)}, nil
}

func preferenceText(pref domain.Preference) string {
	if pref.Topic != nil {
		return fmt.Sprintf("Mode set to %s on %s. Use /connect to start.", pref.Mode, *pref.Topic)
	}
	return fmt.Sprintf("Mode set to %s. Use /connect to start.", pref.Mode)
}

func (a *Adapter) group(ctx context.Context, user domain.UserID, args string) (message, error) {
	sub, rest, _ := strings.Cut(args, " ")
	switch strings.ToLower(sub) {
	case "", "list":
		groups, err := a.core.ListGroups(ctx, user)
		if err != nil {
			return message{}, err
		}
		return groupsMessage(groups), nil
	case "create":
		_, err := a.core.CreateGroup(ctx, user, rest)
		return message{}, err
	case "join":
		_, err := a.core.JoinGroup(ctx, user, domain.GroupID(strings.TrimSpace(rest)))
		return message{}, err
	}
	return message{text: "Usage: /group, /group create <name> or /group join <id>."}, nil
}

func (a *Adapter) leave(ctx context.Context, user domain.UserID, _ string) (message, error) {
	_, err := a.core.LeaveGroup(ctx, user)
	return message{}, err
}

func (a *Adapter) mood(ctx context.Context, user domain.UserID, args string) (message, error) {
	if args == "" {
		return message{text: "Usage: /mood " + moodList()}, nil
	}
	_, err := a.core.React(ctx, user, args)
	return message{}, err
}

func (a *Adapter) status(ctx context.Context, user domain.UserID, _ string) (message, error) {
	s, err := a.core.Status(ctx, user)
	if err != nil {
		return message{}, err
	}
	return statusMessage(s), nil
}

func (a *Adapter) ban(ctx context.Context, admin domain.UserID, args string) (message, error) {
	rawID, reason, _ := strings.Cut(args, " ")
	target, err := parseUserID(rawID)
	if err != nil {
		return message{}, err
	}
	if err := a.core.Ban(ctx, admin, target, strings.TrimSpace(reason)); err != nil {
		return message{}, err
	}
	return message{text: fmt.Sprintf("🚫 User %d banned.", int64(target))}, nil
}

func (a *Adapter) unban(ctx context.Context, admin domain.UserID, args string) (message, error) {
	target, err := parseUserID(args)
	if err != nil {
		return message{}, err
	}
	if err := a.core.Unban(ctx, admin, target); err != nil {
		return message{}, err
	}
	return message{text: fmt.Sprintf("✅ User %d unbanned.", int64(target))}, nil
}

// broadcastTo returns no reply: the broadcast_report notification gives the counts.
func (a *Adapter) broadcastTo(target runtime.BroadcastTarget) command {
	return func(ctx context.Context, admin domain.UserID, args string) (message, error) {
		_, err := a.core.Broadcast(ctx, admin, args, target)
		return message{}, err
	}
}

func (a *Adapter) maintenance(ctx context.Context, admin domain.UserID, args string) (message, error) {
	var enabled bool
	switch strings.ToLower(args) {
	case "on", "true", "enable":
		enabled = true
	case "off", "false", "disable":
	default:
		return message{text: "Usage: /maintenance on|off"}, nil
	}
	ended, err := a.core.SetMaintenance(ctx, admin, enabled)
	if err != nil {
		return message{}, err
	}
	if enabled {
		return message{text: fmt.Sprintf("🛠 Maintenance enabled, %d chats ended.", ended)}, nil
	}
	return message{text: "✅ Maintenance disabled."}, nil
}

func (a *Adapter) config(ctx context.Context, admin domain.UserID, args string) (message, error) {
	key, value, _ := strings.Cut(args, " ")
	if key == "" {
		return message{text: "Usage: /config <key> <value>, keys: " +
			strings.Join(append(slices.Clone(settings.Keys), runtime.KeyMaintenance), ", ")}, nil
	}
	return a.setConfig(ctx, admin, key, value)
}

func (a *Adapter) configKey(key string) command {
	return func(ctx context.Context, admin domain.UserID, args string) (message, error) {
		return a.setConfig(ctx, admin, key, args)
	}
}

func (a *Adapter) setConfig(ctx context.Context, admin domain.UserID, key, value string) (message, error) {
	change, err := a.core.SetConfig(ctx, admin, key, strings.TrimSpace(value))
	if err != nil {
		return message{}, err
	}
	return message{text: fmt.Sprintf("⚙️ %s: %s → %s", change.Key, change.Old, change.New)}, nil
}

func (a *Adapter) findUser(ctx context.Context, admin domain.UserID, args string) (message, error) {
	if args == "" {
		return message{text: "Usage: /find_user <id, name or username>"}, nil
	}
	infos, err := a.core.FindUsers(ctx, admin, args)
	if err != nil {
		return message{}, err
	}
	return usersMessage(infos), nil
}

func (a *Adapter) userInfo(ctx context.Context, admin domain.UserID, args string) (message, error) {
	target, err := parseUserID(args)
	if err != nil {
		return message{}, err
	}
	info, err := a.core.UserInfo(ctx, admin, target)
	if err != nil {
		return message{}, err
	}
	return userInfoMessage(info), nil
}

func (a *Adapter) audit(ctx context.Context, admin domain.UserID, args string) (message, error) {
	limit := a.auditLimit
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			return message{text: "Usage: /audit [limit]"}, nil
		}
		limit = n
	}
	entries, err := a.core.AuditLog(ctx, admin, limit)
	if err != nil {
		return message{}, err
	}
	return auditMessage(entries), nil
}
