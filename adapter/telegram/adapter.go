// Package telegram turns Telegram updates into orchestrator calls and notifications into
// Telegram messages. It holds no session state.
package telegram

import (
	"anon-chat/domain"
	"anon-chat/errors"
	"anon-chat/group"
	"anon-chat/repositories"
	"anon-chat/reveal"
	"anon-chat/runtime"
	"anon-chat/settings"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Core is what the adapter needs from the orchestrator.
type Core interface {
	Seen(identity domain.Identity)
	IsAdmin(user domain.UserID) bool
	Preference(user domain.UserID) domain.Preference
	Connect(ctx context.Context, user domain.UserID) (runtime.ConnectResult, error)
	Disconnect(ctx context.Context, user domain.UserID) (runtime.DisconnectResult, error)
	SendMessage(ctx context.Context, user domain.UserID, text string) (runtime.RelayReport, error)
	React(ctx context.Context, user domain.UserID, mood string) (runtime.RelayReport, error)
	SetMode(ctx context.Context, user domain.UserID, mode domain.ChatMode, topic *domain.Topic) (domain.Preference, error)
	RequestReveal(ctx context.Context, user domain.UserID) (domain.RevealRequest, error)
	RespondReveal(ctx context.Context, user, requester domain.UserID, accept bool) (reveal.Resolution, error)
	CreateGroup(ctx context.Context, user domain.UserID, name string) (domain.Group, error)
	JoinGroup(ctx context.Context, user domain.UserID, id domain.GroupID) (domain.Group, error)
	LeaveGroup(ctx context.Context, user domain.UserID) (group.LeaveResult, error)
	ListGroups(ctx context.Context, user domain.UserID) ([]domain.Group, error)
	Ban(ctx context.Context, admin, target domain.UserID, reason string) error
	Unban(ctx context.Context, admin, target domain.UserID) error
	Broadcast(ctx context.Context, admin domain.UserID, text string, target runtime.BroadcastTarget) (runtime.BroadcastReport, error)
	SetMaintenance(ctx context.Context, admin domain.UserID, enabled bool) (int, error)
	SetConfig(ctx context.Context, admin domain.UserID, key, value string) (settings.Change, error)
	Status(ctx context.Context, admin domain.UserID) (runtime.Status, error)
	UserInfo(ctx context.Context, admin, target domain.UserID) (runtime.UserInfo, error)
	FindUsers(ctx context.Context, admin domain.UserID, query string) ([]runtime.UserInfo, error)
	AuditLog(ctx context.Context, admin domain.UserID, limit int) ([]repositories.AuditEntry, error)
}

type Adapter struct {
	log        *slog.Logger
	core       Core
	client     BotClient
	auditLimit int
	commands   map[string]command
}

// command handles one slash command. args is the text after the command name.
type command func(ctx context.Context, user domain.UserID, args string) (message, error)

func NewAdapter(log *slog.Logger, core Core, client BotClient, auditLimit int) *Adapter {
	a := &Adapter{log: log.With("component", "telegram"), core: core, client: client, auditLimit: auditLimit}
	a.commands = map[string]command{
		"start":      a.help,
		"help":       a.help,
		"connect":    a.connect,
		"disconnect": a.disconnect,
		"reveal":     a.reveal,
		"mode":       a.mode,
		"topic":      a.topic,
		"group":      a.group,
		"leave":      a.leave,
		"mood":       a.mood,

		"admin":              a.status,
		"ban":                a.ban,
		"unban":              a.unban,
		"broadcast":          a.broadcastTo(runtime.TargetAll),
		"broadcast_all":      a.broadcastTo(runtime.TargetAll),
		"broadcast_active":   a.broadcastTo(runtime.TargetActive),
		"broadcast_waiting":  a.broadcastTo(runtime.TargetWaiting),
		"broadcast_groups":   a.broadcastTo(runtime.TargetGroupMembers),
		"maintenance":        a.maintenance,
		"config":             a.config,
		"set_timeout":        a.configKey(settings.KeyConnectionTimeout),
		"set_group_size":     a.configKey(settings.KeyMaxGroupSize),
		"set_reveal_timeout": a.configKey(settings.KeyRevealTimeout),
		"add_banned_word":    a.configKey(settings.KeyAddBannedWord),
		"remove_banned_word": a.configKey(settings.KeyRemoveBannedWord),
		"find_user":          a.findUser,
		"user_info":          a.userInfo,
		"audit":              a.audit,
	}
	return a
}

// Run is the supervised polling loop. It blocks until ctx is canceled.
func (a *Adapter) Run(ctx context.Context) error {
	a.log.Info("Starting Telegram long polling")
	a.client.Start(ctx)
	return ctx.Err()
}

// Handle processes one update: a slash command, a chat message or an inline button press.
func (a *Adapter) Handle(ctx context.Context, update *models.Update) {
	switch {
	case update.CallbackQuery != nil:
		a.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		a.handleMessage(ctx, update.Message)
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *models.Message) {
	user := a.seen(*msg.From)
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if !strings.HasPrefix(text, "/") {
		_, err := a.core.SendMessage(ctx, user, text)
		a.reply(ctx, user, message{}, err)
		return
	}

	name, args := splitCommand(text)
	cmd, ok := a.commands[name]
	if !ok {
		a.reply(ctx, user, message{text: "Unknown command, try /help."}, nil)
		return
	}
	a.log.Debug("Command received", "user", user, "command", name)
	reply, err := cmd(ctx, user, args)
	a.reply(ctx, user, reply, err)
}

func (a *Adapter) handleCallback(ctx context.Context, query *models.CallbackQuery) {
	user := a.seen(query.From)
	if _, err := a.client.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: query.ID}); err != nil {
		a.log.Debug("Unable to answer callback query", "user", user, "error", err)
	}

	var (
		reply message
		err   error
	)
	switch data := query.Data; {
	case strings.HasPrefix(data, callbackRevealAccept):
		err = a.respondReveal(ctx, user, strings.TrimPrefix(data, callbackRevealAccept), true)
	case strings.HasPrefix(data, callbackRevealDecline):
		err = a.respondReveal(ctx, user, strings.TrimPrefix(data, callbackRevealDecline), false)
		reply = message{text: "You declined the reveal."}
	case strings.HasPrefix(data, callbackGroupJoin):
		_, err = a.core.JoinGroup(ctx, user, domain.GroupID(strings.TrimPrefix(data, callbackGroupJoin)))
	default:
		a.log.Debug("Unknown callback data", "user", user, "data", data)
		return
	}
	a.reply(ctx, user, reply, err)
}

func (a *Adapter) respondReveal(ctx context.Context, user domain.UserID, raw string, accept bool) error {
	requester, err := parseUserID(raw)
	if err != nil {
		return err
	}
	_, err = a.core.RespondReveal(ctx, user, requester, accept)
	return err
}

func (a *Adapter) seen(from models.User) domain.UserID {
	identity := domain.Identity{
		ID:        domain.UserID(from.ID),
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.Username,
	}
	a.core.Seen(identity)
	return identity.ID
}

// reply sends the command result, or the error explanation. Banned users and users blocked by
// maintenance already got an access_denied notification.
func (a *Adapter) reply(ctx context.Context, user domain.UserID, msg message, err error) {
	if err != nil {
		if errors.Is(err, errors.ErrBanned) || errors.Is(err, errors.ErrMaintenance) {
			return
		}
		msg = message{text: errorText(err)}
	}
	if msg.text == "" {
		return
	}
	if sendErr := send(ctx, a.client, user, msg); sendErr != nil {
		a.log.Warn("Unable to reply", "user", user, "error", sendErr)
	}
}

func send(ctx context.Context, client BotClient, user domain.UserID, msg message) error {
	params := &bot.SendMessageParams{
		ChatID:      int64(user),
		Text:        msg.text,
		ReplyMarkup: msg.markup,
	}
	if msg.html {
		params.ParseMode = models.ParseModeHTML
	}
	_, err := client.SendMessage(ctx, params)
	return err
}

func errorText(err error) string {
	switch errors.KindOf(err) {
	case errors.KindPolicyDenied:
		return "⛔ " + capitalize(err.Error()) + "."
	case errors.KindNotFound:
		return "🔍 " + capitalize(err.Error()) + "."
	case errors.KindStateConflict, errors.KindInvalid:
		return "⚠️ " + capitalize(err.Error()) + "."
	}
	return "Something went wrong, please try again."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// splitCommand returns "connect", "" for "/connect@my_bot".
func splitCommand(text string) (string, string) {
	name, args, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name), strings.TrimSpace(args)
}

func parseUserID(s string) (domain.UserID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a user id", errors.ErrUserNotFound, s)
	}
	return domain.UserID(id), nil
}
