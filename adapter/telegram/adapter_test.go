package telegram

import (
	"anon-chat/access"
	"anon-chat/directory"
	"anon-chat/domain"
	"anon-chat/matchmaking"
	"anon-chat/mocks"
	"anon-chat/moderation"
	"anon-chat/observability"
	"anon-chat/repositories"
	"anon-chat/runtime"
	"anon-chat/settings"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	admin domain.UserID = 1
	alice domain.UserID = 10
	bob   domain.UserID = 11
)

type sent struct {
	chat   int64
	text   string
	markup models.ReplyMarkup
}

// fakeClient records what the bot would have sent.
type fakeClient struct {
	mu       sync.Mutex
	messages []sent
	answered []string
	failFor  map[int64]bool
}

func (c *fakeClient) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chat := params.ChatID.(int64)
	if c.failFor[chat] {
		return nil, fmt.Errorf("forbidden: bot was blocked by the user")
	}
	c.messages = append(c.messages, sent{chat: chat, text: params.Text, markup: params.ReplyMarkup})
	return &models.Message{ID: len(c.messages)}, nil
}

func (c *fakeClient) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answered = append(c.answered, params.CallbackQueryID)
	return true, nil
}

func (c *fakeClient) Start(ctx context.Context) {
	<-ctx.Done()
}

func (c *fakeClient) to(user domain.UserID) []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sent
	for _, m := range c.messages {
		if m.chat == int64(user) {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeClient) last(user domain.UserID) sent {
	msgs := c.to(user)
	if len(msgs) == 0 {
		return sent{}
	}
	return msgs[len(msgs)-1]
}

func newAdapter(t *testing.T) (*Adapter, *fakeClient) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	audit := mocks.NewMockIAuditRepository(ctrl)
	audit.EXPECT().Store(gomock.Any()).Return(nil).AnyTimes()
	audit.EXPECT().List(gomock.Any()).Return([]repositories.AuditEntry{{
		Admin: admin, Action: "ban_user", Target: "11", At: time.Now(),
	}}, nil).AnyTimes()

	dir, err := directory.New(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })
	moderator, err := moderation.NewModerator([]string{"scammer"}, '*', log)
	require.NoError(t, err)
	cfg := settings.Default()
	cfg.BannedWords = []string{"scammer"}
	state := runtime.NewState(matchmaking.FIFOSelector{}, access.NewPolicy([]domain.UserID{admin}, access.AllPrivileges),
		dir, cfg, moderator)

	client := &fakeClient{failFor: map[int64]bool{}}
	o := runtime.NewOrchestrator(log, state, NewNotifier(log, client), audit, observability.NewStats(time.Now()),
		runtime.Config{WarnAfter: 30 * time.Second, WarnUntil: 40 * time.Second, CharReplacement: '*'})
	return NewAdapter(log, o, client, 10), client
}

func text(user domain.UserID, s string) *models.Update {
	return &models.Update{Message: &models.Message{
		From: &models.User{ID: int64(user), FirstName: fmt.Sprintf("user%d", user), Username: fmt.Sprintf("u%d", user)},
		Chat: models.Chat{ID: int64(user)},
		Text: s,
	}}
}

func callback(user domain.UserID, data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb-" + data,
		From: models.User{ID: int64(user), FirstName: fmt.Sprintf("user%d", user)},
		Data: data,
	}}
}

func TestAdapter_ConnectAndRelay(t *testing.T) {
	req := require.New(t)
	a, client := newAdapter(t)
	ctx := context.Background()

	// Given alice waiting
	a.Handle(ctx, text(alice, "/connect"))
	req.Contains(client.last(alice).text, "Looking for a partner")

	// When bob connects and writes
	a.Handle(ctx, text(bob, "/connect@anon_bot"))
	a.Handle(ctx, text(bob, "hello there"))

	// Then both were told about the match and alice got the text as is
	req.Contains(client.to(bob)[0].text, "You are now chatting")
	req.Equal("hello there", client.last(alice).text)
}

func TestAdapter_RevealThroughButtons(t *testing.T) {
	req := require.New(t)
	a, client := newAdapter(t)
	ctx := context.Background()

	a.Handle(ctx, text(alice, "/connect"))
	a.Handle(ctx, text(bob, "/connect"))

	// When alice asks to reveal
	a.Handle(ctx, text(alice, "/reveal"))

	// Then bob gets accept and decline buttons
	prompt := client.last(bob)
	keyboard, ok := prompt.markup.(*models.InlineKeyboardMarkup)
	req.True(ok)
	req.Equal("reveal:accept:10", keyboard.InlineKeyboard[0][0].CallbackData)
	req.Equal("reveal:decline:10", keyboard.InlineKeyboard[0][1].CallbackData)

	// When bob accepts
	a.Handle(ctx, callback(bob, "reveal:accept:10"))

	// Then both see the other's identity
	req.Contains(client.last(alice).text, "@u11")
	req.Contains(client.last(bob).text, "@u10")
	req.Equal([]string{"cb-reveal:accept:10"}, client.answered)
}

func TestAdapter_RenderErrorsByKind(t *testing.T) {
	req := require.New(t)
	a, client := newAdapter(t)
	ctx := context.Background()

	a.Handle(ctx, text(alice, "/reveal"))
	req.Equal("⚠️ Users are not connected.", client.last(alice).text)

	a.Handle(ctx, text(alice, "/admin"))
	req.Equal("⛔ User is not an admin.", client.last(alice).text)

	a.Handle(ctx, text(alice, "/mode sideways"))
	req.Equal("⚠️ Unknown chat mode.", client.last(alice).text)

	a.Handle(ctx, text(alice, "/mode topic"))
	req.Equal("⚠️ Topic mode requires a topic.", client.last(alice).text)

	a.Handle(ctx, text(alice, "/nope"))
	req.Equal("Unknown command, try /help.", client.last(alice).text)
}

func TestAdapter_BannedUserOnlyGetsTheDenial(t *testing.T) {
	req := require.New(t)
	a, client := newAdapter(t)
	ctx := context.Background()

	// Given alice known then banned
	a.Handle(ctx, text(alice, "/start"))
	a.Handle(ctx, text(admin, "/ban 10 spam"))
	req.Equal("🚫 User 10 banned.", client.last(admin).text)
	before := len(client.to(alice))

	// When alice tries to connect
	a.Handle(ctx, text(alice, "/connect"))

	// Then the only message is the access denied notification
	msgs := client.to(alice)
	req.Len(msgs, before+1)
	req.Equal("🚫 You have been banned from this bot.", msgs[len(msgs)-1].text)
}

func TestAdapter_ContentFilter(t *testing.T) {
	req := require.New(t)
	a, client := newAdapter(t)
	ctx := context.Background()

	a.Handle(ctx, text(alice, "/connect"))
	a.Handle(ctx, text(bob, "/connect"))
	received := len(client.to(bob))

	a.Handle(ctx, text(alice, "you S.C.A.M.M.E.R"))

	req.Len(client.to(bob), received)
	req.Equal("⛔ Message contains banned words.", client.last(alice).text)
}

func TestAdapter_BroadcastReportsFailures(t *testing.T) {
	req := require.New(t)
	a, client := newAdapter(t)
	ctx := context.Background()

	a.Handle(ctx, text(alice, "/start"))
	a.Handle(ctx, text(bob, "/start"))
	client.mu.Lock()
	client.failFor[int64(bob)] = true
	client.mu.Unlock()

	a.Handle(ctx, text(admin, "/broadcast Restart at noon"))

	req.Equal("📢 Announcement\n\nRestart at noon", client.to(alice)[len(client.to(alice))-1].text)
	req.Equal("📢 Broadcast to all: 3 recipients, 2 sent, 1 failed.", client.last(admin).text)
}

func TestAdapter_AdminTables(t *testing.T) {
	req := require.New(t)
	a, client := newAdapter(t)
	ctx := context.Background()

	a.Handle(ctx, text(alice, "/start"))

	a.Handle(ctx, text(admin, "/admin"))
	req.True(strings.HasPrefix(client.last(admin).text, "<pre>"))
	req.Contains(client.last(admin).text, "max group size")

	a.Handle(ctx, text(admin, "/audit"))
	req.Contains(client.last(admin).text, "ban_user")

	a.Handle(ctx, text(admin, "/find_user u10"))
	req.Contains(client.last(admin).text, "user10")

	a.Handle(ctx, text(admin, "/set_group_size 5"))
	req.Equal("⚙️ max_group_size: 10 → 5", client.last(admin).text)
}

func TestAdapter_GroupFlow(t *testing.T) {
	req := require.New(t)
	a, client := newAdapter(t)
	ctx := context.Background()

	// Given alice created a group
	a.Handle(ctx, text(alice, "/group create night owls"))
	req.Contains(client.last(alice).text, `You joined "night owls" as member #1`)

	// When bob lists groups and presses the button
	a.Handle(ctx, text(bob, "/group"))
	keyboard, ok := client.last(bob).markup.(*models.InlineKeyboardMarkup)
	req.True(ok)
	a.Handle(ctx, callback(bob, keyboard.InlineKeyboard[0][0].CallbackData))

	// Then both are in the group and messages carry member numbers
	req.Contains(client.last(bob).text, "as member #2")
	a.Handle(ctx, text(bob, "hi all"))
	req.Equal("👤 Member #2: hi all", client.last(alice).text)

	// And reactions too
	a.Handle(ctx, text(alice, "/mood heart"))
	req.Equal("👤 Member #1 reacted ❤️", client.last(bob).text)
}
