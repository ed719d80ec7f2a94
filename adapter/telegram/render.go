package telegram

import (
	"anon-chat/domain"
	"anon-chat/domain/event"
	"anon-chat/repositories"
	"anon-chat/runtime"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

const (
	callbackRevealAccept  = "reveal:accept:"
	callbackRevealDecline = "reveal:decline:"
	callbackGroupJoin     = "group:join:"
)

var moodEmoji = map[domain.Mood]string{
	"like":  "👍",
	"heart": "❤️",
	"laugh": "😂",
	"wow":   "😮",
	"sad":   "😢",
	"angry": "😠",
}

// message is one outbound Telegram message.
type message struct {
	text   string
	html   bool
	markup models.ReplyMarkup
}

// render turns a notification into the text shown to its recipient.
func render(n event.Notification) message {
	switch p := n.Payload.(type) {
	case event.MatchFoundPayload:
		if p.Topic != nil {
			return message{text: fmt.Sprintf("🎉 You are now chatting with a stranger about %s. Say hi!", *p.Topic)}
		}
		return message{text: "🎉 You are now chatting with a stranger. Say hi!\nUse /disconnect to leave, /reveal to exchange identities."}
	case event.MessageRelayedPayload:
		if p.GroupID != nil {
			return message{text: fmt.Sprintf("👤 Member #%d: %s", p.MemberNumber, p.Text)}
		}
		return message{text: p.Text}
	case event.ReactionRelayedPayload:
		emoji := lo.ValueOr(moodEmoji, p.Mood, string(p.Mood))
		if p.GroupID != nil {
			return message{text: fmt.Sprintf("👤 Member #%d reacted %s", p.MemberNumber, emoji)}
		}
		return message{text: fmt.Sprintf("Stranger reacted %s", emoji)}
	case event.PartnerLeftPayload:
		return message{text: partnerLeftText(p.Reason)}
	case event.RevealRequestedPayload:
		id := fmt.Sprint(int64(p.RequesterID))
		return message{
			text: "🎭 Your partner wants to reveal identities. Do you accept?",
			markup: &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "✅ Accept", CallbackData: callbackRevealAccept + id},
				{Text: "❌ Decline", CallbackData: callbackRevealDecline + id},
			}}},
		}
	case event.RevealResolvedPayload:
		return message{text: revealText(p)}
	case event.GroupPayload:
		return message{text: groupText(p)}
	case event.TimeoutWarningPayload:
		return message{text: fmt.Sprintf("⏳ Still looking for a partner after %s. Hang on, or /disconnect to stop.",
			p.Elapsed.Round(time.Second))}
	case event.TimeoutEvictedPayload:
		var b strings.Builder
		fmt.Fprintf(&b, "⌛ No partner found after %s, you left the queue.\nYou could:", p.Waited.Round(time.Second))
		for _, s := range p.Suggestions {
			fmt.Fprintf(&b, "\n• %s", s)
		}
		return message{text: b.String()}
	case event.BroadcastPayload:
		return message{text: "📢 Announcement\n\n" + p.Text}
	case event.BroadcastReportPayload:
		return message{text: fmt.Sprintf("📢 Broadcast to %s: %d recipients, %d sent, %d failed.",
			p.Target, p.Total, p.Sent, p.Failed)}
	case event.AccessDeniedPayload:
		if p.Reason == event.DeniedMaintenance {
			return message{text: "🛠 The bot is under maintenance, please come back later."}
		}
		return message{text: "🚫 You have been banned from this bot."}
	}
	return message{text: fmt.Sprintf("(%s)", n.Kind())}
}

func partnerLeftText(reason event.PartnerLeftReason) string {
	switch reason {
	case event.ReasonPartnerBanned:
		return "Your partner was removed from the chat. Use /connect to meet someone new."
	case event.ReasonMaintenance:
		return "🛠 The chat ended because the bot entered maintenance."
	}
	return "Your partner left the chat. Use /connect to meet someone new."
}

func revealText(p event.RevealResolvedPayload) string {
	switch {
	case p.Expired:
		return "⌛ Your reveal request expired without an answer."
	case !p.Accepted:
		return "Your partner declined to reveal identities."
	case p.Identity == nil:
		return "Identities revealed."
	}
	text := "🎭 Your partner is " + p.Identity.DisplayName()
	if p.Identity.Username != "" {
		text += " (@" + p.Identity.Username + ")"
	}
	return text
}

func groupText(p event.GroupPayload) string {
	switch p.Kind() {
	case event.GroupJoined:
		return fmt.Sprintf("👥 You joined %q as member #%d (%d/%d).\nUse /leave to leave the group.",
			p.Name, p.MemberNumber, p.Size, p.MaxSize)
	case event.GroupMemberJoined:
		return fmt.Sprintf("👥 A new member joined %q (%d/%d).", p.Name, p.Size, p.MaxSize)
	case event.GroupLeft:
		if p.MemberNumber == 0 {
			return fmt.Sprintf("👥 You left %q.", p.Name)
		}
		return fmt.Sprintf("👥 A member left %q (%d/%d). You are member #%d.", p.Name, p.Size, p.MaxSize, p.MemberNumber)
	case event.GroupTransferred:
		return fmt.Sprintf("👑 A member left %q and the creator role was handed over. You are member #%d (%d/%d).",
			p.Name, p.MemberNumber, p.Size, p.MaxSize)
	case event.GroupDeleted:
		return fmt.Sprintf("👥 You left %q, it was deleted since nobody else was in it.", p.Name)
	}
	return ""
}

func groupsMessage(groups []domain.Group) message {
	if len(groups) == 0 {
		return message{text: "No group has room right now. Use /group create <name> to start one."}
	}
	var rows [][]models.InlineKeyboardButton
	for _, g := range groups {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s (%d/%d)", g.Name, g.Size(), g.MaxSize),
			CallbackData: callbackGroupJoin + string(g.ID),
		}})
	}
	return message{text: "👥 Pick a group to join:", markup: &models.InlineKeyboardMarkup{InlineKeyboard: rows}}
}

func table(header []string, rows [][]string) message {
	var b strings.Builder
	t := tablewriter.NewWriter(&b)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.AppendBulk(rows)
	t.Render()
	return message{text: "<pre>" + html.EscapeString(b.String()) + "</pre>", html: true}
}

func statusMessage(s runtime.Status) message {
	rows := [][]string{
		{"uptime", s.Uptime.Round(time.Second).String()},
		{"messages", fmt.Sprint(s.Stats.TotalMessages)},
		{"connections made", fmt.Sprint(s.Stats.ConnectionsMade)},
		{"groups created", fmt.Sprint(s.Stats.GroupsCreated)},
		{"timeouts", fmt.Sprint(s.Stats.Timeouts)},
		{"unique users", fmt.Sprint(s.Stats.UniqueUsers)},
		{"broadcasts sent/failed", fmt.Sprintf("%d/%d", s.Stats.BroadcastsSent, s.Stats.BroadcastsFailed)},
		{"waiting (global/topic)", fmt.Sprintf("%d/%d", s.Gauges.WaitingGlobal, s.Gauges.WaitingTopic)},
		{"active pairs", fmt.Sprint(s.Gauges.Connections)},
		{"groups", fmt.Sprint(s.Gauges.Groups)},
		{"banned", fmt.Sprint(s.Gauges.Banned)},
		{"maintenance", fmt.Sprint(s.Gauges.Maintenance)},
		{"connection timeout", fmt.Sprintf("%ds", s.Settings.ConnectionTimeout)},
		{"max group size", fmt.Sprint(s.Settings.MaxGroupSize)},
		{"reveal timeout", fmt.Sprintf("%ds", s.Settings.RevealTimeout)},
		{"banned words", fmt.Sprint(len(s.Settings.BannedWords))},
	}
	if p := s.Process; p != nil {
		rows = append(rows,
			[]string{"rss", fmt.Sprintf("%.1f MiB", float64(p.RSSBytes)/(1<<20))},
			[]string{"cpu", fmt.Sprintf("%.1f%%", p.CPUPercent)},
			[]string{"goroutines", fmt.Sprint(p.Goroutines)},
		)
	}
	return table([]string{"metric", "value"}, rows)
}

func auditMessage(entries []repositories.AuditEntry) message {
	if len(entries) == 0 {
		return message{text: "The audit log is empty."}
	}
	rows := lo.Map(entries, func(e repositories.AuditEntry, _ int) []string {
		return []string{e.At.UTC().Format("01-02 15:04:05"), fmt.Sprint(int64(e.Admin)), e.Action, e.Target, e.Detail}
	})
	return table([]string{"at", "admin", "action", "target", "detail"}, rows)
}

func usersMessage(infos []runtime.UserInfo) message {
	if len(infos) == 0 {
		return message{text: "No user found."}
	}
	rows := lo.Map(infos, func(info runtime.UserInfo, _ int) []string {
		return []string{
			fmt.Sprint(int64(info.Identity.ID)),
			info.Identity.DisplayName(),
			userState(info),
			lo.Ternary(info.Banned, "banned", ""),
		}
	})
	return table([]string{"id", "name", "state", ""}, rows)
}

func userInfoMessage(info runtime.UserInfo) message {
	rows := [][]string{
		{"id", fmt.Sprint(int64(info.Identity.ID))},
		{"name", info.Identity.DisplayName()},
		{"username", info.Identity.Username},
		{"last seen", info.Identity.LastSeen.UTC().Format(time.RFC3339)},
		{"mode", string(info.Preference.Mode)},
		{"topic", string(info.Preference.TopicOrEmpty())},
		{"state", userState(info)},
		{"banned", fmt.Sprint(info.Banned)},
		{"admin", fmt.Sprint(info.Admin)},
	}
	if info.Group != nil {
		rows = append(rows, []string{"group", fmt.Sprintf("%s (%s)", info.Group.Name, info.Group.ID)},
			[]string{"creator", fmt.Sprint(info.IsCreator)})
	}
	return table([]string{"field", "value"}, rows)
}

func userState(info runtime.UserInfo) string {
	switch {
	case info.Connected:
		return "chatting"
	case info.Waiting:
		return "waiting"
	case info.Group != nil:
		return "in group"
	}
	return "idle"
}
