package runtime

import (
	"anon-chat/domain"
	"anon-chat/domain/event"
	"anon-chat/errors"
	"anon-chat/matchmaking"
	"anon-chat/preference"
	"context"
	"strings"
	"time"
)

type ConnectOutcome string

const (
	Matched      ConnectOutcome = "matched"
	Waiting      ConnectOutcome = "waiting"
	JoinedGroup  ConnectOutcome = "joined_group"
	CreatedGroup ConnectOutcome = "created_group"
)

// ConnectResult is what the requester gets back. Partners and group members learn about
// the change through notifications.
type ConnectResult struct {
	Outcome  ConnectOutcome
	Mode     domain.ChatMode
	Topic    *domain.Topic
	Partner  domain.UserID
	Group    domain.Group
	QueueLen int
}

// Connect matches the user according to its preference. One-on-one and topic modes pick a
// waiting partner or enqueue, group mode joins the oldest joinable group or creates one.
// It never blocks on another user: the match of an enqueued user comes later as a notification.
func (o *Orchestrator) Connect(ctx context.Context, user domain.UserID) (ConnectResult, error) {
	var res ConnectResult
	_, err := o.run(ctx, user, ActionConnect, func(now time.Time, out *outbox) error {
		if err := o.state.isBusy(user); err != nil {
			return err
		}
		pref := o.state.Prefs.Get(user)
		res.Mode, res.Topic = pref.Mode, pref.Topic
		switch pref.Mode {
		case domain.ModeGroup:
			return o.connectGroup(user, pref, now, out, &res)
		case domain.ModeTopic:
			if pref.Topic == nil {
				return errors.ErrTopicRequired
			}
		}

		matches := o.state.Matches
		partner, found := matches.FindPartner(user, pref.Mode, pref.Topic)
		if !found {
			if err := matches.Enqueue(user, pref.Mode, pref.Topic, now); err != nil {
				return err
			}
			res.Outcome = Waiting
			res.QueueLen = matches.QueueLen(pref.Mode, pref.Topic)
			return nil
		}
		if err := matches.CommitMatch(user, partner); err != nil {
			return err
		}
		o.stats.IncrConnections()
		res.Outcome, res.Partner = Matched, partner
		payload := event.MatchFoundPayload{Mode: pref.Mode, Topic: pref.Topic}
		out.add(user, payload)
		out.add(partner, payload)
		return nil
	})
	return res, err
}

func (o *Orchestrator) connectGroup(user domain.UserID, pref domain.Preference, now time.Time,
	out *outbox, res *ConnectResult) error {
	groups := o.state.Groups
	if pref.GroupID != nil {
		if g, ok := groups.Get(*pref.GroupID); ok && !g.IsFull() {
			return o.joinGroup(user, g.ID, out, res)
		}
	}
	for g := range groups.ListJoinable() {
		return o.joinGroup(user, g.ID, out, res)
	}
	g, err := groups.Create(user, o.cfg.DefaultGroupName, o.state.Settings.MaxGroupSize, now)
	if err != nil {
		return err
	}
	o.stats.IncrGroupsCreated()
	res.Outcome, res.Group = CreatedGroup, g
	out.add(user, event.NewGroupPayload(event.GroupJoined, g, user))
	return nil
}

func (o *Orchestrator) joinGroup(user domain.UserID, id domain.GroupID, out *outbox, res *ConnectResult) error {
	g, err := o.state.Groups.Join(user, id)
	if err != nil {
		return err
	}
	res.Outcome, res.Group = JoinedGroup, g
	out.add(user, event.NewGroupPayload(event.GroupJoined, g, user))
	for _, member := range g.Members {
		if member != user {
			out.add(member, event.NewGroupPayload(event.GroupMemberJoined, g, member))
		}
	}
	return nil
}

type DisconnectOutcome string

const (
	DisconnectedPair DisconnectOutcome = "disconnected_pair"
	CancelledWait    DisconnectOutcome = "cancelled_wait"
	NothingToDo      DisconnectOutcome = "nothing_to_do"
)

type DisconnectResult struct {
	Outcome DisconnectOutcome
	Partner domain.UserID
	Waited  matchmaking.WaitingEntry
}

// Disconnect ends the active pair first, then cancels a wait in whichever queue holds the user.
func (o *Orchestrator) Disconnect(ctx context.Context, user domain.UserID) (DisconnectResult, error) {
	res := DisconnectResult{Outcome: NothingToDo}
	_, err := o.run(ctx, user, ActionDisconnect, func(_ time.Time, out *outbox) error {
		if partner, ok := o.state.disconnect(user); ok {
			res.Outcome, res.Partner = DisconnectedPair, partner
			out.add(partner, event.PartnerLeftPayload{Reason: event.ReasonPartnerDisconnected})
			return nil
		}
		if entry, ok := o.state.Matches.CancelWait(user); ok {
			res.Outcome, res.Waited = CancelledWait, entry
		}
		return nil
	})
	return res, err
}

// RelayReport counts the recipients of a relayed message or reaction.
type RelayReport struct {
	Recipients int
	Sent       int
	Failed     int
}

// SendMessage relays text to the partner, or to every other member of the user's group
// tagged with the sender's member number. Admins bypass the banned word filter.
func (o *Orchestrator) SendMessage(ctx context.Context, user domain.UserID, text string) (RelayReport, error) {
	var report RelayReport
	d, err := o.run(ctx, user, ActionMessage, func(_ time.Time, out *outbox) error {
		if strings.TrimSpace(text) == "" {
			return errors.ErrEmptyMessage
		}
		if !o.state.Access.IsAdmin(user) && o.state.Moderator.Contains(text) {
			return errors.ErrContentRejected
		}
		n, err := o.relay(user, out, func(group *domain.GroupID, number int) event.Payload {
			return event.MessageRelayedPayload{Text: text, GroupID: group, MemberNumber: number}
		})
		if err != nil {
			return err
		}
		o.stats.IncrMessages()
		report.Recipients = n
		return nil
	})
	report.Sent, report.Failed = d.sent, d.failed
	return report, err
}

// React relays a mood reaction the same way as a message.
func (o *Orchestrator) React(ctx context.Context, user domain.UserID, mood string) (RelayReport, error) {
	var report RelayReport
	d, err := o.run(ctx, user, ActionMessage, func(_ time.Time, out *outbox) error {
		m, err := domain.ParseMood(mood)
		if err != nil {
			return err
		}
		n, err := o.relay(user, out, func(group *domain.GroupID, number int) event.Payload {
			return event.ReactionRelayedPayload{Mood: m, GroupID: group, MemberNumber: number}
		})
		report.Recipients = n
		return err
	})
	report.Sent, report.Failed = d.sent, d.failed
	return report, err
}

// relay addresses a payload to the partner or to the other group members.
func (o *Orchestrator) relay(user domain.UserID, out *outbox,
	payload func(group *domain.GroupID, number int) event.Payload) (int, error) {
	if partner, ok := o.state.Matches.Partner(user); ok {
		out.add(partner, payload(nil, 0))
		return 1, nil
	}
	g, ok := o.state.Groups.GroupOf(user)
	if !ok {
		return 0, errors.ErrNotInConversation
	}
	id, number := g.ID, g.MemberNumber(user)
	recipients := 0
	for _, member := range g.Members {
		if member == user {
			continue
		}
		out.add(member, payload(&id, number))
		recipients++
	}
	return recipients, nil
}

// SetMode changes the preferred chat mode. It is refused while the user waits, chats or
// belongs to a group since the preference drives where the user currently is. Topic mode
// needs a topic, given now or kept from the current preference.
func (o *Orchestrator) SetMode(ctx context.Context, user domain.UserID, mode domain.ChatMode,
	topic *domain.Topic) (domain.Preference, error) {
	var pref domain.Preference
	_, err := o.run(ctx, user, ActionMode, func(time.Time, *outbox) error {
		if err := o.state.isBusy(user); err != nil {
			return err
		}
		if mode == domain.ModeTopic && topic == nil && o.state.Prefs.Get(user).Topic == nil {
			return errors.ErrTopicRequired
		}
		opts := []preference.Option{preference.WithMode(mode)}
		if topic != nil {
			opts = append(opts, preference.WithTopic(*topic))
		}
		var err error
		pref, err = o.state.Prefs.Set(user, opts...)
		return err
	})
	return pref, err
}

// Preference returns the user's current preference, creating the default one.
func (o *Orchestrator) Preference(user domain.UserID) domain.Preference {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Prefs.Get(user)
}
