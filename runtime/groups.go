package runtime

import (
	"anon-chat/domain"
	"anon-chat/domain/event"
	"anon-chat/errors"
	"anon-chat/group"
	"context"
	"slices"
	"strings"
	"time"
)

const maxGroupNameLength = 64

// CreateGroup opens a new group sized with the current max_group_size setting.
func (o *Orchestrator) CreateGroup(ctx context.Context, user domain.UserID, name string) (domain.Group, error) {
	var res ConnectResult
	_, err := o.run(ctx, user, ActionGroup, func(now time.Time, out *outbox) error {
		if err := o.state.isBusy(user); err != nil {
			return err
		}
		g, err := o.state.Groups.Create(user, groupName(name, o.cfg.DefaultGroupName),
			o.state.Settings.MaxGroupSize, now)
		if err != nil {
			return err
		}
		o.stats.IncrGroupsCreated()
		res.Group = g
		out.add(user, event.NewGroupPayload(event.GroupJoined, g, user))
		return nil
	})
	return res.Group, err
}

func (o *Orchestrator) JoinGroup(ctx context.Context, user domain.UserID, id domain.GroupID) (domain.Group, error) {
	var res ConnectResult
	_, err := o.run(ctx, user, ActionGroup, func(_ time.Time, out *outbox) error {
		if err := o.state.isBusy(user); err != nil {
			return err
		}
		return o.joinGroup(user, id, out, &res)
	})
	return res.Group, err
}

// LeaveGroup removes the user from its group and tells the remaining members.
func (o *Orchestrator) LeaveGroup(ctx context.Context, user domain.UserID) (group.LeaveResult, error) {
	var res group.LeaveResult
	_, err := o.run(ctx, user, ActionGroup, func(_ time.Time, out *outbox) error {
		g, ok := o.state.Groups.GroupOf(user)
		if !ok {
			return errors.ErrNotAMember
		}
		var err error
		res, err = o.state.Groups.Leave(user, g.ID)
		if err != nil {
			return err
		}
		o.announceLeave(user, g, res, out)
		return nil
	})
	return res, err
}

// announceLeave notifies the leaving user and what remains of the group.
func (o *Orchestrator) announceLeave(user domain.UserID, before domain.Group, res group.LeaveResult, out *outbox) {
	if res.Outcome == group.Deleted {
		out.add(user, event.NewGroupPayload(event.GroupDeleted, before, user))
		return
	}
	// The leaver is no longer a member of the remaining group, so its member number is 0
	out.add(user, event.NewGroupPayload(event.GroupLeft, res.Group, user))
	o.announceRemaining(res, out)
}

// announceRemaining tells the members still in the group who left and who leads it now.
func (o *Orchestrator) announceRemaining(res group.LeaveResult, out *outbox) {
	if res.Outcome == group.Deleted {
		return
	}
	for _, member := range res.Group.Members {
		payload := event.NewGroupPayload(event.GroupLeft, res.Group, member)
		if res.Outcome == group.Transferred {
			payload = event.NewGroupPayload(event.GroupTransferred, res.Group, member).WithNewCreator(res.NewCreator)
		}
		out.add(member, payload)
	}
}

// ListGroups returns the groups that still have room, oldest first.
func (o *Orchestrator) ListGroups(ctx context.Context, user domain.UserID) ([]domain.Group, error) {
	var groups []domain.Group
	_, err := o.run(ctx, user, ActionGroup, func(time.Time, *outbox) error {
		groups = slices.Collect(o.state.Groups.ListJoinable())
		return nil
	})
	return groups, err
}

func groupName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if r := []rune(name); len(r) > maxGroupNameLength {
		return string(r[:maxGroupNameLength])
	}
	return name
}
