// Package group manages anonymous multi-party chats: membership, creator role and capacity.
package group

import (
	"anon-chat/domain"
	"anon-chat/errors"
	"anon-chat/preference"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Outcome string

const (
	Left        Outcome = "left"
	Transferred Outcome = "transferred"
	Deleted     Outcome = "deleted"
)

// LeaveResult describes what happened to the group after a member left.
// Group is the state after the departure, meaningless when Outcome is Deleted.
type LeaveResult struct {
	Outcome    Outcome
	Group      domain.Group
	NewCreator domain.UserID
}

// Registry keeps the groups and a reverse member index. A user belongs to at most one group.
// Registry is not safe for concurrent use: the runtime serializes every access.
type Registry struct {
	groups   map[domain.GroupID]*domain.Group
	memberOf map[domain.UserID]domain.GroupID
	prefs    *preference.Store
	newID    func(now time.Time) domain.GroupID
}

type Option func(r *Registry)

// WithIDGenerator overrides group id allocation, mostly for tests.
func WithIDGenerator(gen func(now time.Time) domain.GroupID) Option {
	return func(r *Registry) {
		r.newID = gen
	}
}

func NewRegistry(prefs *preference.Store, opts ...Option) *Registry {
	r := &Registry{
		groups:   make(map[domain.GroupID]*domain.Group),
		memberOf: make(map[domain.UserID]domain.GroupID),
		prefs:    prefs,
		newID:    NewID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewID builds ids like grp_1700000000_1a2b3c4d.
func NewID(now time.Time) domain.GroupID {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return domain.GroupID(fmt.Sprintf("grp_%d_%s", now.Unix(), suffix))
}

// Create allocates a fresh group with the creator as its only member
// and moves the creator's preference to group mode.
func (r *Registry) Create(creator domain.UserID, name string, maxSize int, now time.Time) (domain.Group, error) {
	if _, ok := r.memberOf[creator]; ok {
		return domain.Group{}, errors.ErrAlreadyInGroup
	}
	id := r.newID(now)
	for r.groups[id] != nil {
		id = r.newID(now)
	}
	g := &domain.Group{
		ID:        id,
		CreatorID: creator,
		Members:   []domain.UserID{creator},
		Name:      name,
		MaxSize:   maxSize,
		CreatedAt: now,
	}
	r.groups[id] = g
	r.memberOf[creator] = id
	r.setGroupPreference(creator, id)
	return g.Clone(), nil
}

func (r *Registry) Join(user domain.UserID, id domain.GroupID) (domain.Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return domain.Group{}, errors.ErrGroupNotFound
	}
	if _, ok := r.memberOf[user]; ok {
		return domain.Group{}, errors.ErrAlreadyInGroup
	}
	if g.IsFull() {
		return domain.Group{}, errors.ErrGroupFull
	}
	g.Members = append(g.Members, user)
	r.memberOf[user] = id
	r.setGroupPreference(user, id)
	return g.Clone(), nil
}

// Leave removes the user. The group is destroyed when it becomes empty, otherwise a departing
// creator hands the role to the earliest remaining member. The user's preference is reset in every case.
func (r *Registry) Leave(user domain.UserID, id domain.GroupID) (LeaveResult, error) {
	g, ok := r.groups[id]
	if !ok {
		return LeaveResult{}, errors.ErrGroupNotFound
	}
	i := slices.Index(g.Members, user)
	if i < 0 {
		return LeaveResult{}, errors.ErrNotAMember
	}
	g.Members = slices.Delete(g.Members, i, i+1)
	delete(r.memberOf, user)
	r.prefs.Reset(user)

	if len(g.Members) == 0 {
		delete(r.groups, id)
		return LeaveResult{Outcome: Deleted, Group: g.Clone()}, nil
	}
	if g.CreatorID == user {
		g.CreatorID = g.Members[0]
		return LeaveResult{Outcome: Transferred, Group: g.Clone(), NewCreator: g.CreatorID}, nil
	}
	return LeaveResult{Outcome: Left, Group: g.Clone()}, nil
}

// ListJoinable yields the non-full groups ordered by creation time.
// The sequence is recomputed on every range so it never observes a stale registry.
func (r *Registry) ListJoinable() iter.Seq[domain.Group] {
	return func(yield func(domain.Group) bool) {
		for _, g := range r.sorted() {
			if g.IsFull() {
				continue
			}
			if !yield(g.Clone()) {
				return
			}
		}
	}
}

func (r *Registry) Get(id domain.GroupID) (domain.Group, bool) {
	g, ok := r.groups[id]
	if !ok {
		return domain.Group{}, false
	}
	return g.Clone(), true
}

// GroupOf returns the group the user belongs to.
func (r *Registry) GroupOf(user domain.UserID) (domain.Group, bool) {
	id, ok := r.memberOf[user]
	if !ok {
		return domain.Group{}, false
	}
	return r.Get(id)
}

// Members lists every user that belongs to some group.
func (r *Registry) Members() []domain.UserID {
	users := lo.Keys(r.memberOf)
	slices.Sort(users)
	return users
}

func (r *Registry) Count() int {
	return len(r.groups)
}

func (r *Registry) sorted() []domain.Group {
	groups := lo.MapToSlice(r.groups, func(_ domain.GroupID, g *domain.Group) domain.Group {
		return *g
	})
	slices.SortFunc(groups, func(a, b domain.Group) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return groups
}

func (r *Registry) setGroupPreference(user domain.UserID, id domain.GroupID) {
	// WithMode and WithGroup cannot fail for these values
	_, _ = r.prefs.Set(user, preference.WithMode(domain.ModeGroup), preference.WithGroup(id))
}
