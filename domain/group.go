package domain

import (
	"slices"
	"time"
)

type GroupID string

// Group is a named, capacity-bounded anonymous chat with one creator.
// Members keep their join order: a member's number is its position in that order.
type Group struct {
	ID        GroupID
	CreatorID UserID
	Members   []UserID
	Name      string
	MaxSize   int
	CreatedAt time.Time
}

func (g Group) Size() int {
	return len(g.Members)
}

func (g Group) IsFull() bool {
	return len(g.Members) >= g.MaxSize
}

func (g Group) Has(user UserID) bool {
	return slices.Contains(g.Members, user)
}

// MemberNumber is the 1-based position of user in the member ordering, 0 when absent.
func (g Group) MemberNumber(user UserID) int {
	return slices.Index(g.Members, user) + 1
}

// Clone returns a copy that does not share the member slice.
func (g Group) Clone() Group {
	g.Members = slices.Clone(g.Members)
	return g
}
