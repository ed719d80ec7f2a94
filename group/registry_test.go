package group

import (
	"anon-chat/domain"
	"anon-chat/errors"
	"anon-chat/preference"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func(time.Time) domain.GroupID {
		n++
		return domain.GroupID(fmt.Sprintf("grp_%d", n))
	})
}

func TestRegistry_CreateJoinLeave_RoundTrip(t *testing.T) {
	req := require.New(t)
	prefs := preference.NewStore()
	registry := NewRegistry(prefs, sequentialIDs())
	creator, other := domain.UserID(1), domain.UserID(2)

	// Given a group of five created by creator and joined by other
	g, err := registry.Create(creator, "X", 5, start)
	req.NoError(err)
	req.Equal([]domain.UserID{creator}, g.Members)
	req.Equal(domain.ModeGroup, prefs.Get(creator).Mode)
	req.Equal(g.ID, *prefs.Get(creator).GroupID)

	g, err = registry.Join(other, g.ID)
	req.NoError(err)
	req.Equal(2, g.Size())
	req.Equal(2, g.MemberNumber(other))
	req.Equal(g.ID, *prefs.Get(other).GroupID)

	// When the creator leaves
	res, err := registry.Leave(creator, g.ID)

	// Then the role is transferred to the remaining member
	req.NoError(err)
	req.Equal(Transferred, res.Outcome)
	req.Equal(other, res.NewCreator)
	req.Equal(other, res.Group.CreatorID)
	req.Equal(domain.DefaultPreference(), prefs.Get(creator))

	// When the last member leaves
	res, err = registry.Leave(other, g.ID)

	// Then the group is gone
	req.NoError(err)
	req.Equal(Deleted, res.Outcome)
	req.Equal(0, registry.Count())
	_, ok := registry.Get(g.ID)
	req.False(ok)
	req.Equal(domain.DefaultPreference(), prefs.Get(other))
}

func TestRegistry_Leave_PlainMember(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(preference.NewStore(), sequentialIDs())
	g, err := registry.Create(1, "club", 3, start)
	req.NoError(err)
	_, err = registry.Join(2, g.ID)
	req.NoError(err)
	_, err = registry.Join(3, g.ID)
	req.NoError(err)

	res, err := registry.Leave(2, g.ID)

	req.NoError(err)
	req.Equal(Left, res.Outcome)
	req.Equal(domain.UserID(1), res.Group.CreatorID)
	// Member numbers follow the remaining order
	req.Equal(2, res.Group.MemberNumber(3))
}

func TestRegistry_Join_Errors(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(preference.NewStore(), sequentialIDs())
	g, err := registry.Create(1, "duo", 2, start)
	req.NoError(err)

	_, err = registry.Join(2, "grp_missing")
	req.ErrorIs(err, errors.ErrGroupNotFound)

	_, err = registry.Join(1, g.ID)
	req.ErrorIs(err, errors.ErrAlreadyInGroup)

	_, err = registry.Join(2, g.ID)
	req.NoError(err)

	// When the group is at capacity
	_, err = registry.Join(3, g.ID)

	// Then the join is refused and membership is unchanged
	req.ErrorIs(err, errors.ErrGroupFull)
	_, ok := registry.GroupOf(3)
	req.False(ok)
	g, _ = registry.Get(g.ID)
	req.Equal(2, g.Size())
}

func TestRegistry_Leave_Errors(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(preference.NewStore(), sequentialIDs())
	g, err := registry.Create(1, "solo", 4, start)
	req.NoError(err)

	_, err = registry.Leave(2, g.ID)
	req.ErrorIs(err, errors.ErrNotAMember)

	_, err = registry.Leave(1, "grp_missing")
	req.ErrorIs(err, errors.ErrGroupNotFound)
}

func TestRegistry_ListJoinable_IsRecomputed(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(preference.NewStore(), sequentialIDs())
	first, err := registry.Create(1, "first", 2, start)
	req.NoError(err)
	second, err := registry.Create(2, "second", 5, start.Add(time.Minute))
	req.NoError(err)

	seq := registry.ListJoinable()
	req.Equal([]domain.GroupID{first.ID, second.ID}, ids(seq))

	// When the first group fills up
	_, err = registry.Join(3, first.ID)
	req.NoError(err)

	// Then ranging the same sequence again reflects the change
	req.Equal([]domain.GroupID{second.ID}, ids(seq))
}

func TestRegistry_ListJoinable_StopsEarly(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(preference.NewStore(), sequentialIDs())
	for i := range 3 {
		_, err := registry.Create(domain.UserID(i+1), "g", 5, start.Add(time.Duration(i)*time.Second))
		req.NoError(err)
	}

	count := 0
	for range registry.ListJoinable() {
		count++
		break
	}
	req.Equal(1, count)
	req.Equal([]domain.UserID{1, 2, 3}, registry.Members())
}

func TestNewID_Format(t *testing.T) {
	req := require.New(t)
	id := NewID(start)
	req.Regexp(`^grp_\d+_[0-9a-f]{8}$`, string(id))
	req.NotEqual(id, NewID(start))
}

func ids(seq iter.Seq[domain.Group]) []domain.GroupID {
	var out []domain.GroupID
	for g := range seq {
		out = append(out, g.ID)
	}
	return out
}
