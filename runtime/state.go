package runtime

import (
	"anon-chat/access"
	"anon-chat/contract"
	"anon-chat/directory"
	"anon-chat/domain"
	"anon-chat/errors"
	"anon-chat/group"
	"anon-chat/matchmaking"
	"anon-chat/moderation"
	"anon-chat/preference"
	"anon-chat/reveal"
	"anon-chat/settings"
)

// State owns every registry. It holds no lock itself: the Orchestrator serializes all access,
// so each method below runs as one indivisible unit.
type State struct {
	Prefs     *preference.Store
	Matches   *matchmaking.Registry
	Groups    *group.Registry
	Reveals   *reveal.Negotiation
	Access    *access.Policy
	Directory *directory.Directory
	Settings  settings.Settings
	Moderator *moderation.Moderator
}

// NewState wires a fresh container. Tests build one per case.
func NewState(
	selector contract.Selector,
	policy *access.Policy,
	dir *directory.Directory,
	cfg settings.Settings,
	moderator *moderation.Moderator,
	groupOpts ...group.Option,
) *State {
	prefs := preference.NewStore()
	matches := matchmaking.NewRegistry(selector)
	return &State{
		Prefs:     prefs,
		Matches:   matches,
		Groups:    group.NewRegistry(prefs, groupOpts...),
		Reveals:   reveal.NewNegotiation(matches, dir),
		Access:    policy,
		Directory: dir,
		Settings:  cfg,
		Moderator: moderator,
	}
}

// disconnect ends the user's pair: both directed entries go, pending reveals of either side are
// dropped and both preferences return to defaults.
func (s *State) disconnect(user domain.UserID) (domain.UserID, bool) {
	partner, ok := s.Matches.Disconnect(user)
	if !ok {
		return 0, false
	}
	s.Reveals.Clear(user)
	s.Reveals.Clear(partner)
	s.Prefs.Reset(user)
	s.Prefs.Reset(partner)
	return partner, true
}

// evicted describes what a ban took the user out of.
type evicted struct {
	partner    domain.UserID
	hadPartner bool
	wasWaiting bool
	leftGroup  *group.LeaveResult
}

// evict removes the user from every session structure: pair, queues and group.
func (s *State) evict(user domain.UserID) evicted {
	var res evicted
	res.partner, res.hadPartner = s.disconnect(user)
	_, res.wasWaiting = s.Matches.CancelWait(user)
	if g, ok := s.Groups.GroupOf(user); ok {
		if leave, err := s.Groups.Leave(user, g.ID); err == nil {
			res.leftGroup = &leave
		}
	}
	s.Reveals.Clear(user)
	s.Prefs.Reset(user)
	return res
}

// disconnectNonAdminPairs ends every pair where neither side is an admin.
func (s *State) disconnectNonAdminPairs() []matchmaking.Pair {
	var ended []matchmaking.Pair
	for _, pair := range s.Matches.Pairs() {
		if s.Access.IsAdmin(pair.A) || s.Access.IsAdmin(pair.B) {
			continue
		}
		s.disconnect(pair.A)
		ended = append(ended, pair)
	}
	return ended
}

// isBusy tells whether the user already waits, chats or belongs to a group.
func (s *State) isBusy(user domain.UserID) error {
	switch {
	case s.Matches.IsConnected(user):
		return errors.ErrAlreadyConnected
	case s.Matches.IsWaiting(user):
		return errors.ErrAlreadyWaiting
	}
	if _, ok := s.Groups.GroupOf(user); ok {
		return errors.ErrAlreadyInGroup
	}
	return nil
}
