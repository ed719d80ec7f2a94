package reveal

import (
	"anon-chat/domain"
	"anon-chat/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeConnections map[domain.UserID]domain.UserID

func (f fakeConnections) Partner(user domain.UserID) (domain.UserID, bool) {
	p, ok := f[user]
	return p, ok
}

type fakeIdentities struct{}

func (fakeIdentities) Identity(user domain.UserID) domain.Identity {
	return domain.Identity{ID: user, FirstName: "user", Username: "u"}
}

func newNegotiation() *Negotiation {
	return NewNegotiation(fakeConnections{1: 2, 2: 1}, fakeIdentities{})
}

func TestNegotiation_Decline_AllowsNewRequest(t *testing.T) {
	req := require.New(t)
	n := newNegotiation()

	// Given a pending request from 1 to 2
	r, err := n.Request(1, 2, start)
	req.NoError(err)
	req.Equal(domain.RevealPending, r.Status)

	// When the partner declines
	res, err := n.Respond(2, 1, false)

	// Then no identity leaks and the map is empty
	req.NoError(err)
	req.False(res.Accepted)
	req.Zero(res.Requester)
	req.Zero(res.Partner)
	req.Equal(0, n.Len())

	// And the requester can ask again
	_, err = n.Request(1, 2, start.Add(time.Second))
	req.NoError(err)
}

func TestNegotiation_Accept_ReturnsBothIdentities(t *testing.T) {
	req := require.New(t)
	n := newNegotiation()
	_, err := n.Request(1, 2, start)
	req.NoError(err)

	res, err := n.Respond(2, 1, true)

	req.NoError(err)
	req.True(res.Accepted)
	req.Equal(domain.UserID(1), res.Requester.ID)
	req.Equal(domain.UserID(2), res.Partner.ID)
	_, ok := n.Pending(1)
	req.False(ok)
}

func TestNegotiation_Request_Errors(t *testing.T) {
	req := require.New(t)
	n := newNegotiation()

	_, err := n.Request(1, 3, start)
	req.ErrorIs(err, errors.ErrNotConnected)

	_, err = n.Request(1, 2, start)
	req.NoError(err)

	// Pending is checked before the connection
	_, err = n.Request(1, 3, start)
	req.ErrorIs(err, errors.ErrRevealPending)
}

func TestNegotiation_Respond_WrongPartner(t *testing.T) {
	req := require.New(t)
	n := newNegotiation()
	_, err := n.Request(1, 2, start)
	req.NoError(err)

	_, err = n.Respond(3, 1, true)
	req.ErrorIs(err, errors.ErrNoSuchRequest)
	_, err = n.Respond(1, 2, true)
	req.ErrorIs(err, errors.ErrNoSuchRequest)
	req.Equal(1, n.Len())
}

func TestNegotiation_Clear_BothRoles(t *testing.T) {
	req := require.New(t)
	n := newNegotiation()
	_, err := n.Request(1, 2, start)
	req.NoError(err)
	_, err = n.Request(2, 1, start)
	req.NoError(err)

	cleared := n.Clear(2)

	req.Len(cleared, 2)
	req.Equal(0, n.Len())
	req.Empty(n.Clear(2))
}

func TestNegotiation_Expire(t *testing.T) {
	req := require.New(t)
	n := newNegotiation()
	_, err := n.Request(1, 2, start)
	req.NoError(err)
	_, err = n.Request(2, 1, start.Add(50*time.Second))
	req.NoError(err)

	expired := n.Expire(start.Add(61*time.Second), time.Minute)

	req.Len(expired, 1)
	req.Equal(domain.UserID(1), expired[0].RequesterID)
	_, ok := n.Pending(2)
	req.True(ok)
}
