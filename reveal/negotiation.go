// Package reveal runs the opt-in identity disclosure handshake between two connected users.
// Each requester is either absent or pending; there is no terminal state.
package reveal

import (
	"anon-chat/domain"
	"anon-chat/errors"
	"slices"
	"time"
)

type ConnectionLookup interface {
	Partner(user domain.UserID) (domain.UserID, bool)
}

type IdentityLookup interface {
	Identity(user domain.UserID) domain.Identity
}

// Resolution is the outcome of a response. Identities are only filled on accept.
type Resolution struct {
	Request   domain.RevealRequest
	Accepted  bool
	Requester domain.Identity
	Partner   domain.Identity
}

// Negotiation is not safe for concurrent use: the runtime serializes every access.
type Negotiation struct {
	pending     map[domain.UserID]domain.RevealRequest
	connections ConnectionLookup
	identities  IdentityLookup
}

func NewNegotiation(connections ConnectionLookup, identities IdentityLookup) *Negotiation {
	return &Negotiation{
		pending:     make(map[domain.UserID]domain.RevealRequest),
		connections: connections,
		identities:  identities,
	}
}

func (n *Negotiation) Request(requester, partner domain.UserID, now time.Time) (domain.RevealRequest, error) {
	if _, ok := n.pending[requester]; ok {
		return domain.RevealRequest{}, errors.ErrRevealPending
	}
	current, ok := n.connections.Partner(requester)
	if !ok || current != partner {
		return domain.RevealRequest{}, errors.ErrNotConnected
	}
	r := domain.RevealRequest{
		RequesterID: requester,
		PartnerID:   partner,
		Status:      domain.RevealPending,
		CreatedAt:   now,
	}
	n.pending[requester] = r
	return r, nil
}

// Respond resolves the requester's pending request. Only the targeted partner can answer.
func (n *Negotiation) Respond(partner, requester domain.UserID, accept bool) (Resolution, error) {
	r, ok := n.pending[requester]
	if !ok || r.PartnerID != partner {
		return Resolution{}, errors.ErrNoSuchRequest
	}
	delete(n.pending, requester)
	res := Resolution{Request: r, Accepted: accept}
	if accept {
		res.Requester = n.identities.Identity(requester)
		res.Partner = n.identities.Identity(partner)
	}
	return res, nil
}

// Clear drops every request where the user is requester or partner.
func (n *Negotiation) Clear(user domain.UserID) []domain.RevealRequest {
	var cleared []domain.RevealRequest
	for requester, r := range n.pending {
		if requester == user || r.PartnerID == user {
			cleared = append(cleared, r)
			delete(n.pending, requester)
		}
	}
	return cleared
}

// Expire drops the requests older than ttl and returns them oldest first.
func (n *Negotiation) Expire(now time.Time, ttl time.Duration) []domain.RevealRequest {
	var expired []domain.RevealRequest
	for requester, r := range n.pending {
		if now.Sub(r.CreatedAt) > ttl {
			expired = append(expired, r)
			delete(n.pending, requester)
		}
	}
	slices.SortFunc(expired, func(a, b domain.RevealRequest) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return expired
}

func (n *Negotiation) Pending(requester domain.UserID) (domain.RevealRequest, bool) {
	r, ok := n.pending[requester]
	return r, ok
}

func (n *Negotiation) Len() int {
	return len(n.pending)
}
