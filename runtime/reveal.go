package runtime

import (
	"anon-chat/domain"
	"anon-chat/domain/event"
	"anon-chat/reveal"
	"context"
	"time"
)

// RequestReveal asks the current partner to exchange identities.
func (o *Orchestrator) RequestReveal(ctx context.Context, user domain.UserID) (domain.RevealRequest, error) {
	var r domain.RevealRequest
	_, err := o.run(ctx, user, ActionReveal, func(now time.Time, out *outbox) error {
		// An unconnected user has partner 0 and gets ErrNotConnected after the pending check
		partner, _ := o.state.Matches.Partner(user)
		var err error
		r, err = o.state.Reveals.Request(user, partner, now)
		if err != nil {
			return err
		}
		out.add(partner, event.RevealRequestedPayload{RequesterID: user})
		return nil
	})
	return r, err
}

// RespondReveal resolves the request of requester. Both sides receive the other's identity on
// accept; on decline only the requester is told.
func (o *Orchestrator) RespondReveal(ctx context.Context, user, requester domain.UserID,
	accept bool) (reveal.Resolution, error) {
	var res reveal.Resolution
	_, err := o.run(ctx, user, ActionReveal, func(_ time.Time, out *outbox) error {
		var err error
		res, err = o.state.Reveals.Respond(user, requester, accept)
		if err != nil {
			return err
		}
		if !accept {
			out.add(requester, event.RevealResolvedPayload{Accepted: false})
			return nil
		}
		partnerIdentity, requesterIdentity := res.Partner, res.Requester
		out.add(requester, event.RevealResolvedPayload{Accepted: true, Identity: &partnerIdentity})
		out.add(user, event.RevealResolvedPayload{Accepted: true, Identity: &requesterIdentity})
		return nil
	})
	return res, err
}
