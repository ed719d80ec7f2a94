package domain

import "time"

type RevealStatus string

const RevealPending RevealStatus = "pending"

// RevealRequest is an outstanding identity-reveal request keyed by its requester.
type RevealRequest struct {
	RequesterID UserID
	PartnerID   UserID
	Status      RevealStatus
	CreatedAt   time.Time
}
