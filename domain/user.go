// Package domain contains core concepts of the matchmaking system.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"strings"
	"time"
)

// UserID is the platform identifier of a user, opaque to the core.
type UserID int64

// Identity holds the display attributes owned by the platform.
// The core only caches them for reveal, search and broadcast targeting.
type Identity struct {
	ID        UserID
	FirstName string
	LastName  string
	Username  string
	LastSeen  time.Time
}

// DisplayName joins first and last name, falling back to the username.
func (i Identity) DisplayName() string {
	name := strings.TrimSpace(strings.Join([]string{i.FirstName, i.LastName}, " "))
	if name == "" {
		return i.Username
	}
	return name
}
