package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error at the operation boundary so the adapter can pick the right notice.
type Kind string

const (
	KindPolicyDenied    Kind = "policy_denied"
	KindStateConflict   Kind = "state_conflict"
	KindNotFound        Kind = "not_found"
	KindDeliveryFailure Kind = "delivery_failure"
	KindInvalid         Kind = "invalid"
)

// Error is a sentinel carrying its Kind.
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

func newError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)

// Policy
var (
	ErrBanned           = newError(KindPolicyDenied, "user is banned")
	ErrMaintenance      = newError(KindPolicyDenied, "maintenance mode is enabled")
	ErrNotAdmin         = newError(KindPolicyDenied, "user is not an admin")
	ErrMissingPrivilege = newError(KindPolicyDenied, "admin lacks the required privilege")
	ErrContentRejected  = newError(KindPolicyDenied, "message contains banned words")
	ErrAdminTarget      = newError(KindPolicyDenied, "admins cannot be banned")
)

// State conflicts
var (
	ErrAlreadyWaiting    = newError(KindStateConflict, "user is already waiting")
	ErrAlreadyConnected  = newError(KindStateConflict, "user is already connected")
	ErrAlreadyInGroup    = newError(KindStateConflict, "user is already in a group")
	ErrRevealPending     = newError(KindStateConflict, "a reveal request is already pending")
	ErrNotConnected      = newError(KindStateConflict, "users are not connected")
	ErrNotAMember        = newError(KindStateConflict, "user is not a member of the group")
	ErrGroupFull         = newError(KindStateConflict, "group is full")
	ErrSelfMatch         = newError(KindStateConflict, "a user cannot be matched with themself")
	ErrNotInConversation = newError(KindStateConflict, "user is not in a conversation")
	ErrTopicRequired     = newError(KindStateConflict, "topic mode requires a topic")
	ErrAlreadyBanned     = newError(KindStateConflict, "user is already banned")
	ErrNotBanned         = newError(KindStateConflict, "user is not banned")
)

// Not found
var (
	ErrGroupNotFound = newError(KindNotFound, "group not found")
	ErrNoSuchRequest = newError(KindNotFound, "no such reveal request")
	ErrUserNotFound  = newError(KindNotFound, "user not found")
)

// Invalid input
var (
	ErrUnknownTopic   = newError(KindInvalid, "unknown topic")
	ErrUnknownMode    = newError(KindInvalid, "unknown chat mode")
	ErrUnknownSetting = newError(KindInvalid, "unknown setting")
	ErrInvalidSetting = newError(KindInvalid, "invalid setting value")
	ErrUnknownTarget  = newError(KindInvalid, "unknown broadcast target")
	ErrEmptyMessage   = newError(KindInvalid, "message is empty")
	ErrUnknownMood    = newError(KindInvalid, "unknown reaction")
)

// ErrDelivery wraps a transport failure for one recipient.
var ErrDelivery = newError(KindDeliveryFailure, "delivery failed")

// KindOf returns the Kind of the first classified error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.kind
	}
	return ""
}

// Is re-exports the standard helper so callers need a single errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }
