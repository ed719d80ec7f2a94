package event

import (
	"anon-chat/domain"
	"time"
)

type Kind string

const (
	MatchFound        Kind = "match_found"
	MessageRelayed    Kind = "message_relayed"
	ReactionRelayed   Kind = "reaction_relayed"
	PartnerLeft       Kind = "partner_left"
	RevealRequested   Kind = "reveal_requested"
	RevealResolved    Kind = "reveal_resolved"
	GroupJoined       Kind = "group_joined"
	GroupMemberJoined Kind = "group_member_joined"
	GroupLeft         Kind = "group_left"
	GroupDeleted      Kind = "group_deleted"
	GroupTransferred  Kind = "group_transferred"
	TimeoutWarning    Kind = "timeout_warning"
	TimeoutEvicted    Kind = "timeout_evicted"
	Broadcast         Kind = "broadcast"
	BroadcastReport   Kind = "broadcast_report"
	AccessDenied      Kind = "access_denied"
)

// Payload is the kind-specific content of a notification.
type Payload interface {
	Kind() Kind
}

// Notification is what the core asks the transport adapter to deliver to one user.
type Notification struct {
	Recipient domain.UserID
	Payload   Payload
	At        time.Time
}

func (n Notification) Kind() Kind {
	if n.Payload == nil {
		return ""
	}
	return n.Payload.Kind()
}

type MatchFoundPayload struct {
	Mode  domain.ChatMode
	Topic *domain.Topic
}

func (MatchFoundPayload) Kind() Kind { return MatchFound }

// MessageRelayedPayload carries relayed text. MemberNumber is set for group messages only.
type MessageRelayedPayload struct {
	Text         string
	GroupID      *domain.GroupID
	MemberNumber int
}

func (MessageRelayedPayload) Kind() Kind { return MessageRelayed }

type ReactionRelayedPayload struct {
	Mood         domain.Mood
	GroupID      *domain.GroupID
	MemberNumber int
}

func (ReactionRelayedPayload) Kind() Kind { return ReactionRelayed }

type PartnerLeftReason string

const (
	ReasonPartnerDisconnected PartnerLeftReason = "partner_disconnected"
	ReasonPartnerBanned       PartnerLeftReason = "partner_banned"
	ReasonMaintenance         PartnerLeftReason = "maintenance"
)

type PartnerLeftPayload struct {
	Reason PartnerLeftReason
}

func (PartnerLeftPayload) Kind() Kind { return PartnerLeft }

type RevealRequestedPayload struct {
	RequesterID domain.UserID
}

func (RevealRequestedPayload) Kind() Kind { return RevealRequested }

// RevealResolvedPayload is sent once with the final content: the counterpart's identity on accept.
type RevealResolvedPayload struct {
	Accepted bool
	Expired  bool
	Identity *domain.Identity
}

func (RevealResolvedPayload) Kind() Kind { return RevealResolved }

type GroupPayload struct {
	Group        domain.GroupID
	Name         string
	Size         int
	MaxSize      int
	MemberNumber int
	NewCreator   *domain.UserID
	kind         Kind
}

func (p GroupPayload) Kind() Kind { return p.kind }

func NewGroupPayload(kind Kind, g domain.Group, member domain.UserID) GroupPayload {
	return GroupPayload{
		Group:        g.ID,
		Name:         g.Name,
		Size:         g.Size(),
		MaxSize:      g.MaxSize,
		MemberNumber: g.MemberNumber(member),
		kind:         kind,
	}
}

func (p GroupPayload) WithNewCreator(user domain.UserID) GroupPayload {
	p.NewCreator = &user
	return p
}

type TimeoutWarningPayload struct {
	Elapsed time.Duration
	Mode    domain.ChatMode
	Topic   *domain.Topic
}

func (TimeoutWarningPayload) Kind() Kind { return TimeoutWarning }

type TimeoutEvictedPayload struct {
	Waited      time.Duration
	Mode        domain.ChatMode
	Topic       *domain.Topic
	Suggestions []string
}

func (TimeoutEvictedPayload) Kind() Kind { return TimeoutEvicted }

type BroadcastPayload struct {
	Text string
}

func (BroadcastPayload) Kind() Kind { return Broadcast }

type BroadcastReportPayload struct {
	Target string
	Total  int
	Sent   int
	Failed int
}

func (BroadcastReportPayload) Kind() Kind { return BroadcastReport }

type DenialReason string

const (
	DeniedBanned      DenialReason = "banned"
	DeniedMaintenance DenialReason = "maintenance"
)

type AccessDeniedPayload struct {
	Reason DenialReason
}

func (AccessDeniedPayload) Kind() Kind { return AccessDenied }
