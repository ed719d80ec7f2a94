package runtime

import (
	"anon-chat/access"
	"anon-chat/domain"
	"anon-chat/errors"
)

type Action string

// User actions
const (
	ActionConnect    Action = "connect"
	ActionDisconnect Action = "disconnect"
	ActionMessage    Action = "message"
	ActionMode       Action = "mode"
	ActionGroup      Action = "group"
	ActionReveal     Action = "reveal"
)

// Admin actions
const (
	ActionBan         Action = "ban"
	ActionUnban       Action = "unban"
	ActionBroadcast   Action = "broadcast"
	ActionMaintenance Action = "maintenance"
	ActionConfig      Action = "config"
	ActionStatus      Action = "status"
	ActionUserInfo    Action = "user_info"
	ActionAuditLog    Action = "audit_log"
)

var requiredPrivilege = map[Action]access.Privilege{
	ActionBan:         access.UserMgmt,
	ActionUnban:       access.UserMgmt,
	ActionUserInfo:    access.UserMgmt,
	ActionBroadcast:   access.Broadcast,
	ActionMaintenance: access.SystemMgmt,
	ActionConfig:      access.SystemMgmt,
	ActionStatus:      access.StatsView,
	ActionAuditLog:    access.LogsView,
}

// IsAdminAction tells whether the action needs an admin privilege.
func IsAdminAction(action Action) bool {
	_, ok := requiredPrivilege[action]
	return ok
}

// authorize is the single gate every operation goes through before touching state.
// Admin actions need the matching privilege, user actions are refused to banned users
// and, during maintenance, to everyone but admins.
func authorize(policy *access.Policy, user domain.UserID, action Action) error {
	if privilege, ok := requiredPrivilege[action]; ok {
		if !policy.IsAdmin(user) {
			return errors.ErrNotAdmin
		}
		if !policy.HasPrivilege(user, privilege) {
			return errors.ErrMissingPrivilege
		}
		return nil
	}
	if policy.IsBanned(user) {
		return errors.ErrBanned
	}
	if policy.Maintenance() && !policy.IsAdmin(user) {
		return errors.ErrMaintenance
	}
	return nil
}
