package runtime

import (
	"anon-chat/access"
	"anon-chat/domain"
	"anon-chat/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	const (
		admin      domain.UserID = 1
		viewer     domain.UserID = 2
		user       domain.UserID = 3
		bannedUser domain.UserID = 4
	)

	tests := []struct {
		name        string
		maintenance bool
		user        domain.UserID
		action      Action
		wantErr     error
	}{
		{"user connects", false, user, ActionConnect, nil},
		{"banned user connects", false, bannedUser, ActionConnect, errors.ErrBanned},
		{"user during maintenance", true, user, ActionMessage, errors.ErrMaintenance},
		{"admin during maintenance", true, admin, ActionConnect, nil},
		{"banned wins over maintenance", true, bannedUser, ActionConnect, errors.ErrBanned},
		{"user tries to ban", false, user, ActionBan, errors.ErrNotAdmin},
		{"admin bans", false, admin, ActionBan, nil},
		{"viewer bans", false, viewer, ActionBan, errors.ErrMissingPrivilege},
		{"viewer reads status", false, viewer, ActionStatus, nil},
		{"admin actions ignore maintenance", true, admin, ActionMaintenance, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			// Given an admin with every privilege and a viewer without user management
			policy := access.NewPolicy([]domain.UserID{admin, viewer}, access.AllPrivileges)
			policy.Revoke(viewer, access.UserMgmt)
			req.NoError(policy.Ban(bannedUser))
			policy.SetMaintenance(tt.maintenance)

			err := authorize(policy, tt.user, tt.action)

			if tt.wantErr == nil {
				req.NoError(err)
				return
			}
			req.ErrorIs(err, tt.wantErr)
		})
	}
}

func TestIsAdminAction(t *testing.T) {
	req := require.New(t)
	req.True(IsAdminAction(ActionBroadcast))
	req.False(IsAdminAction(ActionReveal))
}
