// Package access holds the process-wide gating state: bans, maintenance and admin privileges.
package access

import (
	"anon-chat/domain"
	"anon-chat/errors"
	"slices"
	"strings"

	"github.com/samber/lo"
)

type Privilege string

const (
	Broadcast  Privilege = "broadcast"
	UserMgmt   Privilege = "user_mgmt"
	SystemMgmt Privilege = "system_mgmt"
	StatsView  Privilege = "stats_view"
	LogsView   Privilege = "logs_view"
)

// AllPrivileges is what an admin gets when nothing narrower is configured.
var AllPrivileges = []Privilege{Broadcast, UserMgmt, SystemMgmt, StatsView, LogsView}

func ParsePrivilege(s string) (Privilege, error) {
	p := Privilege(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(AllPrivileges, p) {
		return "", errors.ErrInvalidSetting
	}
	return p, nil
}

// ParsePrivileges reads a comma separated list, an empty string meaning every privilege.
func ParsePrivileges(s string) ([]Privilege, error) {
	if strings.TrimSpace(s) == "" {
		return slices.Clone(AllPrivileges), nil
	}
	var out []Privilege
	for _, part := range strings.Split(s, ",") {
		p, err := ParsePrivilege(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return lo.Uniq(out), nil
}

// Policy is not safe for concurrent use: the runtime serializes every access.
// The cascades of Ban and SetMaintenance on sessions are composed by the runtime.
type Policy struct {
	banned      map[domain.UserID]struct{}
	admins      map[domain.UserID]map[Privilege]struct{}
	maintenance bool
}

// NewPolicy registers every admin with the same initial privileges.
func NewPolicy(admins []domain.UserID, privileges []Privilege) *Policy {
	p := &Policy{
		banned: make(map[domain.UserID]struct{}),
		admins: make(map[domain.UserID]map[Privilege]struct{}),
	}
	for _, admin := range admins {
		p.admins[admin] = make(map[Privilege]struct{})
		p.Grant(admin, privileges...)
	}
	return p
}

func (p *Policy) IsBanned(user domain.UserID) bool {
	_, ok := p.banned[user]
	return ok
}

func (p *Policy) IsAdmin(user domain.UserID) bool {
	_, ok := p.admins[user]
	return ok
}

func (p *Policy) HasPrivilege(admin domain.UserID, privilege Privilege) bool {
	privileges, ok := p.admins[admin]
	if !ok {
		return false
	}
	_, ok = privileges[privilege]
	return ok
}

// Grant is a no-op for users that are not admins.
func (p *Policy) Grant(admin domain.UserID, privileges ...Privilege) {
	set, ok := p.admins[admin]
	if !ok {
		return
	}
	for _, privilege := range privileges {
		set[privilege] = struct{}{}
	}
}

func (p *Policy) Revoke(admin domain.UserID, privileges ...Privilege) {
	set, ok := p.admins[admin]
	if !ok {
		return
	}
	for _, privilege := range privileges {
		delete(set, privilege)
	}
}

func (p *Policy) Privileges(admin domain.UserID) []Privilege {
	return lo.Filter(AllPrivileges, func(privilege Privilege, _ int) bool {
		return p.HasPrivilege(admin, privilege)
	})
}

func (p *Policy) Admins() []domain.UserID {
	admins := lo.Keys(p.admins)
	slices.Sort(admins)
	return admins
}

// Ban returns ErrAlreadyBanned when the user was already in the set.
func (p *Policy) Ban(user domain.UserID) error {
	if p.IsBanned(user) {
		return errors.ErrAlreadyBanned
	}
	p.banned[user] = struct{}{}
	return nil
}

// Unban only removes the user from the set, prior session state is not restored.
func (p *Policy) Unban(user domain.UserID) error {
	if !p.IsBanned(user) {
		return errors.ErrNotBanned
	}
	delete(p.banned, user)
	return nil
}

func (p *Policy) Banned() []domain.UserID {
	banned := lo.Keys(p.banned)
	slices.Sort(banned)
	return banned
}

func (p *Policy) SetMaintenance(enabled bool) {
	p.maintenance = enabled
}

func (p *Policy) Maintenance() bool {
	return p.maintenance
}
