// ABOUTME: Role, permission, member and permission snapshot models.
// ABOUTME: Snapshot decisions are pure reads; the Evaluator adds the fetch lifecycle.

package rbac

import (
	"strings"
	"time"
)

const (
	// PermManageServer is the permission that makes a member an administrator
	PermManageServer = "manage_server"

	// ModeratorLevel is the minimum permission level of a moderator. Not configurable per server.
	ModeratorLevel = 50
)

// Well-known permission names used by the web layer
const (
	PermManageChannels = "manage_channels"
	PermManageRoles    = "manage_roles"
	PermManageMembers  = "manage_members"
)

// Permission is the status of one permission for one role or user
type Permission struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	HasPermission bool   `json:"hasPermission"`
	RequiredLevel int    `json:"required_level"`
}

// Role is a named permission bundle within a server
type Role struct {
	ID              string       `json:"id"`
	ServerID        string       `json:"server_id"`
	Name            string       `json:"name"`
	Color           string       `json:"color"`
	Description     string       `json:"description"`
	Position        int          `json:"position"`
	PermissionLevel int          `json:"permission_level"`
	DefaultRole     bool         `json:"default_role"`
	MemberCount     int          `json:"member_count"`
	Permissions     []Permission `json:"permissions"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Member is a user's membership in a server
type Member struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Avatar      string    `json:"avatar,omitempty"`
	Roles       []Role    `json:"roles"`
	JoinedAt    time.Time `json:"joined_at"`
}

// EffectiveLevel is the highest permission level across the member's roles
func (m Member) EffectiveLevel() int {
	return EffectiveLevel(m.Roles)
}

// EffectiveLevel returns the maximum permission level of roles, or 0 for none
func EffectiveLevel(roles []Role) int {
	level := 0
	for _, r := range roles {
		if r.PermissionLevel > level {
			level = r.PermissionLevel
		}
	}
	return level
}

// DefaultRole returns the server's default role, if one is marked
func DefaultRole(roles []Role) (Role, bool) {
	for _, r := range roles {
		if r.DefaultRole {
			return r, true
		}
	}
	return Role{}, false
}

// Snapshot is a point-in-time record of one viewer's permissions within one server
type Snapshot struct {
	UserPermissions    map[string]bool `json:"user_permissions"`
	UserRoles          []Role          `json:"user_roles"`
	MaxPermissionLevel int             `json:"max_permission_level"`
}

// Can reports whether the snapshot grants permission. Unknown permissions are denied.
func (s Snapshot) Can(permission string) bool {
	return s.UserPermissions[permission]
}

// HasRole reports whether any role matches name, ignoring case
func (s Snapshot) HasRole(name string) bool {
	for _, r := range s.UserRoles {
		if strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

// IsAdmin is shorthand for Can(PermManageServer)
func (s Snapshot) IsAdmin() bool {
	return s.Can(PermManageServer)
}

// IsModerator reports whether the level reaches ModeratorLevel
func (s Snapshot) IsModerator() bool {
	return s.HasPermissionLevel(ModeratorLevel)
}

// HasPermissionLevel reports whether the maximum level is at least level
func (s Snapshot) HasPermissionLevel(level int) bool {
	return s.MaxPermissionLevel >= level
}

// CanAny reports whether at least one permission is granted. False for an empty list.
func (s Snapshot) CanAny(permissions ...string) bool {
	for _, p := range permissions {
		if s.Can(p) {
			return true
		}
	}
	return false
}

// CanAll reports whether every permission is granted. True for an empty list.
func (s Snapshot) CanAll(permissions ...string) bool {
	for _, p := range permissions {
		if !s.Can(p) {
			return false
		}
	}
	return true
}

// RoleNames returns the names of the snapshot's roles
func (s Snapshot) RoleNames() []string {
	names := make([]string, 0, len(s.UserRoles))
	for _, r := range s.UserRoles {
		names = append(names, r.Name)
	}
	return names
}
