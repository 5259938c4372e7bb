package domain

import "time"

// User is an authenticated principal of the tracker.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Roles     []Role    `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// EffectiveRoles returns the user's roles, defaulting to USER when none were assigned.
func (u User) EffectiveRoles() []Role {
	if len(u.Roles) == 0 {
		return []Role{RoleUser}
	}
	return u.Roles
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role Role) bool {
	for _, r := range u.EffectiveRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// PrimaryRole is the most privileged role the user holds.
// ADMIN wins over MANAGER, which wins over USER.
func (u User) PrimaryRole() Role {
	switch {
	case u.HasRole(RoleAdmin):
		return RoleAdmin
	case u.HasRole(RoleManager):
		return RoleManager
	default:
		return RoleUser
	}
}

func (u User) IsAdmin() bool   { return u.HasRole(RoleAdmin) }
func (u User) IsManager() bool { return u.HasRole(RoleManager) }

// Clone returns a copy that shares no memory with u.
func (u User) Clone() User {
	u.Roles = append([]Role(nil), u.Roles...)
	return u
}
