package domain

import (
	"fmt"
	"strings"
)

// Role is an authorization role carried by a user session.
type Role string

const (
	RoleUser    Role = "USER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// AllRoles lists the roles in ascending order of privilege.
var AllRoles = []Role{RoleUser, RoleManager, RoleAdmin}

// ParseRole accepts both the short names and the ROLE_* names used on the wire.
// Managers are called ENCARGADO by the REST API.
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "ROLE_")
	switch name {
	case "USER":
		return RoleUser, nil
	case "MANAGER", "ENCARGADO":
		return RoleManager, nil
	case "ADMIN":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// WireName returns the name the REST API uses for the role.
func (r Role) WireName() string {
	switch r {
	case RoleManager:
		return "ROLE_ENCARGADO"
	case RoleAdmin:
		return "ROLE_ADMIN"
	default:
		return "ROLE_USER"
	}
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// MarshalText encodes the role with its wire name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.WireName()), nil
}

// UnmarshalText decodes any name accepted by ParseRole.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRoles parses a list of role names, skipping unknown entries.
func ParseRoles(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		if role, err := ParseRole(name); err == nil {
			roles = append(roles, role)
		}
	}
	return roles
}
