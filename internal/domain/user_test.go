package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected Role
	}{
		{"ROLE_ADMIN", RoleAdmin},
		{"admin", RoleAdmin},
		{"ROLE_ENCARGADO", RoleManager},
		{"MANAGER", RoleManager},
		{"ROLE_USER", RoleUser},
		{" user ", RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, err := ParseRole(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, role)
		})
	}

	_, err := ParseRole("ROLE_GUEST")
	assert.Error(t, err)
}

func TestParseRoles_SkipsUnknown(t *testing.T) {
	assert.Equal(t, []Role{RoleManager, RoleUser}, ParseRoles([]string{"ROLE_ENCARGADO", "ROLE_GUEST", "ROLE_USER"}))
}

func TestUser_Roles(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		primary Role
		admin   bool
		manager bool
	}{
		{name: "no roles defaults to user", user: User{}, primary: RoleUser},
		{name: "manager", user: User{Roles: []Role{RoleUser, RoleManager}}, primary: RoleManager, manager: true},
		{name: "admin wins", user: User{Roles: []Role{RoleManager, RoleAdmin}}, primary: RoleAdmin, admin: true, manager: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.primary, tt.user.PrimaryRole())
			assert.Equal(t, tt.admin, tt.user.IsAdmin())
			assert.Equal(t, tt.manager, tt.user.IsManager())
		})
	}
	assert.Equal(t, []Role{RoleUser}, User{}.EffectiveRoles())
}

func TestUser_JSONUsesWireRoleNames(t *testing.T) {
	u := User{ID: 1, Username: "ana", Roles: []Role{RoleManager}}
	out, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"roles":["ROLE_ENCARGADO"]`)

	var back User
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, []Role{RoleManager}, back.Roles)
}

func TestUser_Clone(t *testing.T) {
	u := User{ID: 1, Roles: []Role{RoleUser}}
	c := u.Clone()
	c.Roles[0] = RoleAdmin
	assert.Equal(t, RoleUser, u.Roles[0])
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, AllScope(), ScopeFor(User{ID: 1, Roles: []Role{RoleAdmin}}))
	assert.Equal(t, ManagedScope(2), ScopeFor(User{ID: 2, Roles: []Role{RoleManager}}))
	assert.Equal(t, AssignedScope(3), ScopeFor(User{ID: 3}))
	assert.Equal(t, "managed:2", ManagedScope(2).String())
	assert.Equal(t, "all", AllScope().String())
}
