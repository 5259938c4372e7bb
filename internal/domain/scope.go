package domain

import "fmt"

// ScopeKind selects which slice of the task or project set a list call returns.
type ScopeKind string

const (
	// ScopeAll returns everything; only administrators are served this scope.
	ScopeAll ScopeKind = "all"
	// ScopeAssigned returns tasks assigned to the user.
	ScopeAssigned ScopeKind = "assigned"
	// ScopeManaged returns projects managed by the user, or tasks belonging to them.
	ScopeManaged ScopeKind = "managed"
	// ScopeCreated returns entities created by the user.
	ScopeCreated ScopeKind = "created"
)

// Scope describes list criteria for tasks and projects.
type Scope struct {
	Kind   ScopeKind
	UserID int64
}

func AllScope() Scope                  { return Scope{Kind: ScopeAll} }
func AssignedScope(userID int64) Scope { return Scope{Kind: ScopeAssigned, UserID: userID} }
func ManagedScope(userID int64) Scope  { return Scope{Kind: ScopeManaged, UserID: userID} }
func CreatedScope(userID int64) Scope  { return Scope{Kind: ScopeCreated, UserID: userID} }

// ScopeFor returns the task scope a user's primary role is entitled to.
func ScopeFor(u User) Scope {
	switch u.PrimaryRole() {
	case RoleAdmin:
		return AllScope()
	case RoleManager:
		return ManagedScope(u.ID)
	default:
		return AssignedScope(u.ID)
	}
}

func (s Scope) String() string {
	if s.Kind == ScopeAll || s.Kind == "" {
		return string(ScopeAll)
	}
	return fmt.Sprintf("%s:%d", s.Kind, s.UserID)
}
