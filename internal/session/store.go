// Package session holds the authenticated user of the running client.
//
// The store has one write path (SetSession, SetToken, Clear) and any number of
// readers. Readers that need to react to logins and logouts call Subscribe.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"project-tracker/internal/domain"
)

// Change is delivered to subscribers after every write.
// User is nil after a logout.
type Change struct {
	User *domain.User
}

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	token     string
	user      *domain.User
	expiresAt time.Time

	subs   map[int]chan Change
	nextID int

	now func() time.Time
}

// NewStore returns an empty (logged out) store.
func NewStore() *Store {
	return &Store{
		subs: make(map[int]chan Change),
		now:  time.Now,
	}
}

// SetToken replaces the session with the user described by token's claims.
func (s *Store) SetToken(token string) error {
	claims, err := DecodeUnverified(token)
	if err != nil {
		return err
	}
	s.set(token, claims.User(), claims.ExpiresAtTime())
	return nil
}

// SetSession replaces the session with an explicitly provided user.
// The expiry is still read from the token when it can be decoded.
func (s *Store) SetSession(token string, user domain.User) {
	var expiresAt time.Time
	if claims, err := DecodeUnverified(token); err == nil {
		expiresAt = claims.ExpiresAtTime()
	}
	s.set(token, user, expiresAt)
}

// Clear logs the user out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.expiresAt = time.Time{}
	s.notifyLocked()
}

func (s *Store) set(token string, user domain.User, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user.Clone()
	s.token = token
	s.user = &u
	s.expiresAt = expiresAt
	s.notifyLocked()
}

// CurrentUser returns a copy of the logged in user, or nil when there is no
// session or its token has expired.
func (s *Store) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return nil
	}
	u := s.user.Clone()
	return &u
}

// Roles returns the current user's effective roles, or nil when logged out.
func (s *Store) Roles() []domain.Role {
	u := s.CurrentUser()
	if u == nil {
		return nil
	}
	return u.EffectiveRoles()
}

// Token returns the bearer token of a valid session, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return ""
	}
	return s.token
}

func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked()
}

func (s *Store) validLocked() bool {
	if s.user == nil || s.token == "" {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}

// Subscribe returns a channel receiving the latest change and a function that
// cancels the subscription. Slow subscribers only see the most recent change.
func (s *Store) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan Change, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Store) notifyLocked() {
	var change Change
	if s.user != nil {
		u := s.user.Clone()
		change.User = &u
	}
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- change
	}
}

type persisted struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Save writes the session to path with owner-only permissions.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	state := persisted{Token: s.token, User: s.user}
	data, err := json.MarshalIndent(state, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load restores a session written by Save. A missing file leaves the store logged out.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}

	var state persisted
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	if state.Token == "" {
		s.Clear()
		return nil
	}
	if state.User == nil {
		return s.SetToken(state.Token)
	}
	s.SetSession(state.Token, *state.User)
	return nil
}

// Remove deletes a saved session file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
