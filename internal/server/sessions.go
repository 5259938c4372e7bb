package server

import (
	"slices"
	"sync"
	"time"

	"project-tracker/internal/api"
	"project-tracker/internal/domain"
	tokens "project-tracker/internal/session"
)

const (
	// sessionIdleTimeout evicts sessions whose token carries no expiry.
	sessionIdleTimeout = 12 * time.Hour
	sweepInterval      = time.Minute
)

// session owns the tracker of one browser login. Handlers hold mu for the
// whole request so bucket state is never shared between two requests.
type session struct {
	mu        sync.Mutex
	token     string
	user      domain.User
	tracker   api.Tracker
	expiresAt time.Time
	lastUsed  time.Time
}

func (s *session) expired(now time.Time) bool {
	if !s.expiresAt.IsZero() && !now.Before(s.expiresAt) {
		return true
	}
	return now.Sub(s.lastUsed) >= sessionIdleTimeout
}

// sessions maps bearer tokens to their session. Expired and idle sessions
// are swept at most once per sweepInterval.
type sessions struct {
	factory TrackerFactory
	now     func() time.Time

	mu        sync.Mutex
	byToken   map[string]*session
	nextSweep time.Time
}

func newSessions(factory TrackerFactory) *sessions {
	return &sessions{factory: factory, now: time.Now, byToken: make(map[string]*session)}
}

// get returns the session for token, creating it on first use. A cached
// session is rebuilt when the token now identifies a different user or role set.
func (s *sessions) get(token string, user domain.User) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	if existing, ok := s.byToken[token]; ok && sameIdentity(existing.user, user) {
		existing.lastUsed = now
		return existing, nil
	}
	tracker, err := s.factory(token, user)
	if err != nil {
		return nil, err
	}
	created := &session{token: token, user: user.Clone(), tracker: tracker, lastUsed: now}
	if claims, err := tokens.DecodeUnverified(token); err == nil {
		created.expiresAt = claims.ExpiresAtTime()
	}
	s.byToken[token] = created
	return created, nil
}

func sameIdentity(a, b domain.User) bool {
	return a.ID == b.ID && slices.Equal(a.EffectiveRoles(), b.EffectiveRoles())
}

func (s *sessions) sweepLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	s.nextSweep = now.Add(sweepInterval)
	for token, sess := range s.byToken {
		if sess.expired(now) {
			delete(s.byToken, token)
		}
	}
}

func (s *sessions) drop(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byToken, token)
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byToken)
}
