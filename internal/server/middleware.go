package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "project-tracker/internal/errors"
)

// requestID tags every request with an id, reusing the caller's when given.
func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Set(requestIDHeader, id)
	c.Header(requestIDHeader, id)
	c.Next()
}

// observe records request metrics by route template.
func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	s.metrics.ObserveRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	s.logger.Debug("request",
		"method", c.Request.Method,
		"route", route,
		"status", c.Writer.Status(),
		"request_id", c.GetString(requestIDHeader),
		"elapsed", time.Since(start))
}

// authenticate resolves the bearer token into a session.
func (s *Server) authenticate(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		s.respondError(c, apperrors.NewUnauthenticatedError("missing bearer token"))
		return
	}

	user, err := s.auth.Identify(c.Request.Context(), token)
	if err != nil {
		s.sessions.drop(token)
		s.respondError(c, err)
		return
	}

	sess, err := s.sessions.get(token, *user)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// currentSession returns the session attached by authenticate, locked. The
// caller must call the returned unlock function.
func currentSession(c *gin.Context) (*session, func()) {
	sess := c.MustGet(sessionKey).(*session)
	sess.mu.Lock()
	return sess, sess.mu.Unlock
}
