package backend

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/permission"
	"project-tracker/internal/repository"
	"project-tracker/internal/session"
)

// authenticate verifies the bearer token and loads the current user record,
// so role changes apply without waiting for the token to expire.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.writeError(w, r, apperrors.NewUnauthenticatedError(r.URL.Path))
			return
		}

		claims, err := session.VerifyToken(s.opts.JWTSecret, strings.TrimSpace(token))
		if err != nil {
			s.logger.Debug("rejected token", "error", err)
			s.writeError(w, r, apperrors.NewUnauthenticatedError(r.URL.Path))
			return
		}

		user, err := s.store.GetUser(r.Context(), claims.UserID)
		if err != nil {
			if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
				err = apperrors.NewUnauthenticatedError(r.URL.Path)
			}
			s.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(repository.WithActor(r.Context(), user)))
	})
}

// currentUser returns the user set by authenticate.
func currentUser(r *http.Request) *domain.User {
	return repository.ActorFrom(r.Context())
}

// requireRole guards a handler with permission.CanAccess.
func (s *Server) requireRole(h http.HandlerFunc, roles ...domain.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !permission.CanAccess(currentUser(r), roles...) {
			s.writeError(w, r, apperrors.NewPermissionError(r.Method, r.URL.Path))
			return
		}
		h(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// observe records request metrics by route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.ObserveRequest(route, r.Method, rec.status, time.Since(start))
		s.logger.Debug("request", "method", r.Method, "route", route, "status", rec.status, "elapsed", time.Since(start))
	})
}
