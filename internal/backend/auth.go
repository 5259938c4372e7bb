package backend

import (
	"net/http"

	"project-tracker/internal/repository/rest"
	"project-tracker/internal/session"
	"project-tracker/internal/validation"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req rest.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validation.ValidateCredentials(req.Username, req.Password); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	user, err := s.store.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := session.IssueToken(s.opts.JWTSecret, *user, s.opts.TokenTTL, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("user logged in", "username", user.Username)
	writeJSON(w, http.StatusOK, rest.LoginResponse{Token: token, User: *user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}
