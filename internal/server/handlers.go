package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"project-tracker/internal/api"
	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/partition"
	"project-tracker/internal/validation"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type boardResponse struct {
	User     domain.User           `json:"user"`
	LoadedAt time.Time             `json:"loadedAt"`
	Counts   map[domain.Status]int `json:"counts"`
	Buckets  []partition.View      `json:"buckets"`
}

type statusResponse struct {
	Task     domain.Task      `json:"task"`
	Replaced int              `json:"replaced"`
	Buckets  []partition.Name `json:"buckets"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.NewValidationError("invalid request body", err))
		return
	}
	if err := validation.ValidateCredentials(req.Username, req.Password); err != nil {
		s.respondError(c, invalid(err))
		return
	}

	token, user, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("user logged in", "user", user.Username)
	respondSuccess(c, http.StatusOK, loginResponse{Token: token, User: *user})
}

func (s *Server) handleLogout(c *gin.Context) {
	sess, unlock := currentSession(c)
	token := sess.token
	unlock()
	s.sessions.drop(token)
	respondSuccess(c, http.StatusNoContent, nil)
}

// handleBoard returns the user's buckets. The board is loaded on first use or
// when refresh=true; bucket, status and page select what is shown.
func (s *Server) handleBoard(c *gin.Context) {
	sess, unlock := currentSession(c)
	defer unlock()

	board, err := ensureBoard(c, sess.tracker, c.Query("refresh") == "true")
	if err != nil {
		s.respondError(c, err)
		return
	}

	buckets := board.Buckets.All()
	if name := c.Query("bucket"); name != "" {
		bucket := board.Buckets.Get(partition.Name(name))
		if bucket == nil {
			s.respondError(c, apperrors.NewNotFoundError("bucket", name))
			return
		}
		buckets = []*partition.Bucket{bucket}
	}

	if raw, ok := c.GetQuery("status"); ok {
		filter, err := domain.ParseStatusFilter(raw)
		if err != nil {
			s.respondError(c, apperrors.NewInvalidInputError("status", raw, err.Error()))
			return
		}
		for _, b := range buckets {
			b.FilterByStatus(filter)
		}
	}

	if raw, ok := c.GetQuery("page"); ok {
		page, err := strconv.Atoi(raw)
		if err == nil {
			err = validation.ValidatePage(page)
		}
		if err != nil {
			s.respondError(c, apperrors.NewInvalidInputError("page", raw, "must be a positive integer"))
			return
		}
		for _, b := range buckets {
			b.SetPage(page)
		}
	}

	resp := boardResponse{
		User:     board.User,
		LoadedAt: board.LoadedAt,
		Counts:   make(map[domain.Status]int, len(domain.AllStatuses)),
		Buckets:  make([]partition.View, 0, len(buckets)),
	}
	for _, status := range domain.AllStatuses {
		resp.Counts[status] = board.Buckets.CountByStatus(status)
	}
	for _, b := range buckets {
		resp.Buckets = append(resp.Buckets, b.Snapshot())
	}
	respondSuccess(c, http.StatusOK, resp)
}

func (s *Server) handleDashboard(c *gin.Context) {
	sess, unlock := currentSession(c)
	defer unlock()

	if _, err := ensureBoard(c, sess.tracker, c.Query("refresh") == "true"); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, sess.tracker.Dashboard())
}

func (s *Server) handleTaskDetail(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	sess, unlock := currentSession(c)
	defer unlock()

	detail, err := sess.tracker.TaskDetail(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, detail)
}

func (s *Server) handleSetStatus(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.NewValidationError("invalid request body", err))
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		s.respondError(c, apperrors.NewInvalidInputError("status", req.Status, err.Error()))
		return
	}

	sess, unlock := currentSession(c)
	defer unlock()

	result, err := sess.tracker.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, statusResponse{
		Task:     result.Task,
		Replaced: result.Replaced,
		Buckets:  append([]partition.Name{}, result.Buckets...),
	})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	sess, unlock := currentSession(c)
	defer unlock()

	if err := sess.tracker.DeleteTask(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

// invalid converts validator output into an AppError.
func invalid(err error) error {
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		return ve.AsAppError()
	}
	return apperrors.NewValidationError("invalid request", err)
}

func ensureBoard(c *gin.Context, tracker api.Tracker, refresh bool) (*api.Board, error) {
	if board := tracker.Board(); board != nil && !refresh {
		return board, nil
	}
	return tracker.LoadBoard(c.Request.Context())
}
