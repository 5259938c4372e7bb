package backend

import (
	"context"
	"net/http"
	"strconv"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/permission"
	"project-tracker/internal/repository/rest"
	"project-tracker/internal/validation"
)

// requestedScope reads ?scope=&user= and checks that the caller may list it.
// Only administrators may list everything or another user's slice.
func requestedScope(r *http.Request, user *domain.User) (domain.Scope, error) {
	q := r.URL.Query()
	kind := domain.ScopeKind(q.Get("scope"))

	if kind == "" || kind == domain.ScopeAll {
		if !user.IsAdmin() {
			return domain.Scope{}, apperrors.NewPermissionError("list", "all records")
		}
		return domain.AllScope(), nil
	}

	switch kind {
	case domain.ScopeAssigned, domain.ScopeManaged, domain.ScopeCreated:
	default:
		return domain.Scope{}, apperrors.NewInvalidInputError("scope", kind, "unknown scope")
	}

	userID := user.ID
	if raw := q.Get("user"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.Scope{}, apperrors.NewInvalidInputError("user", raw, "must be an integer")
		}
		userID = id
	}
	if userID != user.ID && !user.IsAdmin() {
		return domain.Scope{}, apperrors.NewPermissionError("list", "another user's records")
	}
	return domain.Scope{Kind: kind, UserID: userID}, nil
}

// enrich resolves the project manager the permission rules need. A failed
// lookup leaves the manager unset.
func (s *Server) enrich(ctx context.Context, task domain.Task) domain.EnrichedTask {
	manager, err := s.store.GetManager(ctx, task.ProjectID)
	if err != nil {
		s.logger.Warn("manager lookup failed", "project", task.ProjectID, "error", err)
		manager = nil
	}
	return domain.EnrichedTask{Task: task, ProjectManager: manager}
}

// loadTask fetches the task addressed by the path.
func (s *Server) loadTask(r *http.Request) (*domain.Task, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return s.store.GetTask(r.Context(), id)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	scope, err := requestedScope(r, currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tasks, err := s.store.ListTasks(r.Context(), scope)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.loadTask(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var task domain.Task
	if err := decodeJSON(r, &task); err != nil {
		s.writeError(w, r, err)
		return
	}
	if task.Status == "" {
		task.Status = domain.StatusPending
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	if err := validation.NewTaskValidator().ValidateTask(task); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	project, err := s.store.GetProject(r.Context(), task.ProjectID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !permission.CanEditProject(user, *project) {
		s.writeError(w, r, apperrors.NewPermissionError("create task", project.Name))
		return
	}

	task.ID = 0
	task.CreatorID = user.ID
	created, err := s.store.CreateTask(r.Context(), task)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	existing, err := s.loadTask(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !permission.CanEditTask(currentUser(r), s.enrich(r.Context(), *existing)) {
		s.writeError(w, r, apperrors.NewPermissionError("edit", "task"))
		return
	}

	var task domain.Task
	if err := decodeJSON(r, &task); err != nil {
		s.writeError(w, r, err)
		return
	}
	task.ID = existing.ID
	if err := validation.NewTaskValidator().ValidateTaskForUpdate(task); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	updated, err := s.store.UpdateTask(r.Context(), task)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.loadTask(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !permission.CanDeleteTask(currentUser(r), s.enrich(r.Context(), *task)) {
		s.writeError(w, r, apperrors.NewPermissionError("delete", "task"))
		return
	}
	if err := s.store.DeleteTask(r.Context(), task.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetStatus accepts any transition. The assignee, administrators and
// whoever may edit the task can change its status.
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.loadTask(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user := currentUser(r)
	if !permission.CanChangeStatus(user, *task) && !permission.CanEditTask(user, s.enrich(r.Context(), *task)) {
		s.writeError(w, r, apperrors.NewPermissionError("change status", "task"))
		return
	}

	var req rest.StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.store.SetTaskStatus(r.Context(), task.ID, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("task status changed", "task", task.ID, "from", task.Status, "to", updated.Status, "by", user.Username)
	writeJSON(w, http.StatusOK, updated)
}
