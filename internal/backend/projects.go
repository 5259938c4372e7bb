package backend

import (
	"net/http"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/permission"
	"project-tracker/internal/repository/rest"
	"project-tracker/internal/validation"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	scope, err := requestedScope(r, currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	projects, err := s.store.ListProjects(r.Context(), scope)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) loadProject(r *http.Request) (*domain.Project, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return s.store.GetProject(r.Context(), id)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.loadProject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var project domain.Project
	if err := decodeJSON(r, &project); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validation.NewProjectValidator().ValidateProject(project); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	project.ID = 0
	project.CreatorID = currentUser(r).ID
	created, err := s.store.CreateProject(r.Context(), project)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	existing, err := s.loadProject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !permission.CanEditProject(currentUser(r), *existing) {
		s.writeError(w, r, apperrors.NewPermissionError("edit", "project"))
		return
	}

	var project domain.Project
	if err := decodeJSON(r, &project); err != nil {
		s.writeError(w, r, err)
		return
	}
	project.ID = existing.ID
	if err := validation.NewProjectValidator().ValidateProject(project); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	updated, err := s.store.UpdateProject(r.Context(), project)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteProject is routed behind the ADMIN guard; the store refuses
// projects that still own tasks.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetManager answers 204 when the project has no manager.
func (s *Server) handleGetManager(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	manager, err := s.store.GetManager(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if manager == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, manager)
}

func (s *Server) handleCountTasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	count, err := s.store.CountProjectTasks(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rest.CountResponse{Count: count})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var role domain.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := domain.ParseRole(raw)
		if err != nil {
			s.writeError(w, r, apperrors.NewInvalidInputError("role", raw, err.Error()))
			return
		}
		role = parsed
	}
	users, err := s.store.ListUsers(r.Context(), role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
