package sqlite

import (
	"context"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
)

// ListProjects returns the projects visible in scope. The assigned scope
// yields projects holding at least one task assigned to the user.
func (r *SQLiteRepository) ListProjects(ctx context.Context, scope domain.Scope) ([]domain.Project, error) {
	query := "SELECT " + projectColumns
	var args []interface{}

	switch scope.Kind {
	case domain.ScopeAll, "":
	case domain.ScopeManaged:
		query += " WHERE p.manager_id = ?"
		args = append(args, scope.UserID)
	case domain.ScopeCreated:
		query += " WHERE p.creator_id = ?"
		args = append(args, scope.UserID)
	case domain.ScopeAssigned:
		query += " WHERE p.id IN (SELECT project_id FROM tasks WHERE assignee_id = ?)"
		args = append(args, scope.UserID)
	default:
		return nil, apperrors.NewInvalidInputError("scope", scope.Kind, "unknown scope")
	}
	query += " ORDER BY p.id ASC"

	return QueryMultiple(ctx, r.db, query, ScanProject, "projects", args...)
}

// GetProject retrieves a project by ID
func (r *SQLiteRepository) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	return QuerySingle(ctx, r.db, "SELECT "+projectColumns+" WHERE p.id = ?", ScanProject, "project", id, id)
}

// CreateProject inserts project. The creator defaults to the acting user.
func (r *SQLiteRepository) CreateProject(ctx context.Context, project domain.Project) (*domain.Project, error) {
	if project.CreatorID <= 0 {
		id, err := actorID(ctx, "create project")
		if err != nil {
			return nil, err
		}
		project.CreatorID = id
	}

	query := `
	INSERT INTO projects (name, description, created_at, deadline, creator_id, manager_id)
	VALUES (?, ?, ?, ?, ?, ?)`

	id, err := ExecuteWithLastInsertID(ctx, r.db, query,
		project.Name, project.Description, r.timestamp(), FormatTimePtrForDB(project.Deadline),
		project.CreatorID, NullID(project.ManagerID))
	if err != nil {
		return nil, err
	}
	return r.GetProject(ctx, id)
}

// UpdateProject overwrites the editable fields of project.
func (r *SQLiteRepository) UpdateProject(ctx context.Context, project domain.Project) (*domain.Project, error) {
	query := `
	UPDATE projects
	SET name = ?, description = ?, deadline = ?, manager_id = ?
	WHERE id = ?`

	err := ExecuteWithRowsAffected(ctx, r.db, query, "project", project.ID,
		project.Name, project.Description, FormatTimePtrForDB(project.Deadline), NullID(project.ManagerID), project.ID)
	if err != nil {
		return nil, err
	}
	return r.GetProject(ctx, project.ID)
}

// DeleteProject deletes a project. Projects that still own tasks are refused.
func (r *SQLiteRepository) DeleteProject(ctx context.Context, id int64) error {
	count, err := r.CountProjectTasks(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewConflictError("project", "it still has tasks").WithContext("taskCount", count)
	}
	return ExecuteWithRowsAffected(ctx, r.db, `DELETE FROM projects WHERE id = ?`, "project", id, id)
}

// GetManager returns the project's manager, or nil when none is set.
func (r *SQLiteRepository) GetManager(ctx context.Context, projectID int64) (*domain.User, error) {
	project, err := r.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.HasManager() {
		return nil, nil
	}
	return r.GetUser(ctx, *project.ManagerID)
}
