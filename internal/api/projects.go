package api

import (
	"context"
	"fmt"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/permission"
)

// Projects lists the projects the user's role entitles them to: every project
// for administrators, managed ones for managers, and projects with tasks
// assigned to the user otherwise.
func (t *trackerImpl) Projects(ctx context.Context) ([]domain.Project, error) {
	user, ctx, err := t.actor(ctx, "list projects")
	if err != nil {
		return nil, err
	}

	var scope domain.Scope
	switch user.PrimaryRole() {
	case domain.RoleAdmin:
		scope = domain.AllScope()
	case domain.RoleManager:
		scope = domain.ManagedScope(user.ID)
	default:
		scope = domain.AssignedScope(user.ID)
	}
	return t.repo.ListProjects(ctx, scope)
}

func (t *trackerImpl) UpdateProject(ctx context.Context, project domain.Project) (*domain.Project, error) {
	user, ctx, err := t.actor(ctx, "update project")
	if err != nil {
		return nil, err
	}
	if err := t.projValidator.ValidateProjectID(project.ID); err != nil {
		return nil, invalid("invalid project id", err)
	}
	if err := t.projValidator.ValidateProject(project); err != nil {
		return nil, invalid("invalid project", err)
	}

	current, err := t.repo.GetProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if !permission.CanEditProject(user, *current) {
		return nil, apperrors.NewPermissionError("update project", fmt.Sprintf("project %d", project.ID))
	}
	return t.repo.UpdateProject(ctx, project)
}

// DeleteProject is reserved to administrators and refused while the project
// still has tasks. When the task count cannot be read the project is assumed
// to have tasks.
func (t *trackerImpl) DeleteProject(ctx context.Context, projectID int64) error {
	user, ctx, err := t.actor(ctx, "delete project")
	if err != nil {
		return err
	}
	if !permission.CanDeleteProject(user) {
		return apperrors.NewPermissionError("delete project", fmt.Sprintf("project %d", projectID))
	}

	count, err := t.repo.CountProjectTasks(ctx, projectID)
	if err != nil {
		t.logger.Warn("could not count project tasks", "project", projectID, "error", err)
		return apperrors.NewConflictError(fmt.Sprintf("project %d", projectID), "its tasks could not be counted")
	}
	if count > 0 {
		return apperrors.NewConflictError(fmt.Sprintf("project %d", projectID),
			fmt.Sprintf("it still has %d task(s)", count)).WithContext("taskCount", count)
	}

	if err := t.repo.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	t.logger.Info("project deleted", "project", projectID, "user", user.Username)
	return nil
}

// Users lists users, optionally with one role. Administrators and managers only.
func (t *trackerImpl) Users(ctx context.Context, role domain.Role) ([]domain.User, error) {
	user, ctx, err := t.actor(ctx, "list users")
	if err != nil {
		return nil, err
	}
	if !permission.CanAccess(user, domain.RoleAdmin, domain.RoleManager) {
		return nil, apperrors.NewPermissionError("list users", "users")
	}
	return t.repo.ListUsers(ctx, role)
}
