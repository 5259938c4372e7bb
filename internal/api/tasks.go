package api

import (
	"context"
	"fmt"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/permission"
)

// CreateTask stores a new task in a project the user may edit. Missing status
// and priority default to pending and medium. The board is not changed; the
// task shows up on the next load.
func (t *trackerImpl) CreateTask(ctx context.Context, task domain.Task) (*domain.Task, error) {
	user, ctx, err := t.actor(ctx, "create task")
	if err != nil {
		return nil, err
	}

	if task.Status == "" {
		task.Status = domain.StatusPending
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	if err := t.taskValidator.ValidateTask(task); err != nil {
		return nil, invalid("invalid task", err)
	}

	if !permission.CanAccess(user, domain.RoleAdmin, domain.RoleManager) {
		return nil, apperrors.NewPermissionError("create task", fmt.Sprintf("project %d", task.ProjectID))
	}
	project, err := t.repo.GetProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if !permission.CanEditProject(user, *project) {
		return nil, apperrors.NewPermissionError("create task", fmt.Sprintf("project %d", task.ProjectID))
	}

	created, err := t.repo.CreateTask(ctx, task)
	if err != nil {
		return nil, err
	}
	t.logger.Info("task created", "task", created.ID, "project", created.ProjectID, "user", user.Username)
	return created, nil
}

// UpdateTask saves an edited task and refreshes its cached copies.
func (t *trackerImpl) UpdateTask(ctx context.Context, task domain.Task) (*domain.Task, error) {
	user, ctx, err := t.actor(ctx, "update task")
	if err != nil {
		return nil, err
	}
	if err := t.taskValidator.ValidateTaskForUpdate(task); err != nil {
		return nil, invalid("invalid task", err)
	}

	current, err := t.findTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if !permission.CanEditTask(user, current) {
		return nil, apperrors.NewPermissionError("update task", fmt.Sprintf("task %d", task.ID))
	}

	updated, err := t.repo.UpdateTask(ctx, task)
	if err != nil {
		return nil, err
	}

	if b := t.Board(); b != nil {
		refreshed := domain.EnrichedTask{Task: updated.Clone(), ProjectManager: current.ProjectManager}
		if updated.ProjectID != current.ProjectID {
			if enriched, err := t.composer.Enrich(ctx, []domain.Task{*updated}); err == nil {
				refreshed = enriched[0]
			}
		}
		b.Buckets.Replace(refreshed)
	}
	return updated, nil
}

// DeleteTask removes a task and drops it from every bucket.
func (t *trackerImpl) DeleteTask(ctx context.Context, taskID int64) error {
	user, ctx, err := t.actor(ctx, "delete task")
	if err != nil {
		return err
	}

	current, err := t.findTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !permission.CanDeleteTask(user, current) {
		return apperrors.NewPermissionError("delete task", fmt.Sprintf("task %d", taskID))
	}

	if err := t.repo.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	if b := t.Board(); b != nil {
		b.Buckets.Remove(taskID)
	}
	t.logger.Info("task deleted", "task", taskID, "user", user.Username)
	return nil
}

// TaskDetail loads a fresh copy of the task with its comments, attachments and
// the user's permissions on it.
func (t *trackerImpl) TaskDetail(ctx context.Context, taskID int64) (*TaskDetail, error) {
	user, ctx, err := t.actor(ctx, "view task")
	if err != nil {
		return nil, err
	}
	if !permission.CanViewTask(user) {
		return nil, apperrors.NewPermissionError("view task", fmt.Sprintf("task %d", taskID))
	}

	task, err := t.fetchTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	detail := &TaskDetail{
		Task:        task,
		Comments:    []domain.Comment{},
		Attachments: []domain.Attachment{},
		Permissions: permission.ForTask(user, task),
	}

	comments, err := t.repo.ListComments(ctx, taskID)
	if err != nil {
		return nil, err
	}
	detail.Comments = append(detail.Comments, comments...)

	if detail.Permissions.ViewAttachments {
		attachments, err := t.repo.ListAttachments(ctx, taskID)
		if err != nil {
			return nil, err
		}
		detail.Attachments = append(detail.Attachments, attachments...)
	}
	return detail, nil
}
