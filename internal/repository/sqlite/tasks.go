package sqlite

import (
	"context"
	"fmt"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
)

// ListTasks returns the tasks visible in scope, oldest first.
func (r *SQLiteRepository) ListTasks(ctx context.Context, scope domain.Scope) ([]domain.Task, error) {
	query := "SELECT " + taskColumns
	var args []interface{}

	switch scope.Kind {
	case domain.ScopeAll, "":
	case domain.ScopeAssigned:
		query += " WHERE t.assignee_id = ?"
		args = append(args, scope.UserID)
	case domain.ScopeManaged:
		query += " WHERE p.manager_id = ?"
		args = append(args, scope.UserID)
	case domain.ScopeCreated:
		query += " WHERE t.creator_id = ?"
		args = append(args, scope.UserID)
	default:
		return nil, apperrors.NewInvalidInputError("scope", scope.Kind, "unknown scope")
	}
	query += " ORDER BY t.id ASC"

	return QueryMultiple(ctx, r.db, query, ScanTask, "tasks", args...)
}

// GetTask retrieves a task by ID
func (r *SQLiteRepository) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	return QuerySingle(ctx, r.db, "SELECT "+taskColumns+" WHERE t.id = ?", ScanTask, "task", id, id)
}

// CreateTask inserts task. The creator defaults to the acting user.
func (r *SQLiteRepository) CreateTask(ctx context.Context, task domain.Task) (*domain.Task, error) {
	if task.CreatorID <= 0 {
		id, err := actorID(ctx, "create task")
		if err != nil {
			return nil, err
		}
		task.CreatorID = id
	}
	if task.Status == "" {
		task.Status = domain.StatusPending
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}

	query := `
	INSERT INTO tasks (title, description, status, priority, created_at, deadline, project_id, assignee_id, creator_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := ExecuteWithLastInsertID(ctx, r.db, query,
		task.Title, task.Description, string(task.Status), string(task.Priority), r.timestamp(),
		FormatTimePtrForDB(task.Deadline), task.ProjectID, NullID(task.AssigneeID), task.CreatorID)
	if err != nil {
		return nil, err
	}
	return r.GetTask(ctx, id)
}

// UpdateTask overwrites the editable fields of task.
func (r *SQLiteRepository) UpdateTask(ctx context.Context, task domain.Task) (*domain.Task, error) {
	query := `
	UPDATE tasks
	SET title = ?, description = ?, status = ?, priority = ?, deadline = ?, project_id = ?, assignee_id = ?
	WHERE id = ?`

	err := ExecuteWithRowsAffected(ctx, r.db, query, "task", task.ID,
		task.Title, task.Description, string(task.Status), string(task.Priority),
		FormatTimePtrForDB(task.Deadline), task.ProjectID, NullID(task.AssigneeID), task.ID)
	if err != nil {
		return nil, err
	}
	return r.GetTask(ctx, task.ID)
}

// DeleteTask deletes a task by ID
func (r *SQLiteRepository) DeleteTask(ctx context.Context, id int64) error {
	return ExecuteWithRowsAffected(ctx, r.db, `DELETE FROM tasks WHERE id = ?`, "task", id, id)
}

// SetTaskStatus changes only the status column.
func (r *SQLiteRepository) SetTaskStatus(ctx context.Context, id int64, status domain.Status) (*domain.Task, error) {
	if !status.IsValid() {
		return nil, apperrors.NewInvalidInputError("status", status, fmt.Sprintf("must be one of %v", domain.AllStatuses))
	}
	err := ExecuteWithRowsAffected(ctx, r.db, `UPDATE tasks SET status = ? WHERE id = ?`, "task", id, string(status), id)
	if err != nil {
		return nil, err
	}
	return r.GetTask(ctx, id)
}

// CountProjectTasks counts the tasks that belong to a project.
func (r *SQLiteRepository) CountProjectTasks(ctx context.Context, projectID int64) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE project_id = ?`, projectID).Scan(&count); err != nil {
		return 0, HandleDatabaseError("count project tasks", err)
	}
	return count, nil
}
