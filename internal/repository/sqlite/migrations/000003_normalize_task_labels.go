package migrations

import (
	"database/sql"
	"fmt"
	"strings"

	"project-tracker/internal/domain"
)

func init() {
	RegisterGoMigration(3, "normalize_task_labels", upNormalizeTaskLabels, downNormalizeTaskLabels)
}

// upNormalizeTaskLabels rewrites status, priority and role values imported
// in their English or prefixed forms ("IN_PROGRESS", "high", "ROLE_ENCARGADO")
// into the labels the application stores.
func upNormalizeTaskLabels(tx *sql.Tx) error {
	type row struct {
		id       int64
		status   string
		priority string
	}
	var rows []row

	taskRows, err := tx.Query("SELECT id, status, priority FROM tasks")
	if err != nil {
		return fmt.Errorf("failed to query tasks: %w", err)
	}
	for taskRows.Next() {
		var r row
		if err := taskRows.Scan(&r.id, &r.status, &r.priority); err != nil {
			taskRows.Close()
			return fmt.Errorf("failed to scan task: %w", err)
		}
		rows = append(rows, r)
	}
	if err := taskRows.Err(); err != nil {
		taskRows.Close()
		return fmt.Errorf("error iterating tasks: %w", err)
	}
	taskRows.Close()

	stmt, err := tx.Prepare("UPDATE tasks SET status = ?, priority = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare task update: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		status, err := domain.ParseStatus(r.status)
		if err != nil {
			status = domain.StatusPending
		}
		priority, err := domain.ParsePriority(r.priority)
		if err != nil {
			priority = domain.PriorityMedium
		}
		if string(status) == r.status && string(priority) == r.priority {
			continue
		}
		if _, err := stmt.Exec(string(status), string(priority), r.id); err != nil {
			return fmt.Errorf("failed to update task %d: %w", r.id, err)
		}
	}

	return normalizeRoles(tx)
}

func normalizeRoles(tx *sql.Tx) error {
	type row struct {
		id    int64
		roles string
	}
	var users []row

	userRows, err := tx.Query("SELECT id, roles FROM users")
	if err != nil {
		return fmt.Errorf("failed to query users: %w", err)
	}
	for userRows.Next() {
		var r row
		if err := userRows.Scan(&r.id, &r.roles); err != nil {
			userRows.Close()
			return fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, r)
	}
	if err := userRows.Err(); err != nil {
		userRows.Close()
		return fmt.Errorf("error iterating users: %w", err)
	}
	userRows.Close()

	for _, u := range users {
		normalized := JoinRoles(domain.ParseRoles(strings.Split(u.roles, ",")))
		if normalized == u.roles {
			continue
		}
		if _, err := tx.Exec("UPDATE users SET roles = ? WHERE id = ?", normalized, u.id); err != nil {
			return fmt.Errorf("failed to update user %d: %w", u.id, err)
		}
	}
	return nil
}

// downNormalizeTaskLabels is a no-op: the normalized labels are valid input
// for every earlier schema version.
func downNormalizeTaskLabels(*sql.Tx) error {
	return nil
}

// JoinRoles renders roles the way the users table stores them.
func JoinRoles(roles []domain.Role) string {
	if len(roles) == 0 {
		return string(domain.RoleUser)
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}
