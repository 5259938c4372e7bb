package sqlite

import (
	"database/sql"
	"strings"

	"project-tracker/internal/domain"
)

// Scanner interface defines the common scanning behavior for both sql.Row and sql.Rows
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Rows interface defines the common behavior for sql.Rows
type Rows interface {
	Scanner
	Next() bool
	Err() error
}

// ScanAll applies scan to every row.
func ScanAll[T any](rows Rows, scan func(Scanner) (*T, error)) ([]T, error) {
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// ScanTask scans a task selected with taskColumns.
func ScanTask(scanner Scanner) (*domain.Task, error) {
	task := &domain.Task{}
	var status, priority, createdAt string
	var deadline sql.NullString
	var assignee sql.NullInt64

	err := scanner.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&status,
		&priority,
		&createdAt,
		&deadline,
		&task.ProjectID,
		&task.ProjectName,
		&assignee,
		&task.AssigneeUsername,
		&task.CreatorID,
		&task.CreatorUsername,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.Status(status)
	task.Priority = domain.Priority(priority)
	task.AssigneeID = idPtr(assignee)
	if task.CreatedAt, err = ParseTimeFromDB(createdAt); err != nil {
		return nil, err
	}
	if task.Deadline, err = ParseNullTimeFromDB(deadline); err != nil {
		return nil, err
	}
	return task, nil
}

// ScanProject scans a project selected with projectColumns.
func ScanProject(scanner Scanner) (*domain.Project, error) {
	project := &domain.Project{}
	var createdAt string
	var deadline sql.NullString
	var manager sql.NullInt64

	err := scanner.Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&createdAt,
		&deadline,
		&project.CreatorID,
		&project.CreatorUsername,
		&manager,
		&project.ManagerUsername,
	)
	if err != nil {
		return nil, err
	}

	project.ManagerID = idPtr(manager)
	if project.CreatedAt, err = ParseTimeFromDB(createdAt); err != nil {
		return nil, err
	}
	if project.Deadline, err = ParseNullTimeFromDB(deadline); err != nil {
		return nil, err
	}
	return project, nil
}

// ScanUser scans a user selected with userColumns.
func ScanUser(scanner Scanner) (*domain.User, error) {
	user := &domain.User{}
	var roles, createdAt string

	if err := scanner.Scan(&user.ID, &user.Username, &user.Email, &roles, &createdAt); err != nil {
		return nil, err
	}

	user.Roles = domain.ParseRoles(strings.Split(roles, ","))
	created, err := ParseTimeFromDB(createdAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = created
	return user, nil
}

// ScanComment scans a comment selected with commentColumns.
func ScanComment(scanner Scanner) (*domain.Comment, error) {
	comment := &domain.Comment{}
	var createdAt string

	err := scanner.Scan(&comment.ID, &comment.Text, &comment.Author, &comment.AuthorUsername, &createdAt, &comment.TaskID)
	if err != nil {
		return nil, err
	}

	if comment.CreatedAt, err = ParseTimeFromDB(createdAt); err != nil {
		return nil, err
	}
	return comment, nil
}

// ScanAttachment scans an attachment selected with attachmentColumns.
func ScanAttachment(scanner Scanner) (*storedAttachment, error) {
	att := &storedAttachment{}
	var uploadedAt string

	err := scanner.Scan(
		&att.ID,
		&att.Name,
		&att.ContentType,
		&att.Size,
		&att.Uploader,
		&att.UploaderUsername,
		&uploadedAt,
		&att.TaskID,
		&att.StoredName,
	)
	if err != nil {
		return nil, err
	}

	if att.UploadedAt, err = ParseTimeFromDB(uploadedAt); err != nil {
		return nil, err
	}
	att.URL = downloadURL(att.ID)
	return att, nil
}
