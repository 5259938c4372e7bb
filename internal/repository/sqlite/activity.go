package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
)

// ListComments returns a task's comments, oldest first.
func (r *SQLiteRepository) ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	query := "SELECT " + commentColumns + " WHERE cm.task_id = ? ORDER BY cm.created_at ASC, cm.id ASC"
	return QueryMultiple(ctx, r.db, query, ScanComment, "comments", taskID)
}

// GetComment retrieves a comment by ID
func (r *SQLiteRepository) GetComment(ctx context.Context, id int64) (*domain.Comment, error) {
	return QuerySingle(ctx, r.db, "SELECT "+commentColumns+" WHERE cm.id = ?", ScanComment, "comment", id, id)
}

// AddComment stores a comment written by the acting user.
func (r *SQLiteRepository) AddComment(ctx context.Context, taskID int64, text string) (*domain.Comment, error) {
	author, err := actorID(ctx, "add comment")
	if err != nil {
		return nil, err
	}
	if _, err := r.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	query := `INSERT INTO comments (task_id, author_id, text, created_at) VALUES (?, ?, ?, ?)`
	id, err := ExecuteWithLastInsertID(ctx, r.db, query, taskID, author, strings.TrimSpace(text), r.timestamp())
	if err != nil {
		return nil, err
	}
	return r.GetComment(ctx, id)
}

// DeleteComment deletes a comment by ID
func (r *SQLiteRepository) DeleteComment(ctx context.Context, id int64) error {
	return ExecuteWithRowsAffected(ctx, r.db, `DELETE FROM comments WHERE id = ?`, "comment", id, id)
}

// ListAttachments returns a task's attachments without their content.
func (r *SQLiteRepository) ListAttachments(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	query := "SELECT " + attachmentColumns + " WHERE at.task_id = ? ORDER BY at.id ASC"
	stored, err := QueryMultiple(ctx, r.db, query, ScanAttachment, "attachments", taskID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Attachment, len(stored))
	for i, s := range stored {
		out[i] = s.Attachment
	}
	return out, nil
}

// GetAttachment retrieves attachment metadata by ID
func (r *SQLiteRepository) GetAttachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	stored, err := QuerySingle(ctx, r.db, "SELECT "+attachmentColumns+" WHERE at.id = ?", ScanAttachment, "attachment", id, id)
	if err != nil {
		return nil, err
	}
	return &stored.Attachment, nil
}

// UploadAttachment stores body under a generated name, uploaded by the acting user.
func (r *SQLiteRepository) UploadAttachment(ctx context.Context, taskID int64, name, contentType string, body io.Reader) (*domain.Attachment, error) {
	uploader, err := actorID(ctx, "upload attachment")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewInvalidInputError("name", name, "file name is required")
	}
	if _, err := r.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("file", name, err.Error())
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	query := `
	INSERT INTO attachments (task_id, uploader_id, name, stored_name, content_type, size, data, uploaded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := ExecuteWithLastInsertID(ctx, r.db, query,
		taskID, uploader, name, uuid.NewString(), contentType, len(data), data, r.timestamp())
	if err != nil {
		return nil, err
	}
	return r.GetAttachment(ctx, id)
}

// DownloadAttachment returns the stored content.
func (r *SQLiteRepository) DownloadAttachment(ctx context.Context, id int64) (io.ReadCloser, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM attachments WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, HandleNoRowsError(err, "attachment", id)
	}
	if err != nil {
		return nil, HandleDatabaseError("read attachment", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// DeleteAttachment deletes an attachment by ID
func (r *SQLiteRepository) DeleteAttachment(ctx context.Context, id int64) error {
	return ExecuteWithRowsAffected(ctx, r.db, `DELETE FROM attachments WHERE id = ?`, "attachment", id, id)
}
