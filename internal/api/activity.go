package api

import (
	"context"
	"fmt"
	"io"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/permission"
	"project-tracker/internal/upload"
)

func (t *trackerImpl) AddComment(ctx context.Context, taskID int64, text string) (*domain.Comment, error) {
	user, ctx, err := t.actor(ctx, "add comment")
	if err != nil {
		return nil, err
	}
	if !permission.CanAddComment(user) {
		return nil, apperrors.NewPermissionError("add comment", fmt.Sprintf("task %d", taskID))
	}
	if err := t.taskValidator.ValidateComment(taskID, text); err != nil {
		return nil, invalid("invalid comment", err)
	}
	return t.repo.AddComment(ctx, taskID, text)
}

// DeleteComment removes a comment written by the user, or any comment for
// administrators.
func (t *trackerImpl) DeleteComment(ctx context.Context, comment domain.Comment) error {
	user, ctx, err := t.actor(ctx, "delete comment")
	if err != nil {
		return err
	}
	if !permission.CanDeleteComment(user, comment) {
		return apperrors.NewPermissionError("delete comment", fmt.Sprintf("comment %d", comment.ID))
	}
	return t.repo.DeleteComment(ctx, comment.ID)
}

// UploadAttachments sends files to a task. Only the permission check can fail
// the call as a whole; per-file failures are in the report.
func (t *trackerImpl) UploadAttachments(ctx context.Context, taskID int64, files []upload.File) (upload.Report, error) {
	user, ctx, err := t.actor(ctx, "upload attachments")
	if err != nil {
		return upload.Report{TaskID: taskID}, err
	}

	task, err := t.findTask(ctx, taskID)
	if err != nil {
		return upload.Report{TaskID: taskID}, err
	}
	if !permission.CanUploadAttachments(user, task.Task) {
		return upload.Report{TaskID: taskID}, apperrors.NewPermissionError("upload attachments", fmt.Sprintf("task %d", taskID))
	}

	return t.uploads.Run(ctx, taskID, files), nil
}

func (t *trackerImpl) DeleteAttachment(ctx context.Context, attachment domain.Attachment) error {
	user, ctx, err := t.actor(ctx, "delete attachment")
	if err != nil {
		return err
	}
	if !permission.CanDeleteAttachment(user, attachment) {
		return apperrors.NewPermissionError("delete attachment", fmt.Sprintf("attachment %d", attachment.ID))
	}
	return t.repo.DeleteAttachment(ctx, attachment.ID)
}

// DownloadAttachment returns the attachment content; the caller closes it.
func (t *trackerImpl) DownloadAttachment(ctx context.Context, attachmentID int64) (io.ReadCloser, error) {
	user, ctx, err := t.actor(ctx, "download attachment")
	if err != nil {
		return nil, err
	}
	if !permission.CanDownloadAttachment(user) {
		return nil, apperrors.NewPermissionError("download attachment", fmt.Sprintf("attachment %d", attachmentID))
	}
	return t.repo.DownloadAttachment(ctx, attachmentID)
}
