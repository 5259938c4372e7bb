package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
)

// StatusRequest is the body of PATCH /api/tasks/{id}/status.
type StatusRequest struct {
	Status domain.Status `json:"status"`
}

// CommentRequest is the body of POST /api/tasks/{id}/comments.
type CommentRequest struct {
	Text string `json:"text"`
}

// CountResponse wraps counters returned by the API.
type CountResponse struct {
	Count int `json:"count"`
}

// ScopeQuery encodes scope as list query parameters.
func ScopeQuery(scope domain.Scope) url.Values {
	q := url.Values{}
	if scope.Kind != "" && scope.Kind != domain.ScopeAll {
		q.Set("scope", string(scope.Kind))
		q.Set("user", strconv.FormatInt(scope.UserID, 10))
	}
	return q
}

func (c *Client) ListTasks(ctx context.Context, scope domain.Scope) ([]domain.Task, error) {
	var out []domain.Task
	err := c.call(ctx, "list tasks", http.MethodGet, "/api/tasks", ScopeQuery(scope), nil, &out)
	return out, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	var out domain.Task
	if err := c.call(ctx, "get task", http.MethodGet, idPath("/api/tasks/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, task domain.Task) (*domain.Task, error) {
	var out domain.Task
	if err := c.call(ctx, "create task", http.MethodPost, "/api/tasks", nil, task, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, task domain.Task) (*domain.Task, error) {
	var out domain.Task
	if err := c.call(ctx, "update task", http.MethodPut, idPath("/api/tasks/%d", task.ID), nil, task, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.call(ctx, "delete task", http.MethodDelete, idPath("/api/tasks/%d", id), nil, nil, nil)
}

// SetTaskStatus issues the status-only mutation.
func (c *Client) SetTaskStatus(ctx context.Context, id int64, status domain.Status) (*domain.Task, error) {
	var out domain.Task
	if err := c.call(ctx, "change task status", http.MethodPatch, idPath("/api/tasks/%d/status", id), nil, StatusRequest{Status: status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	var out []domain.Comment
	err := c.call(ctx, "list comments", http.MethodGet, idPath("/api/tasks/%d/comments", taskID), nil, nil, &out)
	return out, err
}

func (c *Client) AddComment(ctx context.Context, taskID int64, text string) (*domain.Comment, error) {
	var out domain.Comment
	if err := c.call(ctx, "add comment", http.MethodPost, idPath("/api/tasks/%d/comments", taskID), nil, CommentRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	return c.call(ctx, "delete comment", http.MethodDelete, idPath("/api/comments/%d", commentID), nil, nil, nil)
}

func (c *Client) ListAttachments(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	var out []domain.Attachment
	err := c.call(ctx, "list attachments", http.MethodGet, idPath("/api/tasks/%d/attachments", taskID), nil, nil, &out)
	return out, err
}

// UploadAttachment posts body as the multipart field "file".
func (c *Client) UploadAttachment(ctx context.Context, taskID int64, name, contentType string, body io.Reader) (*domain.Attachment, error) {
	const op = "upload attachment"

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("file", name, err.Error())
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, apperrors.NewInvalidInputError("file", name, err.Error())
	}
	if err := form.Close(); err != nil {
		return nil, apperrors.NewInvalidInputError("file", name, err.Error())
	}

	req, err := c.newRequest(ctx, http.MethodPost, idPath("/api/tasks/%d/attachments", taskID), nil, &buf, form.FormDataContentType())
	if err != nil {
		return nil, err
	}
	resp, err := c.send(op, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out domain.Attachment
	if err := decode(resp, &out); err != nil {
		return nil, apperrors.NewRemoteError(op, resp.StatusCode, err)
	}
	return &out, nil
}

// DownloadAttachment streams the attachment content. The caller closes it.
func (c *Client) DownloadAttachment(ctx context.Context, attachmentID int64) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, idPath("/api/attachments/%d/download", attachmentID), nil, nil, "")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	resp, err := c.send("download attachment", req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, attachmentID int64) error {
	return c.call(ctx, "delete attachment", http.MethodDelete, idPath("/api/attachments/%d", attachmentID), nil, nil, nil)
}
