package rest

import (
	"context"
	"net/http"
	"net/url"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
)

func (c *Client) ListProjects(ctx context.Context, scope domain.Scope) ([]domain.Project, error) {
	var out []domain.Project
	err := c.call(ctx, "list projects", http.MethodGet, "/api/projects", ScopeQuery(scope), nil, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	var out domain.Project
	if err := c.call(ctx, "get project", http.MethodGet, idPath("/api/projects/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProject(ctx context.Context, project domain.Project) (*domain.Project, error) {
	var out domain.Project
	if err := c.call(ctx, "create project", http.MethodPost, "/api/projects", nil, project, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, project domain.Project) (*domain.Project, error) {
	var out domain.Project
	if err := c.call(ctx, "update project", http.MethodPut, idPath("/api/projects/%d", project.ID), nil, project, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.call(ctx, "delete project", http.MethodDelete, idPath("/api/projects/%d", id), nil, nil, nil)
}

func (c *Client) CountProjectTasks(ctx context.Context, projectID int64) (int, error) {
	var out CountResponse
	if err := c.call(ctx, "count project tasks", http.MethodGet, idPath("/api/projects/%d/tasks/count", projectID), nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// GetManager treats 204 and 404 as "no manager".
func (c *Client) GetManager(ctx context.Context, projectID int64) (*domain.User, error) {
	const op = "get project manager"

	req, err := c.newRequest(ctx, http.MethodGet, idPath("/api/projects/%d/manager", projectID), nil, nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.send(op, req)
	if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	var out domain.User
	if err := decode(resp, &out); err != nil {
		return nil, apperrors.NewRemoteError(op, resp.StatusCode, err)
	}
	return &out, nil
}

func (c *Client) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	query := url.Values{}
	if role != "" {
		query.Set("role", string(role))
	}
	var out []domain.User
	err := c.call(ctx, "list users", http.MethodGet, "/api/users", query, nil, &out)
	return out, err
}
