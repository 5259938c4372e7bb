// Package repository declares the storage contracts the tracker core runs
// against. Implementations live in the rest and sqlite subpackages.
package repository

import (
	"context"
	"io"

	"project-tracker/internal/domain"
)

// TaskRepository reads and mutates tasks together with their comments and
// attachments.
type TaskRepository interface {
	ListTasks(ctx context.Context, scope domain.Scope) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	CreateTask(ctx context.Context, task domain.Task) (*domain.Task, error)
	UpdateTask(ctx context.Context, task domain.Task) (*domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	SetTaskStatus(ctx context.Context, id int64, status domain.Status) (*domain.Task, error)

	ListComments(ctx context.Context, taskID int64) ([]domain.Comment, error)
	AddComment(ctx context.Context, taskID int64, text string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error

	ListAttachments(ctx context.Context, taskID int64) ([]domain.Attachment, error)
	UploadAttachment(ctx context.Context, taskID int64, name, contentType string, body io.Reader) (*domain.Attachment, error)
	DownloadAttachment(ctx context.Context, attachmentID int64) (io.ReadCloser, error)
	DeleteAttachment(ctx context.Context, attachmentID int64) error
}

// ProjectRepository reads and mutates projects.
type ProjectRepository interface {
	ListProjects(ctx context.Context, scope domain.Scope) ([]domain.Project, error)
	GetProject(ctx context.Context, id int64) (*domain.Project, error)
	CreateProject(ctx context.Context, project domain.Project) (*domain.Project, error)
	UpdateProject(ctx context.Context, project domain.Project) (*domain.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	CountProjectTasks(ctx context.Context, projectID int64) (int, error)

	// GetManager returns nil without error when the project has no manager.
	GetManager(ctx context.Context, projectID int64) (*domain.User, error)
}

// UserRepository lists users.
type UserRepository interface {
	ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// Repository is the full storage surface.
type Repository interface {
	TaskRepository
	ProjectRepository
	UserRepository
	Close() error
}

type actorKey struct{}

// WithActor records the user on whose behalf ctx performs mutations. Stores
// that own authorship (comments, uploads, created rows) read it back with
// ActorFrom.
func WithActor(ctx context.Context, user *domain.User) context.Context {
	if user == nil {
		return ctx
	}
	u := user.Clone()
	return context.WithValue(ctx, actorKey{}, &u)
}

// ActorFrom returns the user stored by WithActor, or nil.
func ActorFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(actorKey{}).(*domain.User)
	return u
}
