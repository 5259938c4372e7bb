package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"project-tracker/internal/compose"
	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/events"
	"project-tracker/internal/logging"
	"project-tracker/internal/metrics"
	"project-tracker/internal/partition"
	"project-tracker/internal/permission"
	"project-tracker/internal/repository"
	"project-tracker/internal/upload"
	"project-tracker/internal/validation"
	"project-tracker/internal/workflow"
)

// Tracker is the core facade used by the CLI and the BFF server. One Tracker
// serves one logical session: it owns the buckets loaded for that session's
// user.
type Tracker interface {
	// ========== Board ==========

	// LoadBoard loads the tasks the current user is entitled to, resolves
	// their project managers and splits them into buckets.
	LoadBoard(ctx context.Context) (*Board, error)

	// Board returns the last loaded board, or nil.
	Board() *Board

	// Loading reports whether a LoadBoard call is in progress.
	Loading() bool

	// SetStatus changes a task's status and updates every cached copy.
	SetStatus(ctx context.Context, taskID int64, status domain.Status) (workflow.Result, error)

	// ========== Tasks ==========

	CreateTask(ctx context.Context, task domain.Task) (*domain.Task, error)
	UpdateTask(ctx context.Context, task domain.Task) (*domain.Task, error)
	DeleteTask(ctx context.Context, taskID int64) error
	TaskDetail(ctx context.Context, taskID int64) (*TaskDetail, error)

	// ========== Comments and attachments ==========

	AddComment(ctx context.Context, taskID int64, text string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, comment domain.Comment) error
	UploadAttachments(ctx context.Context, taskID int64, files []upload.File) (upload.Report, error)
	DeleteAttachment(ctx context.Context, attachment domain.Attachment) error
	DownloadAttachment(ctx context.Context, attachmentID int64) (io.ReadCloser, error)

	// ========== Projects and users ==========

	Projects(ctx context.Context) ([]domain.Project, error)
	UpdateProject(ctx context.Context, project domain.Project) (*domain.Project, error)
	DeleteProject(ctx context.Context, projectID int64) error
	Users(ctx context.Context, role domain.Role) ([]domain.User, error)

	// ========== Dashboard ==========

	// Dashboard summarizes the loaded board.
	Dashboard() Dashboard
}

// UserSource supplies the user the tracker acts for.
type UserSource interface {
	CurrentUser() *domain.User
}

// Options tunes the read path and the upload pipeline.
type Options struct {
	PageSize          int
	Lookup            compose.Options
	UploadConcurrency int
}

// Board is the result of a load: the buckets built for the user.
type Board struct {
	User              domain.User
	Buckets           *partition.Buckets
	ManagedProjectIDs []int64
	LoadedAt          time.Time
}

// TaskDetail is everything the detail view of one task shows.
type TaskDetail struct {
	Task        domain.EnrichedTask        `json:"task"`
	Comments    []domain.Comment           `json:"comments"`
	Attachments []domain.Attachment        `json:"attachments"`
	Permissions permission.TaskPermissions `json:"permissions"`
}

type trackerImpl struct {
	repo          repository.Repository
	users         UserSource
	composer      *compose.Composer
	partitioner   *partition.Partitioner
	workflow      *workflow.Workflow
	uploads       *upload.Pipeline
	taskValidator *validation.TaskValidator
	projValidator *validation.ProjectValidator
	metrics       *metrics.Metrics
	logger        *slog.Logger
	now           func() time.Time

	mu      sync.RWMutex
	board   *Board
	loading bool
}

// New creates a Tracker over repo acting for the user returned by users.
// emitter, m and logger may be nil.
func New(repo repository.Repository, users UserSource, opts Options, emitter *events.Emitter, m *metrics.Metrics, logger *slog.Logger) Tracker {
	logger = logging.OrDefault(logger)
	return &trackerImpl{
		repo:          repo,
		users:         users,
		composer:      compose.New(repo, opts.Lookup, logger, m),
		partitioner:   partition.NewPartitioner(opts.PageSize),
		workflow:      workflow.New(statusMutator{repo}, users, emitter, m, logger),
		uploads:       upload.NewPipeline(repo, opts.UploadConcurrency, m, logger),
		taskValidator: validation.NewTaskValidator(),
		projValidator: validation.NewProjectValidator(),
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// FixedUser is a UserSource that always returns the same user.
func FixedUser(user domain.User) UserSource {
	return fixedUser{user: user}
}

type fixedUser struct{ user domain.User }

func (f fixedUser) CurrentUser() *domain.User {
	u := f.user.Clone()
	return &u
}

// statusMutator adapts the task repository to the workflow.
type statusMutator struct {
	repo repository.TaskRepository
}

func (s statusMutator) SetStatus(ctx context.Context, taskID int64, status domain.Status) (*domain.Task, error) {
	return s.repo.SetTaskStatus(ctx, taskID, status)
}

// actor returns the current user and a context carrying it, or an
// unauthenticated error.
func (t *trackerImpl) actor(ctx context.Context, op string) (*domain.User, context.Context, error) {
	var user *domain.User
	if t.users != nil {
		user = t.users.CurrentUser()
	}
	if user == nil {
		return nil, ctx, apperrors.NewUnauthenticatedError(op)
	}
	return user, repository.WithActor(ctx, user), nil
}

// invalid converts validator output into an AppError.
func invalid(message string, err error) error {
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		return ve.AsAppError()
	}
	return apperrors.NewValidationError(message, err)
}
