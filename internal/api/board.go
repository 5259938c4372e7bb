package api

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/permission"
	"project-tracker/internal/workflow"
)

// RecentTaskCount is the number of tasks listed as recent on the dashboard.
const RecentTaskCount = 5

// Dashboard is the home summary computed from the loaded board.
type Dashboard struct {
	Total   int                   `json:"total"`
	Counts  map[domain.Status]int `json:"counts"`
	Overdue int                   `json:"overdue"`
	Recent  []domain.EnrichedTask `json:"recent"`
}

func (t *trackerImpl) LoadBoard(ctx context.Context) (*Board, error) {
	user, ctx, err := t.actor(ctx, "load tasks")
	if err != nil {
		return nil, err
	}

	t.setLoading(true)
	defer t.setLoading(false)

	tasks, managed, err := t.loadTasks(ctx, *user)
	if err != nil {
		t.clearBoard()
		t.logger.Error("failed to load tasks", "user", user.Username, "error", err)
		return nil, err
	}

	enriched, err := t.composer.Enrich(ctx, tasks)
	if err != nil {
		t.clearBoard()
		return nil, err
	}

	board := &Board{
		User:              user.Clone(),
		Buckets:           t.partitioner.Partition(enriched, user, managed),
		ManagedProjectIDs: managed,
		LoadedAt:          t.now(),
	}

	t.mu.Lock()
	previous := t.board
	t.board = board
	t.mu.Unlock()

	if previous != nil {
		t.workflow.Untrack(previous.Buckets)
	}
	t.workflow.Track(board.Buckets)

	t.logger.Debug("board loaded", "user", user.Username, "tasks", len(enriched), "buckets", len(board.Buckets.All()))
	return board, nil
}

// loadTasks fetches the task list the user's most privileged role entitles
// them to. Managers also get the ids of the projects they manage.
func (t *trackerImpl) loadTasks(ctx context.Context, user domain.User) ([]domain.Task, []int64, error) {
	switch user.PrimaryRole() {
	case domain.RoleAdmin:
		tasks, err := t.repo.ListTasks(ctx, domain.AllScope())
		return tasks, nil, err

	case domain.RoleManager:
		var (
			projects []domain.Project
			managed  []domain.Task
			assigned []domain.Task
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			projects, err = t.repo.ListProjects(gctx, domain.ManagedScope(user.ID))
			return err
		})
		g.Go(func() error {
			var err error
			managed, err = t.repo.ListTasks(gctx, domain.ManagedScope(user.ID))
			return err
		})
		g.Go(func() error {
			var err error
			assigned, err = t.repo.ListTasks(gctx, domain.AssignedScope(user.ID))
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}

		ids := make([]int64, 0, len(projects))
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
		return mergeTasks(assigned, managed), ids, nil

	default:
		tasks, err := t.repo.ListTasks(ctx, domain.AssignedScope(user.ID))
		return tasks, nil, err
	}
}

// mergeTasks concatenates lists, keeping the first copy of each task id.
func mergeTasks(lists ...[]domain.Task) []domain.Task {
	seen := make(map[int64]struct{})
	out := make([]domain.Task, 0)
	for _, list := range lists {
		for _, task := range list {
			if _, ok := seen[task.ID]; ok {
				continue
			}
			seen[task.ID] = struct{}{}
			out = append(out, task)
		}
	}
	return out
}

func (t *trackerImpl) Board() *Board {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.board
}

func (t *trackerImpl) Loading() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loading
}

func (t *trackerImpl) setLoading(v bool) {
	t.mu.Lock()
	t.loading = v
	t.mu.Unlock()
}

// clearBoard empties the buckets of the current board so that no stale tasks
// are shown after a failed load.
func (t *trackerImpl) clearBoard() {
	if b := t.Board(); b != nil {
		b.Buckets.Clear()
	}
}

func (t *trackerImpl) SetStatus(ctx context.Context, taskID int64, status domain.Status) (workflow.Result, error) {
	user, ctx, err := t.actor(ctx, "change task status")
	if err != nil {
		return workflow.Result{}, err
	}
	if !status.IsValid() {
		return workflow.Result{}, apperrors.NewInvalidInputError("status", status, "unknown status")
	}

	task, err := t.findTask(ctx, taskID)
	if err != nil {
		return workflow.Result{}, err
	}
	if !permission.CanChangeStatus(user, task.Task) {
		return workflow.Result{}, apperrors.NewPermissionError("change status", fmt.Sprintf("task %d", taskID))
	}

	return t.workflow.SetStatus(ctx, taskID, status)
}

// findTask returns the cached copy of a task, or loads and enriches it.
func (t *trackerImpl) findTask(ctx context.Context, taskID int64) (domain.EnrichedTask, error) {
	if b := t.Board(); b != nil {
		if task, ok := b.Buckets.Find(taskID); ok {
			return task, nil
		}
	}
	return t.fetchTask(ctx, taskID)
}

// fetchTask loads a task from the repository and resolves its manager.
func (t *trackerImpl) fetchTask(ctx context.Context, taskID int64) (domain.EnrichedTask, error) {
	if err := t.taskValidator.ValidateTaskID(taskID); err != nil {
		return domain.EnrichedTask{}, invalid("invalid task id", err)
	}
	task, err := t.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.EnrichedTask{}, err
	}
	enriched, err := t.composer.Enrich(ctx, []domain.Task{*task})
	if err != nil {
		return domain.EnrichedTask{}, err
	}
	return enriched[0], nil
}

func (t *trackerImpl) Dashboard() Dashboard {
	d := Dashboard{Counts: make(map[domain.Status]int, len(domain.AllStatuses))}
	for _, status := range domain.AllStatuses {
		d.Counts[status] = 0
	}

	b := t.Board()
	if b == nil {
		d.Recent = []domain.EnrichedTask{}
		return d
	}

	seen := make(map[int64]struct{})
	var tasks []domain.EnrichedTask
	for _, bucket := range b.Buckets.All() {
		for _, task := range bucket.Items() {
			if _, ok := seen[task.ID]; ok {
				continue
			}
			seen[task.ID] = struct{}{}
			tasks = append(tasks, task)
		}
	}

	now := t.now()
	for _, task := range tasks {
		d.Counts[task.Status]++
		if task.Status != domain.StatusCompleted && task.IsOverdue(now) {
			d.Overdue++
		}
	}
	d.Total = len(tasks)

	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	if len(tasks) > RecentTaskCount {
		tasks = tasks[:RecentTaskCount]
	}
	d.Recent = append([]domain.EnrichedTask{}, tasks...)
	return d
}
