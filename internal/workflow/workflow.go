// Package workflow applies task status changes and keeps cached buckets in step.
package workflow

import (
	"context"
	"log/slog"
	"sync"

	"project-tracker/internal/domain"
	"project-tracker/internal/events"
	"project-tracker/internal/logging"
	"project-tracker/internal/metrics"
	"project-tracker/internal/partition"
)

// StatusMutator issues the status change to the system of record and returns
// the task as stored there.
type StatusMutator interface {
	SetStatus(ctx context.Context, taskID int64, status domain.Status) (*domain.Task, error)
}

// UserSource identifies the actor recorded on published events.
type UserSource interface {
	CurrentUser() *domain.User
}

// Result describes a successful status change.
type Result struct {
	Task     domain.Task
	Replaced int
	Buckets  []partition.Name
}

// Workflow performs status changes for one logical session.
// Any status may be set from any other; legality is left to the server.
type Workflow struct {
	mutator StatusMutator
	users   UserSource
	emitter *events.Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	tracked []*partition.Buckets
}

// New returns a workflow. users, emitter, m and logger may be nil.
func New(mutator StatusMutator, users UserSource, emitter *events.Emitter, m *metrics.Metrics, logger *slog.Logger) *Workflow {
	return &Workflow{
		mutator: mutator,
		users:   users,
		emitter: emitter,
		metrics: m,
		logger:  logging.OrDefault(logger),
	}
}

// Track registers bucket sets that must reflect status changes.
func (w *Workflow) Track(sets ...*partition.Buckets) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, set := range sets {
		if set != nil && !w.trackedLocked(set) {
			w.tracked = append(w.tracked, set)
		}
	}
}

// Untrack stops updating set.
func (w *Workflow) Untrack(set *partition.Buckets) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.tracked {
		if s == set {
			w.tracked = append(w.tracked[:i:i], w.tracked[i+1:]...)
			return
		}
	}
}

func (w *Workflow) trackedLocked(set *partition.Buckets) bool {
	for _, s := range w.tracked {
		if s == set {
			return true
		}
	}
	return false
}

// SetStatus issues the mutation and, once it succeeded, rewrites the status of
// every cached copy of the task in every tracked bucket.
//
// On failure no bucket is touched, the error is returned as is and nothing is
// retried. A cancelled ctx stops the call before the request is issued; if the
// server already accepted the change, the buckets are still updated.
func (w *Workflow) SetStatus(ctx context.Context, taskID int64, status domain.Status) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	previous, _ := w.find(taskID)

	updated, err := w.mutator.SetStatus(ctx, taskID, status)
	if err != nil {
		w.metrics.ObserveStatusChange(false, 0)
		w.logger.Warn("status change failed", "task", taskID, "status", status, "error", err)
		return Result{}, err
	}

	result := Result{Task: domain.Task{ID: taskID, Status: status}}
	if updated != nil {
		result.Task = updated.Clone()
	}
	if !result.Task.Status.IsValid() {
		result.Task.Status = status
	}

	w.mu.Lock()
	for _, set := range w.tracked {
		for _, bucket := range set.All() {
			if n := bucket.SetStatus(taskID, result.Task.Status); n > 0 {
				result.Replaced += n
				result.Buckets = append(result.Buckets, bucket.Name())
			}
		}
	}
	w.mu.Unlock()

	w.metrics.ObserveStatusChange(true, result.Replaced)
	w.logger.Info("task status changed", "task", taskID, "status", result.Task.Status, "copies", result.Replaced)
	w.publish(ctx, previous, result.Task)
	return result, nil
}

func (w *Workflow) find(taskID int64) (domain.EnrichedTask, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, set := range w.tracked {
		if t, ok := set.Find(taskID); ok {
			return t, true
		}
	}
	return domain.EnrichedTask{}, false
}

// publish reports the change; delivery failures are logged only.
func (w *Workflow) publish(ctx context.Context, previous domain.EnrichedTask, task domain.Task) {
	if w.emitter == nil {
		return
	}
	ev := events.StatusChanged{
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		Previous:  previous.Status,
		Status:    task.Status,
	}
	if ev.ProjectID == 0 {
		ev.ProjectID = previous.ProjectID
	}
	if w.users != nil {
		if u := w.users.CurrentUser(); u != nil {
			ev.ActorID = u.ID
			ev.Actor = u.Username
		}
	}
	if err := w.emitter.PublishStatusChanged(context.WithoutCancel(ctx), ev); err != nil {
		w.logger.Warn("status event not published", "task", task.ID, "error", err)
	}
}
