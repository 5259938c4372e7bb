// Package compose annotates tasks with the manager of their project.
package compose

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"project-tracker/internal/domain"
	"project-tracker/internal/logging"
	"project-tracker/internal/metrics"
)

// ManagerLookup resolves the manager of a project.
// A nil user with a nil error means the project has no manager.
type ManagerLookup interface {
	GetManager(ctx context.Context, projectID int64) (*domain.User, error)
}

// Options bounds the lookups of one Enrich call.
type Options struct {
	// MaxConcurrent caps lookups in flight; 0 runs all of them at once.
	MaxConcurrent int
	// Timeout applies to each lookup; 0 disables it.
	Timeout time.Duration
}

// Composer builds enriched task views.
type Composer struct {
	lookup  ManagerLookup
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New returns a composer resolving managers through lookup. Logger and metrics may be nil.
func New(lookup ManagerLookup, opts Options, logger *slog.Logger, m *metrics.Metrics) *Composer {
	return &Composer{
		lookup:  lookup,
		opts:    opts,
		logger:  logging.OrDefault(logger),
		metrics: m,
	}
}

// Enrich resolves each distinct project of tasks exactly once, concurrently,
// and returns copies of tasks in input order carrying their project's manager.
//
// A failed or timed out lookup leaves the manager of that project's tasks nil
// and does not affect other projects. Tasks of the same project share one
// manager value. The only error returned is the cancellation of ctx, in which
// case no tasks are returned.
func (c *Composer) Enrich(ctx context.Context, tasks []domain.Task) ([]domain.EnrichedTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	projectIDs, slot := distinctProjects(tasks)
	managers := make([]*domain.User, len(projectIDs))

	var g errgroup.Group
	if c.opts.MaxConcurrent > 0 {
		g.SetLimit(c.opts.MaxConcurrent)
	}
	for i, projectID := range projectIDs {
		i, projectID := i, projectID
		g.Go(func() error {
			managers[i] = c.resolve(ctx, projectID)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enriched := make([]domain.EnrichedTask, len(tasks))
	for i, task := range tasks {
		enriched[i] = domain.EnrichedTask{
			Task:           task.Clone(),
			ProjectManager: managers[slot[task.ProjectID]],
		}
	}
	c.metrics.AddEnriched(len(enriched))
	c.logger.Debug("tasks enriched", "tasks", len(tasks), "lookups", len(projectIDs))
	return enriched, nil
}

// resolve performs one lookup and contains its failure.
func (c *Composer) resolve(ctx context.Context, projectID int64) *domain.User {
	lookupCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	manager, err := c.lookup.GetManager(lookupCtx, projectID)
	elapsed := time.Since(start)

	switch {
	case err != nil && ctx.Err() == nil && errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
		c.metrics.ObserveLookup(metrics.LookupTimedOut, elapsed)
		c.logger.Warn("manager lookup timed out", "project", projectID, "timeout", c.opts.Timeout)
		return nil
	case err != nil:
		c.metrics.ObserveLookup(metrics.LookupFailed, elapsed)
		if ctx.Err() == nil {
			c.logger.Warn("manager lookup failed", "project", projectID, "error", err)
		}
		return nil
	case manager == nil:
		c.metrics.ObserveLookup(metrics.LookupAbsent, elapsed)
		return nil
	}

	c.metrics.ObserveLookup(metrics.LookupFound, elapsed)
	snapshot := manager.Clone()
	return &snapshot
}

// distinctProjects lists project ids in order of first appearance and maps
// each id to its position.
func distinctProjects(tasks []domain.Task) ([]int64, map[int64]int) {
	slot := make(map[int64]int)
	ids := make([]int64, 0)
	for _, task := range tasks {
		if _, seen := slot[task.ProjectID]; seen {
			continue
		}
		slot[task.ProjectID] = len(ids)
		ids = append(ids, task.ProjectID)
	}
	return ids, slot
}
