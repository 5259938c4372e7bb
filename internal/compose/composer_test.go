package compose

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-tracker/internal/domain"
	"project-tracker/internal/logging"
	"project-tracker/internal/metrics"
)

// fakeLookup records calls and answers from a table.
type fakeLookup struct {
	mu       sync.Mutex
	calls    map[int64]int
	managers map[int64]*domain.User
	failures map[int64]error
	delay    map[int64]time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	barrier     int32
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		calls:    make(map[int64]int),
		managers: make(map[int64]*domain.User),
		failures: make(map[int64]error),
		delay:    make(map[int64]time.Duration),
	}
}

func (f *fakeLookup) GetManager(ctx context.Context, projectID int64) (*domain.User, error) {
	f.mu.Lock()
	f.calls[projectID]++
	manager, failure, delay := f.managers[projectID], f.failures[projectID], f.delay[projectID]
	f.mu.Unlock()

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	// Hold every call until the expected number is in flight, so a sequential
	// implementation would only ever reach one.
	if f.barrier > 0 {
		deadline := time.Now().Add(2 * time.Second)
		for f.inFlight.Load() < f.barrier && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	return manager, nil
}

func (f *fakeLookup) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func task(id, projectID int64) domain.Task {
	return domain.Task{ID: id, Title: "task", ProjectID: projectID, Status: domain.StatusPending}
}

func newComposer(lookup ManagerLookup, opts Options) *Composer {
	return New(lookup, opts, logging.Discard(), metrics.New())
}

func TestEnrich_OneLookupPerDistinctProject(t *testing.T) {
	lookup := newFakeLookup()
	maria := &domain.User{ID: 2, Username: "maria"}
	lookup.managers[10] = maria
	lookup.managers[20] = &domain.User{ID: 3, Username: "pedro"}

	tasks := []domain.Task{task(1, 10), task(2, 10), task(3, 20)}
	enriched, err := newComposer(lookup, Options{}).Enrich(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, 2, lookup.totalCalls())
	assert.Equal(t, map[int64]int{10: 1, 20: 1}, lookup.calls)

	require.Len(t, enriched, 3)
	assert.Same(t, enriched[0].ProjectManager, enriched[1].ProjectManager, "tasks of one project share a manager snapshot")
	assert.Equal(t, "maria", enriched[0].ProjectManager.Username)
	assert.Equal(t, "pedro", enriched[2].ProjectManager.Username)
	assert.NotSame(t, maria, enriched[0].ProjectManager, "the lookup result is copied")
}

func TestEnrich_LookupCountIndependentOfTaskCount(t *testing.T) {
	lookup := newFakeLookup()
	tasks := make([]domain.Task, 0, 300)
	for i := int64(0); i < 300; i++ {
		tasks = append(tasks, task(i+1, i%7))
	}

	_, err := newComposer(lookup, Options{}).Enrich(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, 7, lookup.totalCalls())
}

func TestEnrich_LookupsRunConcurrently(t *testing.T) {
	lookup := newFakeLookup()
	lookup.barrier = 4

	tasks := []domain.Task{task(1, 1), task(2, 2), task(3, 3), task(4, 4)}
	_, err := newComposer(lookup, Options{}).Enrich(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, int32(4), lookup.maxInFlight.Load())
}

func TestEnrich_MaxConcurrentBoundsLookups(t *testing.T) {
	lookup := newFakeLookup()
	for p := int64(1); p <= 6; p++ {
		lookup.delay[p] = 5 * time.Millisecond
	}

	tasks := []domain.Task{task(1, 1), task(2, 2), task(3, 3), task(4, 4), task(5, 5), task(6, 6)}
	_, err := newComposer(lookup, Options{MaxConcurrent: 2}).Enrich(context.Background(), tasks)
	require.NoError(t, err)

	assert.LessOrEqual(t, lookup.maxInFlight.Load(), int32(2))
	assert.Equal(t, 6, lookup.totalCalls())
}

func TestEnrich_FailureIsContainedPerProject(t *testing.T) {
	lookup := newFakeLookup()
	lookup.managers[10] = &domain.User{ID: 2, Username: "maria"}
	lookup.failures[20] = errors.New("500 internal server error")
	lookup.managers[30] = &domain.User{ID: 3, Username: "pedro"}

	tasks := []domain.Task{task(1, 20), task(2, 10), task(3, 20), task(4, 30)}
	enriched, err := newComposer(lookup, Options{}).Enrich(context.Background(), tasks)
	require.NoError(t, err)

	assert.Nil(t, enriched[0].ProjectManager)
	assert.Nil(t, enriched[2].ProjectManager)
	require.NotNil(t, enriched[1].ProjectManager)
	assert.Equal(t, "maria", enriched[1].ProjectManager.Username)
	require.NotNil(t, enriched[3].ProjectManager)
	assert.Equal(t, "pedro", enriched[3].ProjectManager.Username)
}

func TestEnrich_ProjectWithoutManager(t *testing.T) {
	lookup := newFakeLookup()

	enriched, err := newComposer(lookup, Options{}).Enrich(context.Background(), []domain.Task{task(1, 10)})
	require.NoError(t, err)
	assert.Nil(t, enriched[0].ProjectManager)
}

func TestEnrich_TimeoutIsContained(t *testing.T) {
	lookup := newFakeLookup()
	lookup.delay[10] = time.Second
	lookup.managers[10] = &domain.User{ID: 2, Username: "slow"}
	lookup.managers[20] = &domain.User{ID: 3, Username: "fast"}

	start := time.Now()
	enriched, err := newComposer(lookup, Options{Timeout: 20 * time.Millisecond}).
		Enrich(context.Background(), []domain.Task{task(1, 10), task(2, 20)})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Nil(t, enriched[0].ProjectManager)
	require.NotNil(t, enriched[1].ProjectManager)
	assert.Equal(t, "fast", enriched[1].ProjectManager.Username)
}

func TestEnrich_PreservesOrderAndDoesNotMutateInput(t *testing.T) {
	lookup := newFakeLookup()
	lookup.managers[1] = &domain.User{ID: 9, Username: "m"}
	lookup.delay[1] = 10 * time.Millisecond

	assignee := int64(5)
	tasks := []domain.Task{task(3, 2), task(1, 1), task(2, 2)}
	tasks[1].AssigneeID = &assignee
	original := append([]domain.Task(nil), tasks...)

	enriched, err := newComposer(lookup, Options{}).Enrich(context.Background(), tasks)
	require.NoError(t, err)

	for i := range tasks {
		assert.Equal(t, tasks[i].ID, enriched[i].ID)
	}
	*enriched[1].AssigneeID = 99
	enriched[0].Title = "changed"
	assert.Equal(t, original, tasks)
	assert.Equal(t, int64(5), assignee)
}

func TestEnrich_Empty(t *testing.T) {
	lookup := newFakeLookup()
	enriched, err := newComposer(lookup, Options{}).Enrich(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, enriched)
	assert.Equal(t, 0, lookup.totalCalls())
}

func TestEnrich_Cancellation(t *testing.T) {
	lookup := newFakeLookup()
	lookup.delay[10] = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	enriched, err := newComposer(lookup, Options{}).Enrich(ctx, []domain.Task{task(1, 10)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, enriched)

	_, err = newComposer(lookup, Options{}).Enrich(ctx, []domain.Task{task(1, 10)})
	assert.ErrorIs(t, err, context.Canceled, "already cancelled contexts issue no lookups")
	assert.Equal(t, 1, lookup.totalCalls())
}
