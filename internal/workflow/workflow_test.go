package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-tracker/internal/domain"
	apperrors "project-tracker/internal/errors"
	"project-tracker/internal/events"
	"project-tracker/internal/logging"
	"project-tracker/internal/metrics"
	"project-tracker/internal/partition"
)

type fakeMutator struct {
	mu     sync.Mutex
	calls  int
	err    error
	task   *domain.Task
	during func()
}

func (f *fakeMutator) SetStatus(ctx context.Context, taskID int64, status domain.Status) (*domain.Task, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.task != nil {
		return f.task, nil
	}
	return &domain.Task{ID: taskID, Status: status, ProjectID: 10}, nil
}

type staticUser struct{ user *domain.User }

func (s staticUser) CurrentUser() *domain.User { return s.user }

type capturePublisher struct {
	payloads [][]byte
}

func (c *capturePublisher) Publish(_ string, data []byte) error {
	c.payloads = append(c.payloads, data)
	return nil
}

func pending(id, projectID int64) domain.EnrichedTask {
	return domain.EnrichedTask{Task: domain.Task{ID: id, ProjectID: projectID, Status: domain.StatusPending}}
}

// twoViews builds an "all" view and a project view that both hold task 1.
func twoViews() (*partition.Buckets, *partition.Buckets) {
	all := partition.NewBuckets(partition.NewBucket(partition.BucketAll, []domain.EnrichedTask{pending(1, 10), pending(2, 10), pending(3, 20)}, 10))
	project := partition.NewBuckets(partition.NewBucket(partition.BucketManagedProjects, []domain.EnrichedTask{pending(1, 10), pending(2, 10)}, 10))
	return all, project
}

func snapshot(sets ...*partition.Buckets) [][]domain.EnrichedTask {
	var out [][]domain.EnrichedTask
	for _, set := range sets {
		for _, b := range set.All() {
			out = append(out, b.Items())
		}
	}
	return out
}

func TestSetStatus_FansOutToEveryBucket(t *testing.T) {
	all, project := twoViews()
	wf := New(&fakeMutator{}, nil, nil, metrics.New(), logging.Discard())
	wf.Track(all, project)

	result, err := wf.SetStatus(context.Background(), 1, domain.StatusInProgress)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Replaced)
	assert.Equal(t, []partition.Name{partition.BucketAll, partition.BucketManagedProjects}, result.Buckets)
	assert.Equal(t, domain.StatusInProgress, result.Task.Status)

	for _, set := range []*partition.Buckets{all, project} {
		task, ok := set.Find(1)
		require.True(t, ok)
		assert.Equal(t, domain.StatusInProgress, task.Status)
		other, _ := set.Find(2)
		assert.Equal(t, domain.StatusPending, other.Status, "other tasks are untouched")
	}
}

func TestSetStatus_FailureLeavesBucketsUnchanged(t *testing.T) {
	all, project := twoViews()
	before := snapshot(all, project)
	failure := apperrors.NewRemoteError("set status", 500, errors.New("boom"))
	mutator := &fakeMutator{err: failure}

	wf := New(mutator, nil, nil, nil, logging.Discard())
	wf.Track(all, project)

	result, err := wf.SetStatus(context.Background(), 1, domain.StatusCompleted)

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, Result{}, result)
	assert.Equal(t, before, snapshot(all, project))
	assert.Equal(t, 1, mutator.calls, "no retry")
}

func TestSetStatus_AnyTransitionIsAllowed(t *testing.T) {
	bucket := partition.NewBucket(partition.BucketAll, []domain.EnrichedTask{{Task: domain.Task{ID: 1, Status: domain.StatusCompleted}}}, 10)
	set := partition.NewBuckets(bucket)
	wf := New(&fakeMutator{}, nil, nil, nil, logging.Discard())
	wf.Track(set)

	_, err := wf.SetStatus(context.Background(), 1, domain.StatusPending)
	require.NoError(t, err)

	task, _ := set.Find(1)
	assert.Equal(t, domain.StatusPending, task.Status)
}

func TestSetStatus_UsesServerStatus(t *testing.T) {
	all, _ := twoViews()
	mutator := &fakeMutator{task: &domain.Task{ID: 1, Status: domain.StatusCompleted, ProjectID: 10}}
	wf := New(mutator, nil, nil, nil, logging.Discard())
	wf.Track(all)

	result, err := wf.SetStatus(context.Background(), 1, domain.StatusInProgress)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, result.Task.Status)
	task, _ := all.Find(1)
	assert.Equal(t, domain.StatusCompleted, task.Status)
}

func TestSetStatus_Cancellation(t *testing.T) {
	all, _ := twoViews()
	mutator := &fakeMutator{}
	wf := New(mutator, nil, nil, nil, logging.Discard())
	wf.Track(all)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := wf.SetStatus(ctx, 1, domain.StatusCompleted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mutator.calls, "no request after cancellation")

	ctx, cancel = context.WithCancel(context.Background())
	mutator.during = cancel
	result, err := wf.SetStatus(ctx, 1, domain.StatusCompleted)
	require.NoError(t, err, "the server accepted the change before the cancellation")
	assert.Equal(t, 1, result.Replaced)
}

func TestSetStatus_UntrackedBucketsAreNotUpdated(t *testing.T) {
	all, project := twoViews()
	wf := New(&fakeMutator{}, nil, nil, nil, logging.Discard())
	wf.Track(all, project, all)
	wf.Untrack(project)

	result, err := wf.SetStatus(context.Background(), 1, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Replaced)

	task, _ := project.Find(1)
	assert.Equal(t, domain.StatusPending, task.Status)
}

func TestSetStatus_PublishesEvent(t *testing.T) {
	all, _ := twoViews()
	pub := &capturePublisher{}
	emitter := events.NewEmitter(pub, "tracker.task.status", logging.Discard())
	actor := staticUser{user: &domain.User{ID: 3, Username: "luis"}}

	wf := New(&fakeMutator{}, actor, emitter, nil, logging.Discard())
	wf.Track(all)

	_, err := wf.SetStatus(context.Background(), 3, domain.StatusCompleted)
	require.NoError(t, err)

	require.Len(t, pub.payloads, 1)
	var ev events.StatusChanged
	require.NoError(t, json.Unmarshal(pub.payloads[0], &ev))
	assert.Equal(t, int64(3), ev.TaskID)
	assert.Equal(t, domain.StatusPending, ev.Previous)
	assert.Equal(t, domain.StatusCompleted, ev.Status)
	assert.Equal(t, "luis", ev.Actor)
}

func TestSetStatus_ConcurrentCalls(t *testing.T) {
	all, project := twoViews()
	wf := New(&fakeMutator{}, nil, nil, nil, logging.Discard())
	wf.Track(all, project)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := domain.AllStatuses[i%len(domain.AllStatuses)]
			_, err := wf.SetStatus(context.Background(), int64(i%3+1), status)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, all.Len())
	assert.Equal(t, 2, project.Len())
}
