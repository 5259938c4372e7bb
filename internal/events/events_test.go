package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-tracker/internal/domain"
	"project-tracker/internal/logging"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestEmitter_PublishStatusChanged(t *testing.T) {
	pub := &recordingPublisher{}
	emitter := NewEmitter(pub, "tracker.task.status", logging.Discard())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	emitter.now = func() time.Time { return fixed }

	err := emitter.PublishStatusChanged(context.Background(), StatusChanged{
		TaskID:    7,
		ProjectID: 10,
		Previous:  domain.StatusPending,
		Status:    domain.StatusCompleted,
		ActorID:   2,
		Actor:     "ana",
	})
	require.NoError(t, err)

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "tracker.task.status", pub.subjects[0])

	var ev StatusChanged
	require.NoError(t, json.Unmarshal(pub.payloads[0], &ev))
	assert.Equal(t, int64(7), ev.TaskID)
	assert.Equal(t, domain.StatusCompleted, ev.Status)
	assert.Equal(t, fixed, ev.OccurredAt)
	assert.Len(t, ev.EventID, 36, "event id is a uuid")
}

func TestEmitter_KeepsProvidedIdentity(t *testing.T) {
	pub := &recordingPublisher{}
	emitter := NewEmitter(pub, "s", nil)

	require.NoError(t, emitter.PublishStatusChanged(context.Background(), StatusChanged{EventID: "evt-1", TaskID: 1, Status: domain.StatusPending}))

	var ev StatusChanged
	require.NoError(t, json.Unmarshal(pub.payloads[0], &ev))
	assert.Equal(t, "evt-1", ev.EventID)
}

func TestEmitter_Errors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: connection closed")}
	emitter := NewEmitter(pub, "s", logging.Discard())

	err := emitter.PublishStatusChanged(context.Background(), StatusChanged{TaskID: 1})
	assert.ErrorContains(t, err, "connection closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewEmitter(&recordingPublisher{}, "s", nil).PublishStatusChanged(ctx, StatusChanged{TaskID: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitter_NilDropsEvents(t *testing.T) {
	var emitter *Emitter
	assert.NoError(t, emitter.PublishStatusChanged(context.Background(), StatusChanged{TaskID: 1}))
}
