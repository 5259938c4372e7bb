// Package events publishes task lifecycle notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"project-tracker/internal/domain"
	"project-tracker/internal/logging"
)

// Publisher is the subset of *nats.Conn the emitter needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// StatusChanged is published after the server accepted a status mutation.
type StatusChanged struct {
	EventID    string        `json:"eventId"`
	TaskID     int64         `json:"taskId"`
	ProjectID  int64         `json:"projectId"`
	Previous   domain.Status `json:"previous,omitempty"`
	Status     domain.Status `json:"status"`
	ActorID    int64         `json:"actorId"`
	Actor      string        `json:"actor"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// Emitter serializes events as JSON onto a subject.
// A nil *Emitter drops every event.
type Emitter struct {
	pub     Publisher
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// NewEmitter returns an emitter publishing on subject through pub.
func NewEmitter(pub Publisher, subject string, logger *slog.Logger) *Emitter {
	return &Emitter{
		pub:     pub,
		subject: subject,
		logger:  logging.OrDefault(logger),
		now:     time.Now,
	}
}

// PublishStatusChanged fills in the event id and timestamp when missing and publishes ev.
func (e *Emitter) PublishStatusChanged(ctx context.Context, ev StatusChanged) error {
	if e == nil || e.pub == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	if err := e.pub.Publish(e.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", e.subject, err)
	}

	e.logger.Debug("status event published", "subject", e.subject, "task", ev.TaskID, "status", ev.Status, "event", ev.EventID)
	return nil
}

// Connect dials NATS with reconnect handling that reports through logger.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	logger = logging.OrDefault(logger)
	nc, err := nats.Connect(url,
		nats.Name("project-tracker"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Subscribe decodes StatusChanged events from subject and passes them to handle.
// Undecodable messages are logged and skipped.
func Subscribe(nc *nats.Conn, subject string, logger *slog.Logger, handle func(StatusChanged)) (*nats.Subscription, error) {
	logger = logging.OrDefault(logger)
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var ev StatusChanged
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Warn("dropping malformed status event", "subject", msg.Subject, "error", err)
			return
		}
		handle(ev)
	})
}
