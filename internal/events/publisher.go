// Package events publishes job lifecycle events for the operational
// dashboard. Publishing is best-effort: a broker outage is logged and
// never fails the job operation that triggered it, and the engine itself
// never consumes these messages — claiming stays polling-only against
// the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mytankugift/catalog-sync/internal/jobs"
	"github.com/mytankugift/catalog-sync/shared/rabbitmq"
)

const (
	EventCreated   = "created"
	EventDone      = "done"
	EventFailed    = "failed"
	EventCancelled = "cancelled"
)

// Event is the JSON payload published per lifecycle transition.
type Event struct {
	JobID    string    `json:"job_id"`
	JobType  jobs.Type `json:"job_type"`
	Event    string    `json:"event"`
	Error    string    `json:"error,omitempty"`
	Progress int       `json:"progress"`
	At       time.Time `json:"at"`
}

// Publisher emits job lifecycle events. A nil Publisher is valid and
// drops everything, so callers never need to branch on whether a broker
// is configured.
type Publisher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewPublisher wraps a connected RabbitMQ client.
func NewPublisher(client *rabbitmq.Client, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// JobCreated emits a "created" event.
func (p *Publisher) JobCreated(ctx context.Context, job *jobs.Job) {
	p.publish(ctx, job, EventCreated, "")
}

// JobDone emits a "done" event.
func (p *Publisher) JobDone(ctx context.Context, job *jobs.Job) {
	p.publish(ctx, job, EventDone, "")
}

// JobFailed emits a "failed" event with the recorded error.
func (p *Publisher) JobFailed(ctx context.Context, job *jobs.Job, message string) {
	p.publish(ctx, job, EventFailed, message)
}

// JobCancelled emits a "cancelled" event.
func (p *Publisher) JobCancelled(ctx context.Context, job *jobs.Job) {
	p.publish(ctx, job, EventCancelled, jobs.CancelledMessage)
}

func (p *Publisher) publish(ctx context.Context, job *jobs.Job, event, message string) {
	if p == nil || p.client == nil {
		return
	}

	body, err := json.Marshal(Event{
		JobID:    job.ID,
		JobType:  job.Type,
		Event:    event,
		Error:    message,
		Progress: job.Progress,
		At:       time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("Failed to encode job event", slog.Any("error", err))
		return
	}

	key := routingKey(job.Type, event)
	if err := p.client.Publish(ctx, key, body); err != nil {
		p.logger.Warn("Failed to publish job event",
			slog.String("job_id", job.ID),
			slog.String("routing_key", key),
			slog.Any("error", err),
		)
	}
}

func routingKey(t jobs.Type, event string) string {
	return fmt.Sprintf("jobs.%s.%s", strings.ToLower(string(t)), event)
}
