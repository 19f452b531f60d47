package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mytankugift/catalog-sync/internal/api/dto"
	"github.com/mytankugift/catalog-sync/internal/events"
	"github.com/mytankugift/catalog-sync/internal/jobs"
)

// JobService is the slice of the job repository the API consumes.
type JobService interface {
	Create(ctx context.Context, t jobs.Type) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	List(ctx context.Context, filter jobs.Filter) ([]jobs.Job, error)
	Cancel(ctx context.Context, id string) (*jobs.Job, error)
}

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Logger *slog.Logger
	Jobs   JobService
	Events *events.Publisher
}

// JobHandler handles job-related HTTP requests.
type JobHandler struct {
	logger *slog.Logger
	jobs   JobService
	events *events.Publisher
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		jobs:   deps.Jobs,
		events: deps.Events,
	}
}

func toDTO(job *jobs.Job) dto.JobDTO {
	out := dto.JobDTO{
		ID:        job.ID,
		Type:      string(job.Type),
		Status:    string(job.Status),
		Progress:  job.Progress,
		Attempts:  job.Attempts,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}
	if job.LockedBy.Valid {
		out.LockedBy = job.LockedBy.String
	}
	if job.StartedAt.Valid {
		out.StartedAt = job.StartedAt.Time.Format(time.RFC3339)
	}
	if job.FinishedAt.Valid {
		out.FinishedAt = job.FinishedAt.Time.Format(time.RFC3339)
	}
	if job.Error.Valid {
		out.Error = job.Error.String
	}
	return out
}
