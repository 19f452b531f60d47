package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mytankugift/catalog-sync/internal/events"
	"github.com/mytankugift/catalog-sync/internal/jobs"
)

// Loop polls the job store for one job type and drives its executor:
// claim, run, report, repeat. It idles for PollInterval when no work is
// available. Job failures are recorded and never stop the loop; only a
// failure to record an outcome escalates, because that would leave a job
// stuck in RUNNING.
type Loop struct {
	store    Store
	executor Executor
	events   *events.Publisher
	logger   *slog.Logger
	workerID string
	interval time.Duration
}

// LoopConfig wires a Loop.
type LoopConfig struct {
	Store        Store
	Executor     Executor
	Events       *events.Publisher
	Logger       *slog.Logger
	WorkerID     string
	PollInterval time.Duration
}

// NewLoop creates a worker loop for one job type.
func NewLoop(cfg *LoopConfig) *Loop {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Loop{
		store:    cfg.Store,
		executor: cfg.Executor,
		events:   cfg.Events,
		logger: cfg.Logger.With(
			slog.String("job_type", string(cfg.Executor.Type())),
			slog.String("worker_id", cfg.WorkerID),
		),
		workerID: cfg.WorkerID,
		interval: interval,
	}
}

// Run polls until ctx is cancelled. An in-flight job is allowed to
// finish: the context is only consulted between jobs, and the job's own
// work runs under a context detached from the cancellation signal.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Worker loop started", slog.Duration("poll_interval", l.interval))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Worker loop stopped")
			return nil
		default:
		}

		job, err := l.store.ClaimNext(ctx, l.executor.Type(), l.workerID)
		if err != nil {
			// A transient store error must not kill the process;
			// back off and try again.
			l.logger.Warn("Failed to claim job", slog.Any("error", err))
			if !l.idle(ctx) {
				return nil
			}
			continue
		}

		if job == nil {
			if !l.idle(ctx) {
				return nil
			}
			continue
		}

		// Detached from the shutdown signal: an in-flight job runs to
		// completion and its outcome is always recorded, otherwise a
		// SIGTERM mid-job would strand the row in RUNNING.
		if err := l.process(context.WithoutCancel(ctx), job); err != nil {
			return err
		}
	}
}

// process runs the executor for one claimed job and records the outcome.
// The returned error is loop-fatal; executor errors are absorbed here.
func (l *Loop) process(ctx context.Context, job *jobs.Job) error {
	logger := l.logger.With(slog.String("job_id", job.ID))
	logger.Info("Executing job", slog.Int("attempts", job.Attempts))

	outcome, err := l.executor.Run(ctx, job.ID)

	switch {
	case errors.Is(err, jobs.ErrCancelled):
		// The cancel operation already moved the job to its terminal
		// state; writing anything here would race with it.
		logger.Info("Job cancelled, stopping cleanly")
		return nil

	case err != nil:
		logger.Error("Job execution failed", slog.Any("error", err))
		if markErr := l.store.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			return fmt.Errorf("failed to record failure of job %s: %w", job.ID, markErr)
		}
		l.events.JobFailed(ctx, job, err.Error())
		return nil

	default:
		if markErr := l.store.MarkDone(ctx, job.ID); markErr != nil {
			return fmt.Errorf("failed to record completion of job %s: %w", job.ID, markErr)
		}
		logger.Info("Job completed",
			slog.Int("processed", outcome.Processed),
			slog.Int("skipped", outcome.Skipped),
			slog.Int("errored", outcome.Errored),
		)
		l.events.JobDone(ctx, job)
		return nil
	}
}

// idle sleeps one poll interval; returns false when ctx ended first.
func (l *Loop) idle(ctx context.Context) bool {
	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
