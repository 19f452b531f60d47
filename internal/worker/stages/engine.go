// Package stages implements the five pipeline stage executors and the
// shared batch engine they run on.
package stages

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mytankugift/catalog-sync/internal/jobs"
	"github.com/mytankugift/catalog-sync/internal/worker"
)

// maxRecordedErrors caps the per-item error list kept on an outcome.
const maxRecordedErrors = 20

// Tracker is the slice of the job repository the engine needs: the
// cooperative cancellation probe and progress reporting.
type Tracker interface {
	Status(ctx context.Context, id string) (jobs.Status, error)
	UpdateProgress(ctx context.Context, id string, percent int) error
}

// Engine drives one stage run: bounded batches, a progress write after
// each batch, a fixed pause between batches to respect external call
// budgets, and per-item retries with exponential backoff. Item failures
// that outlive the retry ceiling are recorded and skipped; they never
// abort the run.
type Engine struct {
	tracker     Tracker
	logger      *slog.Logger
	batchSize   int
	batchPause  time.Duration
	itemRetries int
	retryDelay  time.Duration
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Tracker     Tracker
	Logger      *slog.Logger
	BatchSize   int
	BatchPause  time.Duration
	ItemRetries int           // attempts per item, including the first
	RetryDelay  time.Duration // delay before the second attempt, doubling after
}

// NewEngine creates an Engine, applying defaults for unset knobs.
func NewEngine(cfg *EngineConfig) *Engine {
	e := &Engine{
		tracker:     cfg.Tracker,
		logger:      cfg.Logger,
		batchSize:   cfg.BatchSize,
		batchPause:  cfg.BatchPause,
		itemRetries: cfg.ItemRetries,
		retryDelay:  cfg.RetryDelay,
	}
	if e.batchSize <= 0 {
		e.batchSize = 25
	}
	if e.itemRetries <= 0 {
		e.itemRetries = 3
	}
	if e.retryDelay <= 0 {
		e.retryDelay = 500 * time.Millisecond
	}
	return e
}

// Plan describes one stage's work to the engine. Load snapshots the full
// item set up front so progress can be reported as a fraction of total
// work and a mutating run cannot chase its own tail. Process applies one
// item and reports whether it actually wrote anything; returning false
// with no error means the item's precondition was already satisfied, so
// a resumed run walks over finished items for free. Wrapping a Process
// error in backoff.Permanent skips the remaining retries.
type Plan[T any] struct {
	Load     func(ctx context.Context) ([]T, error)
	Process  func(ctx context.Context, item T) (bool, error)
	Describe func(item T) string
}

// Run executes a plan for jobID. It returns jobs.ErrCancelled (with the
// partial outcome) when a cancellation check observes the job left
// RUNNING; any other returned error is a fatal stage error.
func Run[T any](ctx context.Context, e *Engine, jobID string, plan Plan[T]) (*worker.Outcome, error) {
	if err := e.ensureRunning(ctx, jobID); err != nil {
		return nil, err
	}

	items, err := plan.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load work items: %w", err)
	}

	outcome := &worker.Outcome{}
	total := len(items)
	if total == 0 {
		return outcome, nil
	}

	for start := 0; start < total; start += e.batchSize {
		if err := e.ensureRunning(ctx, jobID); err != nil {
			return outcome, err
		}

		end := min(start+e.batchSize, total)
		for _, item := range items[start:end] {
			applied, err := applyWithRetry(ctx, e, plan, item)
			if err != nil {
				outcome.Errored++
				if len(outcome.Errors) < maxRecordedErrors {
					outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", plan.Describe(item), err))
				}
				e.logger.Warn("Item failed after retries",
					slog.String("job_id", jobID),
					slog.String("item", plan.Describe(item)),
					slog.Any("error", err),
				)
				continue
			}
			if applied {
				outcome.Processed++
			} else {
				outcome.Skipped++
			}
		}

		if err := e.tracker.UpdateProgress(ctx, jobID, end*100/total); err != nil {
			// Progress is advisory; losing one write is not worth
			// failing the run.
			e.logger.Warn("Failed to update progress",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}

		if end < total && e.batchPause > 0 {
			time.Sleep(e.batchPause)
		}
	}

	return outcome, nil
}

// applyWithRetry runs Process for one item under the retry policy:
// itemRetries attempts with the delay doubling between them.
func applyWithRetry[T any](ctx context.Context, e *Engine, plan Plan[T], item T) (bool, error) {
	var applied bool
	op := func() error {
		var err error
		applied, err = plan.Process(ctx, item)
		return err
	}
	if err := backoff.Retry(op, e.newBackOff()); err != nil {
		return false, err
	}
	return applied, nil
}

func (e *Engine) ensureRunning(ctx context.Context, jobID string) error {
	status, err := e.tracker.Status(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to check job status: %w", err)
	}
	if status != jobs.StatusRunning {
		return jobs.ErrCancelled
	}
	return nil
}

func (e *Engine) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	return backoff.WithMaxRetries(bo, uint64(e.itemRetries-1))
}
