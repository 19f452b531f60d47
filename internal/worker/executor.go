package worker

import (
	"context"
	"fmt"

	"github.com/mytankugift/catalog-sync/internal/jobs"
)

// Executor is the stage logic bound to one job type. Run processes the
// whole job and returns a summary; it must re-check the job status
// between batches and return jobs.ErrCancelled (possibly wrapped) when
// the job left RUNNING, which the loop treats as a clean stop rather
// than a failure.
type Executor interface {
	Type() jobs.Type
	Run(ctx context.Context, jobID string) (*Outcome, error)
}

// Outcome summarizes one executor run. The loop only logs it; success
// or failure is carried by Run's error alone, so a run with errored
// items still completes the job.
type Outcome struct {
	Processed int
	Skipped   int
	Errored   int
	Errors    []string
}

func (o *Outcome) String() string {
	return fmt.Sprintf("processed=%d skipped=%d errored=%d", o.Processed, o.Skipped, o.Errored)
}

// Store is the slice of the job repository the worker loop needs.
type Store interface {
	ClaimNext(ctx context.Context, t jobs.Type, workerID string) (*jobs.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, message string) error
}
