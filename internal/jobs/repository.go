package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// maxErrorLength bounds the error message persisted on a failed job.
const maxErrorLength = 500

const jobColumns = `id, type, status, progress, attempts, locked_by, locked_at, started_at, finished_at, error, created_at, updated_at`

// Repository owns all database operations on the jobs table, including
// the claim/locking protocol used by concurrent worker processes.
type Repository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewRepository creates a Repository on top of an open database handle.
func NewRepository(db *sqlx.DB, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new PENDING job of the given type and returns it.
func (r *Repository) Create(ctx context.Context, t Type) (*Job, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}

	query := `
		INSERT INTO jobs (id, type, status, progress, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, NOW(), NOW())
		RETURNING ` + jobColumns

	var job Job
	if err := r.db.GetContext(ctx, &job, query, uuid.New().String(), t, StatusPending); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	r.logger.Info("Job created",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
	)

	return &job, nil
}

// ClaimNext atomically claims the next PENDING job of the given type for
// workerID and returns it as RUNNING with attempts incremented.
//
// The locking read and the status update run inside one transaction; the
// SELECT uses FOR UPDATE SKIP LOCKED so competing claimers never block on
// each other and never see the same row. Returns (nil, nil) when no job
// is available; the caller is expected to back off and poll again.
func (r *Repository) ClaimNext(ctx context.Context, t Type, workerID string) (*Job, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.GetContext(ctx, &id, `
		SELECT id
		FROM jobs
		WHERE type = $1 AND status = $2
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, t, StatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to select claimable job: %w", err)
	}

	var job Job
	err = tx.GetContext(ctx, &job, `
		UPDATE jobs
		SET status = $1,
		    locked_by = $2,
		    locked_at = NOW(),
		    started_at = NOW(),
		    attempts = attempts + 1,
		    updated_at = NOW()
		WHERE id = $3
		RETURNING `+jobColumns, StatusRunning, workerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark job %s running: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim of job %s: %w", id, err)
	}

	r.logger.Info("Job claimed",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
		slog.String("worker_id", workerID),
		slog.Int("attempts", job.Attempts),
	)

	return &job, nil
}

// MarkDone records a successful run: DONE, full progress, lock released.
func (r *Repository) MarkDone(ctx context.Context, id string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    progress = 100,
		    finished_at = NOW(),
		    locked_by = NULL,
		    locked_at = NULL,
		    updated_at = NOW()
		WHERE id = $2
	`

	if err := r.exec(ctx, query, StatusDone, id); err != nil {
		return fmt.Errorf("failed to mark job %s done: %w", id, err)
	}

	r.logger.Info("Job done", slog.String("job_id", id))
	return nil
}

// MarkFailed records a failed run with the (truncated) error message and
// releases the lock. FAILED is terminal; the engine never retries it.
func (r *Repository) MarkFailed(ctx context.Context, id, message string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    error = $2,
		    finished_at = NOW(),
		    locked_by = NULL,
		    locked_at = NULL,
		    updated_at = NOW()
		WHERE id = $3
	`

	if err := r.exec(ctx, query, StatusFailed, truncateError(message), id); err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", id, err)
	}

	r.logger.Warn("Job failed",
		slog.String("job_id", id),
		slog.String("error", truncateError(message)),
	)
	return nil
}

// UpdateProgress writes the job's progress percentage, clamped to
// [0,100]. The write is guarded on RUNNING so a progress report racing
// a cancellation cannot mutate the terminal row; hitting zero rows is a
// silent no-op, not an error.
func (r *Repository) UpdateProgress(ctx context.Context, id string, percent int) error {
	query := `
		UPDATE jobs
		SET progress = $1,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	if _, err := r.db.ExecContext(ctx, query, clampProgress(percent), id, StatusRunning); err != nil {
		return fmt.Errorf("failed to update progress of job %s: %w", id, err)
	}
	return nil
}

// Cancel flips a PENDING or RUNNING job to FAILED with error "cancelled"
// and releases the lock, so no further claim can occur. It does not
// interrupt an in-flight executor; executors observe the new status at
// their next cancellation check. Returns ErrJobTerminal when the job has
// already finished, ErrJobNotFound when it does not exist.
func (r *Repository) Cancel(ctx context.Context, id string) (*Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    error = $2,
		    finished_at = NOW(),
		    locked_by = NULL,
		    locked_at = NULL,
		    updated_at = NOW()
		WHERE id = $3 AND status IN ($4, $5)
		RETURNING ` + jobColumns

	var job Job
	err := r.db.GetContext(ctx, &job, query, StatusFailed, CancelledMessage, id, StatusPending, StatusRunning)
	if err == nil {
		r.logger.Info("Job cancelled", slog.String("job_id", id))
		return &job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to cancel job %s: %w", id, err)
	}

	// Guarded update hit nothing: either the job is terminal or missing.
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrJobTerminal
}

// Get returns a single job by id.
func (r *Repository) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	err := r.db.GetContext(ctx, &job, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return &job, nil
}

// Status returns only the current status of a job. Executors call this
// between batches as their cooperative cancellation check, so it stays a
// single-column read.
func (r *Repository) Status(ctx context.Context, id string) (Status, error) {
	var status Status
	err := r.db.GetContext(ctx, &status, `SELECT status FROM jobs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrJobNotFound
		}
		return "", fmt.Errorf("failed to get status of job %s: %w", id, err)
	}
	return status, nil
}

// List returns jobs matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argIdx)
		args = append(args, filter.Type)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	var list []Job
	if err := r.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return list, nil
}

func (r *Repository) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// truncateError caps a message at maxErrorLength bytes without cutting
// a UTF-8 rune in half.
func truncateError(message string) string {
	if len(message) <= maxErrorLength {
		return message
	}
	cut := maxErrorLength
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}

func clampProgress(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
