package jobs

import (
	"database/sql"
	"time"
)

// Type identifies the pipeline stage a job belongs to. Exactly one
// executor kind may claim jobs of a given type.
type Type string

const (
	TypeRaw          Type = "RAW"
	TypeNormalize    Type = "NORMALIZE"
	TypeEnrich       Type = "ENRICH"
	TypePublish      Type = "PUBLISH"
	TypeStockRefresh Type = "STOCK_REFRESH"
)

// Types returns all known job types in pipeline order.
func Types() []Type {
	return []Type{TypeRaw, TypeNormalize, TypeEnrich, TypePublish, TypeStockRefresh}
}

// Valid reports whether t is a known job type.
func (t Type) Valid() bool {
	switch t {
	case TypeRaw, TypeNormalize, TypeEnrich, TypePublish, TypeStockRefresh:
		return true
	}
	return false
}

// Status is the lifecycle state of a job.
//
// PENDING -> RUNNING -> {DONE | FAILED}. FAILED is terminal; the engine
// never retries a failed job on its own, recovery means creating a new job.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusDone    Status = "DONE"
	StatusFailed  Status = "FAILED"
)

// Terminal reports whether s is an end state.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Job is one schedulable unit of pipeline work.
type Job struct {
	ID         string         `db:"id"`
	Type       Type           `db:"type"`
	Status     Status         `db:"status"`
	Progress   int            `db:"progress"`
	Attempts   int            `db:"attempts"`
	LockedBy   sql.NullString `db:"locked_by"`
	LockedAt   sql.NullTime   `db:"locked_at"`
	StartedAt  sql.NullTime   `db:"started_at"`
	FinishedAt sql.NullTime   `db:"finished_at"`
	Error      sql.NullString `db:"error"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

// Filter narrows a job listing. Zero values mean "no constraint".
type Filter struct {
	Type   Type
	Status Status
	Limit  int
	Cursor *Cursor
}

// Cursor is an opaque keyset position for paginating listings
// (newest first, ordered by created_at then id).
type Cursor struct {
	CreatedAt time.Time
	ID        string
}
