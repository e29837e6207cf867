// Package store persists postings and their lifecycle state.
//
// A single database/sql implementation serves SQLite (default, single operator)
// and PostgreSQL; the dialect only changes placeholders, row locking and the
// migration set.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-alerts/internal/types"
)

// ErrNotFound is returned when no posting has the requested external ID.
var ErrNotFound = errors.New("posting not found")

// Rescorer recomputes derived fields on a merged posting before it is written.
type Rescorer func(*types.Posting)

// Store is the record store used by the pipeline, the scheduler and the CLI.
type Store interface {
	Upsert(ctx context.Context, p types.Posting, rescore Rescorer) (created bool, err error)
	Get(ctx context.Context, id string) (types.Posting, error)
	Query(ctx context.Context, f Filters) ([]types.Posting, error)
	SetStatus(ctx context.Context, id string, status types.Status) error
	AckFollowUp(ctx context.Context, id string, level int) error
	MarkNotified(ctx context.Context, ids []string, at time.Time) error
	RecordRun(ctx context.Context, run RunRecord) error
}

// Filters selects postings. Zero values disable a predicate; bounds are inclusive.
type Filters struct {
	InsertedFrom   time.Time
	InsertedTo     time.Time
	Status         types.Status
	MinScore       *float64
	IDs            []string // nil disables; an empty non-nil slice matches nothing
	UnnotifiedOnly bool
	Limit          int
}

// RunRecord is the audit row written after each pipeline invocation.
type RunRecord struct {
	ID         uuid.UUID
	Kind       string
	Query      string
	StartedAt  time.Time
	FinishedAt time.Time
	New        int
	Updated    int
	Skipped    int
	Duplicates int
	Filtered   int
	Errors     int
	Pages      int
	Error      string
}
