package ingestion

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-alerts/internal/store"
)

// Summary counts what one fetch, sweep or enrichment did.
type Summary struct {
	RunID      uuid.UUID
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

	// NewIDs lists the postings created by this run, in ingestion order.
	NewIDs []string

	// Err is the first error that ended a query early, usually a
	// *source.UnavailableError.
	Err error
}

func (s *Summary) fail(err error) {
	if s.Err == nil {
		s.Err = err
	}
}

// Seen is the number of distinct postings merged by the run.
func (s *Summary) Seen() int {
	return s.New + s.Updated
}

// String renders the one-line report printed by the CLI.
func (s *Summary) String() string {
	line := fmt.Sprintf("%s: %d new, %d updated, %d skipped, %d duplicates, %d errors, %d pages",
		s.Kind, s.New, s.Updated, s.Skipped, s.Duplicates, s.Errors, s.Pages)
	if s.Filtered > 0 {
		line += fmt.Sprintf(", %d filtered", s.Filtered)
	}
	if s.Err != nil {
		line += " (stopped: " + s.Err.Error() + ")"
	}
	return line
}

// Record converts the summary into its ingest_runs row.
func (s *Summary) Record() store.RunRecord {
	rec := store.RunRecord{
		ID:         s.RunID,
		Kind:       s.Kind,
		Query:      s.Query,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		New:        s.New,
		Updated:    s.Updated,
		Skipped:    s.Skipped,
		Duplicates: s.Duplicates,
		Filtered:   s.Filtered,
		Errors:     s.Errors,
		Pages:      s.Pages,
	}
	if s.Err != nil {
		rec.Error = s.Err.Error()
	}
	return rec
}
