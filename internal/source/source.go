// Package source supplies raw job offers to the ingestion pipeline: the France
// Travail "Offres d'emploi v2" API and a simulated source backed by a sample file.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MaxPageSize is the largest page the search API serves.
const MaxPageSize = 150

// ErrNotFound is returned by Detail for unknown offer IDs.
var ErrNotFound = errors.New("offer not found")

// Query is one keyword search.
type Query struct {
	Keywords   []string
	Department string
	RadiusKm   int
	// PublishedSinceDays must already be snapped with SnapPublishedSince; 0 disables it.
	PublishedSinceDays int
}

func (q Query) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(q.Keywords, ","))
	if q.Department != "" {
		fmt.Fprintf(&sb, " dept=%s", q.Department)
	}
	if q.RadiusKm > 0 {
		fmt.Fprintf(&sb, " radius=%dkm", q.RadiusKm)
	}
	if q.PublishedSinceDays > 0 {
		fmt.Fprintf(&sb, " since=%dd", q.PublishedSinceDays)
	}
	return sb.String()
}

// Searcher returns one page of offers. A page shorter than pageSize is the last.
type Searcher interface {
	SearchPage(ctx context.Context, q Query, page, pageSize int) ([]Offer, error)
}

// Detailer returns the full record of one offer, or ErrNotFound.
type Detailer interface {
	Detail(ctx context.Context, id string) (Offer, error)
}

// Client is a source that can both search and detail.
type Client interface {
	Searcher
	Detailer
}

// UnavailableError is a transient failure of the source (network, auth, 5xx).
// The operation may be retried later.
type UnavailableError struct {
	Op    string
	Page  int
	Cause error
}

func (e *UnavailableError) Error() string {
	if e.Op == "search" {
		return fmt.Sprintf("source unavailable during %s of page %d: %v", e.Op, e.Page, e.Cause)
	}
	return fmt.Sprintf("source unavailable during %s: %v", e.Op, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

var allowedPublishedSince = []int{1, 3, 7, 14, 31}

// SnapPublishedSince maps a recency in days to the nearest value the API accepts.
// Ties go to the shorter window; zero or negative disables the filter.
func SnapPublishedSince(days int) int {
	if days <= 0 {
		return 0
	}
	best := allowedPublishedSince[0]
	for _, v := range allowedPublishedSince[1:] {
		if abs(v-days) < abs(best-days) {
			best = v
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
