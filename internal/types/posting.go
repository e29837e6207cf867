// Package types provides the domain types shared by the store, scorer, ingestion
// pipeline and term miner.
package types

import (
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Posting is one external job offer together with its derived score and lifecycle state.
type Posting struct {
	// Identity
	ExternalID string `json:"external_id" validate:"required"`

	// Attributes
	Title        string    `json:"title"`
	Company      string    `json:"company,omitempty"`
	Location     string    `json:"location,omitempty"`
	LocationCode string    `json:"location_code,omitempty"` // département code, e.g. "68"
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	Description  string    `json:"description,omitempty"`
	ContractType string    `json:"contract_type,omitempty"`
	Salary       string    `json:"salary,omitempty"`
	ApplyURL     string    `json:"apply_url,omitempty"`
	URL          string    `json:"url,omitempty"`

	// Derived
	Score float64  `json:"score"`
	Tags  []string `json:"tags,omitempty"`

	// Lifecycle
	Status          Status     `json:"status"`
	InsertedAt      time.Time  `json:"inserted_at"`
	StatusChangedAt time.Time  `json:"status_changed_at"`
	FollowUpAcked   int        `json:"followup_acked"`
	NotifiedAt      *time.Time `json:"notified_at,omitempty"`
}

// Validate checks the identity of a normalized posting. Optional fields never
// make a posting invalid; Normalize drops values it cannot use.
func (p *Posting) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fe.Field(), Message: "failed on '" + fe.Tag() + "' rule"}
	}
	return &ValidationError{Message: err.Error()}
}

// HasTag reports whether the posting carries tag.
func (p *Posting) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// HasCoordinates reports whether both latitude and longitude are known.
func (p *Posting) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Text returns the title and description joined, the input of scoring and mining.
func (p *Posting) Text() string {
	return strings.TrimSpace(p.Title + "\n" + p.Description)
}

// Merge applies the mutable fields of incoming onto existing and returns the result.
// Identity and lifecycle fields always come from existing. Optional fields that
// incoming leaves empty keep their stored value, so a search-page refresh cannot
// undo an enrichment.
func Merge(existing, incoming Posting) Posting {
	merged := existing

	merged.Title = incoming.Title
	merged.Company = incoming.Company
	merged.Location = incoming.Location
	merged.LocationCode = incoming.LocationCode
	merged.ContractType = incoming.ContractType
	if incoming.HasCoordinates() {
		merged.Latitude, merged.Longitude = incoming.Latitude, incoming.Longitude
	}
	if !incoming.PublishedAt.IsZero() {
		merged.PublishedAt = incoming.PublishedAt
	}

	merged.Description = keepIfEmpty(existing.Description, incoming.Description)
	merged.Salary = keepIfEmpty(existing.Salary, incoming.Salary)
	merged.ApplyURL = keepIfEmpty(existing.ApplyURL, incoming.ApplyURL)
	merged.URL = keepIfEmpty(existing.URL, incoming.URL)

	merged.Score = incoming.Score
	merged.Tags = slices.Clone(incoming.Tags)

	return merged
}

// "www.example.fr/jobs", "example.fr"
var hostLike = regexp.MustCompile(`^[\w-]+(\.[\w-]+)+(/|\?|$)`)

// CleanURL returns raw as an absolute http(s) URL. A scheme-less host gets
// "https://"; anything else that is not an http(s) URL yields "".
func CleanURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.Contains(u, "://") && hostLike.MatchString(u) {
		u = "https://" + u
	}
	if err := validate.Var(u, "http_url"); err != nil {
		return ""
	}
	return u
}

func keepIfEmpty(stored, incoming string) string {
	if strings.TrimSpace(incoming) == "" {
		return stored
	}
	return incoming
}
