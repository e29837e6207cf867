package types

import "fmt"

// Status is the application lifecycle state of a posting.
//
//	new ──► applied ──► to_follow
//	 │         │            │
//	 └─────────┴────────────┴──► rejected
//
// rejected is terminal: no follow-up is ever scheduled for it.
type Status string

const (
	StatusNew      Status = "new"
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
	StatusToFollow Status = "to_follow"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []Status{StatusNew, StatusApplied, StatusRejected, StatusToFollow}

// ParseStatus converts a raw string to a Status, returning a ValidationError for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusNew, StatusApplied, StatusRejected, StatusToFollow:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}
}

// IsTerminal reports whether no further reminders are scheduled from s.
func (s Status) IsTerminal() bool { return s == StatusRejected }

// StartsFollowUpClock reports whether entering s arms the follow-up reminders.
func (s Status) StartsFollowUpClock() bool { return s == StatusApplied }
