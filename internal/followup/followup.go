// Package followup computes application reminders from a posting's lifecycle state.
//
// Reminders are never stored. They derive from status, status_changed_at and the
// highest acknowledged level, so any status change re-arms or cancels them.
package followup

import (
	"time"

	"github.com/jonathan/job-alerts/internal/types"
)

// Reminder levels.
const (
	LevelFirst  = 1
	LevelSecond = 2
)

// Policy holds the reminder delays after an application.
type Policy struct {
	FirstAfter  time.Duration
	SecondAfter time.Duration
}

// DefaultPolicy reminds 5 and 12 days after applying.
func DefaultPolicy() Policy {
	return Policy{FirstAfter: 5 * 24 * time.Hour, SecondAfter: 12 * 24 * time.Hour}
}

// State is the part of a posting the schedule depends on.
type State struct {
	Status          types.Status
	StatusChangedAt time.Time
	Acked           int
}

// StateOf extracts the schedule state of p.
func StateOf(p types.Posting) State {
	return State{Status: p.Status, StatusChangedAt: p.StatusChangedAt, Acked: p.FollowUpAcked}
}

// Reminder is one follow-up level and the time it falls due.
type Reminder struct {
	Level int
	DueAt time.Time
}

// Schedule returns both candidate reminders for an applied posting, and none for
// any other status.
func (p Policy) Schedule(s State) []Reminder {
	if !s.Status.StartsFollowUpClock() {
		return nil
	}
	return []Reminder{
		{Level: LevelFirst, DueAt: s.StatusChangedAt.Add(p.FirstAfter)},
		{Level: LevelSecond, DueAt: s.StatusChangedAt.Add(p.SecondAfter)},
	}
}

// Due returns the reminders whose time has come and that were not acknowledged.
func (p Policy) Due(s State, now time.Time) []Reminder {
	var due []Reminder
	for _, r := range p.Schedule(s) {
		if r.Level > s.Acked && !now.Before(r.DueAt) {
			due = append(due, r)
		}
	}
	return due
}

// Schedule is DefaultPolicy().Schedule.
func Schedule(s State) []Reminder {
	return DefaultPolicy().Schedule(s)
}

// Due is DefaultPolicy().Due.
func Due(s State, now time.Time) []Reminder {
	return DefaultPolicy().Due(s, now)
}
