package followup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/job-alerts/internal/store"
	"github.com/jonathan/job-alerts/internal/types"
)

// Item is a posting with its most advanced due reminder.
type Item struct {
	Posting  types.Posting
	Reminder Reminder
}

// Scheduler lists due follow-ups from the record store.
type Scheduler struct {
	store  store.Store
	policy Policy
	log    *zap.SugaredLogger
}

// NewScheduler creates a Scheduler. A zero policy falls back to DefaultPolicy.
func NewScheduler(st store.Store, policy Policy, log *zap.SugaredLogger) *Scheduler {
	if policy == (Policy{}) {
		policy = DefaultPolicy()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{store: st, policy: policy, log: log.With("component", "followup")}
}

// Policy returns the delays in use.
func (s *Scheduler) Policy() Policy { return s.policy }

// DueFollowUps returns one item per applied posting with an unacknowledged due
// reminder, ordered by due date, then score descending, then external ID.
// When both levels are due only the second is reported.
func (s *Scheduler) DueFollowUps(ctx context.Context, now time.Time) ([]Item, error) {
	applied, err := s.store.Query(ctx, store.Filters{Status: types.StatusApplied})
	if err != nil {
		return nil, fmt.Errorf("failed to load applied postings: %w", err)
	}

	var items []Item
	for _, p := range applied {
		due := s.policy.Due(StateOf(p), now)
		if len(due) == 0 {
			continue
		}
		items = append(items, Item{Posting: p, Reminder: due[len(due)-1]})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Reminder.DueAt.Equal(b.Reminder.DueAt) {
			return a.Reminder.DueAt.Before(b.Reminder.DueAt)
		}
		if a.Posting.Score != b.Posting.Score {
			return a.Posting.Score > b.Posting.Score
		}
		return a.Posting.ExternalID < b.Posting.ExternalID
	})

	s.log.Debugw("Follow-ups computed", "applied", len(applied), "due", len(items))
	return items, nil
}

// Ack marks reminders up to level as handled.
func (s *Scheduler) Ack(ctx context.Context, id string, level int) error {
	if err := s.store.AckFollowUp(ctx, id, level); err != nil {
		return err
	}
	s.log.Infow("Follow-up acknowledged", "external_id", id, "level", level)
	return nil
}
