package followup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-alerts/internal/store"
	"github.com/jonathan/job-alerts/internal/types"
)

const day = 24 * time.Hour

var day0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func applied(at time.Time, acked int) State {
	return State{Status: types.StatusApplied, StatusChangedAt: at, Acked: acked}
}

func levels(rs []Reminder) []int {
	out := make([]int, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Level)
	}
	return out
}

// =============================================================================
// Schedule / Due
// =============================================================================

func TestSchedule(t *testing.T) {
	got := Schedule(applied(day0, 0))
	require.Len(t, got, 2)
	assert.Equal(t, Reminder{Level: LevelFirst, DueAt: day0.Add(5 * day)}, got[0])
	assert.Equal(t, Reminder{Level: LevelSecond, DueAt: day0.Add(12 * day)}, got[1])

	for _, st := range []types.Status{types.StatusNew, types.StatusRejected, types.StatusToFollow} {
		assert.Empty(t, Schedule(State{Status: st, StatusChangedAt: day0}), st)
	}
}

func TestDue(t *testing.T) {
	tests := []struct {
		name  string
		state State
		now   time.Time
		want  []int
	}{
		{"day 4", applied(day0, 0), day0.Add(4 * day), []int{}},
		{"one second before first", applied(day0, 0), day0.Add(5*day - time.Second), []int{}},
		{"exactly day 5", applied(day0, 0), day0.Add(5 * day), []int{1}},
		{"day 11", applied(day0, 0), day0.Add(11 * day), []int{1}},
		{"day 12", applied(day0, 0), day0.Add(12 * day), []int{1, 2}},
		{"first acked", applied(day0, 1), day0.Add(6 * day), []int{}},
		{"first acked, second due", applied(day0, 1), day0.Add(12 * day), []int{2}},
		{"both acked", applied(day0, 2), day0.Add(30 * day), []int{}},
		{"rejected", State{Status: types.StatusRejected, StatusChangedAt: day0}, day0.Add(30 * day), []int{}},
		{"to_follow", State{Status: types.StatusToFollow, StatusChangedAt: day0}, day0.Add(30 * day), []int{}},
		{"new", State{Status: types.StatusNew, StatusChangedAt: day0}, day0.Add(30 * day), []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, levels(Due(tt.state, tt.now)))
		})
	}
}

func TestDue_CustomPolicy(t *testing.T) {
	p := Policy{FirstAfter: 2 * day, SecondAfter: 3 * day}
	assert.Equal(t, []int{1}, levels(p.Due(applied(day0, 0), day0.Add(2*day))))
	assert.Equal(t, []int{1, 2}, levels(p.Due(applied(day0, 0), day0.Add(3*day))))
}

func TestDue_IsPure(t *testing.T) {
	s := applied(day0, 0)
	now := day0.Add(7 * day)
	assert.Equal(t, Due(s, now), Due(s, now))
	assert.Equal(t, applied(day0, 0), s)
}

func TestStateOf(t *testing.T) {
	p := types.Posting{ExternalID: "A", Status: types.StatusApplied, StatusChangedAt: day0, FollowUpAcked: 1}
	assert.Equal(t, applied(day0, 1), StateOf(p))
}

// =============================================================================
// Scheduler
// =============================================================================

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newStore(t *testing.T) (*store.DB, *fakeClock) {
	t.Helper()
	ctx := context.Background()
	clock := &fakeClock{t: day0}
	db, err := store.Open(ctx, "sqlite3", ":memory:", store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db, clock
}

func seed(t *testing.T, db *store.DB, id string, score float64) {
	t.Helper()
	_, err := db.Upsert(context.Background(), types.Posting{ExternalID: id, Title: "Poste " + id, Score: score}, nil)
	require.NoError(t, err)
}

func dueIDs(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Posting.ExternalID)
	}
	return out
}

func TestScheduler_DueFollowUps(t *testing.T) {
	db, clock := newStore(t)
	ctx := context.Background()
	s := NewScheduler(db, Policy{}, nil)
	assert.Equal(t, DefaultPolicy(), s.Policy())

	for id, score := range map[string]float64{"A": 1, "B": 5, "C": 3, "R": 9, "N": 9} {
		seed(t, db, id, score)
	}

	// A and B applied at day 0, C at day 1; R applied then rejected; N stays new.
	require.NoError(t, db.SetStatus(ctx, "A", types.StatusApplied))
	require.NoError(t, db.SetStatus(ctx, "B", types.StatusApplied))
	require.NoError(t, db.SetStatus(ctx, "R", types.StatusApplied))
	clock.t = day0.Add(day)
	require.NoError(t, db.SetStatus(ctx, "C", types.StatusApplied))
	require.NoError(t, db.SetStatus(ctx, "R", types.StatusRejected))

	items, err := s.DueFollowUps(ctx, day0.Add(4*day))
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = s.DueFollowUps(ctx, day0.Add(6*day))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, dueIDs(items), "due date, then score")
	assert.Equal(t, LevelFirst, items[0].Reminder.Level)

	require.NoError(t, s.Ack(ctx, "B", LevelFirst))
	items, err = s.DueFollowUps(ctx, day0.Add(6*day))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, dueIDs(items))

	items, err = s.DueFollowUps(ctx, day0.Add(12*day))
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, dueIDs(items))
	assert.Equal(t, LevelFirst, items[0].Reminder.Level)
	assert.Equal(t, LevelSecond, items[1].Reminder.Level, "second level supersedes the first")
	assert.Equal(t, LevelSecond, items[2].Reminder.Level)
}

func TestScheduler_StatusChangeResetsClock(t *testing.T) {
	db, clock := newStore(t)
	ctx := context.Background()
	s := NewScheduler(db, DefaultPolicy(), nil)
	seed(t, db, "A", 2)

	require.NoError(t, db.SetStatus(ctx, "A", types.StatusApplied))
	require.NoError(t, s.Ack(ctx, "A", LevelFirst))

	// Re-applying at day 3 snoozes: acks reset and the clock restarts.
	clock.t = day0.Add(3 * day)
	require.NoError(t, db.SetStatus(ctx, "A", types.StatusApplied))

	items, err := s.DueFollowUps(ctx, day0.Add(7*day))
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = s.DueFollowUps(ctx, day0.Add(8*day))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, day0.Add(8*day), items[0].Reminder.DueAt)
}

func TestScheduler_AckUnknown(t *testing.T) {
	db, _ := newStore(t)
	s := NewScheduler(db, DefaultPolicy(), nil)
	assert.ErrorIs(t, s.Ack(context.Background(), "missing", LevelFirst), store.ErrNotFound)
}
