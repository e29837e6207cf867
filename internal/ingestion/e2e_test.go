package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-alerts/internal/followup"
	"github.com/jonathan/job-alerts/internal/scoring"
	"github.com/jonathan/job-alerts/internal/source"
	"github.com/jonathan/job-alerts/internal/store"
	"github.com/jonathan/job-alerts/internal/types"
)

// threeOfferSample returns one strongly robotics offer and two unrelated ones from
// the built-in sample.
func threeOfferSample(t *testing.T) []source.Offer {
	t.Helper()
	sim, err := source.NewSimulated("", nil)
	require.NoError(t, err)

	var out []source.Offer
	for _, id := range []string{"188XKRT", "188XPQR", "188XSTU"} {
		o, err := sim.Detail(context.Background(), id)
		require.NoError(t, err)
		out = append(out, o)
	}
	return out
}

func TestEndToEnd_IngestQueryAndFollowUp(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: day0}

	db, err := store.Open(ctx, "sqlite3", ":memory:", store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	pipe, err := New(Config{PageSize: 150, MaxPages: 1}, Deps{
		Store:  db,
		Source: source.NewSimulatedFromOffers(threeOfferSample(t)),
		Scorer: scoring.MustDefault(),
		Now:    clock.Now,
	})
	require.NoError(t, err)

	s := pipe.Fetch(ctx, source.Query{})
	require.NoError(t, s.Err)
	assert.Equal(t, 3, s.New)

	minScore := 2.0
	hits, err := db.Query(ctx, store.Filters{MinScore: &minScore})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "188XKRT", hits[0].ExternalID)
	assert.True(t, hits[0].HasTag(scoring.TagCoreRobotics))

	require.NoError(t, db.SetStatus(ctx, "188XKRT", types.StatusApplied))
	sched := followup.NewScheduler(db, followup.DefaultPolicy(), nil)

	due, err := sched.DueFollowUps(ctx, day0.Add(4*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = sched.DueFollowUps(ctx, day0.Add(5*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "188XKRT", due[0].Posting.ExternalID)
	assert.Equal(t, followup.LevelFirst, due[0].Reminder.Level)

	// A second identical run changes nothing.
	again := pipe.Fetch(ctx, source.Query{})
	assert.Equal(t, 0, again.New)
	assert.Equal(t, 3, again.Updated)
	got, err := db.Get(ctx, "188XKRT")
	require.NoError(t, err)
	assert.Equal(t, types.StatusApplied, got.Status)
}
