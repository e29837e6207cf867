package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-alerts/internal/followup"
	"github.com/jonathan/job-alerts/internal/store"
	"github.com/jonathan/job-alerts/internal/types"
)

var runDailyCmd = &cobra.Command{
	Use:   "run-daily",
	Short: "Sweep, report new postings and due follow-ups",
	Long: "Run the configured sweep, print the best new postings not yet reported and the due " +
		"follow-up reminders, then mark the printed postings as notified.",
	Args: cobra.NoArgs,
	RunE: runRunDaily,
}

var runDailyDryRun bool

func init() {
	runDailyCmd.Flags().BoolVar(&runDailyDryRun, "dry-run", false, "Report without marking postings as notified")

	rootCmd.AddCommand(runDailyCmd)
}

func runRunDaily(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	return dailyRun(ctx, a, db, runDailyDryRun)
}

// digest is what one daily run printed.
type digest struct {
	New       []types.Posting
	FollowUps []followup.Item
}

// dailyRun is shared by run-daily and the scheduler loop. A failed sweep
// still reports what is already stored.
func dailyRun(ctx context.Context, a *app, st store.Store, dryRun bool) error {
	_, err := dailyReport(ctx, a, st, time.Now(), dryRun)
	return err
}

func dailyReport(ctx context.Context, a *app, st store.Store, now time.Time, dryRun bool) (*digest, error) {
	pipe, err := a.newPipeline(ctx, st)
	if err != nil {
		return nil, err
	}

	summary := pipe.Sweep(ctx, a.sweepQueries())
	a.printer.PrintSummary(summary)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	minScore := a.cfg.Digest.MinScore
	fresh, err := st.Query(ctx, store.Filters{
		Status:         types.StatusNew,
		MinScore:       &minScore,
		UnnotifiedOnly: true,
		Limit:          a.cfg.Digest.Top,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select new postings: %w", err)
	}
	a.printer.PrintPostings("NEW POSTINGS", fresh)

	due, err := followup.NewScheduler(st, a.policy(), a.log).DueFollowUps(ctx, now)
	if err != nil {
		return nil, err
	}
	a.printer.PrintFollowUps(due, now)

	report := &digest{New: fresh, FollowUps: due}
	a.log.Infow("Daily run complete", "new", len(fresh), "followups", len(due), "sweep_new", summary.New, "dry_run", dryRun)
	if dryRun || len(fresh) == 0 {
		return report, nil
	}

	ids := make([]string, len(fresh))
	for i, p := range fresh {
		ids[i] = p.ExternalID
	}
	if err := st.MarkNotified(ctx, ids, now); err != nil {
		return report, fmt.Errorf("failed to mark postings notified: %w", err)
	}
	return report, nil
}
