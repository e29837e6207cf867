package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-alerts/internal/followup"
)

var followUpsCmd = &cobra.Command{
	Use:   "followups",
	Short: "List due follow-up reminders",
	Args:  cobra.NoArgs,
	RunE:  runFollowUps,
}

var followUpsAt string

func init() {
	followUpsCmd.Flags().StringVar(&followUpsAt, "at", "", "Evaluate at this date (YYYY-MM-DD) instead of now")

	rootCmd.AddCommand(followUpsCmd)
}

func (a *app) policy() followup.Policy {
	return followup.Policy{FirstAfter: a.cfg.FollowUp.FirstAfter, SecondAfter: a.cfg.FollowUp.SecondAfter}
}

func runFollowUps(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	now := time.Now()
	if followUpsAt != "" {
		// End of the given day, so anything due that day is listed.
		day, err := time.ParseInLocation(dateLayout, followUpsAt, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --at date %q: %w", followUpsAt, err)
		}
		now = day.Add(24*time.Hour - time.Second)
	}

	db, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	items, err := followup.NewScheduler(db, a.policy(), a.log).DueFollowUps(ctx, now)
	if err != nil {
		return err
	}

	a.printer.PrintFollowUps(items, now)
	return nil
}
