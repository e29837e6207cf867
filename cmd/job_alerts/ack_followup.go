package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/job-alerts/internal/followup"
)

var ackFollowUpCmd = &cobra.Command{
	Use:   "ack-followup ID",
	Short: "Mark a follow-up reminder as handled",
	Args:  cobra.ExactArgs(1),
	RunE:  runAckFollowUp,
}

var ackLevel int

func init() {
	ackFollowUpCmd.Flags().IntVar(&ackLevel, "level", followup.LevelFirst, "Reminder level to acknowledge (1 or 2)")

	rootCmd.AddCommand(ackFollowUpCmd)
}

func runAckFollowUp(cmd *cobra.Command, args []string) error {
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

	sched := followup.NewScheduler(db, a.policy(), a.log)
	if err := sched.Ack(ctx, args[0], ackLevel); err != nil {
		return err
	}

	a.printf("%s: follow-up %d acknowledged\n", args[0], ackLevel)
	return nil
}
