package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/job-alerts/internal/types"
)

var setStatusCmd = &cobra.Command{
	Use:   "set-status ID STATUS",
	Short: "Change the application status of a posting",
	Long: "Set STATUS (new, applied, rejected, to_follow) on posting ID. Setting applied starts " +
		"the follow-up clock; setting the current status again restarts it.",
	Args: cobra.ExactArgs(2),
	RunE: runSetStatus,
}

func init() {
	rootCmd.AddCommand(setStatusCmd)
}

func runSetStatus(cmd *cobra.Command, args []string) error {
	id := args[0]
	status, err := types.ParseStatus(args[1])
	if err != nil {
		return err
	}

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

	if err := db.SetStatus(ctx, id, status); err != nil {
		return err
	}

	a.printf("%s -> %s\n", id, status)
	return nil
}
