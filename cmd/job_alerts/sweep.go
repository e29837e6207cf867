package main

import (
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run several keyword queries into the database",
	Long: "Run each keyword group as its own query against the same database. An offer found by " +
		"several groups is merged once and counted as a duplicate.",
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var sweepGroups string

func init() {
	sweepCmd.Flags().StringVarP(&sweepGroups, "groups", "g", "", `Keyword groups, e.g. "ros2,robotique;opencv" (default: search.sweep from config)`)

	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if cmd.Flags().Changed("groups") {
		a.cfg.Search.Sweep = parseGroups(sweepGroups)
	}

	db, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	pipe, err := a.newPipeline(ctx, db)
	if err != nil {
		return err
	}

	a.printer.PrintSummary(pipe.Sweep(ctx, a.sweepQueries()))
	return nil
}
