package main

import (
	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain ID",
	Short: "Show how a stored posting is scored",
	Long:  "Re-score a stored posting with the current dictionary and print the matching categories and terms.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	scorer, err := a.newScorer()
	if err != nil {
		return err
	}

	db, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := db.Get(ctx, args[0])
	if err != nil {
		return err
	}

	scorer.Apply(&p)
	a.printer.PrintExplain(p, scorer.Explain(p))
	a.printf("Dictionary %s\n", scorer.Version())
	return nil
}
