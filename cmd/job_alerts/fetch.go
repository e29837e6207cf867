package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/job-alerts/internal/config"
	"github.com/jonathan/job-alerts/internal/source"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch one keyword query into the database",
	Long: "Page through one search query, score every offer and merge it into the database. " +
		"Unset flags fall back to the configured default search.",
	Args: cobra.NoArgs,
	RunE: runFetch,
}

var (
	fetchKeywords string
	fetchDept     string
	fetchRadius   int
	fetchDays     int
	fetchMaxPages int
)

func init() {
	fetchCmd.Flags().StringVarP(&fetchKeywords, "keywords", "k", "", "Comma-separated keywords")
	fetchCmd.Flags().StringVar(&fetchDept, "dept", "", "Département code, e.g. 68")
	fetchCmd.Flags().IntVar(&fetchRadius, "radius", 0, "Search radius in km")
	fetchCmd.Flags().IntVar(&fetchDays, "days", 0, "Published within N days (snapped to 1, 3, 7, 14 or 31)")
	fetchCmd.Flags().IntVar(&fetchMaxPages, "max-pages", 0, "Page cap for this run")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	q := a.baseQuery()
	flags := cmd.Flags()
	if flags.Changed("keywords") {
		q.Keywords = config.SplitList(fetchKeywords)
	}
	if flags.Changed("dept") {
		q.Department = fetchDept
	}
	if flags.Changed("radius") {
		q.RadiusKm = fetchRadius
	}
	if flags.Changed("days") {
		q.PublishedSinceDays = source.SnapPublishedSince(fetchDays)
	}
	if flags.Changed("max-pages") {
		a.cfg.Pipeline.MaxPages = fetchMaxPages
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

	a.printer.PrintSummary(pipe.Fetch(ctx, q))
	return nil
}
