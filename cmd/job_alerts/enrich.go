package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/job-alerts/internal/store"
	"github.com/jonathan/job-alerts/internal/types"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [ID...]",
	Short: "Fetch full offer details for stored postings",
	Long: "Fetch the detail record of each given posting and merge it. Without IDs, the best " +
		"scored new postings that still lack an apply URL are enriched. Status and first-seen " +
		"date are never changed; unknown IDs are skipped.",
	RunE: runEnrich,
}

var enrichTop int

func init() {
	enrichCmd.Flags().IntVar(&enrichTop, "top", 20, "Without IDs, enrich this many postings")

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
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

	ids := args
	if len(ids) == 0 {
		candidates, err := db.Query(ctx, store.Filters{Status: types.StatusNew})
		if err != nil {
			return err
		}
		for _, p := range candidates {
			if len(ids) >= enrichTop {
				break
			}
			if p.ApplyURL == "" {
				ids = append(ids, p.ExternalID)
			}
		}
	}
	if len(ids) == 0 {
		a.printf("Nothing to enrich.\n")
		return nil
	}

	pipe, err := a.newPipeline(ctx, db)
	if err != nil {
		return err
	}

	a.printer.PrintSummary(pipe.Enrich(ctx, ids))
	return nil
}
