package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-alerts/internal/config"
	"github.com/jonathan/job-alerts/internal/salary"
	"github.com/jonathan/job-alerts/internal/store"
	"github.com/jonathan/job-alerts/internal/types"
)

const dateLayout = "2006-01-02"

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Export stored postings as JSONL or CSV",
	Long: "Select postings by first-seen window, status, score, salary and IDs, ordered by score " +
		"then publication date, and write them as JSONL (default) or CSV.",
	Args: cobra.NoArgs,
	RunE: runQuery,
}

var (
	queryFormat     string
	queryDays       int
	queryFrom       string
	queryTo         string
	queryStatus     string
	queryMinScore   float64
	queryTop        int
	queryMinSalary  float64
	queryIDs        string
	queryUnnotified bool
	queryOutput     string
)

func init() {
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", "jsonl", "Output format: jsonl or csv")
	queryCmd.Flags().IntVar(&queryDays, "days", 0, "First seen within the last N days")
	queryCmd.Flags().StringVar(&queryFrom, "from", "", "First seen on or after this date (YYYY-MM-DD)")
	queryCmd.Flags().StringVar(&queryTo, "to", "", "First seen on or before this date (YYYY-MM-DD)")
	queryCmd.Flags().StringVar(&queryStatus, "status", "", "Status: new, applied, rejected, to_follow")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", 0, "Minimum score")
	queryCmd.Flags().IntVar(&queryTop, "top", 0, "Keep only the first N postings")
	queryCmd.Flags().Float64Var(&queryMinSalary, "min-salary", 0, "Minimum monthly salary in EUR; postings without a readable salary are dropped")
	queryCmd.Flags().StringVar(&queryIDs, "ids", "", "Comma-separated external IDs")
	queryCmd.Flags().BoolVar(&queryUnnotified, "unnotified", false, "Only postings not yet reported by run-daily")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "", "Write to this file instead of stdout")

	rootCmd.AddCommand(queryCmd)
}

// queryFilters translates the query flags, relative to now.
func queryFilters(cmd *cobra.Command, now time.Time) (store.Filters, error) {
	var f store.Filters
	flags := cmd.Flags()

	if queryDays > 0 {
		f.InsertedFrom = now.AddDate(0, 0, -queryDays)
	}
	if queryFrom != "" {
		from, err := time.ParseInLocation(dateLayout, queryFrom, time.Local)
		if err != nil {
			return f, fmt.Errorf("invalid --from date %q: %w", queryFrom, err)
		}
		f.InsertedFrom = from
	}
	if queryTo != "" {
		to, err := time.ParseInLocation(dateLayout, queryTo, time.Local)
		if err != nil {
			return f, fmt.Errorf("invalid --to date %q: %w", queryTo, err)
		}
		// inclusive: the whole day
		f.InsertedTo = to.Add(24*time.Hour - time.Microsecond)
	}
	if queryStatus != "" {
		st, err := types.ParseStatus(queryStatus)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if flags.Changed("min-score") {
		minScore := queryMinScore
		f.MinScore = &minScore
	}
	if flags.Changed("ids") {
		f.IDs = config.SplitList(queryIDs)
		if f.IDs == nil {
			f.IDs = []string{}
		}
	}
	f.UnnotifiedOnly = queryUnnotified

	// The salary filter runs after the database query, so it must see every row.
	if queryTop > 0 && queryMinSalary <= 0 {
		f.Limit = queryTop
	}
	return f, nil
}

// filterMinSalary keeps postings whose salary text reads at least minMonthly.
func filterMinSalary(postings []types.Posting, minMonthly float64) []types.Posting {
	var kept []types.Posting
	for _, p := range postings {
		if v, ok := salary.ParseMinMonthly(p.Salary); ok && v >= minMonthly {
			kept = append(kept, p)
		}
	}
	return kept
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var write func(io.Writer, []types.Posting) error
	switch queryFormat {
	case "jsonl":
		write = writeJSONL
	case "csv":
		write = writeCSV
	default:
		return fmt.Errorf("unknown --format %q (want jsonl or csv)", queryFormat)
	}

	filters, err := queryFilters(cmd, time.Now())
	if err != nil {
		return err
	}

	db, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	postings, err := db.Query(ctx, filters)
	if err != nil {
		return err
	}
	if queryMinSalary > 0 {
		postings = filterMinSalary(postings, queryMinSalary)
	}
	if queryTop > 0 && len(postings) > queryTop {
		postings = postings[:queryTop]
	}

	out := a.out
	if queryOutput != "" {
		f, err := os.Create(queryOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := write(out, postings); err != nil {
		return err
	}
	a.log.Infow("Query exported", "count", len(postings), "format", queryFormat)
	return nil
}
