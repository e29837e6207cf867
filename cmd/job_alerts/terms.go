package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-alerts/internal/config"
	"github.com/jonathan/job-alerts/internal/store"
	"github.com/jonathan/job-alerts/internal/terms"
	"github.com/jonathan/job-alerts/internal/types"
)

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Rank the vocabulary that sets target postings apart",
	Long: "Split the selected postings into those carrying the target tag and the rest, then rank " +
		"tokens and bigrams by smoothed log-odds. Rare and ubiquitous terms are pruned over the " +
		"whole selection first.",
	Args: cobra.NoArgs,
	RunE: runTerms,
}

var (
	termsDays      int
	termsStatus    string
	termsMinScore  float64
	termsMinDF     float64
	termsMaxDF     float64
	termsAlpha     float64
	termsTop       int
	termsTargetTag string
	termsStopwords string
	termsFormat    string
)

func init() {
	termsCmd.Flags().IntVar(&termsDays, "days", 0, "Only postings first seen within N days")
	termsCmd.Flags().StringVar(&termsStatus, "status", "", "Only postings with this status")
	termsCmd.Flags().Float64Var(&termsMinScore, "min-score", 0, "Only postings scoring at least this")
	termsCmd.Flags().Float64Var(&termsMinDF, "min-df", 0, "Drop terms in fewer than this fraction of postings")
	termsCmd.Flags().Float64Var(&termsMaxDF, "max-df", 0, "Drop terms in more than this fraction of postings")
	termsCmd.Flags().Float64Var(&termsAlpha, "alpha", 0, "Additive smoothing")
	termsCmd.Flags().IntVar(&termsTop, "top", 0, "Terms per list")
	termsCmd.Flags().StringVar(&termsTargetTag, "target-tag", "", "Tag defining the target subset (default from dictionary)")
	termsCmd.Flags().StringVar(&termsStopwords, "stopwords", "", "Extra comma-separated stopwords")
	termsCmd.Flags().StringVarP(&termsFormat, "format", "f", "text", "Output format: text or json")

	rootCmd.AddCommand(termsCmd)
}

// termsOptions starts from the configured options and applies changed flags.
func termsOptions(cmd *cobra.Command, cfg config.TermsConfig) terms.Options {
	opts := terms.Options{
		MinDF:          cfg.MinDF,
		MaxDF:          cfg.MaxDF,
		Alpha:          cfg.Alpha,
		TopN:           cfg.TopN,
		ExtraStopwords: cfg.ExtraStopwords,
	}
	flags := cmd.Flags()
	if flags.Changed("min-df") {
		opts.MinDF = termsMinDF
	}
	if flags.Changed("max-df") {
		opts.MaxDF = termsMaxDF
	}
	if flags.Changed("alpha") {
		opts.Alpha = termsAlpha
	}
	if flags.Changed("top") {
		opts.TopN = termsTop
	}
	if flags.Changed("stopwords") {
		opts.ExtraStopwords = append(opts.ExtraStopwords, config.SplitList(termsStopwords)...)
	}
	return opts
}

func runTerms(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if termsFormat != "text" && termsFormat != "json" {
		return fmt.Errorf("unknown --format %q (want text or json)", termsFormat)
	}

	var filters store.Filters
	if termsDays > 0 {
		filters.InsertedFrom = time.Now().AddDate(0, 0, -termsDays)
	}
	if termsStatus != "" {
		st, err := types.ParseStatus(termsStatus)
		if err != nil {
			return err
		}
		filters.Status = st
	}
	if cmd.Flags().Changed("min-score") {
		minScore := termsMinScore
		filters.MinScore = &minScore
	}

	tag := a.cfg.Terms.TargetTag
	if cmd.Flags().Changed("target-tag") {
		tag = termsTargetTag
	}
	if tag == "" {
		scorer, err := a.newScorer()
		if err != nil {
			return err
		}
		tag = scorer.TargetTag()
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

	res, err := terms.MinePostings(postings, tag, termsOptions(cmd, a.cfg.Terms))
	if err != nil {
		return err
	}
	a.log.Infow("Terms mined", "postings", len(postings), "target", res.TargetDocs, "tag", tag)

	if termsFormat == "json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	a.printer.PrintTerms(res, tag)
	return nil
}
