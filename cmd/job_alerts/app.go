package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/job-alerts/internal/config"
	"github.com/jonathan/job-alerts/internal/ingestion"
	"github.com/jonathan/job-alerts/internal/logging"
	"github.com/jonathan/job-alerts/internal/observability"
	"github.com/jonathan/job-alerts/internal/scoring"
	"github.com/jonathan/job-alerts/internal/source"
	"github.com/jonathan/job-alerts/internal/store"
)

// app bundles what every command needs after configuration is resolved.
type app struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	out     io.Writer
	printer *observability.Printer
}

// setup loads and validates the configuration, applying persistent flags last.
// Configuration errors surface here, before any network call.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database.URL = dbURL
	}
	if flags.Changed("driver") {
		cfg.Database.Driver = dbDriver
	}
	if flags.Changed("simulate") {
		cfg.API.Simulate = simulate
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = logJSON
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	return &app{cfg: cfg, log: log, out: out, printer: observability.NewPrinter(out)}, nil
}

// openStore connects and applies pending migrations.
func (a *app) openStore(ctx context.Context) (*store.DB, error) {
	db, err := store.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.URL, store.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (a *app) newScorer() (*scoring.Scorer, error) {
	d := scoring.DefaultDictionary()
	if a.cfg.Dictionary != "" {
		loaded, err := scoring.LoadDictionary(a.cfg.Dictionary)
		if err != nil {
			return nil, err
		}
		d = loaded
	}
	var opts []scoring.Option
	if b := a.cfg.Base; b != nil {
		opts = append(opts, scoring.WithBase(b.Lat, b.Lon))
	}
	return scoring.New(d, opts...)
}

func (a *app) newSource(ctx context.Context) (source.Client, error) {
	if a.cfg.API.Simulate {
		a.log.Infow("Using simulated source", "sample", a.cfg.API.SamplePath)
		return source.NewSimulated(a.cfg.API.SamplePath, a.log)
	}
	return source.NewFranceTravail(ctx, source.FranceTravailConfig{
		AuthURL:      a.cfg.API.AuthURL,
		ClientID:     a.cfg.API.ClientID,
		ClientSecret: a.cfg.API.ClientSecret,
		Scope:        a.cfg.API.Scope,
		SearchURL:    a.cfg.API.SearchURL,
		DetailURL:    a.cfg.API.DetailURL,
		Timeout:      a.cfg.API.Timeout,
	}, a.log)
}

// newPipeline wires source, scorer and store. The scorer doubles as the
// relevance gate when enabled. Page progress is logged at debug.
func (a *app) newPipeline(ctx context.Context, st store.Store) (*ingestion.Pipeline, error) {
	src, err := a.newSource(ctx)
	if err != nil {
		return nil, err
	}
	scorer, err := a.newScorer()
	if err != nil {
		return nil, err
	}

	p := a.cfg.Pipeline
	deps := ingestion.Deps{
		Store:  st,
		Source: src,
		Scorer: scorer,
		Logger: a.log,
		OnProgress: func(e ingestion.ProgressEvent) {
			a.log.Debugw("Page done", "query", e.Query, "page", e.Page, "count", e.Count)
		},
	}
	if p.RelevanceGate {
		deps.Gate = scorer
	}
	return ingestion.New(ingestion.Config{
		PageSize:          p.PageSize,
		MaxPages:          p.MaxPages,
		PageDelay:         p.PageDelay,
		EnrichConcurrency: p.EnrichConcurrency,
	}, deps)
}

// baseQuery is the configured default search with recency snapped to the API's values.
func (a *app) baseQuery() source.Query {
	s := a.cfg.Search
	return source.Query{
		Keywords:           s.Keywords,
		Department:         s.Department,
		RadiusKm:           s.RadiusKm,
		PublishedSinceDays: source.SnapPublishedSince(s.PublishedSinceDays),
	}
}

// sweepQueries expands the configured keyword groups over the base query.
func (a *app) sweepQueries() []source.Query {
	groups := a.cfg.Search.Sweep
	if len(groups) == 0 {
		groups = [][]string{a.cfg.Search.Keywords}
	}
	base := a.baseQuery()
	queries := make([]source.Query, 0, len(groups))
	for _, g := range groups {
		q := base
		q.Keywords = g
		queries = append(queries, q)
	}
	return queries
}

// parseGroups reads "ros2,robotique;opencv" into keyword groups.
func parseGroups(v string) [][]string {
	var groups [][]string
	for _, part := range strings.Split(v, ";") {
		if g := config.SplitList(part); len(g) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
