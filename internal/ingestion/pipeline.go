// Package ingestion pulls offers from a paginated source, normalizes and scores
// them, and merges them into the record store.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jonathan/job-alerts/internal/config"
	"github.com/jonathan/job-alerts/internal/source"
	"github.com/jonathan/job-alerts/internal/store"
	"github.com/jonathan/job-alerts/internal/types"
)

// Run kinds recorded in ingest_runs.
const (
	KindFetch  = "fetch"
	KindSweep  = "sweep"
	KindEnrich = "enrich"
)

// Config is the explicit pipeline configuration.
type Config struct {
	PageSize          int
	MaxPages          int
	PageDelay         time.Duration
	EnrichConcurrency int
}

// Scorer recomputes score and tags of a merged posting.
type Scorer interface {
	Apply(p *types.Posting)
}

// Gate decides whether a posting belongs in the store at all.
// *scoring.Scorer satisfies it.
type Gate interface {
	Relevant(p types.Posting) bool
}

// Waiter paces page requests. *rate.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// ProgressEvent reports one fetched page.
type ProgressEvent struct {
	Query string
	Page  int
	Count int
}

// ProgressCallback is called after each page is merged.
type ProgressCallback func(event ProgressEvent)

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Store  store.Store
	Source source.Client
	Scorer Scorer
	// Gate is optional; nil keeps every valid posting.
	Gate Gate
	// Limiter defaults to one page per Config.PageDelay.
	Limiter    Waiter
	Logger     *zap.SugaredLogger
	Now        func() time.Time
	OnProgress ProgressCallback
}

// Pipeline runs fetches, sweeps and enrichment passes.
type Pipeline struct {
	cfg  Config
	deps Deps
	log  *zap.SugaredLogger
}

// New validates the configuration and collaborators.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	switch {
	case deps.Store == nil:
		return nil, &config.ConfigurationError{Field: "store", Message: "record store is required"}
	case deps.Source == nil:
		return nil, &config.ConfigurationError{Field: "source", Message: "source client is required"}
	case deps.Scorer == nil:
		return nil, &config.ConfigurationError{Field: "scorer", Message: "scorer is required"}
	case cfg.PageSize < 1 || cfg.PageSize > source.MaxPageSize:
		return nil, &config.ConfigurationError{Field: "pipeline.page_size", Message: fmt.Sprintf("must be between 1 and %d", source.MaxPageSize)}
	case cfg.MaxPages < 1:
		return nil, &config.ConfigurationError{Field: "pipeline.max_pages", Message: "must be at least 1"}
	}
	if cfg.EnrichConcurrency < 1 {
		cfg.EnrichConcurrency = 4
	}
	if deps.Limiter == nil {
		limit := rate.Inf
		if cfg.PageDelay > 0 {
			limit = rate.Every(cfg.PageDelay)
		}
		deps.Limiter = rate.NewLimiter(limit, 1)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}

	return &Pipeline{cfg: cfg, deps: deps, log: deps.Logger.With("component", "ingestion")}, nil
}

// Fetch pages through one query. A failing page ends this query only; postings
// merged from earlier pages stay committed.
func (p *Pipeline) Fetch(ctx context.Context, q source.Query) *Summary {
	s := p.newSummary(KindFetch, q.String())
	p.fetchQuery(ctx, q, make(map[string]bool), s)
	p.finish(ctx, s)
	return s
}

// Sweep runs queries in sequence into the same store. An ID already seen in this
// sweep is counted as a duplicate and not merged or scored again.
func (p *Pipeline) Sweep(ctx context.Context, queries []source.Query) *Summary {
	names := make([]string, len(queries))
	for i, q := range queries {
		names[i] = q.String()
	}
	s := p.newSummary(KindSweep, strings.Join(names, "; "))

	seen := make(map[string]bool)
	for _, q := range queries {
		if ctx.Err() != nil {
			s.fail(ctx.Err())
			break
		}
		p.fetchQuery(ctx, q, seen, s)
	}

	p.finish(ctx, s)
	return s
}

func (p *Pipeline) fetchQuery(ctx context.Context, q source.Query, seen map[string]bool, s *Summary) {
	log := p.log.With("query", q.String())

	for page := 0; page < p.cfg.MaxPages; page++ {
		if err := p.deps.Limiter.Wait(ctx); err != nil {
			s.fail(err)
			return
		}

		offers, err := p.deps.Source.SearchPage(ctx, q, page, p.cfg.PageSize)
		if err != nil {
			s.Errors++
			s.fail(err)
			log.Warnw("Page fetch failed, stopping query", "page", page, "error", err)
			return
		}
		s.Pages++

		for _, o := range offers {
			if ctx.Err() != nil {
				s.fail(ctx.Err())
				return
			}
			p.ingest(ctx, source.Normalize(o), seen, s)
		}

		if p.deps.OnProgress != nil {
			p.deps.OnProgress(ProgressEvent{Query: q.String(), Page: page, Count: len(offers)})
		}
		log.Debugw("Page merged", "page", page, "count", len(offers))

		if len(offers) < p.cfg.PageSize {
			return
		}
	}
	log.Debugw("Page cap reached", "max_pages", p.cfg.MaxPages)
}

func (p *Pipeline) ingest(ctx context.Context, posting types.Posting, seen map[string]bool, s *Summary) {
	if err := posting.Validate(); err != nil {
		s.Skipped++
		p.log.Debugw("Skipping invalid posting", "error", err)
		return
	}
	if seen[posting.ExternalID] {
		s.Duplicates++
		return
	}
	seen[posting.ExternalID] = true

	if p.deps.Gate != nil && !p.deps.Gate.Relevant(posting) {
		s.Filtered++
		p.log.Debugw("Filtered irrelevant posting", "external_id", posting.ExternalID, "title", posting.Title)
		return
	}

	created, err := p.deps.Store.Upsert(ctx, posting, p.deps.Scorer.Apply)
	if err != nil {
		var vErr *types.ValidationError
		if errors.As(err, &vErr) {
			s.Skipped++
		} else {
			s.Errors++
		}
		p.log.Warnw("Upsert failed", "external_id", posting.ExternalID, "error", err)
		return
	}
	if created {
		s.New++
		s.NewIDs = append(s.NewIDs, posting.ExternalID)
	} else {
		s.Updated++
	}
}

type detailResult struct {
	offer source.Offer
	err   error
}

// Enrich fetches the full record of existing postings and merges it through the
// regular upsert path, so status and inserted_at are never touched. Unknown IDs
// are skipped.
func (p *Pipeline) Enrich(ctx context.Context, ids []string) *Summary {
	s := p.newSummary(KindEnrich, fmt.Sprintf("%d ids", len(ids)))

	var targets []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		if _, err := p.deps.Store.Get(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.Skipped++
				p.log.Infow("Skipping unknown posting", "external_id", id)
			} else {
				s.Errors++
				p.log.Warnw("Lookup failed", "external_id", id, "error", err)
			}
			continue
		}
		targets = append(targets, id)
	}

	results := make([]detailResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.EnrichConcurrency)
	for i, id := range targets {
		i, id := i, id
		g.Go(func() error {
			o, err := p.deps.Source.Detail(gctx, id)
			results[i] = detailResult{offer: o, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, id := range targets {
		r := results[i]
		switch {
		case errors.Is(r.err, source.ErrNotFound):
			s.Skipped++
			p.log.Infow("Offer no longer available", "external_id", id)
			continue
		case r.err != nil:
			s.Errors++
			s.fail(r.err)
			p.log.Warnw("Detail fetch failed", "external_id", id, "error", r.err)
			continue
		}

		posting := source.Normalize(r.offer)
		posting.ExternalID = id
		created, err := p.deps.Store.Upsert(ctx, posting, p.deps.Scorer.Apply)
		if err != nil {
			s.Errors++
			p.log.Warnw("Upsert failed", "external_id", id, "error", err)
			continue
		}
		if created {
			s.New++
		} else {
			s.Updated++
		}
	}

	p.finish(ctx, s)
	return s
}

func (p *Pipeline) newSummary(kind, query string) *Summary {
	return &Summary{
		RunID:     uuid.New(),
		Kind:      kind,
		Query:     query,
		StartedAt: p.deps.Now(),
	}
}

// finish stamps, logs and records the run. A failure to record is logged only.
func (p *Pipeline) finish(ctx context.Context, s *Summary) {
	s.FinishedAt = p.deps.Now()

	p.log.Infow("Run complete",
		"run_id", s.RunID,
		"kind", s.Kind,
		"new", s.New,
		"updated", s.Updated,
		"skipped", s.Skipped,
		"duplicates", s.Duplicates,
		"filtered", s.Filtered,
		"errors", s.Errors,
		"pages", s.Pages,
	)

	// Record even when ctx is already cancelled.
	recordCtx := context.WithoutCancel(ctx)
	if err := p.deps.Store.RecordRun(recordCtx, s.Record()); err != nil {
		p.log.Warnw("Failed to record run", "run_id", s.RunID, "error", err)
	}
}
