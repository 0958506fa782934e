package enrich

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rayparkerhenry/intertalent/internal/zipcache"
)

// Resolver resolves a ZIP code to a coordinate. A nil coordinate with a nil
// error means "not resolvable"; an error aborts the run.
type Resolver interface {
	Lookup(ctx context.Context, zip string) (*zipcache.Coordinate, error)
}

// RunStats aggregates the outcome of one enrichment run.
type RunStats struct {
	Processed   int   // candidate ZIP codes seen
	FromCache   int   // answered by an existing cache entry
	FromLookup  int   // answered by a lookup attempt
	Found       int   // lookups that returned a coordinate
	NotFound    int   // candidates left without a coordinate
	RowsUpdated int64 // store rows that received a geolocation
}

// Reporter receives progress callbacks during a run.
type Reporter func(done, total int, stats RunStats)

const defaultReportEvery = 50

// Enricher drives one enrichment pass over the store.
type Enricher struct {
	gateway  Gateway
	cache    *zipcache.Cache
	resolver Resolver
	report   Reporter
	every    int
	dryRun   bool
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithReporter sets the progress callback.
func WithReporter(r Reporter) EnricherOption {
	return func(e *Enricher) { e.report = r }
}

// WithReportEvery sets how many candidates are processed between progress
// callbacks.
func WithReportEvery(n int) EnricherOption {
	return func(e *Enricher) {
		if n > 0 {
			e.every = n
		}
	}
}

// WithDryRun resolves coordinates and fills the cache without touching the
// store's rows.
func WithDryRun(dry bool) EnricherOption {
	return func(e *Enricher) { e.dryRun = dry }
}

// NewEnricher creates an Enricher with injected collaborators.
func NewEnricher(gw Gateway, cache *zipcache.Cache, resolver Resolver, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		gateway:  gw,
		cache:    cache,
		resolver: resolver,
		every:    defaultReportEvery,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one enrichment pass: ensure schema, discover candidate ZIP
// codes, resolve each through the cache then the lookup service, write
// coordinates back, commit, and save the cache. The cache is saved even when
// the run fails partway, so resolved lookups are never lost.
func (e *Enricher) Run(ctx context.Context) (stats *RunStats, err error) {
	stats = &RunStats{}
	log := zap.L().With(zap.String("component", "enrich"))

	e.cache.Load()
	defer func() {
		if saveErr := e.cache.Save(); saveErr != nil {
			log.Warn("save cache", zap.Error(saveErr))
			if err == nil {
				err = saveErr
			}
		}
	}()
	defer e.gateway.Close(ctx)

	if err := e.gateway.EnsureGeolocationColumn(ctx); err != nil {
		return stats, err
	}
	if err := e.gateway.EnsureSpatialIndex(ctx); err != nil {
		return stats, err
	}

	zips, err := e.gateway.CandidateZips(ctx)
	if err != nil {
		return stats, err
	}
	if len(zips) == 0 {
		log.Info("no candidates, nothing to do")
		return stats, nil
	}

	log.Info("starting run",
		zap.Int("candidates", len(zips)),
		zap.Int("cached", e.cache.Len()),
		zap.Bool("dry_run", e.dryRun),
	)

	if !e.dryRun {
		if err := e.gateway.Begin(ctx); err != nil {
			return stats, err
		}
	}

	for i, zip := range zips {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stats, eris.Wrap(ctxErr, "enrich: interrupted")
		}

		// A code that is not five digits never enters the cache and never
		// reaches the resolver; it only counts as not found.
		var coord *zipcache.Coordinate
		if _, ok := zipcache.NormalizeUS(zip); ok {
			var hit bool
			coord, hit = e.cache.Get(zip)
			if hit {
				// Positive or negative, an entry means no network call.
				stats.FromCache++
			} else {
				looked, lookErr := e.resolver.Lookup(ctx, zip)
				if lookErr != nil {
					return stats, lookErr
				}
				// Cached regardless of outcome; a nil result becomes a
				// negative entry so the code is not retried next run.
				e.cache.Set(zip, looked)
				stats.FromLookup++
				if looked != nil {
					stats.Found++
				}
				coord = looked
			}
		}

		if coord != nil {
			if !e.dryRun {
				n, applyErr := e.gateway.ApplyCoordinate(ctx, zip, *coord)
				if applyErr != nil {
					return stats, applyErr
				}
				stats.RowsUpdated += n
			}
		} else {
			stats.NotFound++
		}
		stats.Processed++

		if e.report != nil && ((i+1)%e.every == 0 || i+1 == len(zips)) {
			e.report(i+1, len(zips), *stats)
		}
	}

	if !e.dryRun {
		if err := e.gateway.Commit(ctx); err != nil {
			return stats, err
		}
	}

	log.Info("run complete",
		zap.Int("processed", stats.Processed),
		zap.Int("from_cache", stats.FromCache),
		zap.Int("from_lookup", stats.FromLookup),
		zap.Int("found", stats.Found),
		zap.Int("not_found", stats.NotFound),
		zap.Int64("rows_updated", stats.RowsUpdated),
	)
	return stats, nil
}
