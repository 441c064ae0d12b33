package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_engine/internal/adapters/fallback"
	"review_engine/internal/adapters/hostaway"
	"review_engine/internal/adapters/observability"
	redisad "review_engine/internal/adapters/redis"
	"review_engine/internal/analytics"
	"review_engine/internal/app"
	"review_engine/internal/domain"
	"review_engine/internal/shared"
)

type listingDigest struct {
	Listing string
	Source  domain.DataSource
	Report  domain.TrendReport
}

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	runID := uuid.NewString()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "review-digest").
		With().Str("run_id", runID).Logger()

	log.Info().
		Str("base", cfg.HostawayBase).
		Int("workers", cfg.DigestWorkers).
		Strs("listings", cfg.DigestListings).
		Msg("digest starting")

	var src domain.ReviewSource
	if cfg.HostawayConfigured() {
		client, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccountID, cfg.HostawayKey, cfg.HostawayRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Hostaway client")
		}
		src = client
	}
	repo := app.NewReviewRepository(src, fallback.New(cfg.FallbackDataset),
		app.WithCacheDuration(cfg.CacheDuration),
		app.WithFetchTimeout(cfg.FetchTimeout),
	)

	// reports built here warm the API's trend cache
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, reports will not be cached")
	} else {
		cache = rc
	}
	defer rc.Close()

	q := app.NewQueryService(repo, cache, nil, cfg.CacheTTL)

	listings := cfg.DigestListings
	if len(listings) == 0 {
		res := repo.Fetch(ctx, "")
		if res.Source == domain.SourceUnavailable {
			log.Fatal().Err(res.Err).Msg("no review data available")
		}
		for _, l := range analytics.Listings(res.Reviews) {
			listings = append(listings, l.Listing)
		}
	}

	start := time.Now()
	out := runDigest(ctx, q, listings, cfg.DigestWorkers)
	for _, d := range out {
		ev := log.Info()
		if d.Source != domain.SourceLive {
			ev = log.Warn()
		}
		ev.Str("listing", d.Listing).
			Str("source", string(d.Source)).
			Int("reviews", d.Report.TotalReviews).
			Float64("trend_pct", d.Report.TrendPercent).
			Str("direction", string(d.Report.Insights.Direction)).
			Int("positive", d.Report.Insights.PositiveReviews).
			Int("issues", d.Report.Insights.RecurringIssues).
			Msg("listing digest")
	}
	log.Info().Int("listings", len(out)).Dur("took", time.Since(start)).Msg("digest completed")
}

// runDigest builds one report per listing with at most workers in flight.
// Results keep the order of listings.
func runDigest(ctx context.Context, q *app.QueryService, listings []string, workers int) []listingDigest {
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	out := make([]listingDigest, len(listings))
	var wg sync.WaitGroup

	for i, l := range listings {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Error().Err(err).Msg("semaphore acquire failed")
			break
		}

		wg.Add(1)
		go func(i int, listing string) {
			defer wg.Done()
			defer sem.Release(1)

			start := time.Now()
			rep, src := q.Trends(ctx, listing)
			observability.DigestDuration.Observe(time.Since(start).Seconds())
			out[i] = listingDigest{Listing: listing, Source: src, Report: rep}
		}(i, l)
	}

	wg.Wait()
	return out
}
