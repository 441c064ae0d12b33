package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"review_engine/internal/adapters/observability"
	"review_engine/internal/domain"
)

const (
	allListingsKey       = "all"
	DefaultCacheDuration = time.Hour
	DefaultFetchTimeout  = 10 * time.Second
)

var ErrNoFallback = errors.New("no fallback dataset configured")

type cacheEntry struct {
	reviews   []domain.Review
	fetchedAt time.Time
}

// ReviewRepository fetches canonical reviews and caches live batches per listing filter.
// Fallback batches are never cached, so the next call after a failure retries upstream.
type ReviewRepository struct {
	source   domain.ReviewSource
	fallback domain.FallbackSource
	now      func() time.Time
	ttl      time.Duration
	timeout  time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
	group singleflight.Group
}

type Option func(*ReviewRepository)

func WithClock(now func() time.Time) Option {
	return func(r *ReviewRepository) { r.now = now }
}

func WithCacheDuration(d time.Duration) Option {
	return func(r *ReviewRepository) {
		if d > 0 {
			r.ttl = d
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(r *ReviewRepository) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewReviewRepository wires the live source and the fallback dataset; either may be nil.
func NewReviewRepository(src domain.ReviewSource, fb domain.FallbackSource, opts ...Option) *ReviewRepository {
	r := &ReviewRepository{
		source:   src,
		fallback: fb,
		now:      time.Now,
		ttl:      DefaultCacheDuration,
		timeout:  DefaultFetchTimeout,
		cache:    make(map[string]cacheEntry),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// cacheKey maps "" and "all" to the unfiltered batch.
func cacheKey(listing string) string {
	l := strings.TrimSpace(listing)
	if l == "" || l == allListingsKey {
		return allListingsKey
	}
	return l
}

// Fetch returns the reviews for a listing filter ("" for all listings).
// Concurrent misses on one key share a single upstream call.
func (r *ReviewRepository) Fetch(ctx context.Context, listing string) domain.FetchResult {
	key := cacheKey(listing)
	if res, ok := r.cached(key); ok {
		return res
	}
	v, _, shared := r.group.Do(key, func() (any, error) {
		// a flight that finished between our miss and Do may already have filled it
		if res, ok := r.lookup(key); ok {
			return res, nil
		}
		return r.load(ctx, key), nil
	})
	if shared {
		log.Debug().Str("key", key).Msg("joined in-flight review fetch")
	}
	return v.(domain.FetchResult)
}

// FetchReviews is Fetch without the provenance.
func (r *ReviewRepository) FetchReviews(ctx context.Context, listing string) []domain.Review {
	return r.Fetch(ctx, listing).Reviews
}

func (r *ReviewRepository) Invalidate(listing string) {
	r.mu.Lock()
	delete(r.cache, cacheKey(listing))
	r.mu.Unlock()
	observability.ObserveCache("memory", "del")
}

func (r *ReviewRepository) Purge() {
	r.mu.Lock()
	r.cache = make(map[string]cacheEntry)
	r.mu.Unlock()
}

// cached is lookup plus hit/miss accounting; call it once per Fetch.
func (r *ReviewRepository) cached(key string) (domain.FetchResult, bool) {
	res, ok := r.lookup(key)
	if !ok {
		observability.ObserveCache("memory", "miss")
		return res, false
	}
	observability.ObserveCache("memory", "hit")
	log.Debug().Str("key", key).Int("reviews", len(res.Reviews)).Msg("returning cached reviews")
	return res, true
}

func (r *ReviewRepository) lookup(key string) (domain.FetchResult, bool) {
	r.mu.RLock()
	e, ok := r.cache[key]
	r.mu.RUnlock()
	if !ok || r.now().Sub(e.fetchedAt) >= r.ttl {
		return domain.FetchResult{}, false
	}
	return domain.FetchResult{Reviews: e.reviews, Source: domain.SourceLive, FetchedAt: e.fetchedAt}, true
}

func (r *ReviewRepository) load(ctx context.Context, key string) domain.FetchResult {
	listing := ""
	if key != allListingsKey {
		listing = key
	}

	if r.source == nil {
		log.Warn().Str("key", key).Msg("upstream source not configured, using fallback dataset")
		return r.loadFallback(ctx, listing)
	}

	// the flight outlives any single caller; only the timeout bounds it
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	recs, err := r.source.GetReviews(fctx, listing)
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Str("err_type", observability.LabelErr(err)).Msg("upstream review fetch failed, using fallback dataset")
		return r.loadFallback(ctx, listing)
	}

	// upstream filtering is best effort; the local filter keeps both paths consistent
	now := r.now()
	reviews := FilterByListing(NormalizeAll(recs, now), listing)
	r.mu.Lock()
	r.cache[key] = cacheEntry{reviews: reviews, fetchedAt: now}
	r.mu.Unlock()
	observability.ObserveCache("memory", "set")
	observability.ObserveFetch(string(domain.SourceLive))
	log.Info().Str("key", key).Int("reviews", len(reviews)).Msg("fetched reviews from upstream")
	return domain.FetchResult{Reviews: reviews, Source: domain.SourceLive, FetchedAt: now}
}

func (r *ReviewRepository) loadFallback(ctx context.Context, listing string) domain.FetchResult {
	now := r.now()
	if r.fallback == nil {
		return r.unavailable(now, ErrNoFallback)
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	recs, err := r.fallback.Load(fctx)
	if err != nil {
		return r.unavailable(now, fmt.Errorf("load fallback dataset: %w", err))
	}

	reviews := FilterByListing(NormalizeAll(recs, now), listing)
	observability.ObserveFetch(string(domain.SourceFallback))
	return domain.FetchResult{Reviews: reviews, Source: domain.SourceFallback, FetchedAt: now}
}

func (r *ReviewRepository) unavailable(now time.Time, err error) domain.FetchResult {
	log.Error().Err(err).Msg("no review data available")
	observability.ObserveFetch(string(domain.SourceUnavailable))
	return domain.FetchResult{Reviews: []domain.Review{}, Source: domain.SourceUnavailable, FetchedAt: now, Err: err}
}
