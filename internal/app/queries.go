package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"review_engine/internal/analytics"
	"review_engine/internal/domain"
)

// Fetcher is the part of ReviewRepository the read side needs.
type Fetcher interface {
	Fetch(ctx context.Context, listing string) domain.FetchResult
}

type QueryService struct {
	repo      Fetcher
	cache     domain.Cache
	approvals domain.ApprovalStore
	cacheTTL  time.Duration
}

// NewQueryService wires the read side. cache and approvals may be nil; without an
// approval store nothing is public.
func NewQueryService(r Fetcher, c domain.Cache, a domain.ApprovalStore, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, approvals: a, cacheTTL: ttl}
}

func (s *QueryService) Reviews(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, domain.DataSource) {
	res := s.repo.Fetch(ctx, q.Listing)
	return ApplyQuery(res.Reviews, q), res.Source
}

func (s *QueryService) Stats(ctx context.Context, listing string) (domain.Stats, domain.DataSource) {
	res := s.repo.Fetch(ctx, listing)
	return analytics.Aggregate(res.Reviews), res.Source
}

func (s *QueryService) Listings(ctx context.Context) ([]domain.ListingAggregate, domain.DataSource) {
	res := s.repo.Fetch(ctx, "")
	return analytics.Listings(res.Reviews), res.Source
}

// Review looks one review up by id; domain.ErrNotFound when it is not in the batch.
func (s *QueryService) Review(ctx context.Context, id int64) (domain.Review, domain.DataSource, error) {
	res := s.repo.Fetch(ctx, "")
	for _, rv := range res.Reviews {
		if rv.ID == id {
			return rv, res.Source, nil
		}
	}
	return domain.Review{}, res.Source, domain.ErrNotFound
}

// Trends builds the listing's report. Only reports over live data are cached,
// so a report built from the fallback dataset is recomputed once the upstream recovers.
func (s *QueryService) Trends(ctx context.Context, listing string) (domain.TrendReport, domain.DataSource) {
	key := "trends:" + cacheKey(listing)
	var rep domain.TrendReport
	if s.cache != nil {
		if ok, err := s.cache.Get(ctx, key, &rep); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("trend cache read failed")
		} else if ok {
			return rep, domain.SourceLive
		}
	}

	res := s.repo.Fetch(ctx, listing)
	rep = analytics.BuildReport(res.Reviews)
	// a TTL under a second would reach redis as 0, which stores without expiry
	if s.cache != nil && res.Source == domain.SourceLive && s.cacheTTL >= time.Second {
		if err := s.cache.Set(ctx, key, rep, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("trend cache write failed")
		}
	}
	return rep, res.Source
}

// PublicReviews returns the approved reviews of a listing, newest first.
func (s *QueryService) PublicReviews(ctx context.Context, listing string) ([]domain.Review, domain.DataSource, error) {
	res := s.repo.Fetch(ctx, listing)
	approved, err := s.approvedSet(ctx, res.Reviews)
	if err != nil {
		return nil, res.Source, err
	}
	out := make([]domain.Review, 0, len(approved))
	for _, rv := range res.Reviews {
		if approved[rv.ID] {
			out = append(out, rv)
		}
	}
	return SortReviews(out, domain.SortNewest), res.Source, nil
}

// ModerationSummary counts approved and pending reviews per matching listing,
// in first-seen order.
func (s *QueryService) ModerationSummary(ctx context.Context, listing string) ([]domain.ModerationSummary, domain.DataSource, error) {
	res := s.repo.Fetch(ctx, listing)
	approved, err := s.approvedSet(ctx, res.Reviews)
	if err != nil {
		return nil, res.Source, err
	}
	out := []domain.ModerationSummary{}
	idx := map[string]int{}
	for _, rv := range res.Reviews {
		i, ok := idx[rv.Listing]
		if !ok {
			i = len(out)
			idx[rv.Listing] = i
			out = append(out, domain.ModerationSummary{Listing: rv.Listing})
		}
		if approved[rv.ID] {
			out[i].Approved++
		} else {
			out[i].Pending++
		}
	}
	return out, res.Source, nil
}

func (s *QueryService) approvedSet(ctx context.Context, reviews []domain.Review) (map[int64]bool, error) {
	if s.approvals == nil || len(reviews) == 0 {
		return map[int64]bool{}, nil
	}
	ids := make([]int64, 0, len(reviews))
	for _, rv := range reviews {
		ids = append(ids, rv.ID)
	}
	return s.approvals.ApprovedSet(ctx, ids)
}
