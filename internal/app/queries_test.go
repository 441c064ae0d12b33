package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"review_engine/internal/app"
	"review_engine/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	res   domain.FetchResult
	calls int
}

func (f *fakeRepo) Fetch(ctx context.Context, listing string) domain.FetchResult {
	f.calls++
	out := f.res
	out.Reviews = app.FilterByListing(f.res.Reviews, listing)
	return out
}

type fakeCache struct {
	store map[string]any
	sets  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.TrendReport:
		*d = v.(domain.TrendReport)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	c.sets++
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type fakeApprovals struct {
	approved map[int64]bool
	err      error
}

func (a *fakeApprovals) SetApproved(ctx context.Context, id int64, approved bool) error {
	if a.err != nil {
		return a.err
	}
	if a.approved == nil {
		a.approved = map[int64]bool{}
	}
	a.approved[id] = approved
	return nil
}
func (a *fakeApprovals) ApprovedSet(ctx context.Context, ids []int64) (map[int64]bool, error) {
	if a.err != nil {
		return nil, a.err
	}
	out := map[int64]bool{}
	for _, id := range ids {
		if a.approved[id] {
			out[id] = true
		}
	}
	return out, nil
}
func (a *fakeApprovals) ListApproved(ctx context.Context) ([]int64, error) { return nil, a.err }

func sampleReviews() []domain.Review {
	return []domain.Review{
		review(1, "2B N1 A", pfloat(9), "spotless", "Ana", fixedNow.AddDate(0, -2, 0)),
		review(2, "2B N1 A", pfloat(6), "noisy street, noisy bar", "Ben", fixedNow.AddDate(0, -1, 0)),
		review(3, "Camden Lofts", nil, "noisy heating", "Cara", fixedNow),
		review(4, "Camden Lofts", pfloat(10), "perfect", "Dan", fixedNow.AddDate(0, 0, -3)),
	}
}

// ---- tests ----

func TestReviews_AppliesQuery(t *testing.T) {
	repo := &fakeRepo{res: domain.FetchResult{Reviews: sampleReviews(), Source: domain.SourceFallback}}
	q := app.NewQueryService(repo, nil, nil, time.Minute)

	out, src := q.Reviews(context.Background(), domain.ReviewQuery{Listing: "2b", MinRating: pfloat(5), Sort: domain.SortHighest})
	if src != domain.SourceFallback {
		t.Fatalf("source not propagated: %s", src)
	}
	if got := ids(out); !sameIDs(got, []int64{1, 2}) {
		t.Fatalf("unexpected reviews %v", got)
	}
}

func TestStatsAndListings(t *testing.T) {
	repo := &fakeRepo{res: domain.FetchResult{Reviews: sampleReviews(), Source: domain.SourceLive}}
	q := app.NewQueryService(repo, nil, nil, time.Minute)

	st, _ := q.Stats(context.Background(), "")
	// (9 + 6 + 0 + 10) / 4 = 6.25
	if st.TotalReviews != 4 || st.TotalListings != 2 || st.AverageRating != 6.3 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	ls, _ := q.Listings(context.Background())
	if len(ls) != 2 || ls[0].Listing != "2B N1 A" || ls[1].ReviewCount != 2 {
		t.Fatalf("unexpected listings: %+v", ls)
	}
}

func TestReview_NotFound(t *testing.T) {
	repo := &fakeRepo{res: domain.FetchResult{Reviews: sampleReviews(), Source: domain.SourceLive}}
	q := app.NewQueryService(repo, nil, nil, time.Minute)

	rv, _, err := q.Review(context.Background(), 3)
	if err != nil || rv.ID != 3 {
		t.Fatalf("expected review 3, got %+v, %v", rv, err)
	}
	if _, _, err := q.Review(context.Background(), 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrends_CachedOnlyWhenLive(t *testing.T) {
	repo := &fakeRepo{res: domain.FetchResult{Reviews: sampleReviews(), Source: domain.SourceFallback}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, nil, time.Minute)

	rep, src := q.Trends(context.Background(), "")
	if src != domain.SourceFallback || rep.TotalReviews != 4 {
		t.Fatalf("unexpected report: %+v (%s)", rep, src)
	}
	if cache.sets != 0 {
		t.Fatalf("fallback report must not be cached")
	}

	repo.res.Source = domain.SourceLive
	q.Trends(context.Background(), "")
	if cache.sets != 1 {
		t.Fatalf("live report should be cached, sets=%d", cache.sets)
	}

	// served from cache now, even though the repo changed
	repo.res.Reviews = nil
	calls := repo.calls
	rep, src = q.Trends(context.Background(), "all")
	if repo.calls != calls || rep.TotalReviews != 4 || src != domain.SourceLive {
		t.Fatalf("expected cached report, got %+v (calls %d -> %d)", rep, calls, repo.calls)
	}
}

func TestPublicReviews_OnlyApproved(t *testing.T) {
	repo := &fakeRepo{res: domain.FetchResult{Reviews: sampleReviews(), Source: domain.SourceLive}}
	store := &fakeApprovals{approved: map[int64]bool{1: true, 2: true, 4: true}}
	q := app.NewQueryService(repo, nil, store, time.Minute)

	out, _, err := q.PublicReviews(context.Background(), "2B")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got := ids(out); !sameIDs(got, []int64{2, 1}) {
		t.Fatalf("expected approved reviews newest first, got %v", got)
	}

	none, _, err := app.NewQueryService(repo, nil, nil, time.Minute).PublicReviews(context.Background(), "2B")
	if err != nil || len(none) != 0 {
		t.Fatalf("without a store nothing is public, got %v, %v", ids(none), err)
	}

	store.err = errors.New("db down")
	if _, _, err := q.PublicReviews(context.Background(), "2B"); err == nil {
		t.Fatalf("expected store error to surface")
	}
}

func TestModerationSummary(t *testing.T) {
	repo := &fakeRepo{res: domain.FetchResult{Reviews: sampleReviews(), Source: domain.SourceLive}}
	store := &fakeApprovals{approved: map[int64]bool{1: true, 4: true}}
	q := app.NewQueryService(repo, nil, store, time.Minute)

	out, _, err := q.ModerationSummary(context.Background(), "")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := []domain.ModerationSummary{
		{Listing: "2B N1 A", Approved: 1, Pending: 1},
		{Listing: "Camden Lofts", Approved: 1, Pending: 1},
	}
	if len(out) != len(want) || out[0] != want[0] || out[1] != want[1] {
		t.Fatalf("got %+v, want %+v", out, want)
	}
}

func TestSetApproval(t *testing.T) {
	repo := &fakeRepo{res: domain.FetchResult{Reviews: sampleReviews(), Source: domain.SourceLive}}
	store := &fakeApprovals{}
	m := app.NewModerationService(repo, store)

	rv, err := m.SetApproval(context.Background(), 4, true)
	if err != nil || rv.ID != 4 || !store.approved[4] {
		t.Fatalf("approve failed: %+v, %v, %v", rv, err, store.approved)
	}
	if _, err := m.SetApproval(context.Background(), 4, false); err != nil || store.approved[4] {
		t.Fatalf("unapprove failed: %v, %v", err, store.approved)
	}
	if _, err := m.SetApproval(context.Background(), 99, true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := app.NewModerationService(repo, nil).SetApproval(context.Background(), 4, true); !errors.Is(err, app.ErrNoApprovalStore) {
		t.Fatalf("expected ErrNoApprovalStore, got %v", err)
	}

	store.err = errors.New("db down")
	if _, err := m.SetApproval(context.Background(), 4, true); err == nil {
		t.Fatalf("expected store error")
	}
}

func ptr[T any](v T) *T { return &v }
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
func pfloat(f float64) *float64 { return &f }

func TestTrends_NotCachedWithoutTTL(t *testing.T) {
	repo := &fakeRepo{res: domain.FetchResult{Reviews: sampleReviews(), Source: domain.SourceLive}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, nil, 0)

	rep, src := q.Trends(context.Background(), "")
	if src != domain.SourceLive || rep.TotalReviews != 4 {
		t.Fatalf("unexpected report: %+v (%s)", rep, src)
	}
	if cache.sets != 0 {
		t.Fatalf("zero TTL must disable the trend cache, sets=%d", cache.sets)
	}
}
