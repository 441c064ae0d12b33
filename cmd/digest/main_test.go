package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"review_engine/internal/app"
	"review_engine/internal/domain"
)

type countingRepo struct {
	reviews  []domain.Review
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *countingRepo) Fetch(ctx context.Context, listing string) domain.FetchResult {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return domain.FetchResult{Reviews: app.FilterByListing(c.reviews, listing), Source: domain.SourceLive}
}

func TestRunDigest_OrderAndConcurrency(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := func(l string) domain.Review {
		return domain.Review{Listing: l, SubmittedAt: at, Categories: map[string]float64{}}
	}
	repo := &countingRepo{reviews: []domain.Review{r("Alpha"), r("Alpha"), r("Bravo"), r("Charlie"), r("Delta")}}
	q := app.NewQueryService(repo, nil, nil, time.Minute)

	listings := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}
	out := runDigest(context.Background(), q, listings, 2)

	if len(out) != len(listings) {
		t.Fatalf("expected %d digests, got %d", len(listings), len(out))
	}
	for i, d := range out {
		if d.Listing != listings[i] || d.Source != domain.SourceLive {
			t.Fatalf("digest %d out of order or wrong source: %+v", i, d)
		}
	}
	if out[0].Report.TotalReviews != 2 || out[4].Report.TotalReviews != 0 {
		t.Fatalf("unexpected totals: %d, %d", out[0].Report.TotalReviews, out[4].Report.TotalReviews)
	}
	if p := repo.peak.Load(); p > 2 {
		t.Fatalf("expected at most 2 concurrent fetches, saw %d", p)
	}
}
