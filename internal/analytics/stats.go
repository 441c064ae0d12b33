// Package analytics computes aggregates and trends over canonical reviews.
// Every function is pure and total: empty input yields empty or zero results.
package analytics

import (
	"math"
	"sort"

	"review_engine/internal/domain"
)

// RoundOne rounds half-up to one decimal place.
func RoundOne(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// Aggregate computes the overview stats. Unrated reviews count as 0 in the average
// but categories average only over the reviews that scored them.
func Aggregate(reviews []domain.Review) domain.Stats {
	st := domain.Stats{
		TotalReviews:     len(reviews),
		CategoryAverages: CategoryAverages(reviews),
	}
	if len(reviews) == 0 {
		return st
	}
	listings := make(map[string]struct{})
	var sum float64
	for _, r := range reviews {
		sum += r.RatingOrZero()
		listings[r.Listing] = struct{}{}
	}
	st.AverageRating = RoundOne(sum / float64(len(reviews)))
	st.TotalListings = len(listings)
	return st
}

type categoryAcc struct {
	total float64
	count int
	order int
}

func accumulateCategories(reviews []domain.Review) map[string]*categoryAcc {
	acc := make(map[string]*categoryAcc)
	for _, r := range reviews {
		for _, name := range sortedKeys(r.Categories) {
			a, ok := acc[name]
			if !ok {
				a = &categoryAcc{order: len(acc)}
				acc[name] = a
			}
			a.total += r.Categories[name]
			a.count++
		}
	}
	return acc
}

// CategoryAverages averages each category over only the reviews that report it.
// Categories no review reports are absent from the map.
func CategoryAverages(reviews []domain.Review) map[string]float64 {
	out := make(map[string]float64)
	for name, a := range accumulateCategories(reviews) {
		out[name] = a.total / float64(a.count)
	}
	return out
}

// Listings groups by listing name in first-seen order.
func Listings(reviews []domain.Review) []domain.ListingAggregate {
	idx := make(map[string]int)
	var out []domain.ListingAggregate
	sums := make([]float64, 0)
	for _, r := range reviews {
		i, ok := idx[r.Listing]
		if !ok {
			i = len(out)
			idx[r.Listing] = i
			out = append(out, domain.ListingAggregate{Listing: r.Listing})
			sums = append(sums, 0)
		}
		out[i].ReviewCount++
		sums[i] += r.RatingOrZero()
	}
	for i := range out {
		out[i].AverageRating = sums[i] / float64(out[i].ReviewCount)
	}
	if out == nil {
		out = []domain.ListingAggregate{}
	}
	return out
}

// TopListings ranks listings by average rating; n <= 0 keeps all.
func TopListings(reviews []domain.Review, n int) []domain.ListingAggregate {
	ls := Listings(reviews)
	sort.SliceStable(ls, func(i, j int) bool { return ls[i].AverageRating > ls[j].AverageRating })
	if n > 0 && len(ls) > n {
		ls = ls[:n]
	}
	return ls
}

// RecentReviews returns up to n reviews, newest first.
func RecentReviews(reviews []domain.Review, n int) []domain.Review {
	out := make([]domain.Review, len(reviews))
	copy(out, reviews)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
