package app

import (
	"sort"
	"strings"

	"review_engine/internal/domain"
)

// FilterByListing matches case-insensitively in either direction: the stored listing
// contains the query, or the query contains the stored listing. This tolerates short
// aliases ("2B") as well as longer caller-side names ("A Wing Unit" for "A").
func FilterByListing(reviews []domain.Review, query string) []domain.Review {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return reviews
	}
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		l := strings.ToLower(r.Listing)
		if strings.Contains(l, q) || (l != "" && strings.Contains(q, l)) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByText matches the review body or the guest name, case-insensitively.
func FilterByText(reviews []domain.Review, query string) []domain.Review {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return reviews
	}
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if strings.Contains(strings.ToLower(deref(r.Text)), q) ||
			strings.Contains(strings.ToLower(deref(r.GuestName)), q) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByMinRating keeps reviews rated at least threshold; unrated reviews count as 0.
func FilterByMinRating(reviews []domain.Review, threshold float64) []domain.Review {
	out := make([]domain.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.RatingOrZero() >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// SortReviews returns a sorted copy. Unknown orders fall back to newest first.
func SortReviews(reviews []domain.Review, order domain.SortOrder) []domain.Review {
	out := make([]domain.Review, len(reviews))
	copy(out, reviews)
	switch order {
	case domain.SortHighest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].RatingOrZero() > out[j].RatingOrZero() })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	}
	return out
}

func GroupByListing(reviews []domain.Review) map[string][]domain.Review {
	out := make(map[string][]domain.Review)
	for _, r := range reviews {
		out[r.Listing] = append(out[r.Listing], r)
	}
	return out
}

// ApplyQuery runs the text, rating and sort stages of a ReviewQuery.
// Listing filtering is left to the fetch.
func ApplyQuery(reviews []domain.Review, q domain.ReviewQuery) []domain.Review {
	out := FilterByText(reviews, q.Text)
	if q.MinRating != nil {
		out = FilterByMinRating(out, *q.MinRating)
	}
	return SortReviews(out, q.Sort)
}
