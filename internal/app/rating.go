package app

import "review_engine/internal/analytics"

// ResolveRating picks the overall rating of a review.
// An upstream overall rating always wins and is not clamped; otherwise the mean of the
// category scores is used, rounded half-up to one decimal. No data means no rating.
func ResolveRating(overall *float64, categories map[string]float64) *float64 {
	if overall != nil {
		v := *overall
		return &v
	}
	if len(categories) == 0 {
		return nil
	}
	var sum float64
	for _, v := range categories {
		sum += v
	}
	avg := analytics.RoundOne(sum / float64(len(categories)))
	return &avg
}
