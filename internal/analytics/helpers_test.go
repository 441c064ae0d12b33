package analytics_test

import (
	"time"

	"review_engine/internal/domain"
)

var base = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func pfloat(f float64) *float64 { return &f }

func rv(listing string, rating *float64, at time.Time, text string, cats map[string]float64) domain.Review {
	r := domain.Review{Listing: listing, Rating: rating, SubmittedAt: at, Categories: cats}
	if r.Categories == nil {
		r.Categories = map[string]float64{}
	}
	if text != "" {
		r.Text = &text
	}
	return r
}

// month returns a time in the n-th month after January 2024.
func month(n int) time.Time { return base.AddDate(0, n, 0) }
