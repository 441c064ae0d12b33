package domain

import "time"

// UnknownListing is used when the upstream record carries neither a listing name nor a listing id.
const UnknownListing = "Unknown listing"

type RawCategory struct {
	Name  *string
	Score *float64
}

// RawReview is one upstream record after field extraction. Nothing is guaranteed present.
type RawReview struct {
	ID            *int64
	SourceKey     *string // non-numeric upstream id, e.g. "google_1"
	Rating        *float64
	Categories    []RawCategory
	Text          *string
	SubmittedAt   *string
	GuestName     *string
	ListingName   *string
	Channel       *string
	Status        *string
	Type          *string
	ListingID     *int64
	ReservationID *int64
	GuestID       *int64
}

// Review is the canonical record every analytic works on. Treat it as read-only.
type Review struct {
	ID            int64              `json:"id"`
	Listing       string             `json:"listing"`
	Type          string             `json:"type"`
	Channel       string             `json:"channel"`
	Status        string             `json:"status"`
	Rating        *float64           `json:"rating"`
	Categories    map[string]float64 `json:"categories"`
	Text          *string            `json:"publicReview,omitempty"`
	SubmittedAt   time.Time          `json:"submittedAt"`
	GuestName     *string            `json:"guestName,omitempty"`
	ListingID     *int64             `json:"listingId,omitempty"`
	ReservationID *int64             `json:"reservationId,omitempty"`
	GuestID       *int64             `json:"guestId,omitempty"`
}

// RatingOrZero is the rating used by every "absent counts as 0" computation.
func (r Review) RatingOrZero() float64 {
	if r.Rating == nil {
		return 0
	}
	return *r.Rating
}
