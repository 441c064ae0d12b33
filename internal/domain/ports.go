package domain

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// ReviewSource is the live upstream. An empty listing means every listing.
type ReviewSource interface {
	GetReviews(ctx context.Context, listing string) ([]map[string]any, error)
}

// FallbackSource serves the static dataset used when the upstream is unavailable.
type FallbackSource interface {
	Load(ctx context.Context) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ApprovalStore persists the moderation flag, keyed by Review.ID.
type ApprovalStore interface {
	SetApproved(ctx context.Context, id int64, approved bool) error
	ApprovedSet(ctx context.Context, ids []int64) (map[int64]bool, error)
	ListApproved(ctx context.Context) ([]int64, error)
}

type DataSource string

const (
	SourceLive        DataSource = "live"
	SourceFallback    DataSource = "fallback"
	SourceUnavailable DataSource = "unavailable"
)

// FetchResult tells the caller where a batch came from. Err is set only for SourceUnavailable.
type FetchResult struct {
	Reviews   []Review
	Source    DataSource
	FetchedAt time.Time
	Err       error
}

// Read models & queries

type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortHighest SortOrder = "highest"
)

type ReviewQuery struct {
	Listing   string
	Text      string
	MinRating *float64
	Sort      SortOrder
}

type ModerationSummary struct {
	Listing  string `json:"listing"`
	Approved int    `json:"approved"`
	Pending  int    `json:"pending"`
}
