package app

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"review_engine/internal/domain"
)

/********** alias registry (single source of truth) **********/

// Hostaway is the primary shape; the Google-style aliases (author, text, time) come from
// the secondary review feed.
var reviewAliases = map[string][]string{
	"id":             {"id", "review_id", "reviewId"},
	"rating":         {"rating", "overall_rating", "rating.value"},
	"categories":     {"reviewCategory", "review_category", "categories"},
	"text":           {"publicReview", "public_review", "text", "comment", "body"},
	"submitted_at":   {"submittedAt", "submitted_at", "time", "date", "created_at"},
	"guest_name":     {"guestName", "guest_name", "author", "reviewer"},
	"listing_name":   {"listingName", "listing_name", "listing"},
	"channel":        {"channel", "source", "platform"},
	"status":         {"status"},
	"type":           {"type"},
	"listing_id":     {"listingId", "listing_id", "listingMapId"},
	"reservation_id": {"reservationId", "reservation_id"},
	"guest_id":       {"guestId", "guest_id"},
}

var categoryNameAliases = []string{"category", "name"}
var categoryScoreAliases = []string{"rating", "score", "value"}

var whitespaceRun = regexp.MustCompile(`\s+`)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstNonEmptyAlias: first non-blank string for a named alias set.
func firstNonEmptyAlias(m map[string]any, key string) *string {
	for _, p := range reviewAliases[key] {
		if s, ok := lookupAny(m, p).(string); ok && strings.TrimSpace(s) != "" {
			return &s
		}
	}
	return nil
}

// toNumber accepts JSON numbers only.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// toFloat is toNumber plus numeric strings ("8", "8,5"); only category scores use it.
func toFloat(v any) (float64, bool) {
	if f, ok := toNumber(v); ok {
		return f, true
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// getNumber: JSON number from the first alias that holds one. A string rating
// ("9") does not count, so the category mean takes over.
func getNumber(m map[string]any, key string) *float64 {
	for _, p := range reviewAliases[key] {
		if f, ok := toNumber(lookupAny(m, p)); ok {
			return &f
		}
	}
	return nil
}

// firstInt64Flexible: int64 from the first alias that holds an integral value.
func firstInt64Flexible(m map[string]any, key string) *int64 {
	for _, p := range reviewAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
				x := int64(v)
				return &x
			}
		case int:
			x := int64(v)
			return &x
		case int64:
			x := v
			return &x
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return &n
			}
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func orDefault(p *string, def string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	return *p
}

/********** raw extraction **********/

// MapRawReview extracts every known field from an untyped upstream record.
// Fields that are missing or of the wrong type stay nil.
func MapRawReview(r map[string]any) domain.RawReview {
	var raw domain.RawReview

	raw.ID = firstInt64Flexible(r, "id")
	if raw.ID == nil {
		raw.SourceKey = firstNonEmptyAlias(r, "id")
	}
	raw.Rating = getNumber(r, "rating")
	raw.Categories = mapCategories(r)
	raw.Text = firstNonEmptyAlias(r, "text")
	raw.SubmittedAt = firstNonEmptyAlias(r, "submitted_at")
	raw.GuestName = firstNonEmptyAlias(r, "guest_name")
	raw.ListingName = firstNonEmptyAlias(r, "listing_name")
	raw.Channel = firstNonEmptyAlias(r, "channel")
	raw.Status = firstNonEmptyAlias(r, "status")
	raw.Type = firstNonEmptyAlias(r, "type")
	raw.ListingID = firstInt64Flexible(r, "listing_id")
	raw.ReservationID = firstInt64Flexible(r, "reservation_id")
	raw.GuestID = firstInt64Flexible(r, "guest_id")
	return raw
}

// mapCategories accepts a list of {category, rating} objects or a flat {name: score} object.
func mapCategories(r map[string]any) []domain.RawCategory {
	for _, p := range reviewAliases["categories"] {
		switch v := lookupAny(r, p).(type) {
		case []any:
			out := make([]domain.RawCategory, 0, len(v))
			for _, it := range v {
				obj, ok := it.(map[string]any)
				if !ok {
					out = append(out, domain.RawCategory{})
					continue
				}
				var c domain.RawCategory
				for _, k := range categoryNameAliases {
					if s, ok := obj[k].(string); ok {
						c.Name = &s
						break
					}
				}
				for _, k := range categoryScoreAliases {
					if f, ok := toFloat(obj[k]); ok {
						c.Score = &f
						break
					}
				}
				out = append(out, c)
			}
			return out
		case map[string]any:
			out := make([]domain.RawCategory, 0, len(v))
			for name, score := range v {
				n := name
				c := domain.RawCategory{Name: &n}
				if f, ok := toFloat(score); ok {
					c.Score = &f
				}
				out = append(out, c)
			}
			return out
		}
	}
	return nil
}

/********** normalization **********/

// CategoryKey lower-cases a category name and joins its words with underscores.
func CategoryKey(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}

// NormalizeReview builds the canonical review. It is pure apart from now, which is
// only used when the submission date is missing or unparseable.
func NormalizeReview(raw domain.RawReview, now time.Time) domain.Review {
	cats := make(map[string]float64, len(raw.Categories))
	for _, c := range raw.Categories {
		if c.Name == nil || c.Score == nil {
			continue
		}
		key := CategoryKey(*c.Name)
		if key == "" {
			continue
		}
		cats[key] = *c.Score
	}

	rv := domain.Review{
		ID:            stableID(raw),
		Listing:       listingName(raw),
		Type:          orDefault(raw.Type, "unknown"),
		Channel:       orDefault(raw.Channel, "hostaway"),
		Status:        orDefault(raw.Status, "unknown"),
		Rating:        ResolveRating(raw.Rating, cats),
		Categories:    cats,
		Text:          raw.Text,
		SubmittedAt:   NormalizeDate(raw.SubmittedAt, now),
		GuestName:     raw.GuestName,
		ListingID:     raw.ListingID,
		ReservationID: raw.ReservationID,
		GuestID:       raw.GuestID,
	}
	return rv
}

// NormalizeAll maps and normalizes a batch with one shared clock reading.
func NormalizeAll(in []map[string]any, now time.Time) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		if r == nil {
			continue
		}
		out = append(out, NormalizeReview(MapRawReview(r), now))
	}
	return out
}

func listingName(raw domain.RawReview) string {
	if raw.ListingName != nil && strings.TrimSpace(*raw.ListingName) != "" {
		return *raw.ListingName
	}
	if raw.ListingID != nil {
		return fmt.Sprintf("Property %d", *raw.ListingID)
	}
	return domain.UnknownListing
}

// stableID prefers the upstream numeric id; otherwise it derives a positive id from
// the record's identifying fields so the same record keeps its id across fetches.
func stableID(raw domain.RawReview) int64 {
	if raw.ID != nil {
		return *raw.ID
	}
	sig := deref(raw.SourceKey)
	if sig == "" {
		r := ""
		if raw.Rating != nil {
			r = fmt.Sprintf("%.3f", *raw.Rating)
		}
		sig = strings.Join([]string{
			deref(raw.ListingName), deref(raw.GuestName), deref(raw.Text), deref(raw.SubmittedAt), r,
		}, "|")
	}
	sum := sha1.Sum([]byte(sig))
	return int64(binary.BigEndian.Uint64(sum[:8]) & math.MaxInt64)
}
