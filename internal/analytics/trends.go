package analytics

import (
	"sort"

	"review_engine/internal/domain"
)

const (
	// MinTrendReviews is the smallest batch monthly and text trends are computed for.
	MinTrendReviews = 3

	// trend percentages beyond ±TrendThreshold count as a direction change
	TrendThreshold = 5.0

	trendWindow = 3
)

// MonthlyBuckets groups reviews by UTC calendar month, ascending by month key.
// Unrated reviews count as 0 in the month average.
func MonthlyBuckets(reviews []domain.Review) []domain.MonthBucket {
	if len(reviews) < MinTrendReviews {
		return []domain.MonthBucket{}
	}
	type acc struct {
		count int
		total float64
	}
	months := make(map[string]*acc)
	for _, r := range reviews {
		key := r.SubmittedAt.UTC().Format("2006-01")
		a, ok := months[key]
		if !ok {
			a = &acc{}
			months[key] = a
		}
		a.count++
		a.total += r.RatingOrZero()
	}
	out := make([]domain.MonthBucket, 0, len(months))
	for k, a := range months {
		out = append(out, domain.MonthBucket{Month: k, Count: a.count, AverageRating: a.total / float64(a.count)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// OverallTrendPercent compares the mean of the last (up to) three buckets with the mean
// of the first min(3, n-3) buckets. With no older window, or a zero baseline, it is 0.
func OverallTrendPercent(buckets []domain.MonthBucket) float64 {
	n := len(buckets)
	if n < 2 {
		return 0
	}
	recent := buckets[n-min(trendWindow, n):]
	olderN := min(trendWindow, n-trendWindow)
	if olderN <= 0 {
		return 0
	}
	older := buckets[:olderN]

	recentAvg := meanRating(recent)
	olderAvg := meanRating(older)
	if olderAvg == 0 {
		return 0
	}
	return (recentAvg - olderAvg) / olderAvg * 100
}

func meanRating(bs []domain.MonthBucket) float64 {
	var sum float64
	for _, b := range bs {
		sum += b.AverageRating
	}
	return sum / float64(len(bs))
}

// ClassifyTrend maps a trend percentage onto a direction.
func ClassifyTrend(pct float64) domain.TrendDirection {
	switch {
	case pct > TrendThreshold:
		return domain.TrendImproving
	case pct < -TrendThreshold:
		return domain.TrendDeclining
	default:
		return domain.TrendFlat
	}
}

// RatingDistribution counts every review into exactly one band.
func RatingDistribution(reviews []domain.Review) domain.RatingDistribution {
	var d domain.RatingDistribution
	for _, r := range reviews {
		switch v := r.RatingOrZero(); {
		case v >= 9:
			d.Excellent++
		case v >= 7:
			d.Good++
		case v >= 5:
			d.Average++
		default:
			d.Poor++
		}
	}
	return d
}

// CategoryTrends ranks categories by mean score, highest first. Ties keep first-seen order.
func CategoryTrends(reviews []domain.Review) []domain.CategoryTrend {
	acc := accumulateCategories(reviews)
	out := make([]domain.CategoryTrend, len(acc))
	for name, a := range acc {
		out[a.order] = domain.CategoryTrend{Category: name, Average: a.total / float64(a.count), Count: a.count}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Average > out[j].Average })
	return out
}

// BuildReport runs every trend computation over one batch.
func BuildReport(reviews []domain.Review) domain.TrendReport {
	monthly := MonthlyBuckets(reviews)
	rep := domain.TrendReport{
		TotalReviews:   len(reviews),
		EnoughData:     len(reviews) >= MinTrendReviews,
		Monthly:        monthly,
		TrendPercent:   OverallTrendPercent(monthly),
		Distribution:   RatingDistribution(reviews),
		Issues:         RecurringIssues(reviews),
		CategoryTrends: CategoryTrends(reviews),
	}
	rep.Insights = buildInsights(rep)
	return rep
}

func buildInsights(rep domain.TrendReport) domain.Insights {
	in := domain.Insights{
		Direction:         ClassifyTrend(rep.TrendPercent),
		PositiveReviews:   rep.Distribution.Excellent + rep.Distribution.Good,
		CategoriesTracked: len(rep.CategoryTrends),
		RecurringIssues:   len(rep.Issues),
	}
	if n := len(rep.CategoryTrends); n > 0 {
		best := rep.CategoryTrends[0]
		in.Strongest = &best
		if n > 1 {
			worst := rep.CategoryTrends[n-1]
			in.Weakest = &worst
		}
	}
	if n := len(rep.Monthly); n > 0 {
		in.LatestMonthCount = rep.Monthly[n-1].Count
	}
	return in
}
