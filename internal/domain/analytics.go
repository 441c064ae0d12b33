package domain

type Stats struct {
	TotalReviews     int                `json:"totalReviews"`
	AverageRating    float64            `json:"averageRating"`
	TotalListings    int                `json:"totalListings"`
	CategoryAverages map[string]float64 `json:"categoryAverages"`
}

type ListingAggregate struct {
	Listing       string  `json:"name"`
	ReviewCount   int     `json:"reviewCount"`
	AverageRating float64 `json:"averageRating"`
}

type MonthBucket struct {
	Month         string  `json:"month"` // YYYY-MM
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
}

type CategoryTrend struct {
	Category string  `json:"category"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}

type IssueTerm struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type RatingDistribution struct {
	Excellent int `json:"excellent"` // [9,10]
	Good      int `json:"good"`      // [7,9)
	Average   int `json:"average"`   // [5,7)
	Poor      int `json:"poor"`      // [0,5)
}

func (d RatingDistribution) Total() int { return d.Excellent + d.Good + d.Average + d.Poor }

type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendFlat      TrendDirection = "flat"
)

type Insights struct {
	Strongest         *CategoryTrend `json:"strongest,omitempty"`
	Weakest           *CategoryTrend `json:"weakest,omitempty"`
	Direction         TrendDirection `json:"direction"`
	LatestMonthCount  int            `json:"latestMonthCount"`
	PositiveReviews   int            `json:"positiveReviews"`
	CategoriesTracked int            `json:"categoriesTracked"`
	RecurringIssues   int            `json:"recurringIssues"`
}

type TrendReport struct {
	TotalReviews   int                `json:"totalReviews"`
	EnoughData     bool               `json:"enoughData"`
	Monthly        []MonthBucket      `json:"monthly"`
	TrendPercent   float64            `json:"trendPercent"`
	Distribution   RatingDistribution `json:"distribution"`
	Issues         []IssueTerm        `json:"issues"`
	CategoryTrends []CategoryTrend    `json:"categoryTrends"`
	Insights       Insights           `json:"insights"`
}
