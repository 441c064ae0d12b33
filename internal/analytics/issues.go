package analytics

import (
	"regexp"
	"sort"
	"strings"

	"review_engine/internal/domain"
)

const (
	issueMaxRating = 7.0
	issueMinCount  = 2
	issueTopN      = 8
	issueMinLen    = 4
)

var (
	nonWord = regexp.MustCompile(`[^\w\s]`)
	numeric = regexp.MustCompile(`^\d+$`)
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by
		is are was were be been being have has had do does did
		will would should could can may might must
		i you he she it we they my your his her its our their
		this that these those am`) {
		stopwords[w] = struct{}{}
	}
}

// Tokenize lower-cases text, turns non-word characters into spaces and keeps tokens
// longer than three characters that are neither numbers nor stopwords.
func Tokenize(text string) []string {
	clean := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	var out []string
	for _, w := range strings.Fields(clean) {
		if len(w) < issueMinLen || numeric.MatchString(w) {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// RecurringIssues counts terms in reviews rated 7 or below (unrated counts as 0) and
// returns up to eight terms seen at least twice, most frequent first. Equal counts
// keep the order in which the terms were first seen.
func RecurringIssues(reviews []domain.Review) []domain.IssueTerm {
	if len(reviews) < MinTrendReviews {
		return []domain.IssueTerm{}
	}
	counts := make(map[string]int)
	var order []string
	for _, r := range reviews {
		if r.RatingOrZero() > issueMaxRating || r.Text == nil {
			continue
		}
		for _, w := range Tokenize(*r.Text) {
			if _, seen := counts[w]; !seen {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	out := make([]domain.IssueTerm, 0, len(order))
	for _, w := range order {
		if c := counts[w]; c >= issueMinCount {
			out = append(out, domain.IssueTerm{Word: w, Count: c})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > issueTopN {
		out = out[:issueTopN]
	}
	return out
}
