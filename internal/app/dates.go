package app

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// absolute layouts tried before the token heuristic; zone-less layouts are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
}

var (
	dateSep   = regexp.MustCompile(`[-/\s]+`)
	digitsRe  = regexp.MustCompile(`^\d{1,4}$`)
	clockTime = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
)

// NormalizeDate turns an upstream date string into a UTC instant.
// nil, blank or unparseable input yields now; it never fails.
func NormalizeDate(s *string, now time.Time) time.Time {
	if s == nil {
		return now.UTC()
	}
	in := strings.TrimSpace(*s)
	if in == "" {
		return now.UTC()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, in); err == nil {
			return t.UTC()
		}
	}
	if t, ok := parseDateTokens(in); ok {
		return t
	}
	return now.UTC()
}

// parseDateTokens handles "<y|d> sep <m> sep <d|y> [HH:MM[:SS]]".
// The 4-digit token is the year and the middle token is the month: 2024/01/15 and
// 15-01-2024 both resolve, and 05/04/2024 reads as 5 April. When that reading is not a
// real date the day and month are swapped, so 01/15/2024 still lands on 15 January.
func parseDateTokens(in string) (time.Time, bool) {
	parts := dateSep.Split(in, -1)
	if len(parts) < 3 || len(parts) > 4 {
		return time.Time{}, false
	}
	for _, p := range parts[:3] {
		if !digitsRe.MatchString(p) {
			return time.Time{}, false
		}
	}

	yearIdx := -1
	for i, p := range parts[:3] {
		if len(p) == 4 {
			yearIdx = i
			break
		}
	}
	if yearIdx == -1 {
		return time.Time{}, false
	}
	rest := make([]int, 0, 2)
	for i, p := range parts[:3] {
		if i == yearIdx {
			continue
		}
		n, _ := strconv.Atoi(p)
		rest = append(rest, n)
	}
	year, _ := strconv.Atoi(parts[yearIdx])

	var hh, mm, ss int
	if len(parts) == 4 {
		m := clockTime.FindStringSubmatch(parts[3])
		if m == nil {
			return time.Time{}, false
		}
		hh, _ = strconv.Atoi(m[1])
		mm, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			ss, _ = strconv.Atoi(m[3])
		}
		if hh > 23 || mm > 59 || ss > 59 {
			return time.Time{}, false
		}
	}

	month, day := rest[0], rest[1]
	if yearIdx != 0 {
		day, month = rest[0], rest[1]
	}
	if !validDate(year, month, day) {
		month, day = day, month
		if !validDate(year, month, day) {
			return time.Time{}, false
		}
	}
	return time.Date(year, time.Month(month), day, hh, mm, ss, 0, time.UTC), true
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	// day 0 of the next month is the last day of this one
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return day <= last
}
