package intent

import (
	"regexp"
	"strconv"
	"strings"
)

type DateRangeKind string

const (
	DateToday     DateRangeKind = "today"
	DateYesterday DateRangeKind = "yesterday"
	DateLastNDays DateRangeKind = "last_n_days"
	DateNextNDays DateRangeKind = "next_n_days"
	DateLastWeek  DateRangeKind = "last_week"
	DateThisWeek  DateRangeKind = "this_week"
	DateLastMonth DateRangeKind = "last_month"
	DateThisMonth DateRangeKind = "this_month"
	DateLastYear  DateRangeKind = "last_year"
	DateThisYear  DateRangeKind = "this_year"
	DateQuarter   DateRangeKind = "quarter"
)

// DatePhrase is a parsed relative date expression. N carries the day
// count for last/next N days and the quarter number for quarters.
type DatePhrase struct {
	Kind DateRangeKind
	N    int
}

var (
	lastDaysPattern = regexp.MustCompile(`last (\d+) days?`)
	nextDaysPattern = regexp.MustCompile(`next (\d+) days?`)
	quarterPattern  = regexp.MustCompile(`\bq([1-4])\b`)
)

// DetectDatePhrase parses relative date phrasing. More specific phrases
// are checked first so "last 30 days" does not collapse into "last
// week"-style handling.
func DetectDatePhrase(question string) (DatePhrase, bool) {
	q := strings.ToLower(question)

	if match := lastDaysPattern.FindStringSubmatch(q); match != nil {
		n, _ := strconv.Atoi(match[1])
		return DatePhrase{Kind: DateLastNDays, N: n}, true
	}
	if match := nextDaysPattern.FindStringSubmatch(q); match != nil {
		n, _ := strconv.Atoi(match[1])
		return DatePhrase{Kind: DateNextNDays, N: n}, true
	}

	switch {
	case strings.Contains(q, "last week"):
		return DatePhrase{Kind: DateLastWeek}, true
	case strings.Contains(q, "this week"):
		return DatePhrase{Kind: DateThisWeek}, true
	case strings.Contains(q, "last month"):
		return DatePhrase{Kind: DateLastMonth}, true
	case strings.Contains(q, "this month"), strings.Contains(q, "current month"):
		return DatePhrase{Kind: DateThisMonth}, true
	case strings.Contains(q, "last year"):
		return DatePhrase{Kind: DateLastYear}, true
	case strings.Contains(q, "this year"), strings.Contains(q, "current year"):
		return DatePhrase{Kind: DateThisYear}, true
	case strings.Contains(q, "yesterday"):
		return DatePhrase{Kind: DateYesterday}, true
	case strings.Contains(q, "today"):
		return DatePhrase{Kind: DateToday}, true
	}

	if match := quarterPattern.FindStringSubmatch(q); match != nil {
		n, _ := strconv.Atoi(match[1])
		return DatePhrase{Kind: DateQuarter, N: n}, true
	}

	return DatePhrase{}, false
}

// IsDateColumn reports whether a column name looks like it holds dates.
func IsDateColumn(name string) bool {
	lower := strings.ToLower(name)
	switch lower {
	case "date", "created_at", "updated_at", "timestamp", "time", "order_date", "sale_date":
		return true
	}
	return strings.HasSuffix(lower, "_date")
}
