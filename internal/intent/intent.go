// Package intent classifies natural-language questions into SQL shapes.
// Every classifier is a pure function over lower-cased question text
// using phrase membership tests; trigger phrases live in declarative
// tables so each classifier is testable without touching SQL synthesis.
package intent

import (
	"regexp"
	"strings"
)

type AggregateFunc string

const (
	AggregateAvg   AggregateFunc = "AVG"
	AggregateCount AggregateFunc = "COUNT"
	AggregateSum   AggregateFunc = "SUM"
	AggregateMax   AggregateFunc = "MAX"
	AggregateMin   AggregateFunc = "MIN"
)

type ComparisonOp string

const (
	CompareGreater ComparisonOp = ">"
	CompareLess    ComparisonOp = "<"
	CompareEqual   ComparisonOp = "="
)

type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

type SubqueryKind string

const (
	SubqueryCorrelated SubqueryKind = "correlated"
	SubqueryIn         SubqueryKind = "in"
	SubqueryNotIn      SubqueryKind = "not_in"
	SubqueryScalar     SubqueryKind = "scalar"
)

type WindowFunc string

const (
	WindowRowNumber WindowFunc = "ROW_NUMBER"
	WindowRank      WindowFunc = "RANK"
	WindowDenseRank WindowFunc = "DENSE_RANK"
	WindowLead      WindowFunc = "LEAD"
	WindowLag       WindowFunc = "LAG"
	WindowSumOver   WindowFunc = "SUM_OVER"
)

type trigger[T ~string] struct {
	kind    T
	phrases []string
}

var aggregateTriggers = []trigger[AggregateFunc]{
	{AggregateAvg, []string{"average", "avg"}},
	{AggregateCount, []string{"count", "how many", "number of", "total number"}},
	{AggregateSum, []string{"total", "revenue", "sum", "combined"}},
}

var joinTriggers = []trigger[JoinType]{
	{JoinLeft, []string{"all", "including", "even if", "with or without", "left join"}},
	{JoinRight, []string{"right join", "from right"}},
	{JoinFull, []string{"all from both", "combine all", "full outer", "everything from"}},
	{JoinCross, []string{"cross join", "cartesian", "all combinations", "every combination"}},
}

var subqueryTriggers = []trigger[SubqueryKind]{
	{SubqueryCorrelated, []string{
		"more than the average", "higher than average", "above average",
		"more than their", "higher than their", "above their",
		"earn more than", "score higher than",
	}},
	{SubqueryIn, []string{"who have", "that have", "which have", "in the list of", "among those who"}},
	{SubqueryNotIn, []string{"who do not have", "that do not have", "without", "not in the list", "excluding those"}},
	{SubqueryScalar, []string{"the average", "the total", "the maximum", "the minimum", "the count of", "the sum of"}},
}

var windowTriggers = []trigger[WindowFunc]{
	{WindowRowNumber, []string{"row number", "first in each", "top in each", "one per", "numbered within", "ranked within"}},
	{WindowDenseRank, []string{"dense rank", "consecutive rank", "no gaps"}},
	{WindowRank, []string{"rank", "ranking", "ranked", "position", "top ranked", "highest ranked"}},
	{WindowLead, []string{"next", "following"}},
	{WindowLag, []string{"previous", "before", "after", "lead", "lag", "compare with next", "compare with previous"}},
	{WindowSumOver, []string{"running total", "cumulative", "running sum", "over time", "sum over", "total so far", "accumulated"}},
}

var (
	greaterPhrases = []string{"greater than", "more than", "above", ">", "greater"}
	lessPhrases    = []string{"less than", "below", "under", "<", "lesser"}
	equalPhrases   = []string{"equals", "equal to", "equal", "="}
)

// DetectAggregate reports the aggregate function a question asks for.
// Aggregates are checked before filters because aggregate phrasing often
// contains filter-like words that must not win.
func DetectAggregate(question string) (AggregateFunc, bool) {
	q := strings.ToLower(question)
	for _, t := range aggregateTriggers {
		if containsAny(q, t.phrases) {
			return t.kind, true
		}
	}
	return "", false
}

// DetectComparison reports an explicit comparison filter together with
// the numeric literal it compares against.
func DetectComparison(question string) (ComparisonOp, string, bool) {
	q := strings.ToLower(question)
	if !containsAny(q, greaterPhrases) && !containsAny(q, lessPhrases) && !containsAny(q, equalPhrases) {
		return "", "", false
	}
	value, ok := ExtractNumber(q)
	if !ok {
		return "", "", false
	}
	switch {
	case containsAny(q, greaterPhrases):
		return CompareGreater, value, true
	case containsAny(q, lessPhrases):
		return CompareLess, value, true
	default:
		return CompareEqual, value, true
	}
}

// DetectJoinType never fails; INNER is the default join shape.
func DetectJoinType(question string) JoinType {
	q := strings.ToLower(question)
	for _, t := range joinTriggers {
		if containsAny(q, t.phrases) {
			return t.kind
		}
	}
	return JoinInner
}

func DetectSubquery(question string) (SubqueryKind, bool) {
	q := strings.ToLower(question)
	for _, t := range subqueryTriggers {
		if containsAny(q, t.phrases) {
			return t.kind, true
		}
	}
	return "", false
}

func DetectWindow(question string) (WindowFunc, bool) {
	q := strings.ToLower(question)
	for _, t := range windowTriggers {
		if !containsAny(q, t.phrases) {
			continue
		}
		// "next" vs "previous" decide LEAD against LAG regardless of
		// which trigger row fired first.
		if t.kind == WindowLead || t.kind == WindowLag {
			if strings.Contains(q, "next") || strings.Contains(q, "following") {
				return WindowLead, true
			}
			return WindowLag, true
		}
		return t.kind, true
	}
	return "", false
}

var (
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	limitPattern  = regexp.MustCompile(`(?:top|first|limit)\s+(\d+)`)
	offsetPattern = regexp.MustCompile(`(\d+)\s*(?:next|previous|before|after)`)
)

// ExtractNumber scans for the first decimal literal in the question.
func ExtractNumber(question string) (string, bool) {
	match := numberPattern.FindString(strings.ToLower(question))
	return match, match != ""
}

// ExtractNumbers returns every decimal literal, in order of appearance.
func ExtractNumbers(question string) []string {
	return numberPattern.FindAllString(strings.ToLower(question), -1)
}

// ExtractLimit parses "top N" / "first N" / "limit N" phrasing.
func ExtractLimit(question string) (string, bool) {
	match := limitPattern.FindStringSubmatch(strings.ToLower(question))
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ExtractOffset parses "N next" style phrasing for LEAD/LAG offsets.
func ExtractOffset(question string) (string, bool) {
	match := offsetPattern.FindStringSubmatch(strings.ToLower(question))
	if match == nil {
		return "", false
	}
	return match[1], true
}

// HasComparison reports whether any comparison phrase is present,
// independent of a numeric literal.
func HasComparison(question string) bool {
	q := strings.ToLower(question)
	return containsAny(q, greaterPhrases) || containsAny(q, lessPhrases) || containsAny(q, equalPhrases)
}

func containsAny(haystack string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}
