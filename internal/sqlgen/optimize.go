package sqlgen

import (
	"regexp"
	"strconv"
	"strings"
)

const defaultRowLimit = 1000

var whereTautology = regexp.MustCompile(`(?i)\bWHERE\s+1\s*=\s*1(\s+AND\b)?`)

// Optimize applies final statement hygiene: placeholder tautologies are
// stripped and unbounded row scans get a protective LIMIT. Aggregates,
// joins and already-limited statements pass through untouched.
func Optimize(sql string) string {
	out := strings.TrimSpace(sql)
	out = whereTautology.ReplaceAllStringFunc(out, func(match string) string {
		if strings.HasSuffix(strings.ToUpper(match), "AND") {
			return "WHERE"
		}
		return ""
	})
	out = strings.Join(strings.Fields(out), " ")
	out = strings.TrimSuffix(out, " WHERE")

	if needsRowLimit(out) {
		out += " LIMIT " + strconv.Itoa(defaultRowLimit)
	}
	return out
}

func needsRowLimit(sql string) bool {
	upper := strings.ToUpper(sql)
	if !strings.HasPrefix(upper, "SELECT") {
		return false
	}
	for _, marker := range []string{" LIMIT ", " JOIN ", "COUNT(", "SUM(", "AVG(", "MIN(", "MAX(", " GROUP BY ", " OVER "} {
		if strings.Contains(upper, marker) {
			return false
		}
	}
	return true
}
