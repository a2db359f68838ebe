package nl2sql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/queryloom/queryloom/internal/schema"
)

// Facts describes what a statement does without exposing its text.
// API responses carry the summary instead of the SQL itself.
type Facts struct {
	Tables       []string `json:"tables"`
	HasJoin      bool     `json:"has_join"`
	Aggregations []string `json:"aggregations"`
	Filters      []string `json:"filters"`
	GroupBy      []string `json:"group_by"`
	OrderBy      []string `json:"order_by"`
	Limit        int      `json:"limit,omitempty"`
}

var (
	whereClausePattern = regexp.MustCompile(`(?s)WHERE\s+(.+?)(GROUP BY|ORDER BY|LIMIT|$)`)
	groupByPattern     = regexp.MustCompile(`(?s)GROUP BY\s+(.+?)(ORDER BY|LIMIT|$)`)
	orderByPattern     = regexp.MustCompile(`(?s)ORDER BY\s+(.+?)(LIMIT|$)`)
	limitValuePattern  = regexp.MustCompile(`LIMIT\s+(\d+)`)
	conditionSplit     = regexp.MustCompile(`\s+(AND|OR)\s+`)
)

var aggregateMarkers = []string{"COUNT(", "AVG(", "SUM(", "MAX(", "MIN("}

// Explain extracts structural facts from a statement by shallow pattern
// matching. It is intentionally not a SQL parser: the statements it sees
// come out of the synthesis pipeline in canonical clause order.
func Explain(sql string, sch schema.Schema) Facts {
	facts := Facts{}
	upper := strings.ToUpper(sql)
	condensed := strings.Join(strings.Fields(upper), " ")

	for _, table := range sch.Tables {
		if strings.Contains(upper, strings.ToUpper(table.Name)) {
			facts.Tables = append(facts.Tables, table.Name)
		}
	}

	facts.HasJoin = strings.Contains(condensed, " JOIN ")

	for _, marker := range aggregateMarkers {
		if strings.Contains(upper, marker) {
			facts.Aggregations = append(facts.Aggregations, strings.TrimSuffix(marker, "("))
		}
	}

	if match := whereClausePattern.FindStringSubmatch(upper); match != nil {
		condition := strings.TrimSpace(match[1])
		for _, part := range conditionSplit.Split(condition, -1) {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				facts.Filters = append(facts.Filters, trimmed)
			}
		}
	}
	if match := groupByPattern.FindStringSubmatch(upper); match != nil {
		facts.GroupBy = splitColumns(match[1])
	}
	if match := orderByPattern.FindStringSubmatch(upper); match != nil {
		facts.OrderBy = splitColumns(match[1])
	}
	if match := limitValuePattern.FindStringSubmatch(upper); match != nil {
		if limit, err := strconv.Atoi(match[1]); err == nil {
			facts.Limit = limit
		}
	}
	return facts
}

// Summary renders the facts as a single human-readable sentence chain.
func (f Facts) Summary() string {
	var parts []string
	if len(f.Tables) > 0 {
		parts = append(parts, "Tables: "+strings.Join(f.Tables, ", "))
	}
	if len(f.Aggregations) > 0 {
		parts = append(parts, "Operations: "+strings.Join(f.Aggregations, ", "))
	}
	if f.HasJoin {
		parts = append(parts, "Uses table joins")
	}
	if len(f.Filters) > 0 {
		parts = append(parts, fmt.Sprintf("Filtering: %d condition(s)", len(f.Filters)))
	}
	if len(f.GroupBy) > 0 {
		parts = append(parts, "Grouped by: "+strings.Join(f.GroupBy, ", "))
	}
	if len(f.OrderBy) > 0 {
		parts = append(parts, "Sorted by: "+strings.Join(f.OrderBy, ", "))
	}
	if f.Limit > 0 {
		parts = append(parts, fmt.Sprintf("Limited to %d results", f.Limit))
	}
	if len(parts) == 0 {
		return "Query executed successfully"
	}
	return strings.Join(parts, ". ")
}

func splitColumns(clause string) []string {
	var columns []string
	for _, column := range strings.Split(clause, ",") {
		if trimmed := strings.TrimSpace(column); trimmed != "" {
			columns = append(columns, trimmed)
		}
	}
	return columns
}
