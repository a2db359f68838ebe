package schema

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// InferHeuristicKeys proposes foreign keys from naming convention: a
// column ending in "_id" is assumed to reference the "id" column of a
// table named after the stem, the stem pluralized, or whose plural form
// equals the stem. Explicit edges suppress heuristics for the same
// (from_table, from_column) pair. False positives on coincidental
// naming are an accepted approximation; callers can deprioritize edges
// with Heuristic set.
func InferHeuristicKeys(sch Schema, explicit []ForeignKey) []ForeignKey {
	covered := make(map[string]bool, len(explicit))
	for _, key := range explicit {
		covered[edgeKey(key.FromTable, key.FromColumn)] = true
	}

	var inferred []ForeignKey
	for _, table := range sch.Tables {
		for _, column := range table.Columns {
			stem, ok := idStem(column)
			if !ok {
				continue
			}
			if covered[edgeKey(table.Name, column)] {
				continue
			}
			target, ok := matchTable(sch, table.Name, stem)
			if !ok {
				continue
			}
			inferred = append(inferred, ForeignKey{
				FromTable:  table.Name,
				FromColumn: column,
				ToTable:    target,
				ToColumn:   "id",
				Heuristic:  true,
			})
			covered[edgeKey(table.Name, column)] = true
		}
	}
	return inferred
}

func idStem(column string) (string, bool) {
	lower := strings.ToLower(column)
	if !strings.HasSuffix(lower, "_id") || len(lower) <= 3 {
		return "", false
	}
	return strings.TrimSuffix(lower, "_id"), true
}

func matchTable(sch Schema, fromTable, stem string) (string, bool) {
	for _, candidate := range sch.Tables {
		if strings.EqualFold(candidate.Name, fromTable) {
			continue
		}
		lower := strings.ToLower(candidate.Name)
		switch {
		case lower == stem,
			lower == stem+"s",
			lower+"s" == stem,
			lower == inflect.Pluralize(stem),
			inflect.Pluralize(lower) == stem:
			return candidate.Name, true
		}
	}
	return "", false
}

func edgeKey(table, column string) string {
	return strings.ToLower(table) + "\x00" + strings.ToLower(column)
}
