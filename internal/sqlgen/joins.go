package sqlgen

import (
	"fmt"
	"strings"

	"github.com/queryloom/queryloom/internal/intent"
	"github.com/queryloom/queryloom/internal/schema"
)

// Columns worth projecting from a joined table when the question does
// not name any. Wide SELECT * across a join produces unreadable rows,
// so each table contributes at most a few identifying columns.
var preferredJoinColumns = []string{"id", "name", "title", "email", "category", "status"}

const maxJoinColumnsPerTable = 3

// JoinQuery synthesizes a multi-table statement over the relationship
// graph. The mentioned tables are visited in question order; the path
// may route through intermediate tables neither question nor caller
// named. Returns false when no connecting path exists.
func JoinQuery(question string, enhanced schema.EnhancedSchema, graph *schema.Graph, mentioned []string) (string, bool) {
	if len(mentioned) < 2 || graph == nil {
		return "", false
	}
	path := graph.FindPath(mentioned[0], mentioned[1:])
	if path == nil {
		return "", false
	}

	q := strings.ToLower(question)
	joinType := intent.DetectJoinType(question)

	aliases := make(map[string]string, len(path))
	for i, table := range path {
		aliases[strings.ToLower(table)] = fmt.Sprintf("t%d", i)
	}

	stmt := SelectStatement{From: Quote(path[0]) + " t0"}
	for i := 1; i < len(path); i++ {
		edge, ok := graph.EdgeBetween(path[i-1], path[i])
		if !ok {
			return "", false
		}
		alias := aliases[strings.ToLower(path[i])]
		prev := aliases[strings.ToLower(path[i-1])]
		if joinType == intent.JoinCross {
			stmt.Joins = append(stmt.Joins, fmt.Sprintf("CROSS JOIN %s %s", Quote(path[i]), alias))
			continue
		}
		stmt.Joins = append(stmt.Joins, fmt.Sprintf(
			"%s JOIN %s %s ON %s.%s = %s.%s",
			joinType, Quote(path[i]), alias,
			prev, Quote(edge.FromColumn), alias, Quote(edge.ToColumn),
		))
	}

	if countsPerGroup(q) {
		if column, alias, ok := joinGroupColumn(q, enhanced, path, aliases); ok {
			expr := alias + "." + Quote(column)
			stmt.Columns = []string{expr, "COUNT(*) AS " + Quote("count")}
			stmt.GroupBy = []string{expr}
			if containsAny(q, []string{"order", "sort", "most", "highest", "lowest"}) {
				stmt.OrderBy = []string{Quote("count") + " " + orderDirection(q)}
			}
			stmt.Limit = detectLimit(q)
			return stmt.Render(), true
		}
	}

	stmt.Columns = joinSelectColumns(q, enhanced, path, aliases)

	if condition, ok := joinValueCondition(question, enhanced, path, aliases); ok {
		stmt.Where = append(stmt.Where, condition)
	}
	if op, value, ok := intent.DetectComparison(question); ok && ValidNumber(value) {
		if column, alias, found := joinNumericColumn(q, enhanced, path, aliases); found {
			stmt.Where = append(stmt.Where, fmt.Sprintf("%s.%s %s %s", alias, Quote(column), op, value))
		}
	}

	if orderBy, ok := joinOrderBy(q, enhanced, path, aliases); ok {
		stmt.OrderBy = append(stmt.OrderBy, orderBy)
	}
	stmt.Limit = detectLimit(q)

	return stmt.Render(), true
}

func countsPerGroup(q string) bool {
	return containsAny(q, []string{"count", "how many", "number of"}) &&
		containsAny(q, []string{" by ", " per ", " each ", "group"})
}

func joinSelectColumns(q string, enhanced schema.EnhancedSchema, path []string, aliases map[string]string) []string {
	var columns []string
	for _, table := range path {
		detail, ok := enhanced.Table(table)
		if !ok {
			continue
		}
		alias := aliases[strings.ToLower(table)]
		taken := 0
		for _, preferred := range preferredJoinColumns {
			if taken >= maxJoinColumnsPerTable {
				break
			}
			if column, ok := detail.Column(preferred); ok {
				columns = append(columns, alias+"."+Quote(column.Name))
				taken++
			}
		}
		for _, column := range detail.Columns {
			if taken >= maxJoinColumnsPerTable {
				break
			}
			if column.IsNumeric() && strings.Contains(q, strings.ToLower(column.Name)) && !isPreferred(column.Name) {
				columns = append(columns, alias+"."+Quote(column.Name))
				taken++
			}
		}
	}
	if len(columns) == 0 {
		return []string{"t0.*"}
	}
	return columns
}

func isPreferred(name string) bool {
	for _, preferred := range preferredJoinColumns {
		if strings.EqualFold(name, preferred) {
			return true
		}
	}
	return false
}

func joinGroupColumn(q string, enhanced schema.EnhancedSchema, path []string, aliases map[string]string) (string, string, bool) {
	for _, table := range path {
		detail, ok := enhanced.Table(table)
		if !ok {
			continue
		}
		alias := aliases[strings.ToLower(table)]
		for _, column := range detail.Columns {
			lower := strings.ToLower(column.Name)
			if lower != "id" && !strings.HasSuffix(lower, "_id") && strings.Contains(q, lower) {
				return column.Name, alias, true
			}
		}
	}
	// Fall back to the first name-like column of the first table.
	for _, table := range path {
		detail, ok := enhanced.Table(table)
		if !ok {
			continue
		}
		alias := aliases[strings.ToLower(table)]
		for _, preferred := range []string{"name", "title", "category", "status"} {
			if column, ok := detail.Column(preferred); ok {
				return column.Name, alias, true
			}
		}
	}
	return "", "", false
}

func joinValueCondition(question string, enhanced schema.EnhancedSchema, path []string, aliases map[string]string) (string, bool) {
	for _, table := range path {
		detail, ok := enhanced.Table(table)
		if !ok {
			continue
		}
		match, ok := intent.MatchValue(question, tableSamples(detail))
		if !ok {
			continue
		}
		alias := aliases[strings.ToLower(table)]
		if match.Exact {
			return fmt.Sprintf("%s.%s = %s", alias, Quote(match.Column), QuoteString(match.Value)), true
		}
		return fmt.Sprintf("%s.%s LIKE %s", alias, Quote(match.Column), LikePattern(match.Value)), true
	}
	return "", false
}

func joinNumericColumn(q string, enhanced schema.EnhancedSchema, path []string, aliases map[string]string) (string, string, bool) {
	for _, table := range path {
		detail, ok := enhanced.Table(table)
		if !ok {
			continue
		}
		alias := aliases[strings.ToLower(table)]
		for _, column := range detail.Columns {
			lower := strings.ToLower(column.Name)
			if strings.Contains(q, lower) && (column.IsNumeric() || containsAny(lower, numericColumnKeywords)) {
				return column.Name, alias, true
			}
		}
	}
	for _, table := range path {
		detail, ok := enhanced.Table(table)
		if !ok {
			continue
		}
		alias := aliases[strings.ToLower(table)]
		for _, column := range detail.Columns {
			if column.IsNumeric() && !strings.EqualFold(column.Name, "id") {
				return column.Name, alias, true
			}
		}
	}
	return "", "", false
}

func joinOrderBy(q string, enhanced schema.EnhancedSchema, path []string, aliases map[string]string) (string, bool) {
	if !containsAny(q, []string{"order by", "sort by", "sorted", "highest", "lowest", "top"}) {
		return "", false
	}
	for _, table := range path {
		detail, ok := enhanced.Table(table)
		if !ok {
			continue
		}
		alias := aliases[strings.ToLower(table)]
		for _, column := range detail.Columns {
			if strings.Contains(q, strings.ToLower(column.Name)) && !strings.EqualFold(column.Name, "id") {
				return alias + "." + Quote(column.Name) + " " + orderDirection(q), true
			}
		}
	}
	return "", false
}
