package sqlgen

import (
	"fmt"
	"strings"

	"github.com/queryloom/queryloom/internal/intent"
	"github.com/queryloom/queryloom/internal/schema"
)

// Group-by candidates for correlated subqueries: "earn more than the
// average of their department" needs a column to correlate on.
var correlationColumns = []string{
	"department", "category", "group", "class", "type", "team", "region", "city", "status",
}

// SubqueryQuery synthesizes nested statements: correlated comparisons
// against a per-group aggregate, and membership tests between two
// related tables. Scalar phrasing falls through to the simpler
// templates or the fallback.
func SubqueryQuery(question string, enhanced schema.EnhancedSchema, graph *schema.Graph, tables []string) (string, bool) {
	kind, ok := intent.DetectSubquery(question)
	if !ok || len(tables) == 0 {
		return "", false
	}

	switch kind {
	case intent.SubqueryCorrelated:
		detail, found := enhanced.Table(tables[0])
		if !found {
			return "", false
		}
		return correlatedQuery(question, detail)
	case intent.SubqueryIn, intent.SubqueryNotIn:
		if len(tables) < 2 || graph == nil {
			return "", false
		}
		return membershipQuery(kind, graph, tables[0], tables[1])
	}
	return "", false
}

func correlatedQuery(question string, table schema.TableDetail) (string, bool) {
	q := strings.ToLower(question)
	valueColumn := pickNumericColumn(q, table)
	if valueColumn == "" {
		return "", false
	}

	var groupColumn string
	for _, candidate := range correlationColumns {
		if column, ok := table.Column(candidate); ok {
			groupColumn = column.Name
			break
		}
	}
	if groupColumn == "" {
		for _, column := range table.Columns {
			lower := strings.ToLower(column.Name)
			if !column.IsNumeric() && lower != "id" && lower != "name" && containsAny(q, []string{lower}) {
				groupColumn = column.Name
				break
			}
		}
	}
	if groupColumn == "" {
		return "", false
	}

	agg := correlatedAggregate(q)
	sql := fmt.Sprintf(
		"SELECT t1.* FROM %s t1 WHERE t1.%s > (SELECT %s(t2.%s) FROM %s t2 WHERE t2.%s = t1.%s)",
		Quote(table.Name), Quote(valueColumn),
		agg, Quote(valueColumn), Quote(table.Name),
		Quote(groupColumn), Quote(groupColumn),
	)
	return sql, true
}

func correlatedAggregate(q string) string {
	switch {
	case containsAny(q, []string{"maximum", "max", "highest"}):
		return "MAX"
	case containsAny(q, []string{"minimum", "min", "lowest"}):
		return "MIN"
	case containsAny(q, []string{"total", "sum"}):
		return "SUM"
	default:
		return "AVG"
	}
}

func membershipQuery(kind intent.SubqueryKind, graph *schema.Graph, parent, child string) (string, bool) {
	edge, ok := graph.EdgeBetween(parent, child)
	if !ok {
		return "", false
	}
	operator := "IN"
	if kind == intent.SubqueryNotIn {
		operator = "NOT IN"
	}
	sql := fmt.Sprintf(
		"SELECT * FROM %s WHERE %s %s (SELECT DISTINCT %s FROM %s)",
		Quote(parent), Quote(edge.FromColumn), operator, Quote(edge.ToColumn), Quote(child),
	)
	return sql, true
}
