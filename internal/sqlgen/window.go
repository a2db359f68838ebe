package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/queryloom/queryloom/internal/intent"
	"github.com/queryloom/queryloom/internal/schema"
)

var partitionColumns = []string{"department", "category", "group", "class", "type", "team", "region"}

var windowOrderKeywords = []string{"score", "salary", "price", "amount", "revenue", "value", "total"}

// WindowQuery synthesizes analytic-function statements: ranking within
// partitions, row numbering, neighbor comparison and running totals.
func WindowQuery(question string, table schema.TableDetail) (string, bool) {
	fn, ok := intent.DetectWindow(question)
	if !ok {
		return "", false
	}
	q := strings.ToLower(question)
	from := Quote(table.Name)

	orderColumn := windowOrderColumn(q, table)
	if orderColumn == "" {
		return "", false
	}
	partition := windowPartitionColumn(q, table)

	switch fn {
	case intent.WindowRowNumber:
		over := overClause(partition, Quote(orderColumn)+" DESC")
		if containsAny(q, []string{"first in each", "top in each", "one per"}) && partition != "" {
			return fmt.Sprintf(
				"SELECT * FROM (SELECT *, ROW_NUMBER() OVER %s AS %s FROM %s) WHERE %s = 1",
				over, Quote("row_num"), from, Quote("row_num"),
			), true
		}
		return fmt.Sprintf("SELECT *, ROW_NUMBER() OVER %s AS %s FROM %s", over, Quote("row_num"), from), true

	case intent.WindowRank, intent.WindowDenseRank:
		name := "RANK"
		alias := "rank"
		if fn == intent.WindowDenseRank {
			name = "DENSE_RANK"
			alias = "dense_rank"
		}
		over := overClause(partition, Quote(orderColumn)+" DESC")
		return fmt.Sprintf("SELECT *, %s() OVER %s AS %s FROM %s", name, over, Quote(alias), from), true

	case intent.WindowLead, intent.WindowLag:
		name := "LAG"
		alias := "previous_" + orderColumn
		if fn == intent.WindowLead {
			name = "LEAD"
			alias = "next_" + orderColumn
		}
		offset := 1
		if raw, ok := intent.ExtractOffset(q); ok {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				offset = n
			}
		}
		sequence := windowSequenceColumn(table, orderColumn)
		return fmt.Sprintf(
			"SELECT *, %s(%s, %d) OVER (ORDER BY %s) AS %s FROM %s",
			name, Quote(orderColumn), offset, Quote(sequence), Quote(alias), from,
		), true

	case intent.WindowSumOver:
		sequence := windowSequenceColumn(table, orderColumn)
		return fmt.Sprintf(
			"SELECT *, SUM(%s) OVER (ORDER BY %s) AS %s FROM %s",
			Quote(orderColumn), Quote(sequence), Quote("running_total"), from,
		), true
	}
	return "", false
}

func overClause(partition, order string) string {
	if partition == "" {
		return fmt.Sprintf("(ORDER BY %s)", order)
	}
	return fmt.Sprintf("(PARTITION BY %s ORDER BY %s)", Quote(partition), order)
}

func windowOrderColumn(q string, table schema.TableDetail) string {
	for _, column := range table.Columns {
		lower := strings.ToLower(column.Name)
		if strings.Contains(q, lower) && (column.IsNumeric() || containsAny(lower, windowOrderKeywords)) {
			return column.Name
		}
	}
	for _, keyword := range windowOrderKeywords {
		for _, column := range table.Columns {
			if strings.Contains(strings.ToLower(column.Name), keyword) {
				return column.Name
			}
		}
	}
	for _, column := range table.Columns {
		if column.IsNumeric() && !strings.EqualFold(column.Name, "id") {
			return column.Name
		}
	}
	return ""
}

func windowPartitionColumn(q string, table schema.TableDetail) string {
	for _, candidate := range partitionColumns {
		if column, ok := table.Column(candidate); ok {
			if strings.Contains(q, candidate) || containsAny(q, []string{"each", "per", "within"}) {
				return column.Name
			}
		}
	}
	return ""
}

// windowSequenceColumn picks the ORDER BY for sequential windows: a
// date-like column when present, otherwise the value column itself.
func windowSequenceColumn(table schema.TableDetail, fallback string) string {
	for _, column := range table.Columns {
		if intent.IsDateColumn(column.Name) {
			return column.Name
		}
	}
	return fallback
}
