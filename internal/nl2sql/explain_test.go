package nl2sql

import (
	"reflect"
	"testing"

	"github.com/queryloom/queryloom/internal/schema"
)

func explainSchema() schema.Schema {
	return schema.Schema{Tables: []schema.Table{
		{Name: "students", Columns: []string{"name", "grade", "score", "active"}},
		{Name: "orders", Columns: []string{"id", "amount"}},
	}}
}

func TestExplainExtractsClauses(t *testing.T) {
	facts := Explain(
		`SELECT "grade", COUNT(*) AS "count" FROM "students" WHERE "score" > 50 AND "active" = 1 GROUP BY "grade" ORDER BY "count" DESC LIMIT 5`,
		explainSchema(),
	)

	if !reflect.DeepEqual(facts.Tables, []string{"students"}) {
		t.Fatalf("Tables = %v", facts.Tables)
	}
	if facts.HasJoin {
		t.Fatal("HasJoin = true, want false")
	}
	if !reflect.DeepEqual(facts.Aggregations, []string{"COUNT"}) {
		t.Fatalf("Aggregations = %v", facts.Aggregations)
	}
	if !reflect.DeepEqual(facts.Filters, []string{`"SCORE" > 50`, `"ACTIVE" = 1`}) {
		t.Fatalf("Filters = %v", facts.Filters)
	}
	if !reflect.DeepEqual(facts.GroupBy, []string{`"GRADE"`}) {
		t.Fatalf("GroupBy = %v", facts.GroupBy)
	}
	if !reflect.DeepEqual(facts.OrderBy, []string{`"COUNT" DESC`}) {
		t.Fatalf("OrderBy = %v", facts.OrderBy)
	}
	if facts.Limit != 5 {
		t.Fatalf("Limit = %d, want 5", facts.Limit)
	}
}

func TestExplainDetectsJoin(t *testing.T) {
	facts := Explain(
		`SELECT t0."name", t1."amount" FROM "students" t0 INNER JOIN "orders" t1 ON t0."id" = t1."student_id"`,
		explainSchema(),
	)
	if !facts.HasJoin {
		t.Fatal("HasJoin = false, want true")
	}
	if !reflect.DeepEqual(facts.Tables, []string{"students", "orders"}) {
		t.Fatalf("Tables = %v", facts.Tables)
	}
}

func TestSummary(t *testing.T) {
	facts := Facts{
		Tables:       []string{"students"},
		Aggregations: []string{"COUNT"},
		Filters:      []string{`"SCORE" > 50`},
		GroupBy:      []string{`"GRADE"`},
		OrderBy:      []string{`"COUNT" DESC`},
		Limit:        5,
	}
	want := `Tables: students. Operations: COUNT. Filtering: 1 condition(s). Grouped by: "GRADE". Sorted by: "COUNT" DESC. Limited to 5 results`
	if got := facts.Summary(); got != want {
		t.Fatalf("Summary() = %q, want %q", got, want)
	}
}

func TestSummaryEmptyFacts(t *testing.T) {
	if got := (Facts{}).Summary(); got != "Query executed successfully" {
		t.Fatalf("Summary() = %q", got)
	}
}
