package sqlgen

import (
	"testing"

	"github.com/queryloom/queryloom/internal/schema"
)

func shopSchema() schema.EnhancedSchema {
	return schema.EnhancedSchema{
		Tables: []schema.TableDetail{
			{
				Name: "customers",
				Columns: []schema.ColumnDetail{
					{Name: "id", Type: "integer"},
					{Name: "name", Type: "text", Samples: []string{"Acme", "Globex"}},
					{Name: "email", Type: "text"},
				},
			},
			{
				Name: "orders",
				Columns: []schema.ColumnDetail{
					{Name: "id", Type: "integer"},
					{Name: "customer_id", Type: "integer"},
					{Name: "amount", Type: "real"},
					{Name: "status", Type: "text", Samples: []string{"shipped", "pending"}},
				},
			},
			{
				Name: "order_items",
				Columns: []schema.ColumnDetail{
					{Name: "id", Type: "integer"},
					{Name: "order_id", Type: "integer"},
					{Name: "quantity", Type: "integer"},
				},
			},
		},
	}
}

func shopGraph() *schema.Graph {
	return schema.BuildGraph([]schema.ForeignKey{
		{FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id"},
		{FromTable: "order_items", FromColumn: "order_id", ToTable: "orders", ToColumn: "id"},
	})
}

func TestJoinQueryInner(t *testing.T) {
	got, ok := JoinQuery("show customers with their orders", shopSchema(), shopGraph(), []string{"customers", "orders"})
	if !ok {
		t.Fatal("JoinQuery() did not match")
	}
	want := `SELECT t0."id", t0."name", t0."email", t1."id", t1."status" FROM "customers" t0 INNER JOIN "orders" t1 ON t0."id" = t1."customer_id"`
	if got != want {
		t.Fatalf("JoinQuery()\n got: %s\nwant: %s", got, want)
	}
}

func TestJoinQueryLeftJoin(t *testing.T) {
	got, ok := JoinQuery("show all customers including those without orders", shopSchema(), shopGraph(), []string{"customers", "orders"})
	if !ok {
		t.Fatal("JoinQuery() did not match")
	}
	want := `SELECT t0."id", t0."name", t0."email", t1."id", t1."status" FROM "customers" t0 LEFT JOIN "orders" t1 ON t0."id" = t1."customer_id"`
	if got != want {
		t.Fatalf("JoinQuery()\n got: %s\nwant: %s", got, want)
	}
}

func TestJoinQueryRoutesThroughIntermediateTable(t *testing.T) {
	got, ok := JoinQuery("show customers and order_items", shopSchema(), shopGraph(), []string{"customers", "order_items"})
	if !ok {
		t.Fatal("JoinQuery() did not match")
	}
	want := `SELECT t0."id", t0."name", t0."email", t1."id", t1."status", t2."id" FROM "customers" t0 INNER JOIN "orders" t1 ON t0."id" = t1."customer_id" INNER JOIN "order_items" t2 ON t1."id" = t2."order_id"`
	if got != want {
		t.Fatalf("JoinQuery()\n got: %s\nwant: %s", got, want)
	}
}

func TestJoinQueryCountsPerGroup(t *testing.T) {
	got, ok := JoinQuery("how many orders per customer name", shopSchema(), shopGraph(), []string{"orders", "customers"})
	if !ok {
		t.Fatal("JoinQuery() did not match")
	}
	want := `SELECT t1."name", COUNT(*) AS "count" FROM "orders" t0 INNER JOIN "customers" t1 ON t0."customer_id" = t1."id" GROUP BY t1."name" ORDER BY "count" ASC`
	if got != want {
		t.Fatalf("JoinQuery()\n got: %s\nwant: %s", got, want)
	}
}

func TestJoinQueryValueCondition(t *testing.T) {
	got, ok := JoinQuery("show orders for Acme", shopSchema(), shopGraph(), []string{"orders", "customers"})
	if !ok {
		t.Fatal("JoinQuery() did not match")
	}
	want := `SELECT t0."id", t0."status", t1."id", t1."name", t1."email" FROM "orders" t0 INNER JOIN "customers" t1 ON t0."customer_id" = t1."id" WHERE t1."name" = 'Acme'`
	if got != want {
		t.Fatalf("JoinQuery()\n got: %s\nwant: %s", got, want)
	}
}

func TestJoinQueryNoPath(t *testing.T) {
	if sql, ok := JoinQuery("customers and products", shopSchema(), shopGraph(), []string{"customers", "products"}); ok {
		t.Fatalf("JoinQuery() matched without a path: %s", sql)
	}
}

func TestJoinQueryNeedsTwoTables(t *testing.T) {
	if _, ok := JoinQuery("show customers", shopSchema(), shopGraph(), []string{"customers"}); ok {
		t.Fatal("JoinQuery() matched with a single table")
	}
}
