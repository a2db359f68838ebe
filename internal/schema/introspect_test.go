package schema

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/queryloom/queryloom/internal/store"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func pragmaColumns() []string {
	return []string{"cid", "name", "type", "notnull", "dflt_value", "pk"}
}

func expectSQLiteTables(mock sqlmock.Sqlmock, names ...string) {
	rows := sqlmock.NewRows([]string{"name"})
	for _, name := range names {
		rows.AddRow(name)
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)).
		WillReturnRows(rows)
}

func TestGetSchemaSQLite(t *testing.T) {
	db, mock := newSQLMock(t)
	introspector := NewIntrospector(store.NewWithDB(db, store.DialectSQLite), nil)

	expectSQLiteTables(mock, "students", "grades")
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("students")`)).
		WillReturnRows(sqlmock.NewRows(pragmaColumns()).
			AddRow(0, "id", "INTEGER", 1, nil, 1).
			AddRow(1, "name", "TEXT", 0, nil, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("grades")`)).
		WillReturnRows(sqlmock.NewRows(pragmaColumns()).
			AddRow(0, "student_id", "INTEGER", 0, nil, 0).
			AddRow(1, "score", "REAL", 0, nil, 0))

	sch, err := introspector.GetSchema(context.Background())
	if err != nil {
		t.Fatalf("GetSchema() error = %v", err)
	}
	if len(sch.Tables) != 2 {
		t.Fatalf("Tables = %d, want 2", len(sch.Tables))
	}
	if sch.Tables[0].Name != "students" || len(sch.Tables[0].Columns) != 2 {
		t.Fatalf("first table = %+v", sch.Tables[0])
	}
	if sch.Tables[1].Columns[1] != "score" {
		t.Fatalf("grades columns = %v", sch.Tables[1].Columns)
	}
	assertSQLMock(t, mock)
}

func TestGetSchemaToleratesColumnFailure(t *testing.T) {
	db, mock := newSQLMock(t)
	introspector := NewIntrospector(store.NewWithDB(db, store.DialectSQLite), nil)

	expectSQLiteTables(mock, "students", "broken")
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("students")`)).
		WillReturnRows(sqlmock.NewRows(pragmaColumns()).AddRow(0, "id", "INTEGER", 1, nil, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("broken")`)).
		WillReturnError(errors.New("disk I/O error"))

	sch, err := introspector.GetSchema(context.Background())
	if err != nil {
		t.Fatalf("GetSchema() error = %v", err)
	}
	if len(sch.Tables) != 2 {
		t.Fatalf("Tables = %d, want 2", len(sch.Tables))
	}
	if len(sch.Tables[1].Columns) != 0 {
		t.Fatalf("broken table columns = %v, want empty", sch.Tables[1].Columns)
	}
	assertSQLMock(t, mock)
}

func TestGetSchemaFailsWhenTablesUnlistable(t *testing.T) {
	db, mock := newSQLMock(t)
	introspector := NewIntrospector(store.NewWithDB(db, store.DialectSQLite), nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name FROM sqlite_master`)).
		WillReturnError(errors.New("database is locked"))

	if _, err := introspector.GetSchema(context.Background()); err == nil {
		t.Fatal("expected error when tables cannot be listed")
	}
	assertSQLMock(t, mock)
}

func TestGetEnhancedSchemaSamplesColumns(t *testing.T) {
	db, mock := newSQLMock(t)
	introspector := NewIntrospector(store.NewWithDB(db, store.DialectSQLite), nil)
	introspector.SampleLimit = 2

	expectSQLiteTables(mock, "students")
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("students")`)).
		WillReturnRows(sqlmock.NewRows(pragmaColumns()).
			AddRow(0, "name", "TEXT", 0, nil, 0).
			AddRow(1, "score", "INTEGER", 0, nil, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT "name" FROM "students" LIMIT 2`)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice").AddRow("Bob"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT "score" FROM "students" LIMIT 2`)).
		WillReturnRows(sqlmock.NewRows([]string{"score"}).AddRow(95).AddRow(nil))

	enhanced, err := introspector.GetEnhancedSchema(context.Background())
	if err != nil {
		t.Fatalf("GetEnhancedSchema() error = %v", err)
	}
	detail, ok := enhanced.Table("students")
	if !ok {
		t.Fatal("students table missing")
	}
	if detail.Columns[0].Type != "text" {
		t.Fatalf("name type = %q, want normalized text", detail.Columns[0].Type)
	}
	if len(detail.Columns[0].Samples) != 2 || detail.Columns[0].Samples[0] != "Alice" {
		t.Fatalf("name samples = %v", detail.Columns[0].Samples)
	}
	if len(detail.Columns[1].Samples) != 1 || detail.Columns[1].Samples[0] != "95" {
		t.Fatalf("score samples = %v, want nulls skipped", detail.Columns[1].Samples)
	}
	assertSQLMock(t, mock)
}

func TestDetectForeignKeysMergesExplicitAndHeuristic(t *testing.T) {
	db, mock := newSQLMock(t)
	introspector := NewIntrospector(store.NewWithDB(db, store.DialectSQLite), nil)

	expectSQLiteTables(mock, "customers", "orders")
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("customers")`)).
		WillReturnRows(sqlmock.NewRows(pragmaColumns()).AddRow(0, "id", "INTEGER", 1, nil, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("orders")`)).
		WillReturnRows(sqlmock.NewRows(pragmaColumns()).
			AddRow(0, "id", "INTEGER", 1, nil, 1).
			AddRow(1, "customer_id", "INTEGER", 0, nil, 0).
			AddRow(2, "product_id", "INTEGER", 0, nil, 0))

	fkColumns := []string{"id", "seq", "table", "from", "to", "on_update", "on_delete", "match"}
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA foreign_key_list("customers")`)).
		WillReturnRows(sqlmock.NewRows(fkColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA foreign_key_list("orders")`)).
		WillReturnRows(sqlmock.NewRows(fkColumns).
			AddRow(0, 0, "customers", "customer_id", "id", "NO ACTION", "NO ACTION", "NONE"))

	keys, err := introspector.DetectForeignKeys(context.Background())
	if err != nil {
		t.Fatalf("DetectForeignKeys() error = %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("keys = %+v, want only the declared edge", keys)
	}
	if keys[0].Heuristic {
		t.Fatal("declared key should not be heuristic")
	}
	if keys[0].FromColumn != "customer_id" || keys[0].ToTable != "customers" {
		t.Fatalf("key = %+v", keys[0])
	}
	assertSQLMock(t, mock)
}

func TestListTablesPostgres(t *testing.T) {
	db, mock := newSQLMock(t)
	introspector := NewIntrospector(store.NewWithDB(db, store.DialectPostgres), nil)

	mock.ExpectQuery(`SELECT table_name FROM information_schema\.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("accounts"))
	mock.ExpectQuery(`SELECT column_name, COALESCE\(data_type, ''\)`).
		WithArgs("accounts").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("id", "integer").
			AddRow("email", "character varying"))

	sch, err := introspector.GetSchema(context.Background())
	if err != nil {
		t.Fatalf("GetSchema() error = %v", err)
	}
	if len(sch.Tables) != 1 || sch.Tables[0].Name != "accounts" {
		t.Fatalf("Tables = %+v", sch.Tables)
	}
	if len(sch.Tables[0].Columns) != 2 || sch.Tables[0].Columns[1] != "email" {
		t.Fatalf("columns = %v", sch.Tables[0].Columns)
	}
	assertSQLMock(t, mock)
}
