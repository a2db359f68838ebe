package exec

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

func TestGuardAllowsReadOnlyStatements(t *testing.T) {
	allowed := []string{
		`SELECT * FROM "students"`,
		`  select name from "students"  `,
		`WITH top AS (SELECT 1) SELECT * FROM top`,
	}
	for _, sqlText := range allowed {
		if err := Guard(sqlText); err != nil {
			t.Fatalf("Guard(%q) = %v, want nil", sqlText, err)
		}
	}
}

func TestGuardBlocksWriteKeywords(t *testing.T) {
	blocked := []string{
		`INSERT INTO "students" VALUES (1)`,
		`UPDATE "students" SET "name" = 'x'`,
		`DELETE FROM "students"`,
		`DROP TABLE "students"`,
		`CREATE TABLE x (id INTEGER)`,
		`ALTER TABLE "students" ADD COLUMN x`,
		`TRUNCATE "students"`,
		`REPLACE INTO "students" VALUES (1)`,
		`PRAGMA table_info("students")`,
		`ATTACH DATABASE 'x.db' AS x`,
		`SELECT * FROM "students"; DROP TABLE "students"`,
	}
	for _, sqlText := range blocked {
		err := Guard(sqlText)
		if err == nil {
			t.Fatalf("Guard(%q) = nil, want rejection", sqlText)
		}
		if !errors.Is(err, ErrUnsafeStatement) {
			t.Fatalf("Guard(%q) = %v, want ErrUnsafeStatement", sqlText, err)
		}
	}
}

func TestGuardRejectsNonSelectPrefix(t *testing.T) {
	err := Guard(`EXPLAIN QUERY PLAN SELECT 1`)
	if !errors.Is(err, ErrUnsafeStatement) {
		t.Fatalf("Guard() = %v, want ErrUnsafeStatement", err)
	}
}

func TestExecuteRunsGatedStatement(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := NewExecutor(store.NewWithDB(db, store.DialectSQLite), nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "students"`)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice"))

	rows, err := executor.Execute(context.Background(), `SELECT * FROM "students"`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(rows.Rows) != 1 {
		t.Fatalf("Rows = %d, want 1", len(rows.Rows))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestExecuteNeverReachesStoreWhenBlocked(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := NewExecutor(store.NewWithDB(db, store.DialectSQLite), nil)

	_, err := executor.Execute(context.Background(), `DELETE FROM "students"`)
	if !errors.Is(err, ErrUnsafeStatement) {
		t.Fatalf("Execute() = %v, want ErrUnsafeStatement", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("store should not have been queried: %v", err)
	}
}

func TestExecuteSanitizesDriverError(t *testing.T) {
	db, mock := newSQLMock(t)
	executor := NewExecutor(store.NewWithDB(db, store.DialectSQLite), nil)

	driverErr := errors.New("no such table: studnets")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "studnets"`)).WillReturnError(driverErr)

	_, err := executor.Execute(context.Background(), `SELECT * FROM "studnets"`)
	if err == nil {
		t.Fatal("expected execution error")
	}
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %T, want *ExecutionError", err)
	}
	if execErr.Message != "Database table not found. Please check your data structure." {
		t.Fatalf("Message = %q", execErr.Message)
	}
	if !errors.Is(err, driverErr) {
		t.Fatal("raw cause should remain reachable via Unwrap")
	}
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`syntax error near "FROM"`, `Query syntax error near "FROM"`},
		{"no such table: orders", "Database table not found. Please check your data structure."},
		{`relation "orders" does not exist`, "Database table not found. Please check your data structure."},
		{"table 'app.orders' doesn't exist", "Database table not found. Please check your data structure."},
		{"no such column: nmae", "Column not found in the database. Please rephrase your question."},
		{"unknown column 'nmae' in 'field list'", "Column not found in the database. Please rephrase your question."},
		{"ambiguous column name: id", "Ambiguous column reference. Please be more specific in your question."},
		{"connection reset by peer", "Unable to process your question. Please try rephrasing or asking something simpler."},
	}
	for _, tt := range tests {
		if got := sanitizeError(errors.New(tt.raw)); got != tt.want {
			t.Fatalf("sanitizeError(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
