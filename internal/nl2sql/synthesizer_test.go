package nl2sql

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/queryloom/queryloom/internal/schema"
	"github.com/queryloom/queryloom/internal/store"
)

type fakeTranslator struct {
	result Result
	err    error
	gotReq Request
}

func (f *fakeTranslator) Translate(_ context.Context, req Request) (Result, error) {
	f.gotReq = req
	return f.result, f.err
}

func newSynthesizerMock(t *testing.T) (*Synthesizer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	introspector := schema.NewIntrospector(store.NewWithDB(db, store.DialectSQLite), nil)
	introspector.SampleLimit = 1
	return NewSynthesizer(introspector, nil, nil), mock
}

func expectStudentTables(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("students"))
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("students")`)).
		WillReturnRows(sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
			AddRow(0, "name", "TEXT", 0, nil, 0).
			AddRow(1, "score", "INTEGER", 0, nil, 0))
}

// expectStudentIntrospection covers the three introspection passes a
// Synthesize call makes: plain schema, enhanced schema with samples,
// then foreign key detection.
func expectStudentIntrospection(mock sqlmock.Sqlmock) {
	expectStudentTables(mock)

	expectStudentTables(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT "name" FROM "students" LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Alice"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT "score" FROM "students" LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"score"}).AddRow(95))

	expectStudentTables(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA foreign_key_list("students")`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seq", "table", "from", "to", "on_update", "on_delete", "match"}))
}

func TestSynthesizeTemplate(t *testing.T) {
	synthesizer, mock := newSynthesizerMock(t)
	expectStudentIntrospection(mock)

	syn, err := synthesizer.Synthesize(context.Background(), "show all students", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if syn.Kind != KindTemplate {
		t.Fatalf("Kind = %q, want template", syn.Kind)
	}
	if syn.SQL != `SELECT * FROM "students"` {
		t.Fatalf("SQL = %q", syn.SQL)
	}
	if !reflect.DeepEqual(syn.Tables, []string{"students"}) {
		t.Fatalf("Tables = %v", syn.Tables)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestSynthesizeWindow(t *testing.T) {
	synthesizer, mock := newSynthesizerMock(t)
	expectStudentIntrospection(mock)

	syn, err := synthesizer.Synthesize(context.Background(), "rank students by score", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if syn.Kind != KindWindow {
		t.Fatalf("Kind = %q, want window", syn.Kind)
	}
	want := `SELECT *, RANK() OVER (ORDER BY "score" DESC) AS "rank" FROM "students"`
	if syn.SQL != want {
		t.Fatalf("SQL = %q, want %q", syn.SQL, want)
	}
}

func TestSynthesizeDegradedWithoutTranslator(t *testing.T) {
	synthesizer, mock := newSynthesizerMock(t)
	expectStudentIntrospection(mock)

	syn, err := synthesizer.Synthesize(context.Background(), "completely unrelated gibberish", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if syn.Kind != KindDegraded {
		t.Fatalf("Kind = %q, want degraded", syn.Kind)
	}
	if syn.SQL != `SELECT * FROM "students"` {
		t.Fatalf("SQL = %q", syn.SQL)
	}
}

func TestSynthesizeGeneratedRepairsModelOutput(t *testing.T) {
	synthesizer, mock := newSynthesizerMock(t)
	expectStudentIntrospection(mock)
	translator := &fakeTranslator{result: Result{
		SQL:      "SELECT * FROM table",
		Provider: "openai-compatible",
		Model:    "test-model",
	}}
	synthesizer.Translator = translator

	syn, err := synthesizer.Synthesize(context.Background(), "completely unrelated gibberish", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if syn.Kind != KindGenerated {
		t.Fatalf("Kind = %q, want generated", syn.Kind)
	}
	if syn.SQL != `SELECT * FROM "students"` {
		t.Fatalf("SQL = %q, want placeholder repaired", syn.SQL)
	}
	if !syn.Repaired {
		t.Fatal("Repaired = false, want true")
	}
	if syn.Provider != "openai-compatible" || syn.Model != "test-model" {
		t.Fatalf("provenance = %q/%q", syn.Provider, syn.Model)
	}

	if len(translator.gotReq.Tables) != 1 || translator.gotReq.Tables[0].TableName != "students" {
		t.Fatalf("request tables = %+v", translator.gotReq.Tables)
	}
	if translator.gotReq.Tables[0].Columns[0].Samples[0] != "Alice" {
		t.Fatalf("request samples = %+v", translator.gotReq.Tables[0].Columns[0])
	}
}

func TestSynthesizeFallsBackWhenTranslatorFails(t *testing.T) {
	synthesizer, mock := newSynthesizerMock(t)
	expectStudentIntrospection(mock)
	synthesizer.Translator = &fakeTranslator{err: errors.New("model unavailable")}

	syn, err := synthesizer.Synthesize(context.Background(), "completely unrelated gibberish", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if syn.Kind != KindDegraded {
		t.Fatalf("Kind = %q, want degraded", syn.Kind)
	}
}

func TestSynthesizeEmptySchema(t *testing.T) {
	synthesizer, mock := newSynthesizerMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name FROM sqlite_master`)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err := synthesizer.Synthesize(context.Background(), "anything", nil)
	if !errors.Is(err, schema.ErrSchemaUnavailable) {
		t.Fatalf("Synthesize() error = %v, want ErrSchemaUnavailable", err)
	}
}

func TestMentionedTables(t *testing.T) {
	sch := schema.Schema{Tables: []schema.Table{
		{Name: "customers"},
		{Name: "orders"},
		{Name: "sample_students"},
		{Name: "categories"},
	}}
	tests := []struct {
		question string
		want     []string
	}{
		{"list all orders", []string{"orders"}},
		{"show students", []string{"sample_students"}},
		{"total order amount", []string{"orders"}},
		{"count by category", []string{"categories"}},
		{"customers and their orders", []string{"customers", "orders"}},
		{"hello world", nil},
	}
	for _, tt := range tests {
		if got := MentionedTables(tt.question, sch); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("MentionedTables(%q) = %v, want %v", tt.question, got, tt.want)
		}
	}
}

func TestRelatedTables(t *testing.T) {
	sch := schema.Schema{Tables: []schema.Table{
		{Name: "customers", Columns: []string{"id", "name"}},
		{Name: "orders", Columns: []string{"id", "customer_id", "status"}},
	}}
	graph := schema.BuildGraph([]schema.ForeignKey{
		{FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id"},
	})

	multi, related := relatedTables("customers and their orders", []string{"customers", "orders"}, sch, graph)
	if !multi || !reflect.DeepEqual(related, []string{"customers", "orders"}) {
		t.Fatalf("both mentioned: multi=%v related=%v", multi, related)
	}

	multi, related = relatedTables("show customers and their status", []string{"customers"}, sch, graph)
	if !multi || !reflect.DeepEqual(related, []string{"customers", "orders"}) {
		t.Fatalf("related column: multi=%v related=%v", multi, related)
	}

	multi, related = relatedTables("customers together", []string{"customers"}, sch, graph)
	if !multi || len(related) != 2 {
		t.Fatalf("combine phrase: multi=%v related=%v", multi, related)
	}

	multi, _ = relatedTables("just customers please", []string{"customers"}, schema.Schema{}, schema.BuildGraph(nil))
	if multi {
		t.Fatal("isolated table should stay single")
	}
}
