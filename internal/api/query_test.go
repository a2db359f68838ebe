package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/queryloom/queryloom/internal/auth"
	"github.com/queryloom/queryloom/internal/exec"
	"github.com/queryloom/queryloom/internal/nl2sql"
)

// identityMiddleware stands in for the API-key middleware: it injects a
// fixed identity so role checks can be exercised without real keys.
func identityMiddleware(identity auth.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

func TestQueryEndpointExecutesSQL(t *testing.T) {
	executor := &fakeExecutor{rows: studentRows()}
	h := NewHandler(testConfig(t, nil), Dependencies{Executor: executor})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"sql":"SELECT name FROM students"}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	columns, ok := body["columns"].([]any)
	if !ok || len(columns) != 2 {
		t.Fatalf("columns = %v", body["columns"])
	}
	if executor.gotSQL != "SELECT name FROM students" {
		t.Fatalf("executed sql = %q", executor.gotSQL)
	}
}

func TestQueryRejectsUnsafeSQL(t *testing.T) {
	executor := &fakeExecutor{err: fmt.Errorf("%w: DELETE statements are not allowed", exec.ErrUnsafeStatement)}
	h := NewHandler(testConfig(t, nil), Dependencies{Executor: executor})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"sql":"DELETE FROM students"}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "SQL_NOT_ALLOWED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestQuerySanitizedExecutionError(t *testing.T) {
	executor := &fakeExecutor{err: &exec.ExecutionError{
		Message: "Database table not found. Please check your data structure.",
		Cause:   errors.New("no such table: studnets"),
	}}
	h := NewHandler(testConfig(t, nil), Dependencies{Executor: executor})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"sql":"SELECT * FROM studnets"}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error_code"] != "QUERY_EXECUTION_FAILED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
	if message, _ := body["message"].(string); strings.Contains(message, "studnets") {
		t.Fatalf("message leaks raw driver error: %q", message)
	}
}

func TestQueryRequiresSQL(t *testing.T) {
	h := NewHandler(testConfig(t, nil), Dependencies{Executor: &fakeExecutor{}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"sql":" "}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "SQL_REQUIRED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestTranslateRequiresAdminRole(t *testing.T) {
	cfg := testConfig(t, map[string]string{"QUERYLOOM_AUTH_REQUIRED": "true"})
	h := NewHandler(cfg, Dependencies{
		Synthesizer:    &fakeSynthesizer{},
		AuthMiddleware: identityMiddleware(auth.Identity{Subject: "analyst", Roles: []string{"query_reader"}}),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query/translate",
		strings.NewReader(`{"question":"show all students"}`)))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "FORBIDDEN" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestTranslateReturnsSQLForAdmin(t *testing.T) {
	cfg := testConfig(t, map[string]string{"QUERYLOOM_AUTH_REQUIRED": "true"})
	h := NewHandler(cfg, Dependencies{
		Synthesizer: &fakeSynthesizer{synthesis: nl2sql.Synthesis{
			SQL:      `SELECT * FROM "students"`,
			Kind:     nl2sql.KindGenerated,
			Tables:   []string{"students"},
			Repaired: true,
			Provider: "openai-compatible",
			Model:    "gpt-5",
		}},
		AuthMiddleware: identityMiddleware(auth.Identity{Subject: "operator", Roles: []string{"query_admin"}}),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query/translate",
		strings.NewReader(`{"question":"show all students"}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["sql"] != `SELECT * FROM "students"` {
		t.Fatalf("sql = %v", body["sql"])
	}
	if body["repaired"] != true || body["kind"] != "generated" {
		t.Fatalf("body = %v", body)
	}
}

func TestExplainEndpointDescribesWithoutSQL(t *testing.T) {
	h := NewHandler(testConfig(t, nil), Dependencies{
		Synthesizer: &fakeSynthesizer{synthesis: nl2sql.Synthesis{
			SQL:    `SELECT "grade", COUNT(*) AS "count" FROM "students" GROUP BY "grade"`,
			Kind:   nl2sql.KindTemplate,
			Tables: []string{"students"},
		}},
		Schema: &fakeSchemaSource{sch: studentSchema()},
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/explain",
		strings.NewReader(`{"question":"count students by grade"}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if raw := rr.Body.String(); strings.Contains(raw, "SELECT") {
		t.Fatalf("response leaks SQL: %s", raw)
	}
}

func TestAuthRequiredWithoutMiddlewareFailsClosed(t *testing.T) {
	cfg := testConfig(t, map[string]string{"QUERYLOOM_AUTH_REQUIRED": "true"})
	h := NewHandler(cfg, Dependencies{Executor: &fakeExecutor{rows: studentRows()}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"sql":"SELECT 1"}`)))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "AUTH_MIDDLEWARE_MISSING" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}
