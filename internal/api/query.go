package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/queryloom/queryloom/internal/nl2sql"
	"github.com/queryloom/queryloom/internal/observability"
	"github.com/queryloom/queryloom/internal/schema"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryResponse struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

// handleQuery runs caller-supplied SQL. The statement still goes
// through the same safety gate as synthesized SQL; this endpoint widens
// what you can ask, not what can execute.
func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "query_reader"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	start := time.Now()
	rows, err := deps.Executor.Execute(r.Context(), request.SQL)
	observability.ObserveExecution(time.Since(start), err != nil)
	if err != nil {
		writeExecutionError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Columns: rows.Columns,
		Rows:    rows.Rows,
		Stats: map[string]any{
			"duration_ms": rows.Duration.Milliseconds(),
		},
	})
}

type translateRequest struct {
	Question string        `json:"question"`
	History  []nl2sql.Turn `json:"history"`
}

// handleTranslateQuery is the only endpoint that returns SQL text, and
// it requires the query_admin role for exactly that reason.
func handleTranslateQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Synthesizer == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATE_NOT_CONFIGURED", "query translation is not configured", false, nil)
		return
	}
	if err := requireRole(r, "query_admin"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request translateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translation request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	synthesis, err := deps.Synthesizer.Synthesize(r.Context(), request.Question, request.History)
	if err != nil {
		if errors.Is(err, schema.ErrSchemaUnavailable) {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", "no tables available to answer questions", true, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "SYNTHESIS_FAILED", "failed to synthesize a query", true, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveSynthesis(string(synthesis.Kind), synthesis.Repaired)

	writeJSON(w, http.StatusOK, map[string]any{
		"sql":      synthesis.SQL,
		"kind":     string(synthesis.Kind),
		"tables":   synthesis.Tables,
		"repaired": synthesis.Repaired,
		"provider": synthesis.Provider,
		"model":    synthesis.Model,
	})
}

type explainRequest struct {
	Question string        `json:"question"`
	History  []nl2sql.Turn `json:"history"`
}

// handleExplain synthesizes without executing and describes what would
// run, again without exposing the SQL.
func handleExplain(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Synthesizer == nil || deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPLAIN_NOT_CONFIGURED", "explain dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "query_reader"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request explainRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid explain request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	synthesis, err := deps.Synthesizer.Synthesize(r.Context(), request.Question, request.History)
	if err != nil {
		if errors.Is(err, schema.ErrSchemaUnavailable) {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", "no tables available to answer questions", true, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "SYNTHESIS_FAILED", "failed to synthesize a query", true, map[string]any{"details": err.Error()})
		return
	}

	sch, err := deps.Schema.GetSchema(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema", true, map[string]any{"details": err.Error()})
		return
	}
	facts := nl2sql.Explain(synthesis.SQL, sch)

	writeJSON(w, http.StatusOK, map[string]any{
		"kind":        string(synthesis.Kind),
		"tables":      synthesis.Tables,
		"facts":       facts,
		"explanation": facts.Summary(),
	})
}
