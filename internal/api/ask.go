package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/queryloom/queryloom/internal/auth"
	"github.com/queryloom/queryloom/internal/nl2sql"
	"github.com/queryloom/queryloom/internal/observability"
	"github.com/queryloom/queryloom/internal/schema"
)

type askRequest struct {
	Question string        `json:"question"`
	History  []nl2sql.Turn `json:"history"`
}

// askResponse never carries SQL. Clients get results and a structural
// explanation; the statement itself is only visible through the
// admin-gated translate endpoint.
type askResponse struct {
	Columns     []string       `json:"columns"`
	Rows        [][]any        `json:"rows"`
	RowCount    int            `json:"row_count"`
	Explanation string         `json:"explanation"`
	Kind        string         `json:"kind"`
	Tables      []string       `json:"tables"`
	Stats       map[string]any `json:"stats"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Synthesizer == nil || deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "synthesis dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "query_reader"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
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

	start := time.Now()
	rows, err := deps.Executor.Execute(r.Context(), synthesis.SQL)
	observability.ObserveExecution(time.Since(start), err != nil)
	if err != nil {
		writeExecutionError(r.Context(), w, err)
		return
	}

	explanation := "Query executed successfully"
	if deps.Schema != nil {
		if sch, schemaErr := deps.Schema.GetSchema(r.Context()); schemaErr == nil {
			explanation = nl2sql.Explain(synthesis.SQL, sch).Summary()
		}
	}

	writeJSON(w, http.StatusOK, askResponse{
		Columns:     rows.Columns,
		Rows:        rows.Rows,
		RowCount:    len(rows.Rows),
		Explanation: explanation,
		Kind:        string(synthesis.Kind),
		Tables:      synthesis.Tables,
		Stats: map[string]any{
			"duration_ms": rows.Duration.Milliseconds(),
		},
	})
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}
