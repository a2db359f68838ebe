package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/queryloom/queryloom/internal/observability"
)

type relationshipPayload struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
	Heuristic  bool   `json:"heuristic"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, "query_reader"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	sch, err := deps.Schema.GetSchema(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema", true, map[string]any{"details": err.Error()})
		return
	}

	tables := make([]map[string]any, 0, len(sch.Tables))
	for _, table := range sch.Tables {
		tables = append(tables, map[string]any{
			"name":    table.Name,
			"columns": table.Columns,
		})
	}

	relationships := []relationshipPayload{}
	if keys, err := deps.Schema.DetectForeignKeys(r.Context()); err == nil {
		for _, key := range keys {
			relationships = append(relationships, relationshipPayload{
				FromTable:  key.FromTable,
				FromColumn: key.FromColumn,
				ToTable:    key.ToTable,
				ToColumn:   key.ToColumn,
				Heuristic:  key.Heuristic,
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tables":        tables,
		"relationships": relationships,
	})
}

func handlePreview(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tables == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PREVIEW_NOT_CONFIGURED", "table reader is not configured", false, nil)
		return
	}
	if err := requireRole(r, "query_reader"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	tableName := r.PathValue("table")
	limit := deps.PreviewRows
	if limit <= 0 {
		limit = 10
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, nil)
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	start := time.Now()
	rows, err := deps.Tables.Preview(r.Context(), tableName, limit)
	observability.ObserveExecution(time.Since(start), err != nil)
	if err != nil {
		writeExecutionError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"table":   tableName,
		"columns": rows.Columns,
		"rows":    rows.Rows,
	})
}

func handleStats(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Tables == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "STATS_NOT_CONFIGURED", "table reader is not configured", false, nil)
		return
	}
	if err := requireRole(r, "query_reader"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	tableName := r.PathValue("table")
	stats, err := deps.Tables.Stats(r.Context(), tableName)
	if err != nil {
		writeExecutionError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"table":        stats.TableName,
		"row_count":    stats.RowCount,
		"column_count": stats.ColumnCount,
	})
}
