// Package exec runs synthesized SQL behind the read-only safety gate.
// Nothing reaches the store without passing Guard first, and raw driver
// errors never leave the package.
package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/queryloom/queryloom/internal/store"
)

// ErrUnsafeStatement is returned for anything the gate rejects. The
// wrapped message names the offending keyword.
var ErrUnsafeStatement = errors.New("exec: statement rejected by safety gate")

// blockedKeywords is checked as a substring of the upper-cased
// statement, not per token. A SELECT mentioning a column named
// "created_at" does not trip it because matching is against the full
// keyword; a SELECT hiding "DROP TABLE" in a subclause does, and false
// positives are the accepted cost of never running one.
var blockedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
	"TRUNCATE", "REPLACE", "PRAGMA", "ATTACH", "DETACH",
}

// Guard validates that a statement is read-only: it must start with
// SELECT or WITH and must not contain a blocked keyword anywhere.
func Guard(sqlText string) error {
	clean := strings.ToUpper(strings.TrimSpace(sqlText))
	for _, keyword := range blockedKeywords {
		if strings.Contains(clean, keyword) {
			return fmt.Errorf("%w: %s statements are not allowed", ErrUnsafeStatement, keyword)
		}
	}
	if !strings.HasPrefix(clean, "SELECT") && !strings.HasPrefix(clean, "WITH") {
		return fmt.Errorf("%w: only SELECT and WITH queries are permitted", ErrUnsafeStatement)
	}
	return nil
}

// ExecutionError carries a user-safe message; the raw driver error stays
// in the struct for logging but is never part of Error().
type ExecutionError struct {
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string { return e.Message }

func (e *ExecutionError) Unwrap() error { return e.Cause }

type Executor struct {
	Store  *store.Store
	Logger *slog.Logger
}

func NewExecutor(st *store.Store, logger *slog.Logger) *Executor {
	return &Executor{Store: st, Logger: logger}
}

// Execute runs a statement through the gate and the store. Driver
// errors are sanitized; callers that need the raw cause for logs can
// unwrap the ExecutionError.
func (e *Executor) Execute(ctx context.Context, sqlText string) (store.Rows, error) {
	if err := Guard(sqlText); err != nil {
		return store.Rows{}, err
	}

	rows, err := e.Store.Query(ctx, sqlText)
	if err != nil {
		if e.Logger != nil {
			e.Logger.ErrorContext(ctx, "query execution failed", slog.Any("error", err))
		}
		return store.Rows{}, &ExecutionError{Message: sanitizeError(err), Cause: err}
	}
	return rows, nil
}

// sanitizeError maps driver errors to messages that leak no schema or
// SQL detail beyond what the user already typed.
func sanitizeError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "near"):
		parts := strings.Split(err.Error(), "near")
		return "Query syntax error near " + strings.TrimSpace(parts[len(parts)-1])
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation"),
		strings.Contains(msg, "doesn't exist") && strings.Contains(msg, "table"):
		return "Database table not found. Please check your data structure."
	case strings.Contains(msg, "no such column"),
		strings.Contains(msg, "does not exist") && strings.Contains(msg, "column"),
		strings.Contains(msg, "unknown column"):
		return "Column not found in the database. Please rephrase your question."
	case strings.Contains(msg, "ambiguous"):
		return "Ambiguous column reference. Please be more specific in your question."
	default:
		return "Unable to process your question. Please try rephrasing or asking something simpler."
	}
}
