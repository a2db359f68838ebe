// Package api is the HTTP surface. Handlers receive their dependencies
// through the Dependencies struct so tests can swap in fakes without a
// live store or translator.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/queryloom/queryloom/internal/config"
	"github.com/queryloom/queryloom/internal/exec"
	"github.com/queryloom/queryloom/internal/nl2sql"
	"github.com/queryloom/queryloom/internal/observability"
	"github.com/queryloom/queryloom/internal/schema"
	"github.com/queryloom/queryloom/internal/store"
)

type ReadinessCheck func(ctx context.Context) error

// QuerySynthesizer is what the ask/explain handlers need from the
// synthesis pipeline.
type QuerySynthesizer interface {
	Synthesize(ctx context.Context, question string, history []nl2sql.Turn) (nl2sql.Synthesis, error)
}

// QueryExecutor runs gated statements against the store.
type QueryExecutor interface {
	Execute(ctx context.Context, sqlText string) (store.Rows, error)
}

// SchemaSource serves the schema and relationship endpoints.
type SchemaSource interface {
	GetSchema(ctx context.Context) (schema.Schema, error)
	DetectForeignKeys(ctx context.Context) ([]schema.ForeignKey, error)
}

// TableReader serves preview and stats endpoints.
type TableReader interface {
	Preview(ctx context.Context, tableName string, limit int) (store.Rows, error)
	Stats(ctx context.Context, tableName string) (store.TableStats, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Synthesizer       QuerySynthesizer
	Executor          QueryExecutor
	Schema            SchemaSource
	Tables            TableReader
	PreviewRows       int
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	protected.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/query/translate", func(w http.ResponseWriter, r *http.Request) {
		handleTranslateQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/explain", func(w http.ResponseWriter, r *http.Request) {
		handleExplain(deps, w, r)
	})
	protected.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	protected.HandleFunc("GET /v1/tables/{table}/preview", func(w http.ResponseWriter, r *http.Request) {
		handlePreview(deps, w, r)
	})
	protected.HandleFunc("GET /v1/tables/{table}/stats", func(w http.ResponseWriter, r *http.Request) {
		handleStats(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/ask", protectedHandler)
	mux.Handle("POST /v1/query", protectedHandler)
	mux.Handle("POST /v1/query/translate", protectedHandler)
	mux.Handle("POST /v1/explain", protectedHandler)
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("GET /v1/tables/{table}/preview", protectedHandler)
	mux.Handle("GET /v1/tables/{table}/stats", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckStoreDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Store.DSN == "" {
			return errors.New("store dsn is not configured")
		}
		return nil
	}
}

func CheckStoreHealth(st *store.Store) ReadinessCheck {
	return func(ctx context.Context) error {
		return st.HealthCheck(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

// writeExecutionError maps the gate and sanitized store errors onto the
// error envelope. Unsafe statements are a client error; sanitized
// execution failures keep their safe message and nothing else.
func writeExecutionError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, exec.ErrUnsafeStatement) {
		observability.IncrementBlocked()
		writeError(ctx, w, http.StatusBadRequest, "SQL_NOT_ALLOWED", err.Error(), false, nil)
		return
	}
	var execErr *exec.ExecutionError
	if errors.As(err, &execErr) {
		writeError(ctx, w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", execErr.Message, false, nil)
		return
	}
	writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", "unexpected execution failure", true, nil)
}
