package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavor spoken by a connected store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// Store is a handle to the relational database queries are synthesized
// against. It is read-only by contract: nothing in this package issues
// writes, and callers go through the safety gate before executing SQL.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("store dsn is required")
	}
	dialect, driverName, err := resolveDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	return &Store{db: db, dialect: dialect}, nil
}

// NewWithDB wraps an already-open database handle. Used by tests and by
// callers that manage the connection lifecycle themselves.
func NewWithDB(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func resolveDriver(driver string) (Dialect, string, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(driver))) {
	case DialectSQLite, "":
		return DialectSQLite, "sqlite", nil
	case DialectPostgres:
		return DialectPostgres, "pgx", nil
	case DialectMySQL:
		// Synthesized SQL uses double-quoted identifiers, so MySQL DSNs
		// must enable ANSI_QUOTES (e.g. ?sql_mode=%27ANSI_QUOTES%27).
		return DialectMySQL, "mysql", nil
	default:
		return "", "", fmt.Errorf("unsupported store driver %q", driver)
	}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type Rows struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Query runs the given statement and materializes every row with column
// values normalized to plain Go values ([]byte becomes string).
func (s *Store) Query(ctx context.Context, sqlText string) (Rows, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return Rows{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return Rows{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Rows{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Rows{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Rows{}, fmt.Errorf("iterate rows: %w", err)
	}

	return Rows{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// Preview returns the first few rows of a table.
func (s *Store) Preview(ctx context.Context, tableName string, limit int) (Rows, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(tableName), limit))
}

type TableStats struct {
	TableName   string
	RowCount    int64
	ColumnCount int
}

func (s *Store) Stats(ctx context.Context, tableName string) (TableStats, error) {
	stats := TableStats{TableName: tableName}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(tableName)))
	if err := row.Scan(&stats.RowCount); err != nil {
		return TableStats{}, fmt.Errorf("count rows for %q: %w", tableName, err)
	}

	result, err := s.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 1", quoteIdent(tableName)))
	if err != nil {
		return TableStats{}, fmt.Errorf("inspect columns for %q: %w", tableName, err)
	}
	stats.ColumnCount = len(result.Columns)
	return stats, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
