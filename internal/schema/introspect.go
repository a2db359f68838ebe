package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/queryloom/queryloom/internal/store"
)

const (
	// DefaultSampleLimit caps distinct values fetched per column.
	DefaultSampleLimit = 50
	// maxSampleBytes truncates oversized sampled values.
	maxSampleBytes = 256
)

// Introspector derives Schema, EnhancedSchema and foreign keys from a
// live store. Derivation is stateless and idempotent: the same store
// state always yields the same result, so callers may re-run it per
// request.
type Introspector struct {
	Store       *store.Store
	Logger      *slog.Logger
	SampleLimit int
}

func NewIntrospector(st *store.Store, logger *slog.Logger) *Introspector {
	return &Introspector{Store: st, Logger: logger, SampleLimit: DefaultSampleLimit}
}

// GetSchema lists every table with its columns in declaration order.
// A table whose columns cannot be read is recorded with an empty column
// list; only a failure to list tables at all is fatal.
func (i *Introspector) GetSchema(ctx context.Context) (Schema, error) {
	tables, err := i.listTables(ctx)
	if err != nil {
		return Schema{}, fmt.Errorf("list tables: %w", err)
	}

	result := Schema{Tables: make([]Table, 0, len(tables))}
	for _, name := range tables {
		columns, err := i.listColumns(ctx, name)
		if err != nil {
			i.warn(ctx, "introspect columns failed", name, err)
			result.Tables = append(result.Tables, Table{Name: name})
			continue
		}
		names := make([]string, 0, len(columns))
		for _, column := range columns {
			names = append(names, column.Name)
		}
		result.Tables = append(result.Tables, Table{Name: name, Columns: names})
	}
	return result, nil
}

// GetEnhancedSchema additionally fetches declared types and up to
// SampleLimit distinct non-null values per column.
func (i *Introspector) GetEnhancedSchema(ctx context.Context) (EnhancedSchema, error) {
	tables, err := i.listTables(ctx)
	if err != nil {
		return EnhancedSchema{}, fmt.Errorf("list tables: %w", err)
	}

	result := EnhancedSchema{Tables: make([]TableDetail, 0, len(tables))}
	for _, name := range tables {
		columns, err := i.listColumns(ctx, name)
		if err != nil {
			i.warn(ctx, "introspect columns failed", name, err)
			result.Tables = append(result.Tables, TableDetail{Name: name})
			continue
		}
		detail := TableDetail{Name: name, Columns: make([]ColumnDetail, 0, len(columns))}
		for _, column := range columns {
			column.Samples = i.sampleColumn(ctx, name, column.Name)
			detail.Columns = append(detail.Columns, column)
		}
		result.Tables = append(result.Tables, detail)
	}
	return result, nil
}

// DetectForeignKeys merges declared constraints with naming-convention
// edges. Explicit edges win over heuristic ones for the same
// (from_table, from_column) pair.
func (i *Introspector) DetectForeignKeys(ctx context.Context) ([]ForeignKey, error) {
	sch, err := i.GetSchema(ctx)
	if err != nil {
		return nil, err
	}

	explicit := make([]ForeignKey, 0)
	for _, table := range sch.Tables {
		keys, err := i.listForeignKeys(ctx, table.Name)
		if err != nil {
			i.warn(ctx, "introspect foreign keys failed", table.Name, err)
			continue
		}
		explicit = append(explicit, keys...)
	}

	return append(explicit, InferHeuristicKeys(sch, explicit)...), nil
}

func (i *Introspector) sampleLimit() int {
	if i.SampleLimit > 0 {
		return i.SampleLimit
	}
	return DefaultSampleLimit
}

func (i *Introspector) warn(ctx context.Context, msg, table string, err error) {
	if i.Logger != nil {
		i.Logger.WarnContext(ctx, msg, slog.String("table", table), slog.Any("error", err))
	}
}

func (i *Introspector) listTables(ctx context.Context) ([]string, error) {
	var query string
	switch i.Store.Dialect() {
	case store.DialectPostgres:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	case store.DialectMySQL:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	default:
		query = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
	}

	rows, err := i.Store.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (i *Introspector) listColumns(ctx context.Context, tableName string) ([]ColumnDetail, error) {
	switch i.Store.Dialect() {
	case store.DialectPostgres:
		return i.scanColumnRows(ctx, `SELECT column_name, COALESCE(data_type, '')
			FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1
			ORDER BY ordinal_position`, tableName)
	case store.DialectMySQL:
		return i.scanColumnRows(ctx, `SELECT column_name, COALESCE(data_type, '')
			FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`, tableName)
	default:
		return i.sqliteColumns(ctx, tableName)
	}
}

func (i *Introspector) scanColumnRows(ctx context.Context, query, tableName string) ([]ColumnDetail, error) {
	rows, err := i.Store.DB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []ColumnDetail
	for rows.Next() {
		var name, declaredType string
		if err := rows.Scan(&name, &declaredType); err != nil {
			return nil, err
		}
		columns = append(columns, ColumnDetail{Name: name, Type: normalizeType(declaredType)})
	}
	return columns, rows.Err()
}

func (i *Introspector) sqliteColumns(ctx context.Context, tableName string) ([]ColumnDetail, error) {
	rows, err := i.Store.DB().QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quotePragmaIdent(tableName)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []ColumnDetail
	for rows.Next() {
		var cid, notNull, pk int
		var name, declaredType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &declaredType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, ColumnDetail{Name: name, Type: normalizeType(declaredType)})
	}
	return columns, rows.Err()
}

func (i *Introspector) listForeignKeys(ctx context.Context, tableName string) ([]ForeignKey, error) {
	switch i.Store.Dialect() {
	case store.DialectPostgres:
		return i.scanForeignKeyRows(ctx, `SELECT kcu.column_name, ccu.table_name, ccu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
			JOIN information_schema.constraint_column_usage ccu
				ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
			WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = 'public' AND tc.table_name = $1`, tableName)
	case store.DialectMySQL:
		return i.scanForeignKeyRows(ctx, `SELECT column_name, referenced_table_name, referenced_column_name
			FROM information_schema.key_column_usage
			WHERE table_schema = DATABASE() AND table_name = ? AND referenced_table_name IS NOT NULL`, tableName)
	default:
		return i.sqliteForeignKeys(ctx, tableName)
	}
}

func (i *Introspector) scanForeignKeyRows(ctx context.Context, query, tableName string) ([]ForeignKey, error) {
	rows, err := i.Store.DB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []ForeignKey
	for rows.Next() {
		var fromColumn, toTable, toColumn string
		if err := rows.Scan(&fromColumn, &toTable, &toColumn); err != nil {
			return nil, err
		}
		keys = append(keys, ForeignKey{
			FromTable:  tableName,
			FromColumn: fromColumn,
			ToTable:    toTable,
			ToColumn:   toColumn,
		})
	}
	return keys, rows.Err()
}

func (i *Introspector) sqliteForeignKeys(ctx context.Context, tableName string) ([]ForeignKey, error) {
	rows, err := i.Store.DB().QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quotePragmaIdent(tableName)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []ForeignKey
	for rows.Next() {
		var id, seq int
		var toTable, fromColumn string
		var toColumn sql.NullString
		var onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &toTable, &fromColumn, &toColumn, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		key := ForeignKey{
			FromTable:  tableName,
			FromColumn: fromColumn,
			ToTable:    toTable,
			ToColumn:   "id",
		}
		if toColumn.Valid && toColumn.String != "" {
			key.ToColumn = toColumn.String
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// sampleColumn fetches distinct non-null values as text. Sampling is
// strictly best-effort: any failure yields an empty sample set.
func (i *Introspector) sampleColumn(ctx context.Context, tableName, columnName string) []string {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s LIMIT %d",
		quotePragmaIdent(columnName), quotePragmaIdent(tableName), i.sampleLimit())
	rows, err := i.Store.DB().QueryContext(ctx, query)
	if err != nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	var samples []string
	for rows.Next() {
		var value any
		if err := rows.Scan(&value); err != nil {
			return samples
		}
		if value == nil {
			continue
		}
		text := toText(value)
		if len(text) > maxSampleBytes {
			text = text[:maxSampleBytes]
		}
		samples = append(samples, text)
	}
	return samples
}

func toText(value any) string {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func normalizeType(declaredType string) string {
	normalized := strings.ToLower(strings.TrimSpace(declaredType))
	if normalized == "" {
		return "text"
	}
	return normalized
}

// quotePragmaIdent mirrors sqlgen.Quote without importing it; the schema
// package sits below sqlgen in the dependency order.
func quotePragmaIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
