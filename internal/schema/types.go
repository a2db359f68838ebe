package schema

import (
	"errors"
	"strings"
)

// ErrSchemaUnavailable is returned when introspection finds no tables at
// all. Partial failures (single unreadable table) do not trigger it.
var ErrSchemaUnavailable = errors.New("schema: no tables available")

// Schema is the minimal shape of a database: table names with their
// columns in declaration order. Names are opaque strings and may contain
// spaces or reserved words; they must always go through sqlgen.Quote
// before appearing in a statement.
type Schema struct {
	Tables []Table
}

type Table struct {
	Name    string
	Columns []string
}

func (s Schema) Empty() bool {
	return len(s.Tables) == 0
}

func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, table := range s.Tables {
		names = append(names, table.Name)
	}
	return names
}

// Table looks a table up by name, case-insensitively.
func (s Schema) Table(name string) (Table, bool) {
	for _, table := range s.Tables {
		if strings.EqualFold(table.Name, name) {
			return table, true
		}
	}
	return Table{}, false
}

func (s Schema) Columns(name string) []string {
	table, ok := s.Table(name)
	if !ok {
		return nil
	}
	return table.Columns
}

// EnhancedSchema carries declared types and sampled values per column.
// Samples are hints for value-aware filtering and prompts, never ground
// truth for typing.
type EnhancedSchema struct {
	Tables []TableDetail
}

type TableDetail struct {
	Name    string
	Columns []ColumnDetail
}

type ColumnDetail struct {
	Name string
	// Type is the declared column type, lower-cased; "text" when the
	// store did not report one.
	Type string
	// Samples holds up to SampleLimit distinct non-null values as text.
	Samples []string
}

func (e EnhancedSchema) Table(name string) (TableDetail, bool) {
	for _, table := range e.Tables {
		if strings.EqualFold(table.Name, name) {
			return table, true
		}
	}
	return TableDetail{}, false
}

func (t TableDetail) Column(name string) (ColumnDetail, bool) {
	for _, column := range t.Columns {
		if strings.EqualFold(column.Name, name) {
			return column, true
		}
	}
	return ColumnDetail{}, false
}

func (t TableDetail) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, column := range t.Columns {
		names = append(names, column.Name)
	}
	return names
}

var numericTypes = map[string]bool{
	"integer": true,
	"int":     true,
	"bigint":  true,
	"real":    true,
	"numeric": true,
	"decimal": true,
	"float":   true,
	"double":  true,
}

func (c ColumnDetail) IsNumeric() bool {
	base := c.Type
	if idx := strings.IndexAny(base, "( "); idx > 0 {
		base = base[:idx]
	}
	return numericTypes[strings.ToLower(base)]
}

// ForeignKey is one edge of the relationship graph. Heuristic edges come
// from naming conventions rather than declared constraints and are
// lower-confidence by definition.
type ForeignKey struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
	Heuristic  bool
}
