package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/queryloom/queryloom/internal/intent"
	"github.com/queryloom/queryloom/internal/schema"
	"github.com/queryloom/queryloom/internal/sqlgen"
)

// Kind records which synthesis stage produced a statement. The pipeline
// is ordered from most to least structured; observability counts hits
// per kind so template coverage regressions are visible.
type Kind string

const (
	KindWindow    Kind = "window"
	KindSubquery  Kind = "subquery"
	KindJoin      Kind = "join"
	KindTemplate  Kind = "template"
	KindGenerated Kind = "generated"
	KindDegraded  Kind = "degraded"
)

type Synthesis struct {
	SQL      string
	Kind     Kind
	Tables   []string
	Repaired bool
	Provider string
	Model    string
}

// Synthesizer runs the full pipeline: introspect, detect the target
// tables, try each template family, then fall back to the generative
// translator. It never returns raw model output: generated SQL is
// always repaired against the live schema first.
type Synthesizer struct {
	Introspector *schema.Introspector
	Translator   Translator
	Logger       *slog.Logger
}

func NewSynthesizer(introspector *schema.Introspector, translator Translator, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{Introspector: introspector, Translator: translator, Logger: logger}
}

func (s *Synthesizer) Synthesize(ctx context.Context, question string, history []Turn) (Synthesis, error) {
	sch, err := s.Introspector.GetSchema(ctx)
	if err != nil {
		return Synthesis{}, fmt.Errorf("introspect schema: %w", err)
	}
	if sch.Empty() {
		return Synthesis{}, schema.ErrSchemaUnavailable
	}

	enhanced, err := s.Introspector.GetEnhancedSchema(ctx)
	if err != nil {
		s.logWarn(ctx, "enhanced schema unavailable", err)
		enhanced = schema.EnhancedSchema{}
	}
	keys, err := s.Introspector.DetectForeignKeys(ctx)
	if err != nil {
		s.logWarn(ctx, "foreign key detection failed", err)
	}
	graph := schema.BuildGraph(keys)

	mentioned := MentionedTables(question, sch)
	primary := sch.Tables[0].Name
	if len(mentioned) > 0 {
		primary = mentioned[0]
	}
	primaryDetail := detailFor(primary, enhanced, sch)
	dialect := s.Introspector.Store.Dialect()

	if sql, ok := sqlgen.WindowQuery(question, primaryDetail); ok {
		return Synthesis{SQL: sqlgen.Optimize(sql), Kind: KindWindow, Tables: []string{primary}}, nil
	}

	subqueryTables := mentioned
	if len(subqueryTables) == 0 {
		subqueryTables = []string{primary}
	}
	if sql, ok := sqlgen.SubqueryQuery(question, enhanced, graph, subqueryTables); ok {
		return Synthesis{SQL: sqlgen.Optimize(sql), Kind: KindSubquery, Tables: subqueryTables}, nil
	}

	multiTable, related := relatedTables(question, mentioned, sch, graph)
	if multiTable {
		if sql, ok := sqlgen.JoinQuery(question, enhanced, graph, related); ok {
			return Synthesis{SQL: sql, Kind: KindJoin, Tables: related}, nil
		}
	} else {
		if sql, ok := sqlgen.SingleTable(question, primaryDetail, dialect); ok {
			return Synthesis{SQL: sql, Kind: KindTemplate, Tables: []string{primary}}, nil
		}
	}

	return s.fallback(ctx, question, history, primary, sch, enhanced, keys, multiTable)
}

func (s *Synthesizer) fallback(ctx context.Context, question string, history []Turn, primary string, sch schema.Schema, enhanced schema.EnhancedSchema, keys []schema.ForeignKey, multiTable bool) (Synthesis, error) {
	degraded := Synthesis{
		SQL:    "SELECT * FROM " + sqlgen.Quote(primary),
		Kind:   KindDegraded,
		Tables: []string{primary},
	}
	if s.Translator == nil {
		return degraded, nil
	}

	req := Request{
		Question:      question,
		History:       history,
		Tables:        tableContexts(primary, sch, enhanced),
		Relationships: relationshipLines(keys),
	}
	result, err := s.Translator.Translate(ctx, req)
	if err != nil {
		s.logWarn(ctx, "generative translation failed", err)
		return degraded, nil
	}

	repaired := Repair(result.SQL, primary, sch, multiTable)
	return Synthesis{
		SQL:      repaired,
		Kind:     KindGenerated,
		Tables:   []string{primary},
		Repaired: repaired != strings.TrimSpace(result.SQL),
		Provider: result.Provider,
		Model:    result.Model,
	}, nil
}

// table-name prefixes stripped before matching question words, so
// "show students" finds a table named sample_students.
var tablePrefixes = []string{"sample_", "tbl_", "tb_"}

// MentionedTables finds every table a question refers to, in schema
// order: exact substring first, then prefix-stripped, fuzzy word and
// singular/plural matching.
func MentionedTables(question string, sch schema.Schema) []string {
	q := strings.ToLower(question)
	words := intent.QuestionWords(question)

	var mentioned []string
	for _, table := range sch.Tables {
		lower := strings.ToLower(table.Name)
		if strings.Contains(q, lower) {
			mentioned = append(mentioned, table.Name)
			continue
		}

		base := lower
		for _, prefix := range tablePrefixes {
			if strings.HasPrefix(base, prefix) {
				base = strings.TrimPrefix(base, prefix)
				break
			}
		}
		if strings.Contains(q, base) {
			mentioned = append(mentioned, table.Name)
			continue
		}

		matched := false
		for _, word := range words {
			if len(word) >= 3 && intent.FuzzyMatch(word, base) {
				mentioned = append(mentioned, table.Name)
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if strings.HasSuffix(base, "s") {
			if strings.Contains(q, strings.TrimSuffix(base, "s")) {
				mentioned = append(mentioned, table.Name)
			}
		} else if strings.Contains(q, base+"s") {
			mentioned = append(mentioned, table.Name)
		}
	}
	return mentioned
}

// relatedTables decides whether the question spans multiple tables and
// which ones. A single mentioned table still becomes a join when the
// question names a column of a related table, or asks to combine data
// and a relationship exists.
func relatedTables(question string, mentioned []string, sch schema.Schema, graph *schema.Graph) (bool, []string) {
	q := strings.ToLower(question)

	if len(mentioned) > 1 {
		related := mentioned
		if len(related) > 3 {
			related = related[:3]
		}
		return true, related
	}
	if len(mentioned) != 1 {
		return false, nil
	}

	primary := mentioned[0]
	for _, edge := range graph.Neighbors(primary) {
		target, ok := sch.Table(edge.To)
		if !ok {
			continue
		}
		for _, column := range target.Columns {
			if strings.Contains(q, strings.ToLower(column)) {
				return true, []string{primary, target.Name}
			}
		}
	}

	if containsAnyPhrase(q, []string{"with", "including", "from both", "together", "combined"}) {
		if neighbors := graph.Neighbors(primary); len(neighbors) > 0 {
			return true, []string{primary, neighbors[0].To}
		}
	}
	return false, nil
}

func detailFor(table string, enhanced schema.EnhancedSchema, sch schema.Schema) schema.TableDetail {
	if detail, ok := enhanced.Table(table); ok && len(detail.Columns) > 0 {
		return detail
	}
	detail := schema.TableDetail{Name: table}
	for _, column := range sch.Columns(table) {
		detail.Columns = append(detail.Columns, schema.ColumnDetail{Name: column, Type: "text"})
	}
	return detail
}

// tableContexts puts the primary table first so the prompt's few-shot
// examples use its columns.
func tableContexts(primary string, sch schema.Schema, enhanced schema.EnhancedSchema) []TableContext {
	ordered := make([]string, 0, len(sch.Tables))
	ordered = append(ordered, primary)
	for _, table := range sch.Tables {
		if !strings.EqualFold(table.Name, primary) {
			ordered = append(ordered, table.Name)
		}
	}

	contexts := make([]TableContext, 0, len(ordered))
	for _, name := range ordered {
		detail := detailFor(name, enhanced, sch)
		tc := TableContext{TableName: detail.Name}
		for _, column := range detail.Columns {
			samples := column.Samples
			if len(samples) > 2 {
				samples = samples[:2]
			}
			tc.Columns = append(tc.Columns, ColumnContext{Name: column.Name, Type: column.Type, Samples: samples})
		}
		contexts = append(contexts, tc)
	}
	return contexts
}

func relationshipLines(keys []schema.ForeignKey) []string {
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("%s.%s -> %s.%s", key.FromTable, key.FromColumn, key.ToTable, key.ToColumn))
	}
	return lines
}

func containsAnyPhrase(haystack string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}

func (s *Synthesizer) logWarn(ctx context.Context, msg string, err error) {
	if s.Logger != nil {
		s.Logger.WarnContext(ctx, msg, slog.Any("error", err))
	}
}
