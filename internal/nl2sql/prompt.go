package nl2sql

import (
	"fmt"
	"strings"

	"github.com/queryloom/queryloom/internal/sqlgen"
)

const maxHistoryTurns = 3

const systemPrompt = "You convert natural language questions into a single read-only SQL query. " +
	"Use table and column names EXACTLY as listed. Never use the word \"table\" as a placeholder. " +
	"Return ONLY SQL. No markdown, no explanation."

// BuildUserPrompt renders the schema, recent conversation and few-shot
// examples for the chat completion. Examples use the database's actual
// column names; generic examples make small models emit placeholder
// identifiers that Repair then has to throw away.
func BuildUserPrompt(req Request) string {
	var b strings.Builder

	if block := historyBlock(req.History); block != "" {
		b.WriteString(block)
		b.WriteString("\n")
	}

	if len(req.Tables) > 0 {
		primary := req.Tables[0]
		fmt.Fprintf(&b, "Primary Table: %s has columns: %s\n",
			sqlgen.Quote(primary.TableName), columnDetail(primary))
	}
	if len(req.Tables) > 1 {
		b.WriteString("\nAvailable Tables:\n")
		for _, table := range req.Tables {
			names := make([]string, 0, len(table.Columns))
			for _, column := range table.Columns {
				names = append(names, sqlgen.Quote(column.Name))
			}
			fmt.Fprintf(&b, "- %s: %s\n", sqlgen.Quote(table.TableName), strings.Join(names, ", "))
		}
	}
	if len(req.Relationships) > 0 {
		b.WriteString("\nTable Relationships:\n")
		for _, rel := range req.Relationships {
			b.WriteString("- " + rel + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(fewShotExamples(req))

	b.WriteString("\nRules:\n")
	b.WriteString("- Use correct SQL syntax with parentheses for aggregations: SUM(column), AVG(column), COUNT(*).\n")
	b.WriteString("- Do NOT add WHERE clauses unless the question explicitly requests filtering.\n")
	b.WriteString("- For JOIN queries, use the relationships listed above to connect tables.\n")
	b.WriteString("- Output a single SQL query only.\n")

	fmt.Fprintf(&b, "\nQuestion: %s\nSQL:", strings.TrimSpace(req.Question))
	return b.String()
}

func historyBlock(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	var lines []string
	for _, turn := range history {
		if turn.Question != "" {
			lines = append(lines, "Prev Q: "+turn.Question)
		}
		if turn.Answer != "" {
			lines = append(lines, "Prev A: "+turn.Answer)
		}
	}
	return strings.Join(lines, "\n")
}

func columnDetail(table TableContext) string {
	parts := make([]string, 0, len(table.Columns))
	for _, column := range table.Columns {
		part := sqlgen.Quote(column.Name) + " " + column.Type
		if len(column.Samples) > 0 {
			samples := column.Samples
			if len(samples) > 2 {
				samples = samples[:2]
			}
			part += fmt.Sprintf(" (e.g. %s)", strings.Join(samples, ", "))
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func fewShotExamples(req Request) string {
	if len(req.Tables) == 0 {
		return ""
	}
	primary := req.Tables[0]
	quotedTable := sqlgen.Quote(primary.TableName)

	exampleColumn := "id"
	if len(primary.Columns) > 0 {
		exampleColumn = primary.Columns[0].Name
	}
	numericColumn := exampleColumn
	for _, column := range primary.Columns {
		if isNumericType(column.Type) {
			numericColumn = column.Name
			break
		}
	}

	var b strings.Builder
	b.WriteString("Examples with ACTUAL column names:\n")
	fmt.Fprintf(&b, "Q: Show all records\nA: SELECT * FROM %s\n\n", quotedTable)
	fmt.Fprintf(&b, "Q: Count by %s\nA: SELECT %s, COUNT(*) FROM %s GROUP BY %s\n\n",
		exampleColumn, sqlgen.Quote(exampleColumn), quotedTable, sqlgen.Quote(exampleColumn))
	fmt.Fprintf(&b, "Q: Total %s\nA: SELECT SUM(%s) FROM %s\n\n",
		numericColumn, sqlgen.Quote(numericColumn), quotedTable)
	fmt.Fprintf(&b, "Q: Where %s above 90\nA: SELECT * FROM %s WHERE %s > 90\n",
		numericColumn, quotedTable, sqlgen.Quote(numericColumn))
	return b.String()
}

func isNumericType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "integer", "int", "bigint", "real", "numeric", "decimal", "float", "double":
		return true
	}
	return false
}
