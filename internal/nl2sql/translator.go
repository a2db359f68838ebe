// Package nl2sql turns natural-language questions into SQL. Template
// synthesis is attempted first; a generative translator is the fallback
// for questions no template matches, and its output always passes
// through Repair before anything downstream sees it.
package nl2sql

import "context"

type ColumnContext struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Samples []string `json:"samples,omitempty"`
}

type TableContext struct {
	TableName string          `json:"table_name"`
	Columns   []ColumnContext `json:"columns"`
}

// Turn is one prior question/answer pair carried into the prompt so
// follow-up questions resolve against recent context.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Request struct {
	Question string `json:"question"`
	History  []Turn `json:"history,omitempty"`
	// Tables lists every table with types and sampled values; the first
	// entry is the primary table the question most likely targets.
	Tables []TableContext `json:"tables"`
	// Relationships renders foreign keys as "orders.customer_id ->
	// customers.id" lines for the prompt.
	Relationships []string `json:"relationships,omitempty"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
