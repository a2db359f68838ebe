package nl2sql

import (
	"regexp"
	"strings"

	"github.com/queryloom/queryloom/internal/schema"
	"github.com/queryloom/queryloom/internal/sqlgen"
)

var (
	fromTablePlaceholder = regexp.MustCompile(`(?i)\bFROM\s+table\b`)
	selectListPattern    = regexp.MustCompile(`(?is)SELECT\s+(.*?)\s+FROM`)
	joinPattern          = regexp.MustCompile(`(?i)\bJOIN\b`)
	wherePattern         = regexp.MustCompile(`(?is)WHERE\s+(.+?)(?:ORDER|GROUP|LIMIT|$)`)
	wordPattern          = regexp.MustCompile(`\b\w+\b`)
)

// SQL keywords allowed in a generated SELECT list alongside the known
// column names.
var selectKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "COUNT": true,
	"AVG": true, "SUM": true, "MAX": true, "MIN": true,
	"AS": true, "DISTINCT": true, "BY": true, "GROUP": true,
}

// Leading tokens small models emit around SQL. Prefix artifacts are
// stripped; the rest truncate the statement where they first appear.
var prefixArtifacts = []string{"A:", "SQL:", "|", "table:", "Table:", "CREATE TABLE", "col ="}

var prefixOnlyArtifacts = map[string]bool{"|": true, "A:": true, "SQL:": true}

// Repair rewrites generated SQL so it only references the known schema.
// It strips generation artifacts, substitutes the literal placeholder
// "table", and falls back to SELECT * over the primary table (keeping a
// parseable WHERE clause) when the SELECT list mentions unknown names.
// Repair is idempotent: repaired output passes through unchanged.
func Repair(sql, primaryTable string, sch schema.Schema, multiTable bool) string {
	quotedTable := sqlgen.Quote(primaryTable)

	validColumns := map[string]bool{}
	validTables := map[string]bool{strings.ToLower(primaryTable): true}
	for _, column := range sch.Columns(primaryTable) {
		validColumns[strings.ToLower(column)] = true
	}
	if multiTable {
		for _, table := range sch.Tables {
			validTables[strings.ToLower(table.Name)] = true
			for _, column := range table.Columns {
				validColumns[strings.ToLower(column)] = true
			}
		}
	}

	sql = strings.TrimSpace(sql)
	for _, artifact := range prefixArtifacts {
		if strings.HasPrefix(sql, artifact) {
			sql = strings.TrimSpace(sql[len(artifact):])
		}
		if !prefixOnlyArtifacts[artifact] && strings.Contains(sql, artifact) {
			sql = strings.TrimSpace(strings.SplitN(sql, artifact, 2)[0])
		}
	}

	sql = fromTablePlaceholder.ReplaceAllString(sql, "FROM "+quotedTable)

	if match := selectListPattern.FindStringSubmatch(sql); match != nil {
		list := strings.TrimSpace(match[1])
		if list != "*" && list != "COUNT(*)" && !joinPattern.MatchString(sql) {
			if selectListInvalid(list, validColumns, validTables) {
				if whereMatch := wherePattern.FindStringSubmatch(sql); whereMatch != nil {
					sql = "SELECT * FROM " + quotedTable + " WHERE " + strings.TrimSpace(whereMatch[1])
				} else {
					sql = "SELECT * FROM " + quotedTable
				}
			}
		}
	}

	upper := strings.ToUpper(sql)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		sql = "SELECT * FROM " + quotedTable
	}
	return sql
}

func selectListInvalid(list string, validColumns, validTables map[string]bool) bool {
	for _, word := range wordPattern.FindAllString(list, -1) {
		if selectKeywords[strings.ToUpper(word)] {
			continue
		}
		if !validColumns[strings.ToLower(word)] && !validTables[strings.ToLower(word)] {
			return true
		}
	}
	return false
}
