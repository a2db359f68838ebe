package sqlgen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/queryloom/queryloom/internal/intent"
	"github.com/queryloom/queryloom/internal/schema"
	"github.com/queryloom/queryloom/internal/store"
)

// Column-name fragments that usually mean "this column is aggregatable".
var aggregateColumnKeywords = []string{
	"score", "price", "amount", "value", "salary", "revenue", "sales",
	"cost", "total", "quantity", "qty", "count", "number", "rate",
	"balance", "payment", "profit", "discount", "tax", "fee", "charge",
}

var numericColumnKeywords = []string{
	"salary", "price", "amount", "score", "revenue", "cost", "total",
	"value", "age", "quantity", "balance",
}

var sumColumnKeywords = []string{
	"amount", "total", "price", "cost", "revenue", "value", "sales",
}

var showAllStopWords = map[string]bool{
	"show": true, "all": true, "the": true, "list": true, "display": true,
	"get": true, "find": true, "select": true, "students": true,
	"records": true, "rows": true, "entries": true, "data": true,
}

// SingleTable synthesizes SQL for questions that resolve to one table.
// It returns false when no template matches, which sends the question to
// the generative fallback.
func SingleTable(question string, table schema.TableDetail, dialect store.Dialect) (string, bool) {
	q := strings.ToLower(question)
	columns := table.ColumnNames()
	from := Quote(table.Name)

	if sql, ok := averageTemplate(q, table, from); ok {
		return sql, true
	}
	if sql, ok := countTemplate(q, columns, from); ok {
		return sql, true
	}
	if sql, ok := sumTemplate(q, table, from); ok {
		return sql, true
	}
	if sql, ok := betweenTemplate(q, table, from); ok {
		return sql, true
	}
	if sql, ok := comparisonTemplate(q, columns, from); ok {
		return sql, true
	}
	if sql, ok := likePatternTemplate(q, table, from); ok {
		return sql, true
	}
	if sql, ok := dateTemplate(q, columns, from, dialect); ok {
		return sql, true
	}
	if sql, ok := caseTemplate(q, table, from); ok {
		return sql, true
	}
	if sql, ok := valueFilterTemplate(question, table, from); ok {
		return sql, true
	}

	orderBy := detectOrderBy(q, columns, "")
	limit := detectLimit(q)

	showAll := containsAny(q, []string{"show all", "list all", "all"}) &&
		!containsAny(q, []string{"where", "above", "below", "greater", "less", "average", "count"})
	if showAll || ((len(orderBy) > 0 || limit > 0) && !intent.HasComparison(q)) {
		stmt := SelectStatement{From: from, OrderBy: orderBy, Limit: limit}
		return stmt.Render(), true
	}

	return "", false
}

func averageTemplate(q string, table schema.TableDetail, from string) (string, bool) {
	if !strings.Contains(q, "average") && !strings.Contains(q, "avg") {
		return "", false
	}
	columns := table.ColumnNames()

	if strings.Contains(q, " by ") {
		avgColumn := pickAggregateColumn(q, columns)
		groupColumn := pickGroupColumn(q, columns)
		if avgColumn != "" && groupColumn != "" {
			alias := "average_" + avgColumn
			aggExpr := fmt.Sprintf("AVG(%s)", Quote(avgColumn))
			stmt := SelectStatement{
				Columns: []string{Quote(groupColumn), aggExpr + " AS " + Quote(alias)},
				From:    from,
				GroupBy: []string{Quote(groupColumn)},
			}
			if cond, ok := havingCondition(q, aggExpr); ok {
				stmt.Having = append(stmt.Having, cond)
			}
			if containsAny(q, []string{"order", "sort", "highest", "lowest"}) {
				stmt.OrderBy = append(stmt.OrderBy, Quote(alias)+" "+orderDirection(q))
			}
			stmt.Limit = detectLimit(q)
			return stmt.Render(), true
		}
	}

	for _, column := range columns {
		if strings.Contains(q, strings.ToLower(column)) {
			stmt := SelectStatement{
				Columns: []string{fmt.Sprintf("AVG(%s) AS %s", Quote(column), Quote("average_"+column))},
				From:    from,
			}
			return stmt.Render(), true
		}
	}
	return "", false
}

func countTemplate(q string, columns []string, from string) (string, bool) {
	if !containsAny(q, []string{"count", "how many", "number of", "total number"}) {
		return "", false
	}
	if containsAny(q, []string{"where", "above", "below", "average", "sum", "total revenue", "total price"}) {
		return "", false
	}

	if strings.Contains(q, "by") || strings.Contains(q, "group") {
		for _, column := range columns {
			if !strings.Contains(q, strings.ToLower(column)) {
				continue
			}
			stmt := SelectStatement{
				Columns: []string{Quote(column), "COUNT(*) AS " + Quote("count")},
				From:    from,
				GroupBy: []string{Quote(column)},
			}
			if cond, ok := havingCondition(q, "COUNT(*)"); ok {
				stmt.Having = append(stmt.Having, cond)
			}
			if containsAny(q, []string{"order", "sort", "highest", "lowest", "descending", "ascending", "most"}) {
				stmt.OrderBy = append(stmt.OrderBy, Quote("count")+" "+orderDirection(q))
			}
			stmt.Limit = detectLimit(q)
			return stmt.Render(), true
		}
	}

	stmt := SelectStatement{Columns: []string{"COUNT(*) AS " + Quote("total")}, From: from}
	return stmt.Render(), true
}

func sumTemplate(q string, table schema.TableDetail, from string) (string, bool) {
	if !containsAny(q, []string{"total", "revenue", "sum", "combined"}) {
		return "", false
	}
	if containsAny(q, []string{"where", "above", "below", "count", "average"}) {
		return "", false
	}

	var sumColumn string
	for _, column := range table.Columns {
		lower := strings.ToLower(column.Name)
		if !strings.Contains(q, lower) && !containsAny(lower, sumColumnKeywords) && !strings.Contains(lower, "quantity") {
			continue
		}
		if column.IsNumeric() || containsAny(lower, sumColumnKeywords) {
			sumColumn = column.Name
			break
		}
	}
	if sumColumn == "" {
		return "", false
	}

	stmt := SelectStatement{
		Columns: []string{fmt.Sprintf("SUM(%s) AS %s", Quote(sumColumn), Quote("total_"+sumColumn))},
		From:    from,
	}
	return stmt.Render(), true
}

func betweenTemplate(q string, table schema.TableDetail, from string) (string, bool) {
	if !strings.Contains(q, "between") && !strings.Contains(q, "range") {
		return "", false
	}
	numbers := intent.ExtractNumbers(q)
	if len(numbers) < 2 || !ValidNumber(numbers[0]) || !ValidNumber(numbers[1]) {
		return "", false
	}
	column := pickNumericColumn(q, table)
	if column == "" {
		return "", false
	}
	stmt := SelectStatement{
		From:  from,
		Where: []string{fmt.Sprintf("%s BETWEEN %s AND %s", Quote(column), numbers[0], numbers[1])},
	}
	return stmt.Render(), true
}

func comparisonTemplate(q string, columns []string, from string) (string, bool) {
	op, value, ok := intent.DetectComparison(q)
	if !ok || !ValidNumber(value) {
		return "", false
	}

	target := pickComparisonColumn(q, columns)
	if target == "" {
		return "", false
	}

	stmt := SelectStatement{
		From:  from,
		Where: []string{fmt.Sprintf("%s %s %s", Quote(target), op, value)},
	}

	if containsAny(q, []string{"order by", "sort by", "sorted", "highest", "lowest", "top"}) {
		orderColumn := target
		for _, column := range columns {
			if column != target && strings.Contains(q, strings.ToLower(column)) {
				orderColumn = column
				break
			}
		}
		stmt.OrderBy = append(stmt.OrderBy, Quote(orderColumn)+" "+orderDirection(q))
	}
	stmt.Limit = detectLimit(q)
	return stmt.Render(), true
}

var (
	startsWithPattern = regexp.MustCompile(`starts? with ['"]?(\w+)`)
	endsWithPattern   = regexp.MustCompile(`ends? with ['"]?(\w+)`)
	containsPattern   = regexp.MustCompile(`contains? ['"]?(\w+)`)
)

func likePatternTemplate(q string, table schema.TableDetail, from string) (string, bool) {
	var pattern string
	switch {
	case startsWithPattern.MatchString(q):
		word := startsWithPattern.FindStringSubmatch(q)[1]
		pattern = `'` + strings.ReplaceAll(word, `'`, `''`) + `%'`
	case endsWithPattern.MatchString(q):
		word := endsWithPattern.FindStringSubmatch(q)[1]
		pattern = `'%` + strings.ReplaceAll(word, `'`, `''`) + `'`
	case containsPattern.MatchString(q):
		word := containsPattern.FindStringSubmatch(q)[1]
		pattern = LikePattern(word)
	default:
		return "", false
	}

	column := pickTextColumn(q, table)
	if column == "" {
		return "", false
	}
	stmt := SelectStatement{
		From:  from,
		Where: []string{fmt.Sprintf("%s LIKE %s", Quote(column), pattern)},
	}
	return stmt.Render(), true
}

func dateTemplate(q string, columns []string, from string, dialect store.Dialect) (string, bool) {
	phrase, ok := intent.DetectDatePhrase(q)
	if !ok {
		return "", false
	}
	var dateColumn string
	for _, column := range columns {
		if intent.IsDateColumn(column) {
			dateColumn = column
			break
		}
	}
	if dateColumn == "" {
		return "", false
	}
	condition, ok := DateCondition(dialect, Quote(dateColumn), phrase)
	if !ok {
		return "", false
	}
	stmt := SelectStatement{From: from, Where: []string{condition}}
	return stmt.Render(), true
}

func caseTemplate(q string, table schema.TableDetail, from string) (string, bool) {
	if !containsAny(q, []string{"categorize", "classify", "label as", "bucket"}) {
		return "", false
	}
	threshold, ok := intent.ExtractNumber(q)
	if !ok || !ValidNumber(threshold) {
		return "", false
	}
	column := pickNumericColumn(q, table)
	if column == "" {
		return "", false
	}
	upper, err := strconv.ParseFloat(threshold, 64)
	if err != nil {
		return "", false
	}
	caseExpr := fmt.Sprintf(
		"CASE WHEN %s > %s THEN 'High' WHEN %s > %s THEN 'Medium' ELSE 'Low' END AS %s",
		Quote(column), threshold, Quote(column), strconv.FormatFloat(upper/2, 'f', -1, 64), Quote("category"),
	)
	stmt := SelectStatement{Columns: []string{"*", caseExpr}, From: from}
	return stmt.Render(), true
}

func valueFilterTemplate(question string, table schema.TableDetail, from string) (string, bool) {
	q := strings.ToLower(question)
	if !containsAny(q, []string{"show", "list", "display"}) {
		return "", false
	}
	if containsAny(q, []string{"average", "count", "sum"}) {
		return "", false
	}

	samples := tableSamples(table)
	if len(samples) > 0 {
		if column, values, ok := inListMatch(q, question, samples); ok {
			quoted := make([]string, 0, len(values))
			for _, value := range values {
				quoted = append(quoted, QuoteString(value))
			}
			stmt := SelectStatement{
				From:  from,
				Where: []string{fmt.Sprintf("%s IN (%s)", Quote(column), strings.Join(quoted, ", "))},
			}
			return stmt.Render(), true
		}

		if match, ok := intent.MatchValue(question, samples); ok {
			var condition string
			if match.Exact {
				condition = fmt.Sprintf("%s = %s", Quote(match.Column), QuoteString(match.Value))
			} else {
				condition = fmt.Sprintf("%s LIKE %s", Quote(match.Column), LikePattern(match.Value))
			}
			stmt := SelectStatement{From: from, Where: []string{condition}}
			return stmt.Render(), true
		}
	}

	// Column mentioned by name: filter that column on the first word
	// that is not filler.
	for _, column := range table.ColumnNames() {
		lower := strings.ToLower(column)
		if !strings.Contains(q, lower) {
			continue
		}
		for _, word := range intent.QuestionWords(question) {
			if showAllStopWords[word] || word == lower || len(word) <= 2 {
				continue
			}
			stmt := SelectStatement{
				From:  from,
				Where: []string{fmt.Sprintf("%s LIKE %s", Quote(column), LikePattern(word))},
			}
			return stmt.Render(), true
		}
	}
	return "", false
}

// inListMatch finds "either X or Y" style questions naming two or more
// sampled values from the same column.
func inListMatch(q, question string, samples []intent.SampleValue) (string, []string, bool) {
	if !containsAny(q, []string{"one of", "either", "any of"}) {
		return "", nil, false
	}
	byColumn := map[string][]string{}
	seen := map[string]bool{}
	for _, word := range intent.QuestionWords(question) {
		if len(word) <= 2 {
			continue
		}
		for _, sample := range samples {
			if strings.EqualFold(word, sample.Value) && !seen[sample.Column+"\x00"+sample.Value] {
				byColumn[sample.Column] = append(byColumn[sample.Column], sample.Value)
				seen[sample.Column+"\x00"+sample.Value] = true
			}
		}
	}
	for column, values := range byColumn {
		if len(values) >= 2 {
			return column, values, true
		}
	}
	return "", nil, false
}

func tableSamples(table schema.TableDetail) []intent.SampleValue {
	var samples []intent.SampleValue
	for _, column := range table.Columns {
		for _, value := range column.Samples {
			samples = append(samples, intent.SampleValue{Column: column.Name, Value: value})
		}
	}
	return samples
}

func pickAggregateColumn(q string, columns []string) string {
	for _, column := range columns {
		lower := strings.ToLower(column)
		if strings.Contains(q, lower) && containsAny(lower, aggregateColumnKeywords) {
			return column
		}
	}
	for _, keyword := range aggregateColumnKeywords {
		if !strings.Contains(q, keyword) {
			continue
		}
		for _, column := range columns {
			if strings.Contains(strings.ToLower(column), keyword) {
				return column
			}
		}
	}
	return ""
}

func pickGroupColumn(q string, columns []string) string {
	byIndex := strings.Index(q, " by ")
	if byIndex < 0 {
		return ""
	}
	afterBy := strings.TrimSpace(q[byIndex+4:])
	for _, column := range columns {
		if strings.Contains(afterBy, strings.ToLower(column)) {
			return column
		}
	}
	return ""
}

func pickComparisonColumn(q string, columns []string) string {
	for _, column := range columns {
		lower := strings.ToLower(column)
		if strings.Contains(q, lower) && containsAny(lower, numericColumnKeywords) {
			return column
		}
	}
	for _, column := range columns {
		if containsAny(strings.ToLower(column), numericColumnKeywords) {
			return column
		}
	}
	for _, column := range columns {
		if strings.Contains(q, strings.ToLower(column)) {
			return column
		}
	}
	return ""
}

func pickNumericColumn(q string, table schema.TableDetail) string {
	for _, column := range table.Columns {
		lower := strings.ToLower(column.Name)
		if strings.Contains(q, lower) && (column.IsNumeric() || containsAny(lower, numericColumnKeywords)) {
			return column.Name
		}
	}
	for _, column := range table.Columns {
		if column.IsNumeric() || containsAny(strings.ToLower(column.Name), numericColumnKeywords) {
			return column.Name
		}
	}
	return ""
}

func pickTextColumn(q string, table schema.TableDetail) string {
	for _, column := range table.Columns {
		if strings.Contains(q, strings.ToLower(column.Name)) && !column.IsNumeric() {
			return column.Name
		}
	}
	for _, column := range table.Columns {
		if !column.IsNumeric() && !strings.EqualFold(column.Name, "id") {
			return column.Name
		}
	}
	return ""
}

func havingCondition(q, aggExpr string) (string, bool) {
	if !containsAny(q, []string{"having", "greater", "more", "above", "less", "below", "at least", "at most", "exactly", "equal"}) {
		return "", false
	}
	value, ok := intent.ExtractNumber(q)
	if !ok || !ValidNumber(value) {
		return "", false
	}
	switch {
	case containsAny(q, []string{"greater", "more", "above", ">", "at least"}):
		return fmt.Sprintf("%s > %s", aggExpr, value), true
	case containsAny(q, []string{"less", "below", "<", "at most"}):
		return fmt.Sprintf("%s < %s", aggExpr, value), true
	case containsAny(q, []string{"equal", "exactly", "="}):
		return fmt.Sprintf("%s = %s", aggExpr, value), true
	}
	return "", false
}

func detectOrderBy(q string, columns []string, exclude string) []string {
	if !containsAny(q, []string{"order by", "sort by", "sorted by", "arrange by", "sorted", "order"}) {
		return nil
	}
	direction := orderDirection(q)
	for _, column := range columns {
		if column == exclude {
			continue
		}
		lower := strings.ToLower(column)
		if strings.Contains(q, lower) || strings.Contains(q, strings.ReplaceAll(lower, "_", " ")) {
			return []string{Quote(column) + " " + direction}
		}
	}
	return nil
}

func orderDirection(q string) string {
	if containsAny(q, []string{"desc", "highest", "largest", "top", "most", "descending"}) {
		return "DESC"
	}
	return "ASC"
}

func detectLimit(q string) int {
	raw, ok := intent.ExtractLimit(q)
	if !ok || !ValidInteger(raw) {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}

func containsAny(haystack string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}
