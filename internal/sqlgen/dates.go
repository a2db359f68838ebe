package sqlgen

import (
	"fmt"

	"github.com/queryloom/queryloom/internal/intent"
	"github.com/queryloom/queryloom/internal/store"
)

// DateCondition renders a relative date phrase as a store-native WHERE
// condition on the given (already quoted) column expression.
func DateCondition(dialect store.Dialect, column string, phrase intent.DatePhrase) (string, bool) {
	switch dialect {
	case store.DialectPostgres:
		return postgresDateCondition(column, phrase)
	case store.DialectMySQL:
		return mysqlDateCondition(column, phrase)
	default:
		return sqliteDateCondition(column, phrase)
	}
}

func sqliteDateCondition(column string, phrase intent.DatePhrase) (string, bool) {
	switch phrase.Kind {
	case intent.DateToday:
		return fmt.Sprintf("date(%s) = date('now')", column), true
	case intent.DateYesterday:
		return fmt.Sprintf("date(%s) = date('now','-1 day')", column), true
	case intent.DateLastNDays:
		return fmt.Sprintf("date(%s) >= date('now', '-%d days')", column, phrase.N), true
	case intent.DateNextNDays:
		return fmt.Sprintf("date(%s) <= date('now', '+%d days')", column, phrase.N), true
	case intent.DateLastWeek:
		return fmt.Sprintf("date(%s) >= date('now', '-7 days')", column), true
	case intent.DateThisWeek:
		return fmt.Sprintf("date(%s) >= date('now', 'weekday 0', '-7 days')", column), true
	case intent.DateLastMonth:
		return fmt.Sprintf("strftime('%%Y-%%m', %s) = strftime('%%Y-%%m', date('now','start of month','-1 month'))", column), true
	case intent.DateThisMonth:
		return fmt.Sprintf("strftime('%%Y-%%m', %s) = strftime('%%Y-%%m', 'now')", column), true
	case intent.DateLastYear:
		return fmt.Sprintf("strftime('%%Y', %s) = strftime('%%Y', date('now','-1 year'))", column), true
	case intent.DateThisYear:
		return fmt.Sprintf("strftime('%%Y', %s) = strftime('%%Y', 'now')", column), true
	case intent.DateQuarter:
		start := (phrase.N-1)*3 + 1
		return fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER) BETWEEN %d AND %d", column, start, start+2), true
	}
	return "", false
}

func postgresDateCondition(column string, phrase intent.DatePhrase) (string, bool) {
	switch phrase.Kind {
	case intent.DateToday:
		return fmt.Sprintf("%s::date = CURRENT_DATE", column), true
	case intent.DateYesterday:
		return fmt.Sprintf("%s::date = CURRENT_DATE - 1", column), true
	case intent.DateLastNDays:
		return fmt.Sprintf("%s::date >= CURRENT_DATE - %d", column, phrase.N), true
	case intent.DateNextNDays:
		return fmt.Sprintf("%s::date <= CURRENT_DATE + %d", column, phrase.N), true
	case intent.DateLastWeek:
		return fmt.Sprintf("%s::date >= CURRENT_DATE - 7", column), true
	case intent.DateThisWeek:
		return fmt.Sprintf("date_trunc('week', %s) = date_trunc('week', CURRENT_DATE)", column), true
	case intent.DateLastMonth:
		return fmt.Sprintf("date_trunc('month', %s) = date_trunc('month', CURRENT_DATE - INTERVAL '1 month')", column), true
	case intent.DateThisMonth:
		return fmt.Sprintf("date_trunc('month', %s) = date_trunc('month', CURRENT_DATE)", column), true
	case intent.DateLastYear:
		return fmt.Sprintf("date_trunc('year', %s) = date_trunc('year', CURRENT_DATE - INTERVAL '1 year')", column), true
	case intent.DateThisYear:
		return fmt.Sprintf("date_trunc('year', %s) = date_trunc('year', CURRENT_DATE)", column), true
	case intent.DateQuarter:
		return fmt.Sprintf("EXTRACT(QUARTER FROM %s) = %d", column, phrase.N), true
	}
	return "", false
}

func mysqlDateCondition(column string, phrase intent.DatePhrase) (string, bool) {
	switch phrase.Kind {
	case intent.DateToday:
		return fmt.Sprintf("DATE(%s) = CURDATE()", column), true
	case intent.DateYesterday:
		return fmt.Sprintf("DATE(%s) = CURDATE() - INTERVAL 1 DAY", column), true
	case intent.DateLastNDays:
		return fmt.Sprintf("DATE(%s) >= CURDATE() - INTERVAL %d DAY", column, phrase.N), true
	case intent.DateNextNDays:
		return fmt.Sprintf("DATE(%s) <= CURDATE() + INTERVAL %d DAY", column, phrase.N), true
	case intent.DateLastWeek:
		return fmt.Sprintf("DATE(%s) >= CURDATE() - INTERVAL 7 DAY", column), true
	case intent.DateThisWeek:
		return fmt.Sprintf("YEARWEEK(%s) = YEARWEEK(CURDATE())", column), true
	case intent.DateLastMonth:
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m') = DATE_FORMAT(CURDATE() - INTERVAL 1 MONTH, '%%Y-%%m')", column), true
	case intent.DateThisMonth:
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m') = DATE_FORMAT(CURDATE(), '%%Y-%%m')", column), true
	case intent.DateLastYear:
		return fmt.Sprintf("YEAR(%s) = YEAR(CURDATE()) - 1", column), true
	case intent.DateThisYear:
		return fmt.Sprintf("YEAR(%s) = YEAR(CURDATE())", column), true
	case intent.DateQuarter:
		return fmt.Sprintf("QUARTER(%s) = %d", column, phrase.N), true
	}
	return "", false
}
