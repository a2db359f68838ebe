// Package sqlgen renders SQL text from classified intents. Every
// identifier passes through Quote and every statement is assembled via
// the SelectStatement fragments, so quoting and whitelisting happen at
// one choke point instead of being repeated per template.
package sqlgen

import "strings"

// Quote wraps an identifier in double quotes, doubling embedded quotes,
// so names containing spaces or reserved words never break a statement.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Unquote reverses Quote. Input that is not a quoted identifier is
// returned unchanged.
func Unquote(quoted string) string {
	if len(quoted) < 2 || !strings.HasPrefix(quoted, `"`) || !strings.HasSuffix(quoted, `"`) {
		return quoted
	}
	inner := quoted[1 : len(quoted)-1]
	return strings.ReplaceAll(inner, `""`, `"`)
}

// QuoteString renders a string literal with single-quote doubling. Used
// for sampled values in LIKE/equality filters; numeric literals are
// validated separately and interpolated bare.
func QuoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

// LikePattern renders '%value%' with the value escaped.
func LikePattern(value string) string {
	return `'%` + strings.ReplaceAll(value, `'`, `''`) + `%'`
}
