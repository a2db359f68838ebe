package sqlgen

import "regexp"

var (
	numericLiteral = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	integerLiteral = regexp.MustCompile(`^\d+$`)
	dateLiteral    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ValidNumber reports whether a string is a bare decimal literal safe to
// interpolate. Anything extracted from question text must pass this (or
// ValidDate) before it lands in a statement.
func ValidNumber(value string) bool {
	return numericLiteral.MatchString(value)
}

func ValidInteger(value string) bool {
	return integerLiteral.MatchString(value)
}

func ValidDate(value string) bool {
	return dateLiteral.MatchString(value)
}
