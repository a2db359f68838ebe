package sqlgen

import (
	"strconv"
	"strings"
)

// SelectStatement is the small fragment AST every synthesizer builds.
// Fields hold already-rendered SQL expressions; Render assembles them in
// canonical clause order exactly once.
type SelectStatement struct {
	Columns []string
	From    string
	Joins   []string
	Where   []string
	GroupBy []string
	Having  []string
	OrderBy []string
	Limit   int
}

func (s *SelectStatement) Render() string {
	var b strings.Builder

	b.WriteString("SELECT ")
	if len(s.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.Columns, ", "))
	}

	b.WriteString(" FROM ")
	b.WriteString(s.From)

	for _, join := range s.Joins {
		b.WriteString(" ")
		b.WriteString(join)
	}
	if len(s.Where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(s.Where, " AND "))
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.GroupBy, ", "))
	}
	if len(s.Having) > 0 {
		b.WriteString(" HAVING ")
		b.WriteString(strings.Join(s.Having, " AND "))
	}
	if len(s.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(s.OrderBy, ", "))
	}
	if s.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.Limit))
	}

	return b.String()
}
