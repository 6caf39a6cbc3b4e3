package tablequery

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vango-dev/uiregistry/pkg/tablestate"
)

// Dialect controls placeholder syntax and case-insensitive matching.
type Dialect int

const (
	// Postgres uses $1, $2, ... and ILIKE.
	Postgres Dialect = iota
	// SQLite uses ? and LIKE, which is case-insensitive for ASCII.
	SQLite
)

// String returns the dialect name.
func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// Placeholder returns the bind marker for the n-th argument, counting from 1.
func (d Dialect) Placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

func (d Dialect) like() string {
	if d == SQLite {
		return "LIKE"
	}
	return "ILIKE"
}

// Kind is the value type of a filterable column.
type Kind int

const (
	// Text columns receive string arguments.
	Text Kind = iota
	// Number columns receive numeric arguments.
	Number
)

// Column maps a table-state column id to SQL.
type Column struct {
	// Sort is the ORDER BY expression. Empty means not sortable.
	Sort string

	// Filter lists the expressions a filter applies to. iLike matches any
	// of them; other operators use the first. Empty means not filterable.
	Filter []string

	// Kind selects how filter values are bound.
	Kind Kind
}

// Schema is the set of columns a table exposes.
type Schema struct {
	Columns map[string]Column

	// DefaultSort applies when the state has no usable sort key.
	DefaultSort []tablestate.Sort
}

// Query holds the generated clauses.
type Query struct {
	// Where is a boolean expression without the WHERE keyword, or empty.
	Where string
	Args  []any

	// OrderBy is a comma-separated list without the ORDER BY keyword, or empty.
	OrderBy string

	Limit  int
	Offset int
}

// WhereClause returns " WHERE <expr>" or an empty string.
func (q Query) WhereClause() string {
	if q.Where == "" {
		return ""
	}
	return " WHERE " + q.Where
}

// PageClause returns the ORDER BY, LIMIT and OFFSET clauses.
func (q Query) PageClause() string {
	var b strings.Builder
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", q.Limit, q.Offset)
	}
	return b.String()
}

// Build translates state into SQL for dialect d.
func (s Schema) Build(state tablestate.State, d Dialect) Query {
	b := &builder{dialect: d}

	for _, f := range state.ColumnFilters {
		col, ok := s.Columns[f.ColumnID]
		if !ok || len(col.Filter) == 0 {
			continue
		}
		b.filter(col, f.Value)
	}

	q := Query{
		Where:   strings.Join(b.conds, " AND "),
		Args:    b.args,
		OrderBy: s.orderBy(state.Sorting),
	}
	if state.Pagination.PageSize > 0 {
		q.Limit = state.Pagination.PageSize
		q.Offset = state.Pagination.Offset()
	}
	return q
}

func (s Schema) orderBy(sorting []tablestate.Sort) string {
	terms := s.sortTerms(sorting)
	if len(terms) == 0 {
		terms = s.sortTerms(s.DefaultSort)
	}
	return strings.Join(terms, ", ")
}

func (s Schema) sortTerms(sorting []tablestate.Sort) []string {
	var terms []string
	for _, srt := range sorting {
		col, ok := s.Columns[srt.ColumnID]
		if !ok || col.Sort == "" {
			continue
		}
		dir := "ASC"
		if srt.Desc {
			dir = "DESC"
		}
		terms = append(terms, col.Sort+" "+dir)
	}
	return terms
}

type builder struct {
	dialect Dialect
	conds   []string
	args    []any
}

// bind appends an argument and returns its placeholder.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

func (b *builder) filter(col Column, v tablestate.FilterValue) {
	op := v.Operator
	if !v.IsStructured() {
		op = tablestate.OpILike
	}
	expr := col.Filter[0]

	switch op {
	case tablestate.OpIsEmpty:
		b.conds = append(b.conds, fmt.Sprintf("(%s IS NULL OR %s = '')", expr, expr))
		return
	case tablestate.OpIsNotEmpty:
		b.conds = append(b.conds, fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", expr, expr))
		return
	}

	if isBlank(v.Value) {
		return
	}

	switch op {
	case tablestate.OpILike, tablestate.OpNotILike:
		s, ok := scalarString(v.Value)
		if !ok {
			return
		}
		pattern := "%" + escapeLike(s) + "%"
		if op == tablestate.OpNotILike {
			b.conds = append(b.conds, fmt.Sprintf("%s NOT %s %s ESCAPE '\\'", expr, b.dialect.like(), b.bind(pattern)))
			return
		}
		ors := make([]string, len(col.Filter))
		for i, e := range col.Filter {
			ors[i] = fmt.Sprintf("%s %s %s ESCAPE '\\'", e, b.dialect.like(), b.bind(pattern))
		}
		if len(ors) == 1 {
			b.conds = append(b.conds, ors[0])
		} else {
			b.conds = append(b.conds, "("+strings.Join(ors, " OR ")+")")
		}

	case tablestate.OpEq, tablestate.OpNe, tablestate.OpLt, tablestate.OpGt:
		arg, ok := bindValue(col.Kind, v.Value)
		if !ok {
			return
		}
		sym := map[tablestate.Operator]string{
			tablestate.OpEq: "=",
			tablestate.OpNe: "<>",
			tablestate.OpLt: "<",
			tablestate.OpGt: ">",
		}[op]
		b.conds = append(b.conds, fmt.Sprintf("%s %s %s", expr, sym, b.bind(arg)))

	case tablestate.OpInArray, tablestate.OpNotInArray:
		items, ok := v.Value.([]any)
		if !ok || len(items) == 0 {
			return
		}
		args := make([]any, 0, len(items))
		for _, item := range items {
			arg, ok := bindValue(col.Kind, item)
			if !ok {
				return
			}
			args = append(args, arg)
		}
		marks := make([]string, len(args))
		for i, arg := range args {
			marks[i] = b.bind(arg)
		}
		kw := "IN"
		if op == tablestate.OpNotInArray {
			kw = "NOT IN"
		}
		b.conds = append(b.conds, fmt.Sprintf("%s %s (%s)", expr, kw, strings.Join(marks, ", ")))

	case tablestate.OpIsBetween:
		items, ok := v.Value.([]any)
		if !ok || len(items) != 2 {
			return
		}
		lo, ok1 := bindValue(col.Kind, items[0])
		hi, ok2 := bindValue(col.Kind, items[1])
		if !ok1 || !ok2 {
			return
		}
		b.conds = append(b.conds, fmt.Sprintf("%s >= %s AND %s <= %s", expr, b.bind(lo), expr, b.bind(hi)))
	}
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

// scalarString renders a JSON scalar as text.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	}
	return "", false
}

// bindValue converts a decoded JSON scalar to the Go value bound for kind.
func bindValue(kind Kind, v any) (any, bool) {
	if kind == Text {
		return scalarString(v)
	}
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x), true
		}
		return x, true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, true
		}
	}
	return nil, false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
