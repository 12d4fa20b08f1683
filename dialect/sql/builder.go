package sql

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/mappify/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for table.column).
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// IsValidIdentifier checks if the string is a valid SQL identifier.
// Identifiers are never quoted by the builders, so anything else is rejected.
func IsValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s) && !strings.HasSuffix(s, ".")
}

// Querier wraps the basic Query method that is implemented
// by the different builders in this file.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// Builder creates statements for one dialect.
type Builder struct {
	dialect string
}

// Dialect creates a new Builder with the given dialect name.
func Dialect(name string) Builder {
	return Builder{dialect: name}
}

// Select returns a Selector for the given columns. No columns means "*".
func (b Builder) Select(columns ...string) *Selector {
	return &Selector{dialect: b.dialect, columns: columns}
}

// Insert returns an InsertBuilder for the given table.
func (b Builder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{dialect: b.dialect, table: table}
}

// Update returns an UpdateBuilder for the given table.
func (b Builder) Update(table string) *UpdateBuilder {
	return &UpdateBuilder{dialect: b.dialect, table: table}
}

// Delete returns a DeleteBuilder for the given table.
func (b Builder) Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{dialect: b.dialect, table: table}
}

// predicates holds raw WHERE fragments and their bound arguments.
type predicates struct {
	preds []string
	args  []any
}

func (p *predicates) add(pred string, args []any) {
	if pred == "" {
		return
	}
	p.preds = append(p.preds, pred)
	p.args = append(p.args, args...)
}

func (p *predicates) write(b *strings.Builder) {
	switch len(p.preds) {
	case 0:
	case 1:
		b.WriteString(" WHERE ")
		b.WriteString(p.preds[0])
	default:
		b.WriteString(" WHERE ")
		for i, pred := range p.preds {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteString("(" + pred + ")")
		}
	}
}

// Selector is a builder for the `SELECT` statement.
type Selector struct {
	predicates
	dialect string
	columns []string
	table   string
	group   []string
	order   []string
	limit   *int
	offset  *int
}

// From sets the source table of the SELECT statement.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// Where appends a predicate fragment using `?` placeholders. Several calls
// are joined with AND.
func (s *Selector) Where(pred string, args ...any) *Selector {
	s.add(pred, args)
	return s
}

// GroupBy appends the GROUP BY columns.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.group = append(s.group, columns...)
	return s
}

// OrderBy appends ORDER BY terms, such as "name" or "price DESC".
func (s *Selector) OrderBy(terms ...string) *Selector {
	s.order = append(s.order, terms...)
	return s
}

// Limit adds the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset adds the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// Query returns the statement and its arguments.
func (s *Selector) Query() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(s.columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(s.table)
	s.write(&b)
	if len(s.group) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.group, ", "))
	}
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(s.order, ", "))
	}
	if s.limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(*s.offset))
	}
	return Rebind(s.dialect, b.String()), s.args
}

// InsertBuilder is a builder for the `INSERT INTO` statement.
type InsertBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    []any
	returning []string
}

// Set appends a column and its value.
func (i *InsertBuilder) Set(column string, v any) *InsertBuilder {
	i.columns = append(i.columns, column)
	i.values = append(i.values, v)
	return i
}

// Returning adds the `RETURNING` clause to the insert statement.
// It is honored by PostgreSQL and SQLite only.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// Query returns the statement and its arguments.
func (i *InsertBuilder) Query() (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(i.table)
	switch {
	case len(i.columns) > 0:
		b.WriteString(" (")
		b.WriteString(strings.Join(i.columns, ", "))
		b.WriteString(") VALUES (")
		b.WriteString(placeholders(len(i.columns)))
		b.WriteString(")")
	case i.dialect == dialect.MySQL:
		b.WriteString(" () VALUES ()")
	default:
		b.WriteString(" DEFAULT VALUES")
	}
	if len(i.returning) > 0 && i.dialect != dialect.MySQL {
		b.WriteString(" RETURNING ")
		b.WriteString(strings.Join(i.returning, ", "))
	}
	return Rebind(i.dialect, b.String()), i.values
}

// UpdateBuilder is a builder for the `UPDATE` statement.
type UpdateBuilder struct {
	predicates
	dialect string
	table   string
	columns []string
	values  []any
}

// Set appends a `column = ?` assignment.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.columns = append(u.columns, column)
	u.values = append(u.values, v)
	return u
}

// Where appends a predicate fragment using `?` placeholders.
func (u *UpdateBuilder) Where(pred string, args ...any) *UpdateBuilder {
	u.add(pred, args)
	return u
}

// Query returns the statement and its arguments.
func (u *UpdateBuilder) Query() (string, []any) {
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(u.table)
	b.WriteString(" SET ")
	for i, c := range u.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteString(" = ?")
	}
	u.write(&b)
	args := make([]any, 0, len(u.values)+len(u.args))
	args = append(args, u.values...)
	args = append(args, u.args...)
	return Rebind(u.dialect, b.String()), args
}

// DeleteBuilder is a builder for the `DELETE` statement.
type DeleteBuilder struct {
	predicates
	dialect string
	table   string
}

// Where appends a predicate fragment using `?` placeholders.
func (d *DeleteBuilder) Where(pred string, args ...any) *DeleteBuilder {
	d.add(pred, args)
	return d
}

// Query returns the statement and its arguments.
func (d *DeleteBuilder) Query() (string, []any) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(d.table)
	d.write(&b)
	return Rebind(d.dialect, b.String()), d.args
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// Rebind rewrites `?` placeholders into the positional `$n` form when the
// dialect is PostgreSQL. Question marks inside single-quoted literals are
// left alone. Other dialects get the query back unchanged.
func Rebind(name, query string) string {
	if name != dialect.Postgres || !strings.Contains(query, "?") {
		return query
	}
	var (
		b      strings.Builder
		n      int
		quoted bool
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
