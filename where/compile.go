package where

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/mappify/dialect/sql"
)

// ErrInvalid is matched by every error Compile returns.
var ErrInvalid = errors.New("where: invalid filter")

// Error describes a malformed filter.
type Error struct {
	Key string // column or logical key
	Op  string // operator, if the problem is inside an operator object
	Msg string
}

// Error returns the error string.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("where: %s.%s: %s", e.Key, e.Op, e.Msg)
	}
	return fmt.Sprintf("where: %s: %s", e.Key, e.Msg)
}

// Is reports whether target is ErrInvalid.
func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

func invalid(key, op, format string, args ...any) error {
	return &Error{Key: key, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Clause is a compiled WHERE fragment. SQL uses `?` placeholders and Args
// holds one value per placeholder, in order. SQL carries no leading WHERE.
type Clause struct {
	SQL  string
	Args []any
}

// Empty reports whether the clause has no condition.
func (c Clause) Empty() bool {
	return c.SQL == ""
}

// Compile turns a filter into a parameterized WHERE fragment.
// An empty filter yields an empty clause. Every operand is bound,
// including the elements of in/notIn and the bounds of between.
func Compile(f Filter) (Clause, error) {
	var c compiler
	s, _, err := c.filter(f)
	if err != nil {
		return Clause{}, err
	}
	return Clause{SQL: s, Args: c.args}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(f Filter) Clause {
	c, err := Compile(f)
	if err != nil {
		panic(err)
	}
	return c
}

type compiler struct {
	args []any
}

// filter compiles conditions joined by AND and reports how many terms
// were emitted, so callers know when grouping is needed.
func (c *compiler) filter(f Filter) (string, int, error) {
	parts := make([]string, 0, len(f))
	terms := 0
	for _, cd := range f {
		s, n, err := c.cond(cd)
		if err != nil {
			return "", 0, err
		}
		parts = append(parts, s)
		terms += n
	}
	return strings.Join(parts, " AND "), terms, nil
}

func (c *compiler) cond(cd Cond) (string, int, error) {
	switch cd.Key {
	case And, Or:
		s, err := c.group(cd.Key, cd.Value)
		return s, 1, err
	case Not:
		s, err := c.not(cd.Value)
		return s, 1, err
	}
	if !sql.IsValidIdentifier(cd.Key) {
		return "", 0, invalid(cd.Key, "", "invalid column name")
	}
	switch v := cd.Value.(type) {
	case Ops:
		return c.ops(cd.Key, v)
	case Op:
		return c.ops(cd.Key, Ops{v})
	case map[string]any:
		return c.ops(cd.Key, opsFromMap(v))
	case Filter, Cond, []Filter:
		return "", 0, invalid(cd.Key, "", "nested filter is only allowed under and, or, not")
	case nil:
		return cd.Key + " IS NULL", 1, nil
	}
	if _, ok := sequence(cd.Value); ok {
		return "", 0, invalid(cd.Key, "", "sequence value requires the in operator")
	}
	c.args = append(c.args, cd.Value)
	return cd.Key + " = ?", 1, nil
}

// group compiles an and/or sequence of sub-filters.
func (c *compiler) group(key string, v any) (string, error) {
	subs, err := subFilters(key, v)
	if err != nil {
		return "", err
	}
	if len(subs) == 0 {
		return "", invalid(key, "", "empty group")
	}
	sep := " AND "
	if key == Or {
		sep = " OR "
	}
	parts := make([]string, 0, len(subs))
	for _, sub := range subs {
		if len(sub) == 0 {
			return "", invalid(key, "", "empty sub-filter")
		}
		s, n, err := c.filter(sub)
		if err != nil {
			return "", err
		}
		if n > 1 {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func subFilters(key string, v any) ([]Filter, error) {
	switch v := v.(type) {
	case []Filter:
		return v, nil
	case Filter:
		subs := make([]Filter, len(v))
		for i, cd := range v {
			subs[i] = Filter{cd}
		}
		return subs, nil
	case []any:
		subs := make([]Filter, 0, len(v))
		for _, e := range v {
			switch e := e.(type) {
			case Filter:
				subs = append(subs, e)
			case Cond:
				subs = append(subs, Filter{e})
			case map[string]any:
				subs = append(subs, FromMap(e))
			default:
				return nil, invalid(key, "", "unexpected %T in group", e)
			}
		}
		return subs, nil
	}
	return nil, invalid(key, "", "expect a sequence of sub-filters, got %T", v)
}

// not compiles a single-key sub-filter and negates it.
func (c *compiler) not(v any) (string, error) {
	var sub Filter
	switch v := v.(type) {
	case Filter:
		sub = v
	case Cond:
		sub = Filter{v}
	case map[string]any:
		sub = FromMap(v)
	default:
		return "", invalid(Not, "", "expect a single-key sub-filter, got %T", v)
	}
	if len(sub) != 1 {
		return "", invalid(Not, "", "expect exactly one key, got %d", len(sub))
	}
	s, _, err := c.cond(sub[0])
	if err != nil {
		return "", err
	}
	return "NOT (" + s + ")", nil
}

// ops compiles an operator object for one column.
func (c *compiler) ops(col string, ops Ops) (string, int, error) {
	if len(ops) == 0 {
		return "", 0, invalid(col, "", "empty operator object")
	}
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		s, err := c.op(col, op)
		if err != nil {
			return "", 0, err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " AND "), len(parts), nil
}

func (c *compiler) op(col string, op Op) (string, error) {
	if isLogical(op.Name) {
		return "", invalid(col, op.Name, "logical operator is not allowed on a column")
	}
	tok, ok := operators[op.Name]
	if !ok {
		return "", invalid(col, op.Name, "unknown operator")
	}
	switch op.Name {
	case OpIn, OpNotIn:
		seq, ok := sequence(op.Value)
		if !ok {
			return "", invalid(col, op.Name, "expect a sequence, got %T", op.Value)
		}
		if len(seq) == 0 {
			return "", invalid(col, op.Name, "empty sequence")
		}
		c.args = append(c.args, seq...)
		return col + " " + tok + " (" + strings.TrimSuffix(strings.Repeat("?, ", len(seq)), ", ") + ")", nil
	case OpBetween, OpNotBetween:
		seq, ok := sequence(op.Value)
		if !ok || len(seq) != 2 {
			return "", invalid(col, op.Name, "expect a sequence of two bounds")
		}
		c.args = append(c.args, seq...)
		return col + " " + tok + " ? AND ?", nil
	case OpIsNull, OpIsNotNull:
		if b, ok := op.Value.(bool); !ok || !b {
			return "", invalid(col, op.Name, "expect true, got %v", op.Value)
		}
		return col + " " + tok, nil
	}
	if _, ok := sequence(op.Value); ok {
		return "", invalid(col, op.Name, "expect a scalar operand")
	}
	if op.Value == nil {
		return "", invalid(col, op.Name, "nil operand, use isNull")
	}
	c.args = append(c.args, op.Value)
	return col + " " + tok + " ?", nil
}
