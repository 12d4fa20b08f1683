package where

import (
	"reflect"
	"sort"
)

// Filter is an ordered list of conditions. Conditions at the same level
// are joined with AND.
type Filter []Cond

// Cond is a single filter entry. Key is a column name or one of the
// logical keys (and, or, not).
//
// For a column, Value is a scalar (equality, nil meaning IS NULL), an Op,
// an Ops, or a map[string]any of operator names to operands.
// For and/or, Value is a []Filter, a Filter whose conditions each form
// one sub-filter, or a []any of those. For not, Value is a single-key
// Filter, Cond or map.
type Cond struct {
	Key   string
	Value any
}

// Ops is an ordered operator object applied to one column. Entries are
// joined with AND.
type Ops []Op

// Op is one operator applied to a column.
type Op struct {
	Name  string
	Value any
}

// C returns a condition on key.
func C(key string, v any) Cond {
	return Cond{Key: key, Value: v}
}

// Col returns a condition applying ops to the column.
func Col(column string, ops ...Op) Cond {
	return Cond{Key: column, Value: Ops(ops)}
}

// AllOf returns an "and" group of sub-filters.
func AllOf(fs ...Filter) Cond {
	return Cond{Key: And, Value: fs}
}

// AnyOf returns an "or" group of sub-filters.
func AnyOf(fs ...Filter) Cond {
	return Cond{Key: Or, Value: fs}
}

// Negate returns a "not" condition over a single key.
func Negate(key string, v any) Cond {
	return Cond{Key: Not, Value: Filter{{Key: key, Value: v}}}
}

// EQ returns the "eq" operator.
func EQ(v any) Op { return Op{OpEQ, v} }

// NE returns the "ne" operator.
func NE(v any) Op { return Op{OpNE, v} }

// GT returns the "gt" operator.
func GT(v any) Op { return Op{OpGT, v} }

// LT returns the "lt" operator.
func LT(v any) Op { return Op{OpLT, v} }

// GTE returns the "gte" operator.
func GTE(v any) Op { return Op{OpGTE, v} }

// LTE returns the "lte" operator.
func LTE(v any) Op { return Op{OpLTE, v} }

// Like returns the "like" operator.
func Like(pattern string) Op { return Op{OpLike, pattern} }

// NotLike returns the "notLike" operator.
func NotLike(pattern string) Op { return Op{OpNotLike, pattern} }

// In returns the "in" operator. A single slice argument is spread.
func In(vs ...any) Op { return Op{OpIn, spread(vs)} }

// NotIn returns the "notIn" operator. A single slice argument is spread.
func NotIn(vs ...any) Op { return Op{OpNotIn, spread(vs)} }

func spread(vs []any) []any {
	if len(vs) == 1 {
		if seq, ok := sequence(vs[0]); ok {
			return seq
		}
	}
	return vs
}

// Between returns the "between" operator.
func Between(lo, hi any) Op { return Op{OpBetween, []any{lo, hi}} }

// NotBetween returns the "notBetween" operator.
func NotBetween(lo, hi any) Op { return Op{OpNotBetween, []any{lo, hi}} }

// IsNull returns the "isNull" operator.
func IsNull() Op { return Op{OpIsNull, true} }

// IsNotNull returns the "isNotNull" operator.
func IsNotNull() Op { return Op{OpIsNotNull, true} }

// FromMap converts a map to a Filter. Go maps carry no order, so keys are
// sorted. Nested maps under a column become Ops, also sorted by name.
func FromMap(m map[string]any) Filter {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	f := make(Filter, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if sub, ok := v.(map[string]any); ok && !isLogical(k) {
			v = opsFromMap(sub)
		}
		f = append(f, Cond{Key: k, Value: v})
	}
	return f
}

func opsFromMap(m map[string]any) Ops {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	ops := make(Ops, 0, len(names))
	for _, name := range names {
		ops = append(ops, Op{Name: name, Value: m[name]})
	}
	return ops
}

// Equalities returns the top-level column conditions holding a plain
// non-nil scalar, keyed by column. Operator objects and logical groups
// are left out.
func (f Filter) Equalities() map[string]any {
	eq := make(map[string]any)
	for _, c := range f {
		if isLogical(c.Key) || c.Value == nil {
			continue
		}
		switch c.Value.(type) {
		case Op, Ops, map[string]any, Filter, Cond, []Filter:
			continue
		}
		if _, ok := sequence(c.Value); ok {
			continue
		}
		eq[c.Key] = c.Value
	}
	return eq
}

// sequence reports whether v is a slice or array other than []byte and
// returns its elements.
func sequence(v any) ([]any, bool) {
	switch v := v.(type) {
	case nil, []byte:
		return nil, false
	case []any:
		return v, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
