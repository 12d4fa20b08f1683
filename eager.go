package mappify

import (
	"context"
	"database/sql/driver"
	"reflect"
	"slices"

	"github.com/syssam/mappify/internal/batch"
	"github.com/syssam/mappify/where"
)

// PopulateAll loads the relation declared under alias into every entity
// of es. Unlike calling Populate in a loop it runs a fixed number of
// queries: one for hasOne, hasMany and belongsTo, two for belongsToMany.
// Related rows are matched back to their owners by key, keeping the order
// in which the database returned them.
func (m *Model[T]) PopulateAll(ctx context.Context, es []*T, alias string, opts ...Options) ([]*T, error) {
	a, ok := m.Association(alias)
	if !ok {
		return nil, NewUnknownRelationError(m.schema.Name, alias)
	}
	if slices.Contains(es, nil) {
		return nil, NewValidationError(m.schema.Name, errNilEntity)
	}
	if len(es) == 0 {
		return es, nil
	}
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	rs := a.Related.Schema()
	columns, err := projection(rs, o.Attributes, o.Exclude)
	if err != nil {
		return nil, err
	}
	vs := make([]reflect.Value, len(es))
	for i, e := range es {
		vs[i] = reflect.ValueOf(e).Elem()
	}
	var found [][]reflect.Value
	switch a.Kind {
	case HasOne, HasMany:
		found, err = m.loadOwned(ctx, a, vs, withColumn(columns, a.ForeignKey))
	case BelongsTo:
		found, err = m.loadOwners(ctx, a, vs, withColumn(columns, a.Key))
	case BelongsToMany:
		found, err = m.loadThrough(ctx, a, vs, withColumn(columns, a.Key))
	}
	if err != nil {
		return nil, err
	}
	rows := 0
	for i, v := range vs {
		setRelation(v.FieldByIndex(a.field.index), a.field, found[i])
		rows += len(found[i])
	}
	m.client.log.DebugContext(ctx, "relation populated",
		"model", m.schema.Name, "relation", alias, "kind", a.Kind.String(),
		"entities", len(es), "rows", rows)
	return es, nil
}

// loadOwned resolves hasOne and hasMany: related rows whose foreign key
// is one of the owners' keys.
func (m *Model[T]) loadOwned(ctx context.Context, a *Association, vs []reflect.Value, columns []string) ([][]reflect.Value, error) {
	local := m.schema.keyFunc(a.Key)
	keys := batch.Keys(vs, local)
	out := make([][]reflect.Value, len(vs))
	if len(keys) == 0 {
		return out, nil
	}
	related, err := a.Related.findValues(ctx, &query{
		where:   where.Filter{where.Col(a.ForeignKey, where.In(keys))},
		columns: columns,
	})
	if err != nil {
		return nil, err
	}
	groups := batch.GroupByKey(related, a.Related.Schema().ptrKeyFunc(a.ForeignKey))
	for i, v := range vs {
		if k, ok := local(v); ok {
			out[i] = groups[k]
		}
	}
	return out, nil
}

// loadOwners resolves belongsTo: the rows referenced by the entities'
// foreign keys. Entities with a NULL foreign key get nothing.
func (m *Model[T]) loadOwners(ctx context.Context, a *Association, vs []reflect.Value, columns []string) ([][]reflect.Value, error) {
	fk := m.schema.keyFunc(a.ForeignKey)
	keys := batch.Keys(vs, fk)
	out := make([][]reflect.Value, len(vs))
	if len(keys) == 0 {
		return out, nil
	}
	related, err := a.Related.findValues(ctx, &query{
		where:   where.Filter{where.Col(a.Key, where.In(keys))},
		columns: columns,
	})
	if err != nil {
		return nil, err
	}
	index := batch.IndexByKey(related, a.Related.Schema().ptrKeyFunc(a.Key))
	for i, v := range vs {
		k, ok := fk(v)
		if !ok {
			continue
		}
		if r, ok := index[k]; ok {
			out[i] = []reflect.Value{r}
		}
	}
	return out, nil
}

// loadThrough resolves belongsToMany with one query for the join rows of
// all entities and one for the related rows they point to.
func (m *Model[T]) loadThrough(ctx context.Context, a *Association, vs []reflect.Value, columns []string) ([][]reflect.Value, error) {
	pk := m.schema.keyFunc(m.schema.PrimaryKey)
	keys := batch.Keys(vs, pk)
	out := make([][]reflect.Value, len(vs))
	if len(keys) == 0 {
		return out, nil
	}
	joins, err := a.Through.findValues(ctx, &query{
		where: where.Filter{where.Col(a.ForeignKey, where.In(keys))},
	})
	if err != nil {
		return nil, err
	}
	ts := a.Through.Schema()
	other := ts.ptrKeyFunc(a.OtherKey)
	others := batch.Keys(joins, other)
	if len(others) == 0 {
		return out, nil
	}
	related, err := a.Related.findValues(ctx, &query{
		where:   where.Filter{where.Col(a.Key, where.In(others))},
		columns: columns,
	})
	if err != nil {
		return nil, err
	}
	index := batch.IndexByKey(related, a.Related.Schema().ptrKeyFunc(a.Key))
	groups := batch.GroupByKey(joins, ts.ptrKeyFunc(a.ForeignKey))
	for i, v := range vs {
		k, ok := pk(v)
		if !ok {
			continue
		}
		for _, j := range groups[k] {
			if o, ok := other(j); ok {
				if r, ok := index[o]; ok {
					out[i] = append(out[i], r)
				}
			}
		}
	}
	return out, nil
}

// withColumn makes sure a projection selects column, which is needed to
// match rows back to their owners. A nil projection selects everything.
func withColumn(columns []string, column string) []string {
	if columns == nil || slices.Contains(columns, column) {
		return columns
	}
	return append(slices.Clone(columns), column)
}

// keyFunc returns the normalized value of column c in a struct value.
func (s *Schema) keyFunc(c string) batch.KeyFunc[any, reflect.Value] {
	return func(v reflect.Value) (any, bool) {
		x, ok := s.value(v, c)
		if !ok {
			return nil, false
		}
		return normalizeKey(x)
	}
}

// ptrKeyFunc is keyFunc for pointers to structs, as returned by findValues.
func (s *Schema) ptrKeyFunc(c string) batch.KeyFunc[any, reflect.Value] {
	f := s.keyFunc(c)
	return func(v reflect.Value) (any, bool) { return f(v.Elem()) }
}

// normalizeKey maps key values of different Go types onto one comparable
// form: integers become int64 and byte slices strings. Valuers such as
// sql.NullInt64 are read through Value first. Nil pointers, NULL values
// and non-comparable values have no key.
func normalizeKey(x any) (any, bool) {
	x, ok := keyValue(x)
	if !ok {
		return nil, false
	}
	rv := reflect.ValueOf(x)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch {
	case !rv.IsValid():
		return nil, false
	case rv.CanInt():
		return rv.Int(), true
	case rv.CanUint():
		return int64(rv.Uint()), true
	case rv.Kind() == reflect.String:
		return rv.String(), true
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return string(rv.Bytes()), true
	case !rv.Comparable():
		return nil, false
	}
	return rv.Interface(), true
}

// keyValue resolves driver.Valuer keys to their database value. It reports
// false for nil and NULL keys.
func keyValue(x any) (any, bool) {
	if isNil(x) {
		return nil, false
	}
	v, ok := x.(driver.Valuer)
	if !ok {
		return x, true
	}
	dv, err := v.Value()
	if err != nil || dv == nil {
		return nil, false
	}
	return dv, true
}
