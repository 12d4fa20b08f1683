package mappify

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/go-openapi/inflect"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/mappify/where"
)

// Kind is the cardinality of an association.
type Kind int

// Association kinds.
const (
	HasOne Kind = iota + 1
	BelongsTo
	HasMany
	BelongsToMany
)

// String returns the declaration name of the kind.
func (k Kind) String() string {
	switch k {
	case HasOne:
		return "hasOne"
	case BelongsTo:
		return "belongsTo"
	case HasMany:
		return "hasMany"
	case BelongsToMany:
		return "belongsToMany"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// AssocOptions configures an association declaration.
type AssocOptions struct {
	// As is the relation alias. The entity must have a field tagged
	// `rel:"<alias>"` to receive populated values.
	As string
	// ForeignKey is the referencing column. It lives on the related table
	// for hasOne and hasMany, on this table for belongsTo, and on the
	// through table for belongsToMany.
	ForeignKey string
	// Key is the referenced column. For belongsTo and belongsToMany it is
	// a column of the related table and defaults to its primary key. For
	// hasOne and hasMany it is a column of this table and defaults to its
	// primary key.
	Key string
	// OtherKey is the through-table column referencing the related table.
	// belongsToMany only.
	OtherKey string
	// Through is the join model. belongsToMany only.
	Through Relatable
}

// Association is a declared relation between two models.
type Association struct {
	Kind       Kind
	Alias      string
	Related    Relatable
	Through    Relatable
	Key        string
	ForeignKey string
	OtherKey   string

	field *relation
}

// HasOne declares that each entity owns at most one related row, whose
// foreign key references this entity.
func (m *Model[T]) HasOne(related Relatable, opts AssocOptions) error {
	return m.associate(HasOne, related, opts)
}

// BelongsTo declares that each entity references one related row through
// its own foreign key.
func (m *Model[T]) BelongsTo(related Relatable, opts AssocOptions) error {
	return m.associate(BelongsTo, related, opts)
}

// HasMany declares that each entity owns any number of related rows,
// whose foreign key references this entity.
func (m *Model[T]) HasMany(related Relatable, opts AssocOptions) error {
	return m.associate(HasMany, related, opts)
}

// BelongsToMany declares a many-to-many relation resolved through a join
// model holding ForeignKey (to this entity) and OtherKey (to the related one).
func (m *Model[T]) BelongsToMany(related Relatable, opts AssocOptions) error {
	return m.associate(BelongsToMany, related, opts)
}

func (m *Model[T]) associate(kind Kind, related Relatable, opts AssocOptions) error {
	a, err := m.describe(kind, related, opts)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assocs[a.Alias]; ok {
		return NewValidationError(a.Alias, errors.New("relation declared twice"))
	}
	m.assocs[a.Alias] = a
	return nil
}

// describe validates a declaration and fills in default keys.
func (m *Model[T]) describe(kind Kind, related Relatable, opts AssocOptions) (*Association, error) {
	s := m.schema
	if opts.As == "" {
		return nil, NewValidationError("as", fmt.Errorf("%s on %s needs an alias", kind, s.Name))
	}
	if related == nil {
		return nil, NewValidationError(opts.As, errors.New("nil related model"))
	}
	rf, ok := s.relations[opts.As]
	if !ok {
		return nil, NewValidationError(opts.As, fmt.Errorf("%s has no field tagged `rel:%q`", s.Name, opts.As))
	}
	rs := related.Schema()
	if rf.elem != rs.typ {
		return nil, NewValidationError(opts.As, fmt.Errorf("field holds %s, related model is %s", rf.elem, rs.typ))
	}
	if many := kind == HasMany || kind == BelongsToMany; many != rf.many {
		return nil, NewValidationError(opts.As, fmt.Errorf("%s needs a %s field", kind, map[bool]string{true: "slice", false: "single"}[many]))
	}
	a := &Association{
		Kind:       kind,
		Alias:      opts.As,
		Related:    related,
		Key:        opts.Key,
		ForeignKey: opts.ForeignKey,
		OtherKey:   opts.OtherKey,
		field:      rf,
	}
	switch kind {
	case HasOne, HasMany:
		a.ForeignKey = or(a.ForeignKey, foreignKeyName(s))
		a.Key = or(a.Key, s.PrimaryKey)
		if err := need(a.Alias, rs, a.ForeignKey); err != nil {
			return nil, err
		}
		if err := need(a.Alias, s, a.Key); err != nil {
			return nil, err
		}
	case BelongsTo:
		a.ForeignKey = or(a.ForeignKey, foreignKeyName(rs))
		a.Key = or(a.Key, rs.PrimaryKey)
		if err := need(a.Alias, s, a.ForeignKey); err != nil {
			return nil, err
		}
		if err := need(a.Alias, rs, a.Key); err != nil {
			return nil, err
		}
	case BelongsToMany:
		if opts.Through == nil {
			return nil, NewValidationError(a.Alias, errors.New("belongsToMany needs a through model"))
		}
		ts := opts.Through.Schema()
		a.Through = opts.Through
		a.ForeignKey = or(a.ForeignKey, foreignKeyName(s))
		a.OtherKey = or(a.OtherKey, foreignKeyName(rs))
		a.Key = or(a.Key, rs.PrimaryKey)
		if err := need(a.Alias, ts, a.ForeignKey); err != nil {
			return nil, err
		}
		if err := need(a.Alias, ts, a.OtherKey); err != nil {
			return nil, err
		}
		if err := need(a.Alias, rs, a.Key); err != nil {
			return nil, err
		}
	default:
		return nil, NewValidationError(a.Alias, fmt.Errorf("unknown association kind %d", kind))
	}
	return a, nil
}

// foreignKeyName is the conventional column referencing s: "user_id" for User.
func foreignKeyName(s *Schema) string {
	return inflect.Underscore(s.Name) + "_" + s.PrimaryKey
}

func need(alias string, s *Schema, column string) error {
	if !s.HasColumn(column) {
		return NewValidationError(alias, fmt.Errorf("%s has no column %q", s.Name, column))
	}
	return nil
}

func or(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// Association returns the association declared under alias.
func (m *Model[T]) Association(alias string) (*Association, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assocs[alias]
	return a, ok
}

// Associations returns the declared aliases in sorted order.
func (m *Model[T]) Associations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.assocs))
	for name := range m.assocs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Populate loads the relation declared under alias into e and returns e.
// Only Attributes and Exclude of opts apply, to the related rows.
// An undeclared alias yields an *UnknownRelationError before any query.
func (m *Model[T]) Populate(ctx context.Context, e *T, alias string, opts ...Options) (*T, error) {
	if e == nil {
		return nil, NewValidationError(m.schema.Name, errNilEntity)
	}
	a, ok := m.Association(alias)
	if !ok {
		return nil, NewUnknownRelationError(m.schema.Name, alias)
	}
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	columns, err := projection(a.Related.Schema(), o.Attributes, o.Exclude)
	if err != nil {
		return nil, err
	}
	v := reflect.ValueOf(e).Elem()
	var found []reflect.Value
	switch a.Kind {
	case HasOne, HasMany:
		local, _ := m.schema.value(v, a.Key)
		if local, ok = keyValue(local); !ok {
			break
		}
		q := &query{where: where.Filter{where.C(a.ForeignKey, local)}, columns: columns}
		if a.Kind == HasOne {
			q.limit = 1
		}
		found, err = a.Related.findValues(ctx, q)
	case BelongsTo:
		fk, _ := m.schema.value(v, a.ForeignKey)
		if fk, ok = keyValue(fk); !ok {
			break
		}
		found, err = a.Related.findValues(ctx, &query{
			where:   where.Filter{where.C(a.Key, fk)},
			columns: columns,
			limit:   1,
		})
	case BelongsToMany:
		found, err = m.populateThrough(ctx, a, v, columns)
	}
	if err != nil {
		return nil, err
	}
	setRelation(v.FieldByIndex(a.field.index), a.field, found)
	m.client.log.DebugContext(ctx, "relation populated",
		"model", m.schema.Name, "relation", alias, "kind", a.Kind.String(), "rows", len(found))
	return e, nil
}

// populateThrough resolves a belongsToMany relation: one query for the
// join rows, then one lookup per join row. Join rows whose related row
// is gone are skipped. Result order follows the join rows.
func (m *Model[T]) populateThrough(ctx context.Context, a *Association, v reflect.Value, columns []string) ([]reflect.Value, error) {
	joins, err := a.Through.findValues(ctx, &query{
		where: where.Filter{where.C(a.ForeignKey, m.schema.pk(v).Interface())},
	})
	if err != nil {
		return nil, err
	}
	ts := a.Through.Schema()
	results := make([]reflect.Value, len(joins))
	lookup := func(ctx context.Context, i int) error {
		other, _ := ts.value(joins[i].Elem(), a.OtherKey)
		other, ok := keyValue(other)
		if !ok {
			return nil
		}
		vs, err := a.Related.findValues(ctx, &query{
			where:   where.Filter{where.C(a.Key, other)},
			columns: columns,
			limit:   1,
		})
		if err != nil {
			return err
		}
		if len(vs) > 0 {
			results[i] = vs[0]
		}
		return nil
	}
	if n := m.client.populate; n > 1 && TxFromContext(ctx) == nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(n)
		for i := range joins {
			g.Go(func() error { return lookup(gctx, i) })
		}
		err = g.Wait()
	} else {
		for i := range joins {
			if err = lookup(ctx, i); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}
	found := results[:0]
	for _, r := range results {
		if r.IsValid() {
			found = append(found, r)
		}
	}
	return found, nil
}

// setRelation stores found (a list of *R) in the relation field.
func setRelation(field reflect.Value, rf *relation, found []reflect.Value) {
	if !rf.many {
		if len(found) == 0 {
			field.SetZero()
			return
		}
		field.Set(relationValue(rf, found[0]))
		return
	}
	list := reflect.MakeSlice(field.Type(), 0, len(found))
	for _, f := range found {
		list = reflect.Append(list, relationValue(rf, f))
	}
	field.Set(list)
}

func relationValue(rf *relation, p reflect.Value) reflect.Value {
	if rf.ptr {
		return p
	}
	return p.Elem()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Attach links target to e through a hasOne or hasMany relation: it sets
// the target foreign key to e's key, saves the target (insert when new,
// update otherwise) and stores it in the relation field of e.
// target must be a pointer to the related entity type.
func (m *Model[T]) Attach(ctx context.Context, e *T, target any, alias string) (*T, error) {
	v, err := m.saved(e)
	if err != nil {
		return nil, err
	}
	a, ok := m.Association(alias)
	if !ok {
		return nil, NewUnknownRelationError(m.schema.Name, alias)
	}
	if a.Kind != HasOne && a.Kind != HasMany {
		return nil, NewValidationError(alias, fmt.Errorf("attach supports hasOne and hasMany, not %s", a.Kind))
	}
	rs := a.Related.Schema()
	tv := reflect.ValueOf(target)
	if !tv.IsValid() || tv.Kind() != reflect.Pointer || tv.IsNil() || tv.Elem().Type() != rs.typ {
		return nil, NewValidationError("target", fmt.Errorf("expect *%s, got %T", rs.typ, target))
	}
	local, _ := m.schema.value(v, a.Key)
	if err := assign(tv.Elem().FieldByIndex(rs.byColumn[a.ForeignKey].index), local); err != nil {
		return nil, NewValidationError(a.ForeignKey, err)
	}
	if err := a.Related.persist(ctx, tv); err != nil {
		return nil, err
	}
	field := v.FieldByIndex(a.field.index)
	if a.field.many {
		field.Set(reflect.Append(field, relationValue(a.field, tv)))
	} else {
		field.Set(relationValue(a.field, tv))
	}
	return e, nil
}
