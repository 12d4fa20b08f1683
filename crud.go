package mappify

import (
	"context"
	"errors"
	"reflect"

	"github.com/spf13/cast"

	"github.com/syssam/mappify/dialect"
	"github.com/syssam/mappify/dialect/sql"
	"github.com/syssam/mappify/dialect/sql/sqlgraph"
)

// New builds an unsaved entity from column-keyed data.
func (m *Model[T]) New(data map[string]any) (*T, error) {
	e := new(T)
	if err := m.Set(e, data); err != nil {
		return nil, err
	}
	return e, nil
}

// Set copies column-keyed data into e, converting values to the field
// types. Unknown columns are rejected.
func (m *Model[T]) Set(e *T, data map[string]any) error {
	if e == nil {
		return NewValidationError(m.schema.Name, errNilEntity)
	}
	return m.schema.apply(reflect.ValueOf(e).Elem(), data)
}

// Create builds an entity from data and inserts it.
func (m *Model[T]) Create(ctx context.Context, data map[string]any) (*T, error) {
	e, err := m.New(data)
	if err != nil {
		return nil, err
	}
	if _, err := m.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Save inserts e. Every declared column is written, the primary key
// only when it is already set. On success the key is stored back in e
// and returned.
func (m *Model[T]) Save(ctx context.Context, e *T) (int64, error) {
	if e == nil {
		return 0, NewValidationError(m.schema.Name, errNilEntity)
	}
	var (
		s     = m.schema
		v     = reflect.ValueOf(e).Elem()
		d     = m.client.Dialect()
		pkSet = !s.pk(v).IsZero()
		ins   = sql.Dialect(d).Insert(s.Table)
	)
	for _, c := range s.fields {
		if c.name == s.PrimaryKey && !pkSet {
			continue
		}
		ins.Set(c.name, v.FieldByIndex(c.index).Interface())
	}
	conn := m.client.conn(ctx)
	if d == dialect.Postgres && !pkSet {
		stmt, args := ins.Returning(s.PrimaryKey).Query()
		rows := &sql.Rows{}
		if err := conn.Query(ctx, stmt, nonNil(args), rows); err != nil {
			return 0, m.mutationError("insert", err)
		}
		out, err := sql.ScanMaps(rows)
		if err != nil {
			return 0, m.mutationError("insert", err)
		}
		if len(out) == 0 {
			return 0, m.mutationError("insert", errors.New("no id returned"))
		}
		return m.storeID(v, out[0][s.PrimaryKey])
	}
	stmt, args := ins.Query()
	var res sql.Result
	if err := conn.Exec(ctx, stmt, nonNil(args), &res); err != nil {
		return 0, m.mutationError("insert", err)
	}
	if pkSet {
		return s.pkInt64(v), nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, m.mutationError("insert", err)
	}
	return m.storeID(v, id)
}

func (m *Model[T]) storeID(v reflect.Value, id any) (int64, error) {
	n, err := cast.ToInt64E(id)
	if err != nil {
		return 0, m.mutationError("insert", err)
	}
	if err := assign(m.schema.pk(v), n); err != nil {
		return 0, m.mutationError("insert", err)
	}
	return n, nil
}

// Update writes every non-key column of e, filtered by its primary key.
// It reports whether a row was changed.
func (m *Model[T]) Update(ctx context.Context, e *T) (bool, error) {
	v, err := m.saved(e)
	if err != nil {
		return false, err
	}
	s := m.schema
	up := sql.Dialect(m.client.Dialect()).Update(s.Table)
	n := 0
	for _, c := range s.fields {
		if c.name == s.PrimaryKey {
			continue
		}
		up.Set(c.name, v.FieldByIndex(c.index).Interface())
		n++
	}
	if n == 0 {
		return false, NewValidationError(s.Name, errors.New("no columns to update"))
	}
	id := s.pk(v).Interface()
	stmt, args := up.Where(s.PrimaryKey+" = ?", id).Query()
	return m.exec(ctx, "update", stmt, args, id)
}

// Delete removes the row of e. It reports whether a row was removed.
func (m *Model[T]) Delete(ctx context.Context, e *T) (bool, error) {
	v, err := m.saved(e)
	if err != nil {
		return false, err
	}
	id := m.schema.pk(v).Interface()
	stmt, args := sql.Dialect(m.client.Dialect()).
		Delete(m.schema.Table).
		Where(m.schema.PrimaryKey+" = ?", id).
		Query()
	return m.exec(ctx, "delete", stmt, args, id)
}

func (m *Model[T]) saved(e *T) (reflect.Value, error) {
	if e == nil {
		return reflect.Value{}, NewValidationError(m.schema.Name, errNilEntity)
	}
	v := reflect.ValueOf(e).Elem()
	if m.schema.pk(v).IsZero() {
		return reflect.Value{}, NewValidationError(m.schema.PrimaryKey, errors.New("entity has not been saved"))
	}
	return v, nil
}

func (m *Model[T]) exec(ctx context.Context, op, stmt string, args []any, id any) (bool, error) {
	var res sql.Result
	if err := m.client.conn(ctx).Exec(ctx, stmt, args, &res); err != nil {
		return false, m.mutationError(op, err)
	}
	m.forget(ctx, id)
	affected, err := res.RowsAffected()
	if err != nil {
		return false, m.mutationError(op, err)
	}
	return affected > 0, nil
}

func (m *Model[T]) mutationError(op string, err error) error {
	if sqlgraph.IsConstraintError(err) {
		err = NewConstraintError(err.Error(), err)
	}
	return NewMutationError(m.schema.Name, op, err)
}

func nonNil(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}
