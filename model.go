package mappify

import (
	"context"
	"reflect"
	"sync"

	"github.com/syssam/mappify/dialect/sql"
	"github.com/syssam/mappify/where"
)

// Model binds an entity type to a client. It runs the finders, the CRUD
// operations and the associations declared for T.
//
//	type Product struct {
//	    ID    int64   `db:"id"`
//	    Name  string  `db:"name"`
//	    Price float64 `db:"price"`
//	}
//
//	products, err := mappify.NewModel[Product](client)
//	p, err := products.FindOne(ctx, mappify.Options{
//	    Where: where.Filter{where.C("name", "Laptop")},
//	})
type Model[T any] struct {
	client *Client
	schema *Schema

	mu     sync.RWMutex
	assocs map[string]*Association
}

// ModelOption configures a Model.
type ModelOption func(*modelConfig)

type modelConfig struct {
	table string
}

// Table overrides the table name of the model.
func Table(name string) ModelOption {
	return func(c *modelConfig) {
		c.table = name
	}
}

// NewModel returns the model of T. T must be a struct with an integer
// primary key.
func NewModel[T any](client *Client, opts ...ModelOption) (*Model[T], error) {
	var cfg modelConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := schemaOf(reflect.TypeFor[T](), cfg.table)
	if err != nil {
		return nil, err
	}
	return &Model[T]{
		client: client,
		schema: s,
		assocs: make(map[string]*Association),
	}, nil
}

// MustModel is like NewModel but panics on error.
func MustModel[T any](client *Client, opts ...ModelOption) *Model[T] {
	m, err := NewModel[T](client, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Schema returns the declared schema of T.
func (m *Model[T]) Schema() *Schema {
	return m.schema
}

// Client returns the client the model executes through.
func (m *Model[T]) Client() *Client {
	return m.client
}

// Relatable is implemented by every Model. It lets models reference each
// other in association declarations regardless of their entity type.
type Relatable interface {
	Schema() *Schema
	findValues(ctx context.Context, q *query) ([]reflect.Value, error)
	persist(ctx context.Context, v reflect.Value) error
}

var _ Relatable = (*Model[struct{ ID int }])(nil)

// rows runs a SELECT for q and returns the raw rows.
func (m *Model[T]) rows(ctx context.Context, q *query) ([]map[string]any, error) {
	clause, err := where.Compile(q.where)
	if err != nil {
		return nil, NewValidationError("where", err)
	}
	sel := sql.Dialect(m.client.Dialect()).
		Select(q.columns...).
		From(m.schema.Table).
		Where(clause.SQL, clause.Args...).
		GroupBy(q.group...).
		OrderBy(q.order...)
	if q.paged {
		sel.Limit(q.limit).Offset(q.offset)
	} else if q.limit > 0 {
		sel.Limit(q.limit)
	}
	stmt, args := sel.Query()
	if args == nil {
		args = []any{}
	}
	rows := &sql.Rows{}
	if err := m.client.conn(ctx).Query(ctx, stmt, args, rows); err != nil {
		return nil, NewQueryError(m.schema.Name, "select", err)
	}
	out, err := sql.ScanMaps(rows)
	if err != nil {
		return nil, NewQueryError(m.schema.Name, "select", err)
	}
	return out, nil
}

// find runs q and hydrates every row.
func (m *Model[T]) find(ctx context.Context, q *query) ([]*T, error) {
	rows, err := m.rows(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		e, err := m.hydrate(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *Model[T]) first(ctx context.Context, q *query) (*T, error) {
	q.limit = 1
	q.paged = false
	out, err := m.find(ctx, q)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func (m *Model[T]) hydrate(row map[string]any) (*T, error) {
	e := new(T)
	if err := m.schema.hydrate(reflect.ValueOf(e).Elem(), row); err != nil {
		return nil, NewQueryError(m.schema.Name, "scan", err)
	}
	return e, nil
}

// findValues implements Relatable.
func (m *Model[T]) findValues(ctx context.Context, q *query) ([]reflect.Value, error) {
	out, err := m.find(ctx, q)
	if err != nil {
		return nil, err
	}
	vs := make([]reflect.Value, len(out))
	for i, e := range out {
		vs[i] = reflect.ValueOf(e)
	}
	return vs, nil
}

// persist implements Relatable. It inserts unsaved entities and updates
// the others.
func (m *Model[T]) persist(ctx context.Context, v reflect.Value) error {
	e, ok := v.Interface().(*T)
	if !ok || e == nil {
		return NewValidationError("target", errNilEntity)
	}
	if m.schema.pk(v.Elem()).IsZero() {
		_, err := m.Save(ctx, e)
		return err
	}
	_, err := m.Update(ctx, e)
	return err
}
