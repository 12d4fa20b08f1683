package mappify

import (
	"context"
	"errors"

	"github.com/syssam/mappify/where"
)

// Fetch returns every row of the table.
func (m *Model[T]) Fetch(ctx context.Context) ([]*T, error) {
	return m.find(ctx, &query{})
}

// FindOne returns the first row matching opts.Where, or nil when nothing
// matches. An empty Where is rejected before any query is sent.
func (m *Model[T]) FindOne(ctx context.Context, opts Options) (*T, error) {
	if len(opts.Where) == 0 {
		return nil, NewValidationError("where", errors.New("FindOne requires a where filter"))
	}
	q, err := opts.compile(m.schema)
	if err != nil {
		return nil, err
	}
	return m.first(ctx, q)
}

// FindAll returns the rows matching opts. The result may be empty.
func (m *Model[T]) FindAll(ctx context.Context, opts Options) ([]*T, error) {
	q, err := opts.compile(m.schema)
	if err != nil {
		return nil, err
	}
	return m.find(ctx, q)
}

// FindByID returns the entity with the given primary key, or nil.
func (m *Model[T]) FindByID(ctx context.Context, id any) (*T, error) {
	if id == nil {
		return nil, NewValidationError(m.schema.PrimaryKey, errors.New("nil id"))
	}
	if e, ok := m.cached(ctx, id); ok {
		return e, nil
	}
	rows, err := m.rows(ctx, &query{where: where.Filter{where.C(m.schema.PrimaryKey, id)}, limit: 1})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	e, err := m.hydrate(rows[0])
	if err != nil {
		return nil, err
	}
	m.remember(ctx, id, rows[0])
	return e, nil
}

// FindOrCreate returns the first row matching opts.Where. When nothing
// matches it creates one from the plain equality conditions of the filter
// overlaid with defaults. The boolean reports whether a row was created.
// The lookup and the insert are not atomic; run it inside WithTx when
// that matters.
func (m *Model[T]) FindOrCreate(ctx context.Context, opts Options, defaults map[string]any) (*T, bool, error) {
	e, err := m.FindOne(ctx, opts)
	if err != nil {
		return nil, false, err
	}
	if e != nil {
		return e, false, nil
	}
	data := opts.Where.Equalities()
	for k, v := range defaults {
		data[k] = v
	}
	e, err = m.Create(ctx, data)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// FindByIDAndDelete deletes the entity with the given primary key.
// A missing row yields a *NotFoundError.
func (m *Model[T]) FindByIDAndDelete(ctx context.Context, id any) (bool, error) {
	e, err := m.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, NewNotFoundErrorWithID(m.schema.Name, id)
	}
	return m.Delete(ctx, e)
}

// FindOneAndDelete deletes the first row matching opts.Where.
// A missing row yields a *NotFoundError.
func (m *Model[T]) FindOneAndDelete(ctx context.Context, opts Options) (bool, error) {
	e, err := m.FindOne(ctx, fullRow(opts))
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, NewNotFoundError(m.schema.Name)
	}
	return m.Delete(ctx, e)
}

// FindOneAndUpdate overwrites the columns named in data on the first row
// matching opts.Where and returns the updated entity.
// A missing row yields a *NotFoundError.
func (m *Model[T]) FindOneAndUpdate(ctx context.Context, opts Options, data map[string]any) (*T, error) {
	e, err := m.FindOne(ctx, fullRow(opts))
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, NewNotFoundError(m.schema.Name)
	}
	return m.updateWith(ctx, e, data)
}

// FindByIDAndUpdate overwrites the columns named in data on the entity
// with the given primary key and returns it.
// A missing row yields a *NotFoundError.
func (m *Model[T]) FindByIDAndUpdate(ctx context.Context, id any, data map[string]any) (*T, error) {
	e, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, NewNotFoundErrorWithID(m.schema.Name, id)
	}
	return m.updateWith(ctx, e, data)
}

func (m *Model[T]) updateWith(ctx context.Context, e *T, data map[string]any) (*T, error) {
	if err := m.Set(e, data); err != nil {
		return nil, err
	}
	if _, err := m.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// fullRow drops the projection so that a following Update does not
// overwrite unselected columns with zero values.
func fullRow(opts Options) Options {
	opts.Attributes, opts.Exclude = nil, nil
	return opts
}
