package mappify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/mappify"
	"github.com/syssam/mappify/cache"
	"github.com/syssam/mappify/dialect"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "products:42", mappify.CacheKey{Table: "products", ID: 42}.String())
}

func TestFindByIDCache(t *testing.T) {
	ctx := context.Background()
	lru := cache.NewLRU(16, 0)
	client, mock := mockClient(t, dialect.MySQL, mappify.WithCache(lru))
	products := mappify.MustModel[Product](client)

	mock.ExpectQuery("SELECT * FROM products WHERE id = ? LIMIT 1").
		WithArgs(1).
		WillReturnRows(productRows().AddRow(1, "Laptop", 999.5, "electronics"))
	first, err := products.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, lru.Len())

	// Served from the cache.
	second, err := products.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	require.NoError(t, mock.ExpectationsWereMet())

	// Writes drop the entry.
	mock.ExpectExec("UPDATE products SET name = ?, price = ?, category = ? WHERE id = ?").
		WithArgs("Laptop", 899.0, "electronics", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	second.Price = 899
	_, err = products.Update(ctx, second)
	require.NoError(t, err)
	assert.Zero(t, lru.Len())

	mock.ExpectQuery("SELECT * FROM products WHERE id = ? LIMIT 1").
		WithArgs(1).
		WillReturnRows(productRows().AddRow(1, "Laptop", 899.0, "electronics"))
	third, err := products.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 899.0, third.Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheBypassedInTx(t *testing.T) {
	ctx := context.Background()
	lru := cache.NewLRU(16, 0)
	client, mock := mockClient(t, dialect.MySQL, mappify.WithCache(lru))
	products := mappify.MustModel[Product](client)

	mock.ExpectQuery("SELECT * FROM products WHERE id = ? LIMIT 1").
		WithArgs(1).
		WillReturnRows(productRows().AddRow(1, "Laptop", 999.5, "electronics"))
	_, err := products.FindByID(ctx, 1)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM products WHERE id = ? LIMIT 1").
		WithArgs(1).
		WillReturnRows(productRows().AddRow(1, "Laptop", 10.0, "electronics"))
	mock.ExpectQuery("SELECT * FROM products WHERE id = ? LIMIT 1").
		WithArgs(2).
		WillReturnRows(productRows().AddRow(2, "Mouse", 5.0, "accessories"))
	mock.ExpectCommit()
	err = client.WithTx(ctx, func(ctx context.Context) error {
		p, err := products.FindByID(ctx, 1)
		if err != nil {
			return err
		}
		assert.Equal(t, 10.0, p.Price)
		_, err = products.FindByID(ctx, 2)
		return err
	})
	require.NoError(t, err)
	// Rows read inside the transaction are not cached.
	assert.Equal(t, 1, lru.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}

// failingCache returns errors from every call.
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingCache) Set(context.Context, string, []byte) error   { return errors.New("down") }
func (failingCache) Delete(context.Context, string) error        { return errors.New("down") }

func TestCacheFailuresFallBack(t *testing.T) {
	ctx := context.Background()
	client, mock := mockClient(t, dialect.MySQL, mappify.WithCache(failingCache{}))
	products := mappify.MustModel[Product](client)

	mock.ExpectQuery("SELECT * FROM products WHERE id = ? LIMIT 1").
		WithArgs(1).
		WillReturnRows(productRows().AddRow(1, "Laptop", 999.5, "electronics"))
	p, err := products.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", p.Name)

	mock.ExpectExec("DELETE FROM products WHERE id = ?").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := products.Delete(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
