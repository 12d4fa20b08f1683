package mappify_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/mappify"
	"github.com/syssam/mappify/dialect"
)

func TestNewAndSet(t *testing.T) {
	client, _ := mockClient(t, dialect.MySQL)
	products := mappify.MustModel[Product](client)

	p, err := products.New(map[string]any{"name": "Lamp", "price": "12.5", "category": []byte("home")})
	require.NoError(t, err)
	assert.Equal(t, Product{Name: "Lamp", Price: 12.5, Category: "home"}, *p)

	_, err = products.New(map[string]any{"colour": "red"})
	assert.True(t, mappify.IsValidationError(err))

	_, err = products.New(map[string]any{"price": "cheap"})
	assert.True(t, mappify.IsValidationError(err))

	assert.True(t, mappify.IsValidationError(products.Set(nil, map[string]any{"name": "x"})))
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("MySQL", func(t *testing.T) {
		client, mock := mockClient(t, dialect.MySQL)
		products := mappify.MustModel[Product](client)
		mock.ExpectExec("INSERT INTO products (name, price, category) VALUES (?, ?, ?)").
			WithArgs("Lamp", 12.5, "home").
			WillReturnResult(sqlmock.NewResult(42, 1))

		p := &Product{Name: "Lamp", Price: 12.5, Category: "home"}
		id, err := products.Save(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.Equal(t, int64(42), p.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PresetKey", func(t *testing.T) {
		client, mock := mockClient(t, dialect.SQLite)
		products := mappify.MustModel[Product](client)
		mock.ExpectExec("INSERT INTO products (id, name, price, category) VALUES (?, ?, ?, ?)").
			WithArgs(7, "Lamp", 12.5, "home").
			WillReturnResult(sqlmock.NewResult(0, 1))

		id, err := products.Save(ctx, &Product{ID: 7, Name: "Lamp", Price: 12.5, Category: "home"})
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PostgresReturning", func(t *testing.T) {
		client, mock := mockClient(t, dialect.Postgres)
		products := mappify.MustModel[Product](client)
		mock.ExpectQuery("INSERT INTO products (name, price, category) VALUES ($1, $2, $3) RETURNING id").
			WithArgs("Lamp", 12.5, "home").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

		p := &Product{Name: "Lamp", Price: 12.5, Category: "home"}
		id, err := products.Save(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, int64(9), id)
		assert.Equal(t, int64(9), p.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NilableColumn", func(t *testing.T) {
		client, mock := mockClient(t, dialect.MySQL)
		posts := mappify.MustModel[Post](client)
		mock.ExpectExec("INSERT INTO posts (user_id, title) VALUES (?, ?)").
			WithArgs(nil, "Draft").
			WillReturnResult(sqlmock.NewResult(3, 1))

		_, err := posts.Save(ctx, &Post{Title: "Draft"})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nil", func(t *testing.T) {
		client, _ := mockClient(t, dialect.MySQL)
		products := mappify.MustModel[Product](client)
		_, err := products.Save(ctx, nil)
		assert.True(t, mappify.IsValidationError(err))
	})
}

func TestCreate(t *testing.T) {
	client, mock := mockClient(t, dialect.MySQL)
	products := mappify.MustModel[Product](client)
	mock.ExpectExec("INSERT INTO products (name, price, category) VALUES (?, ?, ?)").
		WithArgs("Pen", 1.5, "").
		WillReturnResult(sqlmock.NewResult(11, 1))

	p, err := products.Create(context.Background(), map[string]any{"name": "Pen", "price": 1.5})
	require.NoError(t, err)
	assert.Equal(t, int64(11), p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	client, mock := mockClient(t, dialect.MySQL)
	products := mappify.MustModel[Product](client)

	mock.ExpectExec("UPDATE products SET name = ?, price = ?, category = ? WHERE id = ?").
		WithArgs("Lamp", 10.0, "home", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := products.Update(ctx, &Product{ID: 4, Name: "Lamp", Price: 10, Category: "home"})
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("UPDATE products SET name = ?, price = ?, category = ? WHERE id = ?").
		WithArgs("Gone", 0.0, "", 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = products.Update(ctx, &Product{ID: 5, Name: "Gone"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = products.Update(ctx, &Product{Name: "Unsaved"})
	assert.True(t, mappify.IsValidationError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	client, mock := mockClient(t, dialect.Postgres)
	products := mappify.MustModel[Product](client)

	mock.ExpectExec("DELETE FROM products WHERE id = $1").
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := products.Delete(ctx, &Product{ID: 4})
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("DELETE FROM products WHERE id = $1").
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = products.Delete(ctx, &Product{ID: 4})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = products.Delete(ctx, &Product{})
	assert.True(t, mappify.IsValidationError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintViolation(t *testing.T) {
	ctx := context.Background()

	t.Run("MySQL", func(t *testing.T) {
		client, mock := mockClient(t, dialect.MySQL)
		users := mappify.MustModel[User](client)
		mock.ExpectExec("INSERT INTO users (name, email) VALUES (?, ?)").
			WithArgs("Ann", "ann@example.com").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ann@example.com' for key 'email'"})

		_, err := users.Save(ctx, &User{Name: "Ann", Email: "ann@example.com"})
		assert.True(t, mappify.IsMutationError(err))
		assert.True(t, mappify.IsConstraintError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Postgres", func(t *testing.T) {
		client, mock := mockClient(t, dialect.Postgres)
		users := mappify.MustModel[User](client)
		mock.ExpectExec("UPDATE users SET name = $1, email = $2 WHERE id = $3").
			WithArgs("Ann", "bob@example.com", 1).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		_, err := users.Update(ctx, &User{ID: 1, Name: "Ann", Email: "bob@example.com"})
		assert.True(t, mappify.IsConstraintError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Other", func(t *testing.T) {
		client, mock := mockClient(t, dialect.MySQL)
		users := mappify.MustModel[User](client)
		mock.ExpectExec("DELETE FROM users WHERE id = ?").
			WithArgs(1).
			WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})

		_, err := users.Delete(ctx, &User{ID: 1})
		assert.True(t, mappify.IsMutationError(err))
		assert.False(t, mappify.IsConstraintError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
