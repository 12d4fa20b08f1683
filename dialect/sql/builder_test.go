package sql

import (
	"testing"

	"github.com/syssam/mappify/dialect"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	tests := []struct {
		input     Querier
		wantQuery string
		wantArgs  []any
	}{
		{
			input:     Dialect(dialect.MySQL).Select().From("users"),
			wantQuery: "SELECT * FROM users",
		},
		{
			input: Dialect(dialect.MySQL).
				Select("id", "name").
				From("products").
				Where("price > ? AND price < ?", 100, 200).
				OrderBy("name", "price DESC").
				Limit(10).
				Offset(20),
			wantQuery: "SELECT id, name FROM products WHERE price > ? AND price < ? ORDER BY name, price DESC LIMIT 10 OFFSET 20",
			wantArgs:  []any{100, 200},
		},
		{
			input: Dialect(dialect.Postgres).
				Select().
				From("products").
				Where("name IN (?, ?)", "A", "B").
				Where("(price = ? OR price = ?)", 1, 2).
				GroupBy("category"),
			wantQuery: "SELECT * FROM products WHERE (name IN ($1, $2)) AND ((price = $3 OR price = $4)) GROUP BY category",
			wantArgs:  []any{"A", "B", 1, 2},
		},
		{
			input:     Dialect(dialect.SQLite).Select().From("users").Where(""),
			wantQuery: "SELECT * FROM users",
		},
		{
			input: Dialect(dialect.MySQL).
				Insert("users").
				Set("name", "a8m").
				Set("age", 30),
			wantQuery: "INSERT INTO users (name, age) VALUES (?, ?)",
			wantArgs:  []any{"a8m", 30},
		},
		{
			input: Dialect(dialect.Postgres).
				Insert("users").
				Set("name", "a8m").
				Set("age", 30).
				Returning("id"),
			wantQuery: "INSERT INTO users (name, age) VALUES ($1, $2) RETURNING id",
			wantArgs:  []any{"a8m", 30},
		},
		{
			input:     Dialect(dialect.MySQL).Insert("users").Returning("id"),
			wantQuery: "INSERT INTO users () VALUES ()",
		},
		{
			input:     Dialect(dialect.SQLite).Insert("users"),
			wantQuery: "INSERT INTO users DEFAULT VALUES",
		},
		{
			input: Dialect(dialect.Postgres).
				Update("users").
				Set("name", "foo").
				Set("age", 10).
				Where("id = ?", 1),
			wantQuery: "UPDATE users SET name = $1, age = $2 WHERE id = $3",
			wantArgs:  []any{"foo", 10, 1},
		},
		{
			input:     Dialect(dialect.MySQL).Delete("users").Where("id = ?", 1),
			wantQuery: "DELETE FROM users WHERE id = ?",
			wantArgs:  []any{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.wantQuery, func(t *testing.T) {
			query, args := tt.input.Query()
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = ? AND b = ?", Rebind(dialect.MySQL, "a = ? AND b = ?"))
	assert.Equal(t, "a = $1 AND b = $2", Rebind(dialect.Postgres, "a = ? AND b = ?"))
	assert.Equal(t, "a = '?' AND b = $1", Rebind(dialect.Postgres, "a = '?' AND b = ?"))
	assert.Equal(t, "SELECT 1", Rebind(dialect.Postgres, "SELECT 1"))
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"users", true},
		{"user_id", true},
		{"_private", true},
		{"users.id", true},
		{"Table123", true},
		{"", false},
		{"1users", false},
		{"users.", false},
		{"name; DROP TABLE users", false},
		{"name--", false},
		{"name'", false},
		{"a b", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidIdentifier(tt.input))
		})
	}
}
