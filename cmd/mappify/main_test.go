package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestWhereCmd(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name: "argument",
			args: []string{"where", "{price: {gt: 100, lt: 200}}"},
			want: "sql: price > ? AND price < ?\nargs:\n  - 100\n  - 200\n",
		},
		{
			name: "postgres table",
			args: []string{"where", "--dialect", "postgres", "--table", "products", "{name: Laptop, or: [{price: 1}, {price: 2}]}"},
			want: "sql: SELECT * FROM products WHERE name = $1 AND (price = $2 OR price = $3)\nargs:\n  - Laptop\n  - 1\n  - 2\n",
		},
		{
			name:  "stdin",
			stdin: "category:\n  in: [books, games]\n",
			args:  []string{"where"},
			want:  "sql: category IN (?, ?)\nargs:\n  - books\n  - games\n",
		},
		{
			name: "empty",
			args: []string{"where", "{}"},
			want: "sql: \"\"\nargs: []\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestWhereCmd_Errors(t *testing.T) {
	_, err := run(t, "", "where", "{price: {near: 1}}")
	require.Error(t, err)
	_, err = run(t, "", "where", "--dialect", "oracle", "{a: 1}")
	require.Error(t, err)
	_, err = run(t, "", "where", "--table", "products;drop", "{a: 1}")
	require.Error(t, err)
}

func TestQueryAndPingCmd(t *testing.T) {
	t.Setenv("DB_DIALECT", "sqlite")
	t.Setenv("DB_NAME", filepath.Join(t.TempDir(), "cli.db"))
	noEnv := "--env-file=" + filepath.Join(t.TempDir(), "none.env")

	_, err := run(t, "", "query", noEnv, "CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, err = run(t, "", "query", noEnv, "INSERT INTO products (name) VALUES (?)", "Laptop")
	require.NoError(t, err)

	out, err := run(t, "", "query", noEnv, "SELECT id, name FROM products WHERE name = ?", "Laptop")
	require.NoError(t, err)
	assert.Equal(t, "- id: 1\n  name: Laptop\n", out)

	out, err = run(t, "", "ping", noEnv)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ok: sqlite"))
}
