package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/syssam/mappify/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.MySQL, db),
		WithSlowThreshold(-1),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	assert.Equal(t, dialect.MySQL, drv.Dialect())

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("DELETE FROM users").WillReturnError(errors.New("locked"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	require.Error(t, drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil))
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "UPDATE users SET age = 1", []any{}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.Stats().Snapshot()
	assert.Equal(t, int64(1), s.Selects)
	assert.Equal(t, int64(1), s.Deletes)
	assert.Equal(t, int64(1), s.Updates)
	assert.Equal(t, int64(3), s.Statements())
	assert.Equal(t, int64(1), s.Commits)
	assert.Zero(t, s.Rollbacks)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(3), s.Slow)
	assert.Equal(t, []string{"SELECT 1", "DELETE FROM users", "UPDATE users SET age = 1"}, slow)
	assert.Contains(t, s.String(), "select=1 insert=0 update=1 delete=1")

	drv.Stats().Reset()
	assert.Zero(t, drv.Stats().Snapshot().Statements())
	drv.SetSlowThreshold(time.Second)
	assert.Equal(t, time.Second, drv.SlowThreshold())
}

func TestKindOf(t *testing.T) {
	tests := map[string]StmtKind{
		"SELECT * FROM users":             StmtSelect,
		"  select id from users":          StmtSelect,
		"WITH t AS (SELECT 1) SELECT *":   StmtSelect,
		"INSERT INTO users (name) VALUES": StmtInsert,
		"update users SET name = ?":       StmtUpdate,
		"DELETE FROM users WHERE id = ?":  StmtDelete,
		"CREATE TABLE users (id INTEGER)": StmtOther,
		"":                                StmtOther,
		"SELECT\n* FROM users":            StmtSelect,
		"\tINSERT INTO users":             StmtInsert,
		"UPDATE\tusers SET a = 1":         StmtUpdate,
		"delete\r\nFROM users":            StmtDelete,
		" \n\t ":                          StmtOther,
	}
	for query, want := range tests {
		assert.Equal(t, want, KindOf(query), query)
	}
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.Postgres, db), DebugWithLogger(logger))

	mock.ExpectExec("DELETE FROM users").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectRollback()

	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM users WHERE id = $1", []any{1}, nil))
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())

	out := buf.String()
	assert.Contains(t, out, "DELETE FROM users WHERE id = $1")
	assert.Contains(t, out, "took=")
	assert.Contains(t, out, "msg=begin")
	assert.Contains(t, out, "msg=rollback")
}
