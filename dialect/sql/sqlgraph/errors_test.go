package sqlgraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type stateErr string

func (e stateErr) Error() string    { return "state " + string(e) }
func (e stateErr) SQLState() string { return string(e) }

func TestConstraintErrors(t *testing.T) {
	tests := []struct {
		name              string
		err               error
		unique, fk, check bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: errors.New("connection refused")},
		{name: "pq unique", err: &pq.Error{Code: "23505"}, unique: true},
		{name: "pq fk", err: &pq.Error{Code: "23503"}, fk: true},
		{name: "pq check", err: &pq.Error{Code: "23514"}, check: true},
		{name: "pq other", err: &pq.Error{Code: "42P01"}},
		{name: "mysql duplicate", err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, unique: true},
		{name: "mysql parent", err: &mysql.MySQLError{Number: 1451}, fk: true},
		{name: "mysql child", err: &mysql.MySQLError{Number: 1452}, fk: true},
		{name: "mysql check", err: &mysql.MySQLError{Number: 3819}, check: true},
		{name: "sqlstate", err: stateErr("23505"), unique: true},
		{name: "sqlite text", err: errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), unique: true},
		{name: "sqlite fk text", err: errors.New("FOREIGN KEY constraint failed"), fk: true},
		{name: "wrapped", err: fmt.Errorf("dialect/sql: exec: %w", &pq.Error{Code: "23505"}), unique: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.fk, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))
			assert.Equal(t, tt.unique || tt.fk || tt.check, IsConstraintError(tt.err))
		})
	}
}
