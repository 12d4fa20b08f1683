// Package sqlgraph classifies database errors raised while writing rows.
package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// sqlStateError is an interface for errors that provide SQLSTATE codes.
// Implemented by pgx and some MySQL proxies.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// violation describes how each driver reports one kind of constraint failure.
type violation struct {
	pgState  string
	mysqlNum []uint16
	sqlite   []int
	fallback []string
}

var (
	uniqueViolation = violation{
		pgState:  pgUniqueViolation,
		mysqlNum: []uint16{mysqlDuplicateEntry},
		sqlite:   []int{sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY},
		fallback: []string{
			"Error 1062",                 // MySQL
			"violates unique constraint", // Postgres
			"UNIQUE constraint failed",   // SQLite
		},
	}
	foreignKeyViolation = violation{
		pgState:  pgForeignKeyViolation,
		mysqlNum: []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		sqlite:   []int{sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY},
		fallback: []string{
			"Error 1451",
			"Error 1452",
			"violates foreign key constraint",
			"FOREIGN KEY constraint failed",
		},
	}
	checkViolation = violation{
		pgState:  pgCheckViolation,
		mysqlNum: []uint16{mysqlCheckConstraintViolate},
		sqlite:   []int{sqlite3.SQLITE_CONSTRAINT_CHECK},
		fallback: []string{
			"Error 3819",
			"violates check constraint",
			"CHECK constraint failed",
		},
	}
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return uniqueViolation.match(err)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return foreignKeyViolation.match(err)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	return checkViolation.match(err)
}

func (v violation) match(err error) bool {
	if err == nil {
		return false
	}
	if e := (*pq.Error)(nil); errors.As(err, &e) {
		return string(e.Code) == v.pgState
	}
	if e := (*mysql.MySQLError)(nil); errors.As(err, &e) {
		for _, n := range v.mysqlNum {
			if e.Number == n {
				return true
			}
		}
		return false
	}
	if e := (*sqlite.Error)(nil); errors.As(err, &e) {
		for _, c := range v.sqlite {
			if e.Code() == c {
				return true
			}
		}
		// Connections without extended result codes only report SQLITE_CONSTRAINT.
		return containsAny(e.Error(), v.fallback...)
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState() == v.pgState
	}
	// Fallback to string matching for drivers that don't expose codes.
	return containsAny(err.Error(), v.fallback...)
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
