// Package sql implements the dialect.Driver contract on top of database/sql
// and provides the small statement builders mappify models use.
//
// Builders always emit `?` placeholders and rebind them to `$n` when the
// dialect is PostgreSQL:
//
//	query, args := sql.Dialect(dialect.Postgres).
//	    Select("id", "name").
//	    From("users").
//	    Where("age > ?", 18).
//	    Limit(10).
//	    Query()
//	// SELECT id, name FROM users WHERE age > $1 LIMIT 10
//
// Identifiers are never quoted. Callers validate them with
// IsValidIdentifier before they reach a builder.
//
// StatsDriver and DebugDriver decorate any dialect.Driver with query
// counters, slow-query reporting and statement logging through log/slog.
package sql
