// Package dialect defines the contracts mappify uses to talk to a database.
//
// A Driver executes statements and begins transactions. A Tx is the
// transactional counterpart. Both satisfy ExecQuerier, so model code can
// run unchanged inside or outside a transaction.
//
//	drv, err := sql.Open(dialect.MySQL, dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := mappify.NewClient(drv)
//
// The sub-package dialect/sql holds the database/sql implementation and
// the statement builder. dialect/sql/sqlgraph classifies driver errors.
package dialect
