package mappify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/syssam/mappify/dialect"
)

// Tx is a transaction started by a Client. Bind it to a context with
// NewTxContext and every model call made with that context runs on it.
type Tx struct {
	dialect.Tx
	// ID identifies the transaction in logs.
	ID     uuid.UUID
	client *Client

	mu       sync.Mutex
	onCommit []func()
}

// afterCommit registers fn to run once the transaction committed.
func (tx *Tx) afterCommit(fn func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.onCommit = append(tx.onCommit, fn)
}

// Tx begins a transaction. A context that already carries a transaction
// yields ErrTxStarted.
func (c *Client) Tx(ctx context.Context) (*Tx, error) {
	if TxFromContext(ctx) != nil {
		return nil, ErrTxStarted
	}
	tx, err := c.driver.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("mappify: starting a transaction: %w", err)
	}
	t := &Tx{Tx: tx, ID: uuid.New(), client: c}
	c.log.DebugContext(ctx, "transaction started", "tx", t.ID)
	return t, nil
}

// Client returns the client that started the transaction.
func (tx *Tx) Client() *Client {
	return tx.client
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	if err := tx.Tx.Commit(); err != nil {
		tx.client.log.Error("transaction commit failed", "tx", tx.ID, "error", err)
		return err
	}
	tx.client.log.Debug("transaction committed", "tx", tx.ID)
	tx.mu.Lock()
	hooks := tx.onCommit
	tx.onCommit = nil
	tx.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	if err := tx.Tx.Rollback(); err != nil {
		tx.client.log.Error("transaction rollback failed", "tx", tx.ID, "error", err)
		return err
	}
	tx.client.log.Debug("transaction rolled back", "tx", tx.ID)
	return nil
}

type txCtxKey struct{}

// NewTxContext returns a new context with the given Tx attached.
func NewTxContext(parent context.Context, tx *Tx) context.Context {
	return context.WithValue(parent, txCtxKey{}, tx)
}

// TxFromContext returns the Tx stored in a context, or nil if there isn't one.
func TxFromContext(ctx context.Context) *Tx {
	tx, _ := ctx.Value(txCtxKey{}).(*Tx)
	return tx
}

// WithTx runs fn inside a transaction. The context passed to fn carries
// the transaction. It commits when fn returns nil and rolls back when fn
// fails or panics.
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := c.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(NewTxContext(ctx, tx)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return &RollbackError{Err: err, Rollback: rerr}
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mappify: committing transaction: %w", err)
	}
	return nil
}
