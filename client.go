package mappify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/syssam/mappify/dialect"
	"github.com/syssam/mappify/dialect/sql"
)

// Client is the entry point of mappify. It owns the driver every model
// executes through and carries the shared logger and cache.
type Client struct {
	driver   dialect.Driver
	log      *slog.Logger
	cache    Cache
	populate int
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for connection, transaction and
// populate events. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithCache enables the FindByID row cache.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithPopulateConcurrency lets belongsToMany populate run up to n related
// lookups at once. Lookups inside a transaction always run one by one.
func WithPopulateConcurrency(n int) Option {
	return func(c *Client) {
		c.populate = n
	}
}

// NewClient returns a client executing through drv.
func NewClient(drv dialect.Driver, opts ...Option) *Client {
	c := &Client{
		driver:   drv,
		log:      slog.Default(),
		populate: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Driver returns the underlying driver.
func (c *Client) Driver() dialect.Driver {
	return c.driver
}

// Dialect returns the dialect name of the underlying driver.
func (c *Client) Dialect() string {
	return c.driver.Dialect()
}

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger {
	return c.log
}

// Close closes the underlying driver.
func (c *Client) Close() error {
	c.log.Info("closing the database connection")
	return c.driver.Close()
}

// conn returns the executor for ctx: the transaction bound to ctx when it
// belongs to this client, or the driver.
func (c *Client) conn(ctx context.Context) dialect.ExecQuerier {
	if tx := TxFromContext(ctx); tx != nil && tx.client == c {
		return tx
	}
	return c.driver
}

// Row is one result row keyed by column name.
type Row = map[string]any

// Query runs a raw statement and returns its rows. Placeholders follow the
// driver convention (`?`, or `$n` for PostgreSQL).
func (c *Client) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	if args == nil {
		args = []any{}
	}
	rows := &sql.Rows{}
	if err := c.conn(ctx).Query(ctx, query, args, rows); err != nil {
		return nil, NewQueryError("raw", "query", err)
	}
	out, err := sql.ScanMaps(rows)
	if err != nil {
		return nil, NewQueryError("raw", "scan", err)
	}
	return out, nil
}

// Exec runs a raw statement that returns no rows.
func (c *Client) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if args == nil {
		args = []any{}
	}
	var res sql.Result
	if err := c.conn(ctx).Exec(ctx, query, args, &res); err != nil {
		return nil, NewMutationError("raw", "exec", err)
	}
	return res, nil
}

// Ping verifies the database is reachable when the driver supports it.
func (c *Client) Ping(ctx context.Context) error {
	p, ok := unwrapDriver(c.driver).(interface {
		PingContext(context.Context) error
	})
	if !ok {
		return errors.New("mappify: driver does not support ping")
	}
	return p.PingContext(ctx)
}

// unwrapDriver peels the stats and debug decorators off drv.
func unwrapDriver(drv dialect.Driver) dialect.Driver {
	for {
		switch d := drv.(type) {
		case *sql.StatsDriver:
			drv = d.Driver
		case *sql.DebugDriver:
			drv = d.Driver
		default:
			return drv
		}
	}
}

// Stats returns the query statistics when the driver collects them.
func (c *Client) Stats() (sql.StatsSnapshot, bool) {
	drv := c.driver
	for {
		switch d := drv.(type) {
		case *sql.StatsDriver:
			return d.Stats().Snapshot(), true
		case *sql.DebugDriver:
			drv = d.Driver
		default:
			return sql.StatsSnapshot{}, false
		}
	}
}
