package mappify

import (
	"context"
	"fmt"

	// Drivers for the supported dialects.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/mappify/cache"
	"github.com/syssam/mappify/config"
	"github.com/syssam/mappify/dialect"
	"github.com/syssam/mappify/dialect/sql"
)

// Open connects to the database described by cfg and returns a client.
// The connection is verified with a ping bounded by cfg.ConnectTimeout.
// Options are applied after the ones derived from cfg.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	drv, err := sql.Open(cfg.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("mappify: opening %s: %w", cfg.Dialect, err)
	}
	db := drv.DB()
	switch {
	case !cfg.UsePool:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pctx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := drv.PingContext(pctx); err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("mappify: connecting to %s: %w", cfg.Dialect, err)
	}

	c := NewClient(drv, opts...)
	var d dialect.Driver = drv
	if cfg.SlowThreshold > 0 {
		d = sql.NewStatsDriver(d, sql.WithSlowThreshold(cfg.SlowThreshold), sql.WithSlowQueryLog(c.log))
	}
	if cfg.Debug {
		d = sql.NewDebugDriver(d, sql.DebugWithLogger(c.log))
	}
	c.driver = d
	if cfg.CacheSize > 0 && c.cache == nil {
		c.cache = cache.NewLRU(cfg.CacheSize, cfg.CacheTTL)
	}
	c.log.InfoContext(ctx, "connected to the database",
		"dialect", drv.Dialect(), "pool", cfg.UsePool, "cache", c.cache != nil)
	return c, nil
}
