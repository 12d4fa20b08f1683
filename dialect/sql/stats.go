package sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/syssam/mappify/dialect"
)

// StmtKind classifies a statement by its leading keyword.
type StmtKind int

// Statement kinds counted by StatsDriver.
const (
	StmtOther StmtKind = iota
	StmtSelect
	StmtInsert
	StmtUpdate
	StmtDelete
	numKinds
)

// KindOf returns the kind of query.
func KindOf(query string) StmtKind {
	words := strings.Fields(query)
	if len(words) == 0 {
		return StmtOther
	}
	switch strings.ToUpper(words[0]) {
	case "SELECT", "WITH":
		return StmtSelect
	case "INSERT":
		return StmtInsert
	case "UPDATE":
		return StmtUpdate
	case "DELETE":
		return StmtDelete
	}
	return StmtOther
}

// QueryStats counts the statements and transactions that went through a
// StatsDriver. It is safe for concurrent use.
type QueryStats struct {
	stmts     [numKinds]atomic.Int64
	commits   atomic.Int64
	rollbacks atomic.Int64
	slow      atomic.Int64
	errors    atomic.Int64
	elapsed   atomic.Int64
}

// Snapshot returns the current counters.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Selects:   s.stmts[StmtSelect].Load(),
		Inserts:   s.stmts[StmtInsert].Load(),
		Updates:   s.stmts[StmtUpdate].Load(),
		Deletes:   s.stmts[StmtDelete].Load(),
		Other:     s.stmts[StmtOther].Load(),
		Commits:   s.commits.Load(),
		Rollbacks: s.rollbacks.Load(),
		Slow:      s.slow.Load(),
		Errors:    s.errors.Load(),
		Elapsed:   time.Duration(s.elapsed.Load()),
	}
}

// Reset zeroes every counter.
func (s *QueryStats) Reset() {
	for i := range s.stmts {
		s.stmts[i].Store(0)
	}
	for _, c := range []*atomic.Int64{&s.commits, &s.rollbacks, &s.slow, &s.errors, &s.elapsed} {
		c.Store(0)
	}
}

func (s *QueryStats) observe(query string, took time.Duration, err error, slow bool) {
	s.stmts[KindOf(query)].Add(1)
	s.elapsed.Add(int64(took))
	if err != nil {
		s.errors.Add(1)
	}
	if slow {
		s.slow.Add(1)
	}
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	Selects   int64
	Inserts   int64
	Updates   int64
	Deletes   int64
	Other     int64
	Commits   int64
	Rollbacks int64
	Slow      int64
	Errors    int64
	Elapsed   time.Duration
}

// Statements returns the number of statements of any kind.
func (s StatsSnapshot) Statements() int64 {
	return s.Selects + s.Inserts + s.Updates + s.Deletes + s.Other
}

// Avg returns the mean statement duration.
func (s StatsSnapshot) Avg() time.Duration {
	n := s.Statements()
	if n == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(n)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("select=%d insert=%d update=%d delete=%d other=%d commit=%d rollback=%d slow=%d errors=%d avg=%s",
		s.Selects, s.Inserts, s.Updates, s.Deletes, s.Other, s.Commits, s.Rollbacks, s.Slow, s.Errors, s.Avg())
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, took time.Duration)

// StatsDriver is a dialect.Driver that counts statements and reports slow ones.
type StatsDriver struct {
	dialect.Driver
	stats  *QueryStats
	slow   atomic.Int64
	onSlow SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// The default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.slow.Store(int64(d)) }
}

// WithSlowQueryHook sets the function called for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) { s.onSlow = hook }
}

// WithSlowQueryLog logs slow statements as warnings to l, or to the
// default logger when l is nil. Bound values are not logged.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	if l == nil {
		l = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, took time.Duration) {
		l.WarnContext(ctx, "slow query", "took", took, "sql", query, "args", len(args))
	})
}

// NewStatsDriver wraps drv with statement counting.
//
//	drv := sql.NewStatsDriver(base, sql.WithSlowThreshold(200*time.Millisecond))
//	client := mappify.NewClient(drv)
//	...
//	fmt.Println(drv.Stats().Snapshot())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, stats: &QueryStats{}}
	s.slow.Store(int64(100 * time.Millisecond))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the live counters.
func (d *StatsDriver) Stats() *QueryStats { return d.stats }

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration { return time.Duration(d.slow.Load()) }

// SetSlowThreshold changes the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(t time.Duration) { d.slow.Store(int64(t)) }

// Query implements dialect.Driver.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, query, args, func() error { return d.Driver.Query(ctx, query, args, v) })
}

// Exec implements dialect.Driver.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, query, args, func() error { return d.Driver.Exec(ctx, query, args, v) })
}

func (d *StatsDriver) observe(ctx context.Context, query string, args any, run func() error) error {
	start := time.Now()
	err := run()
	took := time.Since(start)
	slow := took > d.SlowThreshold()
	d.stats.observe(query, took, err, slow)
	if slow && d.onSlow != nil {
		vs, _ := args.([]any)
		d.onSlow(ctx, query, vs, took)
	}
	return err
}

// Tx implements dialect.Driver. Statements of the transaction are counted
// too, and so are its commit or rollback.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, drv: d}, nil
}

type statsTx struct {
	dialect.Tx
	drv *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.drv.observe(ctx, query, args, func() error { return tx.Tx.Query(ctx, query, args, v) })
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.drv.observe(ctx, query, args, func() error { return tx.Tx.Exec(ctx, query, args, v) })
}

func (tx *statsTx) Commit() error {
	err := tx.Tx.Commit()
	if err == nil {
		tx.drv.stats.commits.Add(1)
	}
	return err
}

func (tx *statsTx) Rollback() error {
	tx.drv.stats.rollbacks.Add(1)
	return tx.Tx.Rollback()
}

// DebugDriver is a dialect.Driver that logs every statement at debug
// level once it completed, with its bound values and duration.
type DebugDriver struct {
	dialect.Driver
	log *slog.Logger
}

// DebugOption configures a DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLogger sets the logger statements are written to.
func DebugWithLogger(l *slog.Logger) DebugOption {
	return func(d *DebugDriver) { d.log = l }
}

// NewDebugDriver wraps drv with statement logging.
func NewDebugDriver(drv dialect.Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{Driver: drv, log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Query implements dialect.Driver.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	return logStatement(ctx, d.log, query, args, func() error { return d.Driver.Query(ctx, query, args, v) })
}

// Exec implements dialect.Driver.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	return logStatement(ctx, d.log, query, args, func() error { return d.Driver.Exec(ctx, query, args, v) })
}

// Tx implements dialect.Driver.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		d.log.DebugContext(ctx, "begin failed", "err", err)
		return nil, err
	}
	d.log.DebugContext(ctx, "begin")
	return &debugTx{Tx: tx, log: d.log}, nil
}

type debugTx struct {
	dialect.Tx
	log *slog.Logger
}

func (tx *debugTx) Query(ctx context.Context, query string, args, v any) error {
	return logStatement(ctx, tx.log, query, args, func() error { return tx.Tx.Query(ctx, query, args, v) })
}

func (tx *debugTx) Exec(ctx context.Context, query string, args, v any) error {
	return logStatement(ctx, tx.log, query, args, func() error { return tx.Tx.Exec(ctx, query, args, v) })
}

func (tx *debugTx) Commit() error {
	err := tx.Tx.Commit()
	tx.log.Debug("commit", "err", err)
	return err
}

func (tx *debugTx) Rollback() error {
	err := tx.Tx.Rollback()
	tx.log.Debug("rollback", "err", err)
	return err
}

func logStatement(ctx context.Context, l *slog.Logger, query string, args any, run func() error) error {
	start := time.Now()
	err := run()
	attrs := []any{"sql", query, "args", args, "took", time.Since(start)}
	if err != nil {
		attrs = append(attrs, "err", err)
	}
	l.DebugContext(ctx, "statement", attrs...)
	return err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
	_ dialect.Tx     = (*debugTx)(nil)
)
