// Package db is the storage gateway: a pooled Postgres connection with
// transactional helpers, pgvector support, health probing, and a circuit
// breaker around initialization. All handler access to the database goes
// through this package.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/aidisdev/aidis/internal/config"
	"github.com/aidisdev/aidis/internal/errs"
)

// Pool owns the shared *sql.DB and enforces the gateway contract:
// bounded connection acquisition, single-transaction writes, typed errors.
type Pool struct {
	db             *sql.DB
	acquireTimeout time.Duration
	maxOpen        int
}

// Open connects to Postgres, configures pool bounds, and verifies the
// connection with a bounded ping. It does not retry; the lifecycle manager
// wraps it with backoff and the circuit breaker.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	sqldb, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := sqldb.PingContext(pingCtx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{
		db:             sqldb,
		acquireTimeout: cfg.AcquireTimeout,
		maxOpen:        cfg.MaxOpenConns,
	}, nil
}

// NewPoolFromDB wraps an existing connection, for tests with sqlmock.
func NewPoolFromDB(sqldb *sql.DB, acquireTimeout time.Duration, maxOpen int) *Pool {
	if acquireTimeout <= 0 {
		acquireTimeout = 10 * time.Second
	}
	if maxOpen <= 0 {
		maxOpen = 25
	}
	return &Pool{db: sqldb, acquireTimeout: acquireTimeout, maxOpen: maxOpen}
}

// Close shuts the pool down.
func (p *Pool) Close() error { return p.db.Close() }

// acquire obtains a dedicated connection within the acquisition bound.
// A saturated pool fails fast as ResourceExhausted instead of riding out
// the caller's deadline.
func (p *Pool) acquire(ctx context.Context) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, errs.Wrap(errs.KindResourceExhausted, err, "connection pool exhausted")
		}
		return nil, MapError(err)
	}
	return conn, nil
}

// Query runs a read query. Connection acquisition is bounded by the pool's
// acquire timeout; execution runs under the caller's deadline.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, query, args...)
	// Close blocks until the rows are drained, then returns the
	// connection to the pool.
	go conn.Close()
	if err != nil {
		return nil, MapError(err)
	}
	return rows, nil
}

// QueryRow runs a single-row read query under the caller's deadline.
// sql.Row cannot carry an acquisition error, so this path is unbounded;
// point reads here never hold a connection long.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Exec runs a statement outside any explicit transaction. Acquisition is
// bounded like Query.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	return res, nil
}

// Tx runs fn inside BEGIN/COMMIT, rolling back on error or panic. All
// writes one handler performs for a single tool call go through one Tx.
// Acquisition is bounded like Query.
func (p *Pool) Tx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	conn, acquireErr := p.acquire(ctx)
	if acquireErr != nil {
		return acquireErr
	}
	defer conn.Close()

	tx, beginErr := conn.BeginTx(ctx, nil)
	if beginErr != nil {
		return MapError(beginErr)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			err = errs.Internal(fmt.Errorf("%v", r), "panic inside transaction")
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return MapError(err)
	}

	if err = tx.Commit(); err != nil {
		return MapError(err)
	}
	return nil
}

// HealthSnapshot reports pool health for the readiness endpoints.
type HealthSnapshot struct {
	Healthy     bool    `json:"healthy"`
	Utilization float64 `json:"utilization"`
	Active      int     `json:"active"`
	Idle        int     `json:"idle"`
}

// Healthz probes the pool with a short bounded ping and reports connection
// statistics. It never blocks longer than the given timeout.
func (p *Pool) Healthz(ctx context.Context, timeout time.Duration) HealthSnapshot {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stats := p.db.Stats()
	snap := HealthSnapshot{
		Active: stats.InUse,
		Idle:   stats.Idle,
	}
	if p.maxOpen > 0 {
		snap.Utilization = float64(stats.InUse) / float64(p.maxOpen)
	}
	snap.Healthy = p.db.PingContext(pingCtx) == nil
	return snap
}

// MapError converts driver errors to the typed kinds the handlers surface.
// Typed errors pass through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.KindNotFound, err, "no matching row")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.KindResourceExhausted, err, "database operation timed out")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23": // integrity constraint violation
			return errs.Wrap(errs.KindConflict, err, "constraint violation: %s", pqErr.Constraint)
		case "08": // connection exception
			return errs.Wrap(errs.KindTransient, err, "database connection lost")
		case "53": // insufficient resources
			return errs.Wrap(errs.KindResourceExhausted, err, "database resources exhausted")
		}
	}

	return errs.Wrap(errs.KindInternal, err, "database error")
}
