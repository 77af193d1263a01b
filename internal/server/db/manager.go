// Package db implements the connection/session manager: it owns the
// database pool and provides the two scoped-acquisition primitives every
// storage operation runs under — a read session that never auto-commits and
// a write transaction that commits on success and rolls back on failure.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/wakeemil/gamebase/internal/common"
	"github.com/wakeemil/gamebase/internal/dbx"
	"github.com/wakeemil/gamebase/internal/logging"
	"github.com/wakeemil/gamebase/internal/server/models"
	"github.com/wakeemil/gamebase/internal/server/repositories/repomanager"
	"github.com/wakeemil/gamebase/internal/server/repositories/versions"
)

// Manager owns the connection pool and hands out units of work. It is
// constructed once at startup and injected into the services; Init runs
// before any request traffic, so the initialized flag needs no locking.
type Manager struct {
	db             *sql.DB
	logger         logging.Logger
	acquireTimeout time.Duration
	initialized    bool
}

// Open connects to PostgreSQL and applies the two pool knobs from config:
// the connection recycle age and the acquisition timeout.
func Open(dsn string, connMaxLifetime, acquireTimeout time.Duration, logger logging.Logger) (*Manager, error) {
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	sqldb.SetConnMaxLifetime(connMaxLifetime)
	return NewManager(sqldb, logger, acquireTimeout), nil
}

// NewManager wraps an already-open pool. Used directly in tests.
func NewManager(sqldb *sql.DB, logger logging.Logger, acquireTimeout time.Duration) *Manager {
	return &Manager{db: sqldb, logger: logger, acquireTimeout: acquireTimeout}
}

// Conn exposes the underlying pool for callers that bind repositories
// outside any scope (single-statement reads).
func (m *Manager) Conn() *sql.DB {
	return m.db
}

// Close releases the pool. Part of the documented teardown lifecycle.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Init is idempotent: the first call creates the schema and seeds the
// default game version; subsequent calls only log. A failed Init must be
// treated as fatal by the caller — the process cannot serve requests over a
// partially initialized store.
func (m *Manager) Init(ctx context.Context, rm repomanager.RepositoryManager) error {
	if m.initialized {
		m.logger.Info(ctx, "store already initialized")
		return nil
	}

	if err := rm.RunMigrations(ctx, m.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	if err := m.Transaction(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return m.seedDefaultVersion(ctx, rm.Versions(tx))
	}); err != nil {
		return fmt.Errorf("bootstrap error: %w", err)
	}

	m.initialized = true
	m.logger.Info(ctx, "store initialized")
	return nil
}

// seedDefaultVersion inserts the default active version if the table is
// empty. Runs inside the initialization transaction.
func (m *Manager) seedDefaultVersion(ctx context.Context, repo versions.Repository) error {
	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	_, err = repo.Create(ctx, &models.GameVersion{
		VersionNumber: "1.0.0",
		VersionName:   "Initial Release",
		ReleaseDate:   time.Now().UTC(),
		IsActive:      true,
	})
	if err != nil {
		return err
	}

	m.logger.Info(ctx, "seeded default game version", "version", "1.0.0")
	return nil
}

// acquire checks a single connection out of the pool. The acquisition
// timeout bounds only the wait for a free connection; once a scope is
// entered, work runs to completion or failure.
func (m *Manager) acquire(ctx context.Context) (*sql.Conn, error) {
	acquireCtx := ctx
	if m.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, m.acquireTimeout)
		defer cancel()
	}

	conn, err := m.db.Conn(acquireCtx)
	if err != nil {
		return nil, fmt.Errorf("connection acquire error: %w", err)
	}
	return conn, nil
}

// Session is a read scope over one unit of work. It satisfies dbx.DBTX, so
// repositories bind to it directly. Nothing is committed implicitly:
// mutations made through a Session are discarded on scope exit unless the
// caller invokes Commit.
type Session struct {
	tx        *sql.Tx
	committed bool
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.tx.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.tx.QueryContext(ctx, query, args...)
}

func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.tx.QueryRowContext(ctx, query, args...)
}

// Commit makes the session's writes durable. Calling it twice is a no-op.
func (s *Session) Commit() error {
	if s.committed {
		return nil
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit error: %w", err)
	}
	s.committed = true
	return nil
}

// Session acquires a unit of work, yields it to fn, and releases it on every
// exit path. On a storage error the scope is rolled back, logged, and the
// error returned unchanged; uncommitted work is likewise rolled back on
// normal exit.
func (m *Manager) Session(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	conn, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin error: %w", err)
	}

	s := &Session{tx: tx}
	defer func() {
		if !s.committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, s); err != nil {
		m.logger.Error(ctx, "session error, rolling back", "error", err)
		return err
	}
	return nil
}

// Transaction acquires a unit of work, yields it to fn, and commits on
// success or rolls back on failure. Exactly one commit or one rollback
// happens per invocation. Write scopes are never retried.
func (m *Manager) Transaction(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	conn, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := dbx.WithTx(ctx, conn, nil, fn); err != nil {
		m.logger.Error(ctx, "transaction error, rolled back", "error", err)
		return err
	}
	return nil
}

// ReadSession runs fn in a read scope and, if the failure was a transient
// connectivity error (stale pooled connection and the like), re-runs it
// exactly once in a fresh scope. A second transient failure is not retried
// and is surfaced wrapping common.ErrorUnavailable. This is deliberately
// not a generic retry policy: only reads go through it.
func (m *Manager) ReadSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	err := m.Session(ctx, fn)
	if err == nil || !IsTransient(err) {
		return err
	}

	m.logger.Warn(ctx, "transient storage failure, retrying read once", "error", err)

	if err := m.Session(ctx, fn); err != nil {
		if IsTransient(err) {
			return fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
		}
		return err
	}
	return nil
}
