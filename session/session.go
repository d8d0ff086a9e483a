// Package session executes compiled selq statements over database/sql
// through sqlx, keeping prepared statements in an LRU cache.
package session

import (
	"context"
	"database/sql"

	"github.com/donseba/selq"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type (
	// Session prepares statements on one database. It is safe for
	// concurrent use.
	Session struct {
		db        *sqlx.DB
		dialect   selq.Dialect
		logger    *zap.Logger
		cacheSize int
		stmts     *lru.Cache[string, *cachedStmt]
	}

	Option func(*Session)
)

// WithLogger sets the logger statements are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDialect sets the dialect of the builder returned by Builder.
func WithDialect(d selq.Dialect) Option {
	return func(s *Session) {
		if d != nil {
			s.dialect = d
		}
	}
}

// WithStatementCache sets how many prepared statements stay open. Zero
// disables the cache.
func WithStatementCache(size int) Option {
	return func(s *Session) {
		s.cacheSize = size
	}
}

// New wraps db. The dialect defaults to the one matching the sqlx driver.
func New(db *sqlx.DB, opts ...Option) (*Session, error) {
	s := &Session{
		db:        db,
		logger:    zap.NewNop(),
		cacheSize: DefaultStatementCache,
	}

	if d, ok := selq.DialectByName(db.DriverName()); ok {
		s.dialect = d
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.dialect == nil {
		return nil, errors.Errorf("no dialect for driver %q", db.DriverName())
	}

	if s.cacheSize > 0 {
		cache, err := lru.NewWithEvict[string, *cachedStmt](s.cacheSize, func(query string, entry *cachedStmt) {
			if err := entry.evict(); err != nil {
				s.logger.Warn("close evicted statement", zap.String("sql", query), zap.Error(err))
			}
		})
		if err != nil {
			return nil, errors.Wrap(err, "statement cache")
		}
		s.stmts = cache
	}

	return s, nil
}

// Builder returns a selq builder bound to the session.
func (s *Session) Builder() *selq.Builder {
	return selq.New(s.dialect, selq.WithSession(s), selq.WithLogger(s.logger))
}

func (s *Session) DB() *sqlx.DB {
	return s.db
}

func (s *Session) Dialect() selq.Dialect {
	return s.dialect
}

// Prepare prepares c.SQL. With a statement cache the statement is shared
// with every Prepared of the same text and each execution takes it from the
// cache; without one the returned Prepared owns it until Close.
func (s *Session) Prepare(ctx context.Context, c selq.Compiled) (selq.PreparedStatement, error) {
	p := &Prepared{session: s, compiled: c}

	if s.stmts == nil {
		stmt, err := s.prepare(ctx, c.SQL)
		if err != nil {
			return nil, err
		}
		p.stmt = stmt

		return p, nil
	}

	entry, err := s.acquire(ctx, c.SQL)
	if err != nil {
		return nil, err
	}
	s.release(c.SQL, entry)

	return p, nil
}

// acquire returns the cached statement for query with a reference taken,
// preparing and caching it on a miss. When two callers miss on the same
// query, the statement of the one that loses the race to the cache is closed.
func (s *Session) acquire(ctx context.Context, query string) (*cachedStmt, error) {
	if entry, ok := s.stmts.Get(query); ok && entry.acquire() {
		return entry, nil
	}

	stmt, err := s.prepare(ctx, query)
	if err != nil {
		return nil, err
	}

	entry := &cachedStmt{stmt: stmt, refs: 1}

	prev, found, _ := s.stmts.PeekOrAdd(query, entry)
	if !found {
		return entry, nil
	}

	if prev.acquire() {
		if err := stmt.Close(); err != nil {
			s.logger.Warn("close duplicate statement", zap.String("sql", query), zap.Error(err))
		}

		return prev, nil
	}

	// not cached: closed on release
	entry.evicted = true

	return entry, nil
}

func (s *Session) release(query string, entry *cachedStmt) {
	if err := entry.release(); err != nil {
		s.logger.Warn("close evicted statement", zap.String("sql", query), zap.Error(err))
	}
}

func (s *Session) prepare(ctx context.Context, query string) (*sqlx.Stmt, error) {
	stmt, err := s.db.PreparexContext(ctx, query)
	if err != nil {
		s.logger.Error("prepare failed", zap.String("sql", query), zap.Error(err))
		return nil, errors.Wrapf(err, "prepare (SQL: %s)", query)
	}

	s.logger.Debug("prepared", zap.String("sql", query))

	return stmt, nil
}

// Close closes every cached statement and the database.
func (s *Session) Close() error {
	if s.stmts != nil {
		s.stmts.Purge()
	}

	return s.db.Close()
}

// Exec runs a statement that is not built with selq, such as DDL.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "exec failed (SQL: %s)", query)
	}

	return res, nil
}
