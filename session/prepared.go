package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/donseba/selq"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Prepared is a prepared statement together with the field list and
// nullability used to shape its rows. stmt is set only when the session has
// no statement cache.
type Prepared struct {
	session  *Session
	stmt     *sqlx.Stmt
	compiled selq.Compiled
}

func (p *Prepared) SQL() string {
	return p.compiled.SQL
}

// Close releases the statement unless it is owned by the session cache.
func (p *Prepared) Close() error {
	if p.stmt == nil {
		return nil
	}

	return p.stmt.Close()
}

// withStmt runs fn with the statement, holding a reference on the cached one
// so that an eviction during fn does not close it.
func (p *Prepared) withStmt(ctx context.Context, fn func(*sqlx.Stmt) error) error {
	if p.stmt != nil {
		return fn(p.stmt)
	}

	entry, err := p.session.acquire(ctx, p.compiled.SQL)
	if err != nil {
		return err
	}
	defer p.session.release(p.compiled.SQL, entry)

	return fn(entry.stmt)
}

func (p *Prepared) Run(ctx context.Context, params selq.Params) (sql.Result, error) {
	args, err := p.compiled.Bind(params)
	if err != nil {
		return nil, err
	}

	var res sql.Result

	err = p.withStmt(ctx, func(stmt *sqlx.Stmt) error {
		start := time.Now()

		r, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return p.fail(err)
		}
		res = r

		p.log(start)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// All returns every row shaped with selq.MapRow.
func (p *Prepared) All(ctx context.Context, params selq.Params) ([]selq.Row, error) {
	out := make([]selq.Row, 0)

	err := p.query(ctx, params, 0, func(values []any) {
		out = append(out, selq.MapRow(p.compiled.Fields, p.compiled.Nullability, values))
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Get returns the first row, or nil when the result is empty.
func (p *Prepared) Get(ctx context.Context, params selq.Params) (selq.Row, error) {
	var out selq.Row

	err := p.query(ctx, params, 1, func(values []any) {
		out = selq.MapRow(p.compiled.Fields, p.compiled.Nullability, values)
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Values returns the raw values of every row in select order.
func (p *Prepared) Values(ctx context.Context, params selq.Params) ([][]any, error) {
	out := make([][]any, 0)

	err := p.query(ctx, params, 0, func(values []any) {
		out = append(out, values)
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// query calls fn for each row, stopping after limit rows when limit > 0.
func (p *Prepared) query(ctx context.Context, params selq.Params, limit int, fn func([]any)) error {
	args, err := p.compiled.Bind(params)
	if err != nil {
		return err
	}

	return p.withStmt(ctx, func(stmt *sqlx.Stmt) error {
		return p.scan(ctx, stmt, args, limit, fn)
	})
}

func (p *Prepared) scan(ctx context.Context, stmt *sqlx.Stmt, args []any, limit int, fn func([]any)) error {
	start := time.Now()

	rows, err := stmt.QueryxContext(ctx, args...)
	if err != nil {
		return p.fail(err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return p.fail(err)
		}

		fn(values)

		n++
		if limit > 0 && n >= limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return p.fail(err)
	}

	p.log(start, zap.Int("rows", n))

	return nil
}

func (p *Prepared) fail(err error) error {
	p.session.logger.Error("query failed", zap.String("sql", p.compiled.SQL), zap.Error(err))

	return errors.Wrapf(err, "query failed (SQL: %s)", p.compiled.SQL)
}

func (p *Prepared) log(start time.Time, fields ...zap.Field) {
	fields = append(fields,
		zap.String("sql", p.compiled.SQL),
		zap.Duration("took", time.Since(start)),
	)

	p.session.logger.Debug("executed", fields...)
}
