package selq

import (
	"context"
	"database/sql"
	"io"
)

type (
	// Session prepares compiled statements for execution.
	Session interface {
		Prepare(ctx context.Context, c Compiled) (PreparedStatement, error)
	}

	// PreparedStatement executes one compiled statement, binding placeholder
	// values from params on every call.
	PreparedStatement interface {
		Run(ctx context.Context, params Params) (sql.Result, error)
		All(ctx context.Context, params Params) ([]Row, error)
		Get(ctx context.Context, params Params) (Row, error)
		Values(ctx context.Context, params Params) ([][]any, error)
	}
)

// Prepare compiles the statement and hands it, with its field list and
// nullability, to the builder's session.
func (f *Final) Prepare(ctx context.Context) (PreparedStatement, error) {
	sess := f.stmt.builder.session
	if sess == nil {
		return nil, ErrNoSession
	}

	c, err := f.Compile()
	if err != nil {
		return nil, err
	}

	return sess.Prepare(ctx, c)
}

func (f *Final) Run(ctx context.Context, params Params) (sql.Result, error) {
	p, err := f.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStatement(p)

	return p.Run(ctx, params)
}

// All returns every row shaped by the field list.
func (f *Final) All(ctx context.Context, params Params) ([]Row, error) {
	p, err := f.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStatement(p)

	return p.All(ctx, params)
}

// Get returns the first row, or nil when there is none.
func (f *Final) Get(ctx context.Context, params Params) (Row, error) {
	p, err := f.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStatement(p)

	return p.Get(ctx, params)
}

// Values returns the raw column values of every row.
func (f *Final) Values(ctx context.Context, params Params) ([][]any, error) {
	p, err := f.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStatement(p)

	return p.Values(ctx, params)
}

// closeStatement releases a statement prepared for a single call when the
// session hands out closable ones.
func closeStatement(p PreparedStatement) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}
