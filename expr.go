package selq

import (
	"strings"

	"github.com/pkg/errors"
)

type (
	// Expression renders itself into SQL with ? bind markers.
	Expression interface {
		Render(d Dialect) (string, []any, error)
	}

	// Placeholder is a named value that is bound at execution time.
	Placeholder struct {
		Name string
	}

	// Params holds the values for placeholders, keyed by name.
	Params map[string]any

	// Expr is a raw SQL fragment. Every ? consumes one argument: arguments
	// that are an Expression are rendered inline, anything else is bound.
	// ?? is kept as an escaped question mark.
	Expr struct {
		sql     string
		args    []any
		notNull bool
	}
)

// Param declares a placeholder bound at execution time.
func Param(name string) Placeholder {
	return Placeholder{Name: name}
}

// Raw builds an expression from a SQL fragment.
func Raw(sql string, args ...any) *Expr {
	return &Expr{sql: sql, args: args}
}

// NotNull returns a copy of the expression flagged as never NULL.
func (e *Expr) NotNull() *Expr {
	out := *e
	out.notNull = true

	return &out
}

func (e *Expr) Owner() string {
	return ""
}

func (e *Expr) IsNotNull() bool {
	return e.notNull
}

func (e *Expr) Render(d Dialect) (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
		sql  = e.sql
		n    int
	)

	for {
		i := strings.IndexByte(sql, '?')
		if i < 0 {
			sb.WriteString(sql)
			break
		}

		if i+1 < len(sql) && sql[i+1] == '?' {
			sb.WriteString(sql[:i+2])
			sql = sql[i+2:]
			continue
		}

		if n >= len(e.args) {
			return "", nil, errors.Errorf("expression %q has more markers than arguments (%d)", e.sql, len(e.args))
		}

		sb.WriteString(sql[:i])

		part, partArgs, err := renderOperand(d, e.args[n])
		if err != nil {
			return "", nil, err
		}

		sb.WriteString(part)
		args = append(args, partArgs...)

		sql = sql[i+1:]
		n++
	}

	if n != len(e.args) {
		return "", nil, errors.Errorf("expression %q has %d markers but %d arguments", e.sql, n, len(e.args))
	}

	return sb.String(), args, nil
}

// renderOperand renders an Expression inline or binds a plain value.
func renderOperand(d Dialect, v any) (string, []any, error) {
	if ex, ok := v.(Expression); ok {
		return renderExpression(d, ex)
	}

	return "?", []any{v}, nil
}

func renderExpression(d Dialect, ex Expression) (string, []any, error) {
	if ex == nil {
		return "", nil, errors.New("nil expression")
	}

	return ex.Render(d)
}
