package selq

import (
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Compiled is a statement rendered for one dialect together with what a
// session needs to shape its rows.
type Compiled struct {
	SQL         string
	Args        []any
	Fields      FieldList
	Nullability map[string]bool
}

// Bind replaces placeholders in the arguments with values from params.
func (c Compiled) Bind(params Params) ([]any, error) {
	out := make([]any, len(c.Args))

	for i, arg := range c.Args {
		p, ok := arg.(Placeholder)
		if !ok {
			out[i] = arg
			continue
		}

		v, ok := params[p.Name]
		if !ok {
			return nil, errors.Wrapf(ErrMissingParam, "%q", p.Name)
		}

		out[i] = v
	}

	return out, nil
}

// statementExpression marks expressions that render a whole SELECT.
type statementExpression interface {
	Expression
	isStatement()
}

type compileContext struct {
	dialect Dialect
	with    []*Subquery
}

func (c *compileContext) isCTE(sub *Subquery) bool {
	for _, w := range c.with {
		if w == sub {
			return true
		}
	}

	return false
}

// Compile renders the statement with the builder's dialect.
func (f *Final) Compile() (Compiled, error) {
	s := f.stmt
	c := &compileContext{dialect: s.builder.dialect, with: s.builder.with}

	sb, err := s.toBuilder(c, false)
	if err != nil {
		return Compiled{}, err
	}

	if len(c.with) > 0 {
		with, args, err := c.withClause()
		if err != nil {
			return Compiled{}, err
		}

		sb = sb.PrefixExpr(squirrel.Expr(with, args...))
	}

	sql, args, err := sb.PlaceholderFormat(c.dialect.PlaceholderFormat()).ToSql()
	if err != nil {
		return Compiled{}, newCompileError(errors.Wrapf(err, "select from %q", s.from.Alias()))
	}

	s.builder.logger.Debug("compiled select",
		zap.String("dialect", c.dialect.Name()),
		zap.String("from", s.from.Alias()),
		zap.Int("joins", len(s.joins)),
		zap.String("sql", sql),
		zap.Int("args", len(args)),
	)

	return Compiled{
		SQL:         sql,
		Args:        args,
		Fields:      s.fieldList.clone(),
		Nullability: copyNullability(s.nullability),
	}, nil
}

// ToSql makes every stage a squirrel.Sqlizer.
func (f *Final) ToSql() (string, []any, error) {
	c, err := f.Compile()
	if err != nil {
		return "", nil, err
	}

	return c.SQL, c.Args, nil
}

// Render renders the statement as a parenthesized subquery expression.
func (f *Final) Render(d Dialect) (string, []any, error) {
	c := &compileContext{dialect: d, with: f.stmt.builder.with}

	sb, err := f.stmt.toBuilder(c, false)
	if err != nil {
		return "", nil, err
	}

	sql, args, err := sb.ToSql()
	if err != nil {
		return "", nil, newCompileError(err)
	}

	return "(" + sql + ")", args, nil
}

func (f *Final) isStatement() {}

// toBuilder translates the statement into a squirrel builder using ? bind
// markers. With aliased set, every output column is named after its path
// (see FieldList.OutputNames), which is how a subquery exposes its fields.
func (s *statement) toBuilder(c *compileContext, aliased bool) (squirrel.SelectBuilder, error) {
	var sb squirrel.SelectBuilder

	if s.err != nil {
		return sb, s.err
	}

	if err := s.checkSelection(); err != nil {
		return sb, err
	}

	d := c.dialect
	sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).Select()

	if s.distinct {
		sb = sb.Distinct()
	}

	var names []string
	if aliased {
		names = s.fieldList.OutputNames()
	}

	for i, fe := range s.fieldList {
		sql, args, err := fe.Field.Render(d)
		if err != nil {
			return sb, newCompileError(errors.Wrapf(err, "field %s", strings.Join(fe.Path, ".")))
		}

		if aliased {
			sql += " AS " + d.QuoteIdentifier(names[i])
		}

		sb = sb.Column(squirrel.Expr(sql, args...))
	}

	sb, err := c.from(sb, s.from)
	if err != nil {
		return sb, err
	}

	for _, j := range s.joins {
		target, args, err := c.source(j.Source)
		if err != nil {
			return sb, errors.Wrapf(err, "%s join %q", j.Type, j.Alias)
		}

		sql := j.Type.keyword() + " " + target

		if j.On != nil {
			on, onArgs, err := j.On.Render(d)
			if err != nil {
				return sb, newCompileError(errors.Wrapf(err, "%s join %q", j.Type, j.Alias))
			}

			sql += " ON " + on
			args = append(args, onArgs...)
		}

		sb = sb.JoinClause(squirrel.Expr(sql, args...))
	}

	if s.where != nil {
		sql, args, err := s.where.Render(d)
		if err != nil {
			return sb, newCompileError(errors.Wrap(err, "where"))
		}

		if sql != "" {
			sb = sb.Where(squirrel.Expr(sql, args...))
		}
	}

	if len(s.groupBy) > 0 {
		groups, err := groupByClause(d, s.groupBy)
		if err != nil {
			return sb, newCompileError(err)
		}

		sb = sb.GroupBy(groups...)
	}

	if s.having != nil {
		sql, args, err := s.having.Render(d)
		if err != nil {
			return sb, newCompileError(errors.Wrap(err, "having"))
		}

		if sql != "" {
			sb = sb.Having(squirrel.Expr(sql, args...))
		}
	}

	for _, o := range s.orderBy {
		sql, args, err := renderExpression(d, o)
		if err != nil {
			return sb, newCompileError(errors.Wrap(err, "order by"))
		}

		sb = sb.OrderByClause(sql, args...)
	}

	return limitOffset(sb, d, s.limit, s.offset), nil
}

// checkSelection verifies that an explicit selection only uses columns of
// sources that take part in the statement.
func (s *statement) checkSelection() error {
	if !s.partial {
		return nil
	}

	for _, fe := range s.fieldList {
		owner := fe.Field.Owner()
		if owner == "" {
			continue
		}

		if _, ok := s.nullability[owner]; !ok {
			return errors.Wrapf(ErrMalformedSelection, "field %s uses %q which is not part of the statement", strings.Join(fe.Path, "."), owner)
		}
	}

	return nil
}

func (c *compileContext) from(sb squirrel.SelectBuilder, src Source) (squirrel.SelectBuilder, error) {
	if sub, ok := src.(*Subquery); ok && !c.isCTE(sub) {
		body, err := sub.stmt.toBuilder(c, true)
		if err != nil {
			return sb, errors.Wrapf(err, "subquery %q", sub.alias)
		}

		return sb.FromSelect(body, c.dialect.QuoteIdentifier(sub.alias)), nil
	}

	sql, _, err := c.source(src)
	if err != nil {
		return sb, err
	}

	return sb.From(sql), nil
}

// source renders a table or subquery reference for FROM and JOIN.
func (c *compileContext) source(src Source) (string, []any, error) {
	d := c.dialect

	switch v := src.(type) {
	case *Table:
		if v.alias != "" && v.alias != v.name {
			return d.QuoteIdentifier(v.name) + " AS " + d.QuoteIdentifier(v.alias), nil, nil
		}

		return d.QuoteIdentifier(v.name), nil, nil

	case *Subquery:
		if c.isCTE(v) {
			return d.QuoteIdentifier(v.alias), nil, nil
		}

		body, err := v.stmt.toBuilder(c, true)
		if err != nil {
			return "", nil, errors.Wrapf(err, "subquery %q", v.alias)
		}

		sql, args, err := body.ToSql()
		if err != nil {
			return "", nil, newCompileError(errors.Wrapf(err, "subquery %q", v.alias))
		}

		return "(" + sql + ") AS " + d.QuoteIdentifier(v.alias), args, nil
	}

	return d.QuoteIdentifier(src.Alias()), nil, nil
}

func (c *compileContext) withClause() (string, []any, error) {
	var (
		parts []string
		args  []any
	)

	for _, sub := range c.with {
		body, err := sub.stmt.toBuilder(c, true)
		if err != nil {
			return "", nil, errors.Wrapf(err, "with %q", sub.alias)
		}

		sql, subArgs, err := body.ToSql()
		if err != nil {
			return "", nil, newCompileError(errors.Wrapf(err, "with %q", sub.alias))
		}

		parts = append(parts, c.dialect.QuoteIdentifier(sub.alias)+" AS ("+sql+")")
		args = append(args, subArgs...)
	}

	return "WITH " + strings.Join(parts, ", "), args, nil
}

// limitOffset renders literal limits with squirrel's LIMIT/OFFSET and falls
// back to bound suffixes as soon as one of them is a placeholder, keeping
// LIMIT ahead of OFFSET. An offset without a limit gets the dialect's
// unbounded LIMIT where OFFSET cannot stand alone.
func limitOffset(sb squirrel.SelectBuilder, d Dialect, limit, offset any) squirrel.SelectBuilder {
	_, limitParam := limit.(Placeholder)
	_, offsetParam := offset.(Placeholder)

	var unbounded string
	if limit == nil && offset != nil {
		if u, ok := d.(interface{ unboundedLimit() string }); ok {
			unbounded = u.unboundedLimit()
		}
	}

	if !limitParam && !offsetParam && unbounded == "" {
		if n, ok := limit.(uint64); ok {
			sb = sb.Limit(n)
		}

		if n, ok := offset.(uint64); ok {
			sb = sb.Offset(n)
		}

		return sb
	}

	switch {
	case limit != nil:
		sb = sb.Suffix("LIMIT ?", limit)
	case unbounded != "":
		sb = sb.Suffix("LIMIT " + unbounded)
	}

	if offset != nil {
		sb = sb.Suffix("OFFSET ?", offset)
	}

	return sb
}
