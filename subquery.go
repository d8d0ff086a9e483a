package selq

import (
	"fmt"
	"strings"
)

// Subquery is a finished statement used as a named source. Its selection is
// re-derived from the statement: every leaf becomes a column of the alias,
// named after its path, and is not-null only when it was declared not-null
// and its original source is guaranteed present.
type Subquery struct {
	alias     string
	stmt      *statement
	selection Selection
	err       error
}

// As materializes the statement as a subquery named alias. The statement
// should not be changed afterwards.
func (f *Final) As(alias string) *Subquery {
	s := f.stmt

	m := &materializer{
		alias:       alias,
		names:       s.fieldList.OutputNames(),
		nullability: s.nullability,
	}

	return &Subquery{
		alias:     alias,
		stmt:      s,
		selection: m.selection(s.fields),
		err:       s.err,
	}
}

// materializer re-owns a selection by the subquery alias. Leaves are visited
// in field list order, so the i-th leaf takes the i-th output name.
type materializer struct {
	alias       string
	names       []string
	next        int
	nullability map[string]bool
}

func (m *materializer) selection(sel Selection) Selection {
	out := make(Selection, 0, len(sel))

	for _, item := range sel {
		if item.Field == nil {
			out = append(out, SelectItem{
				Key:    item.Key,
				Nested: m.selection(item.Nested),
			})
			continue
		}

		name := m.names[m.next]
		m.next++

		notNull := item.Field.IsNotNull()
		if owner := item.Field.Owner(); owner != "" && !m.nullability[owner] {
			notNull = false
		}

		var typ, origin string
		var originPresent bool
		if c, ok := item.Field.(*Column); ok {
			typ = c.typ
			origin, originPresent = c.owner, m.nullability[c.owner]
			if c.origin != "" {
				origin = c.owner + "/" + c.origin
				originPresent = originPresent && c.originPresent
			}
		}

		out = append(out, SelectItem{
			Key: item.Key,
			Field: &Column{
				owner:   m.alias,
				name:    name,
				typ:     typ,
				notNull: notNull,

				origin:        origin,
				originPresent: originPresent,
			},
		})
	}

	return out
}

func (sq *Subquery) Alias() string {
	return sq.alias
}

// Selection returns the fields the subquery exposes.
func (sq *Subquery) Selection() Selection {
	return append(Selection(nil), sq.selection...)
}

// Get resolves a path of selection keys to the exposed field, or nil.
func (sq *Subquery) Get(path ...string) Field {
	return sq.selection.Get(path...)
}

// Col resolves a path of selection keys to the exposed column. It panics
// when the path does not lead to a column.
func (sq *Subquery) Col(path ...string) *Column {
	if c, ok := sq.selection.Get(path...).(*Column); ok {
		return c
	}

	panic(fmt.Sprintf("[selq] subquery %s has no field %s", sq.alias, strings.Join(path, ".")))
}

// Err returns the error of the wrapped statement.
func (sq *Subquery) Err() error {
	return sq.err
}

// Render renders the subquery body as a parenthesized expression.
func (sq *Subquery) Render(d Dialect) (string, []any, error) {
	c := &compileContext{dialect: d, with: sq.stmt.builder.with}

	sb, err := sq.stmt.toBuilder(c, true)
	if err != nil {
		return "", nil, err
	}

	sql, args, err := sb.ToSql()
	if err != nil {
		return "", nil, newCompileError(err)
	}

	return "(" + sql + ")", args, nil
}

func (sq *Subquery) isStatement() {}
