package selq

import (
	"fmt"
)

type (
	// Source is anything a statement can select from or join: a table, an
	// aliased table or a materialized subquery.
	Source interface {
		// Alias is the key the source is addressed by inside a statement.
		Alias() string
		// Selection is the ordered set of fields the source exposes.
		Selection() Selection
	}

	// Field is a selectable expression that knows which source it belongs to
	// and whether the schema guarantees it is never NULL.
	Field interface {
		Expression
		Owner() string
		IsNotNull() bool
	}

	// Column references a column of a table or subquery alias.
	Column struct {
		owner   string
		name    string
		typ     string
		notNull bool

		// origin names the source a subquery column was read from inside the
		// subquery; originPresent tells whether that source was guaranteed.
		origin        string
		originPresent bool
	}

	// ColumnDef declares a column of a table.
	ColumnDef struct {
		Name    string
		Type    string
		NotNull bool
	}

	// Table is a read-only descriptor of a database table.
	Table struct {
		name    string
		alias   string
		columns []*Column
	}
)

// NewTable declares a table and its columns in declaration order.
func NewTable(name string, defs ...ColumnDef) *Table {
	t := &Table{
		name:    name,
		columns: make([]*Column, 0, len(defs)),
	}

	for _, def := range defs {
		t.columns = append(t.columns, &Column{
			owner:   name,
			name:    def.Name,
			typ:     def.Type,
			notNull: def.NotNull,
		})
	}

	return t
}

func (t *Table) Name() string {
	return t.name
}

// Alias returns the alias given by As, or the table name.
func (t *Table) Alias() string {
	if t.alias != "" {
		return t.alias
	}

	return t.name
}

// As returns a copy of the table addressed by alias, so the same table can
// be joined more than once.
func (t *Table) As(alias string) *Table {
	out := &Table{
		name:    t.name,
		alias:   alias,
		columns: make([]*Column, 0, len(t.columns)),
	}

	for _, c := range t.columns {
		cc := *c
		cc.owner = alias
		out.columns = append(out.columns, &cc)
	}

	return out
}

func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)

	return out
}

// Col returns the named column. It panics when the table has no such column.
func (t *Table) Col(name string) *Column {
	for _, c := range t.columns {
		if c.name == name {
			return c
		}
	}

	panic(fmt.Sprintf("[selq] table %s has no column %s", t.Alias(), name))
}

// Selection exposes every column keyed by its name.
func (t *Table) Selection() Selection {
	sel := make(Selection, 0, len(t.columns))
	for _, c := range t.columns {
		sel = append(sel, SelectItem{Key: c.name, Field: c})
	}

	return sel
}

func (c *Column) Owner() string {
	return c.owner
}

func (c *Column) Name() string {
	return c.name
}

func (c *Column) Type() string {
	return c.typ
}

func (c *Column) IsNotNull() bool {
	return c.notNull
}

func (c *Column) Render(d Dialect) (string, []any, error) {
	return d.QuoteIdentifier(c.owner) + "." + d.QuoteIdentifier(c.name), nil, nil
}

func (c *Column) String() string {
	return c.owner + "." + c.name
}
