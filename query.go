package selq

type Mode int

const (
	// ModeSingle selects whole rows of every source.
	ModeSingle Mode = iota
	// ModePartial selects an explicit set of fields.
	ModePartial
)

func (m Mode) String() string {
	if m == ModePartial {
		return "partial"
	}

	return "single"
}

// statement is the mutable configuration behind every stage of a builder
// chain. One statement is allocated per From call.
type statement struct {
	builder     *Builder
	from        Source
	fields      Selection
	fieldList   FieldList
	partial     bool
	distinct    bool
	joins       []Join
	nullability map[string]bool
	where       Expression
	groupBy     []Expression
	having      Expression
	orderBy     []Expression
	limit       any
	offset      any

	// err is the first error met while building; later calls are no-ops
	// for joins and it is returned by every terminal operation.
	err error
}

// The stages follow the clause order of a SELECT. Each one exposes only the
// clauses that may still follow, plus the terminal operations of Final.
type (
	// Final exposes the terminal operations.
	Final struct {
		stmt *statement
	}

	// Limited can still take an offset.
	Limited struct {
		Final
	}

	// Ordered can still take a limit.
	Ordered struct {
		Limited
	}

	// Aggregated can still be ordered.
	Aggregated struct {
		Ordered
	}

	// Grouped can still take a HAVING condition.
	Grouped struct {
		Aggregated
	}

	// Filtered can still be grouped.
	Filtered struct {
		Aggregated
	}

	// Query can still be joined and filtered.
	Query struct {
		Filtered
	}
)

func (s *statement) final() *Final {
	return &Final{stmt: s}
}

func (s *statement) limited() *Limited {
	return &Limited{Final{stmt: s}}
}

func (s *statement) ordered() *Ordered {
	return &Ordered{Limited{Final{stmt: s}}}
}

func (s *statement) aggregated() *Aggregated {
	return &Aggregated{Ordered{Limited{Final{stmt: s}}}}
}

func (s *statement) grouped() *Grouped {
	return &Grouped{Aggregated{Ordered{Limited{Final{stmt: s}}}}}
}

func (s *statement) filtered() *Filtered {
	return &Filtered{Aggregated{Ordered{Limited{Final{stmt: s}}}}}
}

func (s *statement) query() *Query {
	return &Query{Filtered{Aggregated{Ordered{Limited{Final{stmt: s}}}}}}
}

// Where sets the filter condition.
func (q *Query) Where(cond Expression) *Filtered {
	q.stmt.where = cond

	return q.stmt.filtered()
}

// ApplyFilters applies where, order and paging parsed from a query string.
// Column references resolve against the base source and every join.
func (q *Query) ApplyFilters(f *Filters) *Final {
	s := q.stmt
	if f == nil || s.err != nil {
		return s.final()
	}

	sources := []Source{s.from}
	for _, j := range s.joins {
		sources = append(sources, j.Source)
	}

	where, err := ParseWhere(f.Where, sources...)
	if err != nil {
		s.err = err
		return s.final()
	}

	orderBy, err := ParseOrderBy(f.OrderBy, sources...)
	if err != nil {
		s.err = err
		return s.final()
	}

	if where != nil {
		s.where = where
	}

	if len(orderBy) > 0 {
		s.orderBy = orderBy
	}

	if !f.DisablePaging {
		s.limit, s.offset = f.Limit(), f.Offset()
	}

	return s.final()
}

// GroupBy sets the grouping expressions.
func (f *Filtered) GroupBy(exprs ...Expression) *Grouped {
	f.stmt.groupBy = exprs

	return f.stmt.grouped()
}

// Having sets the condition on groups.
func (g *Grouped) Having(cond Expression) *Aggregated {
	g.stmt.having = cond

	return g.stmt.aggregated()
}

// OrderBy sets the ordering. Plain expressions sort ascending; use AscOf
// and DescOf for an explicit direction.
func (a *Aggregated) OrderBy(exprs ...Expression) *Ordered {
	a.stmt.orderBy = exprs

	return a.stmt.ordered()
}

func (o *Ordered) Limit(n uint64) *Limited {
	o.stmt.limit = n

	return o.stmt.limited()
}

// LimitParam limits to a value bound at execution time.
func (o *Ordered) LimitParam(name string) *Limited {
	o.stmt.limit = Param(name)

	return o.stmt.limited()
}

// Page sets limit and offset for a 1-based page of perPage rows.
func (o *Ordered) Page(page, perPage int) *Final {
	f := &Filters{Page: page, PerPage: perPage}
	o.stmt.limit, o.stmt.offset = f.Limit(), f.Offset()

	return o.stmt.final()
}

// Offset skips n rows without limiting the result. Dialects that need a
// LIMIT in front of OFFSET get an unbounded one.
func (o *Ordered) Offset(n uint64) *Final {
	o.stmt.offset = n

	return o.stmt.final()
}

// OffsetParam skips a number of rows bound at execution time, without
// limiting the result.
func (o *Ordered) OffsetParam(name string) *Final {
	o.stmt.offset = Param(name)

	return o.stmt.final()
}

func (l *Limited) Offset(n uint64) *Final {
	l.stmt.offset = n

	return l.stmt.final()
}

// OffsetParam skips a number of rows bound at execution time.
func (l *Limited) OffsetParam(name string) *Final {
	l.stmt.offset = Param(name)

	return l.stmt.final()
}

// Err returns the first error met while building the statement.
func (f *Final) Err() error {
	return f.stmt.err
}

func (f *Final) Mode() Mode {
	if f.stmt.partial {
		return ModePartial
	}

	return ModeSingle
}

// Fields returns a copy of the field list.
func (f *Final) Fields() FieldList {
	return f.stmt.fieldList.clone()
}

// Selection returns the nested selection the field list is derived from.
func (f *Final) Selection() Selection {
	return append(Selection(nil), f.stmt.fields...)
}

// Nullability returns a copy of the per alias map; true means rows of that
// alias are always present in the result.
func (f *Final) Nullability() map[string]bool {
	return copyNullability(f.stmt.nullability)
}

// Joins returns the joins in the order they were added.
func (f *Final) Joins() []Join {
	return append([]Join(nil), f.stmt.joins...)
}

func copyNullability(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
