// Package selq builds SQL SELECT statements while tracking which sources of
// the result may be NULL because of outer joins and how result rows nest.
package selq

import (
	"go.uber.org/zap"
)

type (
	// Builder carries what every statement it starts shares: the dialect,
	// the session used for execution and the common table expressions.
	Builder struct {
		dialect Dialect
		session Session
		logger  *zap.Logger
		with    []*Subquery
	}

	Option func(*Builder)

	// SelectStage is a selection waiting for its source.
	SelectStage struct {
		builder  *Builder
		fields   Selection
		distinct bool
	}
)

// WithSession binds the session that executes statements.
func WithSession(s Session) Option {
	return func(b *Builder) {
		b.session = s
	}
}

// WithLogger sets the logger compiled statements are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

func New(d Dialect, opts ...Option) *Builder {
	if d == nil {
		d = Postgres
	}

	b := &Builder{
		dialect: d,
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *Builder) Dialect() Dialect {
	return b.dialect
}

// With returns a builder whose statements declare subs as common table
// expressions and reference them by alias.
func (b *Builder) With(subs ...*Subquery) *Builder {
	out := *b
	out.with = append(append([]*Subquery(nil), b.with...), subs...)

	return &out
}

// Select starts a statement. Without items every field of the source (and
// of every joined source) is selected and rows nest per source once a join
// is added; with items the result has exactly the given shape.
func (b *Builder) Select(items ...SelectItem) *SelectStage {
	var sel Selection
	if len(items) > 0 {
		sel = Selection(items)
	}

	return b.SelectFields(sel)
}

// SelectFields starts a statement with an explicit selection. A nil
// selection selects whole rows; an empty one is malformed.
func (b *Builder) SelectFields(sel Selection) *SelectStage {
	return &SelectStage{
		builder: b,
		fields:  sel,
	}
}

// SelectDistinct is Select with DISTINCT.
func (b *Builder) SelectDistinct(items ...SelectItem) *SelectStage {
	ss := b.Select(items...)
	ss.distinct = true

	return ss
}

// Select starts a Postgres statement without a session.
func Select(items ...SelectItem) *SelectStage {
	return New(Postgres).Select(items...)
}

// From sets the base source and resolves the initial projection.
func (ss *SelectStage) From(src Source) *Query {
	s := &statement{
		builder:  ss.builder,
		from:     src,
		distinct: ss.distinct,
		nullability: map[string]bool{
			src.Alias(): true,
		},
	}

	if sub, ok := src.(*Subquery); ok && sub.err != nil {
		s.err = sub.err
	}

	if ss.fields != nil {
		if err := ss.fields.validate(); err != nil && s.err == nil {
			s.err = err
		}
	}

	s.fields, s.fieldList, s.partial = Resolve(src, ss.fields)

	return s.query()
}
