package selq

import (
	"github.com/pkg/errors"
)

type JoinType string

const (
	InnerJoin JoinType = "inner"
	LeftJoin  JoinType = "left"
	RightJoin JoinType = "right"
	FullJoin  JoinType = "full"
)

func (jt JoinType) String() string {
	return string(jt)
}

func (jt JoinType) keyword() string {
	switch jt {
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL JOIN"
	}

	return "INNER JOIN"
}

// Join describes one joined source.
type Join struct {
	Alias  string
	Type   JoinType
	On     Expression
	Source Source
}

// LeftJoin joins target; its fields may be NULL in the result.
func (q *Query) LeftJoin(target Source, on Expression) *Query {
	return q.join(LeftJoin, target, on)
}

// RightJoin joins target; every source joined before may be NULL.
func (q *Query) RightJoin(target Source, on Expression) *Query {
	return q.join(RightJoin, target, on)
}

// InnerJoin joins target; nullability of the other sources is unchanged.
func (q *Query) InnerJoin(target Source, on Expression) *Query {
	return q.join(InnerJoin, target, on)
}

// FullJoin joins target; every source, target included, may be NULL.
func (q *Query) FullJoin(target Source, on Expression) *Query {
	return q.join(FullJoin, target, on)
}

func (q *Query) join(jt JoinType, target Source, on Expression) *Query {
	s := q.stmt
	if s.err != nil {
		return q
	}

	if sub, ok := target.(*Subquery); ok && sub.err != nil {
		s.err = errors.Wrapf(sub.err, "%s join %q", jt, sub.alias)
		return q
	}

	alias := target.Alias()
	if _, used := s.nullability[alias]; used {
		s.err = errors.Wrapf(ErrDuplicateAlias, "%s join %q", jt, alias)
		return q
	}

	if !s.partial {
		// the first join turns the flat projection into one keyed by source
		if len(s.nullability) == 1 {
			base := s.from.Alias()

			for i := range s.fieldList {
				s.fieldList[i].Path = append([]string{base}, s.fieldList[i].Path...)
			}

			s.fields = Selection{{Key: base, Nested: s.fields}}
		}

		joined, _, _ := Resolve(target, nil)
		s.fieldList = append(s.fieldList, flatten(joined, []string{alias})...)
		s.fields = append(s.fields, SelectItem{Key: alias, Nested: joined})
	}

	s.joins = append(s.joins, Join{
		Alias:  alias,
		Type:   jt,
		On:     on,
		Source: target,
	})

	switch jt {
	case InnerJoin:
		s.nullability[alias] = true
	case LeftJoin:
		s.nullability[alias] = false
	case RightJoin:
		for k := range s.nullability {
			s.nullability[k] = false
		}
		s.nullability[alias] = true
	case FullJoin:
		for k := range s.nullability {
			s.nullability[k] = false
		}
		s.nullability[alias] = false
	}

	return q
}
