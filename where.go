package selq

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Operator string

const (
	And                Operator = "AND"
	Or                 Operator = "OR"
	Equal              Operator = "="
	NotEqual           Operator = "<>"
	NotEqualAlt        Operator = "!="
	LessThan           Operator = "<"
	LessThanOrEqual    Operator = "<="
	GreaterThan        Operator = ">"
	GreaterThanOrEqual Operator = ">="
	Like               Operator = "LIKE"
	ILike              Operator = "ILIKE"
	NotLike            Operator = "NOT LIKE"
	NotILike           Operator = "NOT ILIKE"
	In                 Operator = "IN"
	NotIn              Operator = "NOT IN"
	Between            Operator = "BETWEEN"
	IsNull             Operator = "IS NULL"
	IsNotNull          Operator = "IS NOT NULL"
)

func (o Operator) String() string {
	return string(o)
}

func (o Operator) valid() bool {
	switch o {
	case Equal, NotEqual, NotEqualAlt, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual,
		Like, ILike, NotLike, NotILike, In, NotIn, Between, IsNull, IsNotNull:
		return true
	}

	return false
}

type (
	// Condition compares a left hand expression with an operand.
	Condition struct {
		left  Expression
		op    Operator
		right []any
	}

	// conjunction joins conditions with AND or OR.
	conjunction struct {
		op    Operator
		conds []Expression
	}

	negation struct {
		cond Expression
	}
)

// Compare builds "left op value". Values that are an Expression are
// rendered inline, anything else is bound.
func Compare(left Expression, op Operator, values ...any) Condition {
	return Condition{left: left, op: op, right: values}
}

func Eq(left Expression, value any) Condition {
	return Compare(left, Equal, value)
}

func Ne(left Expression, value any) Condition {
	return Compare(left, NotEqual, value)
}

func Lt(left Expression, value any) Condition {
	return Compare(left, LessThan, value)
}

func Le(left Expression, value any) Condition {
	return Compare(left, LessThanOrEqual, value)
}

func Gt(left Expression, value any) Condition {
	return Compare(left, GreaterThan, value)
}

func Ge(left Expression, value any) Condition {
	return Compare(left, GreaterThanOrEqual, value)
}

func LikeOf(left Expression, pattern any) Condition {
	return Compare(left, Like, pattern)
}

func ILikeOf(left Expression, pattern any) Condition {
	return Compare(left, ILike, pattern)
}

// InValues builds "left IN (...)". A single statement operand renders as a
// subquery.
func InValues(left Expression, values ...any) Condition {
	return Compare(left, In, values...)
}

func NotInValues(left Expression, values ...any) Condition {
	return Compare(left, NotIn, values...)
}

func BetweenValues(left Expression, low, high any) Condition {
	return Compare(left, Between, low, high)
}

func Null(left Expression) Condition {
	return Compare(left, IsNull)
}

func NotNull(left Expression) Condition {
	return Compare(left, IsNotNull)
}

// AllOf joins conditions with AND.
func AllOf(conds ...Expression) Expression {
	return conjunction{op: And, conds: conds}
}

// AnyOf joins conditions with OR.
func AnyOf(conds ...Expression) Expression {
	return conjunction{op: Or, conds: conds}
}

func Not(cond Expression) Expression {
	return negation{cond: cond}
}

// Exists builds "EXISTS (subquery)".
func Exists(sub Expression) Expression {
	return Raw("EXISTS ?", sub)
}

func (c Condition) Render(d Dialect) (string, []any, error) {
	if !c.op.valid() {
		return "", nil, errors.Errorf("invalid operator %q", c.op)
	}

	left, args, err := renderExpression(d, c.left)
	if err != nil {
		return "", nil, err
	}

	switch c.op {
	case IsNull, IsNotNull:
		return fmt.Sprintf("%s %s", left, c.op), args, nil

	case Between:
		if len(c.right) != 2 {
			return "", nil, errors.Errorf("%s needs 2 operands, got %d", c.op, len(c.right))
		}

		low, lowArgs, err := renderOperand(d, c.right[0])
		if err != nil {
			return "", nil, err
		}
		high, highArgs, err := renderOperand(d, c.right[1])
		if err != nil {
			return "", nil, err
		}

		args = append(args, lowArgs...)
		args = append(args, highArgs...)

		return fmt.Sprintf("%s %s %s AND %s", left, c.op, low, high), args, nil

	case In, NotIn:
		if len(c.right) == 1 {
			if _, ok := c.right[0].(statementExpression); ok {
				sub, subArgs, err := renderOperand(d, c.right[0])
				if err != nil {
					return "", nil, err
				}

				return fmt.Sprintf("%s %s %s", left, c.op, sub), append(args, subArgs...), nil
			}
		}

		if len(c.right) == 0 {
			// nothing is IN an empty list
			if c.op == In {
				return "1 = 0", nil, nil
			}
			return "1 = 1", nil, nil
		}

		placeholders := make([]string, len(c.right))
		for i, v := range c.right {
			part, partArgs, err := renderOperand(d, v)
			if err != nil {
				return "", nil, err
			}

			placeholders[i] = part
			args = append(args, partArgs...)
		}

		return fmt.Sprintf("%s %s (%s)", left, c.op, strings.Join(placeholders, ", ")), args, nil
	}

	if len(c.right) != 1 {
		return "", nil, errors.Errorf("%s needs 1 operand, got %d", c.op, len(c.right))
	}

	right, rightArgs, err := renderOperand(d, c.right[0])
	if err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("%s %s %s", left, c.op, right), append(args, rightArgs...), nil
}

func (c conjunction) Render(d Dialect) (string, []any, error) {
	var (
		parts []string
		args  []any
	)

	for _, cond := range c.conds {
		if cond == nil {
			continue
		}

		sql, condArgs, err := cond.Render(d)
		if err != nil {
			return "", nil, err
		}

		if _, nested := cond.(conjunction); nested {
			sql = "(" + sql + ")"
		}

		parts = append(parts, sql)
		args = append(args, condArgs...)
	}

	if len(parts) == 0 {
		return "1 = 1", nil, nil
	}

	return strings.Join(parts, " "+c.op.String()+" "), args, nil
}

func (n negation) Render(d Dialect) (string, []any, error) {
	sql, args, err := renderExpression(d, n.cond)
	if err != nil {
		return "", nil, err
	}

	return "NOT (" + sql + ")", args, nil
}

// ConditionBuilder fluently chains conditions left to right, the way a WHERE
// clause reads.
type ConditionBuilder struct {
	parts []conditionPart
}

type conditionPart struct {
	op   Operator
	cond Expression
}

// NewConditionBuilder initializes and returns a new ConditionBuilder
func NewConditionBuilder() *ConditionBuilder {
	return &ConditionBuilder{
		parts: []conditionPart{},
	}
}

// And adds an AND condition with the provided column, operator, and values
func (cb *ConditionBuilder) And(column Expression, op Operator, values ...any) *ConditionBuilder {
	return cb.add(And, Compare(column, op, values...))
}

// Or adds an OR condition with the provided column, operator, and values
func (cb *ConditionBuilder) Or(column Expression, op Operator, values ...any) *ConditionBuilder {
	return cb.add(Or, Compare(column, op, values...))
}

// AndIsNull adds an AND condition with the IS NULL operator
func (cb *ConditionBuilder) AndIsNull(column Expression) *ConditionBuilder {
	return cb.add(And, Null(column))
}

// AndIsNotNull adds an AND condition with the IS NOT NULL operator
func (cb *ConditionBuilder) AndIsNotNull(column Expression) *ConditionBuilder {
	return cb.add(And, NotNull(column))
}

// OrIsNull adds an OR condition with the IS NULL operator
func (cb *ConditionBuilder) OrIsNull(column Expression) *ConditionBuilder {
	return cb.add(Or, Null(column))
}

// OrIsNotNull adds an OR condition with the IS NOT NULL operator
func (cb *ConditionBuilder) OrIsNotNull(column Expression) *ConditionBuilder {
	return cb.add(Or, NotNull(column))
}

// AndIn adds an AND condition with the IN operator
func (cb *ConditionBuilder) AndIn(column Expression, values ...any) *ConditionBuilder {
	return cb.add(And, InValues(column, values...))
}

// OrIn adds an OR condition with the IN operator
func (cb *ConditionBuilder) OrIn(column Expression, values ...any) *ConditionBuilder {
	return cb.add(Or, InValues(column, values...))
}

// AndNested adds a nested set of conditions using the provided function
func (cb *ConditionBuilder) AndNested(fn func(*ConditionBuilder)) *ConditionBuilder {
	return cb.nested(And, fn)
}

// OrNested adds a nested set of conditions using the provided function
func (cb *ConditionBuilder) OrNested(fn func(*ConditionBuilder)) *ConditionBuilder {
	return cb.nested(Or, fn)
}

// Empty reports whether no condition was added.
func (cb *ConditionBuilder) Empty() bool {
	return len(cb.parts) == 0
}

func (cb *ConditionBuilder) nested(op Operator, fn func(*ConditionBuilder)) *ConditionBuilder {
	nestedCb := NewConditionBuilder()

	fn(nestedCb)

	if nestedCb.Empty() {
		return cb
	}

	return cb.add(op, group{nestedCb})
}

func (cb *ConditionBuilder) add(op Operator, cond Expression) *ConditionBuilder {
	cb.parts = append(cb.parts, conditionPart{op: op, cond: cond})

	return cb
}

// Render writes the chain; the operator of the first part is dropped.
func (cb *ConditionBuilder) Render(d Dialect) (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
	)

	for i, part := range cb.parts {
		sql, partArgs, err := renderExpression(d, part.cond)
		if err != nil {
			return "", nil, err
		}

		if i > 0 {
			sb.WriteString(" " + part.op.String() + " ")
		}

		sb.WriteString(sql)
		args = append(args, partArgs...)
	}

	return sb.String(), args, nil
}

type group struct {
	inner Expression
}

func (g group) Render(d Dialect) (string, []any, error) {
	sql, args, err := renderExpression(d, g.inner)
	if err != nil {
		return "", nil, err
	}

	return "(" + sql + ")", args, nil
}
