package selq

type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

func (od OrderDirection) String() string {
	return string(od)
}

// OrderTerm is an ORDER BY expression with an explicit direction.
type OrderTerm struct {
	expr      Expression
	direction OrderDirection
}

func AscOf(e Expression) OrderTerm {
	return OrderTerm{expr: e, direction: Asc}
}

func DescOf(e Expression) OrderTerm {
	return OrderTerm{expr: e, direction: Desc}
}

func (o OrderTerm) Render(d Dialect) (string, []any, error) {
	sql, args, err := renderExpression(d, o.expr)
	if err != nil {
		return "", nil, err
	}

	return sql + " " + o.direction.String(), args, nil
}
