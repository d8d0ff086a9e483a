package selq

import (
	"github.com/pkg/errors"
)

// groupByClause renders GROUP BY expressions, dropping repeats.
func groupByClause(d Dialect, exprs []Expression) ([]string, error) {
	groups := make([]string, 0, len(exprs))

	for _, e := range exprs {
		sql, args, err := renderExpression(d, e)
		if err != nil {
			return nil, err
		}

		if len(args) > 0 {
			return nil, errors.Errorf("group by %s cannot bind values", sql)
		}

		if !containsString(groups, sql) {
			groups = append(groups, sql)
		}
	}

	return groups, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}
