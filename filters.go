package selq

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	DefaultPage    = 1
	DefaultPerPage = 25
)

// Filters carries list filters the way they arrive in a query string:
//
//	where=users.name|ILIKE|%john%,(OR,users.age|>=|18,users.age|IS NULL)
//	order=users.name|ASC,pets.name|DESC
//	page=2&per_page=25
type Filters struct {
	Page          int
	PerPage       int
	DisablePaging bool
	Where         string
	OrderBy       string
}

// Limit is the page size.
func (f *Filters) Limit() uint64 {
	if f.PerPage <= 0 {
		return uint64(DefaultPerPage)
	}

	return uint64(f.PerPage)
}

// Offset is the number of rows skipped before the current page.
func (f *Filters) Offset() uint64 {
	page := f.Page
	if page <= 0 {
		page = DefaultPage
	}

	return uint64(page-1) * f.Limit()
}

// FirstOnPage is the 1-based position of the first row on the page.
func (f *Filters) FirstOnPage() int {
	return int(f.Offset()) + 1
}

// ParseFilters reads where, order, page and per_page from values.
func ParseFilters(values url.Values) (*Filters, error) {
	filters := &Filters{
		Page:    DefaultPage,
		PerPage: DefaultPerPage,
		Where:   values.Get("where"),
		OrderBy: values.Get("order"),
	}

	if pageQuery := values.Get("page"); pageQuery != "" {
		pageInt, err := strconv.Atoi(pageQuery)
		if err != nil {
			return filters, errors.Wrapf(err, "invalid page %q", pageQuery)
		}

		filters.Page = pageInt
	}

	if perPageQuery := values.Get("per_page"); perPageQuery != "" {
		perPageInt, err := strconv.Atoi(perPageQuery)
		if err != nil {
			return filters, errors.Wrapf(err, "invalid per_page %q", perPageQuery)
		}

		filters.PerPage = perPageInt
	}

	if filters.Page <= 0 {
		filters.Page = DefaultPage
	}

	if filters.PerPage <= 0 {
		filters.PerPage = DefaultPerPage
	}

	return filters, nil
}

// columnResolver finds "alias.column" references among a set of sources.
type columnResolver struct {
	sources []Source
}

func (r columnResolver) resolve(ref string) (Field, error) {
	ref = strings.TrimSpace(ref)

	var alias, name string
	if i := strings.Index(ref, "."); i >= 0 {
		alias, name = ref[:i], ref[i+1:]
	} else {
		if len(r.sources) == 0 {
			return nil, errors.Errorf("unknown column %q", ref)
		}
		alias, name = r.sources[0].Alias(), ref
	}

	for _, src := range r.sources {
		if src.Alias() != alias {
			continue
		}

		if f := src.Selection().Get(strings.Split(name, ".")...); f != nil {
			return f, nil
		}

		return nil, errors.Errorf("source %q has no field %q", alias, name)
	}

	return nil, errors.Errorf("unknown source %q in %q", alias, ref)
}

// ParseWhere parses the where filter syntax into a condition. Column
// references are "alias.column" (or "alias.group.column" for nested
// selections); a bare column refers to the first source.
// Multiple values of IN and NOT IN are separated by "--".
func ParseWhere(query string, sources ...Source) (Expression, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	cb := NewConditionBuilder()
	if err := parseNestedConditions(query, cb, And, columnResolver{sources: sources}); err != nil {
		return nil, err
	}

	return cb, nil
}

func parseNestedConditions(query string, cb *ConditionBuilder, outerOperator Operator, r columnResolver) error {
	parts := strings.Split(query, ",")

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "(") {
			nestedOperator := Operator(strings.ToUpper(part[1:]))
			if nestedOperator != And && nestedOperator != Or {
				return errors.New("invalid nested operator")
			}

			i++
			nestedQuery := ""
			nestedCount := 1

			for ; i < len(parts) && nestedCount > 0; i++ {
				if strings.HasPrefix(parts[i], "(") {
					nestedCount++
				}
				for s := parts[i]; strings.HasSuffix(s, ")") && nestedCount > 0; s = strings.TrimSuffix(s, ")") {
					nestedCount--
				}
				nestedQuery += parts[i] + ","
			}

			if nestedCount != 0 {
				return errors.New("unbalanced parentheses")
			}
			i--

			nestedQuery = strings.TrimSuffix(nestedQuery, ",")
			nestedQuery = strings.TrimSuffix(nestedQuery, ")")

			var err error
			fn := func(nestedCB *ConditionBuilder) {
				err = parseNestedConditions(nestedQuery, nestedCB, nestedOperator, r)
			}

			if outerOperator == And {
				cb.AndNested(fn)
			} else {
				cb.OrNested(fn)
			}

			if err != nil {
				return errors.Wrap(err, "error in nested query")
			}

			continue
		}

		element := strings.Split(part, "|")
		if len(element) < 2 {
			return errors.Errorf("invalid query format: %s", part)
		}

		column, err := r.resolve(element[0])
		if err != nil {
			return err
		}

		operator := Operator(strings.ToUpper(element[1]))
		if !operator.valid() {
			return errors.Errorf("invalid operator: %s", element[1])
		}

		var values []any
		if len(element) == 3 {
			switch operator {
			case In, NotIn, Between:
				for _, v := range strings.Split(element[2], "--") {
					values = append(values, v)
				}
			default:
				values = append(values, element[2])
			}
		}

		if outerOperator == And {
			cb.And(column, operator, values...)
		} else {
			cb.Or(column, operator, values...)
		}
	}

	return nil
}

// ParseOrderBy parses "alias.column|ASC,alias.column|DESC".
func ParseOrderBy(query string, sources ...Source) ([]Expression, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	r := columnResolver{sources: sources}

	var out []Expression
	for _, order := range strings.Split(query, ",") {
		parts := strings.Split(order, "|")
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid order format: %s", order)
		}

		column, err := r.resolve(parts[0])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid order field %s", parts[0])
		}

		direction := OrderDirection(strings.ToUpper(parts[1]))
		if direction != Asc && direction != Desc {
			return nil, errors.Errorf("invalid order direction: %s", parts[1])
		}

		out = append(out, OrderTerm{expr: column, direction: direction})
	}

	return out, nil
}
