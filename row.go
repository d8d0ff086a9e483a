package selq

import "strings"

// Row is a result row shaped by a field list: a flat map for single source
// selections, nested maps keyed by alias once sources are joined.
type Row map[string]any

// MapRow shapes the values of one result row. A nested object at any depth
// whose values are all NULL, that is built from the columns of a single
// source, and whose source is not guaranteed present in nullability, is set
// to nil instead of an object of NULL fields. Columns of a subquery count as
// coming from the source they were read from inside the subquery.
func MapRow(fields FieldList, nullability map[string]bool, values []any) Row {
	row := Row{}

	type groupState struct {
		path    []string
		allNull bool
		source  string
		present bool
		mixed   bool
	}
	var (
		groups = map[string]*groupState{}
		order  []string
	)

	for i, fe := range fields {
		if i >= len(values) || len(fe.Path) == 0 {
			continue
		}

		value := values[i]

		node := row
		for _, key := range fe.Path[:len(fe.Path)-1] {
			child, ok := node[key].(Row)
			if !ok {
				child = Row{}
				node[key] = child
			}
			node = child
		}
		node[fe.Path[len(fe.Path)-1]] = value

		source, present, known := fieldSource(fe.Field, nullability)

		for depth := 1; depth < len(fe.Path); depth++ {
			key := strings.Join(fe.Path[:depth], "\x00")

			st, ok := groups[key]
			if !ok {
				st = &groupState{path: fe.Path[:depth], allNull: true, source: source, present: present}
				groups[key] = st
				order = append(order, key)
			}

			if value != nil {
				st.allNull = false
			}

			if !known || source != st.source {
				st.mixed = true
			}
		}
	}

	for _, key := range order {
		st := groups[key]
		if !st.allNull || st.mixed || st.present {
			continue
		}

		parent := row
		for _, k := range st.path[:len(st.path)-1] {
			child, ok := parent[k].(Row)
			if !ok {
				parent = nil
				break
			}
			parent = child
		}

		if parent != nil {
			parent[st.path[len(st.path)-1]] = nil
		}
	}

	return row
}

// fieldSource names the source a field's row comes from and whether that row
// is guaranteed present. known is false for expressions and for owners
// missing from nullability.
func fieldSource(f Field, nullability map[string]bool) (source string, present, known bool) {
	c, ok := f.(*Column)
	if !ok {
		return "", false, false
	}

	present, ok = nullability[c.owner]
	if !ok {
		return "", false, false
	}

	if c.origin != "" {
		return c.owner + "/" + c.origin, present && c.originPresent, true
	}

	return c.owner, present, true
}
