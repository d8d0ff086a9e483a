package selq

import (
	"fmt"
	"strings"
)

type (
	// FieldEntry is one output column: where it lands in the row and what it
	// selects.
	FieldEntry struct {
		Path  []string
		Field Field
	}

	// FieldList is the ordered, flattened projection of a statement.
	FieldList []FieldEntry
)

// Name is the output name of the entry, the path joined with "_".
func (fe FieldEntry) Name() string {
	return strings.Join(fe.Path, "_")
}

// Paths returns a copy of every entry's path.
func (fl FieldList) Paths() [][]string {
	out := make([][]string, 0, len(fl))
	for _, fe := range fl {
		out = append(out, append([]string(nil), fe.Path...))
	}

	return out
}

// OutputNames returns the column name of every entry when the list is
// selected as a subquery: the entry name, or the entry name with a numeric
// suffix when an earlier entry already produced it.
func (fl FieldList) OutputNames() []string {
	names := make([]string, len(fl))
	used := make(map[string]bool, len(fl))

	for i, fe := range fl {
		used[fe.Name()] = true
		names[i] = fe.Name()
	}

	taken := make(map[string]bool, len(fl))
	for i, name := range names {
		if taken[name] {
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s_%d", name, n)
				if !used[candidate] && !taken[candidate] {
					name = candidate
					break
				}
			}
		}

		taken[name] = true
		names[i] = name
	}

	return names
}

func (fl FieldList) clone() FieldList {
	out := make(FieldList, 0, len(fl))
	for _, fe := range fl {
		out = append(out, FieldEntry{
			Path:  append([]string(nil), fe.Path...),
			Field: fe.Field,
		})
	}

	return out
}

// Resolve computes the projection of src. With an explicit selection the
// result is partial and uses the selection as-is; otherwise every field the
// source exposes is selected.
func Resolve(src Source, explicit Selection) (fields Selection, fieldList FieldList, partial bool) {
	if explicit != nil {
		fields, partial = explicit, true
	} else {
		fields = src.Selection()
	}

	return fields, flatten(fields, nil), partial
}

// flatten walks sel depth first; every leaf's path is its chain of keys
// below prefix.
func flatten(sel Selection, prefix []string) FieldList {
	var out FieldList

	for _, item := range sel {
		path := make([]string, len(prefix), len(prefix)+1)
		copy(path, prefix)
		path = append(path, item.Key)

		if item.Field != nil {
			out = append(out, FieldEntry{Path: path, Field: item.Field})
			continue
		}

		out = append(out, flatten(item.Nested, path)...)
	}

	return out
}
