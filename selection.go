package selq

import (
	"github.com/pkg/errors"
)

type (
	// SelectItem is one keyed entry of a Selection: either a Field leaf or a
	// nested Selection.
	SelectItem struct {
		Key    string
		Field  Field
		Nested Selection
	}

	// Selection is an ordered, possibly nested, set of keyed fields. The keys
	// determine the shape of the materialized rows.
	Selection []SelectItem
)

// Item selects f under key.
func Item(key string, f Field) SelectItem {
	return SelectItem{Key: key, Field: f}
}

// Group nests items under key.
func Group(key string, items ...SelectItem) SelectItem {
	return SelectItem{Key: key, Nested: Selection(items)}
}

// Cols selects each column under its own name.
func Cols(cols ...*Column) []SelectItem {
	out := make([]SelectItem, 0, len(cols))
	for _, c := range cols {
		out = append(out, Item(c.Name(), c))
	}

	return out
}

// Get resolves a path of keys to its field, or nil when the path does not
// lead to a leaf.
func (s Selection) Get(path ...string) Field {
	if len(path) == 0 {
		return nil
	}

	for _, item := range s {
		if item.Key != path[0] {
			continue
		}

		if len(path) == 1 {
			return item.Field
		}

		return item.Nested.Get(path[1:]...)
	}

	return nil
}

// Keys returns the top level keys in order.
func (s Selection) Keys() []string {
	out := make([]string, 0, len(s))
	for _, item := range s {
		out = append(out, item.Key)
	}

	return out
}

func (s Selection) validate() error {
	if len(s) == 0 {
		return errors.Wrap(ErrMalformedSelection, "selection is empty")
	}

	seen := make(map[string]bool, len(s))
	for _, item := range s {
		if item.Key == "" {
			return errors.Wrap(ErrMalformedSelection, "selection key is empty")
		}

		if seen[item.Key] {
			return errors.Wrapf(ErrMalformedSelection, "selection key %q is used twice", item.Key)
		}
		seen[item.Key] = true

		if item.Field == nil {
			if err := item.Nested.validate(); err != nil {
				return errors.Wrapf(err, "in %q", item.Key)
			}
		}
	}

	return nil
}
