package selq

import (
	"database/sql"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Model is a struct that maps onto a database table.
type Model interface {
	Table() string
}

var (
	nullScannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType        = reflect.TypeOf(time.Time{})
)

// TableOf derives a table descriptor from the exported fields of model.
// Column names come from the db tag, or the snake cased field name; db:"-"
// skips a field. Pointer fields, sql.Null* scanners and fields tagged
// null:"true" are nullable, every other column is declared not-null.
// Anonymous struct fields are flattened into the parent table.
func TableOf(model Model) (*Table, error) {
	rt := reflect.TypeOf(model)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, errors.Errorf("[selq] model must be a struct, got: %v", rt)
	}

	var defs []ColumnDef
	if err := structColumns(rt, &defs, map[string]bool{}); err != nil {
		return nil, errors.Wrapf(err, "table %q", model.Table())
	}

	if len(defs) == 0 {
		return nil, errors.Errorf("[selq] model %s has no columns", rt.Name())
	}

	return NewTable(model.Table(), defs...), nil
}

// MustTableOf is like TableOf but panics on error.
func MustTableOf(model Model) *Table {
	t, err := TableOf(model)
	if err != nil {
		panic(err)
	}

	return t
}

func structColumns(rt reflect.Type, defs *[]ColumnDef, seen map[string]bool) error {
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)

		var (
			dbTag   = sf.Tag.Get("db")
			nullTag = sf.Tag.Get("null")
		)

		if dbTag == "-" {
			continue
		}

		if sf.Anonymous && dbTag == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}

			if ft.Kind() == reflect.Struct && ft != timeType {
				if err := structColumns(ft, defs, seen); err != nil {
					return err
				}
				continue
			}
		}

		if !sf.IsExported() {
			continue
		}

		name := dbTag
		if name == "" {
			name = toSnakeCase(sf.Name)
		}

		if seen[name] {
			return errors.Errorf("[selq] duplicate column %s", name)
		}
		seen[name] = true

		typ, nullable := columnType(sf.Type)

		*defs = append(*defs, ColumnDef{
			Name:    name,
			Type:    typ,
			NotNull: !nullable && nullTag != "true",
		})
	}

	return nil
}

func columnType(ft reflect.Type) (string, bool) {
	nullable := false

	if ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
		nullable = true
	}

	if ft != timeType && reflect.PointerTo(ft).Implements(nullScannerType) {
		nullable = true

		// sql.NullString and friends carry the value in their first field.
		if ft.Kind() == reflect.Struct && ft.NumField() > 0 && strings.HasPrefix(ft.Name(), "Null") {
			typ, _ := columnType(ft.Field(0).Type)
			return typ, nullable
		}
	}

	switch {
	case ft == timeType:
		return "timestamp", nullable
	case ft.Kind() == reflect.Bool:
		return "boolean", nullable
	case ft.Kind() >= reflect.Int && ft.Kind() <= reflect.Uint64:
		return "integer", nullable
	case ft.Kind() == reflect.Float32 || ft.Kind() == reflect.Float64:
		return "real", nullable
	case ft.Kind() == reflect.String:
		return "text", nullable
	case ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Uint8:
		return "blob", nullable
	}

	return "", nullable
}

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
)

func toSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}
