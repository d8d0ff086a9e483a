// Package queryfile builds selq statements from YAML query files.
//
//	tables:
//	  users:
//	    - {name: id, type: integer, not_null: true}
//	    - {name: name, type: text, not_null: true}
//	  pets:
//	    - {name: id, type: integer, not_null: true}
//	    - {name: owner_id, type: integer}
//	from: {table: users, alias: u}
//	joins:
//	  - type: left
//	    table: pets
//	    alias: p
//	    on: {left: u.id, op: "=", right: p.owner_id}
//	where: u.name|ILIKE|%jo%
//	order_by: u.name|ASC
//	limit: ":n"
package queryfile

import (
	"os"
	"sort"
	"strings"

	"github.com/donseba/selq"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	File struct {
		Tables  map[string][]ColumnSpec `yaml:"tables"`
		From    SourceSpec              `yaml:"from"`
		Select  []FieldSpec             `yaml:"select"`
		Joins   []JoinSpec              `yaml:"joins"`
		Where   string                  `yaml:"where"`
		OrderBy string                  `yaml:"order_by"`
		Limit   *Bound                  `yaml:"limit"`
		Offset  *Bound                  `yaml:"offset"`

		// Params are the default placeholder values used by run.
		Params selq.Params `yaml:"params"`
	}

	ColumnSpec struct {
		Name    string `yaml:"name"`
		Type    string `yaml:"type"`
		NotNull bool   `yaml:"not_null"`
	}

	SourceSpec struct {
		Table string `yaml:"table"`
		Alias string `yaml:"alias"`
	}

	// FieldSpec is either a column reference or a named group of fields.
	FieldSpec struct {
		Key    string      `yaml:"key"`
		Column string      `yaml:"column"`
		Fields []FieldSpec `yaml:"fields"`
	}

	JoinSpec struct {
		Type  string `yaml:"type"`
		Table string `yaml:"table"`
		Alias string `yaml:"alias"`
		On    OnSpec `yaml:"on"`
	}

	// OnSpec compares two column references.
	OnSpec struct {
		Left  string `yaml:"left"`
		Op    string `yaml:"op"`
		Right string `yaml:"right"`
	}

	// Bound is a literal limit or offset, or a placeholder written as :name.
	Bound struct {
		Value uint64
		Param string
	}
)

func (b *Bound) UnmarshalYAML(node *yaml.Node) error {
	if strings.HasPrefix(node.Value, ":") {
		b.Param = strings.TrimPrefix(node.Value, ":")
		return nil
	}

	return node.Decode(&b.Value)
}

// Load reads and decodes a query file.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read query file")
	}

	return Parse(b)
}

func Parse(b []byte) (*File, error) {
	f := &File{}
	if err := yaml.Unmarshal(b, f); err != nil {
		return nil, errors.Wrap(err, "parse query file")
	}

	if f.From.Table == "" {
		return nil, errors.New("query file has no from table")
	}

	return f, nil
}

// TableNames returns the declared tables in name order.
func (f *File) TableNames() []string {
	names := make([]string, 0, len(f.Tables))
	for name := range f.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (f *File) table(s SourceSpec) (*selq.Table, error) {
	cols, ok := f.Tables[s.Table]
	if !ok {
		return nil, errors.Errorf("unknown table %q", s.Table)
	}

	defs := make([]selq.ColumnDef, 0, len(cols))
	for _, c := range cols {
		defs = append(defs, selq.ColumnDef{Name: c.Name, Type: c.Type, NotNull: c.NotNull})
	}

	t := selq.NewTable(s.Table, defs...)
	if s.Alias != "" {
		t = t.As(s.Alias)
	}

	return t, nil
}

// Build turns the file into a statement of b.
func (f *File) Build(b *selq.Builder) (*selq.Final, error) {
	base, err := f.table(f.From)
	if err != nil {
		return nil, errors.Wrap(err, "from")
	}

	sources := []selq.Source{base}
	for _, j := range f.Joins {
		t, err := f.table(SourceSpec{Table: j.Table, Alias: j.Alias})
		if err != nil {
			return nil, errors.Wrapf(err, "join %q", j.Alias)
		}
		sources = append(sources, t)
	}

	var sel selq.Selection
	if len(f.Select) > 0 {
		sel, err = selection(f.Select, sources)
		if err != nil {
			return nil, err
		}
	}

	q := b.SelectFields(sel).From(base)

	for i, j := range f.Joins {
		target := sources[i+1]

		on, err := onCondition(j.On, sources)
		if err != nil {
			return nil, errors.Wrapf(err, "join %q", target.Alias())
		}

		switch strings.ToLower(j.Type) {
		case "", "inner":
			q = q.InnerJoin(target, on)
		case "left":
			q = q.LeftJoin(target, on)
		case "right":
			q = q.RightJoin(target, on)
		case "full":
			q = q.FullJoin(target, on)
		default:
			return nil, errors.Errorf("unknown join type %q", j.Type)
		}
	}

	filtered := &q.Filtered
	if f.Where != "" {
		where, err := selq.ParseWhere(f.Where, sources...)
		if err != nil {
			return nil, errors.Wrap(err, "where")
		}
		filtered = q.Where(where)
	}

	ordered := &filtered.Ordered
	if f.OrderBy != "" {
		orderBy, err := selq.ParseOrderBy(f.OrderBy, sources...)
		if err != nil {
			return nil, errors.Wrap(err, "order_by")
		}
		ordered = filtered.OrderBy(orderBy...)
	}

	limited := &ordered.Limited
	if f.Limit != nil {
		if f.Limit.Param != "" {
			limited = ordered.LimitParam(f.Limit.Param)
		} else {
			limited = ordered.Limit(f.Limit.Value)
		}
	}

	final := &limited.Final
	if f.Offset != nil {
		if f.Offset.Param != "" {
			final = limited.OffsetParam(f.Offset.Param)
		} else {
			final = limited.Offset(f.Offset.Value)
		}
	}

	if err := final.Err(); err != nil {
		return nil, err
	}

	return final, nil
}

func selection(specs []FieldSpec, sources []selq.Source) (selq.Selection, error) {
	out := make(selq.Selection, 0, len(specs))

	for _, s := range specs {
		if len(s.Fields) > 0 {
			nested, err := selection(s.Fields, sources)
			if err != nil {
				return nil, errors.Wrapf(err, "group %q", s.Key)
			}
			out = append(out, selq.Group(s.Key, nested...))
			continue
		}

		field, err := column(s.Column, sources)
		if err != nil {
			return nil, err
		}

		key := s.Key
		if key == "" {
			key = s.Column[strings.LastIndex(s.Column, ".")+1:]
		}

		out = append(out, selq.Item(key, field))
	}

	return out, nil
}

func onCondition(on OnSpec, sources []selq.Source) (selq.Expression, error) {
	if on.Left == "" {
		return nil, nil
	}

	left, err := column(on.Left, sources)
	if err != nil {
		return nil, err
	}

	right, err := column(on.Right, sources)
	if err != nil {
		return nil, err
	}

	op := selq.Operator(strings.ToUpper(on.Op))
	if on.Op == "" {
		op = selq.Equal
	}

	return selq.Compare(left, op, right), nil
}

// column resolves "alias.column" against sources.
func column(ref string, sources []selq.Source) (selq.Field, error) {
	alias, name, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, errors.Errorf("column %q must be written as alias.column", ref)
	}

	for _, src := range sources {
		if src.Alias() != alias {
			continue
		}

		if f := src.Selection().Get(name); f != nil {
			return f, nil
		}

		return nil, errors.Errorf("source %q has no column %q", alias, name)
	}

	return nil, errors.Errorf("unknown source %q", alias)
}
