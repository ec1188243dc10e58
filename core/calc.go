package core

import (
	"strings"

	"github.com/gobuffalo/flect"
	"go.uber.org/zap"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/expr"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

// CalculatedColumn is a compiled calculated field
type CalculatedColumn struct {
	Name        string `json:"name" yaml:"name"`
	Caption     string `json:"caption,omitempty" yaml:"caption,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	SQL         string `json:"sql" yaml:"sql"`
	Type        string `json:"type" yaml:"type"`
	Aggregation string `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Aggregated  bool   `json:"aggregated,omitempty" yaml:"aggregated,omitempty"`
}

// calcRegistry holds the calculated columns of one compilation in
// declaration order. It resolves names like the catalog does, calculated
// columns first.
type calcRegistry struct {
	cat    Catalog
	cols   []*sdata.Column
	byName map[string]*sdata.Column
}

func newCalcRegistry(cat Catalog) *calcRegistry {
	return &calcRegistry{cat: cat, byName: make(map[string]*sdata.Column)}
}

func (r *calcRegistry) Resolve(name string) (*sdata.Column, error) {
	if c, ok := r.byName[name]; ok {
		return c, nil
	}
	return r.cat.FindColumnForCondition(name)
}

func (r *calcRegistry) AliasOf(q *sdata.QueryObject) string {
	return r.cat.AliasOf(q)
}

func (r *calcRegistry) get(name string) *sdata.Column {
	return r.byName[name]
}

// forSelect resolves a select list entry
func (r *calcRegistry) forSelect(name string) (*sdata.Column, error) {
	if c, ok := r.byName[name]; ok {
		return c, nil
	}
	return r.cat.FindColumnForSelect(name)
}

func (r *calcRegistry) columns() []CalculatedColumn {
	out := make([]CalculatedColumn, 0, len(r.cols))
	for _, c := range r.cols {
		out = append(out, CalculatedColumn{
			Name:        c.Name,
			Caption:     c.Caption,
			Description: c.Description,
			SQL:         c.Formula,
			Type:        c.Type.String(),
			Aggregation: string(c.Aggregation),
			Aggregated:  c.Aggregated,
		})
	}
	return out
}

// compile lowers each field and registers it. Later fields may reference
// earlier ones.
func (s *cstate) compileCalculatedFields(fields []CalculatedField) error {
	for _, f := range fields {
		col, err := s.compileCalculatedField(f)
		if err != nil {
			return err
		}
		s.calc.cols = append(s.calc.cols, col)
		s.calc.byName[col.Name] = col

		s.log.Debug("calculated field compiled",
			s.field(),
			zap.String("name", col.Name),
			zap.String("sql", col.Formula))
	}
	return nil
}

func (s *cstate) compileCalculatedField(f CalculatedField) (*sdata.Column, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, &ConfigError{Msg: "name is required"}
	}
	src := strings.TrimSpace(f.Expression)
	if src == "" {
		return nil, &ConfigError{Field: name, Msg: "expression is required"}
	}
	if s.calc.get(name) != nil {
		return nil, &ConfigError{Field: name, Msg: "duplicate name"}
	}
	if _, err := s.e.cat.FindColumnForSelect(name); err == nil {
		return nil, &ConfigError{Field: name, Msg: "name conflicts with a model column"}
	}

	n, err := s.e.exprs.Parse(src)
	if err != nil {
		return nil, wrapf(err, "calculated field %s", name)
	}
	frag, err := expr.Lower(src, n, s.calc)
	if err != nil {
		return nil, wrapf(err, "calculated field %s", name)
	}

	kind := sdata.AggUndefined
	if f.Agg != "" {
		if kind, err = sdata.ParseAggregationKind(f.Agg); err != nil {
			return nil, &ConfigError{Field: name, Msg: err.Error()}
		}
	} else if t := frag.AggregationType(); t != "" {
		kind, _ = sdata.ParseAggregationKind(t)
	}

	caption := f.Caption
	if caption == "" {
		caption = flect.Titleize(name)
	}

	return &sdata.Column{
		Name:        name,
		Caption:     caption,
		Description: f.Description,
		Type:        frag.Type,
		Formula:     frag.SQL,
		Aggregation: kind,
		Aggregated:  frag.HasAggregate(),
		Calculated:  true,
		Refs:        frag.Refs,
	}, nil
}
