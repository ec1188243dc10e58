package sdata

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/gobuffalo/flect"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/dialect"
)

var validate = validator.New()

// Model is the YAML definition of a query model
type Model struct {
	Name       string         `yaml:"name" json:"name" validate:"required"`
	From       string         `yaml:"from" json:"from" validate:"required"`
	Tables     []TableDef     `yaml:"tables" json:"tables" validate:"required,min=1,dive"`
	Columns    []ColumnDef    `yaml:"columns" json:"columns" validate:"dive"`
	Dimensions []DimensionDef `yaml:"dimensions,omitempty" json:"dimensions,omitempty" validate:"dive"`
	PreJoins   []PreJoinDef   `yaml:"pre_joins,omitempty" json:"pre_joins,omitempty" validate:"dive"`
	Orders     []OrderDef     `yaml:"orders,omitempty" json:"orders,omitempty" validate:"dive"`
	Select     []string       `yaml:"select,omitempty" json:"select,omitempty"`
}

type TableDef struct {
	Name        string            `yaml:"name" json:"name" validate:"required"`
	Body        string            `yaml:"body,omitempty" json:"body,omitempty"`
	Alias       string            `yaml:"alias,omitempty" json:"alias,omitempty"`
	PrimaryKey  string            `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	ForceIndex  string            `yaml:"force_index,omitempty" json:"force_index,omitempty"`
	Link        string            `yaml:"link,omitempty" json:"link,omitempty"`
	On          string            `yaml:"on,omitempty" json:"on,omitempty"`
	Join        string            `yaml:"join,omitempty" json:"join,omitempty" validate:"omitempty,oneof=left inner right LEFT INNER RIGHT"`
	ForeignKeys map[string]string `yaml:"foreign_keys,omitempty" json:"foreign_keys,omitempty"`
}

type ColumnDef struct {
	Name               string `yaml:"name" json:"name" validate:"required"`
	Alias              string `yaml:"alias,omitempty" json:"alias,omitempty"`
	Caption            string `yaml:"caption,omitempty" json:"caption,omitempty"`
	Description        string `yaml:"description,omitempty" json:"description,omitempty"`
	Table              string `yaml:"table,omitempty" json:"table,omitempty"`
	Column             string `yaml:"column,omitempty" json:"column,omitempty"`
	Formula            string `yaml:"formula,omitempty" json:"formula,omitempty"`
	Type               string `yaml:"type,omitempty" json:"type,omitempty"`
	Aggregation        string `yaml:"aggregation,omitempty" json:"aggregation,omitempty"`
	AggregationFormula string `yaml:"aggregation_formula,omitempty" json:"aggregation_formula,omitempty"`
	Dimension          string `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	Property           bool   `yaml:"property,omitempty" json:"property,omitempty"`
	Bit                bool   `yaml:"bit,omitempty" json:"bit,omitempty"`
	Count              bool   `yaml:"count,omitempty" json:"count,omitempty"`
}

type DimensionDef struct {
	Name    string      `yaml:"name" json:"name" validate:"required"`
	Caption string      `yaml:"caption,omitempty" json:"caption,omitempty"`
	Closure *ClosureDef `yaml:"closure,omitempty" json:"closure,omitempty"`
}

type ClosureDef struct {
	Table      string `yaml:"table" json:"table" validate:"required"`
	ForeignKey string `yaml:"foreign_key" json:"foreign_key" validate:"required"`
	ParentKey  string `yaml:"parent_key" json:"parent_key" validate:"required"`
}

type PreJoinDef struct {
	Table      string `yaml:"table" json:"table" validate:"required"`
	ForeignKey string `yaml:"foreign_key,omitempty" json:"foreign_key,omitempty"`
}

type OrderDef struct {
	Field string `yaml:"field" json:"field" validate:"required"`
	Order string `yaml:"order,omitempty" json:"order,omitempty" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// ParseModel decodes and validates a YAML model
func ParseModel(b []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid model %q: %w", m.Name, err)
	}
	return &m, nil
}

// LoadModel reads a YAML model from fs
func LoadModel(fs afero.Fs, path string) (*Model, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return ParseModel(b)
}

// ModelCatalog is a Catalog built from a Model
type ModelCatalog struct {
	name     string
	provider dialect.Provider
	from     *QueryObject
	objects  map[string]*QueryObject
	columns  []*Column
	byName   map[string]*Column
	dims     map[string]*Dimension
	preJoins []PreJoin
	orders   []Order
	selects  []*Column
}

// NewModelCatalog resolves the references of m and returns a catalog using provider p
func NewModelCatalog(m *Model, p dialect.Provider) (*ModelCatalog, error) {
	if p == nil {
		return nil, fmt.Errorf("model %s: dialect is required", m.Name)
	}

	c := &ModelCatalog{
		name:     m.Name,
		provider: p,
		objects:  make(map[string]*QueryObject, len(m.Tables)),
		byName:   make(map[string]*Column, len(m.Columns)),
		dims:     make(map[string]*Dimension, len(m.Dimensions)),
	}

	if err := c.addTables(m.Tables); err != nil {
		return nil, err
	}

	from, ok := c.objects[m.From]
	if !ok {
		return nil, fmt.Errorf("model %s: from table %q is not defined", m.Name, m.From)
	}
	c.from = from

	if err := c.addDimensions(m.Dimensions); err != nil {
		return nil, err
	}
	if err := c.addColumns(m.Columns); err != nil {
		return nil, err
	}

	for _, pj := range m.PreJoins {
		qo, ok := c.objects[pj.Table]
		if !ok {
			return nil, fmt.Errorf("model %s: pre join table %q is not defined", m.Name, pj.Table)
		}
		c.preJoins = append(c.preJoins, PreJoin{
			QueryObject: qo,
			ForeignKey:  pj.ForeignKey,
			OnBuilder:   qo.OnBuilder,
			Kind:        qo.JoinKind,
		})
	}

	for _, o := range m.Orders {
		col, err := c.FindColumnForCondition(o.Field)
		if err != nil {
			return nil, fmt.Errorf("model %s: order: %w", m.Name, err)
		}
		c.orders = append(c.orders, Order{Column: col, Order: o.Order})
	}

	for _, name := range m.Select {
		col, err := c.FindColumnForSelect(name)
		if err != nil {
			return nil, fmt.Errorf("model %s: select: %w", m.Name, err)
		}
		c.selects = append(c.selects, col)
	}

	return c, nil
}

func (c *ModelCatalog) addTables(tables []TableDef) error {
	for _, t := range tables {
		if _, ok := c.objects[t.Name]; ok {
			return fmt.Errorf("model %s: duplicate table %q", c.name, t.Name)
		}
		kind, err := ParseJoinKind(t.Join)
		if err != nil {
			return fmt.Errorf("model %s: table %s: %w", c.name, t.Name, err)
		}
		qo := &QueryObject{
			Name:        t.Name,
			Body:        t.Body,
			Alias:       t.Alias,
			PrimaryKey:  t.PrimaryKey,
			ForceIndex:  t.ForceIndex,
			JoinKind:    kind,
			ForeignKeys: t.ForeignKeys,
		}
		if qo.Body == "" {
			qo.Body = t.Name
		}
		if qo.Alias == "" {
			qo.Alias = t.Name
		}
		if qo.PrimaryKey == "" {
			qo.PrimaryKey = "id"
		}
		if t.On != "" {
			qo.OnBuilder = &OnTemplate{Expr: t.On}
		}
		c.objects[t.Name] = qo
	}

	for _, t := range tables {
		if t.Link == "" {
			continue
		}
		link, ok := c.objects[t.Link]
		if !ok {
			return fmt.Errorf("model %s: table %s links unknown table %q", c.name, t.Name, t.Link)
		}
		c.objects[t.Name].Link = link
	}
	return nil
}

func (c *ModelCatalog) addDimensions(dims []DimensionDef) error {
	for _, d := range dims {
		dim := &Dimension{Name: d.Name, Caption: d.Caption}
		if dim.Caption == "" {
			dim.Caption = flect.Titleize(d.Name)
		}
		if d.Closure != nil {
			qo, ok := c.objects[d.Closure.Table]
			if !ok {
				return fmt.Errorf("model %s: dimension %s: closure table %q is not defined",
					c.name, d.Name, d.Closure.Table)
			}
			dim.Closure = &ClosureTable{
				QueryObject: qo,
				ForeignKey:  d.Closure.ForeignKey,
				ParentKey: &Column{
					Name:        d.Name + "$parentId",
					SQLName:     d.Closure.ParentKey,
					QueryObject: qo,
				},
			}
		}
		c.dims[d.Name] = dim
	}
	return nil
}

func (c *ModelCatalog) addColumns(cols []ColumnDef) error {
	for _, cd := range cols {
		if _, ok := c.byName[cd.Name]; ok {
			return fmt.Errorf("model %s: duplicate column %q", c.name, cd.Name)
		}
		typ, err := ParseColumnType(cd.Type)
		if err != nil {
			return fmt.Errorf("model %s: column %s: %w", c.name, cd.Name, err)
		}
		agg, err := ParseAggregationKind(cd.Aggregation)
		if err != nil {
			return fmt.Errorf("model %s: column %s: %w", c.name, cd.Name, err)
		}

		col := &Column{
			Name:               cd.Name,
			Alias:              cd.Alias,
			Caption:            cd.Caption,
			Description:        cd.Description,
			Type:               typ,
			Aggregation:        agg,
			SQLName:            cd.Column,
			Formula:            cd.Formula,
			AggregationFormula: cd.AggregationFormula,
			Property:           cd.Property,
			Bit:                cd.Bit,
			Count:              cd.Count,
		}
		if col.Caption == "" {
			col.Caption = flect.Titleize(cd.Name)
		}
		if col.SQLName == "" && col.Formula == "" {
			col.SQLName = flect.Underscore(cd.Name)
		}

		table := cd.Table
		if table == "" {
			table = c.from.Name
		}
		qo, ok := c.objects[table]
		if !ok {
			return fmt.Errorf("model %s: column %s: table %q is not defined", c.name, cd.Name, table)
		}
		col.QueryObject = qo

		if cd.Dimension != "" {
			dim, ok := c.dims[cd.Dimension]
			if !ok {
				return fmt.Errorf("model %s: column %s: dimension %q is not defined", c.name, cd.Name, cd.Dimension)
			}
			col.Dimension = dim
		}

		c.columns = append(c.columns, col)
		c.byName[cd.Name] = col
	}
	return nil
}

func (c *ModelCatalog) lookup(name string) (*Column, error) {
	if col, ok := c.byName[name]; ok {
		return col, nil
	}
	for _, col := range c.columns {
		if col.Alias != "" && col.Alias == name {
			return col, nil
		}
	}
	return nil, &NotFoundError{Kind: "column", Name: name, Suggestions: Suggest(name, c.Names())}
}

func (c *ModelCatalog) FindColumnForSelect(name string) (*Column, error) {
	return c.lookup(name)
}

func (c *ModelCatalog) FindColumnForCondition(name string) (*Column, error) {
	return c.lookup(name)
}

func (c *ModelCatalog) FindDimension(name string) *Dimension {
	return c.dims[name]
}

func (c *ModelCatalog) AliasOf(q *QueryObject) string {
	if q == nil {
		return ""
	}
	return q.Alias
}

func (c *ModelCatalog) Dialect() dialect.Provider {
	return c.provider
}

func (c *ModelCatalog) From() *QueryObject {
	return c.from
}

func (c *ModelCatalog) PreJoins() []PreJoin {
	return c.preJoins
}

func (c *ModelCatalog) DefaultOrders() []Order {
	return c.orders
}

// DefaultSelectColumns returns the model's select list, or every column when
// the model declares none
func (c *ModelCatalog) DefaultSelectColumns() []*Column {
	if len(c.selects) != 0 {
		return c.selects
	}
	return c.columns
}

// Names returns the sorted column names of the catalog
func (c *ModelCatalog) Names() []string {
	names := make([]string, 0, len(c.columns))
	for _, col := range c.columns {
		names = append(names, col.Name)
	}
	sort.Strings(names)
	return names
}

// Object returns the query object registered under name
func (c *ModelCatalog) Object(name string) *QueryObject {
	return c.objects[name]
}
