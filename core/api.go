// Package core provides an API to compile declarative query requests against
// a query model into dialect specific SQL.
//
// A request names columns, conditions, group-by fields, orders and
// calculated fields. Compile returns the detail SQL with its bind values
// and, when totals or groups are requested, a summary query wrapping the
// detail query.
package core

import (
	"context"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/dialect"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/psql"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

type (
	// Catalog resolves column names against a query model
	Catalog = sdata.Catalog

	// Dialect renders the database specific parts of a query
	Dialect = dialect.Provider

	// AggregationResult reports the summary SQL and the pruning applied to it
	AggregationResult = psql.AggregationResult

	Model        = sdata.Model
	ModelCatalog = sdata.ModelCatalog
)

// Result is the output of a compilation
type Result struct {
	// ID identifies the compilation in logs
	ID string `json:"id" yaml:"id"`

	SQL             string        `json:"sql" yaml:"sql"`
	SQLWithoutOrder string        `json:"sql_without_order" yaml:"sql_without_order"`
	Values          []interface{} `json:"values" yaml:"values"`

	// DetailSQL is the query before grouping. It equals SQL for requests
	// without group-by fields.
	DetailSQL string `json:"detail_sql" yaml:"detail_sql"`

	// AggSQL is the summary query with the total row count
	AggSQL      string             `json:"agg_sql,omitempty" yaml:"agg_sql,omitempty"`
	AggValues   []interface{}      `json:"agg_values,omitempty" yaml:"agg_values,omitempty"`
	Aggregation *AggregationResult `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`

	// PagedSQL is SQL limited to one page
	PagedSQL string `json:"paged_sql,omitempty" yaml:"paged_sql,omitempty"`

	Columns            []ResultColumn     `json:"columns" yaml:"columns"`
	CalculatedColumns  []CalculatedColumn `json:"calculated_columns,omitempty" yaml:"calculated_columns,omitempty"`
	ColumnAggregations map[string]string  `json:"column_aggregations,omitempty" yaml:"column_aggregations,omitempty"`
}

type ResultColumn struct {
	Name        string `json:"name" yaml:"name"`
	Caption     string `json:"caption,omitempty" yaml:"caption,omitempty"`
	Type        string `json:"type" yaml:"type"`
	Aggregation string `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
}

// Engine compiles query requests against one catalog. It is safe for
// concurrent use.
type Engine struct {
	conf    Config
	cat     Catalog
	dialect Dialect
	co      *psql.Compiler
	log     *zap.Logger
	exprs   exprCache
	results resultCache
}

type Option func(*Engine) error

// WithLogger sets the logger, the default discards everything
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) error {
		e.log = log
		return nil
	}
}

// WithDialect overrides the dialect of the config and the catalog
func WithDialect(d Dialect) Option {
	return func(e *Engine) error {
		e.dialect = d
		return nil
	}
}

// New creates an engine for the catalog
func New(conf Config, cat Catalog, options ...Option) (*Engine, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		conf: conf,
		cat:  cat,
		log:  zap.NewNop(),
	}

	for _, op := range options {
		if err := op(e); err != nil {
			return nil, err
		}
	}

	if err := e.initDialect(); err != nil {
		return nil, err
	}

	if err := e.initCache(); err != nil {
		return nil, err
	}

	co, err := psql.NewCompiler(psql.Config{Dialect: e.dialect, Aliases: cat})
	if err != nil {
		return nil, err
	}
	e.co = co
	return e, nil
}

func (e *Engine) initDialect() (err error) {
	switch {
	case e.dialect != nil:
	case e.conf.Dialect != "":
		e.dialect, err = dialect.New(e.conf.Dialect)
	default:
		e.dialect = e.cat.Dialect()
	}
	return
}

// Compile turns req into SQL. The request is not modified.
func (e *Engine) Compile(ctx context.Context, req *QueryRequest) (*Result, error) {
	if req == nil {
		return nil, &RequestError{Msg: "request is required"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, key, fromCache := e.results.Get(req)
	if fromCache {
		e.log.Debug("result from cache", zap.String("compile_id", res.ID))
		return res.clone(), nil
	}

	s := newState(e, req)
	res, err := s.compile(ctx)
	if err != nil {
		return nil, err
	}

	e.results.Set(key, res)
	return res.clone(), nil
}

// Dialect returns the dialect the engine renders with
func (e *Engine) Dialect() Dialect {
	return e.dialect
}

// NewDialect returns a fresh provider for the named dialect
func NewDialect(name string) (Dialect, error) {
	return dialect.New(name)
}

// ParseCatalog builds a catalog from a YAML model
func ParseCatalog(b []byte, d Dialect) (*ModelCatalog, error) {
	m, err := sdata.ParseModel(b)
	if err != nil {
		return nil, err
	}
	return sdata.NewModelCatalog(m, d)
}

// LoadCatalog reads a YAML model from fs and builds its catalog
func LoadCatalog(fs afero.Fs, path string, d Dialect) (*ModelCatalog, error) {
	m, err := sdata.LoadModel(fs, path)
	if err != nil {
		return nil, err
	}
	return sdata.NewModelCatalog(m, d)
}

// clone copies r deep enough that changes to the copy never reach a cached
// result
func (r *Result) clone() *Result {
	nr := *r
	nr.Values = append([]interface{}(nil), r.Values...)
	nr.AggValues = append([]interface{}(nil), r.AggValues...)
	nr.Columns = append([]ResultColumn(nil), r.Columns...)
	nr.CalculatedColumns = append([]CalculatedColumn(nil), r.CalculatedColumns...)

	if r.ColumnAggregations != nil {
		nr.ColumnAggregations = make(map[string]string, len(r.ColumnAggregations))
		for k, v := range r.ColumnAggregations {
			nr.ColumnAggregations[k] = v
		}
	}

	if r.Aggregation != nil {
		ar := *r.Aggregation
		ar.Values = append([]interface{}(nil), r.Aggregation.Values...)
		nr.Aggregation = &ar
	}
	return &nr
}
