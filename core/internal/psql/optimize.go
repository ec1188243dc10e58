package psql

import (
	"fmt"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/qcode"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

// AggregationResult reports the summary SQL before and after pruning the
// inner query down to the columns the summary needs
type AggregationResult struct {
	OriginalSQL      string        `json:"original_sql" yaml:"original_sql"`
	OptimizedSQL     string        `json:"optimized_sql,omitempty" yaml:"optimized_sql,omitempty"`
	OriginalColumns  int           `json:"original_columns" yaml:"original_columns"`
	OptimizedColumns int           `json:"optimized_columns" yaml:"optimized_columns"`
	OriginalJoins    int           `json:"original_joins" yaml:"original_joins"`
	OptimizedJoins   int           `json:"optimized_joins" yaml:"optimized_joins"`
	Applied          bool          `json:"applied" yaml:"applied"`
	Values           []interface{} `json:"-" yaml:"-"`
}

// SQL returns the optimized SQL when pruning was applied
func (r AggregationResult) SQL() string {
	if r.Applied {
		return r.OptimizedSQL
	}
	return r.OriginalSQL
}

func (r AggregationResult) Summary() string {
	if !r.Applied {
		return fmt.Sprintf("aggregation not optimized: columns %d, joins %d",
			r.OriginalColumns, r.OriginalJoins)
	}
	return fmt.Sprintf("aggregation optimized: columns %d -> %d, joins %d -> %d",
		r.OriginalColumns, r.OptimizedColumns, r.OriginalJoins, r.OptimizedJoins)
}

// OptimizeAgg renders the summary query of q over a copy of q that selects
// only aggregated columns and group-by keys. q is never modified.
func (co *Compiler) OptimizeAgg(q *qcode.Query, opts AggOptions) (AggregationResult, error) {
	orig, err := co.RenderAgg(q, opts)
	if err != nil {
		return AggregationResult{}, err
	}

	res := AggregationResult{
		OriginalSQL:      orig.SQL,
		OptimizedSQL:     orig.SQL,
		OriginalColumns:  len(q.Columns),
		OptimizedColumns: len(q.Columns),
		OriginalJoins:    q.JoinCount(),
		OptimizedJoins:   q.JoinCount(),
		Values:           orig.Values,
	}

	// pruning changes what DISTINCT compares
	if q.Distinct {
		return res, nil
	}

	required, err := requiredColumns(q, opts)
	if err != nil {
		return AggregationResult{}, err
	}
	if len(required) == 0 {
		return res, nil
	}

	snap := q.WithColumns(required)
	inner, err := co.Render(snap)
	if err != nil {
		return AggregationResult{}, err
	}

	// the outer query keeps the shape of the original, pruned columns
	// render as null
	aq, err := co.AggQuery(q, inner.SQLWithoutOrder, opts)
	if err != nil {
		return AggregationResult{}, err
	}
	opt, err := co.Render(aq)
	if err != nil {
		return AggregationResult{}, err
	}

	res.OptimizedSQL = opt.SQL
	res.OptimizedColumns = len(snap.Columns)
	res.OptimizedJoins = snap.JoinCount()
	res.Values = inner.Values
	res.Applied = true
	return res, nil
}

func requiredColumns(q *qcode.Query, opts AggOptions) ([]*sdata.Column, error) {
	keys := make(map[string]struct{}, len(opts.GroupBy))
	for _, g := range opts.GroupBy {
		keys[g] = struct{}{}
	}

	var cols []*sdata.Column
	for _, col := range q.Columns {
		def, err := sdata.Aggregation(opts.kindOf(col))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		_, byName := keys[col.Name]
		_, byAlias := keys[col.AliasName()]

		if def.Required || byName || byAlias || isGroupKey(q, col) {
			cols = append(cols, col)
		}
	}
	return cols, nil
}

func isGroupKey(q *qcode.Query, col *sdata.Column) bool {
	for _, c := range q.GroupBy {
		if c == col {
			return true
		}
	}
	return false
}
