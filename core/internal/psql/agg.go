package psql

import (
	"fmt"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/qcode"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

// AggAlias is the alias of the detail subquery in aggregation queries
const AggAlias = "tx"

// TotalColumn is the row count column of every summary query
const TotalColumn = "total"

type AggOptions struct {
	// Overrides maps a field name or alias to an aggregation kind that
	// replaces the declared one
	Overrides map[string]sdata.AggregationKind

	// GroupBy names the request's group-by fields. The optimizer keeps them.
	GroupBy []string

	// AddOrder carries the detail orders over when their alias is selected
	AddOrder bool

	// CountToSum re-aggregates COUNT columns as sums. It is used when the
	// inner query is already grouped.
	CountToSum bool
}

func (o AggOptions) kindOf(col *sdata.Column) sdata.AggregationKind {
	if k, ok := o.Overrides[col.Name]; ok {
		return k
	}
	if k, ok := o.Overrides[col.AliasName()]; ok {
		return k
	}
	return col.Aggregation
}

// RenderAgg renders the summary query of detail: the detail SQL without
// ORDER BY wrapped as tx, one aggregate per selected column and the total
// row count.
func (co *Compiler) RenderAgg(detail *qcode.Query, opts AggOptions) (Rendered, error) {
	r, err := co.Render(detail)
	if err != nil {
		return Rendered{}, err
	}
	q, err := co.AggQuery(detail, r.SQLWithoutOrder, opts)
	if err != nil {
		return Rendered{}, err
	}
	ar, err := co.Render(q)
	if err != nil {
		return Rendered{}, err
	}
	ar.Values = r.Values
	return ar, nil
}

// AggQuery builds the summary query over inner, the rendered SQL of detail.
// The detail query is not modified.
func (co *Compiler) AggQuery(detail *qcode.Query, inner string, opts AggOptions) (*qcode.Query, error) {
	sub := sdata.NewSubQuery(inner, AggAlias)
	q, err := qcode.New(sub)
	if err != nil {
		return nil, err
	}

	for _, col := range detail.Columns {
		kind := opts.kindOf(col)
		def, err := sdata.Aggregation(kind)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}

		ex, err := def.Outer(sdata.AggContext{
			Ref:        co.outerRef(col),
			Column:     col,
			Dialect:    co.dialect,
			CountToSum: opts.CountToSum,
		})
		if err != nil {
			return nil, err
		}
		if err := q.Select(derived(col, ex, kind, sub)); err != nil {
			return nil, err
		}
	}

	total := &sdata.Column{
		Name:        TotalColumn,
		Formula:     "count(*)",
		Type:        sdata.TypeInteger,
		Aggregation: sdata.AggCount,
		Derived:     true,
		QueryObject: sub,
	}
	if err := q.Select(total); err != nil {
		return nil, err
	}

	if opts.AddOrder {
		carryOrders(detail, q)
	}
	return q, nil
}

// Group returns a copy of q grouped by its non aggregate columns. Aggregate
// columns are wrapped with their aggregation, columns whose formula already
// aggregates are kept and every other column becomes a GROUP BY key. With
// AddOrder the orders on selected columns are kept, the others dropped.
func (co *Compiler) Group(q *qcode.Query, opts AggOptions) (*qcode.Query, error) {
	gq := q.Clone()
	gq.Columns = make([]*sdata.Column, 0, len(q.Columns))
	gq.GroupBy = nil
	gq.Orders = nil

	for _, col := range q.Columns {
		if col.Aggregated {
			gq.Columns = append(gq.Columns, col)
			continue
		}

		kind := opts.kindOf(col)
		// a count column counts the rows of its group, it is never a key
		if col.Count && !kindAggregates(kind) {
			kind = sdata.AggCount
		}
		def, err := sdata.Aggregation(kind)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}

		ref := co.declare(col)
		if col.Count {
			ref = "1"
		}
		ex, err := def.GroupKey(sdata.AggContext{
			Ref:     ref,
			Column:  col,
			Dialect: co.dialect,
		})
		if err != nil {
			return nil, err
		}

		if kind == sdata.AggPK {
			kind = sdata.AggMax
		}
		gc := grouped(col, ex, kind)
		gq.Columns = append(gq.Columns, gc)

		if def.Grouped {
			gc.GroupByName = ex
			gq.GroupBy = append(gq.GroupBy, gc)
		}
	}

	if opts.AddOrder {
		carryOrders(q, gq)
	}
	return gq, nil
}

func (co *Compiler) declare(col *sdata.Column) string {
	return declare(co.aliases, col)
}

// outerRef references the selected alias of col inside tx
func (co *Compiler) outerRef(col *sdata.Column) string {
	return AggAlias + "." + selectAlias(co, col)
}

func derived(col *sdata.Column, ex string, kind sdata.AggregationKind, sub *sdata.QueryObject) *sdata.Column {
	return &sdata.Column{
		Name:               col.AliasName(),
		Caption:            col.Caption,
		Type:               col.Type,
		Aggregation:        kind,
		Formula:            ex,
		AggregationFormula: col.AggregationFormula,
		Derived:            true,
		QueryObject:        sub,
	}
}

// grouped keeps col's owner and references so the copy joins the same
// objects as col
func grouped(col *sdata.Column, ex string, kind sdata.AggregationKind) *sdata.Column {
	gc := *col
	gc.Aggregation = kind
	gc.Formula = ex
	gc.Derived = true
	gc.Aggregated = kindAggregates(kind)
	return &gc
}

func kindAggregates(k sdata.AggregationKind) bool {
	return k != sdata.AggUndefined && k != sdata.AggNone
}

func carryOrders(detail, q *qcode.Query) {
	for _, o := range detail.Orders {
		c := q.FindColumn(o.Column.AliasName())
		if c == nil {
			continue
		}
		o.Column = c
		q.Orders = append(q.Orders, o)
	}
}
