package core

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/expr"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

// preprocessInline turns inline expressions and renamed columns of the
// column list into calculated fields named by their alias, or expr_N when
// they have none.
// When any inline expression aggregates, the others get an inferred
// aggregation so that they can sit next to it in a grouped query.
func (s *cstate) preprocessInline() error {
	if len(s.req.Columns) == 0 {
		return nil
	}

	var inline []CalculatedField
	cols := make([]string, 0, len(s.req.Columns))
	n := 1

	for _, c := range s.req.Columns {
		ie := expr.ParseInline(c)
		if ie == nil {
			cols = append(cols, strings.TrimSpace(c))
			continue
		}
		alias := ie.Alias
		if alias == "" {
			alias = fmt.Sprintf("expr_%d", n)
			n++
		}
		f := CalculatedField{Name: alias, Expression: ie.Expr}

		// a renamed column keeps its caption and aggregation
		if expr.IsSimpleName(ie.Expr) {
			col, err := s.e.cat.FindColumnForSelect(ie.Expr)
			if err != nil {
				return wrapf(err, "select")
			}
			f.Caption = col.Caption
			if col.HasAggregation() {
				f.Agg = string(col.Aggregation)
			}
		}

		inline = append(inline, f)
		cols = append(cols, alias)
	}
	s.req.Columns = cols

	if len(inline) == 0 {
		return nil
	}

	nodes := make([]expr.Node, len(inline))
	infos := make([]expr.AggregateInfo, len(inline))
	for i, f := range inline {
		nd, err := s.e.exprs.Parse(f.Expression)
		if err != nil {
			return wrapf(err, "inline expression %s", f.Name)
		}
		nodes[i] = nd
		infos[i] = expr.AnalyzeAggregates(nd)
		if infos[i].HasAggregate() {
			s.aggExpr = true
		}
	}

	if s.aggExpr {
		for i := range inline {
			if infos[i].HasAggregate() || inline[i].Agg != "" {
				continue
			}
			if agg := expr.InferAggregation(nodes[i]); agg != "" {
				inline[i].Agg = agg
			}
		}
	}

	s.log.Debug("inline expressions converted",
		s.field(),
		zap.Int("count", len(inline)),
		zap.Bool("aggregates", s.aggExpr))

	s.req.CalculatedFields = append(s.req.CalculatedFields, inline...)
	return nil
}

// collectAggregations records how every selected column aggregates and
// notes whether a calculated field aggregates by itself
func (s *cstate) collectAggregations() error {
	for _, c := range s.calc.cols {
		if c.Aggregated {
			s.aggExpr = true
		}
	}

	for _, name := range s.req.Columns {
		col, err := s.calc.forSelect(name)
		if err != nil {
			return wrapf(err, "select")
		}
		if col.Aggregated || col.HasAggregation() {
			if k := col.Aggregation; k != sdata.AggUndefined {
				s.aggs[name] = string(k)
			}
		}
	}
	return nil
}

// autoGroupBy groups the selected columns when an expression aggregates,
// or with AutoGroupBy when any selected column aggregates. Orders on
// columns that are not selected are dropped.
func (s *cstate) autoGroupBy() {
	if !s.aggExpr && !(s.e.conf.AutoGroupBy && len(s.aggs) != 0) {
		return
	}

	grouped := make(map[string]struct{}, len(s.req.GroupBy))
	for _, g := range s.req.GroupBy {
		grouped[g.Field] = struct{}{}
	}
	for _, name := range s.req.Columns {
		if _, ok := grouped[name]; ok {
			continue
		}
		s.req.GroupBy = append(s.req.GroupBy, GroupRequest{Field: name, Agg: s.aggs[name]})
	}

	selected := make(map[string]struct{}, len(s.req.Columns))
	for _, name := range s.req.Columns {
		selected[name] = struct{}{}
	}
	orders := s.req.OrderBy[:0:0]
	for _, o := range s.req.OrderBy {
		if _, ok := selected[o.Field]; !ok {
			s.log.Warn("order on unselected field dropped from grouped query",
				s.field(), zap.String("field", o.Field))
			continue
		}
		orders = append(orders, o)
	}
	s.req.OrderBy = orders

	s.log.Debug("auto group by", s.field(), zap.Strings("fields", s.req.groupFields()))
}
