package core

import (
	"context"
	"regexp"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/psql"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/qcode"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

var orderDirRe = regexp.MustCompile(`^[a-zA-Z\s]+$`)

// cstate is the state of one compilation. It is never shared between
// goroutines.
type cstate struct {
	e   *Engine
	id  xid.ID
	log *zap.Logger
	req QueryRequest

	calc *calcRegistry

	// aggs maps selected column names to their aggregation
	aggs map[string]string

	// aggExpr is set when an inline expression or calculated field
	// aggregates by itself
	aggExpr bool

	q      *qcode.Query
	having *qcode.GroupCond
}

func newState(e *Engine, req *QueryRequest) *cstate {
	return &cstate{
		e:      e,
		id:     xid.New(),
		log:    e.log,
		req:    req.clone(),
		calc:   newCalcRegistry(e.cat),
		aggs:   make(map[string]string),
		having: &qcode.GroupCond{},
	}
}

func (s *cstate) field() zap.Field {
	return zap.String("compile_id", s.id.String())
}

func (s *cstate) compile(ctx context.Context) (*Result, error) {
	if err := s.preprocessInline(); err != nil {
		return nil, err
	}
	if err := s.compileCalculatedFields(s.req.CalculatedFields); err != nil {
		return nil, err
	}
	s.defaultColumns()

	if err := s.collectAggregations(); err != nil {
		return nil, err
	}
	s.autoGroupBy()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.buildQuery(); err != nil {
		return nil, err
	}
	return s.render()
}

func (s *cstate) buildQuery() error {
	q, err := qcode.New(s.e.cat.From())
	if err != nil {
		return err
	}
	for _, pj := range s.e.cat.PreJoins() {
		if pj.OnBuilder != nil {
			q.PreJoinOn(pj.QueryObject, pj.OnBuilder, pj.Kind)
		} else {
			q.PreJoin(pj.QueryObject, pj.ForeignKey)
		}
	}
	q.Distinct = s.req.Distinct
	s.q = q

	if err := s.selectColumns(); err != nil {
		return err
	}
	if err := s.buildWhere(); err != nil {
		return err
	}
	return s.buildOrders()
}

// defaultColumns fills an empty column list with the model's select list
// followed by the calculated fields, so that aggregation and grouping see
// the same columns the query selects
func (s *cstate) defaultColumns() {
	if len(s.req.Columns) != 0 {
		return
	}
	defs := s.e.cat.DefaultSelectColumns()
	cols := make([]string, 0, len(defs)+len(s.calc.cols))
	for _, c := range defs {
		cols = append(cols, c.Name)
	}
	for _, c := range s.calc.cols {
		cols = append(cols, c.Name)
	}
	s.req.Columns = cols
}

func (s *cstate) selectColumns() error {
	for _, name := range s.req.Columns {
		col, err := s.calc.forSelect(name)
		if err != nil {
			return wrapf(err, "select")
		}
		if err := s.q.Select(col); err != nil {
			return wrapf(err, "select")
		}
	}

	// group keys are always part of the output
	for _, g := range s.req.GroupBy {
		if s.q.FindColumn(g.Field) != nil {
			continue
		}
		col, err := s.calc.forSelect(g.Field)
		if err != nil {
			return wrapf(err, "group by")
		}
		if err := s.q.Select(col); err != nil {
			return wrapf(err, "group by")
		}
	}

	s.q.RemoveColumns(s.req.ExColumns...)
	if len(s.q.Columns) == 0 {
		return ErrNoColumns
	}
	return nil
}

func (s *cstate) buildOrders() error {
	seen := make(map[*sdata.Column]struct{})

	for _, o := range s.req.OrderBy {
		if o.Order != "" && !orderDirRe.MatchString(o.Order) {
			return &RequestError{Field: o.Field, Msg: "invalid order direction " + o.Order}
		}
		col := s.q.FindColumn(o.Field)
		if col == nil {
			var err error
			if col, err = s.calc.forSelect(o.Field); err != nil {
				return wrapf(err, "order by")
			}
		}
		if err := s.addOrder(seen, qcode.Order{
			Column:     col,
			Dir:        o.Order,
			NullsFirst: o.NullFirst,
			NullsLast:  o.NullLast,
		}); err != nil {
			return err
		}
	}

	for _, o := range s.e.cat.DefaultOrders() {
		if err := s.addOrder(seen, qcode.Order{
			Column:     o.Column,
			Dir:        o.Order,
			NullsFirst: o.NullsFirst,
			NullsLast:  o.NullsLast,
		}); err != nil {
			return err
		}
	}

	if s.q.Distinct && !s.req.hasGroupBy() {
		return wrapf(s.q.SelectOrderColumns(), "distinct")
	}
	return nil
}

func (s *cstate) addOrder(seen map[*sdata.Column]struct{}, o qcode.Order) error {
	if _, ok := seen[o.Column]; ok {
		return nil
	}
	seen[o.Column] = struct{}{}
	return wrapf(s.q.AddOrder(o), "order by %s", o.Column.Name)
}

// overrides maps the group-by fields to their aggregation. A field without
// one is a group key.
func (s *cstate) overrides() (map[string]sdata.AggregationKind, error) {
	m := make(map[string]sdata.AggregationKind, len(s.req.GroupBy))
	for _, g := range s.req.GroupBy {
		if g.Agg == "" {
			m[g.Field] = sdata.AggNone
			continue
		}
		k, err := sdata.ParseAggregationKind(g.Agg)
		if err != nil {
			return nil, &RequestError{Field: g.Field, Msg: err.Error()}
		}
		m[g.Field] = k
	}
	return m, nil
}

func (s *cstate) render() (*Result, error) {
	co := s.e.co
	grouped := s.req.hasGroupBy()

	detail := s.q
	if !grouped {
		detail.Having = s.having
	}
	dr, err := co.Render(detail)
	if err != nil {
		return nil, err
	}

	q, r := detail, dr
	if grouped {
		ov, err := s.overrides()
		if err != nil {
			return nil, err
		}
		if q, err = co.Group(detail, psql.AggOptions{Overrides: ov, AddOrder: true}); err != nil {
			return nil, err
		}
		q.Having = s.having
		if r, err = co.Render(q); err != nil {
			return nil, err
		}
	}

	res := &Result{
		ID:                 s.id.String(),
		SQL:                r.SQL,
		SQLWithoutOrder:    r.SQLWithoutOrder,
		DetailSQL:          dr.SQL,
		Values:             r.Values,
		Columns:            resultColumns(q),
		CalculatedColumns:  s.calc.columns(),
		ColumnAggregations: s.aggs,
	}

	if s.req.ReturnTotal || grouped {
		if err := s.renderAgg(q, res); err != nil {
			return nil, err
		}
	}

	limit := s.req.Limit
	if limit <= 0 {
		limit = s.e.conf.DefaultLimit
	}
	if limit > 0 {
		res.PagedSQL = s.e.dialect.PageSQL(res.SQL, s.req.Start, limit)
	}

	s.log.Debug("query compiled",
		s.field(),
		zap.String("sql", res.SQL),
		zap.Int("values", len(res.Values)))
	return res, nil
}

func (s *cstate) renderAgg(q *qcode.Query, res *Result) error {
	co := s.e.co
	opts := psql.AggOptions{
		GroupBy:    s.req.groupFields(),
		CountToSum: s.req.hasGroupBy(),
	}

	if !s.e.conf.OptimizeAggregation {
		ar, err := co.RenderAgg(q, opts)
		if err != nil {
			return err
		}
		res.AggSQL, res.AggValues = ar.SQL, ar.Values
		s.log.Debug("aggregation compiled", s.field(), zap.String("sql", ar.SQL))
		return nil
	}

	ar, err := co.OptimizeAgg(q, opts)
	if err != nil {
		return err
	}
	res.Aggregation = &ar
	res.AggSQL, res.AggValues = ar.SQL(), ar.Values
	s.log.Debug(ar.Summary(), s.field(), zap.String("sql", res.AggSQL))
	return nil
}

func (s *cstate) declare(col *sdata.Column) string {
	if col.Calculated || col.QueryObject == nil {
		return col.Declare("")
	}
	return col.Declare(s.e.cat.AliasOf(col.QueryObject))
}

func resultColumns(q *qcode.Query) []ResultColumn {
	cols := make([]ResultColumn, 0, len(q.Columns))
	for _, c := range q.Columns {
		cols = append(cols, ResultColumn{
			Name:        c.AliasName(),
			Caption:     c.Caption,
			Type:        c.Type.String(),
			Aggregation: string(c.Aggregation),
		})
	}
	return cols
}
