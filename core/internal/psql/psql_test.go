package psql_test

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/dialect"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/psql"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/qcode"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

type model struct {
	sales, customer *sdata.QueryObject

	region, totalSales, orderDate, orderCount *sdata.Column
}

func newModel() model {
	m := model{
		sales: &sdata.QueryObject{Name: "fact_sales", Alias: "t", PrimaryKey: "sale_id",
			ForeignKeys: map[string]string{"dim_customer": "customer_id"}},
		customer: &sdata.QueryObject{Name: "dim_customer", Alias: "c", PrimaryKey: "customer_id"},
	}
	m.region = &sdata.Column{Name: "region", SQLName: "region", Type: sdata.TypeText, QueryObject: m.customer}
	m.totalSales = &sdata.Column{Name: "totalSales", SQLName: "sales_amount", Type: sdata.TypeMoney,
		Aggregation: sdata.AggSum, QueryObject: m.sales}
	m.orderDate = &sdata.Column{Name: "orderDate", SQLName: "order_date", Type: sdata.TypeDatetime, QueryObject: m.sales}
	m.orderCount = &sdata.Column{Name: "orderCount", Formula: "1", Type: sdata.TypeInteger,
		Aggregation: sdata.AggCount, Count: true, QueryObject: m.sales}
	return m
}

func compiler(t *testing.T, name string) *psql.Compiler {
	t.Helper()
	d, err := dialect.New(name)
	require.NoError(t, err)
	co, err := psql.NewCompiler(psql.Config{Dialect: d})
	require.NoError(t, err)
	return co
}

func detailQuery(t *testing.T, m model) *qcode.Query {
	t.Helper()
	q, err := qcode.New(m.sales)
	require.NoError(t, err)
	require.NoError(t, q.Select(m.region, m.totalSales, m.orderDate))
	q.Where.Add(&qcode.ValueCond{Link: qcode.LinkAnd, SQL: "t.sales_amount > ", Value: 100})
	require.NoError(t, q.AddOrder(qcode.Order{Column: m.orderDate, Dir: "desc"}))
	return q
}

const detailInner = "SELECT c.region region, t.sales_amount totalSales, t.order_date orderDate " +
	"FROM fact_sales t LEFT JOIN dim_customer c ON t.customer_id = c.customer_id " +
	"WHERE 1=1 AND t.sales_amount > ?"

func TestNewCompilerRequiresDialect(t *testing.T) {
	_, err := psql.NewCompiler(psql.Config{})
	assert.ErrorIs(t, err, psql.ErrNoDialect)
}

func TestRender(t *testing.T) {
	m := newModel()
	co := compiler(t, "mysql")

	r, err := co.Render(detailQuery(t, m))
	require.NoError(t, err)
	assert.Equal(t, detailInner+" ORDER BY t.order_date DESC", r.SQL)
	assert.Equal(t, detailInner, r.SQLWithoutOrder)
	assert.Equal(t, []interface{}{100}, r.Values)
}

func TestRenderBindVars(t *testing.T) {
	m := newModel()
	tests := []struct {
		dialect string
		where   string
	}{
		{"postgres", " WHERE 1=1 AND t.sales_amount > $1 AND t.region IN ($2, $3)"},
		{"mssql", " WHERE 1=1 AND t.sales_amount > @p1 AND t.region IN (@p2, @p3)"},
		{"sqlite", " WHERE 1=1 AND t.sales_amount > ? AND t.region IN (?, ?)"},
	}

	for _, tc := range tests {
		t.Run(tc.dialect, func(t *testing.T) {
			q, err := qcode.New(m.sales)
			require.NoError(t, err)
			require.NoError(t, q.Select(m.totalSales))
			q.Where.Add(
				&qcode.ValueCond{SQL: "t.sales_amount > ", Value: 1},
				&qcode.ListValueCond{Link: qcode.LinkAnd, SQL: "t.region IN (", Suffix: ")",
					Values: []interface{}{"north", "south"}},
			)

			r, err := compiler(t, tc.dialect).Render(q)
			require.NoError(t, err)
			assert.Equal(t, "SELECT t.sales_amount totalSales FROM fact_sales t"+tc.where, r.SQL)
			assert.Equal(t, []interface{}{1, "north", "south"}, r.Values)
		})
	}
}

func TestRenderConditionGroups(t *testing.T) {
	m := newModel()
	q, err := qcode.New(m.sales)
	require.NoError(t, err)
	require.NoError(t, q.Select(m.totalSales))

	g := q.Where.Group(qcode.LinkAnd)
	g.Add(
		&qcode.FragmentCond{Link: qcode.LinkOr, SQL: "t.a IS NULL"},
		&qcode.ValueCond{Link: qcode.LinkOr, SQL: "t.a = ", Value: 2},
	)
	q.Where.Group(qcode.LinkAnd)

	r, err := compiler(t, "mysql").Render(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT t.sales_amount totalSales FROM fact_sales t "+
		"WHERE 1=1 AND (1=0 OR t.a IS NULL OR t.a = ?) AND (1=1)", r.SQL)
}

func TestRenderCountColumn(t *testing.T) {
	m := newModel()
	q, err := qcode.New(m.sales)
	require.NoError(t, err)
	require.NoError(t, q.Select(m.orderCount))

	r, err := compiler(t, "mssql").Render(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 [orderCount] FROM fact_sales t", r.SQL)

	r, err = compiler(t, "postgres").Render(q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT 1 "orderCount" FROM fact_sales t`, r.SQL)
}

func TestRenderDistinctAndAliases(t *testing.T) {
	m := newModel()
	label := &sdata.Column{Name: "label", Alias: "sales label", Formula: "{alias}.label", QueryObject: m.sales}

	q, err := qcode.New(m.sales)
	require.NoError(t, err)
	q.Distinct = true
	require.NoError(t, q.Select(label))

	r, err := compiler(t, "mysql").Render(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT t.label `sales label` FROM fact_sales t", r.SQL)
}

func TestRenderNullOrdering(t *testing.T) {
	m := newModel()
	tests := []struct {
		dialect string
		order   string
	}{
		{"mssql", " ORDER BY CASE WHEN c.region IS NULL THEN 1 ELSE 0 END, c.region ASC"},
		{"postgres", " ORDER BY c.region ASC NULLS LAST"},
	}

	for _, tc := range tests {
		t.Run(tc.dialect, func(t *testing.T) {
			q, err := qcode.New(m.sales)
			require.NoError(t, err)
			require.NoError(t, q.Select(m.totalSales))
			require.NoError(t, q.AddOrder(qcode.Order{Column: m.region, Dir: "asc", NullsLast: true}))

			r, err := compiler(t, tc.dialect).Render(q)
			require.NoError(t, err)

			base := "SELECT t.sales_amount totalSales FROM fact_sales t " +
				"LEFT JOIN dim_customer c ON t.customer_id = c.customer_id"
			assert.Equal(t, base+tc.order, r.SQL)
			assert.Equal(t, base, r.SQLWithoutOrder)
		})
	}
}

func TestRenderJoins(t *testing.T) {
	m := newModel()
	store := &sdata.QueryObject{Name: "dim_store", Alias: "s", ForceIndex: "idx_code",
		OnBuilder: &sdata.OnTemplate{Expr: "{left}.store_code = {right}.code"}, JoinKind: sdata.JoinInner}
	code := &sdata.Column{Name: "storeName", SQLName: "name", QueryObject: store}

	tests := []struct {
		dialect string
		join    string
	}{
		{"mysql", " INNER JOIN dim_store s FORCE INDEX(idx_code) ON t.store_code = s.code"},
		{"mssql", " INNER JOIN dim_store s WITH (INDEX(idx_code)) ON t.store_code = s.code"},
		{"postgres", " INNER JOIN dim_store s ON t.store_code = s.code"},
	}

	for _, tc := range tests {
		t.Run(tc.dialect, func(t *testing.T) {
			q, err := qcode.New(m.sales)
			require.NoError(t, err)
			require.NoError(t, q.Select(code))

			r, err := compiler(t, tc.dialect).Render(q)
			require.NoError(t, err)
			assert.Equal(t, "SELECT s.name storeName FROM fact_sales t"+tc.join, r.SQL)
		})
	}
}

func TestRenderErrors(t *testing.T) {
	co := compiler(t, "mysql")
	m := newModel()

	_, err := co.Render(nil)
	assert.ErrorIs(t, err, qcode.ErrMissingFrom)

	q, err := qcode.New(m.sales)
	require.NoError(t, err)
	_, err = co.Render(q)
	assert.Error(t, err)

	q.JoinWithKey(&sdata.QueryObject{Name: "broken", Alias: "b"}, "")
	require.NoError(t, q.Select(m.totalSales))
	_, err = co.Render(q)
	assert.ErrorContains(t, err, "broken")
}

func TestRenderAgg(t *testing.T) {
	m := newModel()
	co := compiler(t, "mysql")
	q := detailQuery(t, m)

	r, err := co.RenderAgg(q, psql.AggOptions{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT null region, sum(tx.totalSales) totalSales, null orderDate, count(*) total "+
		"FROM ("+detailInner+") tx", r.SQL)
	assert.Equal(t, []interface{}{100}, r.Values)

	r, err = co.RenderAgg(q, psql.AggOptions{
		AddOrder:  true,
		Overrides: map[string]sdata.AggregationKind{"orderDate": sdata.AggMax},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT null region, sum(tx.totalSales) totalSales, max(tx.orderDate) orderDate, count(*) total "+
		"FROM ("+detailInner+") tx ORDER BY max(tx.orderDate) DESC", r.SQL)
}

func TestAggQueryCountToSum(t *testing.T) {
	m := newModel()
	co := compiler(t, "mssql")

	q, err := qcode.New(m.sales)
	require.NoError(t, err)
	require.NoError(t, q.Select(m.orderCount))

	aq, err := co.AggQuery(q, "SELECT 1", psql.AggOptions{})
	require.NoError(t, err)
	assert.Equal(t, "count(*)", aq.Columns[0].Formula)

	aq, err = co.AggQuery(q, "SELECT 1", psql.AggOptions{CountToSum: true})
	require.NoError(t, err)
	assert.Equal(t, "sum(tx.[orderCount])", aq.Columns[0].Formula)
	assert.Equal(t, psql.TotalColumn, aq.Columns[1].Name)
}

func TestAggQueryErrors(t *testing.T) {
	m := newModel()
	co := compiler(t, "mysql")

	custom := &sdata.Column{Name: "margin", SQLName: "margin", Aggregation: sdata.AggCustom, QueryObject: m.sales}
	q, err := qcode.New(m.sales)
	require.NoError(t, err)
	require.NoError(t, q.Select(custom))

	_, err = co.AggQuery(q, "SELECT 1", psql.AggOptions{})
	assert.ErrorIs(t, err, sdata.ErrMissingAggregationFormula)

	total := &sdata.Column{Name: "total", SQLName: "total", QueryObject: m.sales}
	q, err = qcode.New(m.sales)
	require.NoError(t, err)
	require.NoError(t, q.Select(total))

	_, err = co.AggQuery(q, "SELECT 1", psql.AggOptions{})
	assert.ErrorIs(t, err, qcode.ErrDuplicateAlias)
}

func TestGroup(t *testing.T) {
	m := newModel()
	co := compiler(t, "mysql")
	q := detailQuery(t, m)

	gq, err := co.Group(q, psql.AggOptions{AddOrder: true})
	require.NoError(t, err)
	r, err := co.Render(gq)
	require.NoError(t, err)

	day := "DATE_FORMAT(t.order_date,'%Y-%m-%d')"
	assert.Equal(t, "SELECT c.region region, SUM(t.sales_amount) totalSales, "+day+" orderDate "+
		"FROM fact_sales t LEFT JOIN dim_customer c ON t.customer_id = c.customer_id "+
		"WHERE 1=1 AND t.sales_amount > ? GROUP BY c.region, "+day+" ORDER BY "+day+" DESC", r.SQL)
	assert.Len(t, gq.GroupBy, 2)
	assert.Equal(t, []interface{}{100}, r.Values)

	// q is untouched
	assert.Empty(t, q.GroupBy)
	assert.Same(t, m.totalSales, q.Columns[1])

	pk := &sdata.Column{Name: "saleId", SQLName: "sale_id", Aggregation: sdata.AggPK, QueryObject: m.sales}
	sum := &sdata.Column{Name: "amount", Formula: "SUM(t.amount)", Aggregation: sdata.AggSum,
		Calculated: true, Aggregated: true}
	q, err = qcode.New(m.sales)
	require.NoError(t, err)
	require.NoError(t, q.Select(m.region, pk, sum, m.orderCount))
	require.NoError(t, q.AddOrder(qcode.Order{Column: m.orderDate}))

	gq, err = co.Group(q, psql.AggOptions{
		AddOrder:  true,
		Overrides: map[string]sdata.AggregationKind{"region": sdata.AggGroupConcat},
	})
	require.NoError(t, err)
	r, err = co.Render(gq)
	require.NoError(t, err)

	assert.Equal(t, "SELECT GROUP_CONCAT(c.region SEPARATOR ',') region, MAX(t.sale_id) saleId, "+
		"SUM(t.amount) amount, COUNT(*) `orderCount` "+
		"FROM fact_sales t LEFT JOIN dim_customer c ON t.customer_id = c.customer_id", r.SQL)
	assert.Equal(t, sdata.AggMax, gq.Columns[1].Aggregation)
	assert.Same(t, sum, gq.Columns[2])
	assert.Empty(t, gq.GroupBy)
	assert.Empty(t, gq.Orders)
}

func TestGroupRoundTrip(t *testing.T) {
	m := newModel()
	co := compiler(t, "postgres")

	q, err := qcode.New(m.sales)
	require.NoError(t, err)
	require.NoError(t, q.Select(m.region, m.totalSales))

	gq, err := co.Group(q, psql.AggOptions{})
	require.NoError(t, err)
	r, err := co.Render(gq)
	require.NoError(t, err)
	assert.Equal(t, "SELECT c.region region, SUM(t.sales_amount) totalSales FROM fact_sales t "+
		"LEFT JOIN dim_customer c ON t.customer_id = c.customer_id GROUP BY c.region", r.SQL)

	res, err := co.OptimizeAgg(gq, psql.AggOptions{GroupBy: []string{"region"}, CountToSum: true})
	require.NoError(t, err)
	require.True(t, res.Applied)
	assert.Equal(t, 2, res.OptimizedColumns)
	assert.Contains(t, res.SQL(), "sum(tx.totalSales)")
	assert.Contains(t, res.SQL(), "count(*) total")
	assert.Contains(t, res.SQL(), "FROM ("+r.SQL+") tx")
}

func TestGroupCountColumn(t *testing.T) {
	m := newModel()

	tests := []struct {
		dialect string
		sql     string
	}{
		{"mssql", "SELECT c.region region, COUNT(*) [orderCount] FROM fact_sales t " +
			"LEFT JOIN dim_customer c ON t.customer_id = c.customer_id GROUP BY c.region"},
		{"postgres", `SELECT c.region region, COUNT(*) "orderCount" FROM fact_sales t ` +
			`LEFT JOIN dim_customer c ON t.customer_id = c.customer_id GROUP BY c.region`},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			co := compiler(t, tt.dialect)
			q, err := qcode.New(m.sales)
			require.NoError(t, err)
			require.NoError(t, q.Select(m.region, m.orderCount))

			for _, kind := range []sdata.AggregationKind{sdata.AggNone, sdata.AggUndefined} {
				gq, err := co.Group(q, psql.AggOptions{
					Overrides: map[string]sdata.AggregationKind{"orderCount": kind},
				})
				require.NoError(t, err)
				r, err := co.Render(gq)
				require.NoError(t, err)

				assert.Equal(t, tt.sql, r.SQL)
				require.Len(t, gq.GroupBy, 1)
				assert.Equal(t, "region", gq.GroupBy[0].Name)
				assert.Equal(t, sdata.AggCount, gq.Columns[1].Aggregation)
			}

			// the detail query still selects the literal
			r, err := co.Render(q)
			require.NoError(t, err)
			assert.Contains(t, r.SQL, "SELECT c.region region, 1 ")
		})
	}
}

func TestOptimizeAgg(t *testing.T) {
	m := newModel()
	co := compiler(t, "mysql")
	q := detailQuery(t, m)
	joins := q.JoinCount()

	res, err := co.OptimizeAgg(q, psql.AggOptions{})
	require.NoError(t, err)
	require.True(t, res.Applied)

	assert.Equal(t, 3, res.OriginalColumns)
	assert.Equal(t, 1, res.OptimizedColumns)
	assert.Equal(t, res.OriginalJoins, res.OptimizedJoins)
	assert.Equal(t, "SELECT null region, sum(tx.totalSales) totalSales, null orderDate, count(*) total "+
		"FROM (SELECT t.sales_amount totalSales FROM fact_sales t "+
		"LEFT JOIN dim_customer c ON t.customer_id = c.customer_id "+
		"WHERE 1=1 AND t.sales_amount > ?) tx", res.SQL())
	assert.Equal(t, []interface{}{100}, res.Values)
	assert.Equal(t, "aggregation optimized: columns 3 -> 1, joins 1 -> 1", res.Summary())

	// the caller's query is untouched
	assert.Len(t, q.Columns, 3)
	assert.Equal(t, joins, q.JoinCount())

	res, err = co.OptimizeAgg(q, psql.AggOptions{GroupBy: []string{"region"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.OptimizedColumns)
	assert.LessOrEqual(t, res.OptimizedColumns, res.OriginalColumns)
}

func TestOptimizeAggNotApplied(t *testing.T) {
	m := newModel()
	co := compiler(t, "mysql")

	q, err := qcode.New(m.sales)
	require.NoError(t, err)
	require.NoError(t, q.Select(m.region, m.orderDate))

	res, err := co.OptimizeAgg(q, psql.AggOptions{})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, res.OriginalSQL, res.SQL())
	assert.Equal(t, "aggregation not optimized: columns 2, joins 1", res.Summary())

	q.Distinct = true
	require.NoError(t, q.Select(m.totalSales))
	res, err = co.OptimizeAgg(q, psql.AggOptions{})
	require.NoError(t, err)
	assert.False(t, res.Applied)
}

func TestGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, name := range []string{"postgres", "mssql"} {
		m := newModel()
		co := compiler(t, name)
		q := detailQuery(t, m)

		r, err := co.Render(q)
		require.NoError(t, err)
		a, err := co.RenderAgg(q, psql.AggOptions{})
		require.NoError(t, err)

		g.Assert(t, "sales_"+name, []byte(r.SQL+"\n"+a.SQL+"\n"))
	}
}
