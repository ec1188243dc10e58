package expr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/expr"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

type mapResolver map[string]*sdata.Column

func (m mapResolver) Resolve(name string) (*sdata.Column, error) {
	if c, ok := m[name]; ok {
		return c, nil
	}
	return nil, &sdata.NotFoundError{Kind: "column", Name: name}
}

func (m mapResolver) AliasOf(q *sdata.QueryObject) string {
	if q == nil {
		return ""
	}
	return q.Alias
}

func newResolver() mapResolver {
	t := &sdata.QueryObject{Name: "fact_sales", Alias: "t"}
	c := &sdata.QueryObject{Name: "dim_customer", Alias: "c"}

	a := &sdata.Column{Name: "a", SQLName: "a", Type: sdata.TypeInteger, QueryObject: t}
	b := &sdata.Column{Name: "b", SQLName: "b", Type: sdata.TypeNumber, QueryObject: t}

	return mapResolver{
		"a":         a,
		"b":         b,
		"amount":    {Name: "amount", SQLName: "amount", Type: sdata.TypeMoney, QueryObject: t},
		"orderDate": {Name: "orderDate", SQLName: "order_date", Type: sdata.TypeDatetime, QueryObject: t},
		"name":      {Name: "name", SQLName: "name", Type: sdata.TypeText, QueryObject: c},
		"flag":      {Name: "flag", SQLName: "flag", Type: sdata.TypeBool, QueryObject: t},
		"net": {
			Name:       "net",
			Formula:    "(t.a - t.b)",
			Type:       sdata.TypeNumber,
			Calculated: true,
			Refs:       []*sdata.Column{a, b},
		},
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		src  string
		sql  string
		typ  sdata.ColumnType
		refs int
	}{
		{"a + b * 2", "(t.a + (t.b * 2))", sdata.TypeNumber, 2},
		{"(a + b) * 2", "((t.a + t.b) * 2)", sdata.TypeNumber, 2},
		{"a - 1 - 2", "((t.a - 1) - 2)", sdata.TypeInteger, 1},
		{"a / 2", "(t.a / 2)", sdata.TypeNumber, 1},
		{"a % 2", "(t.a % 2)", sdata.TypeInteger, 1},
		{"a + a", "(t.a + t.a)", sdata.TypeInteger, 1},
		{"-a", "(-t.a)", sdata.TypeInteger, 1},
		{"a == 1 && !flag", "((t.a = 1) AND (NOT t.flag))", sdata.TypeBool, 2},
		{"a === 1 || b !== 2", "((t.a = 1) OR (t.b <> 2))", sdata.TypeBool, 2},
		{"a != 1 and b <> 2", "((t.a <> 1) AND (t.b <> 2))", sdata.TypeBool, 2},
		{"a >= 1.5", "(t.a >= 1.5)", sdata.TypeBool, 1},
		{"YEAR(orderDate)", "YEAR(t.order_date)", sdata.TypeInteger, 1},
		{"date(orderDate)", "DATE(t.order_date)", sdata.TypeDatetime, 1},
		{"LENGTH(name)", "LENGTH(c.name)", sdata.TypeInteger, 1},
		{"lower(name)", "LOWER(c.name)", sdata.TypeText, 1},
		{"IFNULL(b, 0)", "IFNULL(t.b, 0)", sdata.TypeNumber, 1},
		{"IF(flag, name, 'none')", "IF(t.flag, c.name, 'none')", sdata.TypeText, 2},
		{"ROUND(amount * 1.1, 2)", "ROUND((t.amount * 1.1), 2)", sdata.TypeNumber, 1},
		{"CONCAT(name, 'O''Brien')", "CONCAT(c.name, 'O''Brien')", sdata.TypeText, 1},
		{`UPPER('a\\b')`, `UPPER('a\\b')`, sdata.TypeText, 0},
		{`"it's"`, `'it''s'`, sdata.TypeText, 0},
		{"CAST(a, 'decimal(10,2)')", "CAST(t.a AS DECIMAL(10,2))", sdata.TypeNumber, 1},
		{"EXTRACT(year, orderDate)", "EXTRACT(YEAR FROM t.order_date)", sdata.TypeInteger, 1},
		{"CASE(a > 1, 'big', 'small')", "CASE WHEN (t.a > 1) THEN 'big' ELSE 'small' END", sdata.TypeText, 1},
		{"net * 2", "((t.a - t.b) * 2)", sdata.TypeNumber, 2},
		{"true", "TRUE", sdata.TypeBool, 0},
		{"COALESCE(null, a)", "COALESCE(NULL, t.a)", sdata.TypeUnknown, 1},
	}

	r := newResolver()
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			f, err := expr.Compile(tc.src, r)
			require.NoError(t, err)
			assert.Equal(t, tc.sql, f.SQL)
			assert.Equal(t, tc.typ, f.Type)
			assert.Len(t, f.Refs, tc.refs)
			assert.False(t, f.HasAggregate())
		})
	}
}

func TestCompileAggregates(t *testing.T) {
	r := newResolver()

	f, err := expr.Compile("sum(amount)", r)
	require.NoError(t, err)
	assert.Equal(t, "SUM(t.amount)", f.SQL)
	assert.Equal(t, sdata.TypeNumber, f.Type)
	assert.Equal(t, "SUM", f.AggregationType())

	f, err = expr.Compile("sum(amount) / count(*)", r)
	require.NoError(t, err)
	assert.Equal(t, "(SUM(t.amount) / COUNT(*))", f.SQL)
	assert.True(t, f.HasAggregate())
	assert.Equal(t, "", f.AggregationType())
	assert.Equal(t, []string{"SUM", "COUNT"}, f.Aggregates)

	f, err = expr.Compile("MAX(orderDate)", r)
	require.NoError(t, err)
	assert.Equal(t, sdata.TypeDatetime, f.Type)

	_, err = expr.Compile("SUM(*)", r)
	var ce *expr.CompileError
	assert.True(t, errors.As(err, &ce))
}

func TestSecurity(t *testing.T) {
	r := newResolver()

	for _, src := range []string{
		"EXEC_SHELL(a)",
		"exec_shell(a)",
		"ABS(EXEC_SHELL(a))",
		"missing + EXEC_SHELL(a)",
		"SLEEP(10) + a",
	} {
		t.Run(src, func(t *testing.T) {
			f, err := expr.Compile(src, r)
			require.Error(t, err)
			assert.Nil(t, f)

			var se *expr.SecurityError
			require.True(t, errors.As(err, &se), "got %T", err)

			var ce *expr.CompileError
			assert.False(t, errors.As(err, &ce))
		})
	}

	_, err := expr.Compile("EXEC_SHELL(a)", r)
	assert.Equal(t, "function not allowed in calculated field expression: EXEC_SHELL", err.Error())
}

func TestCompileErrors(t *testing.T) {
	r := newResolver()

	_, err := expr.Compile("missing + 1", r)
	var ce *expr.CompileError
	require.True(t, errors.As(err, &ce))
	assert.True(t, errors.Is(err, sdata.ErrNotFound))
	assert.Contains(t, err.Error(), "missing")

	for _, src := range []string{"", "a +", "(a", "a b", "'abc", "a & b", "ABS(a,", "a ? b"} {
		_, err := expr.Compile(src, r)
		var se *expr.SyntaxError
		assert.True(t, errors.As(err, &se), "%q: got %v", src, err)
	}

	for _, src := range []string{"CAST(a, 'int; drop table x')", "CAST(a)", "EXTRACT(epoch, a)", "CASE(a)"} {
		_, err := expr.Compile(src, r)
		assert.True(t, errors.As(err, &ce), "%q: got %v", src, err)
	}
}

func TestParse(t *testing.T) {
	n, err := expr.Parse("a + b * c - d")
	require.NoError(t, err)
	assert.Equal(t, "((a + (b * c)) - d)", n.String())

	n, err = expr.Parse("f(x, 'y', *)")
	require.NoError(t, err)
	call, ok := n.(*expr.Call)
	require.True(t, ok)
	assert.Equal(t, "f", call.Name)
	assert.Len(t, call.Args, 3)

	n, err = expr.Parse("region$caption")
	require.NoError(t, err)
	assert.Equal(t, &expr.Ident{Name: "region$caption", At: 0}, n)

	_, err = expr.Parse("a +")
	var se *expr.SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.Pos)
}

func TestAnalyzeAggregates(t *testing.T) {
	tests := []struct {
		src   string
		count int
		typ   string
		infer string
	}{
		{"sum(a)", 1, "SUM", ""},
		{"sum(a) + count(*)", 2, "", "SUM"},
		{"ROUND(AVG(a), 2)", 1, "AVG", "SUM"},
		{"a + 2", 0, "", "SUM"},
		{"ABS(a)", 0, "", "SUM"},
		{"UPPER(name)", 0, "", ""},
		{"a", 0, "", ""},
		{"a > 1", 0, "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			n, err := expr.Parse(tc.src)
			require.NoError(t, err)

			info := expr.AnalyzeAggregates(n)
			assert.Equal(t, tc.count, info.Count)
			assert.Equal(t, tc.typ, info.Type)
			assert.Equal(t, tc.infer, expr.InferAggregation(n))
		})
	}
}

func TestParseInline(t *testing.T) {
	tests := []struct {
		entry string
		want  *expr.InlineExpression
	}{
		{"YEAR(orderDate) AS orderYear", &expr.InlineExpression{Expr: "YEAR(orderDate)", Alias: "orderYear"}},
		{"totaldue - discountAmount as netAmount", &expr.InlineExpression{Expr: "totaldue - discountAmount", Alias: "netAmount"}},
		{"totaldue - discountAmount", &expr.InlineExpression{Expr: "totaldue - discountAmount"}},
		{"sum(amount)", &expr.InlineExpression{Expr: "sum(amount)"}},
		{"  (a)  ", &expr.InlineExpression{Expr: "(a)"}},
		{"customerName", nil},
		{"region$caption", nil},
		{"customer.name", nil},
		{"customerName AS name", &expr.InlineExpression{Expr: "customerName", Alias: "name"}},
		{"region$caption as regionCaption", &expr.InlineExpression{Expr: "region$caption", Alias: "regionCaption"}},
		{"-1", nil},
		{"- 2.5", nil},
		{"", nil},
	}

	for _, tc := range tests {
		t.Run(tc.entry, func(t *testing.T) {
			assert.Equal(t, tc.want, expr.ParseInline(tc.entry))
		})
	}
}

func TestFunctions(t *testing.T) {
	assert.True(t, expr.IsAllowed("round"))
	assert.True(t, expr.IsAggregate("Sum"))
	assert.False(t, expr.IsAggregate("ABS"))
	assert.False(t, expr.IsAllowed("EXEC_SHELL"))

	c, ok := expr.LookupFunc("concat")
	require.True(t, ok)
	assert.Equal(t, expr.FuncString, c)
	assert.Equal(t, "string", c.String())

	all := expr.AllowedFunctions()
	assert.Contains(t, all[expr.FuncAggregate], "GROUP_CONCAT")

	assert.Equal(t, `a\\b''c`, expr.EscapeString(`a\b'c`))
}
