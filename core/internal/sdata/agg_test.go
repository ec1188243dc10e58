package sdata_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/dialect"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

func TestAggregationOuter(t *testing.T) {
	p, err := dialect.New("postgres")
	require.NoError(t, err)

	tests := []struct {
		kind       sdata.AggregationKind
		countToSum bool
		want       string
	}{
		{sdata.AggSum, false, "sum(tx.v)"},
		{sdata.AggAvg, false, "avg(tx.v)"},
		{sdata.AggMax, false, "max(tx.v)"},
		{sdata.AggMin, false, "min(tx.v)"},
		{sdata.AggPK, false, "max(tx.v)"},
		{sdata.AggCount, false, "count(*)"},
		{sdata.AggCount, true, "sum(tx.v)"},
		{sdata.AggNone, false, "null"},
		{sdata.AggUndefined, false, "null"},
		{sdata.AggGroupConcat, false, "STRING_AGG(tx.v::text, ',')"},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			def, err := sdata.Aggregation(tc.kind)
			require.NoError(t, err)

			got, err := def.Outer(sdata.AggContext{
				Ref:        "tx.v",
				Column:     &sdata.Column{Name: "v", Aggregation: tc.kind},
				Dialect:    p,
				CountToSum: tc.countToSum,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAggregationFlags(t *testing.T) {
	for _, k := range []sdata.AggregationKind{sdata.AggSum, sdata.AggCount, sdata.AggPK, sdata.AggCustom} {
		def, err := sdata.Aggregation(k)
		require.NoError(t, err)
		assert.True(t, def.Required, k)
	}

	for _, k := range []sdata.AggregationKind{sdata.AggNone, sdata.AggUndefined} {
		def, err := sdata.Aggregation(k)
		require.NoError(t, err)
		assert.False(t, def.Required)
		assert.True(t, def.Grouped)
	}

	_, err := sdata.Aggregation("MEDIAN")
	assert.Error(t, err)
}

func TestAggregationGroupKey(t *testing.T) {
	p, err := dialect.New("mysql")
	require.NoError(t, err)

	def, err := sdata.Aggregation(sdata.AggNone)
	require.NoError(t, err)

	got, err := def.GroupKey(sdata.AggContext{
		Ref:     "t.order_date",
		Column:  &sdata.Column{Name: "orderDate", Type: sdata.TypeDatetime},
		Dialect: p,
	})
	require.NoError(t, err)
	assert.Equal(t, "DATE_FORMAT(t.order_date,'%Y-%m-%d')", got)

	def, err = sdata.Aggregation(sdata.AggCount)
	require.NoError(t, err)
	got, err = def.GroupKey(sdata.AggContext{Ref: "t.id", Dialect: p})
	require.NoError(t, err)
	assert.Equal(t, "COUNT(*)", got)
}

func TestCustomAggregation(t *testing.T) {
	def, err := sdata.Aggregation(sdata.AggCustom)
	require.NoError(t, err)

	got, err := def.Outer(sdata.AggContext{
		Ref:    "tx.v",
		Column: &sdata.Column{Name: "v", AggregationFormula: "sum(tx.v) / count(*)"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sum(tx.v) / count(*)", got)

	_, err = def.Outer(sdata.AggContext{Ref: "tx.v", Column: &sdata.Column{Name: "v"}})
	assert.True(t, errors.Is(err, sdata.ErrMissingAggregationFormula))
}

func TestParseAggregationKind(t *testing.T) {
	k, err := sdata.ParseAggregationKind(" sum ")
	require.NoError(t, err)
	assert.Equal(t, sdata.AggSum, k)

	k, err = sdata.ParseAggregationKind("")
	require.NoError(t, err)
	assert.Equal(t, sdata.AggUndefined, k)

	_, err = sdata.ParseAggregationKind("median")
	assert.Error(t, err)
}
