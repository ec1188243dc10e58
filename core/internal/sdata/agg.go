package sdata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/dialect"
)

// AggregationKind is how a column aggregates in a summary query. The zero
// value means no aggregation was declared.
type AggregationKind string

const (
	AggUndefined   AggregationKind = ""
	AggNone        AggregationKind = "NONE"
	AggSum         AggregationKind = "SUM"
	AggAvg         AggregationKind = "AVG"
	AggCount       AggregationKind = "COUNT"
	AggMax         AggregationKind = "MAX"
	AggMin         AggregationKind = "MIN"
	AggGroupConcat AggregationKind = "GROUP_CONCAT"
	AggCustom      AggregationKind = "CUSTOM"
	AggPK          AggregationKind = "PK"
)

// ErrMissingAggregationFormula is returned for CUSTOM columns without a formula
var ErrMissingAggregationFormula = errors.New("custom aggregation requires an aggregation formula")

const groupConcatSep = ","

// AggContext is the input of the aggregation renderers
type AggContext struct {
	// Ref is the column reference in the outer query, e.g. tx.total
	Ref        string
	Column     *Column
	Dialect    dialect.Provider
	CountToSum bool
}

// AggregationDef describes one aggregation kind for the aggregation
// rewriter, the pruning optimizer and the group-by column builder.
type AggregationDef struct {
	// Outer renders the expression of the column in the outer summary query
	Outer func(ac AggContext) (string, error)

	// GroupKey renders the column when the caller groups by it
	GroupKey func(ac AggContext) (string, error)

	// Grouped is true when a group-by column of this kind stays in GROUP BY
	Grouped bool

	// Required is true when the pruning optimizer must keep the column
	Required bool
}

func fn(name string) func(ac AggContext) (string, error) {
	return func(ac AggContext) (string, error) {
		return name + "(" + ac.Ref + ")", nil
	}
}

func literal(v string) func(ac AggContext) (string, error) {
	return func(ac AggContext) (string, error) {
		return v, nil
	}
}

func groupRef(ac AggContext) (string, error) {
	if ac.Column != nil && ac.Column.Type == TypeDatetime && ac.Dialect != nil {
		return ac.Dialect.DateFormatFunc(ac.Ref), nil
	}
	return ac.Ref, nil
}

func stringAgg(ac AggContext) (string, error) {
	return ac.Dialect.StringAggFunc(ac.Ref, groupConcatSep), nil
}

func customFormula(ac AggContext) (string, error) {
	if ac.Column == nil || ac.Column.AggregationFormula == "" {
		name := ""
		if ac.Column != nil {
			name = ac.Column.Name
		}
		return "", fmt.Errorf("%w: column %s", ErrMissingAggregationFormula, name)
	}
	return ac.Column.AggregationFormula, nil
}

var aggregations = map[AggregationKind]AggregationDef{
	AggUndefined: {
		Outer:    literal("null"),
		GroupKey: groupRef,
		Grouped:  true,
	},
	AggNone: {
		Outer:    literal("null"),
		GroupKey: groupRef,
		Grouped:  true,
	},
	AggSum: {
		Outer:    fn("sum"),
		GroupKey: fn("SUM"),
		Required: true,
	},
	AggAvg: {
		Outer:    fn("avg"),
		GroupKey: fn("AVG"),
		Required: true,
	},
	AggCount: {
		Outer: func(ac AggContext) (string, error) {
			if ac.CountToSum {
				return "sum(" + ac.Ref + ")", nil
			}
			return "count(*)", nil
		},
		GroupKey: literal("COUNT(*)"),
		Required: true,
	},
	AggMax: {
		Outer:    fn("max"),
		GroupKey: fn("MAX"),
		Required: true,
	},
	AggMin: {
		Outer:    fn("min"),
		GroupKey: fn("MIN"),
		Required: true,
	},
	AggGroupConcat: {
		Outer:    stringAgg,
		GroupKey: stringAgg,
		Required: true,
	},
	AggCustom: {
		Outer:    customFormula,
		GroupKey: customFormula,
		Required: true,
	},
	// primary keys aggregate as MAX
	AggPK: {
		Outer:    fn("max"),
		GroupKey: fn("MAX"),
		Required: true,
	},
}

// Aggregation returns the definition of kind
func Aggregation(kind AggregationKind) (AggregationDef, error) {
	if def, ok := aggregations[kind]; ok {
		return def, nil
	}
	return AggregationDef{}, fmt.Errorf("unsupported aggregation %q", string(kind))
}

// ParseAggregationKind accepts the kind names in any case. Empty is AggUndefined.
func ParseAggregationKind(s string) (AggregationKind, error) {
	k := AggregationKind(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := aggregations[k]; !ok {
		return AggUndefined, fmt.Errorf("unsupported aggregation %q", s)
	}
	return k, nil
}
