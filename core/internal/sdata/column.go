package sdata

import "strings"

// Column describes a selectable column of the query model
type Column struct {
	Name        string
	Alias       string
	Caption     string
	Description string
	Type        ColumnType
	Aggregation AggregationKind

	// SQLName is the physical column. When Formula is set it replaces
	// SQLName and {alias} in it is substituted with the owner's alias.
	SQLName            string
	Formula            string
	AggregationFormula string

	// QueryObject owns the column, nil for calculated columns
	QueryObject *QueryObject

	Dimension *Dimension
	Property  bool
	Bit       bool

	// Count columns render as the literal 1 in detail queries
	Count bool

	// Derived columns are built by the aggregation rewriter. GroupByName is
	// non-empty when the column stays in GROUP BY.
	Derived     bool
	GroupByName string

	// Aggregated is set when Formula already applies an aggregate function
	Aggregated bool

	Calculated bool
	Refs       []*Column
}

// AliasName returns the output alias of the column
func (c *Column) AliasName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

// Declare returns the SQL expression of the column for the given owner alias
func (c *Column) Declare(alias string) string {
	if c.Formula != "" {
		if alias != "" && strings.Contains(c.Formula, "{alias}") {
			return strings.ReplaceAll(c.Formula, "{alias}", alias)
		}
		return c.Formula
	}
	if alias == "" {
		return c.SQLName
	}
	return alias + "." + c.SQLName
}

func (c *Column) IsDimension() bool {
	return c.Dimension != nil
}

// HasAggregation is true when a column aggregates in an outer query
func (c *Column) HasAggregation() bool {
	return c.Aggregation != AggUndefined && c.Aggregation != AggNone
}

func (c *Column) String() string {
	return c.Name
}
