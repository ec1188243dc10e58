package expr

// AggregateInfo summarises the aggregate functions used by an expression
type AggregateInfo struct {
	Count int

	// Type is set when exactly one aggregate function is used
	Type string
}

func (a AggregateInfo) HasAggregate() bool {
	return a.Count != 0
}

// AnalyzeAggregates counts the aggregate function calls of n
func AnalyzeAggregates(n Node) AggregateInfo {
	var info AggregateInfo
	var first string

	Walk(n, func(x Node) bool {
		if c, ok := x.(*Call); ok && IsAggregate(c.Name) {
			info.Count++
			if first == "" {
				first = NormalizeFunc(c.Name)
			}
		}
		return true
	})

	if info.Count == 1 {
		info.Type = first
	}
	return info
}

// InferAggregation guesses how an expression without a single aggregate
// should aggregate when it appears next to aggregated columns. Arithmetic
// and math functions sum, anything else is left unaggregated.
func InferAggregation(n Node) string {
	switch v := n.(type) {
	case *Binary:
		switch v.Op {
		case "+", "-", "*", "/":
			return "SUM"
		}
	case *Call:
		if c, ok := LookupFunc(v.Name); ok && c == FuncMath {
			return "SUM"
		}
	}
	return ""
}
