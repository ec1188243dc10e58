package expr

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

// FuncCategory groups the functions of the allow-list
type FuncCategory int

const (
	FuncMath FuncCategory = iota + 1
	FuncDate
	FuncString
	FuncOther
	FuncAggregate
)

func (c FuncCategory) String() string {
	switch c {
	case FuncMath:
		return "math"
	case FuncDate:
		return "date"
	case FuncString:
		return "string"
	case FuncOther:
		return "other"
	case FuncAggregate:
		return "aggregate"
	}
	return "unknown"
}

var allowedFunctions = map[string]FuncCategory{}

func allow(c FuncCategory, names ...string) {
	for _, n := range names {
		allowedFunctions[n] = c
	}
}

func init() {
	allow(FuncMath, "ABS", "ROUND", "CEIL", "CEILING", "FLOOR", "MOD", "POWER", "POW",
		"SQRT", "SIGN", "TRUNCATE", "TRUNC")

	allow(FuncDate, "YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND", "DATE", "TIME",
		"NOW", "CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP", "DATE_ADD", "DATE_SUB",
		"DATEDIFF", "TIMESTAMPDIFF", "DATE_FORMAT", "STR_TO_DATE", "EXTRACT")

	allow(FuncString, "CONCAT", "CONCAT_WS", "SUBSTRING", "SUBSTR", "LEFT", "RIGHT",
		"UPPER", "LOWER", "TRIM", "LTRIM", "RTRIM", "LENGTH", "CHAR_LENGTH", "REPLACE",
		"INSTR", "LOCATE", "LPAD", "RPAD")

	allow(FuncOther, "COALESCE", "NULLIF", "IFNULL", "NVL", "ISNULL", "IF", "CASE",
		"CAST", "CONVERT")

	allow(FuncAggregate, "SUM", "AVG", "COUNT", "MAX", "MIN", "GROUP_CONCAT")
}

// NormalizeFunc returns the canonical (upper case) name of a function
func NormalizeFunc(name string) string {
	// a Caser is stateful and not shared between goroutines
	return cases.Upper(language.Und).String(name)
}

// LookupFunc returns the category of an allowed function
func LookupFunc(name string) (FuncCategory, bool) {
	c, ok := allowedFunctions[NormalizeFunc(name)]
	return c, ok
}

// IsAllowed reports whether name is on the allow-list
func IsAllowed(name string) bool {
	_, ok := LookupFunc(name)
	return ok
}

// IsAggregate reports whether name is an aggregate function
func IsAggregate(name string) bool {
	c, ok := LookupFunc(name)
	return ok && c == FuncAggregate
}

// AllowedFunctions returns the allow-list by category
func AllowedFunctions() map[FuncCategory][]string {
	out := make(map[FuncCategory][]string)
	for n, c := range allowedFunctions {
		out[c] = append(out[c], n)
	}
	return out
}

// funcType infers the result type of a call to the canonical function name
func funcType(name string, args []*Fragment) sdata.ColumnType {
	arg := func(i int) sdata.ColumnType {
		if i < len(args) {
			return args[i].Type
		}
		return sdata.TypeUnknown
	}

	switch name {
	case "YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND", "EXTRACT",
		"DATEDIFF", "TIMESTAMPDIFF":
		return sdata.TypeInteger
	case "DATE", "NOW", "CURRENT_DATE", "CURRENT_TIMESTAMP", "DATE_ADD", "DATE_SUB", "STR_TO_DATE":
		return sdata.TypeDatetime
	case "LENGTH", "CHAR_LENGTH", "INSTR", "LOCATE":
		return sdata.TypeInteger
	case "COALESCE", "IFNULL", "NVL", "ISNULL", "NULLIF":
		return arg(0)
	case "IF":
		return arg(1)
	case "COUNT":
		return sdata.TypeInteger
	case "SUM", "AVG":
		return sdata.TypeNumber
	case "MIN", "MAX":
		return arg(0)
	case "GROUP_CONCAT", "DATE_FORMAT", "TIME", "CURRENT_TIME":
		return sdata.TypeText
	}

	switch allowedFunctions[name] {
	case FuncMath:
		return sdata.TypeNumber
	case FuncString:
		return sdata.TypeText
	}
	return sdata.TypeUnknown
}
