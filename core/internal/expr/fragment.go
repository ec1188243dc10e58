package expr

import (
	"strconv"
	"strings"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

// Fragment is a lowered piece of SQL with the columns it references
type Fragment struct {
	SQL  string
	Type sdata.ColumnType

	// Refs are the referenced columns in first-use order without duplicates
	Refs []*sdata.Column

	// Aggregates lists the aggregate functions used, outermost first
	Aggregates []string
}

func (f *Fragment) HasAggregate() bool {
	return len(f.Aggregates) != 0
}

// AggregationType is the aggregate function name when the fragment uses
// exactly one aggregate
func (f *Fragment) AggregationType() string {
	if len(f.Aggregates) == 1 {
		return f.Aggregates[0]
	}
	return ""
}

func (f *Fragment) String() string {
	return f.SQL
}

// OfColumn references col owned by the given table alias. A calculated
// column contributes the columns it references itself.
func OfColumn(col *sdata.Column, alias string) *Fragment {
	f := &Fragment{SQL: col.Declare(alias), Type: col.Type}
	if col.Calculated {
		f.Refs = append(f.Refs, col.Refs...)
		if col.Aggregated {
			f.Aggregates = []string{string(col.Aggregation)}
		}
	} else {
		f.Refs = []*sdata.Column{col}
	}
	return f
}

func OfLiteral(sql string, typ sdata.ColumnType) *Fragment {
	return &Fragment{SQL: sql, Type: typ}
}

func BinaryOf(op string, l, r *Fragment, typ sdata.ColumnType) *Fragment {
	f := &Fragment{
		SQL:  "(" + l.SQL + " " + op + " " + r.SQL + ")",
		Type: typ,
	}
	f.merge(l, r)
	return f
}

func UnaryOf(op string, x *Fragment, typ sdata.ColumnType) *Fragment {
	sep := ""
	if op == "NOT" {
		sep = " "
	}
	f := &Fragment{SQL: "(" + op + sep + x.SQL + ")", Type: typ}
	f.merge(x)
	return f
}

// Function renders name(args...). Aggregate functions add themselves to
// Aggregates ahead of the aggregates of the arguments.
func Function(name string, typ sdata.ColumnType, args ...*Fragment) *Fragment {
	sql := make([]string, len(args))
	for i, a := range args {
		sql[i] = a.SQL
	}

	f := &Fragment{SQL: name + "(" + strings.Join(sql, ", ") + ")", Type: typ}
	if IsAggregate(name) {
		f.Aggregates = []string{NormalizeFunc(name)}
	}
	f.merge(args...)
	return f
}

// Template substitutes {0}, {1}... in tmpl with the SQL of args
func Template(tmpl string, typ sdata.ColumnType, args ...*Fragment) *Fragment {
	pairs := make([]string, 0, len(args)*2)
	for i, a := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", a.SQL)
	}

	f := &Fragment{SQL: strings.NewReplacer(pairs...).Replace(tmpl), Type: typ}
	f.merge(args...)
	return f
}

func (f *Fragment) merge(frags ...*Fragment) {
	for _, x := range frags {
		for _, c := range x.Refs {
			f.addRef(c)
		}
		f.Aggregates = append(f.Aggregates, x.Aggregates...)
	}
}

func (f *Fragment) addRef(c *sdata.Column) {
	for _, r := range f.Refs {
		if r == c {
			return
		}
	}
	f.Refs = append(f.Refs, c)
}
