package core

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/qcode"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

// hierarchySuffix on a condition field targets the whole subtree of a
// parent/child dimension member, e.g. teamId$hierarchy
const hierarchySuffix = "$hierarchy"

const opBitIn = "bit_in"

var comparisonOps = map[string]string{
	"=":  " = ",
	"==": " = ",
	"!=": " <> ",
	"<>": " <> ",
	">":  " > ",
	">=": " >= ",
	"<":  " < ",
	"<=": " <= ",
}

// buildWhere adds the request conditions to the query. Conditions on
// aggregating calculated fields go to HAVING.
func (s *cstate) buildWhere() error {
	return s.addConds(s.q.Where, s.having, s.req.Slice, 0)
}

func (s *cstate) addConds(where, having *qcode.GroupCond, conds []SliceRequest, level int) error {
	var or, agg, plain bool

	for _, c := range conds {
		link := qcode.ParseLink(c.Link)

		if len(c.Children) != 0 {
			g := &qcode.GroupCond{}
			if level > 0 {
				g.Link = link
			}
			hg := &qcode.GroupCond{Link: g.Link}
			if err := s.addConds(g, hg, c.Children, level+1); err != nil {
				return err
			}
			if !g.Empty() {
				where.Add(g)
			}
			if !hg.Empty() {
				having.Add(hg)
			}
			continue
		}

		cond, col, err := s.buildCond(c, link)
		if err != nil {
			return err
		}
		if cond == nil {
			continue
		}

		if link == qcode.LinkOr {
			or = true
		}
		if col.Aggregated {
			agg = true
			having.Add(cond)
		} else {
			plain = true
			where.Add(cond)
		}
	}

	if or && agg && plain {
		return &RequestError{Msg: "aggregate and row conditions cannot be combined with or"}
	}
	return nil
}

// buildCond returns the condition for one slice entry, nil when the value
// is empty. Owners are joined only for conditions that are kept.
func (s *cstate) buildCond(c SliceRequest, link qcode.Link) (qcode.Cond, *sdata.Column, error) {
	field := strings.TrimSpace(c.Field)
	hier := strings.HasSuffix(field, hierarchySuffix)
	if hier {
		field = strings.TrimSuffix(field, hierarchySuffix)
	}

	col, err := s.calc.Resolve(field)
	if err != nil {
		return nil, nil, wrapf(err, "condition")
	}

	op := strings.ToLower(strings.Join(strings.Fields(c.Op), " "))
	if op == "" {
		op = "="
	}
	if col.Bit && op != "is null" && op != "is not null" {
		op = opBitIn
	}

	var cl *sdata.ClosureTable
	decl := s.declare(col)
	if hier {
		if cl = closureOf(col); cl == nil {
			return nil, nil, &RequestError{Field: c.Field, Msg: "not a hierarchical dimension"}
		}
		decl = cl.ParentKey.Declare(s.e.cat.AliasOf(cl.QueryObject))
	}

	cond, err := condition(decl, op, c.Value, link)
	if err != nil {
		return nil, nil, &RequestError{Field: c.Field, Msg: err.Error()}
	}
	if cond == nil {
		return nil, col, nil
	}

	if cl != nil {
		s.q.JoinWithKey(cl.QueryObject, cl.ForeignKey)
	} else if err := s.q.JoinColumn(col); err != nil {
		return nil, nil, wrapf(err, "condition on %s", field)
	}
	return cond, col, nil
}

func closureOf(col *sdata.Column) *sdata.ClosureTable {
	if col.Dimension == nil {
		return nil
	}
	return col.Dimension.Closure
}

func condition(decl, op string, v interface{}, link qcode.Link) (qcode.Cond, error) {
	switch op {
	case "is null":
		return &qcode.FragmentCond{Link: link, SQL: decl + " IS NULL"}, nil
	case "is not null":
		return &qcode.FragmentCond{Link: link, SQL: decl + " IS NOT NULL"}, nil
	}

	if isEmpty(v) {
		return nil, nil
	}

	if sop, ok := comparisonOps[op]; ok {
		return &qcode.ValueCond{Link: link, SQL: decl + sop, Value: v}, nil
	}

	switch op {
	case "like":
		return likeCond(decl, "%", v, "%", link), nil
	case "left_like":
		return likeCond(decl, "%", v, "", link), nil
	case "right_like":
		return likeCond(decl, "", v, "%", link), nil

	case "in":
		return &qcode.ListValueCond{Link: link, SQL: decl + " IN (", Suffix: ")", Values: toList(v)}, nil
	case "not in", "nin":
		return &qcode.ListValueCond{Link: link, SQL: decl + " NOT IN (", Suffix: ")", Values: toList(v)}, nil

	case opBitIn:
		mask, err := bitMask(v)
		if err != nil {
			return nil, err
		}
		return &qcode.ValueCond{Link: link, SQL: "(" + decl + " & ", Suffix: ") <> 0", Value: mask}, nil

	case "[]", "[)", "(]", "()":
		return rangeCond(decl, op, v, link)
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}

func likeCond(decl, prefix string, v interface{}, suffix string, link qcode.Link) qcode.Cond {
	return &qcode.ValueCond{
		Link:  link,
		SQL:   decl + " LIKE ",
		Value: prefix + fmt.Sprint(v) + suffix,
	}
}

// rangeCond renders a two element range. An empty bound is left open and
// both bounds empty add nothing.
func rangeCond(decl, op string, v interface{}, link qcode.Link) (qcode.Cond, error) {
	list, ok := asList(v)
	if !ok || len(list) != 2 {
		return nil, fmt.Errorf("range %s requires a list of two values", op)
	}

	g := &qcode.GroupCond{Link: link}
	if !isEmpty(list[0]) {
		sop := " >= "
		if op[0] == '(' {
			sop = " > "
		}
		g.Add(&qcode.ValueCond{SQL: decl + sop, Value: list[0]})
	}
	if !isEmpty(list[1]) {
		sop := " <= "
		if op[1] == ')' {
			sop = " < "
		}
		g.Add(&qcode.ValueCond{SQL: decl + sop, Value: list[1]})
	}

	if g.Empty() {
		return nil, nil
	}
	return g, nil
}

// bitMask ORs an integer or a list of integers into one mask
func bitMask(v interface{}) (int64, error) {
	var mask int64
	for _, x := range toList(v) {
		n, err := toInt(x)
		if err != nil {
			return 0, err
		}
		mask |= n
	}
	return mask, nil
}

func toInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	}
	return 0, fmt.Errorf("bit value %v is not an integer", v)
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	if list, ok := asList(v); ok {
		return len(list) == 0
	}
	return false
}

func toList(v interface{}) []interface{} {
	if list, ok := asList(v); ok {
		return list
	}
	return []interface{}{v}
}

// asList accepts any slice or array, as produced by the JSON and YAML decoders
// or by callers building requests in Go
func asList(v interface{}) ([]interface{}, bool) {
	if list, ok := v.([]interface{}); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// []byte is a scalar
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	list := make([]interface{}, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}
