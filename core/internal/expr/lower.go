package expr

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

// Resolver resolves identifiers of an expression to columns
type Resolver interface {
	// Resolve returns the catalog or calculated column called name
	Resolve(name string) (*sdata.Column, error)

	// AliasOf returns the table alias the column owner is rendered with
	AliasOf(q *sdata.QueryObject) string
}

var sqlOperators = map[string]string{
	"=":   "=",
	"==":  "=",
	"===": "=",
	"!=":  "<>",
	"!==": "<>",
	"<>":  "<>",
	"<":   "<",
	"<=":  "<=",
	">":   ">",
	">=":  ">=",
	"+":   "+",
	"-":   "-",
	"*":   "*",
	"/":   "/",
	"%":   "%",
	"&&":  "AND",
	"AND": "AND",
	"||":  "OR",
	"OR":  "OR",
	"!":   "NOT",
	"NOT": "NOT",
}

// SQLOperator maps an expression operator to its SQL spelling
func SQLOperator(op string) (string, bool) {
	s, ok := sqlOperators[strings.ToUpper(op)]
	return s, ok
}

var (
	castTypeRe  = regexp.MustCompile(`^[A-Za-z][A-Za-z ]*(\(\s*\d+\s*(,\s*\d+\s*)?\))?$`)
	extractPart = map[string]bool{
		"YEAR": true, "QUARTER": true, "MONTH": true, "WEEK": true, "DAY": true,
		"HOUR": true, "MINUTE": true, "SECOND": true,
	}
)

// Compile parses src and lowers it to SQL
func Compile(src string, r Resolver) (*Fragment, error) {
	n, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Lower(src, n, r)
}

// Lower turns a parsed expression into SQL. Every function call is checked
// against the allow-list here, whatever produced the tree.
func Lower(src string, n Node, r Resolver) (*Fragment, error) {
	// a disallowed call is reported even when other parts of the tree
	// would fail first
	var denied error
	Walk(n, func(x Node) bool {
		if c, ok := x.(*Call); ok && denied == nil && !IsAllowed(c.Name) {
			denied = &SecurityError{Function: NormalizeFunc(c.Name)}
		}
		return denied == nil
	})
	if denied != nil {
		return nil, denied
	}

	lw := lowerer{src: src, r: r}
	return lw.lower(n)
}

type lowerer struct {
	src string
	r   Resolver
}

func (lw *lowerer) errorf(err error, msg string) error {
	return &CompileError{Expr: lw.src, Msg: msg, Err: err}
}

func (lw *lowerer) lower(n Node) (*Fragment, error) {
	switch v := n.(type) {
	case *Literal:
		return lw.literal(v)
	case *Ident:
		return lw.ident(v)
	case *Unary:
		return lw.unary(v)
	case *Binary:
		return lw.binary(v)
	case *Call:
		return lw.call(v)
	case nil:
		return nil, lw.errorf(nil, "empty expression")
	}
	return nil, lw.errorf(nil, "unsupported expression node "+n.String())
}

func (lw *lowerer) literal(v *Literal) (*Fragment, error) {
	switch v.Kind {
	case LitString:
		return OfLiteral("'"+EscapeString(v.Value)+"'", sdata.TypeText), nil
	case LitNumber:
		if strings.Contains(v.Value, ".") {
			return OfLiteral(v.Value, sdata.TypeNumber), nil
		}
		return OfLiteral(v.Value, sdata.TypeInteger), nil
	case LitBool:
		return OfLiteral(strings.ToUpper(v.Value), sdata.TypeBool), nil
	case LitNull:
		return OfLiteral("NULL", sdata.TypeUnknown), nil
	}
	return nil, lw.errorf(nil, "* is only allowed in COUNT(*)")
}

func (lw *lowerer) ident(v *Ident) (*Fragment, error) {
	col, err := lw.r.Resolve(v.Name)
	if err != nil {
		return nil, lw.errorf(err, "unknown identifier "+v.Name)
	}
	return OfColumn(col, lw.r.AliasOf(col.QueryObject)), nil
}

func (lw *lowerer) unary(v *Unary) (*Fragment, error) {
	op, ok := SQLOperator(v.Op)
	if !ok {
		return nil, lw.errorf(nil, "unsupported operator "+v.Op)
	}
	x, err := lw.lower(v.X)
	if err != nil {
		return nil, err
	}

	typ := x.Type
	if op == "NOT" {
		typ = sdata.TypeBool
	}
	return UnaryOf(op, x, typ), nil
}

func (lw *lowerer) binary(v *Binary) (*Fragment, error) {
	op, ok := SQLOperator(v.Op)
	if !ok || op == "NOT" {
		return nil, lw.errorf(nil, "unsupported operator "+v.Op)
	}

	l, err := lw.lower(v.Left)
	if err != nil {
		return nil, err
	}
	r, err := lw.lower(v.Right)
	if err != nil {
		return nil, err
	}
	return BinaryOf(op, l, r, binaryType(op, l.Type, r.Type)), nil
}

func binaryType(op string, l, r sdata.ColumnType) sdata.ColumnType {
	switch op {
	case "+", "-", "*", "/", "%":
	default:
		return sdata.TypeBool
	}

	if l == sdata.TypeInteger && r == sdata.TypeInteger && op != "/" {
		return sdata.TypeInteger
	}
	return sdata.TypeNumber
}

func (lw *lowerer) call(v *Call) (*Fragment, error) {
	name := NormalizeFunc(v.Name)
	if !IsAllowed(name) {
		return nil, &SecurityError{Function: name}
	}

	switch name {
	case "CAST":
		return lw.cast(v)
	case "EXTRACT":
		return lw.extract(v)
	case "CASE":
		return lw.caseWhen(v)
	}

	args := make([]*Fragment, 0, len(v.Args))
	for _, a := range v.Args {
		if l, ok := a.(*Literal); ok && l.Kind == LitStar {
			if name != "COUNT" || len(v.Args) != 1 {
				return nil, lw.errorf(nil, "* is only allowed in COUNT(*)")
			}
			args = append(args, OfLiteral("*", sdata.TypeUnknown))
			continue
		}
		f, err := lw.lower(a)
		if err != nil {
			return nil, err
		}
		args = append(args, f)
	}
	return Function(name, funcType(name, args), args...), nil
}

// CAST(x, 'DECIMAL(10,2)') renders CAST(x AS DECIMAL(10,2))
func (lw *lowerer) cast(v *Call) (*Fragment, error) {
	if len(v.Args) != 2 {
		return nil, lw.errorf(nil, "CAST takes an expression and a type name")
	}
	t, ok := v.Args[1].(*Literal)
	if !ok || t.Kind != LitString || !castTypeRe.MatchString(t.Value) {
		return nil, lw.errorf(nil, "CAST type must be a type name literal")
	}

	x, err := lw.lower(v.Args[0])
	if err != nil {
		return nil, err
	}
	typ := strings.ToUpper(strings.TrimSpace(t.Value))
	return Template("CAST({0} AS "+typ+")", sdata.ColumnTypeOf(typ), x), nil
}

// EXTRACT(YEAR, x) renders EXTRACT(YEAR FROM x)
func (lw *lowerer) extract(v *Call) (*Fragment, error) {
	if len(v.Args) != 2 {
		return nil, lw.errorf(nil, "EXTRACT takes a date part and an expression")
	}

	var part string
	switch p := v.Args[0].(type) {
	case *Ident:
		part = strings.ToUpper(p.Name)
	case *Literal:
		part = strings.ToUpper(p.Value)
	}
	if !extractPart[part] {
		return nil, lw.errorf(nil, "unsupported date part in EXTRACT")
	}

	x, err := lw.lower(v.Args[1])
	if err != nil {
		return nil, err
	}
	return Template("EXTRACT("+part+" FROM {0})", sdata.TypeInteger, x), nil
}

// CASE(c1, v1, c2, v2, ..., [else]) renders CASE WHEN c1 THEN v1 ... END
func (lw *lowerer) caseWhen(v *Call) (*Fragment, error) {
	if len(v.Args) < 2 {
		return nil, lw.errorf(nil, "CASE takes condition and value pairs")
	}

	args := make([]*Fragment, 0, len(v.Args))
	for _, a := range v.Args {
		f, err := lw.lower(a)
		if err != nil {
			return nil, err
		}
		args = append(args, f)
	}

	var sb strings.Builder
	sb.WriteString("CASE")
	i := 0
	for ; i+1 < len(args); i += 2 {
		sb.WriteString(" WHEN {" + strconv.Itoa(i) + "} THEN {" + strconv.Itoa(i+1) + "}")
	}
	if i < len(args) {
		sb.WriteString(" ELSE {" + strconv.Itoa(i) + "}")
	}
	sb.WriteString(" END")

	return Template(sb.String(), args[1].Type, args...), nil
}

// EscapeString escapes a string literal body for embedding in single quotes
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `''`)
}
