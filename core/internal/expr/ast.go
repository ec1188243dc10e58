package expr

import "strings"

// Node is an expression tree node. The set of node types is closed:
// Literal, Ident, Unary, Binary and Call.
type Node interface {
	Pos() int
	String() string
	node()
}

type LiteralKind int

const (
	LitNumber LiteralKind = iota
	LitString
	LitBool
	LitNull
	// LitStar is the * argument of COUNT(*)
	LitStar
)

type Literal struct {
	Kind  LiteralKind
	Value string
	At    int
}

// Ident is a column or calculated field reference
type Ident struct {
	Name string
	At   int
}

type Unary struct {
	Op string
	X  Node
	At int
}

type Binary struct {
	Op    string
	Left  Node
	Right Node
	At    int
}

// Call is a function call. Name keeps the case it was written in.
type Call struct {
	Name string
	Args []Node
	At   int
}

func (n *Literal) node() {}
func (n *Ident) node()   {}
func (n *Unary) node()   {}
func (n *Binary) node()  {}
func (n *Call) node()    {}

func (n *Literal) Pos() int { return n.At }
func (n *Ident) Pos() int   { return n.At }
func (n *Unary) Pos() int   { return n.At }
func (n *Binary) Pos() int  { return n.At }
func (n *Call) Pos() int    { return n.At }

func (n *Literal) String() string {
	switch n.Kind {
	case LitString:
		return "'" + strings.ReplaceAll(n.Value, "'", "''") + "'"
	case LitStar:
		return "*"
	}
	return n.Value
}

func (n *Ident) String() string {
	return n.Name
}

func (n *Unary) String() string {
	return n.Op + n.X.String()
}

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")"
}

// Walk calls fn for n and its descendants in depth-first order until fn
// returns false
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Unary:
		Walk(v.X, fn)
	case *Binary:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case *Call:
		for _, a := range v.Args {
			Walk(a, fn)
		}
	}
}
