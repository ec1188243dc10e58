package expr

import (
	"strings"
	"unicode/utf8"
)

// maxDepth limits recursion on deeply nested expressions
const maxDepth = 100

const (
	precLowest = iota
	precOr
	precAnd
	precCompare
	precAdd
	precMul
	precUnary
)

var precedences = map[TokenType]int{
	tokOr:      precOr,
	tokAnd:     precAnd,
	tokEq:      precCompare,
	tokNeq:     precCompare,
	tokLt:      precCompare,
	tokLte:     precCompare,
	tokGt:      precCompare,
	tokGte:     precCompare,
	tokPlus:    precAdd,
	tokMinus:   precAdd,
	tokStar:    precMul,
	tokSlash:   precMul,
	tokPercent: precMul,
}

type parser struct {
	l     *lexer
	cur   Token
	peek  Token
	depth int
}

// Parse parses a calculated field expression
func Parse(src string) (Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}

	p := &parser{l: newLexer(src)}
	p.next()
	p.next()

	n, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if p.peek.Type != tokEOF {
		return nil, p.errorf(p.peek, "unexpected %s", describe(p.peek))
	}
	return n, nil
}

func (p *parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *parser) errorf(t Token, msg string, args ...interface{}) error {
	return newSyntaxError(t.Pos, msg, args...)
}

func (p *parser) expectPeek(t TokenType) error {
	if p.peek.Type != t {
		return p.errorf(p.peek, "expected %s, got %s", t, describe(p.peek))
	}
	p.next()
	return nil
}

func (p *parser) parseExpr(prec int) (Node, error) {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > maxDepth {
		return nil, p.errorf(p.cur, "expression too deeply nested")
	}

	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		pp, ok := precedences[p.peek.Type]
		if !ok || pp <= prec {
			return left, nil
		}
		p.next()
		op := p.cur
		p.next()

		right, err := p.parseExpr(pp)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op.Literal, Left: left, Right: right, At: op.Pos}
	}
}

func (p *parser) parsePrefix() (Node, error) {
	t := p.cur

	switch t.Type {
	case tokNumber:
		return &Literal{Kind: LitNumber, Value: t.Literal, At: t.Pos}, nil

	case tokString:
		return &Literal{Kind: LitString, Value: t.Literal, At: t.Pos}, nil

	case tokIdent:
		switch strings.ToLower(t.Literal) {
		case "true", "false":
			return &Literal{Kind: LitBool, Value: strings.ToLower(t.Literal), At: t.Pos}, nil
		case "null":
			return &Literal{Kind: LitNull, Value: "NULL", At: t.Pos}, nil
		}
		if p.peek.Type == tokLParen {
			return p.parseCall()
		}
		return &Ident{Name: t.Literal, At: t.Pos}, nil

	case tokMinus, tokPlus, tokNot:
		p.next()
		x, err := p.parseExpr(precUnary)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: t.Literal, X: x, At: t.Pos}, nil

	case tokLParen:
		p.next()
		x, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if err := p.expectPeek(tokRParen); err != nil {
			return nil, err
		}
		return x, nil

	case tokIllegal:
		if utf8.RuneCountInString(t.Literal) > 1 {
			return nil, p.errorf(t, "%s", t.Literal)
		}
		return nil, p.errorf(t, "illegal character %q", t.Literal)
	}

	return nil, p.errorf(t, "unexpected %s", describe(t))
}

func (p *parser) parseCall() (Node, error) {
	call := &Call{Name: p.cur.Literal, At: p.cur.Pos}
	p.next() // (

	if p.peek.Type == tokRParen {
		p.next()
		return call, nil
	}

	for {
		p.next()

		var arg Node
		if p.cur.Type == tokStar {
			arg = &Literal{Kind: LitStar, Value: "*", At: p.cur.Pos}
		} else {
			var err error
			if arg, err = p.parseExpr(precLowest); err != nil {
				return nil, err
			}
		}
		call.Args = append(call.Args, arg)

		switch p.peek.Type {
		case tokComma:
			p.next()
		case tokRParen:
			p.next()
			return call, nil
		default:
			return nil, p.errorf(p.peek, "expected , or ) in call to %s, got %s", call.Name, describe(p.peek))
		}
	}
}

func describe(t Token) string {
	switch t.Type {
	case tokEOF:
		return "end of expression"
	case tokIdent, tokNumber:
		return t.Type.String() + " " + t.Literal
	case tokString:
		return "string literal"
	}
	return "'" + t.Literal + "'"
}
