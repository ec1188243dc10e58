package expr

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// lexer converts expression text into tokens
type lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readRune()
	return l
}

func (l *lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.position
	tok := Token{Type: tokIllegal, Literal: string(l.ch), Pos: pos}

	switch l.ch {
	case 0:
		return Token{Type: tokEOF, Pos: pos}
	case ',':
		tok.Type = tokComma
	case '(':
		tok.Type = tokLParen
	case ')':
		tok.Type = tokRParen
	case '*':
		tok.Type = tokStar
	case '+':
		tok.Type = tokPlus
	case '-':
		tok.Type = tokMinus
	case '/':
		tok.Type = tokSlash
	case '%':
		tok.Type = tokPercent
	case '=':
		// = == ===
		tok = l.readRun(tokEq, '=', 3)
		return tok
	case '!':
		if l.peekRune() == '=' {
			l.readRune()
			tok = l.readRun(tokNeq, '=', 2)
			tok.Pos = pos
			tok.Literal = "!" + tok.Literal
			return tok
		}
		tok.Type = tokNot
	case '<':
		switch l.peekRune() {
		case '=':
			l.readRune()
			tok = Token{Type: tokLte, Literal: "<=", Pos: pos}
		case '>':
			l.readRune()
			tok = Token{Type: tokNeq, Literal: "<>", Pos: pos}
		default:
			tok.Type = tokLt
		}
	case '>':
		if l.peekRune() == '=' {
			l.readRune()
			tok = Token{Type: tokGte, Literal: ">=", Pos: pos}
		} else {
			tok.Type = tokGt
		}
	case '&':
		if l.peekRune() == '&' {
			l.readRune()
			tok = Token{Type: tokAnd, Literal: "&&", Pos: pos}
		}
	case '|':
		if l.peekRune() == '|' {
			l.readRune()
			tok = Token{Type: tokOr, Literal: "||", Pos: pos}
		}
	case '\'', '"':
		lit, ok := l.readString(l.ch)
		if !ok {
			return Token{Type: tokIllegal, Literal: "unterminated string", Pos: pos}
		}
		return Token{Type: tokString, Literal: lit, Pos: pos}
	default:
		if isIdentStart(l.ch) {
			ident := l.readIdentifier()
			if t, ok := keywords[strings.ToUpper(ident)]; ok {
				return Token{Type: t, Literal: ident, Pos: pos}
			}
			return Token{Type: tokIdent, Literal: ident, Pos: pos}
		}
		if unicode.IsDigit(l.ch) || (l.ch == '.' && unicode.IsDigit(l.peekRune())) {
			return Token{Type: tokNumber, Literal: l.readNumber(), Pos: pos}
		}
	}

	l.readRune()
	return tok
}

// readRun consumes up to max repetitions of ch
func (l *lexer) readRun(t TokenType, ch rune, max int) Token {
	start := l.position
	for n := 0; n < max && l.ch == ch; n++ {
		l.readRune()
	}
	return Token{Type: t, Literal: l.input[start:l.position], Pos: start}
}

func (l *lexer) readRune() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.position = l.readPosition
	l.readPosition += size
	l.ch = r
}

func (l *lexer) peekRune() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *lexer) skipWhitespace() {
	for unicode.IsSpace(l.ch) {
		l.readRune()
	}
}

func (l *lexer) readIdentifier() string {
	start := l.position
	for isIdentPart(l.ch) {
		l.readRune()
	}
	return l.input[start:l.position]
}

func (l *lexer) readNumber() string {
	start := l.position
	hasDot := false
	for unicode.IsDigit(l.ch) || (!hasDot && l.ch == '.') {
		if l.ch == '.' {
			hasDot = true
		}
		l.readRune()
	}
	return l.input[start:l.position]
}

// readString reads a quoted literal. A doubled quote or a backslash escapes
// the next character.
func (l *lexer) readString(quote rune) (string, bool) {
	var sb strings.Builder
	for {
		l.readRune()
		switch l.ch {
		case 0:
			return sb.String(), false
		case '\\':
			l.readRune()
			if l.ch == 0 {
				return sb.String(), false
			}
			sb.WriteRune(l.ch)
		case quote:
			if l.peekRune() == quote {
				sb.WriteRune(quote)
				l.readRune()
				continue
			}
			l.readRune()
			return sb.String(), true
		default:
			sb.WriteRune(l.ch)
		}
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

// identifiers may be qualified (a.b) or reference a dimension attribute (a$caption)
func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch) || ch == '.' || ch == '$'
}
