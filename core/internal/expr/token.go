package expr

// TokenType identifies the lexical class of a token
type TokenType int

const (
	tokIllegal TokenType = iota
	tokEOF

	tokIdent
	tokNumber
	tokString

	tokComma
	tokLParen
	tokRParen
	tokStar
	tokPlus
	tokMinus
	tokSlash
	tokPercent

	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte

	tokAnd
	tokOr
	tokNot
)

var tokenNames = map[TokenType]string{
	tokIllegal: "ILLEGAL",
	tokEOF:     "end of expression",
	tokIdent:   "identifier",
	tokNumber:  "number",
	tokString:  "string",
	tokComma:   ",",
	tokLParen:  "(",
	tokRParen:  ")",
	tokStar:    "*",
	tokPlus:    "+",
	tokMinus:   "-",
	tokSlash:   "/",
	tokPercent: "%",
	tokEq:      "=",
	tokNeq:     "<>",
	tokLt:      "<",
	tokLte:     "<=",
	tokGt:      ">",
	tokGte:     ">=",
	tokAnd:     "&&",
	tokOr:      "||",
	tokNot:     "!",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Token is a lexeme with its byte offset in the source
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

var keywords = map[string]TokenType{
	"AND": tokAnd,
	"OR":  tokOr,
	"NOT": tokNot,
}
