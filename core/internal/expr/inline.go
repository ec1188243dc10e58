package expr

import (
	"regexp"
	"strings"
)

var (
	asRe       = regexp.MustCompile(`^(.+?)\s+[Aa][Ss]\s+(\w+)\s*$`)
	funcCallRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\s*\(`)
	operatorRe = regexp.MustCompile(`[+\-*/%]`)
	numberRe   = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	spaceRe    = regexp.MustCompile(`\s+`)
	simpleRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?(\$[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// InlineExpression is an expression written directly in a column list,
// for example "YEAR(orderDate) AS orderYear"
type InlineExpression struct {
	Expr  string
	Alias string
}

func (ie *InlineExpression) HasAlias() bool {
	return ie.Alias != ""
}

// ParseInline returns the inline expression of a column list entry or nil
// when the entry is a plain column reference such as "name", "a.b" or
// "region$caption". A renamed column, "name AS other", is returned with
// the column reference as its expression.
func ParseInline(entry string) *InlineExpression {
	s := strings.TrimSpace(entry)
	if s == "" {
		return nil
	}

	var alias string
	if m := asRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
		alias = m[2]

		if IsSimpleName(s) {
			return &InlineExpression{Expr: s, Alias: alias}
		}
	}

	if !IsExpression(s) {
		return nil
	}
	return &InlineExpression{Expr: s, Alias: alias}
}

// IsSimpleName matches column, qualified column and dimension attribute references
func IsSimpleName(s string) bool {
	return simpleRe.MatchString(s)
}

// IsExpression reports whether s needs to be compiled as an expression
func IsExpression(s string) bool {
	switch {
	case IsSimpleName(s):
		return false
	case funcCallRe.MatchString(s):
		return true
	case operatorRe.MatchString(s):
		return !numberRe.MatchString(spaceRe.ReplaceAllString(s, ""))
	}
	return strings.Contains(s, "(") && strings.Contains(s, ")")
}
