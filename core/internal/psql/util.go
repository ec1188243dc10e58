package psql

import (
	"strings"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

func (c *compilerContext) table(qo *sdata.QueryObject) {
	body := qo.Body
	if body == "" {
		body = qo.Name
	}
	c.w.WriteString(body)
	if a := c.aliases.AliasOf(qo); a != "" && a != body {
		c.w.WriteString(` `)
		c.w.WriteString(a)
	}
}

func (c *compilerContext) colWithTable(table, col string) {
	if table != "" {
		c.w.WriteString(table)
		c.w.WriteString(`.`)
	}
	c.w.WriteString(col)
}

func (c *compilerContext) selectAlias(col *sdata.Column) string {
	return selectAlias(c.Compiler, col)
}

// selectAlias is the alias a column is selected under. Count columns and
// aliases that are not plain identifiers are quoted.
func selectAlias(co *Compiler, col *sdata.Column) string {
	a := col.AliasName()
	if col.Count || !isPlainIdent(a) {
		return co.dialect.Quote(a)
	}
	return a
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '_', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9' && i != 0:
		default:
			return false
		}
	}
	return true
}

// orderDir normalizes an order direction, empty stays empty
func orderDir(dir string) string {
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "DESC":
		return "DESC"
	case "ASC":
		return "ASC"
	}
	return ""
}
