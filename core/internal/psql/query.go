//nolint:errcheck
package psql

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/dialect"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/qcode"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

var ErrNoDialect = errors.New("psql: no dialect provider")

// Aliaser returns the SQL alias of a query object
type Aliaser interface {
	AliasOf(q *sdata.QueryObject) string
}

type Config struct {
	Dialect dialect.Provider

	// Aliases defaults to the Alias field of each query object
	Aliases Aliaser
}

// Compiler renders query ASTs into SQL. It holds no per query state and is
// safe to share.
type Compiler struct {
	dialect dialect.Provider
	aliases Aliaser
}

// Rendered is the output of Render. SQLWithoutOrder is SQL cut before the
// ORDER BY clause. Values are in bind variable order.
type Rendered struct {
	SQL             string
	SQLWithoutOrder string
	Values          []interface{}
}

type compilerContext struct {
	w       *bytes.Buffer
	values  []interface{}
	orderAt int
	err     error
	*Compiler
}

type objectAliases struct{}

func (objectAliases) AliasOf(q *sdata.QueryObject) string {
	if q == nil {
		return ""
	}
	return q.Alias
}

func NewCompiler(conf Config) (*Compiler, error) {
	if conf.Dialect == nil {
		return nil, ErrNoDialect
	}
	co := &Compiler{dialect: conf.Dialect, aliases: conf.Aliases}
	if co.aliases == nil {
		co.aliases = objectAliases{}
	}
	return co, nil
}

func (co *Compiler) Dialect() dialect.Provider {
	return co.dialect
}

func (co *Compiler) Render(q *qcode.Query) (Rendered, error) {
	if q == nil || q.From == nil {
		return Rendered{}, qcode.ErrMissingFrom
	}
	if len(q.Columns) == 0 {
		return Rendered{}, fmt.Errorf("query on %s selects no columns", q.From.Name)
	}

	var w bytes.Buffer
	c := &compilerContext{w: &w, orderAt: -1, Compiler: co}
	c.renderSelect(q)
	c.renderFrom(q)
	c.renderJoins(q)
	c.renderWhere(q)
	c.renderGroupBy(q)
	c.renderHaving(q)
	c.renderOrderBy(q)

	if c.err != nil {
		return Rendered{}, c.err
	}

	sql := w.String()
	r := Rendered{SQL: sql, SQLWithoutOrder: sql, Values: c.values}
	if c.orderAt != -1 {
		r.SQLWithoutOrder = sql[:c.orderAt]
	}
	return r, nil
}

func (c *compilerContext) renderSelect(q *qcode.Query) {
	c.w.WriteString(`SELECT `)
	if q.Distinct {
		c.w.WriteString(`DISTINCT `)
	}

	for i, col := range q.Columns {
		if i != 0 {
			c.w.WriteString(`, `)
		}
		if col.Count && !col.Derived {
			c.w.WriteString(`1`)
		} else {
			c.w.WriteString(c.declare(col))
		}
		c.w.WriteString(` `)
		c.w.WriteString(c.selectAlias(col))
	}
}

func (c *compilerContext) renderFrom(q *qcode.Query) {
	c.w.WriteString(` FROM `)
	c.table(q.From)
}

func (c *compilerContext) renderJoins(q *qcode.Query) {
	for _, j := range q.Joins {
		c.renderJoin(j)
	}
}

func (c *compilerContext) renderJoin(j *qcode.Join) {
	c.w.WriteString(` `)
	c.w.WriteString(j.Kind.String())
	c.w.WriteString(` `)
	c.table(j.Right)
	c.indexHint(j.Right)
	c.w.WriteString(` ON `)

	la := c.aliases.AliasOf(j.Left)
	ra := c.aliases.AliasOf(j.Right)

	if j.OnBuilder != nil {
		on := j.OnBuilder.BuildOn(sdata.JoinContext{
			Left:       j.Left,
			Right:      j.Right,
			LeftAlias:  la,
			RightAlias: ra,
			Dialect:    c.dialect,
		})
		if on == "" && c.err == nil {
			c.err = fmt.Errorf("join on %s: empty ON condition", j.Right.Name)
		}
		c.w.WriteString(on)
		return
	}

	if j.ForeignKey == "" || j.Right.PrimaryKey == "" {
		if c.err == nil {
			c.err = fmt.Errorf("join on %s: no foreign key or ON condition", j.Right.Name)
		}
		return
	}
	c.colWithTable(la, j.ForeignKey)
	c.w.WriteString(` = `)
	c.colWithTable(ra, j.Right.PrimaryKey)
}

func (c *compilerContext) indexHint(qo *sdata.QueryObject) {
	if qo.ForceIndex == "" {
		return
	}
	switch c.dialect.Name() {
	case "mysql", "mariadb":
		c.w.WriteString(` FORCE INDEX(`)
		c.w.WriteString(qo.ForceIndex)
		c.w.WriteString(`)`)
	case "mssql":
		c.w.WriteString(` WITH (INDEX(`)
		c.w.WriteString(qo.ForceIndex)
		c.w.WriteString(`))`)
	}
}

func (c *compilerContext) renderWhere(q *qcode.Query) {
	if q.Where == nil || q.Where.Empty() {
		return
	}
	c.w.WriteString(` WHERE `)
	c.renderConds(q.Where.Conds)
}

func (c *compilerContext) renderConds(conds []qcode.Cond) {
	if len(conds) == 0 {
		c.w.WriteString(`1=1`)
		return
	}
	if conds[0].CondLink() == qcode.LinkOr {
		c.w.WriteString(`1=0`)
	} else {
		c.w.WriteString(`1=1`)
	}
	for _, cond := range conds {
		link := cond.CondLink()
		if link == "" {
			link = qcode.LinkAnd
		}
		c.w.WriteString(` `)
		c.w.WriteString(string(link))
		c.w.WriteString(` `)
		c.renderCond(cond)
	}
}

func (c *compilerContext) renderCond(cond qcode.Cond) {
	switch v := cond.(type) {
	case *qcode.ValueCond:
		c.w.WriteString(v.SQL)
		c.bind(v.Value)
		c.w.WriteString(v.Suffix)

	case *qcode.ListValueCond:
		c.w.WriteString(v.SQL)
		for i, val := range v.Values {
			if i != 0 {
				c.w.WriteString(`, `)
			}
			c.bind(val)
		}
		c.w.WriteString(v.Suffix)

	case *qcode.FragmentCond:
		c.w.WriteString(v.SQL)

	case *qcode.GroupCond:
		c.w.WriteString(`(`)
		c.renderConds(v.Conds)
		c.w.WriteString(`)`)

	default:
		if c.err == nil {
			c.err = fmt.Errorf("unknown condition type %T", cond)
		}
	}
}

func (c *compilerContext) renderGroupBy(q *qcode.Query) {
	i := 0
	for _, col := range q.GroupBy {
		name := col.GroupByName
		if name == "" {
			name = c.declare(col)
		}
		if i == 0 {
			c.w.WriteString(` GROUP BY `)
		} else {
			c.w.WriteString(`, `)
		}
		c.w.WriteString(name)
		i++
	}
}

func (c *compilerContext) renderHaving(q *qcode.Query) {
	if q.Having == nil || q.Having.Empty() {
		return
	}
	c.w.WriteString(` HAVING `)
	c.renderConds(q.Having.Conds)
}

func (c *compilerContext) renderOrderBy(q *qcode.Query) {
	if len(q.Orders) == 0 {
		return
	}
	c.orderAt = c.w.Len()
	c.w.WriteString(` ORDER BY `)

	for i, o := range q.Orders {
		if i != 0 {
			c.w.WriteString(`, `)
		}
		ex := c.declare(o.Column)
		dir := orderDir(o.Dir)

		switch {
		case o.NullsFirst:
			c.w.WriteString(c.dialect.NullOrderClause(ex, dir, true))
		case o.NullsLast:
			c.w.WriteString(c.dialect.NullOrderClause(ex, dir, false))
		default:
			c.w.WriteString(ex)
			if dir != "" {
				c.w.WriteString(` `)
				c.w.WriteString(dir)
			}
		}
	}
}

func (c *compilerContext) bind(v interface{}) {
	c.values = append(c.values, v)
	c.w.WriteString(c.dialect.BindVar(len(c.values)))
}

func (c *compilerContext) declare(col *sdata.Column) string {
	return declare(c.aliases, col)
}

func declare(a Aliaser, col *sdata.Column) string {
	if col.Calculated || col.QueryObject == nil {
		return col.Declare("")
	}
	return col.Declare(a.AliasOf(col.QueryObject))
}
