package qcode

import "strings"

// Link is the logical operator joining a condition to the previous one
type Link string

const (
	LinkAnd Link = "AND"
	LinkOr  Link = "OR"
)

// ParseLink accepts and / or in any case, anything else is AND
func ParseLink(s string) Link {
	if strings.EqualFold(strings.TrimSpace(s), "or") {
		return LinkOr
	}
	return LinkAnd
}

// Cond is a node of the WHERE tree: *ValueCond, *ListValueCond,
// *FragmentCond or *GroupCond
type Cond interface {
	CondLink() Link
}

// ValueCond renders SQL, a bind variable for Value, then Suffix
type ValueCond struct {
	Link   Link
	SQL    string
	Suffix string
	Value  interface{}
}

// ListValueCond renders SQL, one bind variable per value separated by
// commas, then Suffix
type ListValueCond struct {
	Link   Link
	SQL    string
	Suffix string
	Values []interface{}
}

// FragmentCond is raw SQL without parameters
type FragmentCond struct {
	Link Link
	SQL  string
}

// GroupCond is a parenthesised list of conditions
type GroupCond struct {
	Link  Link
	Conds []Cond
}

func (c *ValueCond) CondLink() Link     { return c.Link }
func (c *ListValueCond) CondLink() Link { return c.Link }
func (c *FragmentCond) CondLink() Link  { return c.Link }
func (c *GroupCond) CondLink() Link     { return c.Link }

func (g *GroupCond) Add(c ...Cond) *GroupCond {
	g.Conds = append(g.Conds, c...)
	return g
}

// Group appends and returns a nested group
func (g *GroupCond) Group(link Link) *GroupCond {
	ng := &GroupCond{Link: link}
	g.Conds = append(g.Conds, ng)
	return ng
}

func (g *GroupCond) Empty() bool {
	return len(g.Conds) == 0
}

func (g *GroupCond) clone() *GroupCond {
	if g == nil {
		return nil
	}
	ng := &GroupCond{Link: g.Link, Conds: make([]Cond, len(g.Conds))}
	for i, c := range g.Conds {
		if sub, ok := c.(*GroupCond); ok {
			ng.Conds[i] = sub.clone()
		} else {
			ng.Conds[i] = c
		}
	}
	return ng
}
