package sdata

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/dialect"
)

// ErrNotFound is matched by every *NotFoundError
var ErrNotFound = errors.New("not found")

// Catalog resolves logical names against a query model. Implementations are
// read-only after construction and shared by concurrent compilations.
type Catalog interface {
	FindColumnForSelect(name string) (*Column, error)
	FindColumnForCondition(name string) (*Column, error)
	FindDimension(name string) *Dimension
	AliasOf(q *QueryObject) string
	Dialect() dialect.Provider

	// From is the root object of every query against the model
	From() *QueryObject
	PreJoins() []PreJoin
	DefaultOrders() []Order
	DefaultSelectColumns() []*Column
}

// OnBuilder renders a custom join condition
type OnBuilder interface {
	BuildOn(jc JoinContext) string
}

type JoinContext struct {
	Left       *QueryObject
	Right      *QueryObject
	LeftAlias  string
	RightAlias string
	Dialect    dialect.Provider
}

// OnTemplate is an OnBuilder over a fixed expression where {left} and
// {right} are replaced with the aliases of the joined objects.
type OnTemplate struct {
	Expr string
}

func (o *OnTemplate) BuildOn(jc JoinContext) string {
	return strings.NewReplacer("{left}", jc.LeftAlias, "{right}", jc.RightAlias).Replace(o.Expr)
}

// QueryObject is a table or a derived subquery that can appear in FROM or JOIN
type QueryObject struct {
	Name       string
	Body       string
	Alias      string
	PrimaryKey string
	ForceIndex string

	// Link must be joined before this object
	Link *QueryObject

	// OnBuilder and JoinKind describe how the object joins when it is not
	// reachable through a foreign key
	OnBuilder OnBuilder
	JoinKind  JoinKind

	// ForeignKeys maps a target object name to the column on this object
	// referencing the target's primary key
	ForeignKeys map[string]string

	// Root is the object this one was derived from, nil for base tables
	Root *QueryObject
}

// NewSubQuery wraps sql as a derived table with the given alias
func NewSubQuery(sql, alias string) *QueryObject {
	return &QueryObject{
		Name:  alias,
		Body:  "(" + sql + ")",
		Alias: alias,
	}
}

// ForeignKeyTo returns the column on q referencing target
func (q *QueryObject) ForeignKeyTo(target *QueryObject) (string, bool) {
	if q == nil || target == nil {
		return "", false
	}
	fk, ok := q.ForeignKeys[target.Name]
	return fk, ok
}

func (q *QueryObject) root() *QueryObject {
	for q != nil && q.Root != nil {
		q = q.Root
	}
	return q
}

// IsRootEqual is true when both objects derive from the same base object
func (q *QueryObject) IsRootEqual(o *QueryObject) bool {
	if q == nil || o == nil {
		return false
	}
	return q.root() == o.root()
}

func (q *QueryObject) String() string {
	if q == nil {
		return "<nil>"
	}
	return q.Name
}

// PreJoin is an object the model joins up front
type PreJoin struct {
	QueryObject *QueryObject
	ForeignKey  string
	OnBuilder   OnBuilder
	Kind        JoinKind
}

type Order struct {
	Column     *Column
	Order      string
	NullsFirst bool
	NullsLast  bool
}

type Dimension struct {
	Name    string
	Caption string

	// Closure is set for parent/child dimensions
	Closure *ClosureTable
}

// ClosureTable describes the closure table of a hierarchical dimension.
// Conditions on the dimension are rewritten to ParentKey on the closure table.
type ClosureTable struct {
	QueryObject *QueryObject
	ForeignKey  string
	ParentKey   *Column
}

// NotFoundError is returned when a name cannot be resolved
type NotFoundError struct {
	Kind        string
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
	if len(e.Suggestions) != 0 {
		msg += " (did you mean " + strings.Join(e.Suggestions, ", ") + "?)"
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

const maxSuggestions = 5

// Suggest returns up to five candidates resembling name
func Suggest(name string, candidates []string) []string {
	n := strings.ToLower(name)
	if n == "" {
		return nil
	}

	var out []string
	for _, c := range candidates {
		lc := strings.ToLower(c)
		switch {
		case strings.Contains(lc, n), strings.Contains(n, lc):
		case len(n) >= 3 && len(lc) >= 3 && lc[:3] == n[:3]:
		default:
			continue
		}
		out = append(out, c)
	}
	sort.Strings(out)
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}
