package qcode

import (
	"errors"
	"fmt"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

var (
	ErrDuplicateAlias = errors.New("duplicate column alias")
	ErrJoinNotFound   = errors.New("join field not found")
	ErrMissingFrom    = errors.New("query has no FROM")
)

// Join is a JOIN edge. It renders with OnBuilder when set, else as
// Left.ForeignKey = Right.PrimaryKey.
type Join struct {
	Left       *sdata.QueryObject
	Right      *sdata.QueryObject
	ForeignKey string
	OnBuilder  sdata.OnBuilder
	Kind       sdata.JoinKind
}

type Order struct {
	Column     *sdata.Column
	Dir        string
	NullsFirst bool
	NullsLast  bool
}

// Query is the AST of one SELECT. It is built for a single compilation and
// is not safe for concurrent use.
type Query struct {
	From     *sdata.QueryObject
	Joins    []*Join
	PreJoins []*Join
	Columns  []*sdata.Column
	Where    *GroupCond
	GroupBy  []*sdata.Column
	Having   *GroupCond
	Orders   []Order
	Distinct bool
}

func New(from *sdata.QueryObject) (*Query, error) {
	if from == nil {
		return nil, ErrMissingFrom
	}
	return &Query{From: from, Where: &GroupCond{}, Having: &GroupCond{}}, nil
}

// Select adds columns to the select list joining their owners. Selecting
// the same column twice is a no-op.
func (q *Query) Select(cols ...*sdata.Column) error {
	for _, col := range cols {
		dup := false
		for _, c := range q.Columns {
			if c.AliasName() != col.AliasName() {
				continue
			}
			if c != col {
				return fmt.Errorf("%w: %s", ErrDuplicateAlias, col.AliasName())
			}
			dup = true
			break
		}
		if dup {
			continue
		}

		if err := q.JoinColumn(col); err != nil {
			return err
		}
		q.Columns = append(q.Columns, col)
	}
	return nil
}

// RemoveColumns drops the named columns from the select list
func (q *Query) RemoveColumns(names ...string) {
	if len(names) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	cols := q.Columns[:0:0]
	for _, c := range q.Columns {
		_, byName := drop[c.Name]
		_, byAlias := drop[c.AliasName()]
		if byName || byAlias {
			continue
		}
		cols = append(cols, c)
	}
	q.Columns = cols
}

// JoinColumn makes the owner of col reachable. Calculated columns join the
// owners of the columns they reference.
func (q *Query) JoinColumn(col *sdata.Column) error {
	if col.Calculated {
		for _, r := range col.Refs {
			if err := q.JoinColumn(r); err != nil {
				return err
			}
		}
		return nil
	}
	return q.Join(col.QueryObject)
}

// Join resolves a join path to qo. The lookup order is the link of qo, its
// ON builder, a foreign key from FROM, a foreign key from an object already
// joined and finally the pre joins.
func (q *Query) Join(qo *sdata.QueryObject) error {
	if qo == nil || qo.IsRootEqual(q.From) || q.joined(qo) {
		return nil
	}

	left := q.From
	if qo.Link != nil {
		if err := q.Join(qo.Link); err != nil {
			return err
		}
		left = qo.Link
	}

	if qo.OnBuilder != nil {
		for _, pj := range q.PreJoins {
			if pj.Right == qo && pj.OnBuilder == qo.OnBuilder {
				q.add(pj)
				return nil
			}
		}
		q.add(&Join{Left: left, Right: qo, OnBuilder: qo.OnBuilder, Kind: qo.JoinKind})
		return nil
	}

	if fk, ok := q.From.ForeignKeyTo(qo); ok {
		q.add(&Join{Left: q.From, Right: qo, ForeignKey: fk, Kind: qo.JoinKind})
		return nil
	}

	for _, j := range q.Joins {
		if fk, ok := j.Right.ForeignKeyTo(qo); ok {
			q.add(&Join{Left: j.Right, Right: qo, ForeignKey: fk, Kind: qo.JoinKind})
			return nil
		}
	}

	for _, pj := range q.PreJoins {
		if pj.Right == qo {
			q.add(pj)
			return nil
		}
		if fk, ok := pj.Right.ForeignKeyTo(qo); ok {
			q.add(pj)
			q.add(&Join{Left: pj.Right, Right: qo, ForeignKey: fk, Kind: qo.JoinKind})
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrJoinNotFound, qo.Name)
}

// JoinWithKey joins qo on FROM.fk = qo's primary key
func (q *Query) JoinWithKey(qo *sdata.QueryObject, fk string) {
	if qo == nil || q.joined(qo) {
		return
	}
	q.add(&Join{Left: q.From, Right: qo, ForeignKey: fk, Kind: qo.JoinKind})
}

// PreJoin registers qo as joinable through FROM.fk without joining it yet
func (q *Query) PreJoin(qo *sdata.QueryObject, fk string) {
	q.PreJoins = append(q.PreJoins, &Join{Left: q.From, Right: qo, ForeignKey: fk, Kind: qo.JoinKind})
}

// PreJoinOn registers qo as joinable through a custom ON builder
func (q *Query) PreJoinOn(qo *sdata.QueryObject, b sdata.OnBuilder, kind sdata.JoinKind) {
	q.PreJoins = append(q.PreJoins, &Join{Left: q.From, Right: qo, OnBuilder: b, Kind: kind})
}

func (q *Query) joined(qo *sdata.QueryObject) bool {
	for _, j := range q.Joins {
		if j.Right == qo {
			return true
		}
	}
	return false
}

func (q *Query) add(j *Join) {
	if q.joined(j.Right) {
		return
	}
	q.Joins = append(q.Joins, j)
}

// AddOrder appends an order entry joining the owner of its column
func (q *Query) AddOrder(o Order) error {
	if err := q.JoinColumn(o.Column); err != nil {
		return err
	}
	q.Orders = append(q.Orders, o)
	return nil
}

func (q *Query) AddGroupBy(col *sdata.Column) error {
	for _, c := range q.GroupBy {
		if c == col {
			return nil
		}
	}
	if err := q.JoinColumn(col); err != nil {
		return err
	}
	q.GroupBy = append(q.GroupBy, col)
	return nil
}

// SelectOrderColumns adds order columns missing from the select list, as
// required by SELECT DISTINCT
func (q *Query) SelectOrderColumns() error {
	for _, o := range q.Orders {
		if q.ContainsSelect(o.Column) {
			continue
		}
		if err := q.Select(o.Column); err != nil {
			return err
		}
	}
	return nil
}

func (q *Query) ContainsSelect(col *sdata.Column) bool {
	for _, c := range q.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// FindColumn returns the selected column with the given output alias
func (q *Query) FindColumn(alias string) *sdata.Column {
	for _, c := range q.Columns {
		if c.AliasName() == alias {
			return c
		}
	}
	return nil
}

func (q *Query) JoinCount() int {
	return len(q.Joins)
}

// WithColumns returns a copy of q selecting only cols. q is left untouched.
func (q *Query) WithColumns(cols []*sdata.Column) *Query {
	nq := q.Clone()
	nq.Columns = append([]*sdata.Column(nil), cols...)
	return nq
}

// Clone copies the query so that edits to the copy never reach q
func (q *Query) Clone() *Query {
	return &Query{
		From:     q.From,
		Joins:    append([]*Join(nil), q.Joins...),
		PreJoins: append([]*Join(nil), q.PreJoins...),
		Columns:  append([]*sdata.Column(nil), q.Columns...),
		Where:    q.Where.clone(),
		GroupBy:  append([]*sdata.Column(nil), q.GroupBy...),
		Having:   q.Having.clone(),
		Orders:   append([]Order(nil), q.Orders...),
		Distinct: q.Distinct,
	}
}
