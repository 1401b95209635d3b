// Package planner turns a queryast.Statement into a PlanNode tree: the
// pull-based iterator graph the executor runs. Resolution (qualifying
// bare column names against their source schema), predicate pushdown,
// and literal compilation all happen here, once, rather than on every
// row during execution.
package planner

import (
	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/schema"
)

// OpCode classifies how a SeqScan should drive its cursor.
type OpCode int

const (
	SelectFTS OpCode = iota
	SelectKeyRange
	SelectKeyUnique
	SelectIndexRange
	SelectIndexUnique
)

func (o OpCode) String() string {
	switch o {
	case SelectFTS:
		return "SelectFTS"
	case SelectKeyRange:
		return "SelectKeyRange"
	case SelectKeyUnique:
		return "SelectKeyUnique"
	case SelectIndexRange:
		return "SelectIndexRange"
	case SelectIndexUnique:
		return "SelectIndexUnique"
	default:
		return "Unknown"
	}
}

// Condition is a single resolved, compiled predicate: Field names a
// column of the node's output schema, Value is the column's on-disk
// byte encoding of the literal it is compared against.
type Condition struct {
	Field    ResolvedField
	Operator string
	Value    []byte
	Logic    string
}

// ResolvedField is a column fully qualified against its source table,
// carrying everything downstream nodes need to read it out of a row:
// which table it came from, its declared type, and its index within
// that table's field list (KeyPosition tells a SeqScan whether this
// condition targets the primary key).
type ResolvedField struct {
	Table       string
	Name        string
	Type        codec.Type
	Index       int
	IsKey       bool
}

// Node is any plan node: every variant exposes the shape the executor's
// iterators are built from. It is a closed sum type (switch over the
// concrete pointer type), not an interface with behavior, matching
// spec.md §4.6's data-only PlanNode description.
type Node interface {
	isNode()
	OutputFields() []ResolvedField
}

// SeqScan drives a B-tree cursor over one table.
type SeqScan struct {
	TableID    string
	OpCode     OpCode
	Conditions []Condition
	Fields     []ResolvedField // the scanned table's full row schema
	Low        []byte          // nil = unbounded; set when OpCode bounds a range
	High       []byte
}

func (*SeqScan) isNode()                       {}
func (s *SeqScan) OutputFields() []ResolvedField { return s.Fields }

// Filter wraps a source, dropping rows that fail its conditions.
type Filter struct {
	Source     Node
	Conditions []Condition
}

func (*Filter) isNode()                       {}
func (f *Filter) OutputFields() []ResolvedField { return f.Source.OutputFields() }

// Project maps a source row onto an output column list.
type Project struct {
	Source Node
	Fields []ResolvedField
}

func (*Project) isNode()                       {}
func (p *Project) OutputFields() []ResolvedField { return p.Fields }

// JoinType mirrors queryast.JoinType at the plan level.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	NaturalJoin
)

// JoinFieldPair is one resolved `left.f = right.f` equality.
type JoinFieldPair struct {
	Left  ResolvedField
	Right ResolvedField
}

// Join implements nested-loop semantics: for each outer (Left) row,
// Right is reset and scanned for matches.
type Join struct {
	Left      Node
	Right     Node
	JoinType  JoinType
	Pairs     []JoinFieldPair
}

func (*Join) isNode() {}
func (j *Join) OutputFields() []ResolvedField {
	return append(append([]ResolvedField{}, j.Left.OutputFields()...), j.Right.OutputFields()...)
}

// SetOp mirrors queryast.SetOp at the plan level.
type SetOp int

const (
	Union SetOp = iota
	Intersect
	Except
	Times
	All
	Minus
)

// SetOperation buffers both operands and performs set logic on their
// byte-row representations. Operand column counts must match — checked
// at build time, not at execution time.
type SetOperation struct {
	Op    SetOp
	Left  Node
	Right Node
}

func (*SetOperation) isNode() {}
func (s *SetOperation) OutputFields() []ResolvedField {
	if s.Op == Times {
		return append(append([]ResolvedField{}, s.Left.OutputFields()...), s.Right.OutputFields()...)
	}
	return s.Left.OutputFields()
}

// Statement is the top-level thing a Build call produces: either a
// readable Node (for SELECT-shaped statements) or one of the mutating
// statements, which the executor handles directly rather than through
// the iterator protocol.
type Statement struct {
	Query       Node
	InsertInto  *InsertPlan
	CreateTable *CreateTablePlan
	DropTable   *DropTablePlan
	DeleteFrom  *DeletePlan
}

// InsertPlan carries compiled key/row bytes ready for btree.Insert.
type InsertPlan struct {
	Table string
	Key   []byte
	Row   []byte
}

// CreateTablePlan carries a ready-to-register schema.TableSchema.
type CreateTablePlan struct {
	Table schema.TableSchema
}

// DropTablePlan names the table to remove.
type DropTablePlan struct {
	Table string
}

// DeletePlan wraps a scan that the executor drains, tombing every row
// it yields.
type DeletePlan struct {
	Table string
	Scan  Node
}
