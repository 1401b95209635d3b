package executor

import (
	"fmt"

	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/cursor"
	"github.com/dstrohschein/miniql/src/planner"
	"github.com/dstrohschein/miniql/src/schema"
)

// Iterator is the pull-based protocol every plan node compiles down to,
// per spec.md §4.7: Next yields the next row (ok=false once exhausted),
// Reset rewinds to the beginning so a source can be read again (a
// Join re-reads its inner side once per Reset of the join).
type Iterator interface {
	Next() (Row, bool, error)
	Reset() error
}

// build compiles a planner.Node into its Iterator.
func (e *Executor) build(n planner.Node) (Iterator, error) {
	switch node := n.(type) {
	case *planner.SeqScan:
		return e.buildSeqScan(node)
	case *planner.Filter:
		source, err := e.build(node.Source)
		if err != nil {
			return nil, err
		}
		return &filterIter{source: source, conditions: node.Conditions}, nil
	case *planner.Project:
		source, err := e.build(node.Source)
		if err != nil {
			return nil, err
		}
		return &projectIter{source: source, sourceFields: node.Source.OutputFields(), fields: node.Fields}, nil
	case *planner.Join:
		left, err := e.build(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.build(node.Right)
		if err != nil {
			return nil, err
		}
		return &joinIter{
			left: left, right: right,
			leftFields: node.Left.OutputFields(), rightFields: node.Right.OutputFields(),
			joinType: node.JoinType, pairs: node.Pairs,
		}, nil
	case *planner.SetOperation:
		left, err := e.build(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.build(node.Right)
		if err != nil {
			return nil, err
		}
		return newSetOpIter(node.Op, left, right)
	default:
		return nil, fmt.Errorf("unrecognized plan node %T", n)
	}
}

// seqScanIter drives a cursor over one table's tree, positioned per its
// op_code, and filters out tomb-bit keys and any rows failing the
// folded-down conditions.
type seqScanIter struct {
	e     *Executor
	scan  *planner.SeqScan
	table *schema.TableSchema
	kt    codec.Type
	cur   *cursor.Cursor

	started bool
}

func (e *Executor) buildSeqScan(scan *planner.SeqScan) (*seqScanIter, error) {
	bt, err := e.tree(scan.TableID)
	if err != nil {
		return nil, err
	}
	table, err := e.pager.Table(scan.TableID)
	if err != nil {
		return nil, err
	}
	kt, err := bt.KeyType()
	if err != nil {
		return nil, err
	}
	return &seqScanIter{e: e, scan: scan, table: table, kt: kt, cur: cursor.New(bt)}, nil
}

func (it *seqScanIter) Reset() error {
	it.started = false
	return nil
}

func (it *seqScanIter) position() error {
	it.started = true
	if it.scan.Low == nil {
		return it.cur.MoveToStart()
	}
	if err := it.cur.GoToLessThanEqual(it.scan.Low); err != nil {
		return err
	}
	if !it.cur.IsValid() {
		return it.cur.MoveToStart()
	}
	key, _, _, err := it.cur.Current()
	if err != nil {
		return err
	}
	cmp, err := codec.Compare(key, it.scan.Low, it.kt)
	if err != nil {
		return err
	}
	if cmp == codec.Less {
		return it.cur.Advance()
	}
	return nil
}

func (it *seqScanIter) Next() (Row, bool, error) {
	if !it.started {
		if err := it.position(); err != nil {
			return Row{}, false, err
		}
	}

	for it.cur.IsValid() {
		key, row, ok, err := it.cur.Current()
		if err != nil {
			return Row{}, false, err
		}
		if !ok {
			if err := it.cur.Advance(); err != nil {
				return Row{}, false, err
			}
			continue
		}

		if it.scan.High != nil {
			cmp, err := codec.Compare(key, it.scan.High, it.kt)
			if err != nil {
				return Row{}, false, err
			}
			if cmp == codec.Greater {
				return Row{}, false, nil
			}
		}

		if codec.IsTomb(key, it.kt) {
			if err := it.cur.Advance(); err != nil {
				return Row{}, false, err
			}
			continue
		}

		match, err := evaluateConditions(it.table, it.scan.Conditions, key, row)
		if err != nil {
			return Row{}, false, err
		}
		if err := it.cur.Advance(); err != nil {
			return Row{}, false, err
		}
		if !match {
			continue
		}

		values, err := splitRow(it.table, key, row)
		if err != nil {
			return Row{}, false, err
		}
		return Row{Values: values}, true, nil
	}
	return Row{}, false, nil
}

// splitRow decodes a stored (key, row) pair into one []byte per field,
// in the table's declared column order.
func splitRow(table *schema.TableSchema, key, row []byte) ([][]byte, error) {
	values := make([][]byte, len(table.Fields))
	offset := 0
	for i, f := range table.Fields {
		if i == table.KeyPosition {
			values[i] = key
			continue
		}
		size, err := codec.SizeOf(f.Type)
		if err != nil {
			return nil, err
		}
		values[i] = row[offset : offset+size]
		offset += size
	}
	return values, nil
}

func fieldBytes(table *schema.TableSchema, key, row []byte, field planner.ResolvedField) ([]byte, error) {
	if field.IsKey {
		return key, nil
	}
	offset := 0
	for i, f := range table.Fields {
		if i == table.KeyPosition {
			continue
		}
		size, err := codec.SizeOf(f.Type)
		if err != nil {
			return nil, err
		}
		if i == field.Index {
			return row[offset : offset+size], nil
		}
		offset += size
	}
	return nil, fmt.Errorf("field index %d not found on table %q", field.Index, table.Name)
}

// evaluateConditions folds a flat condition list left to right: each
// condition's Logic names how it joins the one after it ("AND"/"OR"),
// matching the shape queryast.Condition carries in from the parser.
func evaluateConditions(table *schema.TableSchema, conds []planner.Condition, key, row []byte) (bool, error) {
	if len(conds) == 0 {
		return true, nil
	}
	acc, err := evalOne(table, conds[0], key, row)
	if err != nil {
		return false, err
	}
	for i := 1; i < len(conds); i++ {
		v, err := evalOne(table, conds[i], key, row)
		if err != nil {
			return false, err
		}
		if conds[i-1].Logic == "OR" {
			acc = acc || v
		} else {
			acc = acc && v
		}
	}
	return acc, nil
}

func evalOne(table *schema.TableSchema, c planner.Condition, key, row []byte) (bool, error) {
	fv, err := fieldBytes(table, key, row, c.Field)
	if err != nil {
		return false, err
	}
	cmp, err := codec.Compare(fv, c.Value, c.Field.Type)
	if err != nil {
		return false, err
	}
	switch c.Operator {
	case "=":
		return cmp == codec.Equal, nil
	case "!=":
		return cmp != codec.Equal, nil
	case "<":
		return cmp == codec.Less, nil
	case "<=":
		return cmp != codec.Greater, nil
	case ">":
		return cmp == codec.Greater, nil
	case ">=":
		return cmp != codec.Less, nil
	default:
		return false, fmt.Errorf("unrecognized comparison operator %q", c.Operator)
	}
}

// filterIter wraps a source, evaluating conditions against its already
// column-labeled output rather than a raw table row, for the case where
// pushdown into a SeqScan wasn't possible (e.g. the source is a join).
type filterIter struct {
	source     Iterator
	conditions []planner.Condition
	fields     []planner.ResolvedField
}

func (it *filterIter) Reset() error { return it.source.Reset() }

func (it *filterIter) Next() (Row, bool, error) {
	for {
		row, ok, err := it.source.Next()
		if err != nil || !ok {
			return Row{}, ok, err
		}
		match, err := evaluateProjectedConditions(it.conditions, row)
		if err != nil {
			return Row{}, false, err
		}
		if match {
			return row, true, nil
		}
	}
}

func evaluateProjectedConditions(conds []planner.Condition, row Row) (bool, error) {
	if len(conds) == 0 {
		return true, nil
	}
	eval := func(c planner.Condition) (bool, error) {
		if c.Field.Index < 0 || c.Field.Index >= len(row.Values) {
			return false, fmt.Errorf("condition field index %d out of range", c.Field.Index)
		}
		cmp, err := codec.Compare(row.Values[c.Field.Index], c.Value, c.Field.Type)
		if err != nil {
			return false, err
		}
		switch c.Operator {
		case "=":
			return cmp == codec.Equal, nil
		case "!=":
			return cmp != codec.Equal, nil
		case "<":
			return cmp == codec.Less, nil
		case "<=":
			return cmp != codec.Greater, nil
		case ">":
			return cmp == codec.Greater, nil
		case ">=":
			return cmp != codec.Less, nil
		default:
			return false, fmt.Errorf("unrecognized comparison operator %q", c.Operator)
		}
	}

	acc, err := eval(conds[0])
	if err != nil {
		return false, err
	}
	for i := 1; i < len(conds); i++ {
		v, err := eval(conds[i])
		if err != nil {
			return false, err
		}
		if conds[i-1].Logic == "OR" {
			acc = acc || v
		} else {
			acc = acc && v
		}
	}
	return acc, nil
}

// projectIter maps a source row onto fields, by index within the
// source's own output schema.
type projectIter struct {
	source       Iterator
	sourceFields []planner.ResolvedField
	fields       []planner.ResolvedField
}

func (it *projectIter) Reset() error { return it.source.Reset() }

func (it *projectIter) Next() (Row, bool, error) {
	row, ok, err := it.source.Next()
	if err != nil || !ok {
		return Row{}, ok, err
	}
	values := make([][]byte, len(it.fields))
	for i, f := range it.fields {
		srcIdx := indexOf(it.sourceFields, f)
		if srcIdx < 0 || srcIdx >= len(row.Values) {
			return Row{}, false, fmt.Errorf("projected field %s.%s not found in source row", f.Table, f.Name)
		}
		values[i] = row.Values[srcIdx]
	}
	return Row{Values: values}, true, nil
}

func indexOf(fields []planner.ResolvedField, target planner.ResolvedField) int {
	for i, f := range fields {
		if f.Table == target.Table && f.Name == target.Name && f.Index == target.Index {
			return i
		}
	}
	return -1
}
