package executor

import (
	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/planner"
)

// joinIter implements nested-loop join semantics (spec.md §4.7). The
// right side is materialized once per Reset and scanned in full for
// every left row, which both avoids re-running an expensive source
// repeatedly and lets Right/Full track which right rows never matched
// anything on the left. "Null" padding for an unmatched side is a
// zero-valued byte buffer matching the missing column's width, since
// the fixed-width codec has no null marker of its own (a design
// placeholder decision — see DESIGN.md).
type joinIter struct {
	left, right             Iterator
	leftFields, rightFields []planner.ResolvedField
	joinType                planner.JoinType
	pairs                   []planner.JoinFieldPair

	materialized bool
	rightRows    []Row
	rightMatched []bool

	started   bool
	leftRow   Row
	leftOK    bool
	leftMatch bool
	rightIdx  int

	tailIdx int // walks rightRows for unmatched-right emission once left is exhausted
}

func (it *joinIter) Reset() error {
	it.materialized = false
	it.started = false
	it.leftOK = false
	it.leftMatch = false
	it.rightIdx = 0
	it.tailIdx = 0
	return it.left.Reset()
}

func (it *joinIter) materialize() error {
	it.materialized = true
	it.rightRows = nil
	it.rightMatched = nil
	if err := it.right.Reset(); err != nil {
		return err
	}
	for {
		row, ok, err := it.right.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		it.rightRows = append(it.rightRows, row)
		it.rightMatched = append(it.rightMatched, false)
	}
	return nil
}

func (it *joinIter) pullLeft() error {
	row, ok, err := it.left.Next()
	if err != nil {
		return err
	}
	it.leftRow, it.leftOK, it.leftMatch = row, ok, false
	it.rightIdx = 0
	return nil
}

func (it *joinIter) emitsUnmatchedLeft() bool {
	return it.joinType == planner.LeftJoin || it.joinType == planner.FullJoin
}

func (it *joinIter) emitsUnmatchedRight() bool {
	return it.joinType == planner.RightJoin || it.joinType == planner.FullJoin
}

func (it *joinIter) Next() (Row, bool, error) {
	if !it.materialized {
		if err := it.materialize(); err != nil {
			return Row{}, false, err
		}
	}
	if !it.started {
		it.started = true
		if err := it.pullLeft(); err != nil {
			return Row{}, false, err
		}
	}

	for it.leftOK {
		for it.rightIdx < len(it.rightRows) {
			idx := it.rightIdx
			it.rightIdx++
			if !it.matches(it.leftRow, it.rightRows[idx]) {
				continue
			}
			it.leftMatch = true
			it.rightMatched[idx] = true
			return combineRows(it.leftRow, it.rightRows[idx]), true, nil
		}

		emit := !it.leftMatch && it.emitsUnmatchedLeft()
		pending := it.leftRow
		if err := it.pullLeft(); err != nil {
			return Row{}, false, err
		}
		if emit {
			return combineRows(pending, nullRow(it.rightFields)), true, nil
		}
	}

	if it.emitsUnmatchedRight() {
		for it.tailIdx < len(it.rightRows) {
			idx := it.tailIdx
			it.tailIdx++
			if !it.rightMatched[idx] {
				return combineRows(nullRow(it.leftFields), it.rightRows[idx]), true, nil
			}
		}
	}
	return Row{}, false, nil
}

func nullRow(fields []planner.ResolvedField) Row {
	values := make([][]byte, len(fields))
	for i, f := range fields {
		size, err := codec.SizeOf(f.Type)
		if err != nil {
			size = 0
		}
		values[i] = make([]byte, size)
	}
	return Row{Values: values}
}

func combineRows(left, right Row) Row {
	values := make([][]byte, 0, len(left.Values)+len(right.Values))
	values = append(values, left.Values...)
	values = append(values, right.Values...)
	return Row{Values: values}
}

func (it *joinIter) matches(left, right Row) bool {
	for _, pair := range it.pairs {
		li := indexOf(it.leftFields, pair.Left)
		ri := indexOf(it.rightFields, pair.Right)
		if li < 0 || ri < 0 || li >= len(left.Values) || ri >= len(right.Values) {
			return false
		}
		cmp, err := codec.Compare(left.Values[li], right.Values[ri], pair.Left.Type)
		if err != nil || cmp != codec.Equal {
			return false
		}
	}
	return true
}
