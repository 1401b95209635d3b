package executor

import (
	"bytes"
	"fmt"

	"github.com/dstrohschein/miniql/src/planner"
)

// rowKey canonicalizes a Row into a comparable string, length-prefixing
// every column so no ambiguity can arise from concatenation alone.
func rowKey(r Row) string {
	var buf bytes.Buffer
	for _, v := range r.Values {
		fmt.Fprintf(&buf, "%d:", len(v))
		buf.Write(v)
	}
	return buf.String()
}

func drainAll(it Iterator) ([]Row, error) {
	var rows []Row
	for {
		row, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// newSetOpIter buffers both operands up front: every operator here
// needs to compare across the full operand, so there is no pull-based
// formulation worth pretending at (spec.md §4.7).
func newSetOpIter(op planner.SetOp, left, right Iterator) (Iterator, error) {
	leftRows, err := drainAll(left)
	if err != nil {
		return nil, err
	}
	rightRows, err := drainAll(right)
	if err != nil {
		return nil, err
	}

	var out []Row
	switch op {
	case planner.Union:
		seen := map[string]bool{}
		for _, r := range leftRows {
			k := rowKey(r)
			if !seen[k] {
				seen[k] = true
				out = append(out, r)
			}
		}
		for _, r := range rightRows {
			k := rowKey(r)
			if !seen[k] {
				seen[k] = true
				out = append(out, r)
			}
		}

	case planner.All:
		out = append(out, leftRows...)
		out = append(out, rightRows...)

	case planner.Intersect:
		rightSet := map[string]bool{}
		for _, r := range rightRows {
			rightSet[rowKey(r)] = true
		}
		seen := map[string]bool{}
		for _, r := range leftRows {
			k := rowKey(r)
			if rightSet[k] && !seen[k] {
				seen[k] = true
				out = append(out, r)
			}
		}

	case planner.Except:
		rightSet := map[string]bool{}
		for _, r := range rightRows {
			rightSet[rowKey(r)] = true
		}
		seen := map[string]bool{}
		for _, r := range leftRows {
			k := rowKey(r)
			if !rightSet[k] && !seen[k] {
				seen[k] = true
				out = append(out, r)
			}
		}

	case planner.Minus:
		// Bag difference: each left row survives once per excess
		// occurrence over its count on the right, preserving
		// duplicates rather than collapsing them the way Except does.
		counts := map[string]int{}
		for _, r := range rightRows {
			counts[rowKey(r)]++
		}
		for _, r := range leftRows {
			k := rowKey(r)
			if counts[k] > 0 {
				counts[k]--
				continue
			}
			out = append(out, r)
		}

	case planner.Times:
		for _, l := range leftRows {
			for _, r := range rightRows {
				out = append(out, combineRows(l, r))
			}
		}

	default:
		return nil, fmt.Errorf("unrecognized set operator %v", op)
	}

	return &sliceIter{rows: out}, nil
}

// sliceIter replays an already-materialized row batch.
type sliceIter struct {
	rows []Row
	pos  int
}

func (it *sliceIter) Reset() error {
	it.pos = 0
	return nil
}

func (it *sliceIter) Next() (Row, bool, error) {
	if it.pos >= len(it.rows) {
		return Row{}, false, nil
	}
	row := it.rows[it.pos]
	it.pos++
	return row, true, nil
}
