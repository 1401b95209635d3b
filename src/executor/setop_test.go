package executor

import (
	"testing"

	"github.com/dstrohschein/miniql/src/planner"
)

func rowOf(n byte) Row {
	return Row{Values: [][]byte{{n}}}
}

func collect(t *testing.T, it Iterator) []Row {
	t.Helper()
	rows, err := drainAll(it)
	if err != nil {
		t.Fatalf("drainAll failed: %v", err)
	}
	return rows
}

func TestSetOpUnionDeduplicates(t *testing.T) {
	left := &sliceIter{rows: []Row{rowOf(1), rowOf(2)}}
	right := &sliceIter{rows: []Row{rowOf(2), rowOf(3)}}

	it, err := newSetOpIter(planner.Union, left, right)
	if err != nil {
		t.Fatalf("newSetOpIter failed: %v", err)
	}
	rows := collect(t, it)
	if len(rows) != 3 {
		t.Fatalf("expected 3 deduplicated rows, got %d", len(rows))
	}
}

func TestSetOpAllPreservesDuplicates(t *testing.T) {
	left := &sliceIter{rows: []Row{rowOf(1), rowOf(2)}}
	right := &sliceIter{rows: []Row{rowOf(2), rowOf(3)}}

	it, err := newSetOpIter(planner.All, left, right)
	if err != nil {
		t.Fatalf("newSetOpIter failed: %v", err)
	}
	rows := collect(t, it)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows (bag union, no dedup), got %d", len(rows))
	}
}

func TestSetOpIntersect(t *testing.T) {
	left := &sliceIter{rows: []Row{rowOf(1), rowOf(2), rowOf(2)}}
	right := &sliceIter{rows: []Row{rowOf(2), rowOf(3)}}

	it, err := newSetOpIter(planner.Intersect, left, right)
	if err != nil {
		t.Fatalf("newSetOpIter failed: %v", err)
	}
	rows := collect(t, it)
	if len(rows) != 1 {
		t.Fatalf("expected a single deduplicated row (2), got %d", len(rows))
	}
}

func TestSetOpExceptCollapsesDuplicates(t *testing.T) {
	left := &sliceIter{rows: []Row{rowOf(1), rowOf(1), rowOf(2)}}
	right := &sliceIter{rows: []Row{rowOf(2)}}

	it, err := newSetOpIter(planner.Except, left, right)
	if err != nil {
		t.Fatalf("newSetOpIter failed: %v", err)
	}
	rows := collect(t, it)
	if len(rows) != 1 {
		t.Fatalf("expected EXCEPT to collapse duplicate survivors to 1 row, got %d", len(rows))
	}
}

func TestSetOpMinusPreservesDuplicateCounts(t *testing.T) {
	left := &sliceIter{rows: []Row{rowOf(1), rowOf(1), rowOf(2)}}
	right := &sliceIter{rows: []Row{rowOf(1)}}

	it, err := newSetOpIter(planner.Minus, left, right)
	if err != nil {
		t.Fatalf("newSetOpIter failed: %v", err)
	}
	rows := collect(t, it)
	if len(rows) != 2 {
		t.Fatalf("expected MINUS to subtract only one occurrence of 1, leaving 2 rows, got %d", len(rows))
	}
}

func TestSetOpTimesIsCartesianProduct(t *testing.T) {
	left := &sliceIter{rows: []Row{rowOf(1), rowOf(2)}}
	right := &sliceIter{rows: []Row{rowOf(10), rowOf(20), rowOf(30)}}

	it, err := newSetOpIter(planner.Times, left, right)
	if err != nil {
		t.Fatalf("newSetOpIter failed: %v", err)
	}
	rows := collect(t, it)
	if len(rows) != 6 {
		t.Fatalf("expected 2*3=6 combined rows, got %d", len(rows))
	}
	for _, r := range rows {
		if len(r.Values) != 2 {
			t.Fatalf("expected each TIMES row to carry both operands' columns, got %d", len(r.Values))
		}
	}
}

func TestRowKeyDistinguishesDifferentLengthValues(t *testing.T) {
	a := Row{Values: [][]byte{{1, 2}}}
	b := Row{Values: [][]byte{{1}, {2}}}
	if rowKey(a) == rowKey(b) {
		t.Fatalf("expected length-prefixed rowKey to distinguish %v from %v", a, b)
	}
}
