// Package executor runs a planner.Statement against the pager: SELECT-
// shaped statements become a pull-based iterator tree (every
// planner.Node becomes something exposing Next/Reset), while
// Insert/CreateTable/DropTable/Delete are executed directly against the
// pager and btree.
package executor

import "github.com/dstrohschein/miniql/src/planner"

// Row is one output row: the column values in the order named by the
// owning DataFrame's Fields.
type Row struct {
	Values [][]byte
}

// DataFrame is a query's tabular result: either an already-materialized
// batch (a SetOperation's output, or anything an Iterator has been fully
// drained into) or a lazy, iterator-backed source a caller pulls from
// directly via Next.
type DataFrame struct {
	Fields []planner.ResolvedField
	Rows   []Row
	iter   Iterator
}

// Next pulls the next row, preferring a live iterator over a
// pre-materialized batch's remaining Rows.
func (d *DataFrame) Next() (Row, bool, error) {
	if d.iter != nil {
		return d.iter.Next()
	}
	if len(d.Rows) == 0 {
		return Row{}, false, nil
	}
	row := d.Rows[0]
	d.Rows = d.Rows[1:]
	return row, true, nil
}

// Materialize drains the DataFrame and returns every remaining row as
// a []Row slice, for a caller (e.g. a REPL printer) that just wants
// everything at once. It does not store the rows back into d.Rows.
func (d *DataFrame) Materialize() ([]Row, error) {
	var out []Row
	for {
		row, ok, err := d.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, row)
	}
	return out, nil
}

// QueryResult is what Executor.Run / engine.Engine.Execute returns.
type QueryResult struct {
	Success bool
	Data    *DataFrame
	Message string
}
