package executor

import (
	"fmt"

	"github.com/dstrohschein/miniql/src/planner"
)

func (e *Executor) runInsert(plan *planner.InsertPlan) (*QueryResult, error) {
	bt, err := e.tree(plan.Table)
	if err != nil {
		return nil, err
	}

	// btree.Insert treats any existing key — live or tombed — as an
	// integrity violation and reports it internally; a duplicate
	// primary key is user input, so it's checked and surfaced here
	// instead of letting that internal error propagate.
	_, found, err := bt.Find(plan.Key)
	if err != nil {
		return nil, err
	}
	if found {
		return &QueryResult{Success: false, Message: fmt.Sprintf("duplicate key on table %q", plan.Table)}, nil
	}

	if err := bt.Insert(plan.Key, plan.Row); err != nil {
		return nil, err
	}
	return &QueryResult{Success: true, Message: "1 row inserted"}, nil
}

func (e *Executor) runCreateTable(plan *planner.CreateTablePlan) (*QueryResult, error) {
	if err := e.pager.AddTable(plan.Table); err != nil {
		return &QueryResult{Success: false, Message: err.Error()}, nil
	}
	return &QueryResult{Success: true, Message: fmt.Sprintf("table %q created", plan.Table.Name)}, nil
}

func (e *Executor) runDropTable(plan *planner.DropTablePlan) (*QueryResult, error) {
	if err := e.pager.DropTable(plan.Table); err != nil {
		return &QueryResult{Success: false, Message: err.Error()}, nil
	}
	delete(e.trees, plan.Table)
	return &QueryResult{Success: true, Message: fmt.Sprintf("table %q dropped", plan.Table)}, nil
}

// runDelete drains the scan's matching rows and tombs each one. A tomb
// that leaves its node underflowing triggers the btree's own physical
// rebalancing, per spec.md §4.3's "tomb-bit then maybe-rebalance"
// delete model (kept as two steps in btree itself: MarkTomb reports the
// underflow, Delete is the CLRS rebalancer the caller invokes on it).
func (e *Executor) runDelete(plan *planner.DeletePlan) (*QueryResult, error) {
	table, err := e.pager.Table(plan.Table)
	if err != nil {
		return nil, err
	}
	bt, err := e.tree(plan.Table)
	if err != nil {
		return nil, err
	}

	iter, err := e.build(plan.Scan)
	if err != nil {
		return nil, err
	}

	var keys [][]byte
	for {
		row, ok, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		keys = append(keys, row.Values[table.KeyPosition])
	}

	deleted := 0
	for _, key := range keys {
		underflowed, err := bt.MarkTomb(key)
		if err != nil {
			return nil, err
		}
		deleted++
		if underflowed {
			if err := bt.Delete(key); err != nil {
				return nil, err
			}
			// MarkTomb already took this row off EntryCount; undo the
			// second decrement Delete makes for the same row.
			table.EntryCount++
		}
	}

	return &QueryResult{Success: true, Message: fmt.Sprintf("%d row(s) deleted", deleted)}, nil
}
