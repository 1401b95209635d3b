package executor

import (
	"go.uber.org/zap"

	"github.com/dstrohschein/miniql/src/btree"
	"github.com/dstrohschein/miniql/src/pager"
	"github.com/dstrohschein/miniql/src/planner"
)

// Executor runs a compiled planner.Statement against one open pager,
// caching the btree.BTree facade it opens per table so a multi-join
// query or a long-lived engine doesn't reopen the same tree repeatedly.
type Executor struct {
	pager *pager.Accessor
	log   *zap.SugaredLogger
	trees map[string]*btree.BTree
}

// New returns an Executor over p. log may be nil, in which case a no-op
// logger is used.
func New(p *pager.Accessor, log *zap.SugaredLogger) *Executor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Executor{pager: p, log: log, trees: map[string]*btree.BTree{}}
}

func (e *Executor) tree(tableName string) (*btree.BTree, error) {
	if bt, ok := e.trees[tableName]; ok {
		return bt, nil
	}
	bt, err := btree.Open(e.pager, tableName, e.log)
	if err != nil {
		return nil, err
	}
	e.trees[tableName] = bt
	return bt, nil
}

// Run executes stmt. Exactly one of its compiled forms (a readable
// Query, or one of InsertInto/CreateTable/DropTable/DeleteFrom) is set,
// matching how planner.Build produces a Statement.
func (e *Executor) Run(stmt *planner.Statement) (*QueryResult, error) {
	switch {
	case stmt.Query != nil:
		return e.runQuery(stmt.Query)
	case stmt.InsertInto != nil:
		return e.runInsert(stmt.InsertInto)
	case stmt.CreateTable != nil:
		return e.runCreateTable(stmt.CreateTable)
	case stmt.DropTable != nil:
		return e.runDropTable(stmt.DropTable)
	case stmt.DeleteFrom != nil:
		return e.runDelete(stmt.DeleteFrom)
	default:
		return &QueryResult{Success: false, Message: "empty statement"}, nil
	}
}

func (e *Executor) runQuery(n planner.Node) (*QueryResult, error) {
	iter, err := e.build(n)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Success: true, Data: &DataFrame{Fields: n.OutputFields(), iter: iter}}, nil
}
