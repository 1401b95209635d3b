package executor

import (
	"fmt"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/pager"
	"github.com/dstrohschein/miniql/src/planner"
	"github.com/dstrohschein/miniql/src/schema"
)

func setupTestDDL(t *testing.T) (*Executor, *pager.Accessor, func()) {
	t.Helper()
	path := fmt.Sprintf("/tmp/miniql-executor-ddl-test-%d.db", os.Getpid())
	os.Remove(path)
	log := zap.NewNop().Sugar()

	p, err := pager.Create(path, 3, log)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := p.AddTable(itemsTable()); err != nil {
		t.Fatalf("AddTable failed: %v", err)
	}

	e := New(p, log)
	return e, p, func() {
		p.Close()
		os.Remove(path)
	}
}

func TestRunInsertAddsRow(t *testing.T) {
	e, _, cleanup := setupTestDDL(t)
	defer cleanup()

	key, _ := codec.EncodeInteger(1)
	row := codec.EncodeString("row")
	res, err := e.runInsert(&planner.InsertPlan{Table: "items", Key: key, Row: row})
	if err != nil {
		t.Fatalf("runInsert failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected successful insert, got %q", res.Message)
	}
}

func TestRunInsertDuplicateKeyIsUserError(t *testing.T) {
	e, _, cleanup := setupTestDDL(t)
	defer cleanup()

	key, _ := codec.EncodeInteger(1)
	row := codec.EncodeString("row")
	if _, err := e.runInsert(&planner.InsertPlan{Table: "items", Key: key, Row: row}); err != nil {
		t.Fatalf("first runInsert failed: %v", err)
	}

	res, err := e.runInsert(&planner.InsertPlan{Table: "items", Key: key, Row: row})
	if err != nil {
		t.Fatalf("expected duplicate key to surface as a QueryResult, not a Go error: %v", err)
	}
	if res.Success {
		t.Fatalf("expected duplicate key insert to fail")
	}
}

func TestRunCreateTableRegistersSchema(t *testing.T) {
	e, p, cleanup := setupTestDDL(t)
	defer cleanup()

	newTable := schema.TableSchema{
		Name: "widgets",
		Fields: []schema.Field{
			{Identifier: "id", Type: codec.Integer},
		},
		KeyPosition: 0,
	}
	res, err := e.runCreateTable(&planner.CreateTablePlan{Table: newTable})
	if err != nil {
		t.Fatalf("runCreateTable failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected successful create, got %q", res.Message)
	}
	if !p.Schema().HasTable("widgets") {
		t.Fatalf("expected widgets to be registered in the pager's schema")
	}
}

func TestRunCreateTableDuplicateNameIsUserError(t *testing.T) {
	e, _, cleanup := setupTestDDL(t)
	defer cleanup()

	res, err := e.runCreateTable(&planner.CreateTablePlan{Table: itemsTable()})
	if err != nil {
		t.Fatalf("expected a duplicate table name to surface as a QueryResult, not a Go error: %v", err)
	}
	if res.Success {
		t.Fatalf("expected creating an already-existing table to fail")
	}
}

func TestRunDropTableRemovesSchemaAndCachedTree(t *testing.T) {
	e, p, cleanup := setupTestDDL(t)
	defer cleanup()

	if _, err := e.tree("items"); err != nil {
		t.Fatalf("tree failed: %v", err)
	}
	if _, ok := e.trees["items"]; !ok {
		t.Fatalf("expected items tree to be cached before drop")
	}

	res, err := e.runDropTable(&planner.DropTablePlan{Table: "items"})
	if err != nil {
		t.Fatalf("runDropTable failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected successful drop, got %q", res.Message)
	}
	if p.Schema().HasTable("items") {
		t.Fatalf("expected items to be gone from the pager's schema")
	}
	if _, ok := e.trees["items"]; ok {
		t.Fatalf("expected the cached tree entry to be evicted on drop")
	}
}

func TestRunDeleteTombsMatchingRows(t *testing.T) {
	e, _, cleanup := setupTestDDL(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		key, _ := codec.EncodeInteger(uint32(i))
		row := codec.EncodeString("row")
		if _, err := e.runInsert(&planner.InsertPlan{Table: "items", Key: key, Row: row}); err != nil {
			t.Fatalf("runInsert failed: %v", err)
		}
	}

	scan := &planner.SeqScan{
		TableID: "items",
		OpCode:  planner.SelectFTS,
		Fields: []planner.ResolvedField{
			{Table: "items", Name: "id", Type: codec.Integer, Index: 0, IsKey: true},
			{Table: "items", Name: "name", Type: codec.String, Index: 1},
		},
	}
	res, err := e.runDelete(&planner.DeletePlan{Table: "items", Scan: scan})
	if err != nil {
		t.Fatalf("runDelete failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected successful delete, got %q", res.Message)
	}

	it, err := e.buildSeqScan(scan)
	if err != nil {
		t.Fatalf("buildSeqScan failed: %v", err)
	}
	rows := collect(t, it)
	if len(rows) != 0 {
		t.Fatalf("expected all 3 rows to be tombed out of a fresh scan, got %d", len(rows))
	}
}
