package planner

import (
	"testing"

	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/queryast"
	"github.com/dstrohschein/miniql/src/schema"
)

func testSchema() *schema.Schema {
	widgets := schema.TableSchema{
		Name: "widgets",
		Fields: []schema.Field{
			{Identifier: "id", Type: codec.Integer},
			{Identifier: "name", Type: codec.String},
		},
		KeyPosition: 0,
	}
	orders := schema.TableSchema{
		Name: "orders",
		Fields: []schema.Field{
			{Identifier: "id", Type: codec.Integer},
			{Identifier: "widget_id", Type: codec.Integer},
		},
		KeyPosition: 0,
	}
	return schema.FromTables([]schema.TableSchema{widgets, orders})
}

func TestBuildSimpleSelectStar(t *testing.T) {
	sq := &queryast.SingleQuery{
		Columns: []queryast.SelectItem{{Star: true}},
		Source:  &queryast.TableSource{Name: "widgets"},
	}
	stmt, err := Build(sq, testSchema())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	proj, ok := stmt.Query.(*Project)
	if !ok {
		t.Fatalf("expected *Project at the top, got %T", stmt.Query)
	}
	if len(proj.Fields) != 2 {
		t.Fatalf("expected 2 projected fields, got %d", len(proj.Fields))
	}
	if _, ok := proj.Source.(*SeqScan); !ok {
		t.Fatalf("expected *SeqScan beneath the projection, got %T", proj.Source)
	}
}

func TestBuildSelectUnknownTableFails(t *testing.T) {
	sq := &queryast.SingleQuery{
		Columns: []queryast.SelectItem{{Star: true}},
		Source:  &queryast.TableSource{Name: "missing"},
	}
	if _, err := Build(sq, testSchema()); err == nil {
		t.Fatalf("expected unknown table to fail")
	}
}

func TestBuildKeyEqualityUpgradesToUniqueScan(t *testing.T) {
	sq := &queryast.SingleQuery{
		Columns: []queryast.SelectItem{{Star: true}},
		Source:  &queryast.TableSource{Name: "widgets"},
		Where: []queryast.Condition{
			{Field: queryast.FieldRef{Field: "id"}, Operator: "=", Value: queryast.Literal{Text: "5"}},
		},
	}
	stmt, err := Build(sq, testSchema())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	proj := stmt.Query.(*Project)
	scan, ok := proj.Source.(*SeqScan)
	if !ok {
		t.Fatalf("expected the condition to fold into the SeqScan, got %T", proj.Source)
	}
	if scan.OpCode != SelectKeyUnique {
		t.Fatalf("expected SelectKeyUnique, got %v", scan.OpCode)
	}
	want, _ := codec.EncodeInteger(5)
	if string(scan.Low) != string(want) || string(scan.High) != string(want) {
		t.Fatalf("expected Low/High both pinned to the encoded literal")
	}
}

func TestBuildNonKeyConditionFoldsIntoScan(t *testing.T) {
	sq := &queryast.SingleQuery{
		Columns: []queryast.SelectItem{{Star: true}},
		Source:  &queryast.TableSource{Name: "widgets"},
		Where: []queryast.Condition{
			{Field: queryast.FieldRef{Field: "name"}, Operator: "=", Value: queryast.Literal{Text: "gizmo", IsString: true}},
		},
	}
	stmt, err := Build(sq, testSchema())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	proj := stmt.Query.(*Project)
	scan, ok := proj.Source.(*SeqScan)
	if !ok {
		t.Fatalf("expected the non-key condition to fold into the SeqScan, got %T", proj.Source)
	}
	if scan.OpCode != SelectFTS || len(scan.Conditions) != 1 {
		t.Fatalf("expected a full scan carrying the one condition, got %v with %d conditions", scan.OpCode, len(scan.Conditions))
	}
}

func TestBuildJoinOnClauseResolvesSides(t *testing.T) {
	sq := &queryast.SingleQuery{
		Columns: []queryast.SelectItem{{Star: true}},
		Source: &queryast.JoinSource{
			Left:     &queryast.TableSource{Name: "widgets"},
			Right:    &queryast.TableSource{Name: "orders"},
			JoinType: queryast.InnerJoin,
			On: []queryast.JoinCondition{
				{Left: queryast.FieldRef{Table: "widgets", Field: "id"}, Right: queryast.FieldRef{Table: "orders", Field: "widget_id"}},
			},
		},
	}
	stmt, err := Build(sq, testSchema())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	proj := stmt.Query.(*Project)
	join, ok := proj.Source.(*Join)
	if !ok {
		t.Fatalf("expected *Join, got %T", proj.Source)
	}
	if len(join.Pairs) != 1 {
		t.Fatalf("expected 1 join pair, got %d", len(join.Pairs))
	}
	if join.Pairs[0].Left.Name != "id" || join.Pairs[0].Right.Name != "widget_id" {
		t.Fatalf("unexpected join pair: %+v", join.Pairs[0])
	}
}

func TestBuildJoinSameSideConditionFails(t *testing.T) {
	sq := &queryast.SingleQuery{
		Columns: []queryast.SelectItem{{Star: true}},
		Source: &queryast.JoinSource{
			Left:     &queryast.TableSource{Name: "widgets"},
			Right:    &queryast.TableSource{Name: "orders"},
			JoinType: queryast.InnerJoin,
			On: []queryast.JoinCondition{
				{Left: queryast.FieldRef{Table: "widgets", Field: "id"}, Right: queryast.FieldRef{Table: "widgets", Field: "name"}},
			},
		},
	}
	if _, err := Build(sq, testSchema()); err == nil {
		t.Fatalf("expected a same-side join condition to fail")
	}
}

func TestBuildNaturalJoinFindsSharedColumn(t *testing.T) {
	sq := &queryast.SingleQuery{
		Columns: []queryast.SelectItem{{Star: true}},
		Source: &queryast.JoinSource{
			Left:     &queryast.TableSource{Name: "widgets"},
			Right:    &queryast.TableSource{Name: "orders"},
			JoinType: queryast.NaturalJoin,
		},
	}
	stmt, err := Build(sq, testSchema())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	proj := stmt.Query.(*Project)
	join := proj.Source.(*Join)
	if join.Pairs[0].Left.Name != "id" || join.Pairs[0].Right.Name != "id" {
		t.Fatalf("expected natural join to pair the shared id columns, got %+v", join.Pairs[0])
	}
}

func TestBuildSetOperationArityMismatchFails(t *testing.T) {
	so := &queryast.SetOperation{
		Op:   queryast.Union,
		Left: &queryast.SingleQuery{Columns: []queryast.SelectItem{{Table: "", Field: "id"}}, Source: &queryast.TableSource{Name: "widgets"}},
		Right: &queryast.SingleQuery{
			Columns: []queryast.SelectItem{{Star: true}},
			Source:  &queryast.TableSource{Name: "orders"},
		},
	}
	if _, err := Build(so, testSchema()); err == nil {
		t.Fatalf("expected mismatched column counts to fail for UNION")
	}
}

func TestBuildTimesAllowsArityMismatch(t *testing.T) {
	so := &queryast.SetOperation{
		Op:   queryast.Times,
		Left: &queryast.SingleQuery{Columns: []queryast.SelectItem{{Field: "id"}}, Source: &queryast.TableSource{Name: "widgets"}},
		Right: &queryast.SingleQuery{
			Columns: []queryast.SelectItem{{Star: true}},
			Source:  &queryast.TableSource{Name: "orders"},
		},
	}
	stmt, err := Build(so, testSchema())
	if err != nil {
		t.Fatalf("Build failed for TIMES with mismatched arity: %v", err)
	}
	setOp, ok := stmt.Query.(*SetOperation)
	if !ok {
		t.Fatalf("expected *SetOperation, got %T", stmt.Query)
	}
	if len(setOp.OutputFields()) != 1+2 {
		t.Fatalf("expected concatenated output schema of 3 fields, got %d", len(setOp.OutputFields()))
	}
}

func TestBuildInsertEncodesKeyAndRow(t *testing.T) {
	ins := &queryast.Insert{
		Table:   "widgets",
		Columns: []string{"id", "name"},
		Values: []queryast.Literal{
			{Text: "7"},
			{Text: "gizmo", IsString: true},
		},
	}
	stmt, err := Build(ins, testSchema())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if stmt.InsertInto == nil {
		t.Fatalf("expected InsertInto to be populated")
	}
	wantKey, _ := codec.EncodeInteger(7)
	if string(stmt.InsertInto.Key) != string(wantKey) {
		t.Fatalf("expected encoded key 7, got %v", stmt.InsertInto.Key)
	}
	wantRow := codec.EncodeString("gizmo")
	if string(stmt.InsertInto.Row) != string(wantRow) {
		t.Fatalf("expected encoded row gizmo")
	}
}

func TestBuildInsertColumnCountMismatchFails(t *testing.T) {
	ins := &queryast.Insert{
		Table:   "widgets",
		Columns: []string{"id"},
		Values:  []queryast.Literal{{Text: "7"}},
	}
	if _, err := Build(ins, testSchema()); err == nil {
		t.Fatalf("expected a partial column list to fail (table has 2 columns)")
	}
}

func TestBuildCreateTableDefaultsKeyToFirstColumn(t *testing.T) {
	ct := &queryast.CreateTable{
		Table: "gadgets",
		Columns: []queryast.ColumnDef{
			{Name: "id", Type: "Integer"},
			{Name: "label", Type: "String"},
		},
	}
	stmt, err := Build(ct, testSchema())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if stmt.CreateTable.Table.KeyPosition != 0 {
		t.Fatalf("expected key position 0 by default, got %d", stmt.CreateTable.Table.KeyPosition)
	}
}

func TestBuildCreateTableExplicitPrimaryKey(t *testing.T) {
	ct := &queryast.CreateTable{
		Table: "gadgets",
		Columns: []queryast.ColumnDef{
			{Name: "label", Type: "String"},
			{Name: "id", Type: "Integer", PrimaryKey: true},
		},
	}
	stmt, err := Build(ct, testSchema())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if stmt.CreateTable.Table.KeyPosition != 1 {
		t.Fatalf("expected key position 1, got %d", stmt.CreateTable.Table.KeyPosition)
	}
}

func TestBuildCreateTableRejectsDoublePrimaryKey(t *testing.T) {
	ct := &queryast.CreateTable{
		Table: "gadgets",
		Columns: []queryast.ColumnDef{
			{Name: "a", Type: "Integer", PrimaryKey: true},
			{Name: "b", Type: "Integer", PrimaryKey: true},
		},
	}
	if _, err := Build(ct, testSchema()); err == nil {
		t.Fatalf("expected two PRIMARY KEY columns to fail")
	}
}

func TestBuildDropTable(t *testing.T) {
	stmt, err := Build(&queryast.DropTable{Table: "widgets"}, testSchema())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if stmt.DropTable.Table != "widgets" {
		t.Fatalf("expected widgets, got %q", stmt.DropTable.Table)
	}
}

func TestBuildDeleteUpgradesKeyCondition(t *testing.T) {
	del := &queryast.Delete{
		Table: "widgets",
		Where: []queryast.Condition{
			{Field: queryast.FieldRef{Field: "id"}, Operator: "=", Value: queryast.Literal{Text: "3"}},
		},
	}
	stmt, err := Build(del, testSchema())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	scan := stmt.DeleteFrom.Scan.(*SeqScan)
	if scan.OpCode != SelectKeyUnique {
		t.Fatalf("expected SelectKeyUnique, got %v", scan.OpCode)
	}
}

func TestBuildAmbiguousColumnFails(t *testing.T) {
	sq := &queryast.SingleQuery{
		Columns: []queryast.SelectItem{{Field: "id"}},
		Source: &queryast.JoinSource{
			Left:     &queryast.TableSource{Name: "widgets"},
			Right:    &queryast.TableSource{Name: "orders"},
			JoinType: queryast.InnerJoin,
			On: []queryast.JoinCondition{
				{Left: queryast.FieldRef{Table: "widgets", Field: "id"}, Right: queryast.FieldRef{Table: "orders", Field: "widget_id"}},
			},
		},
	}
	if _, err := Build(sq, testSchema()); err == nil {
		t.Fatalf("expected an unqualified, ambiguous id reference to fail")
	}
}
