package schema

import (
	"testing"

	"github.com/dstrohschein/miniql/src/codec"
)

func widgetTable() TableSchema {
	return TableSchema{
		Name: "widgets",
		Fields: []Field{
			{Identifier: "id", Type: codec.Integer},
			{Identifier: "name", Type: codec.String},
			{Identifier: "active", Type: codec.Boolean},
		},
		KeyPosition: 0,
	}
}

func TestAddAndLookupTable(t *testing.T) {
	s := NewSchema()
	if err := s.AddTable(widgetTable()); err != nil {
		t.Fatalf("AddTable failed: %v", err)
	}
	if !s.HasTable("widgets") {
		t.Fatalf("expected widgets to be registered")
	}
	got, err := s.Table("widgets")
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if got.Name != "widgets" {
		t.Fatalf("expected widgets, got %q", got.Name)
	}
}

func TestAddTableRejectsDuplicate(t *testing.T) {
	s := NewSchema()
	if err := s.AddTable(widgetTable()); err != nil {
		t.Fatalf("AddTable failed: %v", err)
	}
	if err := s.AddTable(widgetTable()); err != ErrDuplicateTable {
		t.Fatalf("expected ErrDuplicateTable, got %v", err)
	}
}

func TestTableUnknownFails(t *testing.T) {
	s := NewSchema()
	if _, err := s.Table("missing"); err != ErrUnknownTable {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestDropTableRemovesAndReindexes(t *testing.T) {
	s := NewSchema()
	if err := s.AddTable(widgetTable()); err != nil {
		t.Fatalf("AddTable failed: %v", err)
	}
	other := widgetTable()
	other.Name = "gadgets"
	if err := s.AddTable(other); err != nil {
		t.Fatalf("AddTable failed: %v", err)
	}

	if err := s.DropTable("widgets"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	if s.HasTable("widgets") {
		t.Fatalf("expected widgets to be gone")
	}
	if !s.HasTable("gadgets") {
		t.Fatalf("expected gadgets to survive the drop")
	}

	if err := s.DropTable("widgets"); err != ErrUnknownTable {
		t.Fatalf("expected ErrUnknownTable dropping twice, got %v", err)
	}
}

func TestFromTablesBuildsIndex(t *testing.T) {
	s := FromTables([]TableSchema{widgetTable()})
	if !s.HasTable("widgets") {
		t.Fatalf("expected FromTables to index the given tables")
	}
}

func TestKeyFieldAndLengths(t *testing.T) {
	table := widgetTable()

	kf, err := table.KeyField()
	if err != nil {
		t.Fatalf("KeyField failed: %v", err)
	}
	if kf.Identifier != "id" {
		t.Fatalf("expected key field id, got %q", kf.Identifier)
	}

	keyLen, err := table.KeyLength()
	if err != nil {
		t.Fatalf("KeyLength failed: %v", err)
	}
	if keyLen != codec.IntegerSize {
		t.Fatalf("expected key length %d, got %d", codec.IntegerSize, keyLen)
	}

	rowLen, err := table.RowLength()
	if err != nil {
		t.Fatalf("RowLength failed: %v", err)
	}
	wantRow := codec.StringSize + codec.BooleanSize
	if rowLen != wantRow {
		t.Fatalf("expected row length %d, got %d", wantRow, rowLen)
	}

	total, err := table.KeyAndRowLength()
	if err != nil {
		t.Fatalf("KeyAndRowLength failed: %v", err)
	}
	if total != keyLen+rowLen {
		t.Fatalf("expected total %d, got %d", keyLen+rowLen, total)
	}

	if table.ColumnCount() != len(table.Fields)-1 {
		t.Fatalf("expected column count %d, got %d", len(table.Fields)-1, table.ColumnCount())
	}
}

func TestKeyFieldRejectsEmptyFields(t *testing.T) {
	table := TableSchema{Name: "empty"}
	if _, err := table.KeyField(); err != ErrEmptyFields {
		t.Fatalf("expected ErrEmptyFields, got %v", err)
	}
}

func TestKeyFieldRejectsOutOfRangePosition(t *testing.T) {
	table := widgetTable()
	table.KeyPosition = 99
	if _, err := table.KeyField(); err != ErrKeyPositionRange {
		t.Fatalf("expected ErrKeyPositionRange, got %v", err)
	}
}

func TestFieldIndex(t *testing.T) {
	table := widgetTable()
	if i := table.FieldIndex("name"); i != 1 {
		t.Fatalf("expected index 1 for name, got %d", i)
	}
	if i := table.FieldIndex("nonexistent"); i != -1 {
		t.Fatalf("expected -1 for unknown field, got %d", i)
	}
}
