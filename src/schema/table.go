package schema

import "github.com/dstrohschein/miniql/src/codec"

// TableKind distinguishes an ordinary table from the reserved kinds the
// original carried (e.g. a future system catalog table); only Ordinary is
// produced by this implementation's CREATE TABLE path today.
type TableKind uint8

const (
	Ordinary TableKind = iota
	System
)

// TableSchema describes one table: its column list, which column is the
// primary key, and the B-tree root this table's rows live under.
type TableSchema struct {
	// Name is the table's identifier, unique within a Schema.
	Name string

	// Fields is the table's column list, in declaration order. The key
	// column is one of these, referenced by KeyPosition, not split out.
	Fields []Field

	// KeyPosition is the index into Fields of the primary key column: the
	// column marked PRIMARY KEY on CREATE TABLE, or the first field
	// declared when no column is marked.
	KeyPosition int

	// Root is the Position of the table's B-tree root page. NoPosition
	// means the table has no rows yet (an empty tree).
	Root Position

	// NextPosition records the page Position following this table's
	// latest page allocation. It is persisted in the header but does not
	// drive allocation, which uses the pager-wide next-free-page counter.
	NextPosition Position

	// Kind distinguishes ordinary user tables from reserved system kinds.
	Kind TableKind

	// EntryCount is the number of live (non-tombstoned) rows, maintained
	// incrementally by insert/delete rather than recomputed by a scan.
	EntryCount int32
}

// KeyField returns the table's primary key column.
func (t *TableSchema) KeyField() (Field, error) {
	if len(t.Fields) == 0 {
		return Field{}, ErrEmptyFields
	}
	if t.KeyPosition < 0 || t.KeyPosition >= len(t.Fields) {
		return Field{}, ErrKeyPositionRange
	}
	return t.Fields[t.KeyPosition], nil
}

// KeyLength returns the fixed encoded width of the primary key column.
func (t *TableSchema) KeyLength() (int, error) {
	f, err := t.KeyField()
	if err != nil {
		return 0, err
	}
	return codec.SizeOf(f.Type)
}

// RowLength returns the fixed encoded width of a row's non-key columns,
// i.e. everything stored in a cell's data region alongside the key.
func (t *TableSchema) RowLength() (int, error) {
	if len(t.Fields) == 0 {
		return 0, ErrEmptyFields
	}
	total := 0
	for i, f := range t.Fields {
		if i == t.KeyPosition {
			continue
		}
		n, err := codec.SizeOf(f.Type)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// KeyAndRowLength returns the width of every column (key plus row),
// which is the total width of one encoded cell.
func (t *TableSchema) KeyAndRowLength() (int, error) {
	total := 0
	for _, f := range t.Fields {
		n, err := codec.SizeOf(f.Type)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// ColumnCount returns the number of non-key columns, matching
// get_col_count's `fields.len() - 1` in the original schema.
func (t *TableSchema) ColumnCount() int {
	return len(t.Fields) - 1
}

// FieldIndex returns the index of the named column, or -1 if absent.
func (t *TableSchema) FieldIndex(identifier string) int {
	for i, f := range t.Fields {
		if f.Identifier == identifier {
			return i
		}
	}
	return -1
}
