// Package schema holds the shared data-model types describing tables and
// their columns: the pieces every other package (pager, pagelayout, btree,
// planner, executor) needs to agree on without importing each other.
package schema

import "github.com/dstrohschein/miniql/src/codec"

// Field is a single typed column of a table.
type Field struct {
	// Identifier is the column name as it appears in query text.
	Identifier string

	// Type is the fixed-width scalar type stored on disk for this column.
	Type codec.Type

	// TableName is the owning table's name. The pager sets it when it
	// loads the file header; fields built by CREATE TABLE planning leave
	// it empty. The planner does not use it: resolved query columns carry
	// their table in planner.ResolvedField.Table.
	TableName string
}
