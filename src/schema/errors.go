package schema

import "errors"

// These are internal: they signal a corrupt on-disk header or a planner
// bug, never a user-facing query mistake.
var (
	ErrMalformedPosition = errors.New("schema: malformed position bytes")
	ErrEmptyFields       = errors.New("schema: table has no fields")
	ErrKeyPositionRange  = errors.New("schema: key position out of range")
	ErrUnknownTable      = errors.New("schema: unknown table")
	ErrDuplicateTable    = errors.New("schema: duplicate table name")
)
