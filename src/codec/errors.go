package codec

import "errors"

// Parse failures are user-visible: a literal in a query didn't match its
// declared field type.
var (
	ErrCannotParseInteger = errors.New("codec: cannot parse integer literal")
	ErrCannotParseDate    = errors.New("codec: cannot parse date literal")
	ErrCannotParseBoolean = errors.New("codec: cannot parse boolean literal")
	ErrIllegalDate        = errors.New("codec: illegal calendar date")
)

// ErrTypeMismatch is internal: a caller handed encode/compare bytes of the
// wrong width for the declared type. This never happens from well-formed
// user input — it signals a bug in the planner or page layout.
var ErrTypeMismatch = errors.New("codec: internal type/width mismatch")
