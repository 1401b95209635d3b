// Package status carries the engine's two-category error model: a closed
// set of status codes, mirroring the original engine's status enum, and
// an InternalError type that wraps one of them. User-visible failures
// don't need this package — they're plain errors folded into a failed
// QueryResult — but anything that signals corruption or a programming
// bug is represented here so it can propagate verbatim to the caller.
package status

// Status is a closed set of outcome codes. The "Exception*" codes without
// "Internal" in the name are the ones occasionally worth showing a user
// (e.g. file-not-found at open); everything prefixed InternalException
// indicates a bug or on-disk corruption and should never be triggered by
// well-formed input.
type Status int

const (
	Success Status = iota
	ExceptionSchemaUnclear
	ExceptionFileNotFoundOrPermissionDenied
	ExceptionQueryMisformed

	InternalExceptionTypeMismatch
	InternalExceptionIndexOutOfRange
	InternalExceptionFileNotFound
	InternalExceptionReadFailed
	InternalExceptionWriteFailed
	InternalExceptionInvalidFieldType
	InternalExceptionInvalidSchema
	InternalExceptionInvalidFieldName
	InternalExceptionInvalidFieldValue
	InternalExceptionKeyNotFound
	InternalExceptionInvalidRowLength
	InternalExceptionInvalidColCount
	InternalExceptionPagerMismatch
	InternalExceptionNoRoot
	InternalExceptionCacheDenied
	InternalExceptionIntegrityCheckFailed
	InternalExceptionUnimplemented
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case ExceptionSchemaUnclear:
		return "ExceptionSchemaUnclear"
	case ExceptionFileNotFoundOrPermissionDenied:
		return "ExceptionFileNotFoundOrPermissionDenied"
	case ExceptionQueryMisformed:
		return "ExceptionQueryMisformed"
	case InternalExceptionTypeMismatch:
		return "InternalExceptionTypeMismatch"
	case InternalExceptionIndexOutOfRange:
		return "InternalExceptionIndexOutOfRange"
	case InternalExceptionFileNotFound:
		return "InternalExceptionFileNotFound"
	case InternalExceptionReadFailed:
		return "InternalExceptionReadFailed"
	case InternalExceptionWriteFailed:
		return "InternalExceptionWriteFailed"
	case InternalExceptionInvalidFieldType:
		return "InternalExceptionInvalidFieldType"
	case InternalExceptionInvalidSchema:
		return "InternalExceptionInvalidSchema"
	case InternalExceptionInvalidFieldName:
		return "InternalExceptionInvalidFieldName"
	case InternalExceptionInvalidFieldValue:
		return "InternalExceptionInvalidFieldValue"
	case InternalExceptionKeyNotFound:
		return "InternalExceptionKeyNotFound"
	case InternalExceptionInvalidRowLength:
		return "InternalExceptionInvalidRowLength"
	case InternalExceptionInvalidColCount:
		return "InternalExceptionInvalidColCount"
	case InternalExceptionPagerMismatch:
		return "InternalExceptionPagerMismatch"
	case InternalExceptionNoRoot:
		return "InternalExceptionNoRoot"
	case InternalExceptionCacheDenied:
		return "InternalExceptionCacheDenied"
	case InternalExceptionIntegrityCheckFailed:
		return "InternalExceptionIntegrityCheckFailed"
	case InternalExceptionUnimplemented:
		return "InternalExceptionUnimplemented"
	default:
		return "Unknown"
	}
}

// InternalError wraps a Status code with a message. It is never
// swallowed: every layer that receives one must propagate it verbatim to
// its own caller rather than recovering from it.
type InternalError struct {
	Code    Status
	Message string
}

func New(code Status, message string) *InternalError {
	return &InternalError{Code: code, Message: message}
}

func (e *InternalError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Message
}

// Is lets errors.Is match on the wrapped Status alone, so callers can
// write `errors.Is(err, status.New(status.InternalExceptionKeyNotFound, ""))`-
// style checks without matching on Message.
func (e *InternalError) Is(target error) bool {
	other, ok := target.(*InternalError)
	if !ok {
		return false
	}
	return other.Code == e.Code
}
