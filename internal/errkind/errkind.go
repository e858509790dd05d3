// Package errkind flattens the hierarchical-exception taxonomy of §7 into a
// tag plus a message, the way the teacher flattens format-detection
// failures into sentinel errors (parser.ErrFileEmpty, parser.ErrBinaryFile,
// ...) instead of a class hierarchy. The HTTP layer maps Kind to a status
// code in one table (internal/httpapi).
package errkind

import "fmt"

// Kind is a coarse category, not a Go error type — errors.Is/As still work
// against the wrapped cause.
type Kind string

const (
	Validation Kind = "VALIDATION"
	NotFound   Kind = "NOT_FOUND"
	TooLarge   Kind = "TOO_LARGE"
	Storage    Kind = "STORAGE"
	Internal   Kind = "INTERNAL"
)

// Error pairs a Kind with a message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if asError(err, &e) {
		return e.Kind
	}
	return Internal
}

// asError is a tiny local errors.As to avoid importing errors for one call
// site, matching the teacher's preference for minimal, explicit helpers.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
