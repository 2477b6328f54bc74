// Package codecerr defines the failure kinds of the codec engine and the
// bridges. Each engine failure carries a Kind so callers (and the policy
// flags in the engine) can distinguish recoverable conditions from hard ones.
package codecerr

import (
	"errors"
	"fmt"
)

// Kind categorizes errors
type Kind string

const (
	// KindUnexpectedNull is returned when serializing a nil value with the
	// corresponding policy flag enabled.
	KindUnexpectedNull Kind = "unexpected_null"
	// KindUnexpectedCollection is returned when a sequence or record was
	// expected but something else was found, or vice versa.
	KindUnexpectedCollection Kind = "unexpected_collection"
	// KindSpuriousField is returned for an input record key that matches no
	// field of the target type.
	KindSpuriousField Kind = "spurious_field"
	// KindUnknownType is returned when an embedded type name cannot be
	// resolved by the registry.
	KindUnknownType Kind = "unknown_type"
	// KindUnconstructibleType is returned when no factory, no default
	// construction path, and no array-like allocation applies. Never gated.
	KindUnconstructibleType Kind = "unconstructible_type"
	// KindNotAStruct is returned when a struct-like target is fed a
	// non-record value. Never gated.
	KindNotAStruct Kind = "not_a_struct"
	// KindParse covers failures converting source text into the value tree.
	KindParse Kind = "parse"
	// KindEncode covers failures converting the value tree into output bytes.
	KindEncode Kind = "encode"
)

// Error is a codec error with a kind and optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by kind, so policy tests can compare against a bare
// kind-constructed error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is (or wraps) a codec error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case KindUnexpectedNull:
			return fmt.Sprintf("Null value error: %s", ce.Message)
		case KindUnexpectedCollection:
			return fmt.Sprintf("Collection mismatch: %s", ce.Message)
		case KindSpuriousField:
			return fmt.Sprintf("Unknown field: %s", ce.Message)
		case KindUnknownType:
			return fmt.Sprintf("Unknown type: %s", ce.Message)
		case KindUnconstructibleType:
			return fmt.Sprintf("Cannot construct type: %s", ce.Message)
		case KindNotAStruct:
			return fmt.Sprintf("Structured value expected: %s", ce.Message)
		case KindParse:
			return fmt.Sprintf("Parse error: %s", ce.Message)
		case KindEncode:
			return fmt.Sprintf("Encode error: %s", ce.Message)
		}
	}
	return fmt.Sprintf("Error: %v", err)
}
