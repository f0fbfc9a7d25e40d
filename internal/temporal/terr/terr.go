// Package terr defines the small error taxonomy shared by every package
// under internal/temporal, internal/agg, and internal/index. It replaces the
// longjmp-based error model of the original C core with explicit, wrapped
// Go errors, the way models.ErrOutOfRange and models.ErrInvalidWalkID do it
// one level up in the service layer.
package terr

import "fmt"

// Kind classifies a core error so callers can branch on it without string
// matching.
type Kind int

const (
	// InvalidArgType marks a mixed/unsupported base-type combination, e.g.
	// comparing text against a timestamp.
	InvalidArgType Kind = iota
	// InvalidArgValue marks a domain violation: division by zero, an empty
	// geometry, an unknown GiST strategy, a geodetic positional predicate.
	InvalidArgValue
	// MemoryAllocError marks a capacity ceiling reached during a skiplist
	// splice.
	MemoryAllocError
	// InternalError marks an unreachable branch or a bound-comparison
	// failure: a programming error, not a bad input.
	InternalError
	// OperationCancelled marks a long-running operation that observed a
	// cancel flag and unwound without returning a partial result.
	OperationCancelled
)

func (k Kind) String() string {
	switch k {
	case InvalidArgType:
		return "INVALID_ARG_TYPE"
	case InvalidArgValue:
		return "INVALID_ARG_VALUE"
	case MemoryAllocError:
		return "MEMORY_ALLOC_ERROR"
	case InternalError:
		return "INTERNAL_ERROR"
	case OperationCancelled:
		return "OPERATION_CANCELLED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is the concrete error type returned by every fallible core entry
// point. It carries a Kind so callers can test with errors.As, and a
// message describing the specific violation.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New constructs an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is itself a *Error of the given Kind; a wrapped
// error is not unwrapped.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}
