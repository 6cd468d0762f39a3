// Package errs implements the closed error taxonomy described in spec §6
// ("Error surface") and §7 ("Error handling design"). Every user-visible
// error in the system is a *Error with one of the Kind values below;
// subsystem boundaries wrap the cause with github.com/pkg/errors so the
// originating stack is preserved without replacing the Kind.
package errs

import (
	"fmt"

	"github.com/arbor-lang/arbor/internal/diagnostics"
	"github.com/pkg/errors"
)

// Kind enumerates the closed set of error kinds from spec §6.
type Kind int

const (
	// SyntaxError: parse failed or contained error nodes.
	SyntaxError Kind = iota
	// UnsupportedFeature: a construct outside the supported subset.
	UnsupportedFeature
	// IncludeError: file-include resolution failed.
	IncludeError
	// VmError: runtime failure (type, bounds, arithmetic, stack, domain, cancelled).
	VmError
	// DispatchError: no-method or ambiguous-method resolution.
	DispatchError
)

func (k Kind) String() string {
	switch k {
	case SyntaxError:
		return "SyntaxError"
	case UnsupportedFeature:
		return "UnsupportedFeature"
	case IncludeError:
		return "IncludeError"
	case VmError:
		return "VmError"
	case DispatchError:
		return "DispatchError"
	default:
		return "UnknownError"
	}
}

// VmErrorReason refines VmError per spec §7: "type mismatches, stack
// underflow, index-out-of-bounds (array + tuple), domain errors (negative
// sleep, negative sqrt on real), and cancellation".
type VmErrorReason int

const (
	ReasonNone VmErrorReason = iota
	ReasonTypeMismatch
	ReasonStackUnderflow
	ReasonIndexOutOfBounds
	ReasonDomain
	ReasonCancelled
	ReasonUnhandledException
)

func (r VmErrorReason) String() string {
	switch r {
	case ReasonTypeMismatch:
		return "type-mismatch"
	case ReasonStackUnderflow:
		return "stack-underflow"
	case ReasonIndexOutOfBounds:
		return "index-out-of-bounds"
	case ReasonDomain:
		return "domain-error"
	case ReasonCancelled:
		return "cancelled"
	case ReasonUnhandledException:
		return "unhandled-exception"
	default:
		return "none"
	}
}

// Error is the single closed error type implementing every Kind in spec §6.
// Formatting is stable and span-qualified (spec §7: "All user-visible
// errors include a span if any; formatting is stable and testable").
type Error struct {
	Kind    Kind
	Reason  VmErrorReason // only meaningful when Kind == VmError
	Span    diagnostics.Span
	Message string
	Hint    string
	cause   error
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Kind == VmError && e.Reason != ReasonNone {
		prefix = fmt.Sprintf("%s(%s)", prefix, e.Reason)
	}
	if e.Span.Line != 0 {
		return fmt.Sprintf("%s at %s: %s", prefix, e.Span, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New constructs a bare *Error of the given kind.
func New(kind Kind, span diagnostics.Span, message string) *Error {
	return &Error{Kind: kind, Span: span, Message: message}
}

// Wrap attaches cause to a new *Error of the given kind, via pkg/errors so
// the original stack trace is retrievable with errors.Cause.
func Wrap(cause error, kind Kind, span diagnostics.Span, message string) *Error {
	return &Error{Kind: kind, Span: span, Message: message, cause: errors.Wrap(cause, message)}
}

// WithHint returns a copy of e carrying an additional remediation hint.
func (e *Error) WithHint(hint string) *Error {
	c := *e
	c.Hint = hint
	return &c
}

// Syntax builds a SyntaxError, matching ParseFailed/ErrorNodes from spec §6.
func Syntax(span diagnostics.Span, message string) *Error {
	return New(SyntaxError, span, message)
}

// Unsupported builds an UnsupportedFeature error.
func Unsupported(span diagnostics.Span, message string) *Error {
	return New(UnsupportedFeature, span, message)
}

// Include builds an IncludeError, e.g. for circular includes (spec §7).
func Include(span diagnostics.Span, message string) *Error {
	return New(IncludeError, span, message)
}

// Vm builds a VmError with the given reason.
func Vm(reason VmErrorReason, span diagnostics.Span, message string) *Error {
	return &Error{Kind: VmError, Reason: reason, Span: span, Message: message}
}

// Cancelled is the distinguished VmError raised when the cancellation flag
// is observed (spec §5).
func Cancelled(span diagnostics.Span) *Error {
	return Vm(ReasonCancelled, span, "execution cancelled")
}

// Dispatch builds a DispatchError. ambiguous distinguishes the two cases
// spec §7 calls out: "no-method (no applicable signature) from ambiguous
// (multiple maximally-specific)".
func Dispatch(ambiguous bool, span diagnostics.Span, message string) *Error {
	e := New(DispatchError, span, message)
	if ambiguous {
		e.Hint = "multiple maximally-specific method signatures matched"
	} else {
		e.Hint = "no applicable method signature matched"
	}
	return e
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
