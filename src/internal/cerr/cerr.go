// Package cerr defines the error-kind taxonomy shared by every layer of the
// engine (§7). These are values on a success path where the domain calls for
// it (NotFound, RevisionConflict, Unchanged are never panics/exceptions) and
// plain Go errors everywhere else, wrapped with github.com/pkg/errors so
// callers keep a stack-free but located context string.
package cerr

import "fmt"

// Kind is the taxonomy of error categories from §7. It is a classification,
// not a concrete type hierarchy: every Error carries exactly one Kind.
type Kind int

const (
	// KindInternal marks an invariant violation; always a bug.
	KindInternal Kind = iota
	KindInput
	KindNotFound
	KindRevisionConflict
	KindUnsupported
	KindParse
	KindIO
	KindTimeout
	KindAborted
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "Input"
	case KindNotFound:
		return "NotFound"
	case KindRevisionConflict:
		return "RevisionConflict"
	case KindUnsupported:
		return "Unsupported"
	case KindParse:
		return "Parse"
	case KindIO:
		return "IO"
	case KindTimeout:
		return "Timeout"
	case KindAborted:
		return "Aborted"
	default:
		return "Internal"
	}
}

// Error is the concrete error value carried through the engine. Context is
// an optional machine-readable payload (e.g. the offending frame id, or the
// stored revision on a conflict).
type Error struct {
	Kind    Kind
	Message string
	Context any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around a lower-level cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithContext attaches a machine-readable context payload and returns e for
// chaining.
func (e *Error) WithContext(ctx any) *Error {
	e.Context = ctx
	return e
}

// KindOf extracts the Kind of err, defaulting to KindInternal for any error
// that was not produced through this package (an invariant violation by
// definition, since every expected outcome must be raised as a *cerr.Error).
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// NotFound is a convenience constructor for the common "entity resolution
// missed" case.
func NotFound(format string, args ...any) *Error { return New(KindNotFound, format, args...) }

// RevisionConflict is raised by optimistic-concurrency update paths; Context
// carries the revision actually stored so the caller can rebase (§9).
func RevisionConflict(stored, supplied any) *Error {
	return New(KindRevisionConflict, "revision conflict: stored=%v supplied=%v", stored, supplied).WithContext(stored)
}
