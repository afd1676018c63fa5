package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAttach    Phase = "attach"    // thread attachment
	PhaseDetach    Phase = "detach"    // thread detachment
	PhaseReference Phase = "reference" // reference creation, duplication, release
	PhaseInvoke    Phase = "invoke"    // calls through the function table
	PhaseException Phase = "exception" // pending exception materialization
	PhaseLookup    Phase = "lookup"    // class and member resolution
	PhaseLoad      Phase = "load"      // runtime creation and discovery
)

// Kind categorizes the error
type Kind string

const (
	KindThrown         Kind = "thrown"
	KindNestedUsage    Kind = "nested_usage"
	KindNullDeref      Kind = "null_deref"
	KindExhausted      Kind = "exhausted"
	KindAttachFailed   Kind = "attach_failed"
	KindDetachFailed   Kind = "detach_failed"
	KindInternal       Kind = "internal"
	KindWrongThread    Kind = "wrong_thread"
	KindReleased       Kind = "released"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindNotInitialized Kind = "not_initialized"
	KindUnsupported    Kind = "unsupported"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Class  string
	Member string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Class != "" || e.Member != "" {
		b.WriteString(": ")
		switch {
		case e.Class != "" && e.Member != "":
			b.WriteString(e.Class)
			b.WriteByte('.')
			b.WriteString(e.Member)
		case e.Class != "":
			b.WriteString(e.Class)
		default:
			b.WriteString(e.Member)
		}
	}

	if e.Detail != "" {
		if e.Class != "" || e.Member != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first structured error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err's chain contains a structured error of kind k.
func IsKind(err error, k Kind) bool {
	return stderrors.Is(err, &Error{Kind: k})
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Class sets the runtime class name
func (b *Builder) Class(name string) *Builder {
	b.err.Class = name
	return b
}

// Member sets the method, constructor or slot name
func (b *Builder) Member(name string) *Builder {
	b.err.Member = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Thrown is the structured form of a materialized runtime exception.
func Thrown() *Error {
	return &Error{
		Phase:  PhaseException,
		Kind:   KindThrown,
		Detail: "runtime invocation threw",
	}
}

// NestedUsage creates an error for re-entering an attachment scope on the same thread
func NestedUsage(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNestedUsage,
		Detail: "attachment scope already active on this thread",
	}
}

// NullDeref creates an error for using a reference observed as null
func NullDeref(class string) *Error {
	return &Error{
		Phase:  PhaseReference,
		Kind:   KindNullDeref,
		Class:  class,
		Detail: "attempted to deref a null object reference",
	}
}

// Exhausted creates an error for a reference duplication that returned null
func Exhausted(slot string, cause error) *Error {
	return &Error{
		Phase:  PhaseReference,
		Kind:   KindExhausted,
		Member: slot,
		Detail: "runtime returned a null reference (reference table full)",
		Cause:  cause,
	}
}

// AttachFailed creates an error for a failed thread attach
func AttachFailed(slot string, code int32) *Error {
	return &Error{
		Phase:  PhaseAttach,
		Kind:   KindAttachFailed,
		Member: slot,
		Detail: fmt.Sprintf("failed with code %d", code),
		Value:  code,
	}
}

// DetachFailed creates an error for a failed thread detach
func DetachFailed(code int32) *Error {
	return &Error{
		Phase:  PhaseDetach,
		Kind:   KindDetachFailed,
		Member: "DetachCurrentThread",
		Detail: fmt.Sprintf("failed with code %d", code),
		Value:  code,
	}
}

// Internal creates an error for a condition the runtime contract rules out
func Internal(phase Phase, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: detail,
	}
}

// WrongThread creates an error for a thread-bound value used from another thread
func WrongThread(phase Phase, owner, current int64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindWrongThread,
		Detail: fmt.Sprintf("created on thread %d, used on thread %d", owner, current),
		Value:  current,
	}
}

// Released creates an error for use of a reference or scope that has ended
func Released(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Detail: fmt.Sprintf("%s already released", what),
	}
}

// NotFound creates a not-found error for a class or member lookup
func NotFound(class, member, signature string) *Error {
	e := &Error{
		Phase:  PhaseLookup,
		Kind:   KindNotFound,
		Class:  class,
		Member: member,
	}
	if signature != "" {
		e.Detail = fmt.Sprintf("signature %s", signature)
	}
	return e
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error for a missing runtime or loader
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a runtime loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInternal,
		Detail: detail,
		Cause:  cause,
	}
}
