package simjvm

import "fmt"

// ViolationKind classifies a broken usage rule of the native interface.
type ViolationKind uint8

const (
	// ViolationLeakedLocals: a thread detached while its environment still
	// held local references.
	ViolationLeakedLocals ViolationKind = iota
	// ViolationWrongThread: an environment was used from a thread other than
	// the one it belongs to.
	ViolationWrongThread
	// ViolationStaleEnv: an environment that is not attached was used.
	ViolationStaleEnv
	// ViolationStaleRef: a reference that was deleted (or never existed) was
	// used or deleted.
	ViolationStaleRef
	// ViolationForeignLocal: a local reference was used or deleted through
	// an environment that does not own it.
	ViolationForeignLocal
	// ViolationPendingException: a call other than the exception and delete
	// functions was made while an exception was pending.
	ViolationPendingException
	// ViolationBadHandle: an unknown vm, class or method id was passed.
	ViolationBadHandle
	// ViolationBadArguments: a call passed the wrong number of arguments for
	// the method's signature.
	ViolationBadArguments
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationLeakedLocals:
		return "leaked_locals"
	case ViolationWrongThread:
		return "wrong_thread"
	case ViolationStaleEnv:
		return "stale_env"
	case ViolationStaleRef:
		return "stale_ref"
	case ViolationForeignLocal:
		return "foreign_local"
	case ViolationPendingException:
		return "pending_exception"
	case ViolationBadHandle:
		return "bad_handle"
	case ViolationBadArguments:
		return "bad_arguments"
	default:
		return fmt.Sprintf("violation(%d)", uint8(k))
	}
}

// Violation is one recorded contract violation.
type Violation struct {
	Detail string
	Env    uintptr
	Thread int64
	Kind   ViolationKind
}

func (v Violation) String() string {
	return fmt.Sprintf("%s on thread %d (env %#x): %s", v.Kind, v.Thread, v.Env, v.Detail)
}
