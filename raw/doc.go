// Package raw provides typed, non-null wrappers around the native handles of
// an embedded managed runtime and the single call-through primitive used to
// reach its function tables.
//
// Four handle kinds exist:
//
//	VM      process-wide runtime handle, shareable between threads
//	Env     per-thread environment handle, valid only on its thread
//	Object  object reference (ownership lives in package jni)
//	Method  resolved method or constructor id
//
// Constructors return (handle, ok) and reject null addresses, so absence is
// always an explicit case for the caller.
//
// # Function Tables
//
// VMFuncs and EnvFuncs mirror the runtime's native tables. A backend (the
// cgo backend in jnisys, or the simulator in simjvm) fills in each slot.
// Invoke and InvokeVM are the only code that reads a slot and calls it:
//
//	code := raw.InvokeVM(vm,
//		func(t *raw.VMFuncs) func(uintptr) int32 { return t.DetachCurrentThread },
//		func(vm uintptr, f func(uintptr) int32) int32 { return f(vm) },
//	)
//
// Nothing in this package owns, retries or checks exceptions; that is the job
// of packages attach and jni.
package raw
