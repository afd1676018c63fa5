// Package jni is a safe layer over an embedded managed runtime's native
// interface.
//
// # Scopes
//
// All work happens inside a call scope:
//
//	err := vm.With(func(env *jni.Env) error {
//		list, err := util.NewArrayList(env)
//		if err != nil {
//			return err
//		}
//		...
//		return nil
//	})
//
// With attaches the current OS thread for the duration of the scope (or
// reuses a permanent attachment made with AttachPermanently) and hands out an
// *Env valid only inside the callback and only on that thread. A nested With
// on the same thread fails with errors.KindNestedUsage.
//
// # References
//
// Three reference forms exist:
//
//	Local[T]   scoped; owned by one Env, deleted when it is released or when
//	           the scope ends, whichever comes first
//	Global[T]  durable; usable from any thread and scope until Release,
//	           which itself works on any thread
//	View[T]    borrowed from either by Deref; owns nothing
//
// T is a type tag such as lang.String. Upcast, UpcastGlobal and UpcastView
// convert to a supertype tag given a witness method expression
// (lang.Integer.AsNumber); the conversion makes no runtime call and the
// result shares the original reference.
//
// # Exceptions
//
// Every call into the runtime that can throw is followed by exactly one
// CheckException. A pending exception is cleared and returned as a
// *ThrownError, which unwraps to an errors.KindThrown error. Thrown errors
// returned from the With callback are promoted to global references before
// the scope ends. A promotion that fails is joined to the returned error.
//
// # Default runtime
//
// Default returns the process runtime, created once through the Loader
// installed with RegisterLoader. Building with the jni tag links the cgo
// backend in package jnisys, which registers itself.
package jni
