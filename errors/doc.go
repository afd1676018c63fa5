// Package errors provides structured error types for the jvm-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the class and member involved, a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLookup, errors.KindNotFound).
//		Class("java/util/ArrayList").
//		Member("subList").
//		Detail("signature %s", sig).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NestedUsage(errors.PhaseAttach)
//	err := errors.AttachFailed("AttachCurrentThread", code)
//
// A materialized runtime exception is not an *Error itself; it is a *jni.ThrownError
// that unwraps to an *Error of KindThrown, so errors.IsKind(err, errors.KindThrown)
// finds it through any wrapping.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
