// Package jvmbridge provides safe Go access to an embedded Java virtual
// machine through its native invocation interface.
//
// The bridge takes care of the parts of the native interface that are easy
// to get wrong: attaching OS threads, the lifetime of local and global
// references, and pending exceptions that must be checked after every call.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	jvmbridge/
//	├── jni/          Call scopes, typed references, lookups and calls
//	├── attach/       Per-thread attachment state machine
//	├── raw/          Handles and function tables of the native interface
//	├── java/         Type tags for java.lang and java.util classes
//	├── errors/       Structured error types for debugging
//	├── simjvm/       Simulated runtime for tests and tooling
//	├── resource/     Reference slot tables used by the simulator
//	├── jnisys/       cgo backend for a real JVM (build tag jni)
//	├── metrics/      Prometheus collector for VM events
//	└── cmd/jvmbridge Command line probe, watcher and metrics server
//
// # Quick Start
//
// Run code in a call scope on the process runtime:
//
//	err := jni.With(func(env *jni.Env) error {
//	    list, err := util.NewArrayList(env)
//	    if err != nil {
//	        return err
//	    }
//	    s, err := env.NewString("hello")
//	    if err != nil {
//	        return err
//	    }
//	    _, err = util.Add(env, list, s)
//	    return err
//	})
//
// Every local reference created in the scope is deleted when the function
// returns. To keep an object beyond the scope, promote it:
//
//	var keep *jni.Global[util.ArrayList]
//	err := jni.With(func(env *jni.Env) error {
//	    list, err := util.NewArrayList(env)
//	    if err != nil {
//	        return err
//	    }
//	    keep, err = list.ToGlobal()
//	    return err
//	})
//	defer keep.Release()
//
// # Exceptions
//
// A Java exception surfaces as a *jni.ThrownError that unwraps to an
// errors.KindThrown error. It is taken from the runtime exactly once, by the
// call that raised it, so the next call in the scope starts clean.
//
// # Threads
//
// An Env is bound to the OS thread it was created on. Threads are attached
// for the duration of a scope unless they were attached permanently with
// VM.AttachPermanently; a scope opened inside another scope on the same
// thread fails with errors.KindNestedUsage.
//
// Global references may be released from any thread, attached or not.
package jvmbridge
