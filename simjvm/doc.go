// Package simjvm is an in-process simulation of an embedded managed runtime,
// used to exercise the bridge without a real JVM.
//
// A Runtime implements raw.VMFuncs and raw.EnvFuncs over:
//
//   - a heap of objects whose classes are implemented by Go functions
//     (java/lang Object, Class, String, Throwable and its usual subclasses,
//     Number, Integer, and java/util List and ArrayList are built in; Define
//     adds more)
//   - one environment per attached OS thread, each with its own pending
//     exception
//   - local reference tables per environment and one global table, both
//     resource tables with configurable capacity
//
// It behaves like a checking runtime: instead of crashing, misuse is recorded
// as a Violation (locals still held at detach, an environment used on the
// wrong thread, a dead reference passed, a call made with an exception
// pending) and can be asserted on after a test:
//
//	rt := simjvm.New(simjvm.WithGlobalCapacity(16))
//	vm, err := jni.New(rt.VM())
//	...
//	if v := rt.Violations(); len(v) > 0 {
//		t.Fatalf("violations: %v", v)
//	}
//
// Faults can be injected with FailNextAttach and FailNextDetach, and
// AttachExternally attaches a thread the way foreign native code would.
//
// Objects are never collected.
package simjvm
