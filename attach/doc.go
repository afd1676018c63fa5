// Package attach gates calls into the runtime behind a per-thread attachment
// state machine.
//
// Every OS thread is in one of three states:
//
//	Detached  not known to be attached
//	Attached  permanently attached; the environment is kept between scopes
//	InUse     a call scope is executing on the thread
//
// Transitions:
//
//	Detached --Acquire-->          InUse --Release--> Detached  (detaches)
//	Detached --AcquirePermanent--> InUse --Release--> Attached
//	Attached --Acquire-->          InUse --Release--> Attached  (reuses env)
//	Attached --Detach-->           Detached
//
// Acquiring while InUse fails with errors.KindNestedUsage and leaves the
// state untouched, so the outer scope continues normally. A failed runtime
// attach rolls the thread back to Detached.
//
// Threads that were attached by someone else (a foreign caller, a native
// callback) are recognised through GetEnv and marked external; this package
// never detaches them.
//
// Go schedules goroutines across threads, so the Manager pins the calling
// goroutine with runtime.LockOSThread for the life of each scope and of each
// permanent attachment.
package attach
