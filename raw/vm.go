package raw

import (
	"github.com/wippyai/jvm-bridge/errors"
)

// GetEnv returns the environment of the calling thread. The boolean is false
// when the thread is not attached.
func (v VM) GetEnv() (Env, bool, error) {
	addr, code := InvokeVM(v,
		func(t *VMFuncs) func(uintptr, int32) (uintptr, int32) { return t.GetEnv },
		func(vm uintptr, f func(uintptr, int32) (uintptr, int32)) envResult {
			a, c := f(vm, Version)
			return envResult{a, c}
		},
	).unpack()

	switch code {
	case StatusOK:
		env, ok := NewEnv(addr, v.fns.Env)
		if !ok {
			return Env{}, false, errors.Internal(errors.PhaseAttach, "GetEnv returned a null environment")
		}
		return env, true, nil
	case StatusDetached:
		return Env{}, false, nil
	default:
		return Env{}, false, errors.AttachFailed("GetEnv", code)
	}
}

// AttachThread attaches the calling thread. Attaching an already attached
// thread is a no-op in the runtime and returns its existing environment.
func (v VM) AttachThread() (Env, error) {
	return v.attach("AttachCurrentThread", func(t *VMFuncs) func(uintptr) (uintptr, int32) {
		return t.AttachCurrentThread
	})
}

// AttachThreadAsDaemon attaches the calling thread without keeping the
// runtime alive on its account.
func (v VM) AttachThreadAsDaemon() (Env, error) {
	return v.attach("AttachCurrentThreadAsDaemon", func(t *VMFuncs) func(uintptr) (uintptr, int32) {
		return t.AttachCurrentThreadAsDaemon
	})
}

func (v VM) attach(name string, slot func(*VMFuncs) func(uintptr) (uintptr, int32)) (Env, error) {
	addr, code := InvokeVM(v, slot,
		func(vm uintptr, f func(uintptr) (uintptr, int32)) envResult {
			a, c := f(vm)
			return envResult{a, c}
		},
	).unpack()
	if code != StatusOK {
		return Env{}, errors.AttachFailed(name, code)
	}
	env, ok := NewEnv(addr, v.fns.Env)
	if !ok {
		return Env{}, errors.Internal(errors.PhaseAttach, "%s returned a null environment", name)
	}
	return env, nil
}

// DetachThread detaches the calling thread.
func (v VM) DetachThread() error {
	code := InvokeVM(v,
		func(t *VMFuncs) func(uintptr) int32 { return t.DetachCurrentThread },
		func(vm uintptr, f func(uintptr) int32) int32 { return f(vm) },
	)
	if code != StatusOK {
		return errors.DetachFailed(code)
	}
	return nil
}

type envResult struct {
	addr uintptr
	code int32
}

func (r envResult) unpack() (uintptr, int32) { return r.addr, r.code }
