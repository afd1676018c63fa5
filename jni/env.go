package jni

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/jvm-bridge/attach"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/internal/osthread"
	"github.com/wippyai/jvm-bridge/java/lang"
	"github.com/wippyai/jvm-bridge/raw"
)

// Env is the capability for one call scope. It is only valid inside the
// function passed to With and only on the thread that runs it; every method
// checks both.
type Env struct {
	vm     *VM
	guard  *attach.Guard
	locals map[*localRecord]struct{}
	raw    raw.Env
	thread int64
	closed bool
}

func newEnv(vm *VM, g *attach.Guard) *Env {
	return &Env{
		vm:     vm,
		guard:  g,
		raw:    g.Env(),
		thread: g.Thread(),
		locals: make(map[*localRecord]struct{}),
	}
}

// VM returns the runtime the scope belongs to.
func (e *Env) VM() *VM {
	return e.vm
}

// Thread returns the id of the OS thread the scope runs on.
func (e *Env) Thread() int64 {
	return e.thread
}

// Permanent reports whether the scope runs on a permanently attached thread.
func (e *Env) Permanent() bool {
	return e.guard.Permanent()
}

// Raw returns the environment handle for direct use with raw.Invoke.
func (e *Env) Raw() (raw.Env, error) {
	if err := e.usable(errors.PhaseInvoke); err != nil {
		return raw.Env{}, err
	}
	return e.raw, nil
}

// LiveLocals returns the number of local references the scope holds.
func (e *Env) LiveLocals() int {
	return len(e.locals)
}

func (e *Env) usable(phase errors.Phase) error {
	if e == nil {
		return errors.NotInitialized(phase, "environment")
	}
	if e.closed {
		return errors.Released(phase, "environment")
	}
	if tid := osthread.ID(); tid != e.thread {
		return errors.WrongThread(phase, e.thread, tid)
	}
	return nil
}

func (e *Env) adopt(obj raw.Object) *localRecord {
	rec := &localRecord{env: e, obj: obj}
	e.locals[rec] = struct{}{}
	e.vm.locals.Add(1)
	e.vm.emit(Event{Type: EventLocalCreated, Thread: e.thread})
	return rec
}

func (e *Env) deleteLocal(rec *localRecord) {
	raw.Invoke(e.raw,
		func(t *raw.EnvFuncs) func(uintptr, uintptr) { return t.DeleteLocalRef },
		func(env uintptr, f func(uintptr, uintptr)) struct{} {
			f(env, rec.obj.Addr())
			return struct{}{}
		},
	)
	rec.dead = true
	delete(e.locals, rec)
	e.vm.locals.Add(-1)
	e.vm.emit(Event{Type: EventLocalDeleted, Thread: e.thread})
}

// close deletes every surviving local. It runs before the attachment guard
// is released, so no local can outlive its attachment.
func (e *Env) close() {
	if e.closed {
		return
	}
	if n := len(e.locals); n > 0 {
		for rec := range e.locals {
			e.deleteLocal(rec)
		}
		e.vm.log.Debug("deleted surviving local references",
			zap.Int("count", n),
			zap.Int64("thread", e.thread))
	}
	e.closed = true
}

// promote makes every thrown error in err's chain durable and returns the
// promotions that failed.
func (e *Env) promote(err error) error {
	var failed []error
	eachThrown(err, func(te *ThrownError) {
		if perr := te.Promote(e); perr != nil {
			e.vm.log.Debug("couldn't promote thrown error",
				zap.String("exception", te.Error()),
				zap.Error(perr))
			failed = append(failed, perr)
		}
	})
	return stderrors.Join(failed...)
}

// exhausted builds the error for a duplication that returned null, with the
// pending exception (usually OutOfMemoryError) as its cause.
func (e *Env) exhausted(slot string) error {
	cause := CheckException(e)
	return errors.Exhausted(slot, cause)
}

func (e *Env) resolve(phase errors.Phase, r Ref) (raw.Object, error) {
	if err := e.usable(phase); err != nil {
		return raw.Object{}, err
	}
	if r == nil {
		return raw.Object{}, errors.NullDeref("")
	}
	return r.object(e)
}

// NewString creates a string.
func (e *Env) NewString(s string) (*Local[lang.String], error) {
	if err := e.usable(errors.PhaseInvoke); err != nil {
		return nil, err
	}
	addr := raw.Invoke(e.raw,
		func(t *raw.EnvFuncs) func(uintptr, string) uintptr { return t.NewStringUTF },
		func(env uintptr, f func(uintptr, string) uintptr) uintptr { return f(env, s) },
	)
	if l := adoptAddr[lang.String](e, addr); l != nil {
		return l, nil
	}
	return nil, e.exhausted("NewStringUTF")
}

// GoString copies a string's contents.
func (e *Env) GoString(str Ref) (string, error) {
	obj, err := e.resolve(errors.PhaseInvoke, str)
	if err != nil {
		return "", err
	}
	s, ok := raw.Invoke(e.raw,
		func(t *raw.EnvFuncs) func(uintptr, uintptr) (string, bool) { return t.GetStringUTF },
		func(env uintptr, f func(uintptr, uintptr) (string, bool)) stringResult {
			s, ok := f(env, obj.Addr())
			return stringResult{s, ok}
		},
	).unpack()
	if ok {
		return s, nil
	}
	if err := CheckException(e); err != nil {
		return "", err
	}
	// Nothing pending: either str is not a String, or the runtime handed
	// back characters that do not decode as modified UTF-8.
	cls, err := ClassOf[lang.String](e)
	if err != nil {
		return "", err
	}
	isString, err := e.IsInstanceOf(str, cls)
	if err != nil {
		return "", err
	}
	if isString {
		return "", errors.New(errors.PhaseInvoke, errors.KindInternal).
			Member("GetStringUTFChars").
			Detail("runtime returned characters that are not valid modified UTF-8").
			Build()
	}
	return "", errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
		Member("GetStringUTFChars").
		Detail("reference is not a string").
		Build()
}

type stringResult struct {
	s  string
	ok bool
}

func (r stringResult) unpack() (string, bool) { return r.s, r.ok }

// IsSameObject reports whether a and b refer to the same object.
func (e *Env) IsSameObject(a, b Ref) (bool, error) {
	oa, err := e.resolve(errors.PhaseInvoke, a)
	if err != nil {
		return false, err
	}
	ob, err := e.resolve(errors.PhaseInvoke, b)
	if err != nil {
		return false, err
	}
	return raw.Invoke(e.raw,
		func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr) bool { return t.IsSameObject },
		func(env uintptr, f func(uintptr, uintptr, uintptr) bool) bool { return f(env, oa.Addr(), ob.Addr()) },
	), nil
}

// IsInstanceOf reports whether obj is an instance of class.
func (e *Env) IsInstanceOf(obj, class Ref) (bool, error) {
	o, err := e.resolve(errors.PhaseInvoke, obj)
	if err != nil {
		return false, err
	}
	c, err := e.resolve(errors.PhaseInvoke, class)
	if err != nil {
		return false, err
	}
	return raw.Invoke(e.raw,
		func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr) bool { return t.IsInstanceOf },
		func(env uintptr, f func(uintptr, uintptr, uintptr) bool) bool { return f(env, o.Addr(), c.Addr()) },
	), nil
}

// ObjectClass returns the class of obj.
func (e *Env) ObjectClass(obj Ref) (*Local[lang.Class], error) {
	o, err := e.resolve(errors.PhaseInvoke, obj)
	if err != nil {
		return nil, err
	}
	addr := raw.Invoke(e.raw,
		func(t *raw.EnvFuncs) func(uintptr, uintptr) uintptr { return t.GetObjectClass },
		func(env uintptr, f func(uintptr, uintptr) uintptr) uintptr { return f(env, o.Addr()) },
	)
	if l := adoptAddr[lang.Class](e, addr); l != nil {
		return l, nil
	}
	return nil, e.exhausted("GetObjectClass")
}

// Throw makes t the pending exception of the thread. It is meant for code
// that returns control to the runtime, such as native method callbacks.
func (e *Env) Throw(t Ref) error {
	o, err := e.resolve(errors.PhaseException, t)
	if err != nil {
		return err
	}
	code := raw.Invoke(e.raw,
		func(t *raw.EnvFuncs) func(uintptr, uintptr) int32 { return t.Throw },
		func(env uintptr, f func(uintptr, uintptr) int32) int32 { return f(env, o.Addr()) },
	)
	if code != raw.StatusOK {
		return errors.Internal(errors.PhaseException, "Throw failed with code %d", code)
	}
	return nil
}

// ThrowNew makes a new instance of class with message msg pending.
func (e *Env) ThrowNew(class Ref, msg string) error {
	c, err := e.resolve(errors.PhaseException, class)
	if err != nil {
		return err
	}
	code := raw.Invoke(e.raw,
		func(t *raw.EnvFuncs) func(uintptr, uintptr, string) int32 { return t.ThrowNew },
		func(env uintptr, f func(uintptr, uintptr, string) int32) int32 { return f(env, c.Addr(), msg) },
	)
	if code != raw.StatusOK {
		return errors.Internal(errors.PhaseException, "ThrowNew failed with code %d", code)
	}
	return nil
}
