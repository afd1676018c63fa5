package jni

import (
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/java/lang"
	"github.com/wippyai/jvm-bridge/raw"
)

// CheckException takes the pending exception of env's thread, if any. It
// returns nil when nothing is pending; otherwise it clears the exception and
// returns a *ThrownError owning it. A second call right after returns nil.
func CheckException(env *Env) error {
	if err := env.usable(errors.PhaseException); err != nil {
		return err
	}
	addr := raw.Invoke(env.raw,
		func(t *raw.EnvFuncs) func(uintptr) uintptr { return t.ExceptionOccurred },
		func(e uintptr, f func(uintptr) uintptr) uintptr { return f(e) },
	)
	obj, ok := raw.NewObject(addr)
	if !ok {
		return nil
	}
	raw.Invoke(env.raw,
		func(t *raw.EnvFuncs) func(uintptr) { return t.ExceptionClear },
		func(e uintptr, f func(uintptr)) struct{} {
			f(e)
			return struct{}{}
		},
	)

	env.vm.thrown.Add(1)
	env.vm.emit(Event{Type: EventThrown, Thread: env.thread})
	return &ThrownError{local: &Local[lang.Throwable]{rec: env.adopt(obj)}}
}

// ThrownError is an exception thrown by the runtime. Inside the scope that
// caught it, it holds a local reference; With promotes it to a global one
// before the scope ends, so a ThrownError returned from With is always
// durable and must eventually be released with Release.
//
// It unwraps to an errors.KindThrown error.
type ThrownError struct {
	local     *Local[lang.Throwable]
	global    *Global[lang.Throwable]
	class     string
	message   string
	described bool
}

func (e *ThrownError) Error() string {
	switch {
	case e.class != "" && e.message != "":
		return e.class + ": " + e.message
	case e.class != "":
		return e.class
	default:
		return "runtime exception thrown"
	}
}

func (e *ThrownError) Unwrap() error {
	return errors.Thrown()
}

// Local returns the scoped reference, or nil once promoted. After a failed
// promotion it is the deleted scoped reference.
func (e *ThrownError) Local() *Local[lang.Throwable] {
	return e.local
}

// Global returns the durable reference, or nil before promotion.
func (e *ThrownError) Global() *Global[lang.Throwable] {
	return e.global
}

// ClassName returns the exception's class name, once described.
func (e *ThrownError) ClassName() string {
	return e.class
}

func (e *ThrownError) ref() Ref {
	if e.global != nil {
		return e.global
	}
	if e.local != nil {
		return e.local
	}
	return nil
}

// Promote makes the error durable: the exception is duplicated into a global
// reference and the local one is deleted. Its class and message are captured
// first for Error. Promoting twice does nothing.
//
// If the duplication fails the error keeps its class and message, but no
// reference to the exception outlives the scope.
func (e *ThrownError) Promote(env *Env) error {
	if e.global != nil {
		return nil
	}
	if e.local == nil {
		return errors.Internal(errors.PhaseException, "thrown error holds no reference")
	}
	e.describe(env)

	g, err := e.local.ToGlobal()
	if err != nil {
		eachThrown(err, func(te *ThrownError) { te.describe(env) })
		return err
	}
	e.local.Release()
	e.local = nil
	e.global = g
	return nil
}

// Message calls Throwable.getMessage. A null message is returned as "".
func (e *ThrownError) Message(env *Env) (string, error) {
	ref := e.ref()
	if ref == nil {
		return "", errors.NullDeref("java/lang/Throwable")
	}
	m, err := MethodOf[lang.Throwable](env, "getMessage", "()Ljava/lang/String;")
	if err != nil {
		return "", err
	}
	return callString(env, ref, m)
}

// InstanceOf reports whether the exception is an instance of class.
func (e *ThrownError) InstanceOf(env *Env, class Ref) (bool, error) {
	ref := e.ref()
	if ref == nil {
		return false, errors.NullDeref("java/lang/Throwable")
	}
	return env.IsInstanceOf(ref, class)
}

// Release releases the durable reference of a promoted error.
func (e *ThrownError) Release() {
	if e.global != nil {
		e.global.Release()
	}
}

// describe captures class name and message. Exceptions thrown while doing so
// are dropped. It only uses local references, so it works with the global
// table full.
func (e *ThrownError) describe(env *Env) {
	if e.described {
		return
	}
	e.described = true

	ref := e.ref()
	if ref == nil {
		return
	}
	if name, err := objectClassName(env, ref); err == nil {
		e.class = name
	}
	if m, err := methodOfObject(env, ref, "getMessage", "()Ljava/lang/String;"); err == nil {
		if msg, err := callString(env, ref, m); err == nil {
			e.message = msg
		}
	}
}

func objectClassName(env *Env, obj Ref) (string, error) {
	cls, err := env.ObjectClass(obj)
	if err != nil {
		return "", err
	}
	defer cls.Release()

	m, err := methodOfObject(env, cls, "getName", "()Ljava/lang/String;")
	if err != nil {
		return "", err
	}
	name, err := callString(env, cls, m)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", errors.Internal(errors.PhaseException, "Class.getName returned null")
	}
	return name, nil
}

// methodOfObject resolves an instance method through obj's runtime class,
// bypassing the class cache.
func methodOfObject(env *Env, obj Ref, name, sig string) (raw.Method, error) {
	cls, err := env.ObjectClass(obj)
	if err != nil {
		return raw.Method{}, err
	}
	defer cls.Release()
	return env.MethodID(cls, name, sig)
}

// callString calls a method returning a string. Null is returned as "".
func callString(env *Env, obj Ref, m raw.Method) (string, error) {
	s, err := CallObject[lang.String](env, obj, m)
	if err != nil || s == nil {
		return "", err
	}
	defer s.Release()
	return env.GoString(s)
}

// eachThrown calls fn for every *ThrownError in err's tree.
func eachThrown(err error, fn func(*ThrownError)) {
	for err != nil {
		if te, ok := err.(*ThrownError); ok {
			fn(te)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				eachThrown(inner, fn)
			}
			return
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return
		}
	}
}
