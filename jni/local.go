package jni

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/raw"
)

// localRecord is shared by a Local and every upcast of it, so the reference
// is deleted once whichever of them releases it.
type localRecord struct {
	env  *Env
	obj  raw.Object
	dead bool
}

// Local is a scoped reference to an object of class T. It is owned by the
// Env it was created in and is deleted at the latest when that scope ends.
//
// A nil *Local stands for a null result.
type Local[T Type] struct {
	rec *localRecord
}

// AdoptLocal takes ownership of a local reference obtained through
// raw.Invoke in env's scope.
func AdoptLocal[T Type](env *Env, obj raw.Object) (*Local[T], error) {
	if err := env.usable(errors.PhaseReference); err != nil {
		return nil, err
	}
	return &Local[T]{rec: env.adopt(obj)}, nil
}

// adoptAddr adopts a reference returned by the runtime; null yields nil.
func adoptAddr[T Type](env *Env, addr uintptr) *Local[T] {
	obj, ok := raw.NewObject(addr)
	if !ok {
		return nil
	}
	return &Local[T]{rec: env.adopt(obj)}
}

func (l *Local[T]) check(phase errors.Phase) error {
	if l == nil || l.rec == nil {
		return errors.NullDeref(className[T]())
	}
	if l.rec.dead {
		return errors.Released(phase, "local reference")
	}
	return l.rec.env.usable(phase)
}

// Env returns the scope that owns l.
func (l *Local[T]) Env() *Env {
	return l.rec.env
}

// Deref returns a borrowed view of the object. The view is usable only while
// l is.
func (l *Local[T]) Deref() (View[T], error) {
	if err := l.check(errors.PhaseReference); err != nil {
		return View[T]{}, err
	}
	return View[T]{obj: l.rec.obj, local: l.rec}, nil
}

// ToGlobal creates a global reference to the same object. l stays valid.
func (l *Local[T]) ToGlobal() (*Global[T], error) {
	if err := l.check(errors.PhaseReference); err != nil {
		return nil, err
	}
	return globalFrom[T](l.rec.env, l.rec.obj)
}

// Clone creates a second local reference to the same object in the same
// scope.
func (l *Local[T]) Clone() (*Local[T], error) {
	if err := l.check(errors.PhaseReference); err != nil {
		return nil, err
	}
	return localFrom[T](l.rec.env, l.rec.obj)
}

// Release deletes the reference now instead of at scope end. Releasing twice,
// or after the scope ended, does nothing. Releasing from another thread is
// ignored, since only the owning thread may touch the reference.
func (l *Local[T]) Release() {
	if l == nil || l.rec == nil || l.rec.dead {
		return
	}
	if err := l.rec.env.usable(errors.PhaseReference); err != nil {
		l.rec.env.vm.log.Warn("couldn't release local reference",
			zap.String("class", className[T]()),
			zap.Error(err))
		return
	}
	l.rec.env.deleteLocal(l.rec)
}

func (l *Local[T]) object(env *Env) (raw.Object, error) {
	if err := l.check(errors.PhaseReference); err != nil {
		return raw.Object{}, err
	}
	if l.rec.env != env {
		return raw.Object{}, errors.Released(errors.PhaseReference, "local reference of another scope")
	}
	return l.rec.obj, nil
}

func (l *Local[T]) jvalue(env *Env) (raw.Value, error) {
	obj, err := l.object(env)
	if err != nil {
		return raw.Value{}, err
	}
	return raw.ObjectValue(obj), nil
}

func (l *Local[T]) String() string {
	if l == nil || l.rec == nil {
		return fmt.Sprintf("Local[%s](null)", className[T]())
	}
	return fmt.Sprintf("Local[%s](%v)", className[T](), l.rec.obj)
}

func localFrom[T Type](env *Env, obj raw.Object) (*Local[T], error) {
	addr := raw.Invoke(env.raw,
		func(t *raw.EnvFuncs) func(uintptr, uintptr) uintptr { return t.NewLocalRef },
		func(e uintptr, f func(uintptr, uintptr) uintptr) uintptr { return f(e, obj.Addr()) },
	)
	if l := adoptAddr[T](env, addr); l != nil {
		return l, nil
	}
	return nil, env.exhausted("NewLocalRef")
}

// Upcast views l as a reference to supertype S. The witness is a method
// expression such as lang.Integer.AsNumber; it is never called and only
// proves at compile time that R is an S. The result shares l's reference:
// no runtime call is made, and releasing either releases both.
func Upcast[R, S Type](l *Local[R], witness func(R) S) *Local[S] {
	_ = witness
	if l == nil {
		return nil
	}
	return &Local[S]{rec: l.rec}
}
