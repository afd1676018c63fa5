package jni

import (
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/raw"
)

// View is a borrowed reference obtained from Deref. It owns nothing and
// becomes unusable as soon as the reference it was borrowed from is released
// or its scope ends. The zero View is null.
type View[T Type] struct {
	local  *localRecord
	global *globalState
	obj    raw.Object
}

func (v View[T]) check(phase errors.Phase) error {
	switch {
	case v.local != nil:
		if v.local.dead {
			return errors.Released(phase, "view of local reference")
		}
		return v.local.env.usable(phase)
	case v.global != nil:
		if v.global.released.Load() {
			return errors.Released(phase, "view of global reference")
		}
		return nil
	default:
		return errors.NullDeref(className[T]())
	}
}

// Raw returns the underlying handle. Two views of the same reference, or of
// upcasts of it, return identical handles.
func (v View[T]) Raw() (raw.Object, error) {
	if err := v.check(errors.PhaseReference); err != nil {
		return raw.Object{}, err
	}
	return v.obj, nil
}

// ClassName returns the binary name of T.
func (v View[T]) ClassName() string {
	return className[T]()
}

func (v View[T]) object(env *Env) (raw.Object, error) {
	if err := v.check(errors.PhaseReference); err != nil {
		return raw.Object{}, err
	}
	if v.local != nil && v.local.env != env {
		return raw.Object{}, errors.Released(errors.PhaseReference, "view of another scope's local reference")
	}
	if v.global != nil {
		if err := env.usable(errors.PhaseReference); err != nil {
			return raw.Object{}, err
		}
	}
	return v.obj, nil
}

func (v View[T]) jvalue(env *Env) (raw.Value, error) {
	obj, err := v.object(env)
	if err != nil {
		return raw.Value{}, err
	}
	return raw.ObjectValue(obj), nil
}

// UpcastView is Upcast for views.
func UpcastView[R, S Type](v View[R], witness func(R) S) View[S] {
	_ = witness
	return View[S]{local: v.local, global: v.global, obj: v.obj}
}
