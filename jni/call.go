package jni

import (
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/raw"
)

// Every call below makes exactly one exception check after the runtime
// returns. When an exception is pending the result is discarded and a
// *ThrownError is returned.

func (e *Env) prepare(target Ref, m raw.Method, args []Arg) (raw.Object, []raw.Value, error) {
	obj, err := e.resolve(errors.PhaseInvoke, target)
	if err != nil {
		return raw.Object{}, nil, err
	}
	if m.Addr() == 0 {
		return raw.Object{}, nil, errors.InvalidInput(errors.PhaseInvoke, "unresolved method id")
	}
	vals := make([]raw.Value, len(args))
	for i, a := range args {
		if a == nil {
			vals[i] = raw.NullValue()
			continue
		}
		v, err := a.jvalue(e)
		if err != nil {
			return raw.Object{}, nil, err
		}
		vals[i] = v
	}
	return obj, vals, nil
}

func call[V any](env *Env, target Ref, m raw.Method, args []Arg, slot func(*raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) V) (V, error) {
	var zero V
	obj, vals, err := env.prepare(target, m, args)
	if err != nil {
		return zero, err
	}
	v := raw.Invoke(env.raw, slot,
		func(e uintptr, f func(uintptr, uintptr, uintptr, []raw.Value) V) V {
			return f(e, obj.Addr(), m.Addr(), vals)
		},
	)
	if err := CheckException(env); err != nil {
		return zero, err
	}
	return v, nil
}

func callObject[R Type](env *Env, target Ref, m raw.Method, args []Arg, slot func(*raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) uintptr) (*Local[R], error) {
	obj, vals, err := env.prepare(target, m, args)
	if err != nil {
		return nil, err
	}
	addr := raw.Invoke(env.raw, slot,
		func(e uintptr, f func(uintptr, uintptr, uintptr, []raw.Value) uintptr) uintptr {
			return f(e, obj.Addr(), m.Addr(), vals)
		},
	)
	if err := CheckException(env); err != nil {
		if l := adoptAddr[R](env, addr); l != nil {
			l.Release()
		}
		return nil, err
	}
	return adoptAddr[R](env, addr), nil
}

func callVoid(env *Env, target Ref, m raw.Method, args []Arg, slot func(*raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value)) error {
	obj, vals, err := env.prepare(target, m, args)
	if err != nil {
		return err
	}
	raw.Invoke(env.raw, slot,
		func(e uintptr, f func(uintptr, uintptr, uintptr, []raw.Value)) struct{} {
			f(e, obj.Addr(), m.Addr(), vals)
			return struct{}{}
		},
	)
	return CheckException(env)
}

// NewObject constructs an instance of class with constructor ctor.
func NewObject[T Type](env *Env, class Ref, ctor raw.Method, args ...Arg) (*Local[T], error) {
	l, err := callObject[T](env, class, ctor, args, func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) uintptr {
		return t.NewObjectA
	})
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, errors.Internal(errors.PhaseInvoke, "NewObjectA returned null without a pending exception")
	}
	return l, nil
}

// CallObject calls an instance method returning an object. A null result is
// returned as a nil *Local.
func CallObject[R Type](env *Env, obj Ref, m raw.Method, args ...Arg) (*Local[R], error) {
	return callObject[R](env, obj, m, args, func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) uintptr {
		return t.CallObjectMethodA
	})
}

// CallVoid calls an instance method returning void.
func CallVoid(env *Env, obj Ref, m raw.Method, args ...Arg) error {
	return callVoid(env, obj, m, args, func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) {
		return t.CallVoidMethodA
	})
}

// CallBool calls an instance method returning boolean.
func CallBool(env *Env, obj Ref, m raw.Method, args ...Arg) (bool, error) {
	return call(env, obj, m, args, func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) bool {
		return t.CallBooleanMethodA
	})
}

// CallInt calls an instance method returning int.
func CallInt(env *Env, obj Ref, m raw.Method, args ...Arg) (int32, error) {
	return call(env, obj, m, args, func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) int32 {
		return t.CallIntMethodA
	})
}

// CallLong calls an instance method returning long.
func CallLong(env *Env, obj Ref, m raw.Method, args ...Arg) (int64, error) {
	return call(env, obj, m, args, func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) int64 {
		return t.CallLongMethodA
	})
}

// CallDouble calls an instance method returning double.
func CallDouble(env *Env, obj Ref, m raw.Method, args ...Arg) (float64, error) {
	return call(env, obj, m, args, func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) float64 {
		return t.CallDoubleMethodA
	})
}

// CallStaticObject calls a static method returning an object.
func CallStaticObject[R Type](env *Env, class Ref, m raw.Method, args ...Arg) (*Local[R], error) {
	return callObject[R](env, class, m, args, func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) uintptr {
		return t.CallStaticObjectMethodA
	})
}

// CallStaticInt calls a static method returning int.
func CallStaticInt(env *Env, class Ref, m raw.Method, args ...Arg) (int32, error) {
	return call(env, class, m, args, func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) int32 {
		return t.CallStaticIntMethodA
	})
}

// CallStaticVoid calls a static method returning void.
func CallStaticVoid(env *Env, class Ref, m raw.Method, args ...Arg) error {
	return callVoid(env, class, m, args, func(t *raw.EnvFuncs) func(uintptr, uintptr, uintptr, []raw.Value) {
		return t.CallStaticVoidMethodA
	})
}
