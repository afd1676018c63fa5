package jni

import (
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/java/lang"
	"github.com/wippyai/jvm-bridge/raw"
)

// Lookups share one protocol: a null result is followed by exactly one
// exception check. A pending exception becomes the cause of a
// KindNotFound error; null without an exception is an internal error.

// FindClass resolves a class by binary name, such as "java/util/ArrayList".
func (e *Env) FindClass(name string) (*Local[lang.Class], error) {
	if err := e.usable(errors.PhaseLookup); err != nil {
		return nil, err
	}
	addr := raw.Invoke(e.raw,
		func(t *raw.EnvFuncs) func(uintptr, string) uintptr { return t.FindClass },
		func(env uintptr, f func(uintptr, string) uintptr) uintptr { return f(env, name) },
	)
	if cls := adoptAddr[lang.Class](e, addr); cls != nil {
		return cls, nil
	}
	if err := CheckException(e); err != nil {
		return nil, errors.New(errors.PhaseLookup, errors.KindNotFound).
			Class(name).
			Cause(err).
			Build()
	}
	return nil, errors.Internal(errors.PhaseLookup, "FindClass(%s) returned null without a pending exception", name)
}

// ClassOf returns the class named by T. The class is resolved once per VM
// and cached as a global reference; the returned view stays valid until
// VM.ClearClassCache. Clearing while any scope is running invalidates views
// that scope already holds, so callers clear only when no With is active.
func ClassOf[T Type](env *Env) (View[lang.Class], error) {
	if err := env.usable(errors.PhaseLookup); err != nil {
		return View[lang.Class]{}, err
	}
	name := className[T]()
	if cached, ok := env.vm.classes.Load(name); ok {
		return cached.(*Global[lang.Class]).Deref()
	}

	cls, err := env.FindClass(name)
	if err != nil {
		return View[lang.Class]{}, err
	}
	defer cls.Release()

	g, err := cls.ToGlobal()
	if err != nil {
		return View[lang.Class]{}, err
	}
	actual, loaded := env.vm.classes.LoadOrStore(name, g)
	if loaded {
		g.Release()
	}
	return actual.(*Global[lang.Class]).Deref()
}

// MethodID resolves an instance method.
func (e *Env) MethodID(class Ref, name, sig string) (raw.Method, error) {
	return e.methodID(class, name, sig, false)
}

// StaticMethodID resolves a static method.
func (e *Env) StaticMethodID(class Ref, name, sig string) (raw.Method, error) {
	return e.methodID(class, name, sig, true)
}

// ConstructorID resolves a constructor; sig describes its parameters and
// returns V, as in "(I)V".
func (e *Env) ConstructorID(class Ref, sig string) (raw.Method, error) {
	return e.methodID(class, "<init>", sig, false)
}

func (e *Env) methodID(class Ref, name, sig string, static bool) (raw.Method, error) {
	c, err := e.resolve(errors.PhaseLookup, class)
	if err != nil {
		return raw.Method{}, err
	}

	slot := func(t *raw.EnvFuncs) func(uintptr, uintptr, string, string) uintptr { return t.GetMethodID }
	if static {
		slot = func(t *raw.EnvFuncs) func(uintptr, uintptr, string, string) uintptr { return t.GetStaticMethodID }
	}
	addr := raw.Invoke(e.raw, slot,
		func(env uintptr, f func(uintptr, uintptr, string, string) uintptr) uintptr {
			return f(env, c.Addr(), name, sig)
		},
	)
	if m, ok := raw.NewMethod(addr); ok {
		return m, nil
	}
	if err := CheckException(e); err != nil {
		return raw.Method{}, errors.New(errors.PhaseLookup, errors.KindNotFound).
			Member(name).
			Detail("signature %s", sig).
			Cause(err).
			Build()
	}
	return raw.Method{}, errors.Internal(errors.PhaseLookup, "GetMethodID(%s%s) returned null without a pending exception", name, sig)
}

type methodKey struct {
	class  string
	name   string
	sig    string
	static bool
}

// MethodOf resolves an instance method of the class named by T, caching the
// id per VM.
func MethodOf[T Type](env *Env, name, sig string) (raw.Method, error) {
	return cachedMethod[T](env, name, sig, false)
}

// StaticMethodOf is MethodOf for static methods.
func StaticMethodOf[T Type](env *Env, name, sig string) (raw.Method, error) {
	return cachedMethod[T](env, name, sig, true)
}

// ConstructorOf is MethodOf for constructors.
func ConstructorOf[T Type](env *Env, sig string) (raw.Method, error) {
	return cachedMethod[T](env, "<init>", sig, false)
}

func cachedMethod[T Type](env *Env, name, sig string, static bool) (raw.Method, error) {
	if err := env.usable(errors.PhaseLookup); err != nil {
		return raw.Method{}, err
	}
	key := methodKey{class: className[T](), name: name, sig: sig, static: static}
	if m, ok := env.vm.methods.Load(key); ok {
		return m.(raw.Method), nil
	}
	cls, err := ClassOf[T](env)
	if err != nil {
		return raw.Method{}, err
	}
	m, err := env.methodID(cls, name, sig, static)
	if err != nil {
		return raw.Method{}, err
	}
	env.vm.methods.Store(key, m)
	return m, nil
}
