package simjvm

import (
	"github.com/wippyai/jvm-bridge/raw"
)

func (rt *Runtime) bindEnvFuncs() {
	rt.envFns = raw.EnvFuncs{
		GetVersion: func(env uintptr) int32 { return raw.Version },

		FindClass:         rt.findClass,
		Throw:             rt.throwObject,
		ThrowNew:          rt.throwNew,
		ExceptionOccurred: rt.exceptionOccurred,
		ExceptionCheck:    rt.exceptionCheck,
		ExceptionClear:    rt.exceptionClear,

		NewLocalRef:     rt.newLocalRef,
		DeleteLocalRef:  rt.deleteLocalRef,
		NewGlobalRef:    rt.newGlobalRef,
		DeleteGlobalRef: rt.deleteGlobalRef,
		IsSameObject:    rt.isSameObject,

		GetObjectClass: rt.getObjectClass,
		IsInstanceOf:   rt.isInstanceOf,

		GetMethodID: func(env uintptr, class uintptr, name, sig string) uintptr {
			return rt.methodID(env, class, name, sig, false)
		},
		GetStaticMethodID: func(env uintptr, class uintptr, name, sig string) uintptr {
			return rt.methodID(env, class, name, sig, true)
		},

		NewObjectA: rt.newObject,

		CallObjectMethodA: func(env uintptr, obj, method uintptr, args []raw.Value) uintptr {
			return rt.call(env, obj, method, args, false).ObjectAddr()
		},
		CallBooleanMethodA: func(env uintptr, obj, method uintptr, args []raw.Value) bool {
			return rt.call(env, obj, method, args, false).Bool()
		},
		CallIntMethodA: func(env uintptr, obj, method uintptr, args []raw.Value) int32 {
			return rt.call(env, obj, method, args, false).Int()
		},
		CallLongMethodA: func(env uintptr, obj, method uintptr, args []raw.Value) int64 {
			return rt.call(env, obj, method, args, false).Long()
		},
		CallDoubleMethodA: func(env uintptr, obj, method uintptr, args []raw.Value) float64 {
			return rt.call(env, obj, method, args, false).Double()
		},
		CallVoidMethodA: func(env uintptr, obj, method uintptr, args []raw.Value) {
			rt.call(env, obj, method, args, false)
		},

		CallStaticObjectMethodA: func(env uintptr, class, method uintptr, args []raw.Value) uintptr {
			return rt.call(env, class, method, args, true).ObjectAddr()
		},
		CallStaticIntMethodA: func(env uintptr, class, method uintptr, args []raw.Value) int32 {
			return rt.call(env, class, method, args, true).Int()
		},
		CallStaticVoidMethodA: func(env uintptr, class, method uintptr, args []raw.Value) {
			rt.call(env, class, method, args, true)
		},

		NewStringUTF: rt.newString,
		GetStringUTF: rt.getString,
	}
}

func (rt *Runtime) findClass(env uintptr, name string) uintptr {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enterCall(env, "FindClass")
	if th == nil {
		return 0
	}
	c := rt.classes[name]
	if c == nil {
		rt.throw(th, "java/lang/NoClassDefFoundError", name)
		return 0
	}
	return rt.newLocal(th, c.mirror)
}

func (rt *Runtime) throwObject(env uintptr, obj uintptr) int32 {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enter(env, "Throw")
	if th == nil {
		return raw.StatusErr
	}
	o, ok := rt.deref(th, obj)
	if !ok || o == nil || !o.Class.AssignableTo(rt.mustClass("java/lang/Throwable")) {
		rt.violate(ViolationBadHandle, th, "Throw of non-throwable %#x", obj)
		return raw.StatusErr
	}
	rt.raise(th, o)
	return raw.StatusOK
}

func (rt *Runtime) throwNew(env uintptr, class uintptr, msg string) int32 {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enter(env, "ThrowNew")
	if th == nil {
		return raw.StatusErr
	}
	c := rt.classOf(th, class)
	if c == nil || !c.AssignableTo(rt.mustClass("java/lang/Throwable")) || c.Abstract {
		rt.violate(ViolationBadHandle, th, "ThrowNew with non-throwable class %#x", class)
		return raw.StatusErr
	}
	rt.raise(th, rt.alloc(c, rt.message(msg)))
	return raw.StatusOK
}

func (rt *Runtime) exceptionOccurred(env uintptr) uintptr {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enter(env, "ExceptionOccurred")
	if th == nil || th.pending == nil {
		return 0
	}
	return rt.forceLocal(th, th.pending)
}

func (rt *Runtime) exceptionCheck(env uintptr) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enter(env, "ExceptionCheck")
	return th != nil && th.pending != nil
}

func (rt *Runtime) exceptionClear(env uintptr) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if th := rt.enter(env, "ExceptionClear"); th != nil {
		th.pending = nil
	}
}

func (rt *Runtime) newLocalRef(env uintptr, obj uintptr) uintptr {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enterCall(env, "NewLocalRef")
	if th == nil {
		return 0
	}
	o, ok := rt.deref(th, obj)
	if !ok {
		return 0
	}
	return rt.newLocal(th, o)
}

func (rt *Runtime) deleteLocalRef(env uintptr, obj uintptr) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if th := rt.enter(env, "DeleteLocalRef"); th != nil {
		rt.deleteLocal(th, obj)
	}
}

func (rt *Runtime) newGlobalRef(env uintptr, obj uintptr) uintptr {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enterCall(env, "NewGlobalRef")
	if th == nil {
		return 0
	}
	o, ok := rt.deref(th, obj)
	if !ok {
		return 0
	}
	return rt.newGlobal(th, o)
}

func (rt *Runtime) deleteGlobalRef(env uintptr, obj uintptr) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if th := rt.enter(env, "DeleteGlobalRef"); th != nil {
		rt.deleteGlobal(th, obj)
	}
}

func (rt *Runtime) isSameObject(env uintptr, a, b uintptr) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enterCall(env, "IsSameObject")
	if th == nil {
		return false
	}
	oa, okA := rt.deref(th, a)
	ob, okB := rt.deref(th, b)
	return okA && okB && oa == ob
}

func (rt *Runtime) getObjectClass(env uintptr, obj uintptr) uintptr {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enterCall(env, "GetObjectClass")
	if th == nil {
		return 0
	}
	o, ok := rt.deref(th, obj)
	if !ok || o == nil {
		return 0
	}
	return rt.newLocal(th, o.Class.mirror)
}

func (rt *Runtime) isInstanceOf(env uintptr, obj, class uintptr) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enterCall(env, "IsInstanceOf")
	if th == nil {
		return false
	}
	c := rt.classOf(th, class)
	if c == nil {
		return false
	}
	o, ok := rt.deref(th, obj)
	if !ok {
		return false
	}
	return o == nil || o.Class.AssignableTo(c)
}

func (rt *Runtime) methodID(env uintptr, class uintptr, name, sig string, static bool) uintptr {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enterCall(env, "GetMethodID")
	if th == nil {
		return 0
	}
	c := rt.classOf(th, class)
	if c == nil {
		return 0
	}
	m := c.lookup(name, sig, static)
	if m == nil {
		rt.throw(th, "java/lang/NoSuchMethodError", c.DottedName()+"."+name+sig)
		return 0
	}
	return m.ID
}

func (rt *Runtime) newObject(env uintptr, class, method uintptr, args []raw.Value) uintptr {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enterCall(env, "NewObjectA")
	if th == nil {
		return 0
	}
	c := rt.classOf(th, class)
	if c == nil {
		return 0
	}
	m := rt.methods[method]
	if m == nil || m.Name != "<init>" || m.Class != c {
		rt.violate(ViolationBadHandle, th, "NewObjectA with method %#x that is not a constructor of %s", method, c.Name)
		return 0
	}
	if c.Abstract {
		rt.throw(th, "java/lang/InstantiationException", c.DottedName())
		return 0
	}
	if len(args) != m.Params {
		rt.violate(ViolationBadArguments, th, "%s.<init>%s called with %d arguments", c.Name, m.Sig, len(args))
		return 0
	}

	rt.calls.Add(1)
	o := rt.alloc(c, nil)
	if m.Fn != nil {
		m.Fn(&Frame{rt: rt, th: th, This: o, Method: m, Args: args})
	}
	if th.pending != nil {
		return 0
	}
	return rt.newLocal(th, o)
}

func (rt *Runtime) call(env uintptr, target, method uintptr, args []raw.Value, static bool) raw.Value {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	op := "Call<Type>MethodA"
	if static {
		op = "CallStatic<Type>MethodA"
	}
	th := rt.enterCall(env, op)
	if th == nil {
		return raw.Value{}
	}
	m := rt.methods[method]
	if m == nil || m.Static != static || m.Name == "<init>" {
		rt.violate(ViolationBadHandle, th, "%s with invalid method %#x", op, method)
		return raw.Value{}
	}
	if len(args) != m.Params {
		rt.violate(ViolationBadArguments, th, "%s.%s%s called with %d arguments", m.Class.Name, m.Name, m.Sig, len(args))
		return raw.Value{}
	}

	f := &Frame{rt: rt, th: th, Method: m, Args: args}
	impl := m
	if static {
		if c := rt.classOf(th, target); c == nil || !c.AssignableTo(m.Class) {
			rt.violate(ViolationBadHandle, th, "%s on class %#x that does not declare %s", op, target, m.Name)
			return raw.Value{}
		}
	} else {
		this, ok := rt.deref(th, target)
		if !ok {
			return raw.Value{}
		}
		if this == nil {
			rt.throw(th, "java/lang/NullPointerException", "Cannot invoke \""+m.Class.DottedName()+"."+m.Name+"()\" because receiver is null")
			return raw.Value{}
		}
		f.This = this
		impl = this.Class.impl(m)
		if impl == nil {
			rt.throw(th, "java/lang/AbstractMethodError", this.Class.DottedName()+"."+m.Name+m.Sig)
			return raw.Value{}
		}
	}
	if impl.Fn == nil {
		rt.throw(th, "java/lang/AbstractMethodError", m.Class.DottedName()+"."+m.Name+m.Sig)
		return raw.Value{}
	}

	rt.calls.Add(1)
	v := impl.Fn(f)
	if th.pending != nil {
		return raw.Value{}
	}
	return v
}

func (rt *Runtime) newString(env uintptr, s string) uintptr {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enterCall(env, "NewStringUTF")
	if th == nil {
		return 0
	}
	return rt.newLocal(th, rt.message(s))
}

func (rt *Runtime) getString(env uintptr, str uintptr) (string, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	th := rt.enterCall(env, "GetStringUTFChars")
	if th == nil {
		return "", false
	}
	o, ok := rt.deref(th, str)
	if !ok || o == nil {
		return "", false
	}
	s, isString := o.Value.(string)
	if !isString {
		rt.violate(ViolationBadHandle, th, "GetStringUTFChars on %s", o.Class.Name)
		return "", false
	}
	if rt.badStrings > 0 {
		rt.badStrings--
		return "", false
	}
	return s, true
}
