package simjvm

import (
	"github.com/wippyai/jvm-bridge/internal/osthread"
	"github.com/wippyai/jvm-bridge/resource"
)

// All helpers in this file expect rt.mu to be held.

func isLocal(ref uintptr) bool  { return ref >= localBase && ref < globalBase }
func isGlobal(ref uintptr) bool { return ref >= globalBase && ref < methodBase }

func localHandle(ref uintptr) resource.Handle  { return resource.Handle((ref - localBase) / 8) }
func globalHandle(ref uintptr) resource.Handle { return resource.Handle((ref - globalBase) / 8) }

// enter resolves the environment a call came in through. A nil result means
// the call must be refused.
func (rt *Runtime) enter(env uintptr, op string) *thread {
	th := rt.envs[env]
	if th == nil {
		rt.violate(ViolationStaleEnv, nil, "%s through detached env %#x", op, env)
		return nil
	}
	if tid := osthread.ID(); tid != th.tid {
		rt.violate(ViolationWrongThread, th, "%s: env of thread %d used on thread %d", op, th.tid, tid)
	}
	return th
}

// enterCall is enter for functions that may not run with an exception
// pending.
func (rt *Runtime) enterCall(env uintptr, op string) *thread {
	th := rt.enter(env, op)
	if th != nil && th.pending != nil {
		rt.violate(ViolationPendingException, th, "%s called with %s pending", op, th.pending)
	}
	return th
}

func (rt *Runtime) refID(ref uintptr) (uint64, bool) {
	switch {
	case isLocal(ref):
		return rt.locals.Get(localHandle(ref))
	case isGlobal(ref):
		return rt.globals.Get(globalHandle(ref))
	default:
		return 0, false
	}
}

// deref resolves a reference passed in through th. Null resolves to nil.
// The boolean is false for references that are not live.
func (rt *Runtime) deref(th *thread, ref uintptr) (*Object, bool) {
	if ref == 0 {
		return nil, true
	}
	if isLocal(ref) {
		if owner, ok := rt.locals.Owner(localHandle(ref)); ok && owner != uint64(th.env) {
			rt.violate(ViolationForeignLocal, th, "local %#x belongs to env %#x", ref, owner)
		}
	}
	id, ok := rt.refID(ref)
	if !ok {
		rt.violate(ViolationStaleRef, th, "reference %#x is not live", ref)
		return nil, false
	}
	return rt.objects[id], true
}

func (rt *Runtime) classOf(th *thread, ref uintptr) *Class {
	o, ok := rt.deref(th, ref)
	if !ok || o == nil {
		return nil
	}
	c, isClass := o.Value.(*Class)
	if !isClass || o.Class.Name != "java/lang/Class" {
		rt.violate(ViolationBadHandle, th, "reference %#x is a %s, not a class", ref, o.Class.Name)
		return nil
	}
	return c
}

// newLocal creates a local reference to o in th's environment. A full table
// returns 0, with OutOfMemoryError pending unless exhaustion is silent.
func (rt *Runtime) newLocal(th *thread, o *Object) uintptr {
	if o == nil {
		return 0
	}
	if th.locals >= rt.cfg.LocalCapacity {
		rt.exhausted(th, "local reference table overflow")
		return 0
	}
	return rt.forceLocal(th, o)
}

// forceLocal ignores the capacity, the way the runtime reserves room for the
// exception it is about to hand out.
func (rt *Runtime) forceLocal(th *thread, o *Object) uintptr {
	h, err := rt.locals.Insert(uint64(th.env), o.ID)
	if err != nil {
		return 0
	}
	th.locals++
	return localBase + uintptr(h)*8
}

func (rt *Runtime) deleteLocal(th *thread, ref uintptr) {
	if ref == 0 {
		return
	}
	if !isLocal(ref) {
		rt.violate(ViolationStaleRef, th, "DeleteLocalRef on non-local %#x", ref)
		return
	}
	h := localHandle(ref)
	owner, ok := rt.locals.Owner(h)
	if !ok {
		rt.violate(ViolationStaleRef, th, "DeleteLocalRef on dead local %#x", ref)
		return
	}
	if owner != uint64(th.env) {
		rt.violate(ViolationForeignLocal, th, "DeleteLocalRef of %#x owned by env %#x", ref, owner)
		if other := rt.envs[uintptr(owner)]; other != nil {
			other.locals--
		}
		rt.locals.Remove(h)
		return
	}
	rt.locals.Remove(h)
	th.locals--
}

func (rt *Runtime) newGlobal(th *thread, o *Object) uintptr {
	if o == nil {
		return 0
	}
	h, err := rt.globals.Insert(uint64(th.env), o.ID)
	if err != nil {
		rt.exhausted(th, "global reference table overflow")
		return 0
	}
	return globalBase + uintptr(h)*8
}

func (rt *Runtime) deleteGlobal(th *thread, ref uintptr) {
	if ref == 0 {
		return
	}
	if !isGlobal(ref) {
		rt.violate(ViolationStaleRef, th, "DeleteGlobalRef on non-global %#x", ref)
		return
	}
	if _, ok := rt.globals.Remove(globalHandle(ref)); !ok {
		rt.violate(ViolationStaleRef, th, "DeleteGlobalRef on dead global %#x", ref)
	}
}

func (rt *Runtime) exhausted(th *thread, msg string) {
	if rt.cfg.SilentExhaustion {
		return
	}
	rt.throw(th, "java/lang/OutOfMemoryError", msg)
}

// throw makes a new instance of class pending on th.
func (rt *Runtime) throw(th *thread, class, msg string) {
	c := rt.mustClass(class)
	rt.raise(th, rt.alloc(c, rt.message(msg)))
}

func (rt *Runtime) raise(th *thread, o *Object) {
	th.pending = o
	rt.thrown.Add(1)
}

func (rt *Runtime) message(msg string) *Object {
	return rt.alloc(rt.mustClass("java/lang/String"), msg)
}
