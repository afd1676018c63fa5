package simjvm

import (
	"runtime"
	"strings"
	"testing"

	"github.com/wippyai/jvm-bridge/internal/osthread"
	"github.com/wippyai/jvm-bridge/raw"
)

// onThread runs fn on a goroutine locked to a fresh attachment.
func onThread(t *testing.T, rt *Runtime, fn func(env raw.Env)) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		env, err := rt.VM().AttachThread()
		if err != nil {
			t.Errorf("AttachThread: %v", err)
			return
		}
		defer func() {
			if err := rt.VM().DetachThread(); err != nil {
				t.Errorf("DetachThread: %v", err)
			}
		}()
		fn(env)
	}()
	<-done
}

func call[R any](env raw.Env, f func(e uintptr, fns *raw.EnvFuncs) R) R {
	return raw.Invoke(env,
		func(t *raw.EnvFuncs) *raw.EnvFuncs { return t },
		f,
	)
}

func findClass(env raw.Env, name string) uintptr {
	return call(env, func(e uintptr, f *raw.EnvFuncs) uintptr { return f.FindClass(e, name) })
}

func methodID(env raw.Env, class uintptr, name, sig string) uintptr {
	return call(env, func(e uintptr, f *raw.EnvFuncs) uintptr { return f.GetMethodID(e, class, name, sig) })
}

func deleteLocal(env raw.Env, ref uintptr) {
	call(env, func(e uintptr, f *raw.EnvFuncs) struct{} { f.DeleteLocalRef(e, ref); return struct{}{} })
}

func pending(env raw.Env) uintptr {
	return call(env, func(e uintptr, f *raw.EnvFuncs) uintptr { return f.ExceptionOccurred(e) })
}

func clearPending(env raw.Env) {
	call(env, func(e uintptr, f *raw.EnvFuncs) struct{} { f.ExceptionClear(e); return struct{}{} })
}

func newArrayList(t *testing.T, env raw.Env) (list, class uintptr) {
	t.Helper()
	class = findClass(env, "java/util/ArrayList")
	ctor := methodID(env, class, "<init>", "()V")
	list = call(env, func(e uintptr, f *raw.EnvFuncs) uintptr { return f.NewObjectA(e, class, ctor, nil) })
	if class == 0 || ctor == 0 || list == 0 {
		t.Fatalf("class=%#x ctor=%#x list=%#x", class, ctor, list)
	}
	return list, class
}

func assertNoViolations(t *testing.T, rt *Runtime) {
	t.Helper()
	for _, v := range rt.Violations() {
		t.Errorf("violation: %v", v)
	}
}

func TestRuntime_Builtins(t *testing.T) {
	rt := New()

	for _, name := range []string{
		"java/lang/Object", "java/lang/Class", "java/lang/String", "java/lang/Throwable",
		"java/lang/OutOfMemoryError", "java/lang/Integer", "java/util/List", "java/util/ArrayList",
	} {
		if _, ok := rt.Class(name); !ok {
			t.Errorf("builtin %s missing", name)
		}
	}

	list, _ := rt.Class("java/util/ArrayList")
	coll, _ := rt.Class("java/util/List")
	obj, _ := rt.Class("java/lang/Object")
	integer, _ := rt.Class("java/lang/Integer")
	if !list.AssignableTo(coll) || !list.AssignableTo(obj) {
		t.Error("ArrayList should be a List and an Object")
	}
	if integer.AssignableTo(coll) {
		t.Error("Integer is not a List")
	}
	if list.DottedName() != "java.util.ArrayList" {
		t.Errorf("DottedName = %q", list.DottedName())
	}
}

func TestRuntime_AttachLifecycle(t *testing.T) {
	rt := New()
	vm := rt.VM()

	onThread(t, rt, func(env raw.Env) {
		got, attached, err := vm.GetEnv()
		if err != nil || !attached || got != env {
			t.Errorf("GetEnv = %v, %v, %v", got, attached, err)
		}
		if !rt.IsAttached(osthread.ID()) {
			t.Error("IsAttached = false")
		}

		// Attaching twice returns the same environment.
		again, err := vm.AttachThread()
		if err != nil || again != env {
			t.Errorf("second AttachThread = %v, %v", again, err)
		}
	})

	s := rt.Stats()
	if s.Attaches != 1 || s.Detaches != 1 || s.Threads != 0 {
		t.Errorf("stats = %+v", s)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if _, attached, err := vm.GetEnv(); attached || err != nil {
			t.Errorf("GetEnv on fresh thread = %v, %v", attached, err)
		}
	}()
	<-done
	assertNoViolations(t, rt)
}

func TestRuntime_FaultInjection(t *testing.T) {
	rt := New()
	rt.FailNextAttach(1)
	rt.FailNextDetach(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if _, err := rt.VM().AttachThread(); err == nil {
			t.Error("expected injected attach failure")
		}
		if _, err := rt.VM().AttachThread(); err != nil {
			t.Errorf("AttachThread: %v", err)
		}
		if err := rt.VM().DetachThread(); err == nil {
			t.Error("expected injected detach failure")
		}
		if err := rt.VM().DetachThread(); err != nil {
			t.Errorf("DetachThread: %v", err)
		}
	}()
	<-done
}

func TestRuntime_ObjectsAndCalls(t *testing.T) {
	rt := New()

	onThread(t, rt, func(env raw.Env) {
		list, class := newArrayList(t, env)
		add := methodID(env, class, "add", "(Ljava/lang/Object;)Z")
		size := methodID(env, class, "size", "()I")
		get := methodID(env, class, "get", "(I)Ljava/lang/Object;")

		str := call(env, func(e uintptr, f *raw.EnvFuncs) uintptr { return f.NewStringUTF(e, "hello") })
		ok := call(env, func(e uintptr, f *raw.EnvFuncs) bool {
			return f.CallBooleanMethodA(e, list, add, []raw.Value{raw.ObjectValue(mustObject(t, str))})
		})
		if !ok {
			t.Fatal("add returned false")
		}
		n := call(env, func(e uintptr, f *raw.EnvFuncs) int32 { return f.CallIntMethodA(e, list, size, nil) })
		if n != 1 {
			t.Fatalf("size = %d", n)
		}

		elem := call(env, func(e uintptr, f *raw.EnvFuncs) uintptr {
			return f.CallObjectMethodA(e, list, get, []raw.Value{raw.IntValue(0)})
		})
		same := call(env, func(e uintptr, f *raw.EnvFuncs) bool { return f.IsSameObject(e, elem, str) })
		if !same || elem == str {
			t.Errorf("get(0) = %#x, want a new reference to %#x", elem, str)
		}
		s, ok := call(env, func(e uintptr, f *raw.EnvFuncs) stringResult {
			v, ok := f.GetStringUTF(e, elem)
			return stringResult{v, ok}
		}).unpack()
		if !ok || s != "hello" {
			t.Errorf("GetStringUTF = %q, %v", s, ok)
		}

		for _, ref := range []uintptr{list, class, str, elem} {
			deleteLocal(env, ref)
		}
		if n := rt.LocalRefCount(env.Addr()); n != 0 {
			t.Errorf("locals left = %d", n)
		}
	})
	assertNoViolations(t, rt)
}

type stringResult struct {
	s  string
	ok bool
}

func (r stringResult) unpack() (string, bool) { return r.s, r.ok }

func mustObject(t *testing.T, ref uintptr) raw.Object {
	t.Helper()
	o, ok := raw.NewObject(ref)
	if !ok {
		t.Fatal("null reference")
	}
	return o
}

func TestRuntime_Exceptions(t *testing.T) {
	rt := New()

	onThread(t, rt, func(env raw.Env) {
		list, class := newArrayList(t, env)
		get := methodID(env, class, "get", "(I)Ljava/lang/Object;")

		res := call(env, func(e uintptr, f *raw.EnvFuncs) uintptr {
			return f.CallObjectMethodA(e, list, get, []raw.Value{raw.IntValue(3)})
		})
		if res != 0 {
			t.Errorf("throwing call returned %#x", res)
		}
		exc := pending(env)
		if exc == 0 {
			t.Fatal("no pending exception")
		}
		o, _ := rt.ObjectAt(exc)
		if o.Class.Name != "java/lang/IndexOutOfBoundsException" {
			t.Errorf("pending = %s", o.Class.Name)
		}
		msg, _ := o.Value.(*Object)
		if msg == nil || msg.Value != "Index 3 out of bounds for length 0" {
			t.Errorf("message = %v", msg)
		}

		clearPending(env)
		if pending(env) != 0 {
			t.Error("exception still pending after clear")
		}

		if findClass(env, "com/example/Missing") != 0 {
			t.Error("FindClass of a missing class succeeded")
		}
		missing := pending(env)
		if o, _ := rt.ObjectAt(missing); o == nil || o.Class.Name != "java/lang/NoClassDefFoundError" {
			t.Errorf("pending after FindClass = %v", o)
		}
		clearPending(env)

		for _, ref := range []uintptr{list, class, exc, missing} {
			deleteLocal(env, ref)
		}
	})
	assertNoViolations(t, rt)

	if s := rt.Stats(); s.Thrown != 2 {
		t.Errorf("thrown = %d", s.Thrown)
	}
}

func TestRuntime_LocalExhaustion(t *testing.T) {
	tests := []struct {
		name   string
		silent bool
	}{
		{name: "throws"},
		{name: "silent", silent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{WithLocalCapacity(2)}
			if tt.silent {
				opts = append(opts, WithSilentExhaustion())
			}
			rt := New(opts...)

			onThread(t, rt, func(env raw.Env) {
				a := findClass(env, "java/lang/Object")
				b := call(env, func(e uintptr, f *raw.EnvFuncs) uintptr { return f.NewLocalRef(e, a) })
				c := call(env, func(e uintptr, f *raw.EnvFuncs) uintptr { return f.NewLocalRef(e, a) })
				if a == 0 || b == 0 || c != 0 {
					t.Fatalf("a=%#x b=%#x c=%#x", a, b, c)
				}

				exc := pending(env)
				if tt.silent {
					if exc != 0 {
						t.Error("silent exhaustion left an exception pending")
					}
				} else {
					o, _ := rt.ObjectAt(exc)
					if o == nil || o.Class.Name != "java/lang/OutOfMemoryError" {
						t.Errorf("pending = %v", o)
					}
					clearPending(env)
					deleteLocal(env, exc)
				}
				deleteLocal(env, a)
				deleteLocal(env, b)
			})
			assertNoViolations(t, rt)
		})
	}
}

func TestRuntime_Globals(t *testing.T) {
	rt := New(WithGlobalCapacity(1))

	var global uintptr
	var obj *Object
	onThread(t, rt, func(env raw.Env) {
		class := findClass(env, "java/lang/Object")
		obj, _ = rt.ObjectAt(class)
		global = call(env, func(e uintptr, f *raw.EnvFuncs) uintptr { return f.NewGlobalRef(e, class) })
		if global == 0 {
			t.Fatal("NewGlobalRef returned null")
		}
		if full := call(env, func(e uintptr, f *raw.EnvFuncs) uintptr { return f.NewGlobalRef(e, class) }); full != 0 {
			t.Errorf("NewGlobalRef beyond capacity = %#x", full)
		}
		exc := pending(env)
		clearPending(env)
		deleteLocal(env, exc)
		deleteLocal(env, class)
	})

	if n := rt.GlobalRefCount(obj); n != 1 {
		t.Fatalf("GlobalRefCount = %d", n)
	}

	// Another thread may delete it.
	onThread(t, rt, func(env raw.Env) {
		call(env, func(e uintptr, f *raw.EnvFuncs) struct{} { f.DeleteGlobalRef(e, global); return struct{}{} })
	})
	if n := rt.GlobalRefCount(obj); n != 0 {
		t.Errorf("GlobalRefCount after delete = %d", n)
	}
	if s := rt.Stats(); s.GlobalsCreated != 1 || s.GlobalsDeleted != 1 || s.LiveGlobals != 0 {
		t.Errorf("stats = %+v", s)
	}
	assertNoViolations(t, rt)
}

func TestRuntime_Violations(t *testing.T) {
	tests := []struct {
		name string
		kind ViolationKind
		run  func(t *testing.T, rt *Runtime, env raw.Env)
	}{
		{
			name: "leaked locals",
			kind: ViolationLeakedLocals,
			run: func(t *testing.T, rt *Runtime, env raw.Env) {
				findClass(env, "java/lang/Object")
			},
		},
		{
			name: "stale ref",
			kind: ViolationStaleRef,
			run: func(t *testing.T, rt *Runtime, env raw.Env) {
				ref := findClass(env, "java/lang/Object")
				deleteLocal(env, ref)
				deleteLocal(env, ref)
			},
		},
		{
			name: "pending exception",
			kind: ViolationPendingException,
			run: func(t *testing.T, rt *Runtime, env raw.Env) {
				findClass(env, "com/example/Missing")
				findClass(env, "java/lang/Object")
			},
		},
		{
			name: "bad arguments",
			kind: ViolationBadArguments,
			run: func(t *testing.T, rt *Runtime, env raw.Env) {
				list, class := newArrayList(t, env)
				get := methodID(env, class, "get", "(I)Ljava/lang/Object;")
				call(env, func(e uintptr, f *raw.EnvFuncs) uintptr { return f.CallObjectMethodA(e, list, get, nil) })
				deleteLocal(env, list)
				deleteLocal(env, class)
			},
		},
		{
			name: "wrong thread",
			kind: ViolationWrongThread,
			run: func(t *testing.T, rt *Runtime, env raw.Env) {
				done := make(chan struct{})
				go func() {
					defer close(done)
					runtime.LockOSThread()
					defer runtime.UnlockOSThread()
					call(env, func(e uintptr, f *raw.EnvFuncs) bool { return f.ExceptionCheck(e) })
				}()
				<-done
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := New()
			onThread(t, rt, func(env raw.Env) { tt.run(t, rt, env) })

			found := false
			for _, v := range rt.Violations() {
				if v.Kind == tt.kind {
					found = true
				}
			}
			if !found {
				t.Errorf("no %v violation in %v", tt.kind, rt.Violations())
			}
		})
	}
}

func TestRuntime_ExternalAttachment(t *testing.T) {
	rt := New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		env := rt.AttachExternally()
		got, attached, err := rt.VM().GetEnv()
		if err != nil || !attached || got.Addr() != env {
			t.Errorf("GetEnv = %v, %v, %v", got, attached, err)
		}
		rt.DetachExternally()
		if rt.IsAttached(osthread.ID()) {
			t.Error("still attached after DetachExternally")
		}
	}()
	<-done

	if s := rt.Stats(); s.Attaches != 0 {
		t.Errorf("external attachment counted as attach: %+v", s)
	}
}

func TestDefine(t *testing.T) {
	rt := New()

	if _, err := rt.Define(ClassDef{Name: "com/example/Greeter", Methods: []MethodDef{
		{Name: "<init>", Sig: "()V", Fn: func(*Frame) raw.Value { return raw.Value{} }},
		{Name: "greet", Sig: "(Ljava/lang/String;)Ljava/lang/String;", Fn: func(f *Frame) raw.Value {
			return f.Return(f.String("hello " + f.Object(0).Value.(string)))
		}},
	}}); err != nil {
		t.Fatalf("Define: %v", err)
	}

	tests := []struct {
		def  ClassDef
		want string
	}{
		{ClassDef{Name: "com/example/Greeter"}, "already defined"},
		{ClassDef{Name: "com/example/A", Super: "com/example/Nope"}, "not defined"},
		{ClassDef{Name: "com/example/B", Interfaces: []string{"java/lang/Object"}}, "not a defined interface"},
		{ClassDef{Name: "com/example/C", Methods: []MethodDef{{Name: "f", Sig: "(Q)V"}}}, "invalid type"},
		{ClassDef{}, "empty"},
	}
	for _, tt := range tests {
		_, err := rt.Define(tt.def)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("Define(%q) err = %v, want %q", tt.def.Name, err, tt.want)
		}
	}
}

func TestParamCount(t *testing.T) {
	tests := []struct {
		sig     string
		want    int
		wantErr bool
	}{
		{"()V", 0, false},
		{"(I)V", 1, false},
		{"(IJ)Z", 2, false},
		{"(Ljava/lang/String;I)Ljava/lang/Object;", 2, false},
		{"([I[[Ljava/lang/Object;D)V", 3, false},
		{"I)V", 0, true},
		{"(I", 0, true},
		{"(Ljava/lang/String)V", 0, true},
		{"([)V", 0, true},
	}
	for _, tt := range tests {
		got, err := paramCount(tt.sig)
		if (err != nil) != tt.wantErr {
			t.Errorf("paramCount(%q) err = %v", tt.sig, err)
			continue
		}
		if got != tt.want {
			t.Errorf("paramCount(%q) = %d, want %d", tt.sig, got, tt.want)
		}
	}
}
