package jni_test

import (
	stderrors "errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/jvm-bridge/attach"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/internal/osthread"
	"github.com/wippyai/jvm-bridge/java/lang"
	"github.com/wippyai/jvm-bridge/java/util"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/simjvm"
)

func TestUpcast_SharesReference(t *testing.T) {
	rt, vm := newVM(t)

	err := vm.With(func(env *jni.Env) error {
		i, err := newInteger(env, 42)
		if err != nil {
			return err
		}

		before := rt.Stats()
		num := jni.Upcast(i, lang.Integer.AsNumber)
		obj := jni.Upcast(num, lang.Number.AsObject)
		after := rt.Stats()
		if before.Calls != after.Calls || before.LocalsCreated != after.LocalsCreated {
			t.Errorf("upcast touched the runtime: %+v -> %+v", before, after)
		}

		vi, err := i.Deref()
		if err != nil {
			return err
		}
		vo, err := obj.Deref()
		if err != nil {
			return err
		}
		ri, _ := vi.Raw()
		ro, _ := vo.Raw()
		if ri != ro {
			t.Errorf("upcast handle %v, want %v", ro, ri)
		}
		if vo.ClassName() != "java/lang/Object" {
			t.Errorf("ClassName = %q", vo.ClassName())
		}

		// Calls through the supertype dispatch to the object's class.
		intValue, err := jni.MethodOf[lang.Number](env, "intValue", "()I")
		if err != nil {
			return err
		}
		n, err := jni.CallInt(env, num, intValue)
		if err != nil {
			return err
		}
		if n != 42 {
			t.Errorf("intValue = %d, want 42", n)
		}

		num.Release()
		if _, err := i.Deref(); !errors.IsKind(err, errors.KindReleased) {
			t.Errorf("Deref after releasing upcast = %v, want released", err)
		}
		if env.LiveLocals() != 0 {
			t.Errorf("LiveLocals = %d, want 0", env.LiveLocals())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	assertNoViolations(t, rt)
}

func TestUpcast_Views(t *testing.T) {
	_, vm := newVM(t)

	err := vm.With(func(env *jni.Env) error {
		list, err := util.NewArrayList(env)
		if err != nil {
			return err
		}
		v, err := list.Deref()
		if err != nil {
			return err
		}
		lv := jni.UpcastView(v, util.ArrayList.AsList)

		if _, err := util.Add(env, lv, jni.Null()); err != nil {
			return err
		}
		n, err := util.Size(env, list)
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("size = %d, want 1", n)
		}

		list.Release()
		if _, err := lv.Raw(); !errors.IsKind(err, errors.KindReleased) {
			t.Errorf("view after release = %v, want released", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if jni.Upcast[util.ArrayList, util.List](nil, util.ArrayList.AsList) != nil {
		t.Error("upcast of nil is not nil")
	}
}

func TestGlobal_RoundTrip(t *testing.T) {
	rt, vm := newVM(t)

	err := vm.With(func(env *jni.Env) error {
		list, err := util.NewArrayList(env)
		if err != nil {
			return err
		}
		g, err := list.ToGlobal()
		if err != nil {
			return err
		}
		defer g.Release()

		back, err := g.ToLocal(env)
		if err != nil {
			return err
		}
		same, err := env.IsSameObject(list, back)
		if err != nil {
			return err
		}
		if !same {
			t.Error("round trip yields a different object")
		}

		vl, _ := list.Deref()
		vb, _ := back.Deref()
		if objectOf(t, rt, vl) != objectOf(t, rt, vb) {
			t.Error("round trip resolves to a different heap object")
		}

		clone, err := g.Clone(env)
		if err != nil {
			return err
		}
		clone.Release()
		vg, err := g.Deref()
		if err != nil {
			return err
		}
		if n := rt.GlobalRefCount(objectOf(t, rt, vg)); n != 1 {
			t.Errorf("global count = %d, want 1 after releasing the clone", n)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	assertNoViolations(t, rt)
}

func TestGlobal_UsableAcrossScopes(t *testing.T) {
	rt, vm := newVM(t)

	var g *jni.Global[util.ArrayList]
	if err := vm.With(func(env *jni.Env) error {
		list, err := util.NewArrayList(env)
		if err != nil {
			return err
		}
		if _, err := util.Add(env, list, list); err != nil {
			return err
		}
		g, err = list.ToGlobal()
		return err
	}); err != nil {
		t.Fatal(err)
	}
	defer g.Release()

	onThread(func() {
		if err := vm.With(func(env *jni.Env) error {
			n, err := util.Size(env, g)
			if err != nil {
				return err
			}
			if n != 1 {
				t.Errorf("size = %d, want 1", n)
			}
			return nil
		}); err != nil {
			t.Errorf("With on second thread: %v", err)
		}
	})
	assertNoViolations(t, rt)
}

func TestGlobal_ReleaseFromUnattachedThread(t *testing.T) {
	rt, vm := newVM(t)

	var (
		g   *jni.Global[util.ArrayList]
		obj *simjvm.Object
	)
	onThread(func() {
		if err := vm.With(func(env *jni.Env) error {
			list, err := util.NewArrayList(env)
			if err != nil {
				return err
			}
			if g, err = list.ToGlobal(); err != nil {
				return err
			}
			v, _ := g.Deref()
			obj = objectOf(t, rt, v)
			return nil
		}); err != nil {
			t.Errorf("With: %v", err)
		}
	})
	if t.Failed() {
		return
	}
	if n := rt.GlobalRefCount(obj); n != 1 {
		t.Fatalf("global count = %d, want 1", n)
	}

	onThread(func() {
		if rt.IsAttached(osthread.ID()) {
			t.Error("releasing thread is attached before release")
		}
		g.Release()
	})

	if n := rt.GlobalRefCount(obj); n != 0 {
		t.Errorf("global count after release = %d, want 0", n)
	}
	if s := vm.Stats(); s.ReleaseFailures != 0 {
		t.Errorf("ReleaseFailures = %d", s.ReleaseFailures)
	}
	if n := rt.Stats().Threads; n != 0 {
		t.Errorf("%d threads still attached after release", n)
	}
	if _, err := g.Deref(); !errors.IsKind(err, errors.KindReleased) {
		t.Errorf("Deref after release = %v, want released", err)
	}
	g.Release()
	assertNoViolations(t, rt)
}

func TestGlobal_ReleaseFailureIsCounted(t *testing.T) {
	rt := simjvm.New()
	rec := &recorder{}
	vm, err := jni.New(rt.VM(), jni.WithObserver(rec))
	if err != nil {
		t.Fatal(err)
	}

	var g *jni.Global[lang.String]
	if err := vm.With(func(env *jni.Env) error {
		s, err := env.NewString("doomed")
		if err != nil {
			return err
		}
		g, err = s.ToGlobal()
		return err
	}); err != nil {
		t.Fatal(err)
	}

	rt.FailNextAttach(1)
	onThread(g.Release)

	if s := vm.Stats(); s.ReleaseFailures != 1 {
		t.Errorf("ReleaseFailures = %d, want 1", s.ReleaseFailures)
	}
	if rec.count(jni.EventReleaseFailed) != 1 {
		t.Error("release failure not reported to observers")
	}
}

// The thread keeps its attachment across scopes until it detaches
// explicitly, while a global made on it is released from another thread
// that never attached permanently.
func TestPermanentAttachment_Scenario(t *testing.T) {
	rt, vm := newVM(t)

	onThread(func() {
		if err := vm.AttachPermanently(); err != nil {
			t.Errorf("AttachPermanently: %v", err)
			return
		}
		tid := osthread.ID()

		var (
			d   *jni.Global[util.ArrayList]
			obj *simjvm.Object
		)
		err := vm.With(func(env *jni.Env) error {
			if !env.Permanent() {
				t.Error("scope on permanent thread is not permanent")
			}
			s1, err := util.NewArrayList(env)
			if err != nil {
				return err
			}
			if d, err = s1.ToGlobal(); err != nil {
				return err
			}
			v, _ := d.Deref()
			obj = objectOf(t, rt, v)
			return nil
		})
		if err != nil {
			t.Errorf("With: %v", err)
			return
		}

		if !rt.IsAttached(tid) {
			t.Error("permanent thread detached at scope end")
		}
		states := vm.Threads()
		if len(states) != 1 || states[0].Kind != attach.Attached || !states[0].Permanent {
			t.Errorf("Threads = %+v, want one permanent attachment", states)
		}

		onThread(d.Release)
		if n := rt.GlobalRefCount(obj); n != 0 {
			t.Errorf("global count = %d, want 0", n)
		}

		if err := vm.DetachCurrentThread(); err != nil {
			t.Errorf("DetachCurrentThread: %v", err)
		}
		if rt.IsAttached(tid) {
			t.Error("thread still attached after explicit detach")
		}
	})
	assertNoViolations(t, rt)
}

func TestLocal_Exhaustion(t *testing.T) {
	rt, vm := newVM(t, simjvm.WithLocalCapacity(4))

	err := vm.With(func(env *jni.Env) error {
		var held []*jni.Local[lang.String]
		for range 4 {
			s, err := env.NewString("x")
			if err != nil {
				return err
			}
			held = append(held, s)
		}

		_, err := held[0].Clone()
		if !errors.IsKind(err, errors.KindExhausted) {
			t.Errorf("Clone on full table = %v, want exhausted", err)
		}
		var te *jni.ThrownError
		if !stderrors.As(err, &te) {
			t.Fatalf("exhaustion cause = %v, want a thrown error", err)
		}

		for _, s := range held {
			s.Release()
		}
		if err := te.Promote(env); err != nil {
			return err
		}
		defer te.Release()
		if !strings.HasPrefix(te.Error(), "java.lang.OutOfMemoryError") {
			t.Errorf("cause = %q, want an OutOfMemoryError", te.Error())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	assertNoViolations(t, rt)
}

func TestLocal_SilentExhaustion(t *testing.T) {
	_, vm := newVM(t, simjvm.WithLocalCapacity(1), simjvm.WithSilentExhaustion())

	err := vm.With(func(env *jni.Env) error {
		if _, err := env.NewString("fits"); err != nil {
			return err
		}
		_, err := env.NewString("overflow")
		if !errors.IsKind(err, errors.KindExhausted) {
			t.Errorf("NewString on full table = %v, want exhausted", err)
		}
		var te *jni.ThrownError
		if stderrors.As(err, &te) {
			t.Errorf("silent exhaustion carries thrown cause %v", te)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestGlobal_Exhaustion(t *testing.T) {
	_, vm := newVM(t, simjvm.WithGlobalCapacity(1))

	err := vm.With(func(env *jni.Env) error {
		s, err := env.NewString("x")
		if err != nil {
			return err
		}
		g, err := s.ToGlobal()
		if err != nil {
			return err
		}
		defer g.Release()

		_, err = s.ToGlobal()
		if !errors.IsKind(err, errors.KindExhausted) {
			t.Errorf("ToGlobal on full table = %v, want exhausted", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestGlobal_CollectedWhenUnreachable(t *testing.T) {
	rt, vm := newVM(t)

	if err := vm.With(func(env *jni.Env) error {
		s, err := env.NewString("forgotten")
		if err != nil {
			return err
		}
		_, err = s.ToGlobal()
		return err
	}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for vm.Stats().Collected == 0 {
		if time.Now().After(deadline) {
			t.Fatal("global was never collected")
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if s := vm.Stats(); s.LiveGlobals != 0 {
		t.Errorf("LiveGlobals = %d, want 0", s.LiveGlobals)
	}
	if n := rt.Stats().LiveGlobals; n != 0 {
		t.Errorf("runtime globals = %d, want 0", n)
	}
}

func TestReference_NullHandling(t *testing.T) {
	_, vm := newVM(t)

	err := vm.With(func(env *jni.Env) error {
		var missing *jni.Local[util.ArrayList]
		if _, err := missing.Deref(); !errors.IsKind(err, errors.KindNullDeref) {
			t.Errorf("Deref of nil local = %v, want null deref", err)
		}
		if _, err := util.Size(env, missing); !errors.IsKind(err, errors.KindNullDeref) {
			t.Errorf("call on nil local = %v, want null deref", err)
		}
		var none *jni.Global[util.ArrayList]
		if _, err := none.ToLocal(env); !errors.IsKind(err, errors.KindNullDeref) {
			t.Errorf("ToLocal of nil global = %v, want null deref", err)
		}
		none.Release()
		if _, err := (jni.View[lang.Object]{}).Raw(); !errors.IsKind(err, errors.KindNullDeref) {
			t.Errorf("zero view = %v, want null deref", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
