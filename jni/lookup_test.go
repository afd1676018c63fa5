package jni_test

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/java/lang"
	"github.com/wippyai/jvm-bridge/java/util"
	"github.com/wippyai/jvm-bridge/jni"
)

func TestLookup_NotFound(t *testing.T) {
	rt, vm := newVM(t)

	tests := []struct {
		name   string
		lookup func(env *jni.Env) error
		cause  string
	}{
		{
			name: "missing class",
			lookup: func(env *jni.Env) error {
				_, err := env.FindClass("com/example/Missing")
				return err
			},
			cause: "java.lang.NoClassDefFoundError",
		},
		{
			name: "missing method",
			lookup: func(env *jni.Env) error {
				_, err := jni.MethodOf[util.List](env, "sort", "()V")
				return err
			},
			cause: "java.lang.NoSuchMethodError",
		},
		{
			name: "static lookup of instance method",
			lookup: func(env *jni.Env) error {
				_, err := jni.StaticMethodOf[lang.Integer](env, "intValue", "()I")
				return err
			},
			cause: "java.lang.NoSuchMethodError",
		},
		{
			name: "inherited constructor",
			lookup: func(env *jni.Env) error {
				_, err := jni.ConstructorOf[lang.Integer](env, "()V")
				return err
			},
			cause: "java.lang.NoSuchMethodError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vm.With(func(env *jni.Env) error {
				err := tt.lookup(env)
				if !errors.IsKind(err, errors.KindNotFound) {
					t.Errorf("lookup = %v, want not found", err)
				}
				var te *jni.ThrownError
				if !stderrors.As(err, &te) {
					t.Fatalf("lookup error %v has no thrown cause", err)
				}
				if err := jni.CheckException(env); err != nil {
					t.Errorf("exception still pending: %v", err)
				}
				if err := te.Promote(env); err != nil {
					return err
				}
				defer te.Release()
				if !strings.HasPrefix(te.Error(), tt.cause) {
					t.Errorf("cause = %q, want %s", te.Error(), tt.cause)
				}
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
		})
	}
	assertNoViolations(t, rt)
}

func TestClassOf_Cached(t *testing.T) {
	rt, vm := newVM(t)

	var first, second uintptr
	for _, dst := range []*uintptr{&first, &second} {
		onThread(func() {
			err := vm.With(func(env *jni.Env) error {
				v, err := jni.ClassOf[util.ArrayList](env)
				if err != nil {
					return err
				}
				r, err := v.Raw()
				if err != nil {
					return err
				}
				*dst = r.Addr()
				return nil
			})
			if err != nil {
				t.Errorf("With: %v", err)
			}
		})
	}
	if first == 0 || first != second {
		t.Errorf("class handles %#x and %#x, want one cached handle", first, second)
	}
	if s := rt.Stats(); s.GlobalsCreated != 1 {
		t.Errorf("GlobalsCreated = %d, want 1", s.GlobalsCreated)
	}

	vm.ClearClassCache()
	if s := vm.Stats(); s.LiveGlobals != 0 {
		t.Errorf("LiveGlobals after clearing cache = %d, want 0", s.LiveGlobals)
	}
	if n := rt.Stats().LiveGlobals; n != 0 {
		t.Errorf("runtime globals = %d, want 0", n)
	}
	assertNoViolations(t, rt)
}

func TestMethodOf_CachedPerSignature(t *testing.T) {
	rt, vm := newVM(t)

	err := vm.With(func(env *jni.Env) error {
		size1, err := jni.MethodOf[util.List](env, "size", "()I")
		if err != nil {
			return err
		}
		created := rt.Stats().LocalsCreated
		size2, err := jni.MethodOf[util.List](env, "size", "()I")
		if err != nil {
			return err
		}
		if size1 != size2 {
			t.Errorf("method ids differ: %v, %v", size1, size2)
		}
		if rt.Stats().LocalsCreated != created {
			t.Error("cached lookup resolved the class again")
		}

		valueOf, err := jni.StaticMethodOf[lang.Integer](env, "valueOf", "(I)Ljava/lang/Integer;")
		if err != nil {
			return err
		}
		cls, err := jni.ClassOf[lang.Integer](env)
		if err != nil {
			return err
		}
		boxed, err := jni.CallStaticObject[lang.Integer](env, cls, valueOf, jni.Int(7))
		if err != nil {
			return err
		}
		str, err := jni.MethodOf[lang.Object](env, "toString", "()Ljava/lang/String;")
		if err != nil {
			return err
		}
		s, err := jni.CallObject[lang.String](env, boxed, str)
		if err != nil {
			return err
		}
		got, err := env.GoString(s)
		if err != nil {
			return err
		}
		if got != "7" {
			t.Errorf("toString = %q, want 7", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestNewObject_Abstract(t *testing.T) {
	_, vm := newVM(t)

	err := vm.With(func(env *jni.Env) error {
		cls, err := jni.ClassOf[lang.Number](env)
		if err != nil {
			return err
		}
		ctor, err := jni.ConstructorOf[lang.Number](env, "()V")
		if err != nil {
			return err
		}
		_, err = jni.NewObject[lang.Number](env, cls, ctor)
		if !errors.IsKind(err, errors.KindThrown) {
			t.Errorf("NewObject of abstract class = %v, want thrown", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCallStatic_Throws(t *testing.T) {
	_, vm := newVM(t)

	tests := []struct {
		in      string
		want    int32
		wantErr string
	}{
		{in: "12", want: 12},
		{in: "-7", want: -7},
		{in: "twelve", wantErr: `java.lang.NumberFormatException: For input string: "twelve"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := vm.With(func(env *jni.Env) error {
				cls, err := jni.ClassOf[lang.Integer](env)
				if err != nil {
					return err
				}
				parse, err := jni.StaticMethodOf[lang.Integer](env, "parseInt", "(Ljava/lang/String;)I")
				if err != nil {
					return err
				}
				s, err := env.NewString(tt.in)
				if err != nil {
					return err
				}
				n, err := jni.CallStaticInt(env, cls, parse, s)
				if err != nil {
					return err
				}
				if n != tt.want {
					t.Errorf("parseInt = %d, want %d", n, tt.want)
				}
				return nil
			})
			if tt.wantErr == "" {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			var te *jni.ThrownError
			if !stderrors.As(err, &te) {
				t.Fatalf("err = %v, want thrown", err)
			}
			defer te.Release()
			if te.Error() != tt.wantErr {
				t.Errorf("err = %q, want %q", te.Error(), tt.wantErr)
			}
		})
	}
}
