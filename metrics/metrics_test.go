package metrics

import (
	stderrors "errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wippyai/jvm-bridge/java/util"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/simjvm"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)

	body, err := io.ReadAll(w.Result().Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestCollector(t *testing.T) {
	c := New("jvmbridge")
	vm, err := jni.New(simjvm.New().VM(), jni.WithObserver(c))
	if err != nil {
		t.Fatal(err)
	}

	err = vm.With(func(env *jni.Env) error {
		_ = vm.With(func(*jni.Env) error { return nil })

		list, err := util.NewArrayList(env)
		if err != nil {
			return err
		}
		out := scrape(t, c)
		if !strings.Contains(out, "jvmbridge_local_references 1") {
			t.Errorf("local gauge inside scope:\n%s", out)
		}
		_, err = util.Get(env, list, 3)
		return err
	})
	var te *jni.ThrownError
	if !stderrors.As(err, &te) {
		t.Fatalf("With = %v, want thrown", err)
	}
	te.Release()
	vm.ClearClassCache()

	out := scrape(t, c)
	for _, want := range []string{
		"jvmbridge_local_references 0",
		"jvmbridge_global_references 0",
		"jvmbridge_exceptions_thrown_total 1",
		`jvmbridge_attach_events_total{event="attached"} 1`,
		`jvmbridge_attach_events_total{event="detached"} 1`,
		`jvmbridge_attach_events_total{event="nested_usage"} 1`,
		"jvmbridge_release_failures_total 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestCollector_ReleaseFailure(t *testing.T) {
	c := New("jvmbridge")
	rt := simjvm.New()
	vm, err := jni.New(rt.VM(), jni.WithObserver(c))
	if err != nil {
		t.Fatal(err)
	}

	var g *jni.Global[util.ArrayList]
	if err := vm.With(func(env *jni.Env) error {
		list, err := util.NewArrayList(env)
		if err != nil {
			return err
		}
		g, err = list.ToGlobal()
		return err
	}); err != nil {
		t.Fatal(err)
	}

	rt.FailNextAttach(1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Release()
	}()
	<-done

	if out := scrape(t, c); !strings.Contains(out, "jvmbridge_release_failures_total 1") {
		t.Errorf("release failure not counted:\n%s", out)
	}
}
