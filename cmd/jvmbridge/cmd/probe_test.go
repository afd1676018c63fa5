package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/jvm-bridge/attach"
)

func TestRunProbe_Sim(t *testing.T) {
	b, err := openSim()
	if err != nil {
		t.Fatalf("openSim: %v", err)
	}

	report := runProbe(b)
	for _, s := range report.Steps {
		if !s.Passed {
			t.Errorf("step %q failed: %s", s.Name, s.Detail)
		}
	}
	if !report.Passed() {
		t.Errorf("report not passed, violations: %v", report.Violations)
	}

	want := []string{
		"attach permanently",
		"duplicate scoped reference",
		"attachment survives scope",
		"release from second thread",
		"exception checked once",
		"detach",
	}
	if len(report.Steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(report.Steps), len(want))
	}
	for i, name := range want {
		if report.Steps[i].Name != name {
			t.Errorf("step %d = %q, want %q", i, report.Steps[i].Name, name)
		}
	}

	if report.Stats.LiveLocals != 0 {
		t.Errorf("LiveLocals = %d, want 0", report.Stats.LiveLocals)
	}
	if report.Stats.Thrown != 1 {
		t.Errorf("Thrown = %d, want 1", report.Stats.Thrown)
	}
	if n := b.sim.Stats().Threads; n != 0 {
		t.Errorf("simulator still has %d attached threads", n)
	}
}

func TestPrintReport(t *testing.T) {
	report := &probeReport{
		RunID:   "0b7e6f3c-5d0a-4a1e-9f0e-6b2d1c3a4e5f",
		Backend: "sim",
		Steps: []probeStep{
			{Name: "attach permanently", Passed: true, Detail: "thread 1"},
			{Name: "detach", Passed: false, Detail: "boom"},
		},
	}

	tests := []struct {
		format  string
		want    []string
		wantErr bool
	}{
		{format: "table", want: []string{"Run: 0b7e", "Backend: sim", "attach permanently", "FAILED", "boom"}},
		{format: "", want: []string{"Backend: sim"}},
		{format: "yaml", want: []string{"backend: sim", "- name: detach", "passed: false"}},
		{format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := printReport(&buf, tt.format, report)
			if (err != nil) != tt.wantErr {
				t.Fatalf("printReport() error = %v, wantErr %v", err, tt.wantErr)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestPrintReport_JSON(t *testing.T) {
	report := &probeReport{
		Backend: "sim",
		Steps:   []probeStep{{Name: "detach", Passed: true}},
	}

	var buf bytes.Buffer
	if err := printReport(&buf, "json", report); err != nil {
		t.Fatalf("printReport: %v", err)
	}

	var got probeReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got.Backend != "sim" || len(got.Steps) != 1 || !got.Steps[0].Passed {
		t.Errorf("decoded %+v", got)
	}
}

func TestOpenBackend_Unknown(t *testing.T) {
	_, err := openBackend("graal")
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "sim") {
		t.Errorf("error should list available backends: %v", err)
	}
}

func TestWorkload(t *testing.T) {
	b, err := openSim()
	if err != nil {
		t.Fatalf("openSim: %v", err)
	}

	load := newWorkload(b.vm, 3, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	load.run(ctx)

	if load.ops.Load() == 0 {
		t.Error("workload made no progress")
	}
	if n := load.errors.Load(); n != 0 {
		t.Errorf("workload had %d failed scopes", n)
	}
	if v := b.violations(); len(v) != 0 {
		t.Errorf("violations: %v", v)
	}

	stats := b.vm.Stats()
	if stats.LiveLocals != 0 {
		t.Errorf("LiveLocals = %d, want 0", stats.LiveLocals)
	}
	for _, ts := range b.vm.Threads() {
		if ts.Kind != attach.Detached {
			t.Errorf("thread %d left %s", ts.Thread, ts.Kind)
		}
	}
	if n := b.sim.Stats().Threads; n != 0 {
		t.Errorf("simulator still has %d attached threads", n)
	}
}
