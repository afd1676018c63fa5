package cmd

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/jvm-bridge/attach"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/internal/osthread"
	"github.com/wippyai/jvm-bridge/java/lang"
	"github.com/wippyai/jvm-bridge/java/util"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/simjvm"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run the reference lifetime probe",
	Long: `Probe attaches a thread permanently, creates an object and duplicates its
scoped reference into a durable one, releases the durable reference from a
second thread and finally detaches. Each step is checked against the
runtime's own accounting.

Example:
  jvmbridge probe
  jvmbridge probe --output json`,
	RunE: runProbeCmd,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

type probeStep struct {
	Name   string `json:"name" yaml:"name"`
	Detail string `json:"detail" yaml:"detail"`
	Passed bool   `json:"passed" yaml:"passed"`
}

type probeReport struct {
	RunID      string      `json:"run_id" yaml:"run_id"`
	Backend    string      `json:"backend" yaml:"backend"`
	Steps      []probeStep `json:"steps" yaml:"steps"`
	Violations []string    `json:"violations,omitempty" yaml:"violations,omitempty"`
	Stats      jni.Stats   `json:"stats" yaml:"stats"`
}

// Passed reports whether every step passed without scope violations.
func (r *probeReport) Passed() bool {
	for _, s := range r.Steps {
		if !s.Passed {
			return false
		}
	}
	return len(r.Violations) == 0
}

func (r *probeReport) add(name string, passed bool, format string, args ...any) {
	r.Steps = append(r.Steps, probeStep{Name: name, Passed: passed, Detail: fmt.Sprintf(format, args...)})
}

func (r *probeReport) fail(name string, err error) {
	r.add(name, false, "%v", err)
}

func runProbeCmd(cmd *cobra.Command, args []string) error {
	b, err := openBackend(viper.GetString("backend"))
	if err != nil {
		return err
	}

	report := runProbe(b)
	if err := printReport(cmd.OutOrStdout(), viper.GetString("output"), report); err != nil {
		return err
	}
	if !report.Passed() {
		return fmt.Errorf("probe failed")
	}
	return nil
}

// pinned runs functions on one locked OS thread.
type pinned struct {
	work chan func()
}

func startPinned() *pinned {
	p := &pinned{work: make(chan func())}
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		for fn := range p.work {
			fn()
		}
	}()
	return p
}

func (p *pinned) run(fn func()) {
	done := make(chan struct{})
	p.work <- func() {
		defer close(done)
		fn()
	}
	<-done
}

func (p *pinned) stop() {
	close(p.work)
}

// runProbe runs the probe scenario. It stops at the first failed step that
// later steps depend on.
func runProbe(b *backend) *probeReport {
	report := &probeReport{RunID: uuid.New().String(), Backend: b.name}
	defer func() {
		report.Stats = b.vm.Stats()
		report.Violations = b.violations()
	}()

	t := startPinned()
	defer t.stop()

	var (
		tid     int64
		d       *jni.Global[util.ArrayList]
		obj     *simjvm.Object
		globals int64
		err     error
	)

	t.run(func() {
		tid = osthread.ID()
		err = b.vm.AttachPermanently()
	})
	if err != nil {
		report.fail("attach permanently", err)
		return report
	}
	report.add("attach permanently", true, "thread %d", tid)

	t.run(func() {
		err = b.vm.With(func(env *jni.Env) error {
			s1, err := util.NewArrayList(env)
			if err != nil {
				return err
			}
			globals = b.vm.Stats().LiveGlobals
			if d, err = s1.ToGlobal(); err != nil {
				return err
			}
			v, err := d.Deref()
			if err != nil {
				return err
			}
			ro, err := v.Raw()
			if err != nil {
				return err
			}
			if b.sim != nil {
				obj, _ = b.sim.ObjectAt(ro.Addr())
			}
			return nil
		})
	})
	if err != nil {
		report.fail("duplicate scoped reference", err)
		t.run(func() { _ = b.vm.DetachCurrentThread() })
		return report
	}
	if n := b.vm.Stats().LiveGlobals; n != globals+1 {
		report.add("duplicate scoped reference", false, "live globals %d -> %d", globals, n)
	} else {
		report.add("duplicate scoped reference", true, "durable %s", d)
	}

	var st attach.State
	for _, ts := range b.vm.Threads() {
		if ts.Thread == tid {
			st = ts.State
		}
	}
	report.add("attachment survives scope",
		st.Kind == attach.Attached && st.Permanent,
		"thread %d %s permanent=%t", tid, st.Kind, st.Permanent)

	var tid2 int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		tid2 = osthread.ID()
		d.Release()
	}()
	<-done

	remaining := "n/a"
	released := b.vm.Stats().LiveGlobals == globals
	if obj != nil {
		n := b.sim.GlobalRefCount(obj)
		remaining = strconv.Itoa(n)
		released = released && n == 0 && !b.sim.IsAttached(tid2)
	}
	report.add("release from second thread", released,
		"thread %d, globals to object: %s", tid2, remaining)

	t.run(func() {
		err = b.vm.With(probeException)
	})
	if err != nil {
		report.fail("exception checked once", err)
	} else {
		report.add("exception checked once", true, "parseInt(\"twelve\") raised NumberFormatException")
	}

	t.run(func() {
		err = b.vm.DetachCurrentThread()
	})
	if err != nil {
		report.fail("detach", err)
		return report
	}
	detached := true
	for _, ts := range b.vm.Threads() {
		if ts.Thread == tid && ts.Kind != attach.Detached {
			detached = false
		}
	}
	if b.sim != nil {
		detached = detached && !b.sim.IsAttached(tid)
	}
	report.add("detach", detached, "thread %d", tid)
	return report
}

// probeException checks that a thrown exception is reported once and then
// cleared.
func probeException(env *jni.Env) error {
	cls, err := jni.ClassOf[lang.Integer](env)
	if err != nil {
		return err
	}
	parseInt, err := jni.StaticMethodOf[lang.Integer](env, "parseInt", "(Ljava/lang/String;)I")
	if err != nil {
		return err
	}
	s, err := env.NewString("twelve")
	if err != nil {
		return err
	}

	_, err = jni.CallStaticInt(env, cls, parseInt, s)
	var te *jni.ThrownError
	if !stderrors.As(err, &te) {
		return fmt.Errorf("expected a thrown exception, got %v", err)
	}
	iae, err := jni.ClassOf[lang.IllegalArgumentException](env)
	if err != nil {
		return err
	}
	if ok, err := te.InstanceOf(env, iae); err != nil || !ok {
		return fmt.Errorf("unexpected exception %v", te)
	}
	if msg, err := te.Message(env); err != nil || msg != `For input string: "twelve"` {
		return fmt.Errorf("unexpected message %q (%v)", msg, err)
	}
	if again := jni.CheckException(env); again != nil {
		return errors.Internal(errors.PhaseException, "exception still pending: %v", again)
	}
	return nil
}

func printReport(w io.Writer, format string, r *probeReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(r)
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	fmt.Fprintf(w, "Run: %s\nBackend: %s\n\n", r.RunID, r.Backend)

	table := tablewriter.NewWriter(w)
	table.Header("Step", "Result", "Detail")
	for _, s := range r.Steps {
		result := "ok"
		if !s.Passed {
			result = "FAILED"
		}
		table.Append([]string{s.Name, result, s.Detail})
	}
	table.Render()

	fmt.Fprintf(w, "\nlive locals %d, live globals %d, thrown %d, release failures %d, collected %d\n",
		r.Stats.LiveLocals, r.Stats.LiveGlobals, r.Stats.Thrown, r.Stats.ReleaseFailures, r.Stats.Collected)
	for _, v := range r.Violations {
		fmt.Fprintf(os.Stderr, "violation: %s\n", v)
	}
	return nil
}
