package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/wippyai/jvm-bridge/attach"
	"github.com/wippyai/jvm-bridge/jni"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch thread attachments and references under load",
	Long: `Watch starts a workload of worker threads that create, duplicate and
release references, and shows every thread's attachment state together with
the live reference counts. Half of the workers attach permanently.

Without a terminal on stdout a status line is printed every refresh.

Example:
  jvmbridge watch
  jvmbridge watch --workers 8 --interval 10ms
  jvmbridge watch --duration 5s > watch.log`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Int("workers", 4, "number of worker threads")
	watchCmd.Flags().Duration("interval", 50*time.Millisecond, "delay between scopes on each worker")
	watchCmd.Flags().Duration("refresh", 500*time.Millisecond, "display refresh interval")
	watchCmd.Flags().Duration("duration", 0, "stop after this long (0 runs until interrupted)")

	for _, name := range []string{"workers", "interval", "refresh", "duration"} {
		_ = viper.BindPFlag("watch."+name, watchCmd.Flags().Lookup(name))
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	b, err := openBackend(viper.GetString("backend"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := viper.GetDuration("watch.duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	load := newWorkload(b.vm, viper.GetInt("watch.workers"), viper.GetDuration("watch.interval"))
	refresh := viper.GetDuration("watch.refresh")
	if refresh <= 0 {
		refresh = 500 * time.Millisecond
	}

	loadCtx, cancelLoad := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		load.run(loadCtx)
	}()

	if term.IsTerminal(int(os.Stdout.Fd())) {
		err = runWatchTUI(ctx, b, load, refresh)
	} else {
		runWatchPlain(ctx, cmd.OutOrStdout(), b, load, refresh)
	}

	cancelLoad()
	<-done
	fmt.Fprintln(cmd.OutOrStdout(), summary(b, load))
	return err
}

// snapshot is what both renderings show.
type snapshot struct {
	threads []attach.ThreadState
	stats     jni.Stats
	ops       uint64
	errors    uint64
	osThreads int32
}

func takeSnapshot(b *backend, load *workload) snapshot {
	threads := b.vm.Threads()
	sort.Slice(threads, func(i, j int) bool { return threads[i].Thread < threads[j].Thread })
	return snapshot{
		threads:   threads,
		stats:     b.vm.Stats(),
		ops:       load.ops.Load(),
		errors:    load.errors.Load(),
		osThreads: osThreads(),
	}
}

func (s snapshot) counts() (attached, inUse, permanent int) {
	for _, t := range s.threads {
		switch t.Kind {
		case attach.Attached:
			attached++
		case attach.InUse:
			inUse++
		}
		if t.Permanent && t.Kind != attach.Detached {
			permanent++
		}
	}
	return attached, inUse, permanent
}

func (s snapshot) line() string {
	attached, inUse, permanent := s.counts()
	return fmt.Sprintf("os_threads=%d threads attached=%d in_use=%d permanent=%d  locals=%d globals=%d thrown=%d collected=%d  ops=%d errors=%d",
		s.osThreads, attached, inUse, permanent,
		s.stats.LiveLocals, s.stats.LiveGlobals, s.stats.Thrown, s.stats.Collected,
		s.ops, s.errors)
}

func summary(b *backend, load *workload) string {
	s := takeSnapshot(b, load)
	out := fmt.Sprintf("stopped after %d scopes (%d failed); live locals %d, live globals %d",
		s.ops, s.errors, s.stats.LiveLocals, s.stats.LiveGlobals)
	if v := b.violations(); len(v) > 0 {
		out += fmt.Sprintf("; %d violations", len(v))
	}
	return out
}

func runWatchPlain(ctx context.Context, w io.Writer, b *backend, load *workload, refresh time.Duration) {
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fmt.Fprintf(w, "%s %s\n", now.Format(time.TimeOnly), takeSnapshot(b, load).line())
		}
	}
}

type tickMsg time.Time

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type watchModel struct {
	b       *backend
	load    *workload
	snap    snapshot
	spinner spinner.Model
	table   table.Model
	refresh time.Duration
}

func newWatchModel(b *backend, load *workload, refresh time.Duration) *watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = okStyle

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Thread", Width: 10},
			{Title: "State", Width: 10},
			{Title: "Permanent", Width: 10},
			{Title: "External", Width: 10},
		}),
		table.WithHeight(10),
		table.WithFocused(true),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4"))
	t.SetStyles(ts)

	m := &watchModel{b: b, load: load, spinner: s, table: t, refresh: refresh}
	m.update()
	return m
}

func (m *watchModel) update() {
	m.snap = takeSnapshot(m.b, m.load)
	rows := make([]table.Row, 0, len(m.snap.threads))
	for _, t := range m.snap.threads {
		rows = append(rows, table.Row{
			strconv.FormatInt(t.Thread, 10),
			t.Kind.String(),
			strconv.FormatBool(t.Permanent),
			strconv.FormatBool(t.External),
		})
	}
	m.table.SetRows(rows)
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick(m.refresh))
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		m.update()
		return m, tick(m.refresh)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *watchModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("jvmbridge watch (%s)", m.b.name)))
	b.WriteString("\n\n")

	attached, inUse, permanent := m.snap.counts()
	fmt.Fprintf(&b, "%s %d workers, %s scopes\n\n",
		m.spinner.View(), m.load.workers, okStyle.Render(strconv.FormatUint(m.snap.ops, 10)))
	b.WriteString(statStyle.Render(fmt.Sprintf(
		"os threads %d  attached %d  in use %d  permanent %d",
		m.snap.osThreads, attached, inUse, permanent)))
	b.WriteString("\n")
	b.WriteString(statStyle.Render(fmt.Sprintf(
		"live locals %d  live globals %d  thrown %d  collected %d",
		m.snap.stats.LiveLocals, m.snap.stats.LiveGlobals, m.snap.stats.Thrown, m.snap.stats.Collected)))
	b.WriteString("\n")
	if n := m.snap.errors + m.snap.stats.ReleaseFailures; n > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf(
			"failed scopes %d  release failures %d", m.snap.errors, m.snap.stats.ReleaseFailures)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("↑/↓ scroll • q quit"))
	return b.String()
}

func runWatchTUI(ctx context.Context, b *backend, load *workload, refresh time.Duration) error {
	p := tea.NewProgram(newWatchModel(b, load, refresh), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
