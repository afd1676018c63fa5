package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve Prometheus metrics for a runtime",
	Long: `Serve opens the runtime with a metrics collector attached and exposes it
over HTTP, optionally while running the same workload as watch.

Endpoints:
  GET /metrics   Prometheus metrics
  GET /healthz   runs one call scope and reports the reference counters
  GET /threads   attachment state of every known thread

Example:
  jvmbridge serve --addr :9464
  jvmbridge serve --workload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":9464", "listen address")
	serveCmd.Flags().Bool("workload", true, "run a background workload")
	serveCmd.Flags().Int("workers", 4, "number of workload threads")
	serveCmd.Flags().Duration("interval", 100*time.Millisecond, "delay between scopes on each worker")

	for _, name := range []string{"addr", "workload", "workers", "interval"} {
		_ = viper.BindPFlag("serve."+name, serveCmd.Flags().Lookup(name))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	collector := metrics.New("jvmbridge")
	b, err := openBackend(viper.GetString("backend"), jni.WithObserver(collector))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	if viper.GetBool("serve.workload") {
		load := newWorkload(b.vm, viper.GetInt("serve.workers"), viper.GetDuration("serve.interval"))
		go func() {
			defer close(done)
			load.run(ctx)
		}()
	} else {
		close(done)
	}

	srv := &http.Server{
		Addr:         viper.GetString("serve.addr"),
		Handler:      newRouter(b, collector),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("serving metrics", zap.String("addr", srv.Addr), zap.String("backend", b.name))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err = <-errc:
	case <-ctx.Done():
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("server shutdown failed", zap.Error(serr))
	}
	<-done
	return err
}

type healthResponse struct {
	Status    string    `json:"status"`
	Instance  string    `json:"instance"`
	Error     string    `json:"error,omitempty"`
	Stats     jni.Stats `json:"stats"`
	OSThreads int32     `json:"os_threads"`
}

// healthzRate bounds /healthz, which opens a call scope per request.
const (
	healthzRate  = 20
	healthzBurst = 10
)

func newRouter(b *backend, collector *metrics.Collector) *mux.Router {
	instance := uuid.New().String()
	limiter := rate.NewLimiter(healthzRate, healthzBurst)

	router := mux.NewRouter()
	router.Handle("/metrics", collector.Handler()).Methods("GET")

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		resp := healthResponse{Status: "healthy", Instance: instance}
		code := http.StatusOK
		if err := ping(b.vm); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
		}
		resp.Stats = b.vm.Stats()
		resp.OSThreads = osThreads()
		writeJSON(w, code, resp)
	}).Methods("GET")

	router.HandleFunc("/threads", func(w http.ResponseWriter, r *http.Request) {
		type thread struct {
			Thread    int64  `json:"thread"`
			State     string `json:"state"`
			Permanent bool   `json:"permanent"`
			External  bool   `json:"external"`
		}
		threads := []thread{}
		for _, t := range b.vm.Threads() {
			threads = append(threads, thread{
				Thread:    t.Thread,
				State:     t.Kind.String(),
				Permanent: t.Permanent,
				External:  t.External,
			})
		}
		writeJSON(w, http.StatusOK, threads)
	}).Methods("GET")

	return router
}

// ping runs one scope that creates and drops a string.
func ping(vm *jni.VM) error {
	return vm.With(func(env *jni.Env) error {
		s, err := env.NewString("ping")
		if err != nil {
			return err
		}
		s.Release()
		return nil
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("couldn't write response", zap.Error(err))
	}
}
