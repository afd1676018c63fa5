package cmd

import (
	"context"
	stderrors "errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wippyai/jvm-bridge/java/lang"
	"github.com/wippyai/jvm-bridge/java/util"
	"github.com/wippyai/jvm-bridge/jni"
)

// maxHeld bounds the durable references one worker keeps between scopes.
const maxHeld = 4

// workload keeps a VM busy from several threads. Even workers attach
// permanently, odd ones attach per scope.
type workload struct {
	vm       *jni.VM
	workers  int
	interval time.Duration

	ops    atomic.Uint64
	errors atomic.Uint64
}

func newWorkload(vm *jni.VM, workers int, interval time.Duration) *workload {
	if workers < 1 {
		workers = 1
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &workload{vm: vm, workers: workers, interval: interval}
}

// run blocks until ctx is done and every worker has cleaned up.
func (w *workload) run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.worker(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (w *workload) worker(ctx context.Context, id int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if id%2 == 0 {
		if err := w.vm.AttachPermanently(); err != nil {
			w.errors.Add(1)
			log.Warn("worker couldn't attach", zap.Int("worker", id), zap.Error(err))
			return
		}
		defer func() {
			if err := w.vm.DetachCurrentThread(); err != nil {
				log.Warn("worker couldn't detach", zap.Int("worker", id), zap.Error(err))
			}
		}()
	}

	var held []*jni.Global[util.ArrayList]
	defer func() {
		for _, g := range held {
			g.Release()
		}
	}()

	limiter := rate.NewLimiter(rate.Every(w.interval), 1)
	for n := 0; ; n++ {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		err := w.vm.With(func(env *jni.Env) error {
			g, err := w.step(env, n)
			if err != nil || g == nil {
				return err
			}
			held = append(held, g)
			if len(held) > maxHeld {
				held[0].Release()
				held = held[1:]
			}
			return nil
		})
		if err != nil {
			w.errors.Add(1)
			log.Debug("workload step failed", zap.Int("worker", id), zap.Error(err))
			continue
		}
		w.ops.Add(1)
	}
}

// step builds a small list and sometimes keeps it durably. Every seventh
// step also provokes and clears an exception.
func (w *workload) step(env *jni.Env, n int) (*jni.Global[util.ArrayList], error) {
	list, err := util.NewArrayList(env)
	if err != nil {
		return nil, err
	}
	for i := 0; i <= n%5; i++ {
		s, err := env.NewString(string(rune('a' + i)))
		if err != nil {
			return nil, err
		}
		if _, err := util.Add(env, list, s); err != nil {
			return nil, err
		}
	}

	if n%7 == 6 {
		if _, err := util.Get(env, list, int32(n)); err != nil {
			var te *jni.ThrownError
			if !stderrors.As(err, &te) {
				return nil, err
			}
		}
		if err := parseBad(env); err != nil {
			return nil, err
		}
	}

	if n%3 != 0 {
		return nil, nil
	}
	return list.ToGlobal()
}

// parseBad calls Integer.parseInt on a malformed string and swallows the
// resulting exception.
func parseBad(env *jni.Env) error {
	cls, err := jni.ClassOf[lang.Integer](env)
	if err != nil {
		return err
	}
	m, err := jni.StaticMethodOf[lang.Integer](env, "parseInt", "(Ljava/lang/String;)I")
	if err != nil {
		return err
	}
	s, err := env.NewString("x")
	if err != nil {
		return err
	}
	_, err = jni.CallStaticInt(env, cls, m, s)
	var te *jni.ThrownError
	if err != nil && !stderrors.As(err, &te) {
		return err
	}
	return nil
}
