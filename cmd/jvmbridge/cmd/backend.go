package cmd

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/simjvm"
)

// backend is an opened runtime. sim is nil unless the runtime is simulated.
type backend struct {
	vm   *jni.VM
	sim  *simjvm.Runtime
	name string
}

type opener func(opts ...jni.Option) (*backend, error)

var backends = map[string]opener{
	"sim": openSim,
}

// setBackendLogger hands the CLI logger to backends that keep their own.
var setBackendLogger = func(*zap.Logger) {}

func openBackend(name string, opts ...jni.Option) (*backend, error) {
	open, ok := backends[name]
	if !ok {
		names := make([]string, 0, len(backends))
		for n := range backends {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown backend %q (available: %s)", name, strings.Join(names, ", "))
	}
	return open(opts...)
}

func openSim(opts ...jni.Option) (*backend, error) {
	rt := simjvm.New()
	vm, err := jni.New(rt.VM(), opts...)
	if err != nil {
		return nil, err
	}
	return &backend{name: "sim", vm: vm, sim: rt}, nil
}

// violations lists the scope violations the simulator recorded.
func (b *backend) violations() []string {
	if b.sim == nil {
		return nil
	}
	var out []string
	for _, v := range b.sim.Violations() {
		out = append(out, v.String())
	}
	return out
}
