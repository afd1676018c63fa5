//go:build jni && cgo

package cmd

import (
	"go.uber.org/zap"

	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/jnisys"
)

func init() {
	backends["jni"] = openJNI
	setBackendLogger = func(l *zap.Logger) {
		jnisys.SetLogger(l.Named("jnisys"))
	}
}

func openJNI(opts ...jni.Option) (*backend, error) {
	rvm, err := jnisys.Load()
	if err != nil {
		return nil, err
	}
	vm, err := jni.New(rvm, opts...)
	if err != nil {
		return nil, err
	}
	return &backend{name: "jni", vm: vm}, nil
}
