package jnisys

import (
	"os"
	"strings"

	"github.com/wippyai/jvm-bridge/raw"
)

// Options configures a virtual machine created by Load.
type Options struct {
	// Classpath becomes -Djava.class.path when set.
	Classpath string
	// Options are passed verbatim after the defaults.
	Options []string
	// Version is the requested interface version, raw.Version when zero.
	Version int32
	// IgnoreUnrecognized makes the runtime skip unknown -X options.
	IgnoreUnrecognized bool
	// NoCheck leaves out -Xcheck:jni.
	NoCheck bool
}

// OptionsFromEnv reads CLASSPATH and the space separated JVMBRIDGE_OPTS.
func OptionsFromEnv() Options {
	return Options{
		Classpath: os.Getenv("CLASSPATH"),
		Options:   strings.Fields(os.Getenv("JVMBRIDGE_OPTS")),
	}
}

// Args returns the option strings handed to the runtime.
func (o Options) Args() []string {
	var args []string
	if !o.NoCheck {
		args = append(args, "-Xcheck:jni")
	}
	if o.Classpath != "" {
		args = append(args, "-Djava.class.path="+o.Classpath)
	}
	return append(args, o.Options...)
}

func (o Options) version() int32 {
	if o.Version == 0 {
		return raw.Version
	}
	return o.Version
}
