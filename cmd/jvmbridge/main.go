package main

import (
	"os"

	"github.com/wippyai/jvm-bridge/cmd/jvmbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
