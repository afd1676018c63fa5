package cmd

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// osThreads returns the number of OS threads in this process, or -1 when
// the platform can't tell. Each attached worker pins one of them.
func osThreads() int32 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return -1
	}
	n, err := p.NumThreads()
	if err != nil {
		return -1
	}
	return n
}
