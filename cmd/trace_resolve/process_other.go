//go:build !linux && !windows

package main

import (
	"fmt"
	"runtime"
)

func getProcess() (liveProcess, error) {
	return nil, fmt.Errorf("live processes are not supported on %s, use -dump", runtime.GOOS)
}
