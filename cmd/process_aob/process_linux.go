//go:build linux

package main

import "tracetrigger/process_linux"

func getProcess() (liveProcess, error) {
	return process_linux.New(), nil
}
