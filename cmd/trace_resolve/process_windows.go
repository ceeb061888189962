//go:build windows

package main

import "tracetrigger/process_windows"

func getProcess() (liveProcess, error) {
	return process_windows.New(), nil
}
