package main

import (
	"fmt"

	"tracetrigger/process"
	"tracetrigger/process_blob"
)

type liveProcess interface {
	process.Target
	process.ProcessFinder
}

// openTarget returns the dump in dumpDir, or the live process pid, or the
// single live process called name.
func openTarget(dumpDir string, pid int, name string) (process.Target, process.ProcessID, error) {
	if dumpDir != "" {
		dump, err := process_blob.Load(dumpDir)
		if err != nil {
			return nil, 0, err
		}
		return dump, dump.Meta.PID, nil
	}

	proc, err := getProcess()
	if err != nil {
		return nil, 0, err
	}

	if pid != 0 {
		return proc, process.ProcessID(pid), nil
	}

	found, err := proc.LookupProcessIDByName(name)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find process: %w", err)
	}
	return proc, found, nil
}
