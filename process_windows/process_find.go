//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unsafe"

	"tracetrigger/process"

	"golang.org/x/sys/windows"
)

// ListByName returns every process whose image name equals name, ignoring
// case, ordered by PID.
func ListByName(name string) ([]process.ProcessInfo, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot failed: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var out []process.ProcessInfo
	for err = windows.Process32First(snapshot, &entry); err == nil; err = windows.Process32Next(snapshot, &entry) {
		exe := windows.UTF16ToString(entry.ExeFile[:])
		if strings.EqualFold(exe, name) {
			out = append(out, process.ProcessInfo{PID: process.ProcessID(entry.ProcessID), Name: exe, Exe: exe})
		}
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, fmt.Errorf("Process32Next failed: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

// LookupProcessIDByName returns the PID of the single process named name.
func (p *WindowsProcess) LookupProcessIDByName(name string) (process.ProcessID, error) {
	matches, err := ListByName(name)
	if err != nil {
		return 0, err
	}

	pid, err := process.SingleProcess(matches)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return pid, nil
}
