//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"strings"

	"tracetrigger/process"
	"tracetrigger/process/memory_map"
)

// ImageFilePath returns the target of /proc/<pid>/exe.
func (p *LinuxProcess) ImageFilePath(pid process.ProcessID) (string, error) {
	exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return "", fmt.Errorf("failed to resolve image path of process %d: %w", pid, err)
	}
	return strings.TrimSuffix(exe, " (deleted)"), nil
}

// ImageBase returns the lowest mapping of the main executable.
func (p *LinuxProcess) ImageBase(pid process.ProcessID) (process.ProcessMemoryAddress, error) {
	path, err := p.ImageFilePath(pid)
	if err != nil {
		return 0, err
	}

	mm, err := p.UpdateMemoryMap(pid)
	if err != nil {
		return 0, err
	}

	base, err := memory_map.FindImageBase(path, mm)
	if err != nil {
		return 0, fmt.Errorf("failed to find image base of process %d: %w", pid, err)
	}

	p.log.Debugln("Image base of", pid, "is", fmt.Sprintf("0x%x", base))
	return process.ProcessMemoryAddress(base), nil
}
