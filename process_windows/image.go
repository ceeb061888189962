//go:build windows

package process_windows

import (
	"fmt"
	"unsafe"

	"tracetrigger/process"

	"golang.org/x/sys/windows"
)

// ImageFilePath returns the full path of the main executable of pid.
func (p *WindowsProcess) ImageFilePath(pid process.ProcessID) (string, error) {
	h, err := p.handle(pid)
	if err != nil {
		return "", err
	}

	var buf [windows.MAX_LONG_PATH]uint16
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName failed for pid %d: %w", pid, err)
	}

	return windows.UTF16ToString(buf[:size]), nil
}

// ImageBase returns the load address of the first module of pid, which is
// always the main executable.
func (p *WindowsProcess) ImageBase(pid process.ProcessID) (process.ProcessMemoryAddress, error) {
	h, err := p.handle(pid)
	if err != nil {
		return 0, err
	}

	var module windows.Handle
	var needed uint32
	if err := windows.EnumProcessModules(h, &module, uint32(unsafe.Sizeof(module)), &needed); err != nil {
		return 0, fmt.Errorf("EnumProcessModules failed for pid %d: %w", pid, err)
	}

	var mi windows.ModuleInfo
	if err := windows.GetModuleInformation(h, module, &mi, uint32(unsafe.Sizeof(mi))); err != nil {
		return 0, fmt.Errorf("GetModuleInformation failed for pid %d: %w", pid, err)
	}

	p.log.Debugln("Image base of", pid, "is", fmt.Sprintf("0x%x", mi.BaseOfDll), "size", mi.SizeOfImage)
	return process.ProcessMemoryAddress(mi.BaseOfDll), nil
}
