//go:build windows

// Package process_windows reads other processes through the Win32 API.
package process_windows

import (
	"errors"
	"fmt"
	"sync"

	"tracetrigger/process"
	"tracetrigger/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

const processAccess = windows.PROCESS_VM_READ | windows.PROCESS_QUERY_INFORMATION

// WindowsProcess implements process.Target and process.ProcessFinder. Process
// handles are opened on first use and cached per PID until Close.
type WindowsProcess struct {
	log     *logger.Logger
	mu      sync.Mutex
	handles map[process.ProcessID]windows.Handle
}

var _ process.Target = (*WindowsProcess)(nil)
var _ process.ProcessFinder = (*WindowsProcess)(nil)

func New() *WindowsProcess {
	return &WindowsProcess{
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-windows")),
		handles: make(map[process.ProcessID]windows.Handle),
	}
}

func (p *WindowsProcess) handle(pid process.ProcessID) (windows.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.handles[pid]; ok {
		return h, nil
	}

	h, err := windows.OpenProcess(processAccess, false, uint32(pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return 0, fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
		}
		return 0, fmt.Errorf("OpenProcess failed: %w", err)
	}

	p.handles[pid] = h
	p.log.Infoln("Process", pid, "opened")
	return h, nil
}

// Forget closes the cached handle of pid.
func (p *WindowsProcess) Forget(pid process.ProcessID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.handles[pid]; ok {
		windows.CloseHandle(h)
		delete(p.handles, pid)
	}
}

// Close releases every cached handle.
func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for pid, h := range p.handles {
		if err := windows.CloseHandle(h); err != nil {
			errs = append(errs, fmt.Errorf("CloseHandle failed for pid %d: %w", pid, err))
		}
		delete(p.handles, pid)
	}
	return errors.Join(errs...)
}

// ReadMemory reads size bytes at addr from the process pid
func (p *WindowsProcess) ReadMemory(pid process.ProcessID, addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if err := process.CheckUserRange(addr, size); err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", size.ToString(), addr.ToString(), err)
	}
	if size == 0 {
		return []byte{}, nil
	}

	h, err := p.handle(pid)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	if err := windows.ReadProcessMemory(h, uintptr(addr), &buf[0], uintptr(size), &bytesRead); err != nil {
		if errors.Is(err, windows.ERROR_PARTIAL_COPY) || errors.Is(err, windows.ERROR_NOACCESS) {
			return nil, fmt.Errorf("read %s at %s: %w", size.ToString(), addr.ToString(), process.ErrAddressNotMapped)
		}
		return nil, fmt.Errorf("ReadProcessMemory failed at %s: %w", addr.ToString(), err)
	}

	if bytesRead != uintptr(size) {
		return nil, fmt.Errorf("read incomplete: expected %d, got %d", size, bytesRead)
	}

	return buf, nil
}

// GetMemoryMap walks the committed regions of pid with VirtualQueryEx.
func (p *WindowsProcess) GetMemoryMap(pid process.ProcessID) ([]memory_map.MemoryMapItem, error) {
	h, err := p.handle(pid)
	if err != nil {
		return nil, err
	}

	var mm []memory_map.MemoryMapItem
	var mbi windows.MemoryBasicInformation

	for addr := uintptr(0); addr < uintptr(process.KernelAddressStart); {
		if err := windows.VirtualQueryEx(h, addr, &mbi, unsafeSizeofMBI); err != nil {
			break
		}
		if mbi.RegionSize == 0 {
			break
		}

		if mbi.State == windows.MEM_COMMIT {
			mm = append(mm, memory_map.MemoryMapItem{
				Address: uint64(mbi.BaseAddress),
				Size:    uint(mbi.RegionSize),
				Perms:   protectionToPerms(mbi.Protect),
			})
		}

		addr = mbi.BaseAddress + mbi.RegionSize
	}

	memory_map.Sort(mm)
	return mm, nil
}
