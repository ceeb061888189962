//go:build linux

// Package process_linux reads other processes through process_vm_readv and /proc.
package process_linux

import (
	"fmt"
	"os"
	"sync"

	"tracetrigger/process"
	"tracetrigger/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// LinuxProcess implements process.Target and process.ProcessFinder for Linux.
// Memory maps are cached per PID and refreshed when a read misses them.
type LinuxProcess struct {
	log  *logger.Logger
	mu   sync.Mutex
	maps map[process.ProcessID][]memory_map.MemoryMapItem
}

var _ process.Target = (*LinuxProcess)(nil)
var _ process.ProcessFinder = (*LinuxProcess)(nil)

func New() *LinuxProcess {
	return &LinuxProcess{
		log:  logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-linux")),
		maps: make(map[process.ProcessID][]memory_map.MemoryMapItem),
	}
}

func procExists(pid process.ProcessID) bool {
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}

// UpdateMemoryMap re-reads /proc/<pid>/maps.
func (p *LinuxProcess) UpdateMemoryMap(pid process.ProcessID) ([]memory_map.MemoryMapItem, error) {
	if pid <= 0 || !procExists(pid) {
		return nil, fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
	}

	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	p.mu.Lock()
	p.maps[pid] = mm
	p.mu.Unlock()

	return mm, nil
}

// GetMemoryMap returns a copy of the cached memory map, reading it on first use.
func (p *LinuxProcess) GetMemoryMap(pid process.ProcessID) ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	mm, ok := p.maps[pid]
	p.mu.Unlock()

	if !ok {
		var err error
		if mm, err = p.UpdateMemoryMap(pid); err != nil {
			return nil, err
		}
	}

	result := make([]memory_map.MemoryMapItem, len(mm))
	copy(result, mm)
	return result, nil
}

// Forget drops the cached memory map of pid.
func (p *LinuxProcess) Forget(pid process.ProcessID) {
	p.mu.Lock()
	delete(p.maps, pid)
	p.mu.Unlock()
}

func isReadableRange(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, mm []memory_map.MemoryMapItem) bool {
	if item := memory_map.IsValidAddress2(uint64(addr), mm); item == nil || !item.IsReadable() {
		return false
	}
	return memory_map.ContainsRange(uint64(addr), uint64(size), mm)
}

// isMapped checks the cached map first and refreshes it once on a miss, since
// the target may have mapped new memory since the last read.
func (p *LinuxProcess) isMapped(pid process.ProcessID, addr process.ProcessMemoryAddress, size process.ProcessMemorySize) (bool, error) {
	p.mu.Lock()
	mm, ok := p.maps[pid]
	p.mu.Unlock()

	if ok && isReadableRange(addr, size, mm) {
		return true, nil
	}

	mm, err := p.UpdateMemoryMap(pid)
	if err != nil {
		return false, err
	}
	return isReadableRange(addr, size, mm), nil
}
