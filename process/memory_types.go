package process

import (
	"fmt"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// IsKernel reports whether the address lies in the upper (kernel) half of the
// canonical x64 address space.
func (pma ProcessMemoryAddress) IsKernel() bool {
	return pma >= KernelAddressStart
}

// Add offsets the address, reporting false if the result wraps around.
func (pma ProcessMemoryAddress) Add(size ProcessMemorySize) (ProcessMemoryAddress, bool) {
	sum := pma + ProcessMemoryAddress(size)
	return sum, sum >= pma
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// KernelAddressStart is the first address past the user-mode half of the
// canonical x64 address space.
const KernelAddressStart = ProcessMemoryAddress(0x800000000000)

// PageSize is the size of one page of process memory.
const PageSize = ProcessMemorySize(0x1000)
