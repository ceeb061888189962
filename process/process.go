// Package process defines the memory types and the collaborator contracts used
// to inspect and drive a separately running target process.
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrKernelAddress is returned when a read would cross into kernel space.
	ErrKernelAddress = errors.New("address range crosses into kernel space")

	// ErrProcessNotFound is returned when no process matches a lookup.
	ErrProcessNotFound = errors.New("process not found")

	// ErrMultipleProcesses is returned when a lookup by name matches more than one process.
	ErrMultipleProcesses = errors.New("multiple processes match")
)

// CheckUserRange rejects empty, wrapping and kernel-space ranges. Back-ends call
// it before issuing a read.
func CheckUserRange(addr ProcessMemoryAddress, size ProcessMemorySize) error {
	if size == 0 {
		return nil
	}
	end, ok := addr.Add(size)
	if !ok || addr.IsKernel() || end > KernelAddressStart {
		return ErrKernelAddress
	}
	return nil
}
