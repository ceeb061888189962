package process

import (
	"time"

	"tracetrigger/disasm"
)

// RemoteMemory reads the virtual memory of another process.
type RemoteMemory interface {
	// ReadMemory reads size bytes at addr in the process identified by pid.
	// Implementations return a freshly allocated buffer so a failed or partial
	// read never exposes previous contents, and fail with ErrKernelAddress if
	// the range reaches kernel space.
	ReadMemory(pid ProcessID, addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}

// ImageInspector reports metadata about the main executable image of a process.
type ImageInspector interface {
	// ImageBase returns the address the main image is mapped at
	ImageBase(pid ProcessID) (ProcessMemoryAddress, error)

	// ImageFilePath returns the on-disk path of the main image
	ImageFilePath(pid ProcessID) (string, error)
}

// Target combines the memory and image metadata operations the resolver needs.
type Target interface {
	RemoteMemory
	ImageInspector
}

// RegisterCapturer correlates execution of an instruction with the content of
// a register at execution time.
type RegisterCapturer interface {
	// CaptureRegister arms an execute breakpoint on addr in the process for the
	// given duration and returns the distinct values held by reg each time the
	// breakpoint was hit. The call blocks for the whole duration.
	CaptureRegister(pid ProcessID, addr ProcessMemoryAddress, reg disasm.Register, duration time.Duration) ([]uint64, error)
}

// ButtonInjector injects mouse button transitions into the input stream of a process.
type ButtonInjector interface {
	InjectButton(pid ProcessID, action ButtonAction) error
}

// KeyPoller samples the instantaneous state of a key. It never blocks.
type KeyPoller interface {
	IsKeyDown(key VirtualKey) bool
}
