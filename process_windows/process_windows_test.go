//go:build windows

package process_windows

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"unsafe"

	"tracetrigger/process"

	"golang.org/x/sys/windows"
)

var selfBuf = []byte("trace state 0123456789")

func TestReadMemorySelf(t *testing.T) {
	p := New()
	defer p.Close()

	pid := process.ProcessID(os.Getpid())
	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&selfBuf[0])))

	data, err := p.ReadMemory(pid, addr, process.ProcessMemorySize(len(selfBuf)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(data, selfBuf) {
		t.Fatalf("expected %q - got %q", selfBuf, data)
	}

	if _, err := p.ReadMemory(pid, process.KernelAddressStart, 8); !errors.Is(err, process.ErrKernelAddress) {
		t.Fatalf("expected ErrKernelAddress - got %v", err)
	}
}

func TestImageSelf(t *testing.T) {
	p := New()
	defer p.Close()

	pid := process.ProcessID(os.Getpid())

	path, err := p.ImageFilePath(pid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exe, _ := os.Executable()
	if !strings.EqualFold(path, exe) {
		t.Fatalf("expected %s - got %s", exe, path)
	}

	base, err := p.ImageBase(pid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	magic, err := p.ReadMemory(pid, base, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(magic) != "MZ" {
		t.Fatalf("expected MZ at 0x%x - got %q", base, magic)
	}
}

func TestGetMemoryMapSelf(t *testing.T) {
	p := New()
	defer p.Close()

	pid := process.ProcessID(os.Getpid())
	base, err := p.ImageBase(pid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mm, err := p.GetMemoryMap(pid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, item := range mm {
		if item.Address == uint64(base) {
			if !item.IsReadable() {
				t.Fatalf("expected the image header to be readable, perms %s", item.Perms)
			}
			return
		}
	}
	t.Fatalf("no region at image base 0x%x", base)
}

func TestProtectionToPerms(t *testing.T) {
	cases := map[uint32]string{
		windows.PAGE_READONLY:                       "r--p",
		windows.PAGE_READWRITE:                      "rw-p",
		windows.PAGE_EXECUTE_READ:                   "r-xp",
		windows.PAGE_EXECUTE_READWRITE:              "rwxp",
		windows.PAGE_NOACCESS:                       "---p",
		windows.PAGE_READWRITE | windows.PAGE_GUARD: "---p",
	}
	for protect, want := range cases {
		if got := protectionToPerms(protect); got != want {
			t.Fatalf("protect 0x%x: expected %s - got %s", protect, want, got)
		}
	}
}

func TestLookupProcessIDByName(t *testing.T) {
	p := New()
	defer p.Close()

	if _, err := p.LookupProcessIDByName("no-such-process-7f3a9c.exe"); !errors.Is(err, process.ErrProcessNotFound) {
		t.Fatalf("expected ErrProcessNotFound - got %v", err)
	}
	if _, err := ListByName(""); err == nil {
		t.Fatalf("expected an error for an empty name")
	}
}
