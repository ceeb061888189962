//go:build windows

package process_windows

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var unsafeSizeofMBI = unsafe.Sizeof(windows.MemoryBasicInformation{})

// protectionToPerms renders a PAGE_* protection in the /proc/<pid>/maps
// "rwxp" form so memory_map helpers work unchanged.
func protectionToPerms(protect uint32) string {
	if protect&(windows.PAGE_GUARD|windows.PAGE_NOACCESS) != 0 {
		return "---p"
	}

	perms := []byte("---p")
	switch protect & 0xFF {
	case windows.PAGE_READONLY:
		perms[0] = 'r'
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		perms[0], perms[1] = 'r', 'w'
	case windows.PAGE_EXECUTE:
		perms[2] = 'x'
	case windows.PAGE_EXECUTE_READ:
		perms[0], perms[2] = 'r', 'x'
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		perms[0], perms[1], perms[2] = 'r', 'w', 'x'
	}
	return string(perms)
}
