package memory_map

import (
	"strconv"
	"strings"
)

// ParseMapsLine parses one line of /proc/[pid]/maps, e.g.
// "00400000-0040b000 r-xp 00000000 08:01 1234   /usr/bin/cat".
func ParseMapsLine(line string) (MemoryMapItem, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return MemoryMapItem{}, false
	}

	// Parse address range (e.g., "00400000-0040b000")
	addrRange := strings.Split(fields[0], "-")
	if len(addrRange) != 2 {
		return MemoryMapItem{}, false
	}

	startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
	if err != nil {
		return MemoryMapItem{}, false
	}

	endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
	if err != nil || endAddr < startAddr {
		return MemoryMapItem{}, false
	}

	item := MemoryMapItem{
		Address: startAddr,
		Size:    uint(endAddr - startAddr),
		Perms:   fields[1],
	}

	if len(fields) > 2 {
		if offset, err := strconv.ParseUint(fields[2], 16, 64); err == nil {
			item.Offset = offset
		}
	}

	// The path may contain spaces; everything after the inode column belongs to it
	if len(fields) > 5 {
		item.Path = strings.Join(fields[5:], " ")
	}

	return item, true
}
