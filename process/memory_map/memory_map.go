package memory_map

import (
	"fmt"
	"sort"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint   // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
	Offset  uint64 // Offset of the mapping within the backing file
	Path    string // Backing file, empty for anonymous mappings
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Path)
}

func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return len(mmItem.Perms) > 2 && mmItem.Perms[2] == 'x'
}

// MemoryMap defines the interface for operations related to a process's memory map
type MemoryMap interface {
	// ReadMemoryMap reads and parses the memory map for a process
	ReadMemoryMap(pid int) ([]MemoryMapItem, error)
}

// Sort orders the map by address, which IsValidAddress2 requires.
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// IsValidAddress checks if an address is within a mapped memory region
func IsValidAddress(addr uint64, memoryMap []MemoryMapItem) bool {
	return GetMemoryRegionForAddress(addr, memoryMap) != nil
}

// IsValidAddress2 is IsValidAddress for a map sorted by address.
func IsValidAddress2(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// GetMemoryRegionForAddress returns the memory region containing an address
func GetMemoryRegionForAddress(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	for i := range memoryMap {
		if addr >= memoryMap[i].Address && addr < memoryMap[i].End() {
			return &memoryMap[i]
		}
	}
	return nil
}

// ContainsRange reports whether [addr, addr+size) is covered by one contiguous
// run of mapped regions.
func ContainsRange(addr uint64, size uint64, memoryMap []MemoryMapItem) bool {
	end := addr + size
	if end < addr {
		return false
	}
	cursor := addr
	for cursor < end {
		region := GetMemoryRegionForAddress(cursor, memoryMap)
		if region == nil {
			return false
		}
		cursor = region.End()
	}
	return true
}

// FindImageBase returns the lowest mapped address backed by the file at path
// with a zero file offset, i.e. where the image header was mapped.
func FindImageBase(path string, memoryMap []MemoryMapItem) (uint64, error) {
	found := false
	var base uint64
	for _, item := range memoryMap {
		if item.Path != path || item.Offset != 0 {
			continue
		}
		if !found || item.Address < base {
			base = item.Address
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("no mapping of %s", path)
	}
	return base, nil
}

// Filter selects memory regions.
type Filter func(item MemoryMapItem) bool

// Readable selects every readable region.
func Readable(item MemoryMapItem) bool {
	return item.IsReadable()
}

// Executable selects readable, executable regions.
func Executable(item MemoryMapItem) bool {
	return item.IsReadable() && item.IsExecutable()
}
