package main

import (
	"fmt"
	"io"
	"os"

	"tracetrigger/pe_layout"
	"tracetrigger/process"
	"tracetrigger/process/memory_map"
	"tracetrigger/signature"
)

type regionLister interface {
	GetMemoryMap(pid process.ProcessID) ([]memory_map.MemoryMapItem, error)
}

type parallelScanner interface {
	ScanParallel(pid process.ProcessID, sig signature.Signature, filter memory_map.Filter, maxdop uint) ([]process.ProcessMemoryAddress, error)
}

// scanImage scans the executable sections named by the on-disk PE header,
// the same region the trace resolver searches.
func scanImage(target process.Target, pid process.ProcessID, sig signature.Signature) ([]process.ProcessMemoryAddress, error) {
	path, err := target.ImageFilePath(pid)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, pe_layout.HeaderPageSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	sections, err := pe_layout.ExecutableSections(header)
	if err != nil {
		return nil, err
	}

	imageBase, err := target.ImageBase(pid)
	if err != nil {
		return nil, err
	}

	var matches []process.ProcessMemoryAddress
	for _, section := range sections {
		addr := imageBase + process.ProcessMemoryAddress(section.VirtualAddress)
		fmt.Printf("Section %s at %s\n", section, addr.ToString())

		data, err := target.ReadMemory(pid, addr, process.ProcessMemorySize(section.VirtualSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read section %s: %w", section.Name, err)
		}
		for _, offset := range signature.FindAll(data, sig) {
			matches = append(matches, addr+process.ProcessMemoryAddress(offset))
		}
	}
	return matches, nil
}

// scanRegions scans the memory map regions selected by filter.
func scanRegions(target process.Target, pid process.ProcessID, sig signature.Signature, filter memory_map.Filter, maxdop uint) ([]process.ProcessMemoryAddress, error) {
	if scanner, ok := target.(parallelScanner); ok {
		return scanner.ScanParallel(pid, sig, filter, maxdop)
	}

	lister, ok := target.(regionLister)
	if !ok {
		return nil, fmt.Errorf("%T does not expose a memory map", target)
	}

	mm, err := lister.GetMemoryMap(pid)
	if err != nil {
		return nil, err
	}

	var matches []process.ProcessMemoryAddress
	for _, region := range mm {
		if !filter(region) {
			continue
		}
		data, err := target.ReadMemory(pid, process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			continue // not saved or no longer mapped
		}
		for _, offset := range signature.FindAll(data, sig) {
			matches = append(matches, process.ProcessMemoryAddress(region.Address+uint64(offset)))
		}
	}
	return matches, nil
}
