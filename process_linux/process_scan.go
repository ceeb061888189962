//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"tracetrigger/process"
	"tracetrigger/process/memory_map"
	"tracetrigger/signature"
)

func (p *LinuxProcess) scanRegions(pid process.ProcessID, filter memory_map.Filter) ([]memory_map.MemoryMapItem, error) {
	mm, err := p.UpdateMemoryMap(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory map: %w", err)
	}

	var regions []memory_map.MemoryMapItem
	for _, region := range mm {
		if process.ProcessMemoryAddress(region.Address).IsKernel() {
			continue
		}
		if filter == nil || filter(region) {
			regions = append(regions, region)
		}
	}
	return regions, nil
}

func (p *LinuxProcess) scanRegion(pid process.ProcessID, region memory_map.MemoryMapItem, sig signature.Signature) []process.ProcessMemoryAddress {
	data, err := p.ReadMemory(pid, process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
	if err != nil {
		if !errors.Is(err, process.ErrAddressNotMapped) {
			// Some regions might fail to read due to permissions or other reasons
			p.log.Debugln("Failed to read memory region at", fmt.Sprintf("%x", region.Address), err)
		}
		return nil
	}

	var results []process.ProcessMemoryAddress
	for _, offset := range signature.FindAll(data, sig) {
		results = append(results, process.ProcessMemoryAddress(region.Address+uint64(offset)))
	}
	return results
}

// Scan returns every address in the selected regions of pid where sig
// matches. Matches spanning two regions are not reported.
func (p *LinuxProcess) Scan(pid process.ProcessID, sig signature.Signature, filter memory_map.Filter) ([]process.ProcessMemoryAddress, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	regions, err := p.scanRegions(pid, filter)
	if err != nil {
		return nil, err
	}

	p.log.Infoln("Starting memory scan for pattern of length", sig.Len())

	var results []process.ProcessMemoryAddress
	for _, region := range regions {
		results = append(results, p.scanRegion(pid, region, sig)...)
	}

	p.log.Infoln("Scan complete, found", len(results), "matches")
	return results, nil
}

// ScanParallel is Scan with up to maxdop regions read concurrently. Results
// are sorted by address.
func (p *LinuxProcess) ScanParallel(pid process.ProcessID, sig signature.Signature, filter memory_map.Filter, maxdop uint) ([]process.ProcessMemoryAddress, error) {
	if maxdop <= 1 {
		return p.Scan(pid, sig, filter)
	}
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	regions, err := p.scanRegions(pid, filter)
	if err != nil {
		return nil, err
	}

	p.log.Infoln("Starting parallel memory scan with maxdop=", maxdop)

	numCPU := uint(runtime.NumCPU())
	if maxdop > numCPU {
		maxdop = numCPU
		p.log.Debugln("Limiting maxdop to number of CPUs:", maxdop)
	}

	sem := make(chan struct{}, maxdop)
	var wg sync.WaitGroup

	var resultsMutex sync.Mutex
	var results []process.ProcessMemoryAddress

	for _, region := range regions {
		wg.Add(1)
		sem <- struct{}{}

		go func(region memory_map.MemoryMapItem) {
			defer func() {
				<-sem
				wg.Done()
			}()

			matches := p.scanRegion(pid, region, sig)
			if len(matches) > 0 {
				resultsMutex.Lock()
				results = append(results, matches...)
				resultsMutex.Unlock()
			}
		}(region)
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })

	p.log.Infoln("Parallel scan complete, found", len(results), "matches")
	return results, nil
}
