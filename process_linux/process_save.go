//go:build linux

package process_linux

import (
	"fmt"
	"io"
	"os"

	"tracetrigger/pe_layout"
	"tracetrigger/process"
	"tracetrigger/process_blob"
)

// MaxSavedRegionSize is the largest region Save writes out.
const MaxSavedRegionSize = 100 * 1024 * 1024

// Save writes the readable memory of pid to dirname in the process_blob
// format. When onlyImage is set only the mappings of the main executable are
// written.
func (p *LinuxProcess) Save(pid process.ProcessID, dirname string, onlyImage bool) error {
	p.log.Infoln("Saving process", pid, "to directory:", dirname)

	info, err := FindProcessByPID(pid)
	if err != nil {
		return err
	}

	metadata := process_blob.Metadata{PID: pid, Name: info.Name}
	if metadata.ImagePath, err = p.ImageFilePath(pid); err != nil {
		p.log.Warn("Failed to resolve image path: ", err)
	} else if metadata.ImageBase, err = p.ImageBase(pid); err != nil {
		p.log.Warn("Failed to resolve image base: ", err)
	}

	mm, err := p.UpdateMemoryMap(pid)
	if err != nil {
		return fmt.Errorf("failed to update memory map: %w", err)
	}

	if err := process_blob.WriteMetadata(dirname, metadata, mm); err != nil {
		return err
	}

	if header, err := readImageHeader(pid); err != nil {
		p.log.Warn("Failed to save image header: ", err)
	} else if err := process_blob.WriteImageHeader(dirname, header); err != nil {
		return err
	}

	savedCount := 0
	errorCount := 0

	for _, region := range mm {
		if !region.IsReadable() {
			continue
		}
		if onlyImage && (metadata.ImagePath == "" || region.Path != metadata.ImagePath) {
			continue
		}
		if region.Size > MaxSavedRegionSize {
			p.log.Infoln("Skipping large region at", fmt.Sprintf("%x", region.Address),
				"(size:", region.Size/1024/1024, "MB)")
			continue
		}

		data, err := p.ReadMemory(pid, process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			p.log.Infoln("Failed to read memory region at", fmt.Sprintf("%x", region.Address), ":", err)
			errorCount++
			continue
		}

		if err := process_blob.WriteBlob(dirname, region, data); err != nil {
			p.log.Infoln("Failed to write memory file for region at", fmt.Sprintf("%x", region.Address), ":", err)
			errorCount++
			continue
		}

		savedCount++
	}

	p.log.Infoln("Process dump saved successfully:", savedCount, "regions saved,", errorCount, "errors")
	return nil
}

// readImageHeader reads the first header page of the executable through
// /proc/<pid>/exe, which works even after the file was replaced on disk.
func readImageHeader(pid process.ProcessID) ([]byte, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, pe_layout.HeaderPageSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return header[:n], nil
}
