package process_blob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tracetrigger/process"
	"tracetrigger/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// ProcessDump serves a loaded dump through the same contracts as a live
// process. Regions whose blob was not saved read as unmapped.
type ProcessDump struct {
	Meta      Metadata
	MemoryMap []memory_map.MemoryMapItem
	Blobs     map[uint64][]byte // Address -> Data

	dirname string
	log     *logger.Logger
}

var _ process.Target = (*ProcessDump)(nil)

// NewProcessDump creates an empty dump, mostly useful in tests.
func NewProcessDump() *ProcessDump {
	return &ProcessDump{
		Blobs: make(map[uint64][]byte),
		log:   logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-dump")),
	}
}

// Load reads the dump stored in dirname.
func Load(dirname string) (*ProcessDump, error) {
	p := NewProcessDump()
	p.dirname = dirname

	if err := readJSON(filepath.Join(dirname, MetadataFile), &p.Meta); err != nil {
		return nil, err
	}

	if err := readJSON(filepath.Join(dirname, MemoryMapFile), &p.MemoryMap); err != nil {
		return nil, err
	}

	memory_map.Sort(p.MemoryMap)

	for _, region := range p.MemoryMap {
		filename := filepath.Join(dirname, BlobFileName(region))
		data, err := os.ReadFile(filename)
		if errors.Is(err, os.ErrNotExist) {
			continue // not saved, e.g. too large or not readable
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read blob %s: %w", filename, err)
		}
		if uint(len(data)) != region.Size {
			p.log.Warn("Blob ", filepath.Base(filename), " holds ", len(data), " bytes, expected ", region.Size)
		}

		p.Blobs[region.Address] = data
	}

	p.log.Infoln("Loaded dump of", p.Meta.Name, "pid", p.Meta.PID, "with", len(p.Blobs), "of", len(p.MemoryMap), "regions")
	return p, nil
}

func (p *ProcessDump) checkPID(pid process.ProcessID) error {
	if pid != p.Meta.PID {
		return fmt.Errorf("%w: dump holds pid %d, not %d", process.ErrProcessNotFound, p.Meta.PID, pid)
	}
	return nil
}

// ReadMemory copies size bytes at addr out of the saved blobs. A read may span
// adjacent regions as long as every one of them was saved.
func (p *ProcessDump) ReadMemory(pid process.ProcessID, addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if err := p.checkPID(pid); err != nil {
		return nil, err
	}
	if err := process.CheckUserRange(addr, size); err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", size.ToString(), addr.ToString(), err)
	}

	result := make([]byte, size)
	cursor := uint64(addr)
	end := uint64(addr) + uint64(size)

	for cursor < end {
		region := memory_map.IsValidAddress2(cursor, p.MemoryMap)
		if region == nil {
			return nil, fmt.Errorf("read %s at %s: %w", size.ToString(), addr.ToString(), process.ErrAddressNotMapped)
		}

		data, ok := p.Blobs[region.Address]
		offset := cursor - region.Address
		if !ok || offset >= uint64(len(data)) {
			return nil, fmt.Errorf("no data for region 0x%x: %w", region.Address, process.ErrAddressNotMapped)
		}

		n := copy(result[cursor-uint64(addr):], data[offset:])
		cursor += uint64(n)
	}

	return result, nil
}

// ImageBase returns the image base recorded at save time.
func (p *ProcessDump) ImageBase(pid process.ProcessID) (process.ProcessMemoryAddress, error) {
	if err := p.checkPID(pid); err != nil {
		return 0, err
	}
	if p.Meta.ImageBase == 0 {
		return 0, errors.New("dump has no image base")
	}
	return p.Meta.ImageBase, nil
}

// ImageFilePath prefers the header copy saved with the dump and falls back to
// the recorded path of the executable.
func (p *ProcessDump) ImageFilePath(pid process.ProcessID) (string, error) {
	if err := p.checkPID(pid); err != nil {
		return "", err
	}
	if p.dirname != "" {
		header := filepath.Join(p.dirname, ImageHeaderFile)
		if _, err := os.Stat(header); err == nil {
			return header, nil
		}
	}
	if p.Meta.ImagePath == "" {
		return "", errors.New("dump has no image path")
	}
	return p.Meta.ImagePath, nil
}

// GetMemoryMap returns a copy of the saved memory map.
func (p *ProcessDump) GetMemoryMap(pid process.ProcessID) ([]memory_map.MemoryMapItem, error) {
	if err := p.checkPID(pid); err != nil {
		return nil, err
	}
	result := make([]memory_map.MemoryMapItem, len(p.MemoryMap))
	copy(result, p.MemoryMap)
	return result, nil
}
