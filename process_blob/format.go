// Package process_blob reads and writes offline process dumps: a directory
// holding metadata.json, process_memory_map.json, one blob_0x<addr>_<size>.bin
// per saved region and optionally image_header.bin.
package process_blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tracetrigger/process"
	"tracetrigger/process/memory_map"
)

const (
	MetadataFile    = "metadata.json"
	MemoryMapFile   = "process_memory_map.json"
	ImageHeaderFile = "image_header.bin"
)

// Metadata describes the dumped process.
type Metadata struct {
	PID       process.ProcessID            `json:"pid"`
	Name      string                       `json:"name"`
	ImageBase process.ProcessMemoryAddress `json:"image_base"`
	ImagePath string                       `json:"image_path"`
}

// BlobFileName is the file a region's bytes are stored in.
func BlobFileName(region memory_map.MemoryMapItem) string {
	return fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteMetadata creates dirname if needed and writes metadata.json and
// process_memory_map.json into it.
func WriteMetadata(dirname string, metadata Metadata, mm []memory_map.MemoryMapItem) error {
	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := writeJSON(filepath.Join(dirname, MetadataFile), metadata); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dirname, MemoryMapFile), mm)
}

// WriteBlob stores the bytes of one region.
func WriteBlob(dirname string, region memory_map.MemoryMapItem, data []byte) error {
	filename := filepath.Join(dirname, BlobFileName(region))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", BlobFileName(region), err)
	}
	return nil
}

// WriteImageHeader stores the leading on-disk bytes of the image so a dump can
// be resolved without the original executable.
func WriteImageHeader(dirname string, header []byte) error {
	if err := os.WriteFile(filepath.Join(dirname, ImageHeaderFile), header, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ImageHeaderFile, err)
	}
	return nil
}
