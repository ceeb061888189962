package trace

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"errors"
	"io"

	"tracetrigger/pe_layout"
	"tracetrigger/process"
)

type fakeSection struct {
	name            string
	va              uint32
	size            uint32
	characteristics uint32
}

func buildHeaderPage(sizeOfImage uint32, sections ...fakeSection) []byte {
	var buf bytes.Buffer

	dos := make([]byte, 0x80)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3C:], 0x80)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	binary.Write(&buf, binary.LittleEndian, pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		NumberOfSections:     uint16(len(sections)),
		SizeOfOptionalHeader: uint16(binary.Size(pe.OptionalHeader64{})),
	})
	binary.Write(&buf, binary.LittleEndian, pe.OptionalHeader64{
		Magic:               0x20B,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		SizeOfImage:         sizeOfImage,
		SizeOfHeaders:       0x400,
		NumberOfRvaAndSizes: 16,
	})
	for _, s := range sections {
		var name [8]uint8
		copy(name[:], s.name)
		binary.Write(&buf, binary.LittleEndian, pe.SectionHeader32{
			Name:            name,
			VirtualSize:     s.size,
			VirtualAddress:  s.va,
			Characteristics: s.characteristics,
		})
	}

	page := make([]byte, pe_layout.HeaderPageSize)
	copy(page, buf.Bytes())
	return page
}

const textCharacteristics = pe_layout.ScnCntCode | pe_layout.ScnMemExecute | pe_layout.ScnMemRead

// traceBytes is the trace instruction followed by the two stores the signature requires.
var traceBytes = []byte{
	0x89, 0x87, 0xFC, 0x01, 0x00, 0x00,
	0x0F, 0x29, 0x87, 0x00, 0x02, 0x00, 0x00,
	0x0F, 0x29, 0x87, 0x10, 0x02, 0x00, 0x00,
}

func fillSection(size int, matches ...int) []byte {
	b := bytes.Repeat([]byte{0xCC}, size)
	for _, off := range matches {
		copy(b[off:], traceBytes)
	}
	return b
}

var errFakeRead = errors.New("fake read failure")

type fakeTarget struct {
	pid       process.ProcessID
	imageBase process.ProcessMemoryAddress
	path      string
	header    []byte
	regions   map[process.ProcessMemoryAddress][]byte
	failReads bool
	reads     int
}

func (f *fakeTarget) ReadMemory(pid process.ProcessID, addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	f.reads++
	if f.failReads || pid != f.pid {
		return nil, errFakeRead
	}
	for base, data := range f.regions {
		end := base + process.ProcessMemoryAddress(len(data))
		if addr >= base && addr+process.ProcessMemoryAddress(size) <= end {
			out := make([]byte, size)
			copy(out, data[addr-base:])
			return out, nil
		}
	}
	return nil, process.ErrAddressNotMapped
}

func (f *fakeTarget) ImageBase(pid process.ProcessID) (process.ProcessMemoryAddress, error) {
	if pid != f.pid {
		return 0, process.ErrProcessNotFound
	}
	return f.imageBase, nil
}

func (f *fakeTarget) ImageFilePath(pid process.ProcessID) (string, error) {
	if pid != f.pid {
		return "", process.ErrProcessNotFound
	}
	return f.path, nil
}

func (f *fakeTarget) open(name string) (io.ReadCloser, error) {
	if name != f.path {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(f.header)), nil
}

// newFakeTarget maps one executable section at imageBase+0x1000.
func newFakeTarget(imageBase process.ProcessMemoryAddress, section []byte) *fakeTarget {
	return &fakeTarget{
		pid:       1234,
		imageBase: imageBase,
		path:      "C:\\Games\\target.exe",
		header: buildHeaderPage(0x10000,
			fakeSection{".text", 0x1000, uint32(len(section)), textCharacteristics},
		),
		regions: map[process.ProcessMemoryAddress][]byte{
			imageBase + 0x1000: section,
		},
	}
}

func newTestResolver(f *fakeTarget) *Resolver {
	r := NewResolver(f)
	r.OpenFile = f.open
	return r
}

type fakeFinder struct {
	pid     process.ProcessID
	misses  int
	lookups int
}

func (f *fakeFinder) LookupProcessIDByName(name string) (process.ProcessID, error) {
	f.lookups++
	if f.lookups <= f.misses {
		return 0, process.ErrProcessNotFound
	}
	return f.pid, nil
}

type fakeKeys struct {
	down map[process.VirtualKey]bool
}

func (k *fakeKeys) IsKeyDown(key process.VirtualKey) bool {
	return k.down[key]
}
