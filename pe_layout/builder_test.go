package pe_layout

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
)

type testSection struct {
	name            string
	va              uint32
	size            uint32
	characteristics uint32
}

// buildHeader lays out a minimal PE32+ header page with the given sections.
func buildHeader(sizeOfHeaders, sizeOfImage uint32, sections ...testSection) []byte {
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
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_LARGE_ADDRESS_AWARE,
	})
	binary.Write(&buf, binary.LittleEndian, pe.OptionalHeader64{
		Magic:               0x20B,
		ImageBase:           0x140000000,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		SizeOfImage:         sizeOfImage,
		SizeOfHeaders:       sizeOfHeaders,
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

	page := make([]byte, HeaderPageSize)
	copy(page, buf.Bytes())
	return page
}
