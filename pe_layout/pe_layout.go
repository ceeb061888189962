// Package pe_layout reads the section layout of a PE image from its header page.
package pe_layout

import (
	"bytes"
	"debug/pe"
	"errors"
	"fmt"
	"strings"
)

// HeaderPageSize is the amount of the on-disk image read to obtain the headers.
const HeaderPageSize = 0x1000

const (
	ScnCntCode          uint32 = 0x00000020
	ScnCntInitialized   uint32 = 0x00000040
	ScnCntUninitialized uint32 = 0x00000080
	ScnMemExecute       uint32 = 0x20000000
	ScnMemRead          uint32 = 0x40000000
	ScnMemWrite         uint32 = 0x80000000
)

var (
	ErrBadFormat = errors.New("bad image format")
	ErrNotFound  = errors.New("no matching section")
)

type Section struct {
	Name            string
	VirtualAddress  uint32
	VirtualSize     uint32
	Characteristics uint32
}

func (s Section) String() string {
	return fmt.Sprintf("%-8s va=0x%08X size=0x%08X characteristics=0x%08X", s.Name, s.VirtualAddress, s.VirtualSize, s.Characteristics)
}

// End is the first RVA past the section.
func (s Section) End() uint64 {
	return uint64(s.VirtualAddress) + uint64(s.VirtualSize)
}

type Header struct {
	Is64          bool
	SizeOfHeaders uint32
	SizeOfImage   uint32
	Sections      []Section
}

// TruncatedHeaderError is returned when the headers claim more bytes than were supplied.
type TruncatedHeaderError struct {
	SizeOfHeaders uint32
	Available     int
}

func (e *TruncatedHeaderError) Error() string {
	return fmt.Sprintf("headers need 0x%X bytes, only 0x%X available", e.SizeOfHeaders, e.Available)
}

func (e *TruncatedHeaderError) Unwrap() error {
	return ErrBadFormat
}

// Parse decodes the DOS, NT and section headers contained in header.
func Parse(header []byte) (*Header, error) {
	f, err := pe.NewFile(bytes.NewReader(header))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	defer f.Close()

	h := &Header{}
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		h.Is64 = true
		h.SizeOfHeaders = oh.SizeOfHeaders
		h.SizeOfImage = oh.SizeOfImage
	case *pe.OptionalHeader32:
		h.SizeOfHeaders = oh.SizeOfHeaders
		h.SizeOfImage = oh.SizeOfImage
	default:
		return nil, fmt.Errorf("%w: missing optional header", ErrBadFormat)
	}

	if int64(h.SizeOfHeaders) > int64(len(header)) {
		return nil, &TruncatedHeaderError{SizeOfHeaders: h.SizeOfHeaders, Available: len(header)}
	}

	h.Sections = make([]Section, 0, len(f.Sections))
	for _, s := range f.Sections {
		h.Sections = append(h.Sections, Section{
			Name:            strings.TrimRight(s.Name, "\x00"),
			VirtualAddress:  s.VirtualAddress,
			VirtualSize:     s.VirtualSize,
			Characteristics: s.Characteristics,
		})
	}

	return h, nil
}

// Filter returns the sections sharing at least one characteristic bit with mask.
func (h *Header) Filter(mask uint32) []Section {
	var out []Section
	for _, s := range h.Sections {
		if s.Characteristics&mask != 0 {
			out = append(out, s)
		}
	}
	return out
}

func SectionsByCharacteristic(header []byte, mask uint32) ([]Section, error) {
	h, err := Parse(header)
	if err != nil {
		return nil, err
	}

	out := h.Filter(mask)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: characteristics 0x%08X", ErrNotFound, mask)
	}
	return out, nil
}

func ExecutableSections(header []byte) ([]Section, error) {
	return SectionsByCharacteristic(header, ScnMemExecute)
}

// ImageSize returns SizeOfImage, or 0 when the header does not parse.
func ImageSize(header []byte) uint32 {
	h, err := Parse(header)
	if err != nil {
		return 0
	}
	return h.SizeOfImage
}
