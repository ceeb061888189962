// Package hexdump renders coloured hex dumps of process memory.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode"

	"tracetrigger/process/memory_map"
	"tracetrigger/signature"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// Options defines options for customizing the hexdump output
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// StartOffset is the address of data[0]
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	OffsetColor       coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ASCIIColor        coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	ZeroColor         coloransi.ColorCode

	// Highlight marks every byte covered by a match of this signature. The
	// zero Signature highlights nothing.
	Highlight                signature.Signature
	HighlightColor           coloransi.ColorCode
	HighlightBackgroundColor coloransi.ColorCode

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// ShowPointers appends the qwords at byte 0 and 8 of a line when they
	// point into MemoryMap.
	ShowPointers bool
	MemoryMap    []memory_map.MemoryMapItem
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{
		BytesPerLine:             16,
		OffsetWidth:              12,
		OffsetColor:              coloransi.Cyan,
		HexColor:                 coloransi.Green,
		ASCIIColor:               coloransi.White,
		NonPrintableColor:        coloransi.Red,
		ZeroColor:                coloransi.BrightBlack,
		HighlightColor:           coloransi.Yellow,
		HighlightBackgroundColor: coloransi.Black,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

func highlightMask(data []byte, sig signature.Signature) []bool {
	if sig.Len() == 0 {
		return nil
	}
	mask := make([]bool, len(data))
	for _, offset := range signature.FindAll(data, sig) {
		for i := 0; i < sig.Len(); i++ {
			mask[offset+i] = true
		}
	}
	return mask
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	highlighted := highlightMask(data, options.Highlight)

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))

		var lineHighlight []bool
		if highlighted != nil {
			lineHighlight = highlighted[offset:end]
		}
		formatLine(writer, data[offset:end], lineHighlight, uint64(offset)+options.StartOffset, options)

		lineCount++
	}
}

// formatLine writes
//
//	<offset>  00 01 02 03 04 05 06 07 | 08 09 0a 0b 0c 0d 0e 0f | ........ ........ | <pointers>
func formatLine(writer io.Writer, data []byte, highlighted []bool, offset uint64, options Options) {
	fmt.Fprint(writer, coloransi.Foreground(options.OffsetColor, fmt.Sprintf("%0*x", options.OffsetWidth, offset)), "  ")

	half := options.BytesPerLine / 2
	split := options.BytesPerLine >= 8

	for i := 0; i < options.BytesPerLine; i++ {
		if i > 0 {
			if split && i == half {
				fmt.Fprint(writer, " | ")
			} else {
				fmt.Fprint(writer, " ")
			}
		}
		if i >= len(data) {
			fmt.Fprint(writer, "  ")
			continue
		}
		fmt.Fprint(writer, colorByte(fmt.Sprintf("%02x", data[i]), data[i], highlighted != nil && highlighted[i], options.HexColor, options))
	}

	fmt.Fprint(writer, " | ")
	for i, b := range data {
		if split && i == half {
			fmt.Fprint(writer, " ")
		}
		c := rune(b)
		text := "."
		color := options.NonPrintableColor
		if b != 0 && c < unicode.MaxASCII && unicode.IsPrint(c) {
			text = string(c)
			color = options.ASCIIColor
		}
		fmt.Fprint(writer, colorByte(text, b, highlighted != nil && highlighted[i], color, options))
	}

	if options.ShowPointers {
		var pointers []string
		for at := 0; at+8 <= len(data) && at <= 8; at += 8 {
			ptr := binary.LittleEndian.Uint64(data[at:])
			if memory_map.IsValidAddress(ptr, options.MemoryMap) {
				pointers = append(pointers, coloransi.Foreground(coloransi.Yellow, fmt.Sprintf("0x%x", ptr)))
			}
		}
		if len(pointers) > 0 {
			fmt.Fprint(writer, " | ", strings.Join(pointers, " "))
		}
	}

	fmt.Fprintln(writer)
}

func colorByte(text string, b byte, highlighted bool, color coloransi.ColorCode, options Options) string {
	switch {
	case highlighted:
		return coloransi.Color(options.HighlightColor, options.HighlightBackgroundColor, text)
	case b == 0:
		return coloransi.Foreground(options.ZeroColor, text)
	default:
		return coloransi.Foreground(color, text)
	}
}

// HexdumpBasic dumps data located at offset, showing pointers into mm.
func HexdumpBasic(data []byte, offset uint64, mm []memory_map.MemoryMapItem) string {
	options := DefaultOptions()
	options.StartOffset = offset
	options.ShowPointers = len(mm) > 0
	options.MemoryMap = mm
	return Dump(data, options)
}

// HexdumpSignature dumps data located at offset with every match of sig
// highlighted.
func HexdumpSignature(data []byte, offset uint64, sig signature.Signature) string {
	options := DefaultOptions()
	options.StartOffset = offset
	options.Highlight = sig
	return Dump(data, options)
}
