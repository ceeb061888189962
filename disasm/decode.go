package disasm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

type opcodeFlags uint16

const (
	opModRM opcodeFlags = 1 << iota
	opImm8
	opImm16
	opImmZ    // 16 or 32 bits depending on the operand size prefix
	opImmV    // 16, 32 or 64 bits (mov r, imm)
	opMoffs   // 64 bit absolute address, 32 with the 0x67 prefix
	opRel32   // 32 bit branch target
	opGroup3  // immediate only for reg 0 and 1
	opEnter   // imm16 followed by imm8
	opRelative
	opInvalid
)

var oneByteTable = buildOneByteTable()
var twoByteTable = buildTwoByteTable()

func set(t *[256]opcodeFlags, f opcodeFlags, ops ...int) {
	for _, op := range ops {
		t[op] |= f
	}
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func buildOneByteTable() [256]opcodeFlags {
	var t [256]opcodeFlags

	// ALU rows: op r/m,r / op r,r/m / op al,imm8 / op eax,immz
	for row := 0x00; row <= 0x38; row += 0x08 {
		set(&t, opModRM, row, row+1, row+2, row+3)
		set(&t, opImm8, row+4)
		set(&t, opImmZ, row+5)
	}

	set(&t, opModRM, 0x63, 0x69, 0x6B)
	set(&t, opImmZ, 0x68, 0x69)
	set(&t, opImm8, 0x6A, 0x6B)
	set(&t, opImm8|opRelative, span(0x70, 0x7F)...)

	set(&t, opModRM, span(0x80, 0x8F)...)
	set(&t, opImm8, 0x80, 0x83)
	set(&t, opImmZ, 0x81)

	set(&t, opMoffs, span(0xA0, 0xA3)...)
	set(&t, opImm8, 0xA8)
	set(&t, opImmZ, 0xA9)
	set(&t, opImm8, span(0xB0, 0xB7)...)
	set(&t, opImmV, span(0xB8, 0xBF)...)

	set(&t, opModRM, 0xC0, 0xC1, 0xC6, 0xC7)
	set(&t, opImm8, 0xC0, 0xC1, 0xC6, 0xCD)
	set(&t, opImmZ, 0xC7)
	set(&t, opImm16, 0xC2, 0xCA)
	set(&t, opEnter, 0xC8)

	set(&t, opModRM, span(0xD0, 0xD3)...)
	set(&t, opModRM, span(0xD8, 0xDF)...)

	set(&t, opImm8|opRelative, span(0xE0, 0xE3)...)
	set(&t, opImm8, span(0xE4, 0xE7)...)
	set(&t, opRel32|opRelative, 0xE8, 0xE9)
	set(&t, opImm8|opRelative, 0xEB)

	set(&t, opModRM|opGroup3, 0xF6, 0xF7)
	set(&t, opModRM, 0xFE, 0xFF)

	// not encodable in 64 bit mode, or VEX/EVEX which is not handled here
	set(&t, opInvalid,
		0x06, 0x07, 0x0E, 0x16, 0x17, 0x1E, 0x1F, 0x27, 0x2F, 0x37, 0x3F,
		0x60, 0x61, 0x62, 0x82, 0x9A, 0xC4, 0xC5, 0xCE, 0xD4, 0xD5, 0xD6, 0xEA)

	return t
}

func buildTwoByteTable() [256]opcodeFlags {
	var t [256]opcodeFlags

	for i := range t {
		t[i] = opModRM
	}

	noModRM := []int{0x05, 0x06, 0x07, 0x08, 0x09, 0x0B, 0x0E, 0x77, 0xA0, 0xA1, 0xA2, 0xA8, 0xA9, 0xAA}
	noModRM = append(noModRM, span(0x30, 0x37)...)
	noModRM = append(noModRM, span(0xC8, 0xCF)...)
	for _, op := range noModRM {
		t[op] = 0
	}

	for _, op := range span(0x80, 0x8F) {
		t[op] = opRel32 | opRelative
	}

	set(&t, opImm8, 0x70, 0x71, 0x72, 0x73, 0xA4, 0xAC, 0xBA, 0xC2, 0xC4, 0xC5, 0xC6)

	// 3DNow! is included; x86asm does not know it either
	for _, op := range []int{0x04, 0x0A, 0x0C, 0x0F, 0x24, 0x25, 0x26, 0x27, 0x36, 0x39,
		0x3B, 0x3C, 0x3D, 0x3E, 0x3F, 0x7A, 0x7B, 0xA6, 0xA7} {
		t[op] = opInvalid
	}

	return t
}

type reader struct {
	code []byte
	p    int
}

func (r *reader) byte() (byte, bool) {
	if r.p >= len(r.code) {
		return 0, false
	}
	b := r.code[r.p]
	r.p++
	return b, true
}

func (r *reader) peek() (byte, bool) {
	if r.p >= len(r.code) {
		return 0, false
	}
	return r.code[r.p], true
}

func (r *reader) le(n int) (uint64, bool) {
	if r.p+n > len(r.code) {
		return 0, false
	}
	var buf [8]byte
	copy(buf[:], r.code[r.p:r.p+n])
	r.p += n
	return binary.LittleEndian.Uint64(buf[:]), true
}

// Decode decodes the first instruction in code as 64 bit x86. At most
// MaxInstructionLength bytes are examined. The decoded length is checked
// against x86asm; when any error flag is set the partial Disassembly is
// returned together with a *DecodeError.
func Decode(code []byte) (Disassembly, error) {
	if len(code) > MaxInstructionLength {
		code = code[:MaxInstructionLength]
	}

	var d Disassembly
	r := &reader{code: code}

	if !d.decodeStructure(r) {
		d.Flags |= FlagErrorLength
	}
	d.Len = uint8(r.p)
	if r.p > architecturalLimit {
		d.Flags |= FlagErrorLength
	}
	if d.PLock != 0 && (d.Flags&FlagModRM == 0 || d.ModRMMod == 3) {
		d.Flags |= FlagErrorLock
	}

	var crossErr error
	if d.Flags&(FlagErrorOpcode|FlagErrorLength) == 0 {
		crossErr = d.crossCheck(code)
	}

	if d.Flags&(FlagErrorOpcode|FlagErrorLength|FlagErrorLock|FlagErrorOperand) != 0 {
		d.Flags |= FlagError
		return d, &DecodeError{Flags: d.Flags, Err: crossErr}
	}
	return d, nil
}

// decodeStructure walks prefixes, opcode, ModRM, SIB, displacement and
// immediate. It returns false when code ends before the instruction does.
func (d *Disassembly) decodeStructure(r *reader) bool {
prefixes:
	for {
		b, ok := r.peek()
		if !ok {
			return false
		}
		switch b {
		case 0xF3:
			d.PRep = b
			d.Flags |= FlagPrefixRep
		case 0xF2:
			d.PRep = b
			d.Flags |= FlagPrefixRepNZ
		case 0xF0:
			d.PLock = b
			d.Flags |= FlagPrefixLock
		case 0x26, 0x2E, 0x36, 0x3E, 0x64, 0x65:
			d.PSeg = b
			d.Flags |= FlagPrefixSeg
		case 0x66:
			d.P66 = b
			d.Flags |= FlagPrefix66
		case 0x67:
			d.P67 = b
			d.Flags |= FlagPrefix67
		default:
			break prefixes
		}
		r.p++
		if r.p > architecturalLimit {
			d.Flags |= FlagErrorLength
			return true
		}
	}

	if b, _ := r.peek(); b&0xF0 == 0x40 {
		r.p++
		d.Rex = b
		d.RexW = (b >> 3) & 1
		d.RexR = (b >> 2) & 1
		d.RexX = (b >> 1) & 1
		d.RexB = b & 1
		d.Flags |= FlagPrefixRex
	}

	op, ok := r.byte()
	if !ok {
		return false
	}
	d.Opcode = op

	flags := oneByteTable[op]
	if op == 0x0F {
		if d.Opcode2, ok = r.byte(); !ok {
			return false
		}
		switch d.Opcode2 {
		case 0x38:
			flags = opModRM
		case 0x3A:
			flags = opModRM | opImm8
		default:
			flags = twoByteTable[d.Opcode2]
		}
		if d.Opcode2 == 0x38 || d.Opcode2 == 0x3A {
			if d.Opcode3, ok = r.byte(); !ok {
				return false
			}
		}
	}

	if flags&opInvalid != 0 {
		d.Flags |= FlagErrorOpcode
		return true
	}
	if flags&opRelative != 0 {
		d.Flags |= FlagRelative
	}

	if flags&opModRM != 0 {
		if !d.decodeModRM(r) {
			return false
		}
	}

	return d.decodeImmediate(r, flags)
}

func (d *Disassembly) decodeModRM(r *reader) bool {
	b, ok := r.byte()
	if !ok {
		return false
	}
	d.ModRM = ModRM(b)
	d.ModRMMod = d.ModRM.Mod()
	d.ModRMReg = d.ModRM.Reg()
	d.ModRMRM = d.ModRM.RM()
	d.Flags |= FlagModRM

	if d.ModRMMod != 3 && d.ModRMRM == 4 {
		if d.SIB, ok = r.byte(); !ok {
			return false
		}
		d.SIBScale = d.SIB >> 6
		d.SIBIndex = (d.SIB >> 3) & 7
		d.SIBBase = d.SIB & 7
		d.Flags |= FlagSIB
	}

	var dispSize int
	switch d.ModRMMod {
	case 0:
		if d.ModRMRM == 5 || (d.Flags&FlagSIB != 0 && d.SIBBase == 5) {
			dispSize = 4
		}
	case 1:
		dispSize = 1
	case 2:
		dispSize = 4
	}

	if dispSize == 0 {
		return true
	}
	v, ok := r.le(dispSize)
	if !ok {
		return false
	}
	d.Disp = Displacement{Disp8: uint8(v), Disp16: uint16(v), Disp32: uint32(v)}
	if dispSize == 1 {
		d.Flags |= FlagDisp8
	} else {
		d.Flags |= FlagDisp32
	}
	return true
}

func (d *Disassembly) decodeImmediate(r *reader, flags opcodeFlags) bool {
	operand16 := d.P66 != 0 && d.RexW == 0

	size := 0
	switch {
	case flags&opEnter != 0:
		v, ok := r.le(3)
		if !ok {
			return false
		}
		// ENTER carries two immediates: frame size then nesting level
		d.Imm = Immediate{Imm8: uint8(v >> 16), Imm16: uint16(v), Imm32: uint32(v), Imm64: v}
		d.Flags |= FlagImm16 | FlagImm8
		return true
	case flags&opGroup3 != 0:
		if d.ModRMReg > 1 {
			return true
		}
		if d.Opcode == 0xF6 {
			size = 1
		} else if operand16 {
			size = 2
		} else {
			size = 4
		}
	case flags&opImm8 != 0:
		size = 1
	case flags&opImm16 != 0:
		size = 2
	case flags&opImmZ != 0:
		if operand16 {
			size = 2
		} else {
			size = 4
		}
	case flags&opImmV != 0:
		switch {
		case d.RexW != 0:
			size = 8
		case operand16:
			size = 2
		default:
			size = 4
		}
	case flags&opMoffs != 0:
		if d.P67 != 0 {
			size = 4
		} else {
			size = 8
		}
	case flags&opRel32 != 0:
		size = 4
	}

	if size == 0 {
		return true
	}
	v, ok := r.le(size)
	if !ok {
		return false
	}
	d.Imm = Immediate{Imm8: uint8(v), Imm16: uint16(v), Imm32: uint32(v), Imm64: v}
	switch size {
	case 1:
		d.Flags |= FlagImm8
	case 2:
		d.Flags |= FlagImm16
	case 4:
		d.Flags |= FlagImm32
	case 8:
		d.Flags |= FlagImm64
	}
	return true
}

// crossCheck decodes code with x86asm and compares the instruction length.
func (d *Disassembly) crossCheck(code []byte) error {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		if errors.Is(err, x86asm.ErrTruncated) {
			d.Flags |= FlagErrorLength
		} else {
			d.Flags |= FlagErrorOpcode
		}
		return err
	}
	if inst.Len != int(d.Len) {
		// x86asm knows the prefix interactions better than the opcode tables
		if !isLegacyPrefix(code[0]) {
			d.Flags |= FlagErrorLength
			return &LengthMismatchError{Decoded: int(d.Len), Reference: inst.Len}
		}
		d.Len = uint8(inst.Len)
	}
	d.inst = inst
	d.valid = true
	return nil
}

func isLegacyPrefix(b byte) bool {
	switch b {
	case 0x26, 0x2E, 0x36, 0x3E, 0x64, 0x65, 0x66, 0x67, 0xF0, 0xF2, 0xF3:
		return true
	}
	return false
}

type LengthMismatchError struct {
	Decoded   int
	Reference int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("decoded length %d disagrees with reference length %d", e.Decoded, e.Reference)
}
