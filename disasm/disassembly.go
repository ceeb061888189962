package disasm

import (
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// MaxInstructionLength is the number of bytes read at an instruction address
// before decoding. It is larger than the architectural 15 byte limit so a
// decode never runs off the end of the buffer.
const MaxInstructionLength = 26

// architecturalLimit is the longest encoding the CPU accepts.
const architecturalLimit = 15

type Flags uint32

const (
	FlagModRM    Flags = 0x00000001
	FlagSIB      Flags = 0x00000002
	FlagImm8     Flags = 0x00000004
	FlagImm16    Flags = 0x00000008
	FlagImm32    Flags = 0x00000010
	FlagImm64    Flags = 0x00000020
	FlagDisp8    Flags = 0x00000040
	FlagDisp16   Flags = 0x00000080
	FlagDisp32   Flags = 0x00000100
	FlagRelative Flags = 0x00000200

	FlagError        Flags = 0x00001000
	FlagErrorOpcode  Flags = 0x00002000
	FlagErrorLength  Flags = 0x00004000
	FlagErrorLock    Flags = 0x00008000
	FlagErrorOperand Flags = 0x00010000

	FlagPrefixRepNZ Flags = 0x01000000
	FlagPrefixRep   Flags = 0x02000000
	FlagPrefix66    Flags = 0x04000000
	FlagPrefix67    Flags = 0x08000000
	FlagPrefixLock  Flags = 0x10000000
	FlagPrefixSeg   Flags = 0x20000000
	FlagPrefixRex   Flags = 0x40000000
	FlagPrefixAny   Flags = 0x7F000000
)

// Has reports whether every bit of want is set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// Immediate holds the immediate operand; narrower views truncate Imm64.
type Immediate struct {
	Imm8  uint8
	Imm16 uint16
	Imm32 uint32
	Imm64 uint64
}

// Displacement holds the ModRM displacement; narrower views truncate Disp32.
type Displacement struct {
	Disp8  uint8
	Disp16 uint16
	Disp32 uint32
}

// Disassembly is the structural decode of one x64 instruction.
type Disassembly struct {
	Len uint8

	PRep  uint8
	PLock uint8
	PSeg  uint8
	P66   uint8
	P67   uint8

	Rex  uint8
	RexW uint8
	RexR uint8
	RexX uint8
	RexB uint8

	Opcode  uint8
	Opcode2 uint8
	Opcode3 uint8

	ModRM    ModRM
	ModRMMod uint8
	ModRMReg uint8
	ModRMRM  uint8

	SIB      uint8
	SIBScale uint8
	SIBIndex uint8
	SIBBase  uint8

	Imm  Immediate
	Disp Displacement

	Flags Flags

	inst  x86asm.Inst
	valid bool
}

var ErrDecode = errors.New("instruction decode failed")

// DecodeError is returned by Decode when the error flags are set.
type DecodeError struct {
	Flags Flags
	Err   error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("instruction decode failed (flags 0x%08X)", uint32(e.Flags))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

// Intel renders the instruction in Intel syntax. pc is the address the
// instruction lives at and is used for relative targets.
func (d Disassembly) Intel(pc uint64) string {
	if !d.valid {
		return "(bad)"
	}
	return x86asm.IntelSyntax(d.inst, pc, nil)
}

// String is a compact one-line summary for error messages.
func (d Disassembly) String() string {
	return fmt.Sprintf("len=%d opcode=0x%02X modrm=%s flags=0x%08X", d.Len, d.Opcode, d.ModRM, uint32(d.Flags))
}
