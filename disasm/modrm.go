package disasm

import (
	"errors"
	"fmt"
)

// ErrUnsupportedEncoding is returned for ModRM forms that need a SIB byte or a
// RIP-relative displacement, neither of which maps to a single base register.
var ErrUnsupportedEncoding = errors.New("unsupported ModRM encoding")

// ModRM is the x86 addressing-mode byte: mod in bits 7-6, reg in 5-3, rm in 2-0.
type ModRM uint8

func (m ModRM) Mod() uint8 { return uint8(m) >> 6 }
func (m ModRM) Reg() uint8 { return (uint8(m) >> 3) & 7 }
func (m ModRM) RM() uint8  { return uint8(m) & 7 }

func (m ModRM) String() string {
	return fmt.Sprintf("0x%02X (mod=%d reg=%d rm=%d)", uint8(m), m.Mod(), m.Reg(), m.RM())
}

// effectiveAddressTable follows Table 2-2 "32-Bit Addressing Forms with the
// ModR/M Byte" of the Intel SDM, indexed by [mod][rm].
var effectiveAddressTable = [4][8]Register{
	// mod 00
	{RegisterRAX, RegisterRCX, RegisterRDX, RegisterRBX, RegisterInvalid, RegisterInvalid, RegisterRSI, RegisterRDI},
	// mod 01
	{RegisterRAX, RegisterRCX, RegisterRDX, RegisterRBX, RegisterInvalid, RegisterRBP, RegisterRSI, RegisterRDI},
	// mod 10
	{RegisterRAX, RegisterRCX, RegisterRDX, RegisterRBX, RegisterInvalid, RegisterRBP, RegisterRSI, RegisterRDI},
	// mod 11
	{RegisterRAX, RegisterRCX, RegisterRDX, RegisterRBX, RegisterRSP, RegisterRBP, RegisterRSI, RegisterRDI},
}

// regOperandTable is indexed by the reg field.
var regOperandTable = [8]Register{
	RegisterRAX, RegisterRCX, RegisterRDX, RegisterRBX,
	RegisterRSP, RegisterRBP, RegisterRSI, RegisterRDI,
}

// UnsupportedEncodingError carries the offending fields of a ModRM byte.
type UnsupportedEncodingError struct {
	ModRM ModRM
}

func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("unsupported ModRM encoding (mod=%d, rm=%d)", e.ModRM.Mod(), e.ModRM.RM())
}

func (e *UnsupportedEncodingError) Unwrap() error {
	return ErrUnsupportedEncoding
}

// ResolveOperands returns the register selected by the (mod, rm) fields and the
// register selected by the reg field. REX extensions are not applied.
func ResolveOperands(m ModRM) (first, second Register, err error) {
	first = effectiveAddressTable[m.Mod()][m.RM()]
	if first == RegisterInvalid {
		return RegisterInvalid, RegisterInvalid, &UnsupportedEncodingError{ModRM: m}
	}
	return first, regOperandTable[m.Reg()], nil
}
