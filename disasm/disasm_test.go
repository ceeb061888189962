package disasm

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/arch/x86/x86asm"
)

func TestDecodeTraceInstruction(t *testing.T) {
	// mov dword ptr [rdi+0x1fc], eax
	code := []byte{0x89, 0x87, 0xFC, 0x01, 0x00, 0x00, 0x0F, 0x29, 0x87, 0x00, 0x02, 0x00, 0x00}

	d, err := Decode(code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Len != 6 {
		t.Fatalf("expected length 6 - got %d", d.Len)
	}
	if d.Opcode != 0x89 {
		t.Fatalf("expected opcode 0x89 - got 0x%x", d.Opcode)
	}
	if d.ModRM != 0x87 || d.ModRMMod != 2 || d.ModRMReg != 0 || d.ModRMRM != 7 {
		t.Fatalf("unexpected modrm fields: %s", d.ModRM)
	}
	if !d.Flags.Has(FlagModRM | FlagDisp32) {
		t.Fatalf("expected modrm and disp32 flags - got 0x%x", uint32(d.Flags))
	}
	if d.Flags&FlagError != 0 {
		t.Fatalf("unexpected error flag - got 0x%x", uint32(d.Flags))
	}
	if d.Disp.Disp32 != 0x1FC {
		t.Fatalf("expected displacement 0x1fc - got 0x%x", d.Disp.Disp32)
	}

	first, second, err := ResolveOperands(d.ModRM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != RegisterRDI {
		t.Fatalf("expected first operand rdi - got %s", first)
	}
	if second != RegisterRAX {
		t.Fatalf("expected second operand rax - got %s", second)
	}
}

func TestDecodeLengths(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		len   uint8
		flags Flags
	}{
		{"nop", []byte{0x90}, 1, 0},
		{"ret", []byte{0xC3}, 1, 0},
		{"push rbp", []byte{0x55}, 1, 0},
		{"mov rbp, rsp", []byte{0x48, 0x89, 0xE5}, 3, FlagModRM | FlagPrefixRex},
		{"sub rsp, imm8", []byte{0x48, 0x83, 0xEC, 0x28}, 4, FlagModRM | FlagImm8},
		{"mov eax, imm32", []byte{0xB8, 0x78, 0x56, 0x34, 0x12}, 5, FlagImm32},
		{"mov rax, imm64", []byte{0x48, 0xB8, 1, 2, 3, 4, 5, 6, 7, 8}, 10, FlagImm64},
		{"mov ax, imm16", []byte{0x66, 0xB8, 0x34, 0x12}, 4, FlagImm16 | FlagPrefix66},
		{"call rel32", []byte{0xE8, 0x00, 0x00, 0x00, 0x00}, 5, FlagImm32 | FlagRelative},
		{"jz rel32", []byte{0x0F, 0x84, 0x10, 0x00, 0x00, 0x00}, 6, FlagImm32 | FlagRelative},
		{"jmp rel8", []byte{0xEB, 0xFE}, 2, FlagImm8 | FlagRelative},
		{"lea rax, [rip+disp32]", []byte{0x48, 0x8D, 0x05, 0x10, 0x00, 0x00, 0x00}, 7, FlagModRM | FlagDisp32},
		{"mov eax, [rsp+8]", []byte{0x8B, 0x44, 0x24, 0x08}, 4, FlagModRM | FlagSIB | FlagDisp8},
		{"movaps [rdi+disp32], xmm0", []byte{0x0F, 0x29, 0x87, 0x00, 0x02, 0x00, 0x00}, 7, FlagModRM | FlagDisp32},
		{"test byte ptr [rax], imm8", []byte{0xF6, 0x00, 0x01}, 3, FlagModRM | FlagImm8},
		{"not dword ptr [rax]", []byte{0xF7, 0x10}, 2, FlagModRM},
		{"cpuid", []byte{0x0F, 0xA2}, 2, 0},
		{"pshufd", []byte{0x66, 0x0F, 0x70, 0xC1, 0x1B}, 5, FlagModRM | FlagImm8 | FlagPrefix66},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decode(tt.code)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Len != tt.len {
				t.Fatalf("expected length %d - got %d", tt.len, d.Len)
			}
			if !d.Flags.Has(tt.flags) {
				t.Fatalf("expected flags 0x%x set - got 0x%x", uint32(tt.flags), uint32(d.Flags))
			}
		})
	}
}

func TestDecodePrefixLedLengths(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"es mov [rdi+disp32], eax", []byte{0x26, 0x89, 0x87, 0xFC, 0x01, 0x00, 0x00}},
		{"fs mov rax, [0x28]", []byte{0x64, 0x48, 0x8B, 0x04, 0x25, 0x28, 0x00, 0x00, 0x00}},
		{"gs mov rax, [0x30]", []byte{0x65, 0x48, 0x8B, 0x04, 0x25, 0x30, 0x00, 0x00, 0x00}},
		{"mov [rdi+disp32], ax", []byte{0x66, 0x89, 0x87, 0xFC, 0x01, 0x00, 0x00}},
		{"mov [edi], eax", []byte{0x67, 0x89, 0x07}},
		{"lock add [rdi], eax", []byte{0xF0, 0x01, 0x07}},
		{"ds es mov [rdi], eax", []byte{0x3E, 0x26, 0x89, 0x07}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := x86asm.Decode(tt.code, 64)
			if err != nil {
				t.Fatalf("unexpected reference error: %v", err)
			}
			d, err := Decode(tt.code)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if int(d.Len) != ref.Len {
				t.Fatalf("expected length %d - got %d", ref.Len, d.Len)
			}
		})
	}

	for _, b := range []byte{0x26, 0x2E, 0x36, 0x3E, 0x64, 0x65, 0x66, 0x67, 0xF0, 0xF2, 0xF3} {
		if !isLegacyPrefix(b) {
			t.Fatalf("expected 0x%02X to be a legacy prefix", b)
		}
	}
	for _, b := range []byte{0x40, 0x48, 0x89, 0x0F, 0x90} {
		if isLegacyPrefix(b) {
			t.Fatalf("expected 0x%02X not to be a legacy prefix", b)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		flag Flags
	}{
		{"empty", nil, FlagErrorLength},
		{"truncated disp32", []byte{0x89, 0x87, 0xFC, 0x01}, FlagErrorLength},
		{"truncated modrm", []byte{0x89}, FlagErrorLength},
		{"invalid in long mode", []byte{0x06}, FlagErrorOpcode},
		{"lock on register form", []byte{0xF0, 0x01, 0xC0}, FlagErrorLock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decode(tt.code)
			if err == nil {
				t.Fatalf("expected an error")
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected *DecodeError - got %T", err)
			}
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected error to match ErrDecode")
			}
			if !d.Flags.Has(FlagError | tt.flag) {
				t.Fatalf("expected flags 0x%x set - got 0x%x", uint32(FlagError|tt.flag), uint32(d.Flags))
			}
		})
	}
}

func TestDecodeCapsInput(t *testing.T) {
	code := make([]byte, 64)
	for i := range code {
		code[i] = 0x66
	}
	_, err := Decode(code)
	if err == nil {
		t.Fatalf("expected an error for a prefix-only buffer")
	}
}

func TestIntel(t *testing.T) {
	d, err := Decode([]byte{0x89, 0x87, 0xFC, 0x01, 0x00, 0x00})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := d.Intel(0)
	if !strings.HasPrefix(got, "mov ") || !strings.Contains(got, "rdi") || !strings.Contains(got, "eax") {
		t.Fatalf("unexpected rendering %q", got)
	}

	var zero Disassembly
	if got := zero.Intel(0); got != "(bad)" {
		t.Fatalf("expected (bad) - got %q", got)
	}
}

func TestResolveOperandsTable(t *testing.T) {
	invalid := map[[2]uint8]bool{
		{0, 4}: true,
		{0, 5}: true,
		{1, 4}: true,
		{2, 4}: true,
	}

	for mod := uint8(0); mod < 4; mod++ {
		for reg := uint8(0); reg < 8; reg++ {
			for rm := uint8(0); rm < 8; rm++ {
				m := ModRM(mod<<6 | reg<<3 | rm)
				first, second, err := ResolveOperands(m)

				if invalid[[2]uint8{mod, rm}] {
					if !errors.Is(err, ErrUnsupportedEncoding) {
						t.Fatalf("expected ErrUnsupportedEncoding for %s - got %v", m, err)
					}
					continue
				}

				if err != nil {
					t.Fatalf("unexpected error for %s: %v", m, err)
				}
				if first == RegisterInvalid || second == RegisterInvalid {
					t.Fatalf("expected valid registers for %s - got %s, %s", m, first, second)
				}
				if second != regOperandTable[reg] {
					t.Fatalf("expected second operand %s - got %s", regOperandTable[reg], second)
				}
			}
		}
	}
}

func TestResolveOperandsModRegister(t *testing.T) {
	// mod 11 addresses registers directly, including rsp
	first, _, err := ResolveOperands(ModRM(0xC4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != RegisterRSP {
		t.Fatalf("expected rsp - got %s", first)
	}
}

func TestRegisterText(t *testing.T) {
	var r Register
	if err := r.UnmarshalText([]byte("rdi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != RegisterRDI {
		t.Fatalf("expected rdi - got %s", r)
	}

	if err := r.UnmarshalText([]byte("xmm0")); err == nil {
		t.Fatalf("expected an error for an unknown register")
	}

	if RegisterInvalid.String() != "(INVALID)" {
		t.Fatalf("unexpected name for invalid register: %s", RegisterInvalid)
	}
}
