package disasm

import (
	"fmt"

	"github.com/Moonlight-Companies/gologger/logger"
)

// Log writes every decoded field at debug level.
func (d Disassembly) Log(l *logger.Logger) {
	hex8 := func(v uint8) string { return fmt.Sprintf("0x%02X", v) }

	l.Debugln("len:", d.Len)
	l.Debugln("prefixes: rep", hex8(d.PRep), "lock", hex8(d.PLock), "seg", hex8(d.PSeg), "66", hex8(d.P66), "67", hex8(d.P67))
	l.Debugln("rex:", hex8(d.Rex), "w", d.RexW, "r", d.RexR, "x", d.RexX, "b", d.RexB)
	l.Debugln("opcode:", hex8(d.Opcode), "opcode2:", hex8(d.Opcode2), "opcode3:", hex8(d.Opcode3))
	l.Debugln("modrm:", hex8(uint8(d.ModRM)), "mod", d.ModRMMod, "reg", d.ModRMReg, "rm", d.ModRMRM)
	l.Debugln("sib:", hex8(d.SIB), "scale", d.SIBScale, "index", d.SIBIndex, "base", d.SIBBase)
	l.Debugln("imm:", fmt.Sprintf("8=0x%X 16=0x%X 32=0x%X 64=0x%X", d.Imm.Imm8, d.Imm.Imm16, d.Imm.Imm32, d.Imm.Imm64))
	l.Debugln("disp:", fmt.Sprintf("8=0x%X 16=0x%X 32=0x%X", d.Disp.Disp8, d.Disp.Disp16, d.Disp.Disp32))
	l.Debugln("flags:", fmt.Sprintf("0x%08X", uint32(d.Flags)))
	if d.valid {
		l.Debugln("intel:", d.Intel(0))
	}
}
