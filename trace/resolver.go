// Package trace locates the trace instruction inside a running image and
// derives the register and displacement used to reach the trace state.
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"tracetrigger/disasm"
	"tracetrigger/pe_layout"
	"tracetrigger/process"
	"tracetrigger/signature"
)

// Signature matches
//
//	89 87 xx xx xx xx     mov [rdi+disp32], eax
//	0F 29 87 xx xx xx xx  movaps [rdi+disp32], xmm0
//	0F 29 87 xx xx xx xx  movaps [rdi+disp32], xmm0
//
// where the first instruction is the trace instruction.
var Signature = signature.MustParse("89 87 ?? ?? ?? ?? 0F 29 87 ?? ?? ?? ?? 0F 29 87 ?? ?? ?? ??")

const (
	TraceOpcode        uint8        = 0x89
	TraceRequiredFlags disasm.Flags = disasm.FlagModRM | disasm.FlagDisp32
)

// ResolvedInstruction is the located trace instruction. The trace state of
// the current round lives at Register + Displacement when the instruction runs.
type ResolvedInstruction struct {
	Address      process.ProcessMemoryAddress
	Register     disasm.Register
	Displacement int32
}

func (r ResolvedInstruction) String() string {
	return fmt.Sprintf("%s [%s+0x%X]", r.Address.ToString(), r.Register, r.Displacement)
}

type Resolver struct {
	Memory process.RemoteMemory
	Images process.ImageInspector

	// OpenFile opens the on-disk image. Defaults to os.Open.
	OpenFile func(name string) (io.ReadCloser, error)

	Signature     signature.Signature
	Opcode        uint8
	RequiredFlags disasm.Flags

	log *logger.Logger
}

func NewResolver(target process.Target) *Resolver {
	return &Resolver{
		Memory:        target,
		Images:        target,
		OpenFile:      func(name string) (io.ReadCloser, error) { return os.Open(name) },
		Signature:     Signature,
		Opcode:        TraceOpcode,
		RequiredFlags: TraceRequiredFlags,
		log:           newLogger(),
	}
}

func newLogger() *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "trace"))
}

// readHeaderPage reads the first page of the on-disk image. The mapped image
// is not used because the target scrubs its headers after unpacking.
func (r *Resolver) readHeaderPage(pid process.ProcessID) ([]byte, error) {
	path, err := r.Images.ImageFilePath(pid)
	if err != nil {
		return nil, resolveError(ImageUnreadable, "image path", 0, err)
	}

	f, err := r.OpenFile(path)
	if err != nil {
		return nil, resolveError(ImageUnreadable, "open image", 0, err)
	}
	defer f.Close()

	header := make([]byte, pe_layout.HeaderPageSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, resolveError(ImageUnreadable, "read image header "+path, 0, err)
	}
	return header, nil
}

func (r *Resolver) readMemory(pid process.ProcessID, addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	data, err := r.Memory.ReadMemory(pid, addr, size)
	if err != nil {
		return nil, resolveError(MemoryUnreadable, "read memory", addr, err)
	}
	if len(data) != int(size) {
		return nil, resolveError(MemoryUnreadable, "read memory", addr,
			fmt.Errorf("short read: %d of %d bytes", len(data), size))
	}
	return data, nil
}

// Resolve finds the trace instruction in the image mapped at imageBase in the
// process pid. It never retries; every failure is a *ResolveError.
func (r *Resolver) Resolve(pid process.ProcessID, imageBase process.ProcessMemoryAddress) (ResolvedInstruction, error) {
	var none ResolvedInstruction

	if r.log == nil {
		r.log = newLogger()
	}
	if err := r.Signature.Validate(); err != nil {
		return none, err
	}

	header, err := r.readHeaderPage(pid)
	if err != nil {
		return none, err
	}

	h, err := pe_layout.Parse(header)
	if err != nil {
		return none, resolveError(BadImageFormat, "parse image header", 0, err)
	}
	if h.SizeOfImage == 0 {
		return none, resolveError(BadImageFormat, "parse image header", 0, errors.New("SizeOfImage is zero"))
	}

	sections := h.Filter(pe_layout.ScnMemExecute)
	if len(sections) != 1 {
		return none, resolveError(SectionCountUnexpected, "find executable section", 0,
			fmt.Errorf("found %d executable sections", len(sections)))
	}
	section := sections[0]

	remoteSection, ok := imageBase.Add(process.ProcessMemorySize(section.VirtualAddress))
	if !ok {
		return none, resolveError(BadImageFormat, "locate section "+section.Name, imageBase, errors.New("section address overflows"))
	}
	sectionSize := process.ProcessMemorySize(section.VirtualSize)
	sectionEnd, ok := remoteSection.Add(sectionSize)
	if !ok {
		return none, resolveError(BadImageFormat, "locate section "+section.Name, remoteSection, errors.New("section end overflows"))
	}

	r.log.Debugln("Scanning section", section.Name, "at", remoteSection.ToString(), "size", fmt.Sprintf("0x%X", section.VirtualSize))

	data, err := r.readMemory(pid, remoteSection, sectionSize)
	if err != nil {
		return none, err
	}

	offset, err := signature.FindUnique(data, r.Signature)
	switch {
	case errors.Is(err, signature.ErrNotFound):
		return none, resolveError(SignatureNotFound, "scan section "+section.Name, remoteSection, err)
	case errors.Is(err, signature.ErrAmbiguous):
		return none, resolveError(SignatureAmbiguous, "scan section "+section.Name, remoteSection, err)
	case err != nil:
		return none, err
	}

	candidate := remoteSection + process.ProcessMemoryAddress(offset)
	candidateEnd, ok := candidate.Add(disasm.MaxInstructionLength)
	if !ok || candidate < remoteSection || candidateEnd >= sectionEnd {
		return none, resolveError(CandidateOutOfBounds, "bounds check", candidate,
			fmt.Errorf("section [%s, %s)", remoteSection.ToString(), sectionEnd.ToString()))
	}

	r.log.Debugln("Signature match at", candidate.ToString())

	// read again rather than slicing data so the decoded bytes are current
	code, err := r.readMemory(pid, candidate, disasm.MaxInstructionLength)
	if err != nil {
		return none, err
	}

	d, err := disasm.Decode(code)
	if err != nil {
		return none, resolveError(DecodeFailed, "decode", candidate, err)
	}
	d.Log(r.log)

	if d.Opcode != r.Opcode || !d.Flags.Has(r.RequiredFlags) {
		return none, resolveError(UnexpectedOpcodeOrShape, "validate", candidate,
			fmt.Errorf("opcode 0x%02X flags 0x%08X", d.Opcode, uint32(d.Flags)))
	}
	// a REX prefix would sit before the matched opcode; the operand tables do not apply it
	if offset > 0 && isRexPrefix(data[offset-1]) {
		return none, resolveError(UnexpectedOpcodeOrShape, "validate", candidate,
			fmt.Errorf("unexpected REX prefix 0x%02X", data[offset-1]))
	}

	base, _, err := disasm.ResolveOperands(d.ModRM)
	if err != nil {
		return none, resolveError(UnexpectedOpcodeOrShape, "resolve operands", candidate, err)
	}

	resolved := ResolvedInstruction{
		Address:      candidate,
		Register:     base,
		Displacement: int32(d.Disp.Disp32),
	}
	r.log.Infoln("Resolved trace instruction", resolved.String(), "-", d.Intel(uint64(candidate)))

	return resolved, nil
}

func isRexPrefix(b byte) bool {
	return b&0xF0 == 0x40
}
