package disasm

// Register identifies a general purpose x64 register.
type Register uint8

const (
	RegisterInvalid Register = iota
	RegisterRAX
	RegisterRCX
	RegisterRDX
	RegisterRBX
	RegisterRSP
	RegisterRBP
	RegisterRSI
	RegisterRDI
	RegisterR8
	RegisterR9
	RegisterR10
	RegisterR11
	RegisterR12
	RegisterR13
	RegisterR14
	RegisterR15
	RegisterRIP
)

var registerNames = [...]string{
	RegisterRAX: "rax",
	RegisterRCX: "rcx",
	RegisterRDX: "rdx",
	RegisterRBX: "rbx",
	RegisterRSP: "rsp",
	RegisterRBP: "rbp",
	RegisterRSI: "rsi",
	RegisterRDI: "rdi",
	RegisterR8:  "r8",
	RegisterR9:  "r9",
	RegisterR10: "r10",
	RegisterR11: "r11",
	RegisterR12: "r12",
	RegisterR13: "r13",
	RegisterR14: "r14",
	RegisterR15: "r15",
	RegisterRIP: "rip",
}

func (r Register) String() string {
	if r == RegisterInvalid || int(r) >= len(registerNames) {
		return "(INVALID)"
	}
	return registerNames[r]
}

// ParseRegister returns the register named s ("rax", "rdi", ...).
func ParseRegister(s string) (Register, bool) {
	for r, name := range registerNames {
		if name != "" && name == s {
			return Register(r), true
		}
	}
	return RegisterInvalid, false
}

// MarshalText and UnmarshalText let registers appear by name in JSON config.
func (r Register) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Register) UnmarshalText(text []byte) error {
	reg, ok := ParseRegister(string(text))
	if !ok {
		return &UnknownRegisterError{Name: string(text)}
	}
	*r = reg
	return nil
}

type UnknownRegisterError struct {
	Name string
}

func (e *UnknownRegisterError) Error() string {
	return "unknown register " + e.Name
}
