package process

import (
	"fmt"
	"strconv"
	"strings"
)

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessInfo contains basic information about a process
type ProcessInfo struct {
	PID  ProcessID // Process ID
	Name string    // Process name (comm or image file name)
	Exe  string    // Path to the executable image
}

// ButtonAction is a mouse button transition injected into the target process.
type ButtonAction int

const (
	ButtonDown ButtonAction = iota
	ButtonUp
)

func (a ButtonAction) String() string {
	switch a {
	case ButtonDown:
		return "down"
	case ButtonUp:
		return "up"
	default:
		return fmt.Sprintf("ButtonAction(%d)", int(a))
	}
}

// VirtualKey is a Windows virtual-key code.
type VirtualKey uint16

const (
	VK_MBUTTON VirtualKey = 0x04
	VK_RETURN  VirtualKey = 0x0D
	VK_F5      VirtualKey = 0x74
	VK_F8      VirtualKey = 0x77
	VK_F9      VirtualKey = 0x78
	VK_F1      VirtualKey = 0x70
	VK_F11     VirtualKey = 0x7A
	VK_F12     VirtualKey = 0x7B
)

var virtualKeyNames = map[VirtualKey]string{
	VK_MBUTTON: "MBUTTON",
	VK_RETURN:  "ENTER",
	VK_F1:      "F1",
	VK_F5:      "F5",
	VK_F8:      "F8",
	VK_F9:      "F9",
	VK_F11:     "F11",
	VK_F12:     "F12",
}

func (k VirtualKey) String() string {
	if name, ok := virtualKeyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("VK(0x%02X)", uint16(k))
}

func (k VirtualKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts a key name ("F11", "ENTER") or a numeric code ("0x7A").
func (k *VirtualKey) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	for key, name := range virtualKeyNames {
		if name == s {
			*k = key
			return nil
		}
	}

	s = strings.TrimSuffix(strings.TrimPrefix(s, "VK("), ")")
	v, err := strconv.ParseUint(strings.ToLower(s), 0, 16)
	if err != nil || v == 0 {
		return fmt.Errorf("unknown virtual key %q", string(text))
	}
	*k = VirtualKey(v)
	return nil
}
