// Package config holds the tunables for target discovery, trace resolution and
// the triggerbot run loop.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"tracetrigger/disasm"
	"tracetrigger/process"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Process    Process    `json:"process"`
	Keys       Keys       `json:"keys"`
	Trace      Trace      `json:"trace"`
	Triggerbot Triggerbot `json:"triggerbot"`
}

type Process struct {
	// Name is the image name of the target process
	Name string `json:"name"`

	// QueryInterval is how often the process list is polled while waiting for the target
	QueryInterval Duration `json:"query_interval"`
}

// Keys are Windows virtual-key codes polled once per tick.
type Keys struct {
	Exit             process.VirtualKey `json:"exit"`
	GetContext       process.VirtualKey `json:"get_context"`
	InitializeRound  process.VirtualKey `json:"initialize_round"`
	DecreaseDuration process.VirtualKey `json:"decrease_duration"`
	IncreaseDuration process.VirtualKey `json:"increase_duration"`
	Toggle           process.VirtualKey `json:"toggle"`
}

type Trace struct {
	// UseFixedInstruction skips signature resolution and uses the values below
	UseFixedInstruction bool `json:"use_fixed_instruction"`

	// FixedRelativeAddress is the trace instruction address relative to the image base
	FixedRelativeAddress uint64          `json:"fixed_relative_address"`
	FixedRegister        disasm.Register `json:"fixed_register"`
	FixedDisplacement    int32           `json:"fixed_displacement"`
}

type Triggerbot struct {
	TickIntervalActive   Duration `json:"tick_interval_active"`
	TickIntervalInactive Duration `json:"tick_interval_inactive"`

	// RequestDuration is how long a register capture runs when a round is initialized
	RequestDuration     Duration `json:"request_duration"`
	RequestDurationStep Duration `json:"request_duration_step"`
	RequestDurationMin  Duration `json:"request_duration_min"`
	RequestDurationMax  Duration `json:"request_duration_max"`

	// ReleaseDelay is the hold time between press and release
	ReleaseDelayMin Duration `json:"release_delay_min"`
	ReleaseDelayMax Duration `json:"release_delay_max"`

	// Cooldown is the wait after a release before sampling resumes
	CooldownMin Duration `json:"cooldown_min"`
	CooldownMax Duration `json:"cooldown_max"`

	DisableInjection       bool `json:"disable_injection"`
	LogTraceStateOnTrigger bool `json:"log_trace_state_on_trigger"`
	LogReactionTiming      bool `json:"log_reaction_timing"`
}

func DefaultConfig() *Config {
	return &Config{
		Process: Process{
			Name:          "Overwatch.exe",
			QueryInterval: Duration(3 * time.Second),
		},
		Keys: Keys{
			Exit:             process.VK_F11,
			GetContext:       process.VK_RETURN,
			InitializeRound:  process.VK_F5,
			DecreaseDuration: process.VK_F8,
			IncreaseDuration: process.VK_F9,
			Toggle:           process.VK_MBUTTON,
		},
		Trace: Trace{
			FixedRelativeAddress: 0x00B8C6F3,
			FixedRegister:        disasm.RegisterRDI,
			FixedDisplacement:    0x1FC,
		},
		Triggerbot: Triggerbot{
			TickIntervalActive:   Duration(time.Millisecond),
			TickIntervalInactive: Duration(time.Second),
			RequestDuration:      Duration(2000 * time.Millisecond),
			RequestDurationStep:  Duration(1000 * time.Millisecond),
			RequestDurationMin:   Duration(50 * time.Millisecond),
			RequestDurationMax:   Duration(10000 * time.Millisecond),
			ReleaseDelayMin:      Duration(32000 * time.Microsecond),
			ReleaseDelayMax:      Duration(55000 * time.Microsecond),
			CooldownMin:          Duration(550000 * time.Microsecond),
			CooldownMax:          Duration(750000 * time.Microsecond),
		},
	}
}

// Load reads a JSON file and overlays it on DefaultConfig. Fields missing from
// the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func (c *Config) Validate() error {
	if c.Process.Name == "" {
		return invalid("process name is empty")
	}
	if c.Process.QueryInterval <= 0 {
		return invalid("process query interval must be positive")
	}

	keys := map[string]process.VirtualKey{
		"exit":              c.Keys.Exit,
		"get_context":       c.Keys.GetContext,
		"initialize_round":  c.Keys.InitializeRound,
		"decrease_duration": c.Keys.DecreaseDuration,
		"increase_duration": c.Keys.IncreaseDuration,
		"toggle":            c.Keys.Toggle,
	}
	for name, key := range keys {
		if key == 0 {
			return invalid("key %s is not set", name)
		}
	}

	if c.Trace.UseFixedInstruction {
		if r := c.Trace.FixedRegister; r < disasm.RegisterRAX || r > disasm.RegisterR15 {
			return invalid("fixed register %s is not a general purpose register", r)
		}
	}

	return c.Triggerbot.Validate()
}

// Bounds of the capture duration, whatever the configured range.
const (
	MinRequestDuration = 50 * time.Millisecond
	MaxRequestDuration = 10 * time.Second
)

func (t *Triggerbot) Validate() error {
	if t.TickIntervalActive <= 0 || t.TickIntervalInactive <= 0 {
		return invalid("tick intervals must be positive")
	}
	if t.RequestDurationMin <= 0 || t.RequestDurationMin > t.RequestDurationMax {
		return invalid("request duration range [%s, %s] is empty", t.RequestDurationMin, t.RequestDurationMax)
	}
	if t.RequestDurationMin.D() < MinRequestDuration || t.RequestDurationMax.D() > MaxRequestDuration {
		return invalid("request duration range [%s, %s] exceeds [%s, %s]",
			t.RequestDurationMin, t.RequestDurationMax, MinRequestDuration, MaxRequestDuration)
	}
	if t.RequestDuration < t.RequestDurationMin || t.RequestDuration > t.RequestDurationMax {
		return invalid("request duration %s outside [%s, %s]", t.RequestDuration, t.RequestDurationMin, t.RequestDurationMax)
	}
	if t.RequestDurationStep <= 0 {
		return invalid("request duration step must be positive")
	}
	if t.ReleaseDelayMin < 0 || t.ReleaseDelayMin > t.ReleaseDelayMax {
		return invalid("release delay range [%s, %s] is empty", t.ReleaseDelayMin, t.ReleaseDelayMax)
	}
	if t.CooldownMin < 0 || t.CooldownMin > t.CooldownMax {
		return invalid("cooldown range [%s, %s] is empty", t.CooldownMin, t.CooldownMax)
	}
	return nil
}
