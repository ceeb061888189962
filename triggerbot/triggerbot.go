// Package triggerbot samples the trace state of the local player and reacts to
// it with timed button presses.
package triggerbot

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"tracetrigger/config"
	"tracetrigger/process"
	"tracetrigger/trace"
)

type State int

const (
	// StateUninitialized has no trace state address
	StateUninitialized State = iota
	// StateReady has an address but is not sampling
	StateReady
	// StatePolling samples the trace state every tick
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StatePolling:
		return "polling"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RoundContext is valid from a successful InitializeRound until the next reset.
type RoundContext struct {
	TraceStateAddress process.ProcessMemoryAddress
	TriggerCount      uint64
}

type Dependencies struct {
	Memory   process.RemoteMemory
	Capturer process.RegisterCapturer
	Injector process.ButtonInjector
	Keys     process.KeyPoller

	// Clock and Rand default to the system clock and a seeded PCG source
	Clock Clock
	Rand  Rand
}

// Triggerbot is owned by a single goroutine. The trace state address is always
// set while the bot is active.
type Triggerbot struct {
	target trace.TargetContext
	deps   Dependencies
	cfg    config.Triggerbot
	keys   config.Keys

	requestDuration time.Duration
	active          bool
	round           RoundContext

	log *logger.Logger
}

func New(target trace.TargetContext, deps Dependencies, cfg config.Triggerbot, keys config.Keys) *Triggerbot {
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if deps.Rand == nil {
		deps.Rand = newRand()
	}

	return &Triggerbot{
		target:          target,
		deps:            deps,
		cfg:             cfg,
		keys:            keys,
		requestDuration: cfg.RequestDuration.D(),
		log:             logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("triggerbot-%d", target.PID))),
	}
}

func (t *Triggerbot) State() State {
	switch {
	case t.round.TraceStateAddress == 0:
		return StateUninitialized
	case t.active:
		return StatePolling
	default:
		return StateReady
	}
}

func (t *Triggerbot) Round() RoundContext {
	return t.round
}

func (t *Triggerbot) Active() bool {
	return t.active
}

func (t *Triggerbot) RequestDuration() time.Duration {
	return t.requestDuration
}

// AdjustRequestDuration moves the capture duration by one step, clamped to
// the configured range.
func (t *Triggerbot) AdjustRequestDuration(increase bool) {
	previous := t.requestDuration
	step := t.cfg.RequestDurationStep.D()

	next := previous - step
	if increase {
		next = previous + step
	}
	if next < t.cfg.RequestDurationMin.D() {
		next = t.cfg.RequestDurationMin.D()
	}
	if next > t.cfg.RequestDurationMax.D() {
		next = t.cfg.RequestDurationMax.D()
	}

	t.requestDuration = next
	if next != previous {
		t.log.Infoln("Request duration:", next, "(previous", previous.String()+")")
	} else {
		t.log.Infoln("Request duration unchanged (limit", next.String()+")")
	}
}

// ResetRound clears the round context and deactivates the bot.
func (t *Triggerbot) ResetRound() {
	t.log.Infoln("Resetting round, triggers:", t.round.TriggerCount)

	t.round = RoundContext{}
	if t.active {
		t.active = false
		t.log.Infoln("Inactive")
	}
}

// InitializeRound captures the register of the trace instruction to find the
// trace state of the local player. The previous round is always discarded,
// and the call blocks for the request duration.
func (t *Triggerbot) InitializeRound() error {
	t.ResetRound()

	instruction := t.target.Instruction
	t.log.Infoln("Initializing a new round, capturing", instruction.Register.String(), "for", t.requestDuration)

	values, err := t.deps.Capturer.CaptureRegister(t.target.PID, instruction.Address, instruction.Register, t.requestDuration)
	if err != nil {
		return fmt.Errorf("failed to capture register %s at %s: %w", instruction.Register, instruction.Address.ToString(), err)
	}

	switch len(values) {
	case 0:
		return ErrNoCapture
	case 1:
	default:
		return &AmbiguousCaptureError{Values: values}
	}

	address := process.ProcessMemoryAddress(values[0] + uint64(int64(instruction.Displacement)))
	if address == 0 {
		return fmt.Errorf("%w: captured value 0x%X yields a null address", ErrNoCapture, values[0])
	}

	t.round.TraceStateAddress = address
	t.log.Debugln("Trace state address:", address.ToString())
	t.log.Infoln("Round initialized, ready")
	return nil
}

// Toggle flips the active state. It is rejected until a round is initialized.
func (t *Triggerbot) Toggle() error {
	if t.round.TraceStateAddress == 0 {
		t.log.Warn("Initialize a new round before enabling the triggerbot")
		return ErrRoundNotInitialized
	}

	t.active = !t.active
	if t.active {
		t.log.Infoln("Enabled")
	} else {
		t.log.Infoln("Disabled")
	}
	return nil
}

func (t *Triggerbot) readTraceState() (uint32, error) {
	data, err := t.deps.Memory.ReadMemory(t.target.PID, t.round.TraceStateAddress, 4)
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("short read: %d of 4 bytes", len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (t *Triggerbot) inject(action process.ButtonAction) error {
	if t.cfg.DisableInjection {
		return nil
	}
	if err := t.deps.Injector.InjectButton(t.target.PID, action); err != nil {
		return &ReactionError{Action: action, Err: err}
	}
	return nil
}

// react presses, holds for the release delay, releases and then waits out the
// cooldown. Logging is deferred until the reaction is complete.
func (t *Triggerbot) react() error {
	if err := t.inject(process.ButtonDown); err != nil {
		return err
	}
	clickTime := t.deps.Clock.Now()

	spinWait(t.deps.Clock, randomDelay(t.deps.Rand, t.cfg.ReleaseDelayMin.D(), t.cfg.ReleaseDelayMax.D()))

	if err := t.inject(process.ButtonUp); err != nil {
		return err
	}
	releaseTime := t.deps.Clock.Now()

	spinWait(t.deps.Clock, randomDelay(t.deps.Rand, t.cfg.CooldownMin.D(), t.cfg.CooldownMax.D()))
	finishTime := t.deps.Clock.Now()

	t.round.TriggerCount++

	if t.cfg.LogReactionTiming {
		t.log.Infoln("Trigger activated: release", releaseTime.Sub(clickTime),
			"cooldown", finishTime.Sub(releaseTime), "total", finishTime.Sub(clickTime))
	}
	return nil
}

// tick handles input and one sample. Only a *ReactionError is returned.
func (t *Triggerbot) tick() error {
	keys := t.deps.Keys

	if keys.IsKeyDown(t.keys.DecreaseDuration) {
		t.AdjustRequestDuration(false)
	}
	if keys.IsKeyDown(t.keys.IncreaseDuration) {
		t.AdjustRequestDuration(true)
	}

	if keys.IsKeyDown(t.keys.InitializeRound) {
		if err := t.InitializeRound(); err != nil {
			t.log.Warn("Failed to initialize a new round: ", err)
			return nil
		}
	}

	if keys.IsKeyDown(t.keys.Toggle) {
		if err := t.Toggle(); err != nil {
			return nil
		}
	}

	if t.round.TraceStateAddress == 0 || !t.active {
		return nil
	}

	value, err := t.readTraceState()
	if err != nil {
		// most likely the player left the match
		t.log.Warn("Failed to read trace state at ", t.round.TraceStateAddress.ToString(), ": ", err)
		t.ResetRound()
		return nil
	}

	if !trace.IsCandidate(value) {
		return nil
	}

	if err := t.react(); err != nil {
		return err
	}

	if t.cfg.LogTraceStateOnTrigger {
		t.log.Infoln("Trigger activated, trace state", fmt.Sprintf("0x%08X", value))
	}
	return nil
}

// Run is the tick loop. It returns nil when the exit key is pressed or ctx is
// done, and a *ReactionError when input injection fails. A reaction in
// progress always completes before ctx is observed.
func (t *Triggerbot) Run(ctx context.Context) error {
	t.log.Infoln("Starting, target", t.target.String())

	for {
		if t.active {
			t.deps.Clock.Sleep(t.cfg.TickIntervalActive.D())
		} else {
			t.deps.Clock.Sleep(t.cfg.TickIntervalInactive.D())
		}

		if ctx.Err() != nil {
			t.log.Infoln("Stopping:", ctx.Err())
			return nil
		}
		if t.deps.Keys.IsKeyDown(t.keys.Exit) {
			t.log.Infoln("Exiting")
			return nil
		}

		if err := t.tick(); err != nil {
			t.log.Warn("Reaction failed, exiting: ", err)
			return err
		}
	}
}
