package trace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tracetrigger/config"
	"tracetrigger/process"
)

// KeyPollInterval is how often the "get context" key is sampled while waiting.
const KeyPollInterval = 50 * time.Millisecond

// ErrAborted is returned by WaitForTarget when the exit key is pressed.
var ErrAborted = errors.New("aborted by exit key")

// TargetContext is everything the triggerbot needs to know about one target process.
type TargetContext struct {
	PID         process.ProcessID
	ImageBase   process.ProcessMemoryAddress
	Instruction ResolvedInstruction
}

func (c TargetContext) String() string {
	return fmt.Sprintf("pid=%d image_base=%s trace=%s", c.PID, c.ImageBase.ToString(), c.Instruction)
}

// FixedInstruction builds the trace instruction from configured values instead
// of resolving it. Used when a client update breaks the signature.
func FixedInstruction(imageBase process.ProcessMemoryAddress, cfg config.Trace) ResolvedInstruction {
	return ResolvedInstruction{
		Address:      imageBase + process.ProcessMemoryAddress(cfg.FixedRelativeAddress),
		Register:     cfg.FixedRegister,
		Displacement: cfg.FixedDisplacement,
	}
}

// IsCandidate reports whether a trace state value indicates a reaction: bit 31
// set and bit 30 clear.
func IsCandidate(value uint32) bool {
	return value&0x80000000 != 0 && value&0x40000000 == 0
}

// GetTargetContext resolves the image base and trace instruction of pid.
func (r *Resolver) GetTargetContext(pid process.ProcessID, cfg config.Trace) (TargetContext, error) {
	if r.log == nil {
		r.log = newLogger()
	}

	imageBase, err := r.Images.ImageBase(pid)
	if err != nil {
		return TargetContext{}, fmt.Errorf("failed to get image base of process %d: %w", pid, err)
	}

	var instruction ResolvedInstruction
	if cfg.UseFixedInstruction {
		instruction = FixedInstruction(imageBase, cfg)
		r.log.Infoln("Using fixed trace instruction", instruction.String())
	} else {
		instruction, err = r.Resolve(pid, imageBase)
		if err != nil {
			return TargetContext{}, err
		}
	}

	return TargetContext{PID: pid, ImageBase: imageBase, Instruction: instruction}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitForTarget polls for a single process named cfg.Process.Name, waits for
// the get-context key and then builds its TargetContext. The exit key aborts
// either wait with ErrAborted.
func (r *Resolver) WaitForTarget(ctx context.Context, finder process.ProcessFinder, keys process.KeyPoller, cfg *config.Config) (TargetContext, error) {
	if r.log == nil {
		r.log = newLogger()
	}

	r.log.Infoln("Waiting for", cfg.Process.Name, "(press", cfg.Keys.Exit.String(), "to exit)")

	var pid process.ProcessID
	for {
		var err error
		pid, err = finder.LookupProcessIDByName(cfg.Process.Name)
		if err == nil {
			break
		}
		if !errors.Is(err, process.ErrProcessNotFound) {
			r.log.Debugln("Process lookup failed:", err)
		}

		if keys.IsKeyDown(cfg.Keys.Exit) {
			return TargetContext{}, ErrAborted
		}
		if err := sleepContext(ctx, cfg.Process.QueryInterval.D()); err != nil {
			return TargetContext{}, err
		}
	}

	r.log.Infoln("Found", cfg.Process.Name, "pid", pid, "- press", cfg.Keys.GetContext.String(), "when the target is ready")

	for !keys.IsKeyDown(cfg.Keys.GetContext) {
		if keys.IsKeyDown(cfg.Keys.Exit) {
			return TargetContext{}, ErrAborted
		}
		if err := sleepContext(ctx, KeyPollInterval); err != nil {
			return TargetContext{}, err
		}
	}

	return r.GetTargetContext(pid, cfg.Trace)
}
