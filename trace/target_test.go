package trace

import (
	"context"
	"errors"
	"testing"
	"time"

	"tracetrigger/config"
	"tracetrigger/disasm"
	"tracetrigger/process"
)

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		value uint32
		want  bool
	}{
		{0x80000000, true},
		{0x8000ABCD, true},
		{0xBFFFFFFF, true},
		{0xC0000000, false},
		{0xFFFFFFFF, false},
		{0x40000000, false},
		{0x7FFFFFFF, false},
		{0, false},
	}

	for _, tt := range tests {
		if got := IsCandidate(tt.value); got != tt.want {
			t.Errorf("IsCandidate(0x%08X) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestFixedInstruction(t *testing.T) {
	cfg := config.DefaultConfig().Trace

	got := FixedInstruction(0x140000000, cfg)
	if got.Address != 0x140000000+0x00B8C6F3 {
		t.Fatalf("expected 0x%x - got 0x%x", 0x140000000+0x00B8C6F3, got.Address)
	}
	if got.Register != disasm.RegisterRDI || got.Displacement != 0x1FC {
		t.Fatalf("unexpected fixed instruction %v", got)
	}
}

func TestGetTargetContext(t *testing.T) {
	base := process.ProcessMemoryAddress(0x140000000)

	t.Run("resolved", func(t *testing.T) {
		f := newFakeTarget(base, fillSection(0x200, 100))
		ctx, err := newTestResolver(f).GetTargetContext(f.pid, config.DefaultConfig().Trace)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ctx.PID != f.pid || ctx.ImageBase != base {
			t.Fatalf("unexpected context %v", ctx)
		}
		if ctx.Instruction.Address != base+0x1000+100 {
			t.Fatalf("expected 0x%x - got 0x%x", base+0x1000+100, ctx.Instruction.Address)
		}
	})

	t.Run("fixed", func(t *testing.T) {
		f := newFakeTarget(base, fillSection(0x200))
		cfg := config.DefaultConfig().Trace
		cfg.UseFixedInstruction = true

		ctx, err := newTestResolver(f).GetTargetContext(f.pid, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ctx.Instruction != FixedInstruction(base, cfg) {
			t.Fatalf("unexpected instruction %v", ctx.Instruction)
		}
		if f.reads != 0 {
			t.Fatalf("expected no memory reads - got %d", f.reads)
		}
	})

	t.Run("unknown process", func(t *testing.T) {
		f := newFakeTarget(base, fillSection(0x200, 100))
		_, err := newTestResolver(f).GetTargetContext(f.pid+1, config.DefaultConfig().Trace)
		if !errors.Is(err, process.ErrProcessNotFound) {
			t.Fatalf("expected ErrProcessNotFound - got %v", err)
		}
	})
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Process.QueryInterval = config.Duration(time.Millisecond)
	return cfg
}

func TestWaitForTarget(t *testing.T) {
	t.Run("found after polling", func(t *testing.T) {
		f := newFakeTarget(0x140000000, fillSection(0x200, 100))
		finder := &fakeFinder{pid: f.pid, misses: 3}
		keys := &fakeKeys{down: map[process.VirtualKey]bool{process.VK_RETURN: true}}

		target, err := newTestResolver(f).WaitForTarget(context.Background(), finder, keys, testConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if finder.lookups != 4 {
			t.Fatalf("expected 4 lookups - got %d", finder.lookups)
		}
		if target.PID != f.pid {
			t.Fatalf("expected pid %d - got %d", f.pid, target.PID)
		}
	})

	t.Run("exit key while searching", func(t *testing.T) {
		f := newFakeTarget(0x140000000, fillSection(0x200, 100))
		finder := &fakeFinder{pid: f.pid, misses: 1 << 30}
		keys := &fakeKeys{down: map[process.VirtualKey]bool{process.VK_F11: true}}

		_, err := newTestResolver(f).WaitForTarget(context.Background(), finder, keys, testConfig())
		if !errors.Is(err, ErrAborted) {
			t.Fatalf("expected ErrAborted - got %v", err)
		}
	})

	t.Run("exit key while waiting for context key", func(t *testing.T) {
		f := newFakeTarget(0x140000000, fillSection(0x200, 100))
		finder := &fakeFinder{pid: f.pid}
		keys := &fakeKeys{down: map[process.VirtualKey]bool{process.VK_F11: true}}

		_, err := newTestResolver(f).WaitForTarget(context.Background(), finder, keys, testConfig())
		if !errors.Is(err, ErrAborted) {
			t.Fatalf("expected ErrAborted - got %v", err)
		}
		if f.reads != 0 {
			t.Fatalf("expected no memory reads - got %d", f.reads)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		f := newFakeTarget(0x140000000, fillSection(0x200, 100))
		finder := &fakeFinder{pid: f.pid, misses: 1 << 30}
		keys := &fakeKeys{}

		cfg := testConfig()
		cfg.Process.QueryInterval = config.Duration(time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestResolver(f).WaitForTarget(ctx, finder, keys, cfg)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled - got %v", err)
		}
	})
}
