package triggerbot

import (
	"errors"
	"time"

	"tracetrigger/config"
	"tracetrigger/disasm"
	"tracetrigger/process"
	"tracetrigger/trace"
)

var errFake = errors.New("fake failure")

// fakeClock advances by step on every Now so spin waits terminate, and by the
// full duration on Sleep. Each Sleep starts a new tick.
type fakeClock struct {
	now     time.Time
	step    time.Duration
	sleeps  []time.Duration
	onSleep func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0), step: 100 * time.Microsecond}
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	if c.onSleep != nil {
		c.onSleep()
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) tick() int {
	return len(c.sleeps)
}

type fakeRand struct {
	// max makes Uint32N return n-1 instead of 0
	max   bool
	calls []uint32
}

func (r *fakeRand) Uint32N(n uint32) uint32 {
	r.calls = append(r.calls, n)
	if r.max {
		return n - 1
	}
	return 0
}

// scriptedKeys presses the keys listed for the current tick (1-based) and the
// exit key once the script runs out.
type scriptedKeys struct {
	clock  *fakeClock
	script []map[process.VirtualKey]bool
	exit   process.VirtualKey
}

func (k *scriptedKeys) IsKeyDown(key process.VirtualKey) bool {
	i := k.clock.tick() - 1
	if i < 0 {
		return false
	}
	if i >= len(k.script) {
		return key == k.exit
	}
	return k.script[i][key]
}

type fakeCapturer struct {
	values []uint64
	err    error
	calls  int
	last   struct {
		pid      process.ProcessID
		addr     process.ProcessMemoryAddress
		reg      disasm.Register
		duration time.Duration
	}
}

func (c *fakeCapturer) CaptureRegister(pid process.ProcessID, addr process.ProcessMemoryAddress, reg disasm.Register, duration time.Duration) ([]uint64, error) {
	c.calls++
	c.last.pid, c.last.addr, c.last.reg, c.last.duration = pid, addr, reg, duration
	if c.err != nil {
		return nil, c.err
	}
	return c.values, nil
}

type injection struct {
	action process.ButtonAction
	at     time.Time
}

type fakeInjector struct {
	clock   *fakeClock
	pid     process.ProcessID
	failOn  map[process.ButtonAction]bool
	actions []injection
}

func (i *fakeInjector) InjectButton(pid process.ProcessID, action process.ButtonAction) error {
	if pid != i.pid {
		return errFake
	}
	if i.failOn[action] {
		return errFake
	}
	i.actions = append(i.actions, injection{action: action, at: i.clock.now})
	return nil
}

// fakeMemory returns the queued trace state values in order, then zero.
type fakeMemory struct {
	addr   process.ProcessMemoryAddress
	values []uint32
	fail   bool
	reads  int
}

func (m *fakeMemory) ReadMemory(pid process.ProcessID, addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	m.reads++
	if m.fail || addr != m.addr || size != 4 {
		return nil, errFake
	}
	var v uint32
	if len(m.values) > 0 {
		v, m.values = m.values[0], m.values[1:]
	}
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}, nil
}

const (
	testPID          = process.ProcessID(4242)
	testCapturedBase = 0x1F0000000
)

var testTarget = trace.TargetContext{
	PID:       testPID,
	ImageBase: 0x140000000,
	Instruction: trace.ResolvedInstruction{
		Address:      0x140B8C6F3,
		Register:     disasm.RegisterRDI,
		Displacement: 0x1FC,
	},
}

type harness struct {
	bot      *Triggerbot
	clock    *fakeClock
	rand     *fakeRand
	keys     *scriptedKeys
	capturer *fakeCapturer
	injector *fakeInjector
	memory   *fakeMemory
}

func newHarness(cfg config.Triggerbot) *harness {
	keyCfg := config.DefaultConfig().Keys

	h := &harness{
		clock:    newFakeClock(),
		rand:     &fakeRand{},
		capturer: &fakeCapturer{values: []uint64{testCapturedBase}},
		memory:   &fakeMemory{addr: testCapturedBase + 0x1FC},
	}
	h.keys = &scriptedKeys{clock: h.clock, exit: keyCfg.Exit}
	h.injector = &fakeInjector{clock: h.clock, pid: testPID}

	h.bot = New(testTarget, Dependencies{
		Memory:   h.memory,
		Capturer: h.capturer,
		Injector: h.injector,
		Keys:     h.keys,
		Clock:    h.clock,
		Rand:     h.rand,
	}, cfg, keyCfg)
	return h
}

func defaultTriggerbotConfig() config.Triggerbot {
	return config.DefaultConfig().Triggerbot
}

func press(keys ...process.VirtualKey) map[process.VirtualKey]bool {
	m := make(map[process.VirtualKey]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}
