package core

import "sync/atomic"

// MillisClockDivider is the fixed prescaler between the CPU clock and the
// millisecond timer (CLK_PER/2).
const MillisClockDivider = 2

// Timebase is a free-running millisecond counter driven by a periodic timer
// interrupt. Tick is the interrupt body; everything else runs in normal
// context. A Timebase is not safe for use by more than one normal-context
// caller at a time.
type Timebase struct {
	cpuHz  uint32
	timer  MillisTimer
	millis uint32 // only written by Tick and Init
}

// NewTimebase creates a Timebase for a CPU running at cpuHz.
func NewTimebase(cpuHz uint32) *Timebase {
	return &Timebase{cpuHz: cpuHz}
}

// Compare returns the timer compare value giving one capture per millisecond.
func (tb *Timebase) Compare() uint16 {
	return uint16(tb.cpuHz/1000/MillisClockDivider - 1)
}

// Init programs timer to fire every millisecond, zeroes the counter and
// enables interrupts globally.
func (tb *Timebase) Init(timer MillisTimer) {
	tb.timer = timer
	timer.Configure(tb.Compare())

	state := disableInterrupts()
	atomic.StoreUint32(&tb.millis, 0)
	restoreInterrupts(state)

	enableInterrupts()
}

// Restart zeroes the counter by re-running Init with the same timer.
func (tb *Timebase) Restart() {
	if tb.timer == nil {
		return
	}
	tb.Init(tb.timer)
}

// Now returns the milliseconds counted since the last Init or Restart.
func (tb *Timebase) Now() uint32 {
	state := disableInterrupts()
	m := atomic.LoadUint32(&tb.millis)
	restoreInterrupts(state)
	return m
}

// Since returns the milliseconds elapsed since start, modulo 2^32.
func (tb *Timebase) Since(start uint32) uint32 {
	return tb.Now() - start
}

// Expired reports whether timeout milliseconds have passed since start.
func (tb *Timebase) Expired(start, timeout uint32) bool {
	return tb.Since(start) >= timeout
}

// Tick is the timer interrupt body: one millisecond per call. It must run
// once per capture interrupt and acknowledges the interrupt before returning.
func (tb *Timebase) Tick() {
	enterInterrupt()
	atomic.AddUint32(&tb.millis, 1)
	if tb.timer != nil {
		tb.timer.Acknowledge()
	}
	exitInterrupt()
}
