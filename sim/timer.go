package sim

import (
	"context"
	"sync"
	"time"
)

// Timer is a simulated periodic capture timer implementing core.MillisTimer.
// Fire raises the capture interrupt and runs the attached handler, which
// must acknowledge it.
type Timer struct {
	mu         sync.Mutex
	compare    uint16
	configured int
	pending    bool
	missed     int
	isr        func()
}

// NewTimer creates an unconfigured timer.
func NewTimer() *Timer {
	return &Timer{}
}

// Attach sets the capture interrupt handler.
func (t *Timer) Attach(isr func()) {
	t.mu.Lock()
	t.isr = isr
	t.mu.Unlock()
}

// Configure implements core.MillisTimer.
func (t *Timer) Configure(compare uint16) {
	t.mu.Lock()
	t.compare = compare
	t.configured++
	t.pending = false
	t.mu.Unlock()
}

// Acknowledge implements core.MillisTimer.
func (t *Timer) Acknowledge() {
	t.mu.Lock()
	t.pending = false
	t.mu.Unlock()
}

// Compare returns the last programmed compare value.
func (t *Timer) Compare() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.compare
}

// Configured returns how many times the timer was configured.
func (t *Timer) Configured() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.configured
}

// Missed returns how many interrupts the handler left unacknowledged.
// Real hardware stops firing after the first one.
func (t *Timer) Missed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.missed
}

// Fire raises the capture interrupt n times.
func (t *Timer) Fire(n int) {
	for i := 0; i < n; i++ {
		t.mu.Lock()
		isr := t.isr
		if isr == nil || t.configured == 0 {
			t.mu.Unlock()
			return
		}
		t.pending = true
		t.mu.Unlock()

		isr()

		t.mu.Lock()
		if t.pending {
			t.missed++
		}
		t.mu.Unlock()
	}
}

// Run fires the interrupt once per period until ctx is done.
func (t *Timer) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Fire(1)
		}
	}
}
