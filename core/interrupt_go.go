//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// interruptMask stands in for the global interrupt enable on regular Go.
// Simulated interrupt handlers run on their own goroutines and take the
// same lock, so a critical section excludes them exactly as masking would.
var interruptMask sync.Mutex

// disableInterrupts masks simulated interrupts and returns the previous state
func disableInterrupts() State {
	interruptMask.Lock()
	return 0
}

// restoreInterrupts unmasks simulated interrupts
func restoreInterrupts(state State) {
	interruptMask.Unlock()
}

// enterInterrupt is called at the top of an interrupt handler body
func enterInterrupt() {
	interruptMask.Lock()
}

// exitInterrupt is called when an interrupt handler body returns
func exitInterrupt() {
	interruptMask.Unlock()
}

// enableInterrupts is a no-op on regular Go (for testing)
func enableInterrupts() {}
