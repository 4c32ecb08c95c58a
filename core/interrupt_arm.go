//go:build tinygo && !avr

package core

// enableInterrupts is a no-op: the runtime enables interrupts before main
// on these targets.
func enableInterrupts() {}
