//go:build tinygo && avr

package core

import "device"

// enableInterrupts sets the global interrupt flag. This affects every
// interrupt source on the chip, not only the ones this package owns.
func enableInterrupts() {
	device.Asm("sei")
}
