//go:build attiny1616

package main

import (
	"runtime/volatile"
	"unsafe"

	"simon/core"
)

// tinyAVR 1-series peripheral memory map
const (
	cpuCCP          = 0x0034
	clkctrlBase     = 0x0060
	clkctrlMCLKB    = clkctrlBase + 0x01
	ccpIOREG        = 0xD8
	twi0Base        = 0x0810
	twi0MCTRLA      = twi0Base + 0x03
	twi0MCTRLB      = twi0Base + 0x04
	twi0MSTATUS     = twi0Base + 0x05
	twi0MBAUD       = twi0Base + 0x06
	twi0MADDR       = twi0Base + 0x07
	twi0MDATA       = twi0Base + 0x08
	tcb0Base        = 0x0A40
	tcb0CTRLA       = tcb0Base + 0x00
	tcb0CTRLB       = tcb0Base + 0x01
	tcb0INTCTRL     = tcb0Base + 0x05
	tcb0INTFLAGS    = tcb0Base + 0x06
	tcb0CNTL        = tcb0Base + 0x0A
	tcb0CNTH        = tcb0Base + 0x0B
	tcb0CCMPL       = tcb0Base + 0x0C
	tcb0CCMPH       = tcb0Base + 0x0D
	tcbCaptBit      = 0x01
	tcbClkDiv2      = 0x02
	tcbEnable       = 0x01
	tcbModeInterval = 0x00
)

func reg8(addr uintptr) *volatile.Register8 {
	return (*volatile.Register8)(unsafe.Pointer(addr))
}

// disablePrescaler runs the CPU at the full 20 MHz oscillator speed.
// The write must land within four cycles of unlocking CCP.
func disablePrescaler() {
	reg8(cpuCCP).Set(ccpIOREG)
	reg8(clkctrlMCLKB).Set(0)
}

// twi0 binds core.TWIRegisters to the TWI0 master registers
type twi0 struct{}

var _ core.TWIRegisters = twi0{}

func (twi0) MCTRLA() uint8      { return reg8(twi0MCTRLA).Get() }
func (twi0) SetMCTRLA(v uint8)  { reg8(twi0MCTRLA).Set(v) }
func (twi0) SetMCTRLB(v uint8)  { reg8(twi0MCTRLB).Set(v) }
func (twi0) MSTATUS() uint8     { return reg8(twi0MSTATUS).Get() }
func (twi0) SetMSTATUS(v uint8) { reg8(twi0MSTATUS).Set(v) }
func (twi0) SetMBAUD(v uint8)   { reg8(twi0MBAUD).Set(v) }
func (twi0) SetMADDR(v uint8)   { reg8(twi0MADDR).Set(v) }
func (twi0) MDATA() uint8       { return reg8(twi0MDATA).Get() }
func (twi0) SetMDATA(v uint8)   { reg8(twi0MDATA).Set(v) }

// tcb0 drives the Timebase from TCB0 in periodic interrupt mode
type tcb0 struct{}

var _ core.MillisTimer = tcb0{}

// Configure implements core.MillisTimer. 16-bit registers go through the
// TEMP latch: low byte first.
func (tcb0) Configure(compare uint16) {
	reg8(tcb0CTRLA).Set(0)
	reg8(tcb0CTRLB).Set(tcbModeInterval)
	reg8(tcb0CCMPL).Set(uint8(compare))
	reg8(tcb0CCMPH).Set(uint8(compare >> 8))
	reg8(tcb0CNTL).Set(0)
	reg8(tcb0CNTH).Set(0)
	reg8(tcb0INTFLAGS).Set(tcbCaptBit)
	reg8(tcb0INTCTRL).Set(tcbCaptBit)
	reg8(tcb0CTRLA).Set(tcbClkDiv2 | tcbEnable)
}

// Acknowledge implements core.MillisTimer.
func (tcb0) Acknowledge() {
	reg8(tcb0INTFLAGS).Set(tcbCaptBit)
}
