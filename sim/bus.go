// Package sim models the TWI master peripheral, the devices on its bus and
// the millisecond timer, so the core drivers can run and be tested on a
// regular Go host.
package sim

import (
	"simon/core"
)

// Device is a slave attached to a simulated bus.
type Device interface {
	// Address returns the 7-bit address the device answers to.
	Address() core.I2CAddress

	// Start is called for an address phase addressed to the device and
	// returns whether it acknowledges.
	Start(read bool) bool

	// Write receives one data byte and returns whether it acknowledges.
	Write(b byte) bool

	// Read supplies the next byte of a master read.
	Read() byte

	// Ack tells the device whether the master acknowledged the byte it
	// just read (false means NACK, end of read).
	Ack(ack bool)

	// Stop ends the transaction.
	Stop()
}

// EventKind identifies a bus event in the trace
type EventKind uint8

const (
	EvStart EventKind = iota + 1
	EvWrite
	EvRead
	EvAck
	EvNak
	EvStop
	EvArbLost
)

// Event is one observed bus action.
type Event struct {
	Kind  EventKind
	Addr  core.I2CAddress
	Read  bool // direction of a Start
	Data  byte
	Acked bool // slave response for Start and Write
}

// maxInterruptStorm bounds back-to-back write-ready interrupts
const maxInterruptStorm = 1 << 20

// Bus is a simulated TWI master peripheral implementing core.TWIRegisters.
// Transfers complete instantly: an address or data write raises WIF or RIF
// before the register write returns. It is not safe for concurrent use.
type Bus struct {
	devices map[core.I2CAddress]Device

	ctrlA  uint8
	status uint8
	baud   uint8
	data   uint8
	ackAct bool

	active     Device
	reading    bool
	pendingAck bool
	lastAddr   uint8

	arbLostNext bool
	stalled     bool

	onWriteReady func()
	inHandler    bool

	trace []Event
}

// NewBus creates an idle bus with no devices.
func NewBus() *Bus {
	return &Bus{
		devices: make(map[core.I2CAddress]Device),
	}
}

// Attach connects a device to the bus.
func (b *Bus) Attach(d Device) {
	b.devices[d.Address()] = d
}

// OnWriteReady registers the write-ready interrupt handler. It runs while
// MCTRLA.WIEN and MSTATUS.WIF are both set.
func (b *Bus) OnWriteReady(handler func()) {
	b.onWriteReady = handler
}

// LoseArbitrationNext makes the next address phase report arbitration loss.
func (b *Bus) LoseArbitrationNext() {
	b.arbLostNext = true
}

// Stall freezes the bus: no further completion flags are raised.
func (b *Bus) Stall(stalled bool) {
	b.stalled = stalled
}

// Baud returns the last MBAUD value written.
func (b *Bus) Baud() uint8 {
	return b.baud
}

// Trace returns the recorded events.
func (b *Bus) Trace() []Event {
	return b.trace
}

// ResetTrace clears the recorded events.
func (b *Bus) ResetTrace() {
	b.trace = nil
}

// Idle reports whether no transaction is open.
func (b *Bus) Idle() bool {
	return b.status&core.TWIStatusBusState == core.TWIBusStateIdle
}

func (b *Bus) record(e Event) {
	b.trace = append(b.trace, e)
}

func (b *Bus) setBusState(state uint8) {
	b.status = b.status&^core.TWIStatusBusState | state
}

func (b *Bus) clearFlags() {
	b.status &^= core.TWIStatusRIF | core.TWIStatusWIF | core.TWIStatusRXACK |
		core.TWIStatusARBLOST | core.TWIStatusBUSERR
}

// MCTRLA implements core.TWIRegisters.
func (b *Bus) MCTRLA() uint8 {
	return b.ctrlA
}

// SetMCTRLA implements core.TWIRegisters.
func (b *Bus) SetMCTRLA(v uint8) {
	b.ctrlA = v
	b.interrupt()
}

// SetMCTRLB implements core.TWIRegisters.
func (b *Bus) SetMCTRLB(v uint8) {
	b.ackAct = v&core.TWICtrlBAckAct != 0
	b.resolveAck()

	switch v & core.TWICtrlBMCMD {
	case core.TWICmdRecvTrans:
		if b.active != nil && b.reading && !b.ackAct && !b.stalled {
			b.receive()
		}
	case core.TWICmdRepStart:
		b.SetMADDR(b.lastAddr)
	case core.TWICmdStop:
		if b.active != nil {
			b.active.Stop()
		}
		b.active = nil
		b.reading = false
		b.clearFlags()
		b.setBusState(core.TWIBusStateIdle)
		b.record(Event{Kind: EvStop})
	}
}

// resolveAck delivers the pending ACK/NACK decision for the last byte read
func (b *Bus) resolveAck() {
	if !b.pendingAck || b.active == nil {
		return
	}
	b.pendingAck = false
	b.active.Ack(!b.ackAct)
	if b.ackAct {
		b.record(Event{Kind: EvNak})
	} else {
		b.record(Event{Kind: EvAck})
	}
}

// receive clocks the next byte in from the addressed device
func (b *Bus) receive() {
	b.status &^= core.TWIStatusRIF
	b.data = b.active.Read()
	b.pendingAck = true
	b.status |= core.TWIStatusRIF
	b.record(Event{Kind: EvRead, Data: b.data})
}

// MSTATUS implements core.TWIRegisters.
func (b *Bus) MSTATUS() uint8 {
	return b.status
}

// SetMSTATUS implements core.TWIRegisters. Flag bits are write-one-to-clear;
// a non-zero bus state field forces the bus state.
func (b *Bus) SetMSTATUS(v uint8) {
	b.status &^= v & (core.TWIStatusRIF | core.TWIStatusWIF |
		core.TWIStatusARBLOST | core.TWIStatusBUSERR)
	if state := v & core.TWIStatusBusState; state != 0 {
		b.setBusState(state)
	}
}

// SetMBAUD implements core.TWIRegisters.
func (b *Bus) SetMBAUD(v uint8) {
	b.baud = v
}

// SetMADDR implements core.TWIRegisters: it runs an address phase, or a
// repeated start if a transaction is open.
func (b *Bus) SetMADDR(v uint8) {
	b.resolveAck()
	b.clearFlags()
	b.lastAddr = v
	if b.stalled {
		return
	}

	addr := core.I2CAddress(v >> 1)
	read := v&0x01 != 0
	b.active = nil
	b.reading = false
	b.setBusState(core.TWIBusStateOwner)

	if b.arbLostNext {
		b.arbLostNext = false
		b.status |= core.TWIStatusWIF | core.TWIStatusARBLOST
		b.setBusState(core.TWIBusStateBusy)
		b.record(Event{Kind: EvArbLost, Addr: addr, Read: read})
		b.interrupt()
		return
	}

	dev := b.devices[addr]
	acked := dev != nil && dev.Start(read)
	b.record(Event{Kind: EvStart, Addr: addr, Read: read, Acked: acked})

	switch {
	case !acked:
		b.status |= core.TWIStatusWIF | core.TWIStatusRXACK
	case read:
		b.active = dev
		b.reading = true
		b.receive()
	default:
		b.active = dev
		b.status |= core.TWIStatusWIF
	}
	b.interrupt()
}

// MDATA implements core.TWIRegisters. Reading clears RIF.
func (b *Bus) MDATA() uint8 {
	b.status &^= core.TWIStatusRIF
	return b.data
}

// SetMDATA implements core.TWIRegisters: it transmits one byte.
func (b *Bus) SetMDATA(v uint8) {
	b.status &^= core.TWIStatusWIF | core.TWIStatusRXACK
	b.data = v
	if b.stalled {
		return
	}

	acked := b.active != nil && !b.reading && b.active.Write(v)
	b.record(Event{Kind: EvWrite, Data: v, Acked: acked})
	b.status |= core.TWIStatusWIF
	if !acked {
		b.status |= core.TWIStatusRXACK
	}
	b.interrupt()
}

// interrupt runs the write-ready handler until it is no longer pending.
// Writes made by the handler do not nest; the loop picks them up.
func (b *Bus) interrupt() {
	if b.inHandler || b.onWriteReady == nil {
		return
	}
	b.inHandler = true
	defer func() { b.inHandler = false }()

	for n := 0; b.ctrlA&core.TWICtrlAWIEN != 0 && b.status&core.TWIStatusWIF != 0; n++ {
		if n >= maxInterruptStorm {
			panic("sim: write-ready interrupt never cleared")
		}
		b.onWriteReady()
	}
}
