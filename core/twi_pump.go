package core

import "sync/atomic"

// pumpCursor is the pending write handed to the write-ready interrupt.
// Normal context only touches data/next while active is false.
type pumpCursor struct {
	data   []byte
	next   int
	single [1]byte
	active atomic.Bool
	acked  atomic.Bool
}

// WriteAsync starts an interrupt-driven write of data inside an open write
// transaction. The first byte is sent here; HandleInterrupt sends the rest,
// one per write-ready interrupt. data must stay untouched until AsyncBusy
// reports false. No polling operation may run until then.
func (m *TWIMaster) WriteAsync(data []byte) bool {
	if m.busy() {
		return false
	}
	if len(data) == 0 {
		m.pump.acked.Store(true)
		return true
	}
	if _, ok := m.waitStatus(TWIStatusWIF); !ok {
		return false
	}

	p := &m.pump
	p.data = data
	p.next = 1
	p.acked.Store(false)
	p.active.Store(true)

	// Send before enabling WIEN so the handler cannot race us for byte 0.
	m.regs.SetMDATA(data[0])
	m.regs.SetMCTRLA(m.regs.MCTRLA() | TWICtrlAWIEN)
	return true
}

// WriteByteAsync is WriteAsync for a single byte.
func (m *TWIMaster) WriteByteAsync(b byte) bool {
	if m.busy() {
		return false
	}
	m.pump.single[0] = b
	return m.WriteAsync(m.pump.single[:])
}

// AsyncBusy reports whether an async write is still in flight.
func (m *TWIMaster) AsyncBusy() bool {
	return m.pump.active.Load()
}

// WaitAsync blocks until the async write finishes and reports whether every
// byte was acknowledged. With PollLimit set it gives up and cancels the
// write after that many polls.
func (m *TWIMaster) WaitAsync() bool {
	for n := uint32(0); m.pump.active.Load(); n++ {
		if m.pollLimit != 0 && n >= m.pollLimit {
			m.finishPump(false)
			m.lastErr = ErrBusTimeout
			recordBusEvent(EvtTimeout, 0, TWIStatusWIF)
			return false
		}
	}
	if !m.pump.acked.Load() {
		m.lastErr = ErrNoAck
		return false
	}
	return true
}

// HandleInterrupt is the write-ready interrupt body. Target code calls it
// from the TWI master vector.
func (m *TWIMaster) HandleInterrupt() {
	enterInterrupt()
	defer exitInterrupt()

	status := m.regs.MSTATUS()
	if status&TWIStatusWIF == 0 {
		return
	}
	p := &m.pump
	if !p.active.Load() {
		// Nothing queued; keep the flag from re-firing.
		m.regs.SetMCTRLA(m.regs.MCTRLA() &^ TWICtrlAWIEN)
		return
	}
	if status&TWIStatusRXACK != 0 {
		m.finishPump(false)
		return
	}
	if p.next < len(p.data) {
		b := p.data[p.next]
		p.next++
		m.regs.SetMDATA(b)
		return
	}
	m.finishPump(true)
}

// finishPump disables the write-ready interrupt and releases the cursor
func (m *TWIMaster) finishPump(acked bool) {
	m.regs.SetMCTRLA(m.regs.MCTRLA() &^ TWICtrlAWIEN)
	p := &m.pump
	p.data = nil
	p.next = 0
	p.acked.Store(acked)
	p.active.Store(false)
}
