// I2C (two-wire) bus master driver
// Implements the master protocol primitives on a tinyAVR-style TWI peripheral
package core

import "errors"

var (
	ErrNoAck           = errors.New("i2c: no acknowledge")
	ErrArbitrationLost = errors.New("i2c: arbitration lost or bus error")
	ErrBusTimeout      = errors.New("i2c: bus timeout")
	ErrPumpBusy        = errors.New("i2c: async write in progress")
	ErrBaudRange       = errors.New("i2c: bus frequency out of range")
	ErrReadLength      = errors.New("i2c: read longer than 255 bytes")
)

// TWIConfig holds the bus clock parameters
type TWIConfig struct {
	CPUFrequency uint32 // Peripheral clock in Hz
	Frequency    uint32 // Target SCL frequency in Hz
	RiseTimeNs   uint32 // Bus rise time compensation in nanoseconds

	// PollLimit bounds every busy-wait to this many status polls.
	// Zero waits forever, which is the reference behaviour.
	PollLimit uint32
}

// TWIMaster drives a TWI peripheral as bus master.
//
// Every operation blocks by polling MSTATUS until the condition it needs is
// raised. A slave that never completes a transfer hangs the caller unless
// PollLimit is set. TWIMaster is not reentrant: one caller at a time, and
// never mixed with an in-flight WriteAsync.
type TWIMaster struct {
	regs      TWIRegisters
	pollLimit uint32
	readCount uint8 // bytes left in the current read
	lastErr   error
	pump      pumpCursor
}

// NewTWIMaster constructs a master over the given registers
func NewTWIMaster(regs TWIRegisters) *TWIMaster {
	m := &TWIMaster{regs: regs}
	m.pump.acked.Store(true)
	return m
}

// BaudValue computes the MBAUD value for cfg:
// f_SCL = f_CPU / (10 + 2*BAUD + f_CPU*t_rise)
func BaudValue(cfg TWIConfig) (uint8, error) {
	if cfg.Frequency == 0 || cfg.CPUFrequency == 0 {
		return 0, ErrBaudRange
	}
	period := uint64(cfg.CPUFrequency) / uint64(cfg.Frequency)
	rise := uint64(cfg.CPUFrequency) * uint64(cfg.RiseTimeNs) / 1000000000
	if period < 10+rise {
		return 0, ErrBaudRange
	}
	baud := (period - rise - 10) / 2
	if baud > 0xFF {
		return 0xFF, ErrBaudRange
	}
	return uint8(baud), nil
}

// Init programs the bus clock, enables master mode and forces the bus state
// to idle. An out-of-range frequency is clamped and reported.
func (m *TWIMaster) Init(cfg TWIConfig) error {
	baud, err := BaudValue(cfg)
	m.pollLimit = cfg.PollLimit
	m.readCount = 0
	m.lastErr = nil

	m.regs.SetMBAUD(baud)
	m.regs.SetMCTRLA(TWICtrlAEnable | TWICtrlATimeoutDisable)
	m.regs.SetMSTATUS(TWIBusStateIdle)
	return err
}

// LastError returns why the most recent operation reported failure, or nil.
func (m *TWIMaster) LastError() error {
	return m.lastErr
}

// waitStatus polls MSTATUS until any bit in mask is set
func (m *TWIMaster) waitStatus(mask uint8) (uint8, bool) {
	for n := uint32(0); ; n++ {
		status := m.regs.MSTATUS()
		if status&mask != 0 {
			return status, true
		}
		if m.pollLimit != 0 && n >= m.pollLimit {
			m.lastErr = ErrBusTimeout
			recordBusEvent(EvtTimeout, 0, mask)
			return status, false
		}
	}
}

// busy reports and records an attempt to poll while the pump owns the bus
func (m *TWIMaster) busy() bool {
	if m.pump.active.Load() {
		m.lastErr = ErrPumpBusy
		return true
	}
	return false
}

// Start issues an address phase. A readCount of zero starts a write;
// otherwise a read of readCount bytes is started. It blocks until the
// controller reports write or read completion, and returns true only if the
// slave acknowledged and no arbitration loss or bus error occurred.
func (m *TWIMaster) Start(addr I2CAddress, readCount uint8) bool {
	if m.busy() {
		return false
	}

	dir := DirWrite
	m.readCount = 0
	if readCount != 0 {
		m.readCount = readCount
		dir = DirRead
	}
	m.regs.SetMADDR(addr.AddressByte(dir))

	status, ok := m.waitStatus(TWIStatusWIF | TWIStatusRIF)
	if !ok {
		return false
	}
	if status&(TWIStatusARBLOST|TWIStatusBUSERR) != 0 {
		m.lastErr = ErrArbitrationLost
		recordBusEvent(EvtArbLost, uint8(addr), status)
		return false
	}
	if status&TWIStatusRXACK != 0 {
		m.lastErr = ErrNoAck
		return false
	}
	m.lastErr = nil
	return true
}

// Restart re-issues the address phase without a stop in between. The
// controller turns an address write during an open transaction into a
// repeated start, so this is the same operation as Start.
func (m *TWIMaster) Restart(addr I2CAddress, readCount uint8) bool {
	return m.Start(addr, readCount)
}

// Write blocks until the controller is ready, transmits b and waits for the
// transfer to finish. It returns true if the slave acknowledged.
func (m *TWIMaster) Write(b byte) bool {
	if m.busy() {
		return false
	}
	if _, ok := m.waitStatus(TWIStatusWIF); !ok {
		return false
	}
	m.regs.SetMDATA(b)

	status, ok := m.waitStatus(TWIStatusWIF)
	if !ok {
		return false
	}
	if status&TWIStatusRXACK != 0 {
		m.lastErr = ErrNoAck
		recordBusEvent(EvtNak, b, status)
		return false
	}
	return true
}

// WriteBytes writes data in order and stops at the first byte the slave
// does not acknowledge. A false result means the stream was truncated.
func (m *TWIMaster) WriteBytes(data []byte) bool {
	for _, b := range data {
		if !m.Write(b) {
			return false
		}
	}
	return true
}

// Read blocks until a byte has been received and returns it. The pending
// read count is consumed first; while bytes remain the controller is told to
// ACK and clock the next byte, on the last byte it is set to NACK so the
// following Stop or Restart ends the read.
func (m *TWIMaster) Read() byte {
	if m.busy() {
		return 0
	}
	if m.readCount != 0 {
		m.readCount--
	}
	if _, ok := m.waitStatus(TWIStatusRIF); !ok {
		return 0
	}
	data := m.regs.MDATA()
	if m.readCount != 0 {
		m.regs.SetMCTRLB(TWICmdRecvTrans)
	} else {
		m.regs.SetMCTRLB(TWICtrlBAckAct | TWICmdNoAct)
	}
	return data
}

// ReadLast reads one byte and NACKs it regardless of the pending count.
func (m *TWIMaster) ReadLast() byte {
	m.readCount = 0
	return m.Read()
}

// Stop sends NACK (if a read is pending) and a stop condition, returning
// the bus to idle. Stop is ignored while an async write is running; call
// WaitAsync first.
func (m *TWIMaster) Stop() {
	if m.busy() {
		return
	}
	m.readCount = 0
	m.regs.SetMCTRLB(TWICtrlBAckAct | TWICmdStop)
}

// Scan probes every 7-bit address with a zero-length write and returns the
// first one that acknowledges.
func (m *TWIMaster) Scan() (I2CAddress, bool) {
	for addr := I2CAddress(0); addr <= MaxI2CAddress; addr++ {
		if m.Start(addr, 0) {
			m.Stop()
			DebugPrintln("i2c: device at " + hexByte(uint8(addr)))
			return addr, true
		}
	}
	m.Stop()
	return 0, false
}

// ScanAll probes every 7-bit address and returns all that acknowledge.
func (m *TWIMaster) ScanAll() []I2CAddress {
	var found []I2CAddress
	for addr := I2CAddress(0); addr <= MaxI2CAddress; addr++ {
		if m.Start(addr, 0) {
			found = append(found, addr)
		}
		m.Stop()
	}
	return found
}
