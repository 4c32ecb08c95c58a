package sim

import "simon/core"

// Probe is a device that acknowledges its address and every byte and reads
// back as 0xFF.
type Probe struct {
	addr core.I2CAddress
}

// NewProbe creates a Probe at addr.
func NewProbe(addr core.I2CAddress) *Probe {
	return &Probe{addr: addr}
}

func (p *Probe) Address() core.I2CAddress { return p.addr }
func (p *Probe) Start(read bool) bool     { return true }
func (p *Probe) Write(b byte) bool        { return true }
func (p *Probe) Read() byte               { return 0xFF }
func (p *Probe) Ack(ack bool)             {}
func (p *Probe) Stop()                    {}

// RegisterDevice is a register-addressed slave such as an EEPROM or
// sensor: the first byte of a write selects the register, further bytes are
// stored with auto-increment, and reads return bytes from the current
// register onwards.
type RegisterDevice struct {
	addr    core.I2CAddress
	Mem     [256]byte
	pointer uint8

	// NakAfter makes the device NACK every byte of a write from this
	// index on (the register byte is index 0). Negative disables.
	NakAfter int

	written   int
	Received  []byte // every byte acknowledged in writes
	AckLog    []bool // master ACK (true) / NACK (false) per byte read
	Starts    int
	Stops     int
	inWrite   bool
	haveIndex bool
}

// NewRegisterDevice creates a RegisterDevice at addr that acknowledges all
// bytes.
func NewRegisterDevice(addr core.I2CAddress) *RegisterDevice {
	return &RegisterDevice{addr: addr, NakAfter: -1}
}

// Address implements Device.
func (d *RegisterDevice) Address() core.I2CAddress {
	return d.addr
}

// Start implements Device.
func (d *RegisterDevice) Start(read bool) bool {
	d.Starts++
	d.inWrite = !read
	d.haveIndex = false
	d.written = 0
	return true
}

// Write implements Device.
func (d *RegisterDevice) Write(b byte) bool {
	if d.NakAfter >= 0 && d.written >= d.NakAfter {
		d.written++
		return false
	}
	d.written++
	d.Received = append(d.Received, b)
	if !d.haveIndex {
		d.pointer = b
		d.haveIndex = true
		return true
	}
	d.Mem[d.pointer] = b
	d.pointer++
	return true
}

// Read implements Device.
func (d *RegisterDevice) Read() byte {
	b := d.Mem[d.pointer]
	d.pointer++
	return b
}

// Ack implements Device.
func (d *RegisterDevice) Ack(ack bool) {
	d.AckLog = append(d.AckLog, ack)
}

// Stop implements Device.
func (d *RegisterDevice) Stop() {
	d.Stops++
}
