package core

// I2CAddress is a 7-bit I2C device address.
type I2CAddress uint8

// MaxI2CAddress is the highest 7-bit address.
const MaxI2CAddress I2CAddress = 0x7F

// TransferDirection selects the R/W bit appended to the address byte.
type TransferDirection uint8

const (
	DirWrite TransferDirection = 0
	DirRead  TransferDirection = 1
)

// AddressByte returns the byte written to MADDR for an address phase.
func (a I2CAddress) AddressByte(dir TransferDirection) uint8 {
	return uint8(a&MaxI2CAddress)<<1 | uint8(dir)
}

// TWIRegisters is the abstract register interface of a tinyAVR-style TWI
// master peripheral. Target code binds it to the memory-mapped registers;
// host code binds it to a simulated bus.
//
// Writing MADDR starts an address phase, writing MDATA transmits a byte,
// writing MCTRLB with an MCMD value issues a bus command. Implementations
// must not cache reads of MSTATUS or MDATA.
type TWIRegisters interface {
	MCTRLA() uint8
	SetMCTRLA(v uint8)
	SetMCTRLB(v uint8)
	MSTATUS() uint8
	SetMSTATUS(v uint8)
	SetMBAUD(v uint8)
	SetMADDR(v uint8)
	MDATA() uint8
	SetMDATA(v uint8)
}

// MSTATUS bits
const (
	TWIStatusRIF      uint8 = 0x80 // read interrupt flag
	TWIStatusWIF      uint8 = 0x40 // write interrupt flag
	TWIStatusCLKHOLD  uint8 = 0x20
	TWIStatusRXACK    uint8 = 0x10 // set when the slave answered NAK
	TWIStatusARBLOST  uint8 = 0x08
	TWIStatusBUSERR   uint8 = 0x04
	TWIStatusBusState uint8 = 0x03

	TWIBusStateUnknown uint8 = 0x00
	TWIBusStateIdle    uint8 = 0x01
	TWIBusStateOwner   uint8 = 0x02
	TWIBusStateBusy    uint8 = 0x03
)

// MCTRLA bits
const (
	TWICtrlARIEN           uint8 = 0x80
	TWICtrlAWIEN           uint8 = 0x40
	TWICtrlAQCEN           uint8 = 0x10
	TWICtrlATimeoutDisable uint8 = 0x00
	TWICtrlASMEN           uint8 = 0x02
	TWICtrlAEnable         uint8 = 0x01
)

// MCTRLB bits and commands
const (
	TWICtrlBFlush  uint8 = 0x08
	TWICtrlBAckAct uint8 = 0x04 // 0 = send ACK, 1 = send NACK
	TWICtrlBMCMD   uint8 = 0x03

	TWICmdNoAct     uint8 = 0x00
	TWICmdRepStart  uint8 = 0x01
	TWICmdRecvTrans uint8 = 0x02
	TWICmdStop      uint8 = 0x03
)

// MillisTimer is the periodic timer used by the Timebase.
type MillisTimer interface {
	// Configure programs the compare value, selects the CLK/2 clock,
	// enables the capture interrupt and clears the counter.
	Configure(compare uint16)

	// Acknowledge clears the pending capture interrupt. The hardware
	// will not fire again until this is done.
	Acknowledge()
}
