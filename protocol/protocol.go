// Package protocol implements the debug trace framing the firmware sends
// over its UART and the host monitor decodes.
//
// A frame is
//
//	len | seq | payload... | crc16 hi | crc16 lo | 0x7E
//
// where len counts the whole frame and seq is 0x10 | (n & 0x0F). The
// payload is one record: a VLQ record kind, a VLQ millisecond timestamp and
// kind-specific fields.
package protocol

// Frame constants
const (
	MessageMax         = 64 // Maximum frame length
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F

	// MessagePayloadMax is the largest payload that fits a frame
	MessagePayloadMax = MessageMax - MessageLengthMin
)

// RecordKind identifies the payload of a frame
type RecordKind uint8

const (
	RecordLog      RecordKind = 1 // free-form debug line
	RecordBusEvent RecordKind = 2 // bus fault from the post-mortem ring
)

// Record is one decoded trace record
type Record struct {
	Kind     RecordKind
	Sequence uint8
	Clock    uint32 // milliseconds since the timebase was last restarted

	// RecordLog
	Text string

	// RecordBusEvent
	Event  uint8
	Addr   uint8
	Status uint8
}
