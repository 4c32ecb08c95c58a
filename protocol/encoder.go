package protocol

import (
	"errors"
	"io"
)

// ErrFrameTooLarge is returned when a record does not fit one frame
var ErrFrameTooLarge = errors.New("record exceeds frame size")

// recordHeaderMax is kind (1 byte) plus a worst-case clock VLQ (5 bytes)
// plus a one-byte string length
const recordHeaderMax = 1 + 5 + 1

// LogTextMax is the longest log line carried by one frame; longer lines
// are truncated.
const LogTextMax = MessagePayloadMax - recordHeaderMax

// Encoder writes trace records as framed messages. It is not safe for
// concurrent use and must not be called from interrupt context.
type Encoder struct {
	w     io.Writer
	clock func() uint32
	seq   uint8
	out   ScratchOutput
}

// NewEncoder creates an Encoder writing to w. clock timestamps log records
// and may be nil.
func NewEncoder(w io.Writer, clock func() uint32) *Encoder {
	return &Encoder{w: w, clock: clock}
}

// Sequence returns the sequence number the next frame will carry
func (e *Encoder) Sequence() uint8 {
	return e.seq
}

func (e *Encoder) now() uint32 {
	if e.clock == nil {
		return 0
	}
	return e.clock()
}

// Log writes a text record
func (e *Encoder) Log(text string) error {
	if len(text) > LogTextMax {
		text = text[:LogTextMax]
	}
	clock := e.now()
	return e.frame(func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(RecordLog))
		EncodeVLQUint(out, clock)
		EncodeVLQString(out, text)
	})
}

// Println adapts Log to the firmware debug writer signature, dropping
// write errors.
func (e *Encoder) Println(text string) {
	_ = e.Log(text)
}

// BusEvent writes a bus fault record
func (e *Encoder) BusEvent(event, addr, status uint8, clock uint32) error {
	return e.frame(func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(RecordBusEvent))
		EncodeVLQUint(out, clock)
		EncodeVLQUint(out, uint32(event))
		EncodeVLQUint(out, uint32(addr))
		EncodeVLQUint(out, uint32(status))
	})
}

// frame wraps the payload produced by body with header and trailer and
// writes it out.
func (e *Encoder) frame(body func(OutputBuffer)) error {
	e.out.Reset()
	e.out.Output([]byte{0, MessageDest | e.seq})
	body(&e.out)
	if e.out.CurPosition()+MessageTrailerSize > MessageMax {
		return ErrFrameTooLarge
	}

	msglen := e.out.CurPosition() + MessageTrailerSize
	e.out.Update(0, uint8(msglen))
	crc := CRC16(e.out.Result())
	e.out.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})

	e.seq = (e.seq + 1) & MessageSeqMask
	_, err := e.w.Write(e.out.Result())
	return err
}
