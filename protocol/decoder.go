package protocol

import (
	"errors"
	"io"
)

// ErrUnknownRecord is returned for a valid frame carrying an unknown kind
var ErrUnknownRecord = errors.New("unknown record kind")

// Decoder splits a trace byte stream into records. Corrupt data is skipped
// up to the next sync byte and counted in Dropped.
type Decoder struct {
	r       io.Reader
	buf     []byte
	chunk   [MessageMax]byte
	dropped int
	seq     uint8
	synced  bool
	gaps    int
}

// NewDecoder creates a Decoder reading from r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Dropped returns the number of bytes discarded while resynchronising
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Gaps returns how many times the frame sequence skipped, which means
// frames were lost in transit.
func (d *Decoder) Gaps() int {
	return d.gaps
}

// Next returns the next record, reading from the underlying reader as
// needed. It returns io.EOF once the reader is exhausted.
func (d *Decoder) Next() (Record, error) {
	for {
		rec, ok, err := d.parse()
		if ok || err != nil {
			return rec, err
		}
		n, err := d.r.Read(d.chunk[:])
		d.buf = append(d.buf, d.chunk[:n]...)
		if n == 0 && err != nil {
			return Record{}, err
		}
	}
}

// parse extracts one record from the buffered data
func (d *Decoder) parse() (Record, bool, error) {
	for len(d.buf) > 0 {
		msglen := int(d.buf[0])
		if msglen < MessageLengthMin || msglen > MessageMax {
			d.discard()
			continue
		}
		if len(d.buf) < msglen {
			return Record{}, false, nil
		}

		frame := d.buf[:msglen]
		if frame[1]&^MessageSeqMask != MessageDest || frame[msglen-1] != MessageValueSync {
			d.discard()
			continue
		}
		crc := CRC16(frame[:msglen-MessageTrailerSize])
		if frame[msglen-3] != uint8(crc>>8) || frame[msglen-2] != uint8(crc) {
			d.discard()
			continue
		}

		seq := frame[1] & MessageSeqMask
		if d.synced && seq != d.seq {
			d.gaps++
		}
		d.seq = (seq + 1) & MessageSeqMask
		d.synced = true

		payload := append([]byte(nil), frame[MessageHeaderSize:msglen-MessageTrailerSize]...)
		d.buf = d.buf[msglen:]

		rec, err := decodeRecord(payload)
		rec.Sequence = seq
		return rec, true, err
	}
	return Record{}, false, nil
}

// discard drops bytes up to and including the next sync byte
func (d *Decoder) discard() {
	for i, b := range d.buf {
		if b == MessageValueSync {
			d.dropped += i + 1
			d.buf = d.buf[i+1:]
			return
		}
	}
	d.dropped += len(d.buf)
	d.buf = d.buf[:0]
}

func decodeRecord(payload []byte) (Record, error) {
	var rec Record
	kind, err := DecodeVLQUint(&payload)
	if err != nil {
		return rec, err
	}
	rec.Kind = RecordKind(kind)
	if rec.Clock, err = DecodeVLQUint(&payload); err != nil {
		return rec, err
	}

	switch rec.Kind {
	case RecordLog:
		rec.Text, err = DecodeVLQString(&payload)
		return rec, err
	case RecordBusEvent:
		var fields [3]uint32
		for i := range fields {
			if fields[i], err = DecodeVLQUint(&payload); err != nil {
				return rec, err
			}
		}
		rec.Event = uint8(fields[0])
		rec.Addr = uint8(fields[1])
		rec.Status = uint8(fields[2])
		return rec, nil
	default:
		return rec, ErrUnknownRecord
	}
}
