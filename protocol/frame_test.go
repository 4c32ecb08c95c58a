package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestEncodeFrameLayout(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, func() uint32 { return 5 })
	if err := enc.Log("hi"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	frame := buf.Bytes()
	// len, seq, kind, clock, strlen, 'h', 'i', crc hi, crc lo, sync
	if len(frame) != 10 {
		t.Fatalf("Expected 10 byte frame, got %d: %v", len(frame), frame)
	}
	if frame[0] != 10 || frame[1] != MessageDest {
		t.Errorf("Bad header %v", frame[:2])
	}
	if !bytes.Equal(frame[2:7], []byte{byte(RecordLog), 5, 2, 'h', 'i'}) {
		t.Errorf("Bad payload %v", frame[2:7])
	}
	crc := CRC16(frame[:7])
	if frame[7] != byte(crc>>8) || frame[8] != byte(crc) {
		t.Errorf("Bad CRC %02X%02X, expected %04X", frame[7], frame[8], crc)
	}
	if frame[9] != MessageValueSync {
		t.Errorf("Expected sync byte, got %02X", frame[9])
	}
	if enc.Sequence() != 1 {
		t.Errorf("Expected sequence 1 after one frame, got %d", enc.Sequence())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	clock := uint32(1000)
	enc := NewEncoder(&buf, func() uint32 { return clock })

	enc.Println("boot")
	clock = 1234
	if err := enc.BusEvent(1, 0x3C, 0x52, 1200); err != nil {
		t.Fatalf("BusEvent failed: %v", err)
	}

	dec := NewDecoder(&buf)
	rec, err := dec.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if rec.Kind != RecordLog || rec.Text != "boot" || rec.Clock != 1000 || rec.Sequence != 0 {
		t.Errorf("Unexpected log record %+v", rec)
	}

	rec, err = dec.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if rec.Kind != RecordBusEvent || rec.Event != 1 || rec.Addr != 0x3C || rec.Status != 0x52 || rec.Clock != 1200 {
		t.Errorf("Unexpected bus event record %+v", rec)
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("Expected EOF, got %v", err)
	}
	if dec.Dropped() != 0 || dec.Gaps() != 0 {
		t.Errorf("Expected clean stream, dropped=%d gaps=%d", dec.Dropped(), dec.Gaps())
	}
}

func TestEncoderTruncatesLongText(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil)
	if err := enc.Log(strings.Repeat("x", 200)); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if buf.Len() > MessageMax {
		t.Errorf("Frame of %d bytes exceeds %d", buf.Len(), MessageMax)
	}

	rec, err := NewDecoder(&buf).Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if len(rec.Text) != LogTextMax {
		t.Errorf("Expected %d chars, got %d", LogTextMax, len(rec.Text))
	}
}

func TestDecoderResync(t *testing.T) {
	var good bytes.Buffer
	enc := NewEncoder(&good, nil)
	enc.Println("one")
	enc.Println("two")
	frames := good.Bytes()
	first := int(frames[0])

	// Garbage, a corrupted copy of frame one, then frame two
	var stream []byte
	stream = append(stream, 0x01, 0x02, MessageValueSync)
	bad := append([]byte(nil), frames[:first]...)
	bad[3] ^= 0xFF
	stream = append(stream, bad...)
	stream = append(stream, frames[first:]...)

	dec := NewDecoder(bytes.NewReader(stream))
	rec, err := dec.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if rec.Text != "two" {
		t.Errorf("Expected to resync on frame two, got %+v", rec)
	}
	if dec.Dropped() != 3+first {
		t.Errorf("Expected %d dropped bytes, got %d", 3+first, dec.Dropped())
	}
}

func TestDecoderCountsSequenceGaps(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil)
	enc.Println("a")
	enc.Println("b")
	enc.Println("c")

	stream := buf.Bytes()
	first := int(stream[0])
	second := int(stream[first])
	stream = append(append([]byte(nil), stream[:first]...), stream[first+second:]...)

	dec := NewDecoder(bytes.NewReader(stream))
	for i := 0; i < 2; i++ {
		if _, err := dec.Next(); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
	}
	if dec.Gaps() != 1 {
		t.Errorf("Expected 1 gap, got %d", dec.Gaps())
	}
}

func TestDecoderUnknownRecord(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil)
	if err := enc.frame(func(out OutputBuffer) {
		EncodeVLQUint(out, 9)
		EncodeVLQUint(out, 0)
	}); err != nil {
		t.Fatalf("frame failed: %v", err)
	}
	enc.Println("after")

	dec := NewDecoder(&buf)
	if _, err := dec.Next(); err != ErrUnknownRecord {
		t.Errorf("Expected ErrUnknownRecord, got %v", err)
	}
	rec, err := dec.Next()
	if err != nil || rec.Text != "after" {
		t.Errorf("Expected following record, got %+v (%v)", rec, err)
	}
}
