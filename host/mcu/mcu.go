// Package mcu reads the debug trace of a running board.
package mcu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/glog"

	"simon/host/serial"
	"simon/protocol"
)

// Event names, indexed by the firmware bus event codes
var eventNames = map[uint8]string{
	1: "NAK",
	2: "ARBLOST",
	3: "TIMEOUT",
}

// MCU is a connection to a board's debug UART
type MCU struct {
	port    serial.Port
	decoder *protocol.Decoder
	records int
	errors  int
}

// Stats summarises a session
type Stats struct {
	Records int // records delivered
	Errors  int // frames that decoded but carried a bad record
	Dropped int // bytes skipped while resynchronising
	Gaps    int // sequence discontinuities
}

// NewMCU creates an MCU reading from an already open port
func NewMCU(port serial.Port) *MCU {
	return &MCU{
		port:    port,
		decoder: protocol.NewDecoder(port),
	}
}

// Connect opens the serial device with the default settings
func Connect(device string) (*MCU, error) {
	return ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens a serial device with a custom config
func ConnectWithConfig(cfg *serial.Config) (*MCU, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		glog.Warningf("flush %s: %v", cfg.Device, err)
	}
	return NewMCU(port), nil
}

// Close closes the underlying port
func (m *MCU) Close() error {
	return m.port.Close()
}

// Stats returns the session counters
func (m *MCU) Stats() Stats {
	return Stats{
		Records: m.records,
		Errors:  m.errors,
		Dropped: m.decoder.Dropped(),
		Gaps:    m.decoder.Gaps(),
	}
}

// Run delivers records to handler until the port reaches EOF or ctx is
// cancelled. Bad records are logged and skipped. Cancellation only takes
// effect between reads; close the port to interrupt a blocking read.
func (m *MCU) Run(ctx context.Context, handler func(protocol.Record)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := m.decoder.Next()
		switch {
		case err == nil:
			m.records++
			handler(rec)
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, protocol.ErrUnknownRecord),
			errors.Is(err, protocol.ErrInvalidVLQ),
			errors.Is(err, protocol.ErrBufferTooSmall):
			m.errors++
			glog.Warningf("seq %d: %v", rec.Sequence, err)
		default:
			return fmt.Errorf("read trace: %w", err)
		}
	}
}

// Format renders a record as one log line
func Format(rec protocol.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%10d ms ", rec.Clock)
	switch rec.Kind {
	case protocol.RecordLog:
		b.WriteString(rec.Text)
	case protocol.RecordBusEvent:
		name, ok := eventNames[rec.Event]
		if !ok {
			name = fmt.Sprintf("EVENT%d", rec.Event)
		}
		fmt.Fprintf(&b, "[BUS] %s addr=0x%02X status=0x%02X", name, rec.Addr, rec.Status)
	default:
		fmt.Fprintf(&b, "kind %d", rec.Kind)
	}
	return b.String()
}
