// Package display drives an SSD1306 OLED controller over the two-wire bus.
//
// Every operation is a self-contained sequence of bus transactions ending in
// a stop condition. The driver keeps no display state of its own: callers
// hold the Surface returned by Init and pass it to every call. A Driver is
// not reentrant; two operations must never interleave on the bus.
package display

import (
	"errors"

	"simon/core"
)

// Controller commands
const (
	cmdSetContrast      = 0x81
	cmdSetEntireOn      = 0xA4
	cmdSetNormInv       = 0xA6
	cmdSetDisp          = 0xAE
	cmdSetMemAddr       = 0x20
	cmdSetColAddr       = 0x21
	cmdSetPageAddr      = 0x22
	cmdSetDispStartLine = 0x40
	cmdSetSegRemap      = 0xA0
	cmdSetMuxRatio      = 0xA8
	cmdSetComOutDir     = 0xC0
	cmdSetDispOffset    = 0xD3
	cmdSetComPinCfg     = 0xDA
	cmdSetDispClkDiv    = 0xD5
	cmdSetPrecharge     = 0xD9
	cmdSetVcomDesel     = 0xDB
	cmdSetChargePump    = 0x8D
)

// Control bytes sent after the address
const (
	ControlCommand = 0x00
	ControlData    = 0x40
)

// Address is the usual 7-bit address of an SSD1306 module.
const Address core.I2CAddress = 0x3C

// narrowOffset is the column shift of 64-pixel-wide panels, which are wired
// to the middle of the 128-column controller.
const narrowOffset = 32

var (
	ErrNoAck          = errors.New("ssd1306: not acknowledged")
	ErrFormatArgRange = errors.New("ssd1306: format argument above 255")
	ErrFormatArgCount = errors.New("ssd1306: format placeholder count does not match arguments")
)

// CommandError reports the first command of a sequence the controller did
// not acknowledge. The rest of the sequence was still sent.
type CommandError struct {
	Cmd byte
	Err error
}

// Error implements error.
func (e *CommandError) Error() string {
	return "ssd1306: command " + hexByte(e.Cmd) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// Bus is the part of the bus master the display protocol needs.
// *core.TWIMaster implements it.
type Bus interface {
	Start(addr core.I2CAddress, readCount uint8) bool
	Write(b byte) bool
	WriteBytes(data []byte) bool
	Stop()
}

// Surface describes one attached panel.
type Surface struct {
	Width   uint8
	Height  uint8
	Address core.I2CAddress
}

// Pages returns the number of 8-pixel pages. Height is expected to be a
// multiple of 8; any remainder is dropped.
func (s Surface) Pages() uint8 {
	return s.Height / 8
}

// Driver frames commands and pixel data for SSD1306 panels.
type Driver struct {
	bus Bus
}

// New creates a display driver on bus.
func New(bus Bus) *Driver {
	return &Driver{bus: bus}
}

// keep returns the first non-nil error
func keep(first, err error) error {
	if first != nil {
		return first
	}
	return err
}

// WriteCommand sends a single command byte in its own transaction.
// Failures do not stop the caller's sequence; they are only reported.
func (d *Driver) WriteCommand(s Surface, cmd byte) error {
	started := d.bus.Start(s.Address, 0)
	ctl := d.bus.Write(ControlCommand)
	sent := d.bus.Write(cmd)
	d.bus.Stop()
	if !started || !ctl || !sent {
		return &CommandError{Cmd: cmd, Err: ErrNoAck}
	}
	return nil
}

// commands sends each byte with WriteCommand and returns the first failure
func (d *Driver) commands(s Surface, cmds ...byte) error {
	var err error
	for _, c := range cmds {
		err = keep(err, d.WriteCommand(s, c))
	}
	return err
}

// Init brings up the controller for a width x height panel at addr, clears
// it and switches it on. The whole sequence is always sent; the returned
// error is the first step that was not acknowledged.
func (d *Driver) Init(addr core.I2CAddress, width, height uint8) (Surface, error) {
	s := Surface{
		Width:   width,
		Height:  height,
		Address: addr,
	}

	comPins := byte(0x12)
	if int(width) > 2*int(height) {
		comPins = 0x02
	}

	err := d.commands(s,
		cmdSetDisp,          // off
		cmdSetMemAddr, 0x00, // horizontal addressing
		cmdSetDispStartLine, // start at line 0
		cmdSetSegRemap|0x01, // column 127 mapped to SEG0
		cmdSetMuxRatio, height-1,
		cmdSetComOutDir|0x08, // scan from COM[N] to COM0
		cmdSetDispOffset, 0x00,
		cmdSetComPinCfg, comPins,
		cmdSetDispClkDiv, 0x80,
		cmdSetPrecharge, 0xF1,
		cmdSetVcomDesel, 0x30, // 0.83*Vcc
	)
	err = keep(err, d.SetContrast(s, 0xFF))
	err = keep(err, d.commands(s,
		cmdSetEntireOn,
		cmdSetNormInv,
		cmdSetChargePump, 0x14,
	))
	err = keep(err, d.Fill(s, 0x00))
	err = keep(err, d.PowerOn(s))
	return s, err
}

// PowerOn switches the panel on.
func (d *Driver) PowerOn(s Surface) error {
	return d.WriteCommand(s, cmdSetDisp|0x01)
}

// PowerOff switches the panel off; GDDRAM is retained.
func (d *Driver) PowerOff(s Surface) error {
	return d.WriteCommand(s, cmdSetDisp)
}

// SetInverted selects inverted or normal pixel polarity.
func (d *Driver) SetInverted(s Surface, invert bool) error {
	cmd := byte(cmdSetNormInv)
	if invert {
		cmd |= 0x01
	}
	return d.WriteCommand(s, cmd)
}

// SetContrast sets the contrast level.
func (d *Driver) SetContrast(s Surface, level uint8) error {
	return d.commands(s, cmdSetContrast, level)
}

// beginWindow sets the column and page window and leaves a data
// transaction open for the caller to stream pixel bytes into.
func (d *Driver) beginWindow(s Surface, x0, x1, y0, y1 uint8) error {
	if s.Width == 64 {
		x0 += narrowOffset
		x1 += narrowOffset
	}

	err := d.commands(s,
		cmdSetColAddr, x0, x1,
		cmdSetPageAddr, y0, y1,
	)
	started := d.bus.Start(s.Address, 0)
	if !d.bus.Write(ControlData) || !started {
		err = keep(err, &CommandError{Cmd: ControlData, Err: ErrNoAck})
	}
	return err
}

// Fill sets every pixel byte of the panel to value.
func (d *Driver) Fill(s Surface, value uint8) error {
	pages := s.Pages()
	size := int(s.Width) * int(pages)

	err := d.beginWindow(s, 0, s.Width-1, 0, pages-1)
	acked := true
	for i := 0; i < size; i++ {
		acked = d.bus.Write(value) && acked
	}
	d.bus.Stop()

	if !acked {
		err = keep(err, ErrNoAck)
	}
	return err
}

// ClearLine blanks page row across the full width.
func (d *Driver) ClearLine(s Surface, row uint8) error {
	err := d.beginWindow(s, 0, s.Width-1, row, row)
	acked := true
	for i := 0; i < int(s.Width); i++ {
		acked = d.bus.Write(0x00) && acked
	}
	d.bus.Stop()

	if !acked {
		err = keep(err, ErrNoAck)
	}
	return err
}

// textSpan returns the column window of a glyphs-wide text run starting at
// character column col, and how many whole glyphs fit before the right edge.
func textSpan(s Surface, col uint8, glyphs int) (x0, x1 uint8, fit int) {
	start := int(col) * GlyphWidth
	if start >= int(s.Width) {
		return 0, 0, 0
	}
	fit = min(glyphs, (int(s.Width)-start)/GlyphWidth)
	if fit == 0 {
		return 0, 0, 0
	}
	return uint8(start), uint8(start + fit*GlyphWidth - 1), fit
}

// DrawText renders text in 8x8 cells starting at character column col on
// page row. Only printable ASCII has glyphs; other bytes draw as '?'.
// Glyphs past the right edge of the panel are dropped.
func (d *Driver) DrawText(s Surface, col, row uint8, text string) error {
	x0, x1, fit := textSpan(s, col, len(text))
	if fit == 0 {
		return nil
	}
	text = text[:fit]

	err := d.beginWindow(s, x0, x1, row, row)
	acked := true
	for i := 0; i < len(text); i++ {
		acked = d.bus.WriteBytes(Glyph(text[i])) && acked
	}
	d.bus.Stop()

	if !acked {
		err = keep(err, ErrNoAck)
	}
	return err
}

func hexByte(b byte) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{'0', 'x', digits[b>>4], digits[b&0x0F]})
}
