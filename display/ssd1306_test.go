package display_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simon/core"
	"simon/display"
	"simon/sim"
)

type rig struct {
	bus   *sim.Bus
	panel *sim.Panel
	drv   *display.Driver
}

func newRig(t *testing.T, width, height uint8) *rig {
	t.Helper()
	bus := sim.NewBus()
	panel := sim.NewPanel(display.Address, width, height)
	bus.Attach(panel)

	m := core.NewTWIMaster(bus)
	require.NoError(t, m.Init(core.TWIConfig{CPUFrequency: 20000000, Frequency: 1000000, RiseTimeNs: 120}))
	return &rig{bus: bus, panel: panel, drv: display.New(m)}
}

func (r *rig) init(t *testing.T) display.Surface {
	t.Helper()
	w, h := r.panel.Size()
	s, err := r.drv.Init(display.Address, w, h)
	require.NoError(t, err)
	r.panel.ResetLog()
	r.bus.ResetTrace()
	return s
}

func glyphs(text string) []byte {
	var out []byte
	for i := 0; i < len(text); i++ {
		out = append(out, display.Glyph(text[i])...)
	}
	return out
}

func TestInitSequence(t *testing.T) {
	r := newRig(t, 128, 64)
	s, err := r.drv.Init(display.Address, 128, 64)
	require.NoError(t, err)
	assert.Equal(t, display.Surface{Width: 128, Height: 64, Address: display.Address}, s)

	assert.Equal(t, [][]byte{
		{0xAE},
		{0x20, 0x00},
		{0x40},
		{0xA1},
		{0xA8, 63},
		{0xC8},
		{0xD3, 0x00},
		{0xDA, 0x12},
		{0xD5, 0x80},
		{0xD9, 0xF1},
		{0xDB, 0x30},
		{0x81, 0xFF},
		{0xA4},
		{0xA6},
		{0x8D, 0x14},
		{0x21, 0, 127},
		{0x22, 0, 7},
		{0xAF},
	}, r.panel.Commands())

	assert.True(t, r.panel.On)
	assert.Equal(t, uint8(63), r.panel.Mux)
	assert.Equal(t, uint8(0xFF), r.panel.Contrast)
	require.Len(t, r.panel.Windows(), 1)
	assert.Len(t, r.panel.Windows()[0].Data, 1024)
	assert.True(t, r.bus.Idle())
}

func TestInitComPinsForWidePanel(t *testing.T) {
	r := newRig(t, 128, 32)
	_, err := r.drv.Init(display.Address, 128, 32)
	require.NoError(t, err)

	assert.Contains(t, r.panel.Commands(), []byte{0xDA, 0x02})
	assert.Contains(t, r.panel.Commands(), []byte{0xA8, 31})
}

func TestInitReportsFirstFailure(t *testing.T) {
	bus := sim.NewBus()
	m := core.NewTWIMaster(bus)
	require.NoError(t, m.Init(core.TWIConfig{CPUFrequency: 20000000, Frequency: 1000000}))

	_, err := display.New(m).Init(display.Address, 128, 64)
	require.Error(t, err)

	var cmdErr *display.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, byte(0xAE), cmdErr.Cmd)
	assert.ErrorIs(t, err, display.ErrNoAck)

	// The whole sequence is still attempted
	starts := 0
	for _, e := range bus.Trace() {
		if e.Kind == sim.EvStart {
			starts++
		}
	}
	assert.Equal(t, 32, starts)
	assert.True(t, bus.Idle())
}

func TestFillCoversSameWindow(t *testing.T) {
	r := newRig(t, 128, 64)
	s := r.init(t)

	require.NoError(t, r.drv.Fill(s, 0x00))
	require.NoError(t, r.drv.Fill(s, 0xFF))

	windows := r.panel.Windows()
	require.Len(t, windows, 2)
	for _, w := range windows {
		assert.Equal(t, uint8(0), w.Col0)
		assert.Equal(t, uint8(127), w.Col1)
		assert.Equal(t, uint8(0), w.Page0)
		assert.Equal(t, uint8(7), w.Page1)
		assert.Len(t, w.Data, int(s.Width)*int(s.Height)/8)
	}
	assert.True(t, r.panel.Pixel(0, 0))
	assert.True(t, r.panel.Pixel(127, 63))
}

func TestDrawTextWindow(t *testing.T) {
	r := newRig(t, 128, 64)
	s := r.init(t)

	require.NoError(t, r.drv.DrawText(s, 0, 0, "AB"))

	windows := r.panel.Windows()
	require.Len(t, windows, 1)
	w := windows[0]
	assert.Equal(t, 16, int(w.Col1)-int(w.Col0)+1)
	assert.Equal(t, w.Page0, w.Page1)
	assert.Equal(t, glyphs("AB"), w.Data)
	assert.Len(t, w.Data, 16)
	assert.True(t, r.bus.Idle())
}

func TestDrawTextPosition(t *testing.T) {
	r := newRig(t, 128, 64)
	s := r.init(t)

	require.NoError(t, r.drv.DrawText(s, 2, 3, "Go"))
	assert.Equal(t, [][]byte{{0x21, 16, 31}, {0x22, 3, 3}}, r.panel.Commands())

	a := display.Glyph('G')
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			lit := a[x]&(1<<uint(y)) != 0
			assert.Equal(t, lit, r.panel.Pixel(16+x, 24+y), "pixel %d,%d", x, y)
		}
	}
}

func TestDrawTextEmpty(t *testing.T) {
	r := newRig(t, 128, 64)
	s := r.init(t)

	require.NoError(t, r.drv.DrawText(s, 0, 0, ""))
	assert.Empty(t, r.bus.Trace())
}

func TestDrawTextUnprintable(t *testing.T) {
	r := newRig(t, 128, 64)
	s := r.init(t)

	require.NoError(t, r.drv.DrawText(s, 0, 0, "a\x01\xff"))
	assert.Equal(t, glyphs("a??"), r.panel.Windows()[0].Data)
}

func TestDrawTextClipsAtRightEdge(t *testing.T) {
	r := newRig(t, 128, 64)
	s := r.init(t)

	require.NoError(t, r.drv.DrawText(s, 14, 1, "ABCD"))
	assert.Equal(t, [][]byte{{0x21, 112, 127}, {0x22, 1, 1}}, r.panel.Commands())
	assert.Equal(t, glyphs("AB"), r.panel.Windows()[0].Data)

	long := make([]byte, 40)
	for i := range long {
		long[i] = 'x'
	}
	r.panel.ResetLog()
	require.NoError(t, r.drv.DrawText(s, 0, 2, string(long)))
	assert.Equal(t, []byte{0x21, 0, 127}, r.panel.Commands()[0])
	assert.Len(t, r.panel.Windows()[0].Data, 128)
}

func TestDrawTextOffPanel(t *testing.T) {
	r := newRig(t, 64, 48)
	s := r.init(t)

	require.NoError(t, r.drv.DrawText(s, 8, 0, "x"))
	require.NoError(t, r.drv.DrawText(s, 40, 0, "x"))
	assert.Empty(t, r.bus.Trace())
}

func TestNarrowPanelOffset(t *testing.T) {
	r := newRig(t, 64, 48)
	s := r.init(t)

	require.NoError(t, r.drv.Fill(s, 0xAA))
	require.NoError(t, r.drv.DrawText(s, 1, 2, "x"))
	require.NoError(t, r.drv.ClearLine(s, 5))

	cols := 0
	for _, cmd := range r.panel.Commands() {
		if cmd[0] == 0x21 {
			cols++
			assert.GreaterOrEqual(t, cmd[1], uint8(32))
			assert.GreaterOrEqual(t, cmd[2], uint8(32))
		}
	}
	assert.Equal(t, 3, cols)
	assert.Equal(t, [][]byte{{0x21, 32, 95}, {0x22, 0, 5}}, r.panel.Commands()[:2])
	assert.Equal(t, []byte{0x21, 40, 47}, r.panel.Commands()[2])
}

func TestWidePanelNoOffset(t *testing.T) {
	r := newRig(t, 128, 64)
	s := r.init(t)

	require.NoError(t, r.drv.DrawText(s, 0, 0, "x"))
	assert.Equal(t, []byte{0x21, 0, 7}, r.panel.Commands()[0])
}

func TestClearLine(t *testing.T) {
	r := newRig(t, 128, 64)
	s := r.init(t)
	require.NoError(t, r.drv.Fill(s, 0xFF))
	r.panel.ResetLog()

	require.NoError(t, r.drv.ClearLine(s, 4))
	w := r.panel.Windows()[0]
	assert.Equal(t, uint8(4), w.Page0)
	assert.Equal(t, uint8(4), w.Page1)
	assert.Len(t, w.Data, 128)
	assert.False(t, r.panel.Pixel(10, 33))
	assert.True(t, r.panel.Pixel(10, 41))
}

func TestSingleCommandWrappers(t *testing.T) {
	r := newRig(t, 128, 64)
	s := r.init(t)

	require.NoError(t, r.drv.SetInverted(s, true))
	assert.True(t, r.panel.Inverted)
	require.NoError(t, r.drv.SetInverted(s, false))
	assert.False(t, r.panel.Inverted)

	require.NoError(t, r.drv.SetContrast(s, 0x40))
	assert.Equal(t, uint8(0x40), r.panel.Contrast)

	require.NoError(t, r.drv.PowerOff(s))
	assert.False(t, r.panel.On)
	require.NoError(t, r.drv.PowerOn(s))
	assert.True(t, r.panel.On)

	require.NoError(t, r.drv.WriteCommand(s, 0xA7))
	assert.True(t, r.panel.Inverted)
}

func TestWriteCommandFraming(t *testing.T) {
	r := newRig(t, 128, 64)
	s := r.init(t)

	require.NoError(t, r.drv.WriteCommand(s, 0xA5))
	trace := r.bus.Trace()
	require.Len(t, trace, 4)
	assert.Equal(t, sim.EvStart, trace[0].Kind)
	assert.Equal(t, display.Address, trace[0].Addr)
	assert.False(t, trace[0].Read)
	assert.Equal(t, byte(display.ControlCommand), trace[1].Data)
	assert.Equal(t, byte(0xA5), trace[2].Data)
	assert.Equal(t, sim.EvStop, trace[3].Kind)
}

func TestGlyphFallback(t *testing.T) {
	assert.Equal(t, display.Glyph('?'), display.Glyph(0x00))
	assert.Equal(t, display.Glyph('?'), display.Glyph(0x80))
	assert.Len(t, display.Glyph(' '), display.GlyphWidth)
	assert.Equal(t, make([]byte, 8), display.Glyph(' '))
	assert.NotEqual(t, display.Glyph('A'), display.Glyph('B'))
}
