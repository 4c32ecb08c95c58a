package main

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/golang/glog"

	"simon/config"
	"simon/core"
	"simon/display"
	"simon/protocol"
	"simon/sim"
)

// Round timing, in milliseconds
const (
	reactionTimeout = 3000
	maxTraceLines   = 6
)

type phase int

const (
	phaseIdle phase = iota
	phaseArmed
	phaseResult
)

// traceLog decodes the firmware debug trace as it is written and keeps the
// most recent lines.
type traceLog struct {
	raw     bytes.Buffer
	decoder *protocol.Decoder
	lines   []string
}

func newTraceLog() *traceLog {
	t := &traceLog{}
	t.decoder = protocol.NewDecoder(&t.raw)
	return t
}

func (t *traceLog) Write(p []byte) (int, error) {
	t.raw.Write(p)
	for {
		rec, err := t.decoder.Next()
		if errors.Is(err, io.EOF) {
			return len(p), nil
		}
		if err != nil {
			glog.Warningf("trace: %v", err)
			continue
		}
		line := rec.Text
		if rec.Kind == protocol.RecordBusEvent {
			line = "bus event " + core.Utoa(uint32(rec.Event)) + " @" + core.Utoa(uint32(rec.Addr))
		}
		glog.V(1).Infof("trace %d: %s", rec.Clock, line)
		t.lines = append(t.lines, line)
		if len(t.lines) > maxTraceLines {
			t.lines = t.lines[len(t.lines)-maxTraceLines:]
		}
	}
}

func (t *traceLog) Lines() []string {
	return t.lines
}

// simulator runs the firmware core against the simulated bus and panel
type simulator struct {
	bus    *sim.Bus
	panel  *sim.Panel
	timer  *sim.Timer
	tb     *core.Timebase
	master *core.TWIMaster
	oled   *display.Driver
	screen display.Surface
	trace  *traceLog

	phase    phase
	round    uint
	best     uint32
	haveBest bool
	last     uint32
}

func newSimulator(cfg *config.BoardConfig) (*simulator, error) {
	s := &simulator{
		bus:   sim.NewBus(),
		panel: sim.NewPanel(cfg.Display(), cfg.DisplayWidth, cfg.DisplayHeight),
		timer: sim.NewTimer(),
		tb:    core.NewTimebase(cfg.CPUFrequency),
		trace: newTraceLog(),
	}
	s.bus.Attach(s.panel)
	s.master = core.NewTWIMaster(s.bus)
	s.bus.OnWriteReady(s.master.HandleInterrupt)
	s.oled = display.New(s.master)

	enc := protocol.NewEncoder(s.trace, s.tb.Now)
	core.SetDebugWriter(enc.Println)
	core.SetDebugEnabled(cfg.Debug)
	core.SetTraceClock(s.tb.Now)

	s.timer.Attach(s.tb.Tick)
	s.tb.Init(s.timer)

	if err := s.master.Init(cfg.TWI()); err != nil {
		glog.Warningf("bus clock: %v", err)
	}

	found := s.master.ScanAll()
	if len(found) == 0 {
		return nil, errors.New("no device on the bus")
	}
	glog.Infof("bus scan found %d device(s), first at 0x%02X", len(found), found[0])

	screen, err := s.oled.Init(cfg.Display(), cfg.DisplayWidth, cfg.DisplayHeight)
	if err != nil {
		core.DumpBusEvents()
		return nil, err
	}
	s.screen = screen
	return s, s.drawIdle()
}

// lines returns the number of text rows on the panel
func (s *simulator) lines() uint8 {
	return s.screen.Pages()
}

func (s *simulator) drawIdle() error {
	err := s.oled.Fill(s.screen, 0x00)
	if err == nil {
		err = s.oled.DrawText(s.screen, 0, 0, "SIMON")
	}
	if err == nil {
		err = s.oled.DrawText(s.screen, 0, s.lines()-1, "SPACE TO PLAY")
	}
	return err
}

// Press handles the player's button
func (s *simulator) Press() error {
	switch s.phase {
	case phaseIdle, phaseResult:
		return s.arm()
	case phaseArmed:
		return s.finish(s.tb.Now())
	}
	return nil
}

// Poll advances the round deadline; call it regularly
func (s *simulator) Poll() error {
	if s.phase == phaseArmed && s.tb.Expired(0, reactionTimeout) {
		s.phase = phaseResult
		core.DebugPrintln("round " + core.Utoa(uint32(s.round)) + " timed out")
		err := s.oled.ClearLine(s.screen, 2)
		if err == nil {
			err = s.oled.DrawText(s.screen, 0, 2, "TOO SLOW")
		}
		return err
	}
	return nil
}

func (s *simulator) arm() error {
	s.round++
	s.phase = phaseArmed
	s.tb.Restart()

	err := s.oled.Fill(s.screen, 0x00)
	if err == nil {
		round := s.round
		if round > display.MaxFormatArg {
			round = display.MaxFormatArg
		}
		err = s.oled.DrawFormatted(s.screen, 0, 0, "ROUND %", round)
	}
	if err == nil {
		err = s.oled.DrawText(s.screen, 0, 2, "GO!")
	}
	return err
}

func (s *simulator) finish(elapsed uint32) error {
	s.phase = phaseResult
	s.last = elapsed
	if !s.haveBest || elapsed < s.best {
		s.best = elapsed
		s.haveBest = true
	}
	core.DebugPrintln("round " + core.Utoa(uint32(s.round)) + ": " + core.Utoa(elapsed) + " ms")

	err := s.oled.ClearLine(s.screen, 2)
	if err == nil {
		err = s.oled.DrawText(s.screen, 0, 2, core.Utoa(elapsed)+" ms")
	}
	if err == nil && s.lines() > 4 {
		err = s.oled.DrawText(s.screen, 0, 4, "BEST "+core.Utoa(s.best))
	}
	return err
}

// ASCII renders the panel using one character per pixel pair, top and
// bottom, for headless output.
func (s *simulator) ASCII() string {
	w, h := s.panel.Size()
	var b strings.Builder
	for y := 0; y < int(h); y += 2 {
		for x := 0; x < int(w); x++ {
			top, bottom := s.panel.Pixel(x, y), s.panel.Pixel(x, y+1)
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
