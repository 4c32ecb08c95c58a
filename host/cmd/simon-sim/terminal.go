package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/golang/glog"
)

const frameTime = time.Second / 30

type terminal struct {
	screen tcell.Screen
	sim    *simulator
	keys   chan rune
}

func newTerminal(s *simulator) (*terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	return &terminal{
		screen: screen,
		sim:    s,
		keys:   make(chan rune, 4),
	}, nil
}

// Run drives the simulator in real time until q, Esc or ctx cancellation.
func (t *terminal) Run(ctx context.Context) error {
	defer t.screen.Fini()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	go t.sim.timer.Run(ctx, time.Millisecond)
	go t.handleInput(cancel)

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.keys:
			if err := t.sim.Press(); err != nil {
				glog.Errorf("press: %v", err)
			}
		case <-ticker.C:
			if err := t.sim.Poll(); err != nil {
				glog.Errorf("poll: %v", err)
			}
			t.render()
			t.screen.Show()
		}
	}
}

func (t *terminal) handleInput(cancel context.CancelFunc) {
	for {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
				cancel()
				return
			case ev.Rune() == ' ', ev.Key() == tcell.KeyEnter:
				select {
				case t.keys <- ' ':
				default:
				}
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

// render draws two panel rows per terminal row with half blocks, then the
// tail of the firmware trace below it.
func (t *terminal) render() {
	t.screen.Clear()
	panel := t.sim.panel
	w, h := panel.Size()

	for y := 0; y < int(h); y += 2 {
		for x := 0; x < int(w); x++ {
			top, bottom := tcell.ColorBlack, tcell.ColorBlack
			if panel.Pixel(x, y) {
				top = tcell.ColorAqua
			}
			if panel.Pixel(x, y+1) {
				bottom = tcell.ColorAqua
			}
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}

	row := int(h)/2 + 1
	for i, line := range t.sim.trace.Lines() {
		for x, r := range line {
			t.screen.SetContent(x, row+i, r, nil, tcell.StyleDefault.Foreground(tcell.ColorGray))
		}
	}
}
