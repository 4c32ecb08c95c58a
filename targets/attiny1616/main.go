//go:build attiny1616

// Firmware for a tinyAVR 1-series board with an SSD1306 OLED on TWI0.
package main

import (
	"runtime/interrupt"

	"simon/config/board"
	"simon/core"
	"simon/display"
	"simon/protocol"
)

const refreshPeriod = 1000 // ms

// Interrupt vectors
const (
	irqTCB0     = 13
	irqTWI0TWIM = 25
)

var (
	timebase = core.NewTimebase(board.CPUFrequency)
	master   = core.NewTWIMaster(twi0{})
)

func handleMillis(interrupt.Interrupt) {
	timebase.Tick()
}

func handleTWIMaster(interrupt.Interrupt) {
	master.HandleInterrupt()
}

func main() {
	disablePrescaler()

	interrupt.New(irqTCB0, handleMillis)
	interrupt.New(irqTWI0TWIM, handleTWIMaster)

	uart := initDebugUART(board.CPUFrequency, board.DebugBaud)
	enc := protocol.NewEncoder(uart, timebase.Now)
	core.SetDebugWriter(enc.Println)
	core.SetDebugEnabled(board.Debug)
	core.SetTraceClock(timebase.Now)

	timebase.Init(tcb0{})
	if err := master.Init(core.TWIConfig{
		CPUFrequency: board.CPUFrequency,
		Frequency:    board.BusFrequency,
		RiseTimeNs:   board.RiseTimeNs,
	}); err != nil {
		core.DebugPrintln("bus clock: " + err.Error())
	}

	addr, ok := master.Scan()
	if !ok {
		core.DebugPrintln("no display")
		halt()
	}

	oled := display.New(master)
	screen, err := oled.Init(addr, board.DisplayWidth, board.DisplayHeight)
	if err != nil {
		core.DebugPrintln(err.Error())
		dumpBusEvents(enc)
	}
	oled.DrawText(screen, 0, 0, "SIMON")

	var seconds, minutes uint
	for {
		start := timebase.Now()
		for !timebase.Expired(start, refreshPeriod) {
		}
		if seconds++; seconds == 60 {
			seconds = 0
			minutes = (minutes + 1) % (display.MaxFormatArg + 1)
		}
		if err := oled.DrawFormatted(screen, 0, 2, "UP %:% ", minutes, seconds); err != nil {
			core.DebugPrintln(err.Error())
			dumpBusEvents(enc)
		}
	}
}

// dumpBusEvents sends the bus fault ring as structured records
func dumpBusEvents(enc *protocol.Encoder) {
	for _, ev := range core.BusEvents() {
		enc.BusEvent(ev.EventType, ev.Addr, ev.Status, ev.Clock)
	}
	core.ClearBusEvents()
}

func halt() {
	for {
	}
}
