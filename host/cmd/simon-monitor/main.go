// simon-monitor prints the debug trace a board writes to its UART.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/golang/glog"

	"simon/config"
	"simon/config/board"
	"simon/host/mcu"
	"simon/host/serial"
	"simon/protocol"
)

var (
	device     = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud       = flag.Int("baud", board.DebugBaud, "Debug UART baud rate")
	configPath = flag.String("config", "", "JSON board configuration; its debug_baud applies unless -baud is given")
	capture    = flag.String("capture", "", "Replay a raw trace capture instead of opening a device")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	session, err := open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		session.Close()
	}()

	start := time.Now()
	err = session.Run(ctx, func(rec protocol.Record) {
		fmt.Println(mcu.Format(rec))
		if glog.V(2) {
			glog.Infof("seq=%d kind=%d clock=%d", rec.Sequence, rec.Kind, rec.Clock)
		}
	})
	if err != nil && ctx.Err() == nil {
		glog.Errorf("monitor stopped: %v", err)
	}

	stats := session.Stats()
	glog.Infof("%d records in %s, %d bad, %d bytes dropped, %d sequence gaps",
		stats.Records, time.Since(start).Round(time.Millisecond), stats.Errors, stats.Dropped, stats.Gaps)
}

func open() (*mcu.MCU, error) {
	if *capture != "" {
		port, err := serial.OpenCapture(*capture)
		if err != nil {
			return nil, err
		}
		return mcu.NewMCU(port), nil
	}

	rate, err := debugBaud(*configPath, *baud, flagSet("baud"))
	if err != nil {
		return nil, err
	}
	cfg := serial.DefaultConfig(*device)
	cfg.Baud = rate
	cfg.ReadTimeout = 0
	glog.Infof("opening %s at %d baud", cfg.Device, cfg.Baud)
	return mcu.ConnectWithConfig(cfg)
}

// debugBaud picks the UART rate: an explicit -baud wins, then the board
// configuration, then the flag default.
func debugBaud(path string, rate int, explicit bool) (int, error) {
	if explicit || path == "" {
		return rate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	cfg, err := config.LoadConfig(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return int(cfg.DebugBaud), nil
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
