// simon-sim runs the firmware core against a simulated bus and OLED panel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/golang/glog"
	"github.com/urfave/cli"

	"simon/config"
)

func main() {
	app := cli.NewApp()
	app.Name = "simon-sim"
	app.Usage = "run the simon firmware core against a simulated OLED"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "Path to a JSON board configuration",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Play scripted rounds and print the panel instead of opening a terminal UI",
		},
		cli.IntSliceFlag{
			Name:  "reaction",
			Usage: "Reaction times in ms for headless rounds (repeatable)",
		},
		cli.IntFlag{
			Name:  "verbosity",
			Usage: "glog verbosity level; 1 logs every trace record",
		},
		cli.BoolFlag{
			Name:  "logtostderr",
			Usage: "Send glog output to stderr instead of log files",
		},
	}
	app.Before = func(c *cli.Context) error {
		return setLogFlags(c.Int("verbosity"), c.Bool("logtostderr"))
	}
	app.Action = run

	// glog refuses to log before the default flag set is parsed
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setLogFlags hands the cli's logging options to glog, which only reads
// the default flag set.
func setLogFlags(verbosity int, toStderr bool) error {
	if err := flag.Set("v", strconv.Itoa(verbosity)); err != nil {
		return err
	}
	return flag.Set("logtostderr", strconv.FormatBool(toStderr))
}

func loadConfig(path string) (*config.BoardConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	s, err := newSimulator(cfg)
	if err != nil {
		return err
	}

	if c.Bool("headless") {
		reactions := c.IntSlice("reaction")
		if len(reactions) == 0 {
			return errors.New("headless mode needs at least one --reaction")
		}
		return playHeadless(os.Stdout, s, reactions)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	term, err := newTerminal(s)
	if err != nil {
		return err
	}
	return term.Run(ctx)
}

// playHeadless plays one round per reaction time, firing the millisecond
// timer by hand, and prints the panel and the trace tail after each round.
func playHeadless(w io.Writer, s *simulator, reactions []int) error {
	for _, ms := range reactions {
		if err := s.Press(); err != nil {
			return err
		}
		for i := 0; i < ms && s.phase == phaseArmed; i++ {
			s.timer.Fire(1)
			if err := s.Poll(); err != nil {
				return err
			}
		}
		if s.phase == phaseArmed {
			if err := s.Press(); err != nil {
				return err
			}
		}
		fmt.Fprint(w, s.ASCII())
		for _, line := range s.trace.Lines() {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}
