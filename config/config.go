// Package config holds the board configuration: clocks, bus timing and
// display geometry.
package config

import (
	"encoding/json"
	"errors"

	"simon/config/board"
	"simon/core"
)

var (
	ErrDisplayHeight  = errors.New("display height must be a non-zero multiple of 8, at most 64")
	ErrDisplayWidth   = errors.New("display width must be 1..128")
	ErrDisplayAddress = errors.New("display address must be a 7-bit address")
	ErrBusFrequency   = errors.New("bus frequency must be below the CPU frequency")
	ErrDebugBaud      = errors.New("debug baud rate must be non-zero")
)

// BoardConfig describes one board build
type BoardConfig struct {
	CPUFrequency uint32 `json:"cpu_frequency"` // Hz
	BusFrequency uint32 `json:"bus_frequency"` // SCL, Hz
	RiseTimeNs   uint32 `json:"rise_time_ns"`
	PollLimit    uint32 `json:"poll_limit"` // 0 waits forever

	DisplayAddress uint8 `json:"display_address"`
	DisplayWidth   uint8 `json:"display_width"`
	DisplayHeight  uint8 `json:"display_height"`

	DebugBaud uint32 `json:"debug_baud"`
	Debug     bool   `json:"debug"` // trace lines over the debug UART
}

// Default returns the configuration of the reference board.
func Default() *BoardConfig {
	return &BoardConfig{
		CPUFrequency:   board.CPUFrequency,
		BusFrequency:   board.BusFrequency,
		RiseTimeNs:     board.RiseTimeNs,
		DisplayAddress: board.DisplayAddress,
		DisplayWidth:   board.DisplayWidth,
		DisplayHeight:  board.DisplayHeight,
		DebugBaud:      board.DebugBaud,
		Debug:          board.Debug,
	}
}

// LoadConfig parses a JSON configuration over Default, so fields left out
// keep their reference board value and fields given as 0 stay 0.
func LoadConfig(jsonData []byte) (*BoardConfig, error) {
	config := Default()

	err := json.Unmarshal(jsonData, config)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the display geometry and bus settings
func (c *BoardConfig) Validate() error {
	if c.DisplayHeight == 0 || c.DisplayHeight%8 != 0 || c.DisplayHeight > 64 {
		return ErrDisplayHeight
	}
	if c.DisplayWidth == 0 || c.DisplayWidth > 128 {
		return ErrDisplayWidth
	}
	if core.I2CAddress(c.DisplayAddress) > core.MaxI2CAddress {
		return ErrDisplayAddress
	}
	if c.BusFrequency == 0 || c.BusFrequency >= c.CPUFrequency {
		return ErrBusFrequency
	}
	if c.DebugBaud == 0 {
		return ErrDebugBaud
	}
	return nil
}

// TWI returns the bus master settings
func (c *BoardConfig) TWI() core.TWIConfig {
	return core.TWIConfig{
		CPUFrequency: c.CPUFrequency,
		Frequency:    c.BusFrequency,
		RiseTimeNs:   c.RiseTimeNs,
		PollLimit:    c.PollLimit,
	}
}

// Display returns the display address
func (c *BoardConfig) Display() core.I2CAddress {
	return core.I2CAddress(c.DisplayAddress)
}
