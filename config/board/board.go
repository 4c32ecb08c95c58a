// Package board holds the reference board settings as constants, so
// firmware can use them without pulling in the JSON loader.
package board

// Reference board: a 20 MHz tinyAVR driving a 128x64 SSD1306 at 1 MHz.
const (
	CPUFrequency   = 20000000
	BusFrequency   = 1000000
	RiseTimeNs     = 120
	DisplayAddress = 0x3C
	DisplayWidth   = 128
	DisplayHeight  = 64
	DebugBaud      = 115200
	Debug          = true
)
