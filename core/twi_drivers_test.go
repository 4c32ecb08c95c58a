package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers/adxl345"

	"simon/sim"
)

// An off-the-shelf TinyGo device driver runs unchanged on the bus master.
func TestADXL345OnMaster(t *testing.T) {
	const (
		regPowerCtl = 0x2D
		regDataX0   = 0x32
	)

	dev := sim.NewRegisterDevice(0x53)
	copy(dev.Mem[regDataX0:], []byte{0x00, 0x01, 0xFE, 0xFF, 0x10, 0x00})
	m, bus := newMaster(t, dev)

	sensor := adxl345.New(m)
	sensor.Configure()
	assert.NotZero(t, dev.Mem[regPowerCtl]&0x08, "measurement mode not enabled")

	x, y, z := sensor.ReadRawAcceleration()
	assert.Equal(t, int16(256), x)
	assert.Equal(t, int16(-2), y)
	assert.Equal(t, int16(16), z)

	require.True(t, bus.Idle())
	assert.Nil(t, m.LastError())
}
