package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simon/core"
	"simon/sim"
)

func newMaster(t *testing.T, devices ...sim.Device) (*core.TWIMaster, *sim.Bus) {
	t.Helper()
	bus := sim.NewBus()
	for _, d := range devices {
		bus.Attach(d)
	}
	m := core.NewTWIMaster(bus)
	require.NoError(t, m.Init(core.TWIConfig{
		CPUFrequency: 20000000,
		Frequency:    1000000,
		RiseTimeNs:   120,
	}))
	bus.ResetTrace()
	return m, bus
}

func kinds(trace []sim.Event) []sim.EventKind {
	out := make([]sim.EventKind, len(trace))
	for i, e := range trace {
		out[i] = e.Kind
	}
	return out
}

func TestBaudValue(t *testing.T) {
	testCases := []struct {
		name string
		cfg  core.TWIConfig
		baud uint8
		err  error
	}{
		{"1MHz at 20MHz", core.TWIConfig{CPUFrequency: 20000000, Frequency: 1000000, RiseTimeNs: 120}, 4, nil},
		{"100kHz at 20MHz", core.TWIConfig{CPUFrequency: 20000000, Frequency: 100000, RiseTimeNs: 0}, 95, nil},
		{"400kHz at 16MHz", core.TWIConfig{CPUFrequency: 16000000, Frequency: 400000, RiseTimeNs: 300}, 13, nil},
		{"too fast", core.TWIConfig{CPUFrequency: 20000000, Frequency: 4000000}, 0, core.ErrBaudRange},
		{"too slow", core.TWIConfig{CPUFrequency: 20000000, Frequency: 10000}, 0xFF, core.ErrBaudRange},
		{"zero frequency", core.TWIConfig{CPUFrequency: 20000000}, 0, core.ErrBaudRange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			baud, err := core.BaudValue(tc.cfg)
			assert.Equal(t, tc.baud, baud)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestInitProgramsController(t *testing.T) {
	bus := sim.NewBus()
	m := core.NewTWIMaster(bus)
	require.NoError(t, m.Init(core.TWIConfig{CPUFrequency: 20000000, Frequency: 1000000, RiseTimeNs: 120}))

	assert.Equal(t, uint8(4), bus.Baud())
	assert.Equal(t, core.TWICtrlAEnable, bus.MCTRLA())
	assert.True(t, bus.Idle())
}

func TestInitClampsUnreachableRate(t *testing.T) {
	bus := sim.NewBus()
	m := core.NewTWIMaster(bus)
	err := m.Init(core.TWIConfig{CPUFrequency: 20000000, Frequency: 10000})
	assert.ErrorIs(t, err, core.ErrBaudRange)
	assert.Equal(t, uint8(0xFF), bus.Baud())
	assert.Equal(t, core.TWICtrlAEnable, bus.MCTRLA())
}

func TestScanFindsDevice(t *testing.T) {
	for _, addr := range []core.I2CAddress{0x00, 0x3C, 0x50, 0x7F} {
		m, bus := newMaster(t, sim.NewProbe(addr))

		found, ok := m.Scan()
		require.True(t, ok, "addr %#x", addr)
		assert.Equal(t, addr, found)

		acked := 0
		for _, e := range bus.Trace() {
			if e.Kind == sim.EvStart && e.Acked {
				acked++
				assert.Equal(t, addr, e.Addr)
			}
		}
		assert.Equal(t, 1, acked)
		assert.True(t, bus.Idle())
	}
}

func TestScanEmptyBus(t *testing.T) {
	m, bus := newMaster(t)

	_, ok := m.Scan()
	assert.False(t, ok)

	starts := 0
	for _, e := range bus.Trace() {
		if e.Kind == sim.EvStart {
			starts++
			assert.False(t, e.Acked)
		}
	}
	assert.Equal(t, 128, starts)
}

func TestScanAll(t *testing.T) {
	m, _ := newMaster(t, sim.NewProbe(0x20), sim.NewProbe(0x3C), sim.NewProbe(0x68))
	assert.Equal(t, []core.I2CAddress{0x20, 0x3C, 0x68}, m.ScanAll())
}

func TestStartNak(t *testing.T) {
	m, _ := newMaster(t)

	assert.False(t, m.Start(0x42, 0))
	assert.ErrorIs(t, m.LastError(), core.ErrNoAck)
	m.Stop()
}

func TestStartArbitrationLost(t *testing.T) {
	core.ClearBusEvents()
	dev := sim.NewRegisterDevice(0x50)
	m, bus := newMaster(t, dev)

	bus.LoseArbitrationNext()
	assert.False(t, m.Start(0x50, 0))
	assert.ErrorIs(t, m.LastError(), core.ErrArbitrationLost)
	assert.Zero(t, dev.Starts, "device must not be addressed")

	events := core.BusEvents()
	require.Len(t, events, 1)
	assert.Equal(t, uint8(core.EvtArbLost), events[0].EventType)
	assert.Equal(t, uint8(0x50), events[0].Addr)

	// No retry: the next start goes through
	m.Stop()
	assert.True(t, m.Start(0x50, 0))
	m.Stop()
}

func TestReadAckSequence(t *testing.T) {
	for n := 1; n <= 5; n++ {
		dev := sim.NewRegisterDevice(0x50)
		for i := range dev.Mem {
			dev.Mem[i] = byte(i)
		}
		m, _ := newMaster(t, dev)

		require.True(t, m.Start(0x50, uint8(n)))
		for i := 0; i < n; i++ {
			assert.Equal(t, byte(i), m.Read())
		}
		m.Stop()

		want := make([]bool, n)
		for i := 0; i < n-1; i++ {
			want[i] = true
		}
		assert.Equal(t, want, dev.AckLog, "read of %d bytes", n)
	}
}

func TestReadLastForcesNak(t *testing.T) {
	dev := sim.NewRegisterDevice(0x50)
	m, _ := newMaster(t, dev)

	require.True(t, m.Start(0x50, 10))
	m.Read()
	m.ReadLast()
	m.Stop()

	assert.Equal(t, []bool{true, false}, dev.AckLog)
}

func TestWriteBytesShortCircuits(t *testing.T) {
	dev := sim.NewRegisterDevice(0x50)
	dev.NakAfter = 2
	m, bus := newMaster(t, dev)

	require.True(t, m.Start(0x50, 0))
	assert.False(t, m.WriteBytes([]byte{0x10, 0xAA, 0xBB, 0xCC}))
	assert.ErrorIs(t, m.LastError(), core.ErrNoAck)
	m.Stop()

	writes := 0
	for _, e := range bus.Trace() {
		if e.Kind == sim.EvWrite {
			writes++
		}
	}
	assert.Equal(t, 3, writes, "no byte may follow the NAK")
	assert.Equal(t, []byte{0x10, 0xAA}, dev.Received)
}

func TestWriteBytesIdempotent(t *testing.T) {
	dev := sim.NewRegisterDevice(0x50)
	m, _ := newMaster(t, dev)
	data := []byte{0x00, 1, 2, 3}

	for i := 0; i < 2; i++ {
		require.True(t, m.Start(0x50, 0))
		assert.True(t, m.WriteBytes(data))
		m.Stop()
	}
	assert.Equal(t, []byte{1, 2, 3}, dev.Mem[:3])
}

func TestRestartBetweenWriteAndRead(t *testing.T) {
	dev := sim.NewRegisterDevice(0x50)
	dev.Mem[0x20] = 0xDE
	dev.Mem[0x21] = 0xAD
	m, bus := newMaster(t, dev)

	require.True(t, m.Start(0x50, 0))
	require.True(t, m.Write(0x20))
	require.True(t, m.Restart(0x50, 2))
	assert.Equal(t, byte(0xDE), m.Read())
	assert.Equal(t, byte(0xAD), m.Read())
	m.Stop()

	assert.Equal(t, []sim.EventKind{
		sim.EvStart, sim.EvWrite, sim.EvStart, sim.EvRead, sim.EvAck, sim.EvRead, sim.EvNak, sim.EvStop,
	}, kinds(bus.Trace()))
	assert.Equal(t, 1, dev.Stops)
}

func TestPollLimitTimesOut(t *testing.T) {
	core.ClearBusEvents()
	bus := sim.NewBus()
	bus.Attach(sim.NewProbe(0x3C))
	m := core.NewTWIMaster(bus)
	require.NoError(t, m.Init(core.TWIConfig{CPUFrequency: 20000000, Frequency: 1000000, PollLimit: 100}))

	bus.Stall(true)
	assert.False(t, m.Start(0x3C, 0))
	assert.ErrorIs(t, m.LastError(), core.ErrBusTimeout)

	events := core.BusEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, uint8(core.EvtTimeout), events[len(events)-1].EventType)
}

func TestAddressByte(t *testing.T) {
	assert.Equal(t, uint8(0x78), core.I2CAddress(0x3C).AddressByte(core.DirWrite))
	assert.Equal(t, uint8(0x79), core.I2CAddress(0x3C).AddressByte(core.DirRead))
	assert.Equal(t, uint8(0xFE), core.I2CAddress(0xFF).AddressByte(core.DirWrite))
}
