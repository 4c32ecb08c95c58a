package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// BusEvent captures a bus fault for post-mortem analysis
type BusEvent struct {
	EventType uint8  // Event type code
	Addr      uint8  // Address or data byte involved
	Clock     uint32 // Milliseconds at event (0 without a trace clock)
	Status    uint8  // MSTATUS (or wait mask for timeouts)
}

// Event type codes
const (
	EvtNak     = 1 // data byte not acknowledged
	EvtArbLost = 2 // arbitration lost or bus error at address phase
	EvtTimeout = 3 // bounded wait gave up
)

const (
	BusRingSize = 16 // Keep last 16 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Bus event ring buffer (non-blocking, for post-mortem)
	busRing     [BusRingSize]BusEvent
	busRingHead uint8
	traceClock  func() uint32
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// SetTraceClock sets the timestamp source for bus events, usually Timebase.Now.
// It must not be called from interrupt context.
func SetTraceClock(clock func() uint32) {
	traceClock = clock
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// recordBusEvent captures a bus fault in the ring buffer.
// Normal context only.
func recordBusEvent(eventType, addr uint8, status uint8) {
	var clock uint32
	if traceClock != nil {
		clock = traceClock()
	}
	idx := busRingHead
	busRing[idx] = BusEvent{
		EventType: eventType,
		Addr:      addr,
		Clock:     clock,
		Status:    status,
	}
	busRingHead = (idx + 1) % BusRingSize
}

// BusEvents returns the recorded bus events, oldest first.
func BusEvents() []BusEvent {
	var events []BusEvent
	start := busRingHead
	for i := uint8(0); i < BusRingSize; i++ {
		evt := busRing[(start+i)%BusRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

// DumpBusEvents outputs the bus event ring (call on shutdown/error)
func DumpBusEvents() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[BUS] === Bus Event Dump ===")
	for _, evt := range BusEvents() {
		var name string
		switch evt.EventType {
		case EvtNak:
			name = "NAK"
		case EvtArbLost:
			name = "ARBLOST"
		case EvtTimeout:
			name = "TIMEOUT"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[BUS] " + name +
			" addr=" + hexByte(evt.Addr) +
			" clock=" + utoa(evt.Clock) +
			" status=" + hexByte(evt.Status))
	}
	debugPrintln("[BUS] === End Dump ===")
}

// ClearBusEvents clears the bus event ring
func ClearBusEvents() {
	for i := range busRing {
		busRing[i] = BusEvent{}
	}
	busRingHead = 0
}
