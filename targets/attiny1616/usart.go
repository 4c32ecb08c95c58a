//go:build attiny1616

package main

// USART0 on its default pins, transmit only
const (
	usart0Base    = 0x0800
	usart0TXDATAL = usart0Base + 0x02
	usart0STATUS  = usart0Base + 0x04
	usart0CTRLB   = usart0Base + 0x06
	usart0BAUDL   = usart0Base + 0x08
	usart0BAUDH   = usart0Base + 0x09
	usartDREIF    = 0x20
	usartTXEN     = 0x40

	portBBase   = 0x0420
	portBDIRSET = portBBase + 0x01
	txPin       = 1 << 2 // PB2
)

// debugUART is the io.Writer the trace encoder writes frames to
type debugUART struct{}

func initDebugUART(cpuHz, baud uint32) debugUART {
	div := uint16(uint64(cpuHz) * 64 / (16 * uint64(baud)))
	reg8(portBDIRSET).Set(txPin)
	reg8(usart0BAUDL).Set(uint8(div))
	reg8(usart0BAUDH).Set(uint8(div >> 8))
	reg8(usart0CTRLB).Set(usartTXEN)
	return debugUART{}
}

// Write blocks until every byte is in the transmit buffer
func (debugUART) Write(p []byte) (int, error) {
	for _, b := range p {
		for reg8(usart0STATUS).Get()&usartDREIF == 0 {
		}
		reg8(usart0TXDATAL).Set(b)
	}
	return len(p), nil
}
