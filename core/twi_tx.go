package core

import "tinygo.org/x/drivers"

// TWIMaster can be handed to any TinyGo device driver.
var _ drivers.I2C = (*TWIMaster)(nil)

// Tx performs a complete transaction with the device at addr: w is written
// (if non-empty), then r is filled after a repeated start (if non-empty),
// then the bus is stopped. This is the tinygo drivers.I2C contract.
func (m *TWIMaster) Tx(addr uint16, w, r []byte) error {
	if len(r) > 0xFF {
		return ErrReadLength
	}
	a := I2CAddress(addr) & MaxI2CAddress
	m.lastErr = nil

	wrote := false
	if len(w) > 0 || len(r) == 0 {
		if !m.Start(a, 0) || !m.WriteBytes(w) {
			return m.abort()
		}
		wrote = true
	}

	if len(r) > 0 {
		var ok bool
		if wrote {
			ok = m.Restart(a, uint8(len(r)))
		} else {
			ok = m.Start(a, uint8(len(r)))
		}
		if !ok {
			return m.abort()
		}
		for i := range r {
			if i == len(r)-1 {
				r[i] = m.ReadLast()
			} else {
				r[i] = m.Read()
			}
		}
		if m.lastErr != nil {
			return m.abort()
		}
	}

	m.Stop()
	return nil
}

// abort closes a failed transaction and returns the reason
func (m *TWIMaster) abort() error {
	err := m.lastErr
	if err == nil {
		err = ErrNoAck
	}
	m.Stop()
	return err
}

// ReadRegister reads len(buf) bytes starting at register r.
func (m *TWIMaster) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return m.Tx(uint16(addr), []byte{r}, buf)
}

// WriteRegister writes buf starting at register r.
func (m *TWIMaster) WriteRegister(addr uint8, r uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, r)
	w = append(w, buf...)
	return m.Tx(uint16(addr), w, nil)
}
