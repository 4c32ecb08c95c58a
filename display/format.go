package display

import "strconv"

// MaxFormatArg is the largest value DrawFormatted renders.
const MaxFormatArg = 255

// placeholder marks where the next argument is rendered
const placeholder = '%'

// formattedWidth returns the rendered width of format in glyphs, checking
// the argument contract first.
func formattedWidth(format string, args []uint) (int, error) {
	markers := 0
	for i := 0; i < len(format); i++ {
		if format[i] == placeholder {
			markers++
		}
	}
	if markers != len(args) {
		return 0, ErrFormatArgCount
	}

	width := len(format) - markers
	for _, arg := range args {
		if arg > MaxFormatArg {
			return 0, ErrFormatArgRange
		}
		width += decimalDigits(arg)
	}
	return width, nil
}

func decimalDigits(v uint) int {
	switch {
	case v >= 100:
		return 3
	case v >= 10:
		return 2
	default:
		return 1
	}
}

// DrawFormatted renders format at character column col on page row, with
// each '%' replaced by the decimal value of the next argument. Arguments
// must be 0..255 and match the '%' count; otherwise nothing is sent.
// Glyphs past the right edge of the panel are dropped.
func (d *Driver) DrawFormatted(s Surface, col, row uint8, format string, args ...uint) error {
	width, err := formattedWidth(format, args)
	if err != nil {
		return err
	}
	x0, x1, fit := textSpan(s, col, width)
	if fit == 0 {
		return nil
	}

	err = d.beginWindow(s, x0, x1, row, row)

	sent := 0
	acked := true
	emit := func(c byte) {
		if sent < fit {
			acked = d.bus.WriteBytes(Glyph(c)) && acked
			sent++
		}
	}

	var digits [3]byte
	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != placeholder {
			emit(c)
			continue
		}
		for _, digit := range strconv.AppendUint(digits[:0], uint64(args[next]), 10) {
			emit(digit)
		}
		next++
	}
	d.bus.Stop()

	if !acked {
		err = keep(err, ErrNoAck)
	}
	return err
}
