package sim

import "simon/core"

// SSD1306 geometry
const (
	PanelColumns = 128
	PanelPages   = 8
)

// argCount is the number of argument bytes following each SSD1306 command
var argCount = map[byte]int{
	0x20: 1, // memory addressing mode
	0x21: 2, // column window
	0x22: 2, // page window
	0x81: 1, // contrast
	0x8D: 1, // charge pump
	0xA8: 1, // multiplex ratio
	0xD3: 1, // display offset
	0xD5: 1, // clock divide
	0xD9: 1, // precharge
	0xDA: 1, // COM pins
	0xDB: 1, // VCOMH deselect
}

// Window is one data stream the panel received.
type Window struct {
	Col0, Col1   uint8
	Page0, Page1 uint8
	Data         []byte
}

type panelMode uint8

const (
	modeControl panelMode = iota
	modeCommand
	modeData
	modeSingleCommand
	modeSingleData
)

// Panel models an SSD1306 controller in horizontal addressing mode. Commands
// may be split over several transactions, as the controller keeps its
// command parser state across stop conditions.
type Panel struct {
	addr   core.I2CAddress
	width  uint8
	height uint8

	gddram [PanelPages][PanelColumns]byte
	mode   panelMode

	pending  []byte
	commands [][]byte
	windows  []Window

	col0, col1   uint8
	page0, page1 uint8
	col, page    uint8

	On       bool
	Inverted bool
	Contrast uint8
	Mux      uint8
}

// NewPanel creates a panel of the given size at addr.
func NewPanel(addr core.I2CAddress, width, height uint8) *Panel {
	return &Panel{
		addr:   addr,
		width:  width,
		height: height,
		col1:   PanelColumns - 1,
		page1:  PanelPages - 1,
	}
}

// Address implements Device.
func (p *Panel) Address() core.I2CAddress {
	return p.addr
}

// Start implements Device. The controller does not support reads over I2C.
func (p *Panel) Start(read bool) bool {
	p.mode = modeControl
	return !read
}

// Write implements Device.
func (p *Panel) Write(b byte) bool {
	switch p.mode {
	case modeControl:
		continuation := b&0x80 != 0
		data := b&0x40 != 0
		switch {
		case data && continuation:
			p.mode = modeSingleData
		case data:
			p.mode = modeData
			p.windows = append(p.windows, Window{
				Col0: p.col0, Col1: p.col1,
				Page0: p.page0, Page1: p.page1,
			})
		case continuation:
			p.mode = modeSingleCommand
		default:
			p.mode = modeCommand
		}
	case modeCommand:
		p.command(b)
	case modeSingleCommand:
		p.command(b)
		p.mode = modeControl
	case modeData:
		w := &p.windows[len(p.windows)-1]
		w.Data = append(w.Data, b)
		p.store(b)
	case modeSingleData:
		p.store(b)
		p.mode = modeControl
	}
	return true
}

func (p *Panel) Read() byte   { return 0xFF }
func (p *Panel) Ack(ack bool) {}
func (p *Panel) Stop()        { p.mode = modeControl }

// command feeds one byte to the command parser
func (p *Panel) command(b byte) {
	p.pending = append(p.pending, b)
	if len(p.pending)-1 < argCount[p.pending[0]] {
		return
	}
	cmd := p.pending
	p.pending = nil
	p.commands = append(p.commands, cmd)

	switch op := cmd[0]; {
	case op == 0x21:
		p.col0, p.col1 = cmd[1]&0x7F, cmd[2]&0x7F
		p.col = p.col0
	case op == 0x22:
		p.page0, p.page1 = cmd[1]&0x07, cmd[2]&0x07
		p.page = p.page0
	case op == 0x81:
		p.Contrast = cmd[1]
	case op == 0xA8:
		p.Mux = cmd[1]
	case op == 0xAE || op == 0xAF:
		p.On = op == 0xAF
	case op == 0xA6 || op == 0xA7:
		p.Inverted = op == 0xA7
	}
}

// store writes one GDDRAM byte and advances the horizontal address
func (p *Panel) store(b byte) {
	p.gddram[p.page][p.col] = b
	if p.col < p.col1 {
		p.col++
		return
	}
	p.col = p.col0
	if p.page < p.page1 {
		p.page++
	} else {
		p.page = p.page0
	}
}

// Commands returns every complete command received, with its arguments.
func (p *Panel) Commands() [][]byte {
	return p.commands
}

// Windows returns every data stream received, with the window it wrote.
func (p *Panel) Windows() []Window {
	return p.windows
}

// ResetLog clears the command and window logs.
func (p *Panel) ResetLog() {
	p.commands = nil
	p.windows = nil
}

// Size returns the panel dimensions in pixels.
func (p *Panel) Size() (width, height uint8) {
	return p.width, p.height
}

// Column returns the GDDRAM byte at controller column col of page.
func (p *Panel) Column(page, col uint8) byte {
	return p.gddram[page%PanelPages][col%PanelColumns]
}

// Pixel reports whether the visible pixel at x, y is lit, honouring the
// 32-column shift of 64-pixel-wide panels and display inversion.
func (p *Panel) Pixel(x, y int) bool {
	if x < 0 || y < 0 || x >= int(p.width) || y >= int(p.height) {
		return false
	}
	col := x
	if p.width == 64 {
		col += 32
	}
	lit := p.gddram[y/8][col]&(1<<uint(y%8)) != 0
	return lit != p.Inverted
}
