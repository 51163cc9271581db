// Package ppu implements the DMG picture processor's mode/line state
// machine and its VRAM/OAM access gating. Pixel composition (tile
// fetching, sprite priority, the actual framebuffer) is an external
// rendering concern per spec.md's Out-of-scope list; this package only
// owns the timing state and the raw video memories a renderer would read.
package ppu

import "github.com/nilsvoss/dmgcore/internal/interrupt"

// Mode is one of the four PPU states exposed through STAT bits 0-1.
type Mode byte

const (
	HBlank Mode = 0
	VBlank Mode = 1
	Scan   Mode = 2
	Draw   Mode = 3
)

const (
	dotsPerLine     = 456
	line0Length     = 452 // spec.md §4.5: line 0 is off by 4
	lastLine        = 153
	firstVBlankLine = 144
)

// PPU holds VRAM, OAM, and the LCDC/STAT/scroll/palette register file plus
// the per-dot timing state.
type PPU struct {
	vram [0x2000]byte
	oam  [0xA0]byte

	lcdc byte
	stat byte // bits 3-6: interrupt selects
	scy  byte
	scx  byte
	ly   byte
	lyc  byte
	bgp  byte
	obp0 byte
	obp1 byte
	wy   byte
	wx   byte

	mode   Mode
	cycles int // dot position within the current line

	dmaActive bool

	irq *interrupt.Controller
}

// New returns a PPU with the DMG power-on register values (LCD on, BG map
// at 0x9800, tile data at 0x8000, BGP=0xFC).
func New(irq *interrupt.Controller) *PPU {
	p := &PPU{irq: irq}
	p.lcdc = 0x91
	p.bgp = 0xFC
	p.mode = HBlank
	return p
}

// --- CPU-facing register/memory access ---

// CPURead serves VRAM, OAM, and the FF40-FF4B register window, applying the
// strict access gating of spec.md §3/§4.5.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.mode == Draw {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if p.mode == Scan || p.mode == Draw || p.dmaActive {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x78) | byte(p.mode) | p.lycBit()
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

func (p *PPU) lycBit() byte {
	if p.ly == p.lyc {
		return 1 << 2
	}
	return 0
}

// CPUWrite serves the same window as CPURead, applying the same gating to
// VRAM/OAM writes.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.mode == Draw {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if p.mode == Scan || p.mode == Draw || p.dmaActive {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		p.writeLCDC(value)
	case addr == 0xFF41:
		p.stat = value & 0x78
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		// LY is read-only on real hardware; writes are ignored.
	case addr == 0xFF45:
		p.lyc = value
		p.checkLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

func (p *PPU) writeLCDC(value byte) {
	wasOn := p.lcdc&0x80 != 0
	p.lcdc = value
	isOn := p.lcdc&0x80 != 0
	if wasOn && !isOn {
		p.ly = 0
		p.cycles = 0
		p.mode = HBlank
		p.checkLYC()
	}
}

// WriteOAMUnchecked bypasses the mode/DMA gating above. It exists solely
// for the bus's OAM-DMA engine, which is itself the only legitimate writer
// of OAM while normal CPU access would be blocked.
func (p *PPU) WriteOAMUnchecked(offset byte, value byte) {
	p.oam[offset] = value
}

// SetDMAActive lets the bus report whether an OAM-DMA transfer is in
// progress, which blocks ordinary OAM reads/writes regardless of mode.
func (p *PPU) SetDMAActive(active bool) { p.dmaActive = active }

// --- timing ---

// Tick advances the PPU by 4 dot-clocks (one machine cycle), per spec.md §4.1.
func (p *PPU) Tick() {
	for i := 0; i < 4; i++ {
		p.tickDot()
	}
}

func (p *PPU) tickDot() {
	if p.lcdc&0x80 == 0 {
		return
	}

	p.cycles++

	lineLength := dotsPerLine
	if p.ly == 0 {
		lineLength = line0Length
	}
	if p.cycles >= lineLength {
		p.cycles = 0
		if p.ly == lastLine {
			p.ly = 0
		} else {
			p.ly++
		}
		p.checkLYC()
	}

	p.setMode(p.computeMode())
}

// computeMode implements the table in spec.md §4.5 exactly.
func (p *PPU) computeMode() Mode {
	switch {
	case p.ly == 0:
		switch {
		case p.cycles < 80:
			return HBlank
		case p.cycles < 252:
			return Draw
		default:
			return HBlank
		}
	case p.ly < firstVBlankLine:
		switch {
		case p.cycles < 4:
			return HBlank
		case p.cycles < 84:
			return Scan
		case p.cycles < 256:
			return Draw
		default:
			return HBlank
		}
	case p.ly == firstVBlankLine:
		if p.cycles < 4 {
			return HBlank
		}
		return VBlank
	default: // ly in 145..153
		return VBlank
	}
}

func (p *PPU) setMode(m Mode) {
	if m == p.mode {
		return
	}
	prev := p.mode
	p.mode = m

	if m == VBlank && prev != VBlank {
		p.irq.Request(interrupt.VBlank)
		if p.stat&(1<<4) != 0 {
			p.irq.Request(interrupt.Stat)
		}
		return
	}
	switch m {
	case HBlank:
		if p.stat&(1<<3) != 0 {
			p.irq.Request(interrupt.Stat)
		}
	case Scan:
		if p.stat&(1<<5) != 0 {
			p.irq.Request(interrupt.Stat)
		}
	}
}

func (p *PPU) checkLYC() {
	if p.ly == p.lyc && p.stat&(1<<6) != 0 {
		p.irq.Request(interrupt.Stat)
	}
}

// Mode returns the PPU's current mode, for tests and host tooling.
func (p *PPU) Mode() Mode { return p.mode }

// LY returns the current scanline.
func (p *PPU) LY() byte { return p.ly }

// Palette/scroll accessors for an external renderer.
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }

// VRAMByte and OAMByte give a renderer or debugger raw, ungated access to
// the underlying memories (bypassing the CPU-facing gating above).
func (p *PPU) VRAMByte(offset uint16) byte { return p.vram[offset] }
func (p *PPU) OAMByte(offset byte) byte    { return p.oam[offset] }
