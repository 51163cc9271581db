package ppu

import (
	"testing"

	"github.com/nilsvoss/dmgcore/internal/interrupt"
)

func newTestPPU() (*PPU, *interrupt.Controller) {
	irq := interrupt.New()
	return New(irq), irq
}

// tick advances p by n dot-clocks (Tick itself advances four per call).
func tick(p *PPU, n int) {
	for i := 0; i < n; i++ {
		p.tickDot()
	}
}

func TestPPU_ModeSequence_Line0(t *testing.T) {
	p, _ := newTestPPU()

	// Line 0 skips Scan mode entirely (spec.md §4.5 off-by-4 quirk): HBlank
	// for the first 80 dots, Draw for 172, HBlank for the remaining 200,
	// over a 452-dot line rather than the usual 456.
	if p.Mode() != HBlank {
		t.Fatalf("initial mode got %v want HBlank", p.Mode())
	}
	tick(p, 79)
	if p.Mode() != HBlank {
		t.Fatalf("mode at dot79 got %v want HBlank", p.Mode())
	}
	tick(p, 1)
	if p.Mode() != Draw {
		t.Fatalf("mode at dot80 got %v want Draw", p.Mode())
	}
	tick(p, 171)
	if p.Mode() != Draw {
		t.Fatalf("mode at dot251 got %v want Draw", p.Mode())
	}
	tick(p, 1)
	if p.Mode() != HBlank {
		t.Fatalf("mode at dot252 got %v want HBlank", p.Mode())
	}
	if p.LY() != 0 {
		t.Fatalf("LY got %d want 0", p.LY())
	}

	// 452 total dots on line 0.
	tick(p, 200)
	if p.LY() != 1 {
		t.Fatalf("LY after line0 got %d want 1", p.LY())
	}
}

func TestPPU_ModeSequence_NormalLine(t *testing.T) {
	p, _ := newTestPPU()
	tick(p, 452) // finish line 0, land at start of line 1

	if p.LY() != 1 {
		t.Fatalf("LY got %d want 1", p.LY())
	}
	if p.Mode() != HBlank {
		t.Fatalf("mode at start of line1 got %v want HBlank (pre-scan quirk dots)", p.Mode())
	}
	tick(p, 4)
	if p.Mode() != Scan {
		t.Fatalf("mode at dot4 got %v want Scan", p.Mode())
	}
	tick(p, 80)
	if p.Mode() != Draw {
		t.Fatalf("mode at dot84 got %v want Draw", p.Mode())
	}
	tick(p, 172)
	if p.Mode() != HBlank {
		t.Fatalf("mode at dot256 got %v want HBlank", p.Mode())
	}
	tick(p, 200)
	if p.LY() != 2 {
		t.Fatalf("LY after line1 got %d want 2", p.LY())
	}
}

func TestPPU_VBlankEntryRaisesIRQ(t *testing.T) {
	p, irq := newTestPPU()

	tick(p, 452)        // line 0
	tick(p, 456*143)    // lines 1..143

	if p.LY() != 144 {
		t.Fatalf("LY got %d want 144", p.LY())
	}
	if p.Mode() != HBlank {
		t.Fatalf("mode just before vblank got %v want HBlank", p.Mode())
	}

	tick(p, 4)
	if p.Mode() != VBlank {
		t.Fatalf("mode at vblank entry got %v want VBlank", p.Mode())
	}
	if irq.ReadIF()&0x01 == 0 {
		t.Fatalf("VBlank IF bit not set on vblank entry")
	}
}

func TestPPU_VBlankWrapsToLine0(t *testing.T) {
	p, _ := newTestPPU()
	tick(p, 452+456*153) // line 0 + lines 1..153 (144..153 all VBlank, 456 dots each)
	if p.LY() != 0 {
		t.Fatalf("LY after full frame got %d want 0", p.LY())
	}
	if p.Mode() != HBlank {
		t.Fatalf("mode back at line0 start got %v want HBlank", p.Mode())
	}
}

func TestPPU_LYCMatchRaisesStatIRQ(t *testing.T) {
	p, irq := newTestPPU()
	p.CPUWrite(0xFF45, 1) // LYC=1
	p.CPUWrite(0xFF41, 1<<6) // enable LYC=LY STAT source

	tick(p, 452) // reach LY=1, checkLYC runs on the line transition
	if p.LY() != 1 {
		t.Fatalf("LY got %d want 1", p.LY())
	}
	if irq.ReadIF()&0x02 == 0 {
		t.Fatalf("STAT IF not set on LYC match")
	}
	stat := p.CPURead(0xFF41)
	if stat&(1<<2) == 0 {
		t.Fatalf("STAT coincidence flag not set, got %02X", stat)
	}
}

func TestPPU_VRAMGatedDuringDraw(t *testing.T) {
	p, _ := newTestPPU()
	tick(p, 80) // enter Draw on line 0
	if p.Mode() != Draw {
		t.Fatalf("setup: mode got %v want Draw", p.Mode())
	}

	p.CPUWrite(0x8000, 0xAB) // must be dropped
	if got := p.CPURead(0x8000); got != 0xFF {
		t.Fatalf("VRAM read during Draw got %02X want FF", got)
	}

	tick(p, 172) // HBlank
	if p.Mode() != HBlank {
		t.Fatalf("expected HBlank, got %v", p.Mode())
	}
	if got := p.CPURead(0x8000); got != 0x00 {
		t.Fatalf("VRAM value changed despite blocked write: got %02X want 00", got)
	}
	p.CPUWrite(0x8000, 0xCD)
	if got := p.CPURead(0x8000); got != 0xCD {
		t.Fatalf("VRAM write during HBlank not applied: got %02X", got)
	}
}

func TestPPU_OAMGatedDuringScanAndDMA(t *testing.T) {
	p, _ := newTestPPU()
	tick(p, 452) // line 1, dot 0 (HBlank quirk window)
	tick(p, 4)   // dot 4: Scan begins
	if p.Mode() != Scan {
		t.Fatalf("setup: mode got %v want Scan", p.Mode())
	}
	p.CPUWrite(0xFE00, 0x11)
	if got := p.CPURead(0xFE00); got != 0xFF {
		t.Fatalf("OAM read during Scan got %02X want FF", got)
	}

	tick(p, 80) // Draw
	p.CPUWrite(0xFE00, 0x22)
	if got := p.CPURead(0xFE00); got != 0xFF {
		t.Fatalf("OAM read during Draw got %02X want FF", got)
	}

	tick(p, 172) // HBlank
	p.SetDMAActive(true)
	if got := p.CPURead(0xFE00); got != 0xFF {
		t.Fatalf("OAM read during active DMA got %02X want FF", got)
	}
	p.WriteOAMUnchecked(0, 0x33)
	p.SetDMAActive(false)
	if got := p.CPURead(0xFE00); got != 0x33 {
		t.Fatalf("OAM byte written via DMA path got %02X want 33", got)
	}
}

func TestPPU_LCDOffResetsLineAndMode(t *testing.T) {
	p, _ := newTestPPU()
	tick(p, 100) // mid-line, Draw mode
	p.CPUWrite(0xFF40, p.LCDC()&^0x80) // LCD off
	if p.LY() != 0 || p.Mode() != HBlank {
		t.Fatalf("LCD-off reset got LY=%d mode=%v, want LY=0 mode=HBlank", p.LY(), p.Mode())
	}
	tick(p, 1000) // ticking while off must not advance state
	if p.LY() != 0 || p.Mode() != HBlank {
		t.Fatalf("ticking while LCD off advanced state: LY=%d mode=%v", p.LY(), p.Mode())
	}
}
