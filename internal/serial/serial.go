// Package serial models the DMG link-cable shift register. Only the
// internal-clock, no-peer behavior is implemented: a transfer always
// completes on its own after 8 shift steps, since no second instance is
// ever attached (see spec.md Non-goals).
package serial

import "github.com/nilsvoss/dmgcore/internal/interrupt"

// Port is the 8-bit shift register plus its control bit.
type Port struct {
	data byte // SB, 0xFF01
	sc   byte // SC, 0xFF02 (bit7 transfer-enable, bit0 clock select)

	transferring bool
	shiftCount   int // 0..8

	out []byte // observable output stream of completed transfer bytes

	irq *interrupt.Controller
}

// New returns an idle Port wired to the shared interrupt controller.
func New(irq *interrupt.Controller) *Port {
	return &Port{irq: irq}
}

// SB returns the current shift-register contents.
func (p *Port) SB() byte { return p.data }

// WriteSB loads the byte to be shifted out on the next transfer.
func (p *Port) WriteSB(v byte) { p.data = v }

// SC returns the control register; unused bits read back as 1.
func (p *Port) SC() byte {
	v := p.sc & 0x81
	if p.transferring {
		v |= 0x80
	}
	return v | 0x7E
}

// WriteSC starts or cancels a transfer. Only the internal clock source is
// modeled: setting bit 7 with bit 0 set starts an 8-step shift; clearing
// bit 7 (or never setting it) returns to idle without an interrupt.
func (p *Port) WriteSC(v byte) {
	p.sc = v & 0x81
	if p.sc&0x81 == 0x81 {
		p.transferring = true
		p.shiftCount = 0
	} else {
		p.transferring = false
	}
}

// Tick advances the shift register by one machine cycle when a transfer is
// in progress.
func (p *Port) Tick() {
	if !p.transferring {
		return
	}
	p.shiftCount++
	if p.shiftCount >= 8 {
		p.transferring = false
		p.sc &^= 0x80
		p.out = append(p.out, p.data)
		p.irq.Request(interrupt.Serial)
	}
}

// Output returns the bytes emitted by completed transfers so far. The
// returned slice shares storage with the Port's own buffer, which is never
// reset (ROM loading,
// persistence and I/O sinks are external collaborators per spec.md).
func (p *Port) Output() []byte { return p.out }
