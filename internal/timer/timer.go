// Package timer implements the DMG timer/divider: a 14-bit free-running
// divider, an 8-bit counter clocked by a falling edge picked off one of the
// divider's bits, and the one-cycle reload-delay quirk on TIMA overflow.
package timer

import "github.com/nilsvoss/dmgcore/internal/interrupt"

// clockMasks maps the 2-bit TAC clock-select field to the divider bit that
// gates the counter's falling-edge detector.
var clockMasks = [4]uint16{0x80, 0x02, 0x08, 0x20}

// Timer holds the 14-bit divider, the 8-bit counter/modulo pair, and the
// bookkeeping needed for the overflow-reload quirk.
type Timer struct {
	divider uint16 // free-running 14-bit divider (DIV is the high 8 bits)
	counter byte   // TIMA
	modulo  byte   // TMA
	enabled bool
	clock   byte // 2-bit clock-select (TAC bits 0-1)

	tickSignal    bool // previous divider-bit-gated signal, for edge detection
	audioSignal   bool // previous state of divider bit 10, for the APU clock
	overflow      bool // latched for one cycle after TIMA wraps
	afterOverflow bool // true for exactly one cycle: TIMA writes ignored, TMA writes also hit TIMA

	pendingApuTick bool // one-cycle-wide falling-edge signal consumed by the APU

	irq *interrupt.Controller
}

// New returns a Timer wired to the shared interrupt controller.
func New(irq *interrupt.Controller) *Timer {
	return &Timer{irq: irq}
}

func (t *Timer) signal() bool {
	return t.enabled && t.divider&clockMasks[t.clock] != 0
}

// ApuTicked reports whether the most recent Tick produced a falling edge on
// divider bit 10 (the frame-sequencer clock consumed by the APU).
func (t *Timer) ApuTicked() bool { return t.pendingApuTick }

// Tick advances the timer by one machine cycle (4 dot-clocks). It must run
// before any other peripheral observes the tick, since it produces the
// falling-edge signal the APU's frame sequencer depends on in the same tick.
func (t *Timer) Tick() {
	// Handle a reload scheduled by the previous cycle's overflow before
	// incrementing the divider, so the reload is visible on "the next increment".
	if t.overflow {
		t.counter = t.modulo
		t.irq.Request(interrupt.Timer)
		t.overflow = false
		t.afterOverflow = true
	} else {
		t.afterOverflow = false
	}

	t.divider++

	newBit10 := t.divider&(1<<10) != 0
	t.pendingApuTick = t.audioSignal && !newBit10
	t.audioSignal = newBit10

	newSignal := t.signal()
	if t.tickSignal && !newSignal {
		t.incrementCounter()
	}
	t.tickSignal = newSignal
}

func (t *Timer) incrementCounter() {
	t.counter++
	if t.counter == 0 {
		t.overflow = true
	}
}

// DIV returns the user-visible divider register (upper 8 bits of the
// 14-bit, one-tick-per-M-cycle divider).
func (t *Timer) DIV() byte { return byte(t.divider >> 6) }

// WriteDIV resets the internal divider to zero. A falling edge caused by the
// reset itself still increments TIMA, since edge detection compares against
// the signal from just before the write.
func (t *Timer) WriteDIV() {
	oldSignal := t.signal()
	t.divider = 0
	t.audioSignal = false
	if oldSignal && !t.signal() {
		t.incrementCounter()
	}
	t.tickSignal = t.signal()
}

// TIMA returns the counter. During the overflow cycle itself the counter
// reads back as 0 (it already wrapped); the reload to TMA happens on the
// following Tick.
func (t *Timer) TIMA() byte { return t.counter }

// WriteTIMA sets the counter from a CPU write. During the one-cycle
// after-overflow window the write is ignored per the reload-delay quirk.
func (t *Timer) WriteTIMA(v byte) {
	if t.afterOverflow {
		return
	}
	t.counter = v
	t.overflow = false
}

// TMA returns the reload value.
func (t *Timer) TMA() byte { return t.modulo }

// WriteTMA sets the reload value. During the after-overflow window this
// write also lands in TIMA immediately, matching the quirk where the
// just-reloaded TIMA still observes a same-cycle TMA write.
func (t *Timer) WriteTMA(v byte) {
	t.modulo = v
	if t.afterOverflow {
		t.counter = v
	}
}

// TAC returns the timer control register (readback masks the unused bits).
func (t *Timer) TAC() byte {
	v := t.clock & 0x03
	if t.enabled {
		v |= 0x04
	}
	return v | 0xF8
}

// WriteTAC updates enable + clock-select. Changing either can itself cause
// a falling edge on the counter's gated signal, which increments TIMA.
func (t *Timer) WriteTAC(v byte) {
	oldSignal := t.signal()
	t.enabled = v&0x04 != 0
	t.clock = v & 0x03
	if oldSignal && !t.signal() {
		t.incrementCounter()
	}
	t.tickSignal = t.signal()
}
