// Package bus implements the address-space mediator: it owns the
// cartridge, work/high RAM, and references to every other peripheral, and
// fans a single machine-cycle tick out to them in the fixed order spec.md
// §4.1 requires (timer, then OAM-DMA byte, then PPU, then serial) so that
// the timer's APU-clock signal is always visible to the APU within the
// same tick that produced it.
package bus

import (
	"fmt"

	"github.com/nilsvoss/dmgcore/internal/apu"
	"github.com/nilsvoss/dmgcore/internal/cart"
	"github.com/nilsvoss/dmgcore/internal/interrupt"
	"github.com/nilsvoss/dmgcore/internal/ppu"
	"github.com/nilsvoss/dmgcore/internal/serial"
	"github.com/nilsvoss/dmgcore/internal/timer"
)

// Joypad button bitmasks for SetJoypadState. Bits set mean "pressed".
const (
	JoypRight     = 1 << 0
	JoypLeft      = 1 << 1
	JoypUp        = 1 << 2
	JoypDown      = 1 << 3
	JoypA         = 1 << 4
	JoypB         = 1 << 5
	JoypSelectBtn = 1 << 6
	JoypStart     = 1 << 7
)

// Bus wires the CPU-visible 64 KiB address space to the cartridge, the two
// plain RAM regions it owns directly, and the peripherals it delegates to.
type Bus struct {
	cart cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF; 0xE000-0xFDFF is prohibited, not a mirror
	hram [0x7F]byte   // 0xFF80-0xFFFE

	irq    *interrupt.Controller
	timer  *timer.Timer
	serial *serial.Port
	ppu    *ppu.PPU
	apu    *apu.APU

	joypSelect byte
	joypState  byte // Joyp* mask of currently pressed buttons
	joypPrev4  byte // previous active-low lower nibble, for the falling-edge IRQ

	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int
	dmaReg    byte

	bootROM     []byte
	bootEnabled bool
}

// New constructs a Bus around a parsed cartridge, wiring up fresh Timer,
// Serial, PPU, APU and Interrupt Controller instances.
func New(c cart.Cartridge) *Bus {
	irq := interrupt.New()
	return &Bus{
		cart:   c,
		irq:    irq,
		timer:  timer.New(irq),
		serial: serial.New(irq),
		ppu:    ppu.New(irq),
		apu:    apu.New(),
	}
}

// PPU, APU, Cart and Interrupt expose the owned peripherals for
// rendering, persistence, and the CPU's interrupt-dispatch step.
func (b *Bus) PPU() *ppu.PPU                  { return b.ppu }
func (b *Bus) APU() *apu.APU                  { return b.apu }
func (b *Bus) Cart() cart.Cartridge           { return b.cart }
func (b *Bus) Interrupt() *interrupt.Controller { return b.irq }

// SerialOutput returns the bytes emitted by completed serial transfers so far.
func (b *Bus) SerialOutput() []byte { return b.serial.Output() }

// Read serves a pure, side-effect-free CPU read.
func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < 0x0100 && len(b.bootROM) >= 0x100 {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr >= 0xE000 && addr <= 0xFDFF, addr >= 0xFEA0 && addr <= 0xFEFF:
		panic(fmt.Sprintf("bus: use of prohibited address $%04X is fatal", addr))
	case addr >= 0xFE00 && addr <= 0xFE9F:
		return b.ppu.CPURead(addr)
	case addr == 0xFF00:
		return b.readJoyp()
	case addr == 0xFF01:
		return b.serial.SB()
	case addr == 0xFF02:
		return b.serial.SC()
	case addr == 0xFF04:
		return b.timer.DIV()
	case addr == 0xFF05:
		return b.timer.TIMA()
	case addr == 0xFF06:
		return b.timer.TMA()
	case addr == 0xFF07:
		return b.timer.TAC()
	case addr == 0xFF0F:
		return b.irq.ReadIF()
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return b.apu.CPURead(addr)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		if addr == 0xFF46 {
			return b.dmaReg
		}
		return b.ppu.CPURead(addr)
	case addr == 0xFF50:
		return 0xFF
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFFFF:
		return b.irq.ReadIE()
	default:
		return 0xFF
	}
}

// Write serves a CPU write, routing into the I/O sub-ranges in the fixed
// order spec.md §4.1 names.
func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr >= 0xC000 && addr <= 0xDFFF:
		b.wram[addr-0xC000] = value
	case addr >= 0xE000 && addr <= 0xFDFF, addr >= 0xFEA0 && addr <= 0xFEFF:
		panic(fmt.Sprintf("bus: use of prohibited address $%04X is fatal", addr))
	case addr >= 0xFE00 && addr <= 0xFE9F:
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF00:
		b.joypSelect = value & 0x30
		b.updateJoypadIRQ()
	case addr == 0xFF01:
		b.serial.WriteSB(value)
	case addr == 0xFF02:
		b.serial.WriteSC(value)
	case addr == 0xFF04:
		b.timer.WriteDIV()
	case addr == 0xFF05:
		b.timer.WriteTIMA(value)
	case addr == 0xFF06:
		b.timer.WriteTMA(value)
	case addr == 0xFF07:
		b.timer.WriteTAC(value)
	case addr == 0xFF0F:
		b.irq.WriteIF(value)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		b.apu.CPUWrite(addr, value)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		if addr == 0xFF46 {
			b.startDMA(value)
			return
		}
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF50:
		if value != 0 {
			b.bootEnabled = false
		}
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFFFF:
		b.irq.WriteIE(value)
	}
}

func (b *Bus) startDMA(page byte) {
	b.dmaReg = page
	b.dmaActive = true
	b.dmaSrc = uint16(page) << 8
	b.dmaIndex = 0
	b.ppu.SetDMAActive(true)
}

// Tick advances every peripheral by one machine cycle, in the order the
// timer's APU-clock signal requires: timer first, then one OAM-DMA byte,
// then the PPU by 4 dots, then the serial shift register.
func (b *Bus) Tick() {
	b.timer.Tick()
	b.apu.Tick(b.timer.ApuTicked())

	if b.dmaActive {
		// Source pages above 0xDF copy nothing; the transfer still runs its 160 cycles.
		if b.dmaReg <= 0xDF {
			v := b.dmaByte(b.dmaSrc + uint16(b.dmaIndex))
			b.ppu.WriteOAMUnchecked(byte(b.dmaIndex), v)
		}
		b.dmaIndex++
		if b.dmaIndex >= 0xA0 {
			b.dmaActive = false
			b.ppu.SetDMAActive(false)
		}
	}

	b.ppu.Tick()
	b.serial.Tick()
}

// dmaByte reads a DMA source byte directly, bypassing the normal OAM gate
// (DMA's own in-flight read of cartridge/WRAM/VRAM is otherwise ordinary).
// OAM DMA never faults on the prohibited ranges: Tick calls this only for
// source pages 0x00-0xDF and skips the copy for higher pages, so the
// CPU-side fault path is never reached.
func (b *Bus) dmaByte(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.VRAMByte(addr - 0x8000)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	default:
		return 0xFF
	}
}

// PendingInterrupt reports the highest-priority requested+enabled
// interrupt, or interrupt.None.
func (b *Bus) PendingInterrupt() interrupt.Kind { return b.irq.Pending() }

// AnyInterruptRequested reports whether IF&IE is nonzero, irrespective of
// IME.
func (b *Bus) AnyInterruptRequested() bool { return b.irq.AnyRequested() }

// Acknowledge clears the IF bit for the given interrupt.
func (b *Bus) Acknowledge(k interrupt.Kind) { b.irq.Acknowledge(k) }

// SetBootROM loads a 256-byte DMG boot ROM to be overlaid at 0x0000-0x00FF
// until a nonzero write to 0xFF50 disables it.
func (b *Bus) SetBootROM(data []byte) {
	b.bootROM = nil
	b.bootEnabled = false
	if len(data) >= 0x100 {
		b.bootROM = make([]byte, 0x100)
		copy(b.bootROM, data[:0x100])
		b.bootEnabled = true
	}
}

// SetJoypadState sets which buttons are currently pressed (Joyp* mask,
// set bit = pressed) and raises the Joypad interrupt on any newly-pressed
// button that the current selection exposes.
func (b *Bus) SetJoypadState(mask byte) {
	b.joypState = mask
	b.updateJoypadIRQ()
}

func (b *Bus) readJoyp() byte {
	res := byte(0xC0 | (b.joypSelect & 0x30) | 0x0F)
	if b.joypSelect&0x10 == 0 {
		if b.joypState&JoypRight != 0 {
			res &^= 0x01
		}
		if b.joypState&JoypLeft != 0 {
			res &^= 0x02
		}
		if b.joypState&JoypUp != 0 {
			res &^= 0x04
		}
		if b.joypState&JoypDown != 0 {
			res &^= 0x08
		}
	}
	if b.joypSelect&0x20 == 0 {
		if b.joypState&JoypA != 0 {
			res &^= 0x01
		}
		if b.joypState&JoypB != 0 {
			res &^= 0x02
		}
		if b.joypState&JoypSelectBtn != 0 {
			res &^= 0x04
		}
		if b.joypState&JoypStart != 0 {
			res &^= 0x08
		}
	}
	return res
}

func (b *Bus) updateJoypadIRQ() {
	lower := b.readJoyp() & 0x0F
	falling := b.joypPrev4 &^ lower
	if falling != 0 {
		b.irq.Request(interrupt.Joypad)
	}
	b.joypPrev4 = lower
}
