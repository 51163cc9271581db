// Package core wires a parsed cartridge, an address bus, and a CPU into
// the single machine the host drives one instruction at a time. Per the
// core's scope, it exposes Step plus register/memory inspection hooks;
// ROM loading, persistence, rendering, audio output and input sourcing are
// external collaborators.
package core

import (
	"fmt"
	"log/slog"

	"github.com/nilsvoss/dmgcore/internal/bus"
	"github.com/nilsvoss/dmgcore/internal/cart"
	"github.com/nilsvoss/dmgcore/internal/cpu"
)

// Machine is a fully wired DMG core: cartridge, bus, and CPU.
type Machine struct {
	cart cart.Cartridge
	bus  *bus.Bus
	cpu  *cpu.CPU
	log  *slog.Logger
}

// Option configures a Machine at construction time.
type Option func(*Machine)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// New parses rom, constructs its cartridge/MBC, and wires a fresh bus and
// CPU in the documented power-on state. Checksum mismatches are logged,
// not fatal, per spec.md §7.
func New(rom []byte, opts ...Option) (*Machine, error) {
	c, err := cart.New(rom)
	if err != nil {
		return nil, fmt.Errorf("core: construct cartridge: %w", err)
	}

	m := &Machine{cart: c, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}

	m.bus = bus.New(c)
	m.cpu = cpu.New(m.bus)

	if headerOK, globalOK := cart.VerifyChecksums(rom); !headerOK || !globalOK {
		m.log.Warn("cartridge checksum mismatch",
			"title", c.Header().Title, "header_ok", headerOK, "global_ok", globalOK)
	}

	return m, nil
}

// SetBootROM overlays a 256-byte DMG boot ROM at 0x0000-0x00FF and resets
// the CPU to the pre-boot power-on state so the boot ROM can run first.
func (m *Machine) SetBootROM(data []byte) error {
	if len(data) < 0x100 {
		return fmt.Errorf("core: boot rom must be at least 256 bytes, got %d", len(data))
	}
	m.bus.SetBootROM(data)
	m.cpu = cpu.New(m.bus)
	m.cpu.SetPC(0x0000)
	m.cpu.SetSP(0xFFFE)
	return nil
}

// Step performs one CPU step: an interrupt dispatch when one is taken,
// otherwise one instruction (or one idle tick while halted).
func (m *Machine) Step() { m.cpu.Step() }

// StepN runs up to n Step calls, stopping early and returning true once
// until reports done; otherwise it returns whether until reports done after
// the last step (useful for a host's run loop without exposing cpu.CPU).
func (m *Machine) StepN(n int, until func() bool) bool {
	for i := 0; i < n; i++ {
		if until != nil && until() {
			return true
		}
		m.Step()
	}
	return until != nil && until()
}

// Header returns the parsed cartridge header.
func (m *Machine) Header() *cart.Header { return m.cart.Header() }

// PeekByte reads a byte through the bus without side effects on CPU state
// (bus reads do not tick peripherals).
func (m *Machine) PeekByte(addr uint16) byte { return m.bus.Read(addr) }

// SetJoypadState reports which buttons are currently pressed (bus.Joyp*
// mask, set bit = pressed).
func (m *Machine) SetJoypadState(mask byte) { m.bus.SetJoypadState(mask) }

// SerialOutput returns the bytes emitted by completed serial transfers so far.
func (m *Machine) SerialOutput() []byte { return m.bus.SerialOutput() }

// Registers is a point-in-time snapshot of CPU state for inspection/tests.
type Registers struct {
	A, F    byte
	B, C    byte
	D, E    byte
	H, L    byte
	SP, PC  uint16
	IME     bool
	Halted  bool
}

// Registers returns the CPU's current register snapshot.
func (m *Machine) Registers() Registers {
	return Registers{
		A: m.cpu.A, F: m.cpu.F,
		B: m.cpu.B, C: m.cpu.C,
		D: m.cpu.D, E: m.cpu.E,
		H: m.cpu.H, L: m.cpu.L,
		SP: m.cpu.SP, PC: m.cpu.PC,
		IME: m.cpu.IME, Halted: m.cpu.Halted(),
	}
}

// Bus exposes the underlying bus for host tooling that needs direct
// PPU/APU/cartridge access (a renderer, a mixer, a battery-save writer).
func (m *Machine) Bus() *bus.Bus { return m.bus }
