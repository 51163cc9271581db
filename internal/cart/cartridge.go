// Package cart models the cartridge slot: a ROM image, optional external
// RAM, and one of the memory-bank-controller variants that decide how the
// CPU-visible 0x0000-0x7FFF/0xA000-0xBFFF windows map onto it.
package cart

const (
	romBankSize = 16 * 1024
	ramBankSize = 8 * 1024
)

// Cartridge is the interface the bus uses to read/write the ROM and
// external-RAM address windows. Writes to ROM addresses are redirected to
// the variant's banking-control registers rather than the ROM image.
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	Header() *Header
	// RAM returns a copy of the external RAM contents for battery saves, or
	// nil if the cartridge has none.
	RAM() []byte
	// LoadRAM restores external RAM from a previous RAM() snapshot.
	LoadRAM(data []byte)
}

// New parses the header and constructs the appropriate MBC wrapper around
// the ROM image. rom must have a length that is a positive multiple of the
// 16 KiB bank size.
func New(rom []byte) (Cartridge, error) {
	if len(rom) == 0 || len(rom)%romBankSize != 0 {
		return nil, ErrNotDivisible
	}

	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}

	var ram []byte
	if h.Caps.HasRAM && h.RAMBanks > 0 {
		ram = make([]byte, h.RAMBanks*ramBankSize)
	}

	switch h.MBC {
	case MBCNone:
		return newNone(rom, h, ram), nil
	case MBC1:
		return newMBC1(rom, h, ram), nil
	case MBC3:
		return newMBC3(rom, h, ram), nil
	case MBC5:
		return newMBC5(rom, h, ram), nil
	default:
		return nil, ErrUnsupportedType
	}
}

// nextPow2Mask returns the bitmask (next-power-of-two - 1) used to wrap a
// bank selector modulo the available bank count, per spec.md §3: "All bank
// numbers are reduced modulo the power-of-two count of available banks".
func nextPow2Mask(count int) int {
	if count <= 1 {
		return 0
	}
	p := 1
	for p < count {
		p <<= 1
	}
	return p - 1
}
