package cart

import (
	"encoding/binary"
	"errors"
	"strings"
)

// Construction errors. Checked with errors.Is by callers that want to
// distinguish failure kinds without string matching.
var (
	ErrNotDivisible      = errors.New("cart: rom length not divisible into 16KiB banks")
	ErrUnsupportedType   = errors.New("cart: unsupported cartridge type code")
	ErrInvalidRomSize    = errors.New("cart: invalid rom size code")
	ErrInvalidRamSize    = errors.New("cart: invalid ram size code")
	ErrHeaderChecksumBad = errors.New("cart: header checksum mismatch")
	ErrGlobalChecksumBad = errors.New("cart: global checksum mismatch")
)

const (
	titleStart    = 0x0134
	titleEnd      = 0x0143
	cgbFlagAddr   = 0x0143
	cartTypeAddr  = 0x0147
	romSizeAddr   = 0x0148
	ramSizeAddr   = 0x0149
	destAddr      = 0x014A
	versionAddr   = 0x014C
	headerSumAddr = 0x014D
	globalSumAddr = 0x014E
)

// MBCKind identifies which banking controller a cartridge-type code maps to.
type MBCKind int

const (
	MBCNone MBCKind = iota
	MBC1
	MBC3
	MBC5
)

// Capabilities describes auxiliary hardware implied by the cartridge-type code.
type Capabilities struct {
	HasRAM     bool
	HasBattery bool
	HasRTC     bool
	HasRumble  bool
}

// Header is the parsed, fixed-layout cartridge header.
type Header struct {
	Title          string
	IsColor        bool // CGB flag bit 7 set (0x80 or 0xC0)
	CartType       byte
	MBC            MBCKind
	Caps           Capabilities
	ROMBanks       int
	RAMBanks       int
	Destination    byte
	Version        byte
	HeaderChecksum byte
	GlobalChecksum uint16
}

// romBankCount maps size codes 0-8 to bank counts, per spec.md §6: 1 << (code+1).
func romBankCount(code byte) (int, error) {
	if code > 8 {
		return 0, ErrInvalidRomSize
	}
	return 1 << (code + 1), nil
}

// ramBankCount maps size codes to bank counts: 0/2/3/4/5 -> 0/1/4/16/8.
func ramBankCount(code byte) (int, error) {
	switch code {
	case 0x00:
		return 0, nil
	case 0x02:
		return 1, nil
	case 0x03:
		return 4, nil
	case 0x04:
		return 16, nil
	case 0x05:
		return 8, nil
	default:
		return 0, ErrInvalidRamSize
	}
}

// rumbleTypes are the cartridge-type codes that include a rumble motor.
var rumbleTypes = map[byte]bool{0x1C: true, 0x1D: true, 0x1E: true}

// mbcForType maps a cartridge-type code to its MBC variant and capability
// flags. Codes outside these ranges (including MBC2's 0x05/0x06, which is
// not one of the four implemented variants) are unsupported — see
// DESIGN.md for why MBC2 is deliberately excluded.
func mbcForType(code byte) (MBCKind, Capabilities, error) {
	switch code {
	case 0x00:
		return MBCNone, Capabilities{}, nil
	case 0x08:
		return MBCNone, Capabilities{HasRAM: true}, nil
	case 0x09:
		return MBCNone, Capabilities{HasRAM: true, HasBattery: true}, nil
	case 0x01:
		return MBC1, Capabilities{}, nil
	case 0x02:
		return MBC1, Capabilities{HasRAM: true}, nil
	case 0x03:
		return MBC1, Capabilities{HasRAM: true, HasBattery: true}, nil
	case 0x0F:
		return MBC3, Capabilities{HasBattery: true, HasRTC: true}, nil
	case 0x10:
		return MBC3, Capabilities{HasRAM: true, HasBattery: true, HasRTC: true}, nil
	case 0x11:
		return MBC3, Capabilities{}, nil
	case 0x12:
		return MBC3, Capabilities{HasRAM: true}, nil
	case 0x13:
		return MBC3, Capabilities{HasRAM: true, HasBattery: true}, nil
	case 0x19, 0x1C:
		return MBC5, Capabilities{}, nil
	case 0x1A, 0x1D:
		return MBC5, Capabilities{HasRAM: true}, nil
	case 0x1B, 0x1E:
		return MBC5, Capabilities{HasRAM: true, HasBattery: true}, nil
	default:
		return 0, Capabilities{}, ErrUnsupportedType
	}
}

// ParseHeader reads the fixed-layout header out of a ROM image. The image
// must already be validated as a positive multiple of 16 KiB by the caller
// (New does this before calling ParseHeader).
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) <= globalSumAddr+1 {
		return nil, ErrInvalidRomSize
	}

	romBanks, err := romBankCount(rom[romSizeAddr])
	if err != nil {
		return nil, err
	}
	ramBanks, err := ramBankCount(rom[ramSizeAddr])
	if err != nil {
		return nil, err
	}

	cartType := rom[cartTypeAddr]
	mbc, caps, err := mbcForType(cartType)
	if err != nil {
		return nil, err
	}
	if rumbleTypes[cartType] {
		caps.HasRumble = true
	}

	title := strings.TrimRight(string(rom[titleStart:titleEnd+1]), "\x00")
	// Newer cartridges overlay the CGB flag onto the last title byte; keep
	// only plain ASCII for display purposes.
	title = strings.Map(func(r rune) rune {
		if r >= 0x20 && r < 0x7F {
			return r
		}
		return -1
	}, title)

	h := &Header{
		Title:          title,
		IsColor:        rom[cgbFlagAddr]&0x80 != 0,
		CartType:       cartType,
		MBC:            mbc,
		Caps:           caps,
		ROMBanks:       romBanks,
		RAMBanks:       ramBanks,
		Destination:    rom[destAddr],
		Version:        rom[versionAddr],
		HeaderChecksum: rom[headerSumAddr],
		GlobalChecksum: binary.BigEndian.Uint16(rom[globalSumAddr : globalSumAddr+2]),
	}
	return h, nil
}

// ComputeHeaderChecksum implements spec.md §6: x = 0; for b in
// rom[0x134..=0x14C]: x = x - b - 1.
func ComputeHeaderChecksum(rom []byte) byte {
	var x byte
	for addr := titleStart; addr <= versionAddr; addr++ {
		x = x - rom[addr] - 1
	}
	return x
}

// ComputeGlobalChecksum sums every byte of the image except the two global
// checksum bytes themselves.
func ComputeGlobalChecksum(rom []byte) uint16 {
	var sum uint16
	for i, b := range rom {
		if i == globalSumAddr || i == globalSumAddr+1 {
			continue
		}
		sum += uint16(b)
	}
	return sum
}

// VerifyChecksums reports whether the stored header/global checksums match
// the computed values. Per spec.md §7 this is informational, not fatal —
// callers decide whether to proceed on mismatch.
func VerifyChecksums(rom []byte) (headerOK, globalOK bool) {
	headerOK = ComputeHeaderChecksum(rom) == rom[headerSumAddr]
	globalOK = ComputeGlobalChecksum(rom) == binary.BigEndian.Uint16(rom[globalSumAddr:globalSumAddr+2])
	return
}
