package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeader_RoundTripParsing(t *testing.T) {
	rom := buildROM(32*romBankSize, 0x03, 0x00, 0x02) // MBC1+RAM+Battery, 2 banks, 1 RAM bank
	copy(rom[titleStart:titleEnd+1], "DMGCORE TEST")
	rom[destAddr] = 0x01
	rom[versionAddr] = 0x07

	h, err := ParseHeader(rom)
	require.NoError(t, err)
	require.Equal(t, "DMGCORE TEST", h.Title)
	require.Equal(t, MBC1, h.MBC)
	require.True(t, h.Caps.HasRAM)
	require.True(t, h.Caps.HasBattery)
	require.Equal(t, 2, h.ROMBanks)
	require.Equal(t, 1, h.RAMBanks)
	require.EqualValues(t, 0x01, h.Destination)
	require.EqualValues(t, 0x07, h.Version)
}

func TestHeader_ChecksumsRoundTrip(t *testing.T) {
	rom := buildROM(32*romBankSize, 0x00, 0x00, 0x00)
	copy(rom[titleStart:titleEnd+1], "CHECKSUMS")
	rom[headerSumAddr] = ComputeHeaderChecksum(rom)

	sum := ComputeGlobalChecksum(rom)
	rom[globalSumAddr] = byte(sum >> 8)
	rom[globalSumAddr+1] = byte(sum)

	headerOK, globalOK := VerifyChecksums(rom)
	require.True(t, headerOK)
	require.True(t, globalOK)

	rom[titleStart] ^= 0xFF // corrupt a byte covered by both checksums
	headerOK, globalOK = VerifyChecksums(rom)
	require.False(t, headerOK)
	require.False(t, globalOK)
}

func TestHeader_UnsupportedCartTypeRejected(t *testing.T) {
	rom := buildROM(32*romBankSize, 0x05, 0x00, 0x00) // MBC2, not implemented
	_, err := ParseHeader(rom)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestHeader_RomTooSmallRejected(t *testing.T) {
	_, err := New(make([]byte, 0x100))
	require.Error(t, err)
}
