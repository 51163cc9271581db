package cpu

// 8-bit ALU primitives. Each returns the result and sets flags via setFlags.

func (c *CPU) add8(a, b byte) byte {
	r := uint16(a) + uint16(b)
	res := byte(r)
	c.setFlags(res == 0, false, (a&0x0F)+(b&0x0F) > 0x0F, r > 0xFF)
	return res
}

func (c *CPU) adc8(a, b byte) byte {
	var ci byte
	if c.flag(flagC) {
		ci = 1
	}
	r := uint16(a) + uint16(b) + uint16(ci)
	res := byte(r)
	c.setFlags(res == 0, false, (a&0x0F)+(b&0x0F)+ci > 0x0F, r > 0xFF)
	return res
}

func (c *CPU) sub8(a, b byte) byte {
	r := int16(a) - int16(b)
	res := byte(r)
	c.setFlags(res == 0, true, (a&0x0F) < (b&0x0F), a < b)
	return res
}

func (c *CPU) sbc8(a, b byte) byte {
	var ci byte
	if c.flag(flagC) {
		ci = 1
	}
	r := int16(a) - int16(b) - int16(ci)
	res := byte(r)
	c.setFlags(res == 0, true, (a&0x0F) < (b&0x0F)+ci, int16(a) < int16(b)+int16(ci))
	return res
}

func (c *CPU) and8(a, b byte) byte {
	res := a & b
	c.setFlags(res == 0, false, true, false)
	return res
}

func (c *CPU) or8(a, b byte) byte {
	res := a | b
	c.setFlags(res == 0, false, false, false)
	return res
}

func (c *CPU) xor8(a, b byte) byte {
	res := a ^ b
	c.setFlags(res == 0, false, false, false)
	return res
}

func (c *CPU) cp8(a, b byte) {
	c.setFlags(a == b, true, (a&0x0F) < (b&0x0F), a < b)
}

func (c *CPU) inc8(a byte) byte {
	res := a + 1
	c.setFlags(res == 0, false, a&0x0F == 0x0F, c.flag(flagC))
	return res
}

func (c *CPU) dec8(a byte) byte {
	res := a - 1
	c.setFlags(res == 0, true, a&0x0F == 0x00, c.flag(flagC))
	return res
}

// addHL implements ADD HL,rr: no effect on Z, half-carry from bit 11.
func (c *CPU) addHL(b uint16) {
	a := c.HL()
	r := uint32(a) + uint32(b)
	h := (a&0x0FFF)+(b&0x0FFF) > 0x0FFF
	c.setHL(uint16(r))
	c.setFlags(c.flag(flagZ), false, h, r > 0xFFFF)
}

// addSPSigned implements both ADD SP,e8 and the LD HL,SP+e8 addressing
// mode: flags are always computed from the unsigned low-byte addition,
// and Z/N are always cleared regardless of the destination.
func (c *CPU) addSPSigned(e int8) uint16 {
	sp := c.SP
	v := uint16(int32(sp) + int32(e))
	h := (sp&0x0F)+(uint16(byte(e))&0x0F) > 0x0F
	cy := (sp&0xFF)+uint16(byte(e)) > 0xFF
	c.setFlags(false, false, h, cy)
	return v
}

// daa implements the decimal-adjust-after-add/subtract algorithm of
// spec.md §4.3.
func (c *CPU) daa() {
	a := c.A
	cy := c.flag(flagC)
	if c.flag(flagN) {
		if cy {
			a -= 0x60
		}
		if c.flag(flagH) {
			a -= 0x06
		}
	} else {
		if cy || a > 0x99 {
			a += 0x60
			cy = true
		}
		if c.flag(flagH) || a&0x0F > 0x09 {
			a += 0x06
		}
	}
	c.A = a
	c.setFlags(a == 0, c.flag(flagN), false, cy)
}

// rotate/shift primitives shared by the unprefixed accumulator ops
// (RLCA/RRCA/RLA/RRA, zero flag always 0) and the CB-prefixed register ops
// (zero flag set from the result).

func (c *CPU) rlc(v byte) byte {
	cy := v&0x80 != 0
	res := v<<1 | v>>7
	return c.finishShift(res, cy)
}

func (c *CPU) rrc(v byte) byte {
	cy := v&0x01 != 0
	res := v>>1 | v<<7
	return c.finishShift(res, cy)
}

func (c *CPU) rl(v byte) byte {
	var ci byte
	if c.flag(flagC) {
		ci = 1
	}
	cy := v&0x80 != 0
	res := v<<1 | ci
	return c.finishShift(res, cy)
}

func (c *CPU) rr(v byte) byte {
	var ci byte
	if c.flag(flagC) {
		ci = 0x80
	}
	cy := v&0x01 != 0
	res := v>>1 | ci
	return c.finishShift(res, cy)
}

func (c *CPU) sla(v byte) byte {
	cy := v&0x80 != 0
	return c.finishShift(v<<1, cy)
}

func (c *CPU) sra(v byte) byte {
	cy := v&0x01 != 0
	return c.finishShift(v&0x80|v>>1, cy)
}

func (c *CPU) srl(v byte) byte {
	cy := v&0x01 != 0
	return c.finishShift(v>>1, cy)
}

func (c *CPU) swap(v byte) byte {
	res := v<<4 | v>>4
	c.setFlags(res == 0, false, false, false)
	return res
}

func (c *CPU) finishShift(res byte, cy bool) byte {
	c.setFlags(res == 0, false, false, cy)
	return res
}

func (c *CPU) bit(n byte, v byte) {
	c.setFlags(v&(1<<n) == 0, false, true, c.flag(flagC))
}

func (c *CPU) res(n byte, v byte) byte { return v &^ (1 << n) }
func (c *CPU) set(n byte, v byte) byte { return v | (1 << n) }
