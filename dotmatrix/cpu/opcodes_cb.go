package cpu

import (
	"github.com/valerio/go-dotmatrix/dotmatrix/bit"
)

// executeCB decodes a CB-prefixed opcode. It runs on the cycle after the
// prefix fetch, so register forms finish here; the (HL) forms queue their
// memory cycles.
func (c *CPU) executeCB(opcode uint8) {
	regIndex := opcode & 0x07
	y := opcode >> 3 & 0x07
	group := opcode >> 6

	if regIndex != 6 {
		r := c.reg8(regIndex)
		switch group {
		case 0:
			*r = c.cbRotate(y, *r)
		case 1:
			c.bitTest(y, *r)
		case 2:
			*r = bit.Reset(y, *r)
		case 3:
			*r = bit.Set(y, *r)
		}
		return
	}

	if group == 1 { // BIT y, (HL)
		c.enqueue(func(c *CPU) { c.bitTest(y, c.bus.Read(c.getHL())) })
		return
	}

	c.enqueue(
		func(c *CPU) { c.cache = uint16(c.bus.Read(c.getHL())) },
		func(c *CPU) {
			v := uint8(c.cache)
			switch group {
			case 0:
				v = c.cbRotate(y, v)
			case 2:
				v = bit.Reset(y, v)
			case 3:
				v = bit.Set(y, v)
			}
			c.bus.Write(c.getHL(), v)
		},
	)
}

// cbRotate applies the rotate/shift/swap group selected by bits 5-3 of a
// CB opcode.
func (c *CPU) cbRotate(y, value uint8) uint8 {
	switch y {
	case 0:
		return c.rlc(value)
	case 1:
		return c.rrc(value)
	case 2:
		return c.rl(value)
	case 3:
		return c.rr(value)
	case 4:
		return c.sla(value)
	case 5:
		return c.sra(value)
	case 6:
		return c.swap(value)
	default:
		return c.srl(value)
	}
}
