package cpu

import (
	"github.com/valerio/go-dotmatrix/dotmatrix/bit"
)

// fetchByte reads the next code byte and advances PC.
func (c *CPU) fetchByte() uint8 {
	v := c.bus.Read(c.pc)
	c.pc++
	return v
}

// reg8 resolves the standard B,C,D,E,H,L,(HL),A register encoding.
// Returns nil for index 6, the (HL) slot.
func (c *CPU) reg8(index uint8) *uint8 {
	switch index {
	case 0:
		return &c.b
	case 1:
		return &c.c
	case 2:
		return &c.d
	case 3:
		return &c.e
	case 4:
		return &c.h
	case 5:
		return &c.l
	case 7:
		return &c.a
	}

	return nil
}

// condition resolves the NZ,Z,NC,C condition encoding.
func (c *CPU) condition(index uint8) bool {
	switch index {
	case 0:
		return !c.isSetFlag(zeroFlag)
	case 1:
		return c.isSetFlag(zeroFlag)
	case 2:
		return !c.isSetFlag(carryFlag)
	default:
		return c.isSetFlag(carryFlag)
	}
}

// alu applies the 8-bit accumulator operation with the given group index
// (ADD, ADC, SUB, SBC, AND, XOR, OR, CP).
func (c *CPU) alu(group, value uint8) {
	switch group {
	case 0:
		c.addToA(value)
	case 1:
		c.adcToA(value)
	case 2:
		c.sub(value)
	case 3:
		c.sbc(value)
	case 4:
		c.and(value)
	case 5:
		c.xor(value)
	case 6:
		c.or(value)
	case 7:
		c.compare(value)
	}
}

// loadImm16 schedules the two little-endian immediate reads; done runs on
// the same cycle as the high byte.
func (c *CPU) loadImm16(done func(c *CPU, v uint16)) {
	c.enqueue(
		func(c *CPU) { c.cache = uint16(c.fetchByte()) },
		func(c *CPU) {
			c.cache |= uint16(c.fetchByte()) << 8
			done(c, c.cache)
		},
	)
}

// pushWord schedules the internal cycle and the two stack writes of a PUSH.
// done, if set, runs on the final cycle after the low byte is written.
func (c *CPU) pushWord(value func(c *CPU) uint16, done func(c *CPU)) {
	c.enqueue(
		func(c *CPU) {},
		func(c *CPU) {
			c.sp--
			c.bus.Write(c.sp, bit.High(value(c)))
		},
		func(c *CPU) {
			c.sp--
			c.bus.Write(c.sp, bit.Low(value(c)))
			if done != nil {
				done(c)
			}
		},
	)
}

// popWord schedules the two stack reads; done runs on the high byte cycle.
func (c *CPU) popWord(done func(c *CPU, v uint16)) {
	c.enqueue(
		func(c *CPU) {
			c.cache = uint16(c.bus.Read(c.sp))
			c.sp++
		},
		func(c *CPU) {
			c.cache |= uint16(c.bus.Read(c.sp)) << 8
			c.sp++
			done(c, c.cache)
		},
	)
}

// scheduleCall pushes the post-operand PC and jumps. Three cycles, used by
// CALL (after its operand) and RST.
func (c *CPU) scheduleCall(target uint16) {
	c.pushWord(func(c *CPU) uint16 { return c.pc }, func(c *CPU) { c.pc = target })
}

// execute decodes an opcode during its fetch cycle. Single-cycle
// instructions complete here; anything longer queues its remaining
// machine cycles.
func (c *CPU) execute(opcode uint8) {
	// the two regular blocks: LD r,r' and ALU A,r
	if opcode >= 0x40 && opcode <= 0x7F && opcode != 0x76 {
		src := opcode & 0x07
		dst := opcode >> 3 & 0x07
		switch {
		case src == 6:
			d := c.reg8(dst)
			c.enqueue(func(c *CPU) { *d = c.bus.Read(c.getHL()) })
		case dst == 6:
			s := c.reg8(src)
			c.enqueue(func(c *CPU) { c.bus.Write(c.getHL(), *s) })
		default:
			*c.reg8(dst) = *c.reg8(src)
		}
		return
	}
	if opcode >= 0x80 && opcode <= 0xBF {
		group := opcode >> 3 & 0x07
		src := opcode & 0x07
		if src == 6 {
			c.enqueue(func(c *CPU) { c.alu(group, c.bus.Read(c.getHL())) })
		} else {
			c.alu(group, *c.reg8(src))
		}
		return
	}

	switch opcode {
	case 0x00: // NOP

	case 0x01: // LD BC, d16
		c.loadImm16(func(c *CPU, v uint16) { c.setBC(v) })
	case 0x11: // LD DE, d16
		c.loadImm16(func(c *CPU, v uint16) { c.setDE(v) })
	case 0x21: // LD HL, d16
		c.loadImm16(func(c *CPU, v uint16) { c.setHL(v) })
	case 0x31: // LD SP, d16
		c.loadImm16(func(c *CPU, v uint16) { c.sp = v })

	case 0x02: // LD (BC), A
		c.enqueue(func(c *CPU) { c.bus.Write(c.getBC(), c.a) })
	case 0x12: // LD (DE), A
		c.enqueue(func(c *CPU) { c.bus.Write(c.getDE(), c.a) })
	case 0x0A: // LD A, (BC)
		c.enqueue(func(c *CPU) { c.a = c.bus.Read(c.getBC()) })
	case 0x1A: // LD A, (DE)
		c.enqueue(func(c *CPU) { c.a = c.bus.Read(c.getDE()) })

	case 0x22: // LD (HL+), A
		c.enqueue(func(c *CPU) {
			hl := c.getHL()
			c.bus.Write(hl, c.a)
			c.setHL(hl + 1)
		})
	case 0x2A: // LD A, (HL+)
		c.enqueue(func(c *CPU) {
			hl := c.getHL()
			c.a = c.bus.Read(hl)
			c.setHL(hl + 1)
		})
	case 0x32: // LD (HL-), A
		c.enqueue(func(c *CPU) {
			hl := c.getHL()
			c.bus.Write(hl, c.a)
			c.setHL(hl - 1)
		})
	case 0x3A: // LD A, (HL-)
		c.enqueue(func(c *CPU) {
			hl := c.getHL()
			c.a = c.bus.Read(hl)
			c.setHL(hl - 1)
		})

	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x3E: // LD r, d8
		r := c.reg8(opcode >> 3 & 0x07)
		c.enqueue(func(c *CPU) { *r = c.fetchByte() })
	case 0x36: // LD (HL), d8
		c.enqueue(
			func(c *CPU) { c.cache = uint16(c.fetchByte()) },
			func(c *CPU) { c.bus.Write(c.getHL(), uint8(c.cache)) },
		)

	case 0x08: // LD (a16), SP
		c.loadImm16(func(c *CPU, v uint16) {
			c.enqueue(
				func(c *CPU) { c.bus.Write(v, bit.Low(c.sp)) },
				func(c *CPU) { c.bus.Write(v+1, bit.High(c.sp)) },
			)
		})

	case 0x03: // INC BC
		c.enqueue(func(c *CPU) { c.setBC(c.getBC() + 1) })
	case 0x13: // INC DE
		c.enqueue(func(c *CPU) { c.setDE(c.getDE() + 1) })
	case 0x23: // INC HL
		c.enqueue(func(c *CPU) { c.setHL(c.getHL() + 1) })
	case 0x33: // INC SP
		c.enqueue(func(c *CPU) { c.sp++ })
	case 0x0B: // DEC BC
		c.enqueue(func(c *CPU) { c.setBC(c.getBC() - 1) })
	case 0x1B: // DEC DE
		c.enqueue(func(c *CPU) { c.setDE(c.getDE() - 1) })
	case 0x2B: // DEC HL
		c.enqueue(func(c *CPU) { c.setHL(c.getHL() - 1) })
	case 0x3B: // DEC SP
		c.enqueue(func(c *CPU) { c.sp-- })

	case 0x09: // ADD HL, BC
		c.enqueue(func(c *CPU) { c.addToHL(c.getBC()) })
	case 0x19: // ADD HL, DE
		c.enqueue(func(c *CPU) { c.addToHL(c.getDE()) })
	case 0x29: // ADD HL, HL
		c.enqueue(func(c *CPU) { c.addToHL(c.getHL()) })
	case 0x39: // ADD HL, SP
		c.enqueue(func(c *CPU) { c.addToHL(c.sp) })

	case 0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x3C: // INC r
		r := c.reg8(opcode >> 3 & 0x07)
		*r = c.inc8(*r)
	case 0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x3D: // DEC r
		r := c.reg8(opcode >> 3 & 0x07)
		*r = c.dec8(*r)
	case 0x34: // INC (HL)
		c.enqueue(
			func(c *CPU) { c.cache = uint16(c.bus.Read(c.getHL())) },
			func(c *CPU) { c.bus.Write(c.getHL(), c.inc8(uint8(c.cache))) },
		)
	case 0x35: // DEC (HL)
		c.enqueue(
			func(c *CPU) { c.cache = uint16(c.bus.Read(c.getHL())) },
			func(c *CPU) { c.bus.Write(c.getHL(), c.dec8(uint8(c.cache))) },
		)

	case 0x07: // RLCA
		c.a = c.rlc(c.a)
		c.resetFlag(zeroFlag)
	case 0x0F: // RRCA
		c.a = c.rrc(c.a)
		c.resetFlag(zeroFlag)
	case 0x17: // RLA
		c.a = c.rl(c.a)
		c.resetFlag(zeroFlag)
	case 0x1F: // RRA
		c.a = c.rr(c.a)
		c.resetFlag(zeroFlag)

	case 0x27: // DAA
		c.daa()
	case 0x2F: // CPL
		c.a = ^c.a
		c.setFlag(subFlag)
		c.setFlag(halfCarryFlag)
	case 0x37: // SCF
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlag(carryFlag)
	case 0x3F: // CCF
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))

	case 0x10: // STOP
		c.stopped = true
		c.pc++ // skip the pad byte
	case 0x76: // HALT
		c.halted = true

	case 0x18: // JR e
		c.enqueue(
			func(c *CPU) { c.cache = uint16(c.fetchByte()) },
			func(c *CPU) { c.pc += uint16(int8(uint8(c.cache))) },
		)
	case 0x20, 0x28, 0x30, 0x38: // JR cc, e
		cond := opcode >> 3 & 0x03
		c.enqueue(func(c *CPU) {
			offset := c.fetchByte()
			if c.condition(cond) {
				c.enqueue(func(c *CPU) { c.pc += uint16(int8(offset)) })
			}
		})

	case 0xC3: // JP a16
		c.loadImm16(func(c *CPU, v uint16) {
			c.enqueue(func(c *CPU) { c.pc = v })
		})
	case 0xC2, 0xCA, 0xD2, 0xDA: // JP cc, a16
		cond := opcode >> 3 & 0x03
		c.loadImm16(func(c *CPU, v uint16) {
			if c.condition(cond) {
				c.enqueue(func(c *CPU) { c.pc = v })
			}
		})
	case 0xE9: // JP HL
		c.pc = c.getHL()

	case 0xCD: // CALL a16
		c.loadImm16(func(c *CPU, v uint16) { c.scheduleCall(v) })
	case 0xC4, 0xCC, 0xD4, 0xDC: // CALL cc, a16
		cond := opcode >> 3 & 0x03
		c.loadImm16(func(c *CPU, v uint16) {
			if c.condition(cond) {
				c.scheduleCall(v)
			}
		})

	case 0xC9: // RET
		c.popWord(func(c *CPU, v uint16) {
			c.enqueue(func(c *CPU) { c.pc = v })
		})
	case 0xD9: // RETI
		c.popWord(func(c *CPU, v uint16) {
			c.enqueue(func(c *CPU) {
				c.pc = v
				c.interrupts.IME = true
			})
		})
	case 0xC0, 0xC8, 0xD0, 0xD8: // RET cc
		cond := opcode >> 3 & 0x03
		c.enqueue(func(c *CPU) {
			if c.condition(cond) {
				c.popWord(func(c *CPU, v uint16) {
					c.enqueue(func(c *CPU) { c.pc = v })
				})
			}
		})

	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF: // RST n
		c.scheduleCall(uint16(opcode & 0x38))

	case 0xC5: // PUSH BC
		c.pushWord(func(c *CPU) uint16 { return c.getBC() }, nil)
	case 0xD5: // PUSH DE
		c.pushWord(func(c *CPU) uint16 { return c.getDE() }, nil)
	case 0xE5: // PUSH HL
		c.pushWord(func(c *CPU) uint16 { return c.getHL() }, nil)
	case 0xF5: // PUSH AF
		c.pushWord(func(c *CPU) uint16 { return c.getAF() }, nil)
	case 0xC1: // POP BC
		c.popWord(func(c *CPU, v uint16) { c.setBC(v) })
	case 0xD1: // POP DE
		c.popWord(func(c *CPU, v uint16) { c.setDE(v) })
	case 0xE1: // POP HL
		c.popWord(func(c *CPU, v uint16) { c.setHL(v) })
	case 0xF1: // POP AF
		c.popWord(func(c *CPU, v uint16) { c.setAF(v) })

	case 0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE: // ALU A, d8
		group := opcode >> 3 & 0x07
		c.enqueue(func(c *CPU) { c.alu(group, c.fetchByte()) })

	case 0xE0: // LDH (a8), A
		c.enqueue(
			func(c *CPU) { c.cache = uint16(c.fetchByte()) },
			func(c *CPU) { c.bus.Write(0xFF00+c.cache, c.a) },
		)
	case 0xF0: // LDH A, (a8)
		c.enqueue(
			func(c *CPU) { c.cache = uint16(c.fetchByte()) },
			func(c *CPU) { c.a = c.bus.Read(0xFF00 + c.cache) },
		)
	case 0xE2: // LD (C), A
		c.enqueue(func(c *CPU) { c.bus.Write(0xFF00+uint16(c.c), c.a) })
	case 0xF2: // LD A, (C)
		c.enqueue(func(c *CPU) { c.a = c.bus.Read(0xFF00 + uint16(c.c)) })
	case 0xEA: // LD (a16), A
		c.loadImm16(func(c *CPU, v uint16) {
			c.enqueue(func(c *CPU) { c.bus.Write(v, c.a) })
		})
	case 0xFA: // LD A, (a16)
		c.loadImm16(func(c *CPU, v uint16) {
			c.enqueue(func(c *CPU) { c.a = c.bus.Read(v) })
		})

	case 0xE8: // ADD SP, e
		c.enqueue(
			func(c *CPU) { c.cache = uint16(c.fetchByte()) },
			func(c *CPU) {},
			func(c *CPU) { c.sp = c.addSPOffset(uint8(c.cache)) },
		)
	case 0xF8: // LD HL, SP+e
		c.enqueue(
			func(c *CPU) { c.cache = uint16(c.fetchByte()) },
			func(c *CPU) { c.setHL(c.addSPOffset(uint8(c.cache))) },
		)
	case 0xF9: // LD SP, HL
		c.enqueue(func(c *CPU) { c.sp = c.getHL() })

	case 0xF3: // DI
		c.interrupts.IME = false
		c.eiPending = false
	case 0xFB: // EI
		c.eiPending = true

	case 0xCB:
		c.enqueue(func(c *CPU) { c.executeCB(c.fetchByte()) })

	case 0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD:
		c.illegal(opcode)
	}
}
