package cpu

import (
	"errors"
	"fmt"

	"github.com/valerio/go-dotmatrix/dotmatrix/bit"
	"github.com/valerio/go-dotmatrix/dotmatrix/memory"
)

// ErrIllegalOpcode is returned when decode hits one of the unassigned bytes.
var ErrIllegalOpcode = errors.New("illegal opcode")

// Flag is one of the 4 flags in the flag register (low byte of AF).
// The low nibble of F is always zero.
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// microOp is one machine cycle of an in-flight instruction.
type microOp func(c *CPU)

// CPU is the SM83 core. ExecuteCycle runs exactly one machine cycle;
// multi-cycle instructions keep their remaining micro-ops queued on the
// struct together with a scratch word, so the core is re-entrant per
// instance and resumes where it left off.
type CPU struct {
	a, f uint8
	b, c uint8
	d, e uint8
	h, l uint8

	sp uint16
	pc uint16

	bus        *memory.Bus
	interrupts *memory.InterruptController

	halted    bool
	stopped   bool
	eiPending bool

	ops   [8]microOp
	opLen int
	opPos int
	cache uint16

	fault error
}

// New creates a CPU wired to the given bus and interrupt controller.
func New(bus *memory.Bus, ic *memory.InterruptController) *CPU {
	return &CPU{bus: bus, interrupts: ic}
}

// ResetNoBoot sets registers to the typical post-boot state, used when
// running without a boot ROM image.
func (c *CPU) ResetNoBoot(color bool) {
	c.a, c.f = 0x01, 0xB0
	if color {
		c.a = 0x11
	}
	c.b, c.c = 0x00, 0x13
	c.d, c.e = 0x00, 0xD8
	c.h, c.l = 0x01, 0x4D
	c.sp = 0xFFFE
	c.pc = 0x0100
	c.interrupts.IME = false
	c.halted = false
	c.eiPending = false
}

// PC returns the current program counter.
func (c *CPU) PC() uint16 {
	return c.pc
}

// Halted reports whether the CPU is sleeping in HALT.
func (c *CPU) Halted() bool {
	return c.halted
}

// ExecuteCycle advances the CPU by one machine cycle: either the next
// micro-op of an in-flight instruction, or a fetch that decodes the next
// instruction (or enters interrupt service).
func (c *CPU) ExecuteCycle() error {
	if c.opPos < c.opLen {
		op := c.ops[c.opPos]
		c.opPos++
		op(c)
		return c.fault
	}

	if c.halted {
		if c.interrupts.Pending() == 0 {
			return nil
		}
		// resume; servicing only happens when IME is set, below
		c.halted = false
	}

	c.fetch()
	return c.fault
}

// fetch is the cycle that ends one instruction and begins the next: it
// samples interrupts, reads the opcode, bumps PC and decodes. EI's enable
// lands here, after the instruction following EI has been fetched.
func (c *CPU) fetch() {
	c.opLen, c.opPos = 0, 0

	if c.interrupts.IME && c.interrupts.Pending() != 0 {
		c.beginInterruptService()
		return
	}

	opcode := c.bus.Read(c.pc)
	c.pc++

	if c.eiPending {
		c.interrupts.IME = true
		c.eiPending = false
	}

	c.execute(opcode)
}

// beginInterruptService starts the 5-cycle dispatch sequence. The sampling
// fetch is the first idle cycle; the remaining four are queued: one more
// idle, the two PC pushes (high then low), and a final cycle that clears
// IME, acknowledges the highest-priority source, jumps to its vector and
// fetches there.
func (c *CPU) beginInterruptService() {
	c.enqueue(
		func(c *CPU) {},
		func(c *CPU) {
			c.sp--
			c.bus.Write(c.sp, bit.High(c.pc))
		},
		func(c *CPU) {
			c.sp--
			c.bus.Write(c.sp, bit.Low(c.pc))
		},
		func(c *CPU) {
			c.interrupts.IME = false
			irq := c.interrupts.Highest()
			c.interrupts.Acknowledge(irq)
			c.pc = irq.Vector()
			c.fetch()
		},
	)
}

// enqueue appends micro-ops for the remaining cycles of the current
// instruction.
func (c *CPU) enqueue(ops ...microOp) {
	for _, op := range ops {
		c.ops[c.opLen] = op
		c.opLen++
	}
}

func (c *CPU) illegal(opcode uint8) {
	c.fault = fmt.Errorf("%w: 0x%02X at 0x%04X", ErrIllegalOpcode, opcode, c.pc-1)
}

// register pair accessors; AF writes keep the low nibble of F zero.

func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f) }
func (c *CPU) setAF(v uint16) {
	c.a = bit.High(v)
	c.f = bit.Low(v) & 0xF0
}
func (c *CPU) getBC() uint16 { return bit.Combine(c.b, c.c) }
func (c *CPU) setBC(v uint16) {
	c.b = bit.High(v)
	c.c = bit.Low(v)
}
func (c *CPU) getDE() uint16 { return bit.Combine(c.d, c.e) }
func (c *CPU) setDE(v uint16) {
	c.d = bit.High(v)
	c.e = bit.Low(v)
}
func (c *CPU) getHL() uint16 { return bit.Combine(c.h, c.l) }
func (c *CPU) setHL(v uint16) {
	c.h = bit.High(v)
	c.l = bit.Low(v)
}

// flag helpers

func (c *CPU) setFlag(flag Flag)   { c.f |= uint8(flag) }
func (c *CPU) resetFlag(flag Flag) { c.f &^= uint8(flag) }

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}

	return 0
}
