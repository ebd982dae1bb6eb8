package memory

import (
	"github.com/valerio/go-dotmatrix/dotmatrix/addr"
)

// InterruptController holds the master enable flag together with the
// pending (IF) and enable (IE) bitmasks. Only the low 5 bits of each
// mask are meaningful.
type InterruptController struct {
	// IME is the interrupt master enable flag. It is not memory mapped;
	// only EI/DI/RETI and interrupt dispatch touch it.
	IME bool

	flags  uint8
	enable uint8
}

// Request sets the pending bit for the given interrupt source.
func (ic *InterruptController) Request(interrupt addr.Interrupt) {
	ic.flags |= uint8(interrupt)
}

// Pending returns the set of interrupts that are both requested and enabled.
func (ic *InterruptController) Pending() uint8 {
	return ic.flags & ic.enable & 0x1F
}

// Highest returns the highest-priority pending interrupt. At least one
// interrupt must be pending; dispatching with none set is a bug in the caller.
func (ic *InterruptController) Highest() addr.Interrupt {
	pending := ic.Pending()
	if pending == 0 {
		panic("interrupt dispatch with no pending interrupt")
	}

	for b := uint8(0); b < 5; b++ {
		if pending&(1<<b) != 0 {
			return addr.Interrupt(1 << b)
		}
	}

	// unreachable: pending is non-zero and masked to 5 bits
	return 0
}

// Acknowledge clears the pending bit for the given interrupt source.
func (ic *InterruptController) Acknowledge(interrupt addr.Interrupt) {
	ic.flags &^= uint8(interrupt)
}

// ReadFlags returns the IF register. The upper 3 bits always read as 1.
func (ic *InterruptController) ReadFlags() uint8 {
	return ic.flags&0x1F | 0xE0
}

// WriteFlags replaces the IF register, keeping only the low 5 bits.
func (ic *InterruptController) WriteFlags(value uint8) {
	ic.flags = value & 0x1F
}

// ReadEnable returns the IE register.
func (ic *InterruptController) ReadEnable() uint8 {
	return ic.enable
}

// WriteEnable replaces the IE register.
func (ic *InterruptController) WriteEnable(value uint8) {
	ic.enable = value
}
