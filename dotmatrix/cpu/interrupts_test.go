package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-dotmatrix/dotmatrix/addr"
)

func TestCPU_interruptDispatchPriority(t *testing.T) {
	c, bus, ic := newTestCPU(t)

	// VBlank and Joypad both pending: VBlank wins
	ic.IME = true
	ic.WriteEnable(0x1F)
	ic.WriteFlags(0x11)
	c.sp = 0xDFFE
	load(bus, 0x00) // NOP at 0xC000

	// the sampling fetch plus four queued cycles
	cycles := step(t, c)
	assert.Equal(t, 5, cycles)

	// the final dispatch cycle fetched at the vector
	assert.Equal(t, uint16(0x41), c.pc)
	assert.False(t, ic.IME)
	assert.Equal(t, uint8(0x10), ic.ReadFlags()&0x1F)

	// the interrupted PC was pushed
	assert.Equal(t, uint8(0xC0), bus.Read(0xDFFD))
	assert.Equal(t, uint8(0x00), bus.Read(0xDFFC))
}

func TestCPU_noDispatchWhenIMEClear(t *testing.T) {
	c, bus, ic := newTestCPU(t)

	ic.IME = false
	ic.WriteEnable(0x1F)
	ic.WriteFlags(0x01)
	load(bus, 0x00)

	step(t, c)
	assert.Equal(t, uint16(0xC001), c.pc)
	assert.Equal(t, uint8(0x01), ic.ReadFlags()&0x1F)
}

func TestCPU_eiEnablesAfterFollowingInstruction(t *testing.T) {
	c, bus, ic := newTestCPU(t)

	ic.WriteEnable(0x01)
	ic.WriteFlags(0x01)
	c.sp = 0xDFFE
	load(bus, 0xFB, 0x00, 0x00) // EI ; NOP ; NOP

	step(t, c) // EI
	assert.False(t, ic.IME)

	step(t, c) // the following instruction still runs
	assert.True(t, ic.IME)
	assert.Equal(t, uint16(0xC002), c.pc)

	// the next fetch samples with IME set and dispatches
	cycles := step(t, c)
	assert.Equal(t, 5, cycles)
	assert.Equal(t, uint16(0x41), c.pc)
}

func TestCPU_diClearsIMEImmediately(t *testing.T) {
	c, bus, ic := newTestCPU(t)

	ic.IME = true
	load(bus, 0xF3, 0x00) // DI ; NOP
	step(t, c)
	assert.False(t, ic.IME)
}

func TestCPU_haltResumesOnPendingInterrupt(t *testing.T) {
	c, bus, ic := newTestCPU(t)

	ic.IME = false
	ic.WriteEnable(0x04)
	load(bus, 0x76, 0x00) // HALT ; NOP

	step(t, c)
	require.True(t, c.halted)

	// nothing pending: the CPU sleeps
	for i := 0; i < 3; i++ {
		require.NoError(t, c.ExecuteCycle())
		assert.True(t, c.halted)
		assert.Equal(t, uint16(0xC001), c.pc)
	}

	// with IME clear a pending interrupt resumes without servicing
	ic.WriteFlags(0x04)
	step(t, c)
	assert.False(t, c.halted)
	assert.Equal(t, uint16(0xC002), c.pc)
	assert.Equal(t, uint8(0x04), ic.ReadFlags()&0x1F)
}

func TestCPU_haltServicesWhenIMESet(t *testing.T) {
	c, bus, ic := newTestCPU(t)

	ic.IME = true
	ic.WriteEnable(0x04)
	c.sp = 0xDFFE
	load(bus, 0x76) // HALT

	step(t, c)
	require.True(t, c.halted)

	ic.Request(addr.TimerInterrupt)
	cycles := step(t, c)
	assert.Equal(t, 5, cycles)
	assert.Equal(t, uint16(0x51), c.pc)
	assert.False(t, ic.IME)
}

func TestCPU_retiRestoresIME(t *testing.T) {
	c, bus, ic := newTestCPU(t)

	ic.IME = false
	c.sp = 0xDFFC
	bus.Write(0xDFFC, 0x00)
	bus.Write(0xDFFD, 0xC1)
	load(bus, 0xD9) // RETI

	step(t, c)
	assert.True(t, ic.IME)
	assert.Equal(t, uint16(0xC100), c.pc)
}
