package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-dotmatrix/dotmatrix/addr"
)

// newTestPPU builds a monochrome PPU with an interrupt recorder and a flat
// byte-array bus behind the DMA hook.
func newTestPPU() (*PPU, *[]addr.Interrupt, []uint8) {
	var raised []addr.Interrupt
	mem := make([]uint8, 0x10000)

	p := New(false, func(i addr.Interrupt) { raised = append(raised, i) })
	p.AttachBus(func(a uint16) uint8 { return mem[a] })
	p.Write(addr.LCDC, 0x91)
	return p, &raised, mem
}

func countInterrupts(raised []addr.Interrupt, kind addr.Interrupt) int {
	n := 0
	for _, i := range raised {
		if i == kind {
			n++
		}
	}
	return n
}

func TestPPU_modeDurations(t *testing.T) {
	p, _, _ := newTestPPU()

	require.Equal(t, OAMScanMode, p.Mode())
	for i := 0; i < oamScanCycles; i++ {
		p.Tick()
	}
	assert.Equal(t, DrawingMode, p.Mode())

	for i := 0; i < drawingCycles; i++ {
		p.Tick()
	}
	assert.Equal(t, HBlankMode, p.Mode())

	for i := 0; i < hblankCycles; i++ {
		p.Tick()
	}
	assert.Equal(t, OAMScanMode, p.Mode())
	assert.Equal(t, uint8(1), p.LY())
}

func TestPPU_frameLength(t *testing.T) {
	p, _, _ := newTestPPU()

	// 154 scanlines x 114 machine cycles between frame completions
	ticks := 0
	frames := 0
	for frames < 2 {
		ticks++
		if p.Tick() {
			frames++
			if frames == 1 {
				ticks = 0
			}
		}
	}
	assert.Equal(t, 154*114, ticks)
}

func TestPPU_vblankInterrupt(t *testing.T) {
	p, raised, _ := newTestPPU()

	// run one full frame; exactly one VBlank interrupt
	for i := 0; i < 154*114; i++ {
		p.Tick()
	}
	assert.Equal(t, 1, countInterrupts(*raised, addr.VBlankInterrupt))
	assert.Equal(t, uint8(0), p.LY())
}

func TestPPU_lycCoincidence(t *testing.T) {
	p, raised, _ := newTestPPU()

	p.Write(addr.LYC, 2)
	p.Write(addr.STAT, 1<<statLycIrq)

	// run until LY reaches 2
	for p.LY() != 2 {
		p.Tick()
	}
	assert.Equal(t, uint8(1), p.Read(addr.STAT)>>statLycCondition&1)
	assert.Equal(t, 1, countInterrupts(*raised, addr.LCDSTATInterrupt))

	// after the line advances, the coincidence bit clears
	for p.LY() != 3 {
		p.Tick()
	}
	assert.Equal(t, uint8(0), p.Read(addr.STAT)>>statLycCondition&1)

	// writing LYC re-evaluates immediately
	p.Write(addr.LYC, 3)
	assert.Equal(t, uint8(1), p.Read(addr.STAT)>>statLycCondition&1)
}

func TestPPU_statModeInterrupts(t *testing.T) {
	p, raised, _ := newTestPPU()

	p.Write(addr.STAT, 1<<statHblankIrq)
	for p.Mode() != HBlankMode {
		p.Tick()
	}
	assert.Equal(t, 1, countInterrupts(*raised, addr.LCDSTATInterrupt))
}

func TestPPU_statWritePreservesReadOnlyBits(t *testing.T) {
	p, _, _ := newTestPPU()

	p.Write(addr.STAT, 0xFF)
	stat := p.Read(addr.STAT)
	// mode bits reflect the actual mode (OAM scan), not the write
	assert.Equal(t, uint8(OAMScanMode), stat&0x03)
	// bit 7 always reads as set
	assert.Equal(t, uint8(0x80), stat&0x80)
}

func TestPPU_lyReadOnly(t *testing.T) {
	p, _, _ := newTestPPU()

	p.Write(addr.LY, 0x55)
	assert.Equal(t, uint8(0), p.Read(addr.LY))
}

func TestPPU_vramAccessGating(t *testing.T) {
	p, _, _ := newTestPPU()

	// accessible during OAM scan
	p.Write(0x8000, 0x42)
	assert.Equal(t, uint8(0x42), p.Read(0x8000))

	for p.Mode() != DrawingMode {
		p.Tick()
	}
	// dropped during drawing
	p.Write(0x8001, 0x42)
	assert.Equal(t, uint8(0xFF), p.Read(0x8001))

	for p.Mode() != HBlankMode {
		p.Tick()
	}
	assert.Equal(t, uint8(0x00), p.Read(0x8001))
}

func TestPPU_oamAccessGating(t *testing.T) {
	p, _, _ := newTestPPU()

	// blocked during OAM scan and drawing
	p.Write(addr.OAMStart, 0x42)
	assert.Equal(t, uint8(0xFF), p.Read(addr.OAMStart))

	for p.Mode() != HBlankMode {
		p.Tick()
	}
	p.Write(addr.OAMStart, 0x42)
	assert.Equal(t, uint8(0x42), p.Read(addr.OAMStart))
}

func TestPPU_oamDMA(t *testing.T) {
	p, _, mem := newTestPPU()

	for i := 0; i < 160; i++ {
		mem[0xD000+i] = uint8(i)
	}

	// reach HBlank so OAM would otherwise be accessible
	for p.Mode() != HBlankMode {
		p.Tick()
	}

	p.Write(addr.DMA, 0xD0)
	assert.Equal(t, uint8(0xD0), p.Read(addr.DMA))

	// while the transfer runs, CPU reads return 0xFF and writes are dropped
	p.Tick()
	assert.Equal(t, uint8(0xFF), p.Read(addr.OAMStart))
	p.Write(addr.OAMStart, 0x99)

	// one byte per machine cycle
	for i := 0; i < 160; i++ {
		p.Tick()
	}

	for p.Mode() != HBlankMode && p.Mode() != VBlankMode {
		p.Tick()
	}
	assert.Equal(t, uint8(0x00), p.Read(addr.OAMStart))
	assert.Equal(t, uint8(159), p.Read(addr.OAMStart+159))
}
