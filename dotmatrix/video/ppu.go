package video

import (
	"github.com/valerio/go-dotmatrix/dotmatrix/addr"
	"github.com/valerio/go-dotmatrix/dotmatrix/bit"
)

// Mode represents the PPU's current rendering stage. The values match the
// STAT register bits 1-0.
type Mode uint8

const (
	// HBlankMode (mode 0): horizontal blank, CPU can access VRAM/OAM.
	HBlankMode Mode = 0
	// VBlankMode (mode 1): vertical blank, CPU can access VRAM/OAM.
	VBlankMode Mode = 1
	// OAMScanMode (mode 2): PPU is reading OAM, CPU cannot access OAM.
	OAMScanMode Mode = 2
	// DrawingMode (mode 3): PPU is reading VRAM, CPU cannot access VRAM/OAM.
	DrawingMode Mode = 3
)

// Mode durations in machine cycles. One visible scanline is 114 cycles,
// one frame is 154 lines.
const (
	oamScanCycles = 20
	drawingCycles = 43
	hblankCycles  = 51
	lineCycles    = oamScanCycles + drawingCycles + hblankCycles

	visibleLines = 144
	totalLines   = 154
)

// STAT register bit indices.
const (
	statLycIrq       uint8 = 6
	statOamIrq       uint8 = 5
	statVblankIrq    uint8 = 4
	statHblankIrq    uint8 = 3
	statLycCondition uint8 = 2
)

// LCDC register bit indices.
const (
	lcdEnable          uint8 = 7
	windowTileMapBit   uint8 = 6
	windowEnableBit    uint8 = 5
	tileDataSelectBit  uint8 = 4
	bgTileMapBit       uint8 = 3
	spriteSizeBit      uint8 = 2
	spriteEnableBit    uint8 = 1
	bgEnablePriorityBit uint8 = 0
)

// oamDMA is the one-shot 160-byte copy into OAM started by a write to FF46.
type oamDMA struct {
	active bool
	source uint16
	index  int
}

// vramDMA is the color-mode general/HBlank DMA state (FF51-FF55).
type vramDMA struct {
	source      uint16
	destination uint16
	remaining   int // bytes left for an armed HBlank DMA
	hblank      bool
}

// PPU owns VRAM, OAM, the LCD register file, the palette memories and the
// frame buffer. It advances one machine cycle per Tick and renders a full
// scanline when leaving the drawing mode.
type PPU struct {
	vram [2][0x2000]uint8
	oam  [160]uint8

	lcdc uint8
	stat uint8
	scy  uint8
	scx  uint8
	ly   uint8
	lyc  uint8
	bgp  uint8
	obp0 uint8
	obp1 uint8
	wy   uint8
	wx   uint8
	wly  uint8

	// color-mode registers
	color      bool
	vbk        uint8
	bcps       uint8
	ocps       uint8
	bgPalette  [64]uint8
	objPalette [64]uint8

	mode   Mode
	cycles int

	dmaRegister uint8
	dma         oamDMA
	hdma        vramDMA

	framebuffer *FrameBuffer
	bgPrio      [FramebufferWidth]bgPriority

	requestInterrupt func(addr.Interrupt)
	busRead          func(uint16) uint8
}

// bgPriority is the per-column handoff from the background/window pass to
// the sprite pass.
type bgPriority struct {
	priority bool // CGB per-tile priority attribute
	nonzero  bool // background pixel was not color 0
}

// New creates a PPU in the given mode. The interrupt requester is wired at
// construction; the bus read hook (used by the DMAs) is attached afterwards.
func New(color bool, irq func(addr.Interrupt)) *PPU {
	return &PPU{
		color:            color,
		mode:             OAMScanMode,
		cycles:           oamScanCycles,
		stat:             uint8(OAMScanMode),
		framebuffer:      NewFrameBuffer(color),
		requestInterrupt: irq,
	}
}

// AttachBus connects the bus read hook used by OAM and VRAM DMA transfers.
func (p *PPU) AttachBus(read func(uint16) uint8) {
	p.busRead = read
}

// FrameBuffer returns the PPU-owned frame buffer.
func (p *PPU) FrameBuffer() *FrameBuffer {
	return p.framebuffer
}

// Mode returns the current rendering stage.
func (p *PPU) Mode() Mode {
	return p.mode
}

// LY returns the current scanline.
func (p *PPU) LY() uint8 {
	return p.ly
}

// Tick advances the PPU by one machine cycle. It returns true when the
// frame has completed (VBlank has ended and LY wrapped to zero).
func (p *PPU) Tick() bool {
	p.stepOAMDMA()

	p.cycles--
	if p.cycles > 0 {
		return false
	}

	switch p.mode {
	case OAMScanMode:
		p.setMode(DrawingMode, drawingCycles)
	case DrawingMode:
		p.renderScanline()
		p.setMode(HBlankMode, hblankCycles)
		if bit.IsSet(statHblankIrq, p.stat) {
			p.requestInterrupt(addr.LCDSTATInterrupt)
		}
		p.stepHBlankDMA()
	case HBlankMode:
		p.setLY(p.ly + 1)
		if p.ly < visibleLines {
			p.setMode(OAMScanMode, oamScanCycles)
			if bit.IsSet(statOamIrq, p.stat) {
				p.requestInterrupt(addr.LCDSTATInterrupt)
			}
		} else {
			p.setMode(VBlankMode, lineCycles)
			p.requestInterrupt(addr.VBlankInterrupt)
			if bit.IsSet(statVblankIrq, p.stat) {
				p.requestInterrupt(addr.LCDSTATInterrupt)
			}
		}
	case VBlankMode:
		p.setLY(p.ly + 1)
		if p.ly >= totalLines {
			p.setLY(0)
			p.wly = 0
			p.setMode(OAMScanMode, oamScanCycles)
			if bit.IsSet(statOamIrq, p.stat) {
				p.requestInterrupt(addr.LCDSTATInterrupt)
			}
			return true
		}
		p.cycles = lineCycles
	}

	return false
}

// setMode updates the mode and the STAT mode bits.
func (p *PPU) setMode(mode Mode, cycles int) {
	p.mode = mode
	p.cycles = cycles
	p.stat = p.stat&0xFC | uint8(mode)
}

// setLY updates the current scanline and re-evaluates the LYC coincidence.
func (p *PPU) setLY(line uint8) {
	p.ly = line
	p.compareLYToLYC()
}

func (p *PPU) compareLYToLYC() {
	if p.ly == p.lyc {
		p.stat = bit.Set(statLycCondition, p.stat)
		if bit.IsSet(statLycIrq, p.stat) {
			p.requestInterrupt(addr.LCDSTATInterrupt)
		}
	} else {
		p.stat = bit.Reset(statLycCondition, p.stat)
	}
}

// oamBlocked reports whether CPU access to OAM is currently gated.
func (p *PPU) oamBlocked() bool {
	return p.dma.active || p.mode == OAMScanMode || p.mode == DrawingMode
}

// Read implements the bus-facing port for VRAM, OAM and the register file.
func (p *PPU) Read(address uint16) uint8 {
	switch {
	case address >= 0x8000 && address <= 0x9FFF:
		if p.mode == DrawingMode {
			return 0xFF
		}
		return p.vram[p.vbk&1][address-0x8000]
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		if p.oamBlocked() {
			return 0xFF
		}
		return p.oam[address-addr.OAMStart]
	case address == addr.LCDC:
		return p.lcdc
	case address == addr.STAT:
		return p.stat | 0x80
	case address == addr.SCY:
		return p.scy
	case address == addr.SCX:
		return p.scx
	case address == addr.LY:
		return p.ly
	case address == addr.LYC:
		return p.lyc
	case address == addr.DMA:
		return p.dmaRegister
	case address == addr.BGP:
		return p.bgp
	case address == addr.OBP0:
		return p.obp0
	case address == addr.OBP1:
		return p.obp1
	case address == addr.WY:
		return p.wy
	case address == addr.WX:
		return p.wx
	case address == addr.VBK:
		if !p.color {
			return 0xFF
		}
		return 0xFE | p.vbk&1
	case address == addr.HDMA5:
		if !p.color {
			return 0xFF
		}
		if !p.hdma.hblank {
			return 0xFF
		}
		return uint8(p.hdma.remaining/16 - 1)
	case address == addr.BCPS:
		if !p.color {
			return 0xFF
		}
		return p.bcps
	case address == addr.BCPD:
		if !p.color {
			return 0xFF
		}
		return p.bgPalette[p.bcps&0x3F]
	case address == addr.OCPS:
		if !p.color {
			return 0xFF
		}
		return p.ocps
	case address == addr.OCPD:
		if !p.color {
			return 0xFF
		}
		return p.objPalette[p.ocps&0x3F]
	default:
		return 0xFF
	}
}

// Write implements the bus-facing port. LY is read-only; VRAM and OAM writes
// are dropped while the PPU or a DMA holds them.
func (p *PPU) Write(address uint16, value uint8) {
	switch {
	case address >= 0x8000 && address <= 0x9FFF:
		if p.mode == DrawingMode {
			return
		}
		p.vram[p.vbk&1][address-0x8000] = value
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		if p.oamBlocked() {
			return
		}
		p.oam[address-addr.OAMStart] = value
	case address == addr.LCDC:
		p.lcdc = value
	case address == addr.STAT:
		// mode and coincidence bits are read-only
		p.stat = p.stat&0x07 | value&0x78
	case address == addr.SCY:
		p.scy = value
	case address == addr.SCX:
		p.scx = value
	case address == addr.LYC:
		p.lyc = value
		p.compareLYToLYC()
	case address == addr.DMA:
		p.dmaRegister = value
		p.dma = oamDMA{active: true, source: uint16(value) << 8}
	case address == addr.BGP:
		p.bgp = value
	case address == addr.OBP0:
		p.obp0 = value
	case address == addr.OBP1:
		p.obp1 = value
	case address == addr.WY:
		p.wy = value
	case address == addr.WX:
		p.wx = value
	case address == addr.VBK:
		if p.color {
			p.vbk = value & 1
		}
	case address == addr.HDMA1:
		p.hdma.source = p.hdma.source&0x00FF | uint16(value)<<8
	case address == addr.HDMA2:
		p.hdma.source = p.hdma.source&0xFF00 | uint16(value&0xF0)
	case address == addr.HDMA3:
		p.hdma.destination = p.hdma.destination&0x00FF | uint16(value&0x1F)<<8
	case address == addr.HDMA4:
		p.hdma.destination = p.hdma.destination&0xFF00 | uint16(value&0xF0)
	case address == addr.HDMA5:
		if p.color {
			p.startVRAMDMA(value)
		}
	case address == addr.BCPS:
		if p.color {
			p.bcps = value & 0xBF
		}
	case address == addr.BCPD:
		if p.color {
			p.bgPalette[p.bcps&0x3F] = value
			if bit.IsSet(7, p.bcps) {
				p.bcps = p.bcps&0x80 | (p.bcps+1)&0x3F
			}
		}
	case address == addr.OCPS:
		if p.color {
			p.ocps = value & 0xBF
		}
	case address == addr.OCPD:
		if p.color {
			p.objPalette[p.ocps&0x3F] = value
			if bit.IsSet(7, p.ocps) {
				p.ocps = p.ocps&0x80 | (p.ocps+1)&0x3F
			}
		}
	}
}

// stepOAMDMA copies one byte per machine cycle while a transfer is active.
func (p *PPU) stepOAMDMA() {
	if !p.dma.active {
		return
	}
	if p.dma.index < len(p.oam) {
		p.oam[p.dma.index] = p.busRead(p.dma.source + uint16(p.dma.index))
		p.dma.index++
	}
	if p.dma.index >= len(p.oam) {
		p.dma.active = false
	}
}

// startVRAMDMA handles a write to FF55: bit 7 clear runs a blocking
// general-purpose transfer, bit 7 set arms an HBlank transfer.
func (p *PPU) startVRAMDMA(value uint8) {
	length := (int(value&0x7F) + 1) * 16

	if !bit.IsSet(7, value) {
		// writing with bit 7 clear while an HBlank DMA is armed cancels it
		if p.hdma.hblank {
			p.hdma.hblank = false
			p.hdma.remaining = 0
			return
		}
		p.copyVRAMBlock(length)
		return
	}

	p.hdma.hblank = true
	p.hdma.remaining = length
}

// stepHBlankDMA copies 16 bytes at each HBlank entry until the armed
// transfer is exhausted.
func (p *PPU) stepHBlankDMA() {
	if !p.hdma.hblank || p.hdma.remaining <= 0 {
		return
	}
	p.copyVRAMBlock(16)
	p.hdma.remaining -= 16
	if p.hdma.remaining <= 0 {
		p.hdma.hblank = false
	}
}

// copyVRAMBlock moves length bytes from the DMA source to VRAM, advancing
// both pointers.
func (p *PPU) copyVRAMBlock(length int) {
	for i := 0; i < length; i++ {
		p.vram[p.vbk&1][p.hdma.destination&0x1FFF] = p.busRead(p.hdma.source)
		p.hdma.source++
		p.hdma.destination++
	}
}
