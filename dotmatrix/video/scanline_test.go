package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-dotmatrix/dotmatrix/addr"
)

// writeTile stores a solid-color tile (every pixel the given 2-bit value)
// into the tile data area of the given bank.
func writeTile(p *PPU, bank int, tileIndex int, value uint8) {
	var low, high uint8
	if value&1 != 0 {
		low = 0xFF
	}
	if value&2 != 0 {
		high = 0xFF
	}
	for row := 0; row < 8; row++ {
		p.vram[bank][tileIndex*16+row*2] = low
		p.vram[bank][tileIndex*16+row*2+1] = high
	}
}

func TestScanline_backgroundSolidTile(t *testing.T) {
	p, _, _ := newTestPPU()

	// identity palette, tile 1 solid color 3 over the whole map
	p.Write(addr.BGP, 0b11100100)
	writeTile(p, 0, 1, 3)
	for i := 0; i < 32*32; i++ {
		p.vram[0][addr.TileMap0+uint16(i)] = 1
	}

	p.renderScanline()
	for x := 0; x < FramebufferWidth; x++ {
		assert.Equal(t, BlackShade, p.framebuffer.GetShade(x, 0))
	}
}

func TestScanline_bgpTranslation(t *testing.T) {
	p, _, _ := newTestPPU()

	writeTile(p, 0, 1, 3)
	for i := 0; i < 32; i++ {
		p.vram[0][addr.TileMap0+uint16(i)] = 1
	}

	// inverted palette: color 3 -> shade 0 (white)
	p.Write(addr.BGP, 0b00100111)
	p.renderScanline()
	assert.Equal(t, WhiteShade, p.framebuffer.GetShade(0, 0))
}

func TestScanline_signedTileAddressing(t *testing.T) {
	p, _, _ := newTestPPU()

	// LCDC.4 clear: index is signed, biased by 0x100 tiles
	p.Write(addr.LCDC, 0x91&^uint8(1<<tileDataSelectBit))
	p.Write(addr.BGP, 0b11100100)

	writeTile(p, 0, 0x100, 2) // tile index 0
	for i := 0; i < 32; i++ {
		p.vram[0][addr.TileMap0+uint16(i)] = 0
	}
	p.renderScanline()
	assert.Equal(t, DarkGreyShade, p.framebuffer.GetShade(0, 0))

	// negative index reaches below the bias
	writeTile(p, 0, 0x100-1, 1) // index -1
	for i := 0; i < 32; i++ {
		p.vram[0][addr.TileMap0+uint16(i)] = 0xFF
	}
	p.renderScanline()
	assert.Equal(t, LightGreyShade, p.framebuffer.GetShade(0, 0))
}

func TestScanline_scrollWraps(t *testing.T) {
	p, _, _ := newTestPPU()
	p.Write(addr.BGP, 0b11100100)

	// tile at map column 31 is dark, everything else light
	writeTile(p, 0, 1, 1)
	writeTile(p, 0, 2, 3)
	for i := 0; i < 32*32; i++ {
		p.vram[0][addr.TileMap0+uint16(i)] = 1
	}
	p.vram[0][addr.TileMap0+31] = 2

	p.Write(addr.SCX, 248) // start at map pixel 248: column 31
	p.renderScanline()

	assert.Equal(t, BlackShade, p.framebuffer.GetShade(0, 0))
	// wraps back to column 0 after 8 pixels
	assert.Equal(t, LightGreyShade, p.framebuffer.GetShade(8, 0))
}

func TestScanline_bgDisabledShowsColorZero(t *testing.T) {
	p, _, _ := newTestPPU()

	p.Write(addr.LCDC, 0x91&^uint8(1<<bgEnablePriorityBit))
	p.Write(addr.BGP, 0b11100100)
	writeTile(p, 0, 1, 3)
	for i := 0; i < 32; i++ {
		p.vram[0][addr.TileMap0+uint16(i)] = 1
	}

	p.renderScanline()
	assert.Equal(t, WhiteShade, p.framebuffer.GetShade(0, 0))
}

func TestScanline_windowOverridesBackground(t *testing.T) {
	p, _, _ := newTestPPU()

	lcdc := uint8(0x91) | 1<<windowEnableBit // window on, map 0 shared
	p.Write(addr.LCDC, lcdc)
	p.Write(addr.BGP, 0b11100100)
	p.Write(addr.WY, 0)
	p.Write(addr.WX, 7+80) // window starts at column 80

	writeTile(p, 0, 1, 1)
	for i := 0; i < 32*32; i++ {
		p.vram[0][addr.TileMap0+uint16(i)] = 1
	}

	p.renderScanline()
	// left of the window: background; right: window row 0, same map here
	assert.Equal(t, LightGreyShade, p.framebuffer.GetShade(79, 0))
	assert.Equal(t, LightGreyShade, p.framebuffer.GetShade(80, 0))
	// the internal window line advanced because pixels were emitted
	assert.Equal(t, uint8(1), p.wly)
}

func TestScanline_windowLineCounterHolds(t *testing.T) {
	p, _, _ := newTestPPU()

	// window enabled but WY below the current line: no pixels, no advance
	p.Write(addr.LCDC, 0x91|1<<windowEnableBit)
	p.Write(addr.WY, 100)
	p.Write(addr.WX, 7)

	p.renderScanline()
	assert.Equal(t, uint8(0), p.wly)
}

// placeSprite writes a 4-byte OAM entry.
func placeSprite(p *PPU, index int, y, x, tile, flags uint8) {
	p.oam[index*4] = y
	p.oam[index*4+1] = x
	p.oam[index*4+2] = tile
	p.oam[index*4+3] = flags
}

func TestScanline_spriteDrawsOverBackground(t *testing.T) {
	p, _, _ := newTestPPU()

	p.Write(addr.LCDC, 0x91|1<<spriteEnableBit)
	p.Write(addr.BGP, 0b11100100)
	p.Write(addr.OBP0, 0b11100100)

	writeTile(p, 0, 4, 3)
	placeSprite(p, 0, 16, 8, 4, 0) // top-left corner

	p.renderScanline()
	for x := 0; x < 8; x++ {
		assert.Equal(t, BlackShade, p.framebuffer.GetShade(x, 0))
	}
	assert.Equal(t, WhiteShade, p.framebuffer.GetShade(8, 0))
}

func TestScanline_spriteLimitTenPerLine(t *testing.T) {
	p, _, _ := newTestPPU()

	p.Write(addr.LCDC, 0x91|1<<spriteEnableBit)
	p.Write(addr.OBP0, 0b11100100)
	writeTile(p, 0, 4, 3)

	// 12 sprites on line 0, at distinct columns
	for i := 0; i < 12; i++ {
		placeSprite(p, i, 16, uint8(8+8*i), 4, 0)
	}

	p.renderScanline()
	// the first ten OAM entries render
	assert.Equal(t, BlackShade, p.framebuffer.GetShade(9*8, 0))
	// the eleventh does not
	assert.Equal(t, WhiteShade, p.framebuffer.GetShade(10*8, 0))
}

func TestScanline_spritePriorityByX(t *testing.T) {
	p, _, _ := newTestPPU()

	p.Write(addr.LCDC, 0x91|1<<spriteEnableBit)
	p.Write(addr.OBP0, 0b11100100)
	p.Write(addr.OBP1, 0b00000000) // every color maps to white
	writeTile(p, 0, 4, 3)

	// sprite 0 at x=12 uses OBP1 (white), sprite 1 at x=8 uses OBP0 (black);
	// the lower X wins where they overlap
	placeSprite(p, 0, 16, 12, 4, 1<<spriteDMGPalette)
	placeSprite(p, 1, 16, 8, 4, 0)

	p.renderScanline()
	assert.Equal(t, BlackShade, p.framebuffer.GetShade(4, 0))
	assert.Equal(t, BlackShade, p.framebuffer.GetShade(7, 0))
	// past the overlap the higher-X sprite shows
	assert.Equal(t, WhiteShade, p.framebuffer.GetShade(8, 0))
}

func TestScanline_spriteTieBreakByOAMOrder(t *testing.T) {
	p, _, _ := newTestPPU()

	p.Write(addr.LCDC, 0x91|1<<spriteEnableBit)
	p.Write(addr.OBP0, 0b11100100)
	p.Write(addr.OBP1, 0b00000000)
	writeTile(p, 0, 4, 3)

	// same X: the earlier OAM entry wins
	placeSprite(p, 0, 16, 8, 4, 0)                      // black
	placeSprite(p, 1, 16, 8, 4, 1<<spriteDMGPalette) // white

	p.renderScanline()
	assert.Equal(t, BlackShade, p.framebuffer.GetShade(0, 0))
}

func TestScanline_spriteBehindBackground(t *testing.T) {
	p, _, _ := newTestPPU()

	p.Write(addr.LCDC, 0x91|1<<spriteEnableBit)
	p.Write(addr.BGP, 0b11100100)
	p.Write(addr.OBP0, 0b11100100)

	// background color 1 everywhere, sprite flagged behind-background
	writeTile(p, 0, 1, 1)
	for i := 0; i < 32; i++ {
		p.vram[0][addr.TileMap0+uint16(i)] = 1
	}
	writeTile(p, 0, 4, 3)
	placeSprite(p, 0, 16, 8, 4, 1<<spritePriorityFlag)

	p.renderScanline()
	// suppressed where the background is non-zero
	assert.Equal(t, LightGreyShade, p.framebuffer.GetShade(0, 0))
}

func TestScanline_spriteFlipX(t *testing.T) {
	p, _, _ := newTestPPU()

	p.Write(addr.LCDC, 0x91|1<<spriteEnableBit)
	p.Write(addr.OBP0, 0b11100100)

	// tile with only its leftmost column set
	for row := 0; row < 8; row++ {
		p.vram[0][4*16+row*2] = 0x80
	}
	placeSprite(p, 0, 16, 8, 4, 1<<spriteFlipXFlag)

	p.renderScanline()
	assert.Equal(t, WhiteShade, p.framebuffer.GetShade(0, 0))
	assert.Equal(t, LightGreyShade, p.framebuffer.GetShade(7, 0))
}

func TestScanline_tallSprites(t *testing.T) {
	p, _, _ := newTestPPU()

	p.Write(addr.LCDC, 0x91|1<<spriteEnableBit|1<<spriteSizeBit)
	p.Write(addr.OBP0, 0b11100100)

	// the odd tile index is masked to even in 8x16 mode
	writeTile(p, 0, 6, 0)
	writeTile(p, 0, 7, 3)
	placeSprite(p, 0, 16, 8, 7, 0)

	// row 8 falls in the second tile of the pair
	p.ly = 8
	p.renderScanline()
	assert.Equal(t, BlackShade, p.framebuffer.GetShade(0, 8))
}
