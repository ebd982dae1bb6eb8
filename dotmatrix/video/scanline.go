package video

import (
	"sort"

	"github.com/valerio/go-dotmatrix/dotmatrix/addr"
	"github.com/valerio/go-dotmatrix/dotmatrix/bit"
)

// Tile attribute bits (color mode, VRAM bank 1 entry at the tile map address).
const (
	tileAttrPaletteMask uint8 = 0x07
	tileAttrBankFlag    uint8 = 3
	tileAttrFlipXFlag   uint8 = 5
	tileAttrFlipYFlag   uint8 = 6
	tileAttrPriority    uint8 = 7
)

// renderScanline produces the 160 pixels of row LY: background, then window,
// then sprites. The bgPrio side array carries background priority state from
// the first two passes into the sprite pass.
func (p *PPU) renderScanline() {
	for i := range p.bgPrio {
		p.bgPrio[i] = bgPriority{}
	}

	if !bit.IsSet(lcdEnable, p.lcdc) {
		p.clearLine()
		return
	}

	p.renderBackground()
	p.renderWindow()
	p.renderSprites()
}

func (p *PPU) clearLine() {
	y := int(p.ly)
	for x := 0; x < FramebufferWidth; x++ {
		if p.color {
			p.framebuffer.SetRGB(x, y, 0xFF, 0xFF, 0xFF)
		} else {
			p.framebuffer.SetShade(x, y, WhiteShade)
		}
	}
}

// tileRowAddress resolves a tile index and row to a VRAM offset using the
// LCDC.4 addressing mode: unsigned from 0x0000 when set, signed biased by
// 0x100 tiles when clear.
func (p *PPU) tileRowAddress(tileIndex uint8, row int) uint16 {
	if bit.IsSet(tileDataSelectBit, p.lcdc) {
		return uint16(tileIndex)*16 + uint16(row)*2
	}

	return uint16((0x100+int(int8(tileIndex)))*16 + row*2)
}

// tilePixel extracts the 2-bit value of column col (0 = leftmost) from a
// tile row pair: the low bit of each column lives in the earlier byte, the
// high bit in the next.
func tilePixel(low, high uint8, col int) uint8 {
	index := uint8(7 - col)
	return bit.GetBitValue(index, low) | bit.GetBitValue(index, high)<<1
}

func (p *PPU) renderBackground() {
	y := int(p.ly)

	// In monochrome mode LCDC.0 turns the background off entirely; the line
	// shows BGP color 0. In color mode the bit only demotes priority.
	if !p.color && !bit.IsSet(bgEnablePriorityBit, p.lcdc) {
		shade := ShadeForValue(p.bgp & 0x03)
		for x := 0; x < FramebufferWidth; x++ {
			p.framebuffer.SetShade(x, y, shade)
		}
		return
	}

	mapBase := addr.TileMap0
	if bit.IsSet(bgTileMapBit, p.lcdc) {
		mapBase = addr.TileMap1
	}

	bgY := (y + int(p.scy)) & 0xFF
	for x := 0; x < FramebufferWidth; x++ {
		bgX := (x + int(p.scx)) & 0xFF
		p.drawTileMapPixel(x, y, mapBase, bgX, bgY)
	}
}

func (p *PPU) renderWindow() {
	if !bit.IsSet(bgEnablePriorityBit, p.lcdc) || !bit.IsSet(windowEnableBit, p.lcdc) {
		return
	}
	if int(p.wy) > int(p.ly) {
		return
	}

	mapBase := addr.TileMap0
	if bit.IsSet(windowTileMapBit, p.lcdc) {
		mapBase = addr.TileMap1
	}

	y := int(p.ly)
	startX := int(p.wx) - 7
	if startX >= FramebufferWidth {
		return
	}
	if startX < 0 {
		startX = 0
	}

	drawn := false
	for x := startX; x < FramebufferWidth; x++ {
		winX := x - (int(p.wx) - 7)
		p.drawTileMapPixel(x, y, mapBase, winX, int(p.wly))
		drawn = true
	}

	if drawn {
		p.wly++
	}
}

// drawTileMapPixel fetches one pixel from a 32x32 tile map at map-space
// coordinates (mx, my) and writes it to the frame buffer at (x, y),
// recording its priority state.
func (p *PPU) drawTileMapPixel(x, y int, mapBase uint16, mx, my int) {
	mapIndex := mapBase + uint16(my/8)*32 + uint16(mx/8)
	tileIndex := p.vram[0][mapIndex]

	row := my % 8
	col := mx % 8

	if !p.color {
		tileAddr := p.tileRowAddress(tileIndex, row)
		value := tilePixel(p.vram[0][tileAddr], p.vram[0][tileAddr+1], col)
		p.framebuffer.SetShade(x, y, ShadeForValue(p.bgp>>(value*2)&0x03))
		p.bgPrio[x] = bgPriority{nonzero: value != 0}
		return
	}

	attr := p.vram[1][mapIndex]
	if bit.IsSet(tileAttrFlipYFlag, attr) {
		row = 7 - row
	}
	if bit.IsSet(tileAttrFlipXFlag, attr) {
		col = 7 - col
	}

	bank := bit.GetBitValue(tileAttrBankFlag, attr)
	tileAddr := p.tileRowAddress(tileIndex, row)
	value := tilePixel(p.vram[bank][tileAddr], p.vram[bank][tileAddr+1], col)

	r, g, b := decodeColor(p.bgPalette[:], attr&tileAttrPaletteMask, value)
	p.framebuffer.SetRGB(x, y, r, g, b)
	p.bgPrio[x] = bgPriority{
		priority: bit.IsSet(tileAttrPriority, attr),
		nonzero:  value != 0,
	}
}

func (p *PPU) renderSprites() {
	if !bit.IsSet(spriteEnableBit, p.lcdc) {
		return
	}

	height := 8
	if bit.IsSet(spriteSizeBit, p.lcdc) {
		height = 16
	}

	// OAM scan: keep the first 10 sprites covering this line, in OAM order.
	type candidate struct {
		sprite Sprite
		index  int
	}
	var kept []candidate
	y := int(p.ly)
	for i := 0; i < 40 && len(kept) < 10; i++ {
		s := spriteAt(p.oam[:], i)
		if y >= s.ScreenY() && y < s.ScreenY()+height {
			kept = append(kept, candidate{sprite: s, index: i})
		}
	}

	// Draw in increasing priority: higher X first, and for equal X the later
	// OAM entry first, so lower-X and earlier-OAM sprites overwrite.
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].sprite.X != kept[j].sprite.X {
			return kept[i].sprite.X > kept[j].sprite.X
		}
		return kept[i].index > kept[j].index
	})

	for _, c := range kept {
		p.drawSprite(c.sprite, height)
	}
}

func (p *PPU) drawSprite(s Sprite, height int) {
	y := int(p.ly)
	row := y - s.ScreenY()
	if s.FlipY() {
		row = height - 1 - row
	}

	tile := s.Tile
	if height == 16 {
		tile &= 0xFE
	}

	bank := uint8(0)
	if p.color {
		bank = bit.GetBitValue(spriteBankFlag, s.Flags)
	}

	// Sprites always use unsigned addressing from 0x0000.
	tileAddr := uint16(tile)*16 + uint16(row)*2
	low := p.vram[bank][tileAddr]
	high := p.vram[bank][tileAddr+1]

	for px := 0; px < 8; px++ {
		x := s.ScreenX() + px
		if x < 0 || x >= FramebufferWidth {
			continue
		}

		col := px
		if s.FlipX() {
			col = 7 - px
		}

		value := tilePixel(low, high, col)
		if value == 0 {
			continue
		}

		if p.spriteObscured(s, x) {
			continue
		}

		if p.color {
			r, g, b := decodeColor(p.objPalette[:], s.Flags&spritePaletteMask, value)
			p.framebuffer.SetRGB(x, y, r, g, b)
		} else {
			palette := p.obp0
			if bit.IsSet(spriteDMGPalette, s.Flags) {
				palette = p.obp1
			}
			p.framebuffer.SetShade(x, y, ShadeForValue(palette>>(value*2)&0x03))
		}
	}
}

// spriteObscured applies the background priority rules to a non-zero sprite
// pixel at column x.
func (p *PPU) spriteObscured(s Sprite, x int) bool {
	if !p.bgPrio[x].nonzero {
		return false
	}

	if !p.color {
		return s.BehindBackground()
	}

	// In color mode a clear LCDC.0 puts sprites above everything.
	if !bit.IsSet(bgEnablePriorityBit, p.lcdc) {
		return false
	}

	return p.bgPrio[x].priority || s.BehindBackground()
}
