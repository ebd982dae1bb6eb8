package video

import (
	"github.com/valerio/go-dotmatrix/dotmatrix/bit"
)

// Sprite is one of the 40 four-byte OAM entries. Y and X are stored with a
// +16 and +8 bias respectively.
type Sprite struct {
	Y     uint8
	X     uint8
	Tile  uint8
	Flags uint8
}

// Sprite attribute flag bits. In color mode the low nibble additionally
// carries the palette number (bits 0-2) and the VRAM bank (bit 3).
const (
	spritePaletteMask  uint8 = 0x07 // CGB palette number
	spriteBankFlag     uint8 = 3    // CGB tile data bank
	spriteDMGPalette   uint8 = 4    // OBP0/OBP1 select
	spriteFlipXFlag    uint8 = 5
	spriteFlipYFlag    uint8 = 6
	spritePriorityFlag uint8 = 7 // behind non-zero background when set
)

// ScreenY returns the top scanline covered by the sprite.
func (s Sprite) ScreenY() int {
	return int(s.Y) - 16
}

// ScreenX returns the leftmost column covered by the sprite.
func (s Sprite) ScreenX() int {
	return int(s.X) - 8
}

// FlipX reports whether the sprite is mirrored horizontally.
func (s Sprite) FlipX() bool {
	return bit.IsSet(spriteFlipXFlag, s.Flags)
}

// FlipY reports whether the sprite is mirrored vertically.
func (s Sprite) FlipY() bool {
	return bit.IsSet(spriteFlipYFlag, s.Flags)
}

// BehindBackground reports whether non-zero background pixels obscure the sprite.
func (s Sprite) BehindBackground() bool {
	return bit.IsSet(spritePriorityFlag, s.Flags)
}

// spriteAt decodes the OAM entry with the given index.
func spriteAt(oam []uint8, index int) Sprite {
	base := index * 4
	return Sprite{
		Y:     oam[base],
		X:     oam[base+1],
		Tile:  oam[base+2],
		Flags: oam[base+3],
	}
}
