package video

const (
	// FramebufferWidth is the LCD width in pixels.
	FramebufferWidth = 160
	// FramebufferHeight is the LCD height in pixels.
	FramebufferHeight = 144
	// FramebufferSize is the pixel count of a full frame.
	FramebufferSize = FramebufferWidth * FramebufferHeight
)

// Monochrome shades, from white to black. A background pixel value is
// translated through BGP and then through this table.
const (
	WhiteShade     uint8 = 0xFF
	LightGreyShade uint8 = 0xAA
	DarkGreyShade  uint8 = 0x55
	BlackShade     uint8 = 0x00
)

var shadeTable = [4]uint8{WhiteShade, LightGreyShade, DarkGreyShade, BlackShade}

// ShadeForValue maps a 2-bit palette color to its monochrome shade byte.
func ShadeForValue(value uint8) uint8 {
	return shadeTable[value&0x03]
}

// FrameBuffer holds one rendered frame. In monochrome mode each pixel is a
// single shade byte; in color mode each pixel is four RGBA bytes with A=0xFF.
// The buffer is owned by the PPU; renderers get a read-only borrow at VBlank.
type FrameBuffer struct {
	color  bool
	shades []uint8
	rgba   []uint8
}

// NewFrameBuffer allocates a frame buffer for the given mode.
func NewFrameBuffer(color bool) *FrameBuffer {
	fb := &FrameBuffer{color: color}
	if color {
		fb.rgba = make([]uint8, FramebufferSize*4)
	} else {
		fb.shades = make([]uint8, FramebufferSize)
	}

	return fb
}

// IsColor reports whether the buffer holds RGBA pixels.
func (fb *FrameBuffer) IsColor() bool {
	return fb.color
}

// SetShade writes a monochrome pixel.
func (fb *FrameBuffer) SetShade(x, y int, shade uint8) {
	fb.shades[y*FramebufferWidth+x] = shade
}

// GetShade reads a monochrome pixel.
func (fb *FrameBuffer) GetShade(x, y int) uint8 {
	return fb.shades[y*FramebufferWidth+x]
}

// SetRGB writes a color pixel; alpha is always 0xFF.
func (fb *FrameBuffer) SetRGB(x, y int, r, g, b uint8) {
	i := (y*FramebufferWidth + x) * 4
	fb.rgba[i] = r
	fb.rgba[i+1] = g
	fb.rgba[i+2] = b
	fb.rgba[i+3] = 0xFF
}

// Shades returns the monochrome pixel buffer in row-major order.
// Nil in color mode.
func (fb *FrameBuffer) Shades() []uint8 {
	return fb.shades
}

// RGBA returns the color pixel buffer in row-major R,G,B,A order.
// Nil in monochrome mode.
func (fb *FrameBuffer) RGBA() []uint8 {
	return fb.rgba
}
