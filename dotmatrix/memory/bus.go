package memory

import (
	"github.com/valerio/go-dotmatrix/dotmatrix/addr"
)

// VideoPort is the PPU as seen from the bus: VRAM, OAM and the LCD register
// file. The PPU applies its own mode and DMA gating behind this interface.
type VideoPort interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value uint8)
	Read(address uint16) uint8
	Tick(cycles int)
	Reset()
}

// Bus is the address decoder. Every completed read or write corresponds to
// one machine cycle of CPU work; the bus itself holds no state beyond the
// scratch memories and the boot-ROM overlay it consults first.
type Bus struct {
	bootROM    *BootROM
	cart       *Cartridge
	video      VideoPort
	serial     SerialPort
	timer      *Timer
	interrupts *InterruptController
	joypad     *Joypad

	wram [0x2000]uint8
	hram [0x7F]uint8
}

// NewBus wires the decoder to its peripherals. The video port is attached
// separately to break the construction cycle between bus and PPU.
func NewBus(boot *BootROM, cart *Cartridge, ic *InterruptController, timer *Timer, joypad *Joypad, serial SerialPort) *Bus {
	return &Bus{
		bootROM:    boot,
		cart:       cart,
		serial:     serial,
		timer:      timer,
		interrupts: ic,
		joypad:     joypad,
	}
}

// AttachVideo connects the PPU after construction.
func (b *Bus) AttachVideo(v VideoPort) {
	b.video = v
}

func (b *Bus) Read(address uint16) uint8 {
	switch {
	case address <= 0x7FFF:
		if b.bootROM != nil && b.bootROM.Contains(address) {
			return b.bootROM.Read(address)
		}
		return b.cart.Read(address)
	case address <= 0x9FFF:
		return b.video.Read(address)
	case address <= 0xBFFF:
		return b.cart.Read(address)
	case address <= 0xDFFF:
		return b.wram[address-0xC000]
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		return b.video.Read(address)
	case address == addr.P1:
		return b.joypad.Read()
	case address == addr.SB || address == addr.SC:
		if b.serial == nil {
			return 0xFF
		}
		return b.serial.Read(address)
	case address >= addr.DIV && address <= addr.TAC:
		return b.timer.Read(address)
	case address == addr.IF:
		return b.interrupts.ReadFlags()
	case address >= addr.LCDC && address <= addr.WX:
		return b.video.Read(address)
	case address == addr.VBK:
		return b.video.Read(address)
	case address == addr.BANK:
		return 0xFF
	case address >= addr.HDMA1 && address <= addr.HDMA5:
		return b.video.Read(address)
	case address >= addr.BCPS && address <= addr.OCPD:
		return b.video.Read(address)
	case address >= 0xFF80 && address <= 0xFFFE:
		return b.hram[address-0xFF80]
	case address == addr.IE:
		return b.interrupts.ReadEnable()
	default:
		return 0xFF
	}
}

func (b *Bus) Write(address uint16, value uint8) {
	switch {
	case address <= 0x7FFF:
		b.cart.Write(address, value)
	case address <= 0x9FFF:
		b.video.Write(address, value)
	case address <= 0xBFFF:
		b.cart.Write(address, value)
	case address <= 0xDFFF:
		b.wram[address-0xC000] = value
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		b.video.Write(address, value)
	case address == addr.P1:
		b.joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		if b.serial != nil {
			b.serial.Write(address, value)
		}
	case address >= addr.DIV && address <= addr.TAC:
		b.timer.Write(address, value)
	case address == addr.IF:
		b.interrupts.WriteFlags(value)
	case address >= addr.LCDC && address <= addr.WX:
		b.video.Write(address, value)
	case address == addr.VBK:
		b.video.Write(address, value)
	case address == addr.BANK:
		if b.bootROM != nil {
			b.bootROM.Disable(value)
		}
	case address >= addr.HDMA1 && address <= addr.HDMA5:
		b.video.Write(address, value)
	case address >= addr.BCPS && address <= addr.OCPD:
		b.video.Write(address, value)
	case address >= 0xFF80 && address <= 0xFFFE:
		b.hram[address-0xFF80] = value
	case address == addr.IE:
		b.interrupts.WriteEnable(value)
	}
}
