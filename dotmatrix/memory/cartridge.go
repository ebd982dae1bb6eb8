package memory

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valerio/go-dotmatrix/dotmatrix/bit"
)

// Load-time validation failures. All are fatal before emulation starts.
var (
	ErrHeaderChecksum          = errors.New("cartridge header checksum mismatch")
	ErrUnsupportedCartridgeType = errors.New("unsupported cartridge type")
	ErrROMSizeMismatch         = errors.New("declared ROM size does not match file size")
)

const titleLength = 11

const (
	titleAddress          = 0x134
	makerCodeAddress      = 0x13F
	cgbFlagAddress        = 0x143
	newLicenseeAddress    = 0x144
	sgbFlagAddress        = 0x146
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	destinationAddress    = 0x14A
	oldLicenseeAddress    = 0x14B
	versionAddress        = 0x14C
	headerChecksumAddress = 0x14D
	globalChecksumAddress = 0x14E
)

// sramSizes maps the SRAM size code at 0x149 to a byte count.
var sramSizes = [6]int{0, 2 * 1024, 8 * 1024, 32 * 1024, 128 * 1024, 64 * 1024}

// Header holds the parsed cartridge header (bytes 0x100-0x14F).
type Header struct {
	Title          string
	MakerCode      string
	CGBFlag        uint8
	NewLicensee    string
	SGBFlag        uint8
	CartType       uint8
	ROMSizeCode    uint8
	RAMSizeCode    uint8
	Destination    uint8
	OldLicensee    uint8
	Version        uint8
	HeaderChecksum uint8
	GlobalChecksum uint16
}

// ROMSize returns the declared ROM size in bytes (32 KiB << code).
func (h *Header) ROMSize() int {
	return (32 * 1024) << h.ROMSizeCode
}

// RAMSize returns the declared SRAM size in bytes.
func (h *Header) RAMSize() int {
	if int(h.RAMSizeCode) >= len(sramSizes) {
		return 0
	}

	return sramSizes[h.RAMSizeCode]
}

// IsCGB reports whether the cartridge requests color-mode hardware.
func (h *Header) IsCGB() bool {
	return h.CGBFlag&0x80 != 0
}

// ParseHeader reads and validates the header region of a ROM image.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < 0x150 {
		return nil, fmt.Errorf("%w: ROM too small to contain a header (%d bytes)", ErrROMSizeMismatch, len(rom))
	}

	// The checksum covers 0x134-0x14C: x = x - byte - 1 for each byte,
	// starting from zero, must equal the byte at 0x14D.
	var sum uint8
	for a := 0x134; a <= 0x14C; a++ {
		sum = sum - rom[a] - 1
	}
	if sum != rom[headerChecksumAddress] {
		return nil, fmt.Errorf("%w: computed 0x%02X, header declares 0x%02X",
			ErrHeaderChecksum, sum, rom[headerChecksumAddress])
	}

	title := strings.TrimRight(string(rom[titleAddress:titleAddress+titleLength]), "\x00")

	return &Header{
		Title:          title,
		MakerCode:      string(rom[makerCodeAddress : makerCodeAddress+4]),
		CGBFlag:        rom[cgbFlagAddress],
		NewLicensee:    string(rom[newLicenseeAddress : newLicenseeAddress+2]),
		SGBFlag:        rom[sgbFlagAddress],
		CartType:       rom[cartridgeTypeAddress],
		ROMSizeCode:    rom[romSizeAddress],
		RAMSizeCode:    rom[ramSizeAddress],
		Destination:    rom[destinationAddress],
		OldLicensee:    rom[oldLicenseeAddress],
		Version:        rom[versionAddress],
		HeaderChecksum: rom[headerChecksumAddress],
		GlobalChecksum: bit.Combine(rom[globalChecksumAddress], rom[globalChecksumAddress+1]),
	}, nil
}

// Cartridge is the ROM image together with its SRAM buffer and the embedded
// bank controller.
type Cartridge struct {
	header *Header
	rom    []byte
	sram   []byte
	mbc    MBC
}

// NewCartridge parses, validates and wires up a ROM image.
func NewCartridge(rom []byte) (*Cartridge, error) {
	header, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}

	if header.ROMSize() != len(rom) {
		return nil, fmt.Errorf("%w: header declares %d bytes, file has %d",
			ErrROMSizeMismatch, header.ROMSize(), len(rom))
	}

	cart := &Cartridge{
		header: header,
		rom:    rom,
		sram:   make([]byte, header.RAMSize()),
	}

	switch header.CartType {
	case 0x00, 0x08, 0x09:
		cart.mbc = NewROMOnly()
	case 0x01, 0x02, 0x03:
		cart.mbc = NewMBC1(len(rom) / 0x4000)
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnsupportedCartridgeType, header.CartType)
	}

	slog.Debug("Loaded cartridge",
		"title", header.Title,
		"type", fmt.Sprintf("0x%02X", header.CartType),
		"rom_size", header.ROMSize(),
		"sram_size", header.RAMSize(),
		"cgb", header.IsCGB())

	return cart, nil
}

// Header returns the parsed cartridge header.
func (c *Cartridge) Header() *Header {
	return c.header
}

// Read resolves a CPU address in 0x0000-0x7FFF or 0xA000-0xBFFF through the
// bank controller.
func (c *Cartridge) Read(address uint16) uint8 {
	switch {
	case address <= 0x7FFF:
		offset := c.mbc.TranslateROM(address)
		if len(c.rom) == 0 {
			return 0xFF
		}
		return c.rom[offset%len(c.rom)]
	case address >= 0xA000 && address <= 0xBFFF:
		if !c.mbc.SRAMEnabled() || len(c.sram) == 0 {
			return 0xFF
		}
		return c.sram[c.mbc.TranslateSRAM(address)%len(c.sram)]
	default:
		return 0xFF
	}
}

// Write routes low-window writes to the bank controller registers and
// SRAM-window writes to the SRAM buffer.
func (c *Cartridge) Write(address uint16, value uint8) {
	switch {
	case address <= 0x7FFF:
		c.mbc.WriteRegister(address, value)
	case address >= 0xA000 && address <= 0xBFFF:
		if !c.mbc.SRAMEnabled() || len(c.sram) == 0 {
			return
		}
		c.sram[c.mbc.TranslateSRAM(address)%len(c.sram)] = value
	}
}
