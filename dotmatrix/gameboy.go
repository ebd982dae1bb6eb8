package dotmatrix

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/valerio/go-dotmatrix/dotmatrix/addr"
	"github.com/valerio/go-dotmatrix/dotmatrix/cpu"
	"github.com/valerio/go-dotmatrix/dotmatrix/input"
	"github.com/valerio/go-dotmatrix/dotmatrix/memory"
	"github.com/valerio/go-dotmatrix/dotmatrix/serial"
	"github.com/valerio/go-dotmatrix/dotmatrix/video"
)

// GameBoy is the top-level clock: one Tick advances the whole machine by a
// single machine cycle, invoking timer, PPU and CPU in a fixed order. The
// core is single threaded; all calls on one instance must be serialized.
type GameBoy struct {
	cpu        *cpu.CPU
	ppu        *video.PPU
	bus        *memory.Bus
	timer      *memory.Timer
	interrupts *memory.InterruptController
	joypad     *memory.Joypad
	serial     *serial.LogSink
	inputs     *input.Queue

	color      bool
	frameCount uint64
}

// Option configures a GameBoy during construction.
type Option func(*config)

type config struct {
	bootROM []byte
}

// WithBootROM runs the machine from the given boot ROM image instead of
// seeding post-boot register state.
func WithBootROM(data []byte) Option {
	return func(c *config) { c.bootROM = data }
}

// New builds a machine around the given ROM image. Cartridge validation
// failures (header checksum, unsupported type, size mismatch) surface here,
// before emulation starts.
func New(rom []byte, opts ...Option) (*GameBoy, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	cart, err := memory.NewCartridge(rom)
	if err != nil {
		return nil, err
	}

	gb := &GameBoy{
		interrupts: &memory.InterruptController{},
		inputs:     input.NewQueue(),
		color:      cart.Header().IsCGB(),
	}

	gb.timer = memory.NewTimer(func() { gb.interrupts.Request(addr.TimerInterrupt) })
	gb.joypad = memory.NewJoypad(func() { gb.interrupts.Request(addr.JoypadInterrupt) })
	gb.serial = serial.NewLogSink(func() { gb.interrupts.Request(addr.SerialInterrupt) })

	var boot *memory.BootROM
	if len(cfg.bootROM) > 0 {
		boot = memory.NewBootROM(cfg.bootROM, gb.color)
	}

	gb.bus = memory.NewBus(boot, cart, gb.interrupts, gb.timer, gb.joypad, gb.serial)
	gb.ppu = video.New(gb.color, gb.interrupts.Request)
	gb.bus.AttachVideo(gb.ppu)
	gb.ppu.AttachBus(gb.bus.Read)
	gb.cpu = cpu.New(gb.bus, gb.interrupts)

	if boot == nil {
		gb.cpu.ResetNoBoot(gb.color)
		gb.timer.SetSeed(0xABCC)
		gb.seedLCD()
	}

	return gb, nil
}

// NewWithFile builds a machine from a ROM file on disk.
func NewWithFile(path string, opts ...Option) (*GameBoy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ROM: %w", err)
	}

	slog.Debug("Loaded ROM data", "path", path, "size", len(data))

	return New(data, opts...)
}

// seedLCD applies the register values the boot ROM would leave behind.
func (gb *GameBoy) seedLCD() {
	gb.bus.Write(addr.LCDC, 0x91)
	gb.bus.Write(addr.BGP, 0xFC)
	gb.bus.Write(addr.OBP0, 0xFF)
	gb.bus.Write(addr.OBP1, 0xFF)
}

// Tick advances the emulation by one machine cycle: timer, PPU, then CPU.
// It reports whether the PPU completed a frame on this cycle. The only
// in-core failure is an illegal opcode.
func (gb *GameBoy) Tick() (bool, error) {
	gb.timer.Tick()
	gb.serial.Tick(4)
	frame := gb.ppu.Tick()

	if err := gb.cpu.ExecuteCycle(); err != nil {
		return frame, err
	}

	if frame {
		gb.frameCount++
		gb.drainInput()
	}

	return frame, nil
}

// RunFrame advances until the next frame completes and returns the
// PPU-owned frame buffer as a read-only borrow.
func (gb *GameBoy) RunFrame() (*video.FrameBuffer, error) {
	for {
		frame, err := gb.Tick()
		if err != nil {
			return nil, err
		}
		if frame {
			return gb.ppu.FrameBuffer(), nil
		}
	}
}

// drainInput applies queued button events at the VBlank boundary.
func (gb *GameBoy) drainInput() {
	for _, ev := range gb.inputs.Drain() {
		if ev.Pressed {
			gb.joypad.Press(ev.Key)
		} else {
			gb.joypad.Release(ev.Key)
		}
	}
}

// Input returns the event queue front ends push button events into.
func (gb *GameBoy) Input() *input.Queue {
	return gb.inputs
}

// FrameBuffer returns the current frame buffer.
func (gb *GameBoy) FrameBuffer() *video.FrameBuffer {
	return gb.ppu.FrameBuffer()
}

// Bus exposes the memory bus for tools and tests.
func (gb *GameBoy) Bus() *memory.Bus {
	return gb.bus
}

// Serial returns the serial sink, whose transcript test harnesses scan.
func (gb *GameBoy) Serial() *serial.LogSink {
	return gb.serial
}

// IsColor reports whether the machine runs in color mode.
func (gb *GameBoy) IsColor() bool {
	return gb.color
}

// FrameCount returns the number of completed frames.
func (gb *GameBoy) FrameCount() uint64 {
	return gb.frameCount
}
