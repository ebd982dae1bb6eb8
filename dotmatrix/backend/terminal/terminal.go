// Package terminal renders frames into a tcell screen using block
// characters and feeds key events back into the input queue.
package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-dotmatrix/dotmatrix"
	"github.com/valerio/go-dotmatrix/dotmatrix/memory"
	"github.com/valerio/go-dotmatrix/dotmatrix/timing"
	"github.com/valerio/go-dotmatrix/dotmatrix/video"
)

// Since terminal characters are taller than wide, scale the width to keep
// an approximate aspect ratio.
const (
	scaleX = 2
	scaleY = 1
)

// Characters to represent different shades, from lightest to darkest.
var shadeChars = [4]rune{' ', '░', '▒', '█'}

// Renderer drives a machine and paints each frame into the terminal.
type Renderer struct {
	screen  tcell.Screen
	gb      *dotmatrix.GameBoy
	limiter timing.Limiter
	running bool
}

// New initializes a terminal renderer for the given machine.
func New(gb *dotmatrix.GameBoy) (*Renderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}

	return &Renderer{
		screen:  screen,
		gb:      gb,
		limiter: timing.NewTickerLimiter(),
		running: true,
	}, nil
}

// Run is the main loop: one frame of emulation, one paint, until the user
// quits or the guest faults.
func (t *Renderer) Run() error {
	defer func() {
		slog.Info("Finishing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite))
	t.screen.Clear()

	go t.handleInput()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for t.running {
		select {
		case <-signals:
			t.running = false
			slog.Info("Received signal to stop")
			return nil
		default:
		}

		fb, err := t.gb.RunFrame()
		if err != nil {
			return err
		}

		t.render(fb)
		t.screen.Show()
		t.limiter.WaitForNextFrame()
	}

	return nil
}

// keyFor maps a tcell event to a joypad key.
func keyFor(ev *tcell.EventKey) (memory.JoypadKey, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return memory.JoypadUp, true
	case tcell.KeyDown:
		return memory.JoypadDown, true
	case tcell.KeyLeft:
		return memory.JoypadLeft, true
	case tcell.KeyRight:
		return memory.JoypadRight, true
	case tcell.KeyEnter:
		return memory.JoypadStart, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return memory.JoypadSelect, true
	}

	switch ev.Rune() {
	case 'z', 'Z':
		return memory.JoypadA, true
	case 'x', 'X':
		return memory.JoypadB, true
	}

	return 0, false
}

func (t *Renderer) handleInput() {
	for t.running {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape {
				t.running = false
				return
			}
			if key, ok := keyFor(ev); ok {
				// terminals deliver no key-up events; emulate a tap
				t.gb.Input().Push(key, true)
				t.gb.Input().Push(key, false)
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *Renderer) render(fb *video.FrameBuffer) {
	t.screen.Clear()

	for y := 0; y < video.FramebufferHeight; y += scaleY {
		for x := 0; x < video.FramebufferWidth; x++ {
			var char rune
			style := tcell.StyleDefault

			if fb.IsColor() {
				rgba := fb.RGBA()
				i := (y*video.FramebufferWidth + x) * 4
				style = style.Foreground(tcell.NewRGBColor(
					int32(rgba[i]), int32(rgba[i+1]), int32(rgba[i+2])))
				char = '█'
			} else {
				shade := fb.GetShade(x, y)
				char = shadeChars[3-shade/64]
				style = style.Foreground(tcell.ColorWhite)
			}

			for sx := 0; sx < scaleX; sx++ {
				t.screen.SetContent(x*scaleX+sx, y/scaleY, char, nil, style)
			}
		}
	}
}
