// Package headless runs the emulator without any display, bounded by a
// frame count. Used by tests and for ROM-based regression runs.
package headless

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/valerio/go-dotmatrix/dotmatrix"
	"github.com/valerio/go-dotmatrix/dotmatrix/video"
)

// Runner drives a machine for a fixed number of frames.
type Runner struct {
	gb     *dotmatrix.GameBoy
	frames int

	// SnapshotInterval, when positive, writes a text snapshot of the frame
	// buffer every N frames into SnapshotDir.
	SnapshotInterval int
	SnapshotDir      string
	SnapshotName     string
}

// New creates a headless runner.
func New(gb *dotmatrix.GameBoy, frames int) *Runner {
	return &Runner{gb: gb, frames: frames}
}

// Run executes the configured number of frames.
func (r *Runner) Run() error {
	for i := 0; i < r.frames; i++ {
		fb, err := r.gb.RunFrame()
		if err != nil {
			return err
		}

		if r.SnapshotInterval > 0 && (i+1)%r.SnapshotInterval == 0 {
			path := fmt.Sprintf("%s/%s_frame_%d.txt", r.SnapshotDir, r.SnapshotName, i+1)
			if err := saveSnapshot(fb, path); err != nil {
				slog.Error("Failed to save snapshot", "frame", i+1, "path", path, "error", err)
			} else {
				slog.Info("Saved frame snapshot", "frame", i+1, "path", path)
			}
		}

		if i%10 == 0 {
			slog.Info("Frame progress", "completed", i+1, "total", r.frames)
		}
	}

	return nil
}

// halfBlocks renders two pixel rows per text row using block characters.
var halfBlocks = []rune{' ', '▀', '▄', '█'}

// RenderShadesToText converts a monochrome frame to text lines, two pixel
// rows per line. A pixel is "on" when darker than mid grey.
func RenderShadesToText(shades []uint8) []string {
	lines := make([]string, 0, video.FramebufferHeight/2)
	for y := 0; y < video.FramebufferHeight; y += 2 {
		var sb strings.Builder
		for x := 0; x < video.FramebufferWidth; x++ {
			top := shades[y*video.FramebufferWidth+x] < 0x80
			bottom := shades[(y+1)*video.FramebufferWidth+x] < 0x80
			index := 0
			if top {
				index |= 1
			}
			if bottom {
				index |= 2
			}
			sb.WriteRune(halfBlocks[index])
		}
		lines = append(lines, sb.String())
	}
	return lines
}

func saveSnapshot(fb *video.FrameBuffer, path string) error {
	if fb.IsColor() {
		return fmt.Errorf("snapshots are only supported for monochrome frames")
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, line := range RenderShadesToText(fb.Shades()) {
		if _, err := fmt.Fprintln(file, line); err != nil {
			return err
		}
	}

	return nil
}
