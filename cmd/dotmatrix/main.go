package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"

	"github.com/valerio/go-dotmatrix/dotmatrix"
	"github.com/valerio/go-dotmatrix/dotmatrix/backend/headless"
	"github.com/valerio/go-dotmatrix/dotmatrix/backend/terminal"
)

func main() {
	app := cli.NewApp()
	app.Name = "dotmatrix"
	app.Description = "A cycle-accurate Game Boy emulator"
	app.Usage = "dotmatrix [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "bootrom",
			Usage: "Path to a boot ROM image (optional)",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	var opts []dotmatrix.Option
	if bootPath := c.String("bootrom"); bootPath != "" {
		data, err := os.ReadFile(bootPath)
		if err != nil {
			return fmt.Errorf("reading boot ROM: %w", err)
		}
		opts = append(opts, dotmatrix.WithBootROM(data))
	}

	gb, err := dotmatrix.NewWithFile(romPath, opts...)
	if err != nil {
		return err
	}

	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames option with a positive value")
		}

		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		slog.SetDefault(slog.New(handler))

		runner := headless.New(gb, frames)
		runner.SnapshotInterval = c.Int("snapshot-interval")

		if runner.SnapshotInterval > 0 {
			dir := c.String("snapshot-dir")
			if dir == "" {
				tempDir, err := os.MkdirTemp("", "dotmatrix-snapshots-*")
				if err != nil {
					return fmt.Errorf("failed to create snapshot directory: %w", err)
				}
				dir = tempDir
			} else if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create snapshot directory: %w", err)
			}
			runner.SnapshotDir = dir

			romName := filepath.Base(romPath)
			runner.SnapshotName = strings.TrimSuffix(romName, filepath.Ext(romName))
		}

		slog.Info("Running headless mode", "frames", frames)
		return runner.Run()
	}

	renderer, err := terminal.New(gb)
	if err != nil {
		return err
	}

	return renderer.Run()
}
