package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/tmajkech/dotmatrix/dotmatrix"
	"github.com/tmajkech/dotmatrix/dotmatrix/backend"
	"github.com/tmajkech/dotmatrix/dotmatrix/config"
	"github.com/tmajkech/dotmatrix/dotmatrix/persist"
)

func main() {
	app := cli.NewApp()
	app.Name = "dotmatrix"
	app.Description = "A Game Boy (DMG) emulator"
	app.Usage = "dotmatrix [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Display backend: terminal or sdl2",
			Value: "terminal",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without a display",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.IntFlag{
			Name:  "sample-rate",
			Usage: "Audio sample rate in Hz (0 disables sample generation)",
			Value: 44100,
		},
		cli.IntFlag{
			Name:  "load-slot",
			Usage: "Save-state slot to load at startup (-1 = none)",
			Value: -1,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("error running emulator", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	sampleRate := c.Int("sample-rate")
	if c.Bool("headless") {
		// Nothing plays audio in headless mode.
		sampleRate = 0
	}

	machine, err := dotmatrix.NewFromFile(romPath, dotmatrix.WithSampleRate(sampleRate))
	if err != nil {
		return err
	}

	store := persist.FileStore{}

	// Battery RAM is restored before execution and written out on exit.
	if ram := machine.Cartridge().RAM(); len(ram) > 0 {
		batteryPath := persist.BatteryPath(romPath)
		if data, err := store.Load(batteryPath); err == nil {
			machine.Cartridge().LoadRAM(data)
			slog.Info("battery RAM loaded", "path", batteryPath)
		}
		defer func() {
			if err := store.Save(batteryPath, machine.Cartridge().RAM()); err != nil {
				slog.Error("battery RAM save failed", "path", batteryPath, "error", err)
			}
		}()
	}

	if slot := c.Int("load-slot"); slot >= 0 {
		path := persist.SaveStatePath(romPath, slot)
		data, err := store.Load(path)
		if err == nil {
			err = machine.Load(data)
		}
		if err != nil {
			return fmt.Errorf("loading save state: %w", err)
		}
		slog.Info("state loaded", "path", path)
	}

	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames with a positive value")
		}
		return backend.NewHeadless(frames).Run(machine)
	}

	opts := backend.Options{
		Config:  config.Load(),
		ROMPath: romPath,
	}

	switch name := c.String("backend"); name {
	case "terminal":
		return backend.NewTerminal(opts).Run(machine)
	case "sdl2":
		return backend.NewSDL2(opts).Run(machine)
	default:
		return fmt.Errorf("unknown backend %q", name)
	}
}
