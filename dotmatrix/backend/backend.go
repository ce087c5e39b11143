// Package backend hosts the emulator core: each backend renders frames,
// forwards input and paces execution. The core itself never blocks on a
// host; backends drain its outputs after each frame.
package backend

import (
	"github.com/tmajkech/dotmatrix/dotmatrix"
	"github.com/tmajkech/dotmatrix/dotmatrix/config"
	"github.com/tmajkech/dotmatrix/dotmatrix/memory"
)

// Backend drives a machine until the user quits or an error occurs.
type Backend interface {
	Run(d *dotmatrix.DMG) error
}

// Options carries host configuration shared by backends.
type Options struct {
	Config  config.Config
	ROMPath string
}

// keyBinding pairs a configured key name with the joypad key it drives.
type keyBinding struct {
	name string
	key  memory.JoypadKey
}

// bindings lists the configured controls in a fixed order.
func bindings(c config.Controls) []keyBinding {
	return []keyBinding{
		{c.Right, memory.JoypadRight},
		{c.Left, memory.JoypadLeft},
		{c.Up, memory.JoypadUp},
		{c.Down, memory.JoypadDown},
		{c.A, memory.JoypadA},
		{c.B, memory.JoypadB},
		{c.Select, memory.JoypadSelect},
		{c.Start, memory.JoypadStart},
	}
}
