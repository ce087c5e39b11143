package backend

import (
	"log/slog"

	"github.com/tmajkech/dotmatrix/dotmatrix"
)

// Headless runs a fixed number of frames with no display, as fast as the
// host allows. Useful for test roms and benchmarking.
type Headless struct {
	Frames int
}

func NewHeadless(frames int) *Headless {
	return &Headless{Frames: frames}
}

func (h *Headless) Run(d *dotmatrix.DMG) error {
	for i := 0; i < h.Frames; i++ {
		d.RunFrame()
		// No audio consumer; keep the queue drained.
		d.Samples()

		if (i+1)%60 == 0 {
			slog.Debug("frame progress", "completed", i+1, "total", h.Frames)
		}
	}
	slog.Info("headless run completed", "frames", h.Frames, "instructions", d.InstructionCount())
	return nil
}
