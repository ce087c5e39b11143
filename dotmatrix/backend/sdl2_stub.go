//go:build !sdl2

package backend

import (
	"errors"

	"github.com/tmajkech/dotmatrix/dotmatrix"
)

// SDL2 stub for builds without the SDL2 development libraries.
type SDL2 struct{}

func NewSDL2(opts Options) *SDL2 {
	return &SDL2{}
}

func (s *SDL2) Run(d *dotmatrix.DMG) error {
	return errors.New("SDL2 backend not available - build with -tags sdl2 and install the SDL2 development libraries")
}
