//go:build sdl2

package backend

import (
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/tmajkech/dotmatrix/dotmatrix"
	"github.com/tmajkech/dotmatrix/dotmatrix/persist"
	"github.com/tmajkech/dotmatrix/dotmatrix/video"
)

// Grayscale RGBA values for the four shades, light to dark.
var sdlShades = [4][3]byte{
	{0xFF, 0xFF, 0xFF},
	{0xAA, 0xAA, 0xAA},
	{0x55, 0x55, 0x55},
	{0x00, 0x00, 0x00},
}

// SDL2 renders into an SDL window and queues audio to an SDL device.
// Building it requires the SDL2 development libraries; default builds use
// the stub instead (build tag sdl2).
type SDL2 struct {
	opts   Options
	store  persist.Store
	pixels [video.FramebufferSize * 4]byte
}

func NewSDL2(opts Options) *SDL2 {
	return &SDL2{opts: opts, store: persist.FileStore{}}
}

func (s *SDL2) Run(d *dotmatrix.DMG) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("initializing SDL: %w", err)
	}
	defer sdl.Quit()

	scale := s.opts.Config.Display.Scale
	if scale <= 0 {
		scale = 4
	}

	window, err := sdl.CreateWindow("dotmatrix",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(video.FramebufferWidth*scale), int32(video.FramebufferHeight*scale),
		sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	defer renderer.Destroy()

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING,
		video.FramebufferWidth, video.FramebufferHeight)
	if err != nil {
		return fmt.Errorf("creating texture: %w", err)
	}
	defer texture.Destroy()

	spec := &sdl.AudioSpec{
		Freq:     44100,
		Format:   sdl.AUDIO_F32SYS,
		Channels: 2,
		Samples:  1024,
	}
	device, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		slog.Warn("audio device unavailable", "error", err)
		d.SetSampleRate(0)
	} else {
		defer sdl.CloseAudioDevice(device)
		sdl.PauseAudioDevice(device, false)
		d.SetSampleRate(int(spec.Freq))
	}

	frameTicker := time.NewTicker(frameTime)
	defer frameTicker.Stop()

	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch ev := event.(type) {
			case *sdl.QuitEvent:
				return nil
			case *sdl.KeyboardEvent:
				if done := s.handleKey(d, ev); done {
					return nil
				}
			}
		}

		d.RunFrame()

		if device != 0 {
			queueSamples(device, d.Samples())
		} else {
			d.Samples()
		}

		s.present(d.Framebuffer(), texture, renderer)
		<-frameTicker.C
	}
}

func (s *SDL2) handleKey(d *dotmatrix.DMG, ev *sdl.KeyboardEvent) bool {
	if ev.Type == sdl.KEYDOWN {
		switch ev.Keysym.Sym {
		case sdl.K_ESCAPE:
			return true
		case sdl.K_F5:
			path := persist.SaveStatePath(s.opts.ROMPath, 0)
			if err := s.store.Save(path, d.Save()); err != nil {
				slog.Error("save state failed", "path", path, "error", err)
			}
			return false
		case sdl.K_F7:
			path := persist.SaveStatePath(s.opts.ROMPath, 0)
			data, err := s.store.Load(path)
			if err == nil {
				err = d.Load(data)
			}
			if err != nil {
				slog.Error("load state failed", "path", path, "error", err)
			}
			return false
		}
	}

	for _, b := range bindings(s.opts.Config.Controls) {
		if !matchesSDLKey(ev.Keysym.Sym, b.name) {
			continue
		}
		if ev.Type == sdl.KEYDOWN && ev.Repeat == 0 {
			d.KeyDown(b.key)
		} else if ev.Type == sdl.KEYUP {
			d.KeyUp(b.key)
		}
	}
	return false
}

func (s *SDL2) present(fb *video.FrameBuffer, texture *sdl.Texture, renderer *sdl.Renderer) {
	for i, shade := range fb.ToSlice() {
		rgb := sdlShades[shade]
		s.pixels[i*4] = rgb[0]
		s.pixels[i*4+1] = rgb[1]
		s.pixels[i*4+2] = rgb[2]
		s.pixels[i*4+3] = 0xFF
	}

	texture.Update(nil, unsafe.Pointer(&s.pixels[0]), video.FramebufferWidth*4)
	renderer.Clear()
	renderer.Copy(texture, nil, nil)
	renderer.Present()
}

func queueSamples(device sdl.AudioDeviceID, samples []float32) {
	if len(samples) == 0 {
		return
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*4)
	if err := sdl.QueueAudio(device, data); err != nil {
		slog.Warn("audio queue failed", "error", err)
	}
}

func matchesSDLKey(sym sdl.Keycode, name string) bool {
	switch name {
	case "Up":
		return sym == sdl.K_UP
	case "Down":
		return sym == sdl.K_DOWN
	case "Left":
		return sym == sdl.K_LEFT
	case "Right":
		return sym == sdl.K_RIGHT
	case "Enter", "Return":
		return sym == sdl.K_RETURN
	case "Backspace":
		return sym == sdl.K_BACKSPACE
	case "Space":
		return sym == sdl.K_SPACE
	default:
		if len(name) == 1 {
			c := name[0]
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			return sym == sdl.Keycode(c)
		}
		return false
	}
}
