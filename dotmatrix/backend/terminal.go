package backend

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/tmajkech/dotmatrix/dotmatrix"
	"github.com/tmajkech/dotmatrix/dotmatrix/memory"
	"github.com/tmajkech/dotmatrix/dotmatrix/persist"
	"github.com/tmajkech/dotmatrix/dotmatrix/video"
)

const frameTime = time.Second / 60

// Terminals report key presses but not releases, so a pressed joypad key
// is released after this long without a repeat.
const keyHoldTime = 150 * time.Millisecond

var shadeRunes = [4]rune{' ', '░', '▒', '█'}

// Terminal renders into a tcell screen and maps terminal keys onto the
// joypad per the configured controls.
type Terminal struct {
	opts    Options
	screen  tcell.Screen
	store   persist.Store
	pressed map[memory.JoypadKey]time.Time
}

func NewTerminal(opts Options) *Terminal {
	return &Terminal{
		opts:    opts,
		store:   persist.FileStore{},
		pressed: make(map[memory.JoypadKey]time.Time),
	}
}

func (t *Terminal) Run(d *dotmatrix.DMG) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	t.screen = screen
	defer screen.Fini()

	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.RunFrame()
			// The terminal has no audio path; drain the queue so it
			// stays bounded.
			d.Samples()
			t.releaseStaleKeys(d)
			t.render(d.Framebuffer())
			screen.Show()
		case ev := <-events:
			if done := t.handleEvent(d, ev); done {
				close(quit)
				return nil
			}
		case <-signals:
			slog.Info("received signal, stopping")
			close(quit)
			return nil
		}
	}
}

func (t *Terminal) handleEvent(d *dotmatrix.DMG, ev tcell.Event) bool {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return false
	}

	switch key.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyF5:
		t.saveState(d)
		return false
	case tcell.KeyF7:
		t.loadState(d)
		return false
	}

	for _, b := range bindings(t.opts.Config.Controls) {
		if matchesTcellKey(key, b.name) {
			if _, held := t.pressed[b.key]; !held {
				d.KeyDown(b.key)
			}
			t.pressed[b.key] = time.Now()
		}
	}
	return false
}

// releaseStaleKeys releases joypad keys that stopped repeating.
func (t *Terminal) releaseStaleKeys(d *dotmatrix.DMG) {
	now := time.Now()
	for key, last := range t.pressed {
		if now.Sub(last) > keyHoldTime {
			d.KeyUp(key)
			delete(t.pressed, key)
		}
	}
}

func (t *Terminal) render(fb *video.FrameBuffer) {
	style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	// Two pixel rows per text row keeps the aspect ratio roughly square.
	for y := 0; y < video.FramebufferHeight; y += 2 {
		for x := 0; x < video.FramebufferWidth; x++ {
			shade := (fb.GetPixel(x, y) + fb.GetPixel(x, y+1)) / 2
			t.screen.SetContent(x, y/2, shadeRunes[shade], nil, style)
		}
	}
}

func (t *Terminal) saveState(d *dotmatrix.DMG) {
	path := persist.SaveStatePath(t.opts.ROMPath, 0)
	if err := t.store.Save(path, d.Save()); err != nil {
		slog.Error("save state failed", "path", path, "error", err)
		return
	}
	slog.Info("state saved", "path", path)
}

func (t *Terminal) loadState(d *dotmatrix.DMG) {
	path := persist.SaveStatePath(t.opts.ROMPath, 0)
	data, err := t.store.Load(path)
	if err != nil {
		slog.Error("load state failed", "path", path, "error", err)
		return
	}
	if err := d.Load(data); err != nil {
		slog.Error("load state failed", "path", path, "error", err)
		return
	}
	slog.Info("state loaded", "path", path)
}

// matchesTcellKey resolves a configured key name against a tcell event.
func matchesTcellKey(ev *tcell.EventKey, name string) bool {
	switch name {
	case "Up":
		return ev.Key() == tcell.KeyUp
	case "Down":
		return ev.Key() == tcell.KeyDown
	case "Left":
		return ev.Key() == tcell.KeyLeft
	case "Right":
		return ev.Key() == tcell.KeyRight
	case "Enter", "Return":
		return ev.Key() == tcell.KeyEnter
	case "Backspace":
		return ev.Key() == tcell.KeyBackspace || ev.Key() == tcell.KeyBackspace2
	case "Space":
		return ev.Key() == tcell.KeyRune && ev.Rune() == ' '
	default:
		if len(name) == 1 && ev.Key() == tcell.KeyRune {
			r := rune(name[0])
			return ev.Rune() == r || ev.Rune() == r+('a'-'A')
		}
		return false
	}
}
