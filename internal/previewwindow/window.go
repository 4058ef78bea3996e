//go:build !headless

// Package previewwindow is the workstation preview window: an ebiten.Game
// that blits the display pipeline's interpolated frames onto screen, for
// developing effects on a laptop before they ever touch real hardware
// (spec's workstation preview surface). Grounded on the teacher's
// video_backend_ebiten.go EbitenOutput, generalized from a full
// VideoOutput backend (palette/sprite/region API surface) down to the one
// operation this repository needs: present display.Pipeline frames.
package previewwindow

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Source supplies frames to present; satisfied by *display.Pipeline.
type Source interface {
	Sample(t uint32) []byte
}

type Window struct {
	src        Source
	width      int
	height     int
	scale      int
	img        *ebiten.Image
	rgba       []byte
	mu         sync.Mutex
	tick       uint32
	closeOnce  sync.Once
	closed     chan struct{}
	fullscreen bool
}

func New(src Source, width, height, scale int) *Window {
	if scale < 1 {
		scale = 1
	}
	return &Window{
		src:    src,
		width:  width,
		height: height,
		scale:  scale,
		img:    ebiten.NewImage(width, height),
		rgba:   make([]byte, width*height*4),
		closed: make(chan struct{}),
	}
}

// Run opens the window and blocks until it is closed. Call from the main
// goroutine; ebiten owns the event loop.
func (w *Window) Run(title string) error {
	ebiten.SetWindowSize(w.width*w.scale, w.height*w.scale)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	ebiten.SetVsyncEnabled(true)
	err := ebiten.RunGame(w)
	w.closeOnce.Do(func() { close(w.closed) })
	return err
}

// Closed reports a channel that is closed once the window has exited.
func (w *Window) Closed() <-chan struct{} { return w.closed }

func (w *Window) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		w.fullscreen = !w.fullscreen
		ebiten.SetFullscreen(w.fullscreen)
	}
	w.tick++

	w.mu.Lock()
	frame := w.src.Sample(w.tick)
	w.mu.Unlock()

	if len(frame) != w.width*w.height*3 {
		return fmt.Errorf("previewwindow: frame has %d bytes, want %d", len(frame), w.width*w.height*3)
	}
	for i := 0; i < w.width*w.height; i++ {
		w.rgba[i*4+0] = frame[i*3+0]
		w.rgba[i*4+1] = frame[i*3+1]
		w.rgba[i*4+2] = frame[i*3+2]
		w.rgba[i*4+3] = 0xFF
	}
	w.img.WritePixels(w.rgba)
	return nil
}

func (w *Window) Draw(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(w.scale), float64(w.scale))
	screen.DrawImage(w.img, op)
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return w.width * w.scale, w.height * w.scale
}
