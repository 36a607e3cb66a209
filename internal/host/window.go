//go:build !android

// Package host runs canvases in desktop windows. Each Window is one layout
// box with its own OpenGL context, event subscriptions and frame queue.
//
// glfw requires every call here to come from the main thread, so callers
// lock it with runtime.LockOSThread before Init.
package host

import (
	"fmt"
	"slices"

	"github.com/go-gl/glfw/v3.3/glfw"

	"shadercanvas/internal/canvas"
	"shadercanvas/internal/events"
	"shadercanvas/internal/frame"
	"shadercanvas/internal/gfx"
	"shadercanvas/internal/logging"
)

// Init starts glfw. Terminate undoes it.
func Init() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	return nil
}

func Terminate() { glfw.Terminate() }

// Wake interrupts a blocked Poll. It is safe to call from any goroutine.
func Wake() { glfw.PostEmptyEvent() }

// Poll processes pending window events. With wait set it blocks until at
// least one event, including a Wake, arrives.
func Poll(wait bool) {
	if wait {
		glfw.WaitEvents()
		return
	}
	glfw.PollEvents()
}

// Options configures a Window.
type Options struct {
	Title  string
	Width  int
	Height int
	// DPR overrides the monitor content scale when positive.
	DPR   float64
	VSync bool
}

// Window hosts one canvas.
type Window struct {
	frame.Queue

	win     *glfw.Window
	title   string
	kinds   []string
	dpr     float64
	bus     *events.Bus
	surface *Surface
}

var _ canvas.Host = (*Window)(nil)

// contextHints are tried in order until a window can be created.
var contextHints = [][2]int{{4, 1}, {3, 3}}

// Open creates a window with the newest core context the driver offers.
func Open(opts Options) (*Window, error) {
	var (
		win *glfw.Window
		err error
	)
	for _, v := range contextHints {
		glfw.DefaultWindowHints()
		glfw.WindowHint(glfw.ContextVersionMajor, v[0])
		glfw.WindowHint(glfw.ContextVersionMinor, v[1])
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
		glfw.WindowHint(glfw.Resizable, glfw.True)
		glfw.WindowHint(glfw.ScaleToMonitor, glfw.True)

		win, err = glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
		if err == nil {
			break
		}
		logging.Logger().Debug("context version unavailable", "major", v[0], "minor", v[1], "error", err)
	}
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	win.MakeContextCurrent()
	if opts.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	major := win.GetAttrib(glfw.ContextVersionMajor)
	minor := win.GetAttrib(glfw.ContextVersionMinor)
	w := &Window{
		win:   win,
		title: opts.Title,
		kinds: contextKinds(major, minor),
		dpr:   opts.DPR,
		bus:   events.NewBus(),
	}
	w.installCallbacks()
	logging.Logger().Debug("window open", "title", opts.Title, "context", fmt.Sprintf("%d.%d", major, minor), "kinds", w.kinds)
	return w, nil
}

func (w *Window) installCallbacks() {
	// Canvas handlers issue GL calls, so the window's context is made
	// current before every emit.
	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.emit(events.Event{Type: events.Resize, X: float64(width), Y: float64(height)})
	})
	w.win.SetContentScaleCallback(func(_ *glfw.Window, x, y float32) {
		w.emit(events.Event{Type: events.Resize})
	})
	w.win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.emit(events.Event{Type: events.PointerMove, X: x, Y: y})
	})
	w.win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Press {
			w.emit(events.Event{Type: events.KeyPress, Key: int(key)})
		}
	})
}

func (w *Window) emit(e events.Event) {
	w.MakeCurrent()
	w.bus.Emit(e)
}

// MakeCurrent binds the window's context to the calling thread. Call it
// before driving a canvas on this window from outside its callbacks.
func (w *Window) MakeCurrent() {
	w.win.MakeContextCurrent()
}

// CreateSurface hands out the window's framebuffer. A window holds at
// most one live surface.
func (w *Window) CreateSurface() (canvas.Surface, error) {
	if w.surface != nil {
		return nil, fmt.Errorf("window %q already has a surface", w.title)
	}
	w.surface = &Surface{w: w}
	w.win.SetTitle(w.title)
	return w.surface, nil
}

// ClientSize is the window size in screen coordinates, the space cursor
// positions are reported in.
func (w *Window) ClientSize() (float64, float64) {
	width, height := w.win.GetSize()
	return float64(width), float64(height)
}

func (w *Window) DevicePixelRatio() float64 {
	x, y := w.win.GetContentScale()
	return density(w.dpr, x, y)
}

func (w *Window) OnResize(fn func()) func() {
	tok := w.bus.Subscribe(events.Resize, func(events.Event) { fn() })
	return func() { w.bus.Unsubscribe(tok) }
}

func (w *Window) OnPointerMove(fn func(x, y float64)) func() {
	tok := w.bus.Subscribe(events.PointerMove, func(e events.Event) { fn(e.X, e.Y) })
	return func() { w.bus.Unsubscribe(tok) }
}

// OnKey calls fn with the glfw key code of every key press.
func (w *Window) OnKey(fn func(key glfw.Key)) func() {
	tok := w.bus.Subscribe(events.KeyPress, func(e events.Event) { fn(glfw.Key(e.Key)) })
	return func() { w.bus.Unsubscribe(tok) }
}

// Pump fires the frame callbacks queued for this refresh, timestamped in
// milliseconds since Init, and presents the result. It returns the number
// of callbacks run.
func (w *Window) Pump() int {
	if w.Pending() == 0 {
		return 0
	}
	w.MakeCurrent()
	n := w.Run(glfw.GetTime() * 1000)
	if n > 0 && w.surface != nil {
		w.surface.present()
		w.win.SwapBuffers()
	}
	return n
}

func (w *Window) ShouldClose() bool { return w.win.ShouldClose() }

func (w *Window) SetShouldClose(v bool) { w.win.SetShouldClose(v) }

// Close destroys the window. Any canvas on it must be disposed first.
func (w *Window) Close() {
	if w.win == nil {
		return
	}
	w.win.Destroy()
	w.win = nil
}

// Surface is a window's default framebuffer.
type Surface struct {
	w       *Window
	ctx     *gfx.GLContext
	backing [2]int
}

var _ canvas.Surface = (*Surface)(nil)

// Context loads the go-gl binding for kind on the window's context.
func (s *Surface) Context(kind string) (gfx.Context, bool) {
	if !slices.Contains(s.w.kinds, kind) {
		return nil, false
	}
	if s.ctx != nil {
		return s.ctx, true
	}
	s.w.MakeCurrent()
	ctx, err := gfx.NewGLContext(kind, func() { s.ctx = nil })
	if err != nil {
		logging.Logger().Warn("gl context", "kind", kind, "error", err)
		return nil, false
	}
	s.ctx = ctx
	return ctx, true
}

// SetBackingSize sizes the buffer the canvas draws into. glfw sizes the
// window framebuffer from the window size and content scale, so any other
// size is drawn offscreen and scaled onto the window by Pump.
func (s *Surface) SetBackingSize(width, height int) {
	s.backing = [2]int{width, height}
	if s.ctx == nil {
		return
	}
	fw, fh := s.w.win.GetFramebufferSize()
	size, offscreen := backingSize(s.backing, [2]int{fw, fh}, s.ctx.MaxRenderbufferSize())
	if !offscreen {
		s.ctx.SetOffscreenSize(0, 0)
		return
	}
	if err := s.ctx.SetOffscreenSize(size[0], size[1]); err != nil {
		logging.Logger().Warn("offscreen backing unavailable; drawing at window size", "error", err)
		s.ctx.SetOffscreenSize(0, 0)
		return
	}
	logging.Logger().Debug("offscreen backing", "size", size, "framebuffer", [2]int{fw, fh})
}

// DrawingBufferSize is the size of the buffer draws land in: the offscreen
// buffer when there is one, else the window framebuffer.
func (s *Surface) DrawingBufferSize() (int, int) {
	if s.ctx != nil {
		if w, h, ok := s.ctx.Offscreen(); ok {
			return w, h
		}
	}
	return s.w.win.GetFramebufferSize()
}

// present copies an offscreen buffer onto the window framebuffer.
func (s *Surface) present() {
	if s.ctx == nil {
		return
	}
	fw, fh := s.w.win.GetFramebufferSize()
	s.ctx.Present(fw, fh)
}

// Remove releases the window's framebuffer so a later attach can claim it.
func (s *Surface) Remove() {
	if s.w.surface != s {
		return
	}
	s.w.surface = nil
	s.w.win.SetTitle(s.w.title + " (detached)")
}
