package canvas

import (
	"errors"

	"shadercanvas/internal/events"
	"shadercanvas/internal/frame"
	"shadercanvas/internal/gfx"
	"shadercanvas/internal/gfx/gfxtest"
	"shadercanvas/internal/markup"
)

const (
	testVert = "#version 410 core\nin vec2 position;\nvoid main() { gl_Position = vec4(position, 0.0, 1.0); }\n"
	testFrag = "#version 410 core\nuniform float time;\nuniform vec2 mouse;\nuniform vec2 resolution;\n" +
		"out vec4 c;\nvoid main() { c = vec4(mouse / resolution, sin(time), 1.0); }\n"
)

// fakeHost drives frames by hand through its embedded queue.
type fakeHost struct {
	frame.Queue
	width, height float64
	dpr           float64
	kinds         map[string]bool
	surfaceErr    error
	bus           *events.Bus
	surfaces      []*fakeSurface
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		width:  800,
		height: 600,
		dpr:    1,
		kinds:  map[string]bool{gfx.KindCore41: true, gfx.KindCore33: true},
		bus:    events.NewBus(),
	}
}

func (h *fakeHost) CreateSurface() (Surface, error) {
	if h.surfaceErr != nil {
		return nil, h.surfaceErr
	}
	s := &fakeSurface{ctx: gfxtest.New(), kinds: h.kinds}
	h.surfaces = append(h.surfaces, s)
	return s, nil
}

func (h *fakeHost) ClientSize() (float64, float64) { return h.width, h.height }

func (h *fakeHost) DevicePixelRatio() float64 { return h.dpr }

func (h *fakeHost) OnResize(fn func()) func() {
	tok := h.bus.Subscribe(events.Resize, func(events.Event) { fn() })
	return func() { h.bus.Unsubscribe(tok) }
}

func (h *fakeHost) OnPointerMove(fn func(x, y float64)) func() {
	tok := h.bus.Subscribe(events.PointerMove, func(e events.Event) { fn(e.X, e.Y) })
	return func() { h.bus.Unsubscribe(tok) }
}

func (h *fakeHost) resize(w, ht float64) {
	h.width, h.height = w, ht
	h.bus.Emit(events.Event{Type: events.Resize})
}

func (h *fakeHost) move(x, y float64) {
	h.bus.Emit(events.Event{Type: events.PointerMove, X: x, Y: y})
}

// surface returns the most recent surface.
func (h *fakeHost) surface() *fakeSurface {
	return h.surfaces[len(h.surfaces)-1]
}

// gl returns the most recent surface's context.
func (h *fakeHost) gl() *gfxtest.Context {
	return h.surface().ctx
}

type fakeSurface struct {
	ctx              *gfxtest.Context
	kinds            map[string]bool
	backingW         int
	backingH         int
	removed          bool
	contextRequested []string
}

func (s *fakeSurface) Context(kind string) (gfx.Context, bool) {
	s.contextRequested = append(s.contextRequested, kind)
	if !s.kinds[kind] {
		return nil, false
	}
	return s.ctx, true
}

func (s *fakeSurface) SetBackingSize(w, h int) { s.backingW, s.backingH = w, h }

func (s *fakeSurface) DrawingBufferSize() (int, int) { return s.backingW, s.backingH }

func (s *fakeSurface) Remove() { s.removed = true }

// stubSource returns whatever content it currently holds.
type stubSource struct {
	content markup.Content
	err     error
	calls   int
}

func (s *stubSource) Content() (markup.Content, error) {
	s.calls++
	if s.err != nil {
		return markup.Content{}, s.err
	}
	c := s.content
	c.Buffers = append([]markup.Buffer(nil), s.content.Buffers...)
	return c, nil
}

func newStubSource(buffers ...markup.Buffer) *stubSource {
	return &stubSource{content: markup.Content{Vertex: testVert, Fragment: testFrag, Buffers: buffers}}
}

// silentSignal flips without notifying, leaving the per-frame check as the
// only way the canvas can notice.
type silentSignal struct {
	reduced bool
}

func (s *silentSignal) Reduced() bool { return s.reduced }

func (s *silentSignal) OnChange(func(bool)) func() { return func() {} }

var errBoom = errors.New("boom")
