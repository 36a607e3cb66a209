// Package canvas is an embeddable shader canvas: it compiles a vertex and
// fragment shader pair from markup content, binds the declared vertex
// buffers and redraws once per display refresh until it is paused, detached
// or the user asks for reduced motion.
//
// A Canvas is single-threaded. Every method, and every callback it hands to
// its Host, runs on the thread that owns the host's graphics context.
package canvas

import (
	"fmt"
	"log/slog"
	"sort"

	"shadercanvas/internal/gfx"
	"shadercanvas/internal/logging"
	"shadercanvas/internal/markup"
	"shadercanvas/internal/motion"
)

// Host is the environment a canvas is attached to: a layout box, a pixel
// density, resize and pointer notifications, a drawing surface factory and
// a display-refresh scheduler.
type Host interface {
	Scheduler
	CreateSurface() (Surface, error)
	// ClientSize is the layout box size in host units.
	ClientSize() (width, height float64)
	DevicePixelRatio() float64
	OnResize(fn func()) (unsubscribe func())
	OnPointerMove(fn func(x, y float64)) (unsubscribe func())
}

// Surface is the raster target a context renders into.
type Surface interface {
	// Context returns a context of kind, or false if the surface cannot
	// provide one.
	Context(kind string) (gfx.Context, bool)
	// SetBackingSize resizes the pixel buffer behind the surface.
	SetBackingSize(width, height int)
	// DrawingBufferSize is the pixel buffer size actually in effect.
	DrawingBufferSize() (width, height int)
	// Remove detaches the surface from the host.
	Remove()
}

// ContentSource yields freshly parsed content on every call.
type ContentSource interface {
	Content() (markup.Content, error)
}

// attachment is everything that exists only while the canvas is attached.
// A nil *attachment is the detached state.
type attachment struct {
	surface Surface
	ctx     gfx.Context
	kind    string
	// res is nil after a failed Rebuild.
	res    *resources
	dpr    float64
	unsubs []func()
}

type Canvas struct {
	name   string
	host   Host
	source ContentSource
	motion motion.Signal
	kinds  []string

	loop   frameLoop
	att    *attachment
	frames uint64
	// resume is set when a failed Rebuild stopped a running loop.
	resume bool
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithName labels the canvas in log output.
func WithName(name string) Option {
	return func(c *Canvas) { c.name = name }
}

// WithContextKinds sets the context kinds tried, in order, on attach.
func WithContextKinds(kinds ...string) Option {
	return func(c *Canvas) { c.kinds = append([]string(nil), kinds...) }
}

func New(host Host, source ContentSource, signal motion.Signal, opts ...Option) *Canvas {
	c := &Canvas{
		name:   markup.TagName,
		host:   host,
		source: source,
		motion: signal,
		kinds:  []string{gfx.KindCore41, gfx.KindCore33},
	}
	c.loop = frameLoop{sched: host, tick: c.tick}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Canvas) log() *slog.Logger {
	return logging.Logger().With("canvas", c.name)
}

// Attach builds everything when the canvas has no resources yet. Attaching
// an attached canvas does nothing.
func (c *Canvas) Attach() error {
	if c.att != nil {
		return nil
	}
	return c.setup()
}

// Detach tears the canvas down. The canvas can be attached again.
func (c *Canvas) Detach() {
	c.teardown()
}

// Dispose releases every native resource. It is safe to call repeatedly.
func (c *Canvas) Dispose() {
	c.teardown()
}

func (c *Canvas) setup() error {
	content, err := c.source.Content()
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}
	surface, err := c.host.CreateSurface()
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	ctx, kind, ok := c.acquireContext(surface)
	if !ok {
		surface.Remove()
		return fmt.Errorf("%w (tried %v)", ErrNoContext, c.kinds)
	}
	res, err := buildResources(ctx, content)
	if err != nil {
		loseContext(ctx)
		surface.Remove()
		return err
	}

	att := &attachment{surface: surface, ctx: ctx, kind: kind, res: res, dpr: content.DPR}
	c.att = att
	c.syncViewport(att)
	att.unsubs = append(att.unsubs,
		c.host.OnResize(c.onResize),
		c.host.OnPointerMove(c.PointerMove),
		c.motion.OnChange(c.onReducedMotion),
	)
	c.log().Info("attached", "context", kind, "buffers", len(res.buffers), "vertices", res.count)

	if !c.motion.Reduced() {
		c.loop.start()
	}
	return nil
}

func (c *Canvas) acquireContext(s Surface) (gfx.Context, string, bool) {
	for _, kind := range c.kinds {
		if ctx, ok := s.Context(kind); ok {
			return ctx, kind, true
		}
		c.log().Debug("context kind unavailable", "kind", kind)
	}
	return nil, "", false
}

func loseContext(ctx gfx.Context) {
	if l, ok := ctx.(gfx.ContextLoser); ok {
		l.LoseContext()
	}
}

func (c *Canvas) teardown() {
	att := c.att
	if att == nil {
		return
	}
	c.loop.stop()
	for i := len(att.unsubs) - 1; i >= 0; i-- {
		att.unsubs[i]()
	}
	att.unsubs = nil
	if att.res != nil {
		att.res.release(att.ctx)
		att.res = nil
	}
	loseContext(att.ctx)
	att.surface.Remove()
	c.att = nil
	c.resume = false
	c.log().Info("detached", "frames", c.frames)
}

// Rebuild re-reads the content and replaces the program and buffers,
// keeping the surface, context and subscriptions. Content that fails to
// parse leaves the current program in place. A compile or link failure
// leaves the canvas attached with no program and playback stopped; the next
// successful Rebuild resumes playback.
func (c *Canvas) Rebuild() error {
	att := c.att
	if att == nil {
		return ErrNotActive
	}
	content, err := c.source.Content()
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}
	wasRunning := c.loop.state() == Running || c.resume
	if att.res != nil {
		att.res.release(att.ctx)
		att.res = nil
	}
	res, err := buildResources(att.ctx, content)
	if err != nil {
		c.loop.stop()
		c.resume = wasRunning
		return err
	}
	att.res = res
	att.dpr = content.DPR
	c.resume = false
	c.syncViewport(att)
	c.log().Info("rebuilt", "buffers", len(res.buffers), "vertices", res.count)

	if wasRunning && !c.motion.Reduced() {
		c.loop.start()
	}
	return nil
}

// PlaybackState reports whether a redraw is scheduled.
func (c *Canvas) PlaybackState() PlaybackState {
	return c.loop.state()
}

// SetPlaybackState starts or stops the redraw loop. Setting the current
// state again does nothing. Values other than Running and Stopped are
// logged and ignored.
func (c *Canvas) SetPlaybackState(s PlaybackState) error {
	switch s {
	case Running:
		if c.att == nil || c.att.res == nil {
			return ErrNotActive
		}
		c.loop.start()
	case Stopped:
		c.loop.stop()
		c.resume = false
	default:
		c.log().Warn("playback state can be running or stopped", "got", int(s))
	}
	return nil
}

func (c *Canvas) onReducedMotion(reduced bool) {
	if reduced {
		c.loop.stop()
		return
	}
	if c.att != nil && c.att.res != nil {
		c.loop.start()
	}
}

func (c *Canvas) onResize() {
	if err := c.SyncViewport(); err != nil {
		c.log().Warn("resize", "error", err)
	}
}

func (c *Canvas) tick(ts float64) bool {
	if err := c.Draw(ts); err != nil {
		panic(fmt.Errorf("%s: frame at %v: %w", c.name, ts, err))
	}
	return !c.motion.Reduced()
}

// Draw writes ts to the time uniform and draws the buffers once.
func (c *Canvas) Draw(ts float64) error {
	att := c.att
	if att == nil || att.res == nil {
		return ErrNotActive
	}
	r := att.res
	att.ctx.Uniform1f(r.prog.uTime, float32(ts))
	att.ctx.DrawTriangles(0, int32(r.count))
	c.frames++
	return nil
}

// Frames counts draw calls issued since construction.
func (c *Canvas) Frames() uint64 {
	return c.frames
}

// Active reports whether the canvas is attached with a linked program.
func (c *Canvas) Active() bool {
	return c.att != nil && c.att.res != nil
}

// Attached reports whether the canvas holds a surface and context.
func (c *Canvas) Attached() bool {
	return c.att != nil
}

// ContextKind is the kind of the context in use, or "".
func (c *Canvas) ContextKind() string {
	if c.att == nil {
		return ""
	}
	return c.att.kind
}

func (c *Canvas) Name() string {
	return c.name
}

// VertexCount is the count passed to the draw call, or 0 when inactive.
func (c *Canvas) VertexCount() int {
	if !c.Active() {
		return 0
	}
	return c.att.res.count
}

// BufferNames lists the bound buffers, sorted.
func (c *Canvas) BufferNames() []string {
	if !c.Active() {
		return nil
	}
	names := make([]string, 0, len(c.att.res.buffers))
	for name := range c.att.res.buffers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Buffer returns a copy of the record bound under name.
func (c *Canvas) Buffer(name string) (BufferRecord, bool) {
	if !c.Active() {
		return BufferRecord{}, false
	}
	b, ok := c.att.res.buffers[name]
	if !ok {
		return BufferRecord{}, false
	}
	return *b, true
}

// Program returns the linked program handle, or 0.
func (c *Canvas) Program() uint32 {
	if !c.Active() {
		return 0
	}
	return c.att.res.prog.program
}
