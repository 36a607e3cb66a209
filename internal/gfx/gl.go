//go:build !android

package gfx

import (
	"fmt"
	"strings"
	"unsafe"

	gl33 "github.com/go-gl/gl/v3.3-core/gl"
	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// procs holds the entry points of one go-gl binding. Both bindings expose
// identical signatures, so a context is the same code over either table.
type procs struct {
	init                    func() error
	createShader            func(uint32) uint32
	shaderSource            func(uint32, int32, **uint8, *int32)
	compileShader           func(uint32)
	getShaderiv             func(uint32, uint32, *int32)
	getShaderInfoLog        func(uint32, int32, *int32, *uint8)
	deleteShader            func(uint32)
	createProgram           func() uint32
	attachShader            func(uint32, uint32)
	linkProgram             func(uint32)
	getProgramiv            func(uint32, uint32, *int32)
	getProgramInfoLog       func(uint32, int32, *int32, *uint8)
	useProgram              func(uint32)
	deleteProgram           func(uint32)
	genBuffers              func(int32, *uint32)
	bindBuffer              func(uint32, uint32)
	bufferData              func(uint32, int, unsafe.Pointer, uint32)
	deleteBuffers           func(int32, *uint32)
	getAttribLocation       func(uint32, *uint8) int32
	enableVertexAttribArray func(uint32)
	vertexAttribPointer     func(uint32, int32, uint32, bool, int32, unsafe.Pointer)
	getUniformLocation      func(uint32, *uint8) int32
	uniform1f               func(int32, float32)
	uniform2f               func(int32, float32, float32)
	viewport                func(int32, int32, int32, int32)
	drawArrays              func(uint32, int32, int32)
	genVertexArrays         func(int32, *uint32)
	bindVertexArray         func(uint32)
	deleteVertexArrays      func(int32, *uint32)
	getIntegerv             func(uint32, *int32)
	genFramebuffers         func(int32, *uint32)
	bindFramebuffer         func(uint32, uint32)
	deleteFramebuffers      func(int32, *uint32)
	genRenderbuffers        func(int32, *uint32)
	bindRenderbuffer        func(uint32, uint32)
	renderbufferStorage     func(uint32, uint32, int32, int32)
	framebufferRenderbuffer func(uint32, uint32, uint32, uint32)
	checkFramebufferStatus  func(uint32) uint32
	blitFramebuffer         func(int32, int32, int32, int32, int32, int32, int32, int32, uint32, uint32)
	deleteRenderbuffers     func(int32, *uint32)
}

func core41() procs {
	return procs{
		init: gl.Init, createShader: gl.CreateShader, shaderSource: gl.ShaderSource,
		compileShader: gl.CompileShader, getShaderiv: gl.GetShaderiv, getShaderInfoLog: gl.GetShaderInfoLog,
		deleteShader: gl.DeleteShader, createProgram: gl.CreateProgram, attachShader: gl.AttachShader,
		linkProgram: gl.LinkProgram, getProgramiv: gl.GetProgramiv, getProgramInfoLog: gl.GetProgramInfoLog,
		useProgram: gl.UseProgram, deleteProgram: gl.DeleteProgram, genBuffers: gl.GenBuffers,
		bindBuffer: gl.BindBuffer, bufferData: gl.BufferData, deleteBuffers: gl.DeleteBuffers,
		getAttribLocation: gl.GetAttribLocation, enableVertexAttribArray: gl.EnableVertexAttribArray,
		vertexAttribPointer: gl.VertexAttribPointer, getUniformLocation: gl.GetUniformLocation,
		uniform1f: gl.Uniform1f, uniform2f: gl.Uniform2f, viewport: gl.Viewport, drawArrays: gl.DrawArrays,
		genVertexArrays: gl.GenVertexArrays, bindVertexArray: gl.BindVertexArray, deleteVertexArrays: gl.DeleteVertexArrays,
		getIntegerv: gl.GetIntegerv, genFramebuffers: gl.GenFramebuffers, bindFramebuffer: gl.BindFramebuffer,
		deleteFramebuffers: gl.DeleteFramebuffers, genRenderbuffers: gl.GenRenderbuffers, bindRenderbuffer: gl.BindRenderbuffer,
		renderbufferStorage: gl.RenderbufferStorage, framebufferRenderbuffer: gl.FramebufferRenderbuffer,
		checkFramebufferStatus: gl.CheckFramebufferStatus, blitFramebuffer: gl.BlitFramebuffer, deleteRenderbuffers: gl.DeleteRenderbuffers,
	}
}

func core33() procs {
	return procs{
		init: gl33.Init, createShader: gl33.CreateShader, shaderSource: gl33.ShaderSource,
		compileShader: gl33.CompileShader, getShaderiv: gl33.GetShaderiv, getShaderInfoLog: gl33.GetShaderInfoLog,
		deleteShader: gl33.DeleteShader, createProgram: gl33.CreateProgram, attachShader: gl33.AttachShader,
		linkProgram: gl33.LinkProgram, getProgramiv: gl33.GetProgramiv, getProgramInfoLog: gl33.GetProgramInfoLog,
		useProgram: gl33.UseProgram, deleteProgram: gl33.DeleteProgram, genBuffers: gl33.GenBuffers,
		bindBuffer: gl33.BindBuffer, bufferData: gl33.BufferData, deleteBuffers: gl33.DeleteBuffers,
		getAttribLocation: gl33.GetAttribLocation, enableVertexAttribArray: gl33.EnableVertexAttribArray,
		vertexAttribPointer: gl33.VertexAttribPointer, getUniformLocation: gl33.GetUniformLocation,
		uniform1f: gl33.Uniform1f, uniform2f: gl33.Uniform2f, viewport: gl33.Viewport, drawArrays: gl33.DrawArrays,
		genVertexArrays: gl33.GenVertexArrays, bindVertexArray: gl33.BindVertexArray, deleteVertexArrays: gl33.DeleteVertexArrays,
		getIntegerv: gl33.GetIntegerv, genFramebuffers: gl33.GenFramebuffers, bindFramebuffer: gl33.BindFramebuffer,
		deleteFramebuffers: gl33.DeleteFramebuffers, genRenderbuffers: gl33.GenRenderbuffers, bindRenderbuffer: gl33.BindRenderbuffer,
		renderbufferStorage: gl33.RenderbufferStorage, framebufferRenderbuffer: gl33.FramebufferRenderbuffer,
		checkFramebufferStatus: gl33.CheckFramebufferStatus, blitFramebuffer: gl33.BlitFramebuffer, deleteRenderbuffers: gl33.DeleteRenderbuffers,
	}
}

// GLContext drives the OpenGL context current on the calling thread.
type GLContext struct {
	p      procs
	vao    uint32
	onLose func()

	// Offscreen color target; fbo is 0 when drawing straight to the
	// window.
	fbo, rbo   uint32
	offW, offH int32
}

// NewGLContext loads the binding for kind against the current context and
// binds the single vertex array object core profiles require for attribute
// state. onLose, if set, runs once when the context is lost.
func NewGLContext(kind string, onLose func()) (*GLContext, error) {
	var p procs
	switch kind {
	case KindCore41:
		p = core41()
	case KindCore33:
		p = core33()
	default:
		return nil, fmt.Errorf("gl init: unknown context kind %q", kind)
	}
	if err := p.init(); err != nil {
		return nil, fmt.Errorf("gl init %s: %w", kind, err)
	}
	c := &GLContext{p: p, onLose: onLose}
	c.p.genVertexArrays(1, &c.vao)
	c.p.bindVertexArray(c.vao)
	return c, nil
}

func (c *GLContext) CreateShader(stage Stage) uint32 {
	if stage == FragmentStage {
		return c.p.createShader(gl.FRAGMENT_SHADER)
	}
	return c.p.createShader(gl.VERTEX_SHADER)
}

func (c *GLContext) ShaderSource(shader uint32, source string) {
	csources, free := gl.Strs(source + "\x00")
	c.p.shaderSource(shader, 1, csources, nil)
	free()
}

func (c *GLContext) CompileShader(shader uint32) { c.p.compileShader(shader) }

func (c *GLContext) ShaderCompiled(shader uint32) bool {
	var status int32
	c.p.getShaderiv(shader, gl.COMPILE_STATUS, &status)
	return status != gl.FALSE
}

func (c *GLContext) ShaderInfoLog(shader uint32) string {
	var logLen int32
	c.p.getShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
	buf := strings.Repeat("\x00", int(logLen+1))
	c.p.getShaderInfoLog(shader, logLen, nil, gl.Str(buf))
	return strings.TrimRight(buf, "\x00")
}

func (c *GLContext) DeleteShader(shader uint32) { c.p.deleteShader(shader) }

func (c *GLContext) CreateProgram() uint32 { return c.p.createProgram() }

func (c *GLContext) AttachShader(program, shader uint32) { c.p.attachShader(program, shader) }

func (c *GLContext) LinkProgram(program uint32) { c.p.linkProgram(program) }

func (c *GLContext) ProgramLinked(program uint32) bool {
	var status int32
	c.p.getProgramiv(program, gl.LINK_STATUS, &status)
	return status != gl.FALSE
}

func (c *GLContext) ProgramInfoLog(program uint32) string {
	var logLen int32
	c.p.getProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
	buf := strings.Repeat("\x00", int(logLen+1))
	c.p.getProgramInfoLog(program, logLen, nil, gl.Str(buf))
	return strings.TrimRight(buf, "\x00")
}

func (c *GLContext) UseProgram(program uint32) { c.p.useProgram(program) }

func (c *GLContext) DeleteProgram(program uint32) { c.p.deleteProgram(program) }

func (c *GLContext) CreateBuffer() uint32 {
	var id uint32
	c.p.genBuffers(1, &id)
	return id
}

func (c *GLContext) BufferStaticData(buffer uint32, data []float32) {
	c.p.bindBuffer(gl.ARRAY_BUFFER, buffer)
	if len(data) == 0 {
		c.p.bufferData(gl.ARRAY_BUFFER, 0, nil, gl.STATIC_DRAW)
		return
	}
	c.p.bufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(&data[0]), gl.STATIC_DRAW)
}

func (c *GLContext) DeleteBuffer(buffer uint32) { c.p.deleteBuffers(1, &buffer) }

func (c *GLContext) AttribLocation(program uint32, name string) int32 {
	return c.p.getAttribLocation(program, gl.Str(name+"\x00"))
}

func (c *GLContext) EnableFloatAttrib(loc uint32, size int32, buffer uint32) {
	c.p.enableVertexAttribArray(loc)
	c.p.bindBuffer(gl.ARRAY_BUFFER, buffer)
	c.p.vertexAttribPointer(loc, size, gl.FLOAT, false, 0, nil)
}

func (c *GLContext) UniformLocation(program uint32, name string) int32 {
	return c.p.getUniformLocation(program, gl.Str(name+"\x00"))
}

func (c *GLContext) Uniform1f(loc int32, v float32) { c.p.uniform1f(loc, v) }

func (c *GLContext) Uniform2f(loc int32, x, y float32) { c.p.uniform2f(loc, x, y) }

func (c *GLContext) Viewport(x, y, width, height int32) { c.p.viewport(x, y, width, height) }

func (c *GLContext) DrawTriangles(first, count int32) { c.p.drawArrays(gl.TRIANGLES, first, count) }

// MaxRenderbufferSize is the largest offscreen dimension the driver allows.
func (c *GLContext) MaxRenderbufferSize() int {
	var n int32
	c.p.getIntegerv(gl.MAX_RENDERBUFFER_SIZE, &n)
	return int(n)
}

// SetOffscreenSize redirects drawing into a width×height color buffer that
// Present scales onto the window. A zero size draws to the window again.
func (c *GLContext) SetOffscreenSize(width, height int) error {
	if width <= 0 || height <= 0 {
		c.deleteOffscreen()
		return nil
	}
	if c.fbo != 0 && c.offW == int32(width) && c.offH == int32(height) {
		return nil
	}
	if c.fbo == 0 {
		c.p.genFramebuffers(1, &c.fbo)
		c.p.genRenderbuffers(1, &c.rbo)
	}
	c.p.bindRenderbuffer(gl.RENDERBUFFER, c.rbo)
	c.p.renderbufferStorage(gl.RENDERBUFFER, gl.RGBA8, int32(width), int32(height))
	c.p.bindFramebuffer(gl.FRAMEBUFFER, c.fbo)
	c.p.framebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, c.rbo)
	if status := c.p.checkFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		c.deleteOffscreen()
		return fmt.Errorf("offscreen %dx%d: framebuffer status 0x%x", width, height, status)
	}
	c.offW, c.offH = int32(width), int32(height)
	return nil
}

// Offscreen returns the offscreen size, or false when drawing to the window.
func (c *GLContext) Offscreen() (width, height int, ok bool) {
	if c.fbo == 0 {
		return 0, 0, false
	}
	return int(c.offW), int(c.offH), true
}

// Present scales the offscreen buffer onto the window's width×height
// framebuffer. Without an offscreen buffer it does nothing.
func (c *GLContext) Present(width, height int) {
	if c.fbo == 0 {
		return
	}
	c.p.bindFramebuffer(gl.READ_FRAMEBUFFER, c.fbo)
	c.p.bindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	c.p.blitFramebuffer(0, 0, c.offW, c.offH, 0, 0, int32(width), int32(height), gl.COLOR_BUFFER_BIT, gl.LINEAR)
	c.p.bindFramebuffer(gl.FRAMEBUFFER, c.fbo)
}

func (c *GLContext) deleteOffscreen() {
	if c.fbo == 0 {
		return
	}
	c.p.bindFramebuffer(gl.FRAMEBUFFER, 0)
	c.p.deleteFramebuffers(1, &c.fbo)
	c.p.deleteRenderbuffers(1, &c.rbo)
	c.fbo, c.rbo = 0, 0
	c.offW, c.offH = 0, 0
}

// LoseContext drops the offscreen buffer and vertex array object and hands the context back to
// the owner. The receiver must not be used afterwards.
func (c *GLContext) LoseContext() {
	c.deleteOffscreen()
	if c.vao != 0 {
		c.p.bindVertexArray(0)
		c.p.deleteVertexArrays(1, &c.vao)
		c.vao = 0
	}
	if c.onLose != nil {
		c.onLose()
		c.onLose = nil
	}
}
