// Package gfxtest provides a recording gfx.Context for tests.
//
// The fake compiles by rule rather than by GLSL grammar: a shader whose
// source contains "#error" fails to compile, and a program whose shaders
// contain "#pragma link_error" fails to link. Attributes and uniforms are
// active when their name occurs in an attached shader's source.
package gfxtest

import (
	"fmt"
	"sort"
	"strings"

	"shadercanvas/internal/gfx"
)

type shader struct {
	stage    gfx.Stage
	source   string
	compiled bool
}

type program struct {
	shaders  []uint32
	linked   bool
	attribs  map[string]int32
	uniforms map[string]int32
	values   map[string][]float32
}

// Draw is one recorded draw call.
type Draw struct {
	Program     uint32
	First       int32
	Count       int32
	Time        float32
	HasTimeSlot bool
}

// Context records every call made through gfx.Context.
type Context struct {
	next     uint32
	shaders  map[uint32]*shader
	programs map[uint32]*program
	buffers  map[uint32][]float32
	enabled  map[uint32]int32
	current  uint32
	viewport [4]int32

	// Draws lists draw calls in order.
	Draws []Draw
	// Calls lists method names in call order.
	Calls []string
	// Misuse lists calls that a real driver would reject, such as deleting
	// an unknown handle or drawing with no program bound.
	Misuse []string
	// Lost is set by LoseContext.
	Lost bool
}

var (
	_ gfx.Context      = (*Context)(nil)
	_ gfx.ContextLoser = (*Context)(nil)
)

func New() *Context {
	return &Context{
		shaders:  make(map[uint32]*shader),
		programs: make(map[uint32]*program),
		buffers:  make(map[uint32][]float32),
		enabled:  make(map[uint32]int32),
	}
}

func (c *Context) handle() uint32 {
	c.next++
	return c.next
}

func (c *Context) record(name string) {
	c.Calls = append(c.Calls, name)
}

func (c *Context) misuse(format string, args ...any) {
	c.Misuse = append(c.Misuse, fmt.Sprintf(format, args...))
}

func (c *Context) CreateShader(stage gfx.Stage) uint32 {
	c.record("CreateShader")
	id := c.handle()
	c.shaders[id] = &shader{stage: stage}
	return id
}

func (c *Context) ShaderSource(id uint32, source string) {
	c.record("ShaderSource")
	if s, ok := c.shaders[id]; ok {
		s.source = source
		return
	}
	c.misuse("ShaderSource(%d): unknown shader", id)
}

func (c *Context) CompileShader(id uint32) {
	c.record("CompileShader")
	s, ok := c.shaders[id]
	if !ok {
		c.misuse("CompileShader(%d): unknown shader", id)
		return
	}
	s.compiled = !strings.Contains(s.source, "#error")
}

func (c *Context) ShaderCompiled(id uint32) bool {
	s, ok := c.shaders[id]
	return ok && s.compiled
}

// ShaderInfoLog reports the first "#error" line the way GLSL compilers do.
func (c *Context) ShaderInfoLog(id uint32) string {
	s, ok := c.shaders[id]
	if !ok || s.compiled {
		return ""
	}
	for i, line := range strings.Split(s.source, "\n") {
		if idx := strings.Index(line, "#error"); idx >= 0 {
			msg := strings.TrimSpace(line[idx+len("#error"):])
			return fmt.Sprintf("ERROR: 0:%d: '#error' : %s\n", i+1, msg)
		}
	}
	return ""
}

func (c *Context) DeleteShader(id uint32) {
	c.record("DeleteShader")
	if _, ok := c.shaders[id]; !ok {
		c.misuse("DeleteShader(%d): unknown shader", id)
		return
	}
	delete(c.shaders, id)
}

func (c *Context) CreateProgram() uint32 {
	c.record("CreateProgram")
	id := c.handle()
	c.programs[id] = &program{values: make(map[string][]float32)}
	return id
}

func (c *Context) AttachShader(prog, sh uint32) {
	c.record("AttachShader")
	p, ok := c.programs[prog]
	if !ok {
		c.misuse("AttachShader(%d, %d): unknown program", prog, sh)
		return
	}
	if _, ok := c.shaders[sh]; !ok {
		c.misuse("AttachShader(%d, %d): unknown shader", prog, sh)
		return
	}
	p.shaders = append(p.shaders, sh)
}

func (c *Context) LinkProgram(prog uint32) {
	c.record("LinkProgram")
	p, ok := c.programs[prog]
	if !ok {
		c.misuse("LinkProgram(%d): unknown program", prog)
		return
	}
	p.linked = len(p.shaders) == 2
	p.attribs = make(map[string]int32)
	p.uniforms = make(map[string]int32)
	for _, sh := range p.shaders {
		s := c.shaders[sh]
		if s == nil || !s.compiled || strings.Contains(s.source, "#pragma link_error") {
			p.linked = false
		}
	}
}

func (c *Context) ProgramLinked(prog uint32) bool {
	p, ok := c.programs[prog]
	return ok && p.linked
}

func (c *Context) ProgramInfoLog(prog uint32) string {
	if c.ProgramLinked(prog) {
		return ""
	}
	return "ERROR: Linking failed: unresolved varying\n"
}

func (c *Context) UseProgram(prog uint32) {
	c.record("UseProgram")
	if p, ok := c.programs[prog]; !ok || !p.linked {
		c.misuse("UseProgram(%d): not a linked program", prog)
		return
	}
	c.current = prog
}

func (c *Context) DeleteProgram(prog uint32) {
	c.record("DeleteProgram")
	if _, ok := c.programs[prog]; !ok {
		c.misuse("DeleteProgram(%d): unknown program", prog)
		return
	}
	delete(c.programs, prog)
	if c.current == prog {
		c.current = 0
	}
}

func (c *Context) CreateBuffer() uint32 {
	c.record("CreateBuffer")
	id := c.handle()
	c.buffers[id] = nil
	return id
}

func (c *Context) BufferStaticData(buf uint32, data []float32) {
	c.record("BufferStaticData")
	if _, ok := c.buffers[buf]; !ok {
		c.misuse("BufferStaticData(%d): unknown buffer", buf)
		return
	}
	c.buffers[buf] = append([]float32(nil), data...)
}

func (c *Context) DeleteBuffer(buf uint32) {
	c.record("DeleteBuffer")
	if _, ok := c.buffers[buf]; !ok {
		c.misuse("DeleteBuffer(%d): unknown buffer", buf)
		return
	}
	delete(c.buffers, buf)
}

// active reports whether name occurs in any shader attached to p.
func (c *Context) active(p *program, name string, stage gfx.Stage, anyStage bool) bool {
	for _, sh := range p.shaders {
		s := c.shaders[sh]
		if s == nil || (!anyStage && s.stage != stage) {
			continue
		}
		if strings.Contains(s.source, name) {
			return true
		}
	}
	return false
}

func (c *Context) AttribLocation(prog uint32, name string) int32 {
	p, ok := c.programs[prog]
	if !ok || !p.linked {
		c.misuse("AttribLocation(%d, %q): not a linked program", prog, name)
		return -1
	}
	if loc, ok := p.attribs[name]; ok {
		return loc
	}
	if !c.active(p, name, gfx.VertexStage, false) {
		return -1
	}
	loc := int32(len(p.attribs))
	p.attribs[name] = loc
	return loc
}

func (c *Context) EnableFloatAttrib(loc uint32, size int32, buf uint32) {
	c.record("EnableFloatAttrib")
	if _, ok := c.buffers[buf]; !ok {
		c.misuse("EnableFloatAttrib(%d): unknown buffer %d", loc, buf)
		return
	}
	c.enabled[loc] = size
}

// uniform locations are offset so they never collide with attribute slots
// in test output.
const uniformBase = 100

func (c *Context) UniformLocation(prog uint32, name string) int32 {
	p, ok := c.programs[prog]
	if !ok || !p.linked {
		c.misuse("UniformLocation(%d, %q): not a linked program", prog, name)
		return -1
	}
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	if !c.active(p, name, 0, true) {
		return -1
	}
	loc := uniformBase + int32(len(p.uniforms))
	p.uniforms[name] = loc
	return loc
}

func (c *Context) setUniform(method string, loc int32, v ...float32) {
	c.record(method)
	if loc < 0 {
		return
	}
	p, ok := c.programs[c.current]
	if !ok {
		c.misuse("%s(%d): no program in use", method, loc)
		return
	}
	for name, l := range p.uniforms {
		if l == loc {
			p.values[name] = append([]float32(nil), v...)
			return
		}
	}
	c.misuse("%s(%d): unknown location", method, loc)
}

func (c *Context) Uniform1f(loc int32, v float32) { c.setUniform("Uniform1f", loc, v) }

func (c *Context) Uniform2f(loc int32, x, y float32) { c.setUniform("Uniform2f", loc, x, y) }

func (c *Context) Viewport(x, y, width, height int32) {
	c.record("Viewport")
	c.viewport = [4]int32{x, y, width, height}
}

func (c *Context) DrawTriangles(first, count int32) {
	c.record("DrawTriangles")
	p, ok := c.programs[c.current]
	if !ok {
		c.misuse("DrawTriangles: no program in use")
		return
	}
	d := Draw{Program: c.current, First: first, Count: count}
	if v, ok := p.values["time"]; ok {
		d.Time, d.HasTimeSlot = v[0], true
	}
	c.Draws = append(c.Draws, d)
}

func (c *Context) LoseContext() {
	c.record("LoseContext")
	c.Lost = true
}

// LiveShaders, LivePrograms and LiveBuffers count handles not yet deleted.
func (c *Context) LiveShaders() int  { return len(c.shaders) }
func (c *Context) LivePrograms() int { return len(c.programs) }
func (c *Context) LiveBuffers() int  { return len(c.buffers) }

// Current returns the program in use, or 0.
func (c *Context) Current() uint32 { return c.current }

// Uniform returns the last value written to name on the program in use.
func (c *Context) Uniform(name string) ([]float32, bool) {
	p, ok := c.programs[c.current]
	if !ok {
		return nil, false
	}
	v, ok := p.values[name]
	return v, ok
}

// BufferData returns the contents uploaded to buf.
func (c *Context) BufferData(buf uint32) ([]float32, bool) {
	v, ok := c.buffers[buf]
	return v, ok
}

// EnabledAttrib returns the record size bound at loc.
func (c *Context) EnabledAttrib(loc uint32) (int32, bool) {
	v, ok := c.enabled[loc]
	return v, ok
}

// LastViewport returns the last viewport rectangle.
func (c *Context) LastViewport() [4]int32 { return c.viewport }

// CallCount counts recorded calls of method.
func (c *Context) CallCount(method string) int {
	n := 0
	for _, m := range c.Calls {
		if m == method {
			n++
		}
	}
	return n
}

// CallsSince returns the calls recorded after the first n.
func (c *Context) CallsSince(n int) []string {
	if n >= len(c.Calls) {
		return nil
	}
	return append([]string(nil), c.Calls[n:]...)
}

// AttribNames lists the active attributes resolved on prog, sorted.
func (c *Context) AttribNames(prog uint32) []string {
	p, ok := c.programs[prog]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(p.attribs))
	for n := range p.attribs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
