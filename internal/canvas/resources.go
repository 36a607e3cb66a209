package canvas

import (
	"errors"
	"fmt"

	"shadercanvas/internal/gfx"
	"shadercanvas/internal/logging"
	"shadercanvas/internal/markup"
)

// Uniform names shader authors can declare.
const (
	UniformTime       = "time"
	UniformMouse      = "mouse"
	UniformResolution = "resolution"
)

// defaultVertexCount is the number of vertices in markup.DefaultQuad.
const defaultVertexCount = 6

// BufferRecord is one vertex buffer bound to a program attribute.
type BufferRecord struct {
	Buffer     uint32
	RecordSize int
	// Location is -1 when the program does not use the attribute.
	Location int32
	Data     []float32
}

type programResource struct {
	vertex   uint32
	fragment uint32
	program  uint32

	uTime       int32
	uMouse      int32
	uResolution int32
}

// resources is everything one build allocates on the context.
type resources struct {
	prog    programResource
	buffers map[string]*BufferRecord
	count   int
}

func compileShader(ctx gfx.Context, stage gfx.Stage, source string) (uint32, error) {
	shader := ctx.CreateShader(stage)
	if shader == 0 {
		return 0, fmt.Errorf("create %s shader failed", stage)
	}
	ctx.ShaderSource(shader, source)
	ctx.CompileShader(shader)
	if !ctx.ShaderCompiled(shader) {
		log := ctx.ShaderInfoLog(shader)
		ctx.DeleteShader(shader)
		return 0, &CompileError{Stage: stage, Log: log}
	}
	return shader, nil
}

func linkProgram(ctx gfx.Context, vertSrc, fragSrc string) (programResource, error) {
	vs, err := compileShader(ctx, gfx.VertexStage, vertSrc)
	if err != nil {
		return programResource{}, err
	}
	fs, err := compileShader(ctx, gfx.FragmentStage, fragSrc)
	if err != nil {
		ctx.DeleteShader(vs)
		return programResource{}, err
	}

	program := ctx.CreateProgram()
	if program == 0 {
		ctx.DeleteShader(vs)
		ctx.DeleteShader(fs)
		return programResource{}, errors.New("create program failed")
	}
	ctx.AttachShader(program, vs)
	ctx.AttachShader(program, fs)
	ctx.LinkProgram(program)
	if !ctx.ProgramLinked(program) {
		log := ctx.ProgramInfoLog(program)
		ctx.DeleteProgram(program)
		ctx.DeleteShader(vs)
		ctx.DeleteShader(fs)
		return programResource{}, &LinkError{Log: log}
	}
	ctx.UseProgram(program)

	return programResource{
		vertex:      vs,
		fragment:    fs,
		program:     program,
		uTime:       ctx.UniformLocation(program, UniformTime),
		uMouse:      ctx.UniformLocation(program, UniformMouse),
		uResolution: ctx.UniformLocation(program, UniformResolution),
	}, nil
}

// buildResources compiles and links content's shaders and uploads its
// buffers. On error nothing stays allocated.
func buildResources(ctx gfx.Context, content markup.Content) (*resources, error) {
	prog, err := linkProgram(ctx, content.Vertex, content.Fragment)
	if err != nil {
		return nil, err
	}
	r := &resources{prog: prog, buffers: make(map[string]*BufferRecord)}
	log := logging.Logger()

	if len(content.Buffers) == 0 {
		if err := r.addBuffer(ctx, markup.DefaultBufferName, 2, markup.DefaultQuad); err != nil {
			r.release(ctx)
			return nil, err
		}
		r.count = defaultVertexCount
		return r, nil
	}

	r.count = -1
	for i, b := range content.Buffers {
		size := min(max(b.RecordSize, 1), markup.MaxRecordSize)
		if size != b.RecordSize {
			log.Warn("record size out of range", "buffer", b.Name, "recordSize", b.RecordSize, "using", size)
		}
		if _, dup := r.buffers[b.Name]; dup {
			r.release(ctx)
			return nil, fmt.Errorf("buffer %d (%s): %w", i, b.Name, ErrDuplicateBuffer)
		}
		if err := r.addBuffer(ctx, b.Name, size, b.Data); err != nil {
			r.release(ctx)
			return nil, err
		}
		n := len(b.Data) / size
		if len(b.Data)%size != 0 {
			log.Warn("buffer length is not a multiple of its record size",
				"buffer", b.Name, "length", len(b.Data), "recordSize", size)
		}
		if r.count >= 0 && n != r.count {
			log.Warn("buffers disagree on vertex count; drawing the longest",
				"buffer", b.Name, "vertices", n, "previous", r.count)
		}
		r.count = max(r.count, n)
	}
	return r, nil
}

func (r *resources) addBuffer(ctx gfx.Context, name string, size int, data []float32) error {
	buf := ctx.CreateBuffer()
	if buf == 0 {
		return fmt.Errorf("create buffer %s failed", name)
	}
	ctx.BufferStaticData(buf, data)
	loc := ctx.AttribLocation(r.prog.program, name)
	r.buffers[name] = &BufferRecord{Buffer: buf, RecordSize: size, Location: loc, Data: data}
	if loc < 0 {
		logging.Logger().Debug("attribute not used by program", "buffer", name)
		return nil
	}
	ctx.EnableFloatAttrib(uint32(loc), int32(size), buf)
	return nil
}

// release deletes every buffer, the program and its shaders. Calling it
// again is a no-op.
func (r *resources) release(ctx gfx.Context) {
	for name, b := range r.buffers {
		ctx.DeleteBuffer(b.Buffer)
		delete(r.buffers, name)
	}
	if r.prog.program != 0 {
		ctx.DeleteProgram(r.prog.program)
		ctx.DeleteShader(r.prog.vertex)
		ctx.DeleteShader(r.prog.fragment)
	}
	r.prog = programResource{}
	r.count = 0
}
