// Package gfx describes the graphics capability a shader canvas renders through.
//
// The interface mirrors the small slice of OpenGL the canvas needs: shader and
// program objects, static vertex buffers, three uniform setters, a viewport and
// a triangle-list draw. Handles are the raw GL object names; zero means "none".
package gfx

// Stage selects a shader pipeline stage.
type Stage int

const (
	VertexStage Stage = iota
	FragmentStage
)

func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	}
	return "unknown"
}

// Context is a current graphics context. All methods must be called on the
// thread that owns the context.
type Context interface {
	CreateShader(stage Stage) uint32
	ShaderSource(shader uint32, source string)
	CompileShader(shader uint32)
	ShaderCompiled(shader uint32) bool
	ShaderInfoLog(shader uint32) string
	DeleteShader(shader uint32)

	CreateProgram() uint32
	AttachShader(program, shader uint32)
	LinkProgram(program uint32)
	ProgramLinked(program uint32) bool
	ProgramInfoLog(program uint32) string
	UseProgram(program uint32)
	DeleteProgram(program uint32)

	// CreateBuffer allocates an array buffer. BufferStaticData uploads data
	// once with static usage.
	CreateBuffer() uint32
	BufferStaticData(buffer uint32, data []float32)
	DeleteBuffer(buffer uint32)

	// AttribLocation returns -1 when the program has no active attribute of that name.
	AttribLocation(program uint32, name string) int32
	// EnableFloatAttrib binds buffer to the attribute at loc as tightly
	// packed, unnormalized float records of size components.
	EnableFloatAttrib(loc uint32, size int32, buffer uint32)

	// UniformLocation returns -1 when the program has no active uniform of
	// that name. Setters ignore -1.
	UniformLocation(program uint32, name string) int32
	Uniform1f(loc int32, v float32)
	Uniform2f(loc int32, x, y float32)

	Viewport(x, y, width, height int32)
	DrawTriangles(first, count int32)
}

// ContextLoser is implemented by contexts that can be invalidated explicitly.
type ContextLoser interface {
	LoseContext()
}

// Context kinds a surface may be asked for. Primary is tried first.
const (
	KindCore41 = "gl41-core"
	KindCore33 = "gl33-core"
)
