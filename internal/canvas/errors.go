package canvas

import (
	"errors"
	"fmt"

	"shadercanvas/internal/gfx"
)

var (
	// ErrNoContext means the surface offered none of the requested context kinds.
	ErrNoContext = errors.New("no graphics context available")
	// ErrNotActive means the call needs an attached canvas with a linked program.
	ErrNotActive = errors.New("canvas has no active program")
	// ErrDuplicateBuffer means two buffer descriptors share an attribute name.
	ErrDuplicateBuffer = errors.New("duplicate buffer name")
)

// CompileError carries the driver's info log for a shader that failed to compile.
type CompileError struct {
	Stage gfx.Stage
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s shader: %s", e.Stage, e.Log)
}

// LinkError carries the driver's info log for a program that failed to link.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link program: %s", e.Log)
}
