package canvas

import (
	"fmt"
	"sort"

	"shadercanvas/internal/markup"
	"shadercanvas/internal/motion"
)

// Constructor builds a component for one element of a registered tag.
type Constructor func(host Host, source ContentSource, signal motion.Signal, opts ...Option) *Canvas

// Registry maps element tag names to constructors. A process creates one
// and passes it to whatever instantiates elements.
type Registry struct {
	types map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Constructor)}
}

// Define registers ctor under tag. Redefining a tag is an error.
func (r *Registry) Define(tag string, ctor Constructor) error {
	if _, ok := r.types[tag]; ok {
		return fmt.Errorf("tag %q already defined", tag)
	}
	r.types[tag] = ctor
	return nil
}

func (r *Registry) Lookup(tag string) (Constructor, bool) {
	ctor, ok := r.types[tag]
	return ctor, ok
}

// Tags lists the registered tag names, sorted.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.types))
	for t := range r.types {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// RegisterType defines the shader canvas tag on r unless it is already
// there, and reports whether this call defined it.
func RegisterType(r *Registry) bool {
	if _, ok := r.Lookup(markup.TagName); ok {
		return false
	}
	return r.Define(markup.TagName, New) == nil
}
