package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadercanvas/internal/markup"
	"shadercanvas/internal/motion"
)

func TestRegisterTypeOnce(t *testing.T) {
	r := NewRegistry()
	assert.True(t, RegisterType(r))
	assert.False(t, RegisterType(r))
	assert.Equal(t, []string{markup.TagName}, r.Tags())

	ctor, ok := r.Lookup(markup.TagName)
	require.True(t, ok)
	c := ctor(newFakeHost(), newStubSource(), motion.NewStatic(false))
	assert.False(t, c.Attached())
}

func TestDefineRejectsRedefinition(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define("x-canvas", New))
	assert.Error(t, r.Define("x-canvas", New))
}
