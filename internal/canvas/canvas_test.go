package canvas

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadercanvas/internal/events"
	"shadercanvas/internal/gfx"
	"shadercanvas/internal/logging"
	"shadercanvas/internal/markup"
	"shadercanvas/internal/motion"
)

func attachCanvas(t *testing.T, src *stubSource, sig motion.Signal) (*Canvas, *fakeHost) {
	t.Helper()
	h := newFakeHost()
	c := New(h, src, sig, WithName(t.Name()))
	require.NoError(t, c.Attach())
	return c, h
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	orig := logging.Logger()
	t.Cleanup(func() { logging.SetLogger(orig) })
	var buf bytes.Buffer
	logging.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	return &buf
}

func TestSetupThenTeardownLeavesNothingAllocated(t *testing.T) {
	sig := motion.NewStatic(false)
	c, h := attachCanvas(t, newStubSource(), sig)
	gl := h.gl()

	require.True(t, c.Active())
	assert.Equal(t, 1, gl.LivePrograms())
	assert.Equal(t, 2, gl.LiveShaders())
	assert.Equal(t, 1, gl.LiveBuffers())
	assert.Equal(t, 1, h.bus.Len(events.Resize))
	assert.Equal(t, 1, h.bus.Len(events.PointerMove))
	assert.Equal(t, 1, sig.Subscribers())

	c.Detach()

	assert.Zero(t, gl.LiveBuffers())
	assert.Zero(t, gl.LivePrograms())
	assert.Zero(t, gl.LiveShaders())
	assert.Empty(t, gl.Misuse)
	assert.True(t, gl.Lost)
	assert.True(t, h.surface().removed)
	assert.Zero(t, h.bus.Len(events.Resize))
	assert.Zero(t, h.bus.Len(events.PointerMove))
	assert.Zero(t, sig.Subscribers())
	assert.Zero(t, h.Pending())
	assert.False(t, c.Attached())
	assert.Zero(t, c.Program())
	assert.Nil(t, c.BufferNames())
}

func TestTeardownIsIdempotent(t *testing.T) {
	h := newFakeHost()
	c := New(h, newStubSource(), motion.NewStatic(false))
	c.Dispose()
	c.Detach()

	require.NoError(t, c.Attach())
	gl := h.gl()
	c.Dispose()
	c.Dispose()
	c.Detach()

	assert.Empty(t, gl.Misuse)
	assert.Equal(t, 1, gl.CallCount("DeleteProgram"))
	assert.Equal(t, 1, gl.CallCount("LoseContext"))
}

func TestAttachOnlyBuildsWhenDetached(t *testing.T) {
	c, h := attachCanvas(t, newStubSource(), motion.NewStatic(false))
	require.NoError(t, c.Attach())
	assert.Len(t, h.surfaces, 1)
	assert.Equal(t, 1, h.gl().CallCount("LinkProgram"))
}

func TestReattachRebuildsFromScratch(t *testing.T) {
	c, h := attachCanvas(t, newStubSource(), motion.NewStatic(false))
	first := h.gl()
	c.Detach()
	require.NoError(t, c.Attach())

	require.Len(t, h.surfaces, 2)
	assert.NotSame(t, first, h.gl())
	assert.True(t, c.Active())
	assert.Equal(t, Running, c.PlaybackState())
	assert.Equal(t, 1, h.Pending())
}

func TestFrameLoopRedrawsEachRefresh(t *testing.T) {
	c, h := attachCanvas(t, newStubSource(), motion.NewStatic(false))
	gl := h.gl()

	h.Run(16)
	h.Run(33)

	require.Len(t, gl.Draws, 2)
	assert.Equal(t, int32(6), gl.Draws[1].Count)
	assert.Equal(t, float32(33), gl.Draws[1].Time)
	assert.Equal(t, uint64(2), c.Frames())
	assert.Equal(t, 1, h.Pending())
	assert.Equal(t, Running, c.PlaybackState())
}

func TestFrameWritesTimeBeforeDrawing(t *testing.T) {
	_, h := attachCanvas(t, newStubSource(), motion.NewStatic(false))
	gl := h.gl()
	mark := len(gl.Calls)

	h.Run(5)
	assert.Equal(t, []string{"Uniform1f", "DrawTriangles"}, gl.CallsSince(mark))
}

func TestStartThenStopNeverDraws(t *testing.T) {
	c, h := attachCanvas(t, newStubSource(), motion.NewStatic(true))
	require.Equal(t, Stopped, c.PlaybackState())

	require.NoError(t, c.SetPlaybackState(Running))
	require.NoError(t, c.SetPlaybackState(Stopped))
	h.Run(16)

	assert.Zero(t, c.Frames())
	assert.Empty(t, h.gl().Draws)
}

func TestPlaybackTransitionsAreIdempotent(t *testing.T) {
	c, h := attachCanvas(t, newStubSource(), motion.NewStatic(false))

	require.NoError(t, c.SetPlaybackState(Running))
	require.NoError(t, c.SetPlaybackState(Running))
	assert.Equal(t, 1, h.Pending())

	require.NoError(t, c.SetPlaybackState(Stopped))
	require.NoError(t, c.SetPlaybackState(Stopped))
	assert.Zero(t, h.Pending())
	assert.Equal(t, Stopped, c.PlaybackState())
}

func TestInvalidPlaybackStateIsLoggedAndIgnored(t *testing.T) {
	logs := captureLogs(t)
	c, h := attachCanvas(t, newStubSource(), motion.NewStatic(false))

	require.NoError(t, c.SetPlaybackState(PlaybackState(7)))
	assert.Equal(t, Running, c.PlaybackState())
	assert.Equal(t, 1, h.Pending())
	assert.Contains(t, logs.String(), "playback state can be running or stopped")
}

func TestReducedMotionTogglesPlayback(t *testing.T) {
	sig := motion.NewStatic(false)
	c, h := attachCanvas(t, newStubSource(), sig)
	require.Equal(t, Running, c.PlaybackState())

	sig.Set(true)
	assert.Equal(t, Stopped, c.PlaybackState())
	assert.Zero(t, h.Pending())
	h.Run(16)
	assert.Zero(t, c.Frames())

	sig.Set(false)
	assert.Equal(t, Running, c.PlaybackState())
	assert.Equal(t, 1, h.Pending())
}

func TestReducedMotionCheckedEachFrame(t *testing.T) {
	sig := &silentSignal{}
	c, h := attachCanvas(t, newStubSource(), sig)

	h.Run(16)
	sig.reduced = true
	h.Run(32)

	assert.Equal(t, uint64(2), c.Frames(), "the in-flight frame still draws")
	assert.Equal(t, Stopped, c.PlaybackState())
	assert.Zero(t, h.Pending())
}

func TestAttachWithReducedMotionStaysStopped(t *testing.T) {
	c, h := attachCanvas(t, newStubSource(), motion.NewStatic(true))
	assert.Equal(t, Stopped, c.PlaybackState())
	assert.Zero(t, h.Pending())
	assert.True(t, c.Active())
}

func TestDetachCancelsPendingFrame(t *testing.T) {
	c, h := attachCanvas(t, newStubSource(), motion.NewStatic(false))
	require.Equal(t, 1, h.Pending())
	c.Detach()
	assert.Zero(t, h.Run(16))
	assert.Zero(t, c.Frames())
}

func TestDefaultBufferWhenNoneDeclared(t *testing.T) {
	c, h := attachCanvas(t, newStubSource(), motion.NewStatic(false))

	assert.Equal(t, []string{"position"}, c.BufferNames())
	b, ok := c.Buffer("position")
	require.True(t, ok)
	assert.Equal(t, 2, b.RecordSize)
	assert.Len(t, b.Data, 12)
	assert.Equal(t, 6, c.VertexCount())

	size, ok := h.gl().EnabledAttrib(uint32(b.Location))
	require.True(t, ok)
	assert.Equal(t, int32(2), size)
	data, _ := h.gl().BufferData(b.Buffer)
	assert.Equal(t, markup.DefaultQuad, data)
}

func TestDeclaredBufferSetsVertexCount(t *testing.T) {
	src := newStubSource(markup.Buffer{Name: "position", RecordSize: 3, Data: make([]float32, 9)})
	c, _ := attachCanvas(t, src, motion.NewStatic(false))
	assert.Equal(t, 3, c.VertexCount())
}

func TestRebuildProducesOneRecordPerDescriptor(t *testing.T) {
	cases := []struct {
		buffers []markup.Buffer
		names   []string
		count   int
	}{
		{nil, []string{"position"}, 6},
		{[]markup.Buffer{{Name: "position", RecordSize: 2, Data: make([]float32, 8)}}, []string{"position"}, 4},
		{[]markup.Buffer{
			{Name: "position", RecordSize: 2, Data: make([]float32, 6)},
			{Name: "uv", RecordSize: 2, Data: make([]float32, 10)},
		}, []string{"position", "uv"}, 5},
		{[]markup.Buffer{
			{Name: "a", RecordSize: 0, Data: make([]float32, 3)},
			{Name: "b", RecordSize: 4, Data: make([]float32, 4)},
			{Name: "c", RecordSize: 3, Data: make([]float32, 6)},
		}, []string{"a", "b", "c"}, 3},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			src := newStubSource()
			c, h := attachCanvas(t, src, motion.NewStatic(false))

			src.content.Buffers = tc.buffers
			require.NoError(t, c.Rebuild())

			assert.Equal(t, tc.names, c.BufferNames())
			assert.Equal(t, tc.count, c.VertexCount())
			for _, name := range tc.names {
				b, _ := c.Buffer(name)
				assert.GreaterOrEqual(t, b.RecordSize, 1, name)
			}
			assert.Equal(t, len(tc.names), h.gl().LiveBuffers())
			assert.Empty(t, h.gl().Misuse)
		})
	}
}

func TestRepeatedRebuildIsStable(t *testing.T) {
	src := newStubSource(
		markup.Buffer{Name: "position", RecordSize: 2, Data: make([]float32, 12)},
		markup.Buffer{Name: "color", RecordSize: 4, Data: make([]float32, 24)},
	)
	c, h := attachCanvas(t, src, motion.NewStatic(false))
	gl := h.gl()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Rebuild())
		assert.Equal(t, 6, c.VertexCount())
		assert.Equal(t, []string{"color", "position"}, c.BufferNames())
		assert.Equal(t, 2, gl.LiveBuffers())
		assert.Equal(t, 1, gl.LivePrograms())
		assert.Equal(t, 2, gl.LiveShaders())
	}
	assert.Equal(t, Running, c.PlaybackState())
	assert.Equal(t, 1, h.Pending())
	assert.Empty(t, gl.Misuse)
}

func TestRebuildResolvesLocationsAgainstNewProgram(t *testing.T) {
	src := newStubSource()
	c, _ := attachCanvas(t, src, motion.NewStatic(false))
	before := c.Program()

	require.NoError(t, c.Rebuild())
	b, _ := c.Buffer("position")
	assert.NotEqual(t, before, c.Program())
	assert.Equal(t, int32(0), b.Location)
}

func TestRebuildKeepsSurfaceAndSubscriptions(t *testing.T) {
	sig := motion.NewStatic(false)
	c, h := attachCanvas(t, newStubSource(), sig)
	require.NoError(t, c.Rebuild())

	assert.Len(t, h.surfaces, 1)
	assert.False(t, h.surface().removed)
	assert.Equal(t, 1, h.bus.Len(events.Resize))
	assert.Equal(t, 1, sig.Subscribers())
	v, ok := h.gl().Uniform(UniformResolution)
	require.True(t, ok, "viewport re-synced after rebuild")
	assert.Equal(t, []float32{800, 600}, v)
}

func TestMalformedVertexShaderFailsSetup(t *testing.T) {
	src := newStubSource()
	src.content.Vertex = "#version 410 core\n#error expected ';' after position\n"
	h := newFakeHost()
	c := New(h, src, motion.NewStatic(false))

	err := c.Attach()
	var ce *CompileError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, gfx.VertexStage, ce.Stage)
	assert.Contains(t, ce.Log, "ERROR: 0:2: '#error' : expected ';' after position")
	assert.Contains(t, err.Error(), "expected ';' after position")

	gl := h.gl()
	assert.False(t, c.Attached())
	assert.Zero(t, c.Program())
	assert.Zero(t, gl.LiveShaders())
	assert.Zero(t, gl.LivePrograms())
	assert.Zero(t, gl.LiveBuffers())
	assert.True(t, h.surface().removed)
	assert.Zero(t, h.bus.Len(events.Resize))
	assert.Zero(t, h.Pending())
}

func TestMalformedFragmentShaderReleasesVertexShader(t *testing.T) {
	src := newStubSource()
	src.content.Fragment = "#error bad"
	h := newFakeHost()
	c := New(h, src, motion.NewStatic(false))

	var ce *CompileError
	require.ErrorAs(t, c.Attach(), &ce)
	assert.Equal(t, gfx.FragmentStage, ce.Stage)
	assert.Zero(t, h.gl().LiveShaders())
	assert.Empty(t, h.gl().Misuse)
}

func TestLinkFailureSurfacesLog(t *testing.T) {
	src := newStubSource()
	src.content.Fragment = testFrag + "#pragma link_error\n"
	h := newFakeHost()
	c := New(h, src, motion.NewStatic(false))

	var le *LinkError
	require.ErrorAs(t, c.Attach(), &le)
	assert.Contains(t, le.Log, "Linking failed")
	assert.Zero(t, h.gl().LivePrograms())
	assert.Zero(t, h.gl().LiveShaders())
}

func TestNoContextIsFatal(t *testing.T) {
	h := newFakeHost()
	h.kinds = map[string]bool{}
	c := New(h, newStubSource(), motion.NewStatic(false))

	err := c.Attach()
	require.ErrorIs(t, err, ErrNoContext)
	assert.Equal(t, []string{gfx.KindCore41, gfx.KindCore33}, h.surface().contextRequested)
	assert.True(t, h.surface().removed)
	assert.False(t, c.Attached())
}

func TestContextFallsBackToSecondKind(t *testing.T) {
	h := newFakeHost()
	h.kinds = map[string]bool{gfx.KindCore33: true}
	c := New(h, newStubSource(), motion.NewStatic(false))

	require.NoError(t, c.Attach())
	assert.Equal(t, gfx.KindCore33, c.ContextKind())
}

func TestSurfaceErrorIsReturned(t *testing.T) {
	h := newFakeHost()
	h.surfaceErr = errBoom
	c := New(h, newStubSource(), motion.NewStatic(false))
	require.ErrorIs(t, c.Attach(), errBoom)
}

func TestContentErrorFailsSetup(t *testing.T) {
	src := newStubSource()
	src.err = errBoom
	h := newFakeHost()
	c := New(h, src, motion.NewStatic(false))

	require.ErrorIs(t, c.Attach(), errBoom)
	assert.Empty(t, h.surfaces)
}

func TestMisuseWithoutProgram(t *testing.T) {
	c := New(newFakeHost(), newStubSource(), motion.NewStatic(false))

	assert.ErrorIs(t, c.Draw(0), ErrNotActive)
	assert.ErrorIs(t, c.SyncViewport(), ErrNotActive)
	assert.ErrorIs(t, c.Rebuild(), ErrNotActive)
	assert.ErrorIs(t, c.SetPlaybackState(Running), ErrNotActive)
	assert.NoError(t, c.SetPlaybackState(Stopped))
	c.PointerMove(10, 10)
	assert.Zero(t, c.VertexCount())
}

func TestFailedRebuildStopsThenResumes(t *testing.T) {
	src := newStubSource()
	c, h := attachCanvas(t, src, motion.NewStatic(false))
	gl := h.gl()

	src.content.Fragment = "#error typo"
	require.Error(t, c.Rebuild())
	assert.True(t, c.Attached())
	assert.False(t, c.Active())
	assert.Equal(t, Stopped, c.PlaybackState())
	assert.Zero(t, gl.LivePrograms())
	assert.Zero(t, gl.LiveBuffers())
	assert.ErrorIs(t, c.Draw(1), ErrNotActive)
	require.NoError(t, c.SyncViewport(), "surface and context survive")

	src.content.Fragment = testFrag
	require.NoError(t, c.Rebuild())
	assert.True(t, c.Active())
	assert.Equal(t, Running, c.PlaybackState())
}

func TestRebuildWithUnreadableContentKeepsProgram(t *testing.T) {
	src := newStubSource()
	c, _ := attachCanvas(t, src, motion.NewStatic(false))
	prog := c.Program()

	src.err = errBoom
	require.ErrorIs(t, c.Rebuild(), errBoom)
	assert.Equal(t, prog, c.Program())
	assert.Equal(t, Running, c.PlaybackState())
}

func TestDuplicateBufferNamesRejected(t *testing.T) {
	src := newStubSource(
		markup.Buffer{Name: "position", RecordSize: 2, Data: make([]float32, 4)},
		markup.Buffer{Name: "position", RecordSize: 2, Data: make([]float32, 4)},
	)
	h := newFakeHost()
	c := New(h, src, motion.NewStatic(false))

	require.ErrorIs(t, c.Attach(), ErrDuplicateBuffer)
	assert.Zero(t, h.gl().LiveBuffers())
	assert.Zero(t, h.gl().LivePrograms())
}

func TestMismatchedBuffersDrawLongestAndWarn(t *testing.T) {
	logs := captureLogs(t)
	src := newStubSource(
		markup.Buffer{Name: "position", RecordSize: 2, Data: make([]float32, 7)},
		markup.Buffer{Name: "uv", RecordSize: 2, Data: make([]float32, 12)},
	)
	c, _ := attachCanvas(t, src, motion.NewStatic(false))

	assert.Equal(t, 6, c.VertexCount())
	assert.Contains(t, logs.String(), "not a multiple of its record size")
	assert.Contains(t, logs.String(), "disagree on vertex count")
}

func TestUnusedAttributeIsRecordedNotEnabled(t *testing.T) {
	src := newStubSource(
		markup.Buffer{Name: "position", RecordSize: 2, Data: make([]float32, 6)},
		markup.Buffer{Name: "normal", RecordSize: 3, Data: make([]float32, 9)},
	)
	c, h := attachCanvas(t, src, motion.NewStatic(false))

	b, ok := c.Buffer("normal")
	require.True(t, ok)
	assert.Equal(t, int32(-1), b.Location)
	assert.Equal(t, 1, h.gl().CallCount("EnableFloatAttrib"))
}

func TestDetachFromEarlierCallbackInSameRefresh(t *testing.T) {
	h := newFakeHost()
	first := New(h, newStubSource(), motion.NewStatic(false), WithName("first"))
	second := New(h, newStubSource(), motion.NewStatic(false), WithName("second"))
	require.NoError(t, first.Attach())
	h.RequestFrame(func(float64) { second.Detach() })
	require.NoError(t, second.Attach())

	require.NotPanics(t, func() { h.Run(16) })
	assert.Equal(t, uint64(1), first.Frames())
	assert.Zero(t, second.Frames())
	assert.False(t, second.Attached())
	assert.Equal(t, 1, h.Pending(), "only the first canvas rescheduled")
}

func TestPauseAfterFailedRebuildSurvivesRecovery(t *testing.T) {
	src := newStubSource()
	c, h := attachCanvas(t, src, motion.NewStatic(false))

	src.content.Fragment = "#error typo"
	require.Error(t, c.Rebuild())
	require.NoError(t, c.SetPlaybackState(Stopped))

	src.content.Fragment = testFrag
	require.NoError(t, c.Rebuild())
	assert.True(t, c.Active())
	assert.Equal(t, Stopped, c.PlaybackState())
	assert.Zero(t, h.Pending())
}

func TestOversizedRecordIsClamped(t *testing.T) {
	logs := captureLogs(t)
	src := newStubSource(markup.Buffer{Name: "position", RecordSize: 1 << 20, Data: make([]float32, 8)})
	c, h := attachCanvas(t, src, motion.NewStatic(false))

	b, ok := c.Buffer("position")
	require.True(t, ok)
	assert.Equal(t, markup.MaxRecordSize, b.RecordSize)
	size, _ := h.gl().EnabledAttrib(uint32(b.Location))
	assert.Equal(t, int32(markup.MaxRecordSize), size)
	assert.Equal(t, 2, c.VertexCount())
	assert.Contains(t, logs.String(), "record size out of range")
}
