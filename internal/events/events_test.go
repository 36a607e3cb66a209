package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitReachesSubscribersOfType(t *testing.T) {
	b := NewBus()
	var resized, moved int
	b.Subscribe(Resize, func(Event) { resized++ })
	b.Subscribe(PointerMove, func(e Event) {
		moved++
		assert.Equal(t, 3.0, e.X)
	})

	b.Emit(Event{Type: PointerMove, X: 3})
	b.Emit(Event{Type: Resize})
	b.Emit(Event{Type: Resize})

	assert.Equal(t, 2, resized)
	assert.Equal(t, 1, moved)
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	tok := b.Subscribe(Resize, func(Event) { calls++ })
	require.Equal(t, 1, b.Len(Resize))

	require.True(t, b.Unsubscribe(tok))
	require.False(t, b.Unsubscribe(tok), "second unsubscribe")
	b.Emit(Event{Type: Resize})

	assert.Zero(t, calls)
	assert.Zero(t, b.Len(Resize))
}

func TestUnsubscribeDuringEmit(t *testing.T) {
	b := NewBus()
	var second Token
	calls := 0
	b.Subscribe(Resize, func(Event) { b.Unsubscribe(second) })
	second = b.Subscribe(Resize, func(Event) { calls++ })

	b.Emit(Event{Type: Resize})
	assert.Zero(t, calls)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "resize", Resize.String())
	assert.Equal(t, "unknown", Type(42).String())
}
