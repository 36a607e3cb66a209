// Package events is a small synchronous event bus. Subscriptions return a
// token so every subscriber can undo exactly what it registered.
package events

type Type int

const (
	Resize Type = iota
	PointerMove
	MotionChanged
	ContentChanged
	KeyPress
)

func (t Type) String() string {
	switch t {
	case Resize:
		return "resize"
	case PointerMove:
		return "pointermove"
	case MotionChanged:
		return "motionchanged"
	case ContentChanged:
		return "contentchanged"
	case KeyPress:
		return "keypress"
	}
	return "unknown"
}

type Event struct {
	Type Type
	X, Y float64
	Flag bool   // Generic payload (e.g. reduced-motion state).
	Path string // Changed file for ContentChanged.
	Key  int    // Key code for KeyPress.
}

type Handler func(Event)

// Token identifies one subscription. The zero Token is never issued.
type Token struct {
	typ Type
	id  uint64
}

type subscription struct {
	id      uint64
	fn      Handler
	removed bool
}

type Bus struct {
	next     uint64
	handlers map[Type][]*subscription
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]*subscription),
	}
}

func (b *Bus) Subscribe(t Type, fn Handler) Token {
	b.next++
	b.handlers[t] = append(b.handlers[t], &subscription{id: b.next, fn: fn})
	return Token{typ: t, id: b.next}
}

// Unsubscribe removes the subscription behind tok. It reports false when tok
// was already removed. A handler removed while an Emit is in progress is not
// called for the rest of that Emit.
func (b *Bus) Unsubscribe(tok Token) bool {
	subs := b.handlers[tok.typ]
	for i, s := range subs {
		if s.id != tok.id {
			continue
		}
		s.removed = true
		b.handlers[tok.typ] = append(subs[:i:i], subs[i+1:]...)
		return true
	}
	return false
}

func (b *Bus) Emit(e Event) {
	subs := append([]*subscription(nil), b.handlers[e.Type]...)
	for _, s := range subs {
		if !s.removed {
			s.fn(e)
		}
	}
}

// Len returns the number of live subscriptions for t.
func (b *Bus) Len(t Type) int {
	return len(b.handlers[t])
}
