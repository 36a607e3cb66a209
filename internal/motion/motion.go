// Package motion reports the user's reduced-motion preference.
package motion

import (
	"fmt"

	"shadercanvas/internal/events"
	"shadercanvas/internal/logging"
)

// Signal is a boolean preference with change notifications. Notifications
// are delivered on the thread that calls Set or Dispatch.
type Signal interface {
	Reduced() bool
	OnChange(fn func(reduced bool)) (unsubscribe func())
}

// Source is a Signal owned by the main loop. Dispatch delivers changes that
// arrived from other goroutines; Close releases the backing connection.
type Source interface {
	Signal
	Dispatch()
	Close() error
}

// Preference modes accepted by Open.
const (
	ModeAuto = "auto"
	ModeOn   = "on"
	ModeOff  = "off"
)

// Open returns the source for mode. In auto mode the desktop portal is
// tried first; when it is unreachable the preference is fixed at "not
// reduced". wake is called from a background goroutine whenever a portal
// change is waiting for Dispatch.
func Open(mode string, wake func()) (Source, error) {
	switch mode {
	case ModeOn:
		return NewStatic(true), nil
	case ModeOff:
		return NewStatic(false), nil
	case "", ModeAuto:
		p, err := OpenPortal(wake)
		if err != nil {
			logging.Logger().Debug("reduced-motion portal unavailable", "error", err)
			return NewStatic(false), nil
		}
		return p, nil
	}
	return nil, fmt.Errorf("reduced motion: unknown mode %q", mode)
}

// Static is a preference set directly by its owner.
type Static struct {
	reduced bool
	bus     *events.Bus
}

func NewStatic(reduced bool) *Static {
	return &Static{reduced: reduced, bus: events.NewBus()}
}

func (s *Static) Reduced() bool { return s.reduced }

// Set changes the preference and notifies subscribers when it differs.
func (s *Static) Set(reduced bool) {
	if s.reduced == reduced {
		return
	}
	s.reduced = reduced
	s.bus.Emit(events.Event{Type: events.MotionChanged, Flag: reduced})
}

// Toggle flips the preference and returns the new value.
func (s *Static) Toggle() bool {
	s.Set(!s.reduced)
	return s.reduced
}

func (s *Static) OnChange(fn func(reduced bool)) func() {
	tok := s.bus.Subscribe(events.MotionChanged, func(e events.Event) { fn(e.Flag) })
	return func() { s.bus.Unsubscribe(tok) }
}

// Subscribers returns the number of live change subscriptions.
func (s *Static) Subscribers() int {
	return s.bus.Len(events.MotionChanged)
}

func (s *Static) Dispatch() {}

func (s *Static) Close() error { return nil }
