package canvas

import (
	"shadercanvas/internal/frame"
)

// PlaybackState is whether the canvas redraws every display refresh.
type PlaybackState int

const (
	Stopped PlaybackState = iota
	Running
)

func (s PlaybackState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	}
	return "invalid"
}

// ParsePlaybackState accepts "running" and "stopped".
func ParsePlaybackState(s string) (PlaybackState, bool) {
	switch s {
	case "running":
		return Running, true
	case "stopped":
		return Stopped, true
	}
	return PlaybackState(-1), false
}

// Scheduler hands out one-shot callbacks for the next display refresh.
type Scheduler interface {
	RequestFrame(fn frame.Callback) frame.ID
	CancelFrame(id frame.ID) bool
}

// frameLoop is the self-rescheduling redraw loop. It is running exactly
// when a request is pending.
type frameLoop struct {
	sched Scheduler
	// tick draws one frame and reports whether to schedule the next.
	tick  func(ts float64) bool
	frame frame.ID
}

func (l *frameLoop) state() PlaybackState {
	if l.frame != 0 {
		return Running
	}
	return Stopped
}

func (l *frameLoop) start() {
	if l.frame != 0 {
		return
	}
	l.frame = l.sched.RequestFrame(l.fire)
}

func (l *frameLoop) stop() {
	if l.frame == 0 {
		return
	}
	id := l.frame
	l.frame = 0
	l.sched.CancelFrame(id)
}

func (l *frameLoop) fire(ts float64) {
	l.frame = 0
	if l.tick(ts) && l.frame == 0 {
		l.frame = l.sched.RequestFrame(l.fire)
	}
}
