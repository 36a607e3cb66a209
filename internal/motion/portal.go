package motion

import (
	"fmt"
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	"shadercanvas/internal/logging"
)

const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	settingsIface   = "org.freedesktop.portal.Settings"
	interfaceNS     = "org.gnome.desktop.interface"
	animationsKey   = "enable-animations"
	settingsChanged = settingsIface + ".SettingChanged"
)

// Portal follows the desktop's "enable-animations" setting through the XDG
// settings portal. Disabled animations mean reduced motion.
type Portal struct {
	conn    *dbus.Conn
	sigs    chan *dbus.Signal
	done    chan struct{}
	wake    func()
	pending atomic.Bool
	view    *Static
}

// OpenPortal reads the current setting and starts listening for changes.
func OpenPortal(wake func()) (*Portal, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}

	var v dbus.Variant
	obj := conn.Object(portalDest, portalPath)
	if err := obj.Call(settingsIface+".Read", 0, interfaceNS, animationsKey).Store(&v); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read %s %s: %w", interfaceNS, animationsKey, err)
	}
	enabled, ok := variantBool(v)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("read %s %s: unexpected value %s", interfaceNS, animationsKey, v.String())
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(portalPath),
		dbus.WithMatchInterface(settingsIface),
		dbus.WithMatchMember("SettingChanged"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("watch settings: %w", err)
	}

	p := &Portal{
		conn: conn,
		sigs: make(chan *dbus.Signal, 8),
		done: make(chan struct{}),
		wake: wake,
		view: NewStatic(!enabled),
	}
	p.pending.Store(!enabled)
	conn.Signal(p.sigs)
	go p.listen()

	logging.Logger().Debug("reduced-motion portal connected", "reduced", !enabled)
	return p, nil
}

func (p *Portal) listen() {
	for {
		select {
		case <-p.done:
			return
		case sig, ok := <-p.sigs:
			if !ok {
				return
			}
			reduced, ok := reducedFromSignal(sig)
			if !ok {
				continue
			}
			p.pending.Store(reduced)
			if p.wake != nil {
				p.wake()
			}
		}
	}
}

// reducedFromSignal extracts the preference from a SettingChanged signal.
func reducedFromSignal(sig *dbus.Signal) (bool, bool) {
	if sig == nil || sig.Name != settingsChanged || len(sig.Body) < 3 {
		return false, false
	}
	ns, _ := sig.Body[0].(string)
	key, _ := sig.Body[1].(string)
	if ns != interfaceNS || key != animationsKey {
		return false, false
	}
	v, ok := sig.Body[2].(dbus.Variant)
	if !ok {
		return false, false
	}
	enabled, ok := variantBool(v)
	return !enabled, ok
}

// variantBool unwraps the nested variants older portals return from Read.
func variantBool(v dbus.Variant) (bool, bool) {
	for {
		switch x := v.Value().(type) {
		case dbus.Variant:
			v = x
		case bool:
			return x, true
		default:
			return false, false
		}
	}
}

func (p *Portal) Reduced() bool { return p.view.Reduced() }

func (p *Portal) OnChange(fn func(reduced bool)) func() { return p.view.OnChange(fn) }

// Dispatch applies the latest portal value and notifies subscribers on the
// calling goroutine.
func (p *Portal) Dispatch() {
	p.view.Set(p.pending.Load())
}

func (p *Portal) Close() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	close(p.done)
	p.conn.RemoveSignal(p.sigs)
	return p.conn.Close()
}
