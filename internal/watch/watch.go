// Package watch reports edits to a markup file so its canvases can be
// rebuilt.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"shadercanvas/internal/events"
	"shadercanvas/internal/logging"
)

// Watcher follows one file. The directory is watched rather than the file
// so editors that save by renaming a temporary file are still seen.
type Watcher struct {
	fw      *fsnotify.Watcher
	path    string
	wake    func()
	pending atomic.Bool
	bus     *events.Bus
	wg      sync.WaitGroup
}

// New starts watching path. wake is called from a background goroutine
// each time a change is waiting for Dispatch.
func New(path string, wake func()) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	w := &Watcher{fw: fw, path: abs, wake: wake, bus: events.NewBus()}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	log := logging.Logger()
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			log.Debug("markup changed", "path", ev.Name, "op", ev.Op.String())
			if !w.pending.Swap(true) && w.wake != nil {
				w.wake()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn("watch", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// OnChange subscribes fn to change notifications delivered by Dispatch.
func (w *Watcher) OnChange(fn func(path string)) func() {
	tok := w.bus.Subscribe(events.ContentChanged, func(e events.Event) { fn(e.Path) })
	return func() { w.bus.Unsubscribe(tok) }
}

// Dispatch notifies subscribers, on the calling goroutine, if the file
// changed since the last Dispatch. Bursts of writes coalesce into one
// notification.
func (w *Watcher) Dispatch() bool {
	if !w.pending.Swap(false) {
		return false
	}
	w.bus.Emit(events.Event{Type: events.ContentChanged, Path: w.path})
	return true
}

func (w *Watcher) Close() error {
	err := w.fw.Close()
	w.wg.Wait()
	return err
}
