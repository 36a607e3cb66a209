//go:build !android

// Command shadercanvas opens one window per <shader-canvas> element of a
// markup file and animates it.
//
// Keys: Space play/pause, R rebuild, D detach/attach, M toggle reduced
// motion (when not following the desktop), Escape quit.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"shadercanvas/internal/canvas"
	"shadercanvas/internal/config"
	"shadercanvas/internal/host"
	"shadercanvas/internal/logging"
	"shadercanvas/internal/markup"
	"shadercanvas/internal/motion"
	"shadercanvas/internal/watch"
)

func main() {
	runtime.LockOSThread()

	cfg, err := config.Parse(filepath.Base(os.Args[0]), os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logging.SetLogger(logger)

	if err := run(cfg); err != nil {
		logger.Error("shadercanvas", "error", err)
		os.Exit(1)
	}
}

// view is one canvas in its own window.
type view struct {
	win    *host.Window
	canvas *canvas.Canvas
}

// refresh attaches or rebuilds, logging content errors instead of failing so
// a broken shader can be fixed while the viewer runs.
func (v *view) refresh() {
	v.win.MakeCurrent()
	var err error
	if v.canvas.Attached() {
		err = v.canvas.Rebuild()
	} else {
		err = v.canvas.Attach()
	}
	if err != nil {
		slog.Error("load canvas", "canvas", v.canvas.Name(), "error", err)
	}
}

func (v *view) togglePlayback() {
	next := canvas.Running
	if v.canvas.PlaybackState() == canvas.Running {
		next = canvas.Stopped
	}
	if err := v.canvas.SetPlaybackState(next); err != nil {
		slog.Warn("playback", "canvas", v.canvas.Name(), "error", err)
	}
}

func (v *view) toggleAttached() {
	if v.canvas.Attached() {
		v.canvas.Detach()
		return
	}
	v.refresh()
}

func (v *view) close() {
	v.win.MakeCurrent()
	v.canvas.Dispose()
	v.win.Close()
}

func run(cfg config.Config) error {
	reg := canvas.NewRegistry()
	canvas.RegisterType(reg)
	newCanvas, _ := reg.Lookup(markup.TagName)

	n, err := markup.Count(cfg.Markup)
	if err != nil {
		return err
	}

	if err := host.Init(); err != nil {
		return err
	}
	defer host.Terminate()

	sig, err := motion.Open(cfg.ReducedMotion, host.Wake)
	if err != nil {
		return err
	}
	defer sig.Close()
	static, _ := sig.(*motion.Static)

	base := filepath.Base(cfg.Markup)
	quit := false
	var views []*view
	defer func() {
		for _, v := range views {
			v.close()
		}
	}()

	for i := range n {
		win, err := host.Open(host.Options{
			Title:  fmt.Sprintf("%s [%d]", base, i),
			Width:  cfg.Width,
			Height: cfg.Height,
			DPR:    cfg.DPR,
			VSync:  cfg.VSync && i == 0,
		})
		if err != nil {
			return err
		}
		v := &view{
			win:    win,
			canvas: newCanvas(win, markup.FileSource{Path: cfg.Markup, Index: i}, sig, canvas.WithName(fmt.Sprintf("%s[%d]", base, i))),
		}
		views = append(views, v)

		win.OnKey(func(key glfw.Key) {
			switch key {
			case glfw.KeyEscape:
				quit = true
			case glfw.KeySpace:
				v.togglePlayback()
			case glfw.KeyR:
				v.refresh()
			case glfw.KeyD:
				v.toggleAttached()
			case glfw.KeyM:
				if static == nil {
					slog.Info("reduced motion follows the desktop setting")
					return
				}
				slog.Info("reduced motion", "on", static.Toggle())
			}
		})
		v.refresh()
	}

	dispatchWatch := func() bool { return false }
	if cfg.Watch {
		w, err := watch.New(cfg.Markup, host.Wake)
		if err != nil {
			return err
		}
		defer w.Close()
		w.OnChange(func(path string) {
			slog.Info("reloading", "path", path)
			for _, v := range views {
				v.refresh()
			}
		})
		dispatchWatch = w.Dispatch
	}
	loop(&views, sig, dispatchWatch, &quit)
	return nil
}

// loop runs until every window is closed. It blocks in the event wait
// whenever no canvas has a frame scheduled.
func loop(views *[]*view, sig motion.Source, dispatchWatch func() bool, quit *bool) {
	for len(*views) > 0 && !*quit {
		host.Poll(!anyRunning(*views))
		sig.Dispatch()
		dispatchWatch()

		open := (*views)[:0]
		for _, v := range *views {
			if v.win.ShouldClose() {
				v.close()
				continue
			}
			v.win.Pump()
			open = append(open, v)
		}
		*views = open
	}
}

func anyRunning(views []*view) bool {
	for _, v := range views {
		if v.canvas.PlaybackState() == canvas.Running {
			return true
		}
	}
	return false
}
