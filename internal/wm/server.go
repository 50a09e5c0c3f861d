package wm

import (
	"context"
	"time"

	"github.com/jopamo/hxm/internal/config"
	"github.com/jopamo/hxm/internal/render"
	"github.com/jopamo/hxm/internal/transport"
)

func (s *Server) now() time.Time { return time.Now() }

// SetRenderer installs the drawing surface that consumes per-client dirty
// regions. A nil renderer is valid: damage is still tracked and discarded,
// matching a headless core.
func (s *Server) SetRenderer(r render.Renderer) { s.renderer = r }

// Start performs the one-time startup sequence: acquiring the WM selection
// is handled by the caller (internal/wmselect) before NewServer is even
// constructed, since failure there is fatal before any core state exists.
// Start publishes the root identity window and the initial
// _NET_SUPPORTED/desktop properties, then probes optional extensions, the
// one place a synchronous round-trip is allowed.
func (s *Server) Start(extensions []string) error {
	if err := startupPublishRootIdentity(s); err != nil {
		return err
	}
	s.root.Dirty = ^RootDirtyBit(0)
	for _, name := range extensions {
		present, err := s.tr.ProbeExtension(name)
		if err != nil {
			s.log.Warn("extension probe failed", "extension", name, "error", err)
			continue
		}
		s.root.ExtensionCaps[name] = present
	}
	return nil
}

// Run executes the tick loop until ctx is cancelled or Shutdown is
// requested, waking on whatever MultiplexWait (loop_linux.go / loop_other.go)
// reports ready: the transport fd, a timer (repaint throttling / deferred
// wakeups), a signal channel (reload/restart/shutdown), or the optional IPC
// control socket.
func (s *Server) Run(ctx context.Context, wait MultiplexWaiter) error {
	for {
		if s.shutdown.Load() || s.exitFlag.Load() || s.restartFlag.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if s.reloadFlag.CompareAndSwap(true, false) {
			s.applyReload()
		}

		reason := wait.Wait(ctx, s.tr.FD(), s.pendingFlush)
		switch reason {
		case WaitReload:
			s.applyReload()
		case WaitShutdown:
			s.shutdown.Store(true)
			continue
		case WaitRestart:
			s.restartFlag.Store(true)
			continue
		case WaitError:
			return newError(KindFatal, "Run", context.Canceled)
		}
		s.Tick()
	}
}

// SetConfigPath records where applyReload re-reads configuration from. The
// caller (cmd/hxm) sets this once at startup to the same path it passed to
// config.Load originally.
func (s *Server) SetConfigPath(path string) { s.cfgPath = path }

// applyReload re-reads configuration from s.cfgPath, consumed by the tick
// loop's signal channel to mirror --reconfigure. Desktop geometry (count/names/workarea) is left untouched on a
// live reload since clients already reference existing desktop indices by
// number; theme, focus policy and tick tuning take effect on the very next
// tick. Key bindings are not re-read: the table installed with SetKeybinds
// stays in effect until SetKeybinds is called again.
func (s *Server) applyReload() {
	if s.cfgPath == "" {
		s.log.Info("reconfigure signal received, no config path set")
		return
	}
	cfg, warning := config.Load(s.cfgPath)
	if warning != "" {
		s.log.Warn("reconfigure: config reload warning", "warning", warning)
	}
	cfg.DesktopCount = s.cfg.DesktopCount
	cfg.DesktopNames = s.cfg.DesktopNames
	s.cfg = cfg
	s.ingestCap = cfg.TickIngestCap
	s.jar.SetTimeout(cfg.CookieTimeout.Std())
	// Key bindings are left as installed; SetKeybinds replaces them.
	s.log.Info("reconfigure applied")
}

// RequestExit, RequestRestart, and RequestReload are invoked by the control
// socket (internal/ipc) in response to --exit / --restart / --reconfigure.
// They are the one place core state is touched from outside the tick-loop
// goroutine, hence the atomic flags in types.go.
func (s *Server) RequestExit()    { s.exitFlag.Store(true) }
func (s *Server) RequestRestart() { s.restartFlag.Store(true) }
func (s *Server) RequestReload()  { s.reloadFlag.Store(true) }

// Shutdown stops the loop without touching client windows: every managed
// window sits in the display server's save-set, so clients survive a WM
// exit and are reparented back to the root.
func (s *Server) Shutdown() { s.shutdown.Store(true) }

// AdoptExisting scans for already-mapped windows at startup (e.g. after
// --restart) and begins adoption for each, reusing the same manage() path a
// live MapRequest takes.
func (s *Server) AdoptExisting(windows []transport.WindowID) {
	for _, w := range windows {
		s.manage(w)
	}
}
