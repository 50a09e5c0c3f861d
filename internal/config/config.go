// Package config loads the handful of values the window-manager core
// consults directly: theme geometry for frame extents, desktop layout, and
// the cookie/tick tuning knobs. Full theme and menu-content parsing lives
// outside the core; this package is only the core's interface to
// configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.yaml.in/yaml/v3"
)

// Duration wraps time.Duration so YAML values like "5s" parse; a bare
// integer is taken as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, perr := time.ParseDuration(s)
	if perr != nil {
		return perr
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Theme carries the frame geometry the lifecycle and properties code needs
// to compute _NET_FRAME_EXTENTS.
type Theme struct {
	BorderWidth  int `yaml:"border_width" json:"border_width"`
	TitleHeight  int `yaml:"title_height" json:"title_height"`
	HandleHeight int `yaml:"handle_height" json:"handle_height"`
}

// Config is the core's configuration surface.
type Config struct {
	DesktopCount int      `yaml:"desktop_count" json:"desktop_count"`
	DesktopNames []string `yaml:"desktop_names" json:"desktop_names"`

	Theme Theme `yaml:"theme" json:"theme"`

	FocusRaise bool `yaml:"focus_raise" json:"focus_raise"`

	// FocusOverride is the default focus-on-map override applied when a
	// window rule doesn't set one explicitly:
	// 0 = never, 1 = always, 2 = predicate-driven (type/transient based).
	FocusOverride int `yaml:"focus_override" json:"focus_override"`

	CookieTimeout   Duration `yaml:"cookie_timeout" json:"cookie_timeout"`
	TickIngestCap   int           `yaml:"tick_ingest_cap" json:"tick_ingest_cap"`
	ReplyDrainBudget int          `yaml:"reply_drain_budget" json:"reply_drain_budget"`

	GlobalBindings map[string]string `yaml:"bindings" json:"bindings"`
}

// Default returns the built-in configuration used whenever the file is
// missing or fails to parse.
func Default() Config {
	return Config{
		DesktopCount: 4,
		DesktopNames: []string{"one", "two", "three", "four"},
		Theme: Theme{
			BorderWidth:  1,
			TitleHeight:  24,
			HandleHeight: 4,
		},
		FocusRaise:       true,
		FocusOverride:    2,
		CookieTimeout:    Duration(5 * time.Second),
		TickIngestCap:    512,
		ReplyDrainBudget: 64,
		// root-menu has no entry here: it is triggered by a Button3 press on
		// a frame (dispatchButton), not a keysym, and GlobalBindings only
		// carries keysym-resolvable bindings (internal/keybind).
		GlobalBindings: map[string]string{
			"alt-tab":       "Mod1+Tab",
			"alt-shift-tab": "Mod1+Shift+Tab",
			"close-window":  "Mod1+F4",
		},
	}
}

const maxConfigFileBytes int64 = 1 << 20

// Load reads and parses path, falling back to Default() with a warning on
// any error. It never returns an error itself: a malformed config is a
// recoverable condition, not a fatal one.
func Load(path string) (cfg Config, warning string) {
	cfg = Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, ""
		}
		return cfg, fmt.Sprintf("failed to read config at %s: %v", path, err)
	}
	if int64(len(data)) > maxConfigFileBytes {
		return cfg, fmt.Sprintf("config at %s exceeds %d bytes, using defaults", path, maxConfigFileBytes)
	}
	parsed := Default()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return cfg, fmt.Sprintf("failed to parse config at %s: %v", path, err)
	}
	if parsed.DesktopCount <= 0 {
		return cfg, fmt.Sprintf("config at %s has non-positive desktop_count, using defaults", path)
	}
	return parsed, ""
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "hxm", "config.yaml")
	}
	return filepath.Join(dir, "hxm", "config.yaml")
}

// Watcher emits a reload signal whenever the config file on disk changes,
// the interface the tick scheduler's signal channel subscribes to for
// --reconfigure and for live edits.
type Watcher struct {
	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	path    string
	Reload  chan struct{}
	closeCh chan struct{}
}

// WatchFile starts watching path's containing directory (matching fsnotify's
// documented pattern for surviving editors that replace files via rename)
// and returns a Watcher whose Reload channel receives a signal per change;
// changes that arrive while a signal is still pending are coalesced into it.
func WatchFile(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{
		fsw:     fsw,
		path:    filepath.Clean(path),
		Reload:  make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.Reload <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		case <-w.closeCh:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.closeCh:
	default:
		close(w.closeCh)
	}
	return w.fsw.Close()
}
