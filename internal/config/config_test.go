package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DesktopCount <= 0 {
		t.Fatalf("DesktopCount = %d, want > 0", cfg.DesktopCount)
	}
	if len(cfg.DesktopNames) != cfg.DesktopCount {
		t.Fatalf("len(DesktopNames) = %d, want %d", len(cfg.DesktopNames), cfg.DesktopCount)
	}
	if _, ok := cfg.GlobalBindings["root-menu"]; ok {
		t.Fatal("GlobalBindings must not carry a button binding under a keysym-only table")
	}
	for action, spec := range cfg.GlobalBindings {
		if spec == "" {
			t.Errorf("binding %q has an empty spec", action)
		}
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")
	cfg, warning := Load(path)
	if warning != "" {
		t.Fatalf("warning = %q, want empty for a missing file", warning)
	}
	if cfg.DesktopCount != Default().DesktopCount {
		t.Fatalf("DesktopCount = %d, want the default", cfg.DesktopCount)
	}
}

func TestLoadValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "desktop_count: 2\ndesktop_names: [alpha, beta]\nfocus_raise: false\ncookie_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, warning := Load(path)
	if warning != "" {
		t.Fatalf("warning = %q, want none for a valid file", warning)
	}
	if cfg.DesktopCount != 2 || len(cfg.DesktopNames) != 2 {
		t.Fatalf("cfg = %+v, want DesktopCount=2 DesktopNames=[alpha beta]", cfg)
	}
	if cfg.FocusRaise {
		t.Fatal("FocusRaise should have been overridden to false")
	}
	if cfg.CookieTimeout.Std() != 2*time.Second {
		t.Fatalf("CookieTimeout = %v, want 2s", cfg.CookieTimeout)
	}
}

func TestLoadMalformedFileFallsBackWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, warning := Load(path)
	if warning == "" {
		t.Fatal("expected a warning for malformed yaml")
	}
	if cfg.DesktopCount != Default().DesktopCount {
		t.Fatalf("DesktopCount = %d, want the default after a parse failure", cfg.DesktopCount)
	}
}

func TestLoadNonPositiveDesktopCountFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("desktop_count: 0\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, warning := Load(path)
	if warning == "" {
		t.Fatal("expected a warning for a non-positive desktop_count")
	}
	if cfg.DesktopCount != Default().DesktopCount {
		t.Fatalf("DesktopCount = %d, want the default", cfg.DesktopCount)
	}
}

func TestLoadOversizeFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	big := make([]byte, maxConfigFileBytes+1)
	for i := range big {
		big[i] = ' '
	}
	if err := os.WriteFile(path, big, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, warning := Load(path)
	if warning == "" {
		t.Fatal("expected a warning for an oversize config file")
	}
	if cfg.DesktopCount != Default().DesktopCount {
		t.Fatalf("DesktopCount = %d, want the default", cfg.DesktopCount)
	}
}

func TestWatchFileSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("desktop_count: 1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	w, err := WatchFile(path)
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("desktop_count: 3\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case <-w.Reload:
	case <-time.After(5 * time.Second):
		t.Fatal("Watcher did not signal Reload after a file write")
	}
}
