package keybind

import (
	"testing"
)

func testResolver(name string) (uint32, bool) {
	table := map[string]uint32{
		"Tab":    23,
		"F4":     70,
		"Escape": 9,
	}
	code, ok := table[name]
	return code, ok
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		specs     map[string]string
		wantErrs  int
		wantCount int
	}{
		{
			name:      "valid bindings",
			specs:     map[string]string{"alt-tab": "Mod1+Tab", "close": "Mod1+Shift+F4"},
			wantCount: 2,
		},
		{
			name:     "unknown modifier skipped",
			specs:    map[string]string{"bad": "Hyper+Tab", "good": "Mod1+Tab"},
			wantErrs: 1, wantCount: 1,
		},
		{
			name:     "unresolved keysym skipped",
			specs:    map[string]string{"bad": "Mod1+NoSuchKey"},
			wantErrs: 1, wantCount: 0,
		},
		{
			name:      "bare key with no modifier",
			specs:     map[string]string{"escape": "Escape"},
			wantCount: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, errs := Parse(tt.specs, testResolver)
			if len(errs) != tt.wantErrs {
				t.Fatalf("errs = %v, want %d", errs, tt.wantErrs)
			}
			if len(m.bindings) != tt.wantCount {
				t.Fatalf("bindings = %d, want %d", len(m.bindings), tt.wantCount)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	m, errs := Parse(map[string]string{
		"alt-tab":       "Mod1+Tab",
		"alt-shift-tab": "Mod1+Shift+Tab",
	}, testResolver)
	if len(errs) != 0 {
		t.Fatalf("Parse errs = %v", errs)
	}

	if got := m.Lookup(23, Mod1); got != "alt-tab" {
		t.Fatalf("Lookup(Tab, Mod1) = %q, want alt-tab", got)
	}
	if got := m.Lookup(23, Mod1|ModShift); got != "alt-shift-tab" {
		t.Fatalf("Lookup(Tab, Mod1|Shift) = %q, want alt-shift-tab", got)
	}
	if got := m.Lookup(23, ModControl); got != "" {
		t.Fatalf("Lookup(Tab, Control) = %q, want unbound", got)
	}
	var nilMgr *Manager
	if got := nilMgr.Lookup(23, Mod1); got != "" {
		t.Fatalf("nil manager Lookup = %q, want empty", got)
	}
}

func TestModifierAliases(t *testing.T) {
	m, errs := Parse(map[string]string{
		"a": "Alt+Tab",
		"b": "Ctrl+F4",
		"c": "Super+Escape",
	}, testResolver)
	if len(errs) != 0 {
		t.Fatalf("Parse errs = %v", errs)
	}
	if got := m.Lookup(23, Mod1); got != "a" {
		t.Fatalf("Alt alias did not resolve to Mod1: Lookup = %q", got)
	}
	if got := m.Lookup(70, ModControl); got != "b" {
		t.Fatalf("Ctrl alias did not resolve to Control: Lookup = %q", got)
	}
	if got := m.Lookup(9, Mod4); got != "c" {
		t.Fatalf("Super alias did not resolve to Mod4: Lookup = %q", got)
	}
}
