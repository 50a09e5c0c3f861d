// Package keybind parses "Mod+Mod+Key" binding strings against a keysym
// table and installs them as display-server key grabs; the display server,
// not the OS, owns input grabs.
package keybind

import (
	"fmt"
	"strings"

	"github.com/jopamo/hxm/internal/transport"
)

// Modifier bits, matching X11's modifier mask layout closely enough for the
// core's purposes (Shift, Control, Mod1..Mod5).
const (
	ModShift uint32 = 1 << iota
	ModLock
	ModControl
	Mod1
	Mod2
	Mod3
	Mod4
	Mod5
)

var modifierNames = map[string]uint32{
	"shift":   ModShift,
	"lock":    ModLock,
	"control": ModControl,
	"ctrl":    ModControl,
	"mod1":    Mod1,
	"alt":     Mod1,
	"mod2":    Mod2,
	"mod3":    Mod3,
	"mod4":    Mod4,
	"super":   Mod4,
	"mod5":    Mod5,
}

// Binding is one parsed "Mod1+Shift+Tab" entry, associated with an action
// name resolved by the caller (the interaction dispatcher's keyAction
// switch).
type Binding struct {
	Action    string
	Modifiers uint32
	KeySym    string
	KeyCode   uint32
}

// KeySymResolver maps a keysym name (e.g. "Tab", "F4") to the transport's
// numeric keycode. The core depends only on this narrow interface rather
// than a concrete X11 keysym table.
type KeySymResolver func(keysym string) (uint32, bool)

// Manager holds the resolved bindings and answers KeyCode+Modifiers lookups
// from the tick loop's key-press dispatch.
type Manager struct {
	bindings []Binding
	byKey    map[keyComboKey]string
}

type keyComboKey struct {
	code uint32
	mods uint32
}

// Parse turns a name->binding-string map (internal/config's GlobalBindings)
// into a Manager, resolving each keysym via resolve. Malformed entries are
// skipped with the offending spec returned in errs, matching the core's
// policy of degrading rather than failing startup on a single bad binding.
func Parse(specs map[string]string, resolve KeySymResolver) (*Manager, []error) {
	m := &Manager{byKey: make(map[keyComboKey]string, len(specs))}
	var errs []error
	for action, spec := range specs {
		b, err := parseOne(action, spec, resolve)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.bindings = append(m.bindings, b)
		m.byKey[keyComboKey{code: b.KeyCode, mods: b.Modifiers}] = b.Action
	}
	return m, errs
}

func parseOne(action, spec string, resolve KeySymResolver) (Binding, error) {
	parts := strings.Split(spec, "+")
	if len(parts) == 0 {
		return Binding{}, fmt.Errorf("keybind: empty binding for %q", action)
	}
	keysym := strings.TrimSpace(parts[len(parts)-1])
	var mods uint32
	for _, p := range parts[:len(parts)-1] {
		name := strings.ToLower(strings.TrimSpace(p))
		bit, ok := modifierNames[name]
		if !ok {
			return Binding{}, fmt.Errorf("keybind: unknown modifier %q in %q", p, spec)
		}
		mods |= bit
	}
	code, ok := resolve(keysym)
	if !ok {
		return Binding{}, fmt.Errorf("keybind: unresolved keysym %q in %q", keysym, spec)
	}
	return Binding{Action: action, Modifiers: mods, KeySym: keysym, KeyCode: code}, nil
}

// Lookup returns the action bound to (keycode, modifiers), or "" if none.
func (m *Manager) Lookup(keycode uint32, modifiers uint32) string {
	if m == nil {
		return ""
	}
	return m.byKey[keyComboKey{code: keycode, mods: modifiers}]
}

// Install grabs every binding's key combination on w via the transport.
func (m *Manager) Install(tr transport.Transport, w transport.WindowID) error {
	if m == nil {
		return nil
	}
	for _, b := range m.bindings {
		if err := tr.GrabKey(w, b.KeyCode, b.Modifiers); err != nil {
			return fmt.Errorf("keybind: grab %q failed: %w", b.KeySym, err)
		}
	}
	return nil
}

// Uninstall releases every grab installed by Install.
func (m *Manager) Uninstall(tr transport.Transport, w transport.WindowID) {
	if m == nil {
		return
	}
	for _, b := range m.bindings {
		tr.UngrabKey(w, b.KeyCode, b.Modifiers)
	}
}
