package wm

import (
	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/transport"
)

// modMove is the modifier that starts move/resize via a frame button-press;
// Mod1 (Alt) matches the default bindings in internal/config.
const modMove uint32 = 1 << 3 // Mod1

// dispatchButton handles one queued button-press/release.
func (s *Server) dispatchButton(ev transport.Event) {
	if ev.Kind == transport.EventButtonRelease {
		if s.interaction.Kind == InteractionMove || s.interaction.Kind == InteractionResize {
			s.endInteraction()
		}
		return
	}

	h, ok := s.frameOwner(ev.Window)
	if !ok {
		return
	}
	hot := s.clients.Hot(h)
	if hot == nil {
		return
	}

	switch {
	case ev.Modifiers&modMove != 0 && ev.Button == 1:
		s.beginInteraction(InteractionMove, h, hot, ev)
	case ev.Modifiers&modMove != 0 && ev.Button == 3:
		s.beginInteraction(InteractionResize, h, hot, ev)
	case ev.Button == 3:
		s.beginInteraction(InteractionMenu, h, hot, ev)
	}
}

func (s *Server) frameOwner(w transport.WindowID) (handle.Handle, bool) {
	h, ok := s.frameToClient[w]
	if ok {
		return h, true
	}
	h, ok = s.windowToClient[w]
	return h, ok
}

func (s *Server) beginInteraction(kind InteractionKind, h handle.Handle, hot *ClientHot, ev transport.Event) {
	if (hot.Fullscreen || hot.Type == TypeDock) && (kind == InteractionMove || kind == InteractionResize) {
		return // fullscreen (and dock) windows are not user-movable
	}
	s.tr.GrabPointer(hot.Frame, transport.GrabModeAsync)
	s.tr.GrabKeyboard(hot.Frame, transport.GrabModeAsync)
	s.interaction = Interaction{
		Kind:     kind,
		Target:   h,
		StartX:   ev.RootX,
		StartY:   ev.RootY,
		OrigGeom: hot.Current,
	}
}

// switcherCycle enters the switcher on the first alt-tab and advances the
// selection on each further press. Pointer and keyboard stay grabbed for the
// whole session so repeated Tab presses and the Escape cancel reach the
// window manager instead of the currently focused client.
func (s *Server) switcherCycle(forward bool) {
	if s.interaction.Kind != InteractionSwitcher {
		if s.interaction.Kind != InteractionNone {
			return
		}
		s.tr.GrabPointer(s.root.Window, transport.GrabModeAsync)
		s.tr.GrabKeyboard(s.root.Window, transport.GrabModeAsync)
		s.interaction = Interaction{
			Kind:      InteractionSwitcher,
			Target:    s.root.ActiveWindow,
			OrigFocus: s.root.ActiveWindow,
		}
	}
	s.cycleFocus(forward)
}

// cancelInteraction releases grabs and undoes the session's effect: a
// move/resize restores the original geometry, a switcher restores the
// originally focused window.
func (s *Server) cancelInteraction() {
	switch s.interaction.Kind {
	case InteractionNone:
		return
	case InteractionSwitcher:
		orig := s.interaction.OrigFocus
		s.endInteraction()
		if s.clients.Live(orig) {
			s.setFocus(orig)
		}
		return
	case InteractionMove, InteractionResize:
		if hot := s.clients.Hot(s.interaction.Target); hot != nil {
			hot.Desired = s.interaction.OrigGeom
			hot.Dirty |= DirtyGeom
			s.buckets.markDirty(s.interaction.Target)
		}
	}
	s.endInteraction()
}

func (s *Server) endInteraction() {
	s.tr.UngrabPointer()
	s.tr.UngrabKeyboard()
	s.interaction = Interaction{}
}

// applyMotion updates pending geometry for the active move/resize session.
// It runs once per tick from the coalesced motion bucket, regardless of how
// many MotionNotify events arrived.
func (s *Server) applyMotion(ev transport.Event) {
	if s.interaction.Kind != InteractionMove && s.interaction.Kind != InteractionResize {
		return
	}
	hot := s.clients.Hot(s.interaction.Target)
	if hot == nil {
		s.endInteraction()
		return
	}
	dx := ev.RootX - s.interaction.StartX
	dy := ev.RootY - s.interaction.StartY

	switch s.interaction.Kind {
	case InteractionMove:
		hot.Desired.X = s.interaction.OrigGeom.X + dx
		hot.Desired.Y = s.interaction.OrigGeom.Y + dy
	case InteractionResize:
		w := s.interaction.OrigGeom.Width
		ht := s.interaction.OrigGeom.Height
		if dx > 0 || uint32(-dx) < w {
			w = uint32(int32(w) + dx)
		}
		if dy > 0 || uint32(-dy) < ht {
			ht = uint32(int32(ht) + dy)
		}
		geom := transport.Geometry{X: hot.Desired.X, Y: hot.Desired.Y, Width: w, Height: ht}
		geom = clampToHints(geom, hot.Hints)
		hot.Desired.Width, hot.Desired.Height = geom.Width, geom.Height
	}
	hot.Dirty |= DirtyGeom
	s.buckets.markDirty(s.interaction.Target)
}

// dispatchKey handles one key-press. Escape cancels whatever interaction is
// in progress; alt-tab/alt-shift-tab drive the switcher; any other key while
// the switcher is up commits the current selection before being handled.
func (s *Server) dispatchKey(ev transport.Event, escapeKeycode uint32) {
	if ev.KeyCode == escapeKeycode && s.interaction.Kind != InteractionNone {
		s.cancelInteraction()
		return
	}

	action := s.keyAction(ev)
	switch action {
	case "alt-tab":
		s.switcherCycle(true)
		return
	case "alt-shift-tab":
		s.switcherCycle(false)
		return
	}

	if s.interaction.Kind == InteractionSwitcher {
		s.endInteraction()
	}

	switch action {
	case "close-window":
		if s.root.ActiveWindow.IsValid() {
			s.closeWindow(s.root.ActiveWindow)
		}
	case "root-menu":
		if s.root.ActiveWindow.IsValid() {
			if hot := s.clients.Hot(s.root.ActiveWindow); hot != nil {
				s.beginInteraction(InteractionMenu, s.root.ActiveWindow, hot, ev)
			}
		}
	}
}

// keyAction resolves a bound action name for ev via the installed key
// bindings, or "" if unbound.
func (s *Server) keyAction(ev transport.Event) string {
	if s.keybinds == nil {
		return ""
	}
	return s.keybinds.Lookup(ev.KeyCode, ev.Modifiers)
}
