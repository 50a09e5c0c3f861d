package wm

import (
	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/transport"
)

// stateAction mirrors the _NET_WM_STATE message's action field.
type stateAction uint32

const (
	stateRemove stateAction = 0
	stateAdd    stateAction = 1
	stateToggle stateAction = 2
)

// dispatchClientMessage handles one queued (ordered, not deduped)
// ClientMessage event.
func (s *Server) dispatchClientMessage(ev transport.Event) {
	h, ok := s.windowToClient[ev.Window]
	name := s.atoms.name(ev.Atom)

	switch name {
	case "_NET_CURRENT_DESKTOP":
		s.switchDesktop(int(ev.Data32[0]))

	case "_NET_ACTIVE_WINDOW":
		if !ok {
			return
		}
		hot := s.clients.Hot(h)
		if hot != nil && s.focusable(hot) {
			s.setFocus(h)
		}

	case "_NET_WM_STATE":
		if !ok {
			return
		}
		hot := s.clients.Hot(h)
		if hot == nil {
			return
		}
		s.applyStateMessage(h, hot, stateAction(ev.Data32[0]), transport.Atom(ev.Data32[1]), transport.Atom(ev.Data32[2]))

	case "_NET_WM_DESKTOP":
		if !ok {
			return
		}
		hot := s.clients.Hot(h)
		if hot == nil {
			return
		}
		s.setClientDesktop(h, hot, ev.Data32[0])

	case "_NET_CLOSE_WINDOW":
		if !ok {
			return
		}
		s.closeWindow(h)

	case "WM_CHANGE_STATE":
		if !ok {
			return
		}
		const iconicState = 3
		if ev.Data32[0] == iconicState {
			if hot := s.clients.Hot(h); hot != nil && hot.State == StateMapped {
				s.unmapClient(h, hot, true)
			}
		}
	}
}

func (s *Server) switchDesktop(idx int) {
	if idx < 0 || idx >= s.root.DesktopCount || idx == s.root.CurrentDesktop {
		return
	}
	s.root.CurrentDesktop = idx
	s.root.Dirty |= RootDirtyCurrentDesktop | RootDirtyWorkarea
}

func (s *Server) setClientDesktop(h handle.Handle, hot *ClientHot, raw uint32) {
	if raw == desktopSticky {
		hot.Sticky = true
	} else {
		hot.Sticky = false
		if int(raw) >= s.root.DesktopCount {
			raw = uint32(s.root.DesktopCount - 1)
		}
		hot.Desktop = raw
		hot.DesktopExplicit = true
	}
	hot.Dirty |= DirtyState
	s.buckets.markDirty(h)
}

// applyStateMessage applies idempotent add/remove/toggle semantics.
func (s *Server) applyStateMessage(h handle.Handle, hot *ClientHot, action stateAction, a1, a2 transport.Atom) {
	for _, a := range [2]transport.Atom{a1, a2} {
		if a == 0 {
			continue
		}
		s.applyStateAtom(h, hot, action, a)
	}
	hot.Dirty |= DirtyState
	s.buckets.markDirty(h)
}

func (s *Server) applyStateAtom(h handle.Handle, hot *ClientHot, action stateAction, a transport.Atom) {
	set := func(cur *bool) {
		switch action {
		case stateAdd:
			*cur = true
		case stateRemove:
			*cur = false
		case stateToggle:
			*cur = !*cur
		}
	}
	switch a {
	case s.atoms.get("_NET_WM_STATE_FULLSCREEN"):
		want := hot.Fullscreen
		set(&want)
		s.setFullscreen(h, hot, want)
	case s.atoms.get("_NET_WM_STATE_ABOVE"):
		set(&hot.Above)
		if hot.Above {
			s.moveToLayer(h, LayerAbove)
		} else {
			s.moveToLayer(h, LayerNormal)
		}
	case s.atoms.get("_NET_WM_STATE_BELOW"):
		set(&hot.Below)
		if hot.Below {
			s.moveToLayer(h, LayerBelow)
		} else {
			s.moveToLayer(h, LayerNormal)
		}
	case s.atoms.get("_NET_WM_STATE_STICKY"):
		set(&hot.Sticky)
	case s.atoms.get("_NET_WM_STATE_HIDDEN"):
		before := hot.Hidden
		set(&hot.Hidden)
		// Adding _NET_WM_STATE_HIDDEN to a visible client unmaps it;
		// removing it from an unmapped client restores it. Hidden is not
		// a separate state, it rides the normal map/unmap transitions.
		if hot.Hidden && !before && hot.State == StateMapped {
			s.unmapClient(h, hot, true)
		} else if !hot.Hidden && before && hot.State == StateUnmapped {
			s.mapClient(h, hot)
		}
	case s.atoms.get("_NET_WM_STATE_DEMANDS_ATTENTION"):
		set(&hot.DemandsAttention)
	case s.atoms.get("_NET_WM_STATE_SKIP_TASKBAR"):
		set(&hot.SkipTaskbar)
	case s.atoms.get("_NET_WM_STATE_SKIP_PAGER"):
		set(&hot.SkipPager)
	}
}

// setFullscreen promotes/demotes h to/from the fullscreen layer, saving and
// restoring geometry and decoration bit-exactly.
func (s *Server) setFullscreen(h handle.Handle, hot *ClientHot, want bool) {
	if want == hot.Fullscreen {
		return
	}
	if want {
		hot.Saved = SavedState{Valid: true, Layer: hot.Layer, Geometry: hot.Current, Decorated: true}
		hot.Fullscreen = true
		s.moveToLayer(h, LayerFullscreen)
		scr := s.tr.RootGeometry()
		hot.Desired = transport.Geometry{Width: scr.Width, Height: scr.Height}
		hot.Dirty |= DirtyFrameStyle | DirtyGeom
	} else {
		hot.Fullscreen = false
		if hot.Saved.Valid {
			s.moveToLayer(h, hot.Saved.Layer)
			hot.Desired = hot.Saved.Geometry
			hot.Saved.Valid = false
		} else {
			s.moveToLayer(h, LayerNormal)
		}
		hot.Dirty |= DirtyFrameStyle | DirtyGeom
	}
	s.buckets.markDirty(h)
}

// closeWindow implements _NET_CLOSE_WINDOW: WM_DELETE_WINDOW if supported,
// else KillClient.
func (s *Server) closeWindow(h handle.Handle) {
	hot := s.clients.Hot(h)
	cold := s.clients.Cold(h)
	if hot == nil || cold == nil {
		return
	}
	if cold.Protocols&ProtoDeleteWindow != 0 {
		s.tr.SendClientMessage(hot.XWindow, s.atoms.get("WM_PROTOCOLS"), 32, [5]uint32{
			uint32(s.atoms.get("WM_DELETE_WINDOW")), 0, 0, 0, 0,
		})
		return
	}
	s.tr.KillClient(hot.XWindow)
}
