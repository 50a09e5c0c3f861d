package wm

import (
	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/transport"
)

// focusInsertTail appends h as the least-recently-used entry; it becomes
// the MRU head only via setFocus.
func (s *Server) focusInsertTail(h handle.Handle, hot *ClientHot) {
	hot.FocusPrev = s.root.FocusTail
	hot.FocusNext = handle.Invalid
	if tailHot := s.clients.Hot(s.root.FocusTail); tailHot != nil {
		tailHot.FocusNext = h
	} else {
		s.root.FocusHead = h
	}
	s.root.FocusTail = h
}

func (s *Server) focusUnlink(h handle.Handle, hot *ClientHot) {
	prevHot := s.clients.Hot(hot.FocusPrev)
	nextHot := s.clients.Hot(hot.FocusNext)
	if prevHot != nil {
		prevHot.FocusNext = hot.FocusNext
	} else {
		s.root.FocusHead = hot.FocusNext
	}
	if nextHot != nil {
		nextHot.FocusPrev = hot.FocusPrev
	} else {
		s.root.FocusTail = hot.FocusPrev
	}
	hot.FocusPrev = handle.Invalid
	hot.FocusNext = handle.Invalid
}

func (s *Server) focusMoveToHead(h handle.Handle, hot *ClientHot) {
	if s.root.FocusHead == h {
		return
	}
	s.focusUnlink(h, hot)
	hot.FocusNext = s.root.FocusHead
	if headHot := s.clients.Hot(s.root.FocusHead); headHot != nil {
		headHot.FocusPrev = h
	} else {
		s.root.FocusTail = h
	}
	s.root.FocusHead = h
}

func (s *Server) focusRemove(h handle.Handle, hot *ClientHot) {
	s.focusUnlink(h, hot)
}

func (s *Server) focusable(hot *ClientHot) bool {
	if hot.State != StateMapped {
		return false
	}
	switch hot.Type {
	case TypeDesktop, TypeDock, TypeNotification, TypeMenu, TypeDropdownMenu, TypePopupMenu, TypeTooltip, TypeCombo, TypeDnd:
		return false
	}
	if !s.visible(hot) {
		return false
	}
	return true
}

// setFocus applies the focus policy. h == handle.Invalid reverts focus to
// the root window and clears _NET_ACTIVE_WINDOW. A focus change away from a
// move/resize/menu target cancels that interaction; the switcher is exempt
// since changing focus is exactly what it does.
func (s *Server) setFocus(h handle.Handle) {
	switch s.interaction.Kind {
	case InteractionMove, InteractionResize, InteractionMenu:
		if h != s.interaction.Target {
			s.cancelInteraction()
		}
	}

	if !h.IsValid() {
		s.tr.SetInputFocus(s.root.Window, transport.RevertToPointerRoot, 0)
		s.root.ActiveWindow = handle.Invalid
		s.root.Dirty |= RootDirtyActiveWindow
		return
	}
	hot := s.clients.Hot(h)
	cold := s.clients.Cold(h)
	if hot == nil || cold == nil || hot.State != StateMapped {
		return
	}

	s.focusMoveToHead(h, hot)

	if hot.CanFocus {
		s.tr.SetInputFocus(hot.XWindow, transport.RevertToPointerRoot, hot.UserTime)
	}
	if cold.Protocols&ProtoTakeFocus != 0 {
		t := hot.UserTime
		s.tr.SendClientMessage(hot.XWindow, s.atoms.get("WM_PROTOCOLS"), 32, [5]uint32{
			uint32(s.atoms.get("WM_TAKE_FOCUS")), uint32(t), 0, 0, 0,
		})
	}

	s.root.ActiveWindow = h
	s.root.Dirty |= RootDirtyActiveWindow
	s.installColormaps(hot, cold)

	if s.cfg.FocusRaise {
		s.stackRaise(h)
	}
}

// pickReplacementFocus runs after the focused client unmanages: prefer the
// departed client's transient parent chain if still live and mapped, else
// the MRU list filtered by focusable, else INVALID.
func (s *Server) pickReplacementFocus(departed *ClientHot) {
	if departed != nil {
		parent := departed.TransientFor
		for s.clients.Live(parent) {
			parentHot := s.clients.Hot(parent)
			if parentHot == nil {
				break
			}
			if s.focusable(parentHot) {
				s.setFocus(parent)
				return
			}
			parent = parentHot.TransientFor
		}
	}
	s.setFocus(s.cycleCandidate())
}

func (s *Server) cycleCandidate() handle.Handle {
	cur := s.root.FocusHead
	for i := 0; i < 4096 && s.clients.Live(cur); i++ {
		hot := s.clients.Hot(cur)
		if s.focusable(hot) {
			return cur
		}
		cur = hot.FocusNext
	}
	return handle.Invalid
}

// cycleFocus walks the MRU list from the current active window in the
// requested direction and selects the first focusable entry, with a safety
// cap against list corruption.
func (s *Server) cycleFocus(forward bool) {
	start := s.root.ActiveWindow
	if !start.IsValid() {
		start = s.root.FocusHead
	}
	cur := start
	for i := 0; i < 4096; i++ {
		hot := s.clients.Hot(cur)
		if hot == nil {
			cur = s.root.FocusHead
			if !cur.IsValid() {
				return
			}
			continue
		}
		if forward {
			cur = hot.FocusNext
			if !cur.IsValid() {
				cur = s.root.FocusHead
			}
		} else {
			cur = hot.FocusPrev
			if !cur.IsValid() {
				cur = s.root.FocusTail
			}
		}
		if cur == start {
			return
		}
		if nh := s.clients.Hot(cur); nh != nil && s.focusable(nh) {
			s.setFocus(cur)
			return
		}
	}
}
