package wm

import (
	"github.com/jopamo/hxm/internal/config"
	"github.com/jopamo/hxm/internal/cookiejar"
	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/transport"
)

// manage begins adoption of w: a normal, non-override-redirect window
// observed via MapRequest or the startup adoption scan. It allocates a handle, issues the initial property/geometry
// query set through the cookie jar, and records pending_replies.
func (s *Server) manage(w transport.WindowID) (handle.Handle, error) {
	if w == transport.None || w == s.root.Window {
		return handle.Invalid, nil
	}
	if _, already := s.windowToClient[w]; already {
		return handle.Invalid, nil
	}

	h, err := s.clients.Alloc()
	if err != nil {
		s.log.Error("manage: slotmap exhausted", "window", w, "error", err)
		return handle.Invalid, newError(KindResourceExhausted, "manage", err)
	}
	hot := s.clients.Hot(h)
	*hot = ClientHot{
		XWindow:      w,
		Frame:        transport.None,
		State:        StateNew,
		Layer:        LayerNormal,
		TransientFor: handle.Invalid,
		FocusPrev:    handle.Invalid,
		FocusNext:    handle.Invalid,
		FocusOverride: -1,
		FirstMap:     true,
	}
	s.windowToClient[w] = h
	s.issueAdoptionQueries(h, w)
	return h, nil
}

// adoptionQueries is the initial property set fetched for every window
// entering management.
var adoptionQueries = []string{
	"WM_NAME",
	"_NET_WM_NAME",
	"WM_CLASS",
	"WM_NORMAL_HINTS",
	"WM_HINTS",
	"WM_PROTOCOLS",
	"WM_TRANSIENT_FOR",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_STATE",
	"_NET_WM_DESKTOP",
	"_NET_WM_STRUT_PARTIAL",
	"_NET_WM_ICON",
	"WM_COLORMAP_WINDOWS",
	"_GTK_FRAME_EXTENTS",
}

func (s *Server) issueAdoptionQueries(h handle.Handle, w transport.WindowID) {
	hot := s.clients.Hot(h)
	if hot == nil {
		return
	}
	hot.PendingReplies = len(adoptionQueries)
	for _, name := range adoptionQueries {
		atom := s.atoms.get(name)
		seq, err := s.tr.GetProperty(w, atom, 0, 0, 64)
		if err != nil {
			hot.PendingReplies--
			continue
		}
		s.jar.Push(seq, cookiejar.KindGetProperty, h, uint64(atom), s.makePropertyHandler(name))
	}
}

// requeryProperty re-issues a single GetProperty for (window, atom)
// following a PropertyNotify.
func (s *Server) requeryProperty(h handle.Handle, w transport.WindowID, atomName string) {
	atom := s.atoms.get(atomName)
	seq, err := s.tr.GetProperty(w, atom, 0, 0, 64)
	if err != nil {
		return
	}
	hot := s.clients.Hot(h)
	if hot != nil {
		hot.PendingReplies++
	}
	s.jar.Push(seq, cookiejar.KindGetProperty, h, uint64(atom), s.makePropertyHandler(atomName))
}

func (s *Server) makePropertyHandler(atomName string) cookiejar.Handler {
	return func(slot cookiejar.Slot, reply *transport.Reply, xerr *transport.XError) {
		h := slot.Client
		hot := s.clients.Hot(h)
		if hot == nil {
			return // client unmanaged between push and reply
		}
		if hot.PendingReplies > 0 {
			hot.PendingReplies--
		}

		if xerr != nil {
			s.log.Debug("property reply error", "atom", atomName, "kind", xerr.Kind.String())
			if hot.State == StateNew && xerr.Kind == transport.ErrorBadWindow {
				hot.ManageAborted = true
			}
			s.maybeCompleteAdoption(h)
			return
		}
		if reply == nil {
			// Timeout: soft failure, no recovery beyond the decrement above.
			s.maybeCompleteAdoption(h)
			return
		}

		s.ingestProperty(h, atomName, reply.Property)
		s.maybeCompleteAdoption(h)
	}
}

// maybeCompleteAdoption drives NEW -> READY or NEW -> DESTROYED once every
// initial query has settled.
func (s *Server) maybeCompleteAdoption(h handle.Handle) {
	hot := s.clients.Hot(h)
	if hot == nil || hot.State != StateNew || hot.PendingReplies > 0 {
		return
	}
	if hot.ManageAborted {
		s.destroyClient(h)
		return
	}
	s.completeAdoption(h)
}

// completeAdoption performs NEW -> READY: placement, frame creation,
// reparenting, layer insertion, and focus-history insertion.
func (s *Server) completeAdoption(h handle.Handle) {
	hot := s.clients.Hot(h)
	cold := s.clients.Cold(h)
	if hot == nil || cold == nil {
		return
	}

	s.resolveTransient(h, hot)
	s.applyPlacement(h, hot, cold)

	theme := s.cfg.Theme
	extents := frameExtents(theme)
	frameGeom := transport.Geometry{
		X:      hot.Desired.X - int32(extents.left),
		Y:      hot.Desired.Y - int32(extents.top),
		Width:  hot.Desired.Width + uint32(extents.left+extents.right),
		Height: hot.Desired.Height + uint32(extents.top+extents.bottom),
	}
	frame, err := s.tr.CreateWindow(s.root.Window, frameGeom)
	if err != nil {
		s.log.Warn("completeAdoption: frame create failed", "window", hot.XWindow, "error", err)
		s.destroyClient(h)
		return
	}
	hot.Frame = frame
	s.frameToClient[frame] = h

	if err := s.tr.ReparentWindow(hot.XWindow, frame, int32(extents.left), int32(extents.top)); err != nil {
		s.log.Warn("completeAdoption: reparent failed", "window", hot.XWindow, "error", err)
	}
	s.tr.AddDeleteSaveSet(transport.SaveSetInsert, hot.XWindow)

	hot.Current = hot.Desired
	hot.State = StateReady

	s.layerInsert(h, hot.Layer)
	s.focusInsertTail(h, hot)
	s.root.ClientList = append(s.root.ClientList, h)
	s.root.Dirty |= RootDirtyClientList

	hot.Dirty |= DirtyGeom | DirtyState | DirtyFrameStyle | DirtyHints
	s.buckets.markDirty(h)
}

type extentsPx struct{ left, right, top, bottom int }

// frameExtents computes _NET_FRAME_EXTENTS from the configured theme
// geometry: {bw, bw, title_height+bw, max(handle_height, bw)}.
func frameExtents(theme config.Theme) extentsPx {
	bw := theme.BorderWidth
	hh := theme.HandleHeight
	if hh < bw {
		hh = bw
	}
	return extentsPx{left: bw, right: bw, top: theme.TitleHeight + bw, bottom: hh}
}

// resolveTransient validates WM_TRANSIENT_FOR against self-reference and
// cycles; a dangling or cyclic reference degrades to Invalid.
func (s *Server) resolveTransient(h handle.Handle, hot *ClientHot) {
	cold := s.clients.Cold(h)
	if cold == nil || cold.TransientForRaw == transport.None {
		hot.TransientFor = handle.Invalid
		return
	}
	parent, ok := s.windowToClient[cold.TransientForRaw]
	if !ok || parent == h {
		hot.TransientFor = handle.Invalid
		return
	}
	// Cycle detection: walk parent's chain; if we encounter h, reject.
	seen := map[handle.Handle]bool{h: true}
	cur := parent
	for i := 0; i < 64 && s.clients.Live(cur); i++ {
		if seen[cur] {
			hot.TransientFor = handle.Invalid
			return
		}
		seen[cur] = true
		ph := s.clients.Hot(cur)
		if ph == nil || !ph.TransientFor.IsValid() {
			break
		}
		cur = ph.TransientFor
	}
	hot.TransientFor = parent
	if parentHot := s.clients.Hot(parent); parentHot != nil {
		hot.TransientSibling = parentHot.TransientChild
		parentHot.TransientChild = h
	}
}

// applyPlacement chooses the client's starting geometry: remembered
// placement from internal/statestore when available and no explicit session
// state exists, otherwise the requested geometry adjusted for size hints.
func (s *Server) applyPlacement(h handle.Handle, hot *ClientHot, cold *ClientCold) {
	hot.Desired = clampToHints(hot.Desired, hot.Hints)
	if !hot.DesktopExplicit {
		hot.Desktop = uint32(s.root.CurrentDesktop)
	}
	if s.store == nil || cold.Class == "" {
		return
	}
	rec, ok := s.store.Lookup(cold.Class, cold.Instance)
	if !ok {
		return
	}
	if !hot.DesktopExplicit {
		hot.Desktop = rec.Desktop
	}
	hot.Desired.X = rec.X
	hot.Desired.Y = rec.Y
	if rec.W > 0 && rec.H > 0 {
		hot.Desired.Width = rec.W
		hot.Desired.Height = rec.H
	}
	hot.Layer = Layer(rec.Layer)
}

func clampToHints(g transport.Geometry, hints SizeHints) transport.Geometry {
	if hints.HasMin {
		if int32(g.Width) < hints.MinWidth {
			g.Width = uint32(hints.MinWidth)
		}
		if int32(g.Height) < hints.MinHeight {
			g.Height = uint32(hints.MinHeight)
		}
	}
	if hints.HasMax {
		if hints.MaxWidth > 0 && int32(g.Width) > hints.MaxWidth {
			g.Width = uint32(hints.MaxWidth)
		}
		if hints.MaxHeight > 0 && int32(g.Height) > hints.MaxHeight {
			g.Height = uint32(hints.MaxHeight)
		}
	}
	return g
}

// visible reports whether hot should currently be mapped given the root's
// current desktop and show-desktop state.
func (s *Server) visible(hot *ClientHot) bool {
	if s.root.ShowingDesktop && hot.Type != TypeDesktop {
		return false
	}
	if hot.Sticky || hot.Desktop == desktopSticky {
		return true
	}
	return int(hot.Desktop) == s.root.CurrentDesktop
}

// syncVisibility transitions READY/MAPPED/UNMAPPED clients to match
// s.visible, called once per tick at the end of process, before commit.
func (s *Server) syncVisibility() {
	s.clients.ForEach(func(h handle.Handle, hot *ClientHot, cold *ClientCold) {
		switch hot.State {
		case StateReady:
			if s.visible(hot) {
				s.mapClient(h, hot)
			}
		case StateMapped:
			if !s.visible(hot) {
				s.unmapClient(h, hot, false)
			}
		case StateUnmapped:
			if s.visible(hot) {
				s.mapClient(h, hot)
			}
		}
	})
}

func (s *Server) mapClient(h handle.Handle, hot *ClientHot) {
	s.tr.MapWindow(hot.Frame)
	s.tr.MapWindow(hot.XWindow)
	wasReady := hot.State == StateReady
	hot.State = StateMapped
	hot.Dirty |= DirtyState
	s.buckets.markDirty(h)

	if wasReady && hot.FirstMap {
		hot.FirstMap = false
		if s.focusOnMap(hot) {
			s.setFocus(h)
		}
	}
}

func (s *Server) unmapClient(h handle.Handle, hot *ClientHot, explicit bool) {
	s.tr.UnmapWindow(hot.Frame)
	hot.IgnoreUnmap++
	hot.State = StateUnmapped
	hot.Dirty |= DirtyState
	s.buckets.markDirty(h)
}

// focusOnMap decides whether a window takes focus the first time it maps:
// never for reserved types, otherwise per the focus override, with dialogs
// and transients of live parents focused by default.
func (s *Server) focusOnMap(hot *ClientHot) bool {
	switch hot.Type {
	case TypeDock, TypeNotification, TypeDesktop, TypeMenu, TypeDropdownMenu, TypePopupMenu, TypeTooltip, TypeCombo, TypeDnd:
		return false
	}
	switch s.cfg.FocusOverride {
	case 0:
		return false
	case 1:
		return true
	}
	if hot.Type == TypeDialog {
		return true
	}
	return s.clients.Live(hot.TransientFor)
}

// destroyClient tears down a client that failed adoption (NEW -> DESTROYED).
func (s *Server) destroyClient(h handle.Handle) {
	hot := s.clients.Hot(h)
	if hot == nil {
		return
	}
	delete(s.windowToClient, hot.XWindow)
	if hot.Frame != transport.None {
		delete(s.frameToClient, hot.Frame)
	}
	s.clients.Free(h)
}

// unmanage drives any state -> UNMANAGING -> DESTROYED: removal from
// layers, maps, and focus history, frame destruction, and slot release.
func (s *Server) unmanage(h handle.Handle) {
	hot := s.clients.Hot(h)
	if hot == nil {
		return
	}
	hot.State = StateUnmanaging

	if s.interaction.Kind != InteractionNone && s.interaction.Target == h {
		// The interaction target is going away; release the grabs now
		// rather than holding them until the next motion event.
		s.endInteraction()
	}

	s.stackRemove(h, hot)
	s.focusRemove(h, hot)
	s.degradeTransientReferences(h)

	if s.root.ActiveWindow == h {
		s.root.ActiveWindow = handle.Invalid
		s.root.Dirty |= RootDirtyActiveWindow
		s.pickReplacementFocus(hot)
	}

	for i, ch := range s.root.ClientList {
		if ch == h {
			s.root.ClientList = append(s.root.ClientList[:i], s.root.ClientList[i+1:]...)
			break
		}
	}
	s.root.Dirty |= RootDirtyClientList | RootDirtyClientListStacking

	if s.store != nil {
		cold := s.clients.Cold(h)
		if cold != nil && cold.Class != "" {
			s.store.Save(cold.Class, cold.Instance, int(hot.Desktop), hot.Current, int(hot.Layer))
		}
	}

	s.tr.AddDeleteSaveSet(transport.SaveSetDelete, hot.XWindow)
	if hot.Frame != transport.None {
		s.tr.DestroyWindow(hot.Frame)
		delete(s.frameToClient, hot.Frame)
	}
	delete(s.windowToClient, hot.XWindow)

	hot.State = StateDestroyed
	s.clients.Free(h)
}

// degradeTransientReferences clears transient_for on any live client that
// pointed at h, so a parent's unmanage never leaves a dangling reference.
func (s *Server) degradeTransientReferences(h handle.Handle) {
	s.clients.ForEach(func(other handle.Handle, hot *ClientHot, cold *ClientCold) {
		if hot.TransientFor == h {
			hot.TransientFor = handle.Invalid
		}
	})
}
