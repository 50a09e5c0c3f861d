package wm

import "github.com/jopamo/hxm/internal/transport"

// installColormaps installs the active client's colormap(s). Two triggers
// reach it: a focus change (setFocus) and a ColormapNotify for one of the
// active client's own windows (processColormapNotify below); either can
// invalidate the installed colormap. WM_COLORMAP_WINDOWS
// lists child windows with their own colormap, installed in listed order so
// the last entry ends up on top per ICCCM; a client with no such list
// installs its own top-level colormap.
func (s *Server) installColormaps(hot *ClientHot, cold *ClientCold) {
	if len(cold.ColormapWindows) == 0 {
		s.tr.InstallColormap(hot.XWindow)
		return
	}
	for _, w := range cold.ColormapWindows {
		s.tr.InstallColormap(w)
	}
}

// processColormapNotify reinstalls the active client's colormaps when the
// server reports one of its colormap windows changed, without waiting for
// the next focus change.
func (s *Server) processColormapNotify(ev transport.Event) {
	h := s.root.ActiveWindow
	if !h.IsValid() {
		return
	}
	hot := s.clients.Hot(h)
	cold := s.clients.Cold(h)
	if hot == nil || cold == nil {
		return
	}
	if ev.Window != hot.XWindow && !containsWindow(cold.ColormapWindows, ev.Window) {
		return
	}
	s.installColormaps(hot, cold)
}

func containsWindow(list []transport.WindowID, w transport.WindowID) bool {
	for _, v := range list {
		if v == w {
			return true
		}
	}
	return false
}
