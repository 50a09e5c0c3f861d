package wm

import (
	"encoding/binary"

	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/transport"
)

// commitProperties publishes every dirty root and per-client conformance
// property exactly once per tick.
func (s *Server) commitProperties() {
	s.clients.ForEach(func(h handle.Handle, hot *ClientHot, cold *ClientCold) {
		if hot.Dirty == 0 {
			return
		}
		s.commitClient(h, hot, cold)
		hot.Dirty = 0
	})
	s.commitRoot()
	s.root.Dirty = 0
}

func (s *Server) commitClient(h handle.Handle, hot *ClientHot, cold *ClientCold) {
	if hot.Dirty&DirtyGeom != 0 {
		s.commitGeometry(hot)
	}
	if hot.Dirty&DirtyStack != 0 {
		s.syncStacking(h, hot)
	}
	if hot.Dirty&(DirtyState|DirtyHints) != 0 {
		s.writeWMState(hot)
		s.writeNetWMState(hot)
		s.writeAllowedActions(hot, cold)
	}
	if hot.Dirty&DirtyFrameStyle != 0 {
		s.writeFrameExtents(hot)
	}
	if hot.Dirty&DirtyTitle != 0 {
		// Title is owned by the client; the WM only reads it (no write-back).
	}
	s.writeNetWMDesktop(hot)
}

func (s *Server) commitGeometry(hot *ClientHot) {
	extents := frameExtents(s.cfg.Theme)
	if hot.Fullscreen {
		// Undecorated: the frame collapses to the client rectangle.
		extents = extentsPx{}
	}
	frameGeom := transport.Geometry{
		X:      hot.Desired.X - int32(extents.left),
		Y:      hot.Desired.Y - int32(extents.top),
		Width:  hot.Desired.Width + uint32(extents.left+extents.right),
		Height: hot.Desired.Height + uint32(extents.top+extents.bottom),
	}
	s.tr.ConfigureWindow(hot.Frame, transport.ConfigX|transport.ConfigY|transport.ConfigWidth|transport.ConfigHeight, frameGeom, transport.None, transport.StackAbove)
	s.tr.ConfigureWindow(hot.XWindow, transport.ConfigX|transport.ConfigY|transport.ConfigWidth|transport.ConfigHeight, hot.Desired, transport.None, transport.StackAbove)
	if hot.Current != hot.Desired {
		s.tr.SendSyntheticConfigureNotify(hot.XWindow, hot.Desired)
	}
	hot.Current = hot.Desired
}

func (s *Server) writeWMState(hot *ClientHot) {
	const (
		withdrawnState = 0
		normalState    = 1
		iconicState    = 3
	)
	state := uint32(withdrawnState)
	switch hot.State {
	case StateMapped:
		state = normalState
	case StateUnmapped, StateReady:
		state = iconicState
	}
	// {state, icon=None}: the icon-window word is always None here, the WM
	// draws its own iconified representation.
	data := encodeU32List([]uint32{state, 0})
	s.tr.SetProperty(hot.XWindow, s.atoms.get("WM_STATE"), s.atoms.get("WM_STATE"), 32, data)
}

func (s *Server) writeNetWMState(hot *ClientHot) {
	var atoms []transport.Atom
	add := func(name string) { atoms = append(atoms, s.atoms.get(name)) }
	if hot.Fullscreen {
		add("_NET_WM_STATE_FULLSCREEN")
	}
	if hot.Above {
		add("_NET_WM_STATE_ABOVE")
	}
	if hot.Below {
		add("_NET_WM_STATE_BELOW")
	}
	if hot.Sticky {
		add("_NET_WM_STATE_STICKY")
	}
	if hot.Hidden {
		add("_NET_WM_STATE_HIDDEN")
	}
	if hot.DemandsAttention {
		add("_NET_WM_STATE_DEMANDS_ATTENTION")
	}
	if hot.SkipTaskbar {
		add("_NET_WM_STATE_SKIP_TASKBAR")
	}
	if hot.SkipPager {
		add("_NET_WM_STATE_SKIP_PAGER")
	}
	s.tr.SetProperty(hot.XWindow, s.atoms.get("_NET_WM_STATE"), 4 /*ATOM*/, 32, encodeAtomList(atoms))
}

func (s *Server) writeAllowedActions(hot *ClientHot, cold *ClientCold) {
	var atoms []transport.Atom
	add := func(name string) { atoms = append(atoms, s.atoms.get(name)) }
	fixed := hot.Hints.HasMax && hot.Hints.MaxWidth == hot.Hints.MinWidth && hot.Hints.MaxHeight == hot.Hints.MinHeight
	if !fixed {
		add("_NET_WM_ACTION_MOVE")
	}
	if !hot.Hints.HasMax || hot.Hints.MaxWidth != hot.Hints.MinWidth || hot.Hints.MaxHeight != hot.Hints.MinHeight {
		add("_NET_WM_ACTION_RESIZE")
	}
	if !hot.Hints.HasMax || hot.Hints.MaxWidth == 0 || hot.Hints.MaxWidth > hot.Hints.MinWidth {
		add("_NET_WM_ACTION_MAXIMIZE_HORZ")
	}
	if !hot.Hints.HasMax || hot.Hints.MaxHeight == 0 || hot.Hints.MaxHeight > hot.Hints.MinHeight {
		add("_NET_WM_ACTION_MAXIMIZE_VERT")
	}
	add("_NET_WM_ACTION_FULLSCREEN")
	if cold.Protocols&ProtoDeleteWindow != 0 {
		add("_NET_WM_ACTION_CLOSE")
	}
	s.tr.SetProperty(hot.XWindow, s.atoms.get("_NET_WM_ALLOWED_ACTIONS"), 4, 32, encodeAtomList(atoms))
}

func (s *Server) writeFrameExtents(hot *ClientHot) {
	e := frameExtents(s.cfg.Theme)
	if hot.Fullscreen {
		e = extentsPx{}
	}
	data := encodeU32List([]uint32{uint32(e.left), uint32(e.right), uint32(e.top), uint32(e.bottom)})
	s.tr.SetProperty(hot.XWindow, s.atoms.get("_NET_FRAME_EXTENTS"), 4, 32, data)
}

func (s *Server) writeNetWMDesktop(hot *ClientHot) {
	v := hot.Desktop
	if hot.Sticky {
		v = desktopSticky
	}
	s.tr.SetProperty(hot.XWindow, s.atoms.get("_NET_WM_DESKTOP"), 4, 32, encodeU32(v))
}

func (s *Server) commitRoot() {
	if s.root.Dirty == 0 {
		return
	}
	if s.root.Dirty&RootDirtySupported != 0 {
		s.writeSupported()
	}
	if s.root.Dirty&RootDirtyNumberDesktops != 0 {
		s.tr.SetProperty(s.root.Window, s.atoms.get("_NET_NUMBER_OF_DESKTOPS"), 4, 32, encodeU32(uint32(s.root.DesktopCount)))
	}
	if s.root.Dirty&RootDirtyCurrentDesktop != 0 {
		s.tr.SetProperty(s.root.Window, s.atoms.get("_NET_CURRENT_DESKTOP"), 4, 32, encodeU32(uint32(s.root.CurrentDesktop)))
	}
	if s.root.Dirty&RootDirtyDesktopNames != 0 {
		s.tr.SetProperty(s.root.Window, s.atoms.get("_NET_DESKTOP_NAMES"), s.atoms.get("UTF8_STRING"), 8, encodeNULList(s.root.DesktopNames))
	}
	if s.root.Dirty&RootDirtyWorkarea != 0 {
		s.recomputeWorkarea()
		data := make([]uint32, 0, 4*s.root.DesktopCount)
		for _, r := range s.root.Workarea {
			data = append(data, uint32(r.X), uint32(r.Y), uint32(r.Width), uint32(r.Height))
		}
		s.tr.SetProperty(s.root.Window, s.atoms.get("_NET_WORKAREA"), 4, 32, encodeU32List(data))
	}
	if s.root.Dirty&RootDirtyClientList != 0 {
		s.tr.SetProperty(s.root.Window, s.atoms.get("_NET_CLIENT_LIST"), 33 /*WINDOW*/, 32, encodeHandleWindows(s, s.root.ClientList))
	}
	if s.root.Dirty&RootDirtyClientListStacking != 0 {
		s.tr.SetProperty(s.root.Window, s.atoms.get("_NET_CLIENT_LIST_STACKING"), 33, 32, encodeHandleWindows(s, s.globalOrder()))
	}
	if s.root.Dirty&RootDirtyActiveWindow != 0 {
		if s.root.ActiveWindow.IsValid() {
			if hot := s.clients.Hot(s.root.ActiveWindow); hot != nil {
				s.tr.SetProperty(s.root.Window, s.atoms.get("_NET_ACTIVE_WINDOW"), 33, 32, encodeU32(uint32(hot.XWindow)))
			}
		} else {
			s.tr.DeleteProperty(s.root.Window, s.atoms.get("_NET_ACTIVE_WINDOW"))
		}
	}
	if s.root.Dirty&RootDirtyShowingDesktop != 0 {
		v := uint32(0)
		if s.root.ShowingDesktop {
			v = 1
		}
		s.tr.SetProperty(s.root.Window, s.atoms.get("_NET_SHOWING_DESKTOP"), 4, 32, encodeU32(v))
	}
}

func (s *Server) writeSupported() {
	names := []string{
		"_NET_CURRENT_DESKTOP", "_NET_NUMBER_OF_DESKTOPS", "_NET_ACTIVE_WINDOW",
		"_NET_CLIENT_LIST", "_NET_CLIENT_LIST_STACKING", "_NET_WM_STATE",
		"_NET_WM_STATE_FULLSCREEN", "_NET_WM_STATE_ABOVE", "_NET_WM_STATE_BELOW",
		"_NET_WM_STATE_STICKY", "_NET_WM_STATE_HIDDEN", "_NET_WM_STATE_DEMANDS_ATTENTION",
		"_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER",
		"_NET_WM_DESKTOP", "_NET_WM_STRUT_PARTIAL", "_NET_WORKAREA", "_NET_FRAME_EXTENTS",
	}
	atoms := make([]transport.Atom, len(names))
	for i, n := range names {
		atoms[i] = s.atoms.get(n)
	}
	s.tr.SetProperty(s.root.Window, s.atoms.get("_NET_SUPPORTED"), 4, 32, encodeAtomList(atoms))
}

// recomputeWorkarea subtracts every mapped client's strut from the full
// screen rectangle for each desktop.
func (s *Server) recomputeWorkarea() {
	screen := s.tr.RootGeometry()
	full := transport.Rect{Width: int32(screen.Width), Height: int32(screen.Height)}
	for d := 0; d < s.root.DesktopCount; d++ {
		area := full
		s.clients.ForEach(func(h handle.Handle, hot *ClientHot, cold *ClientCold) {
			if hot.State != StateMapped {
				return
			}
			if cold.Strut == (transport.Rect{}) {
				return
			}
			if int(hot.Desktop) != d && !hot.Sticky {
				return
			}
			area.X += cold.Strut.X
			area.Y += cold.Strut.Y
			area.Width -= cold.Strut.X + cold.Strut.Width
			area.Height -= cold.Strut.Y + cold.Strut.Height
		})
		s.root.Workarea[d] = area
	}
}

func startupPublishRootIdentity(s *Server) error {
	check, err := s.tr.CreateWindow(s.root.Window, transport.Geometry{Width: 1, Height: 1})
	if err != nil {
		return newError(KindFatal, "startupPublishRootIdentity", err)
	}
	s.root.SupportingWMCheck = check
	wmCheck := encodeU32(uint32(check))
	s.tr.SetProperty(s.root.Window, s.atoms.get("_NET_SUPPORTING_WM_CHECK"), 33, 32, wmCheck)
	s.tr.SetProperty(check, s.atoms.get("_NET_SUPPORTING_WM_CHECK"), 33, 32, wmCheck)
	s.tr.SetProperty(check, s.atoms.get("_NET_WM_NAME"), s.atoms.get("UTF8_STRING"), 8, []byte("hxm"))
	return nil
}

// --- wire-format encoders --------------------------------------------------

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func encodeU32List(vs []uint32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return b
}

func encodeAtomList(as []transport.Atom) []byte {
	vs := make([]uint32, len(as))
	for i, a := range as {
		vs[i] = uint32(a)
	}
	return encodeU32List(vs)
}

func encodeHandleWindows(s *Server, hs []handle.Handle) []byte {
	vs := make([]uint32, 0, len(hs))
	for _, h := range hs {
		if hot := s.clients.Hot(h); hot != nil {
			vs = append(vs, uint32(hot.XWindow))
		}
	}
	return encodeU32List(vs)
}

func encodeNULList(names []string) []byte {
	var out []byte
	for _, n := range names {
		out = append(out, []byte(n)...)
		out = append(out, 0)
	}
	return out
}
