package wm

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/transport"
)

const (
	maxTitleBytes = 4096
	maxIconDim    = 4096
)

// propertyEncoding is the value type and format a property's replies must
// arrive with. A reply that disagrees is rejected wholesale.
type propertyEncoding struct {
	typeNames []string
	format    int
}

var propertyEncodings = map[string]propertyEncoding{
	"WM_NAME":               {typeNames: []string{"STRING", "UTF8_STRING"}, format: 8},
	"_NET_WM_NAME":          {typeNames: []string{"UTF8_STRING"}, format: 8},
	"WM_CLASS":              {typeNames: []string{"STRING"}, format: 8},
	"WM_NORMAL_HINTS":       {typeNames: []string{"WM_SIZE_HINTS"}, format: 32},
	"WM_HINTS":              {typeNames: []string{"WM_HINTS"}, format: 32},
	"WM_PROTOCOLS":          {typeNames: []string{"ATOM"}, format: 32},
	"WM_TRANSIENT_FOR":      {typeNames: []string{"WINDOW"}, format: 32},
	"_NET_WM_WINDOW_TYPE":   {typeNames: []string{"ATOM"}, format: 32},
	"_NET_WM_STATE":         {typeNames: []string{"ATOM"}, format: 32},
	"_NET_WM_DESKTOP":       {typeNames: []string{"CARDINAL"}, format: 32},
	"_NET_WM_STRUT_PARTIAL": {typeNames: []string{"CARDINAL"}, format: 32},
	"_NET_WM_ICON":          {typeNames: []string{"CARDINAL"}, format: 32},
	"WM_COLORMAP_WINDOWS":   {typeNames: []string{"WINDOW"}, format: 32},
	"_GTK_FRAME_EXTENTS":    {typeNames: []string{"CARDINAL"}, format: 32},
}

// propertyReplyValid checks a reply's declared type and format against the
// atom's expected encoding. Clients do ship junk here; a mismatched reply
// must leave the previous value untouched.
func (s *Server) propertyReplyValid(atomName string, prop *transport.PropertyReply) bool {
	enc, ok := propertyEncodings[atomName]
	if !ok {
		return true
	}
	if prop.Format != enc.format {
		return false
	}
	for _, tn := range enc.typeNames {
		if prop.Type == s.atoms.get(tn) {
			return true
		}
	}
	return false
}

// ingestProperty validates and applies one property reply. Replies whose
// declared type/format disagree with the atom's documented encoding, whose
// byte length is not a multiple of the expected unit size, or whose
// dimensions exceed a sanity bound are rejected and the previous value
// survives unchanged.
func (s *Server) ingestProperty(h handle.Handle, atomName string, prop *transport.PropertyReply) {
	cold := s.clients.Cold(h)
	hot := s.clients.Hot(h)
	if cold == nil || hot == nil || prop == nil {
		return
	}
	if !s.propertyReplyValid(atomName, prop) {
		return
	}

	switch atomName {
	case "WM_NAME":
		if hot.StickyTitle {
			return // _NET_WM_NAME already supplied a UTF-8 title
		}
		if title, ok := decodeText(prop.Data); ok {
			cold.Title = title
			hot.Dirty |= DirtyTitle
			s.buckets.markDirty(h)
		}

	case "_NET_WM_NAME":
		if !utf8.Valid(prop.Data) {
			return
		}
		cold.Title = truncateBytes(string(prop.Data), maxTitleBytes)
		hot.StickyTitle = true
		hot.Dirty |= DirtyTitle
		s.buckets.markDirty(h)

	case "WM_CLASS":
		inst, class, ok := decodeWMClass(prop.Data)
		if !ok {
			return
		}
		cold.Instance, cold.Class = inst, class

	case "WM_NORMAL_HINTS":
		hints, ok := decodeSizeHints(prop.Data)
		if !ok {
			return
		}
		hot.Hints = hints
		hot.Dirty |= DirtyHints
		s.buckets.markDirty(h)

	case "WM_HINTS":
		urgency, input, initialIconic, ok := decodeWMHints(prop.Data)
		if !ok {
			return
		}
		hot.CanFocus = input
		hot.DemandsAttention = hot.DemandsAttention || urgency
		if initialIconic && hot.State == StateNew {
			// An initial state of Iconic is not acted on: visibility sync
			// maps the window per the desktop predicate like any other.
		}
		hot.Dirty |= DirtyState
		s.buckets.markDirty(h)

	case "WM_PROTOCOLS":
		atoms, ok := decodeAtomList(prop.Data)
		if !ok {
			return
		}
		var flags ProtocolFlag
		del := s.atoms.get("WM_DELETE_WINDOW")
		take := s.atoms.get("WM_TAKE_FOCUS")
		for _, a := range atoms {
			switch a {
			case del:
				flags |= ProtoDeleteWindow
			case take:
				flags |= ProtoTakeFocus
			}
		}
		cold.Protocols = flags

	case "WM_TRANSIENT_FOR":
		ids, ok := decodeWindowList(prop.Data)
		if !ok || len(ids) == 0 {
			cold.TransientForRaw = transport.None
			hot.TransientFor = handle.Invalid
			return
		}
		if ids[0] == hot.XWindow {
			cold.TransientForRaw = transport.None
			hot.TransientFor = handle.Invalid
			return
		}
		cold.TransientForRaw = ids[0]
		s.resolveTransient(h, hot)

	case "_NET_WM_WINDOW_TYPE":
		atoms, ok := decodeAtomList(prop.Data)
		if !ok || len(atoms) == 0 {
			return
		}
		hot.Type = s.classifyWindowType(atoms[0])

	case "_NET_WM_STATE":
		atoms, ok := decodeAtomList(prop.Data)
		if !ok {
			return
		}
		s.applyInitialState(h, hot, atoms)

	case "_NET_WM_DESKTOP":
		v, ok := decodeCardinal(prop.Data)
		if !ok {
			return
		}
		if v == desktopSticky {
			hot.Sticky = true
		} else if int(v) >= s.root.DesktopCount {
			hot.Desktop = uint32(s.root.DesktopCount - 1)
			hot.DesktopExplicit = true
		} else {
			hot.Desktop = v
			hot.DesktopExplicit = true
		}

	case "_NET_WM_STRUT_PARTIAL":
		if len(prop.Data)%4 != 0 || len(prop.Data) < 16 {
			return
		}
		left := decodeU32At(prop.Data, 0)
		right := decodeU32At(prop.Data, 1)
		top := decodeU32At(prop.Data, 2)
		bottom := decodeU32At(prop.Data, 3)
		cold.Strut = transport.Rect{X: int32(left), Y: int32(top), Width: int32(right), Height: int32(bottom)}
		hot.Dirty |= DirtyStrut
		s.buckets.markDirty(h)
		s.root.Dirty |= RootDirtyWorkarea

	case "_NET_WM_ICON":
		if len(prop.Data) < 8 || len(prop.Data)%4 != 0 {
			return
		}
		w := decodeU32At(prop.Data, 0)
		ht := decodeU32At(prop.Data, 1)
		if w > maxIconDim || ht > maxIconDim {
			return
		}
		cold.IconWidth, cold.IconHeight = w, ht

	case "WM_COLORMAP_WINDOWS":
		ids, ok := decodeWindowList(prop.Data)
		if !ok {
			return
		}
		cold.ColormapWindows = ids

	case "_GTK_FRAME_EXTENTS":
		// Informational only in this core; validated but not consumed
		// beyond acceptance (no decoration subsystem lives here).
		if len(prop.Data)%4 != 0 {
			return
		}
	}
}

// applyInitialState seeds state flags from an adoption-time _NET_WM_STATE
// reply (as opposed to a live client-message toggle, see clientmessage.go).
func (s *Server) applyInitialState(h handle.Handle, hot *ClientHot, atoms []transport.Atom) {
	fullscreen := s.atoms.get("_NET_WM_STATE_FULLSCREEN")
	above := s.atoms.get("_NET_WM_STATE_ABOVE")
	below := s.atoms.get("_NET_WM_STATE_BELOW")
	sticky := s.atoms.get("_NET_WM_STATE_STICKY")
	hidden := s.atoms.get("_NET_WM_STATE_HIDDEN")
	demands := s.atoms.get("_NET_WM_STATE_DEMANDS_ATTENTION")
	skipT := s.atoms.get("_NET_WM_STATE_SKIP_TASKBAR")
	skipP := s.atoms.get("_NET_WM_STATE_SKIP_PAGER")
	for _, a := range atoms {
		switch a {
		case fullscreen:
			s.setFullscreen(h, hot, true)
		case above:
			hot.Above = true
		case below:
			hot.Below = true
		case sticky:
			hot.Sticky = true
		case hidden:
			hot.Hidden = true
		case demands:
			hot.DemandsAttention = true
		case skipT:
			hot.SkipTaskbar = true
		case skipP:
			hot.SkipPager = true
		}
	}
	hot.Dirty |= DirtyState
	s.buckets.markDirty(h)
}

// classifyWindowType maps a _NET_WM_WINDOW_TYPE atom to WindowType.
func (s *Server) classifyWindowType(a transport.Atom) WindowType {
	switch a {
	case s.atoms.get("_NET_WM_WINDOW_TYPE_DESKTOP"):
		return TypeDesktop
	case s.atoms.get("_NET_WM_WINDOW_TYPE_DOCK"):
		return TypeDock
	case s.atoms.get("_NET_WM_WINDOW_TYPE_DIALOG"):
		return TypeDialog
	case s.atoms.get("_NET_WM_WINDOW_TYPE_NOTIFICATION"):
		return TypeNotification
	case s.atoms.get("_NET_WM_WINDOW_TYPE_MENU"):
		return TypeMenu
	case s.atoms.get("_NET_WM_WINDOW_TYPE_DROPDOWN_MENU"):
		return TypeDropdownMenu
	case s.atoms.get("_NET_WM_WINDOW_TYPE_POPUP_MENU"):
		return TypePopupMenu
	case s.atoms.get("_NET_WM_WINDOW_TYPE_TOOLTIP"):
		return TypeTooltip
	case s.atoms.get("_NET_WM_WINDOW_TYPE_COMBO"):
		return TypeCombo
	case s.atoms.get("_NET_WM_WINDOW_TYPE_DND"):
		return TypeDnd
	default:
		return TypeNormal
	}
}

// --- wire-format decoders -------------------------------------------------

func decodeText(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", true
	}
	s := truncateBytes(string(data), maxTitleBytes)
	return s, true
}

func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	b := []byte(s)[:max]
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	return string(b)
}

func decodeWMClass(data []byte) (instance, class string, ok bool) {
	parts := splitNUL(data)
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func splitNUL(data []byte) []string {
	var out []string
	start := 0
	for i, b := range data {
		if b == 0 {
			out = append(out, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		out = append(out, string(data[start:]))
	}
	return out
}

// decodeSizeHints reads a WM_NORMAL_HINTS CARDINAL array. The real wire
// layout carries a flags word and then min/max/inc/aspect fields; this
// decoder reads the fixed subset the core constrains resize against.
func decodeSizeHints(data []byte) (SizeHints, bool) {
	if len(data)%4 != 0 || len(data) < 4 {
		return SizeHints{}, false
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = decodeU32At(data, i)
	}
	var h SizeHints
	flags := words[0]
	const (
		flagMinSize  = 1 << 4
		flagMaxSize  = 1 << 5
		flagResizeInc = 1 << 6
		flagAspect   = 1 << 7
	)
	idx := 1
	get := func() int32 {
		if idx >= len(words) {
			return 0
		}
		v := int32(words[idx])
		idx++
		return v
	}
	if flags&flagMinSize != 0 {
		h.HasMin = true
		h.MinWidth, h.MinHeight = get(), get()
	}
	if flags&flagMaxSize != 0 {
		h.HasMax = true
		h.MaxWidth, h.MaxHeight = get(), get()
	}
	if flags&flagResizeInc != 0 {
		h.HasInc = true
		h.WidthInc, h.HeightInc = get(), get()
	}
	if flags&flagAspect != 0 {
		h.HasAspect = true
		minN, minD := get(), get()
		maxN, maxD := get(), get()
		if minD != 0 {
			h.MinAspect = float64(minN) / float64(minD)
		}
		if maxD != 0 {
			h.MaxAspect = float64(maxN) / float64(maxD)
		}
	}
	return h, true
}

func decodeWMHints(data []byte) (urgency, input, initialIconic, ok bool) {
	if len(data)%4 != 0 || len(data) < 4 {
		return false, true, false, false
	}
	flags := decodeU32At(data, 0)
	const (
		flagInput        = 1 << 0
		flagInitialState = 1 << 1
		flagUrgency      = 1 << 8
	)
	input = true
	if flags&flagInput != 0 && len(data) >= 8 {
		input = decodeU32At(data, 1) != 0
	}
	if flags&flagInitialState != 0 && len(data) >= 12 {
		const iconicState = 3
		initialIconic = decodeU32At(data, 2) == iconicState
	}
	urgency = flags&flagUrgency != 0
	return urgency, input, initialIconic, true
}

func decodeAtomList(data []byte) ([]transport.Atom, bool) {
	if len(data)%4 != 0 {
		return nil, false
	}
	out := make([]transport.Atom, len(data)/4)
	for i := range out {
		out[i] = transport.Atom(decodeU32At(data, i))
	}
	return out, true
}

func decodeWindowList(data []byte) ([]transport.WindowID, bool) {
	if len(data)%4 != 0 {
		return nil, false
	}
	out := make([]transport.WindowID, len(data)/4)
	for i := range out {
		out[i] = transport.WindowID(decodeU32At(data, i))
	}
	return out, true
}

func decodeCardinal(data []byte) (uint32, bool) {
	if len(data) < 4 {
		return 0, false
	}
	return decodeU32At(data, 0), true
}

func decodeU32At(data []byte, word int) uint32 {
	off := word * 4
	if off+4 > len(data) {
		return 0
	}
	return binary.LittleEndian.Uint32(data[off : off+4])
}
