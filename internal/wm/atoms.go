package wm

import "github.com/jopamo/hxm/internal/transport"

// atomNames lists every atom the core interns at startup. Property
// ingestion, conformance properties, and client messages all index into the
// resulting table by name rather than re-interning per use.
var atomNames = []string{
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
	"WM_STATE",
	"WM_DELETE_WINDOW",
	"WM_TAKE_FOCUS",
	"WM_CHANGE_STATE",

	"_NET_SUPPORTING_WM_CHECK",
	"_NET_SUPPORTED",
	"_NET_NUMBER_OF_DESKTOPS",
	"_NET_CURRENT_DESKTOP",
	"_NET_DESKTOP_NAMES",
	"_NET_WORKAREA",
	"_NET_CLIENT_LIST",
	"_NET_CLIENT_LIST_STACKING",
	"_NET_ACTIVE_WINDOW",
	"_NET_SHOWING_DESKTOP",
	"_NET_WM_ALLOWED_ACTIONS",
	"_NET_FRAME_EXTENTS",
	"_NET_CLOSE_WINDOW",

	"_NET_WM_STATE_FULLSCREEN",
	"_NET_WM_STATE_ABOVE",
	"_NET_WM_STATE_BELOW",
	"_NET_WM_STATE_STICKY",
	"_NET_WM_STATE_HIDDEN",
	"_NET_WM_STATE_DEMANDS_ATTENTION",
	"_NET_WM_STATE_SKIP_TASKBAR",
	"_NET_WM_STATE_SKIP_PAGER",

	"_NET_WM_ACTION_MOVE",
	"_NET_WM_ACTION_RESIZE",
	"_NET_WM_ACTION_MAXIMIZE_HORZ",
	"_NET_WM_ACTION_MAXIMIZE_VERT",
	"_NET_WM_ACTION_FULLSCREEN",
	"_NET_WM_ACTION_CLOSE",

	"_NET_WM_WINDOW_TYPE_DESKTOP",
	"_NET_WM_WINDOW_TYPE_DOCK",
	"_NET_WM_WINDOW_TYPE_DIALOG",
	"_NET_WM_WINDOW_TYPE_NOTIFICATION",
	"_NET_WM_WINDOW_TYPE_MENU",
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
	"_NET_WM_WINDOW_TYPE_POPUP_MENU",
	"_NET_WM_WINDOW_TYPE_TOOLTIP",
	"_NET_WM_WINDOW_TYPE_COMBO",
	"_NET_WM_WINDOW_TYPE_DND",
	"_NET_WM_WINDOW_TYPE_NORMAL",

	// Property value types, used to validate GetProperty replies.
	"STRING",
	"UTF8_STRING",
	"CARDINAL",
	"ATOM",
	"WINDOW",
	"WM_SIZE_HINTS",
}

// atomTable resolves the well-known atoms used throughout the core, keyed by
// name so call sites read as atoms.byName("WM_STATE") instead of opaque
// indices.
type atomTable struct {
	byName map[string]transport.Atom
	byAtom map[transport.Atom]string
}

func internAtoms(tr transport.Transport) (*atomTable, error) {
	t := &atomTable{
		byName: make(map[string]transport.Atom, len(atomNames)),
		byAtom: make(map[transport.Atom]string, len(atomNames)),
	}
	for _, name := range atomNames {
		a, err := tr.InternAtom(name)
		if err != nil {
			return nil, newError(KindFatal, "internAtoms", err)
		}
		t.byName[name] = a
		t.byAtom[a] = name
	}
	return t, nil
}

func (t *atomTable) get(name string) transport.Atom { return t.byName[name] }

func (t *atomTable) name(a transport.Atom) string {
	if n, ok := t.byAtom[a]; ok {
		return n
	}
	return ""
}
