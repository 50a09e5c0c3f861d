// Package wm implements the window-management core: the tick scheduler,
// client lifecycle state machine, stacking and focus engines, conformance
// property commit, and the interaction state machine. It reaches the display
// only through internal/transport's abstract connection, uses
// internal/cookiejar for asynchronous replies and internal/handle for the
// generational client store, and also draws on internal/config,
// internal/keybind, internal/render and internal/statestore.
package wm

import (
	"log/slog"
	"sync/atomic"

	"github.com/jopamo/hxm/internal/config"
	"github.com/jopamo/hxm/internal/cookiejar"
	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/keybind"
	"github.com/jopamo/hxm/internal/render"
	"github.com/jopamo/hxm/internal/statestore"
	"github.com/jopamo/hxm/internal/transport"
)

// ClientState is the per-client lifecycle state.
type ClientState int

const (
	StateNew ClientState = iota
	StateReady
	StateMapped
	StateUnmapped
	StateUnmanaging
	StateDestroyed
)

func (s ClientState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateReady:
		return "ready"
	case StateMapped:
		return "mapped"
	case StateUnmapped:
		return "unmapped"
	case StateUnmanaging:
		return "unmanaging"
	case StateDestroyed:
		return "destroyed"
	default:
		return "invalid"
	}
}

// Layer is a stacking band, bottom to top.
type Layer int

const (
	LayerDesktop Layer = iota
	LayerBelow
	LayerNormal
	LayerAbove
	LayerFullscreen
	LayerOverlay
	layerCount
)

// WindowType classifies a client for focus, layer, and decoration policy.
type WindowType int

const (
	TypeNormal WindowType = iota
	TypeDialog
	TypeDock
	TypeDesktop
	TypeNotification
	TypeMenu
	TypeDropdownMenu
	TypePopupMenu
	TypeTooltip
	TypeCombo
	TypeDnd
)

// DirtyBit flags a deferred commit action on a client.
type DirtyBit uint16

const (
	DirtyGeom DirtyBit = 1 << iota
	DirtyStack
	DirtyFocus
	DirtyTitle
	DirtyHints
	DirtyState
	DirtyFrameStyle
	DirtyStrut
)

// ProtocolFlag is a bitset over WM_PROTOCOLS entries the core cares about.
type ProtocolFlag uint8

const (
	ProtoDeleteWindow ProtocolFlag = 1 << iota
	ProtoTakeFocus
)

const (
	desktopSticky = 0xFFFFFFFF
)

// SizeHints mirrors the fields of ICCCM WM_NORMAL_HINTS the geometry
// reconciliation step constrains resize against.
type SizeHints struct {
	MinWidth, MinHeight   int32
	MaxWidth, MaxHeight   int32
	WidthInc, HeightInc   int32
	MinAspect, MaxAspect  float64
	HasAspect             bool
	HasMin, HasMax        bool
	HasInc                bool
}

// SavedState preserves pre-fullscreen layer/geometry/decoration so the
// fullscreen round-trip scenario is bit-exact.
type SavedState struct {
	Valid       bool
	Layer       Layer
	Geometry    transport.Geometry
	Decorated   bool
}

// ClientHot holds the fields touched every tick: state,
// geometry, stacking position, dirty bits, and the handle-based
// cross-references that replace the source's raw pointer graph.
type ClientHot struct {
	XWindow WindowIDOrInvalid
	Frame   WindowIDOrInvalid

	State     ClientState
	ManageAborted bool

	Layer       Layer
	StackIndex  int

	Current transport.Geometry
	Desired transport.Geometry

	Hints SizeHints

	Dirty DirtyBit

	Type WindowType

	Desktop uint32 // or desktopSticky
	// DesktopExplicit marks a desktop the client itself asked for
	// (_NET_WM_DESKTOP property or client message); placement and
	// remembered-placement lookups must not override it.
	DesktopExplicit bool

	// Focus MRU intrusive doubly-linked list.
	FocusPrev handle.Handle
	FocusNext handle.Handle

	TransientFor handle.Handle
	// Intrusive singly-linked list of transient children sharing this
	// client as their parent.
	TransientChild handle.Handle
	TransientSibling handle.Handle

	PendingReplies int

	IgnoreUnmap int // swallow synthetic UnmapNotify from our own Iconify

	CanFocus      bool
	StickyTitle    bool // _NET_WM_NAME already set; WM_NAME must not overwrite
	Fullscreen    bool
	Saved         SavedState
	Above, Below, Sticky, Hidden, DemandsAttention, SkipTaskbar, SkipPager bool

	UserTime       transport.Time
	FocusOverride  int // -1 unset, 0 never, 1 always, 2 predicate

	FirstMap bool // becomes false after the first MAPPED transition
}

// WindowIDOrInvalid is transport.None-valued when unset; kept as a distinct
// name only for field-level clarity in struct literals.
type WindowIDOrInvalid = transport.WindowID

// ClientCold holds fields touched only on property updates.
type ClientCold struct {
	Title    string
	Instance string
	Class    string

	Protocols ProtocolFlag

	TransientForRaw transport.WindowID // raw id for re-resolution

	Strut transport.Rect

	IconWidth, IconHeight uint32

	ColormapWindows []transport.WindowID
}

// Root is the process-global record: desktops, workarea, focus history,
// and the root-property dirty mask.
type Root struct {
	Window       transport.WindowID
	SupportingWMCheck transport.WindowID

	CurrentDesktop int
	DesktopCount   int
	DesktopNames   []string
	Workarea       []transport.Rect // one per desktop

	ExtensionCaps map[string]bool

	Dirty RootDirtyBit

	FocusHead handle.Handle
	FocusTail handle.Handle
	ActiveWindow handle.Handle

	ShowingDesktop bool

	// ClientList is creation order; ClientListStacking is derived fresh
	// from the layers each commit.
	ClientList []handle.Handle
}

// RootDirtyBit flags a deferred root-property commit.
type RootDirtyBit uint16

const (
	RootDirtySupported RootDirtyBit = 1 << iota
	RootDirtyNumberDesktops
	RootDirtyCurrentDesktop
	RootDirtyDesktopNames
	RootDirtyWorkarea
	RootDirtyClientList
	RootDirtyClientListStacking
	RootDirtyActiveWindow
	RootDirtyShowingDesktop
)

// InteractionKind names the active input-driven interaction mode.
type InteractionKind int

const (
	InteractionNone InteractionKind = iota
	InteractionMove
	InteractionResize
	InteractionMenu
	InteractionSwitcher
)

// Interaction tracks the single active interaction session, if any.
type Interaction struct {
	Kind   InteractionKind
	Target handle.Handle
	StartX, StartY int32
	OrigGeom transport.Geometry
	// OrigFocus is the window that was active when a switcher session
	// started; cancel restores it.
	OrigFocus handle.Handle
}

// Server is the single owned global-state value the whole core operates
// on. Every method that advances the core takes *Server as its receiver or
// first argument.
type Server struct {
	tr     transport.Transport
	atoms  *atomTable
	log    *slog.Logger
	cfg    config.Config
	cfgPath string
	store  *statestore.Store

	clients *handle.Slotmap[ClientHot, ClientCold]

	windowToClient map[transport.WindowID]handle.Handle
	frameToClient  map[transport.WindowID]handle.Handle

	layers [layerCount][]handle.Handle

	root Root
	jar  *cookiejar.Jar

	keybinds      *keybind.Manager
	escapeKeycode uint32
	ingestCap     int

	renderer render.Renderer
	damage   *render.DamageTracker

	buckets tickBuckets

	interaction Interaction

	pendingFlush bool

	// shutdown/restartFlag/exitFlag/reloadFlag are checked once per Run
	// iteration; RequestExit/RequestRestart/RequestReload are documented as
	// callable from internal/ipc's control-socket goroutine, a different
	// goroutine than the tick loop, so these are atomics rather than plain
	// bools.
	shutdown    atomic.Bool
	restartFlag atomic.Bool
	exitFlag    atomic.Bool
	reloadFlag  atomic.Bool

	nextSeqLog uint64
}

// NewServer wires the core's components together.
func NewServer(tr transport.Transport, cfg config.Config, log *slog.Logger, store *statestore.Store) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	atoms, err := internAtoms(tr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		tr:             tr,
		atoms:          atoms,
		log:            log,
		cfg:            cfg,
		store:          store,
		clients:        handle.New[ClientHot, ClientCold](0),
		windowToClient: make(map[transport.WindowID]handle.Handle),
		frameToClient:  make(map[transport.WindowID]handle.Handle),
		jar:            cookiejar.New(),
		damage:         render.NewDamageTracker(),
	}
	s.root = Root{
		Window:         tr.RootWindow(),
		CurrentDesktop: 0,
		DesktopCount:   cfg.DesktopCount,
		DesktopNames:   append([]string(nil), cfg.DesktopNames...),
		Workarea:       make([]transport.Rect, cfg.DesktopCount),
		ExtensionCaps:  make(map[string]bool),
		FocusHead:      handle.Invalid,
		FocusTail:      handle.Invalid,
		ActiveWindow:   handle.Invalid,
		Dirty:          ^RootDirtyBit(0),
	}
	s.ingestCap = cfg.TickIngestCap
	s.jar.SetTimeout(cfg.CookieTimeout.Std())
	s.buckets.reset()
	return s, nil
}
