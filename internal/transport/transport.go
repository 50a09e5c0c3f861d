// Package transport defines the abstract display-server connection the core
// window manager is built against. The core never imports a
// concrete X11 binding: it only depends on this interface, so the same core
// drives a real connection or the fake used by internal/testutil.
package transport

// WindowID identifies a window on the display server.
type WindowID uint32

// None is the reserved WindowID meaning "no window".
const None WindowID = 0

// Atom identifies an interned property/type name.
type Atom uint32

// Sequence is the monotonic per-request counter a Transport assigns to every
// submitted request; cookiejar.Jar keys outstanding replies by this value.
type Sequence uint64

// Time is a server timestamp (e.g. from the most recent input event),
// matching X11's CurrentTime semantics when zero.
type Time uint32

// Rect is an axis-aligned pixel rectangle, used for Expose/Damage unions.
type Rect struct {
	X, Y, Width, Height int32
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	if r == (Rect{}) {
		return o
	}
	if o == (Rect{}) {
		return r
	}
	x0 := min32(r.X, o.X)
	y0 := min32(r.Y, o.Y)
	x1 := max32(r.X+r.Width, o.X+o.Width)
	y1 := max32(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// Geometry is a window's position and size plus border width, the unit the
// stacking and lifecycle state machines reason about.
type Geometry struct {
	X, Y          int32
	Width, Height uint32
	BorderWidth   uint32
}

// EventKind discriminates the Event union. The core dispatches on a tagged
// kind rather than a Go interface-per-kind, symmetrically with how reply
// handlers are dispatched.
type EventKind int

const (
	EventNone EventKind = iota
	EventMapRequest
	EventUnmapNotify
	EventDestroyNotify
	EventConfigureRequest
	EventConfigureNotify
	EventPropertyNotify
	EventMotionNotify
	EventExpose
	EventDamage
	EventReparentNotify
	EventKeyPress
	EventButtonPress
	EventButtonRelease
	EventClientMessage
	EventColormapNotify
)

// ConfigureMask bits select which Geometry fields a ConfigureRequest or a
// ConfigureWindow request actually carries.
type ConfigureMask uint16

const (
	ConfigX ConfigureMask = 1 << iota
	ConfigY
	ConfigWidth
	ConfigHeight
	ConfigBorderWidth
	ConfigSibling
	ConfigStackMode
)

// StackMode mirrors X11's stack-mode values used in configure requests.
type StackMode int

const (
	StackAbove StackMode = iota
	StackBelow
)

// Event is a flattened representation of every inbound event kind the core
// consumes. Only the fields relevant to Kind are populated; this mirrors the
// flat generic-event structs used by real X11 client libraries rather than a
// Go sum type, keeping per-event allocation to zero.
type Event struct {
	Kind     EventKind
	Seq      Sequence
	Window   WindowID // the window the event concerns
	Parent   WindowID // ReparentNotify
	Above    WindowID // ConfigureNotify/Request sibling
	Geometry Geometry
	Mask      ConfigureMask
	StackMode StackMode
	Atom      Atom // PropertyNotify
	Deleted  bool // PropertyNotify: property was deleted vs changed
	Region   Rect // Expose/Damage
	KeyCode  uint32
	Button   uint32
	Modifiers uint32
	RootX, RootY int32
	Time     Time
	// ClientMessage payload: Atom carries the message type, Data32 the data.
	Data32 [5]uint32
	Format int // ClientMessage format (8/16/32)
}

// ErrorKind enumerates the protocol-level errors the core tolerates as
// soft failures.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorBadWindow
	ErrorBadMatch
	ErrorBadDrawable
	ErrorBadValue
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorBadWindow:
		return "BadWindow"
	case ErrorBadMatch:
		return "BadMatch"
	case ErrorBadDrawable:
		return "BadDrawable"
	case ErrorBadValue:
		return "BadValue"
	default:
		return "NoError"
	}
}

// XError is a protocol-level error delivered asynchronously for a request
// sequence, as opposed to a reply.
type XError struct {
	Kind ErrorKind
	Seq  Sequence
}

func (e *XError) Error() string { return "transport: " + e.Kind.String() }

// PropertyReply is the reply payload for a GetProperty request.
type PropertyReply struct {
	Type   Atom
	Format int // 8, 16, or 32
	Data   []byte
}

// Reply is the generic async reply payload handed to a cookiejar handler.
// Property is set for GetProperty replies; simple acknowledgement requests
// (e.g. GrabPointer) populate only Seq.
type Reply struct {
	Seq      Sequence
	Property *PropertyReply
}

// SaveSetOp selects whether AddDeleteSaveSet adds or removes a window.
type SaveSetOp int

const (
	SaveSetInsert SaveSetOp = iota
	SaveSetDelete
)

// RevertTo mirrors X11's SetInputFocus revert-to semantics.
type RevertTo int

const (
	RevertToPointerRoot RevertTo = iota
	RevertToRoot
	RevertToParent
)

// GrabMode controls pointer/keyboard grabs (synchronous vs asynchronous
// replay); the core only ever uses asynchronous grabs, but the field exists
// for completeness of the abstract contract.
type GrabMode int

const (
	GrabModeAsync GrabMode = iota
	GrabModeSync
)

// Transport is the abstract display-server connection. All
// request-submission methods that expect a reply return the assigned
// Sequence; the core registers a cookiejar handler against it.
// Methods with no reply return only an error (submission failure, e.g. the
// connection is gone).
type Transport interface {
	// FD returns a file descriptor that becomes readable when events or
	// replies are available to Poll/PollReply.
	FD() int

	// PollEvent returns the next queued inbound event, or ok=false if none
	// is currently available. Never blocks.
	PollEvent() (ev Event, ok bool)

	// PollReply returns a reply or error for seq if the server has answered,
	// ok=false otherwise. Never blocks.
	PollReply(seq Sequence) (reply *Reply, xerr *XError, ok bool)

	// Flush writes any buffered outbound requests. Returns would-block=true
	// if the write could not complete without blocking; the caller must retry on a later tick.
	Flush() (wouldBlock bool, err error)

	CreateWindow(parent WindowID, geom Geometry) (WindowID, error)
	DestroyWindow(w WindowID) error
	MapWindow(w WindowID) error
	UnmapWindow(w WindowID) error
	ReparentWindow(w, newParent WindowID, x, y int32) error
	ConfigureWindow(w WindowID, mask ConfigureMask, geom Geometry, sibling WindowID, mode StackMode) error
	SendSyntheticConfigureNotify(w WindowID, geom Geometry) error

	GetProperty(w WindowID, property Atom, propType Atom, longOffset, longLength uint32) (Sequence, error)
	SetProperty(w WindowID, property Atom, propType Atom, format int, data []byte) error
	DeleteProperty(w WindowID, property Atom) error

	GrabPointer(grabWindow WindowID, mode GrabMode) error
	UngrabPointer() error
	GrabKeyboard(grabWindow WindowID, mode GrabMode) error
	UngrabKeyboard() error
	GrabKey(w WindowID, keycode uint32, modifiers uint32) error
	UngrabKey(w WindowID, keycode uint32, modifiers uint32) error
	GrabButton(w WindowID, button uint32, modifiers uint32) error
	UngrabButton(w WindowID, button uint32, modifiers uint32) error

	SendClientMessage(w WindowID, msgType Atom, format int, data [5]uint32) error
	WarpPointer(dst WindowID, x, y int32) error
	InstallColormap(w WindowID) error
	KillClient(w WindowID) error
	SetInputFocus(w WindowID, revert RevertTo, t Time) error
	AddDeleteSaveSet(op SaveSetOp, w WindowID) error

	// InternAtom resolves (and, if needed, creates) the atom for name.
	InternAtom(name string) (Atom, error)
	AtomName(a Atom) string

	// AcquireSelection attempts to take ownership of the window-manager
	// selection for screen, returning false if another client already owns
	// it.
	AcquireSelection(owner WindowID) (bool, error)

	// ProbeExtension reports whether the named extension (e.g. "RandR",
	// "Damage") is present. Startup-only: this is the one permitted
	// synchronous round-trip.
	ProbeExtension(name string) (bool, error)

	RootWindow() WindowID

	// RootGeometry returns the root window's current geometry (the screen
	// rectangle; RandR changes surface as a new value on later calls).
	RootGeometry() Geometry
}
