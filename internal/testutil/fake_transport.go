// Package testutil provides a fake transport.Transport and small fixture
// builders so the core can be driven end-to-end without a real display
// server.
package testutil

import (
	"fmt"
	"sync"

	"github.com/jopamo/hxm/internal/transport"
)

// FakeTransport is an in-memory transport.Transport: requests are recorded
// and replies/errors are injected by the test via QueueReply/QueueError, or
// auto-answered immediately when AutoReply is set.
type FakeTransport struct {
	mu sync.Mutex

	nextSeq   transport.Sequence
	nextXID   transport.WindowID
	root      transport.WindowID
	atoms     map[string]transport.Atom
	atomNames map[transport.Atom]string
	nextAtom  transport.Atom

	events  []transport.Event
	replies map[transport.Sequence]*transport.Reply
	errors  map[transport.Sequence]*transport.XError

	// AutoReply, if set, is called synchronously for every GetProperty
	// request to produce an immediate reply (used by tests that don't care
	// about timeout/ordering behavior).
	AutoReply func(w transport.WindowID, property, propType transport.Atom) (*transport.PropertyReply, *transport.XError)

	Requests []Request

	SelectionOwned    bool
	SelectionOwner    transport.WindowID
	ExtensionPresence map[string]bool

	// ScreenGeom is what RootGeometry reports; tests override it to model
	// RandR-style size changes.
	ScreenGeom transport.Geometry

	FlushWouldBlock bool
}

// Request records one submitted request for assertions in tests.
type Request struct {
	Op   string
	Args []any
}

// NewFakeTransport creates a fake transport with a synthetic root window.
func NewFakeTransport() *FakeTransport {
	ft := &FakeTransport{
		nextSeq:           1,
		nextXID:           100,
		atoms:             map[string]transport.Atom{},
		atomNames:         map[transport.Atom]string{},
		nextAtom:          1,
		replies:           map[transport.Sequence]*transport.Reply{},
		errors:            map[transport.Sequence]*transport.XError{},
		ExtensionPresence: map[string]bool{},
		ScreenGeom:        transport.Geometry{Width: 1280, Height: 800},
	}
	ft.root = ft.allocXID()
	return ft
}

func (ft *FakeTransport) allocXID() transport.WindowID {
	id := ft.nextXID
	ft.nextXID++
	return id
}

func (ft *FakeTransport) record(op string, args ...any) {
	ft.Requests = append(ft.Requests, Request{Op: op, Args: args})
}

func (ft *FakeTransport) nextSequence() transport.Sequence {
	seq := ft.nextSeq
	ft.nextSeq++
	return seq
}

// PushEvent enqueues ev for a future PollEvent call; this is how tests
// drive the core (map requests, destroy notifies, and so on).
func (ft *FakeTransport) PushEvent(ev transport.Event) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.events = append(ft.events, ev)
}

// QueueReply makes seq resolve to reply on the next PollReply call.
func (ft *FakeTransport) QueueReply(seq transport.Sequence, reply *transport.Reply) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.replies[seq] = reply
}

// QueueError makes seq resolve to xerr on the next PollReply call.
func (ft *FakeTransport) QueueError(seq transport.Sequence, xerr *transport.XError) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.errors[seq] = xerr
}

// NewWindow allocates a synthetic client window id (as if the client had
// already created it itself, before the WM ever sees it).
func (ft *FakeTransport) NewWindow() transport.WindowID {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.allocXID()
}

func (ft *FakeTransport) FD() int { return -1 }

func (ft *FakeTransport) PollEvent() (transport.Event, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.events) == 0 {
		return transport.Event{}, false
	}
	ev := ft.events[0]
	ft.events = ft.events[1:]
	return ev, true
}

func (ft *FakeTransport) PollReply(seq transport.Sequence) (*transport.Reply, *transport.XError, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if r, ok := ft.replies[seq]; ok {
		delete(ft.replies, seq)
		return r, nil, true
	}
	if e, ok := ft.errors[seq]; ok {
		delete(ft.errors, seq)
		return nil, e, true
	}
	return nil, nil, false
}

func (ft *FakeTransport) Flush() (bool, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.FlushWouldBlock, nil
}

func (ft *FakeTransport) CreateWindow(parent transport.WindowID, geom transport.Geometry) (transport.WindowID, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	w := ft.allocXID()
	ft.record("CreateWindow", parent, geom)
	return w, nil
}

func (ft *FakeTransport) DestroyWindow(w transport.WindowID) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("DestroyWindow", w)
	return nil
}

func (ft *FakeTransport) MapWindow(w transport.WindowID) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("MapWindow", w)
	return nil
}

func (ft *FakeTransport) UnmapWindow(w transport.WindowID) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("UnmapWindow", w)
	return nil
}

func (ft *FakeTransport) ReparentWindow(w, newParent transport.WindowID, x, y int32) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("ReparentWindow", w, newParent, x, y)
	return nil
}

func (ft *FakeTransport) ConfigureWindow(w transport.WindowID, mask transport.ConfigureMask, geom transport.Geometry, sibling transport.WindowID, mode transport.StackMode) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("ConfigureWindow", w, mask, geom, sibling, mode)
	return nil
}

func (ft *FakeTransport) SendSyntheticConfigureNotify(w transport.WindowID, geom transport.Geometry) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("SyntheticConfigureNotify", w, geom)
	return nil
}

func (ft *FakeTransport) GetProperty(w transport.WindowID, property, propType transport.Atom, longOffset, longLength uint32) (transport.Sequence, error) {
	ft.mu.Lock()
	seq := ft.nextSequence()
	ft.record("GetProperty", w, property, propType)
	auto := ft.AutoReply
	ft.mu.Unlock()

	if auto != nil {
		reply, xerr := auto(w, property, propType)
		ft.mu.Lock()
		if xerr != nil {
			ft.errors[seq] = xerr
		} else {
			ft.replies[seq] = &transport.Reply{Seq: seq, Property: reply}
		}
		ft.mu.Unlock()
	}
	return seq, nil
}

func (ft *FakeTransport) SetProperty(w transport.WindowID, property, propType transport.Atom, format int, data []byte) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("SetProperty", w, property, propType, format, append([]byte(nil), data...))
	return nil
}

func (ft *FakeTransport) DeleteProperty(w transport.WindowID, property transport.Atom) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("DeleteProperty", w, property)
	return nil
}

func (ft *FakeTransport) GrabPointer(grabWindow transport.WindowID, mode transport.GrabMode) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("GrabPointer", grabWindow, mode)
	return nil
}

func (ft *FakeTransport) UngrabPointer() error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("UngrabPointer")
	return nil
}

func (ft *FakeTransport) GrabKeyboard(grabWindow transport.WindowID, mode transport.GrabMode) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("GrabKeyboard", grabWindow, mode)
	return nil
}

func (ft *FakeTransport) UngrabKeyboard() error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("UngrabKeyboard")
	return nil
}

func (ft *FakeTransport) GrabKey(w transport.WindowID, keycode, modifiers uint32) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("GrabKey", w, keycode, modifiers)
	return nil
}

func (ft *FakeTransport) UngrabKey(w transport.WindowID, keycode, modifiers uint32) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("UngrabKey", w, keycode, modifiers)
	return nil
}

func (ft *FakeTransport) GrabButton(w transport.WindowID, button, modifiers uint32) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("GrabButton", w, button, modifiers)
	return nil
}

func (ft *FakeTransport) UngrabButton(w transport.WindowID, button, modifiers uint32) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("UngrabButton", w, button, modifiers)
	return nil
}

func (ft *FakeTransport) SendClientMessage(w transport.WindowID, msgType transport.Atom, format int, data [5]uint32) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("SendClientMessage", w, msgType, format, data)
	return nil
}

func (ft *FakeTransport) WarpPointer(dst transport.WindowID, x, y int32) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("WarpPointer", dst, x, y)
	return nil
}

func (ft *FakeTransport) InstallColormap(w transport.WindowID) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("InstallColormap", w)
	return nil
}

func (ft *FakeTransport) KillClient(w transport.WindowID) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("KillClient", w)
	return nil
}

func (ft *FakeTransport) SetInputFocus(w transport.WindowID, revert transport.RevertTo, t transport.Time) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("SetInputFocus", w, revert, t)
	return nil
}

func (ft *FakeTransport) AddDeleteSaveSet(op transport.SaveSetOp, w transport.WindowID) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.record("AddDeleteSaveSet", op, w)
	return nil
}

func (ft *FakeTransport) InternAtom(name string) (transport.Atom, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if a, ok := ft.atoms[name]; ok {
		return a, nil
	}
	a := ft.nextAtom
	ft.nextAtom++
	ft.atoms[name] = a
	ft.atomNames[a] = name
	return a, nil
}

func (ft *FakeTransport) AtomName(a transport.Atom) string {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.atomNames[a]
}

func (ft *FakeTransport) AcquireSelection(owner transport.WindowID) (bool, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.SelectionOwned {
		return false, nil
	}
	ft.SelectionOwned = true
	ft.SelectionOwner = owner
	return true, nil
}

func (ft *FakeTransport) ProbeExtension(name string) (bool, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	present, ok := ft.ExtensionPresence[name]
	if !ok {
		return false, nil
	}
	return present, nil
}

func (ft *FakeTransport) RootWindow() transport.WindowID { return ft.root }

func (ft *FakeTransport) RootGeometry() transport.Geometry {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.ScreenGeom
}

// LastRequestFor returns the most recent recorded request for op, or
// (Request{}, false) if none was issued.
func (ft *FakeTransport) LastRequestFor(op string) (Request, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	for i := len(ft.Requests) - 1; i >= 0; i-- {
		if ft.Requests[i].Op == op {
			return ft.Requests[i], true
		}
	}
	return Request{}, false
}

// CountRequestsFor returns how many times op has been recorded.
func (ft *FakeTransport) CountRequestsFor(op string) int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	n := 0
	for _, r := range ft.Requests {
		if r.Op == op {
			n++
		}
	}
	return n
}

var _ transport.Transport = (*FakeTransport)(nil)

func (ft *FakeTransport) String() string {
	return fmt.Sprintf("FakeTransport{root=%d, nextXID=%d}", ft.root, ft.nextXID)
}
