package wm

import (
	"testing"

	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/testutil"
	"github.com/jopamo/hxm/internal/transport"
)

// TestLifecycleScenarios exercises the core end to end against the fake
// transport: map/list, workspace-switch visibility, fullscreen round-trip,
// transient-cycle rejection, and WM_DELETE_WINDOW close.
func TestLifecycleScenarios(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{name: "MapAndList", fn: testMapAndList},
		{name: "WorkspaceSwitchVisibility", fn: testWorkspaceSwitchVisibility},
		{name: "FullscreenRoundTrip", fn: testFullscreenRoundTrip},
		{name: "TransientCycleRejection", fn: testTransientCycleRejection},
		{name: "DeleteWindowClose", fn: testDeleteWindowClose},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

// autoReplyWith installs an AutoReply on tr that answers every GetProperty
// with the override keyed by atom name, or an empty (validly-rejected, by
// the ingest validators) payload otherwise. Each reply carries the type and
// format the ingest validators demand for that atom.
func autoReplyWith(tr *testutil.FakeTransport, overrides map[string][]byte) {
	tr.AutoReply = func(w transport.WindowID, property, propType transport.Atom) (*transport.PropertyReply, *transport.XError) {
		name := tr.AtomName(property)
		enc, ok := propertyEncodings[name]
		if !ok {
			return &transport.PropertyReply{Type: propType, Format: 32, Data: overrides[name]}, nil
		}
		typeAtom, _ := tr.InternAtom(enc.typeNames[0])
		return &transport.PropertyReply{Type: typeAtom, Format: enc.format, Data: overrides[name]}, nil
	}
}

func wmClassPayload(instance, class string) []byte {
	b := append([]byte(instance), 0)
	b = append(b, []byte(class)...)
	b = append(b, 0)
	return b
}

func lastSetProperty(tr *testutil.FakeTransport, w transport.WindowID, atom transport.Atom) ([]byte, bool) {
	for i := len(tr.Requests) - 1; i >= 0; i-- {
		r := tr.Requests[i]
		if r.Op != "SetProperty" {
			continue
		}
		if r.Args[0].(transport.WindowID) != w {
			continue
		}
		if r.Args[1].(transport.Atom) != atom {
			continue
		}
		data, _ := r.Args[4].([]byte)
		return data, true
	}
	return nil, false
}

// testMapAndList maps a fresh client and checks reparenting, the client
// lists, WM_STATE, and the published frame extents.
func testMapAndList(t *testing.T) {
	s, tr := newTestServer(t)
	autoReplyWith(tr, map[string][]byte{
		"WM_CLASS": wmClassPayload("ListTest", "listtest"),
	})

	w := tr.NewWindow()
	tr.PushEvent(transport.Event{Kind: transport.EventMapRequest, Window: w})

	// Tick 1: ingest the MapRequest, begin adoption (replies are queued
	// synchronously by AutoReply but only drained at the top of the next
	// tick, per the cookie jar's drain-before-process ordering).
	s.Tick()
	h, ok := s.windowToClient[w]
	if !ok {
		t.Fatal("window not registered after MapRequest")
	}
	if got := s.clients.Hot(h).State; got != StateNew {
		t.Fatalf("state after tick 1 = %v, want NEW (adoption still in flight)", got)
	}

	// Tick 2: drain replies, complete adoption, map per visibility.
	s.Tick()

	hot := s.clients.Hot(h)
	cold := s.clients.Cold(h)
	if hot.State != StateMapped {
		t.Fatalf("state = %v, want MAPPED", hot.State)
	}
	if hot.Frame == transport.None {
		t.Fatal("no frame created")
	}
	if cold.Instance != "ListTest" || cold.Class != "listtest" {
		t.Fatalf("WM_CLASS = (%q, %q), want (ListTest, listtest)", cold.Instance, cold.Class)
	}

	if _, ok := tr.LastRequestFor("ReparentWindow"); !ok {
		t.Fatal("client window was never reparented into its frame")
	}

	found := false
	for _, hc := range s.root.ClientList {
		if hc == h {
			found = true
		}
	}
	if !found {
		t.Fatal("client missing from _NET_CLIENT_LIST (root.ClientList)")
	}

	listData, ok := lastSetProperty(tr, s.root.Window, s.atoms.get("_NET_CLIENT_LIST"))
	if !ok {
		t.Fatal("_NET_CLIENT_LIST was never published")
	}
	if len(listData) != 4 || decodeU32At(listData, 0) != uint32(w) {
		t.Fatalf("_NET_CLIENT_LIST = %v, want single entry %d", listData, w)
	}

	stackData, ok := lastSetProperty(tr, s.root.Window, s.atoms.get("_NET_CLIENT_LIST_STACKING"))
	if !ok {
		t.Fatal("_NET_CLIENT_LIST_STACKING was never published")
	}
	if len(stackData) != 4 || decodeU32At(stackData, 0) != uint32(w) {
		t.Fatalf("_NET_CLIENT_LIST_STACKING = %v, want single entry %d", stackData, w)
	}

	stateData, ok := lastSetProperty(tr, hot.XWindow, s.atoms.get("WM_STATE"))
	if !ok || len(stateData) != 8 || decodeU32At(stateData, 0) != 1 || decodeU32At(stateData, 1) != 0 {
		t.Fatalf("WM_STATE = %v, want {Normal(1), icon=None}", stateData)
	}

	theme := s.cfg.Theme
	wantExtents := []uint32{uint32(theme.BorderWidth), uint32(theme.BorderWidth), uint32(theme.TitleHeight + theme.BorderWidth), uint32(theme.HandleHeight)}
	extData, ok := lastSetProperty(tr, hot.XWindow, s.atoms.get("_NET_FRAME_EXTENTS"))
	if !ok || len(extData) != 16 {
		t.Fatalf("_NET_FRAME_EXTENTS missing or malformed: %v", extData)
	}
	for i, want := range wantExtents {
		if decodeU32At(extData, i) != want {
			t.Fatalf("_NET_FRAME_EXTENTS[%d] = %d, want %d", i, decodeU32At(extData, i), want)
		}
	}
}

func makeMappedClient(t *testing.T, s *Server, tr *testutil.FakeTransport, desktop uint32, sticky bool) handle.Handle {
	t.Helper()
	h, err := s.clients.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	hot := s.clients.Hot(h)
	hot.XWindow = tr.NewWindow()
	hot.Frame = tr.NewWindow()
	hot.State = StateMapped
	hot.Desktop = desktop
	hot.Sticky = sticky
	hot.TransientFor = handle.Invalid
	s.windowToClient[hot.XWindow] = h
	return h
}

// testWorkspaceSwitchVisibility switches desktops and checks which clients
// end up mapped, unmapped, and sticky-mapped.
func testWorkspaceSwitchVisibility(t *testing.T) {
	s, tr := newTestServer(t)
	s.root.CurrentDesktop = 0

	cDesktop0a := makeMappedClient(t, s, tr, 0, false)
	cDesktop1 := makeMappedClient(t, s, tr, 1, false)
	cDesktop0b := makeMappedClient(t, s, tr, 0, false)
	cSticky := makeMappedClient(t, s, tr, 0, true)

	tr.PushEvent(transport.Event{
		Kind: transport.EventClientMessage,
		Window: s.root.Window,
		Atom: s.atoms.get("_NET_CURRENT_DESKTOP"),
		Data32: [5]uint32{1, 0, 0, 0, 0},
	})
	s.Tick()

	if s.root.CurrentDesktop != 1 {
		t.Fatalf("CurrentDesktop = %d, want 1", s.root.CurrentDesktop)
	}
	if got := s.clients.Hot(cDesktop0a).State; got != StateUnmapped {
		t.Fatalf("desktop-0 client a state = %v, want UNMAPPED", got)
	}
	if got := s.clients.Hot(cDesktop0b).State; got != StateUnmapped {
		t.Fatalf("desktop-0 client b state = %v, want UNMAPPED", got)
	}
	if got := s.clients.Hot(cDesktop1).State; got != StateMapped {
		t.Fatalf("desktop-1 client state = %v, want MAPPED", got)
	}
	if got := s.clients.Hot(cSticky).State; got != StateMapped {
		t.Fatalf("sticky client state = %v, want MAPPED", got)
	}
}

// testFullscreenRoundTrip adds and removes fullscreen and checks the layer
// change and bit-exact geometry restore.
func testFullscreenRoundTrip(t *testing.T) {
	s, tr := newTestServer(t)
	h := allocClient(t, s, tr)
	hot := s.clients.Hot(h)
	orig := transport.Geometry{X: 100, Y: 100, Width: 400, Height: 300}
	hot.Current = orig
	hot.Desired = orig
	hot.Layer = LayerNormal

	s.applyStateMessage(h, hot, stateAdd, s.atoms.get("_NET_WM_STATE_FULLSCREEN"), 0)

	if hot.Layer != LayerFullscreen {
		t.Fatalf("layer = %v, want Fullscreen", hot.Layer)
	}
	if !hot.Fullscreen {
		t.Fatal("Fullscreen flag not set")
	}
	if !hot.Saved.Valid || hot.Saved.Layer != LayerNormal || hot.Saved.Geometry != orig {
		t.Fatalf("saved state = %+v, want layer=Normal geometry=%+v", hot.Saved, orig)
	}

	s.applyStateMessage(h, hot, stateRemove, s.atoms.get("_NET_WM_STATE_FULLSCREEN"), 0)

	if hot.Fullscreen {
		t.Fatal("Fullscreen flag still set after remove")
	}
	if hot.Layer != LayerNormal {
		t.Fatalf("layer after restore = %v, want Normal", hot.Layer)
	}
	if hot.Desired != orig {
		t.Fatalf("geometry after restore = %+v, want bit-exact %+v", hot.Desired, orig)
	}
}

// testTransientCycleRejection makes two windows transient for each other
// and checks the cycle degrades to Invalid.
func testTransientCycleRejection(t *testing.T) {
	s, tr := newTestServer(t)
	hA := allocClient(t, s, tr)
	hB := allocClient(t, s, tr)
	hotA, coldA := s.clients.Hot(hA), s.clients.Cold(hA)
	hotB, coldB := s.clients.Hot(hB), s.clients.Cold(hB)

	coldA.TransientForRaw = hotB.XWindow
	coldB.TransientForRaw = hotA.XWindow

	s.resolveTransient(hA, hotA)
	s.resolveTransient(hB, hotB)

	if hotB.TransientFor != handle.Invalid {
		t.Fatalf("B.TransientFor = %v, want Invalid (cyclic reference must degrade)", hotB.TransientFor)
	}

	// Walk from A's resolved parent chain and make sure it never revisits A.
	seen := map[handle.Handle]bool{hA: true}
	cur := hotA.TransientFor
	for i := 0; i < 16 && s.clients.Live(cur); i++ {
		if seen[cur] {
			t.Fatal("transient_for chain contains a cycle")
		}
		seen[cur] = true
		ch := s.clients.Hot(cur)
		if ch == nil || !ch.TransientFor.IsValid() {
			break
		}
		cur = ch.TransientFor
	}
}

// testDeleteWindowClose closes a WM_DELETE_WINDOW-supporting client and
// checks exactly one ClientMessage is sent and KillClient never is.
func testDeleteWindowClose(t *testing.T) {
	s, tr := newTestServer(t)
	h := allocClient(t, s, tr)
	cold := s.clients.Cold(h)
	cold.Protocols |= ProtoDeleteWindow

	s.closeWindow(h)

	if n := tr.CountRequestsFor("KillClient"); n != 0 {
		t.Fatalf("KillClient called %d times, want 0 when WM_DELETE_WINDOW is supported", n)
	}
	req, ok := tr.LastRequestFor("SendClientMessage")
	if !ok {
		t.Fatal("no ClientMessage sent")
	}
	if n := tr.CountRequestsFor("SendClientMessage"); n != 1 {
		t.Fatalf("SendClientMessage called %d times, want exactly 1", n)
	}
	msgType := req.Args[1].(transport.Atom)
	if msgType != s.atoms.get("WM_PROTOCOLS") {
		t.Fatalf("ClientMessage type = %v, want WM_PROTOCOLS", msgType)
	}
	data := req.Args[3].([5]uint32)
	if data[0] != uint32(s.atoms.get("WM_DELETE_WINDOW")) {
		t.Fatalf("data[0] = %d, want WM_DELETE_WINDOW atom", data[0])
	}
}
