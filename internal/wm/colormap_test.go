package wm

import (
	"testing"

	"github.com/jopamo/hxm/internal/config"
	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/testutil"
	"github.com/jopamo/hxm/internal/transport"
)

func TestColormap(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{name: "InstallOwnColormapWhenNoListedWindows", fn: testInstallOwnColormapWhenNoListedWindows},
		{name: "InstallListedColormapWindowsInOrder", fn: testInstallListedColormapWindowsInOrder},
		{name: "FocusChangeTriggersInstall", fn: testFocusChangeTriggersInstall},
		{name: "ColormapNotifyForOwnWindowTriggersInstall", fn: testColormapNotifyForOwnWindowTriggersInstall},
		{name: "ColormapNotifyForListedWindowTriggersInstall", fn: testColormapNotifyForListedWindowTriggersInstall},
		{name: "ColormapNotifyForUnrelatedWindowIgnored", fn: testColormapNotifyForUnrelatedWindowIgnored},
		{name: "ColormapNotifyWithNoActiveWindowIgnored", fn: testColormapNotifyWithNoActiveWindowIgnored},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

func newTestServer(t *testing.T) (*Server, *testutil.FakeTransport) {
	t.Helper()
	tr := testutil.NewFakeTransport()
	s, err := NewServer(tr, config.Default(), nil, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s, tr
}

func allocClient(t *testing.T, s *Server, tr *testutil.FakeTransport) handle.Handle {
	t.Helper()
	h, err := s.clients.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	hot := s.clients.Hot(h)
	hot.XWindow = tr.NewWindow()
	hot.CanFocus = true
	hot.State = StateMapped
	s.windowToClient[hot.XWindow] = h
	return h
}

func testInstallOwnColormapWhenNoListedWindows(t *testing.T) {
	s, tr := newTestServer(t)
	h := allocClient(t, s, tr)
	hot := s.clients.Hot(h)
	cold := s.clients.Cold(h)

	s.installColormaps(hot, cold)

	req, ok := tr.LastRequestFor("InstallColormap")
	if !ok {
		t.Fatal("expected an InstallColormap request")
	}
	if req.Args[0].(transport.WindowID) != hot.XWindow {
		t.Fatalf("InstallColormap(%v), want %v", req.Args[0], hot.XWindow)
	}
	if n := tr.CountRequestsFor("InstallColormap"); n != 1 {
		t.Fatalf("InstallColormap called %d times, want 1", n)
	}
}

func testInstallListedColormapWindowsInOrder(t *testing.T) {
	s, tr := newTestServer(t)
	h := allocClient(t, s, tr)
	hot := s.clients.Hot(h)
	cold := s.clients.Cold(h)
	w1, w2 := tr.NewWindow(), tr.NewWindow()
	cold.ColormapWindows = []transport.WindowID{w1, w2}

	s.installColormaps(hot, cold)

	if n := tr.CountRequestsFor("InstallColormap"); n != 2 {
		t.Fatalf("InstallColormap called %d times, want 2", n)
	}
	var seen []transport.WindowID
	for _, r := range tr.Requests {
		if r.Op == "InstallColormap" {
			seen = append(seen, r.Args[0].(transport.WindowID))
		}
	}
	if len(seen) != 2 || seen[0] != w1 || seen[1] != w2 {
		t.Fatalf("InstallColormap order = %v, want [%v %v]", seen, w1, w2)
	}
}

func testFocusChangeTriggersInstall(t *testing.T) {
	s, tr := newTestServer(t)
	h := allocClient(t, s, tr)
	hot := s.clients.Hot(h)

	s.setFocus(h)

	req, ok := tr.LastRequestFor("InstallColormap")
	if !ok {
		t.Fatal("setFocus did not install a colormap")
	}
	if req.Args[0].(transport.WindowID) != hot.XWindow {
		t.Fatalf("InstallColormap(%v), want %v", req.Args[0], hot.XWindow)
	}
}

func testColormapNotifyForOwnWindowTriggersInstall(t *testing.T) {
	s, tr := newTestServer(t)
	h := allocClient(t, s, tr)
	hot := s.clients.Hot(h)
	s.root.ActiveWindow = h

	s.processColormapNotify(transport.Event{Kind: transport.EventColormapNotify, Window: hot.XWindow})

	if n := tr.CountRequestsFor("InstallColormap"); n != 1 {
		t.Fatalf("InstallColormap called %d times, want 1", n)
	}
}

func testColormapNotifyForListedWindowTriggersInstall(t *testing.T) {
	s, tr := newTestServer(t)
	h := allocClient(t, s, tr)
	cold := s.clients.Cold(h)
	w1 := tr.NewWindow()
	cold.ColormapWindows = []transport.WindowID{w1}
	s.root.ActiveWindow = h

	s.processColormapNotify(transport.Event{Kind: transport.EventColormapNotify, Window: w1})

	if n := tr.CountRequestsFor("InstallColormap"); n != 1 {
		t.Fatalf("InstallColormap called %d times, want 1", n)
	}
}

func testColormapNotifyForUnrelatedWindowIgnored(t *testing.T) {
	s, tr := newTestServer(t)
	h := allocClient(t, s, tr)
	s.root.ActiveWindow = h
	other := tr.NewWindow()

	s.processColormapNotify(transport.Event{Kind: transport.EventColormapNotify, Window: other})

	if n := tr.CountRequestsFor("InstallColormap"); n != 0 {
		t.Fatalf("InstallColormap called %d times, want 0 for an unrelated window", n)
	}
}

func testColormapNotifyWithNoActiveWindowIgnored(t *testing.T) {
	s, tr := newTestServer(t)
	w := tr.NewWindow()

	s.processColormapNotify(transport.Event{Kind: transport.EventColormapNotify, Window: w})

	if n := tr.CountRequestsFor("InstallColormap"); n != 0 {
		t.Fatalf("InstallColormap called %d times, want 0 with no active window", n)
	}
}
