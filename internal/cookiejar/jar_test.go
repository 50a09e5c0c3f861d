package cookiejar

import (
	"testing"
	"time"

	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/testutil"
	"github.com/jopamo/hxm/internal/transport"
)

func TestJar(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{name: "PushThenDrainInvokesOnce", fn: testPushThenDrainInvokesOnce},
		{name: "TimeoutFiresNullHandler", fn: testTimeoutFiresNullHandler},
		{name: "LateReplyAfterTimeoutIgnored", fn: testLateReplyAfterTimeoutIgnored},
		{name: "DuplicatePushReplacesHandler", fn: testDuplicatePushReplacesHandler},
		{name: "DrainRespectsBudget", fn: testDrainRespectsBudget},
		{name: "CancelPreventsInvocation", fn: testCancelPreventsInvocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

func testPushThenDrainInvokesOnce(t *testing.T) {
	j := New()
	tr := testutil.NewFakeTransport()
	var calls int
	seq, err := tr.GetProperty(tr.RootWindow(), 1, 1, 0, 0)
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	j.Push(seq, KindGetProperty, handle.Invalid, 0, func(slot Slot, reply *transport.Reply, xerr *transport.XError) {
		calls++
	})
	tr.QueueReply(seq, &transport.Reply{Seq: seq})

	n := j.Drain(tr, 10)
	if n != 1 || calls != 1 {
		t.Fatalf("Drain invoked=%d calls=%d, want 1,1", n, calls)
	}
	if j.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after drain", j.Len())
	}

	// A second drain call must not re-invoke the handler for a retired seq.
	tr.QueueReply(seq, &transport.Reply{Seq: seq})
	n = j.Drain(tr, 10)
	if n != 0 || calls != 1 {
		t.Fatalf("second Drain invoked=%d calls=%d, want 0,1", n, calls)
	}
}

func testTimeoutFiresNullHandler(t *testing.T) {
	j := New()
	var reply *transport.Reply
	var xerr *transport.XError
	var calls int
	j.Push(42, KindGetProperty, handle.Invalid, 0, func(slot Slot, r *transport.Reply, e *transport.XError) {
		calls++
		reply, xerr = r, e
	})

	pushed := time.Now()
	fired := j.TimeoutScan(pushed.Add(DefaultTimeout + time.Second))
	if fired != 1 || calls != 1 {
		t.Fatalf("TimeoutScan fired=%d calls=%d, want 1,1", fired, calls)
	}
	if reply != nil || xerr != nil {
		t.Fatalf("expected (nil, nil) on timeout, got (%v, %v)", reply, xerr)
	}
}

func testLateReplyAfterTimeoutIgnored(t *testing.T) {
	j := New()
	tr := testutil.NewFakeTransport()
	var calls int
	seq, _ := tr.GetProperty(tr.RootWindow(), 1, 1, 0, 0)
	j.Push(seq, KindGetProperty, handle.Invalid, 0, func(slot Slot, r *transport.Reply, e *transport.XError) {
		calls++
	})

	future := time.Now().Add(DefaultTimeout + time.Second)
	if fired := j.TimeoutScan(future); fired != 1 {
		t.Fatalf("TimeoutScan fired=%d, want 1", fired)
	}

	// Reply arrives after the timeout already fired.
	tr.QueueReply(seq, &transport.Reply{Seq: seq})
	n := j.Drain(tr, 10)
	if n != 0 || calls != 1 {
		t.Fatalf("late reply invoked=%d calls=%d, want 0,1", n, calls)
	}
}

func testDuplicatePushReplacesHandler(t *testing.T) {
	j := New()
	var firstCalled, secondCalled bool
	j.Push(7, KindGetProperty, handle.Invalid, 0, func(slot Slot, r *transport.Reply, e *transport.XError) {
		firstCalled = true
	})
	j.Push(7, KindGetProperty, handle.Invalid, 0, func(slot Slot, r *transport.Reply, e *transport.XError) {
		secondCalled = true
	})
	if j.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after duplicate push", j.Len())
	}

	tr := testutil.NewFakeTransport()
	tr.QueueReply(7, &transport.Reply{Seq: 7})
	j.Drain(tr, 10)
	if firstCalled {
		t.Fatalf("expected original handler to be replaced, not invoked")
	}
	if !secondCalled {
		t.Fatalf("expected replacement handler to be invoked")
	}
}

func testDrainRespectsBudget(t *testing.T) {
	j := New()
	tr := testutil.NewFakeTransport()
	var invoked int
	for i := 0; i < 5; i++ {
		seq, _ := tr.GetProperty(tr.RootWindow(), 1, 1, 0, 0)
		tr.QueueReply(seq, &transport.Reply{Seq: seq})
		j.Push(seq, KindGetProperty, handle.Invalid, 0, func(slot Slot, r *transport.Reply, e *transport.XError) {
			invoked++
		})
	}
	n := j.Drain(tr, 2)
	if n != 2 || invoked != 2 {
		t.Fatalf("Drain(budget=2) invoked=%d n=%d, want 2,2", invoked, n)
	}
	if j.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 remaining", j.Len())
	}
}

func testCancelPreventsInvocation(t *testing.T) {
	j := New()
	var called bool
	j.Push(9, KindGetProperty, handle.Invalid, 0, func(slot Slot, r *transport.Reply, e *transport.XError) {
		called = true
	})
	if !j.Cancel(9) {
		t.Fatalf("Cancel returned false for a present slot")
	}
	if j.Cancel(9) {
		t.Fatalf("second Cancel returned true for an already-removed slot")
	}

	tr := testutil.NewFakeTransport()
	tr.QueueReply(9, &transport.Reply{Seq: 9})
	j.Drain(tr, 10)
	if called {
		t.Fatalf("cancelled handler must not be invoked")
	}
}
