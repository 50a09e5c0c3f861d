package handle

import "testing"

type hotPayload struct{ x int }
type coldPayload struct{ name string }

func TestSlotmap(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{name: "AllocZeroed", fn: testAllocZeroed},
		{name: "FreeThenLookupReturnsNil", fn: testFreeThenLookupReturnsNil},
		{name: "StaleHandleAfterReuse", fn: testStaleHandleAfterReuse},
		{name: "DoubleFreeIsNoop", fn: testDoubleFreeIsNoop},
		{name: "FreeInvalidHandleIsNoop", fn: testFreeInvalidHandleIsNoop},
		{name: "CapacityExhausted", fn: testCapacityExhausted},
		{name: "ForEachVisitsLiveInIndexOrder", fn: testForEachVisitsLiveInIndexOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

func testAllocZeroed(t *testing.T) {
	m := New[hotPayload, coldPayload](0)
	h, err := m.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if !h.IsValid() {
		t.Fatalf("expected valid handle")
	}
	hot := m.Hot(h)
	if hot == nil || hot.x != 0 {
		t.Fatalf("expected zeroed hot payload, got %+v", hot)
	}
	cold := m.Cold(h)
	if cold == nil || cold.name != "" {
		t.Fatalf("expected zeroed cold payload, got %+v", cold)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
}

func testFreeThenLookupReturnsNil(t *testing.T) {
	m := New[hotPayload, coldPayload](0)
	h, _ := m.Alloc()
	m.Free(h)
	if m.Live(h) {
		t.Fatalf("expected freed handle to report not live")
	}
	if m.Hot(h) != nil {
		t.Fatalf("expected Hot() nil after free")
	}
	if m.Cold(h) != nil {
		t.Fatalf("expected Cold() nil after free")
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", m.Len())
	}
}

// testStaleHandleAfterReuse: a handle returned by Alloc and then freed
// resolves to nil from Hot/Cold regardless of subsequent Allocs on the
// same slot.
func testStaleHandleAfterReuse(t *testing.T) {
	m := New[hotPayload, coldPayload](0)
	h1, _ := m.Alloc()
	m.Free(h1)
	h2, _ := m.Alloc() // reuses h1's slot index, bumped generation
	if h2.Index() != h1.Index() {
		t.Fatalf("expected slot reuse, got different index")
	}
	if h2.Generation() == h1.Generation() {
		t.Fatalf("expected generation to change across reuse")
	}
	if m.Live(h1) {
		t.Fatalf("stale handle must not be live after slot reuse")
	}
	if m.Hot(h1) != nil || m.Cold(h1) != nil {
		t.Fatalf("stale handle must resolve to nil after slot reuse")
	}
	if !m.Live(h2) {
		t.Fatalf("new handle into reused slot must be live")
	}
}

func testDoubleFreeIsNoop(t *testing.T) {
	m := New[hotPayload, coldPayload](0)
	h, _ := m.Alloc()
	m.Free(h)
	m.Free(h) // must not panic or decrement liveCount twice
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after double free", m.Len())
	}
}

func testFreeInvalidHandleIsNoop(t *testing.T) {
	m := New[hotPayload, coldPayload](0)
	m.Free(Invalid)
	m.Free(Handle{index: 99, generation: 1})
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", m.Len())
	}
}

func testCapacityExhausted(t *testing.T) {
	m := New[hotPayload, coldPayload](2)
	if _, err := m.Alloc(); err != nil {
		t.Fatalf("Alloc 1: %v", err)
	}
	if _, err := m.Alloc(); err != nil {
		t.Fatalf("Alloc 2: %v", err)
	}
	if _, err := m.Alloc(); err != ErrCapacityExhausted {
		t.Fatalf("Alloc 3 = %v, want ErrCapacityExhausted", err)
	}
}

func testForEachVisitsLiveInIndexOrder(t *testing.T) {
	m := New[hotPayload, coldPayload](0)
	h1, _ := m.Alloc()
	h2, _ := m.Alloc()
	h3, _ := m.Alloc()
	m.Free(h2)

	var seen []uint32
	m.ForEach(func(h Handle, hot *hotPayload, cold *coldPayload) {
		seen = append(seen, h.Index())
	})
	if len(seen) != 2 || seen[0] != h1.Index() || seen[1] != h3.Index() {
		t.Fatalf("ForEach order = %v, want [%d %d]", seen, h1.Index(), h3.Index())
	}
}
