package handle

import "errors"

// ErrCapacityExhausted is returned by Alloc when the map is full and growth
// is bounded (see the maxCapacity argument of New).
var ErrCapacityExhausted = errors.New("handle: slotmap capacity exhausted")

type slot[Hot any, Cold any] struct {
	generation uint64
	live       bool
	hot        Hot
	cold       Cold
}

// Slotmap owns a dense array of generational slots, each carrying a hot
// record (scanned every tick) and a cold record (touched only on property
// updates) of independently sized payloads. It never hands out a raw pointer
// across an alloc/free boundary — callers resolve a Handle through Hot/Cold
// on every access, so a stale Handle simply reads as "not live".
//
// Not safe for concurrent use: the core is single-threaded and
// Slotmap carries no locks.
type Slotmap[Hot any, Cold any] struct {
	slots       []slot[Hot, Cold]
	free        []uint32
	maxCapacity int // 0 = unbounded
	liveCount   int
}

// New creates an empty Slotmap. maxCapacity bounds growth; 0 means unbounded.
func New[Hot any, Cold any](maxCapacity int) *Slotmap[Hot, Cold] {
	return &Slotmap[Hot, Cold]{maxCapacity: maxCapacity}
}

// Len reports the number of currently live slots.
func (m *Slotmap[Hot, Cold]) Len() int { return m.liveCount }

// Alloc returns a fresh handle with a zeroed hot and cold payload.
func (m *Slotmap[Hot, Cold]) Alloc() (Handle, error) {
	if n := len(m.free); n > 0 {
		idx := m.free[n-1]
		m.free = m.free[:n-1]
		s := &m.slots[idx]
		s.live = true
		var zeroHot Hot
		var zeroCold Cold
		s.hot = zeroHot
		s.cold = zeroCold
		m.liveCount++
		return Handle{index: idx, generation: s.generation}, nil
	}

	if m.maxCapacity > 0 && len(m.slots) >= m.maxCapacity {
		return Invalid, ErrCapacityExhausted
	}

	m.slots = append(m.slots, slot[Hot, Cold]{generation: 1, live: true})
	idx := uint32(len(m.slots) - 1)
	m.liveCount++
	return Handle{index: idx, generation: 1}, nil
}

// Free releases h's slot and bumps its generation. Freeing an invalid or
// stale handle is a no-op, not a fault: the tick scheduler relies on this
// idempotence to tolerate duplicate destroy notifications for the same
// window arriving within or across ticks.
func (m *Slotmap[Hot, Cold]) Free(h Handle) {
	if !m.Live(h) {
		return
	}
	s := &m.slots[h.index]
	s.live = false
	s.generation++
	var zeroHot Hot
	var zeroCold Cold
	s.hot = zeroHot
	s.cold = zeroCold
	m.free = append(m.free, h.index)
	m.liveCount--
}

// Live reports whether h refers to a currently allocated slot.
func (m *Slotmap[Hot, Cold]) Live(h Handle) bool {
	if !h.IsValid() || int(h.index) >= len(m.slots) {
		return false
	}
	s := &m.slots[h.index]
	return s.live && s.generation == h.generation
}

// Hot returns a pointer to h's hot payload, or nil if h is invalid or stale.
func (m *Slotmap[Hot, Cold]) Hot(h Handle) *Hot {
	if !m.Live(h) {
		return nil
	}
	return &m.slots[h.index].hot
}

// Cold returns a pointer to h's cold payload, or nil if h is invalid or stale.
func (m *Slotmap[Hot, Cold]) Cold(h Handle) *Cold {
	if !m.Live(h) {
		return nil
	}
	return &m.slots[h.index].cold
}

// ForEach visits live slots in index order, yielding (handle, hot, cold)
// triples. The callback must not Alloc or Free on m during iteration; doing
// so invalidates the in-progress scan.
func (m *Slotmap[Hot, Cold]) ForEach(fn func(h Handle, hot *Hot, cold *Cold)) {
	for i := range m.slots {
		s := &m.slots[i]
		if !s.live {
			continue
		}
		fn(Handle{index: uint32(i), generation: s.generation}, &s.hot, &s.cold)
	}
}
