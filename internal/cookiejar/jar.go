// Package cookiejar implements the asynchronous reply dispatcher: an
// open-addressing table keyed by request sequence so the core never blocks
// awaiting a display-server reply during event handling.
package cookiejar

import (
	"time"

	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/transport"
)

// DefaultTimeout is the deadline applied to a cookie slot with no explicit
// deadline.
const DefaultTimeout = 5 * time.Second

// Kind tags what a pending request was for, so Handler implementations can
// exhaustively switch on it instead of the jar holding one Go interface
// implementation per request type.
type Kind int

const (
	KindUnknown Kind = iota
	KindGetProperty
	KindTranslateCoordinates
	KindExtensionProbe
)

// Handler is invoked exactly once per pushed sequence: on success (reply set,
// err nil), on protocol error (err set), or on timeout (both nil).
type Handler func(slot Slot, reply *transport.Reply, xerr *transport.XError)

// Slot is the bookkeeping a pushed cookie carries for its lifetime: from
// Push to the earliest of (reply arrived, error arrived, timeout, Cancel).
type Slot struct {
	Seq      transport.Sequence
	Kind     Kind
	Client   handle.Handle
	Payload  uint64 // kind-specific tag, e.g. the property atom requested
	deadline time.Time
	handler  Handler
}

const (
	stateEmpty uint8 = iota
	stateOccupied
)

type entry struct {
	state uint8
	slot  Slot
}

// Jar is an open-addressing hash table keyed by request sequence, with
// back-shift deletion (no tombstones, so probe chains stay short) and a
// load factor capped at 0.7 before the table doubles.
type Jar struct {
	entries []entry
	count   int
	cursor  int // persisted scan position for fair draining across calls
	timeout time.Duration
}

// New creates an empty Jar with a small initial table and the default
// 5-second cookie deadline.
func New() *Jar {
	return &Jar{entries: make([]entry, 16), timeout: DefaultTimeout}
}

// SetTimeout overrides the deadline applied to subsequently pushed cookies
// (internal/config's cookie_timeout knob). It does not affect slots already
// resident in the jar.
func (j *Jar) SetTimeout(d time.Duration) {
	if d > 0 {
		j.timeout = d
	}
}

func (j *Jar) indexFor(seq transport.Sequence, cap int) int {
	return int(uint64(seq) % uint64(cap))
}

// Push registers handler against seq. Duplicate pushes for the same sequence
// replace the existing slot atomically (the old handler is dropped without
// being invoked); this preserves the jar's live count either way. Push
// fails only on allocator failure, which in
// practice cannot happen until growth is deliberately disabled; the bool
// return exists to match the documented contract.
func (j *Jar) Push(seq transport.Sequence, kind Kind, client handle.Handle, payload uint64, handler Handler) bool {
	if float64(j.count+1) > 0.7*float64(len(j.entries)) {
		j.grow()
	}

	cap := len(j.entries)
	idx := j.indexFor(seq, cap)
	for {
		e := &j.entries[idx]
		if e.state != stateOccupied {
			e.state = stateOccupied
			e.slot = Slot{
				Seq:      seq,
				Kind:     kind,
				Client:   client,
				Payload:  payload,
				deadline: time.Now().Add(j.timeout),
				handler:  handler,
			}
			j.count++
			return true
		}
		if e.slot.Seq == seq {
			e.slot = Slot{
				Seq:      seq,
				Kind:     kind,
				Client:   client,
				Payload:  payload,
				deadline: time.Now().Add(j.timeout),
				handler:  handler,
			}
			return true
		}
		idx = (idx + 1) % cap
	}
}

func (j *Jar) grow() {
	old := j.entries
	j.entries = make([]entry, len(old)*2)
	j.count = 0
	for _, e := range old {
		if e.state == stateOccupied {
			j.Push(e.slot.Seq, e.slot.Kind, e.slot.Client, e.slot.Payload, e.slot.handler)
			// Push resets deadline on re-insert during grow; preserve the
			// original deadline so growth never extends a cookie's life.
			idx := j.find(e.slot.Seq)
			if idx >= 0 {
				j.entries[idx].slot.deadline = e.slot.deadline
			}
		}
	}
}

func (j *Jar) find(seq transport.Sequence) int {
	cap := len(j.entries)
	if cap == 0 {
		return -1
	}
	idx := j.indexFor(seq, cap)
	for i := 0; i < cap; i++ {
		e := &j.entries[idx]
		if e.state != stateOccupied {
			return -1
		}
		if e.slot.Seq == seq {
			return idx
		}
		idx = (idx + 1) % cap
	}
	return -1
}

// remove deletes the entry at idx using back-shift deletion: it walks
// forward, pulling back any entry whose ideal slot lies at or before the
// gap, so probe chains for surviving entries never break.
func (j *Jar) remove(idx int) {
	cap := len(j.entries)
	j.entries[idx] = entry{}
	j.count--

	i := idx
	next := (i + 1) % cap
	for j.entries[next].state == stateOccupied {
		ideal := j.indexFor(j.entries[next].slot.Seq, cap)
		// Distance from ideal to the gap vs ideal to next, modulo cap.
		if circularDistance(ideal, i, cap) <= circularDistance(ideal, next, cap) {
			j.entries[i] = j.entries[next]
			j.entries[next] = entry{}
			i = next
		}
		next = (next + 1) % cap
	}
}

func circularDistance(from, to, cap int) int {
	d := to - from
	if d < 0 {
		d += cap
	}
	return d
}

// Drain polls the transport for each resident sequence and invokes ready
// handlers, up to maxReplies invocations. A persisted scan cursor ensures
// sequences arriving sparsely still make progress across calls instead of
// the same early slots starving later ones.
func (j *Jar) Drain(tr transport.Transport, maxReplies int) int {
	cap := len(j.entries)
	if cap == 0 || j.count == 0 {
		return 0
	}
	invoked := 0
	start := j.cursor % cap
	steps := 0
	for ; steps < cap && invoked < maxReplies; steps++ {
		idx := (start + steps) % cap
		e := &j.entries[idx]
		if e.state != stateOccupied {
			continue
		}
		reply, xerr, ok := tr.PollReply(e.slot.Seq)
		if !ok {
			continue
		}
		slot := e.slot
		j.remove(idx)
		invoked++
		slot.handler(slot, reply, xerr)
	}
	j.cursor = (start + steps) % cap
	return invoked
}

// TimeoutScan fires handler(slot, nil, nil) for every slot whose deadline has
// elapsed at now. A slot that times out is retired immediately: Drain only
// polls resident sequences, so a reply delivered afterward for the same
// sequence is never picked up. A late reply never resurrects the slot or
// re-invokes the handler.
func (j *Jar) TimeoutScan(now time.Time) int {
	fired := 0
	cap := len(j.entries)
	for idx := 0; idx < cap; idx++ {
		e := &j.entries[idx]
		if e.state != stateOccupied {
			continue
		}
		if now.Before(e.slot.deadline) {
			continue
		}
		slot := e.slot
		j.remove(idx)
		fired++
		slot.handler(slot, nil, nil)
		// remove back-shifts later entries into idx; examine idx again.
		idx--
	}
	return fired
}

// Cancel removes seq's slot without invoking its handler, if present.
func (j *Jar) Cancel(seq transport.Sequence) bool {
	idx := j.find(seq)
	if idx < 0 {
		return false
	}
	j.remove(idx)
	return true
}

// Len reports the number of outstanding cookies.
func (j *Jar) Len() int { return j.count }
