package main

import (
	"log/slog"
	"sync"
	"time"
)

// diagRing is a bounded in-memory ring buffer: sessionlog.TeeHandler tees
// Warn/Error records into it for diagnostics, while everything still
// reaches stderr through the base handler.
type diagRing struct {
	mu      sync.Mutex
	entries []diagEntry
	cap     int
	next    int
	full    bool
}

type diagEntry struct {
	Time  time.Time
	Level slog.Level
	Msg   string
	Group string
}

func newDiagRing(capacity int) *diagRing {
	return &diagRing{entries: make([]diagEntry, capacity), cap: capacity}
}

func (r *diagRing) push(ts time.Time, level slog.Level, msg, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = diagEntry{Time: ts, Level: level, Msg: msg, Group: group}
	r.next = (r.next + 1) % r.cap
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns the buffered entries oldest-first.
func (r *diagRing) Snapshot() []diagEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]diagEntry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]diagEntry, r.cap)
	copy(out, r.entries[r.next:])
	copy(out[r.cap-r.next:], r.entries[:r.next])
	return out
}
