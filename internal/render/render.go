// Package render defines the drawing surface the core hands per-client
// dirty regions to, and the DamageTracker that feeds it. The tracker is
// driven synchronously by the tick scheduler rather than its own
// goroutine/ticker: the commit rate is tick-bounded, not vsynced.
package render

import (
	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/transport"
)

// Renderer paints the accumulated dirty regions for a client's frame. The
// core never draws; it only reports what changed.
type Renderer interface {
	Paint(h handle.Handle, regions []transport.Rect)
}

// DamageTracker unions Expose/Damage rectangles per client within a tick
// and hands them to a Renderer at commit.
type DamageTracker struct {
	pending map[handle.Handle]transport.Rect
}

// NewDamageTracker creates an empty tracker.
func NewDamageTracker() *DamageTracker {
	return &DamageTracker{pending: make(map[handle.Handle]transport.Rect)}
}

// Add unions r into h's pending region for the current tick.
func (d *DamageTracker) Add(h handle.Handle, r transport.Rect) {
	d.pending[h] = d.pending[h].Union(r)
}

// Flush hands every client's unioned region to renderer and clears the
// tracker, called once per tick from the commit phase.
func (d *DamageTracker) Flush(renderer Renderer) {
	if renderer == nil {
		d.pending = make(map[handle.Handle]transport.Rect, len(d.pending))
		return
	}
	for h, r := range d.pending {
		renderer.Paint(h, []transport.Rect{r})
	}
	for k := range d.pending {
		delete(d.pending, k)
	}
}
