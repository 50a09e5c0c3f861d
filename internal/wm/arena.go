package wm

import (
	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/transport"
)

// configureReq is the coalesced last-writer-wins pending configuration for
// one window within a tick.
type configureReq struct {
	mask     transport.ConfigureMask
	geom     transport.Geometry
	sibling  transport.WindowID
	stackMode transport.StackMode
}

type propKey struct {
	window transport.WindowID
	atom   transport.Atom
}

// tickBuckets are the per-tick transient event containers. All
// memory here is conceptually "arena" memory: valid only until the next
// reset. Go's GC means there is no manual arena allocator to implement;
// reset simply truncates/clears the backing maps and slices so their
// capacity is reused across ticks without new allocations in the common
// case.
type tickBuckets struct {
	mapRequests    []transport.Event
	unmapNotifies  []transport.Event
	destroyNotifies []transport.Event
	keyEvents      []transport.Event
	buttonEvents   []transport.Event
	clientMessages []transport.Event
	colormapNotifies []transport.Event

	configureRequests map[transport.WindowID]configureReq
	configureNotifies map[transport.WindowID]transport.Event
	propertyNotifies  map[propKey]transport.Event
	motionNotifies    map[transport.WindowID]transport.Event
	exposeRegions     map[transport.WindowID]transport.Rect
	damageRegions     map[transport.WindowID]transport.Rect

	destroyed map[transport.WindowID]struct{}

	dirtyClients map[handle.Handle]struct{}

	eventCount int
}

func (b *tickBuckets) reset() {
	b.mapRequests = b.mapRequests[:0]
	b.unmapNotifies = b.unmapNotifies[:0]
	b.destroyNotifies = b.destroyNotifies[:0]
	b.keyEvents = b.keyEvents[:0]
	b.buttonEvents = b.buttonEvents[:0]
	b.clientMessages = b.clientMessages[:0]
	b.colormapNotifies = b.colormapNotifies[:0]

	clearMap(b.configureRequests)
	clearMap(b.configureNotifies)
	clearMap(b.propertyNotifies)
	clearMap(b.motionNotifies)
	clearMap(b.exposeRegions)
	clearMap(b.damageRegions)
	clearMap(b.destroyed)
	clearMap(b.dirtyClients)

	if b.configureRequests == nil {
		b.configureRequests = make(map[transport.WindowID]configureReq)
		b.configureNotifies = make(map[transport.WindowID]transport.Event)
		b.propertyNotifies = make(map[propKey]transport.Event)
		b.motionNotifies = make(map[transport.WindowID]transport.Event)
		b.exposeRegions = make(map[transport.WindowID]transport.Rect)
		b.damageRegions = make(map[transport.WindowID]transport.Rect)
		b.destroyed = make(map[transport.WindowID]struct{})
		b.dirtyClients = make(map[handle.Handle]struct{})
	}
	b.eventCount = 0
}

func clearMap[K comparable, V any](m map[K]V) {
	for k := range m {
		delete(m, k)
	}
}

func (b *tickBuckets) isDestroyed(w transport.WindowID) bool {
	_, ok := b.destroyed[w]
	return ok
}

func (b *tickBuckets) markDirty(h handle.Handle) {
	b.dirtyClients[h] = struct{}{}
}
