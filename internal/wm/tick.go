package wm

import (
	"github.com/jopamo/hxm/internal/keybind"
	"github.com/jopamo/hxm/internal/transport"
)

// tickIngestCap bounds phase (a): ingest stops after this many events even
// if more are queued, so one runaway client cannot starve the tick.
const tickIngestCap = 512

// replyDrainBudget bounds phase (b)'s cookie-jar drain per tick.
const replyDrainBudget = 64

// SetKeybinds installs the resolved key-binding table used by the
// interaction dispatcher (internal/keybind), releasing any
// grabs held by a previously installed table first so a reconfigure swaps
// bindings without leaking grabs.
func (s *Server) SetKeybinds(m *keybind.Manager, escapeKeycode uint32) {
	if s.keybinds != nil {
		s.keybinds.Uninstall(s.tr, s.root.Window)
	}
	s.keybinds = m
	s.escapeKeycode = escapeKeycode
	if m != nil {
		if err := m.Install(s.tr, s.root.Window); err != nil {
			s.log.Warn("key grab install failed", "error", err)
		}
	}
}

// Tick runs exactly one iteration of the four-phase loop: ingest, drain
// replies, process, commit/flush. No phase blocks on a display-server
// reply.
func (s *Server) Tick() {
	s.buckets.reset()
	s.ingest()
	budget := s.cfg.ReplyDrainBudget
	if budget == 0 {
		budget = replyDrainBudget
	}
	s.jar.Drain(s.tr, budget)
	s.jar.TimeoutScan(s.now())
	s.process()
	s.commit()
}

// ingest drains the transport, classifying and coalescing events into the
// tick buckets.
func (s *Server) ingest() {
	cap := s.ingestCap
	if cap == 0 {
		cap = tickIngestCap
	}
	for n := 0; n < cap; n++ {
		ev, ok := s.tr.PollEvent()
		if !ok {
			return
		}
		s.buckets.eventCount++
		s.classify(ev)
	}
}

func (s *Server) classify(ev transport.Event) {
	switch ev.Kind {
	case transport.EventMapRequest:
		s.buckets.mapRequests = append(s.buckets.mapRequests, ev)

	case transport.EventUnmapNotify:
		if s.buckets.isDestroyed(ev.Window) {
			return
		}
		s.buckets.unmapNotifies = append(s.buckets.unmapNotifies, ev)

	case transport.EventDestroyNotify:
		s.buckets.destroyed[ev.Window] = struct{}{}
		s.buckets.destroyNotifies = append(s.buckets.destroyNotifies, ev)

	case transport.EventConfigureRequest:
		if s.buckets.isDestroyed(ev.Window) {
			return
		}
		cur := s.buckets.configureRequests[ev.Window]
		merged := configureReq{mask: cur.mask | ev.Mask, geom: cur.geom, sibling: ev.Above, stackMode: ev.StackMode}
		if ev.Mask&transport.ConfigX != 0 {
			merged.geom.X = ev.Geometry.X
		} else {
			merged.geom.X = cur.geom.X
		}
		if ev.Mask&transport.ConfigY != 0 {
			merged.geom.Y = ev.Geometry.Y
		} else {
			merged.geom.Y = cur.geom.Y
		}
		if ev.Mask&transport.ConfigWidth != 0 {
			merged.geom.Width = ev.Geometry.Width
		} else {
			merged.geom.Width = cur.geom.Width
		}
		if ev.Mask&transport.ConfigHeight != 0 {
			merged.geom.Height = ev.Geometry.Height
		} else {
			merged.geom.Height = cur.geom.Height
		}
		if ev.Mask&transport.ConfigBorderWidth != 0 {
			merged.geom.BorderWidth = ev.Geometry.BorderWidth
		} else {
			merged.geom.BorderWidth = cur.geom.BorderWidth
		}
		s.buckets.configureRequests[ev.Window] = merged

	case transport.EventConfigureNotify:
		if s.buckets.isDestroyed(ev.Window) {
			return
		}
		s.buckets.configureNotifies[ev.Window] = ev

	case transport.EventPropertyNotify:
		if s.buckets.isDestroyed(ev.Window) {
			return
		}
		s.buckets.propertyNotifies[propKey{window: ev.Window, atom: ev.Atom}] = ev

	case transport.EventMotionNotify:
		s.buckets.motionNotifies[ev.Window] = ev

	case transport.EventExpose:
		s.buckets.exposeRegions[ev.Window] = s.buckets.exposeRegions[ev.Window].Union(ev.Region)

	case transport.EventDamage:
		s.buckets.damageRegions[ev.Window] = s.buckets.damageRegions[ev.Window].Union(ev.Region)

	case transport.EventReparentNotify:
		if ev.Parent == ev.Window {
			return // reparent-to-self is ignored
		}
		if _, isFrame := s.frameToClient[ev.Window]; isFrame {
			return
		}

	case transport.EventKeyPress:
		s.buckets.keyEvents = append(s.buckets.keyEvents, ev)

	case transport.EventButtonPress, transport.EventButtonRelease:
		s.buckets.buttonEvents = append(s.buckets.buttonEvents, ev)

	case transport.EventClientMessage:
		s.buckets.clientMessages = append(s.buckets.clientMessages, ev)

	case transport.EventColormapNotify:
		s.buckets.colormapNotifies = append(s.buckets.colormapNotifies, ev)
	}
}

// process applies the tick buckets to the in-memory model in a fixed
// order: lifecycle first (destroys, unmaps, maps), then coalesced property
// changes, then input, then geometry, so later phases see the effects of
// earlier ones.
func (s *Server) process() {
	for _, ev := range s.buckets.destroyNotifies {
		s.processDestroy(ev)
	}
	for _, ev := range s.buckets.unmapNotifies {
		s.processUnmap(ev)
	}
	for _, ev := range s.buckets.mapRequests {
		s.processMapRequest(ev)
	}

	for key, ev := range s.buckets.propertyNotifies {
		s.processPropertyNotify(key, ev)
	}

	for _, ev := range s.buckets.keyEvents {
		s.dispatchKey(ev, s.escapeKeycode)
	}
	for _, ev := range s.buckets.buttonEvents {
		s.dispatchButton(ev)
	}
	for _, ev := range s.buckets.clientMessages {
		s.dispatchClientMessage(ev)
	}
	for _, ev := range s.buckets.colormapNotifies {
		s.processColormapNotify(ev)
	}
	for _, ev := range s.buckets.motionNotifies {
		s.applyMotion(ev)
	}

	for w, req := range s.buckets.configureRequests {
		s.reconcileConfigureRequest(w, req)
	}
	for w, ev := range s.buckets.configureNotifies {
		s.processConfigureNotify(w, ev)
	}

	s.syncVisibility()
	s.collectDamage()
}

// collectDamage feeds this tick's unioned Expose/Damage rectangles
// into the damage tracker the renderer adapter consumes at commit.
func (s *Server) collectDamage() {
	for w, r := range s.buckets.exposeRegions {
		if h, ok := s.frameOwner(w); ok {
			s.damage.Add(h, r)
		}
	}
	for w, r := range s.buckets.damageRegions {
		if h, ok := s.frameOwner(w); ok {
			s.damage.Add(h, r)
		}
	}
}

func (s *Server) processDestroy(ev transport.Event) {
	if h, ok := s.windowToClient[ev.Window]; ok {
		s.unmanage(h)
		return
	}
	if h, ok := s.frameToClient[ev.Window]; ok {
		s.unmanage(h)
	}
}

func (s *Server) processUnmap(ev transport.Event) {
	h, ok := s.windowToClient[ev.Window]
	if !ok {
		return
	}
	hot := s.clients.Hot(h)
	if hot == nil {
		return
	}
	if hot.IgnoreUnmap > 0 {
		hot.IgnoreUnmap--
		return
	}
	s.unmanage(h)
}

func (s *Server) processMapRequest(ev transport.Event) {
	if _, already := s.windowToClient[ev.Window]; already {
		return
	}
	s.manage(ev.Window)
}

func (s *Server) processPropertyNotify(key propKey, ev transport.Event) {
	h, ok := s.windowToClient[key.window]
	if !ok {
		return
	}
	name := s.atoms.name(key.atom)
	if name == "" {
		return
	}
	if ev.Deleted {
		return
	}
	s.requeryProperty(h, key.window, name)
}

// processConfigureNotify records the server-reported geometry for a managed
// client window. A client we hold our own pending configure for keeps its
// Desired value; the notify only refreshes Current so workarea and placement
// math see what is actually on screen.
func (s *Server) processConfigureNotify(w transport.WindowID, ev transport.Event) {
	h, ok := s.windowToClient[w]
	if !ok {
		return
	}
	hot := s.clients.Hot(h)
	if hot == nil || hot.Dirty&DirtyGeom != 0 {
		return
	}
	hot.Current = ev.Geometry
}

// reconcileConfigureRequest applies a coalesced ConfigureRequest against
// hints/rules, producing a dirty client.
func (s *Server) reconcileConfigureRequest(w transport.WindowID, req configureReq) {
	h, ok := s.windowToClient[w]
	if !ok {
		return
	}
	hot := s.clients.Hot(h)
	if hot == nil {
		return
	}
	geom := hot.Desired
	if req.mask&transport.ConfigX != 0 {
		geom.X = req.geom.X
	}
	if req.mask&transport.ConfigY != 0 {
		geom.Y = req.geom.Y
	}
	if req.mask&transport.ConfigWidth != 0 {
		geom.Width = req.geom.Width
	}
	if req.mask&transport.ConfigHeight != 0 {
		geom.Height = req.geom.Height
	}
	geom = clampToHints(geom, hot.Hints)
	if geom != hot.Desired {
		hot.Desired = geom
		hot.Dirty |= DirtyGeom
		s.buckets.markDirty(h)
	}
}

// commit performs phase (d): one configure/stack/property write per dirty
// client, then root properties, then flush. The tick buckets are reset at
// the start of the next Tick.
func (s *Server) commit() {
	s.commitProperties()
	s.damage.Flush(s.renderer)
	if wouldBlock, err := s.tr.Flush(); err != nil {
		s.log.Warn("flush failed", "error", err)
	} else {
		s.pendingFlush = wouldBlock
	}
}
