package wm

import (
	"github.com/jopamo/hxm/internal/handle"
	"github.com/jopamo/hxm/internal/transport"
)

// layerInsert appends h to the top of layer l (most recent raise on top).
func (s *Server) layerInsert(h handle.Handle, l Layer) {
	hot := s.clients.Hot(h)
	if hot == nil {
		return
	}
	hot.Layer = l
	s.layers[l] = append(s.layers[l], h)
	s.reindexLayer(l)
	hot.Dirty |= DirtyStack
	s.buckets.markDirty(h)
	s.root.Dirty |= RootDirtyClientListStacking
}

func (s *Server) reindexLayer(l Layer) {
	for i, h := range s.layers[l] {
		if hot := s.clients.Hot(h); hot != nil {
			hot.StackIndex = i
		}
	}
}

func (s *Server) layerRemoveAt(l Layer, h handle.Handle) {
	list := s.layers[l]
	for i, cur := range list {
		if cur == h {
			s.layers[l] = append(list[:i], list[i+1:]...)
			s.reindexLayer(l)
			return
		}
	}
}

// stackRaise moves h to the top of its configured layer and recursively
// raises its live transient children above it.
func (s *Server) stackRaise(h handle.Handle) {
	hot := s.clients.Hot(h)
	if hot == nil {
		return
	}
	s.layerRemoveAt(hot.Layer, h)
	s.layers[hot.Layer] = append(s.layers[hot.Layer], h)
	s.reindexLayer(hot.Layer)
	hot.Dirty |= DirtyStack
	s.buckets.markDirty(h)
	s.root.Dirty |= RootDirtyClientListStacking

	child := hot.TransientChild
	for s.clients.Live(child) {
		childHot := s.clients.Hot(child)
		next := childHot.TransientSibling
		s.stackRaise(child)
		child = next
	}
}

// stackLower moves h to the bottom of its layer.
func (s *Server) stackLower(h handle.Handle) {
	hot := s.clients.Hot(h)
	if hot == nil {
		return
	}
	s.layerRemoveAt(hot.Layer, h)
	s.layers[hot.Layer] = append([]handle.Handle{h}, s.layers[hot.Layer]...)
	s.reindexLayer(hot.Layer)
	hot.Dirty |= DirtyStack
	s.buckets.markDirty(h)
	s.root.Dirty |= RootDirtyClientListStacking
}

// moveToLayer reassigns h's layer on a type/state change.
func (s *Server) moveToLayer(h handle.Handle, newLayer Layer) {
	hot := s.clients.Hot(h)
	if hot == nil || hot.Layer == newLayer {
		return
	}
	s.layerRemoveAt(hot.Layer, h)
	hot.Layer = newLayer
	s.layers[newLayer] = append(s.layers[newLayer], h)
	s.reindexLayer(newLayer)
	hot.Dirty |= DirtyStack
	s.buckets.markDirty(h)
	s.root.Dirty |= RootDirtyClientListStacking
}

func (s *Server) stackRemove(h handle.Handle, hot *ClientHot) {
	s.layerRemoveAt(hot.Layer, h)
	s.root.Dirty |= RootDirtyClientListStacking
}

// globalOrder returns the concatenation bottom-to-top of all layers, the
// order published as _NET_CLIENT_LIST_STACKING.
func (s *Server) globalOrder() []handle.Handle {
	var out []handle.Handle
	for l := Layer(0); l < layerCount; l++ {
		out = append(out, s.layers[l]...)
	}
	return out
}

// syncStacking emits the minimal restack request for h: if a peer exists
// immediately below it in global order use that peer as sibling, else
// stack-mode=above alone.
func (s *Server) syncStacking(h handle.Handle, hot *ClientHot) {
	order := s.globalOrder()
	var below transport.WindowID = transport.None
	for i, cur := range order {
		if cur == h {
			if i > 0 {
				if belowHot := s.clients.Hot(order[i-1]); belowHot != nil {
					below = belowHot.Frame
				}
			}
			break
		}
	}
	if below != transport.None {
		s.tr.ConfigureWindow(hot.Frame, transport.ConfigSibling|transport.ConfigStackMode, transport.Geometry{}, below, transport.StackAbove)
	} else {
		s.tr.ConfigureWindow(hot.Frame, transport.ConfigStackMode, transport.Geometry{}, transport.None, transport.StackAbove)
	}
}
