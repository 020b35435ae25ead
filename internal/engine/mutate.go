package engine

import (
	"log/slog"
	"slices"

	"github.com/roach88/nodeflow/internal/packet"
)

// Direction names one of a node's two packet lists.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// RemovePacket removes a packet from the named list of a node.
//
// Removing from the outgoing list cascades: every copy of that packet id
// is stripped from all incoming lists in the graph, and subscribers receive
// an EventRemove for each affected node. Only outgoing removals are
// published to the broadcast hook; dropping an incoming packet changes this
// engine's view, not the producer's state, so peers are not told. Removing
// an id that does not exist is a no-op.
func (e *Engine) RemovePacket(nodeID, packetID string, dir Direction) {
	e.mu.Lock()
	var events []event
	var broadcast *packet.Packet
	switch dir {
	case DirectionOutgoing:
		list := e.outgoing[nodeID]
		i := findPacket(list, packetID)
		if i < 0 {
			e.mu.Unlock()
			return
		}
		pkt := list[i]
		e.outgoing[nodeID] = append(list[:i], list[i+1:]...)
		events = append(events, event{nodeID: nodeID, pkt: pkt, kind: EventRemove})
		events = append(events, e.cascadeRemoveLocked(packetID)...)
		broadcast = pkt

	case DirectionIncoming:
		list := e.incoming[nodeID]
		i := findPacket(list, packetID)
		if i < 0 {
			e.mu.Unlock()
			return
		}
		pkt := list[i]
		e.incoming[nodeID] = append(list[:i], list[i+1:]...)
		events = append(events, event{nodeID: nodeID, pkt: pkt, kind: EventRemove})

	default:
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	slog.Debug("packet removed", "node", nodeID, "packet", packetID, "direction", string(dir))
	e.deliver(events)
	if broadcast != nil {
		e.publish(Broadcast{Op: BroadcastRemove, NodeID: nodeID, Packet: broadcast})
	}
}

// cascadeRemoveLocked strips every copy of a packet id from all incoming
// lists. Node iteration is sorted for deterministic notification order.
func (e *Engine) cascadeRemoveLocked(packetID string) []event {
	var events []event
	for _, nodeID := range sortedKeys(e.incoming) {
		list := e.incoming[nodeID]
		i := findPacket(list, packetID)
		if i < 0 {
			continue
		}
		pkt := list[i]
		e.incoming[nodeID] = append(list[:i], list[i+1:]...)
		events = append(events, event{nodeID: nodeID, pkt: pkt, kind: EventRemove})
	}
	return events
}

// ReplacePacket merges new content into an existing outgoing packet.
//
// The id is preserved, the timestamp refreshed, and the updated packet
// re-propagated downstream, so replacement is observationally identical to
// a live-update add. A nil payload keeps the existing one (title-only
// merge); an empty title keeps the existing title. Unknown packet ids are
// a no-op returning nil.
func (e *Engine) ReplacePacket(nodeID, packetID, sourceTitle string, payload packet.Payload) *packet.Packet {
	e.mu.Lock()
	list := e.outgoing[nodeID]
	i := findPacket(list, packetID)
	if i < 0 {
		e.mu.Unlock()
		return nil
	}
	pkt := list[i]
	if sourceTitle != "" {
		pkt.SourceTitle = sourceTitle
	}
	if payload != nil {
		pkt.Kind = payload.Kind()
		pkt.Payload = payload
		pkt.ExternalRef = nil
	}
	pkt.Timestamp = e.now()

	events := []event{{nodeID: nodeID, pkt: pkt, kind: EventUpdate}}
	events = append(events, e.propagateLocked(pkt, nodeID)...)
	e.mu.Unlock()

	slog.Debug("packet replaced", "node", nodeID, "packet", packetID)
	e.deliver(events)
	e.publish(Broadcast{Op: BroadcastReplace, NodeID: nodeID, Packet: pkt})
	if payload != nil {
		e.scheduleUpgrade(nodeID, pkt)
	}
	return pkt
}

// RemoveNode tears down all engine state for a destroyed node: its
// connections, every packet it produced (cascade-removed everywhere, since
// their ultimate source is gone), and its own packet lists. Packets that
// merely transited the node from still-live sources are stripped from
// nodes those sources can no longer reach.
//
// Called by the node collaborator when a canvas node is destroyed.
func (e *Engine) RemoveNode(nodeID string) {
	e.mu.Lock()
	peers := e.graph.RemoveForNode(nodeID)

	var events []event
	for _, pkt := range e.outgoing[nodeID] {
		events = append(events, e.cascadeRemoveLocked(pkt.ID)...)
	}
	delete(e.outgoing, nodeID)
	delete(e.incoming, nodeID)

	events = append(events, e.pruneUnreachableLocked()...)
	e.mu.Unlock()

	slog.Debug("node removed", "node", nodeID, "peers", len(peers))
	e.deliver(events)
}

// sortedKeys returns map keys in ascending order so that multi-node
// notification sequences are deterministic.
func sortedKeys(m map[string][]*packet.Packet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
