package engine

import (
	"log/slog"

	"github.com/roach88/nodeflow/internal/graph"
	"github.com/roach88/nodeflow/internal/packet"
)

// AddPacket stores a packet produced by nodeID and fans it out to every
// node reachable through the connection graph.
//
// The placement policy decides whether the packet becomes a new card
// (append) or overwrites an existing one in place, preserving its id
// (replace-by-id, live-update). Either way, propagation completes fully -
// all reachable nodes updated and subscribers notified - before the call
// returns. If a content store is configured and the payload classifies as
// offloadable, the external write is scheduled after return; the packet is
// available inline in the meantime.
//
// Returns the stored packet. A nil payload is a no-op returning nil.
func (e *Engine) AddPacket(nodeID, sourceTitle string, payload packet.Payload, pol Policy) *packet.Packet {
	if payload == nil {
		return nil
	}

	e.mu.Lock()
	pkt, replaced := e.placeLocked(nodeID, sourceTitle, payload, pol)
	events := []event{{nodeID: nodeID, pkt: pkt, kind: EventUpdate}}
	events = append(events, e.propagateLocked(pkt, nodeID)...)
	e.mu.Unlock()

	slog.Debug("packet added",
		"node", nodeID,
		"packet", pkt.ID,
		"kind", pkt.Kind,
		"replaced", replaced,
	)

	e.deliver(events)
	op := BroadcastAdd
	if replaced {
		op = BroadcastReplace
	}
	e.publish(Broadcast{Op: op, NodeID: nodeID, Packet: pkt})
	e.scheduleUpgrade(nodeID, pkt)
	return pkt
}

// AddRemotePacket injects an already-formed packet received from a peer
// through the transport collaborator. It stores and propagates exactly like
// a local add - overwriting in place when the id is already present - but
// is never published back to the broadcast hook, so peers do not echo each
// other's packets in a loop.
func (e *Engine) AddRemotePacket(nodeID string, pkt *packet.Packet) {
	if pkt == nil || pkt.ID == "" || pkt.Payload == nil {
		return
	}

	e.mu.Lock()
	list := e.outgoing[nodeID]
	if i := findPacket(list, pkt.ID); i >= 0 {
		list[i] = pkt
	} else {
		e.outgoing[nodeID] = append(list, pkt)
	}
	events := []event{{nodeID: nodeID, pkt: pkt, kind: EventUpdate}}
	events = append(events, e.propagateLocked(pkt, nodeID)...)
	e.mu.Unlock()

	slog.Debug("remote packet injected", "node", nodeID, "packet", pkt.ID)
	e.deliver(events)
}

// placeLocked applies the placement policy and returns the stored packet
// plus whether an existing packet was overwritten in place.
func (e *Engine) placeLocked(nodeID, sourceTitle string, payload packet.Payload, pol Policy) (*packet.Packet, bool) {
	list := e.outgoing[nodeID]

	var target *packet.Packet
	switch pol.Mode {
	case PolicyReplaceByID:
		if i := findPacket(list, pol.TargetID); i >= 0 {
			target = list[i]
		}
	case PolicyLiveUpdate:
		for _, p := range list {
			if p.Kind == payload.Kind() {
				target = p
				break
			}
		}
	}

	if target != nil {
		// In-place overwrite: id survives, content changes, the stale
		// external ref (if any) no longer describes the payload.
		target.SourceTitle = sourceTitle
		target.Kind = payload.Kind()
		target.Payload = payload
		target.Timestamp = e.now()
		target.ExternalRef = nil
		return target, true
	}

	pkt := &packet.Packet{
		ID:           e.idGen.Generate(),
		SourceNodeID: nodeID,
		SourceTitle:  sourceTitle,
		Kind:         payload.Kind(),
		Timestamp:    e.now(),
		Payload:      payload,
	}
	e.outgoing[nodeID] = append(list, pkt)
	return pkt, false
}

// propagateLocked runs the breadth-first fan-out of a packet from its
// source node.
//
// The visited set is local to this call and seeded with the source itself,
// which both suppresses self-loops (a node never receives its own packet)
// and bounds the traversal to O(V+E) regardless of cycles: each reachable
// node is visited at most once per pass, no matter how many paths lead to
// it. Edges naming nodes that no longer hold any state are traversed
// harmlessly - a dangling branch just yields an empty frontier.
func (e *Engine) propagateLocked(pkt *packet.Packet, sourceNodeID string) []event {
	visited := map[string]bool{sourceNodeID: true}

	var frontier []string
	for _, c := range e.graph.From(sourceNodeID) {
		frontier = append(frontier, c.Target)
	}

	var events []event
	for len(frontier) > 0 {
		nodeID := frontier[0]
		frontier = frontier[1:]
		if visited[nodeID] {
			continue
		}
		visited[nodeID] = true

		events = append(events, e.addIncomingLocked(nodeID, pkt))

		for _, c := range e.graph.From(nodeID) {
			if !visited[c.Target] {
				frontier = append(frontier, c.Target)
			}
		}
	}
	return events
}

// addIncomingLocked delivers a packet into a node's incoming list.
// A packet already present (same id) is overwritten in its existing slot,
// preserving arrival order; otherwise it is appended. Every delivery
// notifies subscribers with EventUpdate.
func (e *Engine) addIncomingLocked(nodeID string, pkt *packet.Packet) event {
	list := e.incoming[nodeID]
	if i := findPacket(list, pkt.ID); i >= 0 {
		list[i] = pkt
	} else {
		e.incoming[nodeID] = append(list, pkt)
	}
	return event{nodeID: nodeID, pkt: pkt, kind: EventUpdate}
}

// RepropagateOutputs replays propagation for every packet currently in a
// node's outgoing list. Called after a new connection forms so the new
// downstream receives the producer's current state without waiting for the
// next natural update.
func (e *Engine) RepropagateOutputs(nodeID string) {
	e.mu.Lock()
	events := e.repropagateLocked(nodeID)
	e.mu.Unlock()
	e.deliver(events)
}

func (e *Engine) repropagateLocked(nodeID string) []event {
	var events []event
	for _, pkt := range e.outgoing[nodeID] {
		events = append(events, e.propagateLocked(pkt, nodeID)...)
	}
	return events
}

// Connect adds a connection and immediately replays the source's outputs
// so the new downstream catches up. Returns nil (no-op, nothing replayed)
// when an equivalent connection already exists in either orientation.
func (e *Engine) Connect(source, target string, sourcePin, targetPin graph.Pin, typ graph.ConnectionType) *graph.Connection {
	e.mu.Lock()
	conn := e.graph.AddConnection(source, target, sourcePin, targetPin, typ)
	var events []event
	if conn != nil {
		events = e.repropagateLocked(source)
	}
	e.mu.Unlock()

	if conn == nil {
		return nil
	}
	slog.Debug("connection added", "source", source, "target", target)
	e.deliver(events)
	return conn
}

// Disconnect removes a single connection and strips incoming packets from
// nodes their origin can no longer reach. Unknown connection ids are a
// no-op.
func (e *Engine) Disconnect(connectionID string) {
	e.mu.Lock()
	e.graph.Remove(connectionID)
	events := e.pruneUnreachableLocked()
	e.mu.Unlock()
	e.deliver(events)
}

// pruneUnreachableLocked removes, for every producing node, its packet ids
// from the incoming lists of nodes that are no longer reachable from it.
// Node iteration is sorted so notification order is deterministic.
func (e *Engine) pruneUnreachableLocked() []event {
	var events []event
	for _, origin := range sortedKeys(e.outgoing) {
		pkts := e.outgoing[origin]
		if len(pkts) == 0 {
			continue
		}
		reach := e.reachableFromLocked(origin)
		for _, pkt := range pkts {
			for _, nodeID := range sortedKeys(e.incoming) {
				if nodeID == origin || reach[nodeID] {
					continue
				}
				if i := findPacket(e.incoming[nodeID], pkt.ID); i >= 0 {
					e.incoming[nodeID] = append(e.incoming[nodeID][:i], e.incoming[nodeID][i+1:]...)
					events = append(events, event{nodeID: nodeID, pkt: pkt, kind: EventRemove})
				}
			}
		}
	}
	return events
}

// reachableFromLocked computes the set of nodes reachable from origin.
// Origin itself is excluded: self-loop suppression means a node never
// holds its own packets, so it is never a pruning candidate either.
func (e *Engine) reachableFromLocked(origin string) map[string]bool {
	visited := map[string]bool{origin: true}
	reach := make(map[string]bool)

	var frontier []string
	for _, c := range e.graph.From(origin) {
		frontier = append(frontier, c.Target)
	}

	for len(frontier) > 0 {
		nodeID := frontier[0]
		frontier = frontier[1:]
		if visited[nodeID] {
			continue
		}
		visited[nodeID] = true
		reach[nodeID] = true
		for _, c := range e.graph.From(nodeID) {
			if !visited[c.Target] {
				frontier = append(frontier, c.Target)
			}
		}
	}
	return reach
}
