// Package graph owns the directed, pin-qualified connections between canvas
// nodes. Nodes themselves live elsewhere; the graph only references their
// ids and never creates or destroys them.
//
// All operations are total: invalid or unknown node ids are simply absent
// from results, never errors. The caller is responsible for node existence.
package graph

import (
	"github.com/google/uuid"
)

// Pin identifies which side of a node a connection attaches to.
type Pin string

const (
	PinLeft  Pin = "left"
	PinRight Pin = "right"
)

// ConnectionType is a rendering hint for the edge path. It carries no
// propagation semantics; changing it triggers nothing downstream.
type ConnectionType string

const (
	TypeCurve    ConnectionType = "curve"
	TypeElbow    ConnectionType = "elbow"
	TypeStraight ConnectionType = "straight"
)

// Connection is a directed edge from a source node to a target node.
// Cycles are permitted at the data level; traversal handles them.
type Connection struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Target    string         `json:"target"`
	SourcePin Pin            `json:"source_pin"`
	TargetPin Pin            `json:"target_pin"`
	Type      ConnectionType `json:"connection_type"`
	Color     string         `json:"color,omitempty"`
}

// Graph is the connection set for one open project. Construct one per
// project and pass it explicitly; there is no ambient instance.
//
// Not safe for concurrent use on its own - the engine serializes access.
type Graph struct {
	connections []*Connection
	bySource    map[string][]*Connection
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		bySource: make(map[string][]*Connection),
	}
}

// AddConnection creates a directed connection between two nodes.
//
// Returns nil without mutating anything if an equivalent connection already
// exists in either orientation: two edges between the same endpoints on the
// same pins render as one visual line regardless of direction, so the
// duplicate is rejected.
func (g *Graph) AddConnection(source, target string, sourcePin, targetPin Pin, typ ConnectionType) *Connection {
	if g.findEquivalent(source, target, sourcePin, targetPin) != nil {
		return nil
	}

	conn := &Connection{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Source:    source,
		Target:    target,
		SourcePin: sourcePin,
		TargetPin: targetPin,
		Type:      typ,
	}
	g.insert(conn)
	return conn
}

// findEquivalent locates a connection matching the (source, target,
// sourcePin, targetPin) tuple in either orientation.
func (g *Graph) findEquivalent(source, target string, sourcePin, targetPin Pin) *Connection {
	for _, c := range g.connections {
		if c.Source == source && c.Target == target &&
			c.SourcePin == sourcePin && c.TargetPin == targetPin {
			return c
		}
		// Reverse orientation with swapped pins is the same visual edge.
		if c.Source == target && c.Target == source &&
			c.SourcePin == targetPin && c.TargetPin == sourcePin {
			return c
		}
	}
	return nil
}

func (g *Graph) insert(conn *Connection) {
	g.connections = append(g.connections, conn)
	g.bySource[conn.Source] = append(g.bySource[conn.Source], conn)
}

// From returns the direct out-edges of a node in insertion order.
// The returned slice is a copy; the connections it points at are live.
func (g *Graph) From(nodeID string) []*Connection {
	edges := g.bySource[nodeID]
	if len(edges) == 0 {
		return nil
	}
	out := make([]*Connection, len(edges))
	copy(out, edges)
	return out
}

// RemoveForNode removes every connection where the node is source or
// target. It returns the de-duplicated opposite endpoints of the removed
// connections so the packet store can prune state that referenced the
// removed node.
func (g *Graph) RemoveForNode(nodeID string) []string {
	var kept []*Connection
	var affected []string
	seen := make(map[string]bool)

	for _, c := range g.connections {
		if c.Source != nodeID && c.Target != nodeID {
			kept = append(kept, c)
			continue
		}
		peer := c.Target
		if c.Target == nodeID {
			peer = c.Source
		}
		if peer != nodeID && !seen[peer] {
			seen[peer] = true
			affected = append(affected, peer)
		}
	}

	g.connections = kept
	g.reindex()
	return affected
}

// Remove deletes a single connection by id. Unknown ids are a no-op.
func (g *Graph) Remove(connectionID string) {
	for i, c := range g.connections {
		if c.ID == connectionID {
			g.connections = append(g.connections[:i], g.connections[i+1:]...)
			g.reindex()
			return
		}
	}
}

// SetType mutates a connection's rendering hint in place.
// No propagation follows; the type is presentation, not data.
func (g *Graph) SetType(conn *Connection, typ ConnectionType) {
	if conn == nil {
		return
	}
	conn.Type = typ
}

// Rebuild replaces the entire edge set from persisted project state.
// Connections without ids are assigned fresh ones; equivalent duplicates
// in the input are dropped, keeping the first occurrence.
func (g *Graph) Rebuild(conns []Connection) {
	g.Reset()
	for i := range conns {
		c := conns[i]
		if g.findEquivalent(c.Source, c.Target, c.SourcePin, c.TargetPin) != nil {
			continue
		}
		if c.ID == "" {
			c.ID = uuid.Must(uuid.NewV7()).String()
		}
		conn := c
		g.insert(&conn)
	}
}

// Connections returns a snapshot of the edge set for serialization.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, len(g.connections))
	for i, c := range g.connections {
		out[i] = *c
	}
	return out
}

// Len returns the number of connections.
func (g *Graph) Len() int {
	return len(g.connections)
}

// Reset clears the edge set. Used when switching projects.
func (g *Graph) Reset() {
	g.connections = nil
	g.bySource = make(map[string][]*Connection)
}

func (g *Graph) reindex() {
	g.bySource = make(map[string][]*Connection, len(g.connections))
	for _, c := range g.connections {
		g.bySource[c.Source] = append(g.bySource[c.Source], c)
	}
}
