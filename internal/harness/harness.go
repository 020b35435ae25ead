// Package harness executes deterministic propagation scenarios.
//
// A scenario wires up a connection graph, drives a sequence of engine
// mutations, and asserts on the resulting packet lists. Every run uses a
// fresh engine with sequential packet ids and a counting clock, so two runs
// of the same scenario produce byte-identical traces - the property golden
// file comparison depends on.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	connections:
//	  - source: n1
//	    target: n2
//	steps:
//	  - add:
//	      node: n1
//	      kind: text
//	      value: "hello"
//	      label: greeting
//	  - remove:
//	      node: n1
//	      packet: greeting
//	assertions:
//	  - type: incoming_count
//	    node: n2
//	    count: 0
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - incoming_count: a node's incoming list has exactly N packets
//   - outgoing_count: a node's outgoing list has exactly N packets
//   - incoming_contains: a labeled packet is in a node's incoming list
//   - incoming_absent: a labeled packet is not in a node's incoming list
package harness

import (
	"fmt"

	"github.com/roach88/nodeflow/internal/engine"
	"github.com/roach88/nodeflow/internal/graph"
	"github.com/roach88/nodeflow/internal/packet"
)

// Harness drives one scenario against a fresh engine.
type Harness struct {
	engine *engine.Engine

	// packets maps scenario labels to generated packet ids.
	// connections maps scenario labels to connection ids.
	packets     map[string]string
	connections map[string]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh engine for isolation, with sequential
// packet ids ("pkt-1", "pkt-2", ...) and a counting millisecond clock.
//
// Execution flow:
// 1. Create a fresh engine and subscribe the trace recorder
// 2. Establish the declared connections
// 3. Execute steps in order, resolving packet and connection labels
// 4. Evaluate assertions against the final packet lists
func Run(scenario *Scenario) (*Result, error) {
	var tick int64
	eng := engine.New(graph.New(),
		engine.WithIDGenerator(engine.NewSequenceGenerator("pkt")),
		engine.WithNow(func() int64 { tick++; return tick }),
	)

	h := &Harness{
		engine:      eng,
		packets:     make(map[string]string),
		connections: make(map[string]string),
	}

	result := NewResult()

	var seq int64
	eng.Subscribe(func(nodeID string, pkt *packet.Packet, kind engine.EventKind) {
		seq++
		result.Trace = append(result.Trace, TraceEvent{
			Event:  string(kind),
			Node:   nodeID,
			Packet: pkt.ID,
			Kind:   pkt.Kind,
			Seq:    seq,
		})
	})

	for i, c := range scenario.Connections {
		if err := h.connect(&c); err != nil {
			return nil, fmt.Errorf("connections[%d]: %w", i, err)
		}
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(&step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for _, errMsg := range h.evaluateAssertions(scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (h *Harness) connect(c *ConnectionDef) error {
	sourcePin, targetPin, typ, err := connectionAttrs(c)
	if err != nil {
		return err
	}

	conn := h.engine.Connect(c.Source, c.Target, sourcePin, targetPin, typ)
	if conn == nil {
		return fmt.Errorf("duplicate connection %s -> %s", c.Source, c.Target)
	}
	if c.Label != "" {
		h.connections[c.Label] = conn.ID
	}
	return nil
}

// connectionAttrs resolves a connection's optional pin and type fields,
// defaulting to a right->left curve.
func connectionAttrs(c *ConnectionDef) (graph.Pin, graph.Pin, graph.ConnectionType, error) {
	sourcePin, err := parsePin(c.SourcePin, graph.PinRight)
	if err != nil {
		return "", "", "", fmt.Errorf("source_pin: %w", err)
	}
	targetPin, err := parsePin(c.TargetPin, graph.PinLeft)
	if err != nil {
		return "", "", "", fmt.Errorf("target_pin: %w", err)
	}
	typ, err := parseConnectionType(c.Type)
	if err != nil {
		return "", "", "", err
	}
	return sourcePin, targetPin, typ, nil
}

func parsePin(s string, def graph.Pin) (graph.Pin, error) {
	switch s {
	case "":
		return def, nil
	case "left":
		return graph.PinLeft, nil
	case "right":
		return graph.PinRight, nil
	default:
		return "", fmt.Errorf("unknown pin %q", s)
	}
}

func parseConnectionType(s string) (graph.ConnectionType, error) {
	switch s {
	case "", "curve":
		return graph.TypeCurve, nil
	case "elbow":
		return graph.TypeElbow, nil
	case "straight":
		return graph.TypeStraight, nil
	default:
		return "", fmt.Errorf("unknown connection type %q", s)
	}
}

func (h *Harness) executeStep(s *Step) error {
	switch {
	case s.Add != nil:
		return h.executeAdd(s.Add)
	case s.Replace != nil:
		return h.executeReplace(s.Replace)
	case s.Remove != nil:
		return h.executeRemove(s.Remove)
	case s.Connect != nil:
		return h.connect(s.Connect)
	case s.Disconnect != "":
		connID, ok := h.connections[s.Disconnect]
		if !ok {
			return fmt.Errorf("unknown connection label %q", s.Disconnect)
		}
		h.engine.Disconnect(connID)
		return nil
	case s.RemoveNode != "":
		h.engine.RemoveNode(s.RemoveNode)
		return nil
	default:
		return fmt.Errorf("empty step")
	}
}

func (h *Harness) executeAdd(a *AddStep) error {
	payload, err := buildPayload(a.Kind, a.Value)
	if err != nil {
		return err
	}

	pol := engine.Append()
	switch a.Policy {
	case "replace":
		targetID, ok := h.packets[a.Target]
		if !ok {
			return fmt.Errorf("unknown packet label %q", a.Target)
		}
		pol = engine.ReplaceByID(targetID)
	case "live_update":
		pol = engine.LiveUpdate()
	}

	pkt := h.engine.AddPacket(a.Node, a.Title, payload, pol)
	if a.Label != "" {
		h.packets[a.Label] = pkt.ID
	}
	return nil
}

func (h *Harness) executeReplace(r *ReplaceStep) error {
	packetID, ok := h.packets[r.Packet]
	if !ok {
		return fmt.Errorf("unknown packet label %q", r.Packet)
	}

	var payload packet.Payload
	if r.Kind != "" {
		var err error
		payload, err = buildPayload(r.Kind, r.Value)
		if err != nil {
			return err
		}
	}

	if h.engine.ReplacePacket(r.Node, packetID, r.Title, payload) == nil {
		return fmt.Errorf("packet %q not found at node %q", r.Packet, r.Node)
	}
	return nil
}

func (h *Harness) executeRemove(r *RemoveStep) error {
	packetID, ok := h.packets[r.Packet]
	if !ok {
		return fmt.Errorf("unknown packet label %q", r.Packet)
	}

	dir := engine.DirectionOutgoing
	if r.From == "incoming" {
		dir = engine.DirectionIncoming
	}
	h.engine.RemovePacket(r.Node, packetID, dir)
	return nil
}

// buildPayload constructs a payload from a scenario kind and value.
// Binary kinds (image, file) are not expressible in scenario YAML.
func buildPayload(kind, value string) (packet.Payload, error) {
	switch kind {
	case packet.KindText:
		return packet.TextPayload{Content: value}, nil
	case packet.KindColor:
		return packet.ColorPayload{Value: value}, nil
	case packet.KindURL:
		return packet.URLPayload{Href: value}, nil
	case packet.KindSVG:
		return packet.SVGPayload{Markup: value}, nil
	case packet.KindHTML:
		return packet.HTMLPayload{Markup: value}, nil
	default:
		return nil, fmt.Errorf("unsupported payload kind %q", kind)
	}
}
