package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/nodeflow/internal/packet"
)

// AssertionError is returned when an assertion fails.
// It includes the final list state to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Packets  []*packet.Packet
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Packets) > 0 {
		fmt.Fprintf(&buf, "\nList contents:\n")
		for i, p := range e.Packets {
			fmt.Fprintf(&buf, "  [%d] %s (%s from %s)\n", i+1, p.ID, p.Kind, p.SourceNodeID)
		}
	}

	return buf.String()
}

// evaluateAssertions evaluates all assertions against the final engine
// state. Returns a message per failed assertion.
func (h *Harness) evaluateAssertions(assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertIncomingCount:
			err = assertListCount(assertion.Type, h.engine.Incoming(assertion.Node), assertion)
		case AssertOutgoingCount:
			err = assertListCount(assertion.Type, h.engine.Outgoing(assertion.Node), assertion)
		case AssertIncomingContains:
			err = h.assertIncomingContains(assertion)
		case AssertIncomingAbsent:
			err = h.assertIncomingAbsent(assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertListCount checks a packet list's exact length.
func assertListCount(typ string, list []*packet.Packet, assertion Assertion) error {
	if len(list) != assertion.Count {
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("%d packets at node %s", assertion.Count, assertion.Node),
			Actual:   fmt.Sprintf("%d packets", len(list)),
			Packets:  list,
		}
	}
	return nil
}

// assertIncomingContains checks that the labeled packet reached the node,
// optionally with the expected text content.
func (h *Harness) assertIncomingContains(assertion Assertion) error {
	packetID, ok := h.packets[assertion.Packet]
	if !ok {
		return fmt.Errorf("incoming_contains: unknown packet label %q", assertion.Packet)
	}

	list := h.engine.Incoming(assertion.Node)
	for _, p := range list {
		if p.ID != packetID {
			continue
		}
		if assertion.Value == "" {
			return nil
		}
		txt, isText := p.Payload.(packet.TextPayload)
		if isText && txt.Content == assertion.Value {
			return nil
		}
		return &AssertionError{
			Type:     AssertIncomingContains,
			Expected: fmt.Sprintf("packet %s at node %s with text %q", assertion.Packet, assertion.Node, assertion.Value),
			Actual:   fmt.Sprintf("packet present with payload %v", p.Payload),
			Packets:  list,
		}
	}

	return &AssertionError{
		Type:     AssertIncomingContains,
		Expected: fmt.Sprintf("packet %s in incoming list of node %s", assertion.Packet, assertion.Node),
		Actual:   "not found",
		Packets:  list,
	}
}

// assertIncomingAbsent checks that the labeled packet did not reach (or no
// longer remains at) the node.
func (h *Harness) assertIncomingAbsent(assertion Assertion) error {
	packetID, ok := h.packets[assertion.Packet]
	if !ok {
		return fmt.Errorf("incoming_absent: unknown packet label %q", assertion.Packet)
	}

	list := h.engine.Incoming(assertion.Node)
	for _, p := range list {
		if p.ID == packetID {
			return &AssertionError{
				Type:     AssertIncomingAbsent,
				Expected: fmt.Sprintf("packet %s absent from incoming list of node %s", assertion.Packet, assertion.Node),
				Actual:   "packet present",
				Packets:  list,
			}
		}
	}
	return nil
}
