package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a deterministic propagation test scenario.
// Scenarios wire up a connection graph, drive a sequence of store
// mutations, and assert on the resulting packet lists and trace.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Connections established before any step runs.
	Connections []ConnectionDef `yaml:"connections,omitempty"`

	// Steps are the mutations to drive, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final packet lists.
	// Supported types: incoming_count, outgoing_count, incoming_contains,
	// incoming_absent.
	Assertions []Assertion `yaml:"assertions"`
}

// ConnectionDef declares a directed connection between two nodes.
// Pins default to right->left, the type defaults to curve.
type ConnectionDef struct {
	Source    string `yaml:"source"`
	Target    string `yaml:"target"`
	SourcePin string `yaml:"source_pin,omitempty"`
	TargetPin string `yaml:"target_pin,omitempty"`
	Type      string `yaml:"type,omitempty"`

	// Label names this connection so a later disconnect step can
	// reference it.
	Label string `yaml:"label,omitempty"`
}

// Step is a single mutation. Exactly one field must be set.
type Step struct {
	Add        *AddStep       `yaml:"add,omitempty"`
	Replace    *ReplaceStep   `yaml:"replace,omitempty"`
	Remove     *RemoveStep    `yaml:"remove,omitempty"`
	Connect    *ConnectionDef `yaml:"connect,omitempty"`
	Disconnect string         `yaml:"disconnect,omitempty"` // connection label
	RemoveNode string         `yaml:"remove_node,omitempty"`
}

// AddStep produces a packet at a node.
type AddStep struct {
	Node  string `yaml:"node"`
	Title string `yaml:"title,omitempty"`

	// Kind selects the payload: text, color, url, svg, or html.
	// Value carries the single content field of that payload.
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`

	// Policy is append (default), replace, or live_update.
	// Target names the packet label to overwrite for the replace policy.
	Policy string `yaml:"policy,omitempty"`
	Target string `yaml:"target,omitempty"`

	// Label names the produced packet so later steps and assertions can
	// reference it.
	Label string `yaml:"label,omitempty"`
}

// ReplaceStep merges new content into an existing packet.
type ReplaceStep struct {
	Node   string `yaml:"node"`
	Packet string `yaml:"packet"` // packet label
	Title  string `yaml:"title,omitempty"`
	Kind   string `yaml:"kind,omitempty"`
	Value  string `yaml:"value,omitempty"`
}

// RemoveStep removes a packet from one of a node's lists.
type RemoveStep struct {
	Node   string `yaml:"node"`
	Packet string `yaml:"packet"`         // packet label
	From   string `yaml:"from,omitempty"` // outgoing (default) or incoming
}

// Assertion validates final packet lists.
type Assertion struct {
	// Type specifies the assertion type:
	// - "incoming_count": node's incoming list has exactly Count packets
	// - "outgoing_count": node's outgoing list has exactly Count packets
	// - "incoming_contains": node's incoming list holds the labeled packet,
	//   optionally with the given text value
	// - "incoming_absent": node's incoming list does not hold the labeled
	//   packet
	Type string `yaml:"type"`

	Node   string `yaml:"node"`
	Count  int    `yaml:"count,omitempty"`
	Packet string `yaml:"packet,omitempty"` // packet label
	Value  string `yaml:"value,omitempty"`  // expected text content
}

// Assertion type constants.
const (
	AssertIncomingCount    = "incoming_count"
	AssertOutgoingCount    = "outgoing_count"
	AssertIncomingContains = "incoming_contains"
	AssertIncomingAbsent   = "incoming_absent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, c := range s.Connections {
		if err := validateConnection(&c); err != nil {
			return fmt.Errorf("connections[%d]: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateConnection(c *ConnectionDef) error {
	if c.Source == "" || c.Target == "" {
		return fmt.Errorf("source and target are required")
	}
	return nil
}

// validateStep checks that exactly one operation is set and its required
// fields are present.
func validateStep(s *Step) error {
	ops := 0
	if s.Add != nil {
		ops++
	}
	if s.Replace != nil {
		ops++
	}
	if s.Remove != nil {
		ops++
	}
	if s.Connect != nil {
		ops++
	}
	if s.Disconnect != "" {
		ops++
	}
	if s.RemoveNode != "" {
		ops++
	}
	if ops != 1 {
		return fmt.Errorf("exactly one operation is required per step, got %d", ops)
	}

	switch {
	case s.Add != nil:
		if s.Add.Node == "" {
			return fmt.Errorf("add: node is required")
		}
		if s.Add.Kind == "" {
			return fmt.Errorf("add: kind is required")
		}
		switch s.Add.Policy {
		case "", "append", "live_update":
		case "replace":
			if s.Add.Target == "" {
				return fmt.Errorf("add: target is required for the replace policy")
			}
		default:
			return fmt.Errorf("add: unknown policy %q", s.Add.Policy)
		}
	case s.Replace != nil:
		if s.Replace.Node == "" || s.Replace.Packet == "" {
			return fmt.Errorf("replace: node and packet are required")
		}
	case s.Remove != nil:
		if s.Remove.Node == "" || s.Remove.Packet == "" {
			return fmt.Errorf("remove: node and packet are required")
		}
		switch s.Remove.From {
		case "", "outgoing", "incoming":
		default:
			return fmt.Errorf("remove: unknown list %q", s.Remove.From)
		}
	case s.Connect != nil:
		if err := validateConnection(s.Connect); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Node == "" {
		return fmt.Errorf("assertions[%d]: node is required", index)
	}

	switch a.Type {
	case AssertIncomingCount, AssertOutgoingCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertIncomingContains, AssertIncomingAbsent:
		if a.Packet == "" {
			return fmt.Errorf("assertions[%d]: packet is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
