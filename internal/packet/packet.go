package packet

import (
	"encoding/json"
	"fmt"
)

// ContentRef points at externally persisted content for a packet whose
// payload was offloaded from the inline data field. Attaching a ref never
// changes the packet's identity.
type ContentRef struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Packet is the atomic unit of data exchanged between nodes.
//
// Identity is the ID field and is globally unique no matter how many nodes
// hold a copy. All other fields are mutable, but only through the engine's
// replace/remove operations - producers and subscribers must never mutate a
// packet in place.
type Packet struct {
	ID           string
	SourceNodeID string
	// SourceTitle caches the producing node's display title at creation
	// time so consumers can label cards without a node lookup.
	SourceTitle string
	// Kind is the payload type tag; it always matches Payload.Kind().
	Kind string
	// Timestamp is Unix milliseconds of creation or last replacement.
	Timestamp   int64
	Payload     Payload
	ExternalRef *ContentRef
}

// packetJSON is the persisted wire shape. Field names follow the project
// file layout: the kind tag serializes as "type" and the payload as "data".
type packetJSON struct {
	ID           string          `json:"id"`
	SourceNodeID string          `json:"source_node_id"`
	SourceTitle  string          `json:"source_title,omitempty"`
	Type         string          `json:"type"`
	Timestamp    int64           `json:"timestamp"`
	Data         json.RawMessage `json:"data"`
	ExternalRef  *ContentRef     `json:"external_ref,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p Packet) MarshalJSON() ([]byte, error) {
	data, err := EncodePayload(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("packet %s: %w", p.ID, err)
	}
	return json.Marshal(packetJSON{
		ID:           p.ID,
		SourceNodeID: p.SourceNodeID,
		SourceTitle:  p.SourceTitle,
		Type:         p.Kind,
		Timestamp:    p.Timestamp,
		Data:         data,
		ExternalRef:  p.ExternalRef,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The payload decodes through
// DecodePayload, so unknown kinds land as OpaquePayload rather than failing.
func (p *Packet) UnmarshalJSON(data []byte) error {
	var raw packetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := DecodePayload(raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("packet %s: %w", raw.ID, err)
	}
	p.ID = raw.ID
	p.SourceNodeID = raw.SourceNodeID
	p.SourceTitle = raw.SourceTitle
	p.Kind = raw.Type
	p.Timestamp = raw.Timestamp
	p.Payload = payload
	p.ExternalRef = raw.ExternalRef
	return nil
}

// Clone returns a deep-enough copy for snapshot isolation: the ContentRef
// is copied, the payload is shared (payload variants are value types and
// treated as immutable).
func (p *Packet) Clone() *Packet {
	c := *p
	if p.ExternalRef != nil {
		ref := *p.ExternalRef
		c.ExternalRef = &ref
	}
	return &c
}
