// Package packet defines the data model for the dataflow engine.
//
// A Packet is the atomic unit of data exchanged between canvas nodes. Its
// identity is the ID field: propagation hands the same packet to every
// reachable node, and every downstream copy (including serialized ones)
// carries the same ID.
//
// Payloads form a closed tagged union keyed by the packet's kind tag. Each
// known kind (text, image, svg, html, file, color, url) has a concrete
// variant; anything else round-trips as OpaquePayload so foreign project
// files survive a load/save cycle unchanged.
//
// Content addressing (ContentID) produces domain-separated SHA-256 ids for
// payload bytes. Text is NFC normalized first so visually identical strings
// hash identically.
package packet
