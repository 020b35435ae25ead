package packet

import (
	"encoding/json"
	"fmt"
)

// Known payload kinds. The kind tag on a Packet selects which Payload
// variant its data field decodes into.
const (
	KindText  = "text"
	KindImage = "image"
	KindSVG   = "svg"
	KindHTML  = "html"
	KindFile  = "file"
	KindColor = "color"
	KindURL   = "url"
)

// Payload is a sealed interface over the closed set of payload variants.
// Only the types in this file implement it. Rendering code can type-switch
// exhaustively over the known variants and treat OpaquePayload as the
// catch-all.
type Payload interface {
	// Kind returns the type tag this payload serializes under.
	Kind() string
	payload() // Sealed - only these types implement it
}

// TextPayload is plain text content.
type TextPayload struct {
	Content string `json:"content"`
}

func (TextPayload) Kind() string { return KindText }
func (TextPayload) payload()     {}

// ImagePayload is raw image bytes with a MIME type.
// Data serializes as base64 (encoding/json default for []byte).
type ImagePayload struct {
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

func (ImagePayload) Kind() string { return KindImage }
func (ImagePayload) payload()     {}

// SVGPayload is vector graphic markup.
type SVGPayload struct {
	Markup string `json:"markup"`
}

func (SVGPayload) Kind() string { return KindSVG }
func (SVGPayload) payload()     {}

// HTMLPayload is an HTML fragment.
type HTMLPayload struct {
	Markup string `json:"markup"`
}

func (HTMLPayload) Kind() string { return KindHTML }
func (HTMLPayload) payload()     {}

// FilePayload is an arbitrary file attachment.
type FilePayload struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

func (FilePayload) Kind() string { return KindFile }
func (FilePayload) payload()     {}

// ColorPayload is a color swatch value (e.g. "#ff8800").
type ColorPayload struct {
	Value string `json:"value"`
}

func (ColorPayload) Kind() string { return KindColor }
func (ColorPayload) payload()     {}

// URLPayload is a link with an optional display title.
type URLPayload struct {
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

func (URLPayload) Kind() string { return KindURL }
func (URLPayload) payload()     {}

// OpaquePayload preserves data of an unknown kind byte-for-byte.
// Project files written by newer producers load, propagate, and save
// without loss; only rendering falls back to a generic card.
type OpaquePayload struct {
	RawKind string
	Raw     json.RawMessage
}

func (p OpaquePayload) Kind() string { return p.RawKind }
func (OpaquePayload) payload()       {}

// DecodePayload decodes raw payload JSON into the variant selected by kind.
// Unknown kinds decode to OpaquePayload; this never fails on an
// unrecognized tag, only on malformed JSON for a known one.
func DecodePayload(kind string, raw json.RawMessage) (Payload, error) {
	switch kind {
	case KindText:
		var p TextPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode text payload: %w", err)
		}
		return p, nil

	case KindImage:
		var p ImagePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode image payload: %w", err)
		}
		return p, nil

	case KindSVG:
		var p SVGPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode svg payload: %w", err)
		}
		return p, nil

	case KindHTML:
		var p HTMLPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode html payload: %w", err)
		}
		return p, nil

	case KindFile:
		var p FilePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode file payload: %w", err)
		}
		return p, nil

	case KindColor:
		var p ColorPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode color payload: %w", err)
		}
		return p, nil

	case KindURL:
		var p URLPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode url payload: %w", err)
		}
		return p, nil

	default:
		// Preserve a private copy - callers may reuse the raw buffer.
		rawCopy := make(json.RawMessage, len(raw))
		copy(rawCopy, raw)
		return OpaquePayload{RawKind: kind, Raw: rawCopy}, nil
	}
}

// EncodePayload serializes a payload variant to its data JSON.
func EncodePayload(p Payload) (json.RawMessage, error) {
	if op, ok := p.(OpaquePayload); ok {
		if len(op.Raw) == 0 {
			return json.RawMessage("{}"), nil
		}
		return op.Raw, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return data, nil
}

// ContentBytes returns the bytes that represent a payload's content for
// external storage and content addressing. For structured payloads this is
// the dominant content field, not the JSON envelope.
func ContentBytes(p Payload) []byte {
	switch v := p.(type) {
	case TextPayload:
		return []byte(v.Content)
	case ImagePayload:
		return v.Data
	case SVGPayload:
		return []byte(v.Markup)
	case HTMLPayload:
		return []byte(v.Markup)
	case FilePayload:
		return v.Data
	case ColorPayload:
		return []byte(v.Value)
	case URLPayload:
		return []byte(v.Href)
	case OpaquePayload:
		return []byte(v.Raw)
	default:
		return nil
	}
}
