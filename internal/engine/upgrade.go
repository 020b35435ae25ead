package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/nodeflow/internal/packet"
)

// DefaultInlineLimit is the text payload size in bytes above which content
// is offloaded to the external store.
const DefaultInlineLimit = 10 * 1024

// ContentStore persists offloaded payload content out-of-band.
// Implemented by content.Store; tests substitute fakes.
type ContentStore interface {
	// Put stores payload bytes and returns a reference to them.
	// Put must be idempotent for identical content.
	Put(ctx context.Context, kind string, data []byte) (packet.ContentRef, error)
}

// Offloadable reports whether a payload should be persisted externally:
// inherently binary kinds (image, file, vector graphic) always, text-like
// kinds when their content exceeds the inline limit.
func Offloadable(p packet.Payload, inlineLimit int) bool {
	switch p.Kind() {
	case packet.KindImage, packet.KindFile, packet.KindSVG:
		return true
	case packet.KindColor, packet.KindURL:
		// Always tiny; never worth an external write.
		return false
	default:
		return len(packet.ContentBytes(p)) > inlineLimit
	}
}

// scheduleUpgrade starts the asynchronous external content upgrade for a
// packet whose payload classifies as offloadable. The synchronous add has
// already completed: the packet is stored, propagated, and announced
// inline. On success the same packet object gains its ExternalRef and
// subscribers are re-notified under the same id. On failure the packet
// silently stays inline - a warning diagnostic, not an error.
func (e *Engine) scheduleUpgrade(nodeID string, pkt *packet.Packet) {
	if e.content == nil || !Offloadable(pkt.Payload, e.inlineLimit) {
		return
	}

	data := offloadBytes(pkt.Payload)
	kind := pkt.Kind
	id := pkt.ID
	contentID := packet.ContentID(data)

	e.upgrades.Add(1)
	go func() {
		defer e.upgrades.Done()

		ref, err := e.content.Put(context.Background(), kind, data)
		if err != nil {
			slog.Warn("content upgrade failed, packet stays inline",
				"node", nodeID,
				"packet", id,
				"kind", kind,
				"error", err,
			)
			return
		}
		e.attachRef(nodeID, id, contentID, ref)
	}()
}

// offloadBytes returns the payload bytes as they are written to the
// content store. Text is normalized so that canonically equal strings
// share one blob.
func offloadBytes(p packet.Payload) []byte {
	if txt, ok := p.(packet.TextPayload); ok {
		return []byte(packet.NormalizeText(txt.Content))
	}
	return packet.ContentBytes(p)
}

// attachRef attaches an external content reference to a packet, if its
// payload still hashes to the content that was written. The packet may
// have been removed or overwritten while the write was in flight; the
// content id mismatch catches an overwrite even when it lands within the
// same clock tick as the original add, so the stale ref is dropped.
func (e *Engine) attachRef(nodeID, packetID, contentID string, ref packet.ContentRef) {
	e.mu.Lock()
	list := e.outgoing[nodeID]
	i := findPacket(list, packetID)
	if i < 0 || list[i].Payload == nil || packet.ContentID(offloadBytes(list[i].Payload)) != contentID {
		e.mu.Unlock()
		slog.Debug("content upgrade arrived for a removed or replaced packet", "packet", packetID)
		return
	}
	pkt := list[i]
	pkt.ExternalRef = &ref
	e.mu.Unlock()

	slog.Debug("content upgraded", "node", nodeID, "packet", packetID, "path", ref.Path)
	// Same id, same card: consumers treat this as a value update.
	e.deliver([]event{{nodeID: nodeID, pkt: pkt, kind: EventUpdate}})
}

// Flush blocks until all in-flight content upgrades settle.
// Called before project save/close and by tests asserting on ExternalRef.
func (e *Engine) Flush() {
	e.upgrades.Wait()
}
