package engine

import (
	"log/slog"

	"github.com/roach88/nodeflow/internal/packet"
)

// Snapshot is the serialized packet store: two maps keyed by node id, each
// value an ordered packet list. It is the "packets" fragment of a persisted
// project file.
type Snapshot struct {
	Outgoing map[string][]*packet.Packet `json:"outgoing"`
	Incoming map[string][]*packet.Packet `json:"incoming"`
}

// Serialize captures the packet store for project save. Packets are cloned
// so later mutations do not bleed into the snapshot.
func (e *Engine) Serialize() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Outgoing: cloneStore(e.outgoing),
		Incoming: cloneStore(e.incoming),
	}
}

// Deserialize replaces the packet store from a persisted snapshot.
// No propagation or notifications follow: the snapshot already contains
// the incoming lists as they stood at save time.
func (e *Engine) Deserialize(snap Snapshot) {
	e.mu.Lock()
	e.outgoing = cloneStore(snap.Outgoing)
	e.incoming = cloneStore(snap.Incoming)
	if e.outgoing == nil {
		e.outgoing = make(map[string][]*packet.Packet)
	}
	if e.incoming == nil {
		e.incoming = make(map[string][]*packet.Packet)
	}
	e.mu.Unlock()

	slog.Info("packet store restored",
		"producers", len(snap.Outgoing),
		"consumers", len(snap.Incoming),
	)
}

// Reset clears both the packet store and the connection graph.
// Used when switching projects.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.outgoing = make(map[string][]*packet.Packet)
	e.incoming = make(map[string][]*packet.Packet)
	e.graph.Reset()
	e.mu.Unlock()

	slog.Info("engine reset")
}

func cloneStore(src map[string][]*packet.Packet) map[string][]*packet.Packet {
	if src == nil {
		return make(map[string][]*packet.Packet)
	}
	dst := make(map[string][]*packet.Packet, len(src))
	for nodeID, list := range src {
		if len(list) == 0 {
			continue
		}
		cloned := make([]*packet.Packet, len(list))
		for i, p := range list {
			cloned[i] = p.Clone()
		}
		dst[nodeID] = cloned
	}
	return dst
}
