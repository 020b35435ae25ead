package engine

import (
	"sync"
	"time"

	"github.com/roach88/nodeflow/internal/graph"
	"github.com/roach88/nodeflow/internal/packet"
)

// EventKind classifies a subscriber notification.
type EventKind string

const (
	// EventUpdate signals a packet was added or its value changed.
	// Replacements and external-ref attachments reuse this kind with the
	// unchanged packet id: consumers treat it as the same card updated.
	EventUpdate EventKind = "update"
	// EventRemove signals a packet left a node's list.
	EventRemove EventKind = "remove"
)

// Subscriber receives store mutation notifications.
//
// The packet is the live object, passed for read access and cheap identity
// comparison by id. Subscribers must not mutate it and must not call back
// into engine mutations from inside the callback.
type Subscriber func(nodeID string, pkt *packet.Packet, kind EventKind)

// event is a pending notification collected during a mutation and
// delivered after the engine lock is released.
type event struct {
	nodeID string
	pkt    *packet.Packet
	kind   EventKind
}

// BroadcastOp classifies an outbound transport broadcast.
type BroadcastOp string

const (
	BroadcastAdd     BroadcastOp = "add"
	BroadcastReplace BroadcastOp = "replace"
	BroadcastRemove  BroadcastOp = "remove"
)

// Broadcast describes a locally originated mutation for a transport
// collaborator to relay to peers. Remote-injected packets are never
// re-broadcast, which prevents echo loops between peers.
type Broadcast struct {
	Op     BroadcastOp
	NodeID string
	Packet *packet.Packet
}

// Engine is the packet store and propagation core for one open project.
//
// All public mutations are atomic: state is mutated and propagation
// completes under a single lock acquisition, then notifications are
// delivered. See the package documentation for the concurrency model.
type Engine struct {
	mu    sync.Mutex
	graph *graph.Graph

	// outgoing holds packets produced by each node, in production order.
	// incoming holds packets received by each node, in arrival order,
	// deduplicated by packet id.
	outgoing map[string][]*packet.Packet
	incoming map[string][]*packet.Packet

	subs    []subscription
	nextSub int

	broadcast chan<- Broadcast

	content     ContentStore
	inlineLimit int
	upgrades    sync.WaitGroup

	idGen IDGenerator
	now   func() int64
}

type subscription struct {
	id int
	fn Subscriber
}

// Option configures an Engine.
type Option func(*Engine)

// WithBroadcast sets the transport hook channel. Sends are non-blocking:
// a full or absent channel drops the broadcast, never stalls a mutation.
// The engine's invariants hold with zero transport listeners.
func WithBroadcast(ch chan<- Broadcast) Option {
	return func(e *Engine) {
		e.broadcast = ch
	}
}

// WithContentStore enables the asynchronous external content upgrade path.
// Payloads classified as offloadable (see Offloadable) are persisted to the
// store out-of-band after the synchronous add completes.
func WithContentStore(cs ContentStore) Option {
	return func(e *Engine) {
		e.content = cs
	}
}

// WithInlineLimit overrides the text payload size above which content is
// offloaded. Default: DefaultInlineLimit.
func WithInlineLimit(n int) Option {
	return func(e *Engine) {
		e.inlineLimit = n
	}
}

// WithIDGenerator overrides packet id generation.
// Production uses UUIDv7Generator; tests and the scenario harness inject
// deterministic generators.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.idGen = g
	}
}

// WithNow overrides the packet timestamp source (Unix milliseconds).
// Used for deterministic golden traces.
func WithNow(now func() int64) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine over the given connection graph.
// The graph is owned by the engine from here on: mutate it only through
// engine operations so propagation and pruning stay consistent.
func New(g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:       g,
		outgoing:    make(map[string][]*packet.Packet),
		incoming:    make(map[string][]*packet.Packet),
		inlineLimit: DefaultInlineLimit,
		idGen:       UUIDv7Generator{},
		now:         func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers a callback for store mutations and returns its
// unsubscribe function. Callbacks fire in subscription order.
func (e *Engine) Subscribe(fn Subscriber) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextSub++
	id := e.nextSub
	e.subs = append(e.subs, subscription{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// deliver notifies all subscribers of the collected events.
// Must be called WITHOUT the engine lock held.
func (e *Engine) deliver(events []event) {
	if len(events) == 0 {
		return
	}

	e.mu.Lock()
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, ev := range events {
		for _, s := range subs {
			s.fn(ev.nodeID, ev.pkt, ev.kind)
		}
	}
}

// publish sends a broadcast to the transport hook without blocking.
// Fire-and-forget: correctness never depends on the transport draining.
func (e *Engine) publish(b Broadcast) {
	if e.broadcast == nil {
		return
	}
	select {
	case e.broadcast <- b:
	default:
	}
}

// Outgoing returns a copy of a node's outgoing packet list.
// The packets themselves are live; treat them as read-only.
func (e *Engine) Outgoing(nodeID string) []*packet.Packet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyList(e.outgoing[nodeID])
}

// Incoming returns a copy of a node's incoming packet list.
func (e *Engine) Incoming(nodeID string) []*packet.Packet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyList(e.incoming[nodeID])
}

// Graph returns the engine's connection graph.
// Mutate it only through engine operations.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

func copyList(src []*packet.Packet) []*packet.Packet {
	if len(src) == 0 {
		return nil
	}
	out := make([]*packet.Packet, len(src))
	copy(out, src)
	return out
}

// findPacket returns the index of a packet id in a list, or -1.
func findPacket(list []*packet.Packet, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}
