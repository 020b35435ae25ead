// Package engine implements the node dataflow propagation engine.
//
// The engine owns the packet store: per-node ordered lists of outgoing
// packets (produced by that node) and incoming packets (received from
// upstream producers through the connection graph). Whenever a packet is
// added or replaced, a breadth-first traversal fans it out to every node
// reachable from its source.
//
// ARCHITECTURE:
//
// Single-Writer Mutations:
// Every public mutation (AddPacket, RemovePacket, ReplacePacket,
// Connect, RemoveNode, Deserialize, Reset) executes atomically: the engine
// takes its lock, mutates graph and store, collects the resulting
// notifications, and only then releases the lock and delivers them. A
// mutation is never observed half-propagated, and propagation for one call
// completes fully before the call returns.
//
// Suspension Points:
// Only the external content upgrade path runs asynchronously. The
// synchronous phase of AddPacket always completes - packet stored,
// propagated, subscribers notified - before the background content write
// begins. A listener may therefore transiently observe a packet without its
// external ref; the follow-up notification carries the same packet id.
//
// Failure Policy:
// Nothing in this package is fatal and nothing errors across the public
// API. Structural no-ops (duplicate connection, missing packet id, dangling
// edge) return silently. A failed content write logs a warning and leaves
// the packet inline.
//
// One Engine per open project; there is no ambient instance. Construct with
// New and pass by reference to every component that needs it.
package engine
