package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddConnection_Basic(t *testing.T) {
	g := New()

	conn := g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve)
	require.NotNil(t, conn)
	assert.NotEmpty(t, conn.ID)
	assert.Equal(t, "a", conn.Source)
	assert.Equal(t, "b", conn.Target)
	assert.Equal(t, 1, g.Len())
}

func TestAddConnection_DuplicateSameOrientation(t *testing.T) {
	g := New()

	require.NotNil(t, g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve))
	assert.Nil(t, g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve),
		"exact duplicate must be rejected")
	assert.Equal(t, 1, g.Len())
}

func TestAddConnection_DuplicateReverseOrientation(t *testing.T) {
	g := New()

	require.NotNil(t, g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve))
	assert.Nil(t, g.AddConnection("b", "a", PinLeft, PinRight, TypeCurve),
		"reverse orientation with swapped pins is the same visual edge")
	assert.Equal(t, 1, g.Len())
}

func TestAddConnection_DifferentPinsNotDuplicate(t *testing.T) {
	g := New()

	require.NotNil(t, g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve))
	assert.NotNil(t, g.AddConnection("a", "b", PinLeft, PinRight, TypeCurve),
		"same endpoints on different pins is a distinct edge")
	assert.Equal(t, 2, g.Len())
}

func TestAddConnection_SelfLoopAllowed(t *testing.T) {
	g := New()

	// Cycles are handled during traversal, not forbidden at the data level.
	assert.NotNil(t, g.AddConnection("a", "a", PinRight, PinLeft, TypeCurve))
}

func TestFrom(t *testing.T) {
	g := New()
	g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve)
	g.AddConnection("a", "c", PinRight, PinLeft, TypeCurve)
	g.AddConnection("b", "c", PinRight, PinLeft, TypeCurve)

	edges := g.From("a")
	require.Len(t, edges, 2)
	assert.Equal(t, "b", edges[0].Target)
	assert.Equal(t, "c", edges[1].Target)

	assert.Nil(t, g.From("missing"), "unknown node has no out-edges")
}

func TestFrom_ReturnsCopy(t *testing.T) {
	g := New()
	g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve)

	edges := g.From("a")
	edges[0] = nil

	require.Len(t, g.From("a"), 1)
	assert.NotNil(t, g.From("a")[0], "mutating the returned slice must not affect the graph")
}

func TestRemoveForNode(t *testing.T) {
	g := New()
	g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve)
	g.AddConnection("c", "a", PinRight, PinLeft, TypeCurve)
	g.AddConnection("b", "c", PinRight, PinLeft, TypeCurve)

	affected := g.RemoveForNode("a")

	assert.ElementsMatch(t, []string{"b", "c"}, affected)
	assert.Equal(t, 1, g.Len(), "only b->c survives")
	assert.Empty(t, g.From("a"))
	assert.Len(t, g.From("b"), 1)
}

func TestRemoveForNode_UnknownNodeIsNoop(t *testing.T) {
	g := New()
	g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve)

	assert.Empty(t, g.RemoveForNode("missing"))
	assert.Equal(t, 1, g.Len())
}

func TestRemove(t *testing.T) {
	g := New()
	conn := g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve)
	require.NotNil(t, conn)

	g.Remove(conn.ID)
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.From("a"))

	g.Remove("missing") // no-op
}

func TestSetType(t *testing.T) {
	g := New()
	conn := g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve)

	g.SetType(conn, TypeElbow)
	assert.Equal(t, TypeElbow, g.From("a")[0].Type)

	g.SetType(nil, TypeStraight) // no-op
}

func TestRebuild(t *testing.T) {
	g := New()
	g.AddConnection("x", "y", PinRight, PinLeft, TypeCurve)

	g.Rebuild([]Connection{
		{Source: "a", Target: "b", SourcePin: PinRight, TargetPin: PinLeft, Type: TypeElbow, Color: "#f80"},
		{ID: "conn-2", Source: "b", Target: "c", SourcePin: PinRight, TargetPin: PinLeft, Type: TypeCurve},
		// Reverse-orientation duplicate of the first entry: dropped.
		{Source: "b", Target: "a", SourcePin: PinLeft, TargetPin: PinRight, Type: TypeElbow},
	})

	assert.Equal(t, 2, g.Len())
	assert.Empty(t, g.From("x"), "rebuild replaces the previous edge set")

	edges := g.From("a")
	require.Len(t, edges, 1)
	assert.NotEmpty(t, edges[0].ID, "missing ids are assigned")
	assert.Equal(t, "#f80", edges[0].Color)
	assert.Equal(t, "conn-2", g.From("b")[0].ID, "existing ids are preserved")
}

func TestConnections_Snapshot(t *testing.T) {
	g := New()
	g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve)

	snap := g.Connections()
	require.Len(t, snap, 1)

	snap[0].Target = "z"
	assert.Equal(t, "b", g.From("a")[0].Target, "snapshot must not alias graph state")
}

func TestReset(t *testing.T) {
	g := New()
	g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve)

	g.Reset()
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.From("a"))
	assert.NotNil(t, g.AddConnection("a", "b", PinRight, PinLeft, TypeCurve),
		"graph is usable after reset")
}
