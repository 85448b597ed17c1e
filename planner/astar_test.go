package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAStarLine(t *testing.T) {
	f := line(t)
	g := f.nav.Graph()

	nodes, cost, ok := AStar(g, f.id(t, "A"), f.id(t, "C"), 0)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C"}, f.labels(nodes))
	assert.InDelta(t, 2.0, cost, 1e-9)

	nodes, cost, ok = AStar(g, f.id(t, "C"), f.id(t, "A"), 0)
	require.True(t, ok)
	assert.Equal(t, []string{"C", "B", "A"}, f.labels(nodes))
	assert.InDelta(t, 2.0, cost, 1e-9)
}

func TestAStarSameNode(t *testing.T) {
	f := line(t)
	nodes, cost, ok := AStar(f.nav.Graph(), f.id(t, "B"), f.id(t, "B"), 0)
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, f.labels(nodes))
	assert.Zero(t, cost)
}

func TestAStarRespectsDirection(t *testing.T) {
	f := diamond(t)
	_, cost, ok := AStar(f.nav.Graph(), f.id(t, "D"), f.id(t, "A"), 0)
	assert.False(t, ok)
	assert.True(t, math.IsInf(cost, 1))
}

func TestAStarTieBreakIsDeterministic(t *testing.T) {
	f := diamond(t)
	for i := 0; i < 10; i++ {
		nodes, cost, ok := AStar(f.nav.Graph(), f.id(t, "A"), f.id(t, "D"), 0)
		require.True(t, ok)
		assert.Equal(t, []string{"A", "B", "D"}, f.labels(nodes))
		assert.InDelta(t, 2.0, cost, 1e-9)
	}
}

func TestAStarAvoidsOccupiedNodes(t *testing.T) {
	f := corridor(t)
	g := f.nav.Graph()
	d, _ := g.Node(f.id(t, "D"))

	nodes, _, ok := AStar(g, f.id(t, "A"), f.id(t, "E"), 0)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, f.labels(nodes))

	d.addOccupant(99)
	nodes, cost, ok := AStar(g, f.id(t, "A"), f.id(t, "E"), 0)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C", "X", "E"}, f.labels(nodes))
	assert.InDelta(t, 2+2*math.Sqrt2, cost, 1e-9)

	nodes, _, ok = AStar(g, f.id(t, "A"), f.id(t, "E"), 99)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, f.labels(nodes), "traveler ignores itself")
}

func TestAStarUnknownNodes(t *testing.T) {
	f := line(t)
	_, _, ok := AStar(f.nav.Graph(), 0, f.id(t, "A"), 0)
	assert.False(t, ok)
	_, _, ok = AStar(f.nav.Graph(), f.id(t, "A"), 42, 0)
	assert.False(t, ok)
}
