package scenario

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareObstacles(t *testing.T) {
	outer := orb.Ring{{0, 0}, {5, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	inner := square(5, 5, 2)
	open := orb.Ring{{20, 20}, {30, 20}, {30, 30}}
	line := orb.Ring{{40, 40}, {50, 50}}

	got := PrepareObstacles([]orb.Ring{outer, inner, open, line}, 0)
	require.Len(t, got, 2, "inner and degenerate rings are dropped")
	assert.Equal(t, outer, got[0])
	assert.True(t, got[1].Closed())
	assert.Len(t, got[1], 4)

	simplified := PrepareObstacles([]orb.Ring{outer}, 0.1)
	require.Len(t, simplified, 1)
	assert.Len(t, simplified[0], 5, "collinear corner removed")
	assert.Len(t, outer, 6, "input is not modified")
}

func TestPrepareObstaclesDuplicates(t *testing.T) {
	a := square(0, 0, 1)
	got := PrepareObstacles([]orb.Ring{a, a.Clone()}, 0)
	assert.Len(t, got, 1)
}
