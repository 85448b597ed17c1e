package planner

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStartAndDestination(t *testing.T) {
	f := line(t)
	pf := f.nav.Pathfinder()
	a, c := f.id(t, "A"), f.id(t, "C")

	require.True(t, pf.SetStart(a))
	require.True(t, pf.SetDestination(c))
	assert.True(t, pf.Pending())
	assert.Zero(t, pf.Path().Count(), "nothing is planned before the refresh")

	pf.Update(pf.RefreshInterval())
	first, _ := pf.Path().First()
	last, _ := pf.Path().Last()
	assert.Equal(t, a, first)
	assert.Equal(t, c, last)
	assert.InDelta(t, 2.0, pf.PathCost(), 1e-9)

	node, _ := f.nav.Graph().Node(a)
	assert.Equal(t, RoleStart, node.Role)
	node, _ = f.nav.Graph().Node(c)
	assert.Equal(t, RoleDestination, node.Role)
}

func TestStartAndDestinationAreExclusive(t *testing.T) {
	f := line(t)
	pf := f.nav.Pathfinder()
	a, b := f.id(t, "A"), f.id(t, "B")

	require.True(t, pf.SetStart(a))
	require.True(t, pf.SetDestination(b))

	require.True(t, pf.SetStart(b))
	assert.Equal(t, b, pf.Start())
	assert.Zero(t, pf.Destination(), "destination moved to start is cleared")

	node, _ := f.nav.Graph().Node(a)
	assert.Equal(t, RoleDefault, node.Role, "old start loses its role")

	require.True(t, pf.SetDestination(b))
	assert.Zero(t, pf.Start())
	assert.Equal(t, b, pf.Destination())

	assert.False(t, pf.SetStart(42))
}

func TestRefreshIsDebounced(t *testing.T) {
	f := line(t)
	pf := f.nav.Pathfinder()
	require.True(t, pf.SetStart(f.id(t, "A")))

	assert.False(t, pf.Update(200*time.Millisecond))
	require.True(t, pf.SetDestination(f.id(t, "C")))

	assert.False(t, pf.Update(200*time.Millisecond), "a new change restarts the timer")
	assert.Zero(t, pf.Replans())

	assert.True(t, pf.Update(50*time.Millisecond))
	assert.Equal(t, 1, pf.Replans())
	assert.False(t, pf.Pending())
	assert.Equal(t, []string{"A", "B", "C"}, f.path())

	assert.False(t, pf.Update(time.Second), "nothing pending")
	assert.Equal(t, 1, pf.Replans())
}

func TestDirtyReasons(t *testing.T) {
	f := line(t)
	pf := f.nav.Pathfinder()
	assert.Equal(t, ChangeTopology, pf.Dirty(), "building the graph")
	pf.Replan()

	require.True(t, pf.SetStart(f.id(t, "A")))
	assert.Equal(t, ChangeEndpoints, pf.Dirty())

	require.True(t, f.nav.RemoveEdge(f.id(t, "A"), f.id(t, "B")))
	assert.Equal(t, ChangeEndpoints|ChangeTopology, pf.Dirty())
	assert.Equal(t, "topology|endpoints", pf.Dirty().String())

	pf.Replan()
	assert.Zero(t, pf.Dirty())
	assert.Equal(t, "none", pf.Dirty().String())
}

func TestPathChangedNotifications(t *testing.T) {
	f := corridor(t)
	pf := f.nav.Pathfinder()
	var events []*Path
	pf.OnPathChanged(func(p *Path) { events = append(events, p) })

	f.route(t, "A", "E")
	require.Len(t, events, 1)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, f.labels(events[0].Nodes()))

	assert.False(t, pf.Replan())
	assert.Len(t, events, 1, "an identical route is not announced")

	require.True(t, f.nav.RemoveEdge(f.id(t, "X"), f.id(t, "E")))
	require.True(t, f.nav.RemoveEdge(f.id(t, "D"), f.id(t, "E")))
	assert.False(t, pf.Replan())
	assert.Zero(t, pf.Path().Count())
	assert.True(t, math.IsInf(pf.PathCost(), 1))
	assert.Len(t, events, 1, "losing the route is silent")

	require.True(t, f.nav.AddEdge(f.id(t, "X"), f.id(t, "E")))
	assert.True(t, pf.Replan())
	require.Len(t, events, 2)
	assert.Equal(t, []string{"A", "B", "C", "X", "E"}, f.labels(events[1].Nodes()))

	pf.ClearPath()
	require.Len(t, events, 3)
	assert.Zero(t, events[2].Count())
	assert.False(t, pf.Pending())
}

func TestBlockingOffPathKeepsRoute(t *testing.T) {
	f := corridor(t)
	f.route(t, "A", "E")
	before := f.nav.Path()

	require.True(t, f.nav.Block(f.id(t, "X")))
	assert.Empty(t, f.nav.Pathfinder().SplitPoints())
	assert.False(t, f.nav.Pathfinder().Pending())

	f.nav.Update(time.Second)
	assert.Same(t, before, f.nav.Path())
}

func TestBlockingOnPathSplitsAtPredecessor(t *testing.T) {
	f := corridor(t)
	pf := f.nav.Pathfinder()
	f.route(t, "A", "E")

	require.True(t, f.nav.Block(f.id(t, "D")))
	assert.Equal(t, []string{"C"}, f.labels(pf.SplitPoints()))
	assert.Equal(t, []string{"C"}, f.labels(pf.Waypoints()))
	assert.True(t, pf.Pending())

	f.nav.Update(pf.RefreshInterval())
	assert.Equal(t, []string{"A", "B", "C", "X", "E"}, f.path())
	assert.InDelta(t, 2+2*math.Sqrt2, pf.PathCost(), 1e-9)
}

func TestPreservedSegmentHonoursOccupancy(t *testing.T) {
	f := corridor(t)
	pf := f.nav.Pathfinder()
	f.route(t, "A", "E")

	require.True(t, f.nav.Block(f.id(t, "D")))
	pf.Replan()
	require.Equal(t, []string{"A", "B", "C", "X", "E"}, f.path())
	require.Equal(t, []string{"C"}, f.labels(pf.SplitPoints()))

	require.True(t, f.nav.Block(f.id(t, "B")))
	pf.Replan()
	assert.NotContains(t, f.path(), "B", "blocked node inside the kept segment")
	assert.Zero(t, pf.Path().Count(), "B is the only way from A to C")
	assert.True(t, math.IsInf(pf.PathCost(), 1))

	require.True(t, f.nav.Unblock(f.id(t, "B")))
	pf.Replan()
	assert.Equal(t, []string{"A", "B", "C", "X", "E"}, f.path())
	assert.InDelta(t, 2+2*math.Sqrt2, pf.PathCost(), 1e-9)
}

func TestBlockingNodeAfterStartDoesNotSplit(t *testing.T) {
	f := corridor(t)
	pf := f.nav.Pathfinder()
	f.route(t, "A", "E")

	require.True(t, f.nav.Block(f.id(t, "B")))
	assert.Empty(t, pf.SplitPoints(), "the start is already a stop")

	f.nav.Update(pf.RefreshInterval())
	assert.Zero(t, pf.Path().Count())
}

func TestSplitKeepsWaypointOrder(t *testing.T) {
	f := newFixture(t,
		point{"A", 0, 0}, point{"B", 1, 0}, point{"C", 2, 0}, point{"D", 3, 0},
		point{"E", 4, 0}, point{"F", 5, 0}, point{"Y", 4, 1},
	)
	f.connect(t, "A-B", "B-C", "C-D", "D-E", "E-F", "D-Y", "Y-F")
	pf := f.nav.Pathfinder()
	require.True(t, pf.AddWaypoint(f.id(t, "B"), -1))
	f.route(t, "A", "F")
	require.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, f.path())

	require.True(t, f.nav.Block(f.id(t, "E")))
	assert.Equal(t, []string{"B", "D"}, f.labels(pf.Waypoints()))
	assert.Equal(t, []string{"D"}, f.labels(pf.SplitPoints()))

	pf.Replan()
	assert.Equal(t, []string{"A", "B", "C", "D", "Y", "F"}, f.path())
}

func TestSegmentCostsSumToPathCost(t *testing.T) {
	f := newFixture(t,
		point{"A", 0, 0}, point{"B", 1, 0}, point{"C", 2, 0},
		point{"D", 0, 1}, point{"E", 1, 1}, point{"F", 2, 1},
	)
	f.connect(t, "A-B", "B-C", "A-D", "D-E", "E-F", "C-F", "B-E")
	g := f.nav.Graph()
	pf := f.nav.Pathfinder()

	require.True(t, g.SetAltitude(f.id(t, "E"), 1))
	require.True(t, pf.AddWaypoint(f.id(t, "E"), -1))
	require.True(t, pf.AddWaypoint(f.id(t, "C"), -1))
	f.route(t, "A", "F")

	nodes := pf.Path().Nodes()
	require.NotEmpty(t, nodes)
	assert.Equal(t, f.id(t, "A"), nodes[0])
	assert.Equal(t, f.id(t, "F"), nodes[len(nodes)-1])
	assert.True(t, pf.Path().HasNode(f.id(t, "E")))
	assert.True(t, pf.Path().HasNode(f.id(t, "C")))
	assert.Less(t, pf.Path().Index(f.id(t, "E")), pf.Path().Index(f.id(t, "C")))

	sum := 0.0
	for _, e := range pf.Path().Edges() {
		sum += g.EdgeCost(e.From, e.To, pf.Traveler())
	}
	assert.InDelta(t, sum, pf.PathCost(), 1e-9)
	assert.InDelta(t, sum, pf.Path().Cost(g, pf.Traveler()), 1e-9)
}

func TestWaypoints(t *testing.T) {
	f := corridor(t)
	pf := f.nav.Pathfinder()
	require.True(t, pf.SetStart(f.id(t, "A")))
	require.True(t, pf.SetDestination(f.id(t, "E")))

	assert.False(t, pf.AddWaypoint(f.id(t, "A"), -1), "start")
	assert.False(t, pf.AddWaypoint(f.id(t, "E"), -1), "destination")
	assert.False(t, pf.AddWaypoint(42, -1), "missing node")

	require.True(t, pf.AddWaypoint(f.id(t, "X"), -1))
	assert.False(t, pf.AddWaypoint(f.id(t, "X"), 0), "already a waypoint")
	require.True(t, pf.AddWaypoint(f.id(t, "B"), 0))
	assert.Equal(t, []string{"B", "X"}, f.labels(pf.Waypoints()))

	pf.Replan()
	assert.Equal(t, []string{"A", "B", "C", "X", "E"}, f.path())

	require.True(t, pf.RemoveWaypoint(f.id(t, "X")))
	assert.False(t, pf.RemoveWaypoint(f.id(t, "X")))
	pf.Replan()
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, f.path())

	require.True(t, pf.SetStart(f.id(t, "B")))
	assert.Empty(t, pf.Waypoints(), "a waypoint promoted to start leaves the list")
}

func TestClearNode(t *testing.T) {
	f := corridor(t)
	pf := f.nav.Pathfinder()
	f.route(t, "A", "E")
	require.True(t, pf.AddWaypoint(f.id(t, "C"), -1))

	assert.True(t, pf.ClearNode(f.id(t, "A")))
	assert.Zero(t, pf.Start())
	assert.True(t, pf.ClearNode(f.id(t, "C")))
	assert.Empty(t, pf.Waypoints())
	assert.False(t, pf.ClearNode(f.id(t, "B")))

	pf.Replan()
	assert.Zero(t, pf.Path().Count(), "no route without a start")
}

func TestRouteCost(t *testing.T) {
	f := corridor(t)
	pf := f.nav.Pathfinder()
	require.True(t, pf.AddWaypoint(f.id(t, "X"), -1))
	f.route(t, "A", "E")

	cost, ok := pf.RouteCost(f.id(t, "A"), f.id(t, "E"))
	require.True(t, ok)
	assert.InDelta(t, 2+2*math.Sqrt2, cost, 1e-9, "waypoints count for the planned endpoints")

	cost, ok = pf.RouteCost(f.id(t, "B"), f.id(t, "E"))
	require.True(t, ok)
	assert.InDelta(t, 3.0, cost, 1e-9)
}
