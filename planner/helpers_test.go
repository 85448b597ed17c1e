package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	name string
	x, y float64
}

// fixture is a navigator over nodes one unit apart whose edge weights equal
// their length.
type fixture struct {
	nav   *Navigator
	ids   map[string]NodeID
	names map[NodeID]string
}

func unitConfig() Config {
	cfg := DefaultConfig()
	cfg.CostModel.AltitudeWeight = 0
	cfg.MinSeparation = 0.5
	cfg.NodeRadius = 0.25
	return cfg
}

func newFixture(t *testing.T, points ...point) *fixture {
	t.Helper()
	f := &fixture{
		nav:   NewNavigator(unitConfig(), nil),
		ids:   make(map[string]NodeID),
		names: make(map[NodeID]string),
	}
	for _, p := range points {
		id, ok := f.nav.AddNode(p.x, p.y, 0, p.name)
		require.True(t, ok, "add node %s", p.name)
		f.ids[p.name] = id
		f.names[id] = p.name
	}
	return f
}

// connect adds edges written as "A>B" (directed) or "A-B" (both ways).
func (f *fixture) connect(t *testing.T, specs ...string) {
	t.Helper()
	for _, spec := range specs {
		if from, to, ok := strings.Cut(spec, ">"); ok {
			require.True(t, f.nav.AddEdge(f.id(t, from), f.id(t, to)), spec)
			continue
		}
		a, b, ok := strings.Cut(spec, "-")
		require.True(t, ok, spec)
		require.True(t, f.nav.AddBidirectionalEdge(f.id(t, a), f.id(t, b)), spec)
	}
}

func (f *fixture) id(t *testing.T, name string) NodeID {
	t.Helper()
	id, ok := f.ids[name]
	require.True(t, ok, "unknown node %s", name)
	return id
}

func (f *fixture) labels(ids []NodeID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.names[id])
	}
	return out
}

func (f *fixture) route(t *testing.T, start, destination string) {
	t.Helper()
	require.True(t, f.nav.SetStart(f.id(t, start)))
	require.True(t, f.nav.SetDestination(f.id(t, destination)))
	f.nav.StartPathfinding()
}

func (f *fixture) path() []string {
	return f.labels(f.nav.Path().Nodes())
}

// line builds A-B-C along the x axis.
func line(t *testing.T) *fixture {
	f := newFixture(t, point{"A", 0, 0}, point{"B", 1, 0}, point{"C", 2, 0})
	f.connect(t, "A-B", "B-C")
	return f
}

// diamond builds A>B>D and A>C>D.
func diamond(t *testing.T) *fixture {
	f := newFixture(t, point{"A", 0, 0}, point{"B", 1, 0}, point{"C", 0, 1}, point{"D", 1, 1})
	f.connect(t, "A>B", "B>D", "A>C", "C>D")
	return f
}

// corridor builds A-B-C-D-E with a detour C-X-E around D.
func corridor(t *testing.T) *fixture {
	f := newFixture(t,
		point{"A", 0, 0}, point{"B", 1, 0}, point{"C", 2, 0}, point{"D", 3, 0}, point{"E", 4, 0},
		point{"X", 3, 1},
	)
	f.connect(t, "A-B", "B-C", "C-D", "D-E", "C-X", "X-E")
	return f
}
