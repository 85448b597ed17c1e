package scenario

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occupancy-planner/planner"
)

func TestGraphGeoJSON(t *testing.T) {
	s := &Scenario{
		Nodes: []NodeSpec{
			{Label: "A", X: 0, Y: 0},
			{Label: "B", X: 100, Y: 0},
			{Label: "C", X: 200, Y: 0, Altitude: 1000},
		},
		Edges: []EdgeSpec{
			{From: "A", To: "B", Bidirectional: true},
			{From: "B", To: "C", Bidirectional: true},
		},
		Start:       "A",
		Destination: "B",
	}
	nav := planner.NewNavigator(planner.DefaultConfig(), nil)
	_, err := s.Apply(nav)
	require.NoError(t, err)
	require.True(t, nav.StartPathfinding())

	fc := GraphGeoJSON(nav.Snapshot())
	require.Len(t, fc.Features, 3+4+1)

	kinds := make(map[string]int)
	nullWeights := 0
	for _, f := range fc.Features {
		kinds[f.Properties.MustString("kind")]++
		if f.Properties["kind"] == "edge" && f.Properties["weight"] == nil {
			nullWeights++
		}
	}
	assert.Equal(t, map[string]int{"node": 3, "edge": 4, "path": 1}, kinds)
	assert.Equal(t, 2, nullWeights, "both edges touching C are too steep")

	last := fc.Features[len(fc.Features)-1]
	assert.Equal(t, orb.LineString{{0, 0}, {100, 0}}, last.Geometry)

	raw, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"FeatureCollection"`)
}

func TestGraphGeoJSONWithoutRoute(t *testing.T) {
	fc := GraphGeoJSON(planner.Snapshot{})
	assert.Empty(t, fc.Features)
}

const obstaclesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "tower"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[20,20],[30,20],[30,30],[20,20]]],
       [[[40,40],[50,40],[50,50],[40,40]]]
     ]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Point", "coordinates": [5,5]}}
  ]
}`

func TestLoadObstacles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.geojson")
	require.NoError(t, os.WriteFile(path, []byte(obstaclesGeoJSON), 0o644))

	rings, err := LoadObstacles(path)
	require.NoError(t, err)
	require.Len(t, rings, 3)
	assert.Len(t, rings[0], 5)
	assert.True(t, insideAny(orb.Point{5, 5}, rings))
}

func TestLoadObstaclesErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadObstacles(filepath.Join(dir, "missing.geojson"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.geojson")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadObstacles(bad)
	assert.Error(t, err)
}
