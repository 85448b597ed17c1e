package scenario

import (
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"occupancy-planner/planner"
)

// GraphGeoJSON renders a snapshot as a feature collection: one Point per
// node, one LineString per edge and, when a route exists, a LineString for it.
func GraphGeoJSON(snap planner.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	pos := make(map[planner.NodeID]orb.Point, len(snap.Nodes))

	for _, n := range snap.Nodes {
		p := orb.Point{n.X, n.Y}
		pos[n.ID] = p
		f := geojson.NewFeature(p)
		f.ID = int(n.ID)
		f.Properties["kind"] = "node"
		f.Properties["label"] = n.Label
		f.Properties["altitude"] = n.Altitude
		f.Properties["role"] = n.Role
		f.Properties["occupied"] = n.Occupied
		f.Properties["blocked"] = n.Blocked
		f.Properties["on_path"] = n.OnPath
		fc.Append(f)
	}

	for _, e := range snap.Edges {
		f := geojson.NewFeature(orb.LineString{pos[e.From], pos[e.To]})
		f.Properties["kind"] = "edge"
		f.Properties["from"] = int(e.From)
		f.Properties["to"] = int(e.To)
		if w := float64(e.Weight); math.IsInf(w, 0) {
			f.Properties["weight"] = nil
		} else {
			f.Properties["weight"] = w
		}
		f.Properties["on_path"] = e.OnPath
		fc.Append(f)
	}

	if len(snap.Path) >= 2 {
		ls := make(orb.LineString, 0, len(snap.Path))
		for _, id := range snap.Path {
			ls = append(ls, pos[id])
		}
		f := geojson.NewFeature(ls)
		f.Properties["kind"] = "path"
		f.Properties["cost"] = snap.PathCost
		fc.Append(f)
	}
	return fc
}

// LoadObstacles reads obstacle polygons from a GeoJSON feature collection.
// Only the outer ring of each Polygon or MultiPolygon member is kept; other
// geometry types are skipped.
func LoadObstacles(filename string) ([]orb.Ring, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("scenario: load obstacles %s: %w", filename, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("scenario: parse obstacles %s: %w", filename, err)
	}

	var rings []orb.Ring
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if len(g) > 0 {
				rings = append(rings, g[0])
			}
		case orb.MultiPolygon:
			for _, poly := range g {
				if len(poly) > 0 {
					rings = append(rings, poly[0])
				}
			}
		}
	}
	return rings, nil
}
