package planner

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// pointTolerance gives point entries a non-degenerate box in the R-tree.
const pointTolerance = 1e-6

// nodeEntry wraps a node position for R-tree storage
type nodeEntry struct {
	id   NodeID
	pos  orb.Point
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *nodeEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// SpatialIndex answers proximity queries over node positions.
type SpatialIndex struct {
	tree    *rtreego.Rtree
	entries map[NodeID]*nodeEntry
}

// NewSpatialIndex creates an empty index.
func NewSpatialIndex() *SpatialIndex {
	return &SpatialIndex{
		tree:    rtreego.NewTree(2, 25, 50), // 2D, min 25, max 50 entries per node
		entries: make(map[NodeID]*nodeEntry),
	}
}

// Insert adds or replaces the entry for id. Positions with a NaN or infinite
// coordinate are rejected and leave any existing entry in place.
func (si *SpatialIndex) Insert(id NodeID, pos orb.Point) bool {
	if !finitePoint(pos) {
		return false
	}
	bbox, err := boxAround(pos, pointTolerance)
	if err != nil {
		return false
	}
	si.Remove(id)
	entry := &nodeEntry{id: id, pos: pos, bbox: bbox}
	si.entries[id] = entry
	si.tree.Insert(entry)
	return true
}

// Remove drops the entry for id. Missing ids are ignored.
func (si *SpatialIndex) Remove(id NodeID) {
	entry, ok := si.entries[id]
	if !ok {
		return
	}
	si.tree.Delete(entry)
	delete(si.entries, id)
}

// Len returns the number of indexed nodes.
func (si *SpatialIndex) Len() int {
	return len(si.entries)
}

// Within returns the ids of nodes strictly closer than radius to pos.
func (si *SpatialIndex) Within(pos orb.Point, radius float64) []NodeID {
	if radius <= 0 || len(si.entries) == 0 {
		return nil
	}
	bbox, err := boxAround(pos, radius)
	if err != nil {
		return nil
	}

	var ids []NodeID
	for _, item := range si.tree.SearchIntersect(bbox) {
		entry := item.(*nodeEntry)
		if planar.Distance(pos, entry.pos) < radius {
			ids = append(ids, entry.id)
		}
	}
	return ids
}

// Nearest returns the node closest to pos.
func (si *SpatialIndex) Nearest(pos orb.Point) (NodeID, float64, bool) {
	if len(si.entries) == 0 {
		return 0, math.MaxFloat64, false
	}
	item := si.tree.NearestNeighbor(rtreego.Point{pos.X(), pos.Y()})
	if item == nil {
		return 0, math.MaxFloat64, false
	}
	entry := item.(*nodeEntry)
	return entry.id, planar.Distance(pos, entry.pos), true
}

// boxAround builds the axis-aligned square of half-size r centred on pos.
func boxAround(pos orb.Point, r float64) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{pos.X() - r, pos.Y() - r},
		[]float64{2 * r, 2 * r},
	)
}

func finitePoint(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
