package scenario

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// segmentsIntersect checks if segments p1-p2 and p3-p4 intersect. Segments
// that share an endpoint do not count.
func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	if p1.Equal(p3) || p1.Equal(p4) || p2.Equal(p3) || p2.Equal(p4) {
		return false
	}

	d1 := direction(p3, p4, p1)
	d2 := direction(p3, p4, p2)
	d3 := direction(p1, p2, p3)
	d4 := direction(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear cases
	if d1 == 0 && onSegment(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegment(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, p4) {
		return true
	}
	return false
}

// direction is the cross product giving the orientation of p3 relative to p1-p2
func direction(p1, p2, p3 orb.Point) float64 {
	return (p3.X()-p1.X())*(p2.Y()-p1.Y()) - (p2.X()-p1.X())*(p3.Y()-p1.Y())
}

// onSegment checks if q lies within the bounding box of p-r
func onSegment(p, r, q orb.Point) bool {
	return q.X() <= math.Max(p.X(), r.X()) && q.X() >= math.Min(p.X(), r.X()) &&
		q.Y() <= math.Max(p.Y(), r.Y()) && q.Y() >= math.Min(p.Y(), r.Y())
}

// segmentCrossesRing reports whether a-b crosses any edge of ring.
func segmentCrossesRing(a, b orb.Point, ring orb.Ring) bool {
	n := len(ring)
	for i := 0; i < n; i++ {
		if segmentsIntersect(a, b, ring[i], ring[(i+1)%n]) {
			return true
		}
	}
	return false
}

// insideAny reports whether p lies inside one of the obstacles.
func insideAny(p orb.Point, obstacles []orb.Ring) bool {
	for _, ring := range obstacles {
		if len(ring) >= 3 && planar.RingContains(ring, p) {
			return true
		}
	}
	return false
}

// pathClear checks that the straight segment a-b neither crosses nor lies
// inside any obstacle.
func pathClear(a, b orb.Point, obstacles []orb.Ring) bool {
	mid := orb.Point{(a.X() + b.X()) / 2, (a.Y() + b.Y()) / 2}
	for _, ring := range obstacles {
		if len(ring) < 3 {
			continue
		}
		if segmentCrossesRing(a, b, ring) {
			return false
		}
		if planar.RingContains(ring, a) || planar.RingContains(ring, b) || planar.RingContains(ring, mid) {
			return false
		}
	}
	return true
}
