package scenario

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// PrepareObstacles cleans obstacle rings before generation. Rings with fewer
// than three distinct corners are dropped, rings fully inside another ring are
// removed, and when epsilon > 0 the rest are simplified with Douglas-Peucker.
func PrepareObstacles(rings []orb.Ring, epsilon float64) []orb.Ring {
	valid := make([]orb.Ring, 0, len(rings))
	for _, r := range rings {
		if len(r) >= 3 {
			valid = append(valid, closeRing(r))
		}
	}

	kept := removeContained(valid)
	if epsilon <= 0 {
		return kept
	}

	s := simplify.DouglasPeucker(epsilon)
	for i, r := range kept {
		simplified := s.Ring(r.Clone())
		// Over-simplified rings collapse to a line; keep the input ring.
		if len(simplified) >= 4 {
			kept[i] = simplified
		}
	}
	return kept
}

func closeRing(r orb.Ring) orb.Ring {
	if r.Closed() {
		return r
	}
	return append(r.Clone(), r[0])
}

// removeContained drops rings whose every vertex lies inside another ring.
func removeContained(rings []orb.Ring) []orb.Ring {
	contained := make([]bool, len(rings))
	for i := range rings {
		for j := range rings {
			if i == j || contained[j] {
				continue
			}
			if ringInside(rings[i], rings[j]) {
				contained[i] = true
				break
			}
		}
	}

	result := make([]orb.Ring, 0, len(rings))
	for i, r := range rings {
		if !contained[i] {
			result = append(result, r)
		}
	}
	return result
}

// ringInside reports whether a is inside b. Identical rings count as inside,
// so of two duplicates only the later one survives.
func ringInside(a, b orb.Ring) bool {
	ab, bb := a.Bound(), b.Bound()
	if ab.Min.X() < bb.Min.X() || ab.Min.Y() < bb.Min.Y() ||
		ab.Max.X() > bb.Max.X() || ab.Max.Y() > bb.Max.Y() {
		return false
	}
	for _, p := range a {
		if !planar.RingContains(b, p) {
			return false
		}
	}
	return true
}
