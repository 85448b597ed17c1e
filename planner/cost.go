package planner

import "math"

// Impassable is the weight of an edge that must never be traversed.
var Impassable = math.Inf(1)

// Slope bounds: a rise:run of 2 is roughly 60 degrees.
const (
	DefaultMinSlope       = -2.0
	DefaultMaxSlope       = 2.0
	DefaultAltitudeWeight = 1.0
)

// CostModel computes the cost of traversing one directed edge.
type CostModel struct {
	AltitudeWeight float64
	MinSlope       float64
	MaxSlope       float64
}

// DefaultCostModel returns the standard cost model.
func DefaultCostModel() CostModel {
	return CostModel{
		AltitudeWeight: DefaultAltitudeWeight,
		MinSlope:       DefaultMinSlope,
		MaxSlope:       DefaultMaxSlope,
	}
}

// EdgeCost returns the full cost of moving from -> to for traveler, including
// occupancy. Pass zero as traveler when nobody is exempt.
func (m CostModel) EdgeCost(from, to *Node, traveler EntityID) float64 {
	if to.IsBlockedFor(traveler) {
		return Impassable
	}
	return m.GeometricCost(from, to)
}

// GeometricCost is the occupancy-independent part of the edge cost. This is what
// the graph caches per edge.
func (m CostModel) GeometricCost(from, to *Node) float64 {
	altitude := m.AltitudeCost(from, to)
	if math.IsInf(altitude, 1) {
		return Impassable
	}
	return m.DistanceCost(from, to) + altitude
}

// DistanceCost is the Euclidean distance between the two nodes.
func (m CostModel) DistanceCost(from, to *Node) float64 {
	return from.DistanceTo(to)
}

// AltitudeCost penalises climbing more than descending. Slopes on or beyond
// either bound are impassable.
func (m CostModel) AltitudeCost(from, to *Node) float64 {
	distance := from.DistanceTo(to)
	rise := to.Altitude - from.Altitude
	if distance == 0 {
		if rise == 0 {
			return 0
		}
		return Impassable
	}

	slope := rise / distance
	if slope <= m.MinSlope || slope >= m.MaxSlope {
		return Impassable
	}
	return (slope - m.MinSlope) / (m.MaxSlope - m.MinSlope) * distance * m.AltitudeWeight
}
