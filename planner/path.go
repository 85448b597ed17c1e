package planner

import "math"

// Path is a read-only node sequence produced by the Pathfinder.
type Path struct {
	nodes    []NodeID
	complete bool
}

// NewPath copies nodes into a new Path.
func NewPath(nodes []NodeID) *Path {
	p := &Path{nodes: append([]NodeID(nil), nodes...)}
	p.complete = len(p.nodes) > 0
	return p
}

// Nodes returns a copy of the node sequence.
func (p *Path) Nodes() []NodeID {
	if p == nil {
		return nil
	}
	return append([]NodeID(nil), p.nodes...)
}

// Edges returns consecutive node pairs.
func (p *Path) Edges() []EdgeKey {
	if p == nil || len(p.nodes) < 2 {
		return nil
	}
	edges := make([]EdgeKey, 0, len(p.nodes)-1)
	for i := 1; i < len(p.nodes); i++ {
		edges = append(edges, EdgeKey{From: p.nodes[i-1], To: p.nodes[i]})
	}
	return edges
}

// Count returns the number of nodes.
func (p *Path) Count() int {
	if p == nil {
		return 0
	}
	return len(p.nodes)
}

// Complete reports whether the path was built from a non-empty node list.
func (p *Path) Complete() bool {
	return p != nil && p.complete
}

// First returns the first node.
func (p *Path) First() (NodeID, bool) {
	if p.Count() == 0 {
		return 0, false
	}
	return p.nodes[0], true
}

// Last returns the last node.
func (p *Path) Last() (NodeID, bool) {
	if p.Count() == 0 {
		return 0, false
	}
	return p.nodes[len(p.nodes)-1], true
}

// Index returns the position of id in the path, or -1.
func (p *Path) Index(id NodeID) int {
	if p == nil {
		return -1
	}
	for i, n := range p.nodes {
		if n == id {
			return i
		}
	}
	return -1
}

// HasNode reports whether id is on the path.
func (p *Path) HasNode(id NodeID) bool {
	return p.Index(id) >= 0
}

// Equal reports whether both paths visit the same nodes in the same order.
func (p *Path) Equal(other *Path) bool {
	if p.Count() != other.Count() {
		return false
	}
	for i := 0; i < p.Count(); i++ {
		if p.nodes[i] != other.nodes[i] {
			return false
		}
	}
	return true
}

// Cost sums the current edge costs along the path for traveler. A missing or
// blocked edge makes the whole path impassable.
func (p *Path) Cost(g *Graph, traveler EntityID) float64 {
	total := 0.0
	for _, e := range p.Edges() {
		cost := g.EdgeCost(e.From, e.To, traveler)
		if math.IsInf(cost, 1) {
			return Impassable
		}
		total += cost
	}
	return total
}
