package planner

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Defaults taken from the editor: node radius 20 plus selection ring and padding
// gives a padded radius of 40, and two padded nodes may not overlap.
const (
	DefaultNodeRadius    = 20.0
	DefaultMinSeparation = 80.0
)

// Edge is a directed connection with a cached geometric weight.
type Edge struct {
	From   NodeID
	To     NodeID
	Weight float64
}

// EdgeKey identifies a directed edge.
type EdgeKey struct {
	From NodeID
	To   NodeID
}

// Graph is a directed graph of positioned nodes. It owns its nodes and edges.
type Graph struct {
	nodes map[NodeID]*Node
	out   map[NodeID]map[NodeID]*Edge
	in    map[NodeID]map[NodeID]*Edge
	index *SpatialIndex

	model         CostModel
	nodeRadius    float64
	minSeparation float64
	nextID        NodeID
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithCostModel sets the model used to cache edge weights.
func WithCostModel(m CostModel) GraphOption {
	return func(g *Graph) { g.model = m }
}

// WithMinSeparation sets the minimum distance between node centres.
func WithMinSeparation(d float64) GraphOption {
	return func(g *Graph) { g.minSeparation = d }
}

// WithNodeRadius sets the radius used by NodeAt.
func WithNodeRadius(r float64) GraphOption {
	return func(g *Graph) { g.nodeRadius = r }
}

// NewGraph creates an empty graph.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		nodes:         make(map[NodeID]*Node),
		out:           make(map[NodeID]map[NodeID]*Edge),
		in:            make(map[NodeID]map[NodeID]*Edge),
		index:         NewSpatialIndex(),
		model:         DefaultCostModel(),
		nodeRadius:    DefaultNodeRadius,
		minSeparation: DefaultMinSeparation,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CostModel returns the model used for edge weights.
func (g *Graph) CostModel() CostModel {
	return g.model
}

// SetCostModel replaces the model and re-caches every edge weight.
func (g *Graph) SetCostModel(m CostModel) {
	g.model = m
	for _, edges := range g.out {
		for _, e := range edges {
			e.Weight = m.GeometricCost(g.nodes[e.From], g.nodes[e.To])
		}
	}
}

// MinSeparation returns the minimum allowed distance between node centres.
func (g *Graph) MinSeparation() float64 {
	return g.minSeparation
}

// IsValidPosition reports whether a node could be placed at pos. Nodes listed in
// except are ignored, which is how a node is moved next to its old spot.
func (g *Graph) IsValidPosition(pos orb.Point, except ...NodeID) bool {
	if !finitePoint(pos) {
		return false
	}
	for _, id := range g.index.Within(pos, g.minSeparation) {
		if !containsID(except, id) {
			return false
		}
	}
	return true
}

// AddNode inserts n and assigns it an ID when it has none. It fails on nil, on
// an ID already in use, and on positions too close to an existing node.
func (g *Graph) AddNode(n *Node) bool {
	if n == nil {
		return false
	}
	if n.ID != 0 {
		if _, exists := g.nodes[n.ID]; exists {
			return false
		}
	}
	if !g.IsValidPosition(n.Position) {
		return false
	}

	id := n.ID
	if id == 0 {
		id = g.nextID + 1
	}
	if !g.index.Insert(id, n.Position) {
		return false
	}
	if id > g.nextID {
		g.nextID = id
	}
	n.ID = id
	g.nodes[id] = n
	return true
}

// RemoveNode deletes the node after removing every incident edge.
func (g *Graph) RemoveNode(id NodeID) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	for to := range g.out[id] {
		g.RemoveEdge(id, to)
	}
	for from := range g.in[id] {
		g.RemoveEdge(from, id)
	}
	delete(g.out, id)
	delete(g.in, id)
	g.index.Remove(id)
	delete(g.nodes, id)
	return true
}

// MoveNode relocates a node and re-caches its incident edge weights.
func (g *Graph) MoveNode(id NodeID, pos orb.Point) bool {
	n, ok := g.nodes[id]
	if !ok || !g.IsValidPosition(pos, id) || !g.index.Insert(id, pos) {
		return false
	}
	n.Position = pos
	g.RecomputeNodeEdges(id)
	return true
}

// SetAltitude changes a node's altitude and re-caches its incident edge weights.
func (g *Graph) SetAltitude(id NodeID, altitude float64) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	n.Altitude = altitude
	g.RecomputeNodeEdges(id)
	return true
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes ordered by ID.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// NodeAt returns the node whose radius contains pos.
func (g *Graph) NodeAt(pos orb.Point) (*Node, bool) {
	ids := g.index.Within(pos, g.nodeRadius)
	if len(ids) == 0 {
		return nil, false
	}
	best := ids[0]
	bestDist := math.MaxFloat64
	for _, id := range ids {
		if d := planar.Distance(g.nodes[id].Position, pos); d < bestDist {
			best, bestDist = id, d
		}
	}
	return g.nodes[best], true
}

// Nearest returns the node closest to pos.
func (g *Graph) Nearest(pos orb.Point) (*Node, float64, bool) {
	id, dist, ok := g.index.Nearest(pos)
	if !ok {
		return nil, dist, false
	}
	return g.nodes[id], dist, true
}

// AddEdge connects from -> to. Self loops, unknown endpoints and duplicates fail.
func (g *Graph) AddEdge(from, to NodeID) bool {
	if from == to {
		return false
	}
	fromNode, ok := g.nodes[from]
	if !ok {
		return false
	}
	toNode, ok := g.nodes[to]
	if !ok {
		return false
	}
	if g.HasEdge(from, to) {
		return false
	}

	e := &Edge{From: from, To: to, Weight: g.model.GeometricCost(fromNode, toNode)}
	if g.out[from] == nil {
		g.out[from] = make(map[NodeID]*Edge)
	}
	if g.in[to] == nil {
		g.in[to] = make(map[NodeID]*Edge)
	}
	g.out[from][to] = e
	g.in[to][from] = e
	return true
}

// RemoveEdge deletes from -> to together with its cached weight.
func (g *Graph) RemoveEdge(from, to NodeID) bool {
	if !g.HasEdge(from, to) {
		return false
	}
	delete(g.out[from], to)
	if len(g.out[from]) == 0 {
		delete(g.out, from)
	}
	delete(g.in[to], from)
	if len(g.in[to]) == 0 {
		delete(g.in, to)
	}
	return true
}

// HasEdge reports whether from -> to exists.
func (g *Graph) HasEdge(from, to NodeID) bool {
	_, ok := g.out[from][to]
	return ok
}

// Edge returns a copy of the edge from -> to.
func (g *Graph) Edge(from, to NodeID) (Edge, bool) {
	e, ok := g.out[from][to]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Edges returns copies of all edges ordered by (From, To).
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, edges := range g.out {
		for _, e := range edges {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, edges := range g.out {
		count += len(edges)
	}
	return count
}

// Neighbors returns the successors of id in ascending order.
func (g *Graph) Neighbors(id NodeID) []NodeID {
	return sortedKeys(g.out[id])
}

// Predecessors returns the nodes with an edge into id in ascending order.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	return sortedKeys(g.in[id])
}

// EdgeCost is the cached weight of from -> to with live occupancy applied.
// traveler's own occupancy does not block. Missing edges are impassable.
func (g *Graph) EdgeCost(from, to NodeID, traveler EntityID) float64 {
	e, ok := g.out[from][to]
	if !ok {
		return Impassable
	}
	if g.nodes[to].IsBlockedFor(traveler) {
		return Impassable
	}
	return e.Weight
}

// RecomputeEdgeCost refreshes and returns the cached weight of from -> to.
func (g *Graph) RecomputeEdgeCost(from, to NodeID) float64 {
	e, ok := g.out[from][to]
	if !ok {
		return Impassable
	}
	e.Weight = g.model.GeometricCost(g.nodes[from], g.nodes[to])
	return e.Weight
}

// RecomputeNodeEdges refreshes every edge touching id.
func (g *Graph) RecomputeNodeEdges(id NodeID) {
	for to := range g.out[id] {
		g.RecomputeEdgeCost(id, to)
	}
	for from := range g.in[id] {
		g.RecomputeEdgeCost(from, id)
	}
}

// SetEdgeWeight overrides the cached weight until the next recompute. The
// weight may not drop below the edge's length, which keeps the A* distance
// heuristic admissible. Impassable is accepted.
func (g *Graph) SetEdgeWeight(from, to NodeID, weight float64) bool {
	e, ok := g.out[from][to]
	if !ok || math.IsNaN(weight) || weight < g.model.DistanceCost(g.nodes[from], g.nodes[to]) {
		return false
	}
	e.Weight = weight
	return true
}

func sortedKeys(m map[NodeID]*Edge) []NodeID {
	ids := make([]NodeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsID(ids []NodeID, id NodeID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
