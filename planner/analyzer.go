package planner

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrPathTooShort is returned for paths without interior nodes.
	ErrPathTooShort = errors.New("planner: path needs at least 3 nodes to analyze")
	// ErrNoRoute is returned when the analyzed path has no finite base cost.
	ErrNoRoute = errors.New("planner: no route between path endpoints")
)

// Router prices the best route between two nodes under current occupancy.
type Router interface {
	RouteCost(from, to NodeID) (float64, bool)
}

// NodeRisk is the outcome of blocking a single interior node.
type NodeRisk struct {
	Node          NodeID  `json:"node"`
	Probability   float64 `json:"probability"`
	BlockedCost   float64 `json:"blocked_cost"`
	Irreplaceable bool    `json:"irreplaceable"`
}

// Analysis summarises how sensitive a path is to losing one of its nodes.
type Analysis struct {
	Path               []NodeID   `json:"path"`
	BaseCost           float64    `json:"base_cost"`
	ExpectedCost       float64    `json:"expected_cost"`
	IrreplaceableNodes []NodeID   `json:"irreplaceable_nodes"`
	ChanceOfOpen       float64    `json:"chance_of_open"`
	Nodes              []NodeRisk `json:"nodes"`
}

// ChanceOfClosed is the probability that some irreplaceable node is blocked.
func (a *Analysis) ChanceOfClosed() float64 {
	return 1 - a.ChanceOfOpen
}

// Analyzer runs leave-one-out criticality analysis over a path.
type Analyzer struct {
	graph  *Graph
	router Router
	probe  EntityID
}

// NewAnalyzer creates an analyzer. probe is the entity used to block nodes
// temporarily; it must not be used by anything else.
func NewAnalyzer(g *Graph, router Router, probe EntityID) *Analyzer {
	return &Analyzer{graph: g, router: router, probe: probe}
}

// Analyze blocks each interior node of path in turn and records the cost of
// the best remaining route between the path's endpoints. Nodes whose loss
// leaves no route are irreplaceable and keep the base cost.
func (a *Analyzer) Analyze(path *Path) (*Analysis, error) {
	if path.Count() < 3 {
		return nil, fmt.Errorf("%d nodes: %w", path.Count(), ErrPathTooShort)
	}
	nodes := path.Nodes()
	first, last := nodes[0], nodes[len(nodes)-1]

	base, ok := a.router.RouteCost(first, last)
	if !ok || math.IsInf(base, 1) {
		return nil, fmt.Errorf("%d -> %d: %w", first, last, ErrNoRoute)
	}

	interior := nodes[1 : len(nodes)-1]
	p := 1 / float64(len(interior))
	result := &Analysis{
		Path:               nodes,
		BaseCost:           base,
		IrreplaceableNodes: []NodeID{},
		ChanceOfOpen:       1,
	}

	for _, id := range interior {
		n, ok := a.graph.Node(id)
		if !ok {
			return nil, fmt.Errorf("node %d: %w", id, ErrNoRoute)
		}
		n.addOccupant(a.probe)
		cost, found := a.router.RouteCost(first, last)
		n.removeOccupant(a.probe)

		risk := NodeRisk{Node: id, Probability: p, BlockedCost: cost}
		if !found || math.IsInf(cost, 1) {
			risk.Irreplaceable = true
			risk.BlockedCost = base
			result.IrreplaceableNodes = append(result.IrreplaceableNodes, id)
			result.ChanceOfOpen *= 1 - p
		}
		result.ExpectedCost += risk.BlockedCost * p
		result.Nodes = append(result.Nodes, risk)
	}
	return result, nil
}
