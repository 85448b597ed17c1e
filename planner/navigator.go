package planner

import (
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/paulmach/orb"
)

// Config collects the tunables of a Navigator.
type Config struct {
	CostModel       CostModel
	MinSeparation   float64
	NodeRadius      float64
	RefreshInterval time.Duration
	StepInterval    time.Duration
	Seed            int64
}

// DefaultConfig returns the editor defaults.
func DefaultConfig() Config {
	return Config{
		CostModel:       DefaultCostModel(),
		MinSeparation:   DefaultMinSeparation,
		NodeRadius:      DefaultNodeRadius,
		RefreshInterval: DefaultRefreshInterval,
		StepInterval:    DefaultStepInterval,
		Seed:            1,
	}
}

// Navigator composes the graph, pathfinder, occupancy tracker, agents and
// analyzer behind the operations a UI issues. It is not safe for concurrent
// use; hosts with several goroutines must serialise access.
type Navigator struct {
	graph      *Graph
	pathfinder *Pathfinder
	tracker    *OccupancyTracker
	agency     *Agency
	analyzer   *Analyzer
	ids        *IDGenerator
	logger     *slog.Logger
}

// NewNavigator creates an empty navigator.
func NewNavigator(cfg Config, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	g := NewGraph(
		WithCostModel(cfg.CostModel),
		WithMinSeparation(cfg.MinSeparation),
		WithNodeRadius(cfg.NodeRadius),
	)
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}
	pf := NewPathfinder(g, WithRefreshInterval(refresh), WithLogger(logger))
	ids := &IDGenerator{}
	tracker := NewOccupancyTracker(g, pf, ids)
	probe := EntityID(ids.Next())

	return &Navigator{
		graph:      g,
		pathfinder: pf,
		tracker:    tracker,
		agency:     NewAgency(tracker, ids, AgencyConfig{StepInterval: cfg.StepInterval, Seed: cfg.Seed}, logger),
		analyzer:   NewAnalyzer(g, pf, probe),
		ids:        ids,
		logger:     logger,
	}
}

// Graph returns the underlying graph. Mutating it directly bypasses re-planning.
func (nv *Navigator) Graph() *Graph { return nv.graph }

// Pathfinder returns the route planner.
func (nv *Navigator) Pathfinder() *Pathfinder { return nv.pathfinder }

// Tracker returns the occupancy tracker.
func (nv *Navigator) Tracker() *OccupancyTracker { return nv.tracker }

// Agency returns the agent owner.
func (nv *Navigator) Agency() *Agency { return nv.agency }

// Path returns the current route.
func (nv *Navigator) Path() *Path { return nv.pathfinder.Path() }

// AddNode creates a node at (x, y).
func (nv *Navigator) AddNode(x, y, altitude float64, label string) (NodeID, bool) {
	n := NewNode(x, y, altitude)
	n.Label = label
	if !nv.graph.AddNode(n) {
		return 0, false
	}
	nv.pathfinder.MarkDirty(ChangeTopology)
	return n.ID, true
}

// MoveNode repositions a node and re-prices its edges.
func (nv *Navigator) MoveNode(id NodeID, pos orb.Point) bool {
	if !nv.graph.MoveNode(id, pos) {
		return false
	}
	nv.pathfinder.MarkDirty(ChangePosition)
	return true
}

// SetAltitude changes a node's altitude and re-prices its edges.
func (nv *Navigator) SetAltitude(id NodeID, altitude float64) bool {
	if !nv.graph.SetAltitude(id, altitude) {
		return false
	}
	nv.pathfinder.MarkDirty(ChangePosition)
	return true
}

// RemoveNode deletes a node together with its edges, roles, waypoint entry and
// occupants.
func (nv *Navigator) RemoveNode(id NodeID) bool {
	if !nv.graph.HasNode(id) {
		return false
	}
	evicted := nv.tracker.ForgetNode(id)
	nv.agency.Forget(evicted)
	nv.pathfinder.ClearNode(id)
	nv.graph.RemoveNode(id)
	nv.pathfinder.MarkDirty(ChangeTopology)
	nv.logger.Debug("node removed", "node", id, "evicted", len(evicted))
	return true
}

// AddEdge connects from -> to.
func (nv *Navigator) AddEdge(from, to NodeID) bool {
	if !nv.graph.AddEdge(from, to) {
		return false
	}
	nv.pathfinder.MarkDirty(ChangeTopology)
	return true
}

// AddBidirectionalEdge connects both directions and reports whether either
// edge was created.
func (nv *Navigator) AddBidirectionalEdge(a, b NodeID) bool {
	forward := nv.AddEdge(a, b)
	backward := nv.AddEdge(b, a)
	return forward || backward
}

// RemoveEdge disconnects from -> to.
func (nv *Navigator) RemoveEdge(from, to NodeID) bool {
	if !nv.graph.RemoveEdge(from, to) {
		return false
	}
	nv.pathfinder.MarkDirty(ChangeTopology)
	return true
}

// SetStart makes id the route start.
func (nv *Navigator) SetStart(id NodeID) bool {
	if n, ok := nv.graph.Node(id); !ok || n.IsBlockedFor(nv.pathfinder.Traveler()) {
		return false
	}
	return nv.pathfinder.SetStart(id)
}

// SetDestination makes id the route destination.
func (nv *Navigator) SetDestination(id NodeID) bool {
	if n, ok := nv.graph.Node(id); !ok || n.IsBlockedFor(nv.pathfinder.Traveler()) {
		return false
	}
	return nv.pathfinder.SetDestination(id)
}

// SetDefault clears any role id holds.
func (nv *Navigator) SetDefault(id NodeID) bool {
	if !nv.graph.HasNode(id) {
		return false
	}
	nv.pathfinder.ClearNode(id)
	return true
}

// SetRole dispatches to SetStart, SetDestination or SetDefault.
func (nv *Navigator) SetRole(id NodeID, role Role) bool {
	switch role {
	case RoleStart:
		return nv.SetStart(id)
	case RoleDestination:
		return nv.SetDestination(id)
	default:
		return nv.SetDefault(id)
	}
}

// AddWaypoint inserts id into the waypoint list; index < 0 appends.
func (nv *Navigator) AddWaypoint(id NodeID, index int) bool {
	return nv.pathfinder.AddWaypoint(id, index)
}

// RemoveWaypoint drops id from the waypoint list.
func (nv *Navigator) RemoveWaypoint(id NodeID) bool {
	return nv.pathfinder.RemoveWaypoint(id)
}

// Block manually occupies id.
func (nv *Navigator) Block(id NodeID) bool {
	return nv.tracker.Block(id)
}

// Unblock removes the manual blocker from id.
func (nv *Navigator) Unblock(id NodeID) bool {
	return nv.tracker.Unblock(id)
}

// StartPathfinding re-plans immediately and reports whether a route exists.
func (nv *Navigator) StartPathfinding() bool {
	nv.pathfinder.Replan()
	return nv.pathfinder.Path().Count() > 0
}

// ClearPath forgets the current route.
func (nv *Navigator) ClearPath() {
	nv.pathfinder.ClearPath()
}

// SpawnAgents replaces all agents with a traveler and n wanderers.
func (nv *Navigator) SpawnAgents(n int) int {
	return nv.agency.CreateNewSet(n)
}

// Update advances the debounce timer and all agents by dt.
func (nv *Navigator) Update(dt time.Duration) {
	nv.pathfinder.Update(dt)
	nv.agency.Update(dt)
}

// Analyze scores the current path.
func (nv *Navigator) Analyze() (*Analysis, error) {
	return nv.analyzer.Analyze(nv.pathfinder.Path())
}

// SetCostModel re-prices every edge with m.
func (nv *Navigator) SetCostModel(m CostModel) {
	nv.graph.SetCostModel(m)
	nv.pathfinder.MarkDirty(ChangeTopology)
}

// Reconfigure applies the runtime-adjustable part of cfg.
func (nv *Navigator) Reconfigure(cfg Config) {
	if cfg.CostModel != nv.graph.CostModel() {
		nv.SetCostModel(cfg.CostModel)
	}
	if cfg.RefreshInterval > 0 {
		nv.pathfinder.SetRefreshInterval(cfg.RefreshInterval)
	}
	nv.agency.SetStepInterval(cfg.StepInterval)
}

// Cost is an edge or route cost that encodes Impassable as JSON null.
type Cost float64

// MarshalJSON implements json.Marshaler.
func (c Cost) MarshalJSON() ([]byte, error) {
	f := float64(c)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// NodeView is a read-only copy of a node.
type NodeView struct {
	ID        NodeID     `json:"id"`
	Label     string     `json:"label,omitempty"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Altitude  float64    `json:"altitude"`
	Role      string     `json:"role"`
	Occupied  bool       `json:"occupied"`
	Blocked   bool       `json:"blocked"`
	Occupants []EntityID `json:"occupants,omitempty"`
	OnPath    bool       `json:"on_path"`
}

// EdgeView is a read-only copy of an edge.
type EdgeView struct {
	From   NodeID `json:"from"`
	To     NodeID `json:"to"`
	Weight Cost   `json:"weight"`
	OnPath bool   `json:"on_path"`
}

// AgentView is a read-only copy of an agent.
type AgentView struct {
	ID          EntityID `json:"id"`
	Name        string   `json:"name"`
	Node        NodeID   `json:"node"`
	Target      NodeID   `json:"target"`
	RunState    string   `json:"run_state"`
	TravelState string   `json:"travel_state"`
	Steps       int      `json:"steps"`
}

// Snapshot is a consistent copy of everything a renderer needs.
type Snapshot struct {
	Nodes       []NodeView  `json:"nodes"`
	Edges       []EdgeView  `json:"edges"`
	Path        []NodeID    `json:"path"`
	PathCost    Cost        `json:"path_cost"`
	Start       NodeID      `json:"start"`
	Destination NodeID      `json:"destination"`
	Waypoints   []NodeID    `json:"waypoints"`
	SplitPoints []NodeID    `json:"split_points"`
	Agents      []AgentView `json:"agents"`
}

// Snapshot copies the current state.
func (nv *Navigator) Snapshot() Snapshot {
	path := nv.pathfinder.Path()
	onPath := make(map[EdgeKey]bool)
	for _, e := range path.Edges() {
		onPath[e] = true
	}

	s := Snapshot{
		Path:        path.Nodes(),
		PathCost:    Cost(nv.pathfinder.PathCost()),
		Start:       nv.pathfinder.Start(),
		Destination: nv.pathfinder.Destination(),
		Waypoints:   nv.pathfinder.Waypoints(),
		SplitPoints: nv.pathfinder.SplitPoints(),
	}
	for _, n := range nv.graph.Nodes() {
		s.Nodes = append(s.Nodes, NodeView{
			ID:        n.ID,
			Label:     n.Label,
			X:         n.Position.X(),
			Y:         n.Position.Y(),
			Altitude:  n.Altitude,
			Role:      n.Role.String(),
			Occupied:  n.IsOccupied(),
			Blocked:   nv.tracker.IsManuallyBlocked(n.ID),
			Occupants: n.Occupants(),
			OnPath:    path.HasNode(n.ID),
		})
	}
	for _, e := range nv.graph.Edges() {
		s.Edges = append(s.Edges, EdgeView{
			From:   e.From,
			To:     e.To,
			Weight: Cost(e.Weight),
			OnPath: onPath[EdgeKey{From: e.From, To: e.To}],
		})
	}
	for _, a := range nv.agency.Agents() {
		s.Agents = append(s.Agents, AgentView{
			ID:          a.ID,
			Name:        a.Name,
			Node:        a.Current(),
			Target:      a.Target(),
			RunState:    a.RunState().String(),
			TravelState: a.TravelState().String(),
			Steps:       a.Steps(),
		})
	}
	return s
}
