package planner

import (
	"log/slog"
	"math"
	"strings"
	"time"
)

// DefaultRefreshInterval is the debounce window between a change and a re-plan.
const DefaultRefreshInterval = 250 * time.Millisecond

// Change records why a re-plan is pending.
type Change uint8

const (
	ChangeTopology Change = 1 << iota
	ChangeOccupancy
	ChangePosition
	ChangeEndpoints
)

func (c Change) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	if c&ChangeTopology != 0 {
		parts = append(parts, "topology")
	}
	if c&ChangeOccupancy != 0 {
		parts = append(parts, "occupancy")
	}
	if c&ChangePosition != 0 {
		parts = append(parts, "position")
	}
	if c&ChangeEndpoints != 0 {
		parts = append(parts, "endpoints")
	}
	return strings.Join(parts, "|")
}

// waypoint is a must-visit stop. Split points carry the route segment that led
// to them when they were created; user waypoints have no segment.
type waypoint struct {
	node    NodeID
	segment []NodeID
}

// Pathfinder maintains the current route between start and destination through
// the ordered waypoints, re-planning after a debounce interval.
type Pathfinder struct {
	graph  *Graph
	logger *slog.Logger

	start       NodeID
	destination NodeID
	waypoints   []waypoint
	traveler    EntityID

	path *Path
	cost float64

	dirty       Change
	pending     bool
	sinceChange time.Duration
	interval    time.Duration
	replans     int

	listeners []func(*Path)
}

// PathfinderOption configures a Pathfinder.
type PathfinderOption func(*Pathfinder)

// WithRefreshInterval sets the debounce window.
func WithRefreshInterval(d time.Duration) PathfinderOption {
	return func(p *Pathfinder) { p.interval = d }
}

// WithLogger sets the logger used for re-plan diagnostics.
func WithLogger(l *slog.Logger) PathfinderOption {
	return func(p *Pathfinder) { p.logger = l }
}

// NewPathfinder creates a Pathfinder over g with no endpoints.
func NewPathfinder(g *Graph, opts ...PathfinderOption) *Pathfinder {
	p := &Pathfinder{
		graph:    g,
		logger:   slog.Default(),
		path:     NewPath(nil),
		cost:     Impassable,
		interval: DefaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnPathChanged registers fn to be called with every new path.
func (p *Pathfinder) OnPathChanged(fn func(*Path)) {
	p.listeners = append(p.listeners, fn)
}

// Path returns the current path. It is empty when no route is known.
func (p *Pathfinder) Path() *Path {
	return p.path
}

// PathCost returns the cost of the current path as computed when it was planned.
func (p *Pathfinder) PathCost() float64 {
	return p.cost
}

// Start returns the start node, zero if unset.
func (p *Pathfinder) Start() NodeID {
	return p.start
}

// Destination returns the destination node, zero if unset.
func (p *Pathfinder) Destination() NodeID {
	return p.destination
}

// Traveler returns the entity the route is planned for.
func (p *Pathfinder) Traveler() EntityID {
	return p.traveler
}

// SetTraveler exempts entity's own occupancy from blocking the route.
func (p *Pathfinder) SetTraveler(entity EntityID) {
	if p.traveler == entity {
		return
	}
	p.traveler = entity
	p.MarkDirty(ChangeOccupancy)
}

// RefreshInterval returns the debounce window.
func (p *Pathfinder) RefreshInterval() time.Duration {
	return p.interval
}

// SetRefreshInterval changes the debounce window.
func (p *Pathfinder) SetRefreshInterval(d time.Duration) {
	p.interval = d
}

// Pending reports whether a re-plan is scheduled.
func (p *Pathfinder) Pending() bool {
	return p.pending
}

// Dirty returns the changes accumulated since the last re-plan.
func (p *Pathfinder) Dirty() Change {
	return p.dirty
}

// Replans returns how many re-plans have run.
func (p *Pathfinder) Replans() int {
	return p.replans
}

// SetStart makes id the start node. A node cannot be start and destination.
func (p *Pathfinder) SetStart(id NodeID) bool {
	if !p.graph.HasNode(id) {
		return false
	}
	if p.destination == id {
		p.setRole(p.destination, RoleDefault)
		p.destination = 0
	}
	if p.start != id {
		p.setRole(p.start, RoleDefault)
	}
	p.start = id
	p.setRole(id, RoleStart)
	p.removeWaypoint(id)
	p.clearSplits()
	p.MarkDirty(ChangeEndpoints)
	return true
}

// SetDestination makes id the destination node.
func (p *Pathfinder) SetDestination(id NodeID) bool {
	if !p.graph.HasNode(id) {
		return false
	}
	if p.start == id {
		p.setRole(p.start, RoleDefault)
		p.start = 0
	}
	if p.destination != id {
		p.setRole(p.destination, RoleDefault)
	}
	p.destination = id
	p.setRole(id, RoleDestination)
	p.removeWaypoint(id)
	p.clearSplits()
	p.MarkDirty(ChangeEndpoints)
	return true
}

// ClearNode drops every reference the pathfinder holds to id.
func (p *Pathfinder) ClearNode(id NodeID) bool {
	changed := false
	if p.start == id {
		p.setRole(id, RoleDefault)
		p.start = 0
		changed = true
	}
	if p.destination == id {
		p.setRole(id, RoleDefault)
		p.destination = 0
		changed = true
	}
	if p.removeWaypoint(id) {
		changed = true
	}
	if changed {
		p.MarkDirty(ChangeEndpoints)
	}
	return changed
}

// AddWaypoint inserts id at index in the waypoint list; a negative or
// out-of-range index appends.
func (p *Pathfinder) AddWaypoint(id NodeID, index int) bool {
	if !p.graph.HasNode(id) || id == p.start || id == p.destination || p.isWaypoint(id) {
		return false
	}
	p.insertWaypoint(waypoint{node: id}, index)
	p.MarkDirty(ChangeEndpoints)
	return true
}

// RemoveWaypoint drops id from the waypoint list.
func (p *Pathfinder) RemoveWaypoint(id NodeID) bool {
	if !p.removeWaypoint(id) {
		return false
	}
	p.MarkDirty(ChangeEndpoints)
	return true
}

// Waypoints returns all stops between start and destination, split points included.
func (p *Pathfinder) Waypoints() []NodeID {
	out := make([]NodeID, 0, len(p.waypoints))
	for _, wp := range p.waypoints {
		out = append(out, wp.node)
	}
	return out
}

// SplitPoints returns the waypoints created by occupancy splits.
func (p *Pathfinder) SplitPoints() []NodeID {
	var out []NodeID
	for _, wp := range p.waypoints {
		if wp.segment != nil {
			out = append(out, wp.node)
		}
	}
	return out
}

// ClearPath forgets the current route and split points and cancels any
// pending re-plan. Listeners are told about the empty path.
func (p *Pathfinder) ClearPath() {
	p.clearSplits()
	p.pending = false
	p.dirty = 0
	p.path = NewPath(nil)
	p.cost = Impassable
	p.notify()
}

// NotifyOccupancyChanged reacts to entity entering or leaving node id. When a
// node on the current route becomes occupied, its predecessor is promoted to a
// split point so only the remainder of the route is re-planned. The traveler's
// own movement never affects its route.
func (p *Pathfinder) NotifyOccupancyChanged(id NodeID, entity EntityID, occupied bool) {
	if entity != 0 && entity == p.traveler {
		return
	}
	if !occupied {
		p.MarkDirty(ChangeOccupancy)
		return
	}
	idx := p.path.Index(id)
	if idx <= 0 {
		return
	}
	p.splitAt(idx - 1)
	p.MarkDirty(ChangeOccupancy)
}

// MarkDirty records a change and schedules a refresh.
func (p *Pathfinder) MarkDirty(c Change) {
	p.dirty |= c
	p.Refresh()
}

// Refresh schedules a re-plan once the debounce interval has passed.
func (p *Pathfinder) Refresh() {
	p.pending = true
	p.sinceChange = 0
}

// Update advances the debounce timer and re-plans when it expires. It reports
// whether the path changed.
func (p *Pathfinder) Update(dt time.Duration) bool {
	if !p.pending {
		return false
	}
	p.sinceChange += dt
	if p.sinceChange < p.interval {
		return false
	}
	return p.Replan()
}

// Replan recomputes the route immediately and reports whether it changed.
// A failed search leaves an empty path and notifies nobody.
func (p *Pathfinder) Replan() bool {
	reason := p.dirty
	p.pending = false
	p.sinceChange = 0
	p.dirty = 0
	p.replans++

	nodes, cost, ok := p.assemble()
	if !ok {
		if p.path.Count() > 0 {
			p.logger.Debug("no route", "start", p.start, "destination", p.destination, "reason", reason)
		}
		p.path = NewPath(nil)
		p.cost = Impassable
		return false
	}

	next := NewPath(nodes)
	p.cost = cost
	if next.Equal(p.path) {
		return false
	}
	p.path = next
	p.logger.Debug("path replanned",
		"reason", reason,
		"nodes", next.Count(),
		"cost", cost,
		"waypoints", len(p.waypoints),
	)
	p.notify()
	return true
}

// RouteCost returns the cheapest cost from -> to under current occupancy. For the
// pathfinder's own endpoints the waypoints are honoured.
func (p *Pathfinder) RouteCost(from, to NodeID) (float64, bool) {
	if from != 0 && from == p.start && to == p.destination {
		_, cost, ok := p.assemble()
		return cost, ok
	}
	_, cost, ok := AStar(p.graph, from, to, p.traveler)
	return cost, ok
}

// assemble chains searches through [start, waypoints..., destination].
func (p *Pathfinder) assemble() ([]NodeID, float64, bool) {
	if p.start == 0 || p.destination == 0 {
		return nil, Impassable, false
	}

	stops := make([]waypoint, 0, len(p.waypoints)+2)
	stops = append(stops, waypoint{node: p.start})
	stops = append(stops, p.waypoints...)
	stops = append(stops, waypoint{node: p.destination})

	route := []NodeID{p.start}
	total := 0.0
	for i := 1; i < len(stops); i++ {
		segment, cost, ok := p.segment(stops[i-1].node, stops[i])
		if !ok {
			return nil, Impassable, false
		}
		// Drop the junction node shared with the previous segment.
		route = append(route, segment[1:]...)
		total += cost
	}
	return route, total, true
}

// segment routes from -> to.node, reusing a split point's preserved segment
// while every edge on it is still passable for the traveler.
func (p *Pathfinder) segment(from NodeID, to waypoint) ([]NodeID, float64, bool) {
	if cost, ok := p.preservedCost(from, to); ok {
		return to.segment, cost, true
	}
	return AStar(p.graph, from, to.node, p.traveler)
}

// preservedCost prices a preserved segment under live occupancy. It fails when
// the segment no longer joins from to to.node or any of its edges is
// impassable, so the leg is searched again.
func (p *Pathfinder) preservedCost(from NodeID, to waypoint) (float64, bool) {
	seg := to.segment
	if len(seg) < 2 || seg[0] != from || seg[len(seg)-1] != to.node {
		return 0, false
	}
	total := 0.0
	for i := 1; i < len(seg); i++ {
		cost := p.graph.EdgeCost(seg[i-1], seg[i], p.traveler)
		if math.IsInf(cost, 1) {
			return 0, false
		}
		total += cost
	}
	return total, true
}

// splitAt promotes the path node at pathIdx to a split point.
func (p *Pathfinder) splitAt(pathIdx int) {
	nodes := p.path.nodes
	node := nodes[pathIdx]
	if pathIdx == 0 || node == p.destination || p.isWaypoint(node) {
		return
	}

	// Locate each existing waypoint on the path to find where the split belongs
	// and where its preserved segment begins.
	insertAt := 0
	segmentStart := 0
	searchFrom := 1
	for _, wp := range p.waypoints {
		pos := indexFrom(nodes, wp.node, searchFrom)
		if pos < 0 {
			return
		}
		if pos >= pathIdx {
			break
		}
		insertAt++
		segmentStart = pos
		searchFrom = pos + 1
	}

	segment := append([]NodeID(nil), nodes[segmentStart:pathIdx+1]...)
	p.insertWaypoint(waypoint{node: node, segment: segment}, insertAt)
	p.logger.Debug("route split", "node", node, "index", insertAt)
}

func (p *Pathfinder) insertWaypoint(wp waypoint, index int) {
	if index < 0 || index > len(p.waypoints) {
		index = len(p.waypoints)
	}
	p.waypoints = append(p.waypoints, waypoint{})
	copy(p.waypoints[index+1:], p.waypoints[index:])
	p.waypoints[index] = wp
}

func (p *Pathfinder) removeWaypoint(id NodeID) bool {
	for i, wp := range p.waypoints {
		if wp.node == id {
			p.waypoints = append(p.waypoints[:i], p.waypoints[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Pathfinder) isWaypoint(id NodeID) bool {
	for _, wp := range p.waypoints {
		if wp.node == id {
			return true
		}
	}
	return false
}

func (p *Pathfinder) clearSplits() {
	kept := p.waypoints[:0]
	for _, wp := range p.waypoints {
		if wp.segment == nil {
			kept = append(kept, wp)
		}
	}
	p.waypoints = kept
}

func (p *Pathfinder) setRole(id NodeID, role Role) {
	if n, ok := p.graph.Node(id); ok {
		n.Role = role
	}
}

func (p *Pathfinder) notify() {
	for _, fn := range p.listeners {
		fn(p.path)
	}
}

func indexFrom(nodes []NodeID, id NodeID, from int) int {
	for i := from; i < len(nodes); i++ {
		if nodes[i] == id {
			return i
		}
	}
	return -1
}
