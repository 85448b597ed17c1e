package planner

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultStepInterval is how long an agent waits on a node before stepping.
const DefaultStepInterval = time.Second

// ErrTripIncomplete is returned when trip statistics are requested before the
// agent has reached its target.
var ErrTripIncomplete = errors.New("planner: trip is not complete")

// RunState is the agent's activity.
type RunState int

const (
	Idle RunState = iota
	Running
	Complete
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Complete:
		return "complete"
	default:
		return "idle"
	}
}

// TravelState is where the agent is relative to its path.
type TravelState int

const (
	Unassigned TravelState = iota
	OnStart
	Underway
	OnTarget
)

func (s TravelState) String() string {
	switch s {
	case OnStart:
		return "on_start"
	case Underway:
		return "underway"
	case OnTarget:
		return "on_target"
	default:
		return "unassigned"
	}
}

// Trip summarises a completed walk.
type Trip struct {
	Path  []NodeID
	Steps int
	Cost  float64
}

// Agent walks a path one node per step interval, occupying each node it
// stands on.
type Agent struct {
	ID   EntityID
	Name string

	tracker *OccupancyTracker
	graph   *Graph

	current NodeID
	target  NodeID
	path    []NodeID
	visited []NodeID

	run    RunState
	travel TravelState

	stepInterval time.Duration
	elapsed      time.Duration
	steps        int
	expenses     float64

	// wander picks the next node for agents that roam instead of following
	// a path.
	wander func(*Agent) (NodeID, bool)
}

// NewAgent creates an idle agent. The path may be empty.
func NewAgent(id EntityID, name string, tracker *OccupancyTracker, stepInterval time.Duration, path []NodeID) *Agent {
	if name == "" {
		name = fmt.Sprintf("Agent #%d", id)
	}
	if stepInterval <= 0 {
		stepInterval = DefaultStepInterval
	}
	a := &Agent{
		ID:           id,
		Name:         name,
		tracker:      tracker,
		graph:        tracker.graph,
		stepInterval: stepInterval,
	}
	a.SetPath(path)
	return a
}

// Current returns the node the agent stands on, zero when unplaced.
func (a *Agent) Current() NodeID { return a.current }

// Target returns the last node of the followed path.
func (a *Agent) Target() NodeID { return a.target }

// Path returns a copy of the followed path.
func (a *Agent) Path() []NodeID { return append([]NodeID(nil), a.path...) }

// RunState returns the activity state.
func (a *Agent) RunState() RunState { return a.run }

// TravelState returns the position state.
func (a *Agent) TravelState() TravelState { return a.travel }

// Elapsed returns the time accumulated towards the next step.
func (a *Agent) Elapsed() time.Duration { return a.elapsed }

// Steps returns how many nodes the agent has moved.
func (a *Agent) Steps() int { return a.steps }

// SetStepInterval changes the time between steps.
func (a *Agent) SetStepInterval(d time.Duration) {
	if d > 0 {
		a.stepInterval = d
	}
}

// SetPath replaces the followed path. The agent does not move.
func (a *Agent) SetPath(nodes []NodeID) {
	a.path = append([]NodeID(nil), nodes...)
	a.target = 0
	if len(a.path) > 0 {
		a.target = a.path[len(a.path)-1]
	}
}

// MoveToFirstNode places the agent on the first node of its path.
func (a *Agent) MoveToFirstNode() bool {
	if len(a.path) == 0 {
		return false
	}
	first := a.path[0]
	if !a.tracker.Occupy(first, a.ID) {
		return false
	}
	a.current = first
	a.visited = []NodeID{first}
	if len(a.path) > 1 {
		a.travel = OnStart
	} else {
		a.travel = OnTarget
	}
	return true
}

// PlaceAt puts an agent without a path onto id.
func (a *Agent) PlaceAt(id NodeID) bool {
	if !a.tracker.Occupy(id, a.ID) {
		return false
	}
	a.current = id
	a.visited = []NodeID{id}
	a.travel = OnStart
	return true
}

// MoveToNode steps onto id. A node that cannot be occupied leaves the agent
// where it is.
func (a *Agent) MoveToNode(id NodeID) bool {
	from := a.current
	if !a.tracker.Move(a.ID, id) {
		return false
	}
	a.run = Running
	a.travel = Underway
	a.current = id
	a.visited = append(a.visited, id)
	a.steps++
	if from != 0 {
		if e, ok := a.graph.Edge(from, id); ok && !math.IsInf(e.Weight, 1) {
			a.expenses += e.Weight
		}
	}
	if id == a.target {
		a.travel = OnTarget
		a.run = Complete
	}
	return true
}

// MoveToNextNode advances one node along the path. It fails when the agent is
// already on target, or when its current node is no longer on the path.
func (a *Agent) MoveToNextNode() bool {
	if a.travel == OnTarget {
		return false
	}
	idx := -1
	for i, id := range a.path {
		if id == a.current {
			idx = i
			break
		}
	}
	if idx < 0 || idx+1 >= len(a.path) {
		return false
	}
	return a.MoveToNode(a.path[idx+1])
}

// Start places the agent on its path and marks it running.
func (a *Agent) Start() bool {
	if a.current == 0 && !a.MoveToFirstNode() {
		return false
	}
	if a.run == Idle {
		a.run = Running
	}
	return true
}

// Update accumulates dt and fires at most one step once the interval is
// exceeded, carrying the overflow into the next tick.
func (a *Agent) Update(dt time.Duration) bool {
	if a.run == Complete {
		return false
	}
	a.elapsed += dt
	if a.elapsed <= a.stepInterval {
		return false
	}
	a.elapsed -= a.stepInterval
	if a.wander != nil {
		next, ok := a.wander(a)
		if !ok {
			return false
		}
		return a.MoveToNode(next)
	}
	return a.MoveToNextNode()
}

// Leave takes the agent off the graph.
func (a *Agent) Leave() {
	a.tracker.Forget(a.ID)
	a.current = 0
	a.travel = Unassigned
	a.run = Idle
	a.elapsed = 0
}

// Trip returns the completed walk.
func (a *Agent) Trip() (Trip, error) {
	if a.run != Complete {
		return Trip{}, fmt.Errorf("%s: %w", a.Name, ErrTripIncomplete)
	}
	return Trip{
		Path:  append([]NodeID(nil), a.visited...),
		Steps: a.steps,
		Cost:  a.expenses,
	}, nil
}
