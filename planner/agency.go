package planner

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// IDGenerator issues entity handles. Each Navigator owns one, so handles are
// unique per graph rather than per process.
type IDGenerator struct {
	next int
}

// Next returns a fresh positive ID.
func (g *IDGenerator) Next() int {
	g.next++
	return g.next
}

// AgencyConfig tunes agent behaviour.
type AgencyConfig struct {
	StepInterval time.Duration
	Seed         int64
}

// Agency owns the traveler, which follows the Pathfinder's route, and the
// wanderers, which roam the graph and act as moving obstacles.
type Agency struct {
	graph      *Graph
	pathfinder *Pathfinder
	tracker    *OccupancyTracker
	ids        *IDGenerator
	logger     *slog.Logger

	rng          *rand.Rand
	stepInterval time.Duration

	traveler  *Agent
	wanderers []*Agent
}

// NewAgency creates an empty agency and subscribes it to path changes.
func NewAgency(tracker *OccupancyTracker, ids *IDGenerator, cfg AgencyConfig, logger *slog.Logger) *Agency {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StepInterval <= 0 {
		cfg.StepInterval = DefaultStepInterval
	}
	a := &Agency{
		graph:        tracker.graph,
		pathfinder:   tracker.pathfinder,
		tracker:      tracker,
		ids:          ids,
		logger:       logger,
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		stepInterval: cfg.StepInterval,
	}
	a.pathfinder.OnPathChanged(a.followPath)
	return a
}

// Traveler returns the path-following agent, nil before CreateNewSet.
func (a *Agency) Traveler() *Agent { return a.traveler }

// Wanderers returns the roaming agents.
func (a *Agency) Wanderers() []*Agent { return append([]*Agent(nil), a.wanderers...) }

// Agents returns every agent, traveler first.
func (a *Agency) Agents() []*Agent {
	var out []*Agent
	if a.traveler != nil {
		out = append(out, a.traveler)
	}
	return append(out, a.wanderers...)
}

// SetStepInterval changes the step interval of every current and future agent.
func (a *Agency) SetStepInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	a.stepInterval = d
	for _, agent := range a.Agents() {
		agent.SetStepInterval(d)
	}
}

// CreateNewSet replaces all agents with a fresh traveler and n wanderers.
func (a *Agency) CreateNewSet(n int) int {
	a.Clear()

	id := EntityID(a.ids.Next())
	a.pathfinder.SetTraveler(id)
	a.traveler = NewAgent(id, "Traveler", a.tracker, a.stepInterval, a.pathfinder.Path().Nodes())
	a.traveler.Start()

	placed := a.AddWanderers(n)
	a.logger.Info("agents created", "traveler", id, "wanderers", placed)
	return placed
}

// AddWanderers places up to n wanderers on random free nodes and returns how
// many found a place.
func (a *Agency) AddWanderers(n int) int {
	placed := 0
	for i := 0; i < n; i++ {
		free := a.freeNodes()
		if len(free) == 0 {
			break
		}
		id := EntityID(a.ids.Next())
		agent := NewAgent(id, fmt.Sprintf("Agent %d", len(a.wanderers)+1), a.tracker, a.stepInterval, nil)
		agent.wander = a.pickNeighbor
		if !agent.PlaceAt(free[a.rng.Intn(len(free))]) {
			continue
		}
		agent.Start()
		a.wanderers = append(a.wanderers, agent)
		placed++
	}
	return placed
}

// Update advances every agent. Idle agents are started; running ones step.
func (a *Agency) Update(dt time.Duration) {
	for _, agent := range a.Agents() {
		switch agent.RunState() {
		case Running:
			agent.Update(dt)
		case Idle:
			agent.Start()
		}
	}
}

// Clear takes every agent off the graph.
func (a *Agency) Clear() {
	for _, agent := range a.Agents() {
		agent.Leave()
	}
	a.traveler = nil
	a.wanderers = nil
}

// Forget drops agents whose node has been removed from the graph. The
// traveler is only taken off the graph; it rejoins at the start of its path.
func (a *Agency) Forget(evicted []EntityID) {
	for _, id := range evicted {
		if a.traveler != nil && a.traveler.ID == id {
			a.traveler.Leave()
		}
	}
	kept := a.wanderers[:0]
	for _, w := range a.wanderers {
		if containsEntity(evicted, w.ID) {
			w.Leave()
			continue
		}
		kept = append(kept, w)
	}
	a.wanderers = kept
}

func (a *Agency) followPath(p *Path) {
	if a.traveler == nil {
		return
	}
	a.traveler.SetPath(p.Nodes())
	if cur := a.traveler.Current(); cur != 0 && !p.HasNode(cur) {
		a.logger.Debug("traveler off route", "node", cur)
	}
}

func (a *Agency) pickNeighbor(agent *Agent) (NodeID, bool) {
	var options []NodeID
	for _, next := range a.graph.Neighbors(agent.Current()) {
		if a.tracker.CanOccupy(next, agent.ID) {
			options = append(options, next)
		}
	}
	if len(options) == 0 {
		return 0, false
	}
	return options[a.rng.Intn(len(options))], true
}

func (a *Agency) freeNodes() []NodeID {
	var free []NodeID
	for _, n := range a.graph.Nodes() {
		if n.Role == RoleDefault && !n.IsOccupied() {
			free = append(free, n.ID)
		}
	}
	return free
}

func containsEntity(ids []EntityID, id EntityID) bool {
	for _, e := range ids {
		if e == id {
			return true
		}
	}
	return false
}
