package planner

// OccupancyTracker records which entity stands on which node and tells the
// Pathfinder about every change.
type OccupancyTracker struct {
	graph      *Graph
	pathfinder *Pathfinder
	ids        *IDGenerator

	where    map[EntityID]NodeID
	blockers map[NodeID]EntityID
}

// NewOccupancyTracker creates a tracker. ids issues handles for manual blockers.
func NewOccupancyTracker(g *Graph, pf *Pathfinder, ids *IDGenerator) *OccupancyTracker {
	return &OccupancyTracker{
		graph:      g,
		pathfinder: pf,
		ids:        ids,
		where:      make(map[EntityID]NodeID),
		blockers:   make(map[NodeID]EntityID),
	}
}

// CanOccupy reports whether entity may step onto id: the node must be empty
// and plain, except that the traveler may stand on start and destination.
func (t *OccupancyTracker) CanOccupy(id NodeID, entity EntityID) bool {
	n, ok := t.graph.Node(id)
	if !ok || entity == 0 {
		return false
	}
	if n.IsBlockedFor(entity) {
		return false
	}
	if n.Role != RoleDefault && entity != t.pathfinder.Traveler() {
		return false
	}
	return true
}

// Occupy places entity on id, leaving its previous node first.
func (t *OccupancyTracker) Occupy(id NodeID, entity EntityID) bool {
	if !t.CanOccupy(id, entity) {
		return false
	}
	if current, ok := t.where[entity]; ok {
		if current == id {
			return true
		}
		t.Vacate(current, entity)
	}
	n, _ := t.graph.Node(id)
	n.addOccupant(entity)
	t.where[entity] = id
	t.pathfinder.NotifyOccupancyChanged(id, entity, true)
	return true
}

// Vacate removes entity from id.
func (t *OccupancyTracker) Vacate(id NodeID, entity EntityID) bool {
	n, ok := t.graph.Node(id)
	if !ok || !n.removeOccupant(entity) {
		return false
	}
	if t.where[entity] == id {
		delete(t.where, entity)
	}
	t.pathfinder.NotifyOccupancyChanged(id, entity, false)
	return true
}

// Move relocates entity to id. Nothing changes when id cannot be occupied.
func (t *OccupancyTracker) Move(entity EntityID, id NodeID) bool {
	return t.Occupy(id, entity)
}

// NodeOf returns the node entity stands on.
func (t *OccupancyTracker) NodeOf(entity EntityID) (NodeID, bool) {
	id, ok := t.where[entity]
	return id, ok
}

// Forget removes entity from wherever it stands.
func (t *OccupancyTracker) Forget(entity EntityID) {
	if id, ok := t.where[entity]; ok {
		t.Vacate(id, entity)
	}
	delete(t.where, entity)
}

// ForgetNode drops every record of occupants on id. It is used when the node
// itself is being removed, so the pathfinder is not notified.
func (t *OccupancyTracker) ForgetNode(id NodeID) []EntityID {
	var evicted []EntityID
	for entity, at := range t.where {
		if at == id {
			delete(t.where, entity)
			evicted = append(evicted, entity)
		}
	}
	if n, ok := t.graph.Node(id); ok {
		for _, entity := range n.Occupants() {
			n.removeOccupant(entity)
		}
	}
	delete(t.blockers, id)
	return evicted
}

// Block manually occupies id with a fresh blocker entity.
func (t *OccupancyTracker) Block(id NodeID) bool {
	if _, blocked := t.blockers[id]; blocked {
		return false
	}
	blocker := EntityID(t.ids.Next())
	if !t.Occupy(id, blocker) {
		return false
	}
	t.blockers[id] = blocker
	return true
}

// Unblock removes the manual blocker from id.
func (t *OccupancyTracker) Unblock(id NodeID) bool {
	blocker, ok := t.blockers[id]
	if !ok {
		return false
	}
	delete(t.blockers, id)
	return t.Vacate(id, blocker)
}

// IsManuallyBlocked reports whether id carries a manual blocker.
func (t *OccupancyTracker) IsManuallyBlocked(id NodeID) bool {
	_, ok := t.blockers[id]
	return ok
}
