package planner

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// NodeID identifies a node in a Graph. Zero means "no node".
type NodeID int

// EntityID identifies something that can stand on a node (agent or blocker).
type EntityID int

// Role marks the part a node plays in the current route request.
type Role int

const (
	RoleDefault Role = iota
	RoleStart
	RoleDestination
)

func (r Role) String() string {
	switch r {
	case RoleStart:
		return "start"
	case RoleDestination:
		return "destination"
	default:
		return "default"
	}
}

// ParseRole maps the names used by the API and scenario files to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "start":
		return RoleStart, true
	case "destination":
		return RoleDestination, true
	case "default", "":
		return RoleDefault, true
	}
	return RoleDefault, false
}

// Node is a positioned vertex of the navigation graph.
type Node struct {
	ID       NodeID
	Label    string
	Position orb.Point
	Altitude float64
	Role     Role

	occupants map[EntityID]struct{}
}

// NewNode creates an unattached node. The graph assigns the ID on AddNode.
func NewNode(x, y, altitude float64) *Node {
	return &Node{
		Position: orb.Point{x, y},
		Altitude: altitude,
	}
}

// DistanceTo returns the planar distance between two nodes.
func (n *Node) DistanceTo(other *Node) float64 {
	return planar.Distance(n.Position, other.Position)
}

// IsOccupied reports whether any entity stands on the node.
func (n *Node) IsOccupied() bool {
	return len(n.occupants) > 0
}

// IsBlockedFor reports whether the node is occupied by someone other than entity.
func (n *Node) IsBlockedFor(entity EntityID) bool {
	for occupant := range n.occupants {
		if occupant != entity {
			return true
		}
	}
	return false
}

// HasOccupant reports whether entity stands on the node.
func (n *Node) HasOccupant(entity EntityID) bool {
	_, ok := n.occupants[entity]
	return ok
}

// Occupants returns the entities on the node in ascending order.
func (n *Node) Occupants() []EntityID {
	out := make([]EntityID, 0, len(n.occupants))
	for e := range n.occupants {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (n *Node) addOccupant(entity EntityID) {
	if n.occupants == nil {
		n.occupants = make(map[EntityID]struct{})
	}
	n.occupants[entity] = struct{}{}
}

func (n *Node) removeOccupant(entity EntityID) bool {
	if _, ok := n.occupants[entity]; !ok {
		return false
	}
	delete(n.occupants, entity)
	return true
}
