package planner

import (
	"container/heap"
	"math"
)

// searchNode is a node in the A* open set
type searchNode struct {
	id     NodeID
	g      float64 // Cost from start to this node
	h      float64 // Heuristic cost from this node to goal
	f      float64 // Total cost (g + h)
	parent *searchNode
	index  int // Index in the heap
}

// openSet implements heap.Interface for the A* frontier
type openSet []*searchNode

func (pq openSet) Len() int { return len(pq) }

func (pq openSet) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	if pq[i].h != pq[j].h {
		return pq[i].h < pq[j].h
	}
	return pq[i].id < pq[j].id
}

func (pq openSet) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *openSet) Push(x interface{}) {
	n := len(*pq)
	node := x.(*searchNode)
	node.index = n
	*pq = append(*pq, node)
}

func (pq *openSet) Pop() interface{} {
	old := *pq
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*pq = old[0 : n-1]
	return node
}

// AStar finds the cheapest route from start to goal using cached edge weights
// with live occupancy. The heuristic is straight-line distance, which never
// overestimates because every finite edge costs at least its length.
// Impassable edges are never relaxed. Returns the node sequence, its cost and
// whether the goal was reached.
func AStar(g *Graph, start, goal NodeID, traveler EntityID) ([]NodeID, float64, bool) {
	startNode, ok := g.Node(start)
	if !ok {
		return nil, Impassable, false
	}
	goalNode, ok := g.Node(goal)
	if !ok {
		return nil, Impassable, false
	}
	if start == goal {
		return []NodeID{start}, 0, true
	}

	frontier := &openSet{}
	heap.Init(frontier)

	h := startNode.DistanceTo(goalNode)
	first := &searchNode{id: start, h: h, f: h}
	heap.Push(frontier, first)

	closed := make(map[NodeID]bool)
	open := map[NodeID]*searchNode{start: first}

	for frontier.Len() > 0 {
		current := heap.Pop(frontier).(*searchNode)
		delete(open, current.id)

		if current.id == goal {
			return reconstruct(current), current.g, true
		}
		closed[current.id] = true

		for _, next := range g.Neighbors(current.id) {
			if closed[next] {
				continue
			}
			cost := g.EdgeCost(current.id, next, traveler)
			if math.IsInf(cost, 1) {
				continue
			}
			tentative := current.g + cost

			neighbor, exists := open[next]
			if !exists {
				nextNode, _ := g.Node(next)
				neighbor = &searchNode{
					id:     next,
					g:      tentative,
					h:      nextNode.DistanceTo(goalNode),
					parent: current,
				}
				neighbor.f = neighbor.g + neighbor.h
				heap.Push(frontier, neighbor)
				open[next] = neighbor
			} else if tentative < neighbor.g {
				neighbor.g = tentative
				neighbor.f = neighbor.g + neighbor.h
				neighbor.parent = current
				heap.Fix(frontier, neighbor.index)
			}
		}
	}

	return nil, Impassable, false
}

func reconstruct(end *searchNode) []NodeID {
	var path []NodeID
	for n := end; n != nil; n = n.parent {
		path = append(path, n.id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
