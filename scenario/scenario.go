// Package scenario loads, generates and exports navigation graphs.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"occupancy-planner/planner"
)

// ErrInvalid is wrapped by every error caused by the content of a scenario.
var ErrInvalid = errors.New("invalid scenario")

// Scenario is a graph description with an optional route request.
type Scenario struct {
	Name        string     `yaml:"name,omitempty"`
	Nodes       []NodeSpec `yaml:"nodes"`
	Edges       []EdgeSpec `yaml:"edges"`
	Start       string     `yaml:"start,omitempty"`
	Destination string     `yaml:"destination,omitempty"`
	Waypoints   []string   `yaml:"waypoints,omitempty"`
	Blocked     []string   `yaml:"blocked,omitempty"`
}

// NodeSpec describes one node. Labels must be unique within a scenario.
type NodeSpec struct {
	Label    string  `yaml:"label"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Altitude float64 `yaml:"altitude,omitempty"`
}

// EdgeSpec connects two labelled nodes.
type EdgeSpec struct {
	From          string `yaml:"from"`
	To            string `yaml:"to"`
	Bidirectional bool   `yaml:"bidirectional,omitempty"`
}

// Load reads a scenario file.
func Load(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("scenario: load %s: %w", filename, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario: %s: %w", filename, err)
	}
	return s, nil
}

// Parse decodes a YAML scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &s, nil
}

// Encode writes s to w as YAML.
func Encode(w io.Writer, s *Scenario) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("scenario: encode: %w", err)
	}
	return enc.Close()
}

// Save writes s to filename as YAML.
func Save(s *Scenario, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("scenario: write %s: %w", filename, err)
	}
	if err := Encode(f, s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Apply builds the scenario into nav and returns the node id of every label.
// Nodes rejected by the graph (too close to another node) are an error, as are
// unknown labels and duplicate edges.
func (s *Scenario) Apply(nav *planner.Navigator) (map[string]planner.NodeID, error) {
	ids := make(map[string]planner.NodeID, len(s.Nodes))
	for i, n := range s.Nodes {
		label := n.Label
		if label == "" {
			label = strconv.Itoa(i + 1)
		}
		if _, dup := ids[label]; dup {
			return nil, fmt.Errorf("duplicate node label %q: %w", label, ErrInvalid)
		}
		id, ok := nav.AddNode(n.X, n.Y, n.Altitude, label)
		if !ok {
			return nil, fmt.Errorf("node %q at (%g, %g) overlaps another node: %w", label, n.X, n.Y, ErrInvalid)
		}
		ids[label] = id
	}

	lookup := func(label string) (planner.NodeID, error) {
		id, ok := ids[label]
		if !ok {
			return 0, fmt.Errorf("unknown node %q: %w", label, ErrInvalid)
		}
		return id, nil
	}

	for _, e := range s.Edges {
		from, err := lookup(e.From)
		if err != nil {
			return nil, err
		}
		to, err := lookup(e.To)
		if err != nil {
			return nil, err
		}
		added := nav.AddEdge(from, to)
		if e.Bidirectional {
			added = nav.AddEdge(to, from) && added
		}
		if !added {
			return nil, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, ErrInvalid)
		}
	}

	if s.Start != "" {
		id, err := lookup(s.Start)
		if err != nil {
			return nil, err
		}
		nav.SetStart(id)
	}
	if s.Destination != "" {
		id, err := lookup(s.Destination)
		if err != nil {
			return nil, err
		}
		nav.SetDestination(id)
	}
	for _, label := range s.Waypoints {
		id, err := lookup(label)
		if err != nil {
			return nil, err
		}
		if !nav.AddWaypoint(id, -1) {
			return nil, fmt.Errorf("waypoint %q: %w", label, ErrInvalid)
		}
	}
	for _, label := range s.Blocked {
		id, err := lookup(label)
		if err != nil {
			return nil, err
		}
		if !nav.Block(id) {
			return nil, fmt.Errorf("cannot block %q: %w", label, ErrInvalid)
		}
	}
	return ids, nil
}
