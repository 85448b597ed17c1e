package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occupancy-planner/planner"
	"occupancy-planner/scenario"
)

const corridorYAML = `
nodes:
  - {label: A, x: 0, y: 0}
  - {label: B, x: 100, y: 0}
  - {label: C, x: 200, y: 0}
  - {label: D, x: 300, y: 0}
  - {label: X, x: 200, y: 100}
edges:
  - {from: A, to: B, bidirectional: true}
  - {from: B, to: C, bidirectional: true}
  - {from: C, to: D, bidirectional: true}
  - {from: B, to: X, bidirectional: true}
  - {from: X, to: D, bidirectional: true}
start: A
destination: D
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corridor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(corridorYAML), 0o644))

	out, err := execute(t, "analyze", path)
	require.NoError(t, err)

	var a planner.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Len(t, a.Path, 4)
	assert.InDelta(t, 450, a.BaseCost, 1e-9, "distance plus the flat-ground altitude term")
	require.Len(t, a.Nodes, 2)
	assert.Equal(t, []planner.NodeID{a.Path[1]}, a.IrreplaceableNodes, "every detour goes through B")
	assert.InDelta(t, 0.5, a.ChanceOfOpen, 1e-9)

	out, err = execute(t, "analyze", path, "--geojson")
	require.NoError(t, err)
	assert.Contains(t, out, "FeatureCollection")
}

func TestAnalyzeCommandErrors(t *testing.T) {
	_, err := execute(t, "analyze", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "split.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes: [{label: A}, {label: B, x: 100}]\nstart: A\ndestination: B\n"), 0o644))
	_, err = execute(t, "analyze", path)
	assert.ErrorIs(t, err, planner.ErrNoRoute)
}

func TestGenerateCommand(t *testing.T) {
	out, err := execute(t, "generate", "--rows", "2", "--cols", "3", "--seed", "5")
	require.NoError(t, err)

	s, err := scenario.Parse([]byte(out))
	require.NoError(t, err)
	assert.Len(t, s.Nodes, 6)
	assert.Len(t, s.Edges, 7)

	file := filepath.Join(t.TempDir(), "roadmap.yaml")
	_, err = execute(t, "generate", "--method", "roadmap", "--samples", "20", "-o", file)
	require.NoError(t, err)
	loaded, err := scenario.Load(file)
	require.NoError(t, err)
	assert.NotEmpty(t, loaded.Nodes)
}
