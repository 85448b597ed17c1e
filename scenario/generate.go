package scenario

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"occupancy-planner/planner"
)

// Generation methods.
const (
	MethodGrid    = "grid"
	MethodRoadmap = "roadmap"
)

// GenerateConfig controls procedural graph generation.
type GenerateConfig struct {
	Method string

	// Grid layout.
	Rows    int
	Cols    int
	Spacing float64

	// Roadmap layout: random samples inside Bounds joined within ConnectionRadius.
	Samples          int
	ConnectionRadius float64
	Bounds           orb.Bound

	MinSeparation float64
	Obstacles     []orb.Ring
	Terrain       Terrain
	Seed          int64
}

// DefaultGenerateConfig returns a 13x18 grid with 100 units between nodes.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Method:           MethodGrid,
		Rows:             13,
		Cols:             18,
		Spacing:          100,
		Samples:          150,
		ConnectionRadius: 250,
		Bounds:           orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1800, 1300}},
		MinSeparation:    planner.DefaultMinSeparation,
		Terrain:          DefaultTerrain(),
		Seed:             1,
	}
}

// Terrain shapes node altitudes as a dome peaking in the middle of the world,
// perturbed by a random share of the local height.
type Terrain struct {
	MinAltitude float64
	MaxAltitude float64
	Noise       float64
}

// DefaultTerrain returns altitudes in [1, 100] with 30% noise.
func DefaultTerrain() Terrain {
	return Terrain{MinAltitude: 1, MaxAltitude: 100, Noise: 0.3}
}

// Altitude returns the altitude at p inside bounds.
func (t Terrain) Altitude(p orb.Point, bounds orb.Bound, rng *rand.Rand) float64 {
	if t.MaxAltitude <= t.MinAltitude {
		return t.MinAltitude
	}
	x, y := 0.5, 0.5
	if w := bounds.Max.X() - bounds.Min.X(); w > 0 {
		x = (p.X() - bounds.Min.X()) / w
	}
	if h := bounds.Max.Y() - bounds.Min.Y(); h > 0 {
		y = (p.Y() - bounds.Min.Y()) / h
	}

	const peak = 0.5
	ratio := (peak - ((x-0.5)*(x-0.5) + (y-0.5)*(y-0.5))) / peak
	base := math.Floor(ratio*ratio*(t.MaxAltitude-t.MinAltitude) + t.MinAltitude)

	offset := 0.0
	if span := int(2 * base); span > 0 {
		offset = float64(rng.Intn(span)) - base
	}
	alt := base*(1-t.Noise) + offset*t.Noise
	return math.Max(t.MinAltitude, math.Min(t.MaxAltitude, alt))
}

// Generate builds a scenario with a random start and destination.
func Generate(cfg GenerateConfig, logger *slog.Logger) (*Scenario, error) {
	if logger == nil {
		logger = slog.Default()
	}
	started := time.Now()
	rng := rand.New(rand.NewSource(cfg.Seed))

	var (
		s   *Scenario
		err error
	)
	switch cfg.Method {
	case MethodGrid, "":
		s, err = generateGrid(cfg, rng)
	case MethodRoadmap:
		s, err = generateRoadmap(cfg, rng, logger)
	default:
		err = fmt.Errorf("unknown method %q: %w", cfg.Method, ErrInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("scenario: generate: %w", err)
	}

	if len(s.Nodes) >= 2 {
		picks := rng.Perm(len(s.Nodes))
		s.Start = s.Nodes[picks[0]].Label
		s.Destination = s.Nodes[picks[1]].Label
	}
	logger.Info("graph generated",
		"method", cfg.Method,
		"nodes", len(s.Nodes),
		"edges", len(s.Edges),
		"elapsed", time.Since(started),
	)
	return s, nil
}

func generateGrid(cfg GenerateConfig, rng *rand.Rand) (*Scenario, error) {
	if cfg.Rows <= 0 || cfg.Cols <= 0 {
		return nil, fmt.Errorf("grid %dx%d: %w", cfg.Rows, cfg.Cols, ErrInvalid)
	}
	if cfg.Spacing < cfg.MinSeparation {
		return nil, fmt.Errorf("spacing %g below separation %g: %w", cfg.Spacing, cfg.MinSeparation, ErrInvalid)
	}

	bounds := orb.Bound{
		Min: orb.Point{0, 0},
		Max: orb.Point{float64(cfg.Cols-1) * cfg.Spacing, float64(cfg.Rows-1) * cfg.Spacing},
	}
	s := &Scenario{Name: fmt.Sprintf("grid %dx%d", cfg.Rows, cfg.Cols)}
	label := func(r, c int) string { return fmt.Sprintf("r%dc%d", r, c) }

	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			p := orb.Point{float64(c) * cfg.Spacing, float64(r) * cfg.Spacing}
			if insideAny(p, cfg.Obstacles) {
				continue
			}
			s.Nodes = append(s.Nodes, NodeSpec{
				Label:    label(r, c),
				X:        p.X(),
				Y:        p.Y(),
				Altitude: cfg.Terrain.Altitude(p, bounds, rng),
			})
		}
	}

	present := make(map[string]orb.Point, len(s.Nodes))
	for _, n := range s.Nodes {
		present[n.Label] = orb.Point{n.X, n.Y}
	}
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			from, ok := present[label(r, c)]
			if !ok {
				continue
			}
			for _, next := range [][2]int{{r, c + 1}, {r + 1, c}} {
				to, ok := present[label(next[0], next[1])]
				if !ok || !pathClear(from, to, cfg.Obstacles) {
					continue
				}
				s.Edges = append(s.Edges, EdgeSpec{From: label(r, c), To: label(next[0], next[1]), Bidirectional: true})
			}
		}
	}
	return s, nil
}

// generateRoadmap samples points inside the bounds, rejecting those inside an
// obstacle or too close to an accepted sample, then joins every pair within the
// connection radius whose segment stays clear of obstacles.
func generateRoadmap(cfg GenerateConfig, rng *rand.Rand, logger *slog.Logger) (*Scenario, error) {
	if cfg.Samples <= 0 || cfg.ConnectionRadius <= 0 {
		return nil, fmt.Errorf("roadmap needs samples and a connection radius: %w", ErrInvalid)
	}
	b := cfg.Bounds
	if b.Max.X() <= b.Min.X() || b.Max.Y() <= b.Min.Y() {
		return nil, fmt.Errorf("empty bounds: %w", ErrInvalid)
	}

	s := &Scenario{Name: fmt.Sprintf("roadmap %d", cfg.Samples)}
	index := planner.NewSpatialIndex()
	points := make([]orb.Point, 0, cfg.Samples)

	attempts := 0
	maxAttempts := cfg.Samples * 10
	for len(points) < cfg.Samples && attempts < maxAttempts {
		attempts++
		p := orb.Point{
			b.Min.X() + rng.Float64()*(b.Max.X()-b.Min.X()),
			b.Min.Y() + rng.Float64()*(b.Max.Y()-b.Min.Y()),
		}
		if insideAny(p, cfg.Obstacles) || len(index.Within(p, cfg.MinSeparation)) > 0 {
			continue
		}
		if !index.Insert(planner.NodeID(len(points)+1), p) {
			continue
		}
		points = append(points, p)
		s.Nodes = append(s.Nodes, NodeSpec{
			Label:    strconv.Itoa(len(points)),
			X:        p.X(),
			Y:        p.Y(),
			Altitude: cfg.Terrain.Altitude(p, b, rng),
		})
	}
	if len(points) < cfg.Samples {
		logger.Warn("fewer samples than requested", "placed", len(points), "requested", cfg.Samples)
	}

	rejected := 0
	for i, p := range points {
		for _, id := range index.Within(p, cfg.ConnectionRadius+1e-9) {
			j := int(id) - 1
			if j <= i {
				continue
			}
			if planar.Distance(p, points[j]) > cfg.ConnectionRadius {
				continue
			}
			if !pathClear(p, points[j], cfg.Obstacles) {
				rejected++
				continue
			}
			s.Edges = append(s.Edges, EdgeSpec{From: s.Nodes[i].Label, To: s.Nodes[j].Label, Bidirectional: true})
		}
	}
	if rejected > 0 {
		logger.Debug("edges rejected by obstacles", "count", rejected)
	}
	return s, nil
}
