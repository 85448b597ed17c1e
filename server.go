package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"occupancy-planner/config"
	"occupancy-planner/planner"
	"occupancy-planner/scenario"
)

// server exposes a Navigator over HTTP. The navigator is single-threaded, so
// every handler and the tick loop hold mu while touching it.
type server struct {
	mu      sync.Mutex
	nav     *planner.Navigator
	logger  *slog.Logger
	limiter *rate.Limiter
	origin  string
}

func newServer(nav *planner.Navigator, cfg config.ServerConfig, logger *slog.Logger) *server {
	return &server{
		nav:     nav,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		origin:  cfg.CORSOrigin,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /graph", s.graphHandler)
	mux.HandleFunc("GET /snapshot", s.snapshotHandler)
	mux.HandleFunc("POST /nodes", s.addNodeHandler)
	mux.HandleFunc("PATCH /nodes/{id}", s.updateNodeHandler)
	mux.HandleFunc("DELETE /nodes/{id}", s.removeNodeHandler)
	mux.HandleFunc("POST /edges", s.addEdgeHandler)
	mux.HandleFunc("DELETE /edges", s.removeEdgeHandler)
	mux.HandleFunc("POST /roles", s.roleHandler)
	mux.HandleFunc("POST /waypoints", s.addWaypointHandler)
	mux.HandleFunc("DELETE /waypoints/{id}", s.removeWaypointHandler)
	mux.HandleFunc("POST /occupancy", s.occupancyHandler)
	mux.HandleFunc("GET /route", s.routeHandler)
	mux.HandleFunc("POST /route", s.planHandler)
	mux.HandleFunc("DELETE /route", s.clearRouteHandler)
	mux.HandleFunc("GET /analysis", s.analysisHandler)
	mux.HandleFunc("POST /agents", s.spawnAgentsHandler)
	mux.HandleFunc("DELETE /agents", s.clearAgentsHandler)
	return s.corsMiddleware(s.rateLimitMiddleware(mux))
}

// run advances the navigator by the measured time between ticks until ctx is
// cancelled.
func (s *server) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			s.mu.Lock()
			s.nav.Update(dt)
			s.mu.Unlock()
		}
	}
}

func (s *server) reconfigure(cfg planner.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.Reconfigure(cfg)
	s.logger.Info("planner reconfigured",
		"refresh_interval", cfg.RefreshInterval,
		"step_interval", cfg.StepInterval,
		"altitude_weight", cfg.CostModel.AltitudeWeight,
	)
}

// corsMiddleware adds CORS headers to allow frontend requests
func (s *server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.Warn("rate limited", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Debug("invalid request body", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (planner.NodeID, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return 0, false
	}
	return planner.NodeID(id), true
}

// GET /health
func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	g := s.nav.Graph()
	body := map[string]any{
		"status":      "ready",
		"nodes":       g.NodeCount(),
		"edges":       g.EdgeCount(),
		"path_length": s.nav.Path().Count(),
		"replans":     s.nav.Pathfinder().Replans(),
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

// GET /graph returns the graph and route as GeoJSON.
func (s *server) graphHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.nav.Snapshot()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, scenario.GraphGeoJSON(snap))
}

// GET /snapshot
func (s *server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.nav.Snapshot()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

type nodeRequest struct {
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Altitude *float64 `json:"altitude"`
	Label    string   `json:"label"`
}

// POST /nodes
func (s *server) addNodeHandler(w http.ResponseWriter, r *http.Request) {
	var req nodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, http.StatusBadRequest, "x and y are required")
		return
	}
	var alt float64
	if req.Altitude != nil {
		alt = *req.Altitude
	}

	s.mu.Lock()
	id, ok := s.nav.AddNode(*req.X, *req.Y, alt, req.Label)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusConflict, "position too close to an existing node")
		return
	}
	s.logger.Debug("node added", "node", id, "x", *req.X, "y", *req.Y)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// PATCH /nodes/{id} moves a node and/or changes its altitude.
func (s *server) updateNodeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req nodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if (req.X == nil) != (req.Y == nil) {
		writeError(w, http.StatusBadRequest, "x and y must be given together")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.nav.Graph().HasNode(id) {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	if req.X != nil && !s.nav.MoveNode(id, orb.Point{*req.X, *req.Y}) {
		writeError(w, http.StatusConflict, "position too close to an existing node")
		return
	}
	if req.Altitude != nil {
		s.nav.SetAltitude(id, *req.Altitude)
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /nodes/{id}
func (s *server) removeNodeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	removed := s.nav.RemoveNode(id)
	s.mu.Unlock()
	if !removed {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type edgeRequest struct {
	From          planner.NodeID `json:"from"`
	To            planner.NodeID `json:"to"`
	Bidirectional bool           `json:"bidirectional"`
}

// POST /edges
func (s *server) addEdgeHandler(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	var added bool
	if req.Bidirectional {
		added = s.nav.AddBidirectionalEdge(req.From, req.To)
	} else {
		added = s.nav.AddEdge(req.From, req.To)
	}
	s.mu.Unlock()
	if !added {
		writeError(w, http.StatusConflict, "edge rejected")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// DELETE /edges?from=1&to=2
func (s *server) removeEdgeHandler(w http.ResponseWriter, r *http.Request) {
	from, err1 := strconv.Atoi(r.URL.Query().Get("from"))
	to, err2 := strconv.Atoi(r.URL.Query().Get("to"))
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	s.mu.Lock()
	removed := s.nav.RemoveEdge(planner.NodeID(from), planner.NodeID(to))
	s.mu.Unlock()
	if !removed {
		writeError(w, http.StatusNotFound, "edge not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type roleRequest struct {
	Node planner.NodeID `json:"node"`
	Role string         `json:"role"`
}

// POST /roles
func (s *server) roleHandler(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !s.decode(w, r, &req) {
		return
	}
	role, ok := planner.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	s.mu.Lock()
	set := s.nav.SetRole(req.Node, role)
	s.mu.Unlock()
	if !set {
		writeError(w, http.StatusConflict, "role rejected")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type waypointRequest struct {
	Node  planner.NodeID `json:"node"`
	Index *int           `json:"index"`
}

// POST /waypoints
func (s *server) addWaypointHandler(w http.ResponseWriter, r *http.Request) {
	var req waypointRequest
	if !s.decode(w, r, &req) {
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	s.mu.Lock()
	added := s.nav.AddWaypoint(req.Node, index)
	s.mu.Unlock()
	if !added {
		writeError(w, http.StatusConflict, "waypoint rejected")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// DELETE /waypoints/{id}
func (s *server) removeWaypointHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	removed := s.nav.RemoveWaypoint(id)
	s.mu.Unlock()
	if !removed {
		writeError(w, http.StatusNotFound, "waypoint not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type occupancyRequest struct {
	Node    planner.NodeID `json:"node"`
	Blocked bool           `json:"blocked"`
}

// POST /occupancy blocks or unblocks a node by hand.
func (s *server) occupancyHandler(w http.ResponseWriter, r *http.Request) {
	var req occupancyRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	var changed bool
	if req.Blocked {
		changed = s.nav.Block(req.Node)
	} else {
		changed = s.nav.Unblock(req.Node)
	}
	s.mu.Unlock()
	if !changed {
		writeError(w, http.StatusConflict, "occupancy unchanged")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type routeResponse struct {
	Path        []planner.NodeID `json:"path"`
	Cost        planner.Cost     `json:"cost"`
	Start       planner.NodeID   `json:"start"`
	Destination planner.NodeID   `json:"destination"`
	Waypoints   []planner.NodeID `json:"waypoints"`
	SplitPoints []planner.NodeID `json:"split_points"`
	Pending     bool             `json:"pending"`
}

func (s *server) currentRoute() routeResponse {
	pf := s.nav.Pathfinder()
	return routeResponse{
		Path:        s.nav.Path().Nodes(),
		Cost:        planner.Cost(pf.PathCost()),
		Start:       pf.Start(),
		Destination: pf.Destination(),
		Waypoints:   pf.Waypoints(),
		SplitPoints: pf.SplitPoints(),
		Pending:     pf.Pending(),
	}
}

// GET /route
func (s *server) routeHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := s.currentRoute()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// POST /route re-plans immediately.
func (s *server) planHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	found := s.nav.StartPathfinding()
	resp := s.currentRoute()
	s.mu.Unlock()

	if !found {
		s.logger.Info("no route", "start", resp.Start, "destination", resp.Destination)
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	s.logger.Info("route planned", "nodes", len(resp.Path), "cost", float64(resp.Cost))
	writeJSON(w, http.StatusOK, resp)
}

// DELETE /route
func (s *server) clearRouteHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.nav.ClearPath()
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// GET /analysis
func (s *server) analysisHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	analysis, err := s.nav.Analyze()
	s.mu.Unlock()

	switch {
	case errors.Is(err, planner.ErrPathTooShort), errors.Is(err, planner.ErrNoRoute):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.logger.Error("analysis failed", "err", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

type agentsRequest struct {
	Count int `json:"count"`
}

// POST /agents replaces all agents with a traveler and count wanderers.
func (s *server) spawnAgentsHandler(w http.ResponseWriter, r *http.Request) {
	var req agentsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Count < 0 {
		writeError(w, http.StatusBadRequest, "count must not be negative")
		return
	}
	s.mu.Lock()
	placed := s.nav.SpawnAgents(req.Count)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]int{"requested": req.Count, "placed": placed})
}

// DELETE /agents
func (s *server) clearAgentsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.nav.Agency().Clear()
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
