package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"occupancy-planner/config"
	"occupancy-planner/logging"
	"occupancy-planner/planner"
	"occupancy-planner/scenario"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "planner",
		Short:         "Occupancy-aware path planning and risk analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().String("log-format", logging.FormatText, "log format (text or json)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Int64("seed", 1, "random seed for agents and generation")

	root.AddCommand(
		newServeCmd(&cfgFile),
		newAnalyzeCmd(&cfgFile),
		newGenerateCmd(&cfgFile),
	)
	return root
}

// loadConfig reads configuration for cmd and builds its logger.
func loadConfig(cfgFile string, flags *pflag.FlagSet) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile, flags)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Log.Format, cfg.Log.Level, nil)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// loadNavigator builds a navigator and, when file is set, applies the scenario
// in it.
func loadNavigator(cfg planner.Config, file string, logger *slog.Logger) (*planner.Navigator, error) {
	nav := planner.NewNavigator(cfg, logger)
	if file == "" {
		return nav, nil
	}
	s, err := scenario.Load(file)
	if err != nil {
		return nil, err
	}
	if _, err := s.Apply(nav); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", file, err)
	}
	logger.Info("scenario loaded",
		"file", file,
		"nodes", nav.Graph().NodeCount(),
		"edges", nav.Graph().EdgeCount(),
	)
	return nav, nil
}

func newServeCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the simulation tick loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			nav, err := loadNavigator(cfg.Planner.Navigator(), cfg.Planner.Scenario, logger)
			if err != nil {
				return err
			}
			if cfg.Planner.Scenario != "" {
				nav.StartPathfinding()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, *cfgFile, cmd.Flags(), nav, logger)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("cors", "*", "allowed CORS origin")
	cmd.Flags().Duration("tick", 50*time.Millisecond, "simulation tick interval")
	cmd.Flags().String("scenario", "", "scenario YAML to load on start")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, cfgFile string, flags *pflag.FlagSet, nav *planner.Navigator, logger *slog.Logger) error {
	srv := newServer(nav, cfg.Server, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go srv.run(ctx, cfg.Server.TickInterval)

	if cfgFile != "" {
		w, err := config.NewWatcher(cfgFile)
		if err != nil {
			return err
		}
		defer w.Close()
		go watchConfig(ctx, w, cfgFile, flags, srv, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "tick", cfg.Server.TickInterval)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// watchConfig re-reads the config file on change and pushes the planner
// tunables into the running navigator. Server and log settings need a restart.
func watchConfig(ctx context.Context, w *config.Watcher, cfgFile string, flags *pflag.FlagSet, srv *server, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-w.Events:
			if !ok {
				return
			}
			cfg, err := config.Load(cfgFile, flags)
			if err != nil {
				logger.Error("config reload failed", "file", cfgFile, "err", err)
				continue
			}
			srv.reconfigure(cfg.Planner.Navigator())
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("config watch error", "err", err)
		}
	}
}

func newAnalyzeCmd(cfgFile *string) *cobra.Command {
	var geoJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <scenario.yaml>",
		Short: "Plan the scenario's route and report how fragile it is",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			nav, err := loadNavigator(cfg.Planner.Navigator(), args[0], logger)
			if err != nil {
				return err
			}
			if !nav.StartPathfinding() {
				return fmt.Errorf("analyze %s: %w", args[0], planner.ErrNoRoute)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if geoJSON {
				return enc.Encode(scenario.GraphGeoJSON(nav.Snapshot()))
			}
			analysis, err := nav.Analyze()
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}
			return enc.Encode(analysis)
		},
	}
	cmd.Flags().BoolVar(&geoJSON, "geojson", false, "print the graph and route as GeoJSON instead")
	return cmd
}

func newGenerateCmd(cfgFile *string) *cobra.Command {
	gc := scenario.DefaultGenerateConfig()
	var (
		obstacles string
		epsilon   float64
		output    string
		width     float64
		height    float64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a grid or roadmap scenario as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			gc.Seed = cfg.Planner.Seed
			gc.MinSeparation = cfg.Planner.MinSeparation
			gc.Bounds = orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{width, height}}
			if obstacles != "" {
				rings, err := scenario.LoadObstacles(obstacles)
				if err != nil {
					return err
				}
				gc.Obstacles = scenario.PrepareObstacles(rings, epsilon)
				logger.Info("obstacles loaded", "file", obstacles, "rings", len(rings), "kept", len(gc.Obstacles))
			}

			s, err := scenario.Generate(gc, logger)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return scenario.Encode(cmd.OutOrStdout(), s)
			}
			return scenario.Save(s, output)
		},
	}
	f := cmd.Flags()
	f.StringVar(&gc.Method, "method", gc.Method, "grid or roadmap")
	f.IntVar(&gc.Rows, "rows", gc.Rows, "grid rows")
	f.IntVar(&gc.Cols, "cols", gc.Cols, "grid columns")
	f.Float64Var(&gc.Spacing, "spacing", gc.Spacing, "grid spacing")
	f.IntVar(&gc.Samples, "samples", gc.Samples, "roadmap samples")
	f.Float64Var(&gc.ConnectionRadius, "radius", gc.ConnectionRadius, "roadmap connection radius")
	f.Float64Var(&width, "width", gc.Bounds.Max.X(), "roadmap world width")
	f.Float64Var(&height, "height", gc.Bounds.Max.Y(), "roadmap world height")
	f.Float64Var(&gc.Terrain.MaxAltitude, "max-altitude", gc.Terrain.MaxAltitude, "terrain peak altitude")
	f.Float64Var(&gc.Terrain.Noise, "noise", gc.Terrain.Noise, "terrain noise share")
	f.StringVar(&obstacles, "obstacles", "", "GeoJSON file of obstacle polygons")
	f.Float64Var(&epsilon, "simplify", 0, "Douglas-Peucker tolerance for obstacle outlines (0 keeps them as is)")
	f.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return 1
}
