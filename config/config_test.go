package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occupancy-planner/planner"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 50*time.Millisecond, cfg.Server.TickInterval)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, planner.DefaultConfig(), cfg.Planner.Navigator())
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := writeFile(t, t.TempDir(), "planner.yaml", `
server:
  addr: ":9000"
  rate_limit: 5
log:
  level: debug
planner:
  refresh_interval: 1s
  altitude_weight: 0.5
  seed: 3
`)
	t.Setenv("PATHPLAN_PLANNER_STEP_INTERVAL", "2s")
	t.Setenv("PATHPLAN_SERVER_ADDR", ":9100")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int64("seed", 1, "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--seed", "42"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr, "env beats file")
	assert.Equal(t, 5.0, cfg.Server.RateLimit)
	assert.Equal(t, "debug", cfg.Log.Level, "unset flag leaves file value")
	assert.Equal(t, time.Second, cfg.Planner.RefreshInterval)
	assert.Equal(t, 2*time.Second, cfg.Planner.StepInterval)
	assert.Equal(t, int64(42), cfg.Planner.Seed, "set flag beats file")

	nav := cfg.Planner.Navigator()
	assert.Equal(t, 0.5, nav.CostModel.AltitudeWeight)
	assert.Equal(t, planner.DefaultMaxSlope, nav.CostModel.MaxSlope)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick", func(c *Config) { c.Server.TickInterval = 0 }},
		{"no rate", func(c *Config) { c.Server.RateLimit = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "shout" }},
		{"inverted slopes", func(c *Config) { c.Planner.MinSlope, c.Planner.MaxSlope = 1, 2 }},
		{"negative weight", func(c *Config) { c.Planner.AltitudeWeight = -1 }},
		{"no separation", func(c *Config) { c.Planner.MinSeparation = 0 }},
		{"zero refresh", func(c *Config) { c.Planner.RefreshInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("", nil)
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "planner.yaml", "planner:\n  min_separation: -1\n")
	_, err := Load(path, nil)
	assert.ErrorIs(t, err, ErrInvalid)
}
