// Package config loads service settings from defaults, an optional YAML file,
// PATHPLAN_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"occupancy-planner/logging"
	"occupancy-planner/planner"
)

// EnvPrefix is prepended to every environment override, e.g.
// PATHPLAN_SERVER_ADDR or PATHPLAN_PLANNER_REFRESH_INTERVAL.
const EnvPrefix = "PATHPLAN"

// ErrInvalid is wrapped by Validate failures.
var ErrInvalid = errors.New("invalid config")

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Planner PlannerConfig `mapstructure:"planner"`
}

// ServerConfig controls the HTTP API and its tick loop.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig selects the logger format and level.
type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

// PlannerConfig holds the tunables that can be changed while running.
type PlannerConfig struct {
	AltitudeWeight  float64       `mapstructure:"altitude_weight"`
	MinSlope        float64       `mapstructure:"min_slope"`
	MaxSlope        float64       `mapstructure:"max_slope"`
	MinSeparation   float64       `mapstructure:"min_separation"`
	NodeRadius      float64       `mapstructure:"node_radius"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	StepInterval    time.Duration `mapstructure:"step_interval"`
	Seed            int64         `mapstructure:"seed"`
	Scenario        string        `mapstructure:"scenario"`
}

// Navigator converts the tunables into a planner configuration.
func (p PlannerConfig) Navigator() planner.Config {
	return planner.Config{
		CostModel: planner.CostModel{
			AltitudeWeight: p.AltitudeWeight,
			MinSlope:       p.MinSlope,
			MaxSlope:       p.MaxSlope,
		},
		MinSeparation:   p.MinSeparation,
		NodeRadius:      p.NodeRadius,
		RefreshInterval: p.RefreshInterval,
		StepInterval:    p.StepInterval,
		Seed:            p.Seed,
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":       "server.addr",
	"cors":       "server.cors_origin",
	"tick":       "server.tick_interval",
	"log-format": "log.format",
	"log-level":  "log.level",
	"seed":       "planner.seed",
	"scenario":   "planner.scenario",
}

func setDefaults(v *viper.Viper) {
	pc := planner.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.tick_interval", 50*time.Millisecond)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("log.format", logging.FormatText)
	v.SetDefault("log.level", "info")

	v.SetDefault("planner.altitude_weight", pc.CostModel.AltitudeWeight)
	v.SetDefault("planner.min_slope", pc.CostModel.MinSlope)
	v.SetDefault("planner.max_slope", pc.CostModel.MaxSlope)
	v.SetDefault("planner.min_separation", pc.MinSeparation)
	v.SetDefault("planner.node_radius", pc.NodeRadius)
	v.SetDefault("planner.refresh_interval", pc.RefreshInterval)
	v.SetDefault("planner.step_interval", pc.StepInterval)
	v.SetDefault("planner.seed", pc.Seed)
	v.SetDefault("planner.scenario", "")
}

// Load reads the configuration. file may be empty; flags may be nil. Only
// flags the user actually set override lower layers.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot check on its own.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
		errs = append(errs, fmt.Errorf("rate limit %g/%d must be positive", c.Server.RateLimit, c.Server.RateBurst))
	}
	if c.Server.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval %s must be positive", c.Server.TickInterval))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	p := c.Planner
	if p.MinSlope >= 0 || p.MaxSlope <= 0 {
		errs = append(errs, fmt.Errorf("slope bounds [%g, %g] must straddle zero", p.MinSlope, p.MaxSlope))
	}
	if p.AltitudeWeight < 0 {
		errs = append(errs, fmt.Errorf("altitude weight %g is negative", p.AltitudeWeight))
	}
	if p.MinSeparation <= 0 {
		errs = append(errs, fmt.Errorf("min separation %g must be positive", p.MinSeparation))
	}
	if p.RefreshInterval <= 0 || p.StepInterval <= 0 {
		errs = append(errs, fmt.Errorf("refresh %s and step %s intervals must be positive", p.RefreshInterval, p.StepInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
