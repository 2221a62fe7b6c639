// Package config holds the run configuration shared by the simulator and the
// plotter. Values come from viper: defaults, an optional YAML file, DRONE_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override settings,
// e.g. DRONE_SIM_SPEED=0.8.
const EnvPrefix = "DRONE"

// Config is the root configuration.
type Config struct {
	Sim    SimConfig    `mapstructure:"sim" yaml:"sim"`
	Field  FieldConfig  `mapstructure:"field" yaml:"field"`
	Paths  PathsConfig  `mapstructure:"paths" yaml:"paths"`
	Video  VideoConfig  `mapstructure:"video" yaml:"video"`
	Plot   PlotConfig   `mapstructure:"plot" yaml:"plot"`
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
}

// SimConfig controls the step loop.
type SimConfig struct {
	GUI      bool    `mapstructure:"gui" yaml:"gui"`
	Speed    float64 `mapstructure:"speed" yaml:"speed"`         // m/s
	Dt       float64 `mapstructure:"dt" yaml:"dt"`               // s
	Eps      float64 `mapstructure:"eps" yaml:"eps"`             // arrival threshold (m)
	MaxSteps int     `mapstructure:"max_steps" yaml:"max_steps"` // safety cap
	WindX    float64 `mapstructure:"wind_x" yaml:"wind_x"`       // m/s, constant drift
	WindY    float64 `mapstructure:"wind_y" yaml:"wind_y"`       // m/s
}

// FieldConfig tunes the obstacle repulsion field.
type FieldConfig struct {
	Influence float64 `mapstructure:"influence" yaml:"influence"` // m
	Gain      float64 `mapstructure:"gain" yaml:"gain"`
}

// PathsConfig lists the input and output files.
type PathsConfig struct {
	Waypoints string `mapstructure:"waypoints" yaml:"waypoints"`
	Obstacles string `mapstructure:"obstacles" yaml:"obstacles"`
	TrajOut   string `mapstructure:"traj_out" yaml:"traj_out"`
	TrajDB    string `mapstructure:"traj_db" yaml:"traj_db"`
}

// VideoConfig enables frame capture and MP4 encoding.
type VideoConfig struct {
	Record bool   `mapstructure:"record" yaml:"record"`
	Path   string `mapstructure:"path" yaml:"path"`
	Width  int    `mapstructure:"width" yaml:"width"`
	Height int    `mapstructure:"height" yaml:"height"`
}

// PlotConfig is used by traj_plot only.
type PlotConfig struct {
	Traj   string `mapstructure:"traj" yaml:"traj"`
	DB     string `mapstructure:"db" yaml:"db"`
	RunID  string `mapstructure:"run" yaml:"run"`
	OutDir string `mapstructure:"out" yaml:"out"`
	HTML   bool   `mapstructure:"html" yaml:"html"`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sim.gui", false)
	v.SetDefault("sim.speed", 0.6)
	v.SetDefault("sim.dt", 1.0/240.0)
	v.SetDefault("sim.eps", 0.05)
	v.SetDefault("sim.max_steps", 12000)
	v.SetDefault("sim.wind_x", 0.0)
	v.SetDefault("sim.wind_y", 0.0)

	v.SetDefault("field.influence", 0.35)
	v.SetDefault("field.gain", 0.6)

	v.SetDefault("paths.waypoints", "waypoints.json")
	v.SetDefault("paths.obstacles", "obstacles.json")
	v.SetDefault("paths.traj_out", "trajectory.csv")
	v.SetDefault("paths.traj_db", "")

	v.SetDefault("video.record", false)
	v.SetDefault("video.path", "assets/demo.mp4")
	v.SetDefault("video.width", 640)
	v.SetDefault("video.height", 480)

	v.SetDefault("plot.traj", "trajectory.csv")
	v.SetDefault("plot.db", "")
	v.SetDefault("plot.run", "")
	v.SetDefault("plot.out", "output/traj_plot")
	v.SetDefault("plot.html", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "drone")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", false)
}

// NewViper returns a viper instance with defaults and environment overrides.
// If cfgFile is set it must exist; otherwise ./drone.yaml is read when present.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		p, err := homedir.Expand(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("expand config path: %w", err)
		}
		v.SetConfigFile(p)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("drone")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// Load unmarshals v into a Config, expands ~ in paths and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.Paths.Waypoints, &c.Paths.Obstacles, &c.Paths.TrajOut, &c.Paths.TrajDB,
		&c.Video.Path, &c.Plot.Traj, &c.Plot.DB, &c.Plot.OutDir, &c.Logger.LogFile,
	} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks that the numeric parameters can drive a run. NaN and
// infinite values are rejected along with non-positive ones.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"speed", c.Sim.Speed},
		{"dt", c.Sim.Dt},
		{"eps", c.Sim.Eps},
		{"field influence", c.Field.Influence},
	} {
		if !positive(f.v) {
			return fmt.Errorf("%s must be positive and finite, got %g", f.name, f.v)
		}
	}
	if c.Sim.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.Sim.MaxSteps)
	}
	if !(c.Field.Gain >= 0) || math.IsInf(c.Field.Gain, 1) {
		return fmt.Errorf("field gain must be finite and not negative, got %g", c.Field.Gain)
	}
	if math.IsNaN(c.Sim.WindX) || math.IsInf(c.Sim.WindX, 0) || math.IsNaN(c.Sim.WindY) || math.IsInf(c.Sim.WindY, 0) {
		return fmt.Errorf("wind must be finite, got (%g, %g)", c.Sim.WindX, c.Sim.WindY)
	}
	if c.Video.Record && (c.Video.Width <= 0 || c.Video.Height <= 0) {
		return fmt.Errorf("video size must be positive, got %dx%d", c.Video.Width, c.Video.Height)
	}
	return nil
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 1) }
