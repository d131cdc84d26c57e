package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oxygene76/ttv-limits/pkg/astronomy/ttv"
)

// EnvPrefix is the prefix for environment variable overrides, e.g. TTVLIMITS_SOLVER_PHASE_SAMPLES
const EnvPrefix = "TTVLIMITS"

// Config represents the limit computation configuration
type Config struct {
	Solver  SolverSettings `yaml:"solver" mapstructure:"solver"`
	Logging LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// SolverSettings contains the numerical settings of the limit solver
type SolverSettings struct {
	PhaseSamples     int     `yaml:"phase_samples" mapstructure:"phase_samples"`
	InitialMassGuess float64 `yaml:"initial_mass_guess" mapstructure:"initial_mass_guess"`
	MaxDoublings     int     `yaml:"max_doublings" mapstructure:"max_doublings"`
	Tolerance        float64 `yaml:"tolerance" mapstructure:"tolerance"`
	MaxIterations    int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Workers          int     `yaml:"workers" mapstructure:"workers"` // 0 = GOMAXPROCS
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or text
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	d := ttv.DefaultSolverConfig()
	return &Config{
		Solver: SolverSettings{
			PhaseSamples:     d.PhaseSamples,
			InitialMassGuess: d.InitialMassGuess,
			MaxDoublings:     d.MaxDoublings,
			Tolerance:        d.Tolerance,
			MaxIterations:    d.MaxIterations,
			Workers:          d.Workers,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ToSolverConfig converts the settings to the solver's configuration type
func (s SolverSettings) ToSolverConfig() ttv.SolverConfig {
	return ttv.SolverConfig{
		PhaseSamples:     s.PhaseSamples,
		InitialMassGuess: s.InitialMassGuess,
		MaxDoublings:     s.MaxDoublings,
		Tolerance:        s.Tolerance,
		MaxIterations:    s.MaxIterations,
		Workers:          s.Workers,
	}
}

// LoadConfig loads configuration from path, falling back to defaults for
// anything the file does not set. An empty path or a missing file yields the
// defaults. Environment variables with the TTVLIMITS prefix override both.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// SaveConfig saves configuration to path as YAML
func SaveConfig(config *Config, path string) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("solver.phase_samples", d.Solver.PhaseSamples)
	v.SetDefault("solver.initial_mass_guess", d.Solver.InitialMassGuess)
	v.SetDefault("solver.max_doublings", d.Solver.MaxDoublings)
	v.SetDefault("solver.tolerance", d.Solver.Tolerance)
	v.SetDefault("solver.max_iterations", d.Solver.MaxIterations)
	v.SetDefault("solver.workers", d.Solver.Workers)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if err := config.Solver.ToSolverConfig().Validate(); err != nil {
		return err
	}

	switch config.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	if _, err := parseLevel(config.Logging.Level); err != nil {
		return err
	}

	return nil
}
