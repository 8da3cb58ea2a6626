// Package config loads metagate configuration from a YAML file, METAGATE_
// environment variables and command line flags, in increasing precedence.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the complete metagate configuration.
type Config struct {
	Sandbox   SandboxConfig   `mapstructure:"sandbox" yaml:"sandbox"`
	Mediator  MediatorConfig  `mapstructure:"mediator" yaml:"mediator"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator" yaml:"evaluator"`
	Audit     AuditConfig     `mapstructure:"audit" yaml:"audit"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// SandboxConfig bounds every path an operation may touch.
type SandboxConfig struct {
	Roots          []string `mapstructure:"roots" yaml:"roots" validate:"required,min=1,dive,required"`
	StrictSymlinks bool     `mapstructure:"strict_symlinks" yaml:"strict_symlinks"`
}

// MediatorConfig controls how the allow-listed tools are run.
type MediatorConfig struct {
	// Timeout of a single invocation. Zero disables the timeout.
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	MaxOutputBytes int           `mapstructure:"max_output_bytes" yaml:"max_output_bytes" validate:"gt=0"`
	Runner         string        `mapstructure:"runner" yaml:"runner" validate:"oneof=local docker"`
	BinDir         string        `mapstructure:"bin_dir" yaml:"bin_dir" validate:"required"`
	Docker         DockerConfig  `mapstructure:"docker" yaml:"docker"`
}

// DockerConfig configures the container runner. A positive PoolSize keeps
// warm containers and runs tools with docker exec.
type DockerConfig struct {
	Image              string        `mapstructure:"image" yaml:"image"`
	MemoryLimit        string        `mapstructure:"memory_limit" yaml:"memory_limit"`
	CPULimit           int           `mapstructure:"cpu_limit" yaml:"cpu_limit" validate:"gte=0"`
	PoolSize           int           `mapstructure:"pool_size" yaml:"pool_size" validate:"gte=0"`
	PoolMaxUses        int           `mapstructure:"pool_max_uses" yaml:"pool_max_uses" validate:"gte=1"`
	PoolIdleTimeout    time.Duration `mapstructure:"pool_idle_timeout" yaml:"pool_idle_timeout" validate:"gte=0"`
	PoolHealthInterval time.Duration `mapstructure:"pool_health_interval" yaml:"pool_health_interval" validate:"gte=0"`
}

// EvaluatorConfig controls batch operations.
type EvaluatorConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency" validate:"gte=1"`
}

// AuditConfig selects where operation outcomes are recorded.
type AuditConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=none file sqlite"`
	Path    string `mapstructure:"path" yaml:"path"`
	Format  string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// LoggingConfig controls the local diagnostic logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// Load reads configuration from configPath (or the default search path when
// empty) and the environment, then validates it.
func Load(configPath string) (*Config, error) {
	return Decode(NewViper(configPath))
}

// NewViper returns a viper instance with defaults, environment binding and
// config file lookup set up. Callers may bind flags on it before Decode.
func NewViper(configPath string) *viper.Viper {
	v := viper.New()
	SetViperDefaults(v)

	// Example: METAGATE_MEDIATOR_TIMEOUT=10s
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}
	return v
}

// Decode reads the config file known to v, unmarshals and validates.
func Decode(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults, env and flags
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := resolveRoots(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// resolveRoots makes relative sandbox roots absolute against the working
// directory and drops blank entries.
func resolveRoots(cfg *Config) error {
	roots := make([]string, 0, len(cfg.Sandbox.Roots))
	for _, r := range cfg.Sandbox.Roots {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			return fmt.Errorf("cannot resolve sandbox root: %w", err)
		}
		roots = append(roots, abs)
	}
	cfg.Sandbox.Roots = roots
	return nil
}
