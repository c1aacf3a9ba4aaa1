// Package config loads process-level settings for the comparer.
//
// Settings come from three layers, later layers winning:
//
//   - a YAML file (optional)
//   - a .env file
//   - STRUCTURE_COMPARER_* environment variables
//
// Config.Options turns the result into functional options for engine.New.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/pkg/logger"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "STRUCTURE_COMPARER_"

// DefaultEnvFile is read when Load is given no env files.
const DefaultEnvFile = ".env"

// Config is the process configuration.
type Config struct {
	// Comparer holds the computation settings.
	Comparer ComparerConfig `yaml:"comparer"`

	// Log configures the default logger.
	Log LogConfig `yaml:"log"`
}

// ComparerConfig mirrors sc.Options. Unset fields keep the library default.
type ComparerConfig struct {
	Recommendations      *bool `yaml:"recommendations,omitempty"`
	StatusPropagation    *bool `yaml:"status_propagation,omitempty"`
	CopyLinkAugmentation *bool `yaml:"copy_link_augmentation,omitempty"`

	// MaxRecommendations caps suggestions per field; 0 means unlimited.
	MaxRecommendations *int `yaml:"max_recommendations,omitempty"`

	// Workers is the batch worker count; 0 means one per CPU.
	Workers *int `yaml:"workers,omitempty"`

	Metrics         *bool `yaml:"metrics,omitempty"`
	ExpressionCache *int  `yaml:"expression_cache,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error, off.
	Level string `yaml:"level,omitempty"`
}

// Load reads the YAML file at path, then the env files, then the process
// environment. An empty path skips the file. Without env files the
// DefaultEnvFile is read if it exists.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) == 0 {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return map[string]string{}, nil
		}
		files = []string{DefaultEnvFile}
	}
	env, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to read env files %s: %w", strings.Join(files, ", "), err)
	}
	return env, nil
}

// applyEnv overrides fields from STRUCTURE_COMPARER_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	bools := []struct {
		key string
		dst **bool
	}{
		{"RECOMMENDATIONS", &c.Comparer.Recommendations},
		{"STATUS_PROPAGATION", &c.Comparer.StatusPropagation},
		{"COPY_LINK_AUGMENTATION", &c.Comparer.CopyLinkAugmentation},
		{"METRICS", &c.Comparer.Metrics},
	}
	for _, b := range bools {
		raw, ok := lookup(EnvPrefix + b.key)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, b.key, raw, err)
		}
		*b.dst = &v
	}

	ints := []struct {
		key string
		dst **int
	}{
		{"MAX_RECOMMENDATIONS", &c.Comparer.MaxRecommendations},
		{"WORKERS", &c.Comparer.Workers},
		{"EXPRESSION_CACHE", &c.Comparer.ExpressionCache},
	}
	for _, i := range ints {
		raw, ok := lookup(EnvPrefix + i.key)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, i.key, raw, err)
		}
		*i.dst = &v
	}

	if raw, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok && raw != "" {
		c.Log.Level = raw
	}
	return nil
}

// Validate checks value ranges and the log level.
func (c *Config) Validate() error {
	var errs []error
	for name, v := range map[string]*int{
		"max_recommendations": c.Comparer.MaxRecommendations,
		"workers":             c.Comparer.Workers,
		"expression_cache":    c.Comparer.ExpressionCache,
	} {
		if v != nil && *v < 0 {
			errs = append(errs, fmt.Errorf("comparer.%s must not be negative, got %d", name, *v))
		}
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LogLevel returns the configured level, LevelInfo when unset.
func (c *Config) LogLevel() (logger.Level, error) {
	if c.Log.Level == "" {
		return logger.LevelInfo, nil
	}
	return logger.ParseLevel(c.Log.Level)
}

// Options converts the configuration into comparer options.
func (c *Config) Options() []sc.Option {
	var opts []sc.Option
	cc := c.Comparer

	if cc.Recommendations != nil {
		opts = append(opts, sc.WithRecommendations(*cc.Recommendations))
	}
	if cc.StatusPropagation != nil {
		opts = append(opts, sc.WithStatusPropagation(*cc.StatusPropagation))
	}
	if cc.CopyLinkAugmentation != nil {
		opts = append(opts, sc.WithCopyLinkAugmentation(*cc.CopyLinkAugmentation))
	}
	if cc.MaxRecommendations != nil {
		opts = append(opts, sc.WithMaxRecommendations(*cc.MaxRecommendations))
	}
	if cc.Workers != nil {
		opts = append(opts, sc.WithWorkerCount(*cc.Workers))
	}
	if cc.Metrics != nil {
		opts = append(opts, sc.WithMetrics(*cc.Metrics))
	}
	if cc.ExpressionCache != nil {
		opts = append(opts, sc.WithExpressionCache(*cc.ExpressionCache))
	}
	if level, err := c.LogLevel(); err == nil && level == logger.LevelDebug {
		opts = append(opts, sc.WithDebug(true))
	}
	return opts
}
