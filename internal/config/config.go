// Package config loads runtime configuration with viper.
//
// Sources, lowest precedence first: defaults, the TOML file (when given),
// then ATOMSPACE_* environment variables (e.g. ATOMSPACE_QUERY_TIMEOUT_MS).
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/atomspace/internal/errors"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "ATOMSPACE"

// Config is the complete runtime configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Query    QueryConfig    `mapstructure:"query"`
	Log      LogConfig      `mapstructure:"log"`
	Types    TypesConfig    `mapstructure:"types"`
}

// DatabaseConfig locates the SQLite backing store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// QueryConfig tunes the query engine.
type QueryConfig struct {
	StrictConnectivity bool `mapstructure:"strict_connectivity"`
	TimeoutMS          int  `mapstructure:"timeout_ms"`
	MaxSteps           int  `mapstructure:"max_steps"`
	ParallelComponents bool `mapstructure:"parallel_components"`
}

// Timeout returns the search deadline as a duration; zero means none.
func (q QueryConfig) Timeout() time.Duration {
	return time.Duration(q.TimeoutMS) * time.Millisecond
}

// LogConfig selects the logger.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// TypesConfig points at an optional CUE file extending the builtin types.
type TypesConfig struct {
	File string `mapstructure:"file"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "atomspace.db")

	v.SetDefault("query.strict_connectivity", false)
	v.SetDefault("query.timeout_ms", 0)
	v.SetDefault("query.max_steps", 0)
	v.SetDefault("query.parallel_components", true)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("types.file", "")
}

// Default returns the configuration with defaults and environment overrides
// applied, without reading any file.
func Default() (*Config, error) {
	return LoadWithViper(newViper())
}

// Load reads the TOML file at path (skipped when path is empty) on top of the
// defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}
	return LoadWithViper(v)
}

// LoadWithViper unmarshals and validates configuration from v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can honour.
func (c *Config) Validate() error {
	if c.Query.TimeoutMS < 0 {
		return errors.Newf("query.timeout_ms must be >= 0, got %d", c.Query.TimeoutMS)
	}
	if c.Query.MaxSteps < 0 {
		return errors.Newf("query.max_steps must be >= 0, got %d", c.Query.MaxSteps)
	}
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}
