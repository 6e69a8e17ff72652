// Package config provides configuration management for gocodecs using
// Viper, generalized from the teacher's internal/config/config.go: same
// SetDefaults-then-Unmarshal shape, narrowed from tvarr's server/database/
// storage/ingestion sections down to the sections this library's runtime
// actually needs (backend selection, resource-manager tuning, logging).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the gocodecs runtime (the cmd/
// demo binary and any host embedding the library via its own main).
type Config struct {
	Backend         BackendConfig         `mapstructure:"backend"`
	ResourceManager ResourceManagerConfig `mapstructure:"resource_manager"`
	Logging         LoggingConfig         `mapstructure:"logging"`
}

// BackendConfig selects and tunes the CodecBackend implementation.
type BackendConfig struct {
	// Kind is "inmemory" (deterministic test backend) or "exec" (real
	// ffmpeg/ffprobe subprocess backend).
	Kind        string `mapstructure:"kind"`
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
	WorkDir     string `mapstructure:"work_dir"`
}

// ResourceManagerConfig tunes the ResourceManager's reclamation sweep.
// InactivityTimeout/SweepInterval use the package's Duration type so
// config files can write "30d"/"2w" as well as Go's native "10s"/"5m".
type ResourceManagerConfig struct {
	InactivityTimeout Duration `mapstructure:"inactivity_timeout"`
	SweepInterval     Duration `mapstructure:"sweep_interval"`
}

// LoggingConfig holds logging configuration, unchanged in shape from the
// teacher's internal/config.LoggingConfig.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// Validate checks the loaded config for internally-inconsistent values
// that Unmarshal alone cannot catch.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case "inmemory", "exec":
	default:
		return fmt.Errorf("backend.kind must be \"inmemory\" or \"exec\", got %q", c.Backend.Kind)
	}
	if c.ResourceManager.InactivityTimeout <= 0 {
		return errors.New("resource_manager.inactivity_timeout must be positive")
	}
	if c.ResourceManager.SweepInterval <= 0 {
		return errors.New("resource_manager.sweep_interval must be positive")
	}
	return nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend.kind", "inmemory")
	v.SetDefault("backend.ffmpeg_path", "ffmpeg")
	v.SetDefault("backend.ffprobe_path", "ffprobe")
	v.SetDefault("backend.work_dir", "")

	v.SetDefault("resource_manager.inactivity_timeout", 10*time.Second)
	v.SetDefault("resource_manager.sweep_interval", 5*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration and are
// prefixed with GOCODECS_, using underscores for nesting (e.g.
// GOCODECS_BACKEND_KIND=exec).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("gocodecs")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gocodecs")
		v.AddConfigPath("$HOME/.gocodecs")
	}

	v.SetEnvPrefix("GOCODECS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// WatchReload re-reads configuration on every file-change event Viper's
// fsnotify-backed watcher reports, invoking onChange with the newly
// parsed Config. Invalid reloads (a bad Unmarshal or failed Validate) are
// reported via onError instead of replacing the running config.
func WatchReload(configPath string, onChange func(*Config), onError func(error)) error {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("gocodecs")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("GOCODECS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			onError(fmt.Errorf("reloading config: %w", err))
			return
		}
		if err := cfg.Validate(); err != nil {
			onError(fmt.Errorf("validating reloaded config: %w", err))
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}
