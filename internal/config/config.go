package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/intimeai/miroctl/internal/logger"
	"github.com/intimeai/miroctl/internal/service"
)

// Config is the complete supervisor configuration. It is built from defaults,
// optionally overlaid by a TOML file, then by CLI flags, and passed explicitly
// to every operation; nothing reads ambient state.
type Config struct {
	PIDDir          string        `mapstructure:"pid_dir"`
	Settle          time.Duration `mapstructure:"settle"`
	StopTimeout     time.Duration `mapstructure:"stop_timeout"`
	RestartDelay    time.Duration `mapstructure:"restart_delay"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	Env             []string      `mapstructure:"env"` // global KEY=VALUE overrides for all children

	Log   logger.Config       `mapstructure:"log"`
	Image service.ImageConfig `mapstructure:"image"`
	Shape service.ShapeConfig `mapstructure:"shape"`

	Server  ServerConfig  `mapstructure:"server"`
	History HistoryConfig `mapstructure:"history"`
}

// ServerConfig configures the read-only status HTTP API (serve command).
type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

// HistoryConfig lists launch-event sink DSNs (sqlite, postgres, clickhouse).
type HistoryConfig struct {
	DSNs []string `mapstructure:"dsns"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		PIDDir:          "./run",
		Settle:          3 * time.Second,
		StopTimeout:     30 * time.Second,
		RestartDelay:    2 * time.Second,
		MonitorInterval: 5 * time.Second,
		Log:             logger.Config{Dir: "./logs"},
		Image:           service.DefaultImage(),
		Shape:           service.DefaultShape(),
		Server:          ServerConfig{Listen: "127.0.0.1:9090", BasePath: "/api"},
	}
}

// Load reads a TOML config file over the defaults. An empty path yields the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the supervisor cannot act on.
func (c Config) Validate() error {
	if c.PIDDir == "" {
		return fmt.Errorf("pid_dir must not be empty")
	}
	if c.Log.Dir == "" {
		return fmt.Errorf("log.dir must not be empty")
	}
	if c.Image.Port <= 0 || c.Image.Port > 65535 {
		return fmt.Errorf("image.port %d out of range", c.Image.Port)
	}
	if c.Shape.Port <= 0 || c.Shape.Port > 65535 {
		return fmt.Errorf("shape.port %d out of range", c.Shape.Port)
	}
	if c.Image.Port == c.Shape.Port {
		return fmt.Errorf("image and shape services cannot share port %d", c.Image.Port)
	}
	if c.Settle < 0 || c.StopTimeout < 0 || c.RestartDelay < 0 {
		return fmt.Errorf("settle, stop_timeout and restart_delay must not be negative")
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("monitor_interval must be positive")
	}
	return nil
}

// PIDFile returns the pid file path for a service.
func (c Config) PIDFile(name service.Name) string {
	return filepath.Join(c.PIDDir, string(name)+".pid")
}

// LogFile returns the combined log path for a service.
func (c Config) LogFile(name service.Name) string {
	return c.Log.Path(string(name))
}

// Spec returns the launch spec for the named service.
func (c Config) Spec(name service.Name) (service.Spec, error) {
	switch name {
	case service.Image:
		return c.Image.Spec(), nil
	case service.Shape:
		return c.Shape.Spec(), nil
	default:
		return service.Spec{}, fmt.Errorf("unknown service %q", name)
	}
}
