// Package config loads host configuration from defaults, a YAML file and
// MODHOST_* environment variables, in that order.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "config.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MODHOST_"

// Backends.
const (
	BackendNative = "native"
	BackendWasm   = "wasm"
)

// Config is the full host configuration.
type Config struct {
	Module    ModuleConfig    `yaml:"module" envPrefix:"MODULE_"`
	Host      HostConfig      `yaml:"host" envPrefix:"HOST_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Metrics   MetricsConfig   `yaml:"metrics" envPrefix:"METRICS_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// ModuleConfig selects the module.
type ModuleConfig struct {
	Name    string `yaml:"name" env:"NAME"`
	Dir     string `yaml:"dir" env:"DIR"`
	Backend string `yaml:"backend" env:"BACKEND"`
	WASI    bool   `yaml:"wasi" env:"WASI"`
}

// HostConfig controls the frame loop.
type HostConfig struct {
	FPS                 int           `yaml:"fps" env:"FPS"`
	OnUpdateError       string        `yaml:"on_update_error" env:"ON_UPDATE_ERROR"`
	ReloadRetries       int           `yaml:"reload_retries" env:"RELOAD_RETRIES"`
	ReloadRetryInterval time.Duration `yaml:"reload_retry_interval" env:"RELOAD_RETRY_INTERVAL"`
	ReloadKey           string        `yaml:"reload_key" env:"RELOAD_KEY"`
	AutoReload          bool          `yaml:"auto_reload" env:"AUTO_RELOAD"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" env:"LEVEL"`
	Development bool   `yaml:"development" env:"DEVELOPMENT"`
	// File receives logs while the interactive UI owns the terminal.
	File string `yaml:"file" env:"FILE"`
}

// MetricsConfig enables the Prometheus and health endpoint server.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// TelemetryConfig enables OTLP tracing.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Module: ModuleConfig{
			Name:    "module_default",
			Dir:     ".",
			Backend: BackendNative,
		},
		Host: HostConfig{
			FPS:                 60,
			OnUpdateError:       "continue",
			ReloadRetryInterval: 500 * time.Millisecond,
			ReloadKey:           "ctrl+r",
		},
		Log: LogConfig{
			Level: "info",
			File:  "modhost.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "modhost",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error; the defaults and environment still apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if stderrors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Module.Name == "" {
		errs = append(errs, fmt.Errorf("module.name is required"))
	} else if strings.ContainsAny(c.Module.Name, `/\`) {
		errs = append(errs, fmt.Errorf("module.name %q must be a logical name, not a path", c.Module.Name))
	}
	switch c.Module.Backend {
	case BackendNative, BackendWasm:
	default:
		errs = append(errs, fmt.Errorf("module.backend %q: want %q or %q", c.Module.Backend, BackendNative, BackendWasm))
	}
	if c.Module.WASI && c.Module.Backend != BackendWasm {
		errs = append(errs, fmt.Errorf("module.wasi requires the %q backend", BackendWasm))
	}
	if c.Host.FPS <= 0 {
		errs = append(errs, fmt.Errorf("host.fps must be positive, got %d", c.Host.FPS))
	}
	switch c.Host.OnUpdateError {
	case "continue", "stop":
	default:
		errs = append(errs, fmt.Errorf("host.on_update_error %q: want continue or stop", c.Host.OnUpdateError))
	}
	if c.Host.ReloadRetries < 0 {
		errs = append(errs, fmt.Errorf("host.reload_retries must not be negative"))
	}
	if c.Host.ReloadRetryInterval < 0 {
		errs = append(errs, fmt.Errorf("host.reload_retry_interval must not be negative"))
	}
	if c.Host.ReloadKey == "" {
		errs = append(errs, fmt.Errorf("host.reload_key is required"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return stderrors.Join(errs...)
}
