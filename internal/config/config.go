package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lightflow/flowd/internal/automation"
	"github.com/lightflow/flowd/internal/device"
	"github.com/lightflow/flowd/internal/flow"
	"github.com/lightflow/flowd/internal/group"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig               `yaml:"log"`
	Database        DatabaseConfig          `yaml:"database"`
	EventBus        EventBusConfig          `yaml:"eventbus"`
	Healthcheck     HealthcheckConfig       `yaml:"healthcheck"`
	Ledger          LedgerConfig            `yaml:"ledger"`
	Loopback        LoopbackConfig          `yaml:"loopback"`
	Devices         []device.Device         `yaml:"devices"`
	Groups          []group.Group           `yaml:"groups"`
	Effects         []EffectConfig          `yaml:"effects"`
	Automations     []automation.Automation `yaml:"automations"`
	ShutdownTimeout Duration                `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// GetHost returns the host with default
func (c *HealthcheckConfig) GetHost() string {
	if c.Host == "" {
		return "0.0.0.0"
	}
	return c.Host
}

// GetPort returns the port with default
func (c *HealthcheckConfig) GetPort() int {
	if c.Port == 0 {
		return 9090
	}
	return c.Port
}

// LedgerConfig contains command ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// LoopbackConfig tunes the built-in loopback controller used when no
// real transport is wired in.
type LoopbackConfig struct {
	Latency Duration `yaml:"latency"` // Simulated device ack latency
}

// EffectConfig declares a seed effect: either a preset reference or an
// explicit flow program, not both.
type EffectConfig struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Preset      string       `yaml:"preset,omitempty"`
	Params      *flow.Params `yaml:"params,omitempty"`
}

// Resolve turns the declaration into a concrete flow program.
func (e EffectConfig) Resolve() (flow.Params, error) {
	if e.Preset != "" && e.Params != nil {
		return flow.Params{}, fmt.Errorf("effect %q: preset and params are mutually exclusive", e.Name)
	}
	if e.Params != nil {
		return *e.Params, nil
	}
	if e.Preset != "" {
		p := flow.Preset(e.Preset)
		if !p.Known() || p == flow.PresetCustom {
			return flow.Params{}, fmt.Errorf("effect %q: unknown preset %q", e.Name, e.Preset)
		}
		return p.Params(), nil
	}
	return flow.Params{}, fmt.Errorf("effect %q: neither preset nor params given", e.Name)
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// GetShutdownTimeout returns the shutdown timeout with default
func (c *Config) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeout == 0 {
		return 5 * time.Second
	}
	return c.ShutdownTimeout.Duration()
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./flowd.sqlite"
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// Loopback defaults
	if cfg.Loopback.Latency == 0 {
		cfg.Loopback.Latency = Duration(100 * time.Millisecond)
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	return &cfg, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
