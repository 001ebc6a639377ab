package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultGroupName is used when a group definition carries no name.
const DefaultGroupName = "Advanced Light Group"

// Config represents the application configuration
type Config struct {
	MQTT            MQTTConfig     `yaml:"mqtt"`
	Groups          []GroupConfig  `yaml:"groups"`
	Database        DatabaseConfig `yaml:"database"`
	Ledger          LedgerConfig   `yaml:"ledger"`
	Log             LogConfig      `yaml:"log"`
	API             APIConfig      `yaml:"api"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// MQTTConfig contains broker connection settings
type MQTTConfig struct {
	Broker         string   `yaml:"broker"`
	ClientID       string   `yaml:"client_id"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	TopicPrefix    string   `yaml:"topic_prefix"`
	QoS            int      `yaml:"qos"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	CommandTimeout Duration `yaml:"command_timeout"` // Ack timeout for batched commands
}

// GroupConfig defines one composite light: its name and the partition of
// member ids into main (primary) and auxiliary (secondary) lights.
type GroupConfig struct {
	Name       string   `yaml:"name"`
	MainLights []string `yaml:"main_lights"`
	AuxLights  []string `yaml:"auxiliary_lights"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`

	// Write coalescing: immediate, interval, quiet or count
	FlushStrategy string   `yaml:"flush_strategy"`
	FlushWindow   Duration `yaml:"flush_window"`
	FlushSize     int      `yaml:"flush_size"`
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

// APIConfig contains HTTP API server settings
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Metrics bool   `yaml:"metrics"`
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
		cfg.Database.Path = "./virtlightd.sqlite"
	}

	// MQTT defaults
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "virtlightd"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "virtlight"
	}
	if cfg.MQTT.QoS == 0 {
		cfg.MQTT.QoS = 1
	}
	if cfg.MQTT.ConnectTimeout == 0 {
		cfg.MQTT.ConnectTimeout = Duration(10 * time.Second)
	}
	if cfg.MQTT.CommandTimeout == 0 {
		cfg.MQTT.CommandTimeout = Duration(10 * time.Second)
	}

	// Group defaults
	for i := range cfg.Groups {
		if cfg.Groups[i].Name == "" {
			cfg.Groups[i].Name = DefaultGroupName
		}
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}
	if cfg.Ledger.FlushStrategy == "" {
		cfg.Ledger.FlushStrategy = "immediate"
	}
	if cfg.Ledger.FlushWindow == 0 {
		cfg.Ledger.FlushWindow = Duration(time.Second)
	}
	if cfg.Ledger.FlushSize == 0 {
		cfg.Ledger.FlushSize = 16
	}

	// API defaults
	if cfg.API.Port == 0 {
		cfg.API.Port = 9090
	}
	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the parts of the configuration the daemon cannot run
// without: a broker and well-formed group definitions.
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("at least one group must be configured")
	}

	switch c.Ledger.FlushStrategy {
	case "immediate", "interval", "quiet", "count":
	default:
		return fmt.Errorf("ledger.flush_strategy must be immediate, interval, quiet or count, got %q", c.Ledger.FlushStrategy)
	}

	names := make(map[string]bool, len(c.Groups))
	for _, g := range c.Groups {
		if names[g.Name] {
			return fmt.Errorf("duplicate group name %q", g.Name)
		}
		names[g.Name] = true

		if len(g.MainLights) == 0 {
			return fmt.Errorf("group %q: main_lights is required", g.Name)
		}
		for _, id := range g.MainLights {
			if id == "" {
				return fmt.Errorf("group %q: empty member id in main_lights", g.Name)
			}
		}
		for _, id := range g.AuxLights {
			if id == "" {
				return fmt.Errorf("group %q: empty member id in auxiliary_lights", g.Name)
			}
		}
	}
	return nil
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
