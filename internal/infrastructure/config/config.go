package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "APPLAUNCHD_CONFIG"

// Config holds all launcher configuration.
type Config struct {
	GRPC      GRPCConfig      `yaml:"grpc"`
	HTTP      HTTPConfig      `yaml:"http"`
	DBus      DBusConfig      `yaml:"dbus"`
	Systemd   SystemdConfig   `yaml:"systemd"`
	Icons     IconConfig      `yaml:"icons"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// ShutdownGrace bounds how long in-flight streams may drain at exit.
	ShutdownGrace time.Duration `yaml:"shutdown_grace" envconfig:"APPLAUNCHD_SHUTDOWN_GRACE" validate:"gte=0"`
}

// GRPCConfig holds the gRPC listener configuration.
type GRPCConfig struct {
	Address string `yaml:"address" envconfig:"APPLAUNCHD_GRPC_ADDR" validate:"required,hostname_port"`
	Enabled bool   `yaml:"enabled" envconfig:"APPLAUNCHD_GRPC_ENABLED"`
}

// HTTPConfig holds the HTTP/WebSocket listener configuration.
type HTTPConfig struct {
	Address string `yaml:"address" envconfig:"APPLAUNCHD_HTTP_ADDR" validate:"required,hostname_port"`
	Enabled bool   `yaml:"enabled" envconfig:"APPLAUNCHD_HTTP_ENABLED"`
}

// DBusConfig holds the local bus façade configuration.
type DBusConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"APPLAUNCHD_DBUS_ENABLED"`
	Name    string `yaml:"name" envconfig:"APPLAUNCHD_DBUS_NAME" validate:"required_if=Enabled true"`
	Path    string `yaml:"path" envconfig:"APPLAUNCHD_DBUS_PATH" validate:"required_if=Enabled true"`
}

// SystemdConfig holds the unit supervisor configuration.
type SystemdConfig struct {
	UnitPattern string        `yaml:"unit_pattern" envconfig:"APPLAUNCHD_UNIT_PATTERN" validate:"required"`
	UserBus     bool          `yaml:"user_bus" envconfig:"APPLAUNCHD_SYSTEMD_USER"`
	CallTimeout time.Duration `yaml:"call_timeout" envconfig:"APPLAUNCHD_SYSTEMD_TIMEOUT" validate:"gt=0"`
}

// IconConfig holds the icon search configuration.
type IconConfig struct {
	// DataDirs is a colon-separated list, like XDG_DATA_DIRS.
	DataDirs string `yaml:"data_dirs" envconfig:"XDG_DATA_DIRS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" envconfig:"LOG_DEV"`
}

// RateLimitConfig holds rate limiting configuration for the HTTP surface.
type RateLimitConfig struct {
	RequestsPerSecond int  `yaml:"rps" envconfig:"RATE_LIMIT_RPS" validate:"required_if=Enabled true,gte=0"`
	Burst             int  `yaml:"burst" envconfig:"RATE_LIMIT_BURST" validate:"required_if=Enabled true,gte=0"`
	Enabled           bool `yaml:"enabled" envconfig:"RATE_LIMIT_ENABLED"`
}

// SearchDirs splits DataDirs into its non-empty entries.
func (c IconConfig) SearchDirs() []string {
	var dirs []string
	for _, dir := range strings.Split(c.DataDirs, ":") {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// Load builds configuration from defaults, the optional YAML file named
// by APPLAUNCHD_CONFIG, and finally environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints such as listen address syntax.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadOrDefault loads configuration or returns defaults on error.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		GRPC: GRPCConfig{
			Address: "localhost:50052",
			Enabled: true,
		},
		HTTP: HTTPConfig{
			Address: "localhost:8052",
			Enabled: true,
		},
		DBus: DBusConfig{
			Enabled: true,
			Name:    "org.automotivelinux.AppLaunch",
			Path:    "/org/automotivelinux/AppLaunch",
		},
		Systemd: SystemdConfig{
			UnitPattern: "agl-app*@*.service",
			UserBus:     false,
			CallTimeout: 5 * time.Second,
		},
		Icons: IconConfig{
			DataDirs: "/usr/local/share:/usr/share",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
		ShutdownGrace: 500 * time.Millisecond,
	}
}
