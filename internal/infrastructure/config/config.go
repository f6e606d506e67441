package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for cloudpoll.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service      ServiceConfig      `yaml:"service"`
	Logging      LoggingConfig      `yaml:"logging"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	API          APIConfig          `yaml:"api"`
	Integrations IntegrationsConfig `yaml:"integrations"`
}

// ServiceConfig contains service-wide settings.
type ServiceConfig struct {
	Name string `yaml:"name"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MQTTConfig contains MQTT broker connection settings for the
// Home Assistant discovery bridge. The bridge is disabled entirely
// when Enabled is false.
type MQTTConfig struct {
	Enabled         bool                `yaml:"enabled"`
	Broker          MQTTBrokerConfig    `yaml:"broker"`
	Auth            MQTTAuthConfig      `yaml:"auth"`
	QoS             int                 `yaml:"qos"`
	Reconnect       MQTTReconnectConfig `yaml:"reconnect"`
	DiscoveryPrefix string              `yaml:"discovery_prefix"`
	BaseTopic       string              `yaml:"base_topic"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	Auth     APIAuthConfig    `yaml:"auth"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// APIAuthConfig contains API authentication settings.
// When JWTSecret is empty, all API routes are unauthenticated.
type APIAuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// IntegrationsConfig lists the configured cloud accounts to poll.
// Each entry becomes one independent coordinator.
type IntegrationsConfig struct {
	Fireboard []FireboardConfig `yaml:"fireboard"`
	Tailscale []TailscaleConfig `yaml:"tailscale"`
}

// FireboardConfig contains credentials for one Fireboard cloud account.
type FireboardConfig struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	// Interval is the poll interval in seconds. Defaults to 20.
	Interval int `yaml:"interval"`
}

// TailscaleConfig contains credentials for one Tailscale tailnet.
type TailscaleConfig struct {
	Name    string `yaml:"name"`
	Tailnet string `yaml:"tailnet"`
	APIKey  string `yaml:"api_key"`
	// Interval is the poll interval in seconds. Defaults to 60.
	Interval int `yaml:"interval"`
}

// Default poll intervals per integration type (seconds).
const (
	DefaultFireboardInterval = 20
	DefaultTailscaleInterval = 60
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CLOUDPOLL_SECTION_KEY
// For example: CLOUDPOLL_MQTT_HOST, CLOUDPOLL_API_JWT_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	expandSecrets(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name: "cloudpoll",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "cloudpoll",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			DiscoveryPrefix: "homeassistant",
			BaseTopic:       "cloudpoll",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CLOUDPOLL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("CLOUDPOLL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CLOUDPOLL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CLOUDPOLL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("CLOUDPOLL_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Security - JWT secret (always override in production)
	if v := os.Getenv("CLOUDPOLL_API_JWT_SECRET"); v != "" {
		cfg.API.Auth.JWTSecret = v
	}
}

// expandSecrets replaces ${VAR} references in credential fields with the
// value of the named environment variable. This keeps account passwords and
// API keys out of the config file in deployments.
func expandSecrets(cfg *Config) {
	for i := range cfg.Integrations.Fireboard {
		cfg.Integrations.Fireboard[i].Password = expandEnv(cfg.Integrations.Fireboard[i].Password)
	}
	for i := range cfg.Integrations.Tailscale {
		cfg.Integrations.Tailscale[i].APIKey = expandEnv(cfg.Integrations.Tailscale[i].APIKey)
	}
	cfg.MQTT.Auth.Password = expandEnv(cfg.MQTT.Auth.Password)
	cfg.API.Auth.JWTSecret = expandEnv(cfg.API.Auth.JWTSecret)
}

// expandEnv resolves a single ${VAR} reference. Values that are not in
// ${...} form are returned unchanged.
func expandEnv(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(v, "${"), "}"))
	}
	return v
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Service.Name == "" {
		errs = append(errs, "service.name is required")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is not recognised", c.Logging.Level))
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.Broker.Port <= 0 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, fmt.Sprintf("mqtt.broker.port %d is out of range", c.MQTT.Broker.Port))
		}
		if c.MQTT.Broker.ClientID == "" {
			errs = append(errs, "mqtt.broker.client_id is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Sprintf("mqtt.qos %d is invalid (must be 0, 1, or 2)", c.MQTT.QoS))
		}
		if c.MQTT.DiscoveryPrefix == "" {
			errs = append(errs, "mqtt.discovery_prefix is required when mqtt is enabled")
		}
		if c.MQTT.BaseTopic == "" {
			errs = append(errs, "mqtt.base_topic is required when mqtt is enabled")
		}
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d is out of range", c.API.Port))
	}

	names := make(map[string]bool)
	for i, fb := range c.Integrations.Fireboard {
		if fb.Name == "" {
			errs = append(errs, fmt.Sprintf("integrations.fireboard[%d].name is required", i))
		} else if names[fb.Name] {
			errs = append(errs, fmt.Sprintf("integration name %q is duplicated", fb.Name))
		}
		names[fb.Name] = true
		if fb.Email == "" {
			errs = append(errs, fmt.Sprintf("integrations.fireboard[%d].email is required", i))
		}
		if fb.Password == "" {
			errs = append(errs, fmt.Sprintf("integrations.fireboard[%d].password is required", i))
		}
		if fb.Interval < 0 {
			errs = append(errs, fmt.Sprintf("integrations.fireboard[%d].interval must not be negative", i))
		}
	}
	for i, ts := range c.Integrations.Tailscale {
		if ts.Name == "" {
			errs = append(errs, fmt.Sprintf("integrations.tailscale[%d].name is required", i))
		} else if names[ts.Name] {
			errs = append(errs, fmt.Sprintf("integration name %q is duplicated", ts.Name))
		}
		names[ts.Name] = true
		if ts.Tailnet == "" {
			errs = append(errs, fmt.Sprintf("integrations.tailscale[%d].tailnet is required", i))
		}
		if ts.APIKey == "" {
			errs = append(errs, fmt.Sprintf("integrations.tailscale[%d].api_key is required", i))
		}
		if ts.Interval < 0 {
			errs = append(errs, fmt.Sprintf("integrations.tailscale[%d].interval must not be negative", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PollInterval returns the effective poll interval for a Fireboard account.
func (f FireboardConfig) PollInterval() time.Duration {
	if f.Interval > 0 {
		return time.Duration(f.Interval) * time.Second
	}
	return DefaultFireboardInterval * time.Second
}

// PollInterval returns the effective poll interval for a Tailscale tailnet.
func (t TailscaleConfig) PollInterval() time.Duration {
	if t.Interval > 0 {
		return time.Duration(t.Interval) * time.Second
	}
	return DefaultTailscaleInterval * time.Second
}

// GetReadTimeout returns the HTTP read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the HTTP idle timeout as a duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
