package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
service:
  name: "cloudpoll-test"
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "cloudpoll-test"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
integrations:
  fireboard:
    - name: "bbq"
      email: "pit@example.com"
      password: "hunter2"
  tailscale:
    - name: "homenet"
      tailnet: "example.com"
      api_key: "tskey-api-test"
      interval: 120
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Name != "cloudpoll-test" {
		t.Errorf("Service.Name = %q, want %q", cfg.Service.Name, "cloudpoll-test")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	// Defaults survive a partial file
	if cfg.MQTT.DiscoveryPrefix != "homeassistant" {
		t.Errorf("MQTT.DiscoveryPrefix = %q, want %q", cfg.MQTT.DiscoveryPrefix, "homeassistant")
	}

	if got := len(cfg.Integrations.Fireboard); got != 1 {
		t.Fatalf("len(Integrations.Fireboard) = %d, want 1", got)
	}
	if cfg.Integrations.Fireboard[0].Email != "pit@example.com" {
		t.Errorf("Fireboard[0].Email = %q, want %q", cfg.Integrations.Fireboard[0].Email, "pit@example.com")
	}
	if got := cfg.Integrations.Fireboard[0].PollInterval(); got != 20*time.Second {
		t.Errorf("Fireboard[0].PollInterval() = %v, want 20s", got)
	}
	if got := cfg.Integrations.Tailscale[0].PollInterval(); got != 120*time.Second {
		t.Errorf("Tailscale[0].PollInterval() = %v, want 120s", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_SecretExpansion(t *testing.T) {
	t.Setenv("CLOUDPOLL_TEST_FB_PASSWORD", "from-env")

	content := `
integrations:
  fireboard:
    - name: "bbq"
      email: "pit@example.com"
      password: "${CLOUDPOLL_TEST_FB_PASSWORD}"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Integrations.Fireboard[0].Password != "from-env" {
		t.Errorf("Password = %q, want %q", cfg.Integrations.Fireboard[0].Password, "from-env")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Integrations.Fireboard = []FireboardConfig{
			{Name: "bbq", Email: "pit@example.com", Password: "hunter2"},
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.Service.Name = "" },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: true,
		},
		{
			name: "mqtt enabled without host",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Host = ""
			},
			wantErr: true,
		},
		{
			name: "invalid QoS",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "fireboard missing email",
			mutate:  func(c *Config) { c.Integrations.Fireboard[0].Email = "" },
			wantErr: true,
		},
		{
			name:    "fireboard missing password",
			mutate:  func(c *Config) { c.Integrations.Fireboard[0].Password = "" },
			wantErr: true,
		},
		{
			name: "duplicate integration name",
			mutate: func(c *Config) {
				c.Integrations.Tailscale = []TailscaleConfig{
					{Name: "bbq", Tailnet: "example.com", APIKey: "tskey"},
				}
			},
			wantErr: true,
		},
		{
			name: "tailscale missing tailnet",
			mutate: func(c *Config) {
				c.Integrations.Tailscale = []TailscaleConfig{
					{Name: "homenet", APIKey: "tskey"},
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
