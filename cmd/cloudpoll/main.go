// cloudpoll - cloud-to-local sensor projection service
//
// cloudpoll polls vendor cloud APIs (Fireboard BBQ thermometers, Tailscale
// tailnets) on fixed intervals, projects the raw device payloads into
// stable keyed sensor records, and serves them to local consumers:
//   - Home Assistant, via MQTT discovery
//   - dashboards and tooling, via a REST API and WebSocket feed
//
// The clouds stay upstream; everything downstream of this process works
// on the local network.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kestrelhaus/cloudpoll/internal/api"
	"github.com/kestrelhaus/cloudpoll/internal/bridge/hass"
	"github.com/kestrelhaus/cloudpoll/internal/infrastructure/config"
	"github.com/kestrelhaus/cloudpoll/internal/infrastructure/logging"
	"github.com/kestrelhaus/cloudpoll/internal/infrastructure/mqtt"
	"github.com/kestrelhaus/cloudpoll/internal/integration"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting cloudpoll",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	if cfg.API.Auth.JWTSecret == "" {
		log.Warn("api.auth.jwt_secret is not set, the REST API is unauthenticated")
	}

	// Build the integration registry and run the first refresh of every
	// configured account. Failures are per-instance: one cloud being down
	// or rejecting credentials never blocks the others.
	manager := integration.NewManager(cfg.Integrations, log)
	defer func() {
		log.Info("stopping integrations")
		manager.CloseAll()
	}()

	manager.StartAll(ctx)
	log.Info("integrations started", "instances", len(manager.Instances()))

	// Connect to MQTT and attach the Home Assistant discovery bridge
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge := hass.New(cfg.MQTT, mqttClient, log)
		for _, inst := range manager.Instances() {
			bridge.Attach(inst.Name, inst.Coordinator)
		}
		if err := bridge.Start(); err != nil {
			return fmt.Errorf("starting discovery bridge: %w", err)
		}
		defer func() {
			log.Info("stopping discovery bridge")
			bridge.Close()
		}()
		log.Info("discovery bridge started", "prefix", cfg.MQTT.DiscoveryPrefix)
	} else {
		log.Info("MQTT disabled, Home Assistant bridge not started")
	}

	// Start the REST API and WebSocket feed
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Manager: manager,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, mqttClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. discovery bridge, then MQTT (if enabled)
	// 3. integrations

	log.Info("cloudpoll stopped")
	return nil
}

// healthCheck verifies infrastructure connections after startup.
// A nil MQTT client means MQTT is disabled and is skipped.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, server *api.Server) error {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CLOUDPOLL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CLOUDPOLL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
