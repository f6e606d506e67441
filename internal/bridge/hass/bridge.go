package hass

import (
	"encoding/json"
	"sync"

	"github.com/kestrelhaus/cloudpoll/internal/entity"
	"github.com/kestrelhaus/cloudpoll/internal/infrastructure/config"
	"github.com/kestrelhaus/cloudpoll/internal/infrastructure/mqtt"
	"github.com/kestrelhaus/cloudpoll/internal/poll"
)

// birthTopic is where Home Assistant announces its own availability.
// A retained "online" arrives when HA restarts, which is our cue to
// republish discovery configs it may have lost.
const birthTopic = "homeassistant/status"

// nodeID namespaces our discovery topics under the HA discovery prefix.
const nodeID = "cloudpoll"

// Publisher is the slice of the MQTT client the bridge needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// feed is one coordinator the bridge mirrors to MQTT.
type feed struct {
	name        string
	coordinator *poll.Coordinator
	subID       int
}

// Bridge mirrors coordinator snapshots into Home Assistant via MQTT
// discovery. Every record becomes a sensor: a retained discovery config
// plus a state topic updated on each successful refresh. Records that
// disappear from a snapshot get their retained config cleared so HA
// drops the entity.
type Bridge struct {
	pub    Publisher
	logger Logger

	discoveryPrefix   string
	baseTopic         string
	availabilityTopic string
	qos               byte
	nodeID            string

	mu        sync.Mutex
	feeds     []*feed
	published map[string]map[string]struct{} // instance -> keys with retained configs
}

// New builds a bridge over the given publisher. Call Attach for each
// coordinator, then Start.
func New(cfg config.MQTTConfig, pub Publisher, logger Logger) *Bridge {
	return &Bridge{
		pub:               pub,
		logger:            logger,
		discoveryPrefix:   cfg.DiscoveryPrefix,
		baseTopic:         cfg.BaseTopic,
		availabilityTopic: mqtt.StatusTopic(cfg.BaseTopic),
		qos:               byte(cfg.QoS),
		nodeID:            nodeID,
		published:         make(map[string]map[string]struct{}),
	}
}

// Attach subscribes the bridge to a coordinator's refresh notifications.
// Snapshots published before Attach are picked up on the next refresh or
// via Start's initial sync.
func (b *Bridge) Attach(name string, c *poll.Coordinator) {
	f := &feed{name: name, coordinator: c}
	f.subID = c.Subscribe(func(snap entity.Snapshot) {
		b.publishSnapshot(f.name, snap)
	})

	b.mu.Lock()
	b.feeds = append(b.feeds, f)
	b.mu.Unlock()
}

// Start publishes the current snapshot of every attached coordinator and
// subscribes to HA's birth topic so discovery survives HA restarts.
func (b *Bridge) Start() error {
	if err := b.pub.Subscribe(birthTopic, b.qos, b.onBirth); err != nil {
		return err
	}
	b.publishAll()
	return nil
}

// Close detaches from all coordinators. Retained discovery configs are
// left in place so sensors survive our own restarts; the availability
// topic marks them unavailable while we are down.
func (b *Bridge) Close() {
	b.mu.Lock()
	feeds := b.feeds
	b.feeds = nil
	b.mu.Unlock()

	for _, f := range feeds {
		f.coordinator.Unsubscribe(f.subID)
	}
}

// onBirth handles Home Assistant coming back online.
func (b *Bridge) onBirth(_ string, payload []byte) error {
	if string(payload) != "online" {
		return nil
	}
	b.logger.Info("home assistant restarted, republishing discovery")
	b.publishAll()
	return nil
}

func (b *Bridge) publishAll() {
	b.mu.Lock()
	feeds := make([]*feed, len(b.feeds))
	copy(feeds, b.feeds)
	b.mu.Unlock()

	for _, f := range feeds {
		if snap := f.coordinator.Snapshot(); len(snap) > 0 {
			b.publishSnapshot(f.name, snap)
		}
	}
}

// publishSnapshot pushes discovery configs and states for one refresh,
// then clears retained configs for keys the snapshot no longer carries.
func (b *Bridge) publishSnapshot(instance string, snap entity.Snapshot) {
	current := make(map[string]struct{}, len(snap))

	for _, key := range snap.Keys() {
		rec := snap[key]
		current[key] = struct{}{}

		cfg := b.buildDiscovery(instance, rec)
		body, err := json.Marshal(cfg)
		if err != nil {
			b.logger.Error("failed to encode discovery config",
				"instance", instance, "key", key, "error", err)
			continue
		}
		if err := b.pub.Publish(b.configTopic(instance, key), body, b.qos, true); err != nil {
			b.logger.Warn("failed to publish discovery config",
				"instance", instance, "key", key, "error", err)
		}
		if err := b.pub.Publish(b.stateTopic(instance, key), []byte(statePayload(rec)), b.qos, false); err != nil {
			b.logger.Warn("failed to publish state",
				"instance", instance, "key", key, "error", err)
		}
	}

	b.mu.Lock()
	previous := b.published[instance]
	b.published[instance] = current
	b.mu.Unlock()

	// An empty retained payload deletes the discovery entry in HA.
	for key := range previous {
		if _, ok := current[key]; ok {
			continue
		}
		if err := b.pub.Publish(b.configTopic(instance, key), nil, b.qos, true); err != nil {
			b.logger.Warn("failed to clear stale discovery config",
				"instance", instance, "key", key, "error", err)
		}
	}
}
