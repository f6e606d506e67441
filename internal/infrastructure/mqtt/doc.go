// Package mqtt wraps the Eclipse Paho client for cloudpoll's
// Home Assistant discovery bridge.
//
// # Features
//
//   - Connection management with auto-reconnect and exponential backoff
//   - Last Will and Testament on the service availability topic
//   - Publish with validation, size limits, and acknowledgment timeouts
//   - Subscriptions restored automatically after reconnect
//   - Panic-safe message handlers
//
// # Availability
//
// The client publishes a retained JSON status to <base_topic>/status on
// connect ("online") and on graceful shutdown ("offline"); the broker
// publishes the LWT variant on unexpected disconnect. Discovery configs
// reference this topic so Home Assistant marks entities unavailable when
// the service goes away.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil { ... }
//	defer client.Close()
//	err = client.Publish(topic, payload, 1, true)
package mqtt
