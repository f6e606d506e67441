// Package hass publishes coordinator snapshots to Home Assistant over
// MQTT discovery.
//
// Each snapshot record maps to one HA sensor: a retained config on
// {prefix}/sensor/cloudpoll/{instance}_{key}/config and a state topic
// under the service base topic. Availability rides on the MQTT client's
// status topic so every sensor goes unavailable together when the
// service drops off the broker.
package hass
