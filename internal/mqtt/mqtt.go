// Package mqtt sends telemetry over MQTT, buffering while the broker is
// unreachable.
package mqtt

import "strings"

// Availability payloads, published retained on the availability topic.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// AvailabilityTopic returns the availability topic that sits next to the
// telemetry topic: "room-sensor/telemetry" -> "room-sensor/availability".
func AvailabilityTopic(telemetryTopic string) string {
	i := strings.LastIndexByte(telemetryTopic, '/')
	if i < 0 {
		return telemetryTopic + "/availability"
	}
	return telemetryTopic[:i] + "/availability"
}
