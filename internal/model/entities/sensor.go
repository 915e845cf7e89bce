package entities

import "time"

// SensorState is the connectivity/lifecycle state of a sensor.
type SensorState string

const (
	StateActive       SensorState = "ACTIVE"
	StateDisconnected SensorState = "DISCONNECTED"
	StateInactive     SensorState = "INACTIVE"
	StateMaintenance  SensorState = "MAINTENANCE"
)

// ConnectivityConfig tells the decoder how a device self-reports its link
// state: which payload field to inspect and which values mean what. When
// Mandatory is set, a missing field counts as a disconnection.
type ConnectivityConfig struct {
	Field              string   `json:"field"`
	ConnectedValues    []string `json:"connected_values"`
	DisconnectedValues []string `json:"disconnected_values"`
	Mandatory          bool     `json:"mandatory"`
}

// Sensor is one logical device bound to a topic. PayloadKey, when set, names
// the exact JSON field carrying the measurement; otherwise the decoder falls
// back to heuristics. Min/Max are alert thresholds (nil = unset).
type Sensor struct {
	ID           string              `json:"id"`
	ZoneID       string              `json:"zone_id"`
	SubZoneID    string              `json:"sub_zone_id,omitempty"`
	Name         string              `json:"name"`
	Topic        string              `json:"topic"`
	PayloadKey   string              `json:"payload_key,omitempty"`
	SensorKey    string              `json:"sensor_key,omitempty"`
	Min          *float64            `json:"min,omitempty"`
	Max          *float64            `json:"max,omitempty"`
	State        SensorState         `json:"state"`
	LastMessage  *time.Time          `json:"last_message,omitempty"`
	Connectivity *ConnectivityConfig `json:"connectivity,omitempty"`
}

// Stale reports whether the sensor has been silent longer than timeout.
// A sensor that has never spoken (nil LastMessage) is not stale: the null
// timestamp is its grace period until first contact.
func (s Sensor) Stale(now time.Time, timeout time.Duration) bool {
	if s.LastMessage == nil {
		return false
	}
	return now.Sub(*s.LastMessage) > timeout
}

// Sweepable reports whether the watchdog should consider this sensor at all.
func (s Sensor) Sweepable() bool {
	if s.Topic == "" {
		return false
	}
	return s.State == StateActive || s.State == StateDisconnected
}

// Zone is a field zone; sensors and zone-groups reference it by ID.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SubZone is an optional subdivision of a zone. Telemetry can be switched
// off per sub-zone, which silently discards readings from its sensors.
type SubZone struct {
	ID        string `json:"id"`
	ZoneID    string `json:"zone_id"`
	Name      string `json:"name"`
	Telemetry bool   `json:"telemetry"`
}
