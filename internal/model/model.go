// Package model is the surface the services program against; it re-exports
// the entity types and the pure domain helpers.
package model

import (
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model/entities"
)

type (
	Broker             = entities.Broker
	Protocol           = entities.Protocol
	ZoneGroup          = entities.ZoneGroup
	TopicSpec          = entities.TopicSpec
	Sensor             = entities.Sensor
	SensorState        = entities.SensorState
	ConnectivityConfig = entities.ConnectivityConfig
	Reading            = entities.Reading
	Classification     = entities.Classification
	DeviceClass        = entities.DeviceClass
	Zone               = entities.Zone
	SubZone            = entities.SubZone
)

const (
	ProtocolMQTT      = entities.ProtocolMQTT
	ProtocolHTTP      = entities.ProtocolHTTP
	ProtocolWebSocket = entities.ProtocolWebSocket

	StateActive       = entities.StateActive
	StateDisconnected = entities.StateDisconnected
	StateInactive     = entities.StateInactive
	StateMaintenance  = entities.StateMaintenance

	ClassNormal = entities.ClassNormal
	ClassAlert  = entities.ClassAlert

	ClassSoilMoisture = entities.ClassSoilMoisture
	ClassTemperature  = entities.ClassTemperature
	ClassHumidity     = entities.ClassHumidity
	ClassLight        = entities.ClassLight
	ClassPump         = entities.ClassPump
)

// MatchClass finds the first device class whose matcher appears in s.
func MatchClass(s string) *DeviceClass { return entities.MatchClass(s) }

// Classify derives the reading classification from the sensor's thresholds.
func Classify(s Sensor, value float64) Classification { return entities.Classify(s, value) }
