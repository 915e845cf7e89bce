package entities

import "time"

// Classification marks a reading as inside or outside the sensor's alert band.
type Classification string

const (
	ClassNormal Classification = "NORMAL"
	ClassAlert  Classification = "ALERT"
)

// Reading is one immutable persisted sample. Created only by the ingestion
// pipeline; never mutated or deleted afterwards.
type Reading struct {
	ID             string         `json:"id"`
	SensorID       string         `json:"sensor_id"`
	Value          float64        `json:"value"`
	Unit           string         `json:"unit,omitempty"`
	Classification Classification `json:"classification"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Classify derives the reading classification from the sensor's thresholds.
// Unset bounds never trigger an alert on their side.
func Classify(s Sensor, value float64) Classification {
	if s.Min != nil && value < *s.Min {
		return ClassAlert
	}
	if s.Max != nil && value > *s.Max {
		return ClassAlert
	}
	return ClassNormal
}
