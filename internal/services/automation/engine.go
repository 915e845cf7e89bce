// Package automation drives the threshold rule for the irrigation actuator:
// one hard-coded rule per soil-moisture sensor, no debounce beyond the
// two-threshold band itself.
package automation

import (
	"log"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/pkg/metrics"
)

const (
	// DefaultCommandTopic is where the pump actuator listens.
	DefaultCommandTopic = "agrotech/actuador/bomba"

	DefaultLowThreshold  = 30.0
	DefaultHighThreshold = 70.0

	CommandOn  = "ON"
	CommandOff = "OFF"
)

// CommandPublisher is the slice of the connection manager the engine needs.
// Publication is fire-and-forget: failures are logged, never retried; the
// next reading re-evaluates the rule anyway.
type CommandPublisher interface {
	Publish(brokerID, topic string, payload []byte) error
}

// Engine evaluates freshly decoded values against the sensor's thresholds.
type Engine struct {
	publisher    CommandPublisher
	groups       storage.ZoneGroupStore
	commandTopic string
	defaultLow   float64
	defaultHigh  float64
}

func NewEngine(publisher CommandPublisher, groups storage.ZoneGroupStore, commandTopic string) *Engine {
	if commandTopic == "" {
		commandTopic = DefaultCommandTopic
	}
	return &Engine{
		publisher:    publisher,
		groups:       groups,
		commandTopic: commandTopic,
		defaultLow:   DefaultLowThreshold,
		defaultHigh:  DefaultHighThreshold,
	}
}

// Evaluate applies the rule to one decoded value. Only sensors whose topic
// matches the soil-moisture naming convention participate. Below the low
// threshold publishes ON, at or above the high threshold publishes OFF,
// anything strictly inside the band publishes nothing.
func (e *Engine) Evaluate(s model.Sensor, value float64) {
	class := model.MatchClass(s.Topic)
	if class == nil || class.Key != model.ClassSoilMoisture {
		return
	}

	low, high := e.defaultLow, e.defaultHigh
	if s.Min != nil {
		low = *s.Min
	}
	if s.Max != nil {
		high = *s.Max
	}

	var command string
	switch {
	case value < low:
		command = CommandOn
	case value >= high:
		command = CommandOff
	default:
		return
	}

	brokerID, ok := e.brokerFor(s)
	if !ok {
		log.Printf("automation: no broker bound to zone %s, dropping %s command", s.ZoneID, command)
		return
	}
	if err := e.publisher.Publish(brokerID, e.commandTopic, []byte(command)); err != nil {
		log.Printf("automation: publish %s for sensor %s: %v", command, s.ID, err)
		return
	}
	metrics.CommandsPublished.WithLabelValues(command).Inc()
	log.Printf("automation: %s (value=%.1f, band=[%.1f,%.1f]) -> %s on %s",
		s.ID, value, low, high, command, e.commandTopic)
}

// brokerFor picks the broker of the first zone-group bound to the sensor's
// zone. The command goes back out through the same upstream that carried
// the reading in.
func (e *Engine) brokerFor(s model.Sensor) (string, bool) {
	groups := e.groups.FindByZone(s.ZoneID)
	if len(groups) == 0 {
		return "", false
	}
	return groups[0].BrokerID, true
}
