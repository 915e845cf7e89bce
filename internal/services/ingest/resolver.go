package ingest

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/services/connectivity"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/pkg/metrics"
)

// CommandEngine is invoked with every persisted value; the automation
// engine implements it.
type CommandEngine interface {
	Evaluate(s model.Sensor, value float64)
}

// Resolver maps an inbound (topic, payload) to the set of sensors that must
// process it and runs each one through the decode/persist/automate cycle.
// Sensors sharing a topic are processed sequentially within one message;
// that keeps their state transitions free of intra-message races without
// per-sensor locks.
type Resolver struct {
	sensors  storage.SensorStore
	groups   storage.ZoneGroupStore
	zones    storage.ZoneStore
	readings storage.ReadingStore
	machine  *connectivity.Machine
	engine   CommandEngine
	now      func() time.Time
}

func NewResolver(
	sensors storage.SensorStore,
	groups storage.ZoneGroupStore,
	zones storage.ZoneStore,
	readings storage.ReadingStore,
	machine *connectivity.Machine,
	engine CommandEngine,
) *Resolver {
	return &Resolver{
		sensors:  sensors,
		groups:   groups,
		zones:    zones,
		readings: readings,
		machine:  machine,
		engine:   engine,
		now:      time.Now,
	}
}

// HandleMessage is the single entry point the protocol adapters feed.
// A topic matching no sensor is expected noise, not an error.
func (r *Resolver) HandleMessage(topic string, payload []byte) {
	p := ParsePayload(payload)
	now := r.now().UTC()

	matched := false
	for _, s := range r.sensors.FindByTopic(topic) {
		if s.State == model.StateMaintenance {
			continue
		}
		matched = true
		if err := r.process(s, p, now); err != nil {
			// one sensor's failure must not starve its siblings
			log.Printf("resolver: sensor %s on %s: %v", s.ID, topic, err)
		}
	}
	if !matched {
		metrics.MessagesUnmatched.Inc()
	}
}

func (r *Resolver) process(s model.Sensor, p Payload, now time.Time) error {
	if p.ConnectivitySignal(s.Connectivity) == SignalDisconnected {
		// a self-reported failure still proves the device is alive: refresh
		// the timestamp so the watchdog does not pile on
		return r.machine.MarkDisconnected(s.ID, true, now)
	}

	val, ok := ExtractValue(s, p)
	if !ok {
		metrics.DecodeMisses.Inc()
		if p.HasErrorToken() {
			// failed extraction with an explicit error token: the timestamp
			// is deliberately not refreshed
			return r.machine.MarkDisconnected(s.ID, false, now)
		}
		return nil // soft miss, the watchdog decides later
	}

	if !r.authorized(s) {
		return nil
	}

	reading := model.Reading{
		ID:             uuid.NewString(),
		SensorID:       s.ID,
		Value:          val.V,
		Unit:           val.Unit,
		Classification: model.Classify(s, val.V),
		Timestamp:      now,
	}
	if err := r.readings.Append(context.Background(), reading); err != nil {
		// at-most-once: log loudly, never retry; the next reading corrects
		// visible state
		log.Printf("resolver: PERSIST FAILURE sensor %s: %v", s.ID, err)
	} else {
		metrics.ReadingsPersisted.Inc()
	}

	if r.engine != nil {
		r.engine.Evaluate(s, val.V)
	}

	if err := r.sensors.Touch(s.ID, now); err != nil {
		return err
	}
	if s.State == model.StateDisconnected {
		return r.machine.Revive(s.ID, now)
	}
	return nil
}

// authorized confirms the sensor's zone has at least one linked zone-group
// and, when bound to a sub-zone, that the sub-zone has telemetry enabled.
// Either check failing discards the reading silently.
func (r *Resolver) authorized(s model.Sensor) bool {
	if len(r.groups.FindByZone(s.ZoneID)) == 0 {
		return false
	}
	if s.SubZoneID != "" {
		sz, err := r.zones.GetSubZone(s.SubZoneID)
		if err != nil || !sz.Telemetry {
			return false
		}
	}
	return true
}
