// Package connectivity owns the per-sensor state machine
// (Active / Disconnected / Inactive / Maintenance) and the watchdog sweep.
package connectivity

import (
	"fmt"
	"log"
	"time"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
)

// Machine applies state transitions through the sensor store's atomic
// single-row updates. It holds no state of its own.
type Machine struct {
	sensors storage.SensorStore
}

func NewMachine(sensors storage.SensorStore) *Machine {
	return &Machine{sensors: sensors}
}

// MarkDisconnected flags a sensor as Disconnected. refreshTimestamp
// distinguishes a live self-report (the device is alive enough to announce
// its failure, so the watchdog must not immediately pile on) from a failed
// extraction, which leaves the timestamp alone.
func (m *Machine) MarkDisconnected(id string, refreshTimestamp bool, now time.Time) error {
	if err := m.sensors.UpdateState(id, model.StateDisconnected); err != nil {
		return fmt.Errorf("mark disconnected %s: %w", id, err)
	}
	if refreshTimestamp {
		if err := m.sensors.Touch(id, now); err != nil {
			return fmt.Errorf("touch %s: %w", id, err)
		}
	}
	return nil
}

// Revive returns a Disconnected sensor to Active after a successful
// value-extraction cycle. This is the only path back to Active that does
// not involve an operator; the sweep never revives.
func (m *Machine) Revive(id string, now time.Time) error {
	if err := m.sensors.UpdateState(id, model.StateActive); err != nil {
		return fmt.Errorf("revive %s: %w", id, err)
	}
	log.Printf("connectivity: sensor %s reconnected", id)
	return nil
}

// SetOperatorState applies an explicit operator transition between Active,
// Inactive and Maintenance. Disconnected is never set by operators.
func (m *Machine) SetOperatorState(id string, state model.SensorState) error {
	switch state {
	case model.StateActive, model.StateInactive, model.StateMaintenance:
	default:
		return fmt.Errorf("state %s cannot be set by operator", state)
	}
	if err := m.sensors.UpdateState(id, state); err != nil {
		return fmt.Errorf("set state %s on %s: %w", state, id, err)
	}
	return nil
}
