// Package admin implements the operations the excluded CRUD surface calls
// into: broker and zone-group lifecycle, operator sensor state changes, the
// test-connection diagnostic and the per-sensor config push. Configuration
// errors surface synchronously to the caller; transport errors are logged
// and left to the adapters' reconnect policies.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/services/connection"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/services/connectivity"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/services/provisioning"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
)

type Service struct {
	brokers     storage.BrokerStore
	groups      storage.ZoneGroupStore
	sensors     storage.SensorStore
	zones       storage.ZoneStore
	manager     *connection.Manager
	provisioner *provisioning.Service
	machine     *connectivity.Machine
	probeWindow time.Duration
}

func NewService(
	brokers storage.BrokerStore,
	groups storage.ZoneGroupStore,
	sensors storage.SensorStore,
	zones storage.ZoneStore,
	manager *connection.Manager,
	provisioner *provisioning.Service,
	machine *connectivity.Machine,
	probeWindow time.Duration,
) *Service {
	return &Service{
		brokers:     brokers,
		groups:      groups,
		sensors:     sensors,
		zones:       zones,
		manager:     manager,
		provisioner: provisioner,
		machine:     machine,
		probeWindow: probeWindow,
	}
}

// ---- Broker lifecycle ----

func (s *Service) CreateBroker(ctx context.Context, b model.Broker) error {
	if err := validateBroker(b); err != nil {
		return err
	}
	if err := s.brokers.Save(b); err != nil {
		return fmt.Errorf("save broker %s: %w", b.ID, err)
	}
	// an unreachable broker is still a valid record; the adapter keeps trying
	if b.Enabled {
		if err := s.manager.Connect(ctx, b); err != nil {
			log.Printf("admin: broker %s created but connect failed: %v", b.ID, err)
		}
	}
	return nil
}

func (s *Service) UpdateBroker(ctx context.Context, b model.Broker) error {
	if err := validateBroker(b); err != nil {
		return err
	}
	if _, err := s.brokers.Get(b.ID); err != nil {
		return fmt.Errorf("broker %s: %w", b.ID, err)
	}
	if err := s.brokers.Save(b); err != nil {
		return fmt.Errorf("save broker %s: %w", b.ID, err)
	}
	s.reconnect(ctx, b)
	return nil
}

// DeleteBroker tears down the transport and cascades to its zone-groups,
// conditionally removing the sensors they provisioned.
func (s *Service) DeleteBroker(_ context.Context, id string) error {
	if _, err := s.brokers.Get(id); err != nil {
		return fmt.Errorf("broker %s: %w", id, err)
	}
	s.manager.Disconnect(id)
	for _, g := range s.groups.FindByBroker(id) {
		if err := s.groups.Delete(g.ID); err != nil {
			log.Printf("admin: delete group %s: %v", g.ID, err)
			continue
		}
		s.provisioner.RetireGroup(g)
	}
	if err := s.brokers.Delete(id); err != nil {
		return fmt.Errorf("delete broker %s: %w", id, err)
	}
	return nil
}

func (s *Service) ToggleBroker(ctx context.Context, id string, enabled bool) error {
	return s.manager.Toggle(ctx, id, enabled)
}

// ---- Zone-group lifecycle ----

func (s *Service) CreateZoneGroup(ctx context.Context, g model.ZoneGroup) error {
	b, err := s.validateGroup(g)
	if err != nil {
		return err
	}
	if err := s.groups.Save(g); err != nil {
		return fmt.Errorf("save group %s: %w", g.ID, err)
	}
	if _, err := s.provisioner.ProvisionTopics(g.ZoneID, g.Topics); err != nil {
		return err
	}
	s.reconnect(ctx, b) // pick up the new subscriptions
	return nil
}

func (s *Service) UpdateZoneGroup(ctx context.Context, g model.ZoneGroup) error {
	b, err := s.validateGroup(g)
	if err != nil {
		return err
	}
	old, err := s.groups.Get(g.ID)
	if err != nil {
		return fmt.Errorf("group %s: %w", g.ID, err)
	}
	if err := s.groups.Save(g); err != nil {
		return fmt.Errorf("save group %s: %w", g.ID, err)
	}
	if err := s.provisioner.SyncZoneGroup(old, g); err != nil {
		return err
	}
	s.reconnect(ctx, b)
	return nil
}

func (s *Service) DeleteZoneGroup(ctx context.Context, id string) error {
	g, err := s.groups.Get(id)
	if err != nil {
		return fmt.Errorf("group %s: %w", id, err)
	}
	if err := s.groups.Delete(id); err != nil {
		return fmt.Errorf("delete group %s: %w", id, err)
	}
	s.provisioner.RetireGroup(g)
	if b, err := s.brokers.Get(g.BrokerID); err == nil {
		s.reconnect(ctx, b)
	}
	return nil
}

// ---- Sensor operations ----

// SetSensorState applies an operator transition. Entering Active
// (re)subscribes the sensor's topic with the connection manager; leaving
// Active unsubscribes it.
func (s *Service) SetSensorState(_ context.Context, sensorID string, state model.SensorState) error {
	sensor, err := s.sensors.Get(sensorID)
	if err != nil {
		return fmt.Errorf("sensor %s: %w", sensorID, err)
	}
	prev := sensor.State
	if err := s.machine.SetOperatorState(sensorID, state); err != nil {
		return err
	}

	brokerID, ok := s.brokerForZone(sensor.ZoneID)
	if !ok || sensor.Topic == "" {
		return nil
	}
	switch {
	case state == model.StateActive && prev != model.StateActive:
		if err := s.manager.Subscribe(brokerID, sensor.Topic); err != nil {
			log.Printf("admin: subscribe %s: %v", sensor.Topic, err)
		}
	case state != model.StateActive && prev == model.StateActive:
		if err := s.manager.Unsubscribe(brokerID, sensor.Topic); err != nil {
			log.Printf("admin: unsubscribe %s: %v", sensor.Topic, err)
		}
	}
	return nil
}

// updateIntervalCommand is the config push body understood by the devices.
type updateIntervalCommand struct {
	Tipo  string `json:"tipo"`
	Valor int    `json:"valor"`
}

// PushUpdateInterval tells a device how often to report, publishing to
// <topic>/config. Best-effort like every outbound publish.
func (s *Service) PushUpdateInterval(_ context.Context, sensorID string, seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("interval must be positive, got %d", seconds)
	}
	sensor, err := s.sensors.Get(sensorID)
	if err != nil {
		return fmt.Errorf("sensor %s: %w", sensorID, err)
	}
	if sensor.Topic == "" {
		return fmt.Errorf("sensor %s has no topic", sensorID)
	}
	brokerID, ok := s.brokerForZone(sensor.ZoneID)
	if !ok {
		return fmt.Errorf("no broker bound to zone %s", sensor.ZoneID)
	}
	payload, _ := json.Marshal(updateIntervalCommand{Tipo: "UPDATE_INTERVAL", Valor: seconds})
	return s.manager.Publish(brokerID, sensor.Topic+"/config", payload)
}

// ---- Diagnostics ----

// TestConnection probes the broker. With no explicit topics the zone-groups'
// diagnostic test topics are used.
func (s *Service) TestConnection(ctx context.Context, brokerID string, topics []string) ([]connection.TopicProbe, error) {
	b, err := s.brokers.Get(brokerID)
	if err != nil {
		return nil, fmt.Errorf("broker %s: %w", brokerID, err)
	}
	if len(topics) == 0 {
		for _, g := range s.groups.FindByBroker(brokerID) {
			if t := strings.TrimSpace(g.TestTopic); t != "" {
				topics = append(topics, t)
			}
		}
	}
	return s.manager.TestConnection(ctx, b, topics, s.probeWindow)
}

// ---- helpers ----

func (s *Service) reconnect(ctx context.Context, b model.Broker) {
	if b.Enabled {
		if err := s.manager.Connect(ctx, b); err != nil {
			log.Printf("admin: reconnect broker %s: %v", b.ID, err)
		}
	} else {
		s.manager.Disconnect(b.ID)
	}
}

func (s *Service) brokerForZone(zoneID string) (string, bool) {
	groups := s.groups.FindByZone(zoneID)
	if len(groups) == 0 {
		return "", false
	}
	return groups[0].BrokerID, true
}

func (s *Service) validateGroup(g model.ZoneGroup) (model.Broker, error) {
	if g.ID == "" {
		return model.Broker{}, fmt.Errorf("zone-group id is required")
	}
	b, err := s.brokers.Get(g.BrokerID)
	if err != nil {
		return model.Broker{}, fmt.Errorf("zone-group %s references unknown broker %s: %w", g.ID, g.BrokerID, err)
	}
	if _, err := s.zones.GetZone(g.ZoneID); err != nil {
		return model.Broker{}, fmt.Errorf("zone-group %s references unknown zone %s: %w", g.ID, g.ZoneID, err)
	}
	return b, nil
}

func validateBroker(b model.Broker) error {
	if b.ID == "" {
		return fmt.Errorf("broker id is required")
	}
	switch b.Protocol {
	case model.ProtocolMQTT, model.ProtocolHTTP, model.ProtocolWebSocket:
	default:
		return fmt.Errorf("broker %s: unsupported protocol %q", b.ID, b.Protocol)
	}
	if strings.TrimSpace(b.Host) == "" || b.Port <= 0 {
		return fmt.Errorf("broker %s: host and port are required", b.ID)
	}
	return nil
}
