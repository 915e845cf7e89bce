// Package provisioning turns declarative zone-group topic lists into sensor
// records, idempotently, and reconciles sensors when topic lists change.
package provisioning

import (
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
)

type Service struct {
	sensors storage.SensorStore
	groups  storage.ZoneGroupStore
}

func NewService(sensors storage.SensorStore, groups storage.ZoneGroupStore) *Service {
	return &Service{sensors: sensors, groups: groups}
}

// ProvisionTopics creates one sensor per topic in the zone unless a sensor
// with that exact topic already exists there. New sensors start Active with
// a null last-message timestamp. Explicit per-topic threshold overrides win
// over device-class defaults. Returns the sensors actually created.
func (s *Service) ProvisionTopics(zoneID string, specs []model.TopicSpec) ([]model.Sensor, error) {
	var created []model.Sensor
	for _, spec := range specs {
		topic := strings.TrimSpace(spec.Topic)
		if topic == "" {
			continue
		}
		if _, exists := s.sensors.FindByTopicInZone(zoneID, topic); exists {
			continue
		}
		sensor := defaultSensor(zoneID, topic)
		if spec.Min != nil {
			sensor.Min = spec.Min
		}
		if spec.Max != nil {
			sensor.Max = spec.Max
		}
		if err := s.sensors.Save(sensor); err != nil {
			return created, fmt.Errorf("provision %s: %w", topic, err)
		}
		log.Printf("provisioning: created sensor %q for topic %s in zone %s", sensor.Name, topic, zoneID)
		created = append(created, sensor)
	}
	return created, nil
}

// SyncZoneGroup diffs the stored topic list against the updated one:
// added topics are provisioned, removed topics go through conditional
// sensor retirement.
func (s *Service) SyncZoneGroup(old, updated model.ZoneGroup) error {
	oldSet := make(map[string]bool)
	for _, t := range old.TopicNames() {
		oldSet[t] = true
	}
	newSet := make(map[string]bool)
	var added []model.TopicSpec
	for _, spec := range updated.Topics {
		t := strings.TrimSpace(spec.Topic)
		if t == "" {
			continue
		}
		newSet[t] = true
		if !oldSet[t] {
			added = append(added, spec)
		}
	}

	if _, err := s.ProvisionTopics(updated.ZoneID, added); err != nil {
		return err
	}

	for t := range oldSet {
		if !newSet[t] {
			s.retireTopic(updated.ZoneID, updated.ID, t)
		}
	}
	return nil
}

// RetireGroup treats every topic of the group as removed, used when a
// zone-group is deleted outright.
func (s *Service) RetireGroup(g model.ZoneGroup) {
	for _, t := range g.TopicNames() {
		s.retireTopic(g.ZoneID, g.ID, t)
	}
}

// retireTopic deletes the sensor bound to a removed topic unless another
// zone-group of the same zone still covers it: overlapping coverage keeps
// the sensor alive.
func (s *Service) retireTopic(zoneID, excludeGroupID, topic string) {
	sensor, ok := s.sensors.FindByTopicInZone(zoneID, topic)
	if !ok {
		return
	}
	for _, g := range s.groups.FindByZone(zoneID) {
		if g.ID == excludeGroupID {
			continue
		}
		for _, other := range g.TopicNames() {
			if covers(other, sensor.Topic) {
				log.Printf("provisioning: sensor %s kept, topic %s still covered by group %s", sensor.ID, topic, g.ID)
				return
			}
		}
	}
	if err := s.sensors.Delete(sensor.ID); err != nil {
		log.Printf("provisioning: delete sensor %s: %v", sensor.ID, err)
		return
	}
	log.Printf("provisioning: removed sensor %s, topic %s no longer covered in zone %s", sensor.ID, topic, zoneID)
}

// covers reports whether declared topic t keeps sensorTopic alive: t is a
// prefix of the sensor's topic or a superstring of it.
func covers(t, sensorTopic string) bool {
	return strings.HasPrefix(sensorTopic, t) || strings.Contains(t, sensorTopic)
}

// defaultSensor derives name and thresholds by substring-matching the topic
// against the device-class dictionary; unmatched topics get a generic name
// from the last path segment.
func defaultSensor(zoneID, topic string) model.Sensor {
	sensor := model.Sensor{
		ID:     uuid.NewString(),
		ZoneID: zoneID,
		Topic:  topic,
		State:  model.StateActive,
	}
	if class := model.MatchClass(topic); class != nil {
		sensor.Name = class.DefaultName
		min, max := class.DefaultMin, class.DefaultMax
		sensor.Min = &min
		sensor.Max = &max
		return sensor
	}
	sensor.Name = fmt.Sprintf("Sensor %s", lastSegment(topic))
	return sensor
}

func lastSegment(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	return parts[len(parts)-1]
}
