package storage

import (
	"context"
	"sync"
	"time"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model/entities"
)

// Memory is the in-process implementation of every store interface. A single
// RWMutex per store gives the atomic single-row update guarantee the pipeline
// relies on; there is no other shared mutable state.
type Memory struct {
	mu       sync.RWMutex
	sensors  map[string]entities.Sensor
	brokers  map[string]entities.Broker
	groups   map[string]entities.ZoneGroup
	zones    map[string]entities.Zone
	subZones map[string]entities.SubZone
}

func NewMemory() *Memory {
	return &Memory{
		sensors:  make(map[string]entities.Sensor),
		brokers:  make(map[string]entities.Broker),
		groups:   make(map[string]entities.ZoneGroup),
		zones:    make(map[string]entities.Zone),
		subZones: make(map[string]entities.SubZone),
	}
}

// ---- SensorStore ----

func (m *Memory) Save(s entities.Sensor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sensors[s.ID] = s
	return nil
}

func (m *Memory) Get(id string) (entities.Sensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sensors[id]
	if !ok {
		return entities.Sensor{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sensors, id)
	return nil
}

func (m *Memory) All() []entities.Sensor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.Sensor, 0, len(m.sensors))
	for _, s := range m.sensors {
		out = append(out, s)
	}
	return out
}

func (m *Memory) FindByTopic(topic string) []entities.Sensor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entities.Sensor
	for _, s := range m.sensors {
		if s.Topic == topic {
			out = append(out, s)
		}
	}
	return out
}

func (m *Memory) FindByZone(zoneID string) []entities.Sensor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entities.Sensor
	for _, s := range m.sensors {
		if s.ZoneID == zoneID {
			out = append(out, s)
		}
	}
	return out
}

func (m *Memory) FindByTopicInZone(zoneID, topic string) (entities.Sensor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sensors {
		if s.ZoneID == zoneID && s.Topic == topic {
			return s, true
		}
	}
	return entities.Sensor{}, false
}

func (m *Memory) UpdateState(id string, state entities.SensorState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sensors[id]
	if !ok {
		return ErrNotFound
	}
	s.State = state
	m.sensors[id] = s
	return nil
}

func (m *Memory) Touch(id string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sensors[id]
	if !ok {
		return ErrNotFound
	}
	ts := t
	s.LastMessage = &ts
	m.sensors[id] = s
	return nil
}

// ---- BrokerStore ----

func (m *Memory) SaveBroker(b entities.Broker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brokers[b.ID] = b
	return nil
}

func (m *Memory) GetBroker(id string) (entities.Broker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.brokers[id]
	if !ok {
		return entities.Broker{}, ErrNotFound
	}
	return b, nil
}

func (m *Memory) DeleteBroker(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.brokers, id)
	return nil
}

func (m *Memory) AllBrokers() []entities.Broker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.Broker, 0, len(m.brokers))
	for _, b := range m.brokers {
		out = append(out, b)
	}
	return out
}

// ---- ZoneGroupStore ----

func (m *Memory) SaveGroup(g entities.ZoneGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.ID] = g
	return nil
}

func (m *Memory) GetGroup(id string) (entities.ZoneGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[id]
	if !ok {
		return entities.ZoneGroup{}, ErrNotFound
	}
	return g, nil
}

func (m *Memory) DeleteGroup(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.groups, id)
	return nil
}

func (m *Memory) FindByBroker(brokerID string) []entities.ZoneGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entities.ZoneGroup
	for _, g := range m.groups {
		if g.BrokerID == brokerID {
			out = append(out, g)
		}
	}
	return out
}

func (m *Memory) FindGroupsByZone(zoneID string) []entities.ZoneGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entities.ZoneGroup
	for _, g := range m.groups {
		if g.ZoneID == zoneID {
			out = append(out, g)
		}
	}
	return out
}

// ---- ZoneStore ----

func (m *Memory) SaveZone(z entities.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones[z.ID] = z
	return nil
}

func (m *Memory) GetZone(id string) (entities.Zone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	z, ok := m.zones[id]
	if !ok {
		return entities.Zone{}, ErrNotFound
	}
	return z, nil
}

func (m *Memory) SaveSubZone(sz entities.SubZone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subZones[sz.ID] = sz
	return nil
}

func (m *Memory) GetSubZone(id string) (entities.SubZone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sz, ok := m.subZones[id]
	if !ok {
		return entities.SubZone{}, ErrNotFound
	}
	return sz, nil
}

// brokerStoreAdapter / groupStoreAdapter give Memory the exact method names
// of the narrow interfaces without colliding with SensorStore methods.

type brokerStoreAdapter struct{ m *Memory }

func (a brokerStoreAdapter) Save(b entities.Broker) error           { return a.m.SaveBroker(b) }
func (a brokerStoreAdapter) Get(id string) (entities.Broker, error) { return a.m.GetBroker(id) }
func (a brokerStoreAdapter) Delete(id string) error                 { return a.m.DeleteBroker(id) }
func (a brokerStoreAdapter) All() []entities.Broker                 { return a.m.AllBrokers() }

type groupStoreAdapter struct{ m *Memory }

func (a groupStoreAdapter) Save(g entities.ZoneGroup) error           { return a.m.SaveGroup(g) }
func (a groupStoreAdapter) Get(id string) (entities.ZoneGroup, error) { return a.m.GetGroup(id) }
func (a groupStoreAdapter) Delete(id string) error                    { return a.m.DeleteGroup(id) }
func (a groupStoreAdapter) FindByBroker(id string) []entities.ZoneGroup {
	return a.m.FindByBroker(id)
}
func (a groupStoreAdapter) FindByZone(id string) []entities.ZoneGroup {
	return a.m.FindGroupsByZone(id)
}

// Brokers exposes the Memory as a BrokerStore.
func (m *Memory) Brokers() BrokerStore { return brokerStoreAdapter{m} }

// Groups exposes the Memory as a ZoneGroupStore.
func (m *Memory) Groups() ZoneGroupStore { return groupStoreAdapter{m} }

// MemoryReadings is an append-only in-memory reading store keeping a bounded
// buffer plus a latest-per-sensor cache.
type MemoryReadings struct {
	mu       sync.RWMutex
	buffer   []entities.Reading
	latest   map[string]entities.Reading
	capacity int
}

func NewMemoryReadings(capacity int) *MemoryReadings {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryReadings{
		buffer:   make([]entities.Reading, 0, capacity),
		latest:   make(map[string]entities.Reading),
		capacity: capacity,
	}
}

func (r *MemoryReadings) Append(_ context.Context, reading entities.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buffer) >= r.capacity {
		r.buffer = r.buffer[1:]
	}
	r.buffer = append(r.buffer, reading)
	r.latest[reading.SensorID] = reading
	return nil
}

func (r *MemoryReadings) Latest(sensorID string) (entities.Reading, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.latest[sensorID]
	return rd, ok
}

func (r *MemoryReadings) AllReadings() []entities.Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.Reading, len(r.buffer))
	copy(out, r.buffer)
	return out
}

var (
	_ SensorStore  = (*Memory)(nil)
	_ ZoneStore    = (*Memory)(nil)
	_ ReadingStore = (*MemoryReadings)(nil)
)
