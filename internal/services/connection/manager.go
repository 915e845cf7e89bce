package connection

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
)

// Manager is the explicit, injected connection registry: at most one live
// handle per broker id, with a defined construction/drain lifecycle.
type Manager struct {
	sink    MessageSink
	brokers storage.BrokerStore
	groups  storage.ZoneGroupStore
	sensors storage.SensorStore
	opts    Options

	mu      sync.Mutex
	handles map[string]Adapter

	// newAdapter is swappable in tests
	newAdapter func(b model.Broker, groups []model.ZoneGroup, topics []string) (Adapter, error)
}

func NewManager(sink MessageSink, brokers storage.BrokerStore, groups storage.ZoneGroupStore, sensors storage.SensorStore, opts Options) *Manager {
	m := &Manager{
		sink:    sink,
		brokers: brokers,
		groups:  groups,
		sensors: sensors,
		opts:    opts,
		handles: make(map[string]Adapter),
	}
	m.newAdapter = m.buildAdapter
	return m
}

func (m *Manager) buildAdapter(b model.Broker, groups []model.ZoneGroup, topics []string) (Adapter, error) {
	switch b.Protocol {
	case model.ProtocolMQTT:
		return newMQTTAdapter(b, topics, m.sink, m.opts), nil
	case model.ProtocolHTTP:
		return newPollAdapter(b, groups, m.sink, m.opts), nil
	case model.ProtocolWebSocket:
		return newSocketAdapter(b, groups, m.sink, m.opts), nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q for broker %s", b.Protocol, b.ID)
	}
}

// Connect opens the broker's adapter. An existing handle for the same
// broker id is torn down first: no two live handles per broker.
func (m *Manager) Connect(ctx context.Context, b model.Broker) error {
	if !b.Enabled {
		return fmt.Errorf("broker %s is administratively disabled", b.ID)
	}
	m.Disconnect(b.ID)

	groups := m.groups.FindByBroker(b.ID)
	adapter, err := m.newAdapter(b, groups, m.subscriptionUnion(groups))
	if err != nil {
		return err
	}
	if err := adapter.Connect(ctx); err != nil {
		// a rejected adapter must leave nothing running behind it
		adapter.Disconnect()
		return fmt.Errorf("connect broker %s: %w", b.ID, err)
	}

	m.mu.Lock()
	m.handles[b.ID] = adapter
	m.mu.Unlock()
	log.Printf("connection: broker %s (%s) connected", b.ID, b.Protocol)
	return nil
}

// subscriptionUnion collects every topic declared across the broker's
// zone-groups plus individually configured sensor topics in those zones
// that no zone-group already covers.
func (m *Manager) subscriptionUnion(groups []model.ZoneGroup) []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range groups {
		for _, t := range g.TopicNames() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	for _, g := range groups {
		for _, s := range m.sensors.FindByZone(g.ZoneID) {
			if s.Topic != "" && !seen[s.Topic] {
				seen[s.Topic] = true
				out = append(out, s.Topic)
			}
		}
	}
	return out
}

// Disconnect tears down and removes the broker's handle, if any.
func (m *Manager) Disconnect(brokerID string) {
	m.mu.Lock()
	adapter, ok := m.handles[brokerID]
	delete(m.handles, brokerID)
	m.mu.Unlock()
	if ok {
		adapter.Disconnect()
		log.Printf("connection: broker %s disconnected", brokerID)
	}
}

// Publish forwards to the owning adapter's send primitive. No connected
// handle fails loudly: logged here, error to the caller, never retried.
func (m *Manager) Publish(brokerID, topic string, payload []byte) error {
	m.mu.Lock()
	adapter, ok := m.handles[brokerID]
	m.mu.Unlock()
	if !ok {
		log.Printf("connection: publish to %s dropped, broker %s has no handle", topic, brokerID)
		return ErrNoHandle
	}
	return adapter.Publish(topic, payload)
}

// Subscribe adds a single topic on a live handle (sensor entering Active).
func (m *Manager) Subscribe(brokerID, topic string) error {
	m.mu.Lock()
	adapter, ok := m.handles[brokerID]
	m.mu.Unlock()
	if !ok {
		return ErrNoHandle
	}
	return adapter.Subscribe(topic)
}

// Unsubscribe removes a single topic from a live handle.
func (m *Manager) Unsubscribe(brokerID, topic string) error {
	m.mu.Lock()
	adapter, ok := m.handles[brokerID]
	m.mu.Unlock()
	if !ok {
		return ErrNoHandle
	}
	return adapter.Unsubscribe(topic)
}

// Connected reports whether a handle exists for the broker.
func (m *Manager) Connected(brokerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handles[brokerID]
	return ok
}

// Toggle flips the broker's administrative state, connects or disconnects
// accordingly, and propagates the flag to every sensor bound to the
// broker's zones so their subscriptions stay consistent.
func (m *Manager) Toggle(ctx context.Context, brokerID string, enabled bool) error {
	b, err := m.brokers.Get(brokerID)
	if err != nil {
		return fmt.Errorf("toggle broker %s: %w", brokerID, err)
	}
	b.Enabled = enabled
	if err := m.brokers.Save(b); err != nil {
		return fmt.Errorf("toggle broker %s: %w", brokerID, err)
	}

	// administrative state is applied in full before the transport is
	// touched; a failed connect must not leave the sensors half-flipped
	state := model.StateInactive
	if enabled {
		state = model.StateActive
	}
	for _, g := range m.groups.FindByBroker(brokerID) {
		for _, s := range m.sensors.FindByZone(g.ZoneID) {
			if err := m.sensors.UpdateState(s.ID, state); err != nil {
				log.Printf("connection: toggle sensor %s: %v", s.ID, err)
			}
		}
	}

	if enabled {
		return m.Connect(ctx, b)
	}
	m.Disconnect(brokerID)
	return nil
}

// Shutdown drains every live connection; called on process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]Adapter)
	m.mu.Unlock()
	for id, adapter := range handles {
		adapter.Disconnect()
		log.Printf("connection: broker %s drained", id)
	}
}
