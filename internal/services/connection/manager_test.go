package connection

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
)

type fakeAdapter struct {
	topics       []string
	connected    bool
	disconnected int
	published    map[string][]byte
	subscribed   []string
	unsubscribed []string
}

func (a *fakeAdapter) Connect(_ context.Context) error { a.connected = true; return nil }
func (a *fakeAdapter) Disconnect()                     { a.connected = false; a.disconnected++ }
func (a *fakeAdapter) Publish(topic string, payload []byte) error {
	if a.published == nil {
		a.published = make(map[string][]byte)
	}
	a.published[topic] = payload
	return nil
}
func (a *fakeAdapter) Subscribe(topic string) error {
	a.subscribed = append(a.subscribed, topic)
	return nil
}
func (a *fakeAdapter) Unsubscribe(topic string) error {
	a.unsubscribed = append(a.unsubscribed, topic)
	return nil
}

type nullSink struct{}

func (nullSink) HandleMessage(string, []byte) {}

type managerFixture struct {
	mem      *storage.Memory
	manager  *Manager
	adapters []*fakeAdapter
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	mem := storage.NewMemory()
	f := &managerFixture{mem: mem}
	f.manager = NewManager(nullSink{}, mem.Brokers(), mem.Groups(), mem, Options{})
	f.manager.newAdapter = func(_ model.Broker, _ []model.ZoneGroup, topics []string) (Adapter, error) {
		a := &fakeAdapter{topics: topics}
		f.adapters = append(f.adapters, a)
		return a, nil
	}
	return f
}

func testBroker(id string) model.Broker {
	return model.Broker{
		ID: id, Protocol: model.ProtocolMQTT,
		Host: "broker.local", Port: 1883, Enabled: true,
	}
}

func TestManager_ConnectAndDisconnect(t *testing.T) {
	f := newManagerFixture(t)
	b := testBroker("b1")

	require.NoError(t, f.manager.Connect(context.Background(), b))
	assert.True(t, f.manager.Connected("b1"))

	f.manager.Disconnect("b1")
	assert.False(t, f.manager.Connected("b1"))
	require.Len(t, f.adapters, 1)
	assert.Equal(t, 1, f.adapters[0].disconnected)
}

func TestManager_RejectsDisabledBroker(t *testing.T) {
	f := newManagerFixture(t)
	b := testBroker("b1")
	b.Enabled = false

	err := f.manager.Connect(context.Background(), b)
	assert.Error(t, err)
	assert.False(t, f.manager.Connected("b1"))
}

func TestManager_OneHandlePerBroker(t *testing.T) {
	f := newManagerFixture(t)
	b := testBroker("b1")

	require.NoError(t, f.manager.Connect(context.Background(), b))
	require.NoError(t, f.manager.Connect(context.Background(), b))

	require.Len(t, f.adapters, 2)
	assert.Equal(t, 1, f.adapters[0].disconnected, "first handle torn down on reconnect")
	assert.True(t, f.adapters[1].connected)
}

func TestManager_SubscriptionUnion(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.mem.SaveGroup(model.ZoneGroup{
		ID: "g1", BrokerID: "b1", ZoneID: "zona1",
		Topics: []model.TopicSpec{{Topic: "finca/temperatura"}, {Topic: "finca/humedad"}},
	}))
	// covered by the group list already
	require.NoError(t, f.mem.Save(model.Sensor{ID: "s1", ZoneID: "zona1", Topic: "finca/temperatura"}))
	// configured individually, must still be subscribed
	require.NoError(t, f.mem.Save(model.Sensor{ID: "s2", ZoneID: "zona1", Topic: "finca/luz"}))
	// different zone, not part of this broker's groups
	require.NoError(t, f.mem.Save(model.Sensor{ID: "s3", ZoneID: "otra", Topic: "otra/temp"}))

	require.NoError(t, f.manager.Connect(context.Background(), testBroker("b1")))

	require.Len(t, f.adapters, 1)
	got := append([]string(nil), f.adapters[0].topics...)
	sort.Strings(got)
	assert.Equal(t, []string{"finca/humedad", "finca/luz", "finca/temperatura"}, got)
}

func TestManager_PublishWithoutHandle(t *testing.T) {
	f := newManagerFixture(t)
	err := f.manager.Publish("b1", "t", []byte("x"))
	assert.ErrorIs(t, err, ErrNoHandle)
}

func TestManager_PublishRoutesToHandle(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Connect(context.Background(), testBroker("b1")))

	require.NoError(t, f.manager.Publish("b1", "agrotech/actuador/bomba", []byte("ON")))
	assert.Equal(t, []byte("ON"), f.adapters[0].published["agrotech/actuador/bomba"])
}

func TestManager_SubscribeUnsubscribe(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Connect(context.Background(), testBroker("b1")))

	require.NoError(t, f.manager.Subscribe("b1", "finca/extra"))
	require.NoError(t, f.manager.Unsubscribe("b1", "finca/extra"))
	assert.Equal(t, []string{"finca/extra"}, f.adapters[0].subscribed)
	assert.Equal(t, []string{"finca/extra"}, f.adapters[0].unsubscribed)

	assert.ErrorIs(t, f.manager.Subscribe("b2", "t"), ErrNoHandle)
}

func TestManager_TogglePropagatesSensorState(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.mem.SaveBroker(testBroker("b1")))
	require.NoError(t, f.mem.SaveGroup(model.ZoneGroup{ID: "g1", BrokerID: "b1", ZoneID: "zona1"}))
	require.NoError(t, f.mem.Save(model.Sensor{ID: "s1", ZoneID: "zona1", Topic: "t", State: model.StateActive}))

	require.NoError(t, f.manager.Toggle(context.Background(), "b1", false))
	assert.False(t, f.manager.Connected("b1"))
	s, _ := f.mem.Get("s1")
	assert.Equal(t, model.StateInactive, s.State)

	require.NoError(t, f.manager.Toggle(context.Background(), "b1", true))
	assert.True(t, f.manager.Connected("b1"))
	s, _ = f.mem.Get("s1")
	assert.Equal(t, model.StateActive, s.State)

	b, err := f.mem.GetBroker("b1")
	require.NoError(t, err)
	assert.True(t, b.Enabled)
}

func TestManager_ToggleAppliesStateDespiteConnectFailure(t *testing.T) {
	f := newManagerFixture(t)
	f.manager.newAdapter = func(model.Broker, []model.ZoneGroup, []string) (Adapter, error) {
		return nil, assert.AnError
	}
	b := testBroker("b1")
	b.Enabled = false
	require.NoError(t, f.mem.SaveBroker(b))
	require.NoError(t, f.mem.SaveGroup(model.ZoneGroup{ID: "g1", BrokerID: "b1", ZoneID: "zona1"}))
	require.NoError(t, f.mem.Save(model.Sensor{ID: "s1", ZoneID: "zona1", Topic: "t", State: model.StateInactive}))

	err := f.manager.Toggle(context.Background(), "b1", true)
	assert.Error(t, err)

	// the administrative flip sticks even when the transport is down
	got, getErr := f.mem.GetBroker("b1")
	require.NoError(t, getErr)
	assert.True(t, got.Enabled)
	s, _ := f.mem.Get("s1")
	assert.Equal(t, model.StateActive, s.State)
}

func TestManager_Shutdown(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.manager.Connect(context.Background(), testBroker("b1")))
	b2 := testBroker("b2")
	require.NoError(t, f.manager.Connect(context.Background(), b2))

	f.manager.Shutdown()

	assert.False(t, f.manager.Connected("b1"))
	assert.False(t, f.manager.Connected("b2"))
	for _, a := range f.adapters {
		assert.Equal(t, 1, a.disconnected)
	}
}
