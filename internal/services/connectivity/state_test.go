package connectivity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
)

func TestMachine_MarkDisconnected(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.Save(model.Sensor{ID: "s1", State: model.StateActive}))
	m := NewMachine(mem)

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.MarkDisconnected("s1", true, now))

	s, err := mem.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, model.StateDisconnected, s.State)
	require.NotNil(t, s.LastMessage)
	assert.Equal(t, now, *s.LastMessage)
}

func TestMachine_MarkDisconnectedWithoutRefresh(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.Save(model.Sensor{ID: "s1", State: model.StateActive}))
	m := NewMachine(mem)

	require.NoError(t, m.MarkDisconnected("s1", false, time.Now()))

	s, err := mem.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, model.StateDisconnected, s.State)
	assert.Nil(t, s.LastMessage)
}

func TestMachine_Revive(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.Save(model.Sensor{ID: "s1", State: model.StateDisconnected}))
	m := NewMachine(mem)

	require.NoError(t, m.Revive("s1", time.Now()))

	s, err := mem.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, model.StateActive, s.State)
}

func TestMachine_SetOperatorState(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.Save(model.Sensor{ID: "s1", State: model.StateActive}))
	m := NewMachine(mem)

	require.NoError(t, m.SetOperatorState("s1", model.StateMaintenance))
	s, err := mem.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, model.StateMaintenance, s.State)

	// operators cannot force Disconnected
	err = m.SetOperatorState("s1", model.StateDisconnected)
	assert.Error(t, err)
	s, _ = mem.Get("s1")
	assert.Equal(t, model.StateMaintenance, s.State)
}

func TestMachine_UnknownSensor(t *testing.T) {
	m := NewMachine(storage.NewMemory())
	assert.Error(t, m.MarkDisconnected("nadie", false, time.Now()))
	assert.Error(t, m.Revive("nadie", time.Now()))
	assert.Error(t, m.SetOperatorState("nadie", model.StateActive))
}
