package connectivity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/model"
	"github.com/KERLINFIGUEROA0/AgrotechMobile-sub002/internal/storage"
)

func newWatchdogFixture(t *testing.T) (*storage.Memory, *Watchdog, time.Time) {
	t.Helper()
	mem := storage.NewMemory()
	w := NewWatchdog(mem, NewMachine(mem), 30*time.Second, 2*time.Minute)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	return mem, w, now
}

func seen(at time.Time) *time.Time { return &at }

func TestSweep_MarksStaleSensors(t *testing.T) {
	mem, w, now := newWatchdogFixture(t)
	require.NoError(t, mem.Save(model.Sensor{
		ID: "stale", Topic: "t1", State: model.StateActive,
		LastMessage: seen(now.Add(-3 * time.Minute)),
	}))
	require.NoError(t, mem.Save(model.Sensor{
		ID: "fresh", Topic: "t2", State: model.StateActive,
		LastMessage: seen(now.Add(-1 * time.Minute)),
	}))

	w.Sweep()

	s, _ := mem.Get("stale")
	assert.Equal(t, model.StateDisconnected, s.State)
	s, _ = mem.Get("fresh")
	assert.Equal(t, model.StateActive, s.State)
}

func TestSweep_DoesNotRefreshTimestamp(t *testing.T) {
	mem, w, now := newWatchdogFixture(t)
	last := now.Add(-3 * time.Minute)
	require.NoError(t, mem.Save(model.Sensor{
		ID: "stale", Topic: "t1", State: model.StateActive, LastMessage: seen(last),
	}))

	w.Sweep()

	s, _ := mem.Get("stale")
	require.NotNil(t, s.LastMessage)
	assert.Equal(t, last, *s.LastMessage)
}

func TestSweep_NeverSpokenGetsGracePeriod(t *testing.T) {
	mem, w, _ := newWatchdogFixture(t)
	require.NoError(t, mem.Save(model.Sensor{ID: "nuevo", Topic: "t1", State: model.StateActive}))

	w.Sweep()

	s, _ := mem.Get("nuevo")
	assert.Equal(t, model.StateActive, s.State)
}

func TestSweep_SkipsInactiveAndMaintenance(t *testing.T) {
	mem, w, now := newWatchdogFixture(t)
	old := seen(now.Add(-1 * time.Hour))
	require.NoError(t, mem.Save(model.Sensor{ID: "off", Topic: "t1", State: model.StateInactive, LastMessage: old}))
	require.NoError(t, mem.Save(model.Sensor{ID: "mant", Topic: "t2", State: model.StateMaintenance, LastMessage: old}))

	w.Sweep()

	s, _ := mem.Get("off")
	assert.Equal(t, model.StateInactive, s.State)
	s, _ = mem.Get("mant")
	assert.Equal(t, model.StateMaintenance, s.State)
}

func TestSweep_SkipsTopicless(t *testing.T) {
	mem, w, now := newWatchdogFixture(t)
	require.NoError(t, mem.Save(model.Sensor{
		ID: "virtual", State: model.StateActive, LastMessage: seen(now.Add(-1 * time.Hour)),
	}))

	w.Sweep()

	s, _ := mem.Get("virtual")
	assert.Equal(t, model.StateActive, s.State)
}

func TestSweep_NeverRevives(t *testing.T) {
	mem, w, now := newWatchdogFixture(t)
	// disconnected but with a fresh timestamp, e.g. after a self-report
	require.NoError(t, mem.Save(model.Sensor{
		ID: "down", Topic: "t1", State: model.StateDisconnected, LastMessage: seen(now),
	}))

	w.Sweep()

	s, _ := mem.Get("down")
	assert.Equal(t, model.StateDisconnected, s.State)
}

func TestNewWatchdog_EnforcesTimeoutAboveInterval(t *testing.T) {
	w := NewWatchdog(storage.NewMemory(), NewMachine(storage.NewMemory()), time.Minute, 30*time.Second)
	assert.Equal(t, 2*time.Minute, w.timeout)
}
